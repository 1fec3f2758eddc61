package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hyperengineering/steward/internal/conversation"
	"github.com/hyperengineering/steward/internal/intent"
	"github.com/hyperengineering/steward/internal/validation"
)

// Frame types accepted on the assistant websocket.
const (
	FrameMessage = "message"
	FrameConfirm = "confirm"
	FrameCancel  = "cancel"
)

// SessionResponse describes an assistant session.
type SessionResponse struct {
	SessionID string             `json:"session_id"`
	State     conversation.State `json:"state,omitempty"`
	Pending   *intent.Result     `json:"pending,omitempty"`
}

// MessageRequest is the body of POST /assistant/sessions/{id}/messages.
type MessageRequest = ParseRequest

// SocketFrame is a client frame on /assistant/ws.
type SocketFrame struct {
	Type  string `json:"type"`
	Input string `json:"input,omitempty"`
}

// SocketReply is a server frame on /assistant/ws.
type SocketReply struct {
	SessionID string              `json:"session_id"`
	Reply     *conversation.Reply `json:"reply,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// CreateSession handles POST /api/v1/assistant/sessions
func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, SessionResponse{
		SessionID: conversation.NewSessionID(),
		State:     conversation.StateIdle,
	})
}

// GetSession handles GET /api/v1/assistant/sessions/{id}
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())
	id := chi.URLParam(r, "id")

	state, pending, err := h.conversations.State(r.Context(), actor, id)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{SessionID: id, State: state, Pending: pending})
}

// SendMessage handles POST /api/v1/assistant/sessions/{id}/messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())

	var req MessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}
	input, err := inputString(req.Input)
	if err != nil {
		WriteProblem(w, r, http.StatusBadRequest, err.Error())
		return
	}

	reply, err := h.conversations.Submit(r.Context(), actor, chi.URLParam(r, "id"), input)
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// ConfirmSession handles POST /api/v1/assistant/sessions/{id}/confirm
func (h *Handler) ConfirmSession(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())
	reply, err := h.conversations.Confirm(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// CancelSession handles POST /api/v1/assistant/sessions/{id}/cancel
func (h *Handler) CancelSession(w http.ResponseWriter, r *http.Request) {
	actor := MustActorFromContext(r.Context())
	reply, err := h.conversations.Cancel(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		MapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// AssistantSocket handles GET /api/v1/assistant/ws. The session is taken
// from the session_id query parameter, or a new one is started. Each client
// frame is answered with exactly one reply frame.
func (h *Handler) AssistantSocket(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := MustActorFromContext(ctx)

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		sessionID = conversation.NewSessionID()
	} else if _, _, err := h.conversations.State(ctx, actor, sessionID); err != nil {
		MapError(w, r, err)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")
	conn.SetReadLimit(maxBodyBytes)

	for {
		var frame SocketFrame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				slog.Debug("websocket read ended", "session_id", sessionID, "error", err)
			}
			return
		}

		if err := wsjson.Write(ctx, conn, h.socketTurn(ctx, actor, sessionID, frame)); err != nil {
			slog.Debug("websocket write failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (h *Handler) socketTurn(ctx context.Context, actor, sessionID string, frame SocketFrame) SocketReply {
	out := SocketReply{SessionID: sessionID}

	var (
		reply conversation.Reply
		err   error
	)
	switch frame.Type {
	case FrameMessage:
		if utf8.RuneCountInString(frame.Input) > validation.MaxInputLength {
			out.Error = "Input is too long"
			return out
		}
		reply, err = h.conversations.Submit(ctx, actor, sessionID, frame.Input)
	case FrameConfirm:
		reply, err = h.conversations.Confirm(ctx, actor, sessionID)
	case FrameCancel:
		reply, err = h.conversations.Cancel(ctx, actor, sessionID)
	default:
		out.Error = "Unknown frame type"
		return out
	}

	if err != nil {
		out.Error = socketError(err)
		return out
	}
	out.Reply = &reply
	return out
}

func socketError(err error) string {
	switch {
	case errors.Is(err, conversation.ErrEmptyInput):
		return "Input is required"
	case errors.Is(err, conversation.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, conversation.ErrPendingUnavailable):
		return "Conversation state unavailable"
	default:
		slog.Error("assistant turn failed", "error", err)
		return "Internal Server Error"
	}
}
