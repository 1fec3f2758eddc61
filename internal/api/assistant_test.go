package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hyperengineering/steward/internal/conversation"
	"github.com/hyperengineering/steward/internal/intent"
)

func dialAssistant(t *testing.T, ts *testServer, query string) (*websocket.Conn, context.Context) {
	t.Helper()

	srv := httptest.NewServer(ts.router)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/assistant/ws" + query
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + aliceToken}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test complete") })
	return conn, ctx
}

func roundTrip(t *testing.T, ctx context.Context, conn *websocket.Conn, frame SocketFrame) SocketReply {
	t.Helper()
	require.NoError(t, wsjson.Write(ctx, conn, frame))
	var reply SocketReply
	require.NoError(t, wsjson.Read(ctx, conn, &reply))
	return reply
}

func TestAssistantSocket_ConfirmFlow(t *testing.T) {
	ts := newTestServer(t)
	conn, ctx := dialAssistant(t, ts, "")

	gated := roundTrip(t, ctx, conn, SocketFrame{Type: FrameMessage, Input: "spent 20 on food"})
	require.Empty(t, gated.Error)
	require.NotNil(t, gated.Reply)
	assert.NotEmpty(t, gated.SessionID)
	assert.Equal(t, conversation.StateGated, gated.Reply.State)
	assert.Equal(t, intent.AddExpense, gated.Reply.Intent)

	done := roundTrip(t, ctx, conn, SocketFrame{Type: FrameConfirm})
	require.Empty(t, done.Error)
	require.NotNil(t, done.Reply)
	assert.Equal(t, gated.SessionID, done.SessionID)
	assert.Equal(t, conversation.StateIdle, done.Reply.State)
	require.NotNil(t, done.Reply.Outcome)
	assert.True(t, done.Reply.Outcome.Success)
	assert.Equal(t, "Expense of $20 added to Food & Dining!", done.Reply.Message)
}

func TestAssistantSocket_ResumesSession(t *testing.T) {
	ts := newTestServer(t)
	id := createSession(t, ts, aliceToken)
	ts.do(t, http.MethodPost, "/api/v1/assistant/sessions/"+id+"/messages", aliceToken, `{"input":"add task water plants"}`)

	conn, ctx := dialAssistant(t, ts, "?session_id="+id)

	reply := roundTrip(t, ctx, conn, SocketFrame{Type: FrameCancel})
	require.NotNil(t, reply.Reply)
	assert.Equal(t, id, reply.SessionID)
	assert.Equal(t, "Action cancelled.", reply.Reply.Message)
}

func TestAssistantSocket_FrameErrors(t *testing.T) {
	ts := newTestServer(t)
	conn, ctx := dialAssistant(t, ts, "")

	tests := []struct {
		name  string
		frame SocketFrame
		want  string
	}{
		{"unknown type", SocketFrame{Type: "shout"}, "Unknown frame type"},
		{"empty message", SocketFrame{Type: FrameMessage, Input: "  "}, "Input is required"},
		{"oversized message", SocketFrame{Type: FrameMessage, Input: strings.Repeat("x", 1001)}, "Input is too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reply := roundTrip(t, ctx, conn, tt.frame)
			assert.Equal(t, tt.want, reply.Error)
			assert.Nil(t, reply.Reply)
		})
	}

	// The connection survives frame errors
	reply := roundTrip(t, ctx, conn, SocketFrame{Type: FrameConfirm})
	require.NotNil(t, reply.Reply)
	assert.Equal(t, conversation.StateIdle, reply.Reply.State)
}

func TestAssistantSocket_RejectsMalformedSession(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/assistant/ws?session_id=bogus"
	_, resp, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: http.Header{"Authorization": []string{"Bearer " + aliceToken}},
	})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAssistantSocket_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/assistant/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
