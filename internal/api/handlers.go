package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hyperengineering/steward/internal/action"
	"github.com/hyperengineering/steward/internal/conversation"
	"github.com/hyperengineering/steward/internal/intent"
	"github.com/hyperengineering/steward/internal/store"
	"github.com/hyperengineering/steward/internal/types"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Classifier resolves utterances. *intent.Service implements it.
type Classifier interface {
	ClassifyIntent(ctx context.Context, text string) intent.Result
}

// Executor dispatches actions. *action.Dispatcher implements it.
type Executor interface {
	Execute(ctx context.Context, actor string, in intent.Intent, entities intent.Entities) action.Outcome
}

// Conversations drives assistant sessions. *conversation.Controller
// implements it.
type Conversations interface {
	Submit(ctx context.Context, actor, sessionID, input string) (conversation.Reply, error)
	Confirm(ctx context.Context, actor, sessionID string) (conversation.Reply, error)
	Cancel(ctx context.Context, actor, sessionID string) (conversation.Reply, error)
	State(ctx context.Context, actor, sessionID string) (conversation.State, *intent.Result, error)
}

// Dashboard computes statistics. *dashboard.Service implements it.
type Dashboard interface {
	Stats(ctx context.Context, actor string) (types.DashboardStats, error)
}

// ServiceInfo describes the running configuration for /health.
type ServiceInfo struct {
	Version    string
	Classifier string
	Guidance   string
	Database   string
}

// Handler implements the API handlers
type Handler struct {
	store         store.Store
	classifier    Classifier
	executor      Executor
	conversations Conversations
	dashboard     Dashboard
	info          ServiceInfo
	now           func() time.Time
}

// NewHandler creates a new Handler
func NewHandler(s store.Store, c Classifier, e Executor, conv Conversations, d Dashboard, info ServiceInfo) *Handler {
	return &Handler{
		store:         s,
		classifier:    c,
		executor:      e,
		conversations: conv,
		dashboard:     d,
		info:          info,
		now:           time.Now,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.store.Ping(ctx); err != nil {
		slog.Error("health check failed", "error", err)
		WriteProblem(w, r, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	stats, err := h.store.GetStats(ctx)
	if err != nil {
		MapError(w, r, err)
		return
	}
	version, err := h.store.SchemaVersion(ctx)
	if err != nil {
		MapError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, types.HealthResponse{
		Status:        "healthy",
		Version:       h.info.Version,
		Classifier:    h.info.Classifier,
		Guidance:      h.info.Guidance,
		Database:      h.info.Database,
		GoalCount:     stats.GoalCount,
		TaskCount:     stats.TaskCount,
		ExpenseCount:  stats.ExpenseCount,
		SchemaVersion: int(version),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("Invalid JSON: %s", err.Error())
	}
	return nil
}
