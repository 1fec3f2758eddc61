// Package conversation runs the confirm-before-write dialogue on top of
// intent resolution and action dispatch.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hyperengineering/steward/internal/action"
	"github.com/hyperengineering/steward/internal/intent"
	"github.com/hyperengineering/steward/internal/metrics"
)

var (
	ErrEmptyInput         = errors.New("input is required")
	ErrSessionNotFound    = errors.New("session not found")
	ErrPendingUnavailable = errors.New("pending action store unavailable")
)

// State is the observable session state between turns. Parsing and
// executing happen within a single turn and are never observed.
type State string

const (
	StateIdle  State = "idle"
	StateGated State = "awaiting_confirmation"
)

const (
	msgNothingToConfirm = "There is nothing to confirm."
	msgCancelled        = "Action cancelled."
	msgNothingToCancel  = "There is no pending action to cancel."
	msgNoReporter       = "Progress reports are not available right now."
)

// Classifier resolves an utterance. *intent.Service implements it.
type Classifier interface {
	ClassifyIntent(ctx context.Context, text string) intent.Result
}

// Executor performs an action. *action.Dispatcher implements it.
type Executor interface {
	Execute(ctx context.Context, actor string, in intent.Intent, entities intent.Entities) action.Outcome
}

// Reporter answers show_progress and show_stats.
type Reporter interface {
	Summary(ctx context.Context, actor, timeRange string) (string, error)
}

// Advisor answers get_guidance.
type Advisor interface {
	Respond(ctx context.Context, text string) string
}

// Reply is the assistant's answer to one turn.
type Reply struct {
	Message         string          `json:"message"`
	State           State           `json:"state"`
	Intent          intent.Intent   `json:"intent,omitempty"`
	Confidence      float64         `json:"confidence,omitempty"`
	Outcome         *action.Outcome `json:"outcome,omitempty"`
	Pending         *intent.Result  `json:"pending,omitempty"`
	ReplacedPending bool            `json:"replaced_pending,omitempty"`
}

// Controller drives per-session conversations. Sessions share nothing but
// the pending store; the last writer wins on a session's pending slot.
type Controller struct {
	classifier Classifier
	executor   Executor
	pending    PendingStore
	reporter   Reporter
	advisor    Advisor
}

// NewController wires a controller. reporter and advisor may be nil.
func NewController(classifier Classifier, executor Executor, pending PendingStore, reporter Reporter, advisor Advisor) *Controller {
	return &Controller{
		classifier: classifier,
		executor:   executor,
		pending:    pending,
		reporter:   reporter,
		advisor:    advisor,
	}
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.NewString()
}

// sessionKey scopes a session to its actor. Unknown or malformed ids are
// rejected so one actor cannot address another's slot by guessing.
func sessionKey(actor, sessionID string) (string, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return "", ErrSessionNotFound
	}
	return actor + ":" + id.String(), nil
}

// Submit handles one utterance. Gated intents become the session's pending
// action; everything else runs now and clears whatever was pending.
func (c *Controller) Submit(ctx context.Context, actor, sessionID, input string) (Reply, error) {
	key, err := sessionKey(actor, sessionID)
	if err != nil {
		return Reply{}, err
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return Reply{}, ErrEmptyInput
	}

	result := c.classifier.ClassifyIntent(ctx, input)

	if result.RequiresConfirmation {
		replaced, err := c.pending.Put(ctx, key, result)
		if err != nil {
			return Reply{}, fmt.Errorf("%w: %w", ErrPendingUnavailable, err)
		}
		reply := Reply{
			Message:         result.ConfirmationMessage,
			State:           StateGated,
			Intent:          result.Intent,
			Confidence:      result.Confidence,
			Pending:         &result,
			ReplacedPending: replaced,
		}
		c.record("submit", reply.State)
		return reply, nil
	}

	if _, err := c.pending.Delete(ctx, key); err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrPendingUnavailable, err)
	}

	reply := Reply{State: StateIdle, Intent: result.Intent, Confidence: result.Confidence}
	switch result.Intent {
	case intent.ShowProgress, intent.ShowStats:
		reply.Message = c.progress(ctx, actor, result.Entities)
	case intent.GetGuidance:
		reply.Message = c.guidance(ctx, input)
	default:
		out := c.executor.Execute(ctx, actor, result.Intent, result.Entities)
		reply.Message = out.Message
		reply.Outcome = &out
	}
	c.record("submit", reply.State)
	return reply, nil
}

// Confirm dispatches the pending action exactly once. The slot is cleared
// before dispatch so a failure cannot be confirmed again.
func (c *Controller) Confirm(ctx context.Context, actor, sessionID string) (Reply, error) {
	key, err := sessionKey(actor, sessionID)
	if err != nil {
		return Reply{}, err
	}

	pending, err := c.pending.Take(ctx, key)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrPendingUnavailable, err)
	}
	if pending == nil {
		c.record("confirm", StateIdle)
		return Reply{Message: msgNothingToConfirm, State: StateIdle}, nil
	}

	out := c.executor.Execute(ctx, actor, pending.Intent, pending.Entities)
	if !out.Success {
		slog.Info("confirmed action failed",
			"component", "conversation",
			"intent", string(pending.Intent),
			"status", string(out.Status),
		)
	}
	c.record("confirm", StateIdle)
	return Reply{
		Message:    out.Message,
		State:      StateIdle,
		Intent:     pending.Intent,
		Confidence: pending.Confidence,
		Outcome:    &out,
	}, nil
}

// Cancel discards the pending action.
func (c *Controller) Cancel(ctx context.Context, actor, sessionID string) (Reply, error) {
	key, err := sessionKey(actor, sessionID)
	if err != nil {
		return Reply{}, err
	}

	existed, err := c.pending.Delete(ctx, key)
	if err != nil {
		return Reply{}, fmt.Errorf("%w: %w", ErrPendingUnavailable, err)
	}
	c.record("cancel", StateIdle)
	if !existed {
		return Reply{Message: msgNothingToCancel, State: StateIdle}, nil
	}
	return Reply{Message: msgCancelled, State: StateIdle}, nil
}

// State reports the session state and its pending action, if any.
func (c *Controller) State(ctx context.Context, actor, sessionID string) (State, *intent.Result, error) {
	key, err := sessionKey(actor, sessionID)
	if err != nil {
		return "", nil, err
	}
	pending, err := c.pending.Get(ctx, key)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrPendingUnavailable, err)
	}
	if pending == nil {
		return StateIdle, nil, nil
	}
	return StateGated, pending, nil
}

func (c *Controller) progress(ctx context.Context, actor string, entities intent.Entities) string {
	if c.reporter == nil {
		return msgNoReporter
	}
	timeRange := "all"
	if p, ok := entities.(intent.ProgressEntities); ok && p.TimeRange != "" {
		timeRange = p.TimeRange
	}
	summary, err := c.reporter.Summary(ctx, actor, timeRange)
	if err != nil {
		slog.Error("progress summary failed", "component", "conversation", "error", err)
		return msgNoReporter
	}
	return summary
}

func (c *Controller) guidance(ctx context.Context, input string) string {
	if c.advisor == nil {
		return "I can help you create goals, add tasks, track expenses and check your progress."
	}
	return c.advisor.Respond(ctx, input)
}

func (c *Controller) record(kind string, state State) {
	metrics.ConversationTurns.WithLabelValues(kind, string(state)).Inc()
}
