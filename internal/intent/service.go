package intent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hyperengineering/steward/internal/metrics"
	"github.com/sony/gobreaker"
)

// Ranker scores text against candidate labels. *ZeroShot implements it.
type Ranker interface {
	Rank(ctx context.Context, text string, labels []string) (*Ranking, error)
}

// Service resolves utterances to Results, preferring the remote ranker when
// one is configured.
type Service struct {
	remote Ranker
	labels []string
}

// NewService creates a resolution facade. A nil remote makes ClassifyIntent
// equivalent to Classify.
func NewService(remote Ranker) *Service {
	labels := make([]string, len(Labels))
	for i, l := range Labels {
		labels[i] = string(l)
	}
	return &Service{remote: remote, labels: labels}
}

// Remote reports whether a remote classifier is configured.
func (s *Service) Remote() bool {
	return s.remote != nil
}

// ClassifyIntent resolves text. Remote failures are logged, counted and
// answered with the rule-based result; they are never retried or surfaced.
func (s *Service) ClassifyIntent(ctx context.Context, text string) Result {
	if s.remote == nil {
		return s.classifyLocal(text)
	}

	start := time.Now()
	ranking, err := s.remote.Rank(ctx, text, s.labels)
	metrics.ClassifierDuration.WithLabelValues("remote").Observe(time.Since(start).Seconds())
	if err != nil {
		s.fallback(fallbackReason(err), err)
		return s.classifyLocal(text)
	}

	label, score, ok := ranking.Top()
	if !ok {
		s.fallback("empty_ranking", nil)
		return s.classifyLocal(text)
	}
	in := Intent(label)
	if !in.Known() {
		s.fallback("unknown_label", nil)
		return s.classifyLocal(text)
	}

	local := Classify(text)
	res := Result{
		Intent:               in,
		Entities:             local.Entities,
		Confidence:           clamp(score),
		RequiresConfirmation: in.Gated(),
	}
	if res.RequiresConfirmation {
		res.ConfirmationMessage = local.ConfirmationMessage
		if res.ConfirmationMessage == "" {
			res.ConfirmationMessage = genericConfirmation(in)
		}
	}

	metrics.IntentsClassified.WithLabelValues(string(res.Intent), "remote").Inc()
	slog.Debug("intent classified",
		"component", "intent",
		"source", "remote",
		"intent", res.Intent,
		"confidence", res.Confidence,
		"rules_intent", local.Intent,
	)
	return res
}

func (s *Service) classifyLocal(text string) Result {
	start := time.Now()
	res := Classify(text)
	metrics.ClassifierDuration.WithLabelValues("rules").Observe(time.Since(start).Seconds())
	metrics.IntentsClassified.WithLabelValues(string(res.Intent), "rules").Inc()
	return res
}

func (s *Service) fallback(reason string, err error) {
	metrics.ClassifierFallbacks.WithLabelValues(reason).Inc()
	attrs := []any{
		"component", "intent",
		"action", "fallback",
		"reason", reason,
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	slog.Warn("remote classification failed, using rules", attrs...)
}

func fallbackReason(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "breaker_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.As(err, &statusErr):
		return "status"
	default:
		return "transport"
	}
}

// genericConfirmation covers a gated remote label whose rule-based
// counterpart produced no message of its own.
func genericConfirmation(in Intent) string {
	switch in {
	case CreateGoal:
		return `I'll create a goal: "Untitled Goal". Should I save it?`
	case CreateTask:
		return `I'll add a task: "Untitled Task". Should I save it?`
	case AddExpense:
		return "I'll add an expense of $0. Should I save it?"
	}
	return "Should I go ahead?"
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
