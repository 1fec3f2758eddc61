package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

// ErrRemoteUnavailable wraps every failure of the remote classifier. Callers
// treat it as a signal to fall back, never to retry.
var ErrRemoteUnavailable = errors.New("remote classifier unavailable")

// Remote classifier defaults.
const (
	DefaultZeroShotBaseURL = "https://api-inference.huggingface.co/models"
	DefaultZeroShotModel   = "facebook/bart-large-mnli"
	defaultZeroShotTimeout = 10 * time.Second
	defaultMaxFailures     = 5
	defaultCooldown        = 30 * time.Second
	maxResponseBytes       = 1 << 20
)

// ZeroShotConfig configures the remote zero-shot classifier.
type ZeroShotConfig struct {
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration

	// MaxFailures consecutive failures open the breaker for Cooldown.
	MaxFailures uint32
	Cooldown    time.Duration

	// HTTPClient overrides the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Ranking is the remote model's answer: labels ordered with their scores.
type Ranking struct {
	Labels []string  `json:"labels"`
	Scores []float64 `json:"scores"`
}

// Top returns the highest scoring label. Labels without a score are ignored.
func (r *Ranking) Top() (string, float64, bool) {
	best := -1
	for i := range r.Scores {
		if i >= len(r.Labels) {
			break
		}
		if best < 0 || r.Scores[i] > r.Scores[best] {
			best = i
		}
	}
	if best < 0 {
		return "", 0, false
	}
	return r.Labels[best], r.Scores[best], true
}

// ZeroShot calls a hosted zero-shot classification model.
type ZeroShot struct {
	endpoint string
	apiKey   string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// NewZeroShot creates a remote classifier client.
func NewZeroShot(cfg ZeroShotConfig) *ZeroShot {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultZeroShotBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultZeroShotModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultZeroShotTimeout
	}
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = defaultMaxFailures
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = defaultCooldown
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	maxFailures := cfg.MaxFailures
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "zero-shot-classifier",
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("classifier breaker state changed",
				"component", "intent",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &ZeroShot{
		endpoint: strings.TrimRight(cfg.BaseURL, "/") + "/" + strings.TrimLeft(cfg.Model, "/"),
		apiKey:   cfg.APIKey,
		client:   client,
		breaker:  breaker,
	}
}

type zeroShotRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters zeroShotParameters `json:"parameters"`
}

type zeroShotParameters struct {
	CandidateLabels []string `json:"candidate_labels"`
}

// Rank asks the remote model to score text against labels. Any failure,
// including an open breaker, is returned wrapped in ErrRemoteUnavailable.
func (z *ZeroShot) Rank(ctx context.Context, text string, labels []string) (*Ranking, error) {
	out, err := z.breaker.Execute(func() (interface{}, error) {
		return z.call(ctx, text, labels)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	return out.(*Ranking), nil
}

func (z *ZeroShot) call(ctx context.Context, text string, labels []string) (*Ranking, error) {
	body, err := json.Marshal(zeroShotRequest{
		Inputs:     text,
		Parameters: zeroShotParameters{CandidateLabels: labels},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, z.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+z.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := z.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var ranking Ranking
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&ranking); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ranking, nil
}

// StatusError reports a non-2xx response from the remote classifier.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("classifier returned status %d", e.Code)
}
