package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hyperengineering/steward/internal/intent"
)

const defaultKeyPrefix = "steward:pending:"

// RedisPendingStore keeps pending actions in Redis with a key TTL, so
// confirmations survive restarts and are shared between replicas.
type RedisPendingStore struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// Compile-time interface check
var _ PendingStore = (*RedisPendingStore)(nil)

// NewRedisPendingStore creates a store on client. A non-positive ttl uses
// DefaultPendingTTL.
func NewRedisPendingStore(client redis.Cmdable, ttl time.Duration) *RedisPendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &RedisPendingStore{client: client, prefix: defaultKeyPrefix, ttl: ttl}
}

// storedResult records the entities variant explicitly; a remote label may
// carry entities of a different variant than the intent implies.
type storedResult struct {
	Intent               intent.Intent   `json:"intent"`
	EntitiesKind         string          `json:"entities_kind"`
	Entities             json.RawMessage `json:"entities"`
	Confidence           float64         `json:"confidence"`
	RequiresConfirmation bool            `json:"requires_confirmation"`
	ConfirmationMessage  string          `json:"confirmation_message,omitempty"`
}

func encodeResult(r intent.Result) ([]byte, error) {
	if r.Entities == nil {
		r.Entities = intent.EntitiesFor(r.Intent)
	}
	entities, err := json.Marshal(r.Entities)
	if err != nil {
		return nil, fmt.Errorf("encode entities: %w", err)
	}
	return json.Marshal(storedResult{
		Intent:               r.Intent,
		EntitiesKind:         r.Entities.Kind(),
		Entities:             entities,
		Confidence:           r.Confidence,
		RequiresConfirmation: r.RequiresConfirmation,
		ConfirmationMessage:  r.ConfirmationMessage,
	})
}

func decodeResult(data []byte) (*intent.Result, error) {
	var s storedResult
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode pending action: %w", err)
	}
	entities, err := intent.DecodeEntitiesKind(s.EntitiesKind, s.Entities)
	if err != nil {
		return nil, fmt.Errorf("decode pending action: %w", err)
	}
	return &intent.Result{
		Intent:               s.Intent,
		Entities:             entities,
		Confidence:           s.Confidence,
		RequiresConfirmation: s.RequiresConfirmation,
		ConfirmationMessage:  s.ConfirmationMessage,
	}, nil
}

func (s *RedisPendingStore) Put(ctx context.Context, key string, r intent.Result) (bool, error) {
	data, err := encodeResult(r)
	if err != nil {
		return false, err
	}

	var prev *redis.StringCmd
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		prev = pipe.Get(ctx, s.prefix+key)
		pipe.Set(ctx, s.prefix+key, data, s.ttl)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("store pending action: %w", err)
	}
	return prev.Err() == nil, nil
}

func (s *RedisPendingStore) Get(ctx context.Context, key string) (*intent.Result, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending action: %w", err)
	}
	return decodeResult(data)
}

func (s *RedisPendingStore) Take(ctx context.Context, key string) (*intent.Result, error) {
	data, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("take pending action: %w", err)
	}
	return decodeResult(data)
}

func (s *RedisPendingStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.prefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("delete pending action: %w", err)
	}
	return n > 0, nil
}
