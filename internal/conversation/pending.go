package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/hyperengineering/steward/internal/intent"
	"github.com/hyperengineering/steward/internal/metrics"
)

// DefaultPendingTTL bounds how long an unanswered confirmation survives.
const DefaultPendingTTL = 10 * time.Minute

// PendingStore holds at most one pending action per key. An expired entry
// reads as absent.
type PendingStore interface {
	// Put stores r under key, replacing any previous entry, and reports
	// whether one was replaced.
	Put(ctx context.Context, key string, r intent.Result) (replaced bool, err error)
	// Get returns the entry under key or nil.
	Get(ctx context.Context, key string) (*intent.Result, error)
	// Take removes and returns the entry under key, or nil.
	Take(ctx context.Context, key string) (*intent.Result, error)
	// Delete removes the entry under key and reports whether one existed.
	Delete(ctx context.Context, key string) (bool, error)
}

type pendingEntry struct {
	result  intent.Result
	expires time.Time
}

// MemoryPendingStore is a mutex-guarded in-process PendingStore.
type MemoryPendingStore struct {
	mu      sync.Mutex
	entries map[string]pendingEntry
	ttl     time.Duration
	now     func() time.Time
}

// Compile-time interface check
var _ PendingStore = (*MemoryPendingStore)(nil)

// NewMemoryPendingStore creates an in-memory store. A non-positive ttl uses
// DefaultPendingTTL.
func NewMemoryPendingStore(ttl time.Duration) *MemoryPendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	return &MemoryPendingStore{
		entries: make(map[string]pendingEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryPendingStore) Put(ctx context.Context, key string, r intent.Result) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	_, replaced := s.live(key, now)
	s.entries[key] = pendingEntry{result: r, expires: now.Add(s.ttl)}
	metrics.PendingActions.Set(float64(len(s.entries)))
	return replaced, nil
}

func (s *MemoryPendingStore) Get(ctx context.Context, key string) (*intent.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key, s.now())
	if !ok {
		return nil, nil
	}
	r := e.result
	return &r, nil
}

func (s *MemoryPendingStore) Take(ctx context.Context, key string) (*intent.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(key, s.now())
	delete(s.entries, key)
	metrics.PendingActions.Set(float64(len(s.entries)))
	if !ok {
		return nil, nil
	}
	r := e.result
	return &r, nil
}

func (s *MemoryPendingStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.live(key, s.now())
	delete(s.entries, key)
	metrics.PendingActions.Set(float64(len(s.entries)))
	return ok, nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *MemoryPendingStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
			removed++
		}
	}
	metrics.PendingActions.Set(float64(len(s.entries)))
	return removed, nil
}

// Len returns the number of entries held, expired or not.
func (s *MemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// live must be called with mu held.
func (s *MemoryPendingStore) live(key string, now time.Time) (pendingEntry, bool) {
	e, ok := s.entries[key]
	if !ok || !now.Before(e.expires) {
		return pendingEntry{}, false
	}
	return e, true
}
