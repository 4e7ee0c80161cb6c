package session

import (
	"context"
	"sync"
	"time"

	"github.com/eleccia/chatbot-engine/internal/model"
)

// MemoryStore is an in-process TTL session store. It backs single-instance
// deployments and tests; multi-instance deployments use RedisStore.
type MemoryStore struct {
	mu sync.Mutex
	m  map[string]*memEntry

	// now is replaceable in tests.
	now func() time.Time
}

type memEntry struct {
	s         *model.Session
	ttl       time.Duration
	expiresAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:   make(map[string]*memEntry),
		now: time.Now,
	}
}

// Get returns the live session and renews its TTL.
func (st *MemoryStore) Get(ctx context.Context, userID string) (*model.Session, error) {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	e, ok := st.m[Key(userID)]
	if !ok {
		return nil, ErrNotFound
	}

	// Sliding expiration: a read implies activity.
	e.expiresAt = now.Add(e.ttl)

	return e.s.Clone(), nil
}

// Put writes or overwrites the session. Last write wins.
func (st *MemoryStore) Put(ctx context.Context, userID string, s *model.Session, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	st.m[Key(userID)] = &memEntry{
		s:         s.Clone(),
		ttl:       ttl,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Delete removes the entry. Idempotent.
func (st *MemoryStore) Delete(ctx context.Context, userID string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	delete(st.m, Key(userID))
	return nil
}

// KeysNearExpiry returns user ids whose remaining TTL is below threshold.
func (st *MemoryStore) KeysNearExpiry(ctx context.Context, threshold time.Duration) ([]string, error) {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	var out []string
	for key, e := range st.m {
		if e.expiresAt.Sub(now) < threshold {
			out = append(out, key[len(KeyPrefix):])
		}
	}
	return out, nil
}

// Stats reports active-session counts.
func (st *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	now := st.now()

	st.mu.Lock()
	defer st.mu.Unlock()

	st.evictExpiredLocked(now)

	stats := Stats{ActiveSessions: len(st.m)}
	for _, e := range st.m {
		stats.TotalMessages += e.s.MessageCount
	}
	return stats, nil
}

// Ping always succeeds for the in-memory store.
func (st *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// SetClock replaces the store's time source. Test hook.
func (st *MemoryStore) SetClock(now func() time.Time) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.now = now
}

func (st *MemoryStore) evictExpiredLocked(now time.Time) {
	for key, e := range st.m {
		if !e.expiresAt.After(now) {
			delete(st.m, key)
		}
	}
}
