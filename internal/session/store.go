// Package session provides the ephemeral per-user session store.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/eleccia/chatbot-engine/internal/model"
)

// KeyPrefix namespaces session keys in the backing store.
const KeyPrefix = "conversation:"

// DefaultTTL is the sliding expiration applied to active sessions.
const DefaultTTL = 1800 * time.Second

// ErrNotFound is returned when no live session exists for a user.
var ErrNotFound = errors.New("session not found")

// Stats summarizes the active sessions held by a store.
type Stats struct {
	ActiveSessions int `json:"active_sessions"`
	TotalMessages  int `json:"total_messages"`
}

// Store holds at most one live session per user with sliding TTL expiry.
// Get renews the TTL because a read implies activity. Put is last-write-wins.
// Implementations must be safe for concurrent use; per-user serialization of
// the read-modify-write cycle is the caller's responsibility (see KeyedLocks).
type Store interface {
	// Get returns the live session for userID, renewing its TTL, or
	// ErrNotFound if none exists or it already expired.
	Get(ctx context.Context, userID string) (*model.Session, error)

	// Put writes or overwrites the session with the given TTL.
	Put(ctx context.Context, userID string, s *model.Session, ttl time.Duration) error

	// Delete removes the entry immediately. Deleting an absent key is a no-op.
	Delete(ctx context.Context, userID string) error

	// KeysNearExpiry returns user ids whose remaining TTL is below threshold.
	KeysNearExpiry(ctx context.Context, threshold time.Duration) ([]string, error)

	// Stats reports active-session counts for the admin surface.
	Stats(ctx context.Context) (Stats, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}

// Key returns the namespaced store key for a user.
func Key(userID string) string {
	return KeyPrefix + userID
}
