package session

import "sync"

// KeyedLocks serializes the get-mutate-put cycle per user. Two concurrent
// webhook deliveries for the same user take turns; different users never
// contend.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedLocks creates an empty lock set.
func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*userLock)}
}

// Lock acquires the lock for userID and returns its release function. Lock
// entries are reference-counted and removed once the last holder releases,
// so the map does not grow with the user population.
func (k *KeyedLocks) Lock(userID string) func() {
	k.mu.Lock()
	l, ok := k.locks[userID]
	if !ok {
		l = &userLock{}
		k.locks[userID] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, userID)
		}
		k.mu.Unlock()
	}
}
