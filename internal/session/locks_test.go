package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLocksSerializesSameUser(t *testing.T) {
	locks := NewKeyedLocks()

	const goroutines = 50
	counter := 0
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			unlock := locks.Lock("u1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestKeyedLocksIndependentUsers(t *testing.T) {
	locks := NewKeyedLocks()

	unlockA := locks.Lock("a")
	// Locking a different user while "a" is held must not block.
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
	unlockA()
}

func TestKeyedLocksCleansUpEntries(t *testing.T) {
	locks := NewKeyedLocks()

	for i := 0; i < 10; i++ {
		unlock := locks.Lock("u1")
		unlock()
	}

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
