package flow

import (
	"sync"
	"testing"
)

func TestUserLocksMutualExclusion(t *testing.T) {
	locks := newUserLocks()

	counter := 0
	var wg sync.WaitGroup
	for n := 0; n < 100; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire("user123")
			defer release()
			counter++
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("expected 100 increments, got %d", counter)
	}
}

func TestUserLocksIndependentUsers(t *testing.T) {
	locks := newUserLocks()

	releaseA := locks.acquire("a")
	defer releaseA()

	// A held lock for one user must not block another user's turn.
	done := make(chan struct{})
	go func() {
		release := locks.acquire("b")
		release()
		close(done)
	}()
	<-done
}

func TestUserLocksEntriesReleased(t *testing.T) {
	locks := newUserLocks()

	release := locks.acquire("user123")
	release()

	locks.mu.Lock()
	defer locks.mu.Unlock()
	if len(locks.users) != 0 {
		t.Errorf("expected lock map emptied after release, got %d entries", len(locks.users))
	}
}
