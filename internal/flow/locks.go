package flow

import "sync"

// userLocks provides mutual exclusion keyed by user id, so at most one turn
// mutates a user's conversation state at a time. Entries are reference
// counted and removed once the last holder releases, keeping the map bounded
// by the number of in-flight turns rather than the number of users ever seen.
type userLocks struct {
	mu    sync.Mutex
	users map[string]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{users: make(map[string]*userLock)}
}

// acquire blocks until the per-user lock is held and returns the release
// function. Locks for distinct user ids are independent.
func (l *userLocks) acquire(userID string) func() {
	l.mu.Lock()
	entry, ok := l.users[userID]
	if !ok {
		entry = &userLock{}
		l.users[userID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.users, userID)
		}
		l.mu.Unlock()
	}
}
