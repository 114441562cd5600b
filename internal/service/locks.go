package service

import "sync"

// SessionLocks serializes state writes for one session within this process.
// The store has no transactions; wizard actions and landing availability
// fetches both run read-modify-write cycles on the same session, and an
// unserialized interleaving could drop whichever write lands first.
type SessionLocks struct {
	locks sync.Map
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{}
}

// Lock acquires the session's mutex, creating it on first use. Callers
// unlock via the returned mutex.
func (l *SessionLocks) Lock(sessionID string) *sync.Mutex {
	v, _ := l.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu
}
