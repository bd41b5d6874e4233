package service

import "sync"

// UserLocks hands out one mutex per user id. Entries are reference counted and
// dropped once nobody holds or waits on them.
type UserLocks struct {
	mu    sync.Mutex
	locks map[uint]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewUserLocks() *UserLocks {
	return &UserLocks{locks: make(map[uint]*userLock)}
}

// Lock blocks until the user's mutex is held and returns its release func.
// A nil *UserLocks locks nothing.
func (u *UserLocks) Lock(userID uint) func() {
	if u == nil {
		return func() {}
	}
	u.mu.Lock()
	if u.locks == nil {
		u.locks = make(map[uint]*userLock)
	}
	l, ok := u.locks[userID]
	if !ok {
		l = &userLock{}
		u.locks[userID] = l
	}
	l.refs++
	u.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		u.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(u.locks, userID)
		}
		u.mu.Unlock()
	}
}

func (u *UserLocks) size() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.locks)
}
