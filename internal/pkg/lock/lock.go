// Package lock provides per-account mutual exclusion for balance mutations.
package lock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// userMutex is a one-slot semaphore shared by everyone holding or waiting on an account.
type userMutex struct {
	sem  chan struct{}
	refs int
}

// UserLock serializes operations per account id. Different ids never block each other.
type UserLock struct {
	mu    sync.Mutex
	locks map[int64]*userMutex
}

// NewUserLock creates a new UserLock instance.
func NewUserLock() *UserLock {
	return &UserLock{locks: make(map[int64]*userMutex)}
}

// acquire registers interest in userID and returns its mutex.
func (ul *UserLock) acquire(userID int64) *userMutex {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m, ok := ul.locks[userID]
	if !ok {
		m = &userMutex{sem: make(chan struct{}, 1)}
		ul.locks[userID] = m
	}
	m.refs++
	return m
}

// release drops interest in userID, removing the entry once nobody holds or waits on it.
func (ul *UserLock) release(userID int64, m *userMutex) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	m.refs--
	if m.refs == 0 {
		delete(ul.locks, userID)
	}
}

// unlock releases the lock for userID. Unlocking an id that is not locked is a no-op.
func (ul *UserLock) unlock(userID int64) {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	ul.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-m.sem:
		ul.release(userID, m)
	default:
	}
}

// lockContext waits for the lock until ctx is done or timeout elapses.
// A non-positive timeout waits on ctx alone.
func (ul *UserLock) lockContext(ctx context.Context, userID int64, timeout time.Duration) error {
	m := ul.acquire(userID)

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		ul.release(userID, m)
		return ctx.Err()
	case <-expired:
		ul.release(userID, m)
		return ErrLockTimeout
	}
}

// WithLockContext runs fn while holding the lock for userID, giving up with
// ErrLockTimeout or the context error if the lock cannot be taken in time.
func (ul *UserLock) WithLockContext(ctx context.Context, userID int64, timeout time.Duration, fn func() error) error {
	if err := ul.lockContext(ctx, userID, timeout); err != nil {
		return err
	}
	defer ul.unlock(userID)
	return fn()
}

// WithLocksContext runs fn while holding the locks of every id in userIDs.
// Locks are taken in ascending id order so two callers locking the same pair
// cannot deadlock. Duplicate ids are locked once.
func (ul *UserLock) WithLocksContext(ctx context.Context, userIDs []int64, timeout time.Duration, fn func() error) error {
	ids := append([]int64(nil), userIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	held := make([]int64, 0, len(ids))
	defer func() {
		for i := len(held) - 1; i >= 0; i-- {
			ul.unlock(held[i])
		}
	}()

	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		if err := ul.lockContext(ctx, id, timeout); err != nil {
			return err
		}
		held = append(held, id)
	}
	return fn()
}
