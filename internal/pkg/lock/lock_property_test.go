package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// A quota check-then-increment guarded by the lock never overshoots, no
// matter how many goroutines race for the same account.
func TestQuotaNeverExceededUnderLockProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 50).Draw(t, "limit")
		attempts := rapid.IntRange(limit, limit*3).Draw(t, "attempts")
		userID := rapid.Int64Range(1, 1000000).Draw(t, "userID")

		ul := NewUserLock()
		count := 0
		var accepted atomic.Int32

		var wg sync.WaitGroup
		wg.Add(attempts)
		for i := 0; i < attempts; i++ {
			go func() {
				defer wg.Done()
				_ = ul.WithLockContext(context.Background(), userID, 0, func() error {
					if count >= limit {
						return errors.New("limit")
					}
					count++
					accepted.Add(1)
					return nil
				})
			}()
		}
		wg.Wait()

		if count != limit || int(accepted.Load()) != limit {
			t.Fatalf("expected exactly %d accepted, count=%d accepted=%d", limit, count, accepted.Load())
		}
	})
}

func TestIndependentUsersProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numUsers := rapid.IntRange(2, 10).Draw(t, "numUsers")
		opsPerUser := rapid.IntRange(5, 20).Draw(t, "opsPerUser")

		ul := NewUserLock()
		balances := make([]int64, numUsers+1)

		var wg sync.WaitGroup
		wg.Add(numUsers * opsPerUser)
		for uid := 1; uid <= numUsers; uid++ {
			for j := 0; j < opsPerUser; j++ {
				go func(uid int) {
					defer wg.Done()
					_ = ul.WithLockContext(context.Background(), int64(uid), 0, func() error {
						balances[uid] += 5
						return nil
					})
				}(uid)
			}
		}
		wg.Wait()

		for uid := 1; uid <= numUsers; uid++ {
			if balances[uid] != int64(opsPerUser*5) {
				t.Fatalf("user %d: expected %d, got %d", uid, opsPerUser*5, balances[uid])
			}
		}
	})
}

// Entries are dropped once nobody holds or waits on them.
func TestLockEntriesAreReleasedProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOfN(rapid.Int64Range(1, 20), 1, 40).Draw(t, "ids")
		ul := NewUserLock()

		var wg sync.WaitGroup
		wg.Add(len(ids))
		for _, id := range ids {
			go func(id int64) {
				defer wg.Done()
				_ = ul.WithLockContext(context.Background(), id, time.Second, func() error { return nil })
			}(id)
		}
		wg.Wait()

		ul.mu.Lock()
		n := len(ul.locks)
		ul.mu.Unlock()
		if n != 0 {
			t.Fatalf("expected no lock entries, got %d", n)
		}
	})
}

// Opposite lock orders on the same pair must not deadlock.
func TestWithLocksContextOrdersPairs(t *testing.T) {
	ul := NewUserLock()
	var wg sync.WaitGroup
	var total atomic.Int64

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			err := ul.WithLocksContext(context.Background(), []int64{1, 2}, 5*time.Second, func() error {
				total.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			err := ul.WithLocksContext(context.Background(), []int64{2, 1}, 5*time.Second, func() error {
				total.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), total.Load())
	assert.False(t, isHeld(ul, 1))
	assert.False(t, isHeld(ul, 2))
}

func TestWithLocksContextDeduplicates(t *testing.T) {
	ul := NewUserLock()
	called := false
	err := ul.WithLocksContext(context.Background(), []int64{7, 7}, time.Second, func() error {
		called = true
		assert.True(t, isHeld(ul, 7))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.False(t, isHeld(ul, 7))
}

func TestLockContextTimeout(t *testing.T) {
	ul := NewUserLock()
	require.NoError(t, ul.lockContext(context.Background(), 42, 0))
	defer ul.unlock(42)

	err := ul.WithLockContext(context.Background(), 42, 20*time.Millisecond, func() error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestLockContextCancelled(t *testing.T) {
	ul := NewUserLock()
	require.NoError(t, ul.lockContext(context.Background(), 42, 0))
	defer ul.unlock(42)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ul.lockContext(ctx, 42, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnlockFreesTheSlot(t *testing.T) {
	ul := NewUserLock()
	require.NoError(t, ul.lockContext(context.Background(), 9, 0))
	assert.True(t, isHeld(ul, 9))

	err := ul.WithLockContext(context.Background(), 9, 10*time.Millisecond, func() error { return nil })
	require.ErrorIs(t, err, ErrLockTimeout)

	ul.unlock(9)
	assert.False(t, isHeld(ul, 9))
	require.NoError(t, ul.WithLockContext(context.Background(), 9, time.Second, func() error { return nil }))

	// Unlocking a free id is harmless.
	ul.unlock(9)
}

// isHeld reports whether userID is currently held.
func isHeld(ul *UserLock, userID int64) bool {
	ul.mu.Lock()
	m, ok := ul.locks[userID]
	ul.mu.Unlock()
	return ok && len(m.sem) == 1
}
