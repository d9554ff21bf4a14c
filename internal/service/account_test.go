package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wolf-tap/internal/model"
)

func TestAccount_EnsureUserCreatesWithWelcomeBonus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, created, err := f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5001, Username: "luna", FirstName: "Luna"}, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(100), u.Coins)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, "Wolf Pup", u.Rank)
	assert.Regexp(t, referralCodePattern, u.ReferralCode)

	entries, err := f.wallet.History(ctx, u.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, model.TxTypeWelcomeBonus, entries[0].Type)
	assert.Equal(t, int64(100), entries[0].Amount)

	again, created, err := f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5001, Username: "luna_w", FirstName: "Luna"}, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "luna_w", again.Username)
	assert.Equal(t, "luna_w", f.user(t, u.ID).Username)
	assert.Equal(t, int64(100), f.user(t, u.ID).Coins)
	f.requireReconciled(t)
}

func TestAccount_RefreshKeepsPhotoWhenProfileHasNone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	photo := "https://t.me/i/userpic/luna.jpg"

	u, _, err := f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5010, FirstName: "Luna", PhotoURL: photo}, "")
	require.NoError(t, err)

	again, created, err := f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5010, FirstName: "Luna", Username: "luna"}, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, photo, again.PhotoURL)
	assert.Equal(t, "luna", again.Username)
	assert.Equal(t, photo, f.user(t, u.ID).PhotoURL)

	newer := "https://t.me/i/userpic/luna2.jpg"
	again, _, err = f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5010, FirstName: "Luna", Username: "luna", PhotoURL: newer}, "")
	require.NoError(t, err)
	assert.Equal(t, newer, again.PhotoURL)
	assert.Equal(t, newer, f.user(t, u.ID).PhotoURL)
}

func TestAccount_EnsureUserAppliesReferralCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	owner, _, err := f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5011, Username: "alpha"}, "")
	require.NoError(t, err)

	joiner, created, err := f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5012, Username: "beta"}, owner.ReferralCode)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, joiner.ReferrerID)
	assert.Equal(t, owner.ID, *joiner.ReferrerID)
	assert.Equal(t, int64(150), f.user(t, owner.ID).Coins)

	// A bad code does not fail the login.
	third, created, err := f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5013}, "WOLFBOGUS0")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Nil(t, third.ReferrerID)
	f.requireReconciled(t)
}

func TestAccount_EnsureUserRetriesOnCodeCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	existing := f.seedUser(t, 5021)

	// The first generated code is already taken.
	calls := 0
	f.refs.newCode = func() string {
		calls++
		if calls == 1 {
			return existing.ReferralCode
		}
		return "WOLFNEW001"
	}

	u, created, err := f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5022}, "")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "WOLFNEW001", u.ReferralCode)
}

func TestAccount_ConcurrentFirstLoginCreatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, _, err := f.accounts.EnsureUser(ctx, model.Profile{TelegramID: 5031}, "")
			if assert.NoError(t, err) {
				ids[i] = u.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	n, err := f.store.Users().Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	f.requireReconciled(t)
}

func TestAccount_GetProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, 5041)
	for i := 0; i < 4; i++ {
		_, err := f.taps.Tap(ctx, u.ID)
		require.NoError(t, err)
	}

	p, err := f.accounts.GetProfile(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.User.XP)
	assert.Equal(t, 96, p.TapsLeft)
	assert.Equal(t, 20, p.Progress.ProgressPercent)
	assert.Equal(t, int64(100), p.Progress.NextLevelFloor)
	assert.Equal(t, int64(100), p.Progress.XPToNextLevel)

	_, err = f.accounts.GetProfile(ctx, 999)
	require.ErrorIs(t, err, ErrUserNotFound)

	_, _, err = f.accounts.EnsureUser(ctx, model.Profile{}, "")
	require.ErrorIs(t, err, ErrInvalidInput)
}
