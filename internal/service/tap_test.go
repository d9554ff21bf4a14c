package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/clock"
	"wolf-tap/internal/progression"
)

func TestTap_TwentyTapsReachLevelTwo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, 1001)

	var last *TapResult
	for i := 0; i < 20; i++ {
		res, err := f.taps.Tap(ctx, u.ID)
		require.NoError(t, err)
		if i < 19 {
			assert.Nil(t, res.LevelUp, "tap %d", i+1)
		}
		last = res
	}

	require.NotNil(t, last.LevelUp)
	assert.True(t, last.LevelUp.LeveledUp)
	assert.Equal(t, 2, last.LevelUp.NewLevel)
	assert.Equal(t, "Curious Cub", last.LevelUp.NewRank)
	assert.Equal(t, int64(100), last.NewBalance)
	assert.Equal(t, int64(100), last.XP.Current)
	assert.Equal(t, 20, last.TapCount)
	assert.Equal(t, 100, last.DailyLimit)

	stored := f.user(t, u.ID)
	assert.Equal(t, 2, stored.Level)
	assert.Equal(t, "Curious Cub", stored.Rank)
	assert.Equal(t, int64(100), stored.Coins)
	f.requireReconciled(t)
}

func TestTap_DailyLimitAndRollover(t *testing.T) {
	rules := DefaultRules()
	rules.Location = time.UTC
	rules.DailyTapLimit = 3
	f := newFixtureWithRules(t, rules)
	ctx := context.Background()
	u := f.seedUser(t, 1002)

	for i := 0; i < 3; i++ {
		_, err := f.taps.Tap(ctx, u.ID)
		require.NoError(t, err)
	}
	_, err := f.taps.Tap(ctx, u.ID)
	require.ErrorIs(t, err, ErrDailyLimitExceeded)

	before := f.user(t, u.ID)
	assert.Equal(t, 3, before.DailyTapCount)
	assert.Equal(t, int64(15), before.Coins)

	f.clock.Advance(24 * time.Hour)
	res, err := f.taps.Tap(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TapCount)
	assert.Equal(t, int64(20), res.NewBalance)
	f.requireReconciled(t)
}

func TestTap_UsesCoinSettings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, 1003)

	_, err := f.settings.Update(ctx, "https://example.com/coin.png", 12)
	require.NoError(t, err)

	res, err := f.taps.Tap(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), res.CoinValue)
	assert.Equal(t, int64(12), res.NewBalance)
	assert.Equal(t, model.TxTypeTapReward, res.Entry.Type)
}

func TestTap_UnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.taps.Tap(context.Background(), 999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

// The in-memory store serializes transactions, so this checks the quota
// bookkeeping under contention. TestTap_ConcurrentTapsOnPostgres covers the
// row lock.
func TestTap_ConcurrentTapsNeverExceedQuota(t *testing.T) {
	rules := DefaultRules()
	rules.Location = time.UTC
	rules.DailyTapLimit = 25
	f := newFixtureWithRules(t, rules)
	u := f.seedUser(t, 1004)

	var (
		wg       sync.WaitGroup
		ok       atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.taps.Tap(context.Background(), u.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, ErrDailyLimitExceeded):
				rejected.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(25), ok.Load())
	assert.Equal(t, int32(15), rejected.Load())
	stored := f.user(t, u.ID)
	assert.Equal(t, 25, stored.DailyTapCount)
	assert.Equal(t, int64(125), stored.Coins)
	f.requireReconciled(t)
}

func TestApplyTap_Properties(t *testing.T) {
	today := clock.NewDay(2024, time.March, 10)
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.IntRange(1, 200).Draw(t, "limit")
		level := rapid.IntRange(1, progression.MaxLevel).Draw(t, "level")
		rank := progression.RankFor(level)
		s := tapState{
			Level:         level,
			XP:            rank.XPRequired + rapid.Int64Range(0, progression.XPToNextLevel(level)-1).Draw(t, "xpInLevel"),
			Rank:          rank.Name,
			DailyTapCount: rapid.IntRange(0, limit+5).Draw(t, "count"),
			LastTapDate:   today.AddDays(-rapid.IntRange(0, 3).Draw(t, "daysAgo")),
		}
		gain := rapid.Int64Range(0, 50_000).Draw(t, "gain")

		next, up, err := applyTap(s, today, limit, gain)

		sameDay := s.LastTapDate.Equal(today)
		if sameDay && s.DailyTapCount >= limit {
			if err == nil {
				t.Fatalf("expected limit rejection for count %d limit %d", s.DailyTapCount, limit)
			}
			if next != s {
				t.Fatalf("rejected tap changed state")
			}
			return
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		wantCount := 1
		if sameDay {
			wantCount = s.DailyTapCount + 1
		}
		if next.DailyTapCount != wantCount || next.DailyTapCount > limit {
			t.Fatalf("count = %d, want %d (limit %d)", next.DailyTapCount, wantCount, limit)
		}
		if !next.LastTapDate.Equal(today) {
			t.Fatalf("last tap date not advanced")
		}
		if next.XP != s.XP+gain {
			t.Fatalf("xp = %d, want %d", next.XP, s.XP+gain)
		}
		if next.Level < s.Level {
			t.Fatalf("level decreased from %d to %d", s.Level, next.Level)
		}
		if next.Level != progression.LevelForXP(next.XP) && next.Level != progression.MaxLevel {
			t.Fatalf("level %d does not match xp %d", next.Level, next.XP)
		}
		if next.Rank != progression.RankFor(next.Level).Name {
			t.Fatalf("rank %q does not match level %d", next.Rank, next.Level)
		}
		if up.LeveledUp != (next.Level > s.Level) {
			t.Fatalf("leveledUp = %v for %d -> %d", up.LeveledUp, s.Level, next.Level)
		}
	})
}

func TestTapsLeft(t *testing.T) {
	today := clock.NewDay(2024, time.March, 10)
	u := &model.User{DailyTapCount: 40, LastTapDate: today}

	assert.Equal(t, 60, TapsLeft(u, today, 100))
	assert.Equal(t, 100, TapsLeft(u, today.AddDays(1), 100))
	assert.Equal(t, 0, TapsLeft(&model.User{DailyTapCount: 120, LastTapDate: today}, today, 100))
}
