package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"wolf-tap/internal/model"
)

type recordingHub struct {
	mu        sync.Mutex
	snapshots [][]model.LeaderboardEntry
}

func (h *recordingHub) Broadcast(entries []model.LeaderboardEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshots = append(h.snapshots, entries)
}

type memCache struct {
	entries []model.LeaderboardEntry
	fresh   bool
}

func (c *memCache) Load(context.Context) ([]model.LeaderboardEntry, bool, error) {
	return c.entries, c.fresh, nil
}

func (c *memCache) Store(_ context.Context, entries []model.LeaderboardEntry) error {
	c.entries, c.fresh = entries, true
	return nil
}

func TestLeaderboard_OrderingAndRank(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seedUser(t, 9001)
	b := f.seedUser(t, 9002)
	c := f.seedUser(t, 9003)
	d := f.seedUser(t, 9004)
	f.credit(t, a.ID, 50)
	f.credit(t, b.ID, 80)
	f.credit(t, c.ID, 50)

	top, err := f.board.Snapshot(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 4)
	assert.Equal(t, []int64{b.ID, a.ID, c.ID, d.ID}, []int64{top[0].ID, top[1].ID, top[2].ID, top[3].ID})
	for i, e := range top {
		assert.Equal(t, i+1, e.Position)
	}

	top, err = f.board.Snapshot(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)

	rank, err := f.board.UserRank(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank.Rank)
	assert.Equal(t, 4, rank.Total)

	rank, err = f.board.UserRank(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, rank.Rank)

	rank, err = f.board.UserRank(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, rank.Rank)
}

func TestLeaderboard_ProjectorCachesAndBroadcasts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, 9011)
	f.credit(t, u.ID, 10)

	cache := &memCache{}
	hub := &recordingHub{}
	board := NewLeaderboardService(f.store, 10, cache)
	p := NewProjector(board, hub, cache, time.Minute)

	entries, err := p.Project(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Len(t, hub.snapshots, 1)
	assert.Equal(t, entries, cache.entries)

	// Default-size reads come from the cache until the next projection.
	other := f.seedUser(t, 9012)
	f.credit(t, other.ID, 99)
	cached, err := board.Top(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, cached, 1)

	fresh, err := board.Top(ctx, 5)
	require.NoError(t, err)
	require.Len(t, fresh, 2)
	assert.Equal(t, other.ID, fresh[0].ID)
}

func TestLeaderboard_StartStop(t *testing.T) {
	f := newFixture(t)
	f.seedUser(t, 9021)
	hub := &recordingHub{}
	p := NewProjector(NewLeaderboardService(f.store, 10, nil), hub, nil, time.Hour)

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.snapshots) == 1
	}, 2*time.Second, 10*time.Millisecond)
	p.Stop()
}

func TestLeaderboard_SnapshotOrderProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		ctx := context.Background()
		n := rapid.IntRange(1, 12).Draw(rt, "users")
		for i := 0; i < n; i++ {
			u := f.seedUser(t, int64(10_000+i))
			if coins := rapid.Int64Range(0, 5).Draw(rt, "coins"); coins > 0 {
				f.credit(t, u.ID, coins)
			}
		}

		top, err := f.board.Snapshot(ctx, n)
		if err != nil {
			rt.Fatalf("snapshot: %v", err)
		}
		if len(top) != n {
			rt.Fatalf("got %d entries, want %d", len(top), n)
		}
		for i := 1; i < len(top); i++ {
			prev, cur := top[i-1], top[i]
			if prev.Coins < cur.Coins || (prev.Coins == cur.Coins && prev.ID > cur.ID) {
				rt.Fatalf("entries %d and %d out of order: %+v %+v", i-1, i, prev, cur)
			}
		}
	})
}
