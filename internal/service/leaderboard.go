package service

import (
	"context"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/repository"
)

// MaxLeaderboardSize caps any single leaderboard read.
const MaxLeaderboardSize = 100

// SnapshotCache keeps the last projected leaderboard.
type SnapshotCache interface {
	// Load returns the cached snapshot, or false when none is fresh.
	Load(ctx context.Context) ([]model.LeaderboardEntry, bool, error)
	Store(ctx context.Context, entries []model.LeaderboardEntry) error
}

// UserRank is an account's position in the coin ranking.
type UserRank struct {
	Rank  int   `json:"rank"`
	Total int   `json:"total"`
	Coins int64 `json:"coins"`
}

// LeaderboardService reads the coin ranking.
type LeaderboardService struct {
	store repository.Store
	size  int
	cache SnapshotCache
}

// NewLeaderboardService creates a leaderboard reader. size is the default
// and projected snapshot length; cache may be nil.
func NewLeaderboardService(store repository.Store, size int, cache SnapshotCache) *LeaderboardService {
	if size <= 0 || size > MaxLeaderboardSize {
		size = 10
	}
	return &LeaderboardService{store: store, size: size, cache: cache}
}

// Size returns the default snapshot length.
func (s *LeaderboardService) Size() int { return s.size }

func (s *LeaderboardService) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.size
	case limit > MaxLeaderboardSize:
		return MaxLeaderboardSize
	}
	return limit
}

// Snapshot computes the top limit accounts by coins, ties broken by
// ascending id, positions starting at 1.
func (s *LeaderboardService) Snapshot(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	users, err := s.store.Users().Top(ctx, s.clampLimit(limit))
	if err != nil {
		return nil, translate(err, "read leaderboard")
	}
	return entriesOf(users), nil
}

func entriesOf(users []*model.User) []model.LeaderboardEntry {
	entries := make([]model.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		entries = append(entries, model.LeaderboardEntry{
			Position:  i + 1,
			ID:        u.ID,
			Username:  u.Username,
			FirstName: u.FirstName,
			PhotoURL:  u.PhotoURL,
			Level:     u.Level,
			Rank:      u.Rank,
			Coins:     u.Coins,
		})
	}
	return entries
}

// Top serves the default-size ranking from the cache when it is fresh and
// computes it otherwise. Other sizes are always computed.
func (s *LeaderboardService) Top(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	limit = s.clampLimit(limit)
	if limit == s.size && s.cache != nil {
		entries, ok, err := s.cache.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Leaderboard cache read failed")
		} else if ok {
			return entries, nil
		}
	}
	return s.Snapshot(ctx, limit)
}

// UserRank returns 1 + the number of accounts with strictly more coins, so
// equal balances share a rank.
func (s *LeaderboardService) UserRank(ctx context.Context, userID int64) (*UserRank, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "get user")
	}
	above, err := s.store.Users().CountWithMoreCoins(ctx, u.Coins)
	if err != nil {
		return nil, translate(err, "count ranking")
	}
	total, err := s.store.Users().Count(ctx)
	if err != nil {
		return nil, translate(err, "count users")
	}
	return &UserRank{Rank: above + 1, Total: total, Coins: u.Coins}, nil
}
