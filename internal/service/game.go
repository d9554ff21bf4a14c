package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/game"
	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/metrics"
)

// GameReward is the result of a credited game report.
type GameReward struct {
	Game       string `json:"game"`
	Reported   int64  `json:"reported"`
	Credited   int64  `json:"credited"`
	NewBalance int64  `json:"newBalance"`
}

type cooldownKey struct {
	userID int64
	slug   string
}

// GameService credits the rewards of client-side mini-games.
type GameService struct {
	*Engine
	games *game.Registry

	mu        sync.Mutex
	last      map[cooldownKey]time.Time
	lastPrune time.Time
}

// NewGameService creates a new GameService instance.
func NewGameService(engine *Engine, games *game.Registry) *GameService {
	return &GameService{
		Engine: engine,
		games:  games,
		last:   make(map[cooldownKey]time.Time),
	}
}

// Games returns the catalog.
func (s *GameService) Games() []game.Game {
	return s.games.List()
}

// creditFor clamps a reported reward to the game and economy maxima.
func creditFor(reported int64, g game.Game, ceiling int64) int64 {
	credit := reported
	if credit > g.MaxReward {
		credit = g.MaxReward
	}
	if ceiling > 0 && credit > ceiling {
		credit = ceiling
	}
	return credit
}

// ReportReward credits a finished round of slug. The reward must be
// positive and is clamped to the game's and the economy's maximum.
// Reports for the same game closer than its cooldown are rejected.
func (s *GameService) ReportReward(ctx context.Context, userID int64, slug string, reward int64) (*GameReward, error) {
	g, ok := s.games.Get(slug)
	if !ok {
		return nil, ErrUnknownGame
	}
	if reward <= 0 {
		return nil, ErrInvalidAmount
	}

	key := cooldownKey{userID: userID, slug: slug}
	result := &GameReward{Game: slug, Reported: reward, Credited: creditFor(reward, g, s.rules.MaxGameReward)}
	var undo func()
	err := s.mutate(ctx, userID, func(acc *account) error {
		var ok bool
		if undo, ok = s.startRound(key, g.Cooldown, s.clock.Now()); !ok {
			return ErrGameCooldown
		}
		desc := fmt.Sprintf("%s reward", g.Title)
		if _, err := acc.post(ctx, result.Credited, model.TxTypeGameReward, model.TxStatusCompleted, desc); err != nil {
			return err
		}
		result.NewBalance = acc.user.Coins
		return nil
	})
	metrics.Claim("game", err)
	logOutcome(err, "game_reward", userID)
	if err != nil {
		if undo != nil {
			undo()
		}
		return nil, err
	}
	log.Info().
		Int64("user_id", userID).
		Str("game", slug).
		Int64("reported", reward).
		Int64("credited", result.Credited).
		Msg("Game reward credited")
	return result, nil
}

// startRound records a round of key at now unless the previous one is
// within cooldown. The returned undo restores the previous record and is
// used when the credit does not commit.
func (s *GameService) startRound(key cooldownKey, cooldown time.Duration, now time.Time) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)

	prev, had := s.last[key]
	if had && now.Sub(prev) < cooldown {
		return nil, false
	}
	s.last[key] = now
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if cur, ok := s.last[key]; !ok || !cur.Equal(now) {
			return
		}
		if had {
			s.last[key] = prev
		} else {
			delete(s.last, key)
		}
	}, true
}

// pruneLocked drops records older than the longest cooldown, at most once
// per that interval. s.mu must be held.
func (s *GameService) pruneLocked(now time.Time) {
	var longest time.Duration
	for _, g := range s.games.List() {
		if g.Cooldown > longest {
			longest = g.Cooldown
		}
	}
	if now.Sub(s.lastPrune) < longest {
		return
	}
	for key, at := range s.last {
		if now.Sub(at) >= longest {
			delete(s.last, key)
		}
	}
	s.lastPrune = now
}
