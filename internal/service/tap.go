package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/clock"
	"wolf-tap/internal/pkg/metrics"
	"wolf-tap/internal/progression"
)

// TapXP is the XP part of a tap result.
type TapXP struct {
	Gained         int64 `json:"gained"`
	Current        int64 `json:"current"`
	NextLevelFloor int64 `json:"nextLevelXp"`
}

// TapResult describes what a successful tap changed.
type TapResult struct {
	CoinValue  int64                `json:"coinValue"`
	NewBalance int64                `json:"newBalance"`
	TapCount   int                  `json:"tapCount"`
	DailyLimit int                  `json:"dailyLimit"`
	LevelUp    *progression.LevelUp `json:"levelUp,omitempty"`
	XP         TapXP                `json:"xp"`
	Entry      *model.Transaction   `json:"-"`
}

// tapState is the slice of the account a tap reads and writes.
type tapState struct {
	Level         int
	XP            int64
	Rank          string
	DailyTapCount int
	LastTapDate   clock.Day
}

// applyTap is the pure tap transition. It returns the next state and the
// level change, or ErrDailyLimitExceeded with s untouched.
func applyTap(s tapState, today clock.Day, limit int, xpGain int64) (tapState, progression.LevelUp, error) {
	count := s.DailyTapCount
	if !s.LastTapDate.Equal(today) {
		count = 0
	}
	if count >= limit {
		return s, progression.LevelUp{}, ErrDailyLimitExceeded
	}

	next := s
	next.DailyTapCount = count + 1
	next.LastTapDate = today
	next.XP = s.XP + xpGain

	up := progression.Advance(s.Level, next.XP)
	next.Level = up.NewLevel
	next.Rank = up.NewRank
	return next, up, nil
}

// TapsLeft returns how many taps u still has on today.
func TapsLeft(u *model.User, today clock.Day, limit int) int {
	if !u.LastTapDate.Equal(today) {
		return limit
	}
	if left := limit - u.DailyTapCount; left > 0 {
		return left
	}
	return 0
}

// TapService runs the tap engine.
type TapService struct {
	*Engine
	settings *SettingsService
}

// NewTapService creates a new TapService instance.
func NewTapService(engine *Engine, settings *SettingsService) *TapService {
	return &TapService{Engine: engine, settings: settings}
}

// Tap credits one tap to userID: quota check, coin reward, XP, level-ups and
// the tap_reward ledger entry, all in one transaction.
func (s *TapService) Tap(ctx context.Context, userID int64) (*TapResult, error) {
	var result *TapResult
	err := s.mutate(ctx, userID, func(acc *account) error {
		coinValue, err := s.settings.CoinValue(ctx, acc.tx)
		if err != nil {
			return err
		}

		u := acc.user
		next, up, err := applyTap(tapState{
			Level:         u.Level,
			XP:            u.XP,
			Rank:          u.Rank,
			DailyTapCount: u.DailyTapCount,
			LastTapDate:   u.LastTapDate,
		}, s.today(), s.rules.DailyTapLimit, s.rules.XPPerTap)
		if err != nil {
			return err
		}

		u.Level, u.XP, u.Rank = next.Level, next.XP, next.Rank
		u.DailyTapCount, u.LastTapDate = next.DailyTapCount, next.LastTapDate
		acc.touch()

		entry, err := acc.post(ctx, coinValue, model.TxTypeTapReward, model.TxStatusCompleted,
			fmt.Sprintf("Tap reward: %d coins", coinValue))
		if err != nil {
			return err
		}

		result = &TapResult{
			CoinValue:  coinValue,
			NewBalance: u.Coins,
			TapCount:   u.DailyTapCount,
			DailyLimit: s.rules.DailyTapLimit,
			XP: TapXP{
				Gained:         s.rules.XPPerTap,
				Current:        u.XP,
				NextLevelFloor: progression.NextLevelFloor(u.Level),
			},
			Entry: entry,
		}
		if up.LeveledUp {
			result.LevelUp = &up
		}
		return nil
	})

	switch {
	case err == nil:
		metrics.Taps.WithLabelValues("ok").Inc()
	case errors.Is(err, ErrDailyLimitExceeded):
		metrics.Taps.WithLabelValues("limit").Inc()
	default:
		metrics.Taps.WithLabelValues("error").Inc()
	}
	logOutcome(err, "tap", userID)
	if err != nil {
		return nil, err
	}

	if result.LevelUp != nil {
		metrics.LevelUps.WithLabelValues("tap").Inc()
		log.Info().
			Int64("user_id", userID).
			Int("level", result.LevelUp.NewLevel).
			Str("rank", result.LevelUp.NewRank).
			Msg("User leveled up")
	}
	log.Debug().
		Int64("user_id", userID).
		Int64("coins", result.CoinValue).
		Int64("balance", result.NewBalance).
		Int("tap_count", result.TapCount).
		Msg("Tap credited")
	return result, nil
}
