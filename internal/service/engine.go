// Package service implements the reward economy: taps, tasks, badges,
// referrals, wallet and leaderboard.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/clock"
	"wolf-tap/internal/pkg/lock"
	"wolf-tap/internal/pkg/metrics"
	"wolf-tap/internal/repository"
)

// Rules are the economy constants shared by every engine.
type Rules struct {
	DailyTapLimit    int
	XPPerTap         int64
	DefaultCoinValue int64
	ReferralBonus    int64
	WelcomeBonus     int64
	MaxGameReward    int64
	LockTimeout      time.Duration
	// Location decides where a calendar day starts for the tap quota.
	Location *time.Location
}

// DefaultRules returns the stock economy.
func DefaultRules() Rules {
	return Rules{
		DailyTapLimit:    100,
		XPPerTap:         5,
		DefaultCoinValue: 5,
		ReferralBonus:    50,
		WelcomeBonus:     100,
		MaxGameReward:    500,
		LockTimeout:      5 * time.Second,
		Location:         time.Local,
	}
}

// Engine carries the collaborators every state transition needs. The
// concrete services embed it.
type Engine struct {
	store repository.Store
	locks *lock.UserLock
	clock clock.Clock
	rules Rules
}

// NewEngine creates an Engine. A nil clock means the system clock.
func NewEngine(store repository.Store, locks *lock.UserLock, clk clock.Clock, rules Rules) *Engine {
	if clk == nil {
		clk = clock.System{}
	}
	if rules.Location == nil {
		rules.Location = time.Local
	}
	return &Engine{store: store, locks: locks, clock: clk, rules: rules}
}

// Rules returns the engine's economy constants.
func (e *Engine) Rules() Rules { return e.rules }

func (e *Engine) today() clock.Day {
	return clock.DayOf(e.clock.Now(), e.rules.Location)
}

// account is one user's row inside an open transaction. Every balance
// change goes through post so the ledger and coins move together.
type account struct {
	tx      repository.Tx
	user    *model.User
	dirty   bool
	entries []*model.Transaction
}

// post applies amount to the balance and appends the matching ledger entry.
// A debit that would make the balance negative fails with ErrInsufficientBalance.
func (a *account) post(ctx context.Context, amount int64, txType, status, description string) (*model.Transaction, error) {
	if a.user.Coins+amount < 0 {
		return nil, ErrInsufficientBalance
	}
	entry, err := a.tx.Ledger().Append(ctx, &model.Transaction{
		UserID:      a.user.ID,
		Amount:      amount,
		Type:        txType,
		Description: description,
		Status:      status,
	})
	if err != nil {
		return nil, err
	}
	a.user.Coins += amount
	a.dirty = true
	a.entries = append(a.entries, entry)
	return entry, nil
}

// touch marks non-balance fields of the user as changed.
func (a *account) touch() { a.dirty = true }

// committed reports the posted entries once the transaction is durable.
func (a *account) committed() {
	for _, e := range a.entries {
		metrics.Ledger(e.Type, e.Amount)
	}
}

func (a *account) save(ctx context.Context) error {
	if !a.dirty {
		return nil
	}
	return a.tx.Users().Save(ctx, a.user)
}

func (e *Engine) lockAccount(ctx context.Context, tx repository.Tx, userID int64) (*account, error) {
	user, err := tx.Users().GetForUpdate(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &account{tx: tx, user: user}, nil
}

// mutate runs fn as one serialized unit of work on userID: the in-process
// lock, one database transaction and the account row lock. The user is
// saved when fn changed it; any error rolls everything back.
func (e *Engine) mutate(ctx context.Context, userID int64, fn func(acc *account) error) error {
	return e.locks.WithLockContext(ctx, userID, e.rules.LockTimeout, func() error {
		var acc *account
		err := e.store.InTx(ctx, func(tx repository.Tx) error {
			var err error
			if acc, err = e.lockAccount(ctx, tx, userID); err != nil {
				return err
			}
			if err := fn(acc); err != nil {
				return err
			}
			return acc.save(ctx)
		})
		if err == nil {
			acc.committed()
		}
		return err
	})
}

// mutatePair is mutate for two distinct accounts. Locks and rows are taken
// in ascending id order.
func (e *Engine) mutatePair(ctx context.Context, firstID, secondID int64, fn func(first, second *account) error) error {
	if firstID == secondID {
		return fmt.Errorf("%w: pair mutation needs two accounts", ErrInvalidInput)
	}
	return e.locks.WithLocksContext(ctx, []int64{firstID, secondID}, e.rules.LockTimeout, func() error {
		var first, second *account
		err := e.store.InTx(ctx, func(tx repository.Tx) error {
			lo, hi := firstID, secondID
			if lo > hi {
				lo, hi = hi, lo
			}
			loAcc, err := e.lockAccount(ctx, tx, lo)
			if err != nil {
				return err
			}
			hiAcc, err := e.lockAccount(ctx, tx, hi)
			if err != nil {
				return err
			}
			first, second = loAcc, hiAcc
			if firstID != lo {
				first, second = hiAcc, loAcc
			}
			if err := fn(first, second); err != nil {
				return err
			}
			if err := first.save(ctx); err != nil {
				return err
			}
			return second.save(ctx)
		})
		if err == nil {
			first.committed()
			second.committed()
		}
		return err
	})
}

// logOutcome logs a finished transition at the level its error deserves.
func logOutcome(err error, op string, userID int64) {
	switch {
	case err == nil:
	case IsRejection(err):
		log.Warn().Err(err).Str("op", op).Int64("user_id", userID).Msg("Operation rejected")
	default:
		log.Error().Err(err).Str("op", op).Int64("user_id", userID).Msg("Operation failed")
	}
}
