package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wolf-tap/internal/game"
	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/clock"
	"wolf-tap/internal/pkg/lock"
	"wolf-tap/internal/progression"
	"wolf-tap/internal/repository/memstore"
)

type fixture struct {
	store    *memstore.Store
	clock    *clock.Fixed
	engine   *Engine
	settings *SettingsService
	taps     *TapService
	tasks    *TaskService
	badges   *BadgeService
	refs     *ReferralService
	accounts *AccountService
	wallet   *WalletService
	social   *SocialService
	games    *GameService
	board    *LeaderboardService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rules := DefaultRules()
	rules.Location = time.UTC
	return newFixtureWithRules(t, rules)
}

func newFixtureWithRules(t *testing.T, rules Rules) *fixture {
	t.Helper()
	store := memstore.New()
	clk := clock.NewFixed(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	engine := NewEngine(store, lock.NewUserLock(), clk, rules)
	registry, err := game.NewRegistry(game.Defaults()...)
	require.NoError(t, err)

	settings := NewSettingsService(store, rules.DefaultCoinValue)
	refs := NewReferralService(engine)
	return &fixture{
		store:    store,
		clock:    clk,
		engine:   engine,
		settings: settings,
		taps:     NewTapService(engine, settings),
		tasks:    NewTaskService(engine),
		badges:   NewBadgeService(engine),
		refs:     refs,
		accounts: NewAccountService(engine, refs),
		wallet:   NewWalletService(engine),
		social:   NewSocialService(engine),
		games:    NewGameService(engine, registry),
		board:    NewLeaderboardService(store, 10, nil),
	}
}

// seedUser creates a level 1 account with zero coins and no ledger entries.
func (f *fixture) seedUser(t *testing.T, telegramID int64) *model.User {
	t.Helper()
	first := progression.RankFor(1)
	u, err := f.store.Users().Create(context.Background(), &model.User{
		TelegramID:   telegramID,
		Username:     fmt.Sprintf("wolf%d", telegramID),
		FirstName:    "Wolf",
		Level:        first.Level,
		Rank:         first.Name,
		ReferralCode: NewReferralCode(),
	})
	require.NoError(t, err)
	return u
}

// credit posts amount to userID through the engine so the ledger stays in step.
func (f *fixture) credit(t *testing.T, userID, amount int64) {
	t.Helper()
	err := f.engine.mutate(context.Background(), userID, func(acc *account) error {
		_, err := acc.post(context.Background(), amount, model.TxTypeGameReward, model.TxStatusCompleted, "seed")
		return err
	})
	require.NoError(t, err)
}

func (f *fixture) user(t *testing.T, id int64) *model.User {
	t.Helper()
	u, err := f.store.Users().GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

// requireReconciled asserts that coins equal the ledger sum for every account.
func (f *fixture) requireReconciled(t *testing.T) {
	t.Helper()
	checked, mismatched, err := f.wallet.ReconcileAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, mismatched)
	require.Positive(t, checked)
}
