package service

import (
	"context"
	"os/exec"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/clock"
	"wolf-tap/internal/pkg/db"
	"wolf-tap/internal/pkg/lock"
	"wolf-tap/internal/progression"
	"wolf-tap/internal/repository"
)

// setupPgStore starts a migrated PostgreSQL container.
// Skips the test if Docker is not available.
func setupPgStore(t *testing.T) *repository.PgStore {
	t.Helper()
	if err := exec.Command("docker", "info").Run(); err != nil {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool))
	return repository.NewStore(pool)
}

// Two engines with separate in-process locks stand in for two server
// instances; only the database row lock keeps their taps apart.
func TestTap_ConcurrentTapsOnPostgres(t *testing.T) {
	store := setupPgStore(t)
	ctx := context.Background()

	rules := DefaultRules()
	rules.Location = time.UTC
	rules.DailyTapLimit = 20
	clk := clock.NewFixed(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC))
	settings := NewSettingsService(store, rules.DefaultCoinValue)

	taps := []*TapService{
		NewTapService(NewEngine(store, lock.NewUserLock(), clk, rules), settings),
		NewTapService(NewEngine(store, lock.NewUserLock(), clk, rules), settings),
	}

	first := progression.RankFor(1)
	u, err := store.Users().Create(ctx, &model.User{
		TelegramID:   9001,
		Username:     "wolf9001",
		Level:        first.Level,
		Rank:         first.Name,
		ReferralCode: NewReferralCode(),
	})
	require.NoError(t, err)

	const attempts = 32
	var (
		wg       sync.WaitGroup
		ok       atomic.Int32
		rejected atomic.Int32
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(svc *TapService) {
			defer wg.Done()
			_, err := svc.Tap(ctx, u.ID)
			switch {
			case err == nil:
				ok.Add(1)
			case assert.ErrorIs(t, err, ErrDailyLimitExceeded):
				rejected.Add(1)
			}
		}(taps[i%len(taps)])
	}
	wg.Wait()

	assert.Equal(t, int32(rules.DailyTapLimit), ok.Load())
	assert.Equal(t, int32(attempts-rules.DailyTapLimit), rejected.Load())

	stored, err := store.Users().GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, rules.DailyTapLimit, stored.DailyTapCount)
	assert.Equal(t, int64(rules.DailyTapLimit)*rules.DefaultCoinValue, stored.Coins)

	sum, err := store.Ledger().SumByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.Coins, sum)
}
