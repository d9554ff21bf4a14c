package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"wolf-tap/internal/api"
	"wolf-tap/internal/bot"
	"wolf-tap/internal/cache"
	"wolf-tap/internal/config"
	"wolf-tap/internal/game"
	"wolf-tap/internal/pkg/lock"
	"wolf-tap/internal/pkg/metrics"
	"wolf-tap/internal/repository"
	"wolf-tap/internal/service"
	"wolf-tap/internal/ws"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server, leaderboard projector and companion bot",
	RunE:  runServe,
}

// rulesFrom maps the economy configuration onto engine rules.
func rulesFrom(cfg *config.Config) (service.Rules, error) {
	loc, err := cfg.Location()
	if err != nil {
		return service.Rules{}, err
	}
	return service.Rules{
		DailyTapLimit:    cfg.Economy.DailyTapLimit,
		XPPerTap:         cfg.Economy.XPPerTap,
		DefaultCoinValue: cfg.Economy.DefaultCoinValue,
		ReferralBonus:    cfg.Economy.ReferralBonus,
		WelcomeBonus:     cfg.Economy.WelcomeBonus,
		MaxGameReward:    cfg.Economy.MaxGameReward,
		LockTimeout:      cfg.Economy.LockTimeout,
		Location:         loc,
	}, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rules, err := rulesFrom(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := metrics.RegisterPool(prometheus.DefaultRegisterer, pool.Pool); err != nil {
		log.Warn().Err(err).Msg("Failed to register pool metrics")
	}

	store := repository.NewStore(pool.Pool)
	engine := service.NewEngine(store, lock.NewUserLock(), nil, rules)

	registry, err := game.NewRegistry(game.Defaults()...)
	if err != nil {
		return err
	}

	var snapshots service.SnapshotCache
	if cfg.Redis.Enabled {
		client, err := cache.Open(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		snapshots = cache.NewLeaderboardCache(client, cfg.Leaderboard.CacheTTL)
	}

	settings := service.NewSettingsService(store, rules.DefaultCoinValue)
	referrals := service.NewReferralService(engine)
	services := api.Services{
		Accounts:    service.NewAccountService(engine, referrals),
		Settings:    settings,
		Taps:        service.NewTapService(engine, settings),
		Tasks:       service.NewTaskService(engine),
		Badges:      service.NewBadgeService(engine),
		Referrals:   referrals,
		Wallet:      service.NewWalletService(engine),
		Social:      service.NewSocialService(engine),
		Games:       service.NewGameService(engine, registry),
		Leaderboard: service.NewLeaderboardService(store, cfg.Leaderboard.Size, snapshots),
	}

	hub := ws.NewHub(services.Leaderboard, cfg.HTTP.CORSOrigins)
	defer hub.Close()

	projector := service.NewProjector(services.Leaderboard, hub, snapshots, cfg.Leaderboard.BroadcastInterval)
	if err := projector.Start(ctx); err != nil {
		return err
	}
	defer projector.Stop()

	if cfg.Telegram.BotEnabled {
		telegramBot, err := bot.New(&bot.Dependencies{
			Config:      cfg,
			Accounts:    services.Accounts,
			Leaderboard: services.Leaderboard,
			Wallet:      services.Wallet,
		})
		if err != nil {
			return err
		}
		go telegramBot.Start()
		defer telegramBot.Stop()
	}

	server := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: api.NewServer(cfg, services,
			api.WithHub(hub),
			api.WithHealthCheck(pool.HealthCheck),
		).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Bool("dev_mode", cfg.HTTP.DevMode).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case err := <-errc:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server stopped gracefully")
	return nil
}
