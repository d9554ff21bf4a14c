// Package bot provides the Telegram companion bot: deep-link onboarding,
// read-only account views and withdrawal review for admins.
package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wolf-tap/internal/config"
	"wolf-tap/internal/handler"
	"wolf-tap/internal/service"
)

// Bot wraps the telebot instance with application dependencies.
type Bot struct {
	bot *tele.Bot
	cfg *config.Config

	accountHandler *handler.AccountHandler
	rankingHandler *handler.RankingHandler
	adminHandler   *handler.AdminHandler
}

// Dependencies holds all the dependencies needed by the bot handlers.
type Dependencies struct {
	Config      *config.Config
	Accounts    *service.AccountService
	Leaderboard *service.LeaderboardService
	Wallet      *service.WalletService
}

// New creates a new Bot instance with the given dependencies.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Config.Telegram.BotToken == "" {
		return nil, errors.New("bot token is required")
	}

	teleBot, err := tele.NewBot(tele.Settings{
		Token:   deps.Config.Telegram.BotToken,
		Poller:  &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: onError,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := &Bot{
		bot:            teleBot,
		cfg:            deps.Config,
		accountHandler: handler.NewAccountHandler(deps.Accounts, deps.Leaderboard, deps.Config.Telegram.WebAppURL),
		rankingHandler: handler.NewRankingHandler(deps.Leaderboard),
		adminHandler:   handler.NewAdminHandler(deps.Wallet),
	}
	b.registerMiddleware()
	b.registerHandlers()
	return b, nil
}

func onError(err error, c tele.Context) {
	ev := log.Error().Err(err)
	if c != nil && c.Sender() != nil {
		ev = ev.Int64("user_id", c.Sender().ID)
	}
	ev.Msg("Bot handler failed")
}

func (b *Bot) registerMiddleware() {
	b.bot.Use(RecoveryMiddleware())
	b.bot.Use(LoggingMiddleware())
}

func (b *Bot) registerHandlers() {
	b.bot.Handle("/start", b.accountHandler.HandleStart, PrivateOnlyMiddleware())
	b.bot.Handle("/balance", b.accountHandler.HandleBalance)
	b.bot.Handle("/rank", b.accountHandler.HandleRank)
	b.bot.Handle("/top", b.rankingHandler.HandleTop)

	adminGroup := b.bot.Group()
	adminGroup.Use(AdminMiddleware(b.cfg))
	adminGroup.Handle("/pending", b.adminHandler.HandlePending)
	adminGroup.Handle("/approve", b.adminHandler.HandleApprove)
	adminGroup.Handle("/reject", b.adminHandler.HandleReject)

	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// handleCallback routes inline button presses.
func (b *Bot) handleCallback(c tele.Context) error {
	callback := c.Callback()
	if callback == nil {
		return nil
	}
	data := strings.TrimPrefix(callback.Data, "\f")
	log.Debug().Str("data", data).Msg("Callback received")

	if strings.HasPrefix(data, handler.CallbackApprove) || strings.HasPrefix(data, handler.CallbackReject) {
		return AdminMiddleware(b.cfg)(b.adminHandler.HandleReviewCallback)(c)
	}
	return c.Respond()
}

// Start starts the bot polling. It blocks until Stop is called.
func (b *Bot) Start() {
	log.Info().Str("username", b.bot.Me.Username).Msg("Starting bot...")
	b.bot.Start()
}

// Stop stops the bot gracefully.
func (b *Bot) Stop() {
	log.Info().Msg("Stopping bot...")
	b.bot.Stop()
}
