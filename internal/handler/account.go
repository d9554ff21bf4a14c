// Package handler provides Telegram bot command handlers.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wolf-tap/internal/model"
	"wolf-tap/internal/service"
)

// AccountHandler handles account-related commands.
type AccountHandler struct {
	accounts    *service.AccountService
	leaderboard *service.LeaderboardService
	webAppURL   string
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accounts *service.AccountService, leaderboard *service.LeaderboardService, webAppURL string) *AccountHandler {
	return &AccountHandler{
		accounts:    accounts,
		leaderboard: leaderboard,
		webAppURL:   webAppURL,
	}
}

func profileOf(sender *tele.User) model.Profile {
	return model.Profile{
		TelegramID: sender.ID,
		Username:   sender.Username,
		FirstName:  sender.FirstName,
		LastName:   sender.LastName,
	}
}

// startCode extracts the referral code from a /start deep link payload.
func startCode(payload string) string {
	code := service.NormalizeCode(payload)
	if i := strings.IndexByte(code, ' '); i >= 0 {
		code = code[:i]
	}
	return code
}

// HandleStart handles /start [referralCode]. The account is created on first
// contact and the deep-link code applied to it.
func (h *AccountHandler) HandleStart(c tele.Context) error {
	ctx := context.Background()
	sender := c.Sender()
	if sender == nil {
		return nil
	}

	user, created, err := h.accounts.EnsureUser(ctx, profileOf(sender), startCode(c.Message().Payload))
	if err != nil {
		log.Error().Err(err).Int64("telegram_id", sender.ID).Msg("Failed to ensure account from /start")
		return c.Reply("❌ Could not open your account, please try again later")
	}

	panel := BuildPlayPanel(h.webAppURL, "")
	if created {
		return c.Reply(fmt.Sprintf(
			"🐺 Welcome to the pack, %s!\n\n"+
				"Your account is ready with %d coins.\n"+
				"Your referral code: %s\n\n"+
				"Commands:\n"+
				"/balance - your coins\n"+
				"/rank - your level and position\n"+
				"/top - the leaderboard",
			user.DisplayName(), user.Coins, user.ReferralCode,
		), panel)
	}
	return c.Reply(fmt.Sprintf("👋 Welcome back, %s! You have %d coins.", user.DisplayName(), user.Coins), panel)
}

func (h *AccountHandler) current(ctx context.Context, c tele.Context) (*model.User, error) {
	sender := c.Sender()
	user, err := h.accounts.GetByTelegramID(ctx, sender.ID)
	if errors.Is(err, service.ErrUserNotFound) {
		user, _, err = h.accounts.EnsureUser(ctx, profileOf(sender), "")
	}
	return user, err
}

// HandleBalance handles /balance.
func (h *AccountHandler) HandleBalance(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	user, err := h.current(context.Background(), c)
	if err != nil {
		return c.Reply("❌ Could not read your balance, please try again later")
	}
	return c.Reply(fmt.Sprintf("💰 Balance: %d coins", user.Coins))
}

// HandleRank handles /rank: level, XP progress and leaderboard position.
func (h *AccountHandler) HandleRank(c tele.Context) error {
	ctx := context.Background()
	if c.Sender() == nil {
		return nil
	}
	user, err := h.current(ctx, c)
	if err != nil {
		return c.Reply("❌ Could not read your profile, please try again later")
	}
	profile, err := h.accounts.GetProfile(ctx, user.ID)
	if err != nil {
		return c.Reply("❌ Could not read your profile, please try again later")
	}
	position, err := h.leaderboard.UserRank(ctx, user.ID)
	if err != nil {
		return c.Reply("❌ Could not read your position, please try again later")
	}

	p := profile.Progress
	progress := fmt.Sprintf("%d / %d XP (%d%%)", p.XP, p.NextLevelFloor, p.ProgressPercent)
	if p.MaxLevel {
		progress = fmt.Sprintf("%d XP (max level)", p.XP)
	}
	return c.Reply(fmt.Sprintf(
		"📊 %s\n"+
			"━━━━━━━━━━━━━━━\n"+
			"🐺 Level %d: %s\n"+
			"✨ %s\n"+
			"🏆 Position %d of %d\n"+
			"👆 Taps left today: %d\n"+
			"━━━━━━━━━━━━━━━",
		user.DisplayName(), p.Level, p.Rank, progress, position.Rank, position.Total, profile.TapsLeft,
	))
}
