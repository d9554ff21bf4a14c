package handler

import (
	"context"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v3"

	"wolf-tap/internal/model"
	"wolf-tap/internal/service"
)

// RankingHandler handles leaderboard commands.
type RankingHandler struct {
	leaderboard *service.LeaderboardService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(leaderboard *service.LeaderboardService) *RankingHandler {
	return &RankingHandler{leaderboard: leaderboard}
}

// FormatTop renders a leaderboard as a chat message.
func FormatTop(entries []model.LeaderboardEntry) string {
	if len(entries) == 0 {
		return "📊 The pack is still empty"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🏆 Top %d wolves\n", len(entries))
	b.WriteString("━━━━━━━━━━━━━━━\n")
	medals := []string{"🥇", "🥈", "🥉"}
	for i, e := range entries {
		place := fmt.Sprintf("%d.", e.Position)
		if i < len(medals) {
			place = medals[i]
		}
		name := e.Username
		if name == "" {
			name = e.FirstName
		}
		if name == "" {
			name = fmt.Sprintf("wolf%d", e.ID)
		}
		fmt.Fprintf(&b, "%s %s (Lv.%d): %d\n", place, name, e.Level, e.Coins)
	}
	b.WriteString("━━━━━━━━━━━━━━━")
	return b.String()
}

// HandleTop handles /top.
func (h *RankingHandler) HandleTop(c tele.Context) error {
	entries, err := h.leaderboard.Top(context.Background(), 0)
	if err != nil {
		return c.Reply("❌ Could not load the leaderboard, please try again later")
	}
	return c.Reply(FormatTop(entries))
}
