package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"wolf-tap/internal/model"
	"wolf-tap/internal/service"
)

const pendingPageSize = 10

// AdminHandler handles withdrawal review commands for bot admins.
type AdminHandler struct {
	wallet *service.WalletService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(wallet *service.WalletService) *AdminHandler {
	return &AdminHandler{wallet: wallet}
}

func describeWithdrawal(e *model.Transaction) string {
	return fmt.Sprintf("#%d user %d: %d coins (%s)\n%s", e.ID, e.UserID, -e.Amount, e.Status, e.Description)
}

// HandlePending handles /pending: one message with review buttons per
// queued withdrawal.
func (h *AdminHandler) HandlePending(c tele.Context) error {
	entries, err := h.wallet.PendingWithdrawals(context.Background(), pendingPageSize)
	if err != nil {
		return c.Reply("❌ Could not load pending withdrawals")
	}
	if len(entries) == 0 {
		return c.Reply("✅ No pending withdrawals")
	}
	for _, e := range entries {
		if err := c.Send("💸 "+describeWithdrawal(e), BuildReviewPanel(e.ID)); err != nil {
			return err
		}
	}
	return nil
}

// HandleApprove handles /approve <id>.
func (h *AdminHandler) HandleApprove(c tele.Context) error {
	id, err := parseEntryID(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}
	return c.Reply(h.review(c.Sender(), true, id))
}

// HandleReject handles /reject <id>.
func (h *AdminHandler) HandleReject(c tele.Context) error {
	id, err := parseEntryID(c.Args())
	if err != nil {
		return c.Reply(err.Error())
	}
	return c.Reply(h.review(c.Sender(), false, id))
}

// HandleReviewCallback handles the buttons of BuildReviewPanel.
func (h *AdminHandler) HandleReviewCallback(c tele.Context) error {
	approve, id, err := ParseReviewCallback(c.Data())
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: err.Error()})
	}
	text := h.review(c.Sender(), approve, id)
	_ = c.Respond(&tele.CallbackResponse{Text: text})
	return c.Edit(text)
}

func (h *AdminHandler) review(admin *tele.User, approve bool, id int64) string {
	ctx := context.Background()
	var (
		entry *model.Transaction
		err   error
	)
	if approve {
		entry, err = h.wallet.ApproveWithdrawal(ctx, id)
	} else {
		entry, err = h.wallet.RejectWithdrawal(ctx, id)
	}
	switch {
	case errors.Is(err, service.ErrWithdrawalNotFound):
		return fmt.Sprintf("❌ Withdrawal #%d not found", id)
	case errors.Is(err, service.ErrWithdrawalNotPending):
		return fmt.Sprintf("⚠️ Withdrawal #%d was already reviewed", id)
	case err != nil:
		return "❌ Review failed, please try again later"
	}

	var adminID int64
	if admin != nil {
		adminID = admin.ID
	}
	log.Info().
		Int64("admin_id", adminID).
		Int64("entry_id", id).
		Str("status", entry.Status).
		Str("operation", "withdrawal_review").
		Msg("Admin operation executed")

	if approve {
		return "✅ Approved " + describeWithdrawal(entry)
	}
	return "↩️ Rejected and refunded " + describeWithdrawal(entry)
}

func parseEntryID(args []string) (int64, error) {
	if len(args) < 1 {
		return 0, errors.New("❌ Usage: /approve <withdrawal id> or /reject <withdrawal id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("❌ Withdrawal id must be a positive number")
	}
	return id, nil
}
