package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/metrics"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
	maxAddressLength    = 128
)

// Balance is the wallet summary of one account.
type Balance struct {
	Coins   int64 `json:"coins"`
	Pending int64 `json:"pendingWithdrawals"`
}

// Reconciliation compares an account's coins with its ledger.
type Reconciliation struct {
	UserID    int64 `json:"userId"`
	Coins     int64 `json:"coins"`
	LedgerSum int64 `json:"ledgerSum"`
}

// Balanced reports whether coins equal the ledger sum.
func (r Reconciliation) Balanced() bool { return r.Coins == r.LedgerSum }

// WalletService owns balances, history and withdrawals.
type WalletService struct {
	*Engine
}

// NewWalletService creates a new WalletService instance.
func NewWalletService(engine *Engine) *WalletService {
	return &WalletService{Engine: engine}
}

func historyLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultHistoryLimit
	case limit > maxHistoryLimit:
		return maxHistoryLimit
	}
	return limit
}

// Balance returns the coins of userID and the total still awaiting review.
func (s *WalletService) Balance(ctx context.Context, userID int64) (*Balance, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "get user")
	}
	pending, err := s.store.Ledger().SumByUserTypeAndStatus(ctx, userID, model.TxTypeWithdraw, model.TxStatusPending)
	if err != nil {
		return nil, translate(err, "sum pending withdrawals")
	}
	b := &Balance{Coins: u.Coins, Pending: -pending}
	return b, nil
}

// History returns the newest ledger entries of userID.
func (s *WalletService) History(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	entries, err := s.store.Ledger().ListByUser(ctx, userID, historyLimit(limit))
	if err != nil {
		return nil, translate(err, "list transactions")
	}
	return entries, nil
}

// RequestWithdrawal debits amount and queues a pending withdraw entry.
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID, amount int64, address string) (*model.Transaction, error) {
	address = strings.TrimSpace(address)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if address == "" || len(address) > maxAddressLength {
		return nil, fmt.Errorf("%w: withdrawal address is required", ErrInvalidInput)
	}

	var entry *model.Transaction
	err := s.mutate(ctx, userID, func(acc *account) error {
		var err error
		entry, err = acc.post(ctx, -amount, model.TxTypeWithdraw, model.TxStatusPending, "Withdrawal to "+address)
		return err
	})
	logOutcome(err, "withdraw", userID)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("user_id", userID).Int64("amount", amount).Int64("entry_id", entry.ID).Msg("Withdrawal requested")
	return entry, nil
}

// PendingWithdrawals returns the review queue, oldest first.
func (s *WalletService) PendingWithdrawals(ctx context.Context, limit int) ([]*model.Transaction, error) {
	entries, err := s.store.Ledger().ListByTypeAndStatus(ctx, model.TxTypeWithdraw, model.TxStatusPending, historyLimit(limit))
	if err != nil {
		return nil, translate(err, "list pending withdrawals")
	}
	return entries, nil
}

// ApproveWithdrawal marks a pending withdrawal completed.
func (s *WalletService) ApproveWithdrawal(ctx context.Context, entryID int64) (*model.Transaction, error) {
	return s.review(ctx, entryID, model.TxStatusCompleted)
}

// RejectWithdrawal marks a pending withdrawal rejected and credits the
// coins back with a compensating withdraw entry.
func (s *WalletService) RejectWithdrawal(ctx context.Context, entryID int64) (*model.Transaction, error) {
	return s.review(ctx, entryID, model.TxStatusRejected)
}

func (s *WalletService) review(ctx context.Context, entryID int64, status string) (*model.Transaction, error) {
	// The owner is needed before its lock can be taken; the entry is
	// re-read under the lock below.
	peek, err := s.withdrawal(ctx, s.store.Ledger().GetForUpdate, entryID)
	if err != nil {
		return nil, err
	}

	var reviewed *model.Transaction
	err = s.mutate(ctx, peek.UserID, func(acc *account) error {
		entry, err := s.withdrawal(ctx, acc.tx.Ledger().GetForUpdate, entryID)
		if err != nil {
			return err
		}
		if entry.Status != model.TxStatusPending {
			return ErrWithdrawalNotPending
		}
		if err := acc.tx.Ledger().UpdateStatus(ctx, entry.ID, status); err != nil {
			return err
		}
		entry.Status = status
		reviewed = entry
		if status != model.TxStatusRejected {
			return nil
		}
		desc := fmt.Sprintf("Refund of rejected withdrawal #%d", entry.ID)
		_, err = acc.post(ctx, -entry.Amount, model.TxTypeWithdraw, model.TxStatusRejected, desc)
		return err
	})
	metrics.Claim("withdrawal_review", err)
	logOutcome(err, "withdraw_"+status, peek.UserID)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("entry_id", entryID).Int64("user_id", peek.UserID).Str("status", status).Msg("Withdrawal reviewed")
	return reviewed, nil
}

func (s *WalletService) withdrawal(ctx context.Context, get func(context.Context, int64) (*model.Transaction, error), id int64) (*model.Transaction, error) {
	entry, err := get(ctx, id)
	if err != nil {
		return nil, translate(err, "get withdrawal")
	}
	if entry.Type != model.TxTypeWithdraw {
		return nil, ErrWithdrawalNotFound
	}
	return entry, nil
}

// Reconcile compares the coins of userID with the sum of its ledger.
func (s *WalletService) Reconcile(ctx context.Context, userID int64) (Reconciliation, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return Reconciliation{}, translate(err, "get user")
	}
	sum, err := s.store.Ledger().SumByUser(ctx, userID)
	if err != nil {
		return Reconciliation{}, translate(err, "sum ledger")
	}
	return Reconciliation{UserID: userID, Coins: u.Coins, LedgerSum: sum}, nil
}

// ReconcileAll checks every account and returns the number checked and
// the accounts whose coins differ from their ledger.
func (s *WalletService) ReconcileAll(ctx context.Context) (int, []Reconciliation, error) {
	ids, err := s.store.Users().ListIDs(ctx)
	if err != nil {
		return 0, nil, translate(err, "list users")
	}
	var mismatched []Reconciliation
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		r, err := s.Reconcile(ctx, id)
		if err != nil {
			return 0, nil, err
		}
		if !r.Balanced() {
			log.Warn().Int64("user_id", id).Int64("coins", r.Coins).Int64("ledger_sum", r.LedgerSum).Msg("Ledger mismatch")
			mismatched = append(mismatched, r)
		}
	}
	return len(ids), mismatched, nil
}
