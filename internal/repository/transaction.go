package repository

import (
	"context"
	"fmt"

	"wolf-tap/internal/model"
)

const txColumns = `id, user_id, amount, type, description, status, created_at`

// TransactionRepository persists the append-only ledger.
type TransactionRepository struct {
	db Querier
}

// NewTransactionRepository creates a new TransactionRepository instance.
func NewTransactionRepository(db Querier) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Type,
		&tx.Description,
		&tx.Status,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Append inserts a ledger entry. An empty status is stored as completed.
func (r *TransactionRepository) Append(ctx context.Context, tx *model.Transaction) (*model.Transaction, error) {
	status := tx.Status
	if status == "" {
		status = model.TxStatusCompleted
	}
	query := `
		INSERT INTO transactions (user_id, amount, type, description, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + txColumns

	created, err := scanTransaction(r.db.QueryRow(ctx, query, tx.UserID, tx.Amount, tx.Type, tx.Description, status))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return created, nil
}

// GetForUpdate reads one entry and row-locks it.
func (r *TransactionRepository) GetForUpdate(ctx context.Context, id int64) (*model.Transaction, error) {
	tx, err := scanTransaction(r.db.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, ErrTransactionNotFound, "get transaction")
	}
	return tx, nil
}

// UpdateStatus changes the review status of an entry. Amounts are never rewritten.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := r.db.Exec(ctx, `UPDATE transactions SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]*model.Transaction, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return transactions, nil
}

// ListByUser returns the newest entries of a user first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error) {
	return r.list(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
}

// ListByTypeAndStatus returns matching entries oldest first, e.g. the withdrawal review queue.
func (r *TransactionRepository) ListByTypeAndStatus(ctx context.Context, txType, status string, limit int) ([]*model.Transaction, error) {
	return r.list(ctx, `
		SELECT `+txColumns+`
		FROM transactions
		WHERE type = $1 AND status = $2
		ORDER BY id ASC
		LIMIT $3
	`, txType, status, limit)
}

// SumByUser returns the signed sum of every entry of a user.
func (r *TransactionRepository) SumByUser(ctx context.Context, userID int64) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0)::BIGINT FROM transactions WHERE user_id = $1`, userID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return sum, nil
}

// SumByUserAndType returns the signed sum of a user's entries of one type.
func (r *TransactionRepository) SumByUserAndType(ctx context.Context, userID int64, txType string) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::BIGINT FROM transactions WHERE user_id = $1 AND type = $2`, userID, txType,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions by type: %w", err)
	}
	return sum, nil
}

// SumByUserTypeAndStatus returns the signed sum of a user's entries of one type and status.
func (r *TransactionRepository) SumByUserTypeAndStatus(ctx context.Context, userID int64, txType, status string) (int64, error) {
	var sum int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::BIGINT FROM transactions WHERE user_id = $1 AND type = $2 AND status = $3`,
		userID, txType, status,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions by status: %w", err)
	}
	return sum, nil
}
