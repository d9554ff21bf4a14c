package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/clock"
)

const userColumns = `id, telegram_id, username, first_name, last_name, photo_url, level, xp, coins,
	wolf_rank, daily_tap_count, last_tap_date, referral_code, referrer_id, version, created_at, updated_at`

// UserRepository handles account persistence.
type UserRepository struct {
	db Querier
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db Querier) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u       model.User
		lastTap *time.Time
	)
	err := row.Scan(
		&u.ID,
		&u.TelegramID,
		&u.Username,
		&u.FirstName,
		&u.LastName,
		&u.PhotoURL,
		&u.Level,
		&u.XP,
		&u.Coins,
		&u.Rank,
		&u.DailyTapCount,
		&lastTap,
		&u.ReferralCode,
		&u.ReferrerID,
		&u.Version,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastTap != nil {
		u.LastTapDate = clock.FromDate(*lastTap)
	}
	return &u, nil
}

// Create inserts a new account. Coins start at zero; opening credits go
// through the ledger. Returns ErrReferralCodeTaken or ErrUserExists on
// the matching unique violation.
func (r *UserRepository) Create(ctx context.Context, u *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (telegram_id, username, first_name, last_name, photo_url,
			level, xp, coins, wolf_rank, referral_code, referrer_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, $9, $10)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRow(ctx, query,
		u.TelegramID, u.Username, u.FirstName, u.LastName, u.PhotoURL,
		u.Level, u.XP, u.Rank, u.ReferralCode, u.ReferrerID,
	))
	if err != nil {
		switch {
		case isUniqueViolation(err, "users_referral_code_key"):
			return nil, ErrReferralCodeTaken
		case isUniqueViolation(err, "users_telegram_id_key"):
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		return nil, notFound(err, ErrUserNotFound, "get user")
	}
	return user, nil
}

// GetByID retrieves an account by its internal id.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `id = $1`, id)
}

// GetByTelegramID retrieves an account by Telegram identity.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.getOne(ctx, `telegram_id = $1`, telegramID)
}

// GetByReferralCode resolves a referral code to its owner.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*model.User, error) {
	return r.getOne(ctx, `referral_code = $1`, code)
}

// GetForUpdate reads an account and row-locks it until the surrounding
// transaction ends. Outside a transaction the lock is released immediately.
func (r *UserRepository) GetForUpdate(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, `id = $1 FOR UPDATE`, id)
}

// ReferralCodeExists reports whether code is already assigned.
func (r *UserRepository) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE referral_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check referral code: %w", err)
	}
	return exists, nil
}

// Save writes the mutable economy fields of u, guarded by its version.
// On success u.Version and u.UpdatedAt reflect the stored row.
func (r *UserRepository) Save(ctx context.Context, u *model.User) error {
	const query = `
		UPDATE users
		SET level = $3, xp = $4, coins = $5, wolf_rank = $6, daily_tap_count = $7,
			last_tap_date = $8, referrer_id = $9, version = version + 1, updated_at = NOW()
		WHERE id = $1 AND version = $2
		RETURNING version, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		u.ID, u.Version, u.Level, u.XP, u.Coins, u.Rank, u.DailyTapCount,
		dayArg(u.LastTapDate), u.ReferrerID,
	).Scan(&u.Version, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrVersionConflict
		}
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// UpdateProfile refreshes the Telegram display fields.
func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, p model.Profile) error {
	const query = `
		UPDATE users
		SET username = $2, first_name = $3, last_name = $4, photo_url = $5, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Exec(ctx, query, id, p.Username, p.FirstName, p.LastName, p.PhotoURL)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) list(ctx context.Context, op, query string, args ...any) ([]*model.User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// ListReferrals returns the accounts referred by referrerID, oldest first.
func (r *UserRepository) ListReferrals(ctx context.Context, referrerID int64) ([]*model.User, error) {
	return r.list(ctx, "list referrals",
		`SELECT `+userColumns+` FROM users WHERE referrer_id = $1 ORDER BY id ASC`, referrerID)
}

// Top returns the richest accounts, ties broken by creation order.
func (r *UserRepository) Top(ctx context.Context, limit int) ([]*model.User, error) {
	return r.list(ctx, "get top users",
		`SELECT `+userColumns+` FROM users ORDER BY coins DESC, id ASC LIMIT $1`, limit)
}

// CountWithMoreCoins counts accounts strictly richer than coins.
func (r *UserRepository) CountWithMoreCoins(ctx context.Context, coins int64) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE coins > $1`, coins).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count richer users: %w", err)
	}
	return n, nil
}

// Count returns the number of accounts.
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// ListIDs returns every account id in ascending order.
func (r *UserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
