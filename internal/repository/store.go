// Package repository provides the PostgreSQL data access layer.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/clock"
)

// Common errors for repository operations.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserExists          = errors.New("user already exists")
	ErrReferralCodeTaken   = errors.New("referral code already in use")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrBadgeNotFound       = errors.New("badge not found")
	ErrProgressNotFound    = errors.New("progress not found")
	ErrSocialLinkNotFound  = errors.New("social link not found")
	ErrAlreadyClaimed      = errors.New("already claimed")
	ErrSettingsNotFound    = errors.New("coin settings not found")
	ErrVersionConflict     = errors.New("concurrent update detected")
)

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Users persists account aggregates.
type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByReferralCode(ctx context.Context, code string) (*model.User, error)
	GetForUpdate(ctx context.Context, id int64) (*model.User, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, u *model.User) error
	UpdateProfile(ctx context.Context, id int64, p model.Profile) error
	ListReferrals(ctx context.Context, referrerID int64) ([]*model.User, error)
	Top(ctx context.Context, limit int) ([]*model.User, error)
	CountWithMoreCoins(ctx context.Context, coins int64) (int, error)
	Count(ctx context.Context) (int, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

// Ledger persists append-only transaction entries.
type Ledger interface {
	Append(ctx context.Context, tx *model.Transaction) (*model.Transaction, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Transaction, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]*model.Transaction, error)
	ListByTypeAndStatus(ctx context.Context, txType, status string, limit int) ([]*model.Transaction, error)
	SumByUser(ctx context.Context, userID int64) (int64, error)
	SumByUserAndType(ctx context.Context, userID int64, txType string) (int64, error)
	SumByUserTypeAndStatus(ctx context.Context, userID int64, txType, status string) (int64, error)
}

// Tasks persists task definitions and per-user progress.
type Tasks interface {
	Create(ctx context.Context, t *model.Task) (*model.Task, error)
	Update(ctx context.Context, t *model.Task) (*model.Task, error)
	Get(ctx context.Context, id int64) (*model.Task, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Task, error)
	GetProgress(ctx context.Context, userID, taskID int64) (*model.UserTask, error)
	UpsertProgress(ctx context.Context, ut *model.UserTask) (*model.UserTask, error)
	ListProgress(ctx context.Context, userID int64) ([]*model.UserTask, error)
}

// Badges persists badge definitions and per-user progress.
type Badges interface {
	Create(ctx context.Context, b *model.Badge) (*model.Badge, error)
	Update(ctx context.Context, b *model.Badge) (*model.Badge, error)
	Get(ctx context.Context, id int64) (*model.Badge, error)
	List(ctx context.Context, activeOnly bool) ([]*model.Badge, error)
	GetProgress(ctx context.Context, userID, badgeID int64) (*model.UserBadge, error)
	UpsertProgress(ctx context.Context, ub *model.UserBadge) (*model.UserBadge, error)
	ListProgress(ctx context.Context, userID int64) ([]*model.UserBadge, error)
	CountFeatured(ctx context.Context, userID int64) (int, error)
	Stats(ctx context.Context) (*model.BadgeStats, error)
}

// Social persists social link definitions and claims.
type Social interface {
	Create(ctx context.Context, l *model.SocialLink) (*model.SocialLink, error)
	Update(ctx context.Context, l *model.SocialLink) (*model.SocialLink, error)
	Get(ctx context.Context, id int64) (*model.SocialLink, error)
	List(ctx context.Context, activeOnly bool) ([]*model.SocialLink, error)
	InsertClaim(ctx context.Context, userID, linkID int64) error
	ClaimedLinkIDs(ctx context.Context, userID int64) ([]int64, error)
}

// Settings persists the coin settings row.
type Settings interface {
	GetCoinSettings(ctx context.Context) (*model.CoinSettings, error)
	SaveCoinSettings(ctx context.Context, s *model.CoinSettings) (*model.CoinSettings, error)
}

// Tx groups the repositories bound to one database handle.
type Tx interface {
	Users() Users
	Ledger() Ledger
	Tasks() Tasks
	Badges() Badges
	Social() Social
	Settings() Settings
}

// Store exposes the repositories outside a transaction and runs
// units of work inside one.
type Store interface {
	Tx
	// InTx runs fn in a single database transaction. The transaction
	// commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

type repos struct {
	users    *UserRepository
	ledger   *TransactionRepository
	tasks    *TaskRepository
	badges   *BadgeRepository
	social   *SocialRepository
	settings *SettingsRepository
}

func newRepos(db Querier) *repos {
	return &repos{
		users:    NewUserRepository(db),
		ledger:   NewTransactionRepository(db),
		tasks:    NewTaskRepository(db),
		badges:   NewBadgeRepository(db),
		social:   NewSocialRepository(db),
		settings: NewSettingsRepository(db),
	}
}

func (r *repos) Users() Users       { return r.users }
func (r *repos) Ledger() Ledger     { return r.ledger }
func (r *repos) Tasks() Tasks       { return r.tasks }
func (r *repos) Badges() Badges     { return r.badges }
func (r *repos) Social() Social     { return r.social }
func (r *repos) Settings() Settings { return r.settings }

// PgStore is the PostgreSQL Store.
type PgStore struct {
	*repos
	pool *pgxpool.Pool
}

// NewStore creates a Store backed by pool.
func NewStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{repos: newRepos(pool), pool: pool}
}

// InTx runs fn inside pgx.BeginFunc.
func (s *PgStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// dayArg converts a Day into a DATE parameter, NULL for the zero Day.
func dayArg(d clock.Day) any {
	if d.IsZero() {
		return nil
	}
	return d.Date()
}

func notFound(err, sentinel error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
