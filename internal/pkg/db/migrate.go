package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{1, "users", `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			telegram_id BIGINT NOT NULL UNIQUE,
			username VARCHAR(255) NOT NULL DEFAULT '',
			first_name VARCHAR(255) NOT NULL DEFAULT '',
			last_name VARCHAR(255) NOT NULL DEFAULT '',
			photo_url TEXT NOT NULL DEFAULT '',
			level INT NOT NULL DEFAULT 1 CHECK (level BETWEEN 1 AND 100),
			xp BIGINT NOT NULL DEFAULT 0 CHECK (xp >= 0),
			coins BIGINT NOT NULL DEFAULT 0 CHECK (coins >= 0),
			wolf_rank VARCHAR(64) NOT NULL DEFAULT 'Wolf Pup',
			daily_tap_count INT NOT NULL DEFAULT 0 CHECK (daily_tap_count >= 0),
			last_tap_date DATE,
			referral_code VARCHAR(16) NOT NULL UNIQUE,
			referrer_id BIGINT REFERENCES users(id),
			version BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT users_no_self_referral CHECK (referrer_id IS NULL OR referrer_id <> id)
		);
		CREATE INDEX IF NOT EXISTS idx_users_coins ON users(coins DESC, id ASC);
		CREATE INDEX IF NOT EXISTS idx_users_referrer ON users(referrer_id);
	`},
	{2, "transactions", `
		CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL,
			type VARCHAR(32) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status VARCHAR(16) NOT NULL DEFAULT 'completed',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_user_time ON transactions(user_id, created_at DESC, id DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type_status ON transactions(type, status);
	`},
	{3, "tasks", `
		CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			type VARCHAR(16) NOT NULL,
			icon VARCHAR(64) NOT NULL DEFAULT '',
			icon_color VARCHAR(32) NOT NULL DEFAULT '',
			target INT NOT NULL CHECK (target > 0),
			reward BIGINT NOT NULL CHECK (reward >= 0),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS user_tasks (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			task_id BIGINT NOT NULL REFERENCES tasks(id),
			progress INT NOT NULL DEFAULT 0,
			is_completed BOOLEAN NOT NULL DEFAULT FALSE,
			claimed_reward BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, task_id)
		);
	`},
	{4, "badges", `
		CREATE TABLE IF NOT EXISTS badges (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			category VARCHAR(64) NOT NULL DEFAULT '',
			icon VARCHAR(64) NOT NULL DEFAULT '',
			icon_color VARCHAR(32) NOT NULL DEFAULT '',
			requirement INT NOT NULL CHECK (requirement > 0),
			rarity VARCHAR(16) NOT NULL DEFAULT 'common',
			xp_reward BIGINT NOT NULL DEFAULT 0 CHECK (xp_reward >= 0),
			coin_reward BIGINT NOT NULL DEFAULT 0 CHECK (coin_reward >= 0),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS user_badges (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id),
			badge_id BIGINT NOT NULL REFERENCES badges(id),
			progress INT NOT NULL DEFAULT 0,
			earned BOOLEAN NOT NULL DEFAULT FALSE,
			earned_at TIMESTAMPTZ,
			reward_claimed BOOLEAN NOT NULL DEFAULT FALSE,
			featured BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, badge_id),
			CONSTRAINT user_badges_featured_earned CHECK (NOT featured OR earned)
		);
	`},
	{5, "social", `
		CREATE TABLE IF NOT EXISTS social_links (
			id BIGSERIAL PRIMARY KEY,
			platform VARCHAR(32) NOT NULL,
			name VARCHAR(255) NOT NULL,
			url TEXT NOT NULL,
			icon VARCHAR(64) NOT NULL DEFAULT '',
			reward BIGINT NOT NULL CHECK (reward >= 0),
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS social_claims (
			user_id BIGINT NOT NULL REFERENCES users(id),
			link_id BIGINT NOT NULL REFERENCES social_links(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, link_id)
		);
	`},
	{6, "coin_settings", `
		CREATE TABLE IF NOT EXISTS coin_settings (
			id BIGSERIAL PRIMARY KEY,
			image_url TEXT NOT NULL DEFAULT '',
			coin_value BIGINT NOT NULL CHECK (coin_value >= 1),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`},
}

// Migrate applies every migration not yet recorded in schema_migrations.
// Each migration runs in its own transaction.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			name VARCHAR(64) NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	for _, m := range migrations {
		applied := false
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			// Serializes concurrent migrators on the same database.
			if _, err := tx.Exec(ctx, `LOCK TABLE schema_migrations IN EXCLUSIVE MODE`); err != nil {
				return err
			}
			var exists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
			).Scan(&exists); err != nil {
				return err
			}
			if exists {
				return nil
			}
			if _, err := tx.Exec(ctx, m.sql); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.version, m.name,
			); err != nil {
				return err
			}
			applied = true
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", m.version, m.name, err)
		}
		if applied {
			log.Info().Int("version", m.version).Str("name", m.name).Msg("Migration applied")
		}
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
