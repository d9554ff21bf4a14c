package repository

import (
	"context"
	"fmt"

	"wolf-tap/internal/model"
)

// SettingsRepository persists the single coin settings row.
type SettingsRepository struct {
	db Querier
}

// NewSettingsRepository creates a new SettingsRepository instance.
func NewSettingsRepository(db Querier) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetCoinSettings returns the current settings or ErrSettingsNotFound when none were saved.
func (r *SettingsRepository) GetCoinSettings(ctx context.Context) (*model.CoinSettings, error) {
	var s model.CoinSettings
	err := r.db.QueryRow(ctx, `
		SELECT id, image_url, coin_value, updated_at
		FROM coin_settings
		ORDER BY id
		LIMIT 1
	`).Scan(&s.ID, &s.ImageURL, &s.CoinValue, &s.UpdatedAt)
	if err != nil {
		return nil, notFound(err, ErrSettingsNotFound, "get coin settings")
	}
	return &s, nil
}

// SaveCoinSettings updates the settings row, inserting it the first time.
func (r *SettingsRepository) SaveCoinSettings(ctx context.Context, s *model.CoinSettings) (*model.CoinSettings, error) {
	var saved model.CoinSettings
	err := r.db.QueryRow(ctx, `
		WITH updated AS (
			UPDATE coin_settings
			SET image_url = $1, coin_value = $2, updated_at = NOW()
			WHERE id = (SELECT MIN(id) FROM coin_settings)
			RETURNING id, image_url, coin_value, updated_at
		), inserted AS (
			INSERT INTO coin_settings (image_url, coin_value)
			SELECT $1, $2
			WHERE NOT EXISTS (SELECT 1 FROM updated)
			RETURNING id, image_url, coin_value, updated_at
		)
		SELECT id, image_url, coin_value, updated_at FROM updated
		UNION ALL
		SELECT id, image_url, coin_value, updated_at FROM inserted
	`, s.ImageURL, s.CoinValue).Scan(&saved.ID, &saved.ImageURL, &saved.CoinValue, &saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to save coin settings: %w", err)
	}
	return &saved, nil
}
