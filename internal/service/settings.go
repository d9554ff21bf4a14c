package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/repository"
)

// SettingsService reads and updates the coin settings.
type SettingsService struct {
	store        repository.Store
	defaultValue int64
}

// NewSettingsService creates a new SettingsService instance.
func NewSettingsService(store repository.Store, defaultCoinValue int64) *SettingsService {
	return &SettingsService{store: store, defaultValue: defaultCoinValue}
}

func (s *SettingsService) load(ctx context.Context, q repository.Tx) (*model.CoinSettings, error) {
	settings, err := q.Settings().GetCoinSettings(ctx)
	if errors.Is(err, repository.ErrSettingsNotFound) {
		return &model.CoinSettings{CoinValue: s.defaultValue}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load coin settings: %w", err)
	}
	return settings, nil
}

// Get returns the current settings, falling back to the configured default.
func (s *SettingsService) Get(ctx context.Context) (*model.CoinSettings, error) {
	return s.load(ctx, s.store)
}

// CoinValue returns the coins credited per tap as seen by q.
func (s *SettingsService) CoinValue(ctx context.Context, q repository.Tx) (int64, error) {
	settings, err := s.load(ctx, q)
	if err != nil {
		return 0, err
	}
	return settings.CoinValue, nil
}

// Update stores new settings. coinValue must be at least 1.
func (s *SettingsService) Update(ctx context.Context, imageURL string, coinValue int64) (*model.CoinSettings, error) {
	if coinValue < 1 {
		return nil, fmt.Errorf("%w: coin value must be at least 1", ErrInvalidAmount)
	}
	saved, err := s.store.Settings().SaveCoinSettings(ctx, &model.CoinSettings{ImageURL: imageURL, CoinValue: coinValue})
	if err != nil {
		return nil, fmt.Errorf("failed to update coin settings: %w", err)
	}
	log.Info().Int64("coin_value", saved.CoinValue).Msg("Coin settings updated")
	return saved, nil
}
