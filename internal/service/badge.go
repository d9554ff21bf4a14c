package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/metrics"
	"wolf-tap/internal/progression"
	"wolf-tap/internal/repository"
)

// MaxFeaturedBadges caps the featured badges per user.
const MaxFeaturedBadges = 3

// applyBadgeProgress is the pure progress transition. Earned badges are
// frozen; crossing the requirement marks the badge earned at now. Rewards
// are not granted here.
func applyBadgeProgress(ub model.UserBadge, requirement int, upd ProgressUpdate, now time.Time) model.UserBadge {
	if ub.Earned {
		return ub
	}
	ub.Progress = clampProgress(upd.apply(ub.Progress), requirement)
	if ub.Progress >= requirement {
		ub.Earned = true
		earnedAt := now
		ub.EarnedAt = &earnedAt
	}
	return ub
}

// BadgeView is a badge definition joined with the caller's progress.
type BadgeView struct {
	*model.Badge
	Progress      int        `json:"progress"`
	Earned        bool       `json:"earned"`
	EarnedAt      *time.Time `json:"earnedAt,omitempty"`
	RewardClaimed bool       `json:"rewardClaimed"`
	Featured      bool       `json:"featured"`
}

// BadgeClaim is the result of a successful badge reward claim.
type BadgeClaim struct {
	XPReward   int64                `json:"xpReward"`
	CoinReward int64                `json:"coinReward"`
	NewBalance int64                `json:"newBalance"`
	LevelUp    *progression.LevelUp `json:"levelUp,omitempty"`
}

// BadgeService runs the badge engine.
type BadgeService struct {
	*Engine
}

// NewBadgeService creates a new BadgeService instance.
func NewBadgeService(engine *Engine) *BadgeService {
	return &BadgeService{Engine: engine}
}

// List returns the active badge definitions.
func (s *BadgeService) List(ctx context.Context) ([]*model.Badge, error) {
	badges, err := s.store.Badges().List(ctx, true)
	return badges, translate(err, "list badges")
}

// ListForUser returns the active badges with userID's progress.
func (s *BadgeService) ListForUser(ctx context.Context, userID int64) ([]BadgeView, error) {
	badges, err := s.store.Badges().List(ctx, true)
	if err != nil {
		return nil, translate(err, "list badges")
	}
	rows, err := s.store.Badges().ListProgress(ctx, userID)
	if err != nil {
		return nil, translate(err, "list badge progress")
	}
	byBadge := make(map[int64]*model.UserBadge, len(rows))
	for _, r := range rows {
		byBadge[r.BadgeID] = r
	}

	views := make([]BadgeView, 0, len(badges))
	for _, b := range badges {
		v := BadgeView{Badge: b}
		if r, ok := byBadge[b.ID]; ok {
			v.Progress, v.Earned, v.EarnedAt = r.Progress, r.Earned, r.EarnedAt
			v.RewardClaimed, v.Featured = r.RewardClaimed, r.Featured
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *BadgeService) progressRow(ctx context.Context, tx repository.Tx, userID, badgeID int64) (*model.UserBadge, error) {
	row, err := tx.Badges().GetProgress(ctx, userID, badgeID)
	if errors.Is(err, repository.ErrProgressNotFound) {
		return &model.UserBadge{UserID: userID, BadgeID: badgeID}, nil
	}
	return row, err
}

// UpdateProgress updates userID's progress toward badgeID. Progress on an
// earned badge is a no-op that returns the current row.
func (s *BadgeService) UpdateProgress(ctx context.Context, userID, badgeID int64, upd ProgressUpdate) (*model.UserBadge, error) {
	var saved *model.UserBadge
	err := s.mutate(ctx, userID, func(acc *account) error {
		badge, err := acc.tx.Badges().Get(ctx, badgeID)
		if err != nil {
			return translate(err, "get badge")
		}
		if !badge.IsActive {
			return ErrBadgeNotFound
		}
		current, err := s.progressRow(ctx, acc.tx, userID, badgeID)
		if err != nil {
			return err
		}

		next := applyBadgeProgress(*current, badge.Requirement, upd, s.clock.Now())
		if current.ID != 0 && next == *current {
			saved = current
			return nil
		}
		if saved, err = acc.tx.Badges().UpsertProgress(ctx, &next); err != nil {
			return err
		}
		if next.Earned && !current.Earned {
			log.Info().Int64("user_id", userID).Int64("badge_id", badgeID).Str("badge", badge.Name).Msg("Badge earned")
		}
		return nil
	})
	logOutcome(err, "badge_progress", userID)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// SetFeatured toggles whether an earned badge is featured on the profile.
func (s *BadgeService) SetFeatured(ctx context.Context, userID, badgeID int64, featured bool) (*model.UserBadge, error) {
	var saved *model.UserBadge
	err := s.mutate(ctx, userID, func(acc *account) error {
		row, err := acc.tx.Badges().GetProgress(ctx, userID, badgeID)
		if err != nil {
			if errors.Is(err, repository.ErrProgressNotFound) {
				return ErrBadgeNotEarned
			}
			return err
		}
		if !row.Earned {
			return ErrBadgeNotEarned
		}
		if row.Featured == featured {
			saved = row
			return nil
		}
		if featured {
			n, err := acc.tx.Badges().CountFeatured(ctx, userID)
			if err != nil {
				return err
			}
			if n >= MaxFeaturedBadges {
				return ErrFeaturedLimitExceeded
			}
		}
		row.Featured = featured
		saved, err = acc.tx.Badges().UpsertProgress(ctx, row)
		return err
	})
	logOutcome(err, "badge_feature", userID)
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// ClaimReward grants an earned badge's XP and coins exactly once.
func (s *BadgeService) ClaimReward(ctx context.Context, userID, badgeID int64) (*BadgeClaim, error) {
	var claim *BadgeClaim
	err := s.mutate(ctx, userID, func(acc *account) error {
		badge, err := acc.tx.Badges().Get(ctx, badgeID)
		if err != nil {
			if errors.Is(err, repository.ErrBadgeNotFound) {
				return ErrBadgeNotClaimable
			}
			return err
		}
		row, err := acc.tx.Badges().GetProgress(ctx, userID, badgeID)
		if err != nil {
			if errors.Is(err, repository.ErrProgressNotFound) {
				return ErrBadgeNotClaimable
			}
			return err
		}
		if !row.Earned || row.RewardClaimed {
			return ErrBadgeNotClaimable
		}

		claim = &BadgeClaim{XPReward: badge.XPReward, CoinReward: badge.CoinReward}
		u := acc.user
		if badge.XPReward > 0 {
			u.XP += badge.XPReward
			up := progression.Advance(u.Level, u.XP)
			u.Level, u.Rank = up.NewLevel, up.NewRank
			if up.LeveledUp {
				claim.LevelUp = &up
			}
			acc.touch()
		}
		if badge.CoinReward > 0 {
			if _, err := acc.post(ctx, badge.CoinReward, model.TxTypeBadgeReward, model.TxStatusCompleted,
				fmt.Sprintf("Badge reward: %s", badge.Name)); err != nil {
				return err
			}
		}
		claim.NewBalance = u.Coins

		row.RewardClaimed = true
		_, err = acc.tx.Badges().UpsertProgress(ctx, row)
		return err
	})
	metrics.Claim("badge", err)
	logOutcome(err, "badge_claim", userID)
	if err != nil {
		return nil, err
	}
	if claim.LevelUp != nil {
		metrics.LevelUps.WithLabelValues("badge").Inc()
	}
	log.Info().
		Int64("user_id", userID).
		Int64("badge_id", badgeID).
		Int64("xp", claim.XPReward).
		Int64("coins", claim.CoinReward).
		Msg("Badge reward claimed")
	return claim, nil
}

// ListAll returns every badge definition, active or not.
func (s *BadgeService) ListAll(ctx context.Context) ([]*model.Badge, error) {
	badges, err := s.store.Badges().List(ctx, false)
	return badges, translate(err, "list badges")
}

func validateBadge(b *model.Badge) error {
	b.Name = strings.TrimSpace(b.Name)
	if b.Rarity == "" {
		b.Rarity = model.RarityCommon
	}
	switch {
	case b.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case b.Requirement < 1:
		return fmt.Errorf("%w: requirement must be positive", ErrInvalidInput)
	case b.XPReward < 0 || b.CoinReward < 0:
		return fmt.Errorf("%w: rewards cannot be negative", ErrInvalidInput)
	}
	switch b.Rarity {
	case model.RarityCommon, model.RarityRare, model.RarityEpic, model.RarityLegendary:
		return nil
	}
	return fmt.Errorf("%w: unknown rarity %q", ErrInvalidInput, b.Rarity)
}

// Create adds a badge definition.
func (s *BadgeService) Create(ctx context.Context, b *model.Badge) (*model.Badge, error) {
	if err := validateBadge(b); err != nil {
		return nil, err
	}
	created, err := s.store.Badges().Create(ctx, b)
	if err != nil {
		return nil, translate(err, "create badge")
	}
	log.Info().Int64("badge_id", created.ID).Str("name", created.Name).Msg("Badge created")
	return created, nil
}

// Update overwrites a badge definition. Setting IsActive false deactivates it.
func (s *BadgeService) Update(ctx context.Context, b *model.Badge) (*model.Badge, error) {
	if err := validateBadge(b); err != nil {
		return nil, err
	}
	updated, err := s.store.Badges().Update(ctx, b)
	return updated, translate(err, "update badge")
}

// Stats aggregates badge usage for the admin panel.
func (s *BadgeService) Stats(ctx context.Context) (*model.BadgeStats, error) {
	stats, err := s.store.Badges().Stats(ctx)
	return stats, translate(err, "get badge stats")
}

// Deactivate hides a badge. Earned badges stay on user profiles.
func (s *BadgeService) Deactivate(ctx context.Context, badgeID int64) (*model.Badge, error) {
	b, err := s.store.Badges().Get(ctx, badgeID)
	if err != nil {
		return nil, translate(err, "get badge")
	}
	if !b.IsActive {
		return b, nil
	}
	b.IsActive = false
	updated, err := s.store.Badges().Update(ctx, b)
	if err != nil {
		return nil, translate(err, "deactivate badge")
	}
	log.Info().Int64("badge_id", badgeID).Msg("Badge deactivated")
	return updated, nil
}
