package repository

import (
	"context"
	"fmt"

	"wolf-tap/internal/model"
)

const (
	badgeColumns = `id, name, description, category, icon, icon_color, requirement, rarity,
		xp_reward, coin_reward, is_active, created_at, updated_at`
	userBadgeColumns = `id, user_id, badge_id, progress, earned, earned_at, reward_claimed, featured, updated_at`
)

// BadgeRepository persists badge definitions and user progress rows.
type BadgeRepository struct {
	db Querier
}

// NewBadgeRepository creates a new BadgeRepository instance.
func NewBadgeRepository(db Querier) *BadgeRepository {
	return &BadgeRepository{db: db}
}

func scanBadge(row rowScanner) (*model.Badge, error) {
	var b model.Badge
	if err := row.Scan(&b.ID, &b.Name, &b.Description, &b.Category, &b.Icon, &b.IconColor,
		&b.Requirement, &b.Rarity, &b.XPReward, &b.CoinReward, &b.IsActive,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func scanUserBadge(row rowScanner) (*model.UserBadge, error) {
	var ub model.UserBadge
	if err := row.Scan(&ub.ID, &ub.UserID, &ub.BadgeID, &ub.Progress, &ub.Earned, &ub.EarnedAt,
		&ub.RewardClaimed, &ub.Featured, &ub.UpdatedAt); err != nil {
		return nil, err
	}
	return &ub, nil
}

// Create inserts a badge definition.
func (r *BadgeRepository) Create(ctx context.Context, b *model.Badge) (*model.Badge, error) {
	query := `
		INSERT INTO badges (name, description, category, icon, icon_color, requirement, rarity,
			xp_reward, coin_reward, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + badgeColumns
	created, err := scanBadge(r.db.QueryRow(ctx, query, b.Name, b.Description, b.Category, b.Icon,
		b.IconColor, b.Requirement, b.Rarity, b.XPReward, b.CoinReward, b.IsActive))
	if err != nil {
		return nil, fmt.Errorf("failed to create badge: %w", err)
	}
	return created, nil
}

// Update overwrites a badge definition.
func (r *BadgeRepository) Update(ctx context.Context, b *model.Badge) (*model.Badge, error) {
	query := `
		UPDATE badges
		SET name = $2, description = $3, category = $4, icon = $5, icon_color = $6,
			requirement = $7, rarity = $8, xp_reward = $9, coin_reward = $10, is_active = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + badgeColumns
	updated, err := scanBadge(r.db.QueryRow(ctx, query, b.ID, b.Name, b.Description, b.Category,
		b.Icon, b.IconColor, b.Requirement, b.Rarity, b.XPReward, b.CoinReward, b.IsActive))
	if err != nil {
		return nil, notFound(err, ErrBadgeNotFound, "update badge")
	}
	return updated, nil
}

// Get retrieves a badge definition.
func (r *BadgeRepository) Get(ctx context.Context, id int64) (*model.Badge, error) {
	b, err := scanBadge(r.db.QueryRow(ctx, `SELECT `+badgeColumns+` FROM badges WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrBadgeNotFound, "get badge")
	}
	return b, nil
}

// List returns badge definitions ordered by id.
func (r *BadgeRepository) List(ctx context.Context, activeOnly bool) ([]*model.Badge, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+badgeColumns+` FROM badges WHERE is_active OR NOT $1 ORDER BY id`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list badges: %w", err)
	}
	defer rows.Close()

	var badges []*model.Badge
	for rows.Next() {
		b, err := scanBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		badges = append(badges, b)
	}
	return badges, rows.Err()
}

// GetProgress returns the (user, badge) row, or ErrProgressNotFound.
func (r *BadgeRepository) GetProgress(ctx context.Context, userID, badgeID int64) (*model.UserBadge, error) {
	ub, err := scanUserBadge(r.db.QueryRow(ctx,
		`SELECT `+userBadgeColumns+` FROM user_badges WHERE user_id = $1 AND badge_id = $2`, userID, badgeID))
	if err != nil {
		return nil, notFound(err, ErrProgressNotFound, "get badge progress")
	}
	return ub, nil
}

// UpsertProgress writes the (user, badge) row, creating it on first contact.
func (r *BadgeRepository) UpsertProgress(ctx context.Context, ub *model.UserBadge) (*model.UserBadge, error) {
	query := `
		INSERT INTO user_badges (user_id, badge_id, progress, earned, earned_at, reward_claimed, featured, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id, badge_id)
		DO UPDATE SET progress = EXCLUDED.progress, earned = EXCLUDED.earned, earned_at = EXCLUDED.earned_at,
			reward_claimed = EXCLUDED.reward_claimed, featured = EXCLUDED.featured, updated_at = NOW()
		RETURNING ` + userBadgeColumns
	saved, err := scanUserBadge(r.db.QueryRow(ctx, query, ub.UserID, ub.BadgeID, ub.Progress,
		ub.Earned, ub.EarnedAt, ub.RewardClaimed, ub.Featured))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert badge progress: %w", err)
	}
	return saved, nil
}

// ListProgress returns every badge progress row of a user.
func (r *BadgeRepository) ListProgress(ctx context.Context, userID int64) ([]*model.UserBadge, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+userBadgeColumns+` FROM user_badges WHERE user_id = $1 ORDER BY badge_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list badge progress: %w", err)
	}
	defer rows.Close()

	var out []*model.UserBadge
	for rows.Next() {
		ub, err := scanUserBadge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan badge progress: %w", err)
		}
		out = append(out, ub)
	}
	return out, rows.Err()
}

// CountFeatured counts the featured badges of a user.
func (r *BadgeRepository) CountFeatured(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM user_badges WHERE user_id = $1 AND featured`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count featured badges: %w", err)
	}
	return n, nil
}

// Stats aggregates definitions and progress for the admin panel.
func (r *BadgeRepository) Stats(ctx context.Context) (*model.BadgeStats, error) {
	stats := &model.BadgeStats{ByCategory: map[string]int{}, ByRarity: map[string]int{}}

	err := r.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM badges),
			(SELECT COUNT(*) FROM badges WHERE is_active),
			(SELECT COUNT(*) FROM user_badges WHERE earned),
			(SELECT COUNT(*) FROM user_badges WHERE featured),
			(SELECT COUNT(*) FROM user_badges WHERE earned AND NOT reward_claimed)
	`).Scan(&stats.TotalBadges, &stats.ActiveBadges, &stats.TotalEarned, &stats.TotalFeatured, &stats.UnclaimedCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get badge stats: %w", err)
	}

	rows, err := r.db.Query(ctx, `SELECT category, rarity, COUNT(*) FROM badges GROUP BY category, rarity`)
	if err != nil {
		return nil, fmt.Errorf("failed to group badges: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			category, rarity string
			n                int
		)
		if err := rows.Scan(&category, &rarity, &n); err != nil {
			return nil, fmt.Errorf("failed to scan badge group: %w", err)
		}
		stats.ByCategory[category] += n
		stats.ByRarity[rarity] += n
	}
	return stats, rows.Err()
}
