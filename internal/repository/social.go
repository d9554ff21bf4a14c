package repository

import (
	"context"
	"fmt"

	"wolf-tap/internal/model"
)

const socialColumns = `id, platform, name, url, icon, reward, is_active, created_at`

// SocialRepository persists social link rewards and their claims.
type SocialRepository struct {
	db Querier
}

// NewSocialRepository creates a new SocialRepository instance.
func NewSocialRepository(db Querier) *SocialRepository {
	return &SocialRepository{db: db}
}

func scanSocialLink(row rowScanner) (*model.SocialLink, error) {
	var l model.SocialLink
	if err := row.Scan(&l.ID, &l.Platform, &l.Name, &l.URL, &l.Icon, &l.Reward, &l.IsActive, &l.CreatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

// Create inserts a social link.
func (r *SocialRepository) Create(ctx context.Context, l *model.SocialLink) (*model.SocialLink, error) {
	query := `
		INSERT INTO social_links (platform, name, url, icon, reward, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + socialColumns
	created, err := scanSocialLink(r.db.QueryRow(ctx, query, l.Platform, l.Name, l.URL, l.Icon, l.Reward, l.IsActive))
	if err != nil {
		return nil, fmt.Errorf("failed to create social link: %w", err)
	}
	return created, nil
}

// Update overwrites a social link.
func (r *SocialRepository) Update(ctx context.Context, l *model.SocialLink) (*model.SocialLink, error) {
	query := `
		UPDATE social_links
		SET platform = $2, name = $3, url = $4, icon = $5, reward = $6, is_active = $7
		WHERE id = $1
		RETURNING ` + socialColumns
	updated, err := scanSocialLink(r.db.QueryRow(ctx, query, l.ID, l.Platform, l.Name, l.URL, l.Icon, l.Reward, l.IsActive))
	if err != nil {
		return nil, notFound(err, ErrSocialLinkNotFound, "update social link")
	}
	return updated, nil
}

// Get retrieves a social link.
func (r *SocialRepository) Get(ctx context.Context, id int64) (*model.SocialLink, error) {
	l, err := scanSocialLink(r.db.QueryRow(ctx, `SELECT `+socialColumns+` FROM social_links WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, ErrSocialLinkNotFound, "get social link")
	}
	return l, nil
}

// List returns social links ordered by id.
func (r *SocialRepository) List(ctx context.Context, activeOnly bool) ([]*model.SocialLink, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+socialColumns+` FROM social_links WHERE is_active OR NOT $1 ORDER BY id`, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list social links: %w", err)
	}
	defer rows.Close()

	var links []*model.SocialLink
	for rows.Next() {
		l, err := scanSocialLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan social link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

// InsertClaim records that userID claimed linkID. A repeated claim yields ErrAlreadyClaimed.
func (r *SocialRepository) InsertClaim(ctx context.Context, userID, linkID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO social_claims (user_id, link_id) VALUES ($1, $2)`, userID, linkID)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ErrAlreadyClaimed
		}
		return fmt.Errorf("failed to insert social claim: %w", err)
	}
	return nil
}

// ClaimedLinkIDs returns the links userID has already claimed.
func (r *SocialRepository) ClaimedLinkIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT link_id FROM social_claims WHERE user_id = $1 ORDER BY link_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list social claims: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan social claim: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
