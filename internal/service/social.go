package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/metrics"
)

// SocialView is a social link with the caller's claim state.
type SocialView struct {
	*model.SocialLink
	Claimed bool `json:"claimed"`
}

// SocialClaim is the result of a successful social claim.
type SocialClaim struct {
	Reward     int64 `json:"reward"`
	NewBalance int64 `json:"newBalance"`
}

// SocialService pays one-time rewards for following the project's channels.
type SocialService struct {
	*Engine
}

// NewSocialService creates a new SocialService instance.
func NewSocialService(engine *Engine) *SocialService {
	return &SocialService{Engine: engine}
}

// ListForUser returns the active links and whether userID claimed each.
func (s *SocialService) ListForUser(ctx context.Context, userID int64) ([]SocialView, error) {
	links, err := s.store.Social().List(ctx, true)
	if err != nil {
		return nil, translate(err, "list social links")
	}
	ids, err := s.store.Social().ClaimedLinkIDs(ctx, userID)
	if err != nil {
		return nil, translate(err, "list social claims")
	}
	claimed := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		claimed[id] = struct{}{}
	}

	views := make([]SocialView, 0, len(links))
	for _, l := range links {
		_, ok := claimed[l.ID]
		views = append(views, SocialView{SocialLink: l, Claimed: ok})
	}
	return views, nil
}

// Claim credits the reward of linkID once per user. Claims are self-reported.
func (s *SocialService) Claim(ctx context.Context, userID, linkID int64) (*SocialClaim, error) {
	var claim *SocialClaim
	err := s.mutate(ctx, userID, func(acc *account) error {
		link, err := acc.tx.Social().Get(ctx, linkID)
		if err != nil {
			return translate(err, "get social link")
		}
		if !link.IsActive {
			return ErrSocialLinkNotFound
		}
		if err := acc.tx.Social().InsertClaim(ctx, userID, linkID); err != nil {
			return translate(err, "record social claim")
		}
		if link.Reward > 0 {
			desc := fmt.Sprintf("Social reward: %s", link.Name)
			if _, err := acc.post(ctx, link.Reward, model.TxTypeSocialReward, model.TxStatusCompleted, desc); err != nil {
				return err
			}
		}
		claim = &SocialClaim{Reward: link.Reward, NewBalance: acc.user.Coins}
		return nil
	})
	metrics.Claim("social", err)
	logOutcome(err, "social_claim", userID)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("user_id", userID).Int64("link_id", linkID).Int64("reward", claim.Reward).Msg("Social reward claimed")
	return claim, nil
}

// ListAll returns every social link, active or not.
func (s *SocialService) ListAll(ctx context.Context) ([]*model.SocialLink, error) {
	links, err := s.store.Social().List(ctx, false)
	return links, translate(err, "list social links")
}

func validateSocialLink(l *model.SocialLink) error {
	l.Platform = strings.TrimSpace(l.Platform)
	l.Name = strings.TrimSpace(l.Name)
	l.URL = strings.TrimSpace(l.URL)
	switch {
	case l.Platform == "":
		return fmt.Errorf("%w: platform is required", ErrInvalidInput)
	case l.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	case l.Reward < 0:
		return fmt.Errorf("%w: reward cannot be negative", ErrInvalidInput)
	}
	u, err := url.Parse(l.URL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http" && u.Scheme != "tg") {
		return fmt.Errorf("%w: invalid url %q", ErrInvalidInput, l.URL)
	}
	return nil
}

// Create adds a social link.
func (s *SocialService) Create(ctx context.Context, l *model.SocialLink) (*model.SocialLink, error) {
	if err := validateSocialLink(l); err != nil {
		return nil, err
	}
	created, err := s.store.Social().Create(ctx, l)
	if err != nil {
		return nil, translate(err, "create social link")
	}
	log.Info().Int64("link_id", created.ID).Str("platform", created.Platform).Msg("Social link created")
	return created, nil
}

// Update overwrites a social link.
func (s *SocialService) Update(ctx context.Context, l *model.SocialLink) (*model.SocialLink, error) {
	if err := validateSocialLink(l); err != nil {
		return nil, err
	}
	updated, err := s.store.Social().Update(ctx, l)
	return updated, translate(err, "update social link")
}
