package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/metrics"
	"wolf-tap/internal/repository"
)

const (
	referralPrefix   = "WOLF"
	referralSuffix   = 6
	referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// maxCodeAttempts bounds the uniqueness retry loop. With 36^6 codes a
	// collision streak this long means the generator is broken.
	maxCodeAttempts = 16
	// maxReferralDepth bounds the ancestor walk of the cycle check.
	maxReferralDepth = 64
)

// NewReferralCode returns a random code of the form WOLFXXXXXX.
func NewReferralCode() string {
	var b strings.Builder
	b.Grow(len(referralPrefix) + referralSuffix)
	b.WriteString(referralPrefix)
	for i := 0; i < referralSuffix; i++ {
		b.WriteByte(referralAlphabet[rand.IntN(len(referralAlphabet))])
	}
	return b.String()
}

// NormalizeCode trims and upper-cases a user supplied code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ReferredUser is one entry of a referrer's list.
type ReferredUser struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
	Level     int       `json:"level"`
	Rank      string    `json:"wolfRank"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// ReferralStats summarizes a user's referrals.
type ReferralStats struct {
	Code          string         `json:"referralCode"`
	Count         int            `json:"count"`
	TotalEarnings int64          `json:"totalEarnings"`
	ReferredUsers []ReferredUser `json:"referredUsers"`
}

// ReferralService runs the referral engine.
type ReferralService struct {
	*Engine
	newCode func() string
}

// NewReferralService creates a new ReferralService instance.
func NewReferralService(engine *Engine) *ReferralService {
	return &ReferralService{Engine: engine, newCode: NewReferralCode}
}

// UniqueCode generates a code not yet assigned to any account.
func (s *ReferralService) UniqueCode(ctx context.Context, q repository.Tx) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code := s.newCode()
		exists, err := q.Users().ReferralCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("failed to generate a unique referral code after %d attempts", maxCodeAttempts)
}

// ApplyCode links userID to the owner of code and credits that owner the
// referral bonus. It works at most once per user.
func (s *ReferralService) ApplyCode(ctx context.Context, userID int64, code string) error {
	err := s.applyCode(ctx, userID, NormalizeCode(code))
	metrics.Claim("referral", err)
	logOutcome(err, "referral_apply", userID)
	return err
}

func (s *ReferralService) applyCode(ctx context.Context, userID int64, code string) error {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return translate(err, "get user")
	}
	if user.ReferrerID != nil {
		return ErrAlreadyReferred
	}
	if code == "" {
		return ErrInvalidCode
	}
	referrer, err := s.store.Users().GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidCode
		}
		return translate(err, "resolve referral code")
	}
	if referrer.ID == userID {
		return ErrSelfReferral
	}

	return s.mutatePair(ctx, userID, referrer.ID, func(applier, owner *account) error {
		if applier.user.ReferrerID != nil {
			return ErrAlreadyReferred
		}
		if cyclic, err := s.reaches(ctx, applier.tx, owner.user, userID); err != nil {
			return err
		} else if cyclic {
			return ErrReferralCycle
		}

		referrerID := owner.user.ID
		applier.user.ReferrerID = &referrerID
		applier.touch()

		if s.rules.ReferralBonus > 0 {
			desc := fmt.Sprintf("Referral bonus for inviting %s", applier.user.DisplayName())
			if _, err := owner.post(ctx, s.rules.ReferralBonus, model.TxTypeReferralBonus, model.TxStatusCompleted, desc); err != nil {
				return err
			}
		}
		log.Info().
			Int64("user_id", userID).
			Int64("referrer_id", referrerID).
			Int64("bonus", s.rules.ReferralBonus).
			Msg("Referral applied")
		return nil
	})
}

// reaches reports whether target appears in from's referrer chain.
func (s *ReferralService) reaches(ctx context.Context, tx repository.Tx, from *model.User, target int64) (bool, error) {
	next := from.ReferrerID
	for depth := 0; next != nil && depth < maxReferralDepth; depth++ {
		if *next == target {
			return true, nil
		}
		ancestor, err := tx.Users().GetByID(ctx, *next)
		if err != nil {
			return false, err
		}
		next = ancestor.ReferrerID
	}
	return false, nil
}

// Stats returns the referral count, total bonus earned and referred accounts of userID.
func (s *ReferralService) Stats(ctx context.Context, userID int64) (*ReferralStats, error) {
	user, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "get user")
	}
	referred, err := s.store.Users().ListReferrals(ctx, userID)
	if err != nil {
		return nil, translate(err, "list referrals")
	}
	earnings, err := s.store.Ledger().SumByUserAndType(ctx, userID, model.TxTypeReferralBonus)
	if err != nil {
		return nil, translate(err, "sum referral earnings")
	}

	stats := &ReferralStats{
		Code:          user.ReferralCode,
		Count:         len(referred),
		TotalEarnings: earnings,
		ReferredUsers: make([]ReferredUser, 0, len(referred)),
	}
	for _, r := range referred {
		stats.ReferredUsers = append(stats.ReferredUsers, ReferredUser{
			ID:        r.ID,
			Username:  r.Username,
			FirstName: r.FirstName,
			PhotoURL:  r.PhotoURL,
			Level:     r.Level,
			Rank:      r.Rank,
			JoinedAt:  r.CreatedAt,
		})
	}
	return stats, nil
}
