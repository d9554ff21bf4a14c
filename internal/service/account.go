package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/progression"
	"wolf-tap/internal/repository"
)

// maxCreateAttempts bounds retries when a freshly generated referral code
// loses a race against a concurrent signup.
const maxCreateAttempts = 5

// Profile is an account together with its derived progression.
type Profile struct {
	User       *model.User      `json:"user"`
	Progress   progression.View `json:"progress"`
	TapsLeft   int              `json:"tapsLeft"`
	DailyLimit int              `json:"dailyLimit"`
}

// AccountService owns account creation and profile reads.
type AccountService struct {
	*Engine
	referrals *ReferralService
}

// NewAccountService creates a new AccountService instance.
func NewAccountService(engine *Engine, referrals *ReferralService) *AccountService {
	return &AccountService{Engine: engine, referrals: referrals}
}

// EnsureUser returns the account of p.TelegramID, creating it on first
// contact. A new account gets a unique referral code and the welcome
// bonus; referralCode, when given, is applied right after creation and
// its failure does not fail the call. Known accounts have their profile
// fields refreshed. The bool reports whether the account was created.
func (s *AccountService) EnsureUser(ctx context.Context, p model.Profile, referralCode string) (*model.User, bool, error) {
	if p.TelegramID <= 0 {
		return nil, false, fmt.Errorf("%w: telegram id must be positive", ErrInvalidInput)
	}

	existing, err := s.store.Users().GetByTelegramID(ctx, p.TelegramID)
	switch {
	case err == nil:
		return s.refresh(ctx, existing, p)
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, false, translate(err, "get user")
	}

	user, err := s.create(ctx, p)
	if errors.Is(err, repository.ErrUserExists) {
		// Lost a race with a concurrent first login.
		existing, err := s.store.Users().GetByTelegramID(ctx, p.TelegramID)
		if err != nil {
			return nil, false, translate(err, "get user")
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	log.Info().
		Int64("user_id", user.ID).
		Int64("telegram_id", user.TelegramID).
		Str("referral_code", user.ReferralCode).
		Msg("Account created")

	if code := NormalizeCode(referralCode); code != "" {
		if err := s.referrals.ApplyCode(ctx, user.ID, code); err == nil {
			if fresh, err := s.store.Users().GetByID(ctx, user.ID); err == nil {
				user = fresh
			}
		}
	}
	return user, true, nil
}

func (s *AccountService) create(ctx context.Context, p model.Profile) (*model.User, error) {
	first := progression.RankFor(1)
	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		var acc *account
		err := s.store.InTx(ctx, func(tx repository.Tx) error {
			code, err := s.referrals.UniqueCode(ctx, tx)
			if err != nil {
				return err
			}
			created, err := tx.Users().Create(ctx, &model.User{
				TelegramID:   p.TelegramID,
				Username:     p.Username,
				FirstName:    p.FirstName,
				LastName:     p.LastName,
				PhotoURL:     p.PhotoURL,
				Level:        first.Level,
				XP:           0,
				Rank:         first.Name,
				ReferralCode: code,
			})
			if err != nil {
				return err
			}
			acc = &account{tx: tx, user: created}
			if s.rules.WelcomeBonus > 0 {
				if _, err := acc.post(ctx, s.rules.WelcomeBonus, model.TxTypeWelcomeBonus, model.TxStatusCompleted, "Welcome bonus"); err != nil {
					return err
				}
			}
			return acc.save(ctx)
		})
		switch {
		case err == nil:
			acc.committed()
			return acc.user, nil
		case errors.Is(err, repository.ErrReferralCodeTaken):
			log.Debug().Int("attempt", attempt).Msg("Referral code collision, retrying")
			continue
		case errors.Is(err, repository.ErrUserExists):
			return nil, err
		default:
			return nil, fmt.Errorf("failed to create account: %w", err)
		}
	}
	return nil, fmt.Errorf("failed to create account: %w", repository.ErrReferralCodeTaken)
}

// refresh copies a newer profile onto u. An empty photo URL keeps the
// stored one, since bot updates carry no photo.
func (s *AccountService) refresh(ctx context.Context, u *model.User, p model.Profile) (*model.User, bool, error) {
	if p.PhotoURL == "" {
		p.PhotoURL = u.PhotoURL
	}
	if u.Username == p.Username && u.FirstName == p.FirstName &&
		u.LastName == p.LastName && u.PhotoURL == p.PhotoURL {
		return u, false, nil
	}
	if err := s.store.Users().UpdateProfile(ctx, u.ID, p); err != nil {
		return nil, false, translate(err, "update profile")
	}
	u.Username, u.FirstName, u.LastName, u.PhotoURL = p.Username, p.FirstName, p.LastName, p.PhotoURL
	return u, false, nil
}

// Get returns the account with the given id.
func (s *AccountService) Get(ctx context.Context, userID int64) (*model.User, error) {
	u, err := s.store.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, translate(err, "get user")
	}
	return u, nil
}

// GetByTelegramID returns the account bound to a Telegram identity.
func (s *AccountService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	u, err := s.store.Users().GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, translate(err, "get user")
	}
	return u, nil
}

// GetProfile returns the account with its rank, XP progress and remaining taps.
func (s *AccountService) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Profile{
		User:       u,
		Progress:   progression.ViewOf(u.Level, u.XP),
		TapsLeft:   TapsLeft(u, s.today(), s.rules.DailyTapLimit),
		DailyLimit: s.rules.DailyTapLimit,
	}, nil
}
