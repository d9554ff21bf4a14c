package service

import (
	"errors"
	"fmt"

	"wolf-tap/internal/repository"
)

// Rejections. Each leaves every account and ledger untouched.
var (
	ErrDailyLimitExceeded    = errors.New("daily tap limit reached, come back tomorrow")
	ErrTaskNotClaimable      = errors.New("task reward cannot be claimed")
	ErrBadgeNotClaimable     = errors.New("badge reward cannot be claimed")
	ErrBadgeNotEarned        = errors.New("badge has not been earned")
	ErrFeaturedLimitExceeded = errors.New("at most 3 badges can be featured")
	ErrAlreadyReferred       = errors.New("a referral code was already applied")
	ErrSelfReferral          = errors.New("cannot use your own referral code")
	ErrReferralCycle         = errors.New("referral would create a cycle")
	ErrInvalidCode           = errors.New("invalid referral code")
	ErrAlreadyClaimed        = errors.New("reward already claimed")
	ErrWithdrawalNotPending  = errors.New("withdrawal is not pending")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInvalidAmount         = errors.New("invalid amount: must be positive")
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnknownGame           = errors.New("unknown game")
	ErrGameCooldown          = errors.New("game reward reported too soon")
)

// Lookups that resolve to nothing.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrBadgeNotFound      = errors.New("badge not found")
	ErrSocialLinkNotFound = errors.New("social link not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
)

// translate maps repository sentinels onto service sentinels and wraps
// everything else as a fault.
func translate(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, repository.ErrTaskNotFound):
		return ErrTaskNotFound
	case errors.Is(err, repository.ErrBadgeNotFound):
		return ErrBadgeNotFound
	case errors.Is(err, repository.ErrSocialLinkNotFound):
		return ErrSocialLinkNotFound
	case errors.Is(err, repository.ErrTransactionNotFound):
		return ErrWithdrawalNotFound
	case errors.Is(err, repository.ErrAlreadyClaimed):
		return ErrAlreadyClaimed
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// IsRejection reports whether err is an expected, caller-correctable outcome
// rather than a fault.
func IsRejection(err error) bool {
	for _, target := range []error{
		ErrDailyLimitExceeded, ErrTaskNotClaimable, ErrBadgeNotClaimable, ErrBadgeNotEarned,
		ErrFeaturedLimitExceeded, ErrAlreadyReferred, ErrSelfReferral, ErrReferralCycle,
		ErrInvalidCode, ErrAlreadyClaimed, ErrWithdrawalNotPending, ErrInsufficientBalance,
		ErrInvalidAmount, ErrInvalidInput, ErrUnknownGame, ErrGameCooldown,
		ErrUserNotFound, ErrTaskNotFound, ErrBadgeNotFound, ErrSocialLinkNotFound, ErrWithdrawalNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
