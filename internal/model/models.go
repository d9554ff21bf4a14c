// Package model defines the persisted data of the wolf tap economy.
package model

import (
	"time"

	"wolf-tap/internal/pkg/clock"
)

// User is the per-account aggregate mutated by every engine.
type User struct {
	ID            int64     `db:"id" json:"id"`
	TelegramID    int64     `db:"telegram_id" json:"telegramId"`
	Username      string    `db:"username" json:"username"`
	FirstName     string    `db:"first_name" json:"firstName"`
	LastName      string    `db:"last_name" json:"lastName"`
	PhotoURL      string    `db:"photo_url" json:"photoUrl"`
	Level         int       `db:"level" json:"level"`
	XP            int64     `db:"xp" json:"xp"`
	Coins         int64     `db:"coins" json:"coins"`
	Rank          string    `db:"wolf_rank" json:"wolfRank"`
	DailyTapCount int       `db:"daily_tap_count" json:"dailyTapCount"`
	LastTapDate   clock.Day `db:"last_tap_date" json:"lastTapDate"`
	ReferralCode  string    `db:"referral_code" json:"referralCode"`
	ReferrerID    *int64    `db:"referrer_id" json:"referrerId,omitempty"`
	Version       int64     `db:"version" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// DisplayName returns the username, falling back to the first name.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return "wolf"
}

// Profile holds the identity fields refreshed from Telegram on each login.
type Profile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	PhotoURL   string
}

// Transaction is one append-only ledger entry. Amount is signed.
type Transaction struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	Amount      int64     `db:"amount" json:"amount"`
	Type        string    `db:"type" json:"type"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Ledger entry types.
const (
	TxTypeTapReward     = "tap_reward"
	TxTypeTaskReward    = "task_reward"
	TxTypeReferralBonus = "referral_bonus"
	TxTypeBadgeReward   = "badge_reward"
	TxTypeSocialReward  = "social_reward"
	TxTypeGameReward    = "game_reward"
	TxTypeWithdraw      = "withdraw"
	TxTypeWelcomeBonus  = "welcome_bonus"
)

// Ledger entry statuses. Only withdrawals ever leave completed.
const (
	TxStatusPending   = "pending"
	TxStatusCompleted = "completed"
	TxStatusRejected  = "rejected"
)

// TaskType groups task definitions.
type TaskType string

const (
	TaskDaily   TaskType = "daily"
	TaskWeekly  TaskType = "weekly"
	TaskSocial  TaskType = "social"
	TaskSpecial TaskType = "special"
)

// Valid reports whether t is a known task type.
func (t TaskType) Valid() bool {
	switch t {
	case TaskDaily, TaskWeekly, TaskSocial, TaskSpecial:
		return true
	}
	return false
}

// Task is an admin-defined goal with a coin reward.
type Task struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Type        TaskType  `db:"type" json:"type"`
	Icon        string    `db:"icon" json:"icon"`
	IconColor   string    `db:"icon_color" json:"iconColor"`
	Target      int       `db:"target" json:"target"`
	Reward      int64     `db:"reward" json:"reward"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// UserTask is a user's progress against one task.
type UserTask struct {
	ID            int64     `db:"id" json:"id"`
	UserID        int64     `db:"user_id" json:"userId"`
	TaskID        int64     `db:"task_id" json:"taskId"`
	Progress      int       `db:"progress" json:"progress"`
	IsCompleted   bool      `db:"is_completed" json:"isCompleted"`
	ClaimedReward bool      `db:"claimed_reward" json:"claimedReward"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// Badge rarities.
const (
	RarityCommon    = "common"
	RarityRare      = "rare"
	RarityEpic      = "epic"
	RarityLegendary = "legendary"
)

// Badge is an achievement definition.
type Badge struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"`
	Icon        string    `db:"icon" json:"icon"`
	IconColor   string    `db:"icon_color" json:"iconColor"`
	Requirement int       `db:"requirement" json:"requirement"`
	Rarity      string    `db:"rarity" json:"rarity"`
	XPReward    int64     `db:"xp_reward" json:"xpReward"`
	CoinReward  int64     `db:"coin_reward" json:"coinReward"`
	IsActive    bool      `db:"is_active" json:"isActive"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// UserBadge is a user's progress toward one badge.
type UserBadge struct {
	ID            int64      `db:"id" json:"id"`
	UserID        int64      `db:"user_id" json:"userId"`
	BadgeID       int64      `db:"badge_id" json:"badgeId"`
	Progress      int        `db:"progress" json:"progress"`
	Earned        bool       `db:"earned" json:"earned"`
	EarnedAt      *time.Time `db:"earned_at" json:"earnedAt,omitempty"`
	RewardClaimed bool       `db:"reward_claimed" json:"rewardClaimed"`
	Featured      bool       `db:"featured" json:"featured"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updatedAt"`
}

// BadgeStats aggregates badge definitions and user progress for the admin panel.
type BadgeStats struct {
	TotalBadges    int            `json:"totalBadges"`
	ActiveBadges   int            `json:"activeBadges"`
	TotalEarned    int            `json:"totalEarned"`
	TotalFeatured  int            `json:"totalFeatured"`
	UnclaimedCount int            `json:"unclaimedRewards"`
	ByCategory     map[string]int `json:"byCategory"`
	ByRarity       map[string]int `json:"byRarity"`
}

// SocialLink is a self-reported follow/join reward.
type SocialLink struct {
	ID        int64     `db:"id" json:"id"`
	Platform  string    `db:"platform" json:"platform"`
	Name      string    `db:"name" json:"name"`
	URL       string    `db:"url" json:"url"`
	Icon      string    `db:"icon" json:"icon"`
	Reward    int64     `db:"reward" json:"reward"`
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CoinSettings is the single row of admin-tunable tap economics.
type CoinSettings struct {
	ID        int64     `db:"id" json:"id"`
	ImageURL  string    `db:"image_url" json:"imageUrl"`
	CoinValue int64     `db:"coin_value" json:"coinValue"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// LeaderboardEntry is the wire shape of one ranked account.
type LeaderboardEntry struct {
	Position  int    `json:"position"`
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	PhotoURL  string `json:"photoUrl,omitempty"`
	Level     int    `json:"level"`
	Rank      string `json:"rank"`
	Coins     int64  `json:"coins"`
}
