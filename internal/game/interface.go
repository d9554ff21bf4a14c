// Package game holds the catalog of client-side mini-games whose final
// rewards the server accepts.
package game

import (
	"errors"
	"time"
)

// Game describes one mini-game. The game itself runs on the client; the
// server only bounds what a finished round may pay out.
type Game struct {
	Slug        string        `json:"slug"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	MaxReward   int64         `json:"maxReward"`
	Cooldown    time.Duration `json:"-"`
}

// Validate checks that g can be registered.
func (g Game) Validate() error {
	if g.Slug == "" {
		return errors.New("game slug cannot be empty")
	}
	if g.MaxReward <= 0 {
		return errors.New("game max reward must be positive")
	}
	if g.Cooldown < 0 {
		return errors.New("game cooldown cannot be negative")
	}
	return nil
}

// Defaults is the built-in catalog.
func Defaults() []Game {
	return []Game{
		{Slug: "wolf-race", Title: "Wolf Race", Description: "Race through the forest and dodge obstacles", MaxReward: 200, Cooldown: 30 * time.Second},
		{Slug: "pack-hunt", Title: "Pack Hunt", Description: "Team up to hunt bigger rewards", MaxReward: 300, Cooldown: time.Minute},
		{Slug: "wolf-dice", Title: "Wolf Dice", Description: "Roll the dice and test your luck", MaxReward: 100, Cooldown: 10 * time.Second},
		{Slug: "night-hunt", Title: "Night Hunt", Description: "Hunt under the moonlight for rare prizes", MaxReward: 500, Cooldown: 2 * time.Minute},
	}
}
