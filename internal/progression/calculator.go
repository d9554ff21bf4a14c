// Package progression maps experience points onto the 100-level wolf rank ladder.
package progression

// RankFor returns the rank row for level, clamped to [1, MaxLevel].
func RankFor(level int) Rank {
	return ranks[clamp(level, 1, MaxLevel)-1]
}

// All returns a copy of the full rank table ordered by level.
func All() []Rank {
	out := make([]Rank, MaxLevel)
	copy(out, ranks[:])
	return out
}

// XPToNextLevel returns the XP distance between the floor of level and the
// floor of level+1. Level is clamped to [1, MaxLevel-1].
func XPToNextLevel(level int) int64 {
	level = clamp(level, 1, MaxLevel-1)
	return ranks[level].XPRequired - ranks[level-1].XPRequired
}

// NextLevelFloor returns the absolute XP floor of the level after level.
// At MaxLevel it returns the floor of MaxLevel itself.
func NextLevelFloor(level int) int64 {
	level = clamp(level, 1, MaxLevel)
	if level == MaxLevel {
		return ranks[MaxLevel-1].XPRequired
	}
	return ranks[level].XPRequired
}

// LevelProgressPercent reports how far xp is between the floor of level and
// the next floor, floored and clamped to [0, 100].
func LevelProgressPercent(level int, xp int64) int {
	level = clamp(level, 1, MaxLevel-1)
	floor := ranks[level-1].XPRequired
	span := ranks[level].XPRequired - floor
	pct := (xp - floor) * 100 / span
	if xp < floor {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// LevelForXP returns the highest level whose floor is at or below xp.
func LevelForXP(xp int64) int {
	level := 1
	for level < MaxLevel && xp >= ranks[level].XPRequired {
		level++
	}
	return level
}

// LevelUp describes the outcome of applying an XP total to a level.
type LevelUp struct {
	LeveledUp     bool   `json:"leveledUp"`
	PreviousLevel int    `json:"previousLevel"`
	NewLevel      int    `json:"newLevel"`
	NewRank       string `json:"newWolfRank"`
	// Reward sums the table rewards of every level crossed. It is reported, not credited.
	Reward int64 `json:"reward"`
}

// Advance moves level forward while xp reaches the next floor. Levels never
// go down, so an xp value below the current floor leaves level unchanged.
func Advance(level int, xp int64) LevelUp {
	level = clamp(level, 1, MaxLevel)
	up := LevelUp{PreviousLevel: level, NewLevel: level}
	for up.NewLevel < MaxLevel && xp >= ranks[up.NewLevel].XPRequired {
		up.Reward += ranks[up.NewLevel].Reward
		up.NewLevel++
	}
	up.LeveledUp = up.NewLevel > level
	up.NewRank = ranks[up.NewLevel-1].Name
	return up
}

// View is the read-only progression summary shown to a user.
type View struct {
	Level           int    `json:"level"`
	Rank            string `json:"wolfRank"`
	XP              int64  `json:"xp"`
	XPToNextLevel   int64  `json:"xpToNextLevel"`
	NextLevelFloor  int64  `json:"nextLevelXp"`
	ProgressPercent int    `json:"levelProgress"`
	MaxLevel        bool   `json:"maxLevel"`
}

// ViewOf builds the progression summary for level and xp.
func ViewOf(level int, xp int64) View {
	return View{
		Level:           clamp(level, 1, MaxLevel),
		Rank:            RankFor(level).Name,
		XP:              xp,
		XPToNextLevel:   XPToNextLevel(level),
		NextLevelFloor:  NextLevelFloor(level),
		ProgressPercent: LevelProgressPercent(level, xp),
		MaxLevel:        level >= MaxLevel,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
