package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRankTableShape(t *testing.T) {
	all := All()
	require.Len(t, all, MaxLevel)
	assert.Equal(t, int64(0), all[0].XPRequired)
	for i, r := range all {
		assert.Equal(t, i+1, r.Level)
		assert.NotEmpty(t, r.Name)
		if i > 0 {
			assert.Less(t, all[i-1].XPRequired, r.XPRequired, "level %d", r.Level)
		}
	}
}

func TestRankFor(t *testing.T) {
	assert.Equal(t, "Wolf Pup", RankFor(1).Name)
	assert.Equal(t, "Curious Cub", RankFor(2).Name)
	assert.Equal(t, "Alpha Supreme", RankFor(100).Name)
	assert.Equal(t, "Wolf Pup", RankFor(0).Name)
	assert.Equal(t, "Wolf Pup", RankFor(-7).Name)
	assert.Equal(t, "Alpha Supreme", RankFor(250).Name)
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, int64(100), XPToNextLevel(1))
	assert.Equal(t, int64(150), XPToNextLevel(2))
	// 100 has no next level, so it reports the 99 -> 100 gap.
	assert.Equal(t, XPToNextLevel(99), XPToNextLevel(100))
	assert.Equal(t, int64(457200-447700), XPToNextLevel(100))
}

func TestLevelProgressPercent(t *testing.T) {
	assert.Equal(t, 0, LevelProgressPercent(1, 0))
	assert.Equal(t, 50, LevelProgressPercent(1, 50))
	assert.Equal(t, 99, LevelProgressPercent(1, 99))
	assert.Equal(t, 100, LevelProgressPercent(1, 100))
	assert.Equal(t, 100, LevelProgressPercent(1, 5000))
	assert.Equal(t, 0, LevelProgressPercent(5, 10))
	assert.Equal(t, 33, LevelProgressPercent(2, 150))
}

func TestAdvance(t *testing.T) {
	up := Advance(1, 95)
	assert.False(t, up.LeveledUp)
	assert.Equal(t, 1, up.NewLevel)
	assert.Equal(t, "Wolf Pup", up.NewRank)

	up = Advance(1, 100)
	assert.True(t, up.LeveledUp)
	assert.Equal(t, 2, up.NewLevel)
	assert.Equal(t, "Curious Cub", up.NewRank)
	assert.Equal(t, int64(15), up.Reward)

	up = Advance(1, 460)
	assert.Equal(t, 4, up.NewLevel)
	assert.Equal(t, "Keen Scout", up.NewRank)
	assert.Equal(t, int64(15+20+25), up.Reward)

	up = Advance(100, 10_000_000)
	assert.False(t, up.LeveledUp)
	assert.Equal(t, 100, up.NewLevel)
}

func TestAdvanceMatchesLevelForXPProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		xp := rapid.Int64Range(0, 600000).Draw(t, "xp")
		up := Advance(1, xp)
		if up.NewLevel != LevelForXP(xp) {
			t.Fatalf("Advance(1, %d) = %d, LevelForXP = %d", xp, up.NewLevel, LevelForXP(xp))
		}
		if up.NewRank != RankFor(up.NewLevel).Name {
			t.Fatalf("rank %q does not match level %d", up.NewRank, up.NewLevel)
		}
	})
}

func TestAdvanceNeverLowersLevelProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(1, MaxLevel).Draw(t, "level")
		xp := rapid.Int64Range(0, 600000).Draw(t, "xp")
		up := Advance(level, xp)
		if up.NewLevel < level {
			t.Fatalf("level dropped from %d to %d", level, up.NewLevel)
		}
		if up.NewLevel < MaxLevel && xp >= NextLevelFloor(up.NewLevel) {
			t.Fatalf("stopped at %d with xp %d above next floor %d", up.NewLevel, xp, NextLevelFloor(up.NewLevel))
		}
	})
}

func TestLevelProgressPercentBoundsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(-5, MaxLevel+5).Draw(t, "level")
		xp := rapid.Int64Range(-1000, 600000).Draw(t, "xp")
		pct := LevelProgressPercent(level, xp)
		if pct < 0 || pct > 100 {
			t.Fatalf("percent %d out of range for level=%d xp=%d", pct, level, xp)
		}
	})
}
