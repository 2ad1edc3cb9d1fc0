package progression

import (
	"math"

	"github.com/arisefit/arise/arise/database/models"
)

const (
	minWorkoutBaseXP    = 5
	streakBonusPerDay   = 0.1
	maxStreakMultiplier = 2.0
	firstActivityBonus  = 20
)

// XPBreakdown is the full result of a workout XP computation. Callers get
// every component, not just the total, so grants stay auditable.
type XPBreakdown struct {
	Base       int64
	Multiplier float64
	FirstBonus int64
	Total      int64
}

type XPCalculator struct{}

func NewXPCalculator() *XPCalculator {
	return &XPCalculator{}
}

// WorkoutXP computes the XP grant for a logged workout. The streak multiplier
// is capped at 2.0x so very long streaks don't inflate grants without bound,
// and the flat first-of-day bonus rewards showing up independent of intensity.
func (c *XPCalculator) WorkoutXP(caloriesBurned int, streak int, firstActivityToday bool) XPBreakdown {
	if caloriesBurned < 0 {
		caloriesBurned = 0
	}
	if streak < 0 {
		streak = 0
	}

	base := int64(math.Round(float64(caloriesBurned) / 2))
	if base < minWorkoutBaseXP {
		base = minWorkoutBaseXP
	}

	multiplier := 1.0 + float64(streak)*streakBonusPerDay
	if multiplier > maxStreakMultiplier {
		multiplier = maxStreakMultiplier
	}

	var firstBonus int64
	if firstActivityToday {
		firstBonus = firstActivityBonus
	}

	return XPBreakdown{
		Base:       base,
		Multiplier: multiplier,
		FirstBonus: firstBonus,
		Total:      int64(math.Round(float64(base)*multiplier)) + firstBonus,
	}
}

// QuestXP returns the XP grant for a completed quest. A direct passthrough of
// the template reward, kept as a method for symmetry with WorkoutXP.
func (c *XPCalculator) QuestXP(template *models.QuestTemplate) int64 {
	if template == nil || template.XPReward < 0 {
		return 0
	}
	return template.XPReward
}
