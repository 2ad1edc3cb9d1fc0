package progression

import (
	"math"
	"time"
)

const (
	graceWindowDays   = 2
	decayPerMissedDay = 0.05
	maxDecayFraction  = 0.25
)

// StreakCheck is the outcome of evaluating a streak against elapsed days.
// Decay is computed once, when the break is first detected; it is never
// compounded retroactively per missed day.
type StreakCheck struct {
	Broken     bool
	UseGrace   bool
	MissedDays int
	Decay      int64
}

// StreakTracker owns the consecutive-day streak transitions: the grace
// window, the break detection and the XP decay formula. Resetting the weekly
// grace flag is the caller's job; the tracker only signals consumption.
type StreakTracker struct{}

func NewStreakTracker() *StreakTracker {
	return &StreakTracker{}
}

// Check evaluates the streak for a user last active daysSinceActive calendar
// days ago. At exactly two days with grace unused the streak survives and the
// grace flag is consumed. Beyond that the streak is broken and XP decays by
// 5% per missed day, capped at 25%.
func (t *StreakTracker) Check(xp int64, daysSinceActive int, graceUsed bool) StreakCheck {
	if xp < 0 {
		xp = 0
	}

	if daysSinceActive <= 1 {
		return StreakCheck{}
	}

	if daysSinceActive == graceWindowDays && !graceUsed {
		return StreakCheck{UseGrace: true}
	}

	missed := daysSinceActive - 1
	fraction := float64(missed) * decayPerMissedDay
	if fraction > maxDecayFraction {
		fraction = maxDecayFraction
	}

	return StreakCheck{
		Broken:     true,
		MissedDays: missed,
		Decay:      int64(math.Round(float64(xp) * fraction)),
	}
}

// Advance returns the streak value after an actual new workout: +1 when
// exactly one calendar day elapsed, unchanged on the same day, reset to 1
// when more time elapsed or there is no prior record (daysSinceActive < 0).
func (t *StreakTracker) Advance(streak int, daysSinceActive int) int {
	if streak < 0 {
		streak = 0
	}

	switch {
	case daysSinceActive == 0:
		return streak
	case daysSinceActive == 1:
		return streak + 1
	default:
		return 1
	}
}

// CalendarDays returns the number of calendar-day boundaries crossed between
// from and to, in to's location. A negative result means from is unset or in
// the future.
func CalendarDays(from, to time.Time) int {
	if from.IsZero() {
		return -1
	}
	loc := to.Location()
	fromDay := truncateToDay(from.In(loc))
	toDay := truncateToDay(to)
	return int(math.Round(toDay.Sub(fromDay).Hours() / 24))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
