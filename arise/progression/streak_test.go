package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreakCheck(t *testing.T) {
	tracker := NewStreakTracker()

	tests := []struct {
		name      string
		xp        int64
		daysSince int
		graceUsed bool
		want      StreakCheck
	}{
		{
			name:      "same day",
			xp:        1000,
			daysSince: 0,
			want:      StreakCheck{},
		},
		{
			name:      "one day, streak intact",
			xp:        1000,
			daysSince: 1,
			want:      StreakCheck{},
		},
		{
			name:      "two days with grace available",
			xp:        1000,
			daysSince: 2,
			want:      StreakCheck{UseGrace: true},
		},
		{
			name:      "two days with grace already used",
			xp:        1000,
			daysSince: 2,
			graceUsed: true,
			want:      StreakCheck{Broken: true, MissedDays: 1, Decay: 50},
		},
		{
			name:      "three days breaks regardless of grace",
			xp:        1000,
			daysSince: 3,
			want:      StreakCheck{Broken: true, MissedDays: 2, Decay: 100},
		},
		{
			name:      "decay caps at 25 percent",
			xp:        1000,
			daysSince: 10,
			want:      StreakCheck{Broken: true, MissedDays: 9, Decay: 250},
		},
		{
			name:      "negative xp clamped before decay",
			xp:        -400,
			daysSince: 5,
			want:      StreakCheck{Broken: true, MissedDays: 4, Decay: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tracker.Check(tt.xp, tt.daysSince, tt.graceUsed)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStreakAdvance(t *testing.T) {
	tracker := NewStreakTracker()

	tests := []struct {
		name      string
		streak    int
		daysSince int
		want      int
	}{
		{name: "same day unchanged", streak: 4, daysSince: 0, want: 4},
		{name: "next day increments", streak: 4, daysSince: 1, want: 5},
		{name: "gap resets to one", streak: 4, daysSince: 3, want: 1},
		{name: "no prior record starts at one", streak: 0, daysSince: -1, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tracker.Advance(tt.streak, tt.daysSince))
		})
	}
}

func TestCalendarDays(t *testing.T) {
	loc := time.UTC
	now := time.Date(2024, 3, 10, 8, 0, 0, 0, loc)

	assert.Equal(t, 0, CalendarDays(time.Date(2024, 3, 10, 1, 0, 0, 0, loc), now))
	assert.Equal(t, 1, CalendarDays(time.Date(2024, 3, 9, 23, 59, 0, 0, loc), now))
	assert.Equal(t, 3, CalendarDays(time.Date(2024, 3, 7, 12, 0, 0, 0, loc), now))
	assert.Equal(t, -1, CalendarDays(time.Time{}, now), "unset prior record")
}
