package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRankTableValidation(t *testing.T) {
	tests := []struct {
		name       string
		thresholds []RankThreshold
		wantErr    bool
	}{
		{
			name:    "empty table",
			wantErr: true,
		},
		{
			name: "does not cover zero",
			thresholds: []RankThreshold{
				{Rank: RankE, MinXP: 100},
			},
			wantErr: true,
		},
		{
			name: "not strictly increasing",
			thresholds: []RankThreshold{
				{Rank: RankE, MinXP: 0},
				{Rank: RankD, MinXP: 500},
				{Rank: RankC, MinXP: 500},
			},
			wantErr: true,
		},
		{
			name: "valid",
			thresholds: []RankThreshold{
				{Rank: RankE, MinXP: 0},
				{Rank: RankD, MinXP: 500},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRankTable(tt.thresholds)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRankForMonotonic(t *testing.T) {
	table := DefaultRankTable()

	// Every threshold boundary and its neighbors must resolve to the highest
	// threshold at or below the XP value.
	for _, th := range table.Thresholds() {
		got := table.RankFor(th.MinXP)
		assert.Equal(t, th.Rank, got.Rank, "at boundary %d", th.MinXP)
		assert.LessOrEqual(t, got.MinXP, th.MinXP)

		if th.MinXP > 0 {
			below := table.RankFor(th.MinXP - 1)
			assert.NotEqual(t, th.Rank, below.Rank, "just below boundary %d", th.MinXP)
			assert.Less(t, below.MinXP, th.MinXP)
		}
	}
}

func TestRankForClampsNegative(t *testing.T) {
	table := DefaultRankTable()
	assert.Equal(t, RankE, table.RankFor(-50).Rank)
}

func TestNextRank(t *testing.T) {
	table := DefaultRankTable()

	next, ok := table.NextRank(0)
	require.True(t, ok)
	assert.Equal(t, RankD, next.Rank)

	_, ok = table.NextRank(1_000_000)
	assert.False(t, ok, "top rank has no next")
}

func TestProgressFraction(t *testing.T) {
	table := DefaultRankTable()

	assert.InDelta(t, 0.5, table.ProgressFraction(250), 1e-9) // E(0) -> D(500)
	assert.Equal(t, 1.0, table.ProgressFraction(1_000_000), "clamped at top rank")
	assert.Equal(t, 0.0, table.ProgressFraction(-10))
}

func TestRanksUpTo(t *testing.T) {
	table := DefaultRankTable()

	assert.Equal(t, []string{RankE}, table.RanksUpTo(RankE))
	assert.Equal(t, []string{RankE, RankD, RankC}, table.RanksUpTo(RankC))
	assert.Equal(t, []string{RankE}, table.RanksUpTo("unknown"))
}
