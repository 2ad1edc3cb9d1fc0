package progression

import "fmt"

// Rank codes ordered lowest to highest.
const (
	RankE        = "E"
	RankD        = "D"
	RankC        = "C"
	RankB        = "B"
	RankA        = "A"
	RankS        = "S"
	RankNational = "NATIONAL"
)

// RankThreshold is one row of the rank ladder.
type RankThreshold struct {
	Rank  string
	MinXP int64
	Color int
}

// RankTable maps total XP onto the rank ladder. The table is read-only after
// construction and must cover XP=0 with strictly increasing thresholds.
type RankTable struct {
	thresholds []RankThreshold
}

func NewRankTable(thresholds []RankThreshold) (*RankTable, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("rank table is empty")
	}
	if thresholds[0].MinXP != 0 {
		return nil, fmt.Errorf("rank table must cover XP=0, lowest threshold is %d", thresholds[0].MinXP)
	}
	for i := 1; i < len(thresholds); i++ {
		if thresholds[i].MinXP <= thresholds[i-1].MinXP {
			return nil, fmt.Errorf("rank thresholds must be strictly increasing: %s (%d) after %s (%d)",
				thresholds[i].Rank, thresholds[i].MinXP, thresholds[i-1].Rank, thresholds[i-1].MinXP)
		}
	}

	t := make([]RankThreshold, len(thresholds))
	copy(t, thresholds)
	return &RankTable{thresholds: t}, nil
}

// DefaultRankTable returns the production rank ladder.
func DefaultRankTable() *RankTable {
	table, err := NewRankTable([]RankThreshold{
		{Rank: RankE, MinXP: 0, Color: 0x808080},
		{Rank: RankD, MinXP: 500, Color: 0x8B4513},
		{Rank: RankC, MinXP: 1500, Color: 0x00FF00},
		{Rank: RankB, MinXP: 3500, Color: 0x0099FF},
		{Rank: RankA, MinXP: 7000, Color: 0x800080},
		{Rank: RankS, MinXP: 12000, Color: 0xFFD700},
		{Rank: RankNational, MinXP: 20000, Color: 0xFF0000},
	})
	if err != nil {
		panic(err)
	}
	return table
}

// RankFor returns the highest threshold with MinXP <= xp. Negative XP is
// clamped to zero, so the lookup is total.
func (t *RankTable) RankFor(xp int64) RankThreshold {
	if xp < 0 {
		xp = 0
	}
	for i := len(t.thresholds) - 1; i >= 0; i-- {
		if t.thresholds[i].MinXP <= xp {
			return t.thresholds[i]
		}
	}
	return t.thresholds[0]
}

// NextRank returns the threshold directly above the current rank, or false at
// the top of the ladder.
func (t *RankTable) NextRank(xp int64) (RankThreshold, bool) {
	current := t.RankFor(xp)
	for i, th := range t.thresholds {
		if th.Rank == current.Rank {
			if i+1 < len(t.thresholds) {
				return t.thresholds[i+1], true
			}
			break
		}
	}
	return RankThreshold{}, false
}

// ProgressFraction returns how far xp has advanced between the current rank
// and the next one, clamped to 1 at the top rank.
func (t *RankTable) ProgressFraction(xp int64) float64 {
	if xp < 0 {
		xp = 0
	}
	current := t.RankFor(xp)
	next, ok := t.NextRank(xp)
	if !ok {
		return 1
	}
	return float64(xp-current.MinXP) / float64(next.MinXP-current.MinXP)
}

// RanksUpTo returns every rank code at or below the given rank, lowest first.
// Unknown codes yield only the lowest rank.
func (t *RankTable) RanksUpTo(rank string) []string {
	ranks := make([]string, 0, len(t.thresholds))
	for _, th := range t.thresholds {
		ranks = append(ranks, th.Rank)
		if th.Rank == rank {
			return ranks
		}
	}
	return ranks[:1]
}

// Thresholds returns a copy of the ladder for display layers.
func (t *RankTable) Thresholds() []RankThreshold {
	out := make([]RankThreshold, len(t.thresholds))
	copy(out, t.thresholds)
	return out
}
