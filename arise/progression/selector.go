package progression

import (
	"math/rand"
	"time"

	"github.com/arisefit/arise/arise/database/models"
)

// RandSource yields uniform ints in [0, n). It is injected rather than read
// from a package-level generator so selections can be seeded in tests.
type RandSource interface {
	IntN(n int) int
}

type mathRandSource struct {
	r *rand.Rand
}

func (s *mathRandSource) IntN(n int) int {
	return s.r.Intn(n)
}

// NewSeededRand returns a RandSource with a fixed seed, for reproducible
// selections.
func NewSeededRand(seed int64) RandSource {
	return &mathRandSource{r: rand.New(rand.NewSource(seed))}
}

// NewTimeRand returns a RandSource seeded from the wall clock.
func NewTimeRand() RandSource {
	return NewSeededRand(time.Now().UnixNano())
}

// QuestSelector draws quest templates by difficulty weight without
// replacement: draw over the sum of remaining weights, walk the pool
// subtracting until the draw lands, remove the pick, repeat. O(k*N), which is
// fine for catalogs of tens of templates.
type QuestSelector struct {
	rng RandSource
}

func NewQuestSelector(rng RandSource) *QuestSelector {
	return &QuestSelector{rng: rng}
}

// Sample selects up to k templates from the pool. When the pool is no larger
// than k the whole pool is returned without consulting the random source at
// all, so a broken generator cannot affect the degenerate case.
func (s *QuestSelector) Sample(pool []*models.QuestTemplate, k int) []*models.QuestTemplate {
	if k <= 0 {
		return nil
	}
	if len(pool) <= k {
		out := make([]*models.QuestTemplate, len(pool))
		copy(out, pool)
		return out
	}

	remaining := make([]*models.QuestTemplate, len(pool))
	copy(remaining, pool)

	selected := make([]*models.QuestTemplate, 0, k)
	for len(selected) < k {
		total := 0
		for _, tmpl := range remaining {
			total += DifficultyWeight(tmpl.Difficulty)
		}

		r := s.rng.IntN(total)
		for i, tmpl := range remaining {
			r -= DifficultyWeight(tmpl.Difficulty)
			if r < 0 {
				selected = append(selected, tmpl)
				remaining = append(remaining[:i], remaining[i+1:]...)
				break
			}
		}
	}

	return selected
}
