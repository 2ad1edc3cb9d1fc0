package progression

import (
	"time"

	"github.com/arisefit/arise/arise/database/models"
)

// ActivityEvent is an already-validated activity handed to the engine by the
// logging surfaces. Magnitude carries whatever unit the category counts in
// (calories for workouts, servings for nutrition, days for streaks).
type ActivityEvent struct {
	Category   string
	Magnitude  int
	OccurredAt time.Time
}

// QuestCompletion records one quest finishing during an Advance call.
type QuestCompletion struct {
	QuestID  string
	Title    string
	XPReward int64
}

// ProgressRouter maps activity events onto active quest instances and grants
// XP on completion. It mutates only the state handed to it; persisting the
// result is the caller's job.
type ProgressRouter struct {
	catalog *QuestCatalog
	ranks   *RankTable
}

func NewProgressRouter(catalog *QuestCatalog, ranks *RankTable) *ProgressRouter {
	return &ProgressRouter{catalog: catalog, ranks: ranks}
}

// Advance routes the event to every active, incomplete, unexpired instance
// whose trigger category matches. Progress never overshoots the target, a
// completed instance never re-triggers, and the reward is granted exactly
// once, at the moment progress reaches the target.
func (r *ProgressRouter) Advance(user *models.UserProgression, instances []*models.QuestInstance, event ActivityEvent) []QuestCompletion {
	magnitude := event.Magnitude
	if magnitude < 0 {
		magnitude = 0
	}

	now := event.OccurredAt

	var completions []QuestCompletion
	for _, inst := range instances {
		if !inst.Advanceable(now) {
			continue
		}

		trigger, ok := r.catalog.TriggerFor(inst.QuestID)
		if !ok || trigger != event.Category {
			continue
		}

		step := magnitude
		if remaining := inst.Target - inst.Progress; step > remaining {
			step = remaining
		}
		if step <= 0 {
			continue
		}

		inst.Progress += step
		inst.UpdatedAt = now

		if inst.Progress >= inst.Target {
			inst.Completed = true
			completedAt := now
			inst.CompletedAt = &completedAt

			user.XP += inst.XPReward

			completions = append(completions, QuestCompletion{
				QuestID:  inst.QuestID,
				Title:    inst.Title,
				XPReward: inst.XPReward,
			})
		}
	}

	return completions
}

// RankUp compares the rank before and after an XP change and returns the new
// threshold when the rank moved.
func (r *ProgressRouter) RankUp(oldXP, newXP int64) (RankThreshold, bool) {
	before := r.ranks.RankFor(oldXP)
	after := r.ranks.RankFor(newXP)
	if before.Rank == after.Rank {
		return RankThreshold{}, false
	}
	return after, true
}
