package progression

import (
	"time"

	"github.com/arisefit/arise/arise/database/models"
)

const (
	// QuestsPerDay is how many daily quest instances a regeneration produces.
	QuestsPerDay = 3
	// WeeklyQuests is how many weekly quest instances a user holds at once.
	WeeklyQuests = 1
)

// RegenerateResult reports what a session regeneration did. Changed is false
// for the pure no-op path, so callers can skip the write-back entirely.
type RegenerateResult struct {
	Instances       []*models.QuestInstance
	GeneratedDaily  int
	GeneratedWeekly int
	Changed         bool
}

// QuestSession lazily refreshes a user's active quest instances. There is no
// scheduler: expiry is detected on the next access, and a valid set is left
// completely untouched.
type QuestSession struct {
	catalog  *QuestCatalog
	ranks    *RankTable
	selector *QuestSelector
}

func NewQuestSession(catalog *QuestCatalog, ranks *RankTable, selector *QuestSelector) *QuestSession {
	return &QuestSession{
		catalog:  catalog,
		ranks:    ranks,
		selector: selector,
	}
}

// Regenerate ensures the user's instance list is current at the given time.
// While at least one unexpired, incomplete daily instance exists the call is
// a no-op. Otherwise daily instances completed today are carried over for
// display, the rest are discarded, and fresh dailies are sampled from the
// templates the user's rank unlocks. The weekly instance is replaced only
// once it has expired. An undersized eligible pool yields fewer instances,
// never an error.
func (s *QuestSession) Regenerate(user *models.UserProgression, instances []*models.QuestInstance, now time.Time) RegenerateResult {
	for _, inst := range instances {
		if inst.Scope == models.ScopeDaily && inst.Advanceable(now) {
			return RegenerateResult{Instances: instances}
		}
	}

	var carried []*models.QuestInstance
	var weekly []*models.QuestInstance
	for _, inst := range instances {
		switch inst.Scope {
		case models.ScopeDaily:
			if inst.Completed && completedOn(inst, now) && !inst.Expired(now) {
				carried = append(carried, inst)
			}
		case models.ScopeWeekly:
			if !inst.Expired(now) {
				weekly = append(weekly, inst)
			}
		}
	}

	eligible := s.ranks.RanksUpTo(s.ranks.RankFor(user.XP).Rank)

	dailyPool := s.catalog.TemplatesFor(models.ScopeDaily, eligible)
	newDaily := s.instantiate(user.UserID, s.selector.Sample(dailyPool, QuestsPerDay), NextDailyBoundary(now), now)

	generatedWeekly := 0
	if len(weekly) == 0 {
		weeklyPool := s.catalog.TemplatesFor(models.ScopeWeekly, eligible)
		weekly = s.instantiate(user.UserID, s.selector.Sample(weeklyPool, WeeklyQuests), NextWeeklyBoundary(now), now)
		generatedWeekly = len(weekly)
	}

	out := make([]*models.QuestInstance, 0, len(carried)+len(newDaily)+len(weekly))
	out = append(out, carried...)
	out = append(out, newDaily...)
	out = append(out, weekly...)

	return RegenerateResult{
		Instances:       out,
		GeneratedDaily:  len(newDaily),
		GeneratedWeekly: generatedWeekly,
		Changed:         true,
	}
}

func (s *QuestSession) instantiate(userID string, templates []*models.QuestTemplate, expiresAt, now time.Time) []*models.QuestInstance {
	instances := make([]*models.QuestInstance, 0, len(templates))
	for _, tmpl := range templates {
		instances = append(instances, &models.QuestInstance{
			UserID:      userID,
			QuestID:     tmpl.QuestID,
			Scope:       tmpl.Scope,
			Title:       tmpl.Title,
			Description: tmpl.Description,
			Icon:        tmpl.Icon,
			Target:      tmpl.Target,
			Progress:    0,
			XPReward:    tmpl.XPReward,
			ExpiresAt:   expiresAt,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return instances
}

func completedOn(inst *models.QuestInstance, now time.Time) bool {
	if inst.CompletedAt == nil {
		return false
	}
	day := truncateToDay(now)
	completed := truncateToDay(inst.CompletedAt.In(now.Location()))
	return completed.Equal(day)
}

// NextDailyBoundary returns the upcoming daily reset: midnight after now.
func NextDailyBoundary(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}

// NextWeeklyBoundary returns the upcoming weekly reset: next Monday at
// midnight.
func NextWeeklyBoundary(now time.Time) time.Time {
	days := (7 - int(now.Weekday()) + 1) % 7
	if days == 0 {
		days = 7
	}
	return time.Date(now.Year(), now.Month(), now.Day()+days, 0, 0, 0, 0, now.Location())
}
