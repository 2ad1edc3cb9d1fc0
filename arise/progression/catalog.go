package progression

import (
	"fmt"

	"github.com/arisefit/arise/arise/database/models"
)

// Difficulty weights for quest selection. Medium quests dominate the draw,
// hard quests stay rare.
const (
	weightEasy   = 3
	weightMedium = 5
	weightHard   = 2
)

// DifficultyWeight maps a template difficulty onto its selection weight.
// Unknown difficulties fall back to the minimum weight rather than erroring.
func DifficultyWeight(difficulty string) int {
	switch difficulty {
	case models.DifficultyEasy:
		return weightEasy
	case models.DifficultyMedium:
		return weightMedium
	case models.DifficultyHard:
		return weightHard
	default:
		return 1
	}
}

// QuestCatalog is the immutable pool of quest templates plus the
// questID -> trigger-category map that routes activity events into quest
// progress. Both are validated once at construction so a template that could
// never advance is a startup failure, not a quest that silently stalls.
type QuestCatalog struct {
	templates []*models.QuestTemplate
	byID      map[string]*models.QuestTemplate
	triggers  map[string]string
}

func NewQuestCatalog(templates []*models.QuestTemplate, triggers map[string]string) (*QuestCatalog, error) {
	byID := make(map[string]*models.QuestTemplate, len(templates))

	for _, tmpl := range templates {
		if tmpl.QuestID == "" {
			return nil, fmt.Errorf("quest template %q has no quest id", tmpl.Title)
		}
		if _, exists := byID[tmpl.QuestID]; exists {
			return nil, fmt.Errorf("duplicate quest id %q", tmpl.QuestID)
		}
		if tmpl.Scope != models.ScopeDaily && tmpl.Scope != models.ScopeWeekly {
			return nil, fmt.Errorf("quest %q has unknown scope %q", tmpl.QuestID, tmpl.Scope)
		}
		if tmpl.Target <= 0 {
			return nil, fmt.Errorf("quest %q has non-positive target %d", tmpl.QuestID, tmpl.Target)
		}
		if tmpl.XPReward <= 0 {
			return nil, fmt.Errorf("quest %q has non-positive xp reward %d", tmpl.QuestID, tmpl.XPReward)
		}
		if tmpl.Active {
			if _, ok := triggers[tmpl.QuestID]; !ok {
				return nil, fmt.Errorf("quest %q has no trigger category mapping", tmpl.QuestID)
			}
		}
		byID[tmpl.QuestID] = tmpl
	}

	pool := make([]*models.QuestTemplate, len(templates))
	copy(pool, templates)

	trig := make(map[string]string, len(triggers))
	for id, category := range triggers {
		trig[id] = category
	}

	return &QuestCatalog{
		templates: pool,
		byID:      byID,
		triggers:  trig,
	}, nil
}

// TemplatesFor returns the active templates of the given scope whose minimum
// rank is within the eligible set.
func (c *QuestCatalog) TemplatesFor(scope string, eligibleRanks []string) []*models.QuestTemplate {
	eligible := make(map[string]bool, len(eligibleRanks))
	for _, r := range eligibleRanks {
		eligible[r] = true
	}

	var out []*models.QuestTemplate
	for _, tmpl := range c.templates {
		if !tmpl.Active || tmpl.Scope != scope {
			continue
		}
		if !eligible[tmpl.MinimumRank] {
			continue
		}
		out = append(out, tmpl)
	}
	return out
}

// TriggerFor resolves the activity category that advances the given quest.
// A missing mapping is a silent no-op at call time; catalog construction
// already guarantees every active template has one.
func (c *QuestCatalog) TriggerFor(questID string) (string, bool) {
	category, ok := c.triggers[questID]
	return category, ok
}

// Template looks up a template by quest id.
func (c *QuestCatalog) Template(questID string) (*models.QuestTemplate, bool) {
	tmpl, ok := c.byID[questID]
	return tmpl, ok
}

// Templates returns every template in the catalog, for search and display.
func (c *QuestCatalog) Templates() []*models.QuestTemplate {
	out := make([]*models.QuestTemplate, len(c.templates))
	copy(out, c.templates)
	return out
}
