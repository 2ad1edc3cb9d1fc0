package progression

import (
	"testing"
	"time"

	"github.com/arisefit/arise/arise/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionFixture(t *testing.T, templates []*models.QuestTemplate) *QuestSession {
	t.Helper()
	catalog, err := NewQuestCatalog(templates, triggersFor(templates...))
	require.NoError(t, err)
	return NewQuestSession(catalog, DefaultRankTable(), NewQuestSelector(NewSeededRand(1)))
}

func dailyTemplates(n int) []*models.QuestTemplate {
	out := make([]*models.QuestTemplate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, tmpl("daily_"+string(rune('a'+i)), models.ScopeDaily, models.DifficultyMedium, RankE))
	}
	return out
}

func TestRegenerateFreshUser(t *testing.T) {
	templates := append(dailyTemplates(5),
		tmpl("weekly_a", models.ScopeWeekly, models.DifficultyEasy, RankE),
		tmpl("weekly_b", models.ScopeWeekly, models.DifficultyMedium, RankE),
	)
	session := sessionFixture(t, templates)

	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC) // Wednesday
	user := &models.UserProgression{UserID: "u1"}

	result := session.Regenerate(user, nil, now)
	require.True(t, result.Changed)
	assert.Equal(t, QuestsPerDay, result.GeneratedDaily)
	assert.Equal(t, WeeklyQuests, result.GeneratedWeekly)
	require.Len(t, result.Instances, QuestsPerDay+WeeklyQuests)

	for _, inst := range result.Instances {
		assert.Equal(t, "u1", inst.UserID)
		assert.Zero(t, inst.Progress)
		switch inst.Scope {
		case models.ScopeDaily:
			assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), inst.ExpiresAt)
		case models.ScopeWeekly:
			assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), inst.ExpiresAt, "next Monday midnight")
		}
	}
}

func TestRegenerateNoOpWhileDailyValid(t *testing.T) {
	session := sessionFixture(t, append(dailyTemplates(5), tmpl("weekly_a", models.ScopeWeekly, models.DifficultyEasy, RankE)))
	user := &models.UserProgression{UserID: "u1"}

	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	first := session.Regenerate(user, nil, now)
	require.True(t, first.Changed)

	later := now.Add(4 * time.Hour)
	second := session.Regenerate(user, first.Instances, later)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Instances, second.Instances, "valid set must be returned untouched")
}

func TestRegenerateAfterExpiryKeepsWeekly(t *testing.T) {
	session := sessionFixture(t, append(dailyTemplates(5), tmpl("weekly_a", models.ScopeWeekly, models.DifficultyEasy, RankE)))
	user := &models.UserProgression{UserID: "u1"}

	wednesday := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	first := session.Regenerate(user, nil, wednesday)

	var weeklyID int64
	for _, inst := range first.Instances {
		if inst.Scope == models.ScopeWeekly {
			inst.ID = 99
			weeklyID = inst.ID
		}
	}

	thursday := time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC)
	second := session.Regenerate(user, first.Instances, thursday)
	require.True(t, second.Changed)
	assert.Equal(t, QuestsPerDay, second.GeneratedDaily)
	assert.Zero(t, second.GeneratedWeekly, "unexpired weekly must survive")

	var weeklies []*models.QuestInstance
	for _, inst := range second.Instances {
		if inst.Scope == models.ScopeWeekly {
			weeklies = append(weeklies, inst)
		}
	}
	require.Len(t, weeklies, 1)
	assert.Equal(t, weeklyID, weeklies[0].ID, "weekly instance replaced instead of kept")
}

func TestRegenerateCarriesTodaysCompletedDailies(t *testing.T) {
	session := sessionFixture(t, dailyTemplates(5))
	user := &models.UserProgression{UserID: "u1"}

	now := time.Date(2024, 3, 6, 18, 0, 0, 0, time.UTC)
	completedAt := now.Add(-2 * time.Hour)

	done := &models.QuestInstance{
		UserID:      "u1",
		QuestID:     "daily_a",
		Scope:       models.ScopeDaily,
		Target:      3,
		Progress:    3,
		Completed:   true,
		CompletedAt: &completedAt,
		ExpiresAt:   time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
	}
	yesterday := completedAt.AddDate(0, 0, -1)
	stale := &models.QuestInstance{
		UserID:      "u1",
		QuestID:     "daily_b",
		Scope:       models.ScopeDaily,
		Target:      3,
		Progress:    3,
		Completed:   true,
		CompletedAt: &yesterday,
		ExpiresAt:   time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
	}

	result := session.Regenerate(user, []*models.QuestInstance{done, stale}, now)
	require.True(t, result.Changed)

	var completed []*models.QuestInstance
	for _, inst := range result.Instances {
		if inst.Completed {
			completed = append(completed, inst)
		}
	}
	require.Len(t, completed, 1, "only today's completed quest stays for display")
	assert.Equal(t, "daily_a", completed[0].QuestID)
	assert.Len(t, result.Instances, 1+QuestsPerDay)
}

func TestRegenerateSmallPool(t *testing.T) {
	// Only two eligible daily templates: regeneration yields two instances,
	// not an error.
	session := sessionFixture(t, dailyTemplates(2))
	user := &models.UserProgression{UserID: "u1"}

	result := session.Regenerate(user, nil, time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC))
	require.True(t, result.Changed)
	assert.Equal(t, 2, result.GeneratedDaily)
}

func TestRegenerateRankGating(t *testing.T) {
	gated := tmpl("gated", models.ScopeDaily, models.DifficultyMedium, RankS)
	open := tmpl("open", models.ScopeDaily, models.DifficultyMedium, RankE)
	session := sessionFixture(t, []*models.QuestTemplate{gated, open})

	rookie := &models.UserProgression{UserID: "u1", XP: 0}
	result := session.Regenerate(rookie, nil, time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"open"}, questInstanceIDs(result.Instances))

	veteran := &models.UserProgression{UserID: "u2", XP: 15000}
	result = session.Regenerate(veteran, nil, time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC))
	assert.ElementsMatch(t, []string{"open", "gated"}, questInstanceIDs(result.Instances))
}

func questInstanceIDs(instances []*models.QuestInstance) []string {
	ids := make([]string, 0, len(instances))
	for _, inst := range instances {
		ids = append(ids, inst.QuestID)
	}
	return ids
}

func TestNextBoundaries(t *testing.T) {
	wednesday := time.Date(2024, 3, 6, 23, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC), NextDailyBoundary(wednesday))
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), NextWeeklyBoundary(wednesday))

	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), NextWeeklyBoundary(monday), "on the boundary, jump a full week")
}
