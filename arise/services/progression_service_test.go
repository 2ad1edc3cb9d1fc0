package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/arisefit/arise/arise/database"
	"github.com/arisefit/arise/arise/database/models"
	"github.com/arisefit/arise/arise/progression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory repositories. Stored records are copied on write and read so the
// fakes behave like a real store: mutating a loaded value never leaks into
// the "database" until it is saved again.

type memProgressionRepo struct {
	mu     sync.Mutex
	states map[string]models.UserProgression
	nextID int64
}

func newMemProgressionRepo() *memProgressionRepo {
	return &memProgressionRepo{states: make(map[string]models.UserProgression)}
}

func (r *memProgressionRepo) Create(_ context.Context, state *models.UserProgression) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	state.ID = r.nextID
	r.states[state.UserID] = *state
	return nil
}

func (r *memProgressionRepo) GetByUserID(_ context.Context, userID string) (*models.UserProgression, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[userID]
	if !ok {
		return nil, errNotFound
	}
	out := state
	return &out, nil
}

func (r *memProgressionRepo) GetOrCreate(ctx context.Context, userID string) (*models.UserProgression, error) {
	if state, err := r.GetByUserID(ctx, userID); err == nil {
		return state, nil
	}
	state := &models.UserProgression{UserID: userID}
	if err := r.Create(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *memProgressionRepo) Update(_ context.Context, state *models.UserProgression) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[state.UserID] = *state
	return nil
}

func (r *memProgressionRepo) GetTopByXP(_ context.Context, limit int) ([]*models.UserProgression, error) {
	return nil, nil
}

func (r *memProgressionRepo) GetAllUserIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.states))
	for id := range r.states {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memProgressionRepo) ResetWeeklyGrace(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, state := range r.states {
		if state.GraceUsedThisWeek {
			state.GraceUsedThisWeek = false
			r.states[id] = state
			n++
		}
	}
	return n, nil
}

type memQuestRepo struct {
	mu        sync.Mutex
	instances map[string][]models.QuestInstance
	templates []*models.QuestTemplate
	nextID    int64
}

func newMemQuestRepo(templates []*models.QuestTemplate) *memQuestRepo {
	return &memQuestRepo{
		instances: make(map[string][]models.QuestInstance),
		templates: templates,
	}
}

func (r *memQuestRepo) GetAllTemplates(_ context.Context) ([]*models.QuestTemplate, error) {
	return r.templates, nil
}

func (r *memQuestRepo) CreateTemplate(_ context.Context, template *models.QuestTemplate) error {
	r.templates = append(r.templates, template)
	return nil
}

func (r *memQuestRepo) CountTemplates(_ context.Context) (int, error) {
	return len(r.templates), nil
}

func (r *memQuestRepo) GetInstances(_ context.Context, userID string) ([]*models.QuestInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.QuestInstance, 0, len(r.instances[userID]))
	for _, inst := range r.instances[userID] {
		copied := inst
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memQuestRepo) ReplaceInstances(_ context.Context, userID string, instances []*models.QuestInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := make([]models.QuestInstance, 0, len(instances))
	for _, inst := range instances {
		r.nextID++
		inst.ID = r.nextID
		stored = append(stored, *inst)
	}
	r.instances[userID] = stored
	return nil
}

func (r *memQuestRepo) UpdateInstance(_ context.Context, instance *models.QuestInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for userID, list := range r.instances {
		for i, inst := range list {
			if inst.ID == instance.ID {
				r.instances[userID][i] = *instance
				return nil
			}
		}
	}
	return errNotFound
}

func (r *memQuestRepo) DeleteExpiredInstances(_ context.Context, before time.Time) (int64, error) {
	return 0, nil
}

var errNotFound = errors.New("not found")

// flakyProgressionRepo fails a set number of Update calls, then recovers.
type flakyProgressionRepo struct {
	*memProgressionRepo
	failures int
}

func (r *flakyProgressionRepo) Update(ctx context.Context, state *models.UserProgression) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset")
	}
	return r.memProgressionRepo.Update(ctx, state)
}

func newTestService(t *testing.T) (*ProgressionService, *memProgressionRepo, *memQuestRepo) {
	t.Helper()

	templates := database.SeedTemplates()
	catalog, err := progression.NewQuestCatalog(templates, database.DefaultTriggers())
	require.NoError(t, err)

	progressionRepo := newMemProgressionRepo()
	questRepo := newMemQuestRepo(templates)

	svc := NewProgressionService(
		progressionRepo,
		questRepo,
		nil,
		catalog,
		progression.DefaultRankTable(),
		progression.NewSeededRand(11),
	)
	return svc, progressionRepo, questRepo
}

func TestLogWorkoutFirstWorkout(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	result, err := svc.LogWorkout(ctx, "u1", 100, now)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Streak, "first workout starts a streak")
	// streak 1 -> multiplier 1.1, round(50*1.1)=55, +20 first-of-day bonus
	assert.Equal(t, int64(50), result.XP.Base)
	assert.InDelta(t, 1.1, result.XP.Multiplier, 1e-9)
	assert.Equal(t, int64(75), result.XP.Total)
	assert.False(t, result.StreakBroken)

	state, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, state.XP, int64(75))
	assert.Equal(t, now, state.LastActiveAt)
}

func TestLogWorkoutSameDayNoFirstBonus(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	_, err := svc.LogWorkout(ctx, "u1", 100, now)
	require.NoError(t, err)

	result, err := svc.LogWorkout(ctx, "u1", 100, now.Add(2*time.Hour))
	require.NoError(t, err)

	assert.Zero(t, result.XP.FirstBonus, "second workout of the day has no first-of-day bonus")
	assert.Equal(t, 1, result.Streak, "same day does not extend the streak")
}

func TestLogWorkoutConsecutiveDaysExtendStreak(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	day1 := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	_, err := svc.LogWorkout(ctx, "u1", 100, day1)
	require.NoError(t, err)

	result, err := svc.LogWorkout(ctx, "u1", 100, day1.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Streak)

	result, err = svc.LogWorkout(ctx, "u1", 100, day1.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Streak)
}

func TestLogWorkoutGraceThenBreak(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	day1 := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	_, err := svc.LogWorkout(ctx, "u1", 200, day1)
	require.NoError(t, err)

	// Two-day gap: grace absorbs the miss, streak survives.
	result, err := svc.LogWorkout(ctx, "u1", 200, day1.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.True(t, result.GraceUsed)
	assert.False(t, result.StreakBroken)
	assert.Zero(t, result.DecayedXP)
	assert.Equal(t, 2, result.Streak, "grace day continues the streak")

	state, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, state.GraceUsedThisWeek)

	// Another two-day gap with grace spent: streak breaks and XP decays.
	xpBefore := state.XP
	result, err = svc.LogWorkout(ctx, "u1", 200, day1.AddDate(0, 0, 4))
	require.NoError(t, err)
	assert.True(t, result.StreakBroken)
	assert.Equal(t, 1, result.Streak, "streak restarts at one")

	wantDecay := int64(float64(xpBefore) * 0.05)
	assert.InDelta(t, float64(wantDecay), float64(result.DecayedXP), 1)
}

func TestLogMealAdvancesNutritionQuests(t *testing.T) {
	svc, _, questRepo := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 6, 8, 0, 0, 0, time.UTC)

	_, err := svc.LogMeal(ctx, "u1", now)
	require.NoError(t, err)

	instances, err := questRepo.GetInstances(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, instances, "quest set generated lazily on first activity")

	for _, inst := range instances {
		if inst.QuestID == "daily_meals_3" || inst.QuestID == "daily_meals_4" || inst.QuestID == "weekly_meals_15" {
			assert.Equal(t, 1, inst.Progress, "meal advanced %s", inst.QuestID)
		}
	}
}

func TestReloadYieldsIdenticalOutputs(t *testing.T) {
	// The stored record carries all state: reloading and re-running produces
	// the same rank and progress with no hidden derived state.
	svc, repo, questRepo := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	_, err := svc.LogWorkout(ctx, "u1", 250, now)
	require.NoError(t, err)

	before, err := svc.GetQuestStatus(ctx, "u1", now.Add(time.Hour))
	require.NoError(t, err)

	// Fresh service over the same stores simulates a restart (empty cache).
	templates := database.SeedTemplates()
	catalog, err := progression.NewQuestCatalog(templates, database.DefaultTriggers())
	require.NoError(t, err)
	reloaded := NewProgressionService(repo, questRepo, nil, catalog, progression.DefaultRankTable(), progression.NewSeededRand(11))

	after, err := reloaded.GetQuestStatus(ctx, "u1", now.Add(time.Hour))
	require.NoError(t, err)

	assert.Equal(t, before.Rank, after.Rank)
	assert.Equal(t, before.XP, after.XP)
	assert.Equal(t, before.Streak, after.Streak)
	require.Equal(t, len(before.DailyQuests), len(after.DailyQuests))
	for i := range before.DailyQuests {
		assert.Equal(t, before.DailyQuests[i].QuestID, after.DailyQuests[i].QuestID)
		assert.Equal(t, before.DailyQuests[i].Progress, after.DailyQuests[i].Progress)
	}
}

func TestFailedSaveDoesNotServeUnsavedState(t *testing.T) {
	// A write failure must not leave mutated state in the cache: reads after
	// the error report what the store holds, not the rolled-back attempt.
	templates := database.SeedTemplates()
	catalog, err := progression.NewQuestCatalog(templates, database.DefaultTriggers())
	require.NoError(t, err)

	repo := &flakyProgressionRepo{memProgressionRepo: newMemProgressionRepo()}
	questRepo := newMemQuestRepo(templates)
	svc := NewProgressionService(repo, questRepo, nil, catalog, progression.DefaultRankTable(), progression.NewSeededRand(11))

	ctx := context.Background()
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	_, err = svc.LogWorkout(ctx, "u1", 100, now)
	require.NoError(t, err)

	stored, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)

	repo.failures = 1
	_, err = svc.LogWorkout(ctx, "u1", 100, now.Add(time.Hour))
	require.Error(t, err)

	status, err := svc.GetQuestStatus(ctx, "u1", now.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, stored.XP, status.XP, "failed save must not change the XP later reads see")
	assert.Equal(t, stored.Streak, status.Streak)

	// The store recovers; the next workout builds on the stored state.
	result, err := svc.LogWorkout(ctx, "u1", 100, now.Add(3*time.Hour))
	require.NoError(t, err)

	expected := stored.XP + result.XP.Total
	for _, c := range result.CompletedQuests {
		expected += c.XPReward
	}
	assert.Equal(t, expected, mustGet(t, repo, "u1").XP)
}

func mustGet(t *testing.T, repo *flakyProgressionRepo, userID string) *models.UserProgression {
	t.Helper()
	state, err := repo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return state
}

func TestGetQuestStatusRegeneratesLazily(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	wednesday := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)
	status, err := svc.GetQuestStatus(ctx, "u1", wednesday)
	require.NoError(t, err)
	require.NotEmpty(t, status.DailyQuests)
	firstSet := make([]string, 0, len(status.DailyQuests))
	for _, q := range status.DailyQuests {
		firstSet = append(firstSet, q.QuestID)
	}

	// Same day: unchanged.
	again, err := svc.GetQuestStatus(ctx, "u1", wednesday.Add(6*time.Hour))
	require.NoError(t, err)
	sameSet := make([]string, 0, len(again.DailyQuests))
	for _, q := range again.DailyQuests {
		sameSet = append(sameSet, q.QuestID)
	}
	assert.Equal(t, firstSet, sameSet)

	// Next day: dailies rolled, weekly survives.
	thursday := wednesday.AddDate(0, 0, 1)
	rolled, err := svc.GetQuestStatus(ctx, "u1", thursday)
	require.NoError(t, err)
	assert.NotEmpty(t, rolled.DailyQuests)
	assert.Len(t, rolled.WeeklyQuests, len(again.WeeklyQuests))
	for _, q := range rolled.DailyQuests {
		assert.Zero(t, q.Progress)
		assert.False(t, q.Completed)
	}
}

func TestResetWeeklyGrace(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	day1 := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	_, err := svc.LogWorkout(ctx, "u1", 100, day1)
	require.NoError(t, err)
	_, err = svc.LogWorkout(ctx, "u1", 100, day1.AddDate(0, 0, 2))
	require.NoError(t, err)

	state, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	require.True(t, state.GraceUsedThisWeek)

	require.NoError(t, svc.ResetWeeklyGrace(ctx))

	state, err = repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, state.GraceUsedThisWeek)
}

func TestConcurrentWorkoutsSameUserSerialized(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC)

	const workers = 8
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.LogWorkout(ctx, "u1", 100, now)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// streak 1 all day: one first-of-day bonus (75), seven plain grants (55),
	// plus whatever quest rewards completed. XP must reflect all eight calls.
	state, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, state.XP, int64(75+7*55), "no lost updates under concurrency")
}
