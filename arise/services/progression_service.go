package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/arisefit/arise/arise/database/models"
	"github.com/arisefit/arise/arise/database/repositories"
	"github.com/arisefit/arise/arise/logger"
	"github.com/arisefit/arise/arise/progression"
	lru "github.com/hashicorp/golang-lru"
)

const (
	stateCacheSize = 4096
	lockStripes    = 256
)

// ProgressionService is the read-modify-write shell around the pure
// progression engine: it loads a user's state and quest instances, runs the
// streak/XP/quest transitions, and persists the result. Concurrent calls for
// the same user are serialized through a per-user lock; different users
// proceed in parallel.
type ProgressionService struct {
	progressionRepo repositories.ProgressionRepository
	questRepo       repositories.QuestRepository
	leaderboards    *LeaderboardService

	catalog  *progression.QuestCatalog
	ranks    *progression.RankTable
	session  *progression.QuestSession
	router   *progression.ProgressRouter
	calc     *progression.XPCalculator
	streaks  *progression.StreakTracker
	selector *progression.QuestSelector

	cache *lru.Cache // userID -> *models.UserProgression

	locks [lockStripes]sync.Mutex
}

func NewProgressionService(
	progressionRepo repositories.ProgressionRepository,
	questRepo repositories.QuestRepository,
	leaderboards *LeaderboardService,
	catalog *progression.QuestCatalog,
	ranks *progression.RankTable,
	rng progression.RandSource,
) *ProgressionService {
	cache, _ := lru.New(stateCacheSize)
	selector := progression.NewQuestSelector(rng)

	return &ProgressionService{
		progressionRepo: progressionRepo,
		questRepo:       questRepo,
		leaderboards:    leaderboards,
		catalog:         catalog,
		ranks:           ranks,
		session:         progression.NewQuestSession(catalog, ranks, selector),
		router:          progression.NewProgressRouter(catalog, ranks),
		calc:            progression.NewXPCalculator(),
		streaks:         progression.NewStreakTracker(),
		selector:        selector,
		cache:           cache,
	}
}

// WorkoutResult is everything a logging surface needs to render the outcome
// of one workout: the XP breakdown, streak transitions and quest completions.
type WorkoutResult struct {
	XP              progression.XPBreakdown
	Streak          int
	StreakBroken    bool
	GraceUsed       bool
	DecayedXP       int64
	CompletedQuests []progression.QuestCompletion
	NewRank         *progression.RankThreshold
}

// LogWorkout applies one workout to the user's progression state.
func (s *ProgressionService) LogWorkout(ctx context.Context, userID string, caloriesBurned int, occurredAt time.Time) (*WorkoutResult, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	now := occurredAt
	if now.IsZero() {
		now = time.Now()
	}

	state, instances, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	oldXP := state.XP
	days := progression.CalendarDays(state.LastActiveAt, now)

	result := &WorkoutResult{}

	check := s.streaks.Check(state.XP, days, state.GraceUsedThisWeek)
	switch {
	case check.UseGrace:
		state.GraceUsedThisWeek = true
		result.GraceUsed = true
		slog.Info("Streak grace consumed",
			slog.String("user_id", userID),
			slog.Int("days_since_active", days))
	case check.Broken:
		state.XP -= check.Decay
		if state.XP < 0 {
			state.XP = 0
		}
		state.Streak = 0
		result.StreakBroken = true
		result.DecayedXP = check.Decay
		slog.Info("Streak broken, XP decayed",
			slog.String("user_id", userID),
			slog.Int("missed_days", check.MissedDays),
			slog.Int64("decay", check.Decay))
	}

	firstToday := days != 0
	advanceDays := days
	if check.UseGrace {
		// The exempted day doesn't count as a gap; today continues the streak.
		advanceDays = 1
	}
	state.Streak = s.streaks.Advance(state.Streak, advanceDays)
	result.Streak = state.Streak

	breakdown := s.calc.WorkoutXP(caloriesBurned, state.Streak, firstToday)
	state.XP += breakdown.Total
	result.XP = breakdown

	regen := s.session.Regenerate(state, instances, now)
	instances = regen.Instances

	completions := s.router.Advance(state, instances, progression.ActivityEvent{
		Category:   models.CategoryWorkout,
		Magnitude:  caloriesBurned,
		OccurredAt: now,
	})
	if firstToday {
		// The streak extended to a new calendar day; streak quests count days.
		completions = append(completions, s.router.Advance(state, instances, progression.ActivityEvent{
			Category:   models.CategoryStreak,
			Magnitude:  1,
			OccurredAt: now,
		})...)
	}
	result.CompletedQuests = completions

	state.LastActiveAt = now

	if err := s.save(ctx, userID, state, instances, regen.Changed); err != nil {
		return nil, err
	}

	if rank, ok := s.router.RankUp(oldXP, state.XP); ok {
		result.NewRank = &rank
		slog.Info("Rank changed",
			slog.String("user_id", userID),
			slog.String("rank", rank.Rank),
			slog.Int64("xp", state.XP))
	}

	if len(completions) > 0 && s.leaderboards != nil {
		s.leaderboards.RecordCompletions(ctx, userID, completions, now)
	}

	slog.Info("Workout logged",
		slog.String("user_id", userID),
		slog.Int("calories", caloriesBurned),
		slog.Int64("xp_gained", breakdown.Total),
		slog.Int("streak", state.Streak),
		slog.Int("completed_quests", len(completions)))

	return result, nil
}

// ActivityResult reports quest movement from a non-workout activity.
type ActivityResult struct {
	CompletedQuests []progression.QuestCompletion
	NewRank         *progression.RankThreshold
}

// LogMeal advances nutrition quests by one logged meal. Meals do not feed the
// streak or the workout XP formula; only quest rewards grant XP here.
func (s *ProgressionService) LogMeal(ctx context.Context, userID string, occurredAt time.Time) (*ActivityResult, error) {
	return s.logActivity(ctx, userID, models.CategoryNutrition, 1, occurredAt)
}

// RecordSocialInteraction advances social quests (cheers, encouragements).
func (s *ProgressionService) RecordSocialInteraction(ctx context.Context, userID string, count int, occurredAt time.Time) (*ActivityResult, error) {
	return s.logActivity(ctx, userID, models.CategorySocial, count, occurredAt)
}

func (s *ProgressionService) logActivity(ctx context.Context, userID, category string, magnitude int, occurredAt time.Time) (*ActivityResult, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	started := time.Now()
	now := occurredAt
	if now.IsZero() {
		now = started
	}

	state, instances, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	oldXP := state.XP

	regen := s.session.Regenerate(state, instances, now)
	instances = regen.Instances

	completions := s.router.Advance(state, instances, progression.ActivityEvent{
		Category:   category,
		Magnitude:  magnitude,
		OccurredAt: now,
	})

	if err := s.save(ctx, userID, state, instances, regen.Changed); err != nil {
		return nil, err
	}

	result := &ActivityResult{CompletedQuests: completions}
	if rank, ok := s.router.RankUp(oldXP, state.XP); ok {
		result.NewRank = &rank
	}

	if len(completions) > 0 && s.leaderboards != nil {
		s.leaderboards.RecordCompletions(ctx, userID, completions, now)
	}

	logger.LogActivity(category, userID, time.Since(started), nil)

	return result, nil
}

// QuestStatus is the display view of a user's active quests and rank.
type QuestStatus struct {
	DailyQuests  []*models.QuestInstance
	WeeklyQuests []*models.QuestInstance
	Rank         progression.RankThreshold
	NextRank     *progression.RankThreshold
	RankProgress float64
	XP           int64
	Streak       int
}

// GetQuestStatus returns the user's current quest set, regenerating it first
// when the daily window has rolled over.
func (s *ProgressionService) GetQuestStatus(ctx context.Context, userID string, now time.Time) (*QuestStatus, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	if now.IsZero() {
		now = time.Now()
	}

	state, instances, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	regen := s.session.Regenerate(state, instances, now)
	instances = regen.Instances

	if regen.Changed {
		if err := s.save(ctx, userID, state, instances, true); err != nil {
			return nil, err
		}
		slog.Debug("Quest set regenerated on read",
			slog.String("user_id", userID),
			slog.Int("daily", regen.GeneratedDaily),
			slog.Int("weekly", regen.GeneratedWeekly))
	}

	status := &QuestStatus{
		Rank:         s.ranks.RankFor(state.XP),
		RankProgress: s.ranks.ProgressFraction(state.XP),
		XP:           state.XP,
		Streak:       state.Streak,
	}
	if next, ok := s.ranks.NextRank(state.XP); ok {
		status.NextRank = &next
	}

	for _, inst := range instances {
		switch inst.Scope {
		case models.ScopeDaily:
			status.DailyQuests = append(status.DailyQuests, inst)
		case models.ScopeWeekly:
			status.WeeklyQuests = append(status.WeeklyQuests, inst)
		}
	}

	return status, nil
}

// ResetWeeklyGrace clears every user's streak grace flag. Run at the weekly
// boundary by the operator; the engine only ever consumes the flag.
func (s *ProgressionService) ResetWeeklyGrace(ctx context.Context) error {
	affected, err := s.progressionRepo.ResetWeeklyGrace(ctx)
	if err != nil {
		return fmt.Errorf("failed to reset weekly grace flags: %w", err)
	}

	s.cache.Purge()

	slog.Info("Weekly grace flags reset",
		slog.Int64("users", affected))
	return nil
}

func (s *ProgressionService) load(ctx context.Context, userID string) (*models.UserProgression, []*models.QuestInstance, error) {
	var state *models.UserProgression
	if cached, ok := s.cache.Get(userID); ok {
		// Callers mutate the state before saving; hand out a copy so a
		// failed save never leaks unsaved mutations into later reads.
		clone := *cached.(*models.UserProgression)
		state = &clone
	} else {
		loaded, err := s.progressionRepo.GetOrCreate(ctx, userID)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load progression state: %w", err)
		}
		state = loaded
	}

	instances, err := s.questRepo.GetInstances(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load quest instances: %w", err)
	}

	return state, instances, nil
}

func (s *ProgressionService) save(ctx context.Context, userID string, state *models.UserProgression, instances []*models.QuestInstance, replaceInstances bool) error {
	if replaceInstances {
		if err := s.questRepo.ReplaceInstances(ctx, userID, instances); err != nil {
			return fmt.Errorf("failed to save quest instances: %w", err)
		}
	} else {
		for _, inst := range instances {
			if err := s.questRepo.UpdateInstance(ctx, inst); err != nil {
				return fmt.Errorf("failed to update quest instance %s: %w", inst.QuestID, err)
			}
		}
	}

	if err := s.progressionRepo.Update(ctx, state); err != nil {
		// The store is the source of truth; drop the cached entry so the
		// next read goes back to it.
		s.cache.Remove(userID)
		return fmt.Errorf("failed to save progression state: %w", err)
	}

	s.cache.Add(userID, state)
	return nil
}

// lockUser serializes work per user through a fixed set of lock stripes.
// Two users may share a stripe; that only costs a little contention.
func (s *ProgressionService) lockUser(userID string) func() {
	h := fnv.New32a()
	h.Write([]byte(userID))
	lock := &s.locks[h.Sum32()%lockStripes]

	lock.Lock()
	return lock.Unlock
}
