package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arisefit/arise/arise/database/models"
	"github.com/arisefit/arise/arise/database/repositories"
	"github.com/arisefit/arise/arise/progression"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const maxConcurrentRebuilds = 5

// LeaderboardService maintains the per-period quest completion rollups.
// Completions are recorded incrementally as they happen; Rebuild recomputes a
// period from the stored instances when the rollup drifts (crash between the
// instance write and the rollup write, manual data fixes).
type LeaderboardService struct {
	leaderboardRepo repositories.LeaderboardRepository
	progressionRepo repositories.ProgressionRepository
	questRepo       repositories.QuestRepository
	sem             *semaphore.Weighted
}

func NewLeaderboardService(
	leaderboardRepo repositories.LeaderboardRepository,
	progressionRepo repositories.ProgressionRepository,
	questRepo repositories.QuestRepository,
) *LeaderboardService {
	return &LeaderboardService{
		leaderboardRepo: leaderboardRepo,
		progressionRepo: progressionRepo,
		questRepo:       questRepo,
		sem:             semaphore.NewWeighted(maxConcurrentRebuilds),
	}
}

// RecordCompletions folds newly completed quests into the daily and weekly
// rollups. Failures are logged, not returned: the rollup is a derived view
// and must never fail the activity that produced it.
func (s *LeaderboardService) RecordCompletions(ctx context.Context, userID string, completions []progression.QuestCompletion, now time.Time) {
	if len(completions) == 0 {
		return
	}

	var xp int64
	for _, c := range completions {
		xp += c.XPReward
	}

	for _, periodType := range []string{models.ScopeDaily, models.ScopeWeekly} {
		periodStart := PeriodStart(periodType, now)

		entry, err := s.leaderboardRepo.GetEntry(ctx, userID, periodType, periodStart)
		if err != nil {
			slog.Error("Failed to load leaderboard entry",
				slog.String("user_id", userID),
				slog.String("period_type", periodType),
				slog.Any("error", err))
			continue
		}
		if entry == nil {
			entry = &models.PeriodLeaderboard{
				PeriodType:  periodType,
				PeriodStart: periodStart,
				UserID:      userID,
			}
		}

		entry.QuestsCompleted += len(completions)
		entry.XPEarned += xp

		if err := s.leaderboardRepo.Upsert(ctx, entry); err != nil {
			slog.Error("Failed to update leaderboard",
				slog.String("user_id", userID),
				slog.String("period_type", periodType),
				slog.Any("error", err))
		}
	}
}

// GetTop returns the period's leaderboard, best first.
func (s *LeaderboardService) GetTop(ctx context.Context, periodType string, now time.Time, limit int) ([]*models.PeriodLeaderboard, error) {
	return s.leaderboardRepo.GetTop(ctx, periodType, PeriodStart(periodType, now), limit)
}

// Rebuild recomputes the current period's rollup for every user from their
// stored quest instances, a bounded number of users at a time.
func (s *LeaderboardService) Rebuild(ctx context.Context, periodType string, now time.Time) error {
	start := time.Now()

	userIDs, err := s.progressionRepo.GetAllUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	periodStart := PeriodStart(periodType, now)

	g, ctx := errgroup.WithContext(ctx)
	for _, userID := range userIDs {
		userID := userID

		if err := s.sem.Acquire(ctx, 1); err != nil {
			// Acquire only fails once the group context is canceled; wait
			// for the in-flight rebuilds so none are abandoned mid-write.
			if werr := g.Wait(); werr != nil {
				return fmt.Errorf("leaderboard rebuild failed: %w", werr)
			}
			return err
		}

		g.Go(func() error {
			defer s.sem.Release(1)
			return s.rebuildUser(ctx, userID, periodType, periodStart)
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("leaderboard rebuild failed: %w", err)
	}

	slog.Info("Leaderboard rebuilt",
		slog.String("period_type", periodType),
		slog.Int("users", len(userIDs)),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (s *LeaderboardService) rebuildUser(ctx context.Context, userID, periodType string, periodStart time.Time) error {
	instances, err := s.questRepo.GetInstances(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load instances for %s: %w", userID, err)
	}

	completed := 0
	var xp int64
	for _, inst := range instances {
		if !inst.Completed || inst.CompletedAt == nil {
			continue
		}
		if inst.CompletedAt.Before(periodStart) {
			continue
		}
		completed++
		xp += inst.XPReward
	}

	entry, err := s.leaderboardRepo.GetEntry(ctx, userID, periodType, periodStart)
	if err != nil {
		return err
	}
	if entry == nil {
		if completed == 0 {
			return nil
		}
		entry = &models.PeriodLeaderboard{
			PeriodType:  periodType,
			PeriodStart: periodStart,
			UserID:      userID,
		}
	}

	entry.QuestsCompleted = completed
	entry.XPEarned = xp
	return s.leaderboardRepo.Upsert(ctx, entry)
}

// PeriodStart returns the fixed boundary that opened the period containing
// now: local midnight for daily, Monday midnight for weekly.
func PeriodStart(periodType string, now time.Time) time.Time {
	switch periodType {
	case models.ScopeWeekly:
		days := int(now.Weekday()) - 1
		if days < 0 {
			days = 6
		}
		return time.Date(now.Year(), now.Month(), now.Day()-days, 0, 0, 0, 0, now.Location())
	default:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	}
}
