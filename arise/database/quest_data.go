package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/arisefit/arise/arise/database/models"
)

// DefaultTriggers is the static questID -> trigger-category map. Every active
// seeded template must appear here; catalog construction fails otherwise, so
// a quest that could never advance is caught at startup instead of stalling
// silently in production.
func DefaultTriggers() map[string]string {
	return map[string]string{
		"daily_burn_300":     models.CategoryWorkout,
		"daily_burn_600":     models.CategoryWorkout,
		"daily_burn_1000":    models.CategoryWorkout,
		"daily_meals_3":      models.CategoryNutrition,
		"daily_meals_4":      models.CategoryNutrition,
		"daily_show_up":      models.CategoryStreak,
		"daily_cheer_3":      models.CategorySocial,
		"weekly_burn_3500":   models.CategoryWorkout,
		"weekly_burn_6000":   models.CategoryWorkout,
		"weekly_meals_15":    models.CategoryNutrition,
		"weekly_streak_7":    models.CategoryStreak,
		"weekly_encourage_5": models.CategorySocial,
	}
}

// SeedTemplates returns the built-in quest template catalog.
func SeedTemplates() []*models.QuestTemplate {
	return []*models.QuestTemplate{
		// Daily quests
		{
			QuestID:     "daily_burn_300",
			Scope:       models.ScopeDaily,
			Category:    models.CategoryWorkout,
			Title:       "Calorie Crusher",
			Description: "Burn 300 calories today",
			Icon:        "flame",
			Target:      300,
			XPReward:    25,
			Difficulty:  models.DifficultyEasy,
			MinimumRank: "E",
			Active:      true,
		},
		{
			QuestID:     "daily_burn_600",
			Scope:       models.ScopeDaily,
			Category:    models.CategoryWorkout,
			Title:       "Inferno",
			Description: "Burn 600 calories today",
			Icon:        "fire",
			Target:      600,
			XPReward:    40,
			Difficulty:  models.DifficultyMedium,
			MinimumRank: "D",
			Active:      true,
		},
		{
			QuestID:     "daily_burn_1000",
			Scope:       models.ScopeDaily,
			Category:    models.CategoryWorkout,
			Title:       "Limit Breaker",
			Description: "Burn 1000 calories in a single day",
			Icon:        "bolt",
			Target:      1000,
			XPReward:    60,
			Difficulty:  models.DifficultyHard,
			MinimumRank: "B",
			Active:      true,
		},
		{
			QuestID:     "daily_meals_3",
			Scope:       models.ScopeDaily,
			Category:    models.CategoryNutrition,
			Title:       "Balanced Plate",
			Description: "Log 3 meals today",
			Icon:        "utensils",
			Target:      3,
			XPReward:    25,
			Difficulty:  models.DifficultyEasy,
			MinimumRank: "E",
			Active:      true,
		},
		{
			QuestID:     "daily_meals_4",
			Scope:       models.ScopeDaily,
			Category:    models.CategoryNutrition,
			Title:       "Meal Prep Pro",
			Description: "Log 4 meals today",
			Icon:        "salad",
			Target:      4,
			XPReward:    35,
			Difficulty:  models.DifficultyMedium,
			MinimumRank: "D",
			Active:      true,
		},
		{
			QuestID:     "daily_show_up",
			Scope:       models.ScopeDaily,
			Category:    models.CategoryStreak,
			Title:       "Show Up",
			Description: "Extend your activity streak today",
			Icon:        "calendar-check",
			Target:      1,
			XPReward:    20,
			Difficulty:  models.DifficultyEasy,
			MinimumRank: "E",
			Active:      true,
		},
		{
			QuestID:     "daily_cheer_3",
			Scope:       models.ScopeDaily,
			Category:    models.CategorySocial,
			Title:       "Hype Squad",
			Description: "Cheer on 3 friends",
			Icon:        "megaphone",
			Target:      3,
			XPReward:    20,
			Difficulty:  models.DifficultyEasy,
			MinimumRank: "C",
			Active:      true,
		},

		// Weekly quests
		{
			QuestID:     "weekly_burn_3500",
			Scope:       models.ScopeWeekly,
			Category:    models.CategoryWorkout,
			Title:       "Weekly Furnace",
			Description: "Burn 3500 calories this week",
			Icon:        "flame",
			Target:      3500,
			XPReward:    150,
			Difficulty:  models.DifficultyMedium,
			MinimumRank: "E",
			Active:      true,
		},
		{
			QuestID:     "weekly_burn_6000",
			Scope:       models.ScopeWeekly,
			Category:    models.CategoryWorkout,
			Title:       "Shadow of the Gym",
			Description: "Burn 6000 calories this week",
			Icon:        "dumbbell",
			Target:      6000,
			XPReward:    250,
			Difficulty:  models.DifficultyHard,
			MinimumRank: "A",
			Active:      true,
		},
		{
			QuestID:     "weekly_meals_15",
			Scope:       models.ScopeWeekly,
			Category:    models.CategoryNutrition,
			Title:       "Kitchen Discipline",
			Description: "Log 15 meals this week",
			Icon:        "chef-hat",
			Target:      15,
			XPReward:    120,
			Difficulty:  models.DifficultyEasy,
			MinimumRank: "E",
			Active:      true,
		},
		{
			QuestID:     "weekly_streak_7",
			Scope:       models.ScopeWeekly,
			Category:    models.CategoryStreak,
			Title:       "Unbroken",
			Description: "Stay active 7 days in a row",
			Icon:        "link",
			Target:      7,
			XPReward:    200,
			Difficulty:  models.DifficultyMedium,
			MinimumRank: "D",
			Active:      true,
		},
		{
			QuestID:     "weekly_encourage_5",
			Scope:       models.ScopeWeekly,
			Category:    models.CategorySocial,
			Title:       "Guild Leader",
			Description: "Encourage 5 different friends this week",
			Icon:        "users",
			Target:      5,
			XPReward:    180,
			Difficulty:  models.DifficultyHard,
			MinimumRank: "C",
			Active:      true,
		},
	}
}

// InitializeQuestData inserts the built-in quest templates into the database
func (db *DB) InitializeQuestData(ctx context.Context) error {
	count, err := db.bunDB.NewSelect().
		Model((*models.QuestTemplate)(nil)).
		Count(ctx)
	if err == nil && count > 0 {
		slog.Info("Quest data already initialized, skipping",
			slog.Int("existing_templates", count))
		return nil
	}

	slog.Info("Initializing quest templates...")

	now := time.Now()
	templates := SeedTemplates()
	for _, tmpl := range templates {
		tmpl.CreatedAt = now
		tmpl.UpdatedAt = now
		if _, err := db.bunDB.NewInsert().
			Model(tmpl).
			On("CONFLICT (quest_id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to insert quest template %s: %w", tmpl.QuestID, err)
		}
	}

	slog.Info("Quest templates initialized",
		slog.Int("count", len(templates)))
	return nil
}
