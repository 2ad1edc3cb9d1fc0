package models

import (
	"time"

	"github.com/uptrace/bun"
)

type QuestTemplate struct {
	bun.BaseModel `bun:"table:quest_templates,alias:qt"`

	ID          int64  `bun:"id,pk,autoincrement"`
	QuestID     string `bun:"quest_id,notnull,unique"`
	Scope       string `bun:"scope,notnull"`    // daily, weekly
	Category    string `bun:"category,notnull"` // workout, nutrition, streak, social
	Title       string `bun:"title,notnull"`
	Description string `bun:"description,notnull"`
	Icon        string `bun:"icon"`
	Target      int    `bun:"target,notnull"`
	XPReward    int64  `bun:"xp_reward,notnull,default:0"`
	Difficulty  string `bun:"difficulty,notnull"`
	MinimumRank string `bun:"minimum_rank,notnull,default:'E'"`
	Active      bool   `bun:"active,notnull,default:true"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Quest scope constants
const (
	ScopeDaily  = "daily"
	ScopeWeekly = "weekly"
)

// Quest category constants
const (
	CategoryWorkout   = "workout"
	CategoryNutrition = "nutrition"
	CategoryStreak    = "streak"
	CategorySocial    = "social"
)

// Difficulty constants
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)
