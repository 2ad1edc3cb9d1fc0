package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserProgression holds the per-user gamification state: lifetime XP, the
// consecutive-day streak and the weekly grace flag. Quest instances live in
// their own table and are loaded alongside this record.
type UserProgression struct {
	bun.BaseModel `bun:"table:user_progression,alias:up"`

	ID                int64     `bun:"id,pk,autoincrement"`
	UserID            string    `bun:"user_id,notnull,unique"`
	XP                int64     `bun:"xp,notnull,default:0"`
	Streak            int       `bun:"streak,notnull,default:0"`
	LastActiveAt      time.Time `bun:"last_active_at"`
	GraceUsedThisWeek bool      `bun:"grace_used_this_week,notnull,default:false"`
	CreatedAt         time.Time `bun:"created_at,notnull"`
	UpdatedAt         time.Time `bun:"updated_at,notnull"`
}
