package models

import (
	"time"

	"github.com/uptrace/bun"
)

// QuestInstance is a user-owned, time-bounded realization of a quest template.
// Title, description, icon, target and reward are snapshotted at generation so
// later template edits never change a quest a user is already working on.
type QuestInstance struct {
	bun.BaseModel `bun:"table:quest_instances,alias:qi"`

	ID          int64      `bun:"id,pk,autoincrement"`
	UserID      string     `bun:"user_id,notnull"`
	QuestID     string     `bun:"quest_id,notnull"`
	Scope       string     `bun:"scope,notnull"`
	Title       string     `bun:"title,notnull"`
	Description string     `bun:"description,notnull"`
	Icon        string     `bun:"icon"`
	Target      int        `bun:"target,notnull"`
	Progress    int        `bun:"progress,notnull,default:0"`
	XPReward    int64      `bun:"xp_reward,notnull,default:0"`
	Completed   bool       `bun:"completed,notnull,default:false"`
	CompletedAt *time.Time `bun:"completed_at"`
	ExpiresAt   time.Time  `bun:"expires_at,notnull"`
	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
}

// Expired reports whether the instance's window has closed.
func (q *QuestInstance) Expired(now time.Time) bool {
	return !now.Before(q.ExpiresAt)
}

// Advanceable reports whether progress may still be routed to this instance.
func (q *QuestInstance) Advanceable(now time.Time) bool {
	return !q.Completed && !q.Expired(now)
}

// ProgressPercentage returns the current progress as a percentage
func (q *QuestInstance) ProgressPercentage() float64 {
	if q.Target == 0 {
		return 0
	}

	percentage := float64(q.Progress) / float64(q.Target) * 100
	if percentage > 100 {
		percentage = 100
	}

	return percentage
}
