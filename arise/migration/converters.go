package migration

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/arisefit/arise/arise/database/models"
)

func (m *Migrator) convertUser(mu MongoUser) *models.UserProgression {
	now := time.Now()

	xp := int64(mu.XP)
	if xp < 0 {
		xp = 0
	}
	streak := int(mu.Streak.Count)
	if streak < 0 {
		streak = 0
	}

	return &models.UserProgression{
		UserID:            mu.UserID,
		XP:                xp,
		Streak:            streak,
		LastActiveAt:      mu.Streak.LastActiveAt,
		GraceUsedThisWeek: mu.Streak.GraceUsedThisWeek,
		CreatedAt:         createdOr(mu.CreatedAt, now),
		UpdatedAt:         now,
	}
}

// convertUserQuest maps a legacy quest document onto a quest instance. Returns
// nil when the record is unusable (missing keys, non-positive target).
func (m *Migrator) convertUserQuest(mq MongoUserQuest) *models.QuestInstance {
	if mq.UserID == "" || mq.QuestID == "" {
		return nil
	}

	target := int(mq.Target)
	if target <= 0 {
		return nil
	}

	progress := int(mq.Progress)
	if progress < 0 {
		progress = 0
	}
	if progress > target {
		progress = target
	}
	// The legacy app occasionally left progress behind target on completed
	// quests that were claimed manually. The new invariant requires
	// completed => progress == target.
	if mq.Completed {
		progress = target
	}

	xpReward := int64(mq.XPReward)
	if xpReward < 0 {
		xpReward = 0
	}

	now := time.Now()
	return &models.QuestInstance{
		UserID:      mq.UserID,
		QuestID:     mq.QuestID,
		Scope:       normalizeScope(mq.Type),
		Title:       cleanseString(mq.Title),
		Description: cleanseString(mq.Description),
		Icon:        mq.Icon,
		Target:      target,
		Progress:    progress,
		XPReward:    xpReward,
		Completed:   mq.Completed,
		CompletedAt: mq.CompletedAt,
		ExpiresAt:   mq.ExpiresAt,
		CreatedAt:   createdOr(mq.CreatedAt, now),
		UpdatedAt:   now,
	}
}

// normalizeScope folds the legacy type values onto the two supported scopes.
// The legacy app used "DAILY"/"WEEKLY" in early records and lowercase later.
func normalizeScope(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case models.ScopeWeekly:
		return models.ScopeWeekly
	default:
		return models.ScopeDaily
	}
}

func createdOr(t, fallback time.Time) time.Time {
	if t.IsZero() {
		return fallback
	}
	return t
}

// cleanseString strips null bytes and control characters that the legacy
// database accepted but Postgres text columns reject.
func cleanseString(s string) string {
	if s == "" {
		return ""
	}

	var result strings.Builder
	result.Grow(len(s))

	for _, r := range s {
		if r == 0 || (r < 32 && r != 9 && r != 10 && r != 13) {
			continue
		}
		if r == utf8.RuneError {
			continue
		}
		result.WriteRune(r)
	}

	return strings.TrimSpace(result.String())
}
