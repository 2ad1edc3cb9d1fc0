package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/arisefit/arise/arise/database/models"
	"github.com/uptrace/bun"
)

type LeaderboardRepository interface {
	GetEntry(ctx context.Context, userID, periodType string, periodStart time.Time) (*models.PeriodLeaderboard, error)
	Upsert(ctx context.Context, entry *models.PeriodLeaderboard) error
	GetTop(ctx context.Context, periodType string, periodStart time.Time, limit int) ([]*models.PeriodLeaderboard, error)
	DeletePeriodsBefore(ctx context.Context, before time.Time) (int64, error)
}

type leaderboardRepository struct {
	db *bun.DB
}

func NewLeaderboardRepository(db *bun.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) GetEntry(ctx context.Context, userID, periodType string, periodStart time.Time) (*models.PeriodLeaderboard, error) {
	entry := new(models.PeriodLeaderboard)
	err := r.db.NewSelect().
		Model(entry).
		Where("user_id = ?", userID).
		Where("period_type = ?", periodType).
		Where("period_start = ?", periodStart).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (r *leaderboardRepository) Upsert(ctx context.Context, entry *models.PeriodLeaderboard) error {
	now := time.Now()
	entry.UpdatedAt = now
	if entry.ID == 0 {
		entry.CreatedAt = now
		_, err := r.db.NewInsert().Model(entry).Exec(ctx)
		return err
	}

	_, err := r.db.NewUpdate().Model(entry).WherePK().Exec(ctx)
	return err
}

func (r *leaderboardRepository) GetTop(ctx context.Context, periodType string, periodStart time.Time, limit int) ([]*models.PeriodLeaderboard, error) {
	var entries []*models.PeriodLeaderboard
	err := r.db.NewSelect().
		Model(&entries).
		Where("period_type = ?", periodType).
		Where("period_start = ?", periodStart).
		Order("xp_earned DESC", "quests_completed DESC").
		Limit(limit).
		Scan(ctx)
	return entries, err
}

func (r *leaderboardRepository) DeletePeriodsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.PeriodLeaderboard)(nil)).
		Where("period_start < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
