package repositories

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/arisefit/arise/arise/database/models"
	"github.com/uptrace/bun"
)

type ProgressionRepository interface {
	Create(ctx context.Context, state *models.UserProgression) error
	GetByUserID(ctx context.Context, userID string) (*models.UserProgression, error)
	GetOrCreate(ctx context.Context, userID string) (*models.UserProgression, error)
	Update(ctx context.Context, state *models.UserProgression) error
	GetTopByXP(ctx context.Context, limit int) ([]*models.UserProgression, error)
	GetAllUserIDs(ctx context.Context) ([]string, error)
	ResetWeeklyGrace(ctx context.Context) (int64, error)
}

type progressionRepository struct {
	db *bun.DB
}

func NewProgressionRepository(db *bun.DB) ProgressionRepository {
	return &progressionRepository{db: db}
}

func (r *progressionRepository) Create(ctx context.Context, state *models.UserProgression) error {
	state.CreatedAt = time.Now()
	state.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().Model(state).Exec(ctx)
	return err
}

func (r *progressionRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProgression, error) {
	state := new(models.UserProgression)
	err := r.db.NewSelect().
		Model(state).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			slog.Debug("No progression state for user",
				slog.String("type", "db"),
				slog.String("operation", "GetByUserID"),
				slog.String("user_id", userID))
		} else {
			slog.Error("Database error when getting progression state",
				slog.String("type", "db"),
				slog.String("operation", "GetByUserID"),
				slog.String("user_id", userID),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	return state, nil
}

func (r *progressionRepository) GetOrCreate(ctx context.Context, userID string) (*models.UserProgression, error) {
	state, err := r.GetByUserID(ctx, userID)
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	state = &models.UserProgression{UserID: userID}
	if err := r.Create(ctx, state); err != nil {
		return nil, err
	}

	slog.Info("Created progression state for new user",
		slog.String("type", "db"),
		slog.String("user_id", userID))
	return state, nil
}

func (r *progressionRepository) Update(ctx context.Context, state *models.UserProgression) error {
	state.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(state).
		WherePK().
		Exec(ctx)
	return err
}

func (r *progressionRepository) GetTopByXP(ctx context.Context, limit int) ([]*models.UserProgression, error) {
	var states []*models.UserProgression
	err := r.db.NewSelect().
		Model(&states).
		Order("xp DESC").
		Limit(limit).
		Scan(ctx)
	return states, err
}

func (r *progressionRepository) GetAllUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.NewSelect().
		Model((*models.UserProgression)(nil)).
		Column("user_id").
		Scan(ctx, &ids)
	return ids, err
}

// ResetWeeklyGrace clears every user's grace flag. Invoked by the operator at
// the start of each week; the engine itself only consumes the flag.
func (r *progressionRepository) ResetWeeklyGrace(ctx context.Context) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*models.UserProgression)(nil)).
		Set("grace_used_this_week = false").
		Set("updated_at = ?", time.Now()).
		Where("grace_used_this_week = true").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, _ := res.RowsAffected()
	return affected, nil
}
