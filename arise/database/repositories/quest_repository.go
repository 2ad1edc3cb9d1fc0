package repositories

import (
	"context"
	"log/slog"
	"time"

	"github.com/arisefit/arise/arise/database/models"
	"github.com/uptrace/bun"
)

type QuestRepository interface {
	// Templates
	GetAllTemplates(ctx context.Context) ([]*models.QuestTemplate, error)
	CreateTemplate(ctx context.Context, template *models.QuestTemplate) error
	CountTemplates(ctx context.Context) (int, error)

	// Instances
	GetInstances(ctx context.Context, userID string) ([]*models.QuestInstance, error)
	ReplaceInstances(ctx context.Context, userID string, instances []*models.QuestInstance) error
	UpdateInstance(ctx context.Context, instance *models.QuestInstance) error
	DeleteExpiredInstances(ctx context.Context, before time.Time) (int64, error)
}

type questRepository struct {
	db *bun.DB
}

func NewQuestRepository(db *bun.DB) QuestRepository {
	return &questRepository{db: db}
}

func (r *questRepository) GetAllTemplates(ctx context.Context) ([]*models.QuestTemplate, error) {
	var templates []*models.QuestTemplate
	err := r.db.NewSelect().
		Model(&templates).
		Order("quest_id ASC").
		Scan(ctx)
	return templates, err
}

func (r *questRepository) CreateTemplate(ctx context.Context, template *models.QuestTemplate) error {
	template.CreatedAt = time.Now()
	template.UpdatedAt = time.Now()
	_, err := r.db.NewInsert().
		Model(template).
		On("CONFLICT (quest_id) DO NOTHING").
		Exec(ctx)
	return err
}

func (r *questRepository) CountTemplates(ctx context.Context) (int, error) {
	return r.db.NewSelect().
		Model((*models.QuestTemplate)(nil)).
		Count(ctx)
}

func (r *questRepository) GetInstances(ctx context.Context, userID string) ([]*models.QuestInstance, error) {
	var instances []*models.QuestInstance
	err := r.db.NewSelect().
		Model(&instances).
		Where("user_id = ?", userID).
		Order("id ASC").
		Scan(ctx)
	return instances, err
}

// ReplaceInstances swaps a user's full instance list inside one transaction,
// so a failed regeneration never leaves a half-written quest set behind.
func (r *questRepository) ReplaceInstances(ctx context.Context, userID string, instances []*models.QuestInstance) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.QuestInstance)(nil)).
			Where("user_id = ?", userID).
			Exec(ctx); err != nil {
			return err
		}

		if len(instances) == 0 {
			return nil
		}

		now := time.Now()
		for _, inst := range instances {
			inst.ID = 0
			inst.UserID = userID
			if inst.CreatedAt.IsZero() {
				inst.CreatedAt = now
			}
			inst.UpdatedAt = now
		}

		_, err := tx.NewInsert().Model(&instances).Exec(ctx)
		return err
	})
}

func (r *questRepository) UpdateInstance(ctx context.Context, instance *models.QuestInstance) error {
	instance.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(instance).
		WherePK().
		Exec(ctx)
	return err
}

func (r *questRepository) DeleteExpiredInstances(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.QuestInstance)(nil)).
		Where("expires_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	affected, _ := res.RowsAffected()
	if affected > 0 {
		slog.Debug("Deleted expired quest instances",
			slog.String("type", "db"),
			slog.Int64("count", affected))
	}
	return affected, nil
}
