package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kursadbilgin/integration-hub/internal/domain"
)

type AppRepository interface {
	GetByID(ctx context.Context, id string) (domain.App, error)
	Save(ctx context.Context, app domain.App) error
	QueryWithPendingIntegrations(ctx context.Context) ([]domain.App, error)
	ApplyStatusUpdates(ctx context.Context, batch domain.StatusUpdateBatch) ([]domain.VerificationAttempt, error)
}

type GormAppRepo struct {
	db *gorm.DB
}

func NewGormAppRepo(db *gorm.DB) *GormAppRepo {
	return &GormAppRepo{db: db}
}

func (r *GormAppRepo) GetByID(ctx context.Context, id string) (domain.App, error) {
	var appModel AppModel
	err := r.db.WithContext(ctx).First(&appModel, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.App{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.App{}, err
	}

	var integrationModels []IntegrationModel
	err = r.db.WithContext(ctx).
		Where("app_id = ?", id).
		Order("position ASC").
		Find(&integrationModels).Error
	if err != nil {
		return domain.App{}, err
	}

	return appModelToDomain(&appModel, integrationModels), nil
}

// Save upserts the app row and rewrites its integration set to match the
// snapshot: rows absent from the snapshot are deleted, the rest are upserted
// with their position taken from configuration order. Runs in one
// transaction.
func (r *GormAppRepo) Save(ctx context.Context, app domain.App) error {
	if err := app.Validate(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "updated_at"}),
		}).Create(appModelFromDomain(app)).Error
		if err != nil {
			return err
		}

		keep := make([]string, 0, len(app.Integrations))
		for _, ci := range app.Integrations {
			keep = append(keep, ci.ID)
		}

		stale := tx.Where("app_id = ?", app.ID)
		if len(keep) > 0 {
			stale = stale.Where("id NOT IN ?", keep)
		}
		if err := stale.Delete(&IntegrationModel{}).Error; err != nil {
			return err
		}

		for position, ci := range app.Integrations {
			model := integrationModelFromDomain(app.ID, position, ci)
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "app_id"}, {Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"type", "properties", "enabled", "test", "condition", "status", "position", "updated_at",
				}),
			}).Create(&model).Error
			if err != nil {
				return err
			}
		}

		return nil
	})
}

// QueryWithPendingIntegrations returns every app holding at least one
// PENDING integration, with the full integration set loaded in
// configuration order.
func (r *GormAppRepo) QueryWithPendingIntegrations(ctx context.Context) ([]domain.App, error) {
	pending := r.db.Model(&IntegrationModel{}).
		Select("app_id").
		Where("status = ?", domain.StatusPending)

	var appModels []AppModel
	err := r.db.WithContext(ctx).
		Where("id IN (?)", pending).
		Order("id ASC").
		Find(&appModels).Error
	if err != nil {
		return nil, err
	}
	if len(appModels) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(appModels))
	for i := range appModels {
		ids = append(ids, appModels[i].ID)
	}

	var integrationModels []IntegrationModel
	err = r.db.WithContext(ctx).
		Where("app_id IN ?", ids).
		Order("app_id ASC, position ASC").
		Find(&integrationModels).Error
	if err != nil {
		return nil, err
	}

	byApp := make(map[string][]IntegrationModel, len(appModels))
	for i := range integrationModels {
		byApp[integrationModels[i].AppID] = append(byApp[integrationModels[i].AppID], integrationModels[i])
	}

	apps := make([]domain.App, 0, len(appModels))
	for i := range appModels {
		apps = append(apps, appModelToDomain(&appModels[i], byApp[appModels[i].ID]))
	}

	return apps, nil
}

// ApplyStatusUpdates applies one reconciliation batch in a single
// transaction: the whole update map or none of it. Rows already carrying the
// target status are left untouched; every real transition also writes a
// verification attempt row. Returns the applied transitions.
func (r *GormAppRepo) ApplyStatusUpdates(ctx context.Context, batch domain.StatusUpdateBatch) ([]domain.VerificationAttempt, error) {
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	if batch.Empty() {
		return nil, nil
	}

	ids := make([]string, 0, len(batch.Updates))
	for id := range batch.Updates {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var attempts []domain.VerificationAttempt
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []IntegrationModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("app_id = ? AND id IN ?", batch.AppID, ids).
			Order("id ASC").
			Find(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) != len(ids) {
			return fmt.Errorf("%w: app %q holds %d of %d integrations in the batch", domain.ErrNotFound, batch.AppID, len(rows), len(ids))
		}

		for i := range rows {
			target := batch.Updates[rows[i].ID]
			if rows[i].Status == target {
				continue
			}

			err := tx.Model(&IntegrationModel{}).
				Where("app_id = ? AND id = ?", batch.AppID, rows[i].ID).
				Update("status", target).Error
			if err != nil {
				return err
			}

			attempt := attemptModelFromDomain(&domain.VerificationAttempt{
				ID:            uuid.NewString(),
				AppID:         batch.AppID,
				IntegrationID: rows[i].ID,
				FromStatus:    rows[i].Status,
				ToStatus:      target,
			})
			if err := tx.Create(attempt).Error; err != nil {
				return err
			}
			attempts = append(attempts, *attemptModelToDomain(attempt))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return attempts, nil
}
