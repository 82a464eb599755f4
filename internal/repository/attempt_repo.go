package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/kursadbilgin/integration-hub/internal/domain"
)

type AttemptRepository interface {
	Create(ctx context.Context, a *domain.VerificationAttempt) error
	ListByIntegration(ctx context.Context, appID, integrationID string, limit int) ([]domain.VerificationAttempt, error)
}

type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) Create(ctx context.Context, a *domain.VerificationAttempt) error {
	model := attemptModelFromDomain(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if a != nil {
		*a = *attemptModelToDomain(model)
	}
	return nil
}

func (r *GormAttemptRepo) ListByIntegration(ctx context.Context, appID, integrationID string, limit int) ([]domain.VerificationAttempt, error) {
	if limit < 1 {
		limit = 50
	}
	limit = min(limit, 100)

	var models []VerificationAttemptModel
	err := r.db.WithContext(ctx).
		Where("app_id = ? AND integration_id = ?", appID, integrationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.VerificationAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}
