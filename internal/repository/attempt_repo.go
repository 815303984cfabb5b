package repository

import (
	"context"
	"time"

	"github.com/glamyouup/mailflow/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AttemptRepository interface {
	// Append persists an attempt and assigns its AttemptNumber. Numbering
	// happens inside a transaction under a per-notification advisory lock,
	// so concurrent appends for the same notification stay gapless.
	Append(ctx context.Context, a *domain.DeliveryAttempt) error
	CountByNotificationID(ctx context.Context, notificationID string) (int, error)
	GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error)
}

type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) Append(ctx context.Context, a *domain.DeliveryAttempt) error {
	model := attemptModelFromDomain(a)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			`SELECT pg_advisory_xact_lock(hashtext(?))`,
			model.NotificationID,
		).Error; err != nil {
			return err
		}

		var next int
		if err := tx.Raw(
			`SELECT COALESCE(MAX(attempt_number), 0) + 1 FROM notification_attempts WHERE notification_id = ?`,
			model.NotificationID,
		).Scan(&next).Error; err != nil {
			return err
		}

		model.AttemptNumber = next
		return tx.Create(model).Error
	})
	if err != nil {
		return err
	}

	if a != nil {
		*a = *attemptModelToDomain(model)
	}
	return nil
}

func (r *GormAttemptRepo) CountByNotificationID(ctx context.Context, notificationID string) (int, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&DeliveryAttemptModel{}).
		Where("notification_id = ?", notificationID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func (r *GormAttemptRepo) GetByNotificationID(ctx context.Context, notificationID string) ([]domain.DeliveryAttempt, error) {
	var models []DeliveryAttemptModel
	err := r.db.WithContext(ctx).
		Where("notification_id = ?", notificationID).
		Order("attempt_number ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	attempts := make([]domain.DeliveryAttempt, 0, len(models))
	for i := range models {
		attempts = append(attempts, *attemptModelToDomain(&models[i]))
	}

	return attempts, nil
}
