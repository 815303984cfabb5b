package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRateLimitRepo persists rate-limit window rows. It implements
// ratelimit.WindowStore.
type GormRateLimitRepo struct {
	db *gorm.DB
}

func NewGormRateLimitRepo(db *gorm.DB) *GormRateLimitRepo {
	return &GormRateLimitRepo{db: db}
}

func (r *GormRateLimitRepo) SumSince(ctx context.Context, recipient, notificationType string, since time.Time) (int, error) {
	query := r.db.WithContext(ctx).
		Model(&RateLimitWindowModel{}).
		Where("recipient_email = ?", recipient).
		Where("window_start >= ?", since)

	if notificationType == "" {
		query = query.Where("notification_type IS NULL")
	} else {
		query = query.Where("notification_type = ?", notificationType)
	}

	var total *int
	if err := query.Select("SUM(send_count)").Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *GormRateLimitRepo) Increment(ctx context.Context, recipient, notificationType string, now time.Time, windowLength time.Duration) error {
	var typeValue *string
	if notificationType != "" {
		typeValue = &notificationType
	}

	// Reuse an open window containing now; the SQL-level increment keeps
	// concurrent records from losing updates.
	query := r.db.WithContext(ctx).
		Model(&RateLimitWindowModel{}).
		Where("recipient_email = ?", recipient).
		Where("window_start <= ? AND window_end > ?", now, now)
	if typeValue == nil {
		query = query.Where("notification_type IS NULL")
	} else {
		query = query.Where("notification_type = ?", *typeValue)
	}

	result := query.Update("send_count", gorm.Expr("send_count + 1"))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	window := &RateLimitWindowModel{
		ID:               uuid.NewString(),
		RecipientEmail:   recipient,
		NotificationType: typeValue,
		SendCount:        1,
		WindowStart:      now,
		WindowEnd:        now.Add(windowLength),
		CreatedAt:        now,
	}
	return r.db.WithContext(ctx).Create(window).Error
}
