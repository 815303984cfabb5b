package repository

import (
	"context"
	"errors"

	"github.com/glamyouup/mailflow/internal/domain"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	GetActiveByType(ctx context.Context, templateType string) (*domain.Template, error)
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) GetActiveByType(ctx context.Context, templateType string) (*domain.Template, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).
		Where("type = ? AND is_active = ?", templateType, true).
		Order("updated_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}
