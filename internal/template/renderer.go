package template

import (
	"context"
	"errors"
	"fmt"

	"github.com/glamyouup/mailflow/internal/domain"
	"github.com/glamyouup/mailflow/internal/repository"
	"go.uber.org/zap"
)

// Renderer resolves the template for a notification type and renders it.
type Renderer interface {
	Render(ctx context.Context, templateType string, vars map[string]any) (*RenderedEmail, error)
}

// Service resolves templates in order: Redis cache, active database row,
// builtin system template.
type Service struct {
	engine *Engine
	repo   repository.TemplateRepository
	cache  *Cache
	logger *zap.Logger
}

func NewService(
	engine *Engine,
	repo repository.TemplateRepository,
	cache *Cache,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		engine: engine,
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

func (s *Service) Render(ctx context.Context, templateType string, vars map[string]any) (*RenderedEmail, error) {
	tmpl, err := s.resolve(ctx, templateType)
	if err != nil {
		return nil, err
	}
	return s.engine.Render(tmpl, vars)
}

func (s *Service) resolve(ctx context.Context, templateType string) (*domain.Template, error) {
	cached, err := s.cache.Get(ctx, templateType)
	if err != nil {
		s.logger.Warn("template cache read failed",
			zap.String("template_type", templateType),
			zap.Error(err),
		)
	}
	if cached != nil && cached.IsActive {
		return cached, nil
	}

	tmpl, err := s.repo.GetActiveByType(ctx, templateType)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load template %q: %w", templateType, err)
	}

	if tmpl == nil {
		builtin, ok := Builtin(templateType)
		if !ok {
			return nil, fmt.Errorf("%w: no active template for type %q", domain.ErrNotFound, templateType)
		}
		tmpl = builtin
	}

	if err := s.cache.Set(ctx, tmpl); err != nil {
		s.logger.Warn("template cache write failed",
			zap.String("template_type", templateType),
			zap.Error(err),
		)
	}

	return tmpl, nil
}
