package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glamyouup/mailflow/internal/observability"
	"github.com/glamyouup/mailflow/internal/provider"
	"go.uber.org/zap"
)

// SendResult describes a successful provider send.
type SendResult struct {
	Provider          string
	ProviderMessageID string
	StatusCode        int
}

// EmailService coordinates sending across the configured providers. The
// active provider is sticky: after a failover every later send starts from
// the fallback. There is no automatic fail-back to the primary.
type EmailService struct {
	providers map[string]provider.Provider
	primary   string
	fallback  string

	mu     sync.Mutex
	active string

	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewEmailService(
	providers map[string]provider.Provider,
	primary string,
	fallback string,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*EmailService, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}

	primary = strings.ToLower(strings.TrimSpace(primary))
	fallback = strings.ToLower(strings.TrimSpace(fallback))
	if primary == "" {
		return nil, fmt.Errorf("primary provider is required")
	}
	if _, ok := providers[primary]; !ok {
		return nil, fmt.Errorf("primary provider %q is not configured", primary)
	}
	if fallback != "" {
		if _, ok := providers[fallback]; !ok {
			return nil, fmt.Errorf("fallback provider %q is not configured", fallback)
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &EmailService{
		providers: providers,
		primary:   primary,
		fallback:  fallback,
		active:    primary,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
	}, nil
}

// ActiveProvider returns the provider the next send will start from.
func (s *EmailService) ActiveProvider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Send delivers msg through the active provider, failing over to the
// configured fallback on error. The returned error wraps the last provider
// failure.
func (s *EmailService) Send(ctx context.Context, msg provider.Message) (*SendResult, error) {
	name := s.ActiveProvider()
	p, ok := s.providers[name]
	if !ok {
		return nil, fmt.Errorf("active provider %q is not configured", name)
	}

	result, err := s.sendVia(ctx, name, p, msg)
	if err == nil {
		return result, nil
	}

	s.logger.Warn("provider send failed",
		zap.String("provider", name),
		zap.String("errorCode", provider.ErrorCode(err)),
		zap.Error(err),
	)

	next := s.alternate(name)
	if next == "" {
		return nil, fmt.Errorf("delivery failed via %s: %w", name, err)
	}

	fp, ok := s.providers[next]
	if !ok {
		return nil, fmt.Errorf("fallback provider %q is not configured: %w", next, err)
	}

	s.switchActive(name, next)

	result, fallbackErr := s.sendVia(ctx, next, fp, msg)
	if fallbackErr == nil {
		return result, nil
	}

	s.logger.Error("fallback provider send failed",
		zap.String("provider", next),
		zap.String("errorCode", provider.ErrorCode(fallbackErr)),
		zap.Error(fallbackErr),
	)

	return nil, fmt.Errorf("delivery failed via %s after failover from %s: %w", next, name, fallbackErr)
}

func (s *EmailService) sendVia(ctx context.Context, name string, p provider.Provider, msg provider.Message) (*SendResult, error) {
	start := s.now()
	resp, err := p.Send(ctx, msg)
	s.metrics.ObserveSendDuration(name, s.now().Sub(start))

	if err != nil {
		return nil, err
	}

	result := &SendResult{Provider: name}
	if resp != nil {
		result.ProviderMessageID = resp.MessageID
		result.StatusCode = resp.StatusCode
	}
	return result, nil
}

// alternate returns the configured fallback when it differs from the
// provider that just failed. Failover only ever moves toward the fallback:
// once the fallback is active and fails, the send fails outright rather
// than bouncing back to the primary.
func (s *EmailService) alternate(active string) string {
	if s.fallback == "" || s.fallback == active {
		return ""
	}
	return s.fallback
}

func (s *EmailService) switchActive(from, to string) {
	s.mu.Lock()
	s.active = to
	s.mu.Unlock()

	s.metrics.IncFailover(from, to)
	s.logger.Info("switched active email provider",
		zap.String("from", from),
		zap.String("to", to),
	)
}
