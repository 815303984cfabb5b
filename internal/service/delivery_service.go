package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glamyouup/mailflow/internal/domain"
	"github.com/glamyouup/mailflow/internal/observability"
	"github.com/glamyouup/mailflow/internal/provider"
	"github.com/glamyouup/mailflow/internal/queue"
	"github.com/glamyouup/mailflow/internal/repository"
	"github.com/glamyouup/mailflow/internal/template"
	"go.uber.org/zap"
)

const defaultRetryBatchLimit = 100

// RateLimiter gates sends per recipient/type pair.
type RateLimiter interface {
	Check(ctx context.Context, recipient, notificationType string) (bool, string, error)
	Record(ctx context.Context, recipient, notificationType string) error
}

// EmailSender is the provider coordination surface used by delivery.
type EmailSender interface {
	Send(ctx context.Context, msg provider.Message) (*SendResult, error)
	ActiveProvider() string
}

// EventPublisher publishes delivery outcome events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event queue.DeliveryEvent) error
}

// DeliveryService runs the delivery state machine for a single notification:
// load, rate-limit check, render, send, record.
type DeliveryService struct {
	notifications repository.NotificationRepository
	attempts      repository.AttemptRepository
	limiter       RateLimiter
	renderer      template.Renderer
	sender        EmailSender
	events        EventPublisher
	logger        *zap.Logger
	metrics       *observability.Metrics
	now           func() time.Time
}

func NewDeliveryService(
	notifications repository.NotificationRepository,
	attempts repository.AttemptRepository,
	limiter RateLimiter,
	renderer template.Renderer,
	sender EmailSender,
	events EventPublisher,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*DeliveryService, error) {
	if notifications == nil {
		return nil, fmt.Errorf("notification repository is required")
	}
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("template renderer is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryService{
		notifications: notifications,
		attempts:      attempts,
		limiter:       limiter,
		renderer:      renderer,
		sender:        sender,
		events:        events,
		logger:        logger,
		metrics:       metrics,
		now:           time.Now,
	}, nil
}

// Deliver attempts delivery of one notification. It returns true when the
// email went out (or already had), false when the notification stays pending
// or failed. A non-nil error means infrastructure trouble; the command should
// be retried by the broker.
func (s *DeliveryService) Deliver(ctx context.Context, notificationID string) (bool, error) {
	logger := observability.WithContextLogger(s.logger, ctx)

	n, err := s.notifications.GetByID(ctx, notificationID)
	if err != nil {
		return false, fmt.Errorf("failed to load notification %s: %w", notificationID, err)
	}

	if n.Status.IsTerminalForDelivery() {
		logger.Warn("notification already delivered, skipping",
			zap.String("notificationId", n.ID),
			zap.String("status", n.Status.String()),
		)
		return true, nil
	}

	allowed, reason, err := s.limiter.Check(ctx, n.RecipientEmail, n.Type)
	if err != nil {
		return false, fmt.Errorf("rate limit check failed: %w", err)
	}
	if !allowed {
		// No attempt row: the notification stays pending and the retry
		// scanner or a fresh command picks it up later.
		s.metrics.IncRateLimited(limitKindFromReason(reason))
		logger.Info("delivery deferred by rate limiter",
			zap.String("notificationId", n.ID),
			zap.String("recipient", n.RecipientEmail),
			zap.String("reason", reason),
		)
		return false, nil
	}

	rendered, err := s.renderer.Render(ctx, templateTypeFor(n), n.TemplateVariables)
	if err != nil {
		return s.failRender(ctx, logger, n, err)
	}

	if err := s.notifications.SetRenderedContent(ctx, n.ID, rendered.Subject, rendered.HTML); err != nil {
		return false, fmt.Errorf("failed to store rendered content: %w", err)
	}

	msg := provider.Message{
		To:      n.RecipientEmail,
		Subject: rendered.Subject,
		HTML:    rendered.HTML,
		Text:    rendered.Text,
		Metadata: map[string]string{
			"notification_id": n.ID,
			"merchant_id":     n.MerchantID,
			"type":            n.Type,
		},
	}

	result, sendErr := s.sender.Send(ctx, msg)
	if sendErr != nil {
		return s.failSend(ctx, logger, n, sendErr)
	}

	attempt := &domain.DeliveryAttempt{
		NotificationID: n.ID,
		Provider:       result.Provider,
		Outcome:        domain.AttemptSuccess,
		ProviderResponse: map[string]any{
			"message_id":  result.ProviderMessageID,
			"status_code": result.StatusCode,
		},
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		return false, fmt.Errorf("failed to record attempt: %w", err)
	}

	if err := s.notifications.MarkSent(ctx, n.ID, result.Provider, result.ProviderMessageID); err != nil {
		return false, fmt.Errorf("failed to mark notification sent: %w", err)
	}

	if err := s.limiter.Record(ctx, n.RecipientEmail, n.Type); err != nil {
		logger.Warn("failed to record send for rate limiting",
			zap.String("notificationId", n.ID),
			zap.Error(err),
		)
	}

	s.metrics.IncEmailSent(result.Provider)
	s.publishEvent(ctx, logger, queue.DeliveryEvent{
		Event:             queue.EventEmailSent,
		NotificationID:    n.ID,
		MerchantID:        n.MerchantID,
		Type:              n.Type,
		Provider:          result.Provider,
		ProviderMessageID: result.ProviderMessageID,
		RetryCount:        n.RetryCount,
		OccurredAt:        s.now().UTC(),
	})

	logger.Info("notification delivered",
		zap.String("notificationId", n.ID),
		zap.String("provider", result.Provider),
		zap.String("providerMessageId", result.ProviderMessageID),
	)
	return true, nil
}

// RetryFailed re-runs delivery for failed notifications that still have
// attempts left. It returns the number of successful redeliveries.
func (s *DeliveryService) RetryFailed(ctx context.Context, maxAttempts int) (int, error) {
	retriable, err := s.notifications.FindRetriable(ctx, maxAttempts, defaultRetryBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to list retriable notifications: %w", err)
	}

	succeeded := 0
	for i := range retriable {
		if ctx.Err() != nil {
			return succeeded, ctx.Err()
		}

		s.metrics.IncRetryScheduled()

		// Ordinary send failures come back as (false, nil) and the batch
		// keeps going; a non-nil error is infrastructure trouble and aborts
		// the whole pass.
		sent, err := s.Deliver(ctx, retriable[i].ID)
		if err != nil {
			return succeeded, fmt.Errorf("retry of notification %s failed: %w", retriable[i].ID, err)
		}
		if sent {
			succeeded++
		}
	}

	return succeeded, nil
}

func (s *DeliveryService) failRender(ctx context.Context, logger *zap.Logger, n *domain.Notification, renderErr error) (bool, error) {
	s.metrics.IncRenderFailure(n.Type)
	logger.Error("template rendering failed",
		zap.String("notificationId", n.ID),
		zap.String("type", n.Type),
		zap.Error(renderErr),
	)

	errMsg := renderErr.Error()
	attempt := &domain.DeliveryAttempt{
		NotificationID: n.ID,
		Provider:       s.sender.ActiveProvider(),
		Outcome:        domain.AttemptFailed,
		ErrorMessage:   &errMsg,
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		return false, fmt.Errorf("failed to record render failure attempt: %w", err)
	}

	if err := s.notifications.MarkFailed(ctx, n.ID, errMsg); err != nil {
		return false, fmt.Errorf("failed to mark notification failed: %w", err)
	}

	s.publishEvent(ctx, logger, queue.DeliveryEvent{
		Event:          queue.EventEmailFailed,
		NotificationID: n.ID,
		MerchantID:     n.MerchantID,
		Type:           n.Type,
		ErrorMessage:   errMsg,
		ErrorCode:      "TEMPLATE_RENDER_ERROR",
		RetryCount:     n.RetryCount + 1,
		WillRetry:      false,
		OccurredAt:     s.now().UTC(),
	})

	return false, nil
}

func (s *DeliveryService) failSend(ctx context.Context, logger *zap.Logger, n *domain.Notification, sendErr error) (bool, error) {
	providerName := s.sender.ActiveProvider()
	var perr *provider.ProviderError
	if errors.As(sendErr, &perr) {
		providerName = perr.Provider
	}

	outcome := domain.AttemptFailed
	if provider.IsTimeout(sendErr) {
		outcome = domain.AttemptTimeout
	}

	code := provider.ErrorCode(sendErr)
	errMsg := sendErr.Error()
	attempt := &domain.DeliveryAttempt{
		NotificationID: n.ID,
		Provider:       providerName,
		Outcome:        outcome,
		ErrorMessage:   &errMsg,
		ProviderResponse: map[string]any{
			"error_code": code,
		},
	}
	if err := s.attempts.Append(ctx, attempt); err != nil {
		return false, fmt.Errorf("failed to record attempt: %w", err)
	}

	if err := s.notifications.MarkFailed(ctx, n.ID, errMsg); err != nil {
		return false, fmt.Errorf("failed to mark notification failed: %w", err)
	}

	s.metrics.IncEmailFailed(providerName, code)
	s.publishEvent(ctx, logger, queue.DeliveryEvent{
		Event:          queue.EventEmailFailed,
		NotificationID: n.ID,
		MerchantID:     n.MerchantID,
		Type:           n.Type,
		Provider:       providerName,
		ErrorMessage:   errMsg,
		ErrorCode:      code,
		RetryCount:     n.RetryCount + 1,
		WillRetry:      provider.IsTransient(sendErr),
		OccurredAt:     s.now().UTC(),
	})

	logger.Error("notification delivery failed",
		zap.String("notificationId", n.ID),
		zap.String("provider", providerName),
		zap.String("errorCode", code),
		zap.Error(sendErr),
	)
	return false, nil
}

func (s *DeliveryService) publishEvent(ctx context.Context, logger *zap.Logger, event queue.DeliveryEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishEvent(ctx, event); err != nil {
		logger.Warn("failed to publish delivery event",
			zap.String("notificationId", event.NotificationID),
			zap.String("event", event.Event),
			zap.Error(err),
		)
	}
}

func templateTypeFor(n *domain.Notification) string {
	if t := strings.TrimSpace(n.TemplateType); t != "" {
		return t
	}
	return n.Type
}

func limitKindFromReason(reason string) string {
	switch {
	case strings.HasPrefix(reason, "Burst"):
		return "burst"
	case strings.HasPrefix(reason, "Daily"):
		return "daily"
	default:
		return "rate"
	}
}
