package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetryScanInterval = 30 * time.Second
	defaultRetryMaxAttempts  = 3
)

// RetryScanner periodically re-delivers failed notifications that still have
// attempts left.
type RetryScanner struct {
	delivery    *DeliveryService
	interval    time.Duration
	maxAttempts int
	logger      *zap.Logger
}

func NewRetryScanner(
	delivery *DeliveryService,
	interval time.Duration,
	maxAttempts int,
	logger *zap.Logger,
) (*RetryScanner, error) {
	if delivery == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	if interval <= 0 {
		interval = defaultRetryScanInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultRetryMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryScanner{
		delivery:    delivery,
		interval:    interval,
		maxAttempts: maxAttempts,
		logger:      logger,
	}, nil
}

func (s *RetryScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial scan so already-due retries do not wait for the first ticker edge.
	s.scan(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.scan(ctx)
		}
	}
}

func (s *RetryScanner) scan(ctx context.Context) {
	succeeded, err := s.delivery.RetryFailed(ctx, s.maxAttempts)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("retry scan failed", zap.Error(err))
		return
	}

	if succeeded > 0 {
		s.logger.Info("retry scan redelivered notifications",
			zap.Int("succeeded", succeeded),
		)
	}
}
