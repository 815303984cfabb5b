package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/glamyouup/mailflow/internal/domain"
	"github.com/glamyouup/mailflow/internal/observability"
	"github.com/glamyouup/mailflow/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minDispatcherConcurrency = 1

// Dispatcher consumes delivery commands from the work queue and hands them to
// the delivery service.
type Dispatcher struct {
	delivery    *DeliveryService
	consumer    queue.Consumer
	concurrency int
	logger      *zap.Logger
}

func NewDispatcher(
	delivery *DeliveryService,
	consumer queue.Consumer,
	concurrency int,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if delivery == nil {
		return nil, fmt.Errorf("delivery service is required")
	}
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if concurrency < minDispatcherConcurrency {
		concurrency = minDispatcherConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		delivery:    delivery,
		consumer:    consumer,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// Start consumes the delivery queue until context cancellation.
func (d *Dispatcher) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < d.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			d.logger.Info("delivery worker started", zap.Int("workerId", workerID))

			if err := d.consumer.Consume(groupCtx, d.handleCommand); err != nil {
				d.logger.Error("delivery worker stopped with error",
					zap.Int("workerId", workerID),
					zap.Error(err),
				)
				return err
			}

			d.logger.Info("delivery worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (d *Dispatcher) handleCommand(ctx context.Context, cmd queue.DeliveryCommand) error {
	if cmd.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, cmd.CorrelationID)
	}

	// A false result without error means the notification stays pending or
	// failed; the row is consistent either way, so the command is acked.
	_, err := d.delivery.Deliver(ctx, cmd.NotificationID)
	if errors.Is(err, domain.ErrNotFound) {
		d.logger.Warn("notification not found, skipping command",
			zap.String("notificationId", cmd.NotificationID),
		)
		return nil
	}
	return err
}
