package queue

import "context"

// Queue names. The worker consumes delivery commands; delivery outcomes are
// published as events for downstream consumers.
const (
	DeliveryQueueName = "email.deliver"
	DeliveryDLQName   = "dlq.email.deliver"
	EventsQueueName   = "email.events"
)

// queueMaxPriority is the RabbitMQ x-max-priority value for the work queue.
const queueMaxPriority int32 = 3

// Publisher publishes delivery commands and outcome events.
type Publisher interface {
	PublishCommand(ctx context.Context, cmd DeliveryCommand) error
	PublishEvent(ctx context.Context, event DeliveryEvent) error
	Close() error
}

// CommandHandler handles a consumed delivery command.
type CommandHandler func(ctx context.Context, cmd DeliveryCommand) error

// Consumer consumes delivery commands from the work queue.
type Consumer interface {
	Consume(ctx context.Context, handler CommandHandler) error
	Close() error
}
