package queue

import (
	"fmt"
	"strings"
	"time"
)

// Delivery event kinds published to the events queue.
const (
	EventEmailSent   = "email.sent"
	EventEmailFailed = "email.failed"
)

// DeliveryCommand is the broker payload asking the worker to deliver one
// notification.
type DeliveryCommand struct {
	NotificationID string `json:"notificationId"`
	CorrelationID  string `json:"correlationId,omitempty"`
}

func (m DeliveryCommand) Validate() error {
	if strings.TrimSpace(m.NotificationID) == "" {
		return fmt.Errorf("notificationId is required")
	}
	return nil
}

// DeliveryEvent reports the outcome of a delivery attempt to downstream
// consumers (analytics, webhooks).
type DeliveryEvent struct {
	Event             string    `json:"event"`
	NotificationID    string    `json:"notificationId"`
	MerchantID        string    `json:"merchantId,omitempty"`
	Type              string    `json:"type"`
	Provider          string    `json:"provider,omitempty"`
	ProviderMessageID string    `json:"providerMessageId,omitempty"`
	ErrorMessage      string    `json:"errorMessage,omitempty"`
	ErrorCode         string    `json:"errorCode,omitempty"`
	RetryCount        int       `json:"retryCount"`
	WillRetry         bool      `json:"willRetry"`
	OccurredAt        time.Time `json:"occurredAt"`
}

func (m DeliveryEvent) Validate() error {
	if m.Event != EventEmailSent && m.Event != EventEmailFailed {
		return fmt.Errorf("invalid event kind %q", m.Event)
	}
	if strings.TrimSpace(m.NotificationID) == "" {
		return fmt.Errorf("notificationId is required")
	}
	return nil
}
