package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Status represents the lifecycle state of a notification.
//
// The delivery worker only transitions pending -> sent | failed; the
// remaining states are written by the provider webhook path.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusBounced   Status = "bounced"
	StatusDelivered Status = "delivered"
	StatusOpened    Status = "opened"
	StatusClicked   Status = "clicked"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusFailed, StatusBounced, StatusDelivered, StatusOpened, StatusClicked:
		return true
	}
	return false
}

// IsTerminalForDelivery reports whether the delivery worker is done with
// this notification. Failed rows are still eligible for retry cycles.
func (s Status) IsTerminalForDelivery() bool {
	switch s {
	case StatusSent, StatusBounced, StatusDelivered, StatusOpened, StatusClicked:
		return true
	}
	return false
}

func ParseStatusFromString(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid status %q", ErrValidation, s)
	}
	return st, nil
}

// Notification type constants. Types are free-form strings at the schema
// level; these cover the categories the platform emits today.
const (
	TypeWelcome            = "welcome"
	TypeRegistrationFinish = "registration_finish"
	TypeBillingExpired     = "billing_expired"
	TypeBillingLowCredits  = "billing_low_credits"
	TypeBillingZeroBalance = "billing_zero_balance"
	TypeAnnouncement       = "announcement"
	TypeCustom             = "custom"
)

// Notification is one outbound email attempt-group.
type Notification struct {
	ID                string
	MerchantID        string
	RecipientEmail    string
	Type              string
	TemplateType      string
	TemplateVariables map[string]any
	Subject           string
	Content           string
	Status            Status
	Provider          *string
	ProviderMessageID *string
	ErrorMessage      *string
	RetryCount        int
	Metadata          map[string]any
	CreatedAt         time.Time
	SentAt            *time.Time
	UpdatedAt         time.Time
}

func (n *Notification) Validate() error {
	if strings.TrimSpace(n.RecipientEmail) == "" {
		return fmt.Errorf("%w: recipient email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(n.RecipientEmail); err != nil {
		return fmt.Errorf("%w: invalid recipient email %q", ErrValidation, n.RecipientEmail)
	}
	if strings.TrimSpace(n.Type) == "" {
		return fmt.Errorf("%w: notification type is required", ErrValidation)
	}
	if !n.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, n.Status)
	}
	return nil
}
