package domain

import (
	"fmt"
	"strings"
	"time"
)

// AttemptOutcome classifies a single delivery try.
type AttemptOutcome string

const (
	AttemptSuccess AttemptOutcome = "success"
	AttemptFailed  AttemptOutcome = "failed"
	AttemptTimeout AttemptOutcome = "timeout"
)

func (o AttemptOutcome) String() string { return string(o) }

func (o AttemptOutcome) IsValid() bool {
	switch o {
	case AttemptSuccess, AttemptFailed, AttemptTimeout:
		return true
	}
	return false
}

func ParseAttemptOutcomeFromString(s string) (AttemptOutcome, error) {
	o := AttemptOutcome(strings.ToLower(strings.TrimSpace(s)))
	if !o.IsValid() {
		return "", fmt.Errorf("%w: invalid attempt outcome %q", ErrValidation, s)
	}
	return o, nil
}

// DeliveryAttempt is an immutable record of one provider-send try.
// AttemptNumber is 1-based and strictly increasing per notification;
// the repository assigns it, callers never set it.
type DeliveryAttempt struct {
	ID               string
	NotificationID   string
	AttemptNumber    int
	Provider         string
	Outcome          AttemptOutcome
	ErrorMessage     *string
	ProviderResponse map[string]any
	CreatedAt        time.Time
}
