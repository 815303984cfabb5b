package domain

import "time"

// RateLimitWindow is an aggregated send-count bucket for a
// (recipient, notification type) pair over a fixed time window.
//
// NotificationType nil means the bucket applies across all types. Burst,
// sustained and daily caps all sum over the same rows with different
// lookback horizons; there is no per-cap counter.
type RateLimitWindow struct {
	ID               string
	RecipientEmail   string
	NotificationType *string
	SendCount        int
	WindowStart      time.Time
	WindowEnd        time.Time
	CreatedAt        time.Time
}
