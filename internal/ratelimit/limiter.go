package ratelimit

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBurstLimit = 20
	defaultRate       = "10/min"
	defaultDailyLimit = 1000

	// Length of the persisted window rows created by Record. All three
	// caps sum over the same rows with different lookback horizons.
	recordWindowLength = time.Hour

	burstWindow = time.Minute
	dailyWindow = 24 * time.Hour
)

var ratePattern = regexp.MustCompile(`^(\d+)/(\w+)$`)

// WindowStore is the persistence port for rate-limit window rows.
type WindowStore interface {
	// SumSince returns the total send count across windows whose start is
	// at or after since, for the recipient/type pair. An empty type matches
	// rows recorded without a type.
	SumSince(ctx context.Context, recipient, notificationType string, since time.Time) (int, error)
	// Increment adds one send to the open window containing now, creating
	// a [now, now+windowLength) window when none is open.
	Increment(ctx context.Context, recipient, notificationType string, now time.Time, windowLength time.Duration) error
}

// Limits configures the three independent caps.
type Limits struct {
	BurstLimit int    // sends per minute
	Rate       string // sustained cap, "<int>/<unit>" with unit in sec|min|hour|day
	DailyLimit int    // sends per 24h
}

// Limiter gate-keeps sends per (recipient, notification type). Burst is
// checked first, then the sustained rate, then the daily cap, short-
// circuiting on the first violation.
type Limiter struct {
	store      WindowStore
	burstLimit int
	rateLimit  int
	rateWindow time.Duration
	dailyLimit int
	now        func() time.Time
	logger     *zap.Logger
}

// ParseRate parses a "<int>/<unit>" rate string. A malformed string is a
// configuration error; it is rejected here, at load, never at check time.
func ParseRate(s string) (int, time.Duration, error) {
	m := ratePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid rate limit format %q", s)
	}

	count, err := strconv.Atoi(m[1])
	if err != nil || count <= 0 {
		return 0, 0, fmt.Errorf("invalid rate limit count %q", m[1])
	}

	var window time.Duration
	switch m[2] {
	case "sec":
		window = time.Second
	case "min":
		window = time.Minute
	case "hour":
		window = time.Hour
	case "day":
		window = 24 * time.Hour
	default:
		return 0, 0, fmt.Errorf("invalid rate limit unit %q", m[2])
	}

	return count, window, nil
}

func NewLimiter(store WindowStore, limits Limits, logger *zap.Logger) (*Limiter, error) {
	if store == nil {
		return nil, fmt.Errorf("window store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if limits.BurstLimit <= 0 {
		limits.BurstLimit = defaultBurstLimit
	}
	if limits.Rate == "" {
		limits.Rate = defaultRate
	}
	if limits.DailyLimit <= 0 {
		limits.DailyLimit = defaultDailyLimit
	}

	rateLimit, rateWindow, err := ParseRate(limits.Rate)
	if err != nil {
		return nil, err
	}

	return &Limiter{
		store:      store,
		burstLimit: limits.BurstLimit,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
		dailyLimit: limits.DailyLimit,
		now:        time.Now,
		logger:     logger,
	}, nil
}

// Check reports whether a send is allowed now. When denied, the returned
// reason names only the first violated cap.
func (l *Limiter) Check(ctx context.Context, recipient, notificationType string) (bool, string, error) {
	now := l.now().UTC()

	burstCount, err := l.store.SumSince(ctx, recipient, notificationType, now.Add(-burstWindow))
	if err != nil {
		return false, "", fmt.Errorf("failed to read burst window: %w", err)
	}
	if burstCount >= l.burstLimit {
		return false, fmt.Sprintf("Burst limit exceeded: %d/%d in last minute", burstCount, l.burstLimit), nil
	}

	rateCount, err := l.store.SumSince(ctx, recipient, notificationType, now.Add(-l.rateWindow))
	if err != nil {
		return false, "", fmt.Errorf("failed to read rate window: %w", err)
	}
	if rateCount >= l.rateLimit {
		return false, fmt.Sprintf("Rate limit exceeded: %d/%d in %s", rateCount, l.rateLimit, l.rateWindow), nil
	}

	dailyCount, err := l.store.SumSince(ctx, recipient, notificationType, now.Add(-dailyWindow))
	if err != nil {
		return false, "", fmt.Errorf("failed to read daily window: %w", err)
	}
	if dailyCount >= l.dailyLimit {
		return false, fmt.Sprintf("Daily limit exceeded: %d/%d", dailyCount, l.dailyLimit), nil
	}

	return true, "", nil
}

// Record counts one send against the open window for the pair.
func (l *Limiter) Record(ctx context.Context, recipient, notificationType string) error {
	now := l.now().UTC()
	if err := l.store.Increment(ctx, recipient, notificationType, now, recordWindowLength); err != nil {
		return fmt.Errorf("failed to record send: %w", err)
	}

	l.logger.Debug("recorded send for rate limiting",
		zap.String("recipient", recipient),
		zap.String("notificationType", notificationType),
	)
	return nil
}
