package service

import (
	"context"
	"testing"
	"time"

	"github.com/glamyouup/mailflow/internal/domain"
	"go.uber.org/zap"
)

func TestNewRetryScannerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewRetryScanner(nil, time.Second, 3, zap.NewNop()); err == nil {
		t.Fatal("expected error for nil delivery service")
	}
}

func TestRetryScannerDefaults(t *testing.T) {
	t.Parallel()

	f := newDeliveryFixture(t, nil)
	scanner, err := NewRetryScanner(f.svc, 0, 0, nil)
	if err != nil {
		t.Fatalf("NewRetryScanner() error = %v", err)
	}
	if scanner.interval != defaultRetryScanInterval {
		t.Fatalf("interval = %v, want %v", scanner.interval, defaultRetryScanInterval)
	}
	if scanner.maxAttempts != defaultRetryMaxAttempts {
		t.Fatalf("maxAttempts = %d, want %d", scanner.maxAttempts, defaultRetryMaxAttempts)
	}
}

func TestRetryScannerRedeliversFailedNotification(t *testing.T) {
	t.Parallel()

	n := pendingNotification("n-retry")
	n.Status = domain.StatusFailed
	f := newDeliveryFixture(t, n)
	f.notifs.retriable = []domain.Notification{*n}

	scanner, err := NewRetryScanner(f.svc, 10*time.Millisecond, 3, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRetryScanner() error = %v", err)
	}

	// The initial scan runs before the first ticker edge.
	scanner.scan(context.Background())

	if len(f.notifs.markedSent) != 1 || f.notifs.markedSent[0] != "n-retry" {
		t.Fatalf("marked sent = %v, want [n-retry]", f.notifs.markedSent)
	}
}

func TestRetryScannerStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	f := newDeliveryFixture(t, nil)
	scanner, err := NewRetryScanner(f.svc, 5*time.Millisecond, 3, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRetryScanner() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- scanner.Start(ctx)
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Start() did not stop after context cancellation")
	}
}
