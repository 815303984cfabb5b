package repository

import (
	"context"
	"testing"
	"time"
)

func TestIncrementReusesOpenWindow(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormRateLimitRepo(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		if err := repo.Increment(ctx, "a@b.com", "welcome", now.Add(time.Duration(i)*time.Minute), time.Hour); err != nil {
			t.Fatalf("Increment() #%d error = %v", i+1, err)
		}
	}

	// All three land in the [now, now+1h) window created by the first call.
	var windows []RateLimitWindowModel
	if err := db.Find(&windows).Error; err != nil {
		t.Fatalf("failed to load windows: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("windows = %d, want 1", len(windows))
	}
	if windows[0].SendCount != 3 {
		t.Fatalf("send count = %d, want 3", windows[0].SendCount)
	}

	total, err := repo.SumSince(ctx, "a@b.com", "welcome", now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("SumSince() error = %v", err)
	}
	if total != 3 {
		t.Fatalf("SumSince() = %d, want 3", total)
	}
}

func TestIncrementOpensNewWindowAfterClose(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormRateLimitRepo(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := repo.Increment(ctx, "a@b.com", "welcome", now, time.Hour); err != nil {
		t.Fatalf("Increment() error = %v", err)
	}
	if err := repo.Increment(ctx, "a@b.com", "welcome", now.Add(2*time.Hour), time.Hour); err != nil {
		t.Fatalf("Increment() after window close error = %v", err)
	}

	var count int64
	if err := db.Model(&RateLimitWindowModel{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count windows: %v", err)
	}
	if count != 2 {
		t.Fatalf("windows = %d, want 2", count)
	}
}

func TestSumSinceScopesByRecipientTypeAndLookback(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormRateLimitRepo(db)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []struct {
		recipient string
		kind      string
		at        time.Time
	}{
		{"a@b.com", "welcome", now},
		{"a@b.com", "welcome", now.Add(-2 * time.Hour)},
		{"a@b.com", "announcement", now},
		{"c@d.com", "welcome", now},
		{"a@b.com", "", now},
	}
	for _, s := range seed {
		if err := repo.Increment(ctx, s.recipient, s.kind, s.at, time.Hour); err != nil {
			t.Fatalf("Increment(%s, %q) error = %v", s.recipient, s.kind, err)
		}
	}

	total, err := repo.SumSince(ctx, "a@b.com", "welcome", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("SumSince() error = %v", err)
	}
	// The stale window, the other type, the other recipient and the
	// untyped bucket are all out of scope.
	if total != 1 {
		t.Fatalf("SumSince() = %d, want 1", total)
	}

	untyped, err := repo.SumSince(ctx, "a@b.com", "", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("SumSince() untyped error = %v", err)
	}
	if untyped != 1 {
		t.Fatalf("SumSince() untyped = %d, want 1", untyped)
	}
}
