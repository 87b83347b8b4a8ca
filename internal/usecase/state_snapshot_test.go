package usecase

import (
	"context"
	"testing"
	"time"

	"RatePulse/internal/domain/models"
	"RatePulse/internal/pricing"
	"RatePulse/pkg/cache"
	"RatePulse/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(&logger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return l
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	defer c.Close()

	store := pricing.NewStateStore()
	est := pricing.NewEstimator(store, pricing.DefaultFilterConfig())
	seedBucket(t, est, "hotel-1", testStayDate(), 9.0, 9.4)
	seedBucket(t, est, "hotel-2", testStayDate().Add(24*time.Hour), 4.0)

	snap := NewStateSnapshotter(store, c, testLogger(t), time.Minute, time.Hour)
	if err := snap.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	// A fresh store on a restarted instance picks the snapshot up.
	restoredStore := pricing.NewStateStore()
	restoredSnap := NewStateSnapshotter(restoredStore, c, testLogger(t), time.Minute, time.Hour)
	n, err := restoredSnap.Restore(ctx)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if n != 2 {
		t.Fatalf("restored = %d, want 2", n)
	}

	orig, _ := store.Get(models.NewBucket("hotel-1", testStayDate()))
	got, ok := restoredStore.Get(models.NewBucket("hotel-1", testStayDate()))
	if !ok {
		t.Fatal("expected hotel-1 state after restore")
	}
	if got.Mean != orig.Mean || got.Steps != orig.Steps {
		t.Fatalf("restored state %+v != original %+v", got, orig)
	}
}

func TestRestoreEmptyCacheIsNotAnError(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()

	store := pricing.NewStateStore()
	snap := NewStateSnapshotter(store, c, testLogger(t), time.Minute, time.Hour)
	n, err := snap.Restore(context.Background())
	if err != nil {
		t.Fatalf("restore on cold cache: %v", err)
	}
	if n != 0 {
		t.Fatalf("restored = %d, want 0", n)
	}
}

func TestRestoreKeepsLiveState(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryCache()
	defer c.Close()

	store := pricing.NewStateStore()
	est := pricing.NewEstimator(store, pricing.DefaultFilterConfig())
	seedBucket(t, est, "hotel-1", testStayDate(), 3.0)

	snap := NewStateSnapshotter(store, c, testLogger(t), time.Minute, time.Hour)
	if err := snap.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Live traffic moves the state past the snapshot before restore runs.
	seedBucket(t, est, "hotel-1", testStayDate(), 8.0, 8.2)
	live, _ := store.Get(models.NewBucket("hotel-1", testStayDate()))

	if _, err := snap.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	got, _ := store.Get(models.NewBucket("hotel-1", testStayDate()))
	if got.Steps != live.Steps {
		t.Fatalf("restore clobbered live state: steps %d -> %d", live.Steps, got.Steps)
	}
}
