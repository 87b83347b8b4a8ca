package usecase

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"RatePulse/internal/domain/models"
	"RatePulse/internal/pricing"
)

func newTestIngestor(archive *fakeArchive) (*OutcomeIngestor, *pricing.Estimator, *pricing.Calibrator, *PredictionLog, *fakeMetrics) {
	store := pricing.NewStateStore()
	est := pricing.NewEstimator(store, pricing.DefaultFilterConfig())
	cal := pricing.NewCalibrator(pricing.DefaultCalibratorConfig())
	preds := NewPredictionLog()
	m := newFakeMetrics()
	ing := NewOutcomeIngestor(est, cal, preds, archive, m, 1.0)
	return ing, est, cal, preds, m
}

func outcome(propertyID string, occupancy float64) *models.BookingOutcome {
	return &models.BookingOutcome{
		PropertyID: propertyID,
		StayDate:   testStayDate(),
		Occupancy:  occupancy,
		Price:      149.0,
		Timestamp:  testStayDate().Add(-24 * time.Hour),
	}
}

func TestIngestSeedsEstimator(t *testing.T) {
	archive := &fakeArchive{}
	ing, est, _, _, _ := newTestIngestor(archive)

	if err := ing.Ingest(context.Background(), outcome("hotel-1", 7.0)); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	st, ok := est.State(models.NewBucket("hotel-1", testStayDate()))
	if !ok {
		t.Fatal("expected state after ingest")
	}
	if st.Mean[0] != 7.0 {
		t.Fatalf("level = %v, want 7.0", st.Mean[0])
	}
	if archive.stored() != 1 {
		t.Fatalf("archived = %d, want 1", archive.stored())
	}
}

func TestIngestRecordsResidual(t *testing.T) {
	ing, _, cal, preds, _ := newTestIngestor(&fakeArchive{})

	key := models.NewBucket("hotel-1", testStayDate()).Key()
	preds.Put(key, 6.0)

	if err := ing.Ingest(context.Background(), outcome("hotel-1", 7.5)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if cal.WindowLen() != 1 {
		t.Fatalf("residual window = %d, want 1", cal.WindowLen())
	}

	// Same bucket again without a fresh prediction: no new residual.
	if err := ing.Ingest(context.Background(), outcome("hotel-1", 7.6)); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if cal.WindowLen() != 1 {
		t.Fatalf("residual window = %d, want 1 (prediction consumed)", cal.WindowLen())
	}
}

func TestIngestInvalidObservation(t *testing.T) {
	ing, _, _, _, m := newTestIngestor(&fakeArchive{})

	err := ing.Ingest(context.Background(), outcome("hotel-1", math.NaN()))
	if err == nil {
		t.Fatal("expected error for NaN occupancy")
	}
	if !errors.Is(err, pricing.ErrInvalidObservation) {
		t.Fatalf("expected ErrInvalidObservation, got %v", err)
	}
	if m.errorCount("invalid_observation") != 1 {
		t.Fatalf("expected invalid_observation metric, got %d", m.errorCount("invalid_observation"))
	}
}

func TestIngestArchiveFailureDoesNotLoseLearning(t *testing.T) {
	archive := &fakeArchive{fail: true}
	ing, est, _, _, m := newTestIngestor(archive)

	if err := ing.Ingest(context.Background(), outcome("hotel-1", 5.0)); err != nil {
		t.Fatalf("archive failure must not fail ingest: %v", err)
	}
	if _, ok := est.State(models.NewBucket("hotel-1", testStayDate())); !ok {
		t.Fatal("estimator should still learn when archive is down")
	}
	if m.errorCount("archive_store") != 1 {
		t.Fatalf("expected archive_store metric, got %d", m.errorCount("archive_store"))
	}
}

func TestIngestBatchStopsAtInvalid(t *testing.T) {
	ing, _, _, _, _ := newTestIngestor(&fakeArchive{})

	batch := []*models.BookingOutcome{
		outcome("hotel-1", 4.0),
		outcome("hotel-2", 5.0),
		outcome("hotel-3", math.Inf(1)),
		outcome("hotel-4", 6.0),
	}
	applied, err := ing.IngestBatch(context.Background(), batch)
	if err == nil {
		t.Fatal("expected error from invalid outcome")
	}
	if applied != 2 {
		t.Fatalf("applied = %d, want 2", applied)
	}
}
