package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"RatePulse/internal/domain/models"
	"RatePulse/internal/pricing"
)

func testStayDate() time.Time {
	return time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
}

func newTestEngine() (*pricing.Estimator, *QuoteService, *PredictionLog, *fakePublisher, *fakeMetrics) {
	store := pricing.NewStateStore()
	est := pricing.NewEstimator(store, pricing.DefaultFilterConfig())
	fc := pricing.NewForecaster(est, 24*time.Hour)
	cal := pricing.NewCalibrator(pricing.DefaultCalibratorConfig())
	policy := pricing.NewPolicy(pricing.DefaultPolicyConfig())
	preds := NewPredictionLog()
	pub := &fakePublisher{}
	m := newFakeMetrics()
	svc := NewQuoteService(fc, cal, policy, preds, pub, m, 0.9)
	return est, svc, preds, pub, m
}

func seedBucket(t *testing.T, est *pricing.Estimator, propertyID string, stayDate time.Time, values ...float64) {
	t.Helper()
	ts := stayDate.Add(-30 * 24 * time.Hour)
	for i, v := range values {
		_, err := est.Update(models.Observation{
			Bucket:    models.NewBucket(propertyID, stayDate),
			Timestamp: ts.Add(time.Duration(i) * 24 * time.Hour),
			Value:     v,
			Variance:  1.0,
			Source:    "booking",
		})
		if err != nil {
			t.Fatalf("seed update: %v", err)
		}
	}
}

func TestQuoteUnseededBucket(t *testing.T) {
	_, svc, _, _, m := newTestEngine()

	_, err := svc.Quote(context.Background(), "hotel-1", testStayDate(), 0.9)
	if err == nil {
		t.Fatal("expected error for unseeded bucket")
	}
	if !errors.Is(err, pricing.ErrNoStateAvailable) {
		t.Fatalf("expected ErrNoStateAvailable, got %v", err)
	}
	if m.errorCount("no_state") != 1 {
		t.Fatalf("expected no_state error metric, got %d", m.errorCount("no_state"))
	}
}

func TestQuoteSeededBucket(t *testing.T) {
	est, svc, preds, pub, m := newTestEngine()
	seedBucket(t, est, "hotel-1", testStayDate(), 9.5, 10.2, 10.8)

	q, err := svc.Quote(context.Background(), "hotel-1", testStayDate(), 0.9)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.PropertyID != "hotel-1" {
		t.Fatalf("property = %q", q.PropertyID)
	}
	if q.Currency != "USD" {
		t.Fatalf("currency = %q", q.Currency)
	}
	if q.Price.IsZero() || q.Price.LessThan(q.LowerPrice) || q.Price.GreaterThan(q.UpperPrice) {
		t.Fatalf("price %s outside [%s, %s]", q.Price, q.LowerPrice, q.UpperPrice)
	}
	if m.quotes != 1 {
		t.Fatalf("quotes issued = %d, want 1", m.quotes)
	}
	if len(pub.quotes) != 1 {
		t.Fatalf("published quotes = %d, want 1", len(pub.quotes))
	}

	key := models.NewBucket("hotel-1", testStayDate()).Key()
	if _, ok := preds.Take(key); !ok {
		t.Fatal("expected prediction recorded for residual scoring")
	}
	if _, ok := preds.Take(key); ok {
		t.Fatal("prediction should be consumed only once")
	}
}

func TestQuoteDefaultCoverage(t *testing.T) {
	est, svc, _, _, _ := newTestEngine()
	seedBucket(t, est, "hotel-1", testStayDate(), 8.0, 8.5)

	q, err := svc.Quote(context.Background(), "hotel-1", testStayDate(), 0)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.NominalCoverage != 0.9 {
		t.Fatalf("coverage = %v, want default 0.9", q.NominalCoverage)
	}
}

func TestQuotePublishFailureIsBestEffort(t *testing.T) {
	est, svc, _, pub, m := newTestEngine()
	pub.fail = true
	seedBucket(t, est, "hotel-1", testStayDate(), 10.0)

	q, err := svc.Quote(context.Background(), "hotel-1", testStayDate(), 0.9)
	if err != nil {
		t.Fatalf("quote should survive publish failure: %v", err)
	}
	if q == nil {
		t.Fatal("expected quote despite publish failure")
	}
	if m.errorCount("quote_publish") != 1 {
		t.Fatalf("expected quote_publish error metric, got %d", m.errorCount("quote_publish"))
	}
}
