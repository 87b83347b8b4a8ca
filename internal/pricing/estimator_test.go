package pricing

import (
	"errors"
	"math"
	"testing"
	"time"

	"RatePulse/internal/domain/models"
)

func testBucket() models.Bucket {
	return models.NewBucket("hotel-1", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
}

func obs(b models.Bucket, day int, value, variance float64) models.Observation {
	return models.Observation{
		Bucket:    b,
		Timestamp: b.StayDate.Add(-time.Duration(30-day) * 24 * time.Hour),
		Value:     value,
		Variance:  variance,
		Source:    "booking",
	}
}

func TestEstimatorFirstObservation(t *testing.T) {
	cfg := DefaultFilterConfig()
	est := NewEstimator(NewStateStore(), cfg)
	b := testBucket()

	st, err := est.Update(obs(b, 0, 5, 1))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if st.Mean[0] != 5 {
		t.Fatalf("expected mean 5, got %v", st.Mean[0])
	}
	if st.Cov[0][0] != cfg.PriorVariance {
		t.Fatalf("expected wide prior %v, got %v", cfg.PriorVariance, st.Cov[0][0])
	}

	got, ok := est.State(b)
	if !ok {
		t.Fatalf("expected state for seeded bucket")
	}
	if got.Mean[0] != 5 {
		t.Fatalf("unexpected stored mean %v", got.Mean[0])
	}
}

func TestEstimatorSecondObservationTightens(t *testing.T) {
	cfg := DefaultFilterConfig()
	est := NewEstimator(NewStateStore(), cfg)
	b := testBucket()

	if _, err := est.Update(obs(b, 0, 5, 1)); err != nil {
		t.Fatalf("first update: %v", err)
	}
	st, err := est.Update(obs(b, 1, 6, 1))
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if st.Mean[0] <= 5 || st.Mean[0] >= 6 {
		t.Fatalf("expected mean between observations, got %v", st.Mean[0])
	}
	if st.Cov[0][0] >= cfg.PriorVariance {
		t.Fatalf("expected covariance to tighten below prior %v, got %v", cfg.PriorVariance, st.Cov[0][0])
	}
}

func TestEstimatorInvalidObservation(t *testing.T) {
	est := NewEstimator(NewStateStore(), DefaultFilterConfig())
	b := testBucket()

	for _, variance := range []float64{0, -1} {
		if _, err := est.Update(obs(b, 0, 5, variance)); !errors.Is(err, ErrInvalidObservation) {
			t.Fatalf("variance %v: expected ErrInvalidObservation, got %v", variance, err)
		}
	}
	if _, err := est.Update(obs(b, 0, math.NaN(), 1)); !errors.Is(err, ErrInvalidObservation) {
		t.Fatalf("expected ErrInvalidObservation for NaN value, got %v", err)
	}
	if _, ok := est.State(b); ok {
		t.Fatalf("invalid observations must not seed state")
	}
}

func TestEstimatorCovarianceStaysPSD(t *testing.T) {
	est := NewEstimator(NewStateStore(), DefaultFilterConfig())
	b := testBucket()

	values := []float64{5, 6, 4.5, 8, 7.2, 3, 9.1, 6.6, 5.5, 10, 2, 7}
	variances := []float64{1, 0.01, 100, 0.5, 2, 1e-6, 3, 1, 0.1, 50, 1, 0.25}

	for i, v := range values {
		st, err := est.Update(obs(b, i, v, variances[i]))
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		if st.Cov[0][1] != st.Cov[1][0] {
			t.Fatalf("update %d: covariance not symmetric: %v vs %v", i, st.Cov[0][1], st.Cov[1][0])
		}
		tr := st.Cov[0][0] + st.Cov[1][1]
		det := st.Cov[0][0]*st.Cov[1][1] - st.Cov[0][1]*st.Cov[1][0]
		minEig := (tr - math.Sqrt(tr*tr-4*det)) / 2
		if minEig < 0 {
			t.Fatalf("update %d: negative eigenvalue %v", i, minEig)
		}
	}
}

func TestEstimatorTracksLevelShift(t *testing.T) {
	est := NewEstimator(NewStateStore(), DefaultFilterConfig())
	b := testBucket()

	for i := 0; i < 20; i++ {
		if _, err := est.Update(obs(b, i, 5, 0.5)); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	var st models.DemandState
	var err error
	for i := 20; i < 60; i++ {
		if st, err = est.Update(obs(b, i, 15, 0.5)); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	if math.Abs(st.Mean[0]-15) > 1 {
		t.Fatalf("estimator failed to track shift, level %v", st.Mean[0])
	}
}

func TestEstimatorBucketsIndependent(t *testing.T) {
	est := NewEstimator(NewStateStore(), DefaultFilterConfig())
	b1 := models.NewBucket("hotel-1", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	b2 := models.NewBucket("hotel-2", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

	if _, err := est.Update(obs(b1, 0, 5, 1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, ok := est.State(b2); ok {
		t.Fatalf("unseeded bucket must have no state")
	}
	st, ok := est.State(b1)
	if !ok || st.Mean[0] != 5 {
		t.Fatalf("seeded bucket state lost: ok=%v mean=%v", ok, st.Mean)
	}
}
