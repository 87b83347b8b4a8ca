package pricing

import (
	"errors"
	"testing"
	"time"
)

func seededForecaster(t *testing.T) (*Forecaster, *Estimator) {
	t.Helper()
	est := NewEstimator(NewStateStore(), DefaultFilterConfig())
	b := testBucket()
	for i, v := range []float64{5, 6, 5.5, 6.2} {
		if _, err := est.Update(obs(b, i, v, 1)); err != nil {
			t.Fatalf("seed update %d: %v", i, err)
		}
	}
	return NewForecaster(est, 24*time.Hour), est
}

func TestForecastUnseededBucket(t *testing.T) {
	est := NewEstimator(NewStateStore(), DefaultFilterConfig())
	fc := NewForecaster(est, 24*time.Hour)

	_, err := fc.Forecast(testBucket(), time.Now())
	if !errors.Is(err, ErrNoStateAvailable) {
		t.Fatalf("expected ErrNoStateAvailable, got %v", err)
	}
}

func TestForecastVarianceNonDecreasing(t *testing.T) {
	fc, est := seededForecaster(t)
	b := testBucket()
	st, _ := est.State(b)

	prev := -1.0
	for days := 0; days <= 30; days += 5 {
		f, err := fc.Forecast(b, st.UpdatedAt.Add(time.Duration(days)*24*time.Hour))
		if err != nil {
			t.Fatalf("forecast at %d days: %v", days, err)
		}
		if f.Variance < prev {
			t.Fatalf("variance decreased with horizon: %v < %v at %d days", f.Variance, prev, days)
		}
		prev = f.Variance
	}
}

func TestForecastReadOnly(t *testing.T) {
	fc, est := seededForecaster(t)
	b := testBucket()

	before, _ := est.State(b)
	if _, err := fc.Forecast(b, before.UpdatedAt.Add(10*24*time.Hour)); err != nil {
		t.Fatalf("forecast: %v", err)
	}
	after, _ := est.State(b)
	if before != after {
		t.Fatalf("forecast mutated stored state: %+v vs %+v", before, after)
	}
}

func TestForecastHorizonSteps(t *testing.T) {
	fc, est := seededForecaster(t)
	b := testBucket()
	st, _ := est.State(b)

	f, err := fc.Forecast(b, st.UpdatedAt.Add(7*24*time.Hour))
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if f.Horizon != 7 {
		t.Fatalf("expected 7 steps, got %d", f.Horizon)
	}
	// Targets at or before the last update extrapolate zero steps.
	f, err = fc.Forecast(b, st.UpdatedAt.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if f.Horizon != 0 {
		t.Fatalf("expected 0 steps for past target, got %d", f.Horizon)
	}
}
