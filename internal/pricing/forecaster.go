package pricing

import (
	"fmt"
	"time"

	"RatePulse/internal/domain/models"
)

// Forecaster projects current demand state forward to a target stay date.
// It reads a copy of the state and extrapolates with the estimator's own
// transition model, so a forecast never mutates anything.
type Forecaster struct {
	est  *Estimator
	step time.Duration
}

// NewForecaster creates a forecaster. step is the duration one filter step
// represents; daily buckets use 24h.
func NewForecaster(est *Estimator, step time.Duration) *Forecaster {
	if step <= 0 {
		step = 24 * time.Hour
	}
	return &Forecaster{est: est, step: step}
}

// Forecast propagates the bucket's state to the target date. Variance never
// decreases with horizon because each step only adds process noise.
func (f *Forecaster) Forecast(b models.Bucket, target time.Time) (models.Forecast, error) {
	st, ok := f.est.State(b)
	if !ok {
		return models.Forecast{}, fmt.Errorf("%w: bucket %s", ErrNoStateAvailable, b.Key())
	}

	horizon := 0
	if target.After(st.UpdatedAt) {
		horizon = int(target.Sub(st.UpdatedAt) / f.step)
	}

	// Work on the copy; the store is untouched.
	predictInPlace(&st, f.est.cfg, horizon)

	return models.Forecast{
		Bucket:      b,
		Point:       st.Mean[0],
		Variance:    st.Cov[0][0],
		Horizon:     horizon,
		GeneratedAt: time.Now(),
	}, nil
}
