package service

import (
	"time"

	"RatePulse/internal/domain/models"
)

// Estimator maintains latent demand state per bucket from noisy observations.
type Estimator interface {
	Update(obs models.Observation) (models.DemandState, error)
	State(bucket models.Bucket) (models.DemandState, bool)
	Seeded() bool
}

// Forecaster projects a bucket's current state to a target stay date.
type Forecaster interface {
	Forecast(bucket models.Bucket, target time.Time) (models.Forecast, error)
}

// Calibrator wraps raw forecast variance into an interval with empirical coverage.
type Calibrator interface {
	Calibrate(f models.Forecast, nominalCoverage float64) models.CalibratedInterval
	Record(predicted, actual float64)
	WindowLen() int
}

// RatePolicy maps a calibrated interval into a final price recommendation.
type RatePolicy interface {
	Price(ci models.CalibratedInterval) models.PriceQuote
}
