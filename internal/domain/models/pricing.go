package models

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Bucket identifies one independent demand-state series: a property and a stay date.
type Bucket struct {
	PropertyID string
	StayDate   time.Time // truncated to day, UTC
}

// NewBucket builds a bucket key with the stay date normalized to a UTC day boundary.
func NewBucket(propertyID string, stayDate time.Time) Bucket {
	return Bucket{PropertyID: propertyID, StayDate: stayDate.UTC().Truncate(24 * time.Hour)}
}

// Key returns the canonical map key for the bucket.
func (b Bucket) Key() string {
	return fmt.Sprintf("%s:%s", b.PropertyID, b.StayDate.Format("2006-01-02"))
}

// Observation is a single noisy demand signal for a bucket.
// Immutable once recorded; consumed exactly once by the estimator.
type Observation struct {
	Bucket    Bucket
	Timestamp time.Time
	Value     float64 // bookings count or occupancy delta
	Variance  float64 // observation noise estimate, must be > 0
	Source    string  // "booking", "rates", "search"
}

// DemandState is the latent demand belief for a bucket: level and trend with
// a 2x2 covariance. Covariance stays symmetric positive semi-definite.
type DemandState struct {
	Mean      [2]float64    // [level, trend]
	Cov       [2][2]float64
	UpdatedAt time.Time
	Steps     int // filter updates applied so far
}

// Level returns the latent demand level estimate.
func (s DemandState) Level() float64 { return s.Mean[0] }

// Trend returns the per-step demand trend estimate.
func (s DemandState) Trend() float64 { return s.Mean[1] }

// LevelVariance returns the marginal variance of the level component.
func (s DemandState) LevelVariance() float64 { return s.Cov[0][0] }

// Forecast is a point projection of demand for a target stay date.
type Forecast struct {
	Bucket      Bucket
	Point       float64
	Variance    float64
	Horizon     int // propagation steps from last update
	GeneratedAt time.Time
}

// Sigma returns the forecast standard deviation.
func (f Forecast) Sigma() float64 {
	if f.Variance <= 0 {
		return 0
	}
	return math.Sqrt(f.Variance)
}

// CalibratedInterval wraps a forecast in a prediction interval.
type CalibratedInterval struct {
	Bucket           Bucket
	Point            float64
	Lower            float64
	Upper            float64
	NominalCoverage  float64
	RealizedCoverage float64 // fraction of window residuals inside the interval width
	Uncalibrated     bool    // true when the residual window was too small
	WindowSize       int     // residuals used for the empirical quantile
}

// Width returns the full interval width.
func (ci CalibratedInterval) Width() float64 { return ci.Upper - ci.Lower }

// PriceQuote is the final recommendation returned to the caller. Not persisted
// by the pricing core.
type PriceQuote struct {
	PropertyID      string          `json:"property_id"`
	StayDate        time.Time       `json:"stay_date"`
	Price           decimal.Decimal `json:"price"`
	LowerPrice      decimal.Decimal `json:"lower_price"`
	UpperPrice      decimal.Decimal `json:"upper_price"`
	Currency        string          `json:"currency"`
	DemandEstimate  float64         `json:"demand_estimate"`
	NominalCoverage float64         `json:"nominal_coverage"`
	Uncalibrated    bool            `json:"uncalibrated"`
	FloorApplied    bool            `json:"floor_applied"`
	CeilingApplied  bool            `json:"ceiling_applied"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// BookingOutcome is a realized result for a stay date: what actually booked
// and at what rate. Consumed once by the outcome ingestor.
type BookingOutcome struct {
	PropertyID string    `json:"property_id"`
	StayDate   time.Time `json:"stay_date"`
	Occupancy  float64   `json:"occupancy"`
	Price      float64   `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
}

// Bucket returns the demand-series key for the outcome.
func (o BookingOutcome) Bucket() Bucket { return NewBucket(o.PropertyID, o.StayDate) }

// CompetitorRate is a streamed rate signal from a competitor feed.
type CompetitorRate struct {
	PropertyID string
	StayDate   time.Time
	Rate       float64
	Source     string
	Timestamp  time.Time
}
