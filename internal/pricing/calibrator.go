package pricing

import (
	"math"
	"sort"
	"sync"

	"RatePulse/internal/domain/models"
)

// CalibratorConfig tunes the split-conformal residual window.
type CalibratorConfig struct {
	WindowSize   int // max retained (predicted, actual) pairs, FIFO eviction
	MinResiduals int // below this the parametric fallback is used
}

// DefaultCalibratorConfig returns the standard rolling-window tuning.
func DefaultCalibratorConfig() CalibratorConfig {
	return CalibratorConfig{WindowSize: 500, MinResiduals: 10}
}

type residual struct {
	predicted float64
	actual    float64
}

// Calibrator turns raw forecast variance into intervals with empirical
// coverage using split conformal prediction over a rolling residual window.
// It is shared across buckets and safe for concurrent use.
type Calibrator struct {
	mu     sync.Mutex
	window []residual
	cfg    CalibratorConfig
}

// NewCalibrator creates a calibrator with the given window bounds.
func NewCalibrator(cfg CalibratorConfig) *Calibrator {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 500
	}
	if cfg.MinResiduals <= 0 {
		cfg.MinResiduals = 10
	}
	return &Calibrator{cfg: cfg, window: make([]residual, 0, cfg.WindowSize)}
}

// Record pushes a (predicted, actual) pair, evicting the oldest entry when
// the window is full.
func (c *Calibrator) Record(predicted, actual float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.window) >= c.cfg.WindowSize {
		c.window = c.window[1:]
	}
	c.window = append(c.window, residual{predicted: predicted, actual: actual})
}

// WindowLen returns the current residual count.
func (c *Calibrator) WindowLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.window)
}

// Calibrate builds a prediction interval around the forecast point. With
// enough residual history the half-width is the empirical quantile of
// absolute residuals at the nominal coverage; otherwise it falls back to a
// normal-theory interval from the forecast variance and flags the result
// as uncalibrated.
func (c *Calibrator) Calibrate(f models.Forecast, nominalCoverage float64) models.CalibratedInterval {
	if nominalCoverage <= 0 || nominalCoverage >= 1 {
		nominalCoverage = 0.9
	}

	c.mu.Lock()
	abs := make([]float64, len(c.window))
	for i, r := range c.window {
		abs[i] = math.Abs(r.predicted - r.actual)
	}
	c.mu.Unlock()

	n := len(abs)
	if n < c.cfg.MinResiduals {
		half := normalQuantile(nominalCoverage) * f.Sigma()
		return models.CalibratedInterval{
			Bucket:          f.Bucket,
			Point:           f.Point,
			Lower:           f.Point - half,
			Upper:           f.Point + half,
			NominalCoverage: nominalCoverage,
			Uncalibrated:    true,
			WindowSize:      n,
		}
	}

	sort.Float64s(abs)

	// Split conformal rank: ceil((n+1) * coverage), clamped to the window.
	rank := int(math.Ceil(float64(n+1) * nominalCoverage))
	if rank > n {
		rank = n
	}
	half := abs[rank-1]

	covered := 0
	for _, a := range abs {
		if a <= half {
			covered++
		}
	}

	return models.CalibratedInterval{
		Bucket:           f.Bucket,
		Point:            f.Point,
		Lower:            f.Point - half,
		Upper:            f.Point + half,
		NominalCoverage:  nominalCoverage,
		RealizedCoverage: float64(covered) / float64(n),
		WindowSize:       n,
	}
}

// normalQuantile returns z such that P(|N(0,1)| <= z) = coverage.
func normalQuantile(coverage float64) float64 {
	return math.Sqrt2 * math.Erfinv(coverage)
}
