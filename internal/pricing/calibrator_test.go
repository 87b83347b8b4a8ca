package pricing

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"RatePulse/internal/domain/models"
)

func testForecast(point, variance float64) models.Forecast {
	return models.Forecast{
		Bucket:      testBucket(),
		Point:       point,
		Variance:    variance,
		GeneratedAt: time.Now(),
	}
}

func TestCalibrateParametricFallback(t *testing.T) {
	c := NewCalibrator(DefaultCalibratorConfig())

	ci := c.Calibrate(testForecast(10, 4), 0.9)
	if !ci.Uncalibrated {
		t.Fatalf("empty window must yield uncalibrated interval")
	}
	// sigma=2, z(0.9)=1.6449 -> half width ~3.29
	half := (ci.Upper - ci.Lower) / 2
	if math.Abs(half-1.6449*2) > 0.01 {
		t.Fatalf("unexpected fallback half width %v", half)
	}
	if ci.Point != 10 || ci.Lower >= ci.Point || ci.Upper <= ci.Point {
		t.Fatalf("malformed interval %+v", ci)
	}
}

func TestCalibrateEmpiricalQuantile(t *testing.T) {
	c := NewCalibrator(CalibratorConfig{WindowSize: 100, MinResiduals: 10})
	// 15 pairs with absolute residuals 1..15
	for i := 1; i <= 15; i++ {
		c.Record(float64(i), 0)
	}

	ci := c.Calibrate(testForecast(20, 1), 0.9)
	if ci.Uncalibrated {
		t.Fatalf("15 residuals should calibrate")
	}
	if ci.WindowSize != 15 {
		t.Fatalf("expected window 15, got %d", ci.WindowSize)
	}
	// rank = ceil(16 * 0.9) = 15 -> 15th smallest absolute residual
	half := (ci.Upper - ci.Lower) / 2
	if half != 15 {
		t.Fatalf("expected half width 15, got %v", half)
	}
}

func TestCalibratorFIFOEviction(t *testing.T) {
	c := NewCalibrator(CalibratorConfig{WindowSize: 3, MinResiduals: 1})
	for i := 1; i <= 5; i++ {
		c.Record(float64(i), 0)
	}
	if got := c.WindowLen(); got != 3 {
		t.Fatalf("expected window 3 after eviction, got %d", got)
	}

	// Remaining residuals are 3,4,5; rank = ceil(4*0.99) = 4 -> clamped to max.
	ci := c.Calibrate(testForecast(0, 1), 0.99)
	half := (ci.Upper - ci.Lower) / 2
	if half != 5 {
		t.Fatalf("expected oldest residuals evicted, half width 5, got %v", half)
	}
}

func TestCalibratorCoverageConverges(t *testing.T) {
	c := NewCalibrator(CalibratorConfig{WindowSize: 5000, MinResiduals: 10})
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 4000; i++ {
		c.Record(rng.NormFloat64(), 0)
	}

	ci := c.Calibrate(testForecast(0, 1), 0.9)
	// Quantile of |N(0,1)| at 0.9 is ~1.645.
	half := (ci.Upper - ci.Lower) / 2
	if math.Abs(half-1.645) > 0.1 {
		t.Fatalf("empirical quantile %v far from 1.645", half)
	}
	if math.Abs(ci.RealizedCoverage-0.9) > 0.02 {
		t.Fatalf("realized coverage %v far from nominal 0.9", ci.RealizedCoverage)
	}
}

func TestCalibrateClampsBadCoverage(t *testing.T) {
	c := NewCalibrator(DefaultCalibratorConfig())
	for _, cov := range []float64{0, -1, 1, 1.5} {
		ci := c.Calibrate(testForecast(0, 1), cov)
		if ci.NominalCoverage != 0.9 {
			t.Fatalf("coverage %v: expected default 0.9, got %v", cov, ci.NominalCoverage)
		}
	}
}
