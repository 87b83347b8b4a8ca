package pricing

import (
	"testing"

	"github.com/shopspring/decimal"

	"RatePulse/internal/domain/models"
)

func interval(point float64) models.CalibratedInterval {
	return models.CalibratedInterval{
		Bucket:          testBucket(),
		Point:           point,
		Lower:           point - 2,
		Upper:           point + 2,
		NominalCoverage: 0.9,
	}
}

func TestPolicyWithinBounds(t *testing.T) {
	cfg := DefaultPolicyConfig()
	p := NewPolicy(cfg)
	floor := decimal.NewFromFloat(cfg.Floor)
	ceiling := decimal.NewFromFloat(cfg.Ceiling)

	for _, demand := range []float64{-1000, -10, 0, 5, 10, 50, 1000, 1e9} {
		q := p.Price(interval(demand))
		if q.Price.LessThan(floor) || q.Price.GreaterThan(ceiling) {
			t.Fatalf("demand %v: price %s outside [%s, %s]", demand, q.Price, floor, ceiling)
		}
	}
}

func TestPolicyClampFlags(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	low := p.Price(interval(-1000))
	if !low.FloorApplied || low.CeilingApplied {
		t.Fatalf("expected floor flag only, got %+v", low)
	}
	high := p.Price(interval(1000))
	if !high.CeilingApplied || high.FloorApplied {
		t.Fatalf("expected ceiling flag only, got %+v", high)
	}
	mid := p.Price(interval(10))
	if mid.FloorApplied || mid.CeilingApplied {
		t.Fatalf("expected no clamp at reference demand, got %+v", mid)
	}
}

func TestPolicyMonotonic(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	prev := decimal.Zero
	for _, demand := range []float64{0, 2, 5, 8, 10, 12, 20, 40, 80} {
		q := p.Price(interval(demand))
		if q.Price.LessThan(prev) {
			t.Fatalf("price not monotonic in demand: %s < %s at demand %v", q.Price, prev, demand)
		}
		prev = q.Price
	}
}

func TestPolicyBaseRateAtReference(t *testing.T) {
	cfg := DefaultPolicyConfig()
	p := NewPolicy(cfg)

	q := p.Price(interval(cfg.ReferenceDemand))
	if !q.Price.Equal(decimal.NewFromFloat(cfg.BaseRate)) {
		t.Fatalf("expected base rate %v at reference demand, got %s", cfg.BaseRate, q.Price)
	}
}

func TestPolicyIntervalBoundsOrdered(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	q := p.Price(interval(10))
	if q.LowerPrice.GreaterThan(q.Price) || q.UpperPrice.LessThan(q.Price) {
		t.Fatalf("price bounds out of order: %s <= %s <= %s", q.LowerPrice, q.Price, q.UpperPrice)
	}
	if q.Currency != "USD" {
		t.Fatalf("unexpected currency %q", q.Currency)
	}
}
