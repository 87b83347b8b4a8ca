package pricing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"RatePulse/internal/domain/models"
)

// PolicyConfig holds the business rules for turning demand into a rate.
type PolicyConfig struct {
	BaseRate        float64 // nightly rate at reference demand
	ReferenceDemand float64 // demand level that maps to BaseRate
	Elasticity      float64 // price sensitivity to demand deviation, > 0
	Floor           float64 // minimum rate
	Ceiling         float64 // maximum rate
	Currency        string
}

// DefaultPolicyConfig returns a conservative rate card.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		BaseRate:        120.0,
		ReferenceDemand: 10.0,
		Elasticity:      0.08,
		Floor:           59.0,
		Ceiling:         499.0,
		Currency:        "USD",
	}
}

// Policy is a pure function from calibrated interval to price quote. It keeps
// no state, so every quote is reproducible from its inputs.
type Policy struct {
	cfg PolicyConfig
}

// NewPolicy creates a policy from the given rate card.
func NewPolicy(cfg PolicyConfig) *Policy {
	if cfg.ReferenceDemand == 0 {
		cfg.ReferenceDemand = 1
	}
	if cfg.Ceiling < cfg.Floor {
		cfg.Ceiling = cfg.Floor
	}
	return &Policy{cfg: cfg}
}

// Price maps the interval through an exponential elasticity curve and clamps
// to the configured floor and ceiling. The transform is monotonic, so interval
// bounds map directly to price bounds.
func (p *Policy) Price(ci models.CalibratedInterval) models.PriceQuote {
	price, floorHit, ceilHit := p.transform(ci.Point)
	lower, _, _ := p.transform(ci.Lower)
	upper, _, _ := p.transform(ci.Upper)

	return models.PriceQuote{
		PropertyID:      ci.Bucket.PropertyID,
		StayDate:        ci.Bucket.StayDate,
		Price:           money(price),
		LowerPrice:      money(lower),
		UpperPrice:      money(upper),
		Currency:        p.cfg.Currency,
		DemandEstimate:  ci.Point,
		NominalCoverage: ci.NominalCoverage,
		Uncalibrated:    ci.Uncalibrated,
		FloorApplied:    floorHit,
		CeilingApplied:  ceilHit,
		GeneratedAt:     time.Now(),
	}
}

// transform maps a demand estimate to a clamped rate and reports which clamp
// fired.
func (p *Policy) transform(demand float64) (rate float64, floorHit, ceilHit bool) {
	deviation := (demand - p.cfg.ReferenceDemand) / p.cfg.ReferenceDemand
	rate = p.cfg.BaseRate * math.Exp(p.cfg.Elasticity*deviation)

	if rate < p.cfg.Floor {
		return p.cfg.Floor, true, false
	}
	if rate > p.cfg.Ceiling {
		return p.cfg.Ceiling, false, true
	}
	return rate, false, false
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}
