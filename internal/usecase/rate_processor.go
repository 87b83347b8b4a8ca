package usecase

import (
	"context"
	"fmt"
	"time"

	"RatePulse/internal/domain/models"
	drepo "RatePulse/internal/domain/repository"
	dsvc "RatePulse/internal/domain/service"
)

// RateProcessor turns competitor rate signals into demand observations.
// A competitor pricing above our base rate is read as a signal of stronger
// market demand; the proxy is reference demand scaled by the rate ratio.
type RateProcessor struct {
	est      dsvc.Estimator
	metrics  drepo.Metrics
	baseRate float64
	refLevel float64
	variance float64
}

// NewRateProcessor creates a processor. variance is the observation noise
// assigned to rate-derived signals; competitor rates are a weaker signal than
// realized bookings, so it should exceed the booking variance.
func NewRateProcessor(est dsvc.Estimator, metrics drepo.Metrics, baseRate, refLevel, variance float64) *RateProcessor {
	if baseRate <= 0 {
		baseRate = 100
	}
	if refLevel <= 0 {
		refLevel = 10
	}
	if variance <= 0 {
		variance = 4.0
	}
	return &RateProcessor{est: est, metrics: metrics, baseRate: baseRate, refLevel: refLevel, variance: variance}
}

// Process converts one rate signal into an estimator update.
func (p *RateProcessor) Process(ctx context.Context, r *models.CompetitorRate) error {
	if r == nil {
		return fmt.Errorf("rate is nil")
	}

	start := time.Now()
	demandProxy := p.refLevel * (r.Rate / p.baseRate)

	_, err := p.est.Update(models.Observation{
		Bucket:    models.NewBucket(r.PropertyID, r.StayDate),
		Timestamp: r.Timestamp,
		Value:     demandProxy,
		Variance:  p.variance,
		Source:    "rates",
	})
	if err != nil {
		p.metrics.RecordError("rate_update")
		return fmt.Errorf("process rate: %w", err)
	}
	p.metrics.RecordLatency("rate_process", time.Since(start).Seconds())
	return nil
}
