package usecase

import (
	"context"
	"fmt"
	"time"

	"RatePulse/internal/domain/models"
	drepo "RatePulse/internal/domain/repository"
	dsvc "RatePulse/internal/domain/service"
)

// QuoteService orchestrates forecast -> calibrate -> price for one request.
type QuoteService struct {
	fc       dsvc.Forecaster
	cal      dsvc.Calibrator
	policy   dsvc.RatePolicy
	preds    *PredictionLog
	pub      drepo.Publisher
	metrics  drepo.Metrics
	coverage float64
}

// NewQuoteService creates a quote service. pub may be nil when quote events
// are not published.
func NewQuoteService(
	fc dsvc.Forecaster,
	cal dsvc.Calibrator,
	policy dsvc.RatePolicy,
	preds *PredictionLog,
	pub drepo.Publisher,
	metrics drepo.Metrics,
	defaultCoverage float64,
) *QuoteService {
	if defaultCoverage <= 0 || defaultCoverage >= 1 {
		defaultCoverage = 0.9
	}
	return &QuoteService{
		fc:       fc,
		cal:      cal,
		policy:   policy,
		preds:    preds,
		pub:      pub,
		metrics:  metrics,
		coverage: defaultCoverage,
	}
}

// Quote produces a price quote for one property and stay date. Callers with
// no seeded state get pricing.ErrNoStateAvailable and must apply their own
// fallback rate.
func (s *QuoteService) Quote(ctx context.Context, propertyID string, stayDate time.Time, coverage float64) (*models.PriceQuote, error) {
	if coverage <= 0 || coverage >= 1 {
		coverage = s.coverage
	}
	bucket := models.NewBucket(propertyID, stayDate)

	start := time.Now()
	f, err := s.fc.Forecast(bucket, bucket.StayDate)
	if err != nil {
		s.metrics.RecordError("no_state")
		return nil, fmt.Errorf("forecast %s: %w", bucket.Key(), err)
	}
	s.metrics.RecordLatency("forecast", time.Since(start).Seconds())

	start = time.Now()
	ci := s.cal.Calibrate(f, coverage)
	s.metrics.RecordLatency("calibrate", time.Since(start).Seconds())

	start = time.Now()
	quote := s.policy.Price(ci)
	s.metrics.RecordLatency("price", time.Since(start).Seconds())

	// Remember the prediction so the ingestor can score it against the
	// realized outcome later.
	s.preds.Put(bucket.Key(), f.Point)

	s.metrics.RecordQuoteIssued(propertyID)
	s.metrics.RecordLastPrice(propertyID, quote.Price.InexactFloat64())

	if s.pub != nil {
		if err := s.pub.Publish(ctx, &quote); err != nil {
			// Quote publishing is best effort; the caller still gets the quote.
			s.metrics.RecordError("quote_publish")
		}
	}

	return &quote, nil
}
