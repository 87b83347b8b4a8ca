package usecase

import (
	"context"
	"fmt"
	"time"

	"RatePulse/internal/domain/models"
	drepo "RatePulse/internal/domain/repository"
	dsvc "RatePulse/internal/domain/service"
)

// OutcomeIngestor absorbs realized booking outcomes: each one becomes a filter
// update, a conformal residual when a prediction was pending, and an archive
// row. The ingestor does not deduplicate; callers must submit each outcome
// once.
type OutcomeIngestor struct {
	est         dsvc.Estimator
	cal         dsvc.Calibrator
	preds       *PredictionLog
	archive     drepo.OutcomeArchive
	metrics     drepo.Metrics
	obsVariance float64
}

// NewOutcomeIngestor creates an ingestor. archive may be nil when outcomes
// are not persisted.
func NewOutcomeIngestor(
	est dsvc.Estimator,
	cal dsvc.Calibrator,
	preds *PredictionLog,
	archive drepo.OutcomeArchive,
	metrics drepo.Metrics,
	obsVariance float64,
) *OutcomeIngestor {
	if obsVariance <= 0 {
		obsVariance = 1.0
	}
	return &OutcomeIngestor{
		est:         est,
		cal:         cal,
		preds:       preds,
		archive:     archive,
		metrics:     metrics,
		obsVariance: obsVariance,
	}
}

// Ingest applies one outcome. The estimator update and residual push happen
// before archiving, so an archive failure never loses the learning; it is
// surfaced as a metric instead.
func (i *OutcomeIngestor) Ingest(ctx context.Context, o *models.BookingOutcome) error {
	if o == nil {
		return fmt.Errorf("outcome is nil")
	}
	bucket := o.Bucket()
	ts := o.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	start := time.Now()
	_, err := i.est.Update(models.Observation{
		Bucket:    bucket,
		Timestamp: ts,
		Value:     o.Occupancy,
		Variance:  i.obsVariance,
		Source:    "booking",
	})
	if err != nil {
		i.metrics.RecordError("invalid_observation")
		return fmt.Errorf("ingest %s: %w", bucket.Key(), err)
	}

	if predicted, ok := i.preds.Take(bucket.Key()); ok {
		i.cal.Record(predicted, o.Occupancy)
	}
	i.metrics.RecordLatency("ingest", time.Since(start).Seconds())

	if i.archive != nil {
		if err := i.archive.Store(ctx, o); err != nil {
			i.metrics.RecordError("archive_store")
		}
	}
	return nil
}

// IngestBatch applies outcomes in order, stopping at the first invalid one.
func (i *OutcomeIngestor) IngestBatch(ctx context.Context, outcomes []*models.BookingOutcome) (int, error) {
	for n, o := range outcomes {
		if err := i.Ingest(ctx, o); err != nil {
			return n, err
		}
	}
	return len(outcomes), nil
}

// Close closes the archive if owned.
func (i *OutcomeIngestor) Close() {
	if i.archive != nil {
		_ = i.archive.Close()
	}
}
