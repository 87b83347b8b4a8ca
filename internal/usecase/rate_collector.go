package usecase

import (
	"context"

	"RatePulse/internal/domain/models"
	drepo "RatePulse/internal/domain/repository"
	mid "RatePulse/internal/middleware"
)

// RateCollector collects competitor rates from the stream and pushes them
// through the pipeline into the estimator.
type RateCollector struct {
	stream  drepo.RateStream
	proc    *RateProcessor
	metrics drepo.Metrics
	pipe    *mid.RatesPipeline
}

// NewRateCollector creates a new RateCollector instance.
func NewRateCollector(stream drepo.RateStream, proc *RateProcessor, metrics drepo.Metrics, pipe *mid.RatesPipeline) *RateCollector {
	return &RateCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the rate stream is connected.
func (c *RateCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *RateCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}

	// Warm the estimator from a one-shot snapshot when the feed offers one,
	// so pricing does not wait for the first streamed delta.
	if snap, ok := c.stream.(interface {
		Snapshot(context.Context) ([]*models.CompetitorRate, error)
	}); ok {
		rates, err := snap.Snapshot(ctx)
		if err != nil {
			c.metrics.RecordError("rates_snapshot")
		}
		for _, r := range rates {
			_ = c.proc.Process(ctx, r)
		}
	}

	rateCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, rateCh, errCh)
	return nil
}

// consume drains one stream session at a time. The reader closes both
// channels after a read error, so a closed channel is disabled by setting it
// to nil; once both are nil the session is over and a fresh one is opened
// via Reconnect and Read.
func (c *RateCollector) consume(ctx context.Context, rateCh <-chan *models.CompetitorRate, errCh <-chan error) {
	for {
		if rateCh == nil && errCh == nil {
			if !c.reopen(ctx, &rateCh, &errCh) {
				return
			}
		}
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				c.metrics.RecordError("stream")
			}
		case r, ok := <-rateCh:
			if !ok {
				rateCh = nil
				continue
			}
			if r == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, r)
			} else {
				_ = c.proc.Process(ctx, r)
			}
		}
	}
}

// reopen reconnects until it gets a fresh session or the context ends.
func (c *RateCollector) reopen(ctx context.Context, rateCh *<-chan *models.CompetitorRate, errCh *<-chan error) bool {
	for {
		if ctx.Err() != nil {
			return false
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("reconnect")
			continue
		}
		*rateCh, *errCh = c.stream.Read(ctx)
		return true
	}
}

// Shutdown stops the pipeline and closes the stream.
func (c *RateCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}

// Processor exposes the underlying rate processor.
func (c *RateCollector) Processor() *RateProcessor { return c.proc }
