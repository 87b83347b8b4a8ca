package repository

import (
	"context"
	"time"

	"RatePulse/internal/domain/models"
)

// RateStream is a live feed of competitor rate signals.
type RateStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.CompetitorRate, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// Publisher emits issued quotes for downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, q *models.PriceQuote) error
	PublishBatch(ctx context.Context, quotes []*models.PriceQuote) error
	Close() error
}

// OutcomeArchive persists realized booking outcomes for audit and replay.
type OutcomeArchive interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, o *models.BookingOutcome) error
	StoreBatch(ctx context.Context, outcomes []*models.BookingOutcome) error
	Query(ctx context.Context, propertyID string, from, to time.Time, limit int) ([]*models.BookingOutcome, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// Metrics is the instrumentation sink the pricing core calls. The core never
// owns a metrics backend; it is constructed once and passed in.
type Metrics interface {
	RecordQuoteIssued(propertyID string)
	RecordError(kind string)
	RecordLastPrice(propertyID string, price float64)
	RecordLatency(op string, seconds float64)
}
