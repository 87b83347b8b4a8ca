package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RatePulse/internal/domain/models"
)

// fakeMetrics counts recorder calls by name.
type fakeMetrics struct {
	mu     sync.Mutex
	quotes int
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: make(map[string]int)}
}

func (m *fakeMetrics) RecordQuoteIssued(string) {
	m.mu.Lock()
	m.quotes++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}

func (m *fakeMetrics) RecordLastPrice(string, float64) {}
func (m *fakeMetrics) RecordLatency(string, float64)   {}

func (m *fakeMetrics) errorCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

// fakePublisher captures published quotes.
type fakePublisher struct {
	mu     sync.Mutex
	quotes []*models.PriceQuote
	fail   bool
}

func (p *fakePublisher) Publish(_ context.Context, q *models.PriceQuote) error {
	if p.fail {
		return fmt.Errorf("broker unavailable")
	}
	p.mu.Lock()
	p.quotes = append(p.quotes, q)
	p.mu.Unlock()
	return nil
}

func (p *fakePublisher) PublishBatch(ctx context.Context, quotes []*models.PriceQuote) error {
	for _, q := range quotes {
		if err := p.Publish(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *fakePublisher) Close() error { return nil }

// fakeArchive captures stored outcomes.
type fakeArchive struct {
	mu       sync.Mutex
	outcomes []*models.BookingOutcome
	fail     bool
}

func (a *fakeArchive) Init(context.Context) error { return nil }

func (a *fakeArchive) Store(_ context.Context, o *models.BookingOutcome) error {
	if a.fail {
		return fmt.Errorf("archive down")
	}
	a.mu.Lock()
	a.outcomes = append(a.outcomes, o)
	a.mu.Unlock()
	return nil
}

func (a *fakeArchive) StoreBatch(ctx context.Context, outcomes []*models.BookingOutcome) error {
	for _, o := range outcomes {
		if err := a.Store(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func (a *fakeArchive) Query(context.Context, string, time.Time, time.Time, int) ([]*models.BookingOutcome, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]*models.BookingOutcome, len(a.outcomes))
	copy(out, a.outcomes)
	return out, nil
}

func (a *fakeArchive) Health(context.Context) error { return nil }
func (a *fakeArchive) Close() error                 { return nil }

func (a *fakeArchive) stored() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.outcomes)
}
