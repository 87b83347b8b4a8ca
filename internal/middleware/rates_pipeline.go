package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"RatePulse/internal/domain/models"
	domrepo "RatePulse/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, r *models.CompetitorRate) error
}

// RatesPipeline sits between the competitor rate stream and the estimator.
// It validates, throttles per property, and buffers when downstream fails.
type RatesPipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.CompetitorRate
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-property last accepted time
	// simple format transform hook (optional)
	transform func(*models.CompetitorRate) *models.CompetitorRate
}

type PipelineOption func(*RatesPipeline)

// WithMaxRPS sets the max rate signals per second per property.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RatesPipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *RatesPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to normalize incoming rates.
func WithTransform(fn func(*models.CompetitorRate) *models.CompetitorRate) PipelineOption {
	return func(p *RatesPipeline) { p.transform = fn }
}

// NewRatesPipeline creates a new pipeline.
func NewRatesPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RatesPipeline {
	p := &RatesPipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per property
		bufSize:  1000, // default buffer
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.CompetitorRate, p.bufSize)
	return p
}

// Start launches background flushing of buffered rate signals.
func (p *RatesPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case r := <-p.bufCh:
				if r == nil {
					continue
				}
				if err := p.proc.Process(ctx, r); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- r:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *RatesPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards the rate downstream, buffering on errors.
func (p *RatesPipeline) Process(ctx context.Context, r *models.CompetitorRate) error {
	start := time.Now()
	if err := validateRate(r); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		r = p.transform(r)
		if err := validateRate(r); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(r.PropertyID, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}

	if err := p.proc.Process(ctx, r); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- r:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateRate(r *models.CompetitorRate) error {
	if r == nil {
		return fmt.Errorf("rate nil")
	}
	if r.PropertyID == "" {
		return fmt.Errorf("property empty")
	}
	if r.StayDate.IsZero() {
		return fmt.Errorf("stay date missing")
	}
	if r.Rate < 0 {
		return fmt.Errorf("negative rate")
	}
	return nil
}

func (p *RatesPipeline) allow(propertyID string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[propertyID]
	if last.IsZero() {
		p.lastSeen[propertyID] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[propertyID] = now
	return true
}
