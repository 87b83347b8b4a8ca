package usecase

import "sync"

// PredictionLog remembers the most recent demand prediction per bucket so the
// outcome ingestor can compute residuals when the realized outcome arrives.
// Each prediction is consumed at most once.
type PredictionLog struct {
	mu sync.Mutex
	m  map[string]float64
}

// NewPredictionLog creates an empty log.
func NewPredictionLog() *PredictionLog {
	return &PredictionLog{m: make(map[string]float64)}
}

// Put records the latest prediction for a bucket, replacing any prior one.
func (p *PredictionLog) Put(bucketKey string, predicted float64) {
	p.mu.Lock()
	p.m[bucketKey] = predicted
	p.mu.Unlock()
}

// Take returns and removes the pending prediction for a bucket.
func (p *PredictionLog) Take(bucketKey string) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[bucketKey]
	if ok {
		delete(p.m, bucketKey)
	}
	return v, ok
}

// Len returns the number of pending predictions.
func (p *PredictionLog) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}
