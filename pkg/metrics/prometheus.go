package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	quotesIssued *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		quotesIssued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratepulse_quotes_issued_total",
				Help: "Total number of price quotes issued",
			},
			[]string{"property"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ratepulse_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ratepulse_last_quote_price",
				Help: "Last quoted price for a property",
			},
			[]string{"property"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ratepulse_operation_duration_seconds",
				Help:    "Duration of pricing operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordQuoteIssued records an issued quote for a property.
func (r *Recorder) RecordQuoteIssued(propertyID string) {
	r.quotesIssued.WithLabelValues(propertyID).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last quoted price for a property.
func (r *Recorder) RecordLastPrice(propertyID string, price float64) {
	r.lastPrice.WithLabelValues(propertyID).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
