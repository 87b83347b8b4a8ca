package usecase

import (
	"context"
	"encoding/json"
	"time"

	"RatePulse/internal/domain/models"
	domrepo "RatePulse/internal/domain/repository"
	pkgkafka "RatePulse/pkg/kafka"
)

// KafkaOutcomesHandler consumes booking outcomes from Kafka and feeds the
// ingestor, so outcomes can arrive by stream as well as the learn endpoint.
type KafkaOutcomesHandler struct {
	topic    string
	ingestor *OutcomeIngestor
	metrics  domrepo.Metrics
}

func NewKafkaOutcomesHandler(topic string, ingestor *OutcomeIngestor, metrics domrepo.Metrics) *KafkaOutcomesHandler {
	return &KafkaOutcomesHandler{topic: topic, ingestor: ingestor, metrics: metrics}
}

func (h *KafkaOutcomesHandler) Topic() string { return h.topic }

// incoming message schema: {property_id, stay_date, occupancy, price, ts}
func (h *KafkaOutcomesHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		PropertyID string  `json:"property_id"`
		StayDate   string  `json:"stay_date"`
		Occupancy  float64 `json:"occupancy"`
		Price      float64 `json:"price"`
		TS         int64   `json:"ts"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	stay, err := time.Parse("2006-01-02", m.StayDate)
	if err != nil {
		h.metrics.RecordError("consumer_stay_date")
		return err
	}
	if m.TS > 1e11 { // ms
		m.TS = m.TS / 1000
	}
	ts := time.Unix(m.TS, 0)
	if m.TS == 0 {
		ts = time.Now()
	}
	// E2E latency from event time to now (approx)
	h.metrics.RecordLatency("outcome_e2e_seconds", time.Since(ts).Seconds())

	return h.ingestor.Ingest(ctx, &models.BookingOutcome{
		PropertyID: m.PropertyID,
		StayDate:   stay,
		Occupancy:  m.Occupancy,
		Price:      m.Price,
		Timestamp:  ts,
	})
}

var _ pkgkafka.MessageHandler = (*KafkaOutcomesHandler)(nil)
