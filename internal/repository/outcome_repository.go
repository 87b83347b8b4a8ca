package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"RatePulse/internal/domain/models"
	"RatePulse/internal/domain/repository"
	pkgkafka "RatePulse/pkg/kafka"
)

// ClickHouseOutcomeStore implements OutcomeArchive for ClickHouse.
type ClickHouseOutcomeStore struct {
	db    *sql.DB
	table string
}

// NewClickHouseOutcomeStore creates ClickHouse outcome archive.
func NewClickHouseOutcomeStore(db *sql.DB, table string) repository.OutcomeArchive {
	return &ClickHouseOutcomeStore{db: db, table: table}
}

func (s *ClickHouseOutcomeStore) Init(ctx context.Context) error {
	return nil // Schema init in pkg
}

func (s *ClickHouseOutcomeStore) Store(ctx context.Context, o *models.BookingOutcome) error {
	q := fmt.Sprintf("INSERT INTO %s (ts, property_id, stay_date, occupancy, price, event_id) VALUES (?, ?, ?, ?, ?, ?)", s.table)
	// event_id derived from property+stay date+timestamp for downstream dedup
	eventID := fmt.Sprintf("%s-%s-%d", o.PropertyID, o.StayDate.Format("2006-01-02"), o.Timestamp.Unix())
	_, err := s.db.ExecContext(ctx, q,
		o.Timestamp,
		o.PropertyID,
		o.StayDate,
		o.Occupancy,
		o.Price,
		eventID,
	)
	return err
}

func (s *ClickHouseOutcomeStore) StoreBatch(ctx context.Context, outcomes []*models.BookingOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	// Batch insert using VALUES multi-row to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(outcomes); start += chunkSize {
		end := start + chunkSize
		if end > len(outcomes) {
			end = len(outcomes)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*6)
		for _, o := range outcomes[start:end] {
			if o == nil || o.PropertyID == "" || o.StayDate.IsZero() {
				continue
			}
			eventID := fmt.Sprintf("%s-%s-%d", o.PropertyID, o.StayDate.Format("2006-01-02"), o.Timestamp.Unix())
			values = append(values, "(?, ?, ?, ?, ?, ?)")
			args = append(args,
				o.Timestamp,
				o.PropertyID,
				o.StayDate,
				o.Occupancy,
				o.Price,
				eventID,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (ts, property_id, stay_date, occupancy, price, event_id) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *ClickHouseOutcomeStore) Query(ctx context.Context, propertyID string, from, to time.Time, limit int) ([]*models.BookingOutcome, error) {
	q := fmt.Sprintf("SELECT property_id, stay_date, occupancy, price, ts FROM %s WHERE property_id = ? AND ts >= ? AND ts <= ? ORDER BY ts DESC LIMIT ?", s.table)
	rows, err := s.db.QueryContext(ctx, q, propertyID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []*models.BookingOutcome
	for rows.Next() {
		var o models.BookingOutcome
		if err := rows.Scan(&o.PropertyID, &o.StayDate, &o.Occupancy, &o.Price, &o.Timestamp); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, &o)
	}
	return outcomes, rows.Err()
}

func (s *ClickHouseOutcomeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseOutcomeStore) Close() error {
	return nil // Managed by pkg
}

// KafkaQuotePublisher implements Publisher for Kafka.
type KafkaQuotePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaQuotePublisher creates Kafka quote publisher.
func NewKafkaQuotePublisher(producer *pkgkafka.Producer, topic string) repository.Publisher {
	return &KafkaQuotePublisher{producer: producer, topic: topic}
}

func (p *KafkaQuotePublisher) Publish(ctx context.Context, q *models.PriceQuote) error {
	return p.producer.Publish(ctx, p.topic, []byte(q.PropertyID), quotePayload(q))
}

func (p *KafkaQuotePublisher) PublishBatch(ctx context.Context, quotes []*models.PriceQuote) error {
	if len(quotes) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(quotes))
	for i, q := range quotes {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(q.PropertyID),
			Value: quotePayload(q),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaQuotePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func quotePayload(q *models.PriceQuote) map[string]interface{} {
	return map[string]interface{}{
		"property_id":  q.PropertyID,
		"stay_date":    q.StayDate.Format("2006-01-02"),
		"price":        q.Price.String(),
		"lower":        q.LowerPrice.String(),
		"upper":        q.UpperPrice.String(),
		"currency":     q.Currency,
		"uncalibrated": q.Uncalibrated,
		"ts":           q.GeneratedAt.Unix(),
	}
}
