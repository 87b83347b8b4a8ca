package di

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"RatePulse/internal/domain/repository"
	dsvc "RatePulse/internal/domain/service"
	mid "RatePulse/internal/middleware"
	"RatePulse/internal/pricing"
	internalrepo "RatePulse/internal/repository"
	"RatePulse/internal/service/rates"
	"RatePulse/internal/usecase"
	"RatePulse/pkg/cache"
	pkgch "RatePulse/pkg/clickhouse"
	"RatePulse/pkg/config"
	pkgkafka "RatePulse/pkg/kafka"
	"RatePulse/pkg/metrics"
	"RatePulse/pkg/server"
)

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".rp_outcomes (" +
			"property_id String, stay_date Date, occupancy Float64, price Float64, event_id String, ts DateTime64(3)" +
			") ENGINE=MergeTree ORDER BY (property_id, stay_date, ts)",
	}); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates the outcomes consumer. Returns nil when the
// backend does not feed outcomes through Kafka; a nil consumer means
// outcomes arrive through /api/learn only.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideStateStore creates the per-bucket demand state store.
func ProvideStateStore() *pricing.StateStore {
	return pricing.NewStateStore()
}

// ProvideEstimator creates the demand filter over the state store.
func ProvideEstimator(store *pricing.StateStore, cfg *config.Config) *pricing.Estimator {
	fc := pricing.DefaultFilterConfig()
	if cfg.Pricing.ProcessNoiseLevel > 0 {
		fc.ProcessNoiseLevel = cfg.Pricing.ProcessNoiseLevel
	}
	if cfg.Pricing.ProcessNoiseTrend > 0 {
		fc.ProcessNoiseTrend = cfg.Pricing.ProcessNoiseTrend
	}
	if cfg.Pricing.PriorVariance > 0 {
		fc.PriorVariance = cfg.Pricing.PriorVariance
	}
	return pricing.NewEstimator(store, fc)
}

// ProvideEstimatorService exposes the estimator behind its domain interface.
func ProvideEstimatorService(est *pricing.Estimator) dsvc.Estimator {
	return est
}

// ProvideForecaster creates the horizon forecaster.
func ProvideForecaster(est *pricing.Estimator, cfg *config.Config) dsvc.Forecaster {
	return pricing.NewForecaster(est, cfg.Pricing.Step)
}

// ProvideCalibrator creates the conformal calibrator.
func ProvideCalibrator(cfg *config.Config) dsvc.Calibrator {
	cc := pricing.DefaultCalibratorConfig()
	if cfg.Pricing.ResidualWindow > 0 {
		cc.WindowSize = cfg.Pricing.ResidualWindow
	}
	if cfg.Pricing.MinResiduals > 0 {
		cc.MinResiduals = cfg.Pricing.MinResiduals
	}
	return pricing.NewCalibrator(cc)
}

// ProvidePolicy creates the rate policy.
func ProvidePolicy(cfg *config.Config) dsvc.RatePolicy {
	pc := pricing.DefaultPolicyConfig()
	if cfg.Pricing.BaseRate > 0 {
		pc.BaseRate = cfg.Pricing.BaseRate
	}
	if cfg.Pricing.ReferenceDemand > 0 {
		pc.ReferenceDemand = cfg.Pricing.ReferenceDemand
	}
	if cfg.Pricing.Elasticity > 0 {
		pc.Elasticity = cfg.Pricing.Elasticity
	}
	if cfg.Pricing.Floor > 0 {
		pc.Floor = cfg.Pricing.Floor
	}
	if cfg.Pricing.Ceiling > 0 {
		pc.Ceiling = cfg.Pricing.Ceiling
	}
	if cfg.Pricing.Currency != "" {
		pc.Currency = cfg.Pricing.Currency
	}
	return pricing.NewPolicy(pc)
}

// ProvidePredictionLog creates the shared forecast log pairing quotes with
// later outcomes.
func ProvidePredictionLog() *usecase.PredictionLog {
	return usecase.NewPredictionLog()
}

// ProvideOutcomeArchive creates the ClickHouse archive repository.
func ProvideOutcomeArchive(chClient *pkgch.Client, cfg *config.Config) repository.OutcomeArchive {
	return internalrepo.NewClickHouseOutcomeStore(chClient.DB(), cfg.ClickHouse.Database+".rp_outcomes")
}

// ProvideQuotePublisher creates the Kafka quote publisher.
func ProvideQuotePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	return internalrepo.NewKafkaQuotePublisher(producer, cfg.Kafka.QuoteTopic)
}

// ProvideRateStream creates the competitor rate WebSocket stream.
func ProvideRateStream(cfg *config.Config) repository.RateStream {
	return rates.New(
		cfg.Rates.APIKey,
		cfg.Rates.WebSocketURL,
		cfg.Rates.SnapshotURL,
		cfg.Rates.Properties,
		cfg.Rates.ReconnectDelay,
		cfg.Rates.PingInterval,
	)
}

// ProvideQuoteService creates the quoting use case.
func ProvideQuoteService(
	fc dsvc.Forecaster,
	cal dsvc.Calibrator,
	policy dsvc.RatePolicy,
	preds *usecase.PredictionLog,
	pub repository.Publisher,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.QuoteService {
	return usecase.NewQuoteService(fc, cal, policy, preds, pub, metrics, cfg.Pricing.DefaultCoverage)
}

// ProvideOutcomeIngestor creates the learning use case.
func ProvideOutcomeIngestor(
	est dsvc.Estimator,
	cal dsvc.Calibrator,
	preds *usecase.PredictionLog,
	archive repository.OutcomeArchive,
	metrics repository.Metrics,
) *usecase.OutcomeIngestor {
	return usecase.NewOutcomeIngestor(est, cal, preds, archive, metrics, 1.0)
}

// ProvideKafkaOutcomesHandler registers the handler for the outcomes topic.
func ProvideKafkaOutcomesHandler(ingestor *usecase.OutcomeIngestor, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaOutcomesHandler {
	return usecase.NewKafkaOutcomesHandler(cfg.Kafka.OutcomeTopic, ingestor, metrics)
}

// ProvideRateProcessor creates the competitor rate processor.
func ProvideRateProcessor(est dsvc.Estimator, metrics repository.Metrics, cfg *config.Config) *usecase.RateProcessor {
	return usecase.NewRateProcessor(est, metrics, cfg.Pricing.BaseRate, cfg.Pricing.ReferenceDemand, cfg.Rates.RateVariance)
}

// ProvideRateCollector creates the rate collector use case.
func ProvideRateCollector(
	stream repository.RateStream,
	processor *usecase.RateProcessor,
	metrics repository.Metrics,
) *usecase.RateCollector {
	// Build middleware pipeline between WebSocket and the estimator
	pipe := mid.NewRatesPipeline(processor, metrics,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(2000),
	)
	return usecase.NewRateCollector(stream, processor, metrics, pipe)
}

// ProvideSnapshotCache creates the cache backing demand state snapshots.
// Redis when configured, process memory otherwise.
func ProvideSnapshotCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	host, port := splitHostPort(cfg.Redis.Addr)
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("ratepulse"),
	)
	if err != nil {
		return nil, err
	}
	// L1 memory in front of Redis keeps warm-start reads off the network.
	return cache.NewLayeredCache(rc), nil
}

func splitHostPort(addr string) (string, int) {
	if addr == "" {
		return "localhost", 6379
	}
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return addr, 6379
	}
	port, err := strconv.Atoi(addr[i+1:])
	if err != nil || port <= 0 {
		return addr, 6379
	}
	return addr[:i], port
}

// consumerMetricsHook tracks per-topic handling latency and carries the
// trace id from message headers through the handler context.
func consumerMetricsHook(m repository.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			ctx = pkgkafka.WithStartTime(ctx, time.Now())
			ctx = pkgkafka.WithTraceID(ctx, pkgkafka.ExtractTraceID(km))
			return ctx, km, data, nil
		},
		After: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			if start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok {
				m.RecordLatency("consume_"+topic, time.Since(start).Seconds())
			}
		},
		Err: func(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
			m.RecordError("kafka_consume")
		},
	}
}

// kafkaLogSink adapts the shared producer to the logger's Publisher so
// aggregated error logs can ship through Kafka.
type kafkaLogSink struct {
	producer *pkgkafka.Producer
}

func (s kafkaLogSink) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return s.producer.Publish(ctx, topic, nil, payload)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	collector *usecase.RateCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaOutcomesHandler,
	chClient *pkgch.Client,
	quotes *usecase.QuoteService,
	ingestor *usecase.OutcomeIngestor,
	est *pricing.Estimator,
	store *pricing.StateStore,
	archive repository.OutcomeArchive,
	pub repository.Publisher,
	snapCache cache.Service,
	metrics repository.Metrics,
	producer *pkgkafka.Producer,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(consumerMetricsHook(metrics))
	}
	app := server.New(cfg, collector, consumer, kh, chClient)
	app.Quotes = quotes
	app.Ingestor = ingestor
	app.Estimator = est
	app.Store = store
	app.Archive = archive
	app.Publisher = pub
	app.SnapshotCache = snapCache
	if producer != nil {
		app.LogPublisher = kafkaLogSink{producer: producer}
	}
	return app
}
