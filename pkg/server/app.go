package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"RatePulse/internal/domain/repository"
	"RatePulse/internal/handler/api"
	"RatePulse/internal/pricing"
	icache "RatePulse/internal/service/cache"
	"RatePulse/internal/usecase"
	"RatePulse/pkg/cache"
	pkgch "RatePulse/pkg/clickhouse"
	"RatePulse/pkg/config"
	xhttp "RatePulse/pkg/http"
	pkgkafka "RatePulse/pkg/kafka"
	applogger "RatePulse/pkg/logger"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	collector   *usecase.RateCollector
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler

	Quotes        *usecase.QuoteService
	Ingestor      *usecase.OutcomeIngestor
	Estimator     *pricing.Estimator
	Store         *pricing.StateStore
	Archive       repository.OutcomeArchive
	Publisher     repository.Publisher
	SnapshotCache cache.Service
	LogPublisher  applogger.Publisher
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	collector *usecase.RateCollector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l, err := applogger.New(&applogger.Config{
		Level:  a.cfg.Logging.Level,
		Format: a.cfg.Logging.Format,
		Output: a.cfg.Logging.Output,
	})
	if err != nil {
		return err
	}

	// Ship aggregated error logs in production
	if a.cfg.Environment == "production" && a.LogPublisher != nil && a.cfg.Logging.ErrorTopic != "" {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Logging.ErrorTopic,
			Publisher:      a.LogPublisher,
		})
		defer l.RemoveCollector()
	}

	// Warm the estimator from the last snapshot, then keep snapshotting.
	var snapshotter *usecase.StateSnapshotter
	if a.SnapshotCache != nil && a.Store != nil {
		snapshotter = usecase.NewStateSnapshotter(
			a.Store, a.SnapshotCache, l,
			a.cfg.Pricing.SnapshotInterval, a.cfg.Pricing.SnapshotTTL,
		)
		if n, err := snapshotter.Restore(ctx); err != nil {
			l.Warn("snapshot restore failed", applogger.Error(err))
		} else if n > 0 {
			l.Info("warm start", applogger.Int("buckets", n))
		}
		snapshotter.Start(ctx)
	}

	// Setup Echo HTTP server using pkg/http and register routes via handler
	httpHandler := a.httpHandler
	if httpHandler == nil {
		h := api.NewPricingEchoHandler(l, a.Quotes, a.Ingestor, a.Estimator, a.Archive, Version)
		if a.cfg.Redis.Enabled {
			h.SetCache(icache.NewRedisCache(icache.RedisConfig{
				Addr:     a.cfg.Redis.Addr,
				Password: a.cfg.Redis.Password,
				DB:       a.cfg.Redis.DB,
			}))
		} else {
			h.SetCache(icache.NewTTLCache())
		}
		h.SetCacheTTL(a.cfg.Pricing.QuoteCacheTTL)
		httpHandler = h
	}

	a.httpServer = xhttp.NewServer(httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithServerTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start competitor rate collector when a stream is configured
	if a.cfg.Rates.WebSocketURL != "" {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				l.Error("rate collector error", applogger.Error(err))
			}
		}()
		l.Info("rate collector started", applogger.Strings("properties", a.cfg.Rates.Properties))
	}

	// Start outcomes consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		l.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx, l, snapshotter)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context, l *applogger.Logger, snapshotter *usecase.StateSnapshotter) error {
	l.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop collector (pipeline + stream)
	if a.cfg.Rates.WebSocketURL != "" && a.collector != nil {
		if err := a.collector.Shutdown(shutdownCtx); err != nil {
			l.Warn("collector stop error", applogger.Error(err))
		}
	}

	// Stop consumer before the final snapshot so no outcome lands after it
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// Shutdown HTTP server
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Final state snapshot
	if snapshotter != nil {
		if err := snapshotter.Shutdown(shutdownCtx); err != nil {
			l.Warn("final snapshot error", applogger.Error(err))
		}
	}

	// Close publisher and archive
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			l.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.Ingestor != nil {
		a.Ingestor.Close()
	}

	// Close infrastructure clients
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
