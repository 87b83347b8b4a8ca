package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	models "RatePulse/internal/domain/models"
	"RatePulse/internal/pricing"
	icache "RatePulse/internal/service/cache"
	"RatePulse/internal/usecase"
	xlogger "RatePulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

type nopPublisher struct {
	published int
}

func (p *nopPublisher) Publish(ctx context.Context, q *models.PriceQuote) error { p.published++; return nil }
func (p *nopPublisher) PublishBatch(ctx context.Context, quotes []*models.PriceQuote) error {
	p.published += len(quotes)
	return nil
}
func (p *nopPublisher) Close() error { return nil }

type nopMetrics struct{}

func (nopMetrics) RecordQuoteIssued(string)        {}
func (nopMetrics) RecordError(string)              {}
func (nopMetrics) RecordLastPrice(string, float64) {}
func (nopMetrics) RecordLatency(string, float64)   {}

func newTestHandler(t *testing.T) (*PricingEchoHandler, *pricing.Estimator, *nopPublisher) {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "console", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	est := pricing.NewEstimator(pricing.NewStateStore(), pricing.DefaultFilterConfig())
	fc := pricing.NewForecaster(est, 24*time.Hour)
	cal := pricing.NewCalibrator(pricing.DefaultCalibratorConfig())
	policy := pricing.NewPolicy(pricing.DefaultPolicyConfig())
	preds := usecase.NewPredictionLog()
	pub := &nopPublisher{}
	quotes := usecase.NewQuoteService(fc, cal, policy, preds, pub, nopMetrics{}, 0.9)
	ingestor := usecase.NewOutcomeIngestor(est, cal, preds, nil, nopMetrics{}, 1.0)
	h := NewPricingEchoHandler(l, quotes, ingestor, est, nil, "test")
	return h, est, pub
}

func seedDemand(t *testing.T, est *pricing.Estimator, propertyID string, stay time.Time, values ...float64) {
	t.Helper()
	ts := stay.AddDate(0, 0, -30)
	for _, v := range values {
		if _, err := est.Update(models.Observation{
			Bucket:    models.NewBucket(propertyID, stay),
			Timestamp: ts,
			Value:     v,
			Variance:  1.0,
			Source:    "booking",
		}); err != nil {
			t.Fatalf("seed update: %v", err)
		}
		ts = ts.Add(24 * time.Hour)
	}
}

func postScore(t *testing.T, h *PricingEchoHandler, body string) (*httptest.ResponseRecorder, *models.PriceQuote) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/score", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Score(e.NewContext(req, rec)); err != nil {
		t.Fatalf("score: %v", err)
	}
	var envelope struct {
		Status int                `json:"status"`
		Data   *models.PriceQuote `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Status != http.StatusOK {
		t.Fatalf("status = %d, body %s", envelope.Status, rec.Body.String())
	}
	return rec, envelope.Data
}

func TestScoreCacheKeyedByCoverage(t *testing.T) {
	h, est, _ := newTestHandler(t)
	h.SetCache(icache.NewTTLCache())

	stay := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	seedDemand(t, est, "hotel-1", stay, 10, 11, 12, 13, 14)

	_, wide := postScore(t, h, `{"property_id":"hotel-1","stay_date":"2026-03-14","coverage":0.9}`)
	_, narrow := postScore(t, h, `{"property_id":"hotel-1","stay_date":"2026-03-14","coverage":0.5}`)

	if wide.NominalCoverage != 0.9 {
		t.Fatalf("first quote coverage = %v, want 0.9", wide.NominalCoverage)
	}
	if narrow.NominalCoverage != 0.5 {
		t.Fatalf("second quote coverage = %v, want 0.5: cached quote served across coverage levels", narrow.NominalCoverage)
	}
	wideSpread := wide.UpperPrice.Sub(wide.LowerPrice)
	narrowSpread := narrow.UpperPrice.Sub(narrow.LowerPrice)
	if narrowSpread.GreaterThan(wideSpread) {
		t.Fatalf("0.5 interval %s wider than 0.9 interval %s", narrowSpread, wideSpread)
	}
}

func TestScoreCacheHitSameCoverage(t *testing.T) {
	h, est, pub := newTestHandler(t)
	h.SetCache(icache.NewTTLCache())

	stay := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	seedDemand(t, est, "hotel-1", stay, 10, 11, 12, 13, 14)

	body := `{"property_id":"hotel-1","stay_date":"2026-03-14","coverage":0.9}`
	_, first := postScore(t, h, body)
	_, second := postScore(t, h, body)

	if pub.published != 1 {
		t.Fatalf("published = %d, want 1 (second request should hit the cache)", pub.published)
	}
	if !first.Price.Equal(second.Price) {
		t.Fatalf("cached price %s != original %s", second.Price, first.Price)
	}
}
