package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	models "RatePulse/internal/domain/models"
	domrepo "RatePulse/internal/domain/repository"
	dsvc "RatePulse/internal/domain/service"
	"RatePulse/internal/pricing"
	icache "RatePulse/internal/service/cache"
	svcmetrics "RatePulse/internal/service/metrics"
	"RatePulse/internal/service/ratelimit"
	"RatePulse/internal/usecase"
	xhttp "RatePulse/pkg/http"
	xlogger "RatePulse/pkg/logger"
	xutil "RatePulse/pkg/util"

	"github.com/labstack/echo/v4"
)

// PricingEchoHandler exposes the pricing engine over HTTP.
type PricingEchoHandler struct {
	logger   *xlogger.Logger
	quotes   *usecase.QuoteService
	ingestor *usecase.OutcomeIngestor
	est      dsvc.Estimator
	archive  domrepo.OutcomeArchive
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
	version  string
	cacheTTL time.Duration
}

func NewPricingEchoHandler(
	logger *xlogger.Logger,
	quotes *usecase.QuoteService,
	ingestor *usecase.OutcomeIngestor,
	est dsvc.Estimator,
	archive domrepo.OutcomeArchive,
	version string,
) *PricingEchoHandler {
	svcmetrics.Register()
	return &PricingEchoHandler{
		logger:   logger,
		quotes:   quotes,
		ingestor: ingestor,
		est:      est,
		archive:  archive,
		rl:       ratelimit.New(),
		version:  version,
		cacheTTL: 15 * time.Second,
	}
}

// SetCache injects a quote response cache.
func (h *PricingEchoHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetCacheTTL overrides the quote cache TTL.
func (h *PricingEchoHandler) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

func (h *PricingEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/score", h.Score)
	g.POST("/learn", h.Learn)
	g.GET("/history", h.History)

	e.GET("/live", h.Live)
	e.GET("/ready", h.Ready)
	e.GET("/version", h.Version)
}

func (h *PricingEchoHandler) Score(c echo.Context) error {
	start := time.Now()
	endpoint := "score"
	defer func() { svcmetrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.ScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	stay, ok := parseStayDate(req.StayDate)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError("stay_date must be YYYY-MM-DD or RFC3339"))
	}

	if !h.rl.Allow(c.RealIP()+":score", 10, 5) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "rate limited")
	}

	cacheKey := "score:" + req.PropertyID + ":" + stay.Format("2006-01-02") + ":" + strconv.FormatFloat(req.Coverage, 'f', -1, 64)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(cacheKey); err == nil && ok {
			var quote models.PriceQuote
			if err := json.Unmarshal(b, &quote); err == nil {
				return xhttp.SuccessResponse(c, &quote)
			}
		}
	}

	quote, err := h.quotes.Quote(c.Request().Context(), req.PropertyID, stay, req.Coverage)
	if err != nil {
		svcmetrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		if errors.Is(err, pricing.ErrNoStateAvailable) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no demand state for property %s on %s", req.PropertyID, stay.Format("2006-01-02")).WithError(err))
		}
		h.logger.Error("score usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	if h.cache != nil {
		if b, err := json.Marshal(quote); err == nil {
			_ = h.cache.SetBytes(cacheKey, b, h.cacheTTL)
		}
	}
	return xhttp.SuccessResponse(c, quote)
}

func (h *PricingEchoHandler) Learn(c echo.Context) error {
	start := time.Now()
	endpoint := "learn"
	defer func() { svcmetrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	req := &models.LearnRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	outcomes := make([]*models.BookingOutcome, 0, len(req.Outcomes))
	for _, o := range req.Outcomes {
		stay, ok := parseStayDate(o.StayDate)
		if !ok {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("outcome for %s: bad stay_date %q", o.PropertyID, o.StayDate))
		}
		ts := time.Now()
		if o.Timestamp > 0 {
			ts = time.Unix(o.Timestamp, 0)
		}
		outcomes = append(outcomes, &models.BookingOutcome{
			PropertyID: o.PropertyID,
			StayDate:   stay,
			Occupancy:  o.Occupancy,
			Price:      o.Price,
			Timestamp:  ts,
		})
	}

	applied, err := h.ingestor.IngestBatch(c.Request().Context(), outcomes)
	if err != nil {
		svcmetrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		if errors.Is(err, pricing.ErrInvalidObservation) {
			return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("outcome %d rejected", applied).WithError(err))
		}
		h.logger.Error("learn usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"applied": applied})
}

func (h *PricingEchoHandler) History(c echo.Context) error {
	endpoint := "history"
	start := time.Now()
	defer func() { svcmetrics.EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	if h.archive == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("outcome archive not configured"))
	}
	req := &models.HistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	now := time.Now()
	from := xutil.ParseTimeDefault(req.From, now.AddDate(0, -1, 0))
	to := xutil.ParseTimeDefault(req.To, now)
	from, to = xutil.AlignDays(from, to)

	rows, err := h.archive.Query(c.Request().Context(), req.PropertyID, from, to, req.Limit)
	if err != nil {
		svcmetrics.EndpointErrors.WithLabelValues(endpoint).Inc()
		h.logger.Error("history query error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *PricingEchoHandler) Live(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

// Ready reports whether the engine can serve quotes: at least one bucket has
// demand state.
func (h *PricingEchoHandler) Ready(c echo.Context) error {
	if h.est == nil || !h.est.Seeded() {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, map[string]interface{}{
			"status": "warming",
			"seeded": false,
		})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status": "ready",
		"seeded": true,
	})
}

func (h *PricingEchoHandler) Version(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"version": h.version})
}

func parseStayDate(s string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return xutil.ParseTime(s)
}

var _ xhttp.Handler = (*PricingEchoHandler)(nil)
