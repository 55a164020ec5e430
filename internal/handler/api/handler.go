package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"IdxLens/internal/domain/models"
	domsvc "IdxLens/internal/domain/service"
	icache "IdxLens/internal/service/cache"
	"IdxLens/internal/service/metrics"
	"IdxLens/internal/service/ratelimit"
	"IdxLens/internal/usecase"
	xhttp "IdxLens/pkg/http"
	applogger "IdxLens/pkg/logger"
	"IdxLens/pkg/util"

	"github.com/labstack/echo/v4"
)

const defaultCacheTTL = 5 * time.Minute

// AnalyticsHandler serves the read-only analytics API.
type AnalyticsHandler struct {
	records  *usecase.RecordsUseCase
	analysis *usecase.AnalysisUseCase
	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
	metrics  *metrics.Endpoints
	l        *applogger.Logger
}

func NewAnalyticsHandler(records *usecase.RecordsUseCase, analysis *usecase.AnalysisUseCase) *AnalyticsHandler {
	return &AnalyticsHandler{records: records, analysis: analysis, cacheTTL: defaultCacheTTL, l: applogger.Nop()}
}

// SetCache enables response caching; a non-positive ttl keeps the default.
func (h *AnalyticsHandler) SetCache(c icache.BytesCache, ttl time.Duration) {
	h.cache = c
	if ttl > 0 {
		h.cacheTTL = ttl
	}
}

func (h *AnalyticsHandler) SetRateLimiter(rl *ratelimit.Limiter) { h.rl = rl }

func (h *AnalyticsHandler) SetMetrics(m *metrics.Endpoints) { h.metrics = m }

// SetLogger injects a structured logger.
func (h *AnalyticsHandler) SetLogger(l *applogger.Logger) {
	if l != nil {
		h.l = l
	}
}

func (h *AnalyticsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/records", h.Records)
	g.GET("/moving-averages", h.MovingAverages)
	g.GET("/returns", h.Returns)
	g.GET("/volume", h.Volume)
	g.GET("/forecast", h.Forecast)
	g.GET("/analysis", h.Analysis)
}

func (h *AnalyticsHandler) Records(c echo.Context) error {
	req := &models.RecordsRequest{}
	return h.serve(c, "records", req, func(ctx context.Context) (interface{}, error) {
		rp, err := rangeParams(req.RangeRequest)
		if err != nil {
			return nil, err
		}
		return h.records.GetRecords(ctx, usecase.GetRecordsParams{RangeParams: rp, Limit: req.Limit})
	})
}

func (h *AnalyticsHandler) MovingAverages(c echo.Context) error {
	req := &models.MovingAverageRequest{}
	return h.serve(c, "moving_averages", req, func(ctx context.Context) (interface{}, error) {
		rp, err := rangeParams(req.RangeRequest)
		if err != nil {
			return nil, err
		}
		windows, err := windowsParam(req.Windows)
		if err != nil {
			return nil, err
		}
		return h.analysis.MovingAverages(ctx, rp, windows)
	})
}

func (h *AnalyticsHandler) Returns(c echo.Context) error {
	req := &models.RangeRequest{}
	return h.serve(c, "returns", req, func(ctx context.Context) (interface{}, error) {
		rp, err := rangeParams(*req)
		if err != nil {
			return nil, err
		}
		return h.analysis.Returns(ctx, rp)
	})
}

func (h *AnalyticsHandler) Volume(c echo.Context) error {
	req := &models.RangeRequest{}
	return h.serve(c, "volume", req, func(ctx context.Context) (interface{}, error) {
		rp, err := rangeParams(*req)
		if err != nil {
			return nil, err
		}
		return h.analysis.Volume(ctx, rp)
	})
}

func (h *AnalyticsHandler) Forecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	return h.serve(c, "forecast", req, func(ctx context.Context) (interface{}, error) {
		rp, err := rangeParams(req.RangeRequest)
		if err != nil {
			return nil, err
		}
		fp, err := forecastParams(*req)
		if err != nil {
			return nil, err
		}
		return h.analysis.Forecast(ctx, rp, fp)
	})
}

func (h *AnalyticsHandler) Analysis(c echo.Context) error {
	req := &models.AnalysisRequest{}
	return h.serve(c, "analysis", req, func(ctx context.Context) (interface{}, error) {
		rp, err := rangeParams(req.RangeRequest)
		if err != nil {
			return nil, err
		}
		fp, err := forecastParams(req.ForecastRequest)
		if err != nil {
			return nil, err
		}
		windows, err := windowsParam(req.Windows)
		if err != nil {
			return nil, err
		}
		return h.analysis.Analyze(ctx, usecase.AnalyzeParams{RangeParams: rp, Windows: windows, Forecast: fp})
	})
}

// serve runs the common request pipeline: rate limit, bind and validate,
// cache lookup, run, cache store. Only successful responses are cached.
func (h *AnalyticsHandler) serve(c echo.Context, endpoint string, req interface{}, run func(ctx context.Context) (interface{}, error)) error {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		h.metrics.Observe(endpoint, time.Since(start), strconv.Itoa(status), status >= http.StatusBadRequest)
	}()

	if !h.rl.Allow(c.RealIP() + ":" + endpoint) {
		h.l.Warn("api rate limited", applogger.String("endpoint", endpoint), applogger.String("remote", c.RealIP()))
		status = http.StatusTooManyRequests
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
	}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		status = http.StatusBadRequest
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := icache.Key("api", endpoint, c.QueryParams().Encode())
	if h.cache != nil {
		b, ok, err := h.cache.GetBytes(ctx, key)
		switch {
		case err != nil:
			h.l.Warn("api cache get failed", applogger.String("endpoint", endpoint), applogger.Error(err))
		case ok:
			h.metrics.CacheResult(endpoint, true)
			return c.JSONBlob(http.StatusOK, b)
		default:
			h.metrics.CacheResult(endpoint, false)
		}
	}

	res, err := run(ctx)
	if err != nil {
		err = toAppError(err)
		status = statusOf(err)
		if status >= http.StatusInternalServerError {
			h.l.Error("api request failed", applogger.String("endpoint", endpoint), applogger.Error(err))
		} else {
			h.l.Debug("api request rejected", applogger.String("endpoint", endpoint), applogger.Int("status", status), applogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, err)
	}

	b, err := json.Marshal(xhttp.APIResponse{Status: http.StatusOK, Message: http.StatusText(http.StatusOK), Data: res})
	if err != nil {
		status = http.StatusInternalServerError
		h.l.Error("api encode failed", applogger.String("endpoint", endpoint), applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(ctx, key, b, h.cacheTTL); err != nil {
			h.l.Warn("api cache set failed", applogger.String("endpoint", endpoint), applogger.Error(err))
		}
	}
	return c.JSONBlob(http.StatusOK, b)
}

func rangeParams(r models.RangeRequest) (usecase.RangeParams, error) {
	from, err := xhttp.ParseDateParam("start", r.Start)
	if err != nil {
		return usecase.RangeParams{}, err
	}
	to, err := xhttp.ParseDateParam("end", r.End)
	if err != nil {
		return usecase.RangeParams{}, err
	}
	return usecase.RangeParams{Symbol: r.Symbol, From: from, To: to}, nil
}

func windowsParam(s string) ([]int, error) {
	w, err := util.ParseIntList(s)
	if err != nil {
		return nil, xhttp.NewAppError("ERR_VALIDATION", "windows", err.Error(), http.StatusBadRequest)
	}
	return w, nil
}

// forecastParams keeps unset knobs nil so the engine defaults apply, while an
// explicit value, zero included, reaches the engine's validation.
func forecastParams(r models.ForecastRequest) (domsvc.ForecastParams, error) {
	var (
		p   domsvc.ForecastParams
		err error
	)
	bad := func(field string) error {
		return xhttp.NewAppError("ERR_VALIDATION", field, field+" is not a valid number", http.StatusBadRequest)
	}
	if p.HorizonDays, err = util.OptionalInt(r.Horizon); err != nil {
		return p, bad("horizon")
	}
	if p.IntervalWidth, err = util.OptionalFloat(r.Interval); err != nil {
		return p, bad("interval")
	}
	if p.Samples, err = util.OptionalInt(r.Samples); err != nil {
		return p, bad("samples")
	}
	if p.Seed, err = util.OptionalInt64(r.Seed); err != nil {
		return p, bad("seed")
	}
	return p, nil
}

var _ xhttp.Handler = (*AnalyticsHandler)(nil)
