package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IdxLens/internal/domain/models"
	domsvc "IdxLens/internal/domain/service"
	"IdxLens/internal/repository"
	icache "IdxLens/internal/service/cache"
	"IdxLens/internal/service/metrics"
	"IdxLens/internal/service/ratelimit"
	"IdxLens/internal/services/analytics"
	"IdxLens/internal/services/forecast"
	"IdxLens/internal/usecase"
)

var day0 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type apiError struct {
	Code   string                 `json:"code"`
	Field  string                 `json:"field"`
	Params map[string]interface{} `json:"params"`
}

type stuckForecaster struct{}

func (stuckForecaster) Forecast(ctx context.Context, _ models.Series, _ domsvc.ForecastParams) (*models.ForecastResult, error) {
	return nil, &models.TimeoutError{Operation: "forecast", Elapsed: time.Second, Err: context.DeadlineExceeded}
}

func newTestHandler(t *testing.T, n int, f domsvc.Forecaster) (*echo.Echo, *AnalyticsHandler) {
	t.Helper()
	store := repository.NewMemoryRecordStore()
	recs := make([]models.Record, n)
	for i := range recs {
		c := 18000 + 5*float64(i)
		recs[i] = models.Record{
			Date: day0.AddDate(0, 0, i), Open: c, High: c + 10, Low: c - 10, Close: c,
			Volume: int64(500 + i), Turnover: 50,
		}
	}
	require.NoError(t, store.StoreBatch(context.Background(), "NIFTY 50", recs))

	if f == nil {
		f = forecast.NewEngine(forecast.DefaultOptions())
	}
	analysis := usecase.NewAnalysisUseCase(store,
		analytics.NewMovingAverageCalculator(),
		analytics.NewReturnsAnalyzer(),
		analytics.NewVolumeAnalyzer(),
		f, nil,
		usecase.AnalysisConfig{Windows: []int{5, 10}},
	)
	h := NewAnalyticsHandler(usecase.NewRecordsUseCase(store, nil), analysis)
	h.SetMetrics(metrics.NewEndpoints(prometheus.NewRegistry()))

	e := echo.New()
	h.RegisterRoutes(e)
	return e, h
}

func get(e *echo.Echo, target string) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func errorsOf(t *testing.T, env envelope) []apiError {
	t.Helper()
	var errs []apiError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.NotEmpty(t, errs)
	return errs
}

func TestRecords(t *testing.T) {
	e, _ := newTestHandler(t, 30, nil)

	rec, env := get(e, "/api/records?start=2024-01-05&limit=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var res usecase.GetRecordsResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, "NIFTY 50", res.Symbol)
	assert.Equal(t, 3, res.Count)
	assert.Equal(t, "2024-01-05", res.Records[0].Date.Format(models.DateLayout))
}

func TestRequestValidation(t *testing.T) {
	e, _ := newTestHandler(t, 30, nil)

	cases := map[string]string{
		"bad date":         "/api/records?start=05-01-2024",
		"limit too large":  "/api/records?limit=50001",
		"bad horizon":      "/api/forecast?horizon=abc",
		"reversed range":   "/api/returns?start=2024-01-20&end=2024-01-10",
		"negative horizon": "/api/forecast?horizon=-1",
		"bad window":       "/api/moving-averages?windows=5,x",
		"zero window":      "/api/moving-averages?windows=0",
	}
	for name, target := range cases {
		t.Run(name, func(t *testing.T) {
			rec, env := get(e, target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, http.StatusBadRequest, env.Status)
		})
	}
}

func TestErrorStatuses(t *testing.T) {
	e, _ := newTestHandler(t, 10, nil)

	rec, env := get(e, "/api/forecast")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	errs := errorsOf(t, env)
	assert.Equal(t, "ERR_INSUFFICIENT_DATA", errs[0].Code)
	assert.EqualValues(t, 14, errs[0].Params["required"])

	rec, _ = get(e, "/api/moving-averages?windows=50")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = get(e, "/api/volume?symbol=SENSEX")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	e, _ = newTestHandler(t, 30, stuckForecaster{})
	rec, _ = get(e, "/api/forecast")
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestAnalysisPartialFailure(t *testing.T) {
	e, _ := newTestHandler(t, 30, stuckForecaster{})

	rec, env := get(e, "/api/analysis?windows=5")
	require.Equal(t, http.StatusOK, rec.Code)
	var report models.AnalysisReport
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Nil(t, report.Forecast)
	assert.NotNil(t, report.Returns)
	assert.NotNil(t, report.MovingAverages)
	assert.Contains(t, report.Errors, models.ComponentForecast)
}

func TestForecastEndpoint(t *testing.T) {
	e, _ := newTestHandler(t, 60, nil)

	rec, env := get(e, "/api/forecast?horizon=5&seed=3&interval=0.9")
	require.Equal(t, http.StatusOK, rec.Code)
	var res usecase.Scoped[models.ForecastResult]
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 60, res.Records)
	require.Len(t, res.Result.Points, 5)
	assert.Equal(t, int64(3), res.Result.Diagnostics.Seed)
	assert.InDelta(t, 0.9, res.Result.Diagnostics.IntervalWidth, 1e-12)
}

type countingCache struct {
	*icache.TTLCache
	hits int
}

func (c *countingCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok, err := c.TTLCache.GetBytes(ctx, key)
	if ok {
		c.hits++
	}
	return b, ok, err
}

func TestResponseCache(t *testing.T) {
	e, h := newTestHandler(t, 30, nil)
	c := &countingCache{TTLCache: icache.NewTTLCache(16)}
	h.SetCache(c, time.Minute)

	first, _ := get(e, "/api/returns?end=2024-01-20")
	require.Equal(t, http.StatusOK, first.Code)
	second, _ := get(e, "/api/returns?end=2024-01-20")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, c.hits)
	assert.Equal(t, 1, c.Len())

	// Errors are not cached.
	bad, _ := get(e, "/api/returns?symbol=SENSEX")
	assert.Equal(t, http.StatusNotFound, bad.Code)
	assert.Equal(t, 1, c.Len())
}

func TestRateLimit(t *testing.T) {
	e, h := newTestHandler(t, 30, nil)
	h.SetRateLimiter(ratelimit.New(0.001, 2))

	codes := make([]int, 3)
	for i := range codes {
		rec, _ := get(e, "/api/volume")
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// Other endpoints have their own bucket.
	rec, _ := get(e, "/api/returns")
	assert.Equal(t, http.StatusOK, rec.Code)
}
