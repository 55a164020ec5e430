package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"IdxLens/pkg/config"
	xhttp "IdxLens/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type healthyStore struct{ err error }

func (h healthyStore) Health(context.Context) error { return h.err }

type fakeRedis struct{ closed bool }

func (r *fakeRedis) Ping(context.Context) error { return nil }

func (r *fakeRedis) Close() error {
	r.closed = true
	return nil
}

type noRoutes struct{}

func (noRoutes) RegisterRoutes(*echo.Echo) {}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg
}

func TestApp_HealthChecks(t *testing.T) {
	app := New(testConfig(t), nil, Deps{
		Handler: noRoutes{},
		Records: healthyStore{err: errors.New("table missing")},
		Redis:   &fakeRedis{},
	})
	reg := prometheus.NewRegistry()
	srv := xhttp.NewServer(app.deps.Handler, append(app.serverOptions(), xhttp.WithMetricsRegistry(reg, reg))...)

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "table missing")
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)
}

func TestApp_ShutdownClosesClients(t *testing.T) {
	redis := &fakeRedis{}
	app := New(testConfig(t), nil, Deps{Handler: noRoutes{}, Records: struct{}{}, Redis: redis})
	require.NoError(t, app.Shutdown(context.Background()))
	assert.True(t, redis.closed)
}
