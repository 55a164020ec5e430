package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"IdxLens/internal/scheduler"
	"IdxLens/internal/usecase"
	pkgch "IdxLens/pkg/clickhouse"
	"IdxLens/pkg/config"
	xhttp "IdxLens/pkg/http"
	pkgkafka "IdxLens/pkg/kafka"
	applogger "IdxLens/pkg/logger"
)

// Pinger is a dependency that can report its health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healther interface {
	Health(ctx context.Context) error
}

// Deps are the components the App runs. Everything except Handler is
// optional and left nil when its feature is off.
type Deps struct {
	Handler    xhttp.Handler
	Records    interface{}
	ClickHouse *pkgch.Client
	Producer   *pkgkafka.Producer
	Consumer   *pkgkafka.Consumer
	Ingest     *usecase.IngestHandler
	Scheduler  *scheduler.Scheduler
	Redis      Pinger
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	deps       Deps
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, deps Deps) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, l: l, deps: deps}
}

func (a *App) serverOptions() []xhttp.ServerOption {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithLogger(a.l),
	}
	if h, ok := a.deps.Records.(healther); ok {
		opts = append(opts, xhttp.WithHealthCheck("records", h.Health))
	}
	if a.deps.ClickHouse != nil {
		opts = append(opts, xhttp.WithHealthCheck("clickhouse", a.deps.ClickHouse.Health))
	}
	if a.deps.Redis != nil {
		opts = append(opts, xhttp.WithHealthCheck("redis", a.deps.Redis.Ping))
	}
	return opts
}

// Start launches the HTTP server, the ingest consumer and the scheduler.
func (a *App) Start() error {
	a.httpServer = xhttp.NewServer(a.deps.Handler, a.serverOptions()...)

	if a.deps.Consumer != nil && a.deps.Ingest != nil {
		a.deps.Consumer.RegisterHandler(a.deps.Ingest)
		if err := a.deps.Consumer.Start(); err != nil {
			return err
		}
		a.l.Info("ingest consumer started", applogger.String("topic", a.deps.Ingest.Topic()))
	}
	if a.deps.Scheduler != nil {
		a.deps.Scheduler.Start()
		a.l.Info("report scheduler started",
			applogger.String("spec", a.cfg.Scheduler.Spec),
			applogger.String("timezone", a.cfg.Scheduler.Timezone),
		)
	}
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}
	a.l.Info("idxlens started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("source", a.cfg.Data.Source),
		applogger.String("symbol", a.cfg.Data.Symbol),
	)
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops intake first, then closes the clients the intake used.
func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.deps.Scheduler != nil {
		if err := a.deps.Scheduler.Stop(shutdownCtx); err != nil {
			a.l.Warn("scheduler stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if a.deps.Consumer != nil {
		if err := a.deps.Consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	a.l.Info("shutdown complete")
	// The collector publishes through the producer, so it goes first.
	a.l.RemoveCollector()

	if a.deps.Producer != nil {
		if err := a.deps.Producer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.deps.ClickHouse != nil {
		if err := a.deps.ClickHouse.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c, ok := a.deps.Redis.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
