// Package scheduler publishes the daily analysis report on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"IdxLens/internal/domain/models"
	domrepo "IdxLens/internal/domain/repository"
	icache "IdxLens/internal/service/cache"
	"IdxLens/internal/usecase"
	applogger "IdxLens/pkg/logger"

	"github.com/robfig/cron/v3"
)

// Reporter builds and publishes one analysis report.
type Reporter interface {
	AnalyzeAndPublish(ctx context.Context, p usecase.AnalyzeParams) (*models.AnalysisReport, error)
}

type Config struct {
	// Spec is a six-field cron expression (seconds first).
	Spec         string
	Location     *time.Location
	Symbols      []string
	LookbackDays int
	Timeout      time.Duration
	// LockTTL is how long a run holds its lease; replicas firing in the
	// same window skip the symbol.
	LockTTL time.Duration
}

// Scheduler runs the daily report job. With a shared Locker only one
// replica publishes a given symbol and trading day.
type Scheduler struct {
	cron     *cron.Cron
	cfg      Config
	reporter Reporter
	store    domrepo.RecordStore
	locker   icache.Locker
	l        *applogger.Logger
}

func New(cfg Config, reporter Reporter, store domrepo.RecordStore, locker icache.Locker, l *applogger.Logger) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Hour
	}
	if l == nil {
		l = applogger.Nop()
	}
	cl := cronLogger{l: l}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(cfg.Location),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cfg:      cfg,
		reporter: reporter,
		store:    store,
		locker:   locker,
		l:        l,
	}
}

// Register adds the daily report job.
func (s *Scheduler) Register() error {
	if len(s.cfg.Symbols) == 0 {
		return errors.New("scheduler: no symbols configured")
	}
	if _, err := s.cron.AddFunc(s.cfg.Spec, s.dailyReport); err != nil {
		return fmt.Errorf("register daily report %q: %w", s.cfg.Spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.l.Info("scheduler started", applogger.String("spec", s.cfg.Spec), applogger.Strings("symbols", s.cfg.Symbols))
}

// Stop stops the scheduler and waits for a running job until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.l.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

func (s *Scheduler) dailyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()
	if err := s.RunNow(ctx); err != nil {
		s.l.Error("daily report failed", applogger.Error(err))
	}
}

// RunNow builds and publishes the report of every configured symbol. A
// failing symbol does not stop the others; their errors are joined.
func (s *Scheduler) RunNow(ctx context.Context) error {
	var errs []error
	for _, symbol := range s.cfg.Symbols {
		if err := s.runSymbol(ctx, symbol); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) runSymbol(ctx context.Context, symbol string) error {
	_, last, err := s.store.Bounds(ctx, symbol)
	if err != nil {
		return err
	}
	from, to := domrepo.LookbackRange(last, s.cfg.LookbackDays)

	if s.locker != nil {
		key := icache.Key("scheduler", "report", strings.ToLower(symbol), to.Format(models.DateLayout))
		ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		if err != nil {
			return fmt.Errorf("acquire lease: %w", err)
		}
		if !ok {
			s.l.Debug("daily report already taken", applogger.String("symbol", symbol), applogger.Date("day", to))
			return nil
		}
	}

	report, err := s.reporter.AnalyzeAndPublish(ctx, usecase.AnalyzeParams{
		RangeParams: usecase.RangeParams{Symbol: symbol, From: from, To: to},
	})
	if report != nil {
		s.l.Info("daily report published",
			applogger.String("id", report.ID),
			applogger.String("symbol", symbol),
			applogger.Date("start", report.Start),
			applogger.Date("end", report.End),
			applogger.Int("failed_components", len(report.Errors)),
		)
	}
	return err
}

// cronLogger adapts the structured logger to cron.Logger.
type cronLogger struct{ l *applogger.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, kv(keysAndValues)...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(kv(keysAndValues), applogger.Error(err))...)
}

func kv(keysAndValues []interface{}) []applogger.Field {
	out := make([]applogger.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		out = append(out, applogger.Any(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1]))
	}
	return out
}
