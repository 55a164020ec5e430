package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"IdxLens/internal/domain/models"
	domrepo "IdxLens/internal/domain/repository"
	domsvc "IdxLens/internal/domain/service"
	applogger "IdxLens/pkg/logger"
)

// AnalysisConfig bounds the concurrent report run.
type AnalysisConfig struct {
	Windows []int
	Workers int
	Timeout time.Duration
}

// AnalysisUseCase loads a date range and runs the analytics over it.
type AnalysisUseCase struct {
	store      domrepo.RecordStore
	ma         domsvc.MovingAverageCalculator
	returns    domsvc.ReturnsAnalyzer
	volume     domsvc.VolumeAnalyzer
	forecaster domsvc.Forecaster
	metrics    domrepo.Metrics
	publisher  domrepo.ReportPublisher
	cfg        AnalysisConfig
	l          *applogger.Logger
	now        func() time.Time
}

func NewAnalysisUseCase(
	store domrepo.RecordStore,
	ma domsvc.MovingAverageCalculator,
	returns domsvc.ReturnsAnalyzer,
	volume domsvc.VolumeAnalyzer,
	forecaster domsvc.Forecaster,
	metrics domrepo.Metrics,
	cfg AnalysisConfig,
) *AnalysisUseCase {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &AnalysisUseCase{
		store:      store,
		ma:         ma,
		returns:    returns,
		volume:     volume,
		forecaster: forecaster,
		metrics:    metrics,
		cfg:        cfg,
		now:        time.Now,
	}
}

// SetLogger injects a structured logger.
func (uc *AnalysisUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// SetPublisher enables PublishReport. A nil publisher disables it.
func (uc *AnalysisUseCase) SetPublisher(p domrepo.ReportPublisher) { uc.publisher = p }

// Scoped wraps a single component result with the range it was computed on.
type Scoped[T any] struct {
	Symbol  string    `json:"symbol"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Records int       `json:"records"`
	Result  *T        `json:"result"`
}

func scoped[T any](symbol string, s *models.DataSeries, v *T) *Scoped[T] {
	return &Scoped[T]{Symbol: symbol, Start: s.Start(), End: s.End(), Records: s.Len(), Result: v}
}

// AnalyzeParams select the range and the per-request knobs of a full report.
// Nil Windows use the configured defaults.
type AnalyzeParams struct {
	RangeParams
	Windows  []int
	Forecast domsvc.ForecastParams
}

func (uc *AnalysisUseCase) windows(w []int) []int {
	if len(w) == 0 {
		return uc.cfg.Windows
	}
	return w
}

func (uc *AnalysisUseCase) MovingAverages(ctx context.Context, p RangeParams, windows []int) (*Scoped[models.MovingAverageResult], error) {
	symbol, s, err := loadSeries(ctx, uc.store, p)
	if err != nil {
		return nil, err
	}
	res, err := timed(uc, models.ComponentMovingAverages, func() (*models.MovingAverageResult, error) {
		return uc.ma.Calculate(s, uc.windows(windows))
	})
	if err != nil {
		return nil, err
	}
	return scoped(symbol, s, res), nil
}

func (uc *AnalysisUseCase) Returns(ctx context.Context, p RangeParams) (*Scoped[models.ReturnsResult], error) {
	symbol, s, err := loadSeries(ctx, uc.store, p)
	if err != nil {
		return nil, err
	}
	res, err := timed(uc, models.ComponentReturns, func() (*models.ReturnsResult, error) {
		return uc.returns.Analyze(s)
	})
	if err != nil {
		return nil, err
	}
	return scoped(symbol, s, res), nil
}

func (uc *AnalysisUseCase) Volume(ctx context.Context, p RangeParams) (*Scoped[models.VolumeSummary], error) {
	symbol, s, err := loadSeries(ctx, uc.store, p)
	if err != nil {
		return nil, err
	}
	res, err := timed(uc, models.ComponentVolume, func() (*models.VolumeSummary, error) {
		return uc.volume.Summarize(s)
	})
	if err != nil {
		return nil, err
	}
	return scoped(symbol, s, res), nil
}

func (uc *AnalysisUseCase) Forecast(ctx context.Context, p RangeParams, fp domsvc.ForecastParams) (*Scoped[models.ForecastResult], error) {
	symbol, s, err := loadSeries(ctx, uc.store, p)
	if err != nil {
		return nil, err
	}
	res, err := timed(uc, models.ComponentForecast, func() (*models.ForecastResult, error) {
		return uc.forecaster.Forecast(ctx, s, fp)
	})
	if err != nil {
		return nil, err
	}
	uc.recordCondition(symbol, res)
	return scoped(symbol, s, res), nil
}

// Analyze runs all four components concurrently over one range. A failing
// component leaves its field nil and its message in Errors; the others still
// complete. Only a range that cannot be loaded fails the whole call.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, p AnalyzeParams) (*models.AnalysisReport, error) {
	started := uc.now()
	symbol, s, err := loadSeries(ctx, uc.store, p.RangeParams)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	report := &models.AnalysisReport{
		ID:          uuid.NewString(),
		Symbol:      symbol,
		Start:       s.Start(),
		End:         s.End(),
		Records:     s.Len(),
		GeneratedAt: started.UTC(),
		Errors:      map[string]string{},
	}
	var mu sync.Mutex
	fail := func(component string, err error) {
		mu.Lock()
		report.Errors[component] = err.Error()
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(uc.cfg.Workers)
	g.Go(func() error {
		v, err := timed(uc, models.ComponentMovingAverages, func() (*models.MovingAverageResult, error) {
			return uc.ma.Calculate(s, uc.windows(p.Windows))
		})
		if err != nil {
			fail(models.ComponentMovingAverages, err)
			return nil
		}
		mu.Lock()
		report.MovingAverages = v
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		v, err := timed(uc, models.ComponentReturns, func() (*models.ReturnsResult, error) {
			return uc.returns.Analyze(s)
		})
		if err != nil {
			fail(models.ComponentReturns, err)
			return nil
		}
		mu.Lock()
		report.Returns = v
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		v, err := timed(uc, models.ComponentVolume, func() (*models.VolumeSummary, error) {
			return uc.volume.Summarize(s)
		})
		if err != nil {
			fail(models.ComponentVolume, err)
			return nil
		}
		mu.Lock()
		report.Volume = v
		mu.Unlock()
		return nil
	})
	g.Go(func() error {
		v, err := timed(uc, models.ComponentForecast, func() (*models.ForecastResult, error) {
			return uc.forecaster.Forecast(ctx, s, p.Forecast)
		})
		if err != nil {
			fail(models.ComponentForecast, err)
			return nil
		}
		uc.recordCondition(symbol, v)
		mu.Lock()
		report.Forecast = v
		mu.Unlock()
		return nil
	})
	_ = g.Wait()

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	if uc.l != nil {
		fields := []applogger.Field{
			applogger.String("id", report.ID),
			applogger.String("symbol", symbol),
			applogger.Date("start", report.Start),
			applogger.Date("end", report.End),
			applogger.Int("records", report.Records),
			applogger.Int("failed", len(report.Errors)),
			applogger.Duration("took_ms", uc.now().Sub(started)),
		}
		if report.Failed() {
			uc.l.Warn("analysis completed with errors", fields...)
		} else {
			uc.l.Info("analysis completed", fields...)
		}
	}
	return report, nil
}

// AnalyzeAndPublish runs Analyze and hands the report to the publisher.
// The report is returned even when publishing fails.
func (uc *AnalysisUseCase) AnalyzeAndPublish(ctx context.Context, p AnalyzeParams) (*models.AnalysisReport, error) {
	report, err := uc.Analyze(ctx, p)
	if err != nil {
		return nil, err
	}
	if uc.publisher == nil {
		return report, nil
	}
	if err := uc.publisher.PublishReport(ctx, report); err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordError("publish", "transport")
		}
		return report, fmt.Errorf("publish report %s: %w", report.ID, err)
	}
	return report, nil
}

// timed runs fn and records its latency and failure kind under component.
func timed[T any](uc *AnalysisUseCase, component string, fn func() (*T, error)) (*T, error) {
	start := uc.now()
	v, err := fn()
	if uc.metrics != nil {
		uc.metrics.RecordAnalysis(component, uc.now().Sub(start).Seconds())
		if err != nil {
			uc.metrics.RecordError(component, ErrorKind(err))
		}
	}
	return v, err
}

func (uc *AnalysisUseCase) recordCondition(symbol string, res *models.ForecastResult) {
	if uc.metrics != nil && res != nil {
		uc.metrics.RecordForecastCondition(symbol, res.Diagnostics.ConditionNumber)
	}
}

// ErrorKind classifies err for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, models.ErrConvergence):
		return "convergence"
	case errors.Is(err, models.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, domrepo.ErrUnknownSymbol):
		return "unknown_symbol"
	default:
		return "internal"
	}
}
