// Package forecast fits an additive trend plus seasonality model to daily
// closes and projects it forward with simulated uncertainty bands.
//
// The trend is piecewise linear with slope changes at a set of changepoints,
// the seasonal terms are Fourier series. Both are fitted at once by penalised
// least squares; the penalties play the role of the priors: slope changes are
// shrunk hard, seasonal coefficients only lightly.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"IdxLens/internal/domain/models"
	domsvc "IdxLens/internal/domain/service"
	"IdxLens/internal/services/features"
	applogger "IdxLens/pkg/logger"
)

// Engine runs forecasts with a fixed set of defaults. It holds no state
// between calls and is safe for concurrent use.
type Engine struct {
	defaults Options
	l        *applogger.Logger
}

func NewEngine(defaults Options) *Engine {
	return &Engine{defaults: defaults}
}

// SetLogger injects a structured logger.
func (e *Engine) SetLogger(l *applogger.Logger) { e.l = l }

// Defaults returns the options used when a request does not override them.
func (e *Engine) Defaults() Options { return e.defaults }

// Forecast merges p into the engine defaults and runs the fit.
func (e *Engine) Forecast(ctx context.Context, s models.Series, p domsvc.ForecastParams) (*models.ForecastResult, error) {
	return e.Run(ctx, s, e.defaults.WithParams(p))
}

// Run fits the model on s and forecasts o.HorizonDays calendar days past the
// last record. The same series, options and seed always give the same result.
func (e *Engine) Run(ctx context.Context, s models.Series, o Options) (*models.ForecastResult, error) {
	started := time.Now()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	if o.FitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.FitTimeout)
		defer cancel()
	}

	n := s.Len()
	if req := o.requiredHistory(); n < req {
		return nil, &models.InsufficientDataError{Operation: "forecast", Required: req, Actual: n}
	}
	dates, closes := features.Dates(s), features.Closes(s)
	yScale, err := scaleOf(dates, closes)
	if err != nil {
		return nil, err
	}
	y := make([]float64, n)
	for i, c := range closes {
		y[i] = c / yScale
	}

	tl := newTimeline(dates[0], dates[n-1])
	cps, cpDates, err := placeChangepoints(dates, tl, o)
	if err != nil {
		return nil, err
	}
	lay := newLayout(tl, cps, capOrders(selectSeasonalities(o, tl), dates))

	if err := interrupted(ctx, started); err != nil {
		return nil, err
	}
	fit, err := solve(lay, dates, y, o)
	if err != nil {
		e.warn("forecast fit failed", err, n)
		return nil, err
	}
	if err := interrupted(ctx, started); err != nil {
		return nil, err
	}

	last := dates[n-1]
	future := make([]time.Time, o.HorizonDays)
	scaled := make([]float64, o.HorizonDays)
	for h := range future {
		future[h] = features.AddDays(last, h+1)
		scaled[h] = tl.scale(future[h])
	}

	magnitudes := make([]float64, len(cps))
	for j := range cps {
		magnitudes[j] = math.Abs(fit.beta[colHinges+j])
	}
	sim := simulation{
		future:     scaled,
		rate:       math.Min(float64(len(cps))/tl.span, 1),
		magnitudes: magnitudes,
		sigma:      fit.rmse,
		samples:    o.Samples,
		width:      o.IntervalWidth,
	}
	lower, upper, err := sim.bands(ctx, newRand(o.Seed))
	if err != nil {
		return nil, interrupted(ctx, started)
	}

	res := &models.ForecastResult{
		HorizonDays:  o.HorizonDays,
		Points:       make([]models.ForecastPoint, o.HorizonDays),
		Components:   make([]models.ComponentPoint, 0, n+o.HorizonDays),
		Changepoints: make([]models.Changepoint, len(cps)),
		Diagnostics: models.FitDiagnostics{
			RMSE:            fit.rmse * yScale,
			ConditionNumber: fit.cond,
			Seed:            o.Seed,
			Samples:         o.Samples,
			IntervalWidth:   o.IntervalWidth,
			Seasonalities:   lay.seasonNames(),
			HistoryPoints:   n,
		},
	}
	for _, d := range dates {
		res.Components = append(res.Components, component(lay, fit.beta, d, yScale, false))
	}
	for h, d := range future {
		c := component(lay, fit.beta, d, yScale, true)
		res.Components = append(res.Components, c)
		point := c.Trend + c.Seasonal
		res.Points[h] = models.ForecastPoint{
			Date:     d,
			Forecast: point,
			Lower:    point + lower[h]*yScale,
			Upper:    point + upper[h]*yScale,
		}
	}
	// Slope changes are reported in price per day.
	for j, d := range cpDates {
		res.Changepoints[j] = models.Changepoint{Date: d, Delta: fit.beta[colHinges+j] * yScale / tl.span}
	}

	if e.l != nil {
		e.l.Debug("forecast fitted",
			applogger.Int("history", n),
			applogger.Int("horizon_days", o.HorizonDays),
			applogger.Int("changepoints", len(cps)),
			applogger.Strings("seasonalities", res.Diagnostics.Seasonalities),
			applogger.Float64("rmse", res.Diagnostics.RMSE),
			applogger.Float64("cond", fit.cond),
			applogger.Duration("took_ms", time.Since(started)),
		)
	}
	return res, nil
}

func component(l *layout, beta []float64, d time.Time, yScale float64, forecasted bool) models.ComponentPoint {
	terms := l.seasonal(beta, d)
	c := models.ComponentPoint{
		Date:       d,
		Trend:      l.trend(beta, l.tl.scale(d)) * yScale,
		Forecasted: forecasted,
	}
	if len(terms) > 0 {
		c.Terms = make(map[string]float64, len(terms))
		for i, v := range terms {
			c.Terms[l.seasons[i].Name] = v * yScale
			c.Seasonal += v * yScale
		}
	}
	return c
}

// scaleOf checks the inputs the fit relies on and returns the largest
// absolute close, which normalises the target.
func scaleOf(dates []time.Time, closes []float64) (float64, error) {
	scale := 0.0
	for i, c := range closes {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return 0, &models.ValidationError{Index: i, Date: dates[i], Field: "close", Reason: "close must be finite"}
		}
		if i > 0 && !dates[i].After(dates[i-1]) {
			return 0, &models.ValidationError{Index: i, Date: dates[i], Field: "date", Reason: "dates must be strictly increasing"}
		}
		scale = math.Max(scale, math.Abs(c))
	}
	if scale == 0 {
		return 0, models.NewValidationError("close", "all closes are zero")
	}
	return scale, nil
}

// interrupted converts an expired deadline into a TimeoutError. Plain
// cancellation is passed through wrapped.
func interrupted(ctx context.Context, started time.Time) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &models.TimeoutError{Operation: "forecast", Elapsed: time.Since(started), Err: err}
	default:
		return fmt.Errorf("forecast: %w", err)
	}
}

func (e *Engine) warn(msg string, err error, history int) {
	if e.l == nil {
		return
	}
	e.l.Warn(msg, applogger.Int("history", history), applogger.Error(err))
}

var _ domsvc.Forecaster = (*Engine)(nil)
