package forecast

import (
	"fmt"
	"math"
	"time"

	"IdxLens/internal/domain/models"
	domsvc "IdxLens/internal/domain/service"
)

// SeasonalityMode controls whether a periodic component is fitted.
type SeasonalityMode string

const (
	// SeasonalityAuto fits the component only when the history covers two periods.
	SeasonalityAuto SeasonalityMode = "auto"
	SeasonalityOn   SeasonalityMode = "on"
	SeasonalityOff  SeasonalityMode = "off"
)

// Seasonality is a Fourier series with a known period.
type Seasonality struct {
	Name       string
	PeriodDays float64
	Order      int
	Mode       SeasonalityMode
	// PriorScale overrides Options.SeasonalityPriorScale when positive.
	PriorScale float64
}

// MaxSamples bounds the simulated trajectories of one forecast.
const MaxSamples = 20000

// Options configure a single forecast fit.
type Options struct {
	HorizonDays    int
	MaxHorizonDays int
	IntervalWidth  float64
	Samples        int
	Seed           int64

	// ChangepointPriorScale is the trend flexibility: larger values let the
	// trend bend more closely to local moves.
	ChangepointPriorScale float64
	SeasonalityPriorScale float64
	NChangepoints         int
	ChangepointRange      float64
	// Changepoints, when set, replace the automatically placed ones.
	Changepoints []time.Time

	Seasonalities []Seasonality

	MinHistory         int
	MaxConditionNumber float64
	FitTimeout         time.Duration
}

// WeeklySeasonality and YearlySeasonality mirror the usual daily-data setup.
func WeeklySeasonality() Seasonality {
	return Seasonality{Name: "weekly", PeriodDays: 7, Order: 3, Mode: SeasonalityAuto}
}

func YearlySeasonality() Seasonality {
	return Seasonality{Name: "yearly", PeriodDays: 365.25, Order: 10, Mode: SeasonalityAuto}
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		HorizonDays:           30,
		MaxHorizonDays:        365,
		IntervalWidth:         0.8,
		Samples:               500,
		Seed:                  42,
		ChangepointPriorScale: 0.05,
		SeasonalityPriorScale: 10,
		NChangepoints:         25,
		ChangepointRange:      0.8,
		Seasonalities:         []Seasonality{WeeklySeasonality(), YearlySeasonality()},
		MinHistory:            10,
		MaxConditionNumber:    1e12,
	}
}

// WithParams applies per-request overrides on top of o.
func (o Options) WithParams(p domsvc.ForecastParams) Options {
	if p.HorizonDays != nil {
		o.HorizonDays = *p.HorizonDays
	}
	if p.IntervalWidth != nil {
		o.IntervalWidth = *p.IntervalWidth
	}
	if p.Samples != nil {
		o.Samples = *p.Samples
	}
	if p.Seed != nil {
		o.Seed = *p.Seed
	}
	return o
}

// Validate checks the options without looking at any data.
func (o Options) Validate() error {
	maxH := o.MaxHorizonDays
	if maxH <= 0 {
		maxH = 365
	}
	switch {
	case o.HorizonDays <= 0:
		return models.NewValidationError("horizon_days", fmt.Sprintf("must be a positive integer, got %d", o.HorizonDays))
	case o.HorizonDays > maxH:
		return models.NewValidationError("horizon_days", fmt.Sprintf("must be at most %d, got %d", maxH, o.HorizonDays))
	case !(o.IntervalWidth > 0 && o.IntervalWidth < 1):
		return models.NewValidationError("interval_width", fmt.Sprintf("must be in (0,1), got %g", o.IntervalWidth))
	case o.Samples <= 0 || o.Samples > MaxSamples:
		return models.NewValidationError("samples", fmt.Sprintf("must be in 1..%d, got %d", MaxSamples, o.Samples))
	case o.ChangepointPriorScale <= 0:
		return models.NewValidationError("changepoint_prior_scale", "must be positive")
	case o.SeasonalityPriorScale <= 0:
		return models.NewValidationError("seasonality_prior_scale", "must be positive")
	case o.NChangepoints < 0:
		return models.NewValidationError("n_changepoints", "must not be negative")
	case !(o.ChangepointRange > 0 && o.ChangepointRange <= 1):
		return models.NewValidationError("changepoint_range", fmt.Sprintf("must be in (0,1], got %g", o.ChangepointRange))
	case o.MinHistory < 0:
		return models.NewValidationError("min_history", "must not be negative")
	case !(o.MaxConditionNumber > 0):
		return models.NewValidationError("max_condition_number", fmt.Sprintf("must be positive, got %g", o.MaxConditionNumber))
	}
	for _, s := range o.Seasonalities {
		if s.PeriodDays <= 0 || s.Order < 1 {
			return models.NewValidationError("seasonality", fmt.Sprintf("%s: period and order must be positive", s.Name))
		}
		switch s.Mode {
		case SeasonalityAuto, SeasonalityOn, SeasonalityOff:
		default:
			return models.NewValidationError("seasonality", fmt.Sprintf("%s: unknown mode %q", s.Name, s.Mode))
		}
	}
	return nil
}

// requiredHistory is the minimum number of records needed to fit: two full
// cycles of the shortest configured period, and never less than MinHistory.
// Longer auto periods are simply dropped on short histories.
func (o Options) requiredHistory() int {
	req := o.MinHistory
	if req < 2 {
		req = 2
	}
	shortest := math.Inf(1)
	for _, s := range o.Seasonalities {
		if s.Mode != SeasonalityOff && s.PeriodDays < shortest {
			shortest = s.PeriodDays
		}
	}
	if !math.IsInf(shortest, 1) {
		if n := 2 * int(math.Ceil(shortest)); n > req {
			req = n
		}
	}
	return req
}
