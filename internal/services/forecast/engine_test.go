package forecast

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"IdxLens/internal/domain/models"
	domsvc "IdxLens/internal/domain/service"
	"IdxLens/internal/services/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2023, time.January, 2, 0, 0, 0, 0, time.UTC)

func seriesFrom(t *testing.T, closes []float64) *models.DataSeries {
	t.Helper()
	recs := make([]models.Record, len(closes))
	for i, c := range closes {
		recs[i] = models.Record{
			Date:   day0.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	s, err := models.NewDataSeriesAll(recs)
	require.NoError(t, err)
	return s
}

func linearCloses(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1000 + 2*float64(i)
	}
	return out
}

func noisyWeeklyCloses(n int) []float64 {
	rng := rand.New(rand.NewPCG(1, 2))
	out := make([]float64, n)
	for i := range out {
		out[i] = 1000 + 0.5*float64(i) + 8*math.Sin(2*math.Pi*float64(i)/7) + 5*rng.NormFloat64()
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestEngine_LinearTrend(t *testing.T) {
	s := seriesFrom(t, linearCloses(250))
	e := NewEngine(DefaultOptions())

	res, err := e.Forecast(context.Background(), s, domsvc.ForecastParams{HorizonDays: ptr(30), Seed: ptr(int64(7))})
	require.NoError(t, err)
	require.Len(t, res.Points, 30)
	assert.Equal(t, 30, res.HorizonDays)
	assert.Len(t, res.Components, 280)
	assert.Equal(t, []string{"weekly"}, res.Diagnostics.Seasonalities)

	last := s.End()
	prevWidth := -1.0
	for h, p := range res.Points {
		assert.True(t, p.Date.Equal(last.AddDate(0, 0, h+1)), "point %d date %s", h, p.Date)
		want := 1000 + 2*float64(249+h+1)
		assert.InDelta(t, want, p.Forecast, 1.0, "horizon %d", h+1)
		assert.LessOrEqual(t, p.Lower, p.Forecast)
		assert.GreaterOrEqual(t, p.Upper, p.Forecast)
		width := p.Upper - p.Lower
		assert.GreaterOrEqual(t, width, prevWidth-1e-9)
		prevWidth = width
	}

	for i, c := range res.Components[:250] {
		assert.False(t, c.Forecasted)
		assert.InDelta(t, 1000+2*float64(i), c.Trend, 1e-3, "trend at %d", i)
		assert.InDelta(t, s.At(i).Close, c.Trend+c.Seasonal, 0.5)
	}
	assert.True(t, res.Components[250].Forecasted)
}

func TestEngine_Deterministic(t *testing.T) {
	s := seriesFrom(t, noisyWeeklyCloses(200))
	e := NewEngine(DefaultOptions())
	p := domsvc.ForecastParams{HorizonDays: ptr(20), Seed: ptr(int64(99))}

	a, err := e.Forecast(context.Background(), s, p)
	require.NoError(t, err)
	b, err := e.Forecast(context.Background(), s, p)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	p.Seed = ptr(int64(100))
	c, err := e.Forecast(context.Background(), s, p)
	require.NoError(t, err)
	assert.NotEqual(t, a.Points, c.Points)
	// The point forecast does not depend on the seed.
	for i := range a.Points {
		assert.Equal(t, a.Points[i].Forecast, c.Points[i].Forecast)
	}
}

func TestEngine_BandsWidenWithHorizon(t *testing.T) {
	s := seriesFrom(t, noisyWeeklyCloses(300))
	res, err := NewEngine(DefaultOptions()).Forecast(context.Background(), s, domsvc.ForecastParams{HorizonDays: ptr(60)})
	require.NoError(t, err)

	first := res.Points[0].Upper - res.Points[0].Lower
	lastW := res.Points[59].Upper - res.Points[59].Lower
	assert.Greater(t, first, 0.0)
	assert.GreaterOrEqual(t, lastW, first)
	for i := 1; i < len(res.Points); i++ {
		assert.GreaterOrEqual(t, res.Points[i].Upper-res.Points[i].Lower, res.Points[i-1].Upper-res.Points[i-1].Lower-1e-9)
	}
}

func TestEngine_WeeklySeasonality(t *testing.T) {
	closes := make([]float64, 140)
	for i := range closes {
		d := day0.AddDate(0, 0, i)
		closes[i] = 1000 + 20*math.Sin(2*math.Pi*epochDays(d)/7)
	}
	s := seriesFrom(t, closes)

	res, err := NewEngine(DefaultOptions()).Forecast(context.Background(), s, domsvc.ForecastParams{HorizonDays: ptr(14)})
	require.NoError(t, err)
	assert.Contains(t, res.Diagnostics.Seasonalities, "weekly")
	for _, p := range res.Points {
		want := 1000 + 20*math.Sin(2*math.Pi*epochDays(p.Date)/7)
		assert.InDelta(t, want, p.Forecast, 0.5, p.Date.Format(models.DateLayout))
	}
	c := res.Components[len(res.Components)-1]
	assert.InDelta(t, c.Seasonal, c.Terms["weekly"], 1e-9)
}

func TestEngine_ManualChangepoint(t *testing.T) {
	closes := make([]float64, 200)
	for i := range closes {
		if i < 100 {
			closes[i] = 1000 + float64(i)
		} else {
			closes[i] = 1100 + 3*float64(i-100)
		}
	}
	s := seriesFrom(t, closes)
	o := DefaultOptions()
	o.Seasonalities = nil
	o.Changepoints = []time.Time{day0.AddDate(0, 0, 100)}

	res, err := NewEngine(o).Run(context.Background(), s, o)
	require.NoError(t, err)
	require.Len(t, res.Changepoints, 1)
	assert.InDelta(t, 2.0, res.Changepoints[0].Delta, 0.05)
	assert.InDelta(t, 1100+3*float64(100), res.Points[0].Forecast, 1.0)

	o.Changepoints = []time.Time{day0.AddDate(0, 0, 500)}
	_, err = NewEngine(o).Run(context.Background(), s, o)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestEngine_InvalidParams(t *testing.T) {
	s := seriesFrom(t, linearCloses(60))
	e := NewEngine(DefaultOptions())

	cases := map[string]domsvc.ForecastParams{
		"zero horizon":     {HorizonDays: ptr(0)},
		"negative horizon": {HorizonDays: ptr(-5)},
		"horizon too long": {HorizonDays: ptr(366)},
		"interval of one":  {IntervalWidth: ptr(1.0)},
		"interval of zero": {IntervalWidth: ptr(0.0)},
		"no samples":       {Samples: ptr(0)},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := e.Forecast(context.Background(), s, p)
			assert.Nil(t, res)
			var ve *models.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestEngine_InsufficientHistory(t *testing.T) {
	s := seriesFrom(t, linearCloses(10))
	_, err := NewEngine(DefaultOptions()).Forecast(context.Background(), s, domsvc.ForecastParams{})

	var ide *models.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 14, ide.Required)
	assert.Equal(t, 10, ide.Actual)

	o := DefaultOptions()
	o.Seasonalities = nil
	_, err = NewEngine(o).Run(context.Background(), s, o)
	assert.NoError(t, err)
}

func TestEngine_Timeout(t *testing.T) {
	s := seriesFrom(t, noisyWeeklyCloses(200))
	e := NewEngine(DefaultOptions())

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	res, err := e.Forecast(ctx, s, domsvc.ForecastParams{})
	assert.Nil(t, res)
	assert.ErrorIs(t, err, models.ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	_, err = e.Forecast(ctx, s, domsvc.ForecastParams{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, models.ErrTimeout))
}

func TestEngine_IllConditioned(t *testing.T) {
	s := seriesFrom(t, linearCloses(60))
	o := DefaultOptions()
	o.MaxConditionNumber = 10

	res, err := NewEngine(o).Run(context.Background(), s, o)
	assert.Nil(t, res)
	var ce *models.ConvergenceError
	require.ErrorAs(t, err, &ce)
	assert.ErrorIs(t, err, models.ErrConvergence)
	assert.Equal(t, "fit", ce.Stage)
	assert.Greater(t, ce.ConditionNumber, 10.0)
}

// weekdaySeries holds only Monday to Friday, with closes on a straight line
// in calendar days.
func weekdaySeries(t *testing.T, n int) *models.DataSeries {
	t.Helper()
	recs := make([]models.Record, 0, n)
	for d := day0; len(recs) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		c := 1000 + 2*d.Sub(day0).Hours()/24
		recs = append(recs, models.Record{Date: d, Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000})
	}
	s, err := models.NewDataSeriesAll(recs)
	require.NoError(t, err)
	return s
}

func TestEngine_LongWeekdayHistory(t *testing.T) {
	for _, n := range []int{250, 1000, 1500} {
		s := weekdaySeries(t, n)
		o := DefaultOptions()
		o.Seasonalities = []Seasonality{WeeklySeasonality()}

		res, err := NewEngine(o).Run(context.Background(), s, o)
		require.NoError(t, err, "n=%d", n)
		assert.Less(t, res.Diagnostics.ConditionNumber, o.MaxConditionNumber)
		want := 1000 + 2*res.Points[0].Date.Sub(day0).Hours()/24
		assert.InDelta(t, want, res.Points[0].Forecast, 1.0, "n=%d", n)
	}
}

func TestCapOrders(t *testing.T) {
	weekdays := weekdaySeries(t, 30)
	daily := seriesFrom(t, linearCloses(30))

	capped := capOrders([]activeSeasonality{{Seasonality: WeeklySeasonality()}}, features.Dates(weekdays))
	require.Len(t, capped, 1)
	assert.Equal(t, 2, capped[0].Order)

	capped = capOrders([]activeSeasonality{{Seasonality: WeeklySeasonality()}}, features.Dates(daily))
	require.Len(t, capped, 1)
	assert.Equal(t, 3, capped[0].Order)

	// Two observed phases cannot carry even a first-order term.
	sparse := []time.Time{day0, day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 7), day0.AddDate(0, 0, 8)}
	assert.Empty(t, capOrders([]activeSeasonality{{Seasonality: WeeklySeasonality()}}, sparse))
}

func TestOptions_Validate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())

	cases := map[string]func(*Options){
		"zero condition limit": func(o *Options) { o.MaxConditionNumber = 0 },
		"nan condition limit":  func(o *Options) { o.MaxConditionNumber = math.NaN() },
		"negative min history": func(o *Options) { o.MinHistory = -1 },
		"zero period":          func(o *Options) { o.Seasonalities[0].PeriodDays = 0 },
		"unknown mode":         func(o *Options) { o.Seasonalities[0].Mode = "sometimes" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := DefaultOptions()
			mutate(&o)
			assert.ErrorIs(t, o.Validate(), models.ErrValidation)
		})
	}

	var o Options
	o.HorizonDays, o.IntervalWidth, o.Samples = 5, 0.8, 10
	o.ChangepointPriorScale, o.SeasonalityPriorScale, o.ChangepointRange = 0.05, 10, 0.8
	var ve *models.ValidationError
	require.ErrorAs(t, o.Validate(), &ve)
	assert.Equal(t, "max_condition_number", ve.Field)
}

func TestOptions_RequiredHistory(t *testing.T) {
	o := DefaultOptions()
	assert.Equal(t, 14, o.requiredHistory())

	o.Seasonalities = []Seasonality{YearlySeasonality()}
	assert.Equal(t, 732, o.requiredHistory())

	o.Seasonalities[0].Mode = SeasonalityOff
	assert.Equal(t, o.MinHistory, o.requiredHistory())
}

func TestPlaceChangepoints(t *testing.T) {
	dates := make([]time.Time, 100)
	for i := range dates {
		dates[i] = day0.AddDate(0, 0, i)
	}
	tl := newTimeline(dates[0], dates[99])

	pos, cpDates, err := placeChangepoints(dates, tl, DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, pos, 25)
	assert.Len(t, cpDates, 25)
	for i := 1; i < len(pos); i++ {
		assert.Greater(t, pos[i], pos[i-1])
	}
	assert.LessOrEqual(t, pos[len(pos)-1], 0.8)

	o := DefaultOptions()
	o.NChangepoints = 0
	pos, _, err = placeChangepoints(dates, tl, o)
	require.NoError(t, err)
	assert.Empty(t, pos)
}
