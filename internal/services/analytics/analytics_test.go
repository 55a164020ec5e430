package analytics

import (
	"math"
	"testing"
	"time"

	"IdxLens/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

func record(i int, close float64, volume int64, turnover float64) models.Record {
	return models.Record{
		Date:     day0.AddDate(0, 0, i),
		Open:     close,
		High:     close * 1.01,
		Low:      close * 0.99,
		Close:    close,
		Volume:   volume,
		Turnover: turnover,
	}
}

func seriesOf(t *testing.T, closes ...float64) *models.DataSeries {
	t.Helper()
	recs := make([]models.Record, len(closes))
	for i, c := range closes {
		recs[i] = record(i, c, 1000, 10)
	}
	s, err := models.NewDataSeriesAll(recs)
	require.NoError(t, err)
	return s
}

// rawSeries skips DataSeries validation to reach the analyzers' own guards.
type rawSeries []models.Record

func (r rawSeries) Len() int               { return len(r) }
func (r rawSeries) At(i int) models.Record { return r[i] }

func TestMovingAverage_TrailingMean(t *testing.T) {
	s := seriesOf(t, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	res, err := NewMovingAverageCalculator().Calculate(s, []int{3, 1})
	require.NoError(t, err)

	ma3 := res.Window(3)
	require.Len(t, ma3, 8)
	assert.True(t, ma3[0].Date.Equal(day0.AddDate(0, 0, 2)))
	assert.InDelta(t, 2.0, ma3[0].Value, 1e-12)
	assert.InDelta(t, 9.0, ma3[7].Value, 1e-12)

	ma1 := res.Window(1)
	require.Len(t, ma1, 10)
	for i, v := range ma1 {
		assert.InDelta(t, s.At(i).Close, v.Value, 1e-12)
	}
}

func TestMovingAverage_Windows(t *testing.T) {
	s := seriesOf(t, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	calc := NewMovingAverageCalculator()

	res, err := calc.Calculate(s, []int{5, 3, 5, 20})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 5, 20}, res.Sizes())
	assert.NotNil(t, res.Window(20))
	assert.Empty(t, res.Window(20))

	_, err = calc.Calculate(s, []int{3, 0})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = calc.Calculate(s, nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = calc.Calculate(s, []int{50, 20})
	var ide *models.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 20, ide.Required)
	assert.Equal(t, 10, ide.Actual)
}

func TestReturns_Stats(t *testing.T) {
	s := seriesOf(t, 100, 110, 99)
	res, err := NewReturnsAnalyzer().Analyze(s)
	require.NoError(t, err)

	require.Len(t, res.Returns, 2)
	assert.True(t, res.Returns[0].Date.Equal(day0.AddDate(0, 0, 1)))
	assert.InDelta(t, 10.0, res.Returns[0].Value, 1e-9)
	assert.InDelta(t, -10.0, res.Returns[1].Value, 1e-9)

	st := res.Stats
	assert.Equal(t, 2, st.Count)
	assert.InDelta(t, 0.0, st.Mean, 1e-9)
	assert.InDelta(t, math.Sqrt(200), st.StdDev, 1e-9)
	assert.InDelta(t, -10.0, st.Min, 1e-9)
	assert.InDelta(t, 10.0, st.Max, 1e-9)
	assert.InDelta(t, 0.0, st.Percentiles.P50, 1e-9)
	assert.InDelta(t, -9.0, st.Percentiles.P5, 1e-9)
	assert.InDelta(t, 9.0, st.Percentiles.P95, 1e-9)
	assert.InDelta(t, -1.0, st.TotalReturn, 1e-9)
	assert.InDelta(t, math.Sqrt(200)*math.Sqrt(252), st.AnnualizedVolatility, 1e-9)
	assert.Equal(t, 1, st.PositiveDays)
	assert.Equal(t, 1, st.NegativeDays)
	assert.Zero(t, st.Skewness)
	assert.Zero(t, st.ExcessKurtosis)
}

func TestReturns_Guards(t *testing.T) {
	a := NewReturnsAnalyzer()

	_, err := a.Analyze(seriesOf(t, 100))
	var ide *models.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 2, ide.Required)

	one, err := a.Analyze(seriesOf(t, 100, 105))
	require.NoError(t, err)
	assert.Zero(t, one.Stats.StdDev)

	zero := rawSeries{record(0, 100, 1, 1), record(1, 0, 1, 1), record(2, 100, 1, 1)}
	_, err = a.Analyze(zero)
	var ve *models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, 1, ve.Index)
	assert.True(t, ve.Date.Equal(day0.AddDate(0, 0, 1)))
}

func TestVolume_Summary(t *testing.T) {
	s, err := models.NewDataSeriesAll([]models.Record{
		record(0, 100, 100, 10),
		record(1, 101, 0, 5),
		record(2, 102, 300, 60),
	})
	require.NoError(t, err)

	v, err := NewVolumeAnalyzer().Summarize(s)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Days)
	assert.Equal(t, int64(400), v.TotalVolume)
	assert.InDelta(t, 400.0/3, v.MeanVolume, 1e-9)
	assert.InDelta(t, 100.0, v.MedianVolume, 1e-9)
	assert.Equal(t, int64(300), v.MaxVolume)
	assert.Equal(t, int64(0), v.MinVolume)
	assert.InDelta(t, 75.0, v.TotalTurnover, 1e-9)
	assert.InDelta(t, 25.0, v.MeanTurnover, 1e-9)
	assert.Equal(t, 1, v.ZeroVolumeDays)

	require.Len(t, v.Ratios, 2)
	assert.True(t, v.Ratios[1].Date.Equal(day0.AddDate(0, 0, 2)))
	assert.Equal(t, 2, v.Ratio.Samples)
	assert.InDelta(t, 0.15, v.Ratio.Mean, 1e-12)
	assert.InDelta(t, 0.15, v.Ratio.Median, 1e-12)
	assert.InDelta(t, 0.1, v.Ratio.Min, 1e-12)
	assert.InDelta(t, 0.2, v.Ratio.Max, 1e-12)
}

func TestVolume_Empty(t *testing.T) {
	_, err := NewVolumeAnalyzer().Summarize(rawSeries{})
	var ide *models.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 1, ide.Required)
}
