package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

func rec(i int, close float64) Record {
	return Record{
		Date:     day0.AddDate(0, 0, i),
		Open:     close,
		High:     close * 1.01,
		Low:      close * 0.99,
		Close:    close,
		Volume:   1000,
		Turnover: 12.5,
	}
}

func fiveRecords() []Record {
	out := make([]Record, 5)
	for i := range out {
		out[i] = rec(i, 100+float64(i))
	}
	return out
}

func TestNewDataSeries_FiltersRange(t *testing.T) {
	recs := fiveRecords()
	// Times of day are ignored when comparing against the bounds.
	s, err := NewDataSeries(recs, day0.AddDate(0, 0, 1).Add(15*time.Hour), day0.AddDate(0, 0, 3))
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.True(t, s.Start().Equal(day0.AddDate(0, 0, 1)))
	assert.True(t, s.End().Equal(day0.AddDate(0, 0, 3)))
	assert.Equal(t, []float64{101, 102, 103}, s.Closes())
	assert.Equal(t, 101.0, s.First().Close)
	assert.Equal(t, 103.0, s.Last().Close)
}

func TestNewDataSeries_CopiesInput(t *testing.T) {
	recs := fiveRecords()
	s, err := NewDataSeriesAll(recs)
	require.NoError(t, err)

	recs[0].Close = 1
	assert.Equal(t, 100.0, s.At(0).Close)

	out := s.Records()
	out[1].Close = 1
	assert.Equal(t, 101.0, s.At(1).Close)
}

func TestNewDataSeries_Rejects(t *testing.T) {
	cases := map[string]struct {
		mutate func([]Record) []Record
		index  int
		field  string
	}{
		"duplicate date": {
			mutate: func(r []Record) []Record { r[2].Date = r[1].Date; return r },
			index:  2,
			field:  "date",
		},
		"out of order": {
			mutate: func(r []Record) []Record { r[3], r[4] = r[4], r[3]; return r },
			index:  4,
			field:  "date",
		},
		"high below low": {
			mutate: func(r []Record) []Record { r[1].High, r[1].Low = 90, 110; return r },
			index:  1,
			field:  "high",
		},
		"low above close": {
			mutate: func(r []Record) []Record { r[0].Low = 100.5; return r },
			index:  0,
			field:  "low",
		},
		"high below open": {
			mutate: func(r []Record) []Record { r[3].Open = r[3].High + 1; return r },
			index:  3,
			field:  "high",
		},
		"zero close": {
			mutate: func(r []Record) []Record { r[2].Close = 0; return r },
			index:  2,
			field:  "close",
		},
		"negative volume": {
			mutate: func(r []Record) []Record { r[4].Volume = -1; return r },
			index:  4,
			field:  "volume",
		},
		"negative turnover": {
			mutate: func(r []Record) []Record { r[1].Turnover = -3; return r },
			index:  1,
			field:  "turnover",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewDataSeriesAll(tc.mutate(fiveRecords()))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.True(t, errors.Is(err, ErrValidation))
			assert.Equal(t, tc.index, ve.Index)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestNewDataSeries_BadRange(t *testing.T) {
	_, err := NewDataSeries(fiveRecords(), day0.AddDate(0, 0, 3), day0)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewDataSeries(fiveRecords(), day0.AddDate(1, 0, 0), day0.AddDate(2, 0, 0))
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "records", ve.Field)

	_, err = NewDataSeriesAll(nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestErrors_MatchSentinels(t *testing.T) {
	assert.ErrorIs(t, &InsufficientDataError{Operation: "returns", Required: 2, Actual: 1}, ErrInsufficientData)
	assert.ErrorIs(t, &ConvergenceError{Stage: "cholesky"}, ErrConvergence)
	assert.NotErrorIs(t, NewValidationError("x", "y"), ErrTimeout)
	assert.Contains(t, (&InsufficientDataError{Operation: "returns", Required: 2, Actual: 1}).Error(), "need at least 2")
}
