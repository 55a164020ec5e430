package models

import (
	"math"
	"time"
)

// DateLayout is the calendar-date layout used across the API and logs.
const DateLayout = "2006-01-02"

// Record is one trading day of an index.
type Record struct {
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	Volume   int64     `json:"volume"`
	Turnover float64   `json:"turnover"`
}

// Series is the read-only view the analyzers work on.
type Series interface {
	Len() int
	At(i int) Record
}

// DataSeries is an immutable, chronologically ordered run of records.
type DataSeries struct {
	records []Record
}

// TruncateDate normalises t to midnight UTC of its calendar date.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NewDataSeries keeps the records dated within [start, end] and validates them.
// The input slice is copied.
func NewDataSeries(records []Record, start, end time.Time) (*DataSeries, error) {
	start, end = TruncateDate(start), TruncateDate(end)
	if start.After(end) {
		return nil, NewValidationError("range", "start "+start.Format(DateLayout)+" is after end "+end.Format(DateLayout))
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		r.Date = TruncateDate(r.Date)
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return newDataSeries(out)
}

// NewDataSeriesAll validates and wraps the full record sequence.
func NewDataSeriesAll(records []Record) (*DataSeries, error) {
	out := make([]Record, len(records))
	for i, r := range records {
		r.Date = TruncateDate(r.Date)
		out[i] = r
	}
	return newDataSeries(out)
}

func newDataSeries(records []Record) (*DataSeries, error) {
	if len(records) == 0 {
		return nil, NewValidationError("records", "no records in the selected range")
	}
	for i := range records {
		if err := ValidateRecord(i, records[i]); err != nil {
			return nil, err
		}
		if i > 0 && !records[i].Date.After(records[i-1].Date) {
			return nil, &ValidationError{Index: i, Date: records[i].Date, Field: "date",
				Reason: "dates must be strictly increasing, previous is " + records[i-1].Date.Format(DateLayout)}
		}
	}
	return &DataSeries{records: records}, nil
}

// ValidateRecord checks the OHLC ordering and sign invariants of a single record.
func ValidateRecord(i int, r Record) error {
	fail := func(field, reason string) error {
		return &ValidationError{Index: i, Date: r.Date, Field: field, Reason: reason}
	}
	if r.Date.IsZero() {
		return &ValidationError{Index: i, Field: "date", Reason: "missing date"}
	}
	prices := [...]struct {
		name string
		v    float64
	}{{"open", r.Open}, {"high", r.High}, {"low", r.Low}, {"close", r.Close}}
	for _, p := range prices {
		if math.IsNaN(p.v) || math.IsInf(p.v, 0) || p.v <= 0 {
			return fail(p.name, "price must be a positive number")
		}
	}
	if r.High < r.Low {
		return fail("high", "high is below low")
	}
	if r.Low > math.Min(r.Open, r.Close) {
		return fail("low", "low is above open or close")
	}
	if r.High < math.Max(r.Open, r.Close) {
		return fail("high", "high is below open or close")
	}
	if r.Volume < 0 {
		return fail("volume", "volume must not be negative")
	}
	if math.IsNaN(r.Turnover) || math.IsInf(r.Turnover, 0) || r.Turnover < 0 {
		return fail("turnover", "turnover must be a non-negative number")
	}
	return nil
}

func (s *DataSeries) Len() int { return len(s.records) }

// At returns a copy of the i-th record.
func (s *DataSeries) At(i int) Record { return s.records[i] }

func (s *DataSeries) First() Record { return s.records[0] }

func (s *DataSeries) Last() Record { return s.records[len(s.records)-1] }

func (s *DataSeries) Start() time.Time { return s.records[0].Date }

func (s *DataSeries) End() time.Time { return s.records[len(s.records)-1].Date }

// Records returns a copy of the underlying records.
func (s *DataSeries) Records() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *DataSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.records))
	for i, r := range s.records {
		out[i] = r.Date
	}
	return out
}

func (s *DataSeries) Closes() []float64 {
	out := make([]float64, len(s.records))
	for i, r := range s.records {
		out[i] = r.Close
	}
	return out
}

var _ Series = (*DataSeries)(nil)
