package models

import (
	"sort"
	"time"
)

// DatedValue is a single observation of a derived series.
type DatedValue struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// MovingAverageResult maps each window size to its trailing-mean series. Dates
// before a window is satisfied have no entry.
type MovingAverageResult struct {
	Windows map[int][]DatedValue `json:"windows"`
}

// Window returns the series for w, or nil when w was not requested.
func (r *MovingAverageResult) Window(w int) []DatedValue { return r.Windows[w] }

// Sizes lists the requested windows in ascending order.
func (r *MovingAverageResult) Sizes() []int {
	out := make([]int, 0, len(r.Windows))
	for w := range r.Windows {
		out = append(out, w)
	}
	sort.Ints(out)
	return out
}

// Percentiles of a distribution, linearly interpolated between order statistics.
type Percentiles struct {
	P5  float64 `json:"p5"`
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P95 float64 `json:"p95"`
}

// ReturnStats summarises the daily-return distribution (values in percent).
type ReturnStats struct {
	Count                int         `json:"count"`
	Mean                 float64     `json:"mean"`
	StdDev               float64     `json:"std_dev"`
	Min                  float64     `json:"min"`
	Max                  float64     `json:"max"`
	Percentiles          Percentiles `json:"percentiles"`
	Skewness             float64     `json:"skewness"`
	ExcessKurtosis       float64     `json:"excess_kurtosis"`
	TotalReturn          float64     `json:"total_return"`
	AnnualizedVolatility float64     `json:"annualized_volatility"`
	PositiveDays         int         `json:"positive_days"`
	NegativeDays         int         `json:"negative_days"`
}

// ReturnsResult holds len(series)-1 daily percentage returns and their stats.
type ReturnsResult struct {
	Returns []DatedValue `json:"returns"`
	Stats   ReturnStats  `json:"stats"`
}

// RatioStats summarises the per-record turnover/volume ratio.
type RatioStats struct {
	Samples int     `json:"samples"`
	Mean    float64 `json:"mean"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	StdDev  float64 `json:"std_dev"`
}

// VolumeSummary aggregates volume and turnover over a series.
type VolumeSummary struct {
	Days           int          `json:"days"`
	MeanVolume     float64      `json:"mean_volume"`
	MedianVolume   float64      `json:"median_volume"`
	MaxVolume      int64        `json:"max_volume"`
	MinVolume      int64        `json:"min_volume"`
	TotalVolume    int64        `json:"total_volume"`
	MeanTurnover   float64      `json:"mean_turnover"`
	TotalTurnover  float64      `json:"total_turnover"`
	ZeroVolumeDays int          `json:"zero_volume_days"`
	Ratio          RatioStats   `json:"turnover_per_volume"`
	Ratios         []DatedValue `json:"ratios"`
}

// ForecastPoint is one future day of a forecast.
type ForecastPoint struct {
	Date     time.Time `json:"date"`
	Forecast float64   `json:"forecast"`
	Lower    float64   `json:"lower"`
	Upper    float64   `json:"upper"`
}

// ComponentPoint is the decomposition of the fitted model at one date.
type ComponentPoint struct {
	Date       time.Time          `json:"date"`
	Trend      float64            `json:"trend"`
	Seasonal   float64            `json:"seasonal"`
	Terms      map[string]float64 `json:"terms,omitempty"`
	Forecasted bool               `json:"forecasted"`
}

// Changepoint is a fitted change in the trend slope.
type Changepoint struct {
	Date  time.Time `json:"date"`
	Delta float64   `json:"delta"`
}

// FitDiagnostics describes how the forecast model was fitted.
type FitDiagnostics struct {
	RMSE            float64  `json:"rmse"`
	ConditionNumber float64  `json:"condition_number"`
	Seed            int64    `json:"seed"`
	Samples         int      `json:"samples"`
	IntervalWidth   float64  `json:"interval_width"`
	Seasonalities   []string `json:"seasonalities"`
	HistoryPoints   int      `json:"history_points"`
}

// ForecastResult is the output of a forecast fit.
type ForecastResult struct {
	HorizonDays  int              `json:"horizon_days"`
	Points       []ForecastPoint  `json:"points"`
	Components   []ComponentPoint `json:"components"`
	Changepoints []Changepoint    `json:"changepoints"`
	Diagnostics  FitDiagnostics   `json:"diagnostics"`
}
