package service

import (
	"context"

	"IdxLens/internal/domain/models"
)

// MovingAverageCalculator computes trailing means of closes for a set of windows.
type MovingAverageCalculator interface {
	Calculate(s models.Series, windows []int) (*models.MovingAverageResult, error)
}

// ReturnsAnalyzer computes daily percentage returns and their distribution.
type ReturnsAnalyzer interface {
	Analyze(s models.Series) (*models.ReturnsResult, error)
}

// VolumeAnalyzer aggregates volume and turnover.
type VolumeAnalyzer interface {
	Summarize(s models.Series) (*models.VolumeSummary, error)
}

// ForecastParams are the per-request overrides of a forecast. A nil field
// falls back to the engine's configured default; a set field is validated as is.
type ForecastParams struct {
	HorizonDays   *int
	IntervalWidth *float64
	Samples       *int
	Seed          *int64
}

// Forecaster fits a trend + seasonality model and forecasts closes.
type Forecaster interface {
	Forecast(ctx context.Context, s models.Series, p ForecastParams) (*models.ForecastResult, error)
}
