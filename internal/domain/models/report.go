package models

import "time"

// AnalysisReport is a consolidated view of every analysis over one date range.
// A component that failed is nil and its error message is listed in Errors.
// Note: no transport (json/http) concerns beyond field tags.
type AnalysisReport struct {
	ID             string               `json:"id"`
	Symbol         string               `json:"symbol"`
	Start          time.Time            `json:"start"`
	End            time.Time            `json:"end"`
	Records        int                  `json:"records"`
	GeneratedAt    time.Time            `json:"generated_at"`
	MovingAverages *MovingAverageResult `json:"moving_averages,omitempty"`
	Returns        *ReturnsResult       `json:"returns,omitempty"`
	Volume         *VolumeSummary       `json:"volume,omitempty"`
	Forecast       *ForecastResult      `json:"forecast,omitempty"`
	Errors         map[string]string    `json:"errors,omitempty"`
}

// Component names used in AnalysisReport.Errors, metrics and logs.
const (
	ComponentMovingAverages = "moving_averages"
	ComponentReturns        = "returns"
	ComponentVolume         = "volume"
	ComponentForecast       = "forecast"
)

// Failed reports whether any component of the report failed.
func (r *AnalysisReport) Failed() bool { return len(r.Errors) > 0 }
