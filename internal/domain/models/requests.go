package models

// Requests for analytics HTTP endpoints. Defined in domain for consistency and reuse.
// Dates are calendar dates (2006-01-02); empty means the store's own bounds.
// Optional numeric knobs are kept as strings so that an explicit zero is not
// overwritten by defaults and still reaches the engine's own validation.

type RangeRequest struct {
	Symbol string `query:"symbol" json:"symbol" default:"NIFTY 50" validate:"required,max=64"`
	Start  string `query:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	End    string `query:"end" json:"end" validate:"omitempty,datetime=2006-01-02"`
}

type RecordsRequest struct {
	RangeRequest
	Limit int `query:"limit" json:"limit" default:"10000" validate:"gte=1,lte=50000"`
}

type MovingAverageRequest struct {
	RangeRequest
	Windows string `query:"windows" json:"windows" validate:"omitempty,max=128"`
}

type ForecastRequest struct {
	RangeRequest
	Horizon  string `query:"horizon" json:"horizon" validate:"omitempty,numeric"`
	Interval string `query:"interval" json:"interval" validate:"omitempty,numeric"`
	Seed     string `query:"seed" json:"seed" validate:"omitempty,numeric"`
	Samples  string `query:"samples" json:"samples" validate:"omitempty,numeric"`
}

type AnalysisRequest struct {
	ForecastRequest
	Windows string `query:"windows" json:"windows" validate:"omitempty,max=128"`
}
