package analytics

import (
	"math"

	"IdxLens/internal/domain/models"
	domsvc "IdxLens/internal/domain/service"
	"IdxLens/internal/services/features"
)

// ReturnsAnalyzer computes daily percentage returns and their distribution.
type ReturnsAnalyzer struct{}

func NewReturnsAnalyzer() *ReturnsAnalyzer { return &ReturnsAnalyzer{} }

// Analyze returns (close[i]-close[i-1])/close[i-1]*100 for every adjacent pair,
// dated at the later record, with summary statistics.
func (a *ReturnsAnalyzer) Analyze(s models.Series) (*models.ReturnsResult, error) {
	n := s.Len()
	if n < 2 {
		return nil, &models.InsufficientDataError{Operation: "returns", Required: 2, Actual: n}
	}

	rets := make([]models.DatedValue, 0, n-1)
	values := make([]float64, 0, n-1)
	prev := s.At(0)
	for i := 1; i < n; i++ {
		cur := s.At(i)
		if prev.Close == 0 {
			return nil, &models.ValidationError{Index: i - 1, Date: prev.Date, Field: "close",
				Reason: "zero close makes the next return undefined"}
		}
		r := (cur.Close - prev.Close) / prev.Close * 100
		rets = append(rets, models.DatedValue{Date: cur.Date, Value: r})
		values = append(values, r)
		prev = cur
	}

	stats := summarizeReturns(values)
	first, last := s.At(0).Close, s.At(n-1).Close
	stats.TotalReturn = (last/first - 1) * 100
	return &models.ReturnsResult{Returns: rets, Stats: stats}, nil
}

func summarizeReturns(values []float64) models.ReturnStats {
	mean, sd := features.MeanStdDev(values)
	sorted := features.SortedCopy(values)
	st := models.ReturnStats{
		Count:  len(values),
		Mean:   mean,
		StdDev: sd,
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Percentiles: models.Percentiles{
			P5:  features.Percentile(sorted, 0.05),
			P25: features.Percentile(sorted, 0.25),
			P50: features.Percentile(sorted, 0.50),
			P75: features.Percentile(sorted, 0.75),
			P95: features.Percentile(sorted, 0.95),
		},
		Skewness:             features.Skewness(values),
		ExcessKurtosis:       features.ExcessKurtosis(values),
		AnnualizedVolatility: sd * math.Sqrt(features.TradingDaysPerYear),
	}
	for _, v := range values {
		switch {
		case v > 0:
			st.PositiveDays++
		case v < 0:
			st.NegativeDays++
		}
	}
	return st
}

var _ domsvc.ReturnsAnalyzer = (*ReturnsAnalyzer)(nil)
