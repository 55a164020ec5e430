package features

import (
	"math"
	"sort"
	"time"

	"IdxLens/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear is the annualisation factor for daily index data.
const TradingDaysPerYear = 252

// Closes extracts the closing prices of a series.
func Closes(s models.Series) []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.At(i).Close
	}
	return out
}

// Dates extracts the dates of a series.
func Dates(s models.Series) []time.Time {
	out := make([]time.Time, s.Len())
	for i := range out {
		out[i] = s.At(i).Date
	}
	return out
}

// MeanStdDev returns the mean and the unbiased sample standard deviation.
// A single observation has zero deviation.
func MeanStdDev(x []float64) (mean, std float64) {
	switch len(x) {
	case 0:
		return 0, 0
	case 1:
		return x[0], 0
	}
	return stat.MeanStdDev(x, nil)
}

// SortedCopy returns x sorted ascending without touching x.
func SortedCopy(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	sort.Float64s(out)
	return out
}

// Percentile returns the p-th quantile (p in [0,1]) of an ascending slice using
// linear interpolation between the closest order statistics.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 || n == 1 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	h := p * float64(n-1)
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Median of an ascending slice.
func Median(sorted []float64) float64 { return Percentile(sorted, 0.5) }

// Skewness is the sample skewness, or 0 when it is undefined (n < 3 or a
// constant sample).
func Skewness(x []float64) float64 {
	if len(x) < 3 {
		return 0
	}
	if _, sd := MeanStdDev(x); sd == 0 {
		return 0
	}
	return stat.Skew(x, nil)
}

// ExcessKurtosis is the sample excess kurtosis, or 0 when it is undefined
// (n < 4 or a constant sample).
func ExcessKurtosis(x []float64) float64 {
	if len(x) < 4 {
		return 0
	}
	if _, sd := MeanStdDev(x); sd == 0 {
		return 0
	}
	return stat.ExKurtosis(x, nil)
}

// AddDays moves a calendar date forward by n days.
func AddDays(d time.Time, n int) time.Time { return d.AddDate(0, 0, n) }
