package analytics

import (
	"fmt"
	"sort"

	"IdxLens/internal/domain/models"
	domsvc "IdxLens/internal/domain/service"
)

// MovingAverageCalculator computes simple moving averages of closing prices.
type MovingAverageCalculator struct{}

func NewMovingAverageCalculator() *MovingAverageCalculator { return &MovingAverageCalculator{} }

// Calculate returns, for every requested window, the trailing mean of the
// closes from the window-th observation onwards. A window longer than the
// series yields an empty series; when every window is longer the call fails.
func (c *MovingAverageCalculator) Calculate(s models.Series, windows []int) (*models.MovingAverageResult, error) {
	ws, err := normalizeWindows(windows)
	if err != nil {
		return nil, err
	}
	n := s.Len()
	if n < ws[0] {
		return nil, &models.InsufficientDataError{Operation: "moving average", Required: ws[0], Actual: n}
	}

	res := &models.MovingAverageResult{Windows: make(map[int][]models.DatedValue, len(ws))}
	for _, w := range ws {
		res.Windows[w] = rollingMean(s, w)
	}
	return res, nil
}

func normalizeWindows(windows []int) ([]int, error) {
	if len(windows) == 0 {
		return nil, models.NewValidationError("windows", "at least one window is required")
	}
	seen := make(map[int]struct{}, len(windows))
	out := make([]int, 0, len(windows))
	for _, w := range windows {
		if w <= 0 {
			return nil, models.NewValidationError("windows", fmt.Sprintf("window must be a positive integer, got %d", w))
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	sort.Ints(out)
	return out, nil
}

// rollingMean keeps a running sum over the window, like a circular SMA buffer
// replayed over the whole series.
func rollingMean(s models.Series, w int) []models.DatedValue {
	n := s.Len()
	if w > n {
		return []models.DatedValue{}
	}
	out := make([]models.DatedValue, 0, n-w+1)
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += s.At(i).Close
		if i >= w {
			sum -= s.At(i - w).Close
		}
		if i >= w-1 {
			out = append(out, models.DatedValue{Date: s.At(i).Date, Value: sum / float64(w)})
		}
	}
	return out
}

var _ domsvc.MovingAverageCalculator = (*MovingAverageCalculator)(nil)
