package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 1.0, Percentile(sorted, 0), 1e-12)
	assert.InDelta(t, 1.4, Percentile(sorted, 0.1), 1e-12)
	assert.InDelta(t, 2.0, Percentile(sorted, 0.25), 1e-12)
	assert.InDelta(t, 3.0, Median(sorted), 1e-12)
	assert.InDelta(t, 4.8, Percentile(sorted, 0.95), 1e-12)
	assert.InDelta(t, 5.0, Percentile(sorted, 1), 1e-12)
	assert.Zero(t, Percentile(nil, 0.5))
	assert.Equal(t, 7.0, Percentile([]float64{7}, 0.3))
}

func TestMeanStdDev(t *testing.T) {
	m, sd := MeanStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, m, 1e-12)
	assert.InDelta(t, math.Sqrt(32.0/7), sd, 1e-12)

	m, sd = MeanStdDev([]float64{3})
	assert.Equal(t, 3.0, m)
	assert.Zero(t, sd)
}

func TestMoments_Undefined(t *testing.T) {
	assert.Zero(t, Skewness([]float64{1, 2}))
	assert.Zero(t, Skewness([]float64{4, 4, 4, 4}))
	assert.Zero(t, ExcessKurtosis([]float64{1, 2, 3}))
	assert.Zero(t, ExcessKurtosis([]float64{2, 2, 2, 2, 2}))

	assert.Greater(t, Skewness([]float64{1, 1, 1, 1, 10}), 0.0)
}

func TestSortedCopy(t *testing.T) {
	in := []float64{3, 1, 2}
	out := SortedCopy(in)
	assert.Equal(t, []float64{1, 2, 3}, out)
	assert.Equal(t, []float64{3, 1, 2}, in)
}
