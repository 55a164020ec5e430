package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordError("forecast", "timeout")
	r.RecordError("forecast", "timeout")
	r.RecordRecordsServed("NIFTY 50", 250)
	r.RecordForecastCondition("NIFTY 50", 1e6)
	r.RecordIngested("NIFTY 50", 3)
	r.RecordAnalysis("returns", 0.002)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("forecast", "timeout")))
	assert.Equal(t, 250.0, testutil.ToFloat64(r.recordsServed.WithLabelValues("NIFTY 50")))
	assert.Equal(t, 1e6, testutil.ToFloat64(r.forecastCond.WithLabelValues("NIFTY 50")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.ingestedTotal.WithLabelValues("NIFTY 50")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.analysisSeconds))
}
