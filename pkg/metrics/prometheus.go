package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analysisSeconds *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	recordsServed   *prometheus.CounterVec
	forecastCond    *prometheus.GaugeVec
	ingestedTotal   *prometheus.CounterVec
}

// New creates a recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder on reg; tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analysisSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "idxlens_analysis_duration_seconds",
				Help:    "Duration of analysis components in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"component"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idxlens_analysis_errors_total",
				Help: "Analysis failures by component and error kind",
			},
			[]string{"component", "kind"},
		),
		recordsServed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idxlens_records_served_total",
				Help: "Daily records loaded for analysis",
			},
			[]string{"symbol"},
		),
		forecastCond: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "idxlens_forecast_condition_number",
				Help: "Condition number of the last forecast fit",
			},
			[]string{"symbol"},
		),
		ingestedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idxlens_records_ingested_total",
				Help: "Daily records written by the ingest consumer",
			},
			[]string{"symbol"},
		),
	}
}

// RecordAnalysis records the latency of one analysis component.
func (r *Recorder) RecordAnalysis(component string, seconds float64) {
	r.analysisSeconds.WithLabelValues(component).Observe(seconds)
}

// RecordError records a failed component; kind is the error class.
func (r *Recorder) RecordError(component, kind string) {
	r.errorsTotal.WithLabelValues(component, kind).Inc()
}

func (r *Recorder) RecordRecordsServed(symbol string, n int) {
	r.recordsServed.WithLabelValues(symbol).Add(float64(n))
}

func (r *Recorder) RecordForecastCondition(symbol string, cond float64) {
	r.forecastCond.WithLabelValues(symbol).Set(cond)
}

func (r *Recorder) RecordIngested(symbol string, n int) {
	r.ingestedTotal.WithLabelValues(symbol).Add(float64(n))
}
