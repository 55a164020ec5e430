package repository

import (
	"context"

	"IdxLens/internal/domain/models"
)

// ReportPublisher ships completed analysis reports downstream.
type ReportPublisher interface {
	PublishReport(ctx context.Context, r *models.AnalysisReport) error
	Close() error
}

type Storage interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordAnalysis(component string, seconds float64)
	RecordError(component, kind string)
	RecordRecordsServed(symbol string, n int)
	RecordForecastCondition(symbol string, cond float64)
	RecordIngested(symbol string, n int)
}
