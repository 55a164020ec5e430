package repository

import (
	"context"
	"errors"
	"time"

	"IdxLens/internal/domain/models"
)

// RecordStore provides read-only access to daily index records for analytics.
type RecordStore interface {
	// GetRecords returns the records of symbol dated within [from, to], oldest first.
	GetRecords(ctx context.Context, symbol string, from, to time.Time) ([]models.Record, error)
	// Bounds returns the first and last stored dates of symbol.
	Bounds(ctx context.Context, symbol string) (first, last time.Time, err error)
}

// RecordWriter persists daily records, replacing any stored record of the same date.
type RecordWriter interface {
	StoreBatch(ctx context.Context, symbol string, records []models.Record) error
}

// ErrUnknownSymbol is returned by stores that hold nothing for the requested symbol.
var ErrUnknownSymbol = errors.New("unknown symbol")
