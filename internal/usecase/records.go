package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"IdxLens/internal/domain/models"
	domrepo "IdxLens/internal/domain/repository"
)

const (
	defaultRecordLimit = 10000
	maxRecordLimit     = 50000
)

// RecordsUseCase provides business logic for retrieving daily records.
type RecordsUseCase struct {
	store   domrepo.RecordStore
	metrics domrepo.Metrics
}

func NewRecordsUseCase(store domrepo.RecordStore, metrics domrepo.Metrics) *RecordsUseCase {
	return &RecordsUseCase{store: store, metrics: metrics}
}

// RangeParams select a symbol and an inclusive date range. A zero bound
// defaults to the first or last stored record.
type RangeParams struct {
	Symbol string
	From   time.Time
	To     time.Time
}

type GetRecordsParams struct {
	RangeParams
	Limit int
}

type GetRecordsResult struct {
	Symbol  string          `json:"symbol"`
	From    time.Time       `json:"from"`
	To      time.Time       `json:"to"`
	Count   int             `json:"count"`
	Records []models.Record `json:"records"`
}

func (uc *RecordsUseCase) GetRecords(ctx context.Context, p GetRecordsParams) (*GetRecordsResult, error) {
	if p.Limit <= 0 {
		p.Limit = defaultRecordLimit
	}
	if p.Limit > maxRecordLimit {
		p.Limit = maxRecordLimit
	}
	symbol, from, to, err := resolveRange(ctx, uc.store, p.RangeParams)
	if err != nil {
		return nil, err
	}

	recs, err := uc.store.GetRecords(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("get records: %w", err)
	}
	if len(recs) > p.Limit {
		recs = recs[:p.Limit]
	}
	if uc.metrics != nil {
		uc.metrics.RecordRecordsServed(symbol, len(recs))
	}
	return &GetRecordsResult{Symbol: symbol, From: from, To: to, Count: len(recs), Records: recs}, nil
}

// resolveRange validates p and fills missing bounds from the store.
func resolveRange(ctx context.Context, store domrepo.RecordStore, p RangeParams) (string, time.Time, time.Time, error) {
	symbol := strings.TrimSpace(p.Symbol)
	if symbol == "" {
		return "", time.Time{}, time.Time{}, models.NewValidationError("symbol", "symbol required")
	}
	from, to := p.From, p.To
	if from.IsZero() || to.IsZero() {
		first, last, err := store.Bounds(ctx, symbol)
		if err != nil {
			return "", time.Time{}, time.Time{}, fmt.Errorf("bounds of %s: %w", symbol, err)
		}
		from, to = domrepo.ResolveRange(from, to, first, last)
	} else {
		from, to = models.TruncateDate(from), models.TruncateDate(to)
	}
	if from.After(to) {
		return "", time.Time{}, time.Time{}, models.NewValidationError("range",
			"start "+from.Format(models.DateLayout)+" is after end "+to.Format(models.DateLayout))
	}
	return symbol, from, to, nil
}

// loadSeries reads the validated series for p.
func loadSeries(ctx context.Context, store domrepo.RecordStore, p RangeParams) (string, *models.DataSeries, error) {
	symbol, from, to, err := resolveRange(ctx, store, p)
	if err != nil {
		return "", nil, err
	}
	recs, err := store.GetRecords(ctx, symbol, from, to)
	if err != nil {
		return "", nil, fmt.Errorf("get records: %w", err)
	}
	s, err := models.NewDataSeries(recs, from, to)
	if err != nil {
		return "", nil, err
	}
	return symbol, s, nil
}
