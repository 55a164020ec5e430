package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"IdxLens/internal/domain/models"
	domrepo "IdxLens/internal/domain/repository"
)

// MemoryRecordStore keeps records per symbol in date order. It backs the CSV
// source and is safe for concurrent readers and writers.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	symbols map[string][]models.Record
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{symbols: make(map[string][]models.Record)}
}

func symbolKey(symbol string) string { return strings.ToUpper(strings.TrimSpace(symbol)) }

func (s *MemoryRecordStore) GetRecords(ctx context.Context, symbol string, from, to time.Time) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs, ok := s.symbols[symbolKey(symbol)]
	if !ok {
		return nil, domrepo.ErrUnknownSymbol
	}
	from, to = models.TruncateDate(from), models.TruncateDate(to)
	lo := sort.Search(len(recs), func(i int) bool { return !recs[i].Date.Before(from) })
	hi := sort.Search(len(recs), func(i int) bool { return recs[i].Date.After(to) })
	if lo >= hi {
		return []models.Record{}, nil
	}
	out := make([]models.Record, hi-lo)
	copy(out, recs[lo:hi])
	return out, nil
}

func (s *MemoryRecordStore) Bounds(ctx context.Context, symbol string) (time.Time, time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.symbols[symbolKey(symbol)]
	if len(recs) == 0 {
		return time.Time{}, time.Time{}, domrepo.ErrUnknownSymbol
	}
	return recs[0].Date, recs[len(recs)-1].Date, nil
}

// StoreBatch merges records into the symbol, replacing same-date entries.
func (s *MemoryRecordStore) StoreBatch(ctx context.Context, symbol string, records []models.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	key := symbolKey(symbol)
	s.mu.Lock()
	defer s.mu.Unlock()

	byDate := make(map[time.Time]models.Record, len(s.symbols[key])+len(records))
	for _, r := range s.symbols[key] {
		byDate[r.Date] = r
	}
	for _, r := range records {
		r.Date = models.TruncateDate(r.Date)
		byDate[r.Date] = r
	}
	merged := make([]models.Record, 0, len(byDate))
	for _, r := range byDate {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
	s.symbols[key] = merged
	return nil
}

// Symbols lists the loaded symbols.
func (s *MemoryRecordStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.symbols))
	for k := range s.symbols {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var (
	_ domrepo.RecordStore  = (*MemoryRecordStore)(nil)
	_ domrepo.RecordWriter = (*MemoryRecordStore)(nil)
)
