package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"IdxLens/internal/domain/models"
	applogger "IdxLens/pkg/logger"
	"IdxLens/pkg/util"
)

// Column names of the NSE index export; headers are matched after trimming.
const (
	colDate     = "Date"
	colOpen     = "Open"
	colHigh     = "High"
	colLow      = "Low"
	colClose    = "Close"
	colVolume   = "Shares Traded"
	colTurnover = "Turnover (₹ Cr)"
)

var requiredColumns = []string{colDate, colOpen, colHigh, colLow, colClose, colVolume, colTurnover}

// ParseIndexCSV reads an NSE style daily index export. Rows are returned in
// date order whatever their order in the file. Every record is validated.
func ParseIndexCSV(r io.Reader) ([]models.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, models.NewValidationError("csv", "file is empty")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		idx[h] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, models.NewValidationError("csv", fmt.Sprintf("missing column %q", c))
		}
	}

	out := make([]models.Record, 0, 256)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if blankRow(row) {
			continue
		}
		rec, err := parseRow(row, idx)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	for i := range out {
		if err := models.ValidateRecord(i, out[i]); err != nil {
			return nil, err
		}
		if i > 0 && out[i].Date.Equal(out[i-1].Date) {
			return nil, &models.ValidationError{Index: i, Date: out[i].Date, Field: "date", Reason: "duplicate date"}
		}
	}
	return out, nil
}

func blankRow(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRow(row []string, idx map[string]int) (models.Record, error) {
	field := func(name string) string {
		i := idx[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}
	var rec models.Record
	d, ok := util.ParseDate(field(colDate))
	if !ok {
		return rec, models.NewValidationError("date", fmt.Sprintf("unparseable date %q", field(colDate)))
	}
	rec.Date = d

	nums := []struct {
		col string
		dst *float64
	}{
		{colOpen, &rec.Open}, {colHigh, &rec.High}, {colLow, &rec.Low}, {colClose, &rec.Close}, {colTurnover, &rec.Turnover},
	}
	for _, n := range nums {
		v, err := util.ParseNumber(field(n.col))
		if err != nil {
			return rec, models.NewValidationError(strings.ToLower(n.col), fmt.Sprintf("invalid number %q", field(n.col)))
		}
		*n.dst = v
	}
	vol, err := util.ParseNumber(field(colVolume))
	if err != nil || vol != math.Trunc(vol) {
		return rec, models.NewValidationError("volume", fmt.Sprintf("invalid share count %q", field(colVolume)))
	}
	rec.Volume = int64(vol)
	return rec, nil
}

// LoadCSVFile parses path and stores its records under symbol in a new
// in-memory store.
func LoadCSVFile(ctx context.Context, path, symbol string, l *applogger.Logger) (*MemoryRecordStore, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	recs, err := ParseIndexCSV(f)
	if err != nil {
		if l != nil {
			l.Error("csv load failed", applogger.String("path", path), applogger.Error(err))
		}
		return nil, err
	}
	store := NewMemoryRecordStore()
	if err := store.StoreBatch(ctx, symbol, recs); err != nil {
		return nil, err
	}
	if l != nil && len(recs) > 0 {
		l.Info("csv loaded",
			applogger.String("path", path),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(recs)),
			applogger.Date("first", recs[0].Date),
			applogger.Date("last", recs[len(recs)-1].Date),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return store, nil
}
