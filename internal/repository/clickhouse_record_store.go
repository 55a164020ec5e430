package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"IdxLens/internal/domain/models"
	domrepo "IdxLens/internal/domain/repository"
	pkgch "IdxLens/pkg/clickhouse"
	applogger "IdxLens/pkg/logger"
)

// insertChunk bounds the rows of one multi-row INSERT.
const insertChunk = 2000

// CHRecordStore implements RecordStore and RecordWriter backed by ClickHouse.
type CHRecordStore struct {
	db       *sql.DB
	database string
	table    string
	l        *applogger.Logger
}

func NewCHRecordStore(ch *pkgch.Client, database string) *CHRecordStore {
	return &CHRecordStore{db: ch.DB(), database: database, table: pkgch.IndexDailyTable(database)}
}

// SetLogger injects a structured logger.
func (s *CHRecordStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the table if it does not exist.
func (s *CHRecordStore) Init(ctx context.Context) error {
	for _, stmt := range pkgch.IndexDailySchema(s.database) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *CHRecordStore) Health(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close is a no-op; the pool belongs to the ClickHouse client.
func (s *CHRecordStore) Close() error { return nil }

func (s *CHRecordStore) GetRecords(ctx context.Context, symbol string, from, to time.Time) ([]models.Record, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT date, open, high, low, close, volume, turnover
        FROM %s FINAL
        WHERE symbol = ? AND date >= ? AND date <= ?
        ORDER BY date ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, models.TruncateDate(from), models.TruncateDate(to))
	if err != nil {
		s.logErr("clickhouse get_records query error", symbol, err)
		return nil, fmt.Errorf("get records: %w", err)
	}
	defer rows.Close()

	out := make([]models.Record, 0, 512)
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.Date, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume, &r.Turnover); err != nil {
			s.logErr("clickhouse get_records scan error", symbol, err)
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Date = models.TruncateDate(r.Date)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		s.logErr("clickhouse get_records rows error", symbol, err)
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse get_records ok",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHRecordStore) Bounds(ctx context.Context, symbol string) (time.Time, time.Time, error) {
	q := fmt.Sprintf(`SELECT min(date), max(date), count() FROM %s FINAL WHERE symbol = ?`, s.table)
	var first, last time.Time
	var n uint64
	if err := s.db.QueryRowContext(ctx, q, symbol).Scan(&first, &last, &n); err != nil {
		s.logErr("clickhouse bounds query error", symbol, err)
		return time.Time{}, time.Time{}, fmt.Errorf("bounds: %w", err)
	}
	if n == 0 {
		return time.Time{}, time.Time{}, domrepo.ErrUnknownSymbol
	}
	return models.TruncateDate(first), models.TruncateDate(last), nil
}

// StoreBatch inserts records in multi-row chunks. Rows for an existing date
// replace the older ones at merge time.
func (s *CHRecordStore) StoreBatch(ctx context.Context, symbol string, records []models.Record) error {
	for start := 0; start < len(records); start += insertChunk {
		end := min(start+insertChunk, len(records))
		q, args := insertStatement(s.table, symbol, records[start:end])
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.logErr("clickhouse store_batch error", symbol, err)
			return fmt.Errorf("store batch: %w", err)
		}
	}
	return nil
}

func insertStatement(table, symbol string, recs []models.Record) (string, []interface{}) {
	values := make([]string, len(recs))
	args := make([]interface{}, 0, len(recs)*8)
	for i, r := range recs {
		values[i] = "(?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, symbol, models.TruncateDate(r.Date), r.Open, r.High, r.Low, r.Close, r.Volume, r.Turnover)
	}
	q := fmt.Sprintf("INSERT INTO %s (symbol, date, open, high, low, close, volume, turnover) VALUES %s",
		table, strings.Join(values, ","))
	return q, args
}

func (s *CHRecordStore) logErr(msg, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(msg,
		applogger.String("table", s.table),
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}

var (
	_ domrepo.RecordStore  = (*CHRecordStore)(nil)
	_ domrepo.RecordWriter = (*CHRecordStore)(nil)
	_ domrepo.Storage      = (*CHRecordStore)(nil)
)
