package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"IdxLens/internal/domain/models"
	domrepo "IdxLens/internal/domain/repository"
	pkgkafka "IdxLens/pkg/kafka"
	applogger "IdxLens/pkg/logger"
	"IdxLens/pkg/util"
)

// IngestHandler consumes daily records from Kafka and writes them to the store.
type IngestHandler struct {
	topic   string
	writer  domrepo.RecordWriter
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewIngestHandler(topic string, writer domrepo.RecordWriter, metrics domrepo.Metrics) *IngestHandler {
	return &IngestHandler{topic: topic, writer: writer, metrics: metrics}
}

func (h *IngestHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *IngestHandler) Topic() string { return h.topic }

type wireRecord struct {
	Date     string  `json:"date"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   int64   `json:"volume"`
	Turnover float64 `json:"turnover"`
}

// ingestMessage is either a batch {symbol, records: [...]} or a single record
// with the symbol inline.
type ingestMessage struct {
	Symbol  string       `json:"symbol"`
	Records []wireRecord `json:"records"`
	wireRecord
}

// Handle decodes, validates and stores one message. Any invalid record
// rejects the whole message so a batch is never half written.
func (h *IngestHandler) Handle(ctx context.Context, b []byte) error {
	recs, symbol, err := decodeIngest(b)
	if err != nil {
		h.fail("decode", err)
		return err
	}

	start := time.Now()
	if err := h.writer.StoreBatch(ctx, symbol, recs); err != nil {
		h.fail("store", err)
		return fmt.Errorf("store %d records for %s: %w", len(recs), symbol, err)
	}
	if h.metrics != nil {
		h.metrics.RecordIngested(symbol, len(recs))
	}
	if h.l != nil {
		h.l.Debug("records ingested",
			applogger.String("symbol", symbol),
			applogger.Int("records", len(recs)),
			applogger.Duration("took_ms", time.Since(start)),
		)
	}
	return nil
}

func decodeIngest(b []byte) ([]models.Record, string, error) {
	var m ingestMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, "", models.NewValidationError("message", "malformed json: "+err.Error())
	}
	symbol := strings.TrimSpace(m.Symbol)
	if symbol == "" {
		return nil, "", models.NewValidationError("symbol", "symbol required")
	}
	wire := m.Records
	if len(wire) == 0 {
		if m.Date == "" {
			return nil, "", models.NewValidationError("records", "message carries no records")
		}
		wire = []wireRecord{m.wireRecord}
	}

	recs := make([]models.Record, len(wire))
	for i, w := range wire {
		d, ok := util.ParseDate(w.Date)
		if !ok {
			return nil, "", &models.ValidationError{Index: i, Field: "date", Reason: fmt.Sprintf("unparseable date %q", w.Date)}
		}
		recs[i] = models.Record{
			Date: d, Open: w.Open, High: w.High, Low: w.Low, Close: w.Close,
			Volume: w.Volume, Turnover: w.Turnover,
		}
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Date.Before(recs[j].Date) })
	for i := range recs {
		if err := models.ValidateRecord(i, recs[i]); err != nil {
			return nil, "", err
		}
		if i > 0 && recs[i].Date.Equal(recs[i-1].Date) {
			return nil, "", &models.ValidationError{Index: i, Date: recs[i].Date, Field: "date", Reason: "duplicate date"}
		}
	}
	return recs, symbol, nil
}

func (h *IngestHandler) fail(stage string, err error) {
	if h.metrics != nil {
		h.metrics.RecordError("ingest_"+stage, ErrorKind(err))
	}
	if h.l != nil {
		h.l.Warn("ingest failed", applogger.String("stage", stage), applogger.Error(err))
	}
}

var _ pkgkafka.MessageHandler = (*IngestHandler)(nil)
