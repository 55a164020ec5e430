package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"IdxLens/internal/domain/models"
	"IdxLens/internal/repository"
	icache "IdxLens/internal/service/cache"
	"IdxLens/internal/usecase"
)

type fakeReporter struct {
	calls []usecase.AnalyzeParams
	err   error
}

func (f *fakeReporter) AnalyzeAndPublish(_ context.Context, p usecase.AnalyzeParams) (*models.AnalysisReport, error) {
	f.calls = append(f.calls, p)
	return &models.AnalysisReport{ID: "r", Symbol: p.Symbol, Start: p.From, End: p.To}, f.err
}

func store(t *testing.T) *repository.MemoryRecordStore {
	t.Helper()
	s := repository.NewMemoryRecordStore()
	day0 := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	recs := make([]models.Record, 100)
	for i := range recs {
		recs[i] = models.Record{Date: day0.AddDate(0, 0, i), Open: 10, High: 11, Low: 9, Close: 10, Volume: 1}
	}
	require.NoError(t, s.StoreBatch(context.Background(), "NIFTY 50", recs))
	return s
}

func TestRunNow_LookbackAndLease(t *testing.T) {
	rep := &fakeReporter{}
	locker := icache.NewTTLCache(0)
	s := New(Config{Spec: "0 30 18 * * 1-5", Symbols: []string{"NIFTY 50"}, LookbackDays: 30}, rep, store(t), locker, nil)

	require.NoError(t, s.RunNow(context.Background()))
	require.Len(t, rep.calls, 1)
	p := rep.calls[0]
	assert.Equal(t, "2024-06-08", p.To.Format(models.DateLayout))
	assert.Equal(t, "2024-05-10", p.From.Format(models.DateLayout))

	// A second run for the same trading day holds no lease and is skipped.
	require.NoError(t, s.RunNow(context.Background()))
	assert.Len(t, rep.calls, 1)
}

func TestRunNow_Errors(t *testing.T) {
	rep := &fakeReporter{err: errors.New("broker down")}
	s := New(Config{Spec: "@daily", Symbols: []string{"NIFTY 50", "SENSEX"}, LookbackDays: 30}, rep, store(t), nil, nil)

	err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Contains(t, err.Error(), "SENSEX")
	assert.Len(t, rep.calls, 1)
}

func TestRegister(t *testing.T) {
	s := New(Config{Spec: "not a spec", Symbols: []string{"NIFTY 50"}}, &fakeReporter{}, store(t), nil, nil)
	assert.Error(t, s.Register())

	s = New(Config{Spec: "0 30 18 * * 1-5"}, &fakeReporter{}, store(t), nil, nil)
	assert.Error(t, s.Register())

	s = New(Config{Spec: "0 30 18 * * 1-5", Symbols: []string{"NIFTY 50"}}, &fakeReporter{}, store(t), nil, nil)
	require.NoError(t, s.Register())
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
