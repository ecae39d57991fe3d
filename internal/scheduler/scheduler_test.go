package scheduler

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundRadar/internal/collector"
	"FundRadar/internal/metrics"
	"FundRadar/internal/model"
	"FundRadar/internal/pipeline"
	"FundRadar/internal/recorder"
	"FundRadar/internal/sink"
)

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

type harness struct {
	sched   *Scheduler
	out     *bytes.Buffer
	sender  *fakeSender
	rec     *recorder.SQLiteRecorder
	metrics *metrics.Registry
}

func newHarness(t *testing.T, fetcher collector.Fetcher) *harness {
	t.Helper()
	rec, err := recorder.NewSQLiteRecorder(filepath.Join(t.TempDir(), "runs.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { rec.Close() })

	h := &harness{out: &bytes.Buffer{}, sender: &fakeSender{}, rec: rec, metrics: metrics.NewRegistry()}
	h.sched = NewScheduler(context.Background(), Deps{
		Fetcher:  fetcher,
		Sink:     sink.NewCachingSink(&sink.WriterSink{W: h.out}, ""),
		Clock:    pipeline.FixedClock(time.Date(2026, 3, 6, 16, 30, 0, 0, time.UTC)),
		Options:  pipeline.Options{LookbackDays: 30, Location: time.UTC, Workers: 2},
		Recorder: rec,
		Notifier: h.sender,
		Metrics:  h.metrics,
		TopN:     3,
	}, zerolog.Nop())
	return h
}

func TestRunNow_Success(t *testing.T) {
	h := newHarness(t, &collector.MockFetcher{Codes: []string{"MCK", "MDB", "MGL"}})

	outcome, err := h.sched.RunNow()
	require.NoError(t, err)
	require.NotNil(t, outcome.Snapshot)
	assert.Equal(t, 3, outcome.Snapshot.RecordCount)
	assert.Contains(t, h.out.String(), `"fon_sayisi": 3`)

	runs, err := h.rec.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recorder.StatusOK, runs[0].Status)
	assert.Equal(t, "mock", runs[0].Source)
	assert.Equal(t, 3, runs[0].Records)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RunsTotal.WithLabelValues(recorder.StatusOK)))
	assert.Equal(t, 3.0, testutil.ToFloat64(h.metrics.RecordsWritten))

	msgs := h.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "2026-03-06")
	assert.Contains(t, msgs[0], "Fon sayısı: 3")
}

func TestRunNow_ProviderFailure(t *testing.T) {
	h := newHarness(t, &collector.MockFetcher{Err: errors.New("tefas down")})

	_, err := h.sched.RunNow()
	require.Error(t, err)
	assert.Empty(t, h.out.String())

	runs, err := h.rec.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recorder.StatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "tefas down")

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RunsTotal.WithLabelValues(recorder.StatusFailed)))
	msgs := h.sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "tefas down")
}

func TestRunNow_EmptyDatasetIsQuiet(t *testing.T) {
	h := newHarness(t, &collector.MockFetcher{Rows: []model.RawObservation{}})

	_, err := h.sched.RunNow()
	assert.ErrorIs(t, err, pipeline.ErrEmptyDataset)
	assert.Empty(t, h.out.String())
	assert.Empty(t, h.sender.messages())

	runs, err := h.rec.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recorder.StatusEmpty, runs[0].Status)
}

func TestRunNow_RejectsOverlap(t *testing.T) {
	h := newHarness(t, &collector.MockFetcher{})
	h.sched.running.Lock()
	defer h.sched.running.Unlock()

	_, err := h.sched.RunNow()
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestRunAsync_RejectsOverlap(t *testing.T) {
	h := newHarness(t, &collector.MockFetcher{Codes: []string{"MCK", "MDB"}})

	h.sched.running.Lock()
	assert.ErrorIs(t, h.sched.RunAsync(), ErrRunInProgress)
	assert.Equal(t, "Bir çalışma zaten sürüyor.", h.sched.HandleCommand("/calistir"))
	h.sched.running.Unlock()

	require.NoError(t, h.sched.RunAsync())
	// The background run holds the guard until it has recorded itself.
	h.sched.running.Lock()
	h.sched.running.Unlock()

	runs, err := h.rec.RecentRuns(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, recorder.StatusOK, runs[0].Status)
}

func TestHandleCommand(t *testing.T) {
	h := newHarness(t, &collector.MockFetcher{Codes: []string{"MCK", "MDB"}})

	assert.Equal(t, "Henüz yayınlanmış bir özet yok.", h.sched.HandleCommand("/ozet"))

	_, err := h.sched.RunNow()
	require.NoError(t, err)

	assert.Contains(t, h.sched.HandleCommand("/ozet"), "Fon sayısı: 2")
	assert.Contains(t, h.sched.HandleCommand("/fon mck"), "<b>MCK</b>")
	assert.Equal(t, "ZZZ bulunamadı.", h.sched.HandleCommand("/fon zzz"))
	assert.Equal(t, "Kullanım: /fon KOD", h.sched.HandleCommand("/fon"))
	assert.Contains(t, h.sched.HandleCommand("/gecmis"), "| ok")
	assert.Equal(t, helpText, h.sched.HandleCommand("merhaba"))
	assert.Equal(t, helpText, h.sched.HandleCommand("   "))
}

func TestRegister(t *testing.T) {
	h := newHarness(t, &collector.MockFetcher{})
	assert.Error(t, h.sched.Register("not a cron"))
	require.NoError(t, h.sched.Register("0 30 19 * * 1-5"))
	assert.Len(t, h.sched.Cron.Entries(), 1)

	h.sched.Start()
	h.sched.Stop()
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(context.Background(), Deps{Fetcher: &collector.MockFetcher{}}, zerolog.Nop())
	assert.IsType(t, pipeline.SystemClock{}, s.Clock)
	assert.IsType(t, &recorder.NoopRecorder{}, s.Recorder)
	assert.Equal(t, 10, s.TopN)
}
