package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FundRadar/internal/model"
)

func TestObserveRun(t *testing.T) {
	r := NewRegistry()

	r.ObserveRun("ok", 2*time.Second, 120, 3)
	r.ObserveRun("failed", time.Second, 0, 0)
	r.ObserveRun("ok", time.Second, 90, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.RunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RunsTotal.WithLabelValues("failed")))
	assert.Equal(t, 90.0, testutil.ToFloat64(r.RowsFetched))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Excluded))
}

func TestObserveSnapshot_ResetsLabels(t *testing.T) {
	r := NewRegistry()
	at := time.Date(2026, 3, 6, 16, 30, 0, 0, time.UTC)

	r.ObserveSnapshot(at, &model.Snapshot{RecordCount: 3, Records: []model.DerivedMetrics{
		{Code: "A", Signal: model.SignalBuy, RiskTier: 1},
		{Code: "B", Signal: model.SignalBuy, RiskTier: 1},
		{Code: "C", Signal: model.SignalHold, RiskTier: 2},
	}})
	assert.Equal(t, 2.0, testutil.ToFloat64(r.SignalRecords.WithLabelValues("BUY")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.RiskRecords))

	r.ObserveSnapshot(at, &model.Snapshot{RecordCount: 2, Records: []model.DerivedMetrics{
		{Code: "A", Signal: model.SignalSell, RiskTier: 3},
		{Code: "B", Signal: model.SignalSell, RiskTier: 3},
	}})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.RecordsWritten))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(r.LastSuccess))
	assert.Equal(t, 1, testutil.CollectAndCount(r.SignalRecords))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.SignalRecords.WithLabelValues("SELL")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.RiskRecords))
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.ObserveRun("empty", time.Second, 0, 0)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), `fundradar_runs_total{status="empty"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
