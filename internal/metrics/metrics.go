package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"FundRadar/internal/model"
)

// Registry holds the Prometheus collectors for pipeline runs.
type Registry struct {
	reg *prometheus.Registry

	// Runs by final status: ok, empty, failed.
	RunsTotal *prometheus.CounterVec

	RunDuration    prometheus.Histogram
	RowsFetched    prometheus.Gauge
	RecordsWritten prometheus.Gauge
	Excluded       prometheus.Gauge
	LastSuccess    prometheus.Gauge

	// Records of the last snapshot by signal and by risk tier.
	SignalRecords *prometheus.GaugeVec
	RiskRecords   *prometheus.GaugeVec
}

// NewRegistry creates a registry with all FundRadar collectors plus the Go
// runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fundradar_runs_total",
				Help: "Total number of pipeline runs by final status",
			},
			[]string{"status"},
		),

		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fundradar_run_duration_seconds",
				Help:    "Wall time of a pipeline run in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),

		RowsFetched: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundradar_rows_fetched",
				Help: "Raw observations returned by the provider in the last run",
			},
		),

		RecordsWritten: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundradar_snapshot_records",
				Help: "Records in the last written snapshot",
			},
		),

		Excluded: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundradar_excluded_instruments",
				Help: "Instruments dropped for having fewer than two valid prices in the last run",
			},
		),

		LastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "fundradar_last_success_timestamp_seconds",
				Help: "Unix time of the last successful run",
			},
		),

		SignalRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fundradar_signal_records",
				Help: "Records in the last snapshot by momentum signal",
			},
			[]string{"signal"},
		),

		RiskRecords: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fundradar_risk_tier_records",
				Help: "Records in the last snapshot by risk tier",
			},
			[]string{"tier"},
		),
	}

	r.reg.MustRegister(
		r.RunsTotal, r.RunDuration, r.RowsFetched, r.RecordsWritten,
		r.Excluded, r.LastSuccess, r.SignalRecords, r.RiskRecords,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveRun records the result of one run. Snapshot gauges are left to
// ObserveSnapshot.
func (r *Registry) ObserveRun(status string, duration time.Duration, rowsFetched, excluded int) {
	r.RunsTotal.WithLabelValues(status).Inc()
	r.RunDuration.Observe(duration.Seconds())
	r.RowsFetched.Set(float64(rowsFetched))
	r.Excluded.Set(float64(excluded))
}

// ObserveSnapshot records the shape of a written snapshot.
func (r *Registry) ObserveSnapshot(at time.Time, snap *model.Snapshot) {
	r.RecordsWritten.Set(float64(snap.RecordCount))
	r.LastSuccess.Set(float64(at.Unix()))

	r.SignalRecords.Reset()
	r.RiskRecords.Reset()
	for _, rec := range snap.Records {
		r.SignalRecords.WithLabelValues(string(rec.Signal)).Inc()
		r.RiskRecords.WithLabelValues(strconv.Itoa(rec.RiskTier)).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
