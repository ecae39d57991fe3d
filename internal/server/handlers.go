package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"FundRadar/internal/model"
	"FundRadar/internal/recorder"
	"FundRadar/internal/scheduler"
	"FundRadar/internal/sink"
)

// SnapshotSource yields the most recently written snapshot, or
// sink.ErrNoSnapshot before the first one.
type SnapshotSource interface {
	Latest() (*model.Snapshot, error)
}

// RunHistory lists past runs.
type RunHistory interface {
	RecentRuns(limit int) ([]recorder.RunRecord, error)
}

// Handler serves the snapshot and run history over HTTP.
type Handler struct {
	Snapshots SnapshotSource
	History   RunHistory
	// Trigger starts a run in the background and returns
	// scheduler.ErrRunInProgress when one is already executing. nil
	// disables POST /api/runs.
	Trigger func() error

	log zerolog.Logger
}

func NewHandler(snapshots SnapshotSource, history RunHistory, trigger func() error, log zerolog.Logger) *Handler {
	return &Handler{
		Snapshots: snapshots,
		History:   history,
		Trigger:   trigger,
		log:       log,
	}
}

func (h *Handler) latest(w http.ResponseWriter) (*model.Snapshot, bool) {
	snap, err := h.Snapshots.Latest()
	if err != nil {
		if errors.Is(err, sink.ErrNoSnapshot) {
			writeError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		h.log.Error().Err(err).Msg("load snapshot")
		writeError(w, http.StatusInternalServerError, "snapshot unavailable")
		return nil, false
	}
	return snap, true
}

// GetSnapshot returns the document exactly as the sinks encode it.
// GET /api/snapshot
func (h *Handler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	data, err := sink.Encode(snap)
	if err != nil {
		h.log.Error().Err(err).Msg("encode snapshot")
		writeError(w, http.StatusInternalServerError, "encode snapshot")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(data)
}

// ListFunds returns ranked records, optionally filtered.
// GET /api/funds?signal=BUY&category=Equity&max_risk=3&limit=20
func (h *Handler) ListFunds(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.latest(w)
	if !ok {
		return
	}

	q := r.URL.Query()
	signal := strings.ToUpper(q.Get("signal"))
	category := q.Get("category")
	maxRisk := 0
	if v := q.Get("max_risk"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 5 {
			writeError(w, http.StatusBadRequest, "max_risk must be 1-5")
			return
		}
		maxRisk = n
	}
	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	out := make([]model.DerivedMetrics, 0, len(snap.Records))
	for _, rec := range snap.Records {
		if signal != "" && string(rec.Signal) != signal {
			continue
		}
		if category != "" && !strings.EqualFold(string(rec.Category), category) {
			continue
		}
		if maxRisk > 0 && rec.RiskTier > maxRisk {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) == limit {
			break
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"guncelleme": snap.AsOf,
		"fon_sayisi": len(out),
		"fonlar":     out,
	})
}

// GetFund returns one fund's record.
// GET /api/funds/{code}
func (h *Handler) GetFund(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])
	snap, ok := h.latest(w)
	if !ok {
		return
	}
	for _, rec := range snap.Records {
		if rec.Code == code {
			writeJSON(w, http.StatusOK, rec)
			return
		}
	}
	writeError(w, http.StatusNotFound, "fund "+code+" not found")
}

// ListRuns returns recent run history, newest first.
// GET /api/runs?limit=20
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	runs, err := h.History.RecentRuns(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("list runs")
		writeError(w, http.StatusInternalServerError, "run history unavailable")
		return
	}
	if runs == nil {
		runs = []recorder.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// TriggerRun starts a pipeline run without waiting for it.
// POST /api/runs
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.Trigger == nil {
		writeError(w, http.StatusNotImplemented, "manual runs are disabled")
		return
	}
	if err := h.Trigger(); err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("trigger run")
		writeError(w, http.StatusInternalServerError, "could not start run")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}
