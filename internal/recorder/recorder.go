package recorder

import (
	"errors"
	"time"

	"FundRadar/internal/model"
	"FundRadar/internal/pipeline"
)

// Run status values.
const (
	StatusOK     = "ok"
	StatusEmpty  = "empty"
	StatusFailed = "failed"
)

// RunRecord is one row of run history.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	AsOf        time.Time `json:"as_of"`
	RowsFetched int       `json:"rows_fetched"`
	Instruments int       `json:"instruments"`
	Records     int       `json:"records"`
	Excluded    int       `json:"excluded"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`

	Snapshot *model.Snapshot `json:"-"`
}

// NewRunRecord summarizes a pipeline outcome and the error the run ended with.
func NewRunRecord(outcome *pipeline.RunOutcome, source string, runErr error) *RunRecord {
	rec := &RunRecord{
		RunID:       outcome.RunID,
		Source:      source,
		Status:      StatusOK,
		AsOf:        outcome.AsOf,
		RowsFetched: outcome.RowsFetched,
		Instruments: outcome.Instruments,
		Excluded:    outcome.Excluded,
		StartedAt:   outcome.StartedAt,
		FinishedAt:  outcome.FinishedAt,
	}
	switch {
	case runErr == nil:
		rec.Snapshot = outcome.Snapshot
		if outcome.Snapshot != nil {
			rec.Records = outcome.Snapshot.RecordCount
		}
	case errors.Is(runErr, pipeline.ErrEmptyDataset), errors.Is(runErr, pipeline.ErrNoRecords):
		rec.Status = StatusEmpty
		rec.Error = runErr.Error()
	default:
		rec.Status = StatusFailed
		rec.Error = runErr.Error()
	}
	return rec
}

// Recorder persists run history for later analysis. The pipeline never
// reads it back.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
	Close() error
}
