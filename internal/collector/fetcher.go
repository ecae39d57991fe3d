package collector

import (
	"context"
	"time"

	"FundRadar/internal/model"
)

// Fetcher defines the interface for fetching fund history. One call covers
// every fund for the inclusive date range.
type Fetcher interface {
	FetchHistory(ctx context.Context, start, end time.Time) ([]model.RawObservation, error)
	Name() string
}
