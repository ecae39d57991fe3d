package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"FundRadar/internal/collector"
	"FundRadar/internal/model"
	"FundRadar/internal/sink"
)

var (
	// ErrEmptyDataset means the provider answered with no rows. Nothing is written.
	ErrEmptyDataset = errors.New("provider returned no observations")
	// ErrNoRecords means rows arrived but no fund had two valid prices. Nothing is written.
	ErrNoRecords = errors.New("no analyzable funds")
)

const DefaultLookbackDays = 30

// Options tunes a run.
type Options struct {
	LookbackDays int
	Location     *time.Location
	Workers      int
	Logger       zerolog.Logger
}

// RunOutcome describes a run. It is returned for failed runs too, filled as
// far as the run got.
type RunOutcome struct {
	RunID       string
	AsOf        time.Time
	Start       time.Time
	Snapshot    *model.Snapshot
	RowsFetched int
	Instruments int
	Excluded    int
	Written     bool
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Run fetches once, derives every fund's record, and hands the ranked
// snapshot to the sink. A provider failure, an empty dataset or a run with
// no analyzable funds returns before the sink is touched.
func Run(ctx context.Context, fetcher collector.Fetcher, out sink.Sink, clock Clock, opts Options) (*RunOutcome, error) {
	if opts.LookbackDays <= 0 {
		opts.LookbackDays = DefaultLookbackDays
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	outcome := &RunOutcome{
		RunID:     uuid.NewString(),
		StartedAt: clock.Now(),
	}
	defer func() { outcome.FinishedAt = clock.Now() }()

	log := opts.Logger.With().Str("run_id", outcome.RunID).Logger()

	outcome.AsOf = AsOfDate(outcome.StartedAt, opts.Location)
	outcome.Start = outcome.AsOf.AddDate(0, 0, -opts.LookbackDays)
	log.Info().
		Str("source", fetcher.Name()).
		Str("from", outcome.Start.Format("2006-01-02")).
		Str("to", outcome.AsOf.Format("2006-01-02")).
		Msg("fetching fund history")

	rows, err := fetcher.FetchHistory(ctx, outcome.Start, outcome.AsOf)
	if err != nil {
		return outcome, fmt.Errorf("fetch history from %s: %w", fetcher.Name(), err)
	}
	outcome.RowsFetched = len(rows)
	if len(rows) == 0 {
		return outcome, ErrEmptyDataset
	}

	groups, codes := GroupByCode(rows)
	outcome.Instruments = len(codes)
	log.Info().Int("rows", len(rows)).Int("funds", len(codes)).Msg("history fetched")

	records, err := deriveAll(ctx, groups, codes, outcome.AsOf, opts.Workers, log)
	if err != nil {
		return outcome, err
	}
	outcome.Excluded = len(codes) - len(records)
	if len(records) == 0 {
		return outcome, ErrNoRecords
	}

	outcome.Snapshot = BuildSnapshot(outcome.AsOf, records)
	if err := out.Write(ctx, outcome.Snapshot); err != nil {
		return outcome, fmt.Errorf("write snapshot to %s: %w", out.Name(), err)
	}
	outcome.Written = true

	log.Info().
		Int("records", outcome.Snapshot.RecordCount).
		Int("excluded", outcome.Excluded).
		Str("sink", out.Name()).
		Msg("snapshot written")
	return outcome, nil
}

// GroupByCode buckets rows by fund code, keeping provider order within a
// fund, and returns the codes sorted.
func GroupByCode(rows []model.RawObservation) (map[string][]model.RawObservation, []string) {
	groups := make(map[string][]model.RawObservation)
	for _, r := range rows {
		if r.Code == "" {
			continue
		}
		groups[r.Code] = append(groups[r.Code], r)
	}
	codes := make([]string, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return groups, codes
}

// deriveAll fans the funds out to workers. Results are stored by index so
// the output does not depend on scheduling.
func deriveAll(ctx context.Context, groups map[string][]model.RawObservation, codes []string, asOf time.Time, workers int, log zerolog.Logger) ([]model.DerivedMetrics, error) {
	results := make([]*model.DerivedMetrics, len(codes))
	jobs := make(chan int, len(codes))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				rec, err := Derive(codes[i], groups[codes[i]], asOf)
				if err != nil {
					log.Debug().Str("code", codes[i]).Err(err).Msg("fund excluded")
					continue
				}
				results[i] = rec
			}
		}()
	}
	for i := range codes {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("derive metrics: %w", err)
	}

	records := make([]model.DerivedMetrics, 0, len(codes))
	for _, r := range results {
		if r != nil {
			records = append(records, *r)
		}
	}
	return records, nil
}
