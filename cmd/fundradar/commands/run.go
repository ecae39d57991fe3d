package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"FundRadar/internal/pipeline"
	"FundRadar/internal/scheduler"
	"FundRadar/internal/sink"
)

var (
	runDryRun   bool
	runLookback int
	runMock     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once and publish the snapshot",
	Long: `Run fetches the lookback window once, derives every fund's record and
publishes the ranked snapshot to the configured output.

An empty provider answer or a window with no analyzable fund is logged as a
warning and nothing is written. Provider and output failures exit with 1.`,
	RunE: runOnce,
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the snapshot to stdout; skip output, history and notifications")
	runCmd.Flags().IntVar(&runLookback, "lookback", 0, "lookback window in days (default from config)")
	runCmd.Flags().BoolVar(&runMock, "mock", false, "use synthetic data instead of TEFAS")
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := scheduler.Deps{
		Fetcher: newFetcher(runMock),
		Options: pipelineOptions(runLookback),
		TopN:    cfg.Telegram.TopN,
	}
	if runDryRun {
		deps.Sink = sink.NewCachingSink(&sink.WriterSink{W: cmd.OutOrStdout()}, "")
	} else {
		out, err := newSink(ctx)
		if err != nil {
			return err
		}
		deps.Sink = out

		rec := newRecorder()
		defer rec.Close()
		deps.Recorder = rec

		if tn := newTelegram(); tn != nil {
			deps.Notifier = tn
		}
	}

	outcome, err := scheduler.NewScheduler(ctx, deps, log).RunNow()
	switch {
	case err == nil:
		log.Info().
			Str("output", deps.Sink.Name()).
			Str("as_of", outcome.Snapshot.AsOf.String()).
			Int("records", outcome.Snapshot.RecordCount).
			Msg("snapshot published")
		return nil
	case errors.Is(err, pipeline.ErrEmptyDataset), errors.Is(err, pipeline.ErrNoRecords):
		log.Warn().Err(err).Msg("nothing published")
		return nil
	default:
		return err
	}
}
