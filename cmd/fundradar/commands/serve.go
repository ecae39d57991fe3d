package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"FundRadar/internal/metrics"
	"FundRadar/internal/scheduler"
	"FundRadar/internal/server"
)

var serveRunOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run on a schedule and serve the latest snapshot over HTTP",
	Long: `Serve registers the daily cron job, exposes /health, /api/snapshot,
/api/funds, /api/funds/{code}, /api/runs and /metrics, and answers Telegram
commands when a bot token is configured.`,
	RunE: serve,
}

func init() {
	serveCmd.Flags().BoolVar(&serveRunOnStart, "run-on-start", os.Getenv("RUN_ON_START") == "true", "run the pipeline immediately (env RUN_ON_START)")
}

func serve(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out, err := newSink(ctx)
	if err != nil {
		return err
	}
	rec := newRecorder()
	defer rec.Close()
	reg := metrics.NewRegistry()

	deps := scheduler.Deps{
		Fetcher:  newFetcher(false),
		Sink:     out,
		Options:  pipelineOptions(0),
		Recorder: rec,
		Metrics:  reg,
		TopN:     cfg.Telegram.TopN,
	}
	tn := newTelegram()
	if tn != nil {
		deps.Notifier = tn
	}
	log.Info().Str("data_source", deps.Fetcher.Name()).Str("output", out.Name()).Msg("fundradar starting")

	sched := scheduler.NewScheduler(ctx, deps, log)
	if err := sched.Register(cfg.Schedule.DailyCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	handler := server.NewHandler(out, rec, sched.RunAsync, log)
	srv := server.New(cfg.Server.Addr, server.NewRouter(handler, reg.Handler(), log), log)
	srvErr := make(chan error, 1)
	go func() { srvErr <- srv.Start() }()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if serveRunOnStart {
		log.Info().Msg("run-on-start enabled, executing pipeline now")
		if err := sched.RunAsync(); err != nil {
			log.Warn().Err(err).Msg("run-on-start skipped")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping")
	case err := <-srvErr:
		if err != nil {
			return err
		}
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("fundradar stopped")
	return nil
}
