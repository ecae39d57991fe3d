package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"FundRadar/internal/collector"
	"FundRadar/internal/metrics"
	"FundRadar/internal/notifier"
	"FundRadar/internal/pipeline"
	"FundRadar/internal/recorder"
	"FundRadar/internal/sink"
)

// ErrRunInProgress is returned by RunNow while another run is executing.
var ErrRunInProgress = errors.New("a run is already in progress")

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Deps are the collaborators of a Scheduler. Notifier and Metrics may be nil.
type Deps struct {
	Fetcher  collector.Fetcher
	Sink     *sink.CachingSink
	Clock    pipeline.Clock
	Options  pipeline.Options
	Recorder recorder.Recorder
	Notifier Sender
	Metrics  *metrics.Registry
	TopN     int
}

// Scheduler runs the pipeline on a cron schedule and on demand.
type Scheduler struct {
	Cron *cron.Cron
	Deps
	Ctx context.Context

	running sync.Mutex
	log     zerolog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, deps Deps, log zerolog.Logger) *Scheduler {
	if deps.Clock == nil {
		deps.Clock = pipeline.SystemClock{}
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.TopN <= 0 {
		deps.TopN = 10
	}
	deps.Options.Logger = log
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds()),
		Deps: deps,
		Ctx:  ctx,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the daily snapshot job.
func (s *Scheduler) Register(dailyCron string) error {
	if _, err := s.Cron.AddFunc(dailyCron, s.dailyTask); err != nil {
		return fmt.Errorf("register daily task: %w", err)
	}
	s.log.Info().Str("cron", dailyCron).Msg("daily task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) dailyTask() {
	if _, err := s.RunNow(); err != nil && !errors.Is(err, ErrRunInProgress) {
		s.log.Debug().Err(err).Msg("daily task ended without a snapshot")
	}
}

// RunNow executes one pipeline run and reports it to the recorder, the
// metrics registry and the notifier. Overlapping calls are rejected.
func (s *Scheduler) RunNow() (*pipeline.RunOutcome, error) {
	if !s.running.TryLock() {
		s.log.Warn().Msg("run requested while another is in progress")
		return nil, ErrRunInProgress
	}
	defer s.running.Unlock()
	return s.run()
}

// RunAsync starts a run in the background. It returns ErrRunInProgress
// without starting one when a run is already executing.
func (s *Scheduler) RunAsync() error {
	if !s.running.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer s.running.Unlock()
		s.run()
	}()
	return nil
}

// run executes the pipeline; the caller holds s.running.
func (s *Scheduler) run() (*pipeline.RunOutcome, error) {
	outcome, runErr := pipeline.Run(s.Ctx, s.Fetcher, s.Sink, s.Clock, s.Options)
	rec := recorder.NewRunRecord(outcome, s.Fetcher.Name(), runErr)

	log := s.log.With().Str("run_id", rec.RunID).Str("status", rec.Status).Logger()
	switch rec.Status {
	case recorder.StatusOK:
		log.Info().Int("records", rec.Records).Int("excluded", rec.Excluded).Msg("run finished")
	case recorder.StatusEmpty:
		log.Warn().Err(runErr).Msg("run produced no snapshot")
	default:
		log.Error().Err(runErr).Msg("run failed")
	}

	if err := s.Recorder.RecordRun(rec); err != nil {
		log.Error().Err(err).Msg("record run")
	}

	if s.Metrics != nil {
		s.Metrics.ObserveRun(rec.Status, outcome.FinishedAt.Sub(outcome.StartedAt), rec.RowsFetched, rec.Excluded)
		if rec.Status == recorder.StatusOK {
			s.Metrics.ObserveSnapshot(outcome.FinishedAt, outcome.Snapshot)
		}
	}

	switch rec.Status {
	case recorder.StatusOK:
		s.trySend(notifier.FormatRunSummary(outcome.Snapshot, s.TopN))
	case recorder.StatusFailed:
		s.trySend(notifier.FormatRunFailure(rec.RunID, runErr))
	}

	return outcome, runErr
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}

	switch strings.ToLower(fields[0]) {
	case "/ozet", "/özet":
		snap, err := s.Sink.Latest()
		if err != nil {
			return s.snapshotError(err)
		}
		return notifier.FormatRunSummary(snap, s.TopN)
	case "/fon":
		if len(fields) < 2 {
			return "Kullanım: /fon KOD"
		}
		snap, err := s.Sink.Latest()
		if err != nil {
			return s.snapshotError(err)
		}
		code := strings.ToUpper(fields[1])
		for i := range snap.Records {
			if snap.Records[i].Code == code {
				return notifier.FormatFund(&snap.Records[i])
			}
		}
		return fmt.Sprintf("%s bulunamadı.", code)
	case "/gecmis", "/geçmiş":
		runs, err := s.Recorder.RecentRuns(5)
		if err != nil {
			s.log.Error().Err(err).Msg("list runs")
			return "Çalışma geçmişi okunamadı."
		}
		return notifier.FormatRecentRuns(runs)
	case "/calistir", "/çalıştır":
		if err := s.RunAsync(); err != nil {
			return "Bir çalışma zaten sürüyor."
		}
		return "Çalışma başlatıldı."
	default:
		return helpText
	}
}

const helpText = "Komutlar:\n• /ozet\n• /fon KOD\n• /gecmis\n• /calistir"

func (s *Scheduler) snapshotError(err error) string {
	if errors.Is(err, sink.ErrNoSnapshot) {
		return "Henüz yayınlanmış bir özet yok."
	}
	s.log.Error().Err(err).Msg("load snapshot")
	return "Özet okunamadı."
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}
