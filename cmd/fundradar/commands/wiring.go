package commands

import (
	"context"
	"os"

	"FundRadar/internal/collector"
	"FundRadar/internal/config"
	"FundRadar/internal/notifier"
	"FundRadar/internal/pipeline"
	"FundRadar/internal/recorder"
	"FundRadar/internal/sink"
)

func newFetcher(mock bool) collector.Fetcher {
	if mock {
		return &collector.MockFetcher{}
	}
	return collector.NewTefasFetcher(collector.TefasConfig{
		BaseURL:           cfg.DataSource.BaseURL,
		FundKind:          cfg.DataSource.FundKind,
		ChunkDays:         cfg.DataSource.ChunkDays,
		RequestsPerSecond: cfg.DataSource.RequestsPerSecond,
		Proxy:             cfg.Proxy,
		Timeout:           cfg.Timeout(),
	}, log)
}

// newSink builds the configured output. Readers fall back to the local file
// only when the output is a file.
func newSink(ctx context.Context) (*sink.CachingSink, error) {
	switch cfg.Output.Kind {
	case config.OutputS3:
		s3s, err := sink.NewS3Sink(ctx, cfg.Output.S3.Bucket, cfg.Output.S3.Key, cfg.Output.S3.Region, cfg.Output.S3.Endpoint)
		if err != nil {
			return nil, err
		}
		return sink.NewCachingSink(s3s, ""), nil
	case config.OutputStdout:
		return sink.NewCachingSink(&sink.WriterSink{W: os.Stdout}, ""), nil
	default:
		return sink.NewCachingSink(sink.NewFileSink(cfg.Output.Path), cfg.Output.Path), nil
	}
}

func newRecorder() recorder.Recorder {
	if cfg.Database.SQLitePath == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		return recorder.NewNoopRecorder()
	}
	return sr
}

func newTelegram() *notifier.TelegramNotifier {
	if !cfg.TelegramEnabled() {
		return nil
	}
	return notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
}

func pipelineOptions(lookback int) pipeline.Options {
	if lookback <= 0 {
		lookback = cfg.Pipeline.LookbackDays
	}
	return pipeline.Options{
		LookbackDays: lookback,
		Location:     cfg.Location(),
		Workers:      cfg.Pipeline.Workers,
	}
}
