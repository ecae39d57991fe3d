package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Output kinds.
const (
	OutputFile   = "file"
	OutputS3     = "s3"
	OutputStdout = "stdout"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		BaseURL           string  `yaml:"base_url"`
		FundKind          string  `yaml:"fund_kind"`
		ChunkDays         int     `yaml:"chunk_days"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
	} `yaml:"data_source"`
	Pipeline struct {
		LookbackDays int    `yaml:"lookback_days"`
		Timezone     string `yaml:"timezone"`
		Workers      int    `yaml:"workers"`
	} `yaml:"pipeline"`
	Output struct {
		Kind string `yaml:"kind"`
		Path string `yaml:"path"`
		S3   struct {
			Bucket   string `yaml:"bucket"`
			Key      string `yaml:"key"`
			Region   string `yaml:"region"`
			Endpoint string `yaml:"endpoint"`
		} `yaml:"s3"`
	} `yaml:"output"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
		TopN     int    `yaml:"top_n"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads .env, then the YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TEFAS_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
	}
	if v := os.Getenv("FUNDRADAR_OUTPUT"); v != "" {
		c.Output.Path = v
	}
	if v := os.Getenv("FUNDRADAR_LOOKBACK_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Pipeline.LookbackDays = n
		}
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		c.Output.S3.Bucket = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
}

func (c *Config) applyDefaults() {
	if c.DataSource.FundKind == "" {
		c.DataSource.FundKind = "YAT"
	}
	if c.DataSource.ChunkDays == 0 {
		c.DataSource.ChunkDays = 60
	}
	if c.DataSource.RequestsPerSecond == 0 {
		c.DataSource.RequestsPerSecond = 2
	}
	if c.DataSource.TimeoutSeconds == 0 {
		c.DataSource.TimeoutSeconds = 30
	}
	if c.Pipeline.LookbackDays == 0 {
		c.Pipeline.LookbackDays = 30
	}
	if c.Pipeline.Timezone == "" {
		c.Pipeline.Timezone = "Europe/Istanbul"
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = 4
	}
	if c.Output.Kind == "" {
		c.Output.Kind = OutputFile
	}
	if c.Output.Path == "" {
		c.Output.Path = "data/funds.json"
	}
	if c.Output.S3.Key == "" {
		c.Output.S3.Key = "fundradar/funds.json"
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = "0 30 19 * * 1-5"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Telegram.TopN == 0 {
		c.Telegram.TopN = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// Validate checks that the loaded values can drive a run.
func (c *Config) Validate() error {
	if c.Pipeline.LookbackDays < 1 {
		return fmt.Errorf("pipeline.lookback_days must be at least 1")
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("pipeline.workers must be at least 1")
	}
	if _, err := time.LoadLocation(c.Pipeline.Timezone); err != nil {
		return fmt.Errorf("pipeline.timezone: %w", err)
	}
	if c.DataSource.RequestsPerSecond <= 0 {
		return fmt.Errorf("data_source.requests_per_second must be positive")
	}
	if c.DataSource.ChunkDays < 1 {
		return fmt.Errorf("data_source.chunk_days must be at least 1")
	}
	switch c.Output.Kind {
	case OutputFile, OutputStdout:
	case OutputS3:
		if c.Output.S3.Bucket == "" {
			return fmt.Errorf("output.s3.bucket is required for the s3 sink")
		}
	default:
		return fmt.Errorf("output.kind %q is not one of file, s3, stdout", c.Output.Kind)
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required when telegram.bot_token is set")
	}
	return nil
}

// Location resolves the configured timezone. Call after Validate.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Pipeline.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Timeout is the per-request HTTP timeout for the data source.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.DataSource.TimeoutSeconds) * time.Second
}

// TelegramEnabled reports whether notifications should be sent.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
