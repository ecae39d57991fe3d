package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"FundRadar/internal/config"
	"FundRadar/internal/logger"
)

var (
	configFile string

	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "fundradar",
	Short: "TEFAS fund analytics snapshots",
	Long: `FundRadar fetches recent TEFAS fund history, derives trailing returns,
a volatility risk tier, a composition category and a momentum signal per
fund, and publishes one ranked JSON snapshot per run.

Examples:
  fundradar run --dry-run
  fundradar run --mock --lookback 120
  fundradar serve --run-on-start`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		log = logger.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
		return nil
	},
}

// Execute runs the root command and prints a fatal error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fundradar: %v\n", err)
	}
	return err
}

func init() {
	defaultConfig := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultConfig = v
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", defaultConfig, "config file (env CONFIG_PATH)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}
