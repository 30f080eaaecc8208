package cmd

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/gptrader/config"
	"github.com/rustyeddy/gptrader/indicators"
	"github.com/rustyeddy/gptrader/internal/logger"
	"github.com/rustyeddy/gptrader/market"
)

var rootCmd = &cobra.Command{
	Use:   "gptrader",
	Short: "Evolve FX trading rules with genetic programming",
	Long: `gptrader evolves small expression trees over EMA50, EMA200, RSI14 and
ATR14 into long/short trading rules, scores them with a bar-by-bar
backtest and exports the winner as an MQL5 include.

It provides tools for:
  - Evolving rules from historical OHLC bars
  - Backtesting a hand-written rule
  - Exporting a rule to MQL5
  - Journaling runs to SQLite or CSV

Settings come from an optional YAML/JSON config file, then .env and
GPTRADER_* environment variables, then command flags.`,
	SilenceUsage: true,
}

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (console, json)")
}

// setup loads the configuration and builds the logger shared by the
// commands that do real work. The closer must be closed by the caller.
func setup() (*config.Config, zerolog.Logger, io.Closer, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	return cfg, log, closer, nil
}

// loadBars reads the configured CSV and prepares it for the rule engine.
func loadBars(d config.DataConfig) ([]market.Bar, error) {
	if d.Path == "" {
		return nil, fmt.Errorf("no data file: set --data or data.path")
	}
	opts, err := d.CSVOptions()
	if err != nil {
		return nil, err
	}
	raw, enriched, err := market.LoadCSV(d.Path, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", d.Path, err)
	}
	return indicators.Prepare(raw, enriched), nil
}
