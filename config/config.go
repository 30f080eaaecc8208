package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/gptrader/backtest"
	"github.com/rustyeddy/gptrader/evolve"
	"github.com/rustyeddy/gptrader/export"
	"github.com/rustyeddy/gptrader/internal/logger"
	"github.com/rustyeddy/gptrader/market"
)

// Config is the complete run configuration.
type Config struct {
	Data      DataConfig      `json:"data" yaml:"data"`
	Evolution EvolutionConfig `json:"evolution" yaml:"evolution"`
	Backtest  BacktestConfig  `json:"backtest" yaml:"backtest"`
	Export    ExportConfig    `json:"export" yaml:"export"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Log       logger.Config   `json:"log" yaml:"log"`
}

// DataConfig names the bar file and the window to train on.
type DataConfig struct {
	Path       string `json:"path" yaml:"path" default:"data/EURUSD_M15_in.csv"`
	Instrument string `json:"instrument" yaml:"instrument" default:"EUR_USD" validate:"required"`
	From       string `json:"from,omitempty" yaml:"from,omitempty"` // RFC3339 or 2006-01-02
	To         string `json:"to,omitempty" yaml:"to,omitempty"`
}

// EvolutionConfig holds the generational loop parameters.
type EvolutionConfig struct {
	Population  int     `json:"population" yaml:"population" default:"200" validate:"min=1"`
	Generations int     `json:"generations" yaml:"generations" default:"40" validate:"min=0"`
	CxProb      float64 `json:"cx_prob" yaml:"cx_prob" default:"0.5" validate:"gte=0,lte=1"`
	MutProb     float64 `json:"mut_prob" yaml:"mut_prob" default:"0.2" validate:"gte=0,lte=1"`
	Tournament  int     `json:"tournament" yaml:"tournament" default:"3" validate:"min=1"`
	HallOfFame  int     `json:"hall_of_fame" yaml:"hall_of_fame" default:"1" validate:"min=1"`
	MaxNodes    int     `json:"max_nodes" yaml:"max_nodes" default:"17" validate:"min=1"`
	Workers     int     `json:"workers" yaml:"workers" validate:"min=0"` // 0 = one per CPU
	Seed        int64   `json:"seed" yaml:"seed" default:"42"`
}

// BacktestConfig holds the trade simulation and penalty parameters.
type BacktestConfig struct {
	InitialEquity   float64 `json:"initial_equity" yaml:"initial_equity" default:"10000" validate:"gt=0"`
	RiskPct         float64 `json:"risk_pct" yaml:"risk_pct" default:"0.01" validate:"gt=0,lte=1"`
	StopATR         float64 `json:"stop_atr" yaml:"stop_atr" default:"1.5" validate:"gt=0"`
	TakeATR         float64 `json:"take_atr" yaml:"take_atr" default:"3.5" validate:"gt=0"`
	SlippagePips    float64 `json:"slippage_pips" yaml:"slippage_pips" default:"3" validate:"gte=0"`
	SignalThreshold float64 `json:"signal_threshold" yaml:"signal_threshold" default:"0.5" validate:"gte=0"`
	MinATR          float64 `json:"min_atr" yaml:"min_atr" default:"1e-7" validate:"gte=0"`

	MinTrades       int     `json:"min_trades" yaml:"min_trades" default:"10" validate:"min=0"`
	TradePenalty    float64 `json:"trade_penalty" yaml:"trade_penalty" default:"50"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct" yaml:"max_drawdown_pct" default:"5" validate:"gte=0"`
	DrawdownPenalty float64 `json:"drawdown_penalty" yaml:"drawdown_penalty" default:"50"`
	MinReturnPct    float64 `json:"min_return_pct" yaml:"min_return_pct" default:"8"`
	ReturnPenalty   float64 `json:"return_penalty" yaml:"return_penalty" default:"25"`
}

// ExportConfig shapes the written artifacts.
type ExportConfig struct {
	OutDir    string  `json:"out_dir" yaml:"out_dir" default:"out" validate:"required"`
	Function  string  `json:"function" yaml:"function" default:"GenerateGPTradeSignal" validate:"required"`
	Symbol    string  `json:"symbol" yaml:"symbol" default:"_Symbol" validate:"required"`
	Timeframe string  `json:"timeframe" yaml:"timeframe" default:"PERIOD_M15" validate:"required"`
	DeadZone  float64 `json:"dead_zone" yaml:"dead_zone" validate:"gte=0"`
}

// JournalConfig contains journaling parameters.
type JournalConfig struct {
	Type   string `json:"type" yaml:"type" default:"none" validate:"oneof=none csv sqlite"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty" validate:"required_if=Type sqlite"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty" validate:"required_if=Type csv"`
	Org    bool   `json:"org" yaml:"org"` // also write an Org report next to the artifacts
}

// MetricsConfig enables the Prometheus textfile. An empty path disables it.
type MetricsConfig struct {
	Textfile string `json:"textfile,omitempty" yaml:"textfile,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// report yaml keys rather than Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		// defaults are compile-time constants; a failure is a tag typo
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return cfg
}

// LoadFromFile reads YAML or JSON over the defaults and validates the
// result. Environment overrides are applied by Load, not here.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", errors.Join(err, jerr))
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Load is what the CLI uses: an optional file, then .env and GPTRADER_*
// overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate runs the struct rules and the cross-field checks.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	if _, err := market.Lookup(c.Data.Instrument); err != nil {
		return fmt.Errorf("unknown instrument: %s", c.Data.Instrument)
	}
	from, to, err := c.Data.Window()
	if err != nil {
		return err
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return fmt.Errorf("data.from must be before data.to")
	}
	return nil
}

func describe(fe validator.FieldError) string {
	// strip the leading "Config."
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	if fe.Param() != "" {
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s is %s", field, fe.Tag())
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// Window parses From and To; empty values come back as zero times.
func (d DataConfig) Window() (from, to time.Time, err error) {
	if d.From != "" {
		if from, err = parseDate(d.From); err != nil {
			return from, to, fmt.Errorf("data.from: %w", err)
		}
	}
	if d.To != "" {
		if to, err = parseDate(d.To); err != nil {
			return from, to, fmt.Errorf("data.to: %w", err)
		}
	}
	return from, to, nil
}

// CSVOptions maps the data window onto the loader options.
func (d DataConfig) CSVOptions() (market.CSVOptions, error) {
	from, to, err := d.Window()
	if err != nil {
		return market.CSVOptions{}, err
	}
	return market.CSVOptions{From: from, To: to}, nil
}

// Params builds simulator parameters; slippage is converted from pips
// with the instrument's pip size.
func (b BacktestConfig) Params(instrument string) (backtest.Params, error) {
	meta, err := market.Lookup(instrument)
	if err != nil {
		return backtest.Params{}, err
	}
	return backtest.Params{
		InitialEquity:   b.InitialEquity,
		RiskPct:         b.RiskPct,
		StopATR:         b.StopATR,
		TakeATR:         b.TakeATR,
		Slippage:        b.SlippagePips * meta.PipSize(),
		SignalThreshold: b.SignalThreshold,
		MinATR:          b.MinATR,
		Penalties: backtest.Penalties{
			MinTrades:       b.MinTrades,
			TradePenalty:    b.TradePenalty,
			MaxDrawdownPct:  b.MaxDrawdownPct,
			DrawdownPenalty: b.DrawdownPenalty,
			MinReturnPct:    b.MinReturnPct,
			ReturnPenalty:   b.ReturnPenalty,
		},
	}, nil
}

// Options maps onto the evolution loop; workers is resolved by the caller.
func (e EvolutionConfig) Options(workers int) evolve.Options {
	return evolve.Options{
		Population:  e.Population,
		Generations: e.Generations,
		CxProb:      e.CxProb,
		MutProb:     e.MutProb,
		Tournament:  e.Tournament,
		HallOfFame:  e.HallOfFame,
		MaxNodes:    e.MaxNodes,
		Workers:     workers,
		Seed:        e.Seed,
	}
}

func (x ExportConfig) Options() export.Options {
	return export.Options{
		Function:  x.Function,
		Symbol:    x.Symbol,
		Timeframe: x.Timeframe,
		DeadZone:  x.DeadZone,
	}
}
