package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "GPTRADER_"

// LoadEnv loads .env files into the process environment without touching
// variables that are already set. Missing files are ignored.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

type envVar struct {
	key string
	set func(c *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func float(dst func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

var envVars = []envVar{
	{"DATA_PATH", str(func(c *Config) *string { return &c.Data.Path })},
	{"INSTRUMENT", str(func(c *Config) *string { return &c.Data.Instrument })},
	{"POPULATION", integer(func(c *Config) *int { return &c.Evolution.Population })},
	{"GENERATIONS", integer(func(c *Config) *int { return &c.Evolution.Generations })},
	{"WORKERS", integer(func(c *Config) *int { return &c.Evolution.Workers })},
	{"SEED", func(c *Config, v string) error {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		c.Evolution.Seed = n
		return nil
	}},
	{"INITIAL_EQUITY", float(func(c *Config) *float64 { return &c.Backtest.InitialEquity })},
	{"OUT_DIR", str(func(c *Config) *string { return &c.Export.OutDir })},
	{"DEAD_ZONE", float(func(c *Config) *float64 { return &c.Export.DeadZone })},
	{"JOURNAL_TYPE", str(func(c *Config) *string { return &c.Journal.Type })},
	{"JOURNAL_DB", str(func(c *Config) *string { return &c.Journal.DBPath })},
	{"JOURNAL_DIR", str(func(c *Config) *string { return &c.Journal.Dir })},
	{"JOURNAL_ORG", boolean(func(c *Config) *bool { return &c.Journal.Org })},
	{"METRICS_TEXTFILE", str(func(c *Config) *string { return &c.Metrics.Textfile })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
}

// ApplyEnv overrides fields from GPTRADER_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(EnvPrefix + ev.key)
		if !ok || v == "" {
			continue
		}
		if err := ev.set(c, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, ev.key, err)
		}
	}
	return nil
}
