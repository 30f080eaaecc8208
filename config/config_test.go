package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/gptrader/backtest"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "EUR_USD", cfg.Data.Instrument)
	assert.Equal(t, 200, cfg.Evolution.Population)
	assert.Equal(t, 40, cfg.Evolution.Generations)
	assert.Equal(t, 0.5, cfg.Evolution.CxProb)
	assert.Equal(t, 0.2, cfg.Evolution.MutProb)
	assert.Equal(t, 17, cfg.Evolution.MaxNodes)
	assert.Equal(t, 1e-7, cfg.Backtest.MinATR)
	assert.Equal(t, "none", cfg.Journal.Type)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestDefaultParamsMatchBacktest(t *testing.T) {
	p, err := Default().Backtest.Params("EUR_USD")
	require.NoError(t, err)

	want := backtest.DefaultParams()
	assert.InDelta(t, want.Slippage, p.Slippage, 1e-15)
	p.Slippage = want.Slippage
	assert.Equal(t, want, p)

	jpy, err := Default().Backtest.Params("USD_JPY")
	require.NoError(t, err)
	assert.InDelta(t, 0.03, jpy.Slippage, 1e-12)

	_, err = Default().Backtest.Params("XXX_YYY")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "empty population",
			mutate:  func(c *Config) { c.Evolution.Population = 0 },
			wantErr: true,
			errMsg:  "evolution.population",
		},
		{
			name:    "crossover probability above one",
			mutate:  func(c *Config) { c.Evolution.CxProb = 1.5 },
			wantErr: true,
			errMsg:  "evolution.cx_prob",
		},
		{
			name:    "invalid risk percent",
			mutate:  func(c *Config) { c.Backtest.RiskPct = 1.5 },
			wantErr: true,
			errMsg:  "backtest.risk_pct",
		},
		{
			name:    "unknown instrument",
			mutate:  func(c *Config) { c.Data.Instrument = "INVALID" },
			wantErr: true,
			errMsg:  "unknown instrument",
		},
		{
			name:    "negative dead zone",
			mutate:  func(c *Config) { c.Export.DeadZone = -1 },
			wantErr: true,
			errMsg:  "export.dead_zone",
		},
		{
			name:    "bad journal type",
			mutate:  func(c *Config) { c.Journal.Type = "postgres" },
			wantErr: true,
			errMsg:  "journal.type",
		},
		{
			name:    "sqlite without path",
			mutate:  func(c *Config) { c.Journal.Type = "sqlite" },
			wantErr: true,
			errMsg:  "journal.db_path",
		},
		{
			name:   "sqlite with path",
			mutate: func(c *Config) { c.Journal.Type, c.Journal.DBPath = "sqlite", "runs.db" },
		},
		{
			name:    "csv without dir",
			mutate:  func(c *Config) { c.Journal.Type = "csv" },
			wantErr: true,
			errMsg:  "journal.dir",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: true,
			errMsg:  "log.level",
		},
		{
			name:    "window reversed",
			mutate:  func(c *Config) { c.Data.From, c.Data.To = "2024-02-01", "2024-01-01" },
			wantErr: true,
			errMsg:  "data.from must be before data.to",
		},
		{
			name:    "bad date",
			mutate:  func(c *Config) { c.Data.From = "yesterday" },
			wantErr: true,
			errMsg:  "data.from",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Evolution.Seed = 99
			cfg.Export.DeadZone = 0.5
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))

			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("evolution:\n  generations: 0\n  seed: 7\n"), 0o644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Evolution.Generations)
	assert.Equal(t, int64(7), cfg.Evolution.Seed)
	assert.Equal(t, 200, cfg.Evolution.Population)
	assert.Equal(t, "PERIOD_M15", cfg.Export.Timeframe)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("evolution: [unclosed"), 0o644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GPTRADER_SEED":         "1234",
		"GPTRADER_WORKERS":      "8",
		"GPTRADER_DEAD_ZONE":    "0.5",
		"GPTRADER_JOURNAL_TYPE": "sqlite",
		"GPTRADER_JOURNAL_DB":   "runs.db",
		"GPTRADER_JOURNAL_ORG":  "true",
		"GPTRADER_DATA_PATH":    "",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, int64(1234), cfg.Evolution.Seed)
	assert.Equal(t, 8, cfg.Evolution.Workers)
	assert.Equal(t, 0.5, cfg.Export.DeadZone)
	assert.Equal(t, "sqlite", cfg.Journal.Type)
	assert.Equal(t, "runs.db", cfg.Journal.DBPath)
	assert.True(t, cfg.Journal.Org)
	assert.Equal(t, "data/EURUSD_M15_in.csv", cfg.Data.Path)
	assert.NoError(t, cfg.Validate())

	env["GPTRADER_POPULATION"] = "many"
	err := Default().ApplyEnv(lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPTRADER_POPULATION")

	delete(env, "GPTRADER_POPULATION")
	env["GPTRADER_JOURNAL_ORG"] = "sometimes"
	err = Default().ApplyEnv(lookup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GPTRADER_JOURNAL_ORG")
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GPTRADER_TEST_ONLY=from-file\n"), 0o644))
	t.Setenv("GPTRADER_TEST_ONLY", "")
	require.NoError(t, os.Unsetenv("GPTRADER_TEST_ONLY"))

	require.NoError(t, LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("GPTRADER_TEST_ONLY"))
}

func TestMappings(t *testing.T) {
	cfg := Default()

	o := cfg.Evolution.Options(4)
	assert.Equal(t, 200, o.Population)
	assert.Equal(t, 4, o.Workers)
	assert.NoError(t, o.Validate())

	x := cfg.Export.Options()
	assert.Equal(t, "GenerateGPTradeSignal", x.Function)
	assert.Equal(t, 0.0, x.DeadZone)

	cfg.Data.From = "2024-01-01"
	opts, err := cfg.Data.CSVOptions()
	require.NoError(t, err)
	assert.Equal(t, 2024, opts.From.Year())
	assert.True(t, opts.To.IsZero())
}
