package metrics

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/gptrader/backtest"
	"github.com/rustyeddy/gptrader/evolve"
)

func TestObserveGeneration(t *testing.T) {
	t.Parallel()

	r := New("run-1")
	r.ObserveGeneration(evolve.GenStats{Gen: 0, Evals: 200, Avg: -40, Best: 3.5, Invalid: 2, Elapsed: 50 * time.Millisecond})
	r.ObserveGeneration(evolve.GenStats{Gen: 1, Evals: 110, Avg: math.NaN(), Best: math.Inf(-1)})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.generation))
	assert.Equal(t, 310.0, testutil.ToFloat64(r.evaluations))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.bestFitness))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.avgFitness))

	n, err := testutil.GatherAndCount(r.Gatherer(), "gptrader_generation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestObserveReportAndTextfile(t *testing.T) {
	t.Parallel()

	r := New("run-2")
	r.ObserveReport(backtest.Report{
		Result: backtest.Result{FinalEquity: 10_233, ReturnPct: 2.33, MaxDrawdown: 0.01},
		Trades: []backtest.Trade{
			{Reason: backtest.ExitTake},
			{Reason: backtest.ExitStop},
			{Reason: backtest.ExitTake},
		},
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(r.trades.WithLabelValues("TAKE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.trades.WithLabelValues("STOP")))

	path := filepath.Join(t.TempDir(), "gptrader.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `gptrader_best_rule_final_equity{run="run-2"} 10233`)
	assert.Contains(t, string(data), `gptrader_best_rule_trades_total{reason="TAKE",run="run-2"} 2`)
}
