package journal

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteOrg(t *testing.T) {
	t.Parallel()

	r := testRun()
	r.Created = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	var b strings.Builder
	err := WriteOrg(&b, Report{
		Run: r,
		Generations: []GenerationRecord{
			{Gen: 0, Evals: 200, Avg: -60.5, Std: 12.25, Min: -100, Max: -20, Best: -20},
			nanRecord(),
		},
		Trades: []TradeRecord{testTrade(r.RunID)},
		Notes:  []string{"trend filter dominates"},
	})
	require.NoError(t, err)
	out := b.String()

	assert.Contains(t, out, "* GP RUN: EUR_USD "+shortID(r.RunID))
	assert.Contains(t, out, ":RUN_ID:      "+r.RunID)
	assert.Contains(t, out, ":DATASET:     bars.csv")
	assert.Contains(t, out, ":START_DATE:  2024-01-02 03:00")
	assert.Contains(t, out, ":FITNESS:     -57.40")
	assert.Contains(t, out, ":MAX_DD_PCT:  2.00")
	assert.Contains(t, out, ":WIN_RATE:    66.67")
	assert.Contains(t, out, ":CREATED:     [2024-03-15 Fri 10:30]")
	assert.Contains(t, out, "- Rule: [[file:out/best_tree.txt]]")
	assert.Contains(t, out, "- Net P/L:       *176.67*")
	assert.Contains(t, out, "| 0 | 200 | -60.50 | 12.25 | -100.00 | -20.00 | -20.00 |")
	assert.Contains(t, out, "| 0 | 1 | - | - | - | - | - |")
	assert.Contains(t, out, "| 0 | long | 2024-01-02 03:45 | 2024-01-02 04:15 | 1.10030 | 1.10380 | 233.33 | TAKE |")
	assert.Contains(t, out, "- trend filter dominates")
}

func TestWriteOrgMinimal(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	require.NoError(t, WriteOrg(&b, Report{Run: Run{RunID: "short", Instrument: "USD_JPY", BestFitness: math.Inf(-1)}}))
	out := b.String()

	assert.Contains(t, out, "* GP RUN: USD_JPY short")
	assert.Contains(t, out, ":DATASET:     (dataset?)")
	assert.Contains(t, out, ":FITNESS:     -")
	assert.NotContains(t, out, "** Logbook")
	assert.NotContains(t, out, "** Trades")
	assert.NotContains(t, out, "** Observations")
}

func TestWriteOrgFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, WriteOrgFile(path, Report{Run: testRun()}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "* GP RUN: EUR_USD"))
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	tr := testTrade("RUN")
	tr.TradeID = "01HV0000000000000012345678"
	out := FormatTradeOrg(tr)

	assert.Contains(t, out, "** Trade: EUR_USD long (12345678)")
	assert.Contains(t, out, ":PROPERTIES:")
	assert.Contains(t, out, ":RUN_ID: RUN")
	assert.Contains(t, out, ":BARS: 3-5")
	assert.Contains(t, out, ":ENTRY_PRICE: 1.10030")
	assert.Contains(t, out, ":EXIT_PRICE: 1.10380")
	assert.Contains(t, out, ":OPEN_TIME: 2024-01-02T03:45:00Z")
	assert.Contains(t, out, ":REALIZED_PL: 233.33")
	assert.Contains(t, out, ":REASON: TAKE")
	assert.Contains(t, out, ":END:")

	forced := tr
	forced.ExitPrice = math.NaN()
	forced.CloseTime = time.Time{}
	out = FormatTradeOrg(forced)
	assert.Contains(t, out, ":EXIT_PRICE: -")
	assert.NotContains(t, out, ":CLOSE_TIME:")

	both := FormatTradesOrg([]TradeRecord{tr, forced})
	assert.Equal(t, 2, strings.Count(both, "** Trade:"))
}

func TestObserve(t *testing.T) {
	t.Parallel()

	gens := []GenerationRecord{
		{Gen: 0, Best: -80},
		{Gen: 1, Best: -20},
		{Gen: 2, Best: -20, Invalid: 3},
	}
	tests := []struct {
		name string
		run  Run
		gens []GenerationRecord
		want []string
	}{
		{
			name: "forced closes",
			run:  Run{Trades: 12, ForcedCloses: 2},
			gens: gens,
			want: []string{
				"best rule first reached in generation 1 of 2",
				"3 invalid rules in the final generation",
				"2 of 12 trades force-closed on missing bar data",
			},
		},
		{
			name: "no trades",
			gens: []GenerationRecord{{Gen: 0, Best: math.Inf(-1)}},
			want: []string{"best rule first reached in generation 0 of 0", "best rule never traded"},
		},
		{
			name: "clean run without logbook",
			run:  Run{Trades: 5},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Observe(tt.run, tt.gens))
		})
	}
}
