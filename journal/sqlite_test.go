package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["generations"])
	assert.True(t, found["trades"])
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	r := testRun()
	require.NoError(t, j.RecordRun(r))

	got, err := j.GetRun(r.RunID)
	require.NoError(t, err)
	assert.Equal(t, r.RunID, got.RunID)
	assert.True(t, r.Created.Equal(got.Created))
	assert.True(t, r.Start.Equal(got.Start))
	assert.True(t, r.End.Equal(got.End))
	assert.Equal(t, r.Duration, got.Duration)
	assert.Equal(t, r.BestFitness, got.BestFitness)
	assert.Equal(t, r.Trades, got.Trades)
	assert.Equal(t, r.ForcedCloses, got.ForcedCloses)
	assert.Equal(t, r.TreePath, got.TreePath)

	// re-recording a run replaces it
	r.Evaluations = 1
	require.NoError(t, j.RecordRun(r))
	runs, err := j.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Evaluations)

	_, err = j.GetRun("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteInvalidFitnessStoredAsNull(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	r := testRun()
	r.BestFitness = math.Inf(-1)
	r.ReturnPct = math.NaN()
	require.NoError(t, j.RecordRun(r))
	require.NoError(t, j.RecordGeneration(nanRecord()))

	got, err := j.GetRun(r.RunID)
	require.NoError(t, err)
	assert.True(t, math.IsInf(got.BestFitness, -1))
	assert.True(t, math.IsNaN(got.ReturnPct))

	gens, err := j.ListGenerations("R")
	require.NoError(t, err)
	require.Len(t, gens, 1)
	assert.True(t, math.IsNaN(gens[0].Avg))
	assert.True(t, math.IsInf(gens[0].Best, -1))
}

func TestSQLiteGenerationsAndTrades(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	for gen := 2; gen >= 0; gen-- {
		require.NoError(t, j.RecordGeneration(GenerationRecord{
			RunID: "RUN", Gen: gen, Evals: 100 + gen, Avg: 1, Std: 0.5, Min: -2, Max: 3, Best: float64(gen),
			Elapsed: 250 * time.Millisecond,
		}))
	}
	gens, err := j.ListGenerations("RUN")
	require.NoError(t, err)
	require.Len(t, gens, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{gens[0].Gen, gens[1].Gen, gens[2].Gen})
	assert.Equal(t, 250*time.Millisecond, gens[1].Elapsed)

	tr := testTrade("RUN")
	require.NoError(t, j.RecordTrade(tr))
	forced := testTrade("RUN")
	forced.EntryIdx, forced.ExitIdx = 7, 8
	forced.ExitPrice = math.NaN()
	forced.RealizedPL = 0
	forced.Reason = "NO_DATA"
	require.NoError(t, j.RecordTrade(forced))

	trades, err := j.ListTrades("RUN")
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, tr.TradeID, trades[0].TradeID)
	assert.True(t, tr.OpenTime.Equal(trades[0].OpenTime))
	assert.Equal(t, tr.RealizedPL, trades[0].RealizedPL)
	assert.True(t, math.IsNaN(trades[1].ExitPrice))

	// duplicate trade IDs are rejected
	assert.Error(t, j.RecordTrade(tr))

	none, err := j.ListTrades("OTHER")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestIsBusy(t *testing.T) {
	t.Parallel()

	assert.True(t, isBusy(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, isBusy(fmt.Errorf("exec: %w", sqlite3.Error{Code: sqlite3.ErrLocked})))
	assert.False(t, isBusy(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, isBusy(errors.New("boom")))
	assert.False(t, isBusy(nil))
}
