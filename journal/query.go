package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("journal: not found")

type scanner interface {
	Scan(dest ...any) error
}

const runColumns = `run_id, created, instrument, dataset, bars, start_time, end_time,
	seed, population, generations, evaluations, duration_ms, best_fitness,
	trades, wins, losses, forced_closes, start_balance, end_balance,
	return_pct, max_dd_pct, tree_path, mql_path`

func scanRun(s scanner) (Run, error) {
	var (
		r          Run
		start, end sql.NullTime
		durMS      int64
		best, ret  sql.NullFloat64
		dd         sql.NullFloat64
	)
	err := s.Scan(
		&r.RunID, &r.Created, &r.Instrument, &r.Dataset, &r.Bars, &start, &end,
		&r.Seed, &r.Population, &r.Generations, &r.Evaluations, &durMS, &best,
		&r.Trades, &r.Wins, &r.Losses, &r.ForcedCloses, &r.StartBalance, &r.EndBalance,
		&ret, &dd, &r.TreePath, &r.MQLPath,
	)
	if err != nil {
		return Run{}, err
	}
	r.Start, r.End = start.Time, end.Time
	r.Duration = time.Duration(durMS) * time.Millisecond
	r.BestFitness = fromReal(best, math.Inf(-1))
	r.ReturnPct = fromReal(ret, math.NaN())
	r.MaxDDPct = fromReal(dd, math.NaN())
	return r, nil
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(runID string) (Run, error) {
	row := j.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	return r, err
}

// ListRuns returns the most recent runs first, at most limit of them.
func (j *SQLite) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListGenerations returns a run's logbook in generation order.
func (j *SQLite) ListGenerations(runID string) ([]GenerationRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, gen, evals, avg, std, min, max, best, invalid, elapsed_ms
		FROM generations
		WHERE run_id = ?
		ORDER BY gen ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var (
			g                      GenerationRecord
			avg, std, lo, hi, best sql.NullFloat64
			ms                     int64
		)
		if err := rows.Scan(&g.RunID, &g.Gen, &g.Evals, &avg, &std, &lo, &hi, &best, &g.Invalid, &ms); err != nil {
			return nil, err
		}
		g.Avg = fromReal(avg, math.NaN())
		g.Std = fromReal(std, math.NaN())
		g.Min = fromReal(lo, math.NaN())
		g.Max = fromReal(hi, math.NaN())
		g.Best = fromReal(best, math.Inf(-1))
		g.Elapsed = time.Duration(ms) * time.Millisecond
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTrades returns a run's trades in entry order.
func (j *SQLite) ListTrades(runID string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, run_id, instrument, side, entry_idx, exit_idx, open_time, close_time,
		       entry_price, stop_price, take_price, exit_price, risk, realized_pl, reason
		FROM trades
		WHERE run_id = ?
		ORDER BY entry_idx ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			t              TradeRecord
			opened, closed sql.NullTime
			exit           sql.NullFloat64
		)
		if err := rows.Scan(
			&t.TradeID, &t.RunID, &t.Instrument, &t.Side, &t.EntryIdx, &t.ExitIdx, &opened, &closed,
			&t.EntryPrice, &t.StopPrice, &t.TakePrice, &exit, &t.Risk, &t.RealizedPL, &t.Reason,
		); err != nil {
			return nil, err
		}
		t.OpenTime, t.CloseTime = opened.Time, closed.Time
		t.ExitPrice = fromReal(exit, math.NaN())
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
