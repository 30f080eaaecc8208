package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// nullable maps NaN and ±Inf to NULL; SQLite cannot store them.
func nullable(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func fromReal(n sql.NullFloat64, null float64) float64 {
	if !n.Valid {
		return null
	}
	return n.Float64
}

func timeOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

// isBusy reports whether err is SQLite refusing a write because another
// connection holds the lock.
func isBusy(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
}

// exec runs a write, retrying with exponential backoff while the database
// is locked by another run sharing the journal.
func (j *SQLite) exec(query string, args ...any) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxElapsedTime = 2 * time.Second

	return backoff.Retry(func() error {
		_, err := j.db.Exec(query, args...)
		if err != nil && !isBusy(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithMaxRetries(b, 8))
}

func (j *SQLite) RecordRun(r Run) error {
	err := j.exec(`
		INSERT OR REPLACE INTO runs
		(run_id, created, instrument, dataset, bars, start_time, end_time,
		 seed, population, generations, evaluations, duration_ms, best_fitness,
		 trades, wins, losses, forced_closes, start_balance, end_balance,
		 return_pct, max_dd_pct, tree_path, mql_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Instrument, r.Dataset, r.Bars,
		timeOrNull(r.Start), timeOrNull(r.End),
		r.Seed, r.Population, r.Generations, r.Evaluations, r.Duration.Milliseconds(),
		nullable(r.BestFitness),
		r.Trades, r.Wins, r.Losses, r.ForcedCloses, r.StartBalance, r.EndBalance,
		nullable(r.ReturnPct), nullable(r.MaxDDPct), r.TreePath, r.MQLPath,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	return nil
}

func (j *SQLite) RecordGeneration(g GenerationRecord) error {
	err := j.exec(`
		INSERT OR REPLACE INTO generations
		(run_id, gen, evals, avg, std, min, max, best, invalid, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.RunID, g.Gen, g.Evals, nullable(g.Avg), nullable(g.Std), nullable(g.Min), nullable(g.Max),
		nullable(g.Best), g.Invalid, g.Elapsed.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("record generation %d: %w", g.Gen, err)
	}
	return nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	err := j.exec(`
		INSERT INTO trades
		(trade_id, run_id, instrument, side, entry_idx, exit_idx, open_time, close_time,
		 entry_price, stop_price, take_price, exit_price, risk, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Instrument, t.Side, t.EntryIdx, t.ExitIdx,
		timeOrNull(t.OpenTime), timeOrNull(t.CloseTime),
		t.EntryPrice, t.StopPrice, t.TakePrice, nullable(t.ExitPrice), t.Risk, t.RealizedPL, t.Reason,
	)
	if err != nil {
		return fmt.Errorf("record trade %s: %w", t.TradeID, err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
