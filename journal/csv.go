package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// CSV file names inside the journal directory.
const (
	RunsFile        = "runs.csv"
	GenerationsFile = "generations.csv"
	TradesFile      = "trades.csv"
)

var (
	runsHeader = []string{
		"run_id", "created", "instrument", "dataset", "bars", "start_time", "end_time",
		"seed", "population", "generations", "evaluations", "duration_ms", "best_fitness",
		"trades", "wins", "losses", "forced_closes", "start_balance", "end_balance",
		"return_pct", "max_dd_pct", "tree_path", "mql_path",
	}
	generationsHeader = []string{"run_id", "gen", "evals", "avg", "std", "min", "max", "best", "invalid", "elapsed_ms"}
	tradesHeader      = []string{
		"trade_id", "run_id", "instrument", "side", "entry_idx", "exit_idx", "open_time", "close_time",
		"entry_price", "stop_price", "take_price", "exit_price", "risk", "realized_pl", "reason",
	}
)

type csvFile struct {
	f *os.File
	w *csv.Writer
}

// openAppend opens path for appending and writes the header to new files.
func openAppend(path string, header []string) (*csvFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	cf := &csvFile{f: f, w: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := cf.write(header); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return cf, nil
}

func (c *csvFile) write(row []string) error {
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *csvFile) close() error {
	c.w.Flush()
	return errors.Join(c.w.Error(), c.f.Close())
}

// CSVJournal appends to runs.csv, generations.csv and trades.csv in a
// directory, so several runs can share one journal.
type CSVJournal struct {
	runs, gens, trades *csvFile
}

func NewCSV(dir string) (*CSVJournal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	j := &CSVJournal{}
	var err error
	if j.runs, err = openAppend(filepath.Join(dir, RunsFile), runsHeader); err != nil {
		return nil, err
	}
	if j.gens, err = openAppend(filepath.Join(dir, GenerationsFile), generationsHeader); err != nil {
		_ = j.runs.close()
		return nil, err
	}
	if j.trades, err = openAppend(filepath.Join(dir, TradesFile), tradesHeader); err != nil {
		_ = j.runs.close()
		_ = j.gens.close()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) RecordRun(r Run) error {
	return j.runs.write([]string{
		r.RunID,
		ts(r.Created),
		r.Instrument,
		r.Dataset,
		strconv.Itoa(r.Bars),
		ts(r.Start),
		ts(r.End),
		strconv.FormatInt(r.Seed, 10),
		strconv.Itoa(r.Population),
		strconv.Itoa(r.Generations),
		strconv.Itoa(r.Evaluations),
		strconv.FormatInt(r.Duration.Milliseconds(), 10),
		f(r.BestFitness),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Wins),
		strconv.Itoa(r.Losses),
		strconv.Itoa(r.ForcedCloses),
		f(r.StartBalance),
		f(r.EndBalance),
		f(r.ReturnPct),
		f(r.MaxDDPct),
		r.TreePath,
		r.MQLPath,
	})
}

func (j *CSVJournal) RecordGeneration(g GenerationRecord) error {
	return j.gens.write([]string{
		g.RunID,
		strconv.Itoa(g.Gen),
		strconv.Itoa(g.Evals),
		f(g.Avg),
		f(g.Std),
		f(g.Min),
		f(g.Max),
		f(g.Best),
		strconv.Itoa(g.Invalid),
		strconv.FormatInt(g.Elapsed.Milliseconds(), 10),
	})
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.trades.write([]string{
		t.TradeID,
		t.RunID,
		t.Instrument,
		t.Side,
		strconv.Itoa(t.EntryIdx),
		strconv.Itoa(t.ExitIdx),
		ts(t.OpenTime),
		ts(t.CloseTime),
		f(t.EntryPrice),
		f(t.StopPrice),
		f(t.TakePrice),
		f(t.ExitPrice),
		f(t.Risk),
		f(t.RealizedPL),
		t.Reason,
	})
}

func (j *CSVJournal) Close() error {
	return errors.Join(j.runs.close(), j.gens.close(), j.trades.close())
}

// f writes NaN and ±Inf as NaN, +Inf and -Inf.
func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

func ts(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
