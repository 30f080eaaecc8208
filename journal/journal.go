// Package journal records evolution runs: one row per run, one per
// generation and one per trade of the winning rule's replay. Rule text is
// never stored; the artifacts are referenced by path.
package journal

import (
	"fmt"
	"time"

	"github.com/rustyeddy/gptrader/backtest"
	"github.com/rustyeddy/gptrader/evolve"
	"github.com/rustyeddy/gptrader/market"
	"github.com/rustyeddy/gptrader/pkg/id"
)

// Run is one completed evolution run.
type Run struct {
	RunID      string
	Created    time.Time
	Instrument string
	Dataset    string
	Bars       int
	Start      time.Time
	End        time.Time

	Seed        int64
	Population  int
	Generations int
	Evaluations int
	Duration    time.Duration

	BestFitness float64

	Trades       int
	Wins         int
	Losses       int
	ForcedCloses int

	StartBalance float64
	EndBalance   float64
	ReturnPct    float64
	MaxDDPct     float64

	TreePath string
	MQLPath  string
}

// NewRun starts a run record over a bar set. Created is the time minted
// into the run ID so the two always agree.
func NewRun(bs *market.BarSet) Run {
	runID := id.New()
	created, err := id.Time(runID)
	if err != nil {
		created = time.Now().UTC()
	}
	return Run{
		RunID:      runID,
		Created:    created,
		Instrument: bs.Instrument,
		Dataset:    bs.Source,
		Bars:       bs.Len(),
		Start:      bs.Start(),
		End:        bs.End(),
	}
}

// ApplyReport copies the replay results of the best rule.
func (r *Run) ApplyReport(rep backtest.Report) {
	r.BestFitness = rep.Score
	r.Trades = rep.Result.Trades
	r.Wins = rep.Result.Wins
	r.Losses = rep.Result.Losses
	r.ForcedCloses = rep.Result.ForcedCloses
	r.StartBalance = rep.Result.InitialEquity
	r.EndBalance = rep.Result.FinalEquity
	r.ReturnPct = rep.Result.ReturnPct
	r.MaxDDPct = rep.Result.MaxDrawdown * 100
}

func (r Run) NetPL() float64 { return r.EndBalance - r.StartBalance }

// WinRate is wins over stop/take exits in percent.
func (r Run) WinRate() float64 {
	if r.Wins+r.Losses == 0 {
		return 0
	}
	return float64(r.Wins) / float64(r.Wins+r.Losses) * 100
}

// GenerationRecord is one line of the run's logbook.
type GenerationRecord struct {
	RunID   string
	Gen     int
	Evals   int
	Avg     float64
	Std     float64
	Min     float64
	Max     float64
	Best    float64
	Invalid int
	Elapsed time.Duration
}

func GenerationFrom(runID string, s evolve.GenStats) GenerationRecord {
	return GenerationRecord{
		RunID:   runID,
		Gen:     s.Gen,
		Evals:   s.Evals,
		Avg:     s.Avg,
		Std:     s.Std,
		Min:     s.Min,
		Max:     s.Max,
		Best:    s.Best,
		Invalid: s.Invalid,
		Elapsed: s.Elapsed,
	}
}

// TradeRecord is one closed trade of the best rule's replay.
type TradeRecord struct {
	TradeID    string
	RunID      string
	Instrument string
	Side       string
	EntryIdx   int
	ExitIdx    int
	OpenTime   time.Time
	CloseTime  time.Time
	EntryPrice float64
	StopPrice  float64
	TakePrice  float64
	ExitPrice  float64
	Risk       float64
	RealizedPL float64
	Reason     string
}

// TradeFrom resolves bar indexes to times using the bars the trade was
// simulated on.
func TradeFrom(runID, instrument string, bars []market.Bar, t backtest.Trade) TradeRecord {
	rec := TradeRecord{
		TradeID:    id.New(),
		RunID:      runID,
		Instrument: instrument,
		Side:       t.Side.String(),
		EntryIdx:   t.EntryIdx,
		ExitIdx:    t.ExitIdx,
		EntryPrice: t.Entry,
		StopPrice:  t.Stop,
		TakePrice:  t.Take,
		ExitPrice:  t.Exit,
		Risk:       t.Risk,
		RealizedPL: t.PnL,
		Reason:     string(t.Reason),
	}
	if t.EntryIdx >= 0 && t.EntryIdx < len(bars) {
		rec.OpenTime = bars[t.EntryIdx].Time
	}
	if t.ExitIdx >= 0 && t.ExitIdx < len(bars) {
		rec.CloseTime = bars[t.ExitIdx].Time
	}
	return rec
}

type Journal interface {
	RecordRun(Run) error
	RecordGeneration(GenerationRecord) error
	RecordTrade(TradeRecord) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordRun(Run) error                     { return nil }
func (Nop) RecordGeneration(GenerationRecord) error { return nil }
func (Nop) RecordTrade(TradeRecord) error           { return nil }
func (Nop) Close() error                            { return nil }

// Open returns the journal for kind: "none", "csv" (files under dir) or
// "sqlite" (database at dbPath).
func Open(kind, dbPath, dir string) (Journal, error) {
	switch kind {
	case "", "none":
		return Nop{}, nil
	case "csv":
		return NewCSV(dir)
	case "sqlite":
		return NewSQLite(dbPath)
	}
	return nil, fmt.Errorf("unknown journal type %q", kind)
}
