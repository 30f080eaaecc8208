package backtest

import (
	"math"

	"github.com/rustyeddy/gptrader/gp"
	"github.com/rustyeddy/gptrader/market"
)

type Side int8

const (
	Flat  Side = 0
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return "flat"
}

type ExitReason string

const (
	ExitStop   ExitReason = "STOP"
	ExitTake   ExitReason = "TAKE"
	ExitNoData ExitReason = "NO_DATA"
)

// Trade is one closed (or, at the end of a run, still open) position.
type Trade struct {
	Side     Side
	EntryIdx int
	ExitIdx  int // -1 while open

	Entry float64
	Stop  float64
	Take  float64
	Exit  float64
	Risk  float64
	PnL   float64

	Reason ExitReason
}

// State is the running account state after a bar has been processed.
type State struct {
	Index       int
	Equity      float64
	Peak        float64
	MaxDrawdown float64 // fraction of peak
	Trades      int
	Active      bool
}

// Hooks lets callers observe a simulation. Either field may be nil.
type Hooks struct {
	OnTrade func(Trade)
	OnBar   func(State)
}

// Result summarises one simulation.
type Result struct {
	InitialEquity float64
	FinalEquity   float64
	ReturnPct     float64
	MaxDrawdown   float64 // fraction of peak

	Trades       int // executed entries
	Wins         int
	Losses       int
	ForcedCloses int

	// OpenTrade is the position still open when the bars ran out.
	OpenTrade *Trade
}

type position struct {
	Trade
	stopDist float64
	takeDist float64
}

// Simulate walks the bars once and trades the program's signals.
//
// For each bar i < len(bars)-1, while flat, the signal on bar i opens a
// trade at the open of bar i+1. An open trade, including one just opened,
// is then checked against the high/low of bar i+1. The stop is tested
// before the target, so a bar that spans both counts as a loss.
func Simulate(prog *gp.Program, bars []market.Bar, p Params, hooks *Hooks) Result {
	st := State{
		Equity: p.InitialEquity,
		Peak:   p.InitialEquity,
	}
	res := Result{InitialEquity: p.InitialEquity}

	var pos *position
	for i := 0; i+1 < len(bars); i++ {
		next := bars[i+1]

		if pos == nil {
			if side := Signal(prog, bars[i], p); side != Flat {
				pos = open(side, i, bars[i], next, st.Equity, p)
				if pos != nil {
					st.Trades++
				}
			}
		}

		if pos != nil {
			if t, closed := check(pos, i+1, next); closed {
				st.Equity += t.PnL
				if st.Equity > st.Peak {
					st.Peak = st.Equity
				}
				if st.Peak > 0 {
					if dd := (st.Peak - st.Equity) / st.Peak; dd > st.MaxDrawdown {
						st.MaxDrawdown = dd
					}
				}
				switch t.Reason {
				case ExitTake:
					res.Wins++
				case ExitStop:
					res.Losses++
				case ExitNoData:
					res.ForcedCloses++
				}
				if hooks != nil && hooks.OnTrade != nil {
					hooks.OnTrade(t)
				}
				pos = nil
			}
		}

		st.Index = i
		st.Active = pos != nil
		if hooks != nil && hooks.OnBar != nil {
			hooks.OnBar(st)
		}
	}

	if pos != nil {
		t := pos.Trade
		res.OpenTrade = &t
	}
	res.FinalEquity = st.Equity
	res.MaxDrawdown = st.MaxDrawdown
	res.Trades = st.Trades
	res.ReturnPct = (st.Equity - p.InitialEquity) / p.InitialEquity * 100
	return res
}

// Signal maps the program's value on bar b to a side. Missing indicators,
// a near-zero ATR, a non-finite result or a panic all give Flat.
func Signal(prog *gp.Program, b market.Bar, p Params) (side Side) {
	if !b.HasIndicators() || b.ATR14 <= p.MinATR {
		return Flat
	}

	defer func() {
		if r := recover(); r != nil {
			side = Flat
		}
	}()

	v := prog.Eval(gp.Inputs{
		gp.EMA50:  b.EMA50,
		gp.EMA200: b.EMA200,
		gp.RSI14:  b.RSI14,
		gp.ATR14:  b.ATR14,
	})
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0):
		return Flat
	case v > p.SignalThreshold:
		return Long
	case v < -p.SignalThreshold:
		return Short
	}
	return Flat
}

func open(side Side, idx int, sig, next market.Bar, equity float64, p Params) *position {
	if math.IsNaN(next.Open) || equity <= 0 {
		return nil
	}

	stopDist := sig.ATR14 * p.StopATR
	takeDist := sig.ATR14 * p.TakeATR
	entry := next.Open + float64(side)*p.Slippage

	return &position{
		Trade: Trade{
			Side:     side,
			EntryIdx: idx + 1,
			ExitIdx:  -1,
			Entry:    entry,
			Stop:     entry - float64(side)*stopDist,
			Take:     entry + float64(side)*takeDist,
			Risk:     equity * p.RiskPct,
		},
		stopDist: stopDist,
		takeDist: takeDist,
	}
}

// check evaluates stop/take on the bar's range, stop first.
func check(pos *position, idx int, b market.Bar) (Trade, bool) {
	t := pos.Trade
	t.ExitIdx = idx

	if math.IsNaN(b.High) || math.IsNaN(b.Low) {
		t.Exit = math.NaN()
		t.Reason = ExitNoData
		return t, true
	}

	var stopHit, takeHit bool
	switch t.Side {
	case Long:
		stopHit = b.Low <= t.Stop
		takeHit = b.High >= t.Take
	case Short:
		stopHit = b.High >= t.Stop
		takeHit = b.Low <= t.Take
	}

	switch {
	case stopHit:
		t.Exit = t.Stop
		t.PnL = -t.Risk
		t.Reason = ExitStop
	case takeHit:
		t.Exit = t.Take
		t.PnL = t.Risk * (pos.takeDist / pos.stopDist)
		t.Reason = ExitTake
	default:
		return pos.Trade, false
	}
	return t, true
}
