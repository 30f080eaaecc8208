package backtest

import (
	"fmt"
	"math"

	"github.com/rustyeddy/gptrader/gp"
	"github.com/rustyeddy/gptrader/market"
)

// Invalid is the fitness of individuals that cannot be scored.
var Invalid = math.Inf(-1)

// Score applies the penalties to a simulation result. Each penalty is
// independent of the others. Non-finite scores become Invalid.
func Score(r Result, pen Penalties) float64 {
	score := r.ReturnPct
	if r.Trades < pen.MinTrades {
		score -= pen.TradePenalty
	}
	if r.MaxDrawdown*100 > pen.MaxDrawdownPct {
		score -= pen.DrawdownPenalty
	}
	if r.ReturnPct < pen.MinReturnPct {
		score -= pen.ReturnPenalty
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Invalid
	}
	return v
}

// Evaluator scores trees against a fixed bar sequence. It holds no mutable
// state, so one Evaluator may be shared by concurrent workers.
type Evaluator struct {
	Bars   []market.Bar
	Params Params
}

func NewEvaluator(bars []market.Bar, p Params) *Evaluator {
	return &Evaluator{Bars: bars, Params: p}
}

// Fitness compiles and simulates the tree. It never panics and returns
// Invalid for trees that do not compile.
func (e *Evaluator) Fitness(tree *gp.Node) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			score = Invalid
		}
	}()

	prog, err := gp.Compile(tree)
	if err != nil {
		return Invalid
	}
	res := Simulate(prog, e.Bars, e.Params, nil)
	return Score(res, e.Params.Penalties)
}

// Report is a full replay of one rule with its trades.
type Report struct {
	Rule   string
	Bars   int
	Score  float64
	Result Result
	Trades []Trade
}

// WinRate is wins over closed trades in percent.
func (r Report) WinRate() float64 {
	closed := r.Result.Wins + r.Result.Losses
	if closed == 0 {
		return 0
	}
	return float64(r.Result.Wins) / float64(closed) * 100
}

// Replay simulates the tree and records every closed trade.
func (e *Evaluator) Replay(tree *gp.Node) (Report, error) {
	prog, err := gp.Compile(tree)
	if err != nil {
		return Report{}, fmt.Errorf("compile %s: %w", tree, err)
	}

	rep := Report{Rule: tree.String(), Bars: len(e.Bars)}
	rep.Result = Simulate(prog, e.Bars, e.Params, &Hooks{
		OnTrade: func(t Trade) { rep.Trades = append(rep.Trades, t) },
	})
	rep.Score = Score(rep.Result, e.Params.Penalties)
	return rep, nil
}
