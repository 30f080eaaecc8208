package evolve

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/gptrader/backtest"
	"github.com/rustyeddy/gptrader/gp"
	"github.com/rustyeddy/gptrader/indicators"
	"github.com/rustyeddy/gptrader/market"
)

func walk(seed int64, n int) []market.Bar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]market.Bar, n)
	price := 1.10
	for i := range bars {
		o := price
		c := o + rng.NormFloat64()*0.0008
		bars[i] = market.Bar{Candle: market.Candle{
			Open:  o,
			High:  math.Max(o, c) + rng.Float64()*0.0005,
			Low:   math.Min(o, c) - rng.Float64()*0.0005,
			Close: c,
		}}
		price = c
	}
	return indicators.Prepare(bars, false)
}

func smallOptions(workers int) Options {
	o := DefaultOptions()
	o.Population = 30
	o.Generations = 5
	o.Workers = workers
	o.Seed = 7
	return o
}

func TestRunTooFewBars(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1} {
		ev := backtest.NewEvaluator(make([]market.Bar, n), backtest.DefaultParams())
		_, err := New(ev, DefaultOptions()).Run(context.Background())
		assert.ErrorIs(t, err, ErrTooFewBars)
	}
	_, err := New(nil, DefaultOptions()).Run(context.Background())
	assert.ErrorIs(t, err, ErrTooFewBars)
}

func TestRunRejectsBadOptions(t *testing.T) {
	t.Parallel()

	o := DefaultOptions()
	o.CxProb = 1.5
	ev := backtest.NewEvaluator(walk(1, 300), backtest.DefaultParams())
	_, err := New(ev, o).Run(context.Background())
	assert.ErrorIs(t, err, ErrOptions)
}

func TestRunReproducibleAcrossWorkers(t *testing.T) {
	t.Parallel()

	bars := walk(2, 500)
	run := func(workers int) *Result {
		ev := backtest.NewEvaluator(bars, backtest.DefaultParams())
		res, err := New(ev, smallOptions(workers)).Run(context.Background())
		require.NoError(t, err)
		return res
	}

	a, b := run(1), run(4)
	assert.Equal(t, a.Best.Tree.String(), b.Best.Tree.String())
	assert.Equal(t, math.Float64bits(a.Best.Fitness), math.Float64bits(b.Best.Fitness))
	assert.Equal(t, a.Evaluations, b.Evaluations)
	require.Len(t, b.Stats, len(a.Stats))
	for i := range a.Stats {
		assert.Equal(t, a.Stats[i].Evals, b.Stats[i].Evals)
		assert.Equal(t, a.Stats[i].BestRule, b.Stats[i].BestRule)
	}
}

func TestRunInvariants(t *testing.T) {
	t.Parallel()

	opts := smallOptions(2)
	ev := backtest.NewEvaluator(walk(3, 400), backtest.DefaultParams())

	var seen []GenStats
	res, err := New(ev, opts).OnGeneration(func(s GenStats) { seen = append(seen, s) }).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Stats, opts.Generations+1)
	require.Len(t, seen, len(res.Stats))
	for i := range seen {
		assert.Equal(t, i, seen[i].Gen)
		assert.Equal(t, res.Stats[i].BestRule, seen[i].BestRule)
	}
	assert.Equal(t, opts.Population, res.Stats[0].Evals)
	assert.Len(t, res.Population, opts.Population)
	assert.Len(t, res.HallOfFame, 1)

	for i := 1; i < len(res.Stats); i++ {
		assert.GreaterOrEqual(t, res.Stats[i].Best, res.Stats[i-1].Best)
		assert.LessOrEqual(t, res.Stats[i].Evals, opts.Population)
	}
	for _, ind := range res.Population {
		assert.True(t, ind.Valid)
		assert.LessOrEqual(t, ind.Tree.Size(), opts.MaxNodes)
	}

	// the reported best is reproducible from the tree alone
	assert.Equal(t, res.Best.Fitness, ev.Fitness(res.Best.Tree))
	assert.Equal(t, res.Stats[len(res.Stats)-1].Best, res.Best.Fitness)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev := backtest.NewEvaluator(walk(4, 300), backtest.DefaultParams())
	_, err := New(ev, smallOptions(2)).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectTournament(t *testing.T) {
	t.Parallel()

	pop := Population{
		{Tree: gp.Const(0.1), Fitness: -3, Valid: true},
		{Tree: gp.Const(0.2), Fitness: 7, Valid: true},
		{Tree: gp.Const(0.3), Fitness: math.Inf(-1), Valid: true},
	}

	rng := rand.New(rand.NewSource(1))
	out := selectTournament(rng, pop, 10, 100)
	require.Len(t, out, 10)
	for _, ind := range out {
		assert.Equal(t, 7.0, ind.Fitness)
	}

	// ties keep the first drawn contestant
	tied := Population{
		{Tree: gp.Const(0.1), Fitness: 1, Valid: true},
		{Tree: gp.Const(0.2), Fitness: 1, Valid: true},
		{Tree: gp.Const(0.3), Fitness: 1, Valid: true},
	}
	first := tied[rand.New(rand.NewSource(11)).Intn(len(tied))]
	won := selectTournament(rand.New(rand.NewSource(11)), tied, 1, 3)
	assert.Same(t, first.Tree, won[0].Tree)
}

func TestVaryWithoutOperatorsKeepsFitness(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(5))
	g := gp.DefaultGrammar()
	pop := newPopulation(rng, g, 20)
	for i := range pop {
		pop[i].Fitness = float64(i)
		pop[i].Valid = true
	}

	o := DefaultOptions()
	o.CxProb, o.MutProb = 0, 0
	vary(rng, g, pop, o)
	assert.Empty(t, pop.invalid())

	o.MutProb = 1
	vary(rng, g, pop, o)
	assert.NotEmpty(t, pop.invalid())
	for _, ind := range pop {
		assert.LessOrEqual(t, ind.Tree.Size(), o.MaxNodes)
	}
}

func TestHallOfFame(t *testing.T) {
	t.Parallel()

	a := Individual{Tree: gp.Ind(gp.EMA50), Fitness: 5, Valid: true}
	b := Individual{Tree: gp.Ind(gp.RSI14), Fitness: 5, Valid: true}
	c := Individual{Tree: gp.Ind(gp.ATR14), Fitness: 9, Valid: true}
	dup := Individual{Tree: gp.Ind(gp.ATR14), Fitness: 12, Valid: true}
	unscored := Individual{Tree: gp.Const(1), Fitness: 100}

	h := NewHallOfFame(1)
	_, ok := h.Best()
	assert.False(t, ok)

	assert.True(t, h.Update(Population{unscored, a}))
	best, _ := h.Best()
	assert.Same(t, a.Tree, best.Tree)

	// equal fitness does not displace
	assert.False(t, h.Update(Population{b}))
	best, _ = h.Best()
	assert.Same(t, a.Tree, best.Tree)

	assert.True(t, h.Update(Population{c}))
	best, _ = h.Best()
	assert.Equal(t, 9.0, best.Fitness)

	// an equal tree is already held
	h.Update(Population{dup})
	best, _ = h.Best()
	assert.Same(t, c.Tree, best.Tree)
	assert.Equal(t, 1, h.Len())

	h3 := NewHallOfFame(3)
	h3.Update(Population{a, c, b})
	items := h3.Items()
	require.Len(t, items, 3)
	assert.Equal(t, []float64{9, 5, 5}, []float64{items[0].Fitness, items[1].Fitness, items[2].Fitness})
	assert.Same(t, a.Tree, items[1].Tree)
}

func TestComputeStats(t *testing.T) {
	t.Parallel()

	pop := Population{
		{Fitness: 1, Valid: true},
		{Fitness: 3, Valid: true},
		{Fitness: math.Inf(-1), Valid: true},
		{Fitness: 8},
	}
	s := computeStats(2, 4, pop)
	assert.Equal(t, 2, s.Gen)
	assert.Equal(t, 4, s.Evals)
	assert.Equal(t, 2, s.Invalid)
	assert.Equal(t, 2.0, s.Avg)
	assert.Equal(t, 1.0, s.Std)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 3.0, s.Max)

	empty := computeStats(0, 0, Population{{Fitness: math.Inf(-1), Valid: true}})
	assert.True(t, math.IsNaN(empty.Avg))
	assert.Equal(t, 1, empty.Invalid)
}
