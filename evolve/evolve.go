// Package evolve runs the generational loop: tournament selection,
// one-point crossover and uniform mutation under a node cap, cached
// fitness and a hall of fame.
package evolve

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/gptrader/backtest"
	"github.com/rustyeddy/gptrader/gp"
)

// Result is what a finished run hands back.
type Result struct {
	Best        Individual
	HallOfFame  []Individual
	Population  Population
	Stats       []GenStats
	Evaluations int
}

type Evolver struct {
	opts    Options
	grammar *gp.Grammar
	eval    *backtest.Evaluator
	log     zerolog.Logger
	onGen   func(GenStats)
}

func New(eval *backtest.Evaluator, opts Options) *Evolver {
	return &Evolver{
		opts:    opts,
		grammar: gp.DefaultGrammar(),
		eval:    eval,
		log:     zerolog.Nop(),
	}
}

func (e *Evolver) WithGrammar(g *gp.Grammar) *Evolver {
	e.grammar = g
	return e
}

func (e *Evolver) WithLogger(l zerolog.Logger) *Evolver {
	e.log = l.With().Str("component", "evolve").Logger()
	return e
}

// OnGeneration registers a callback run after every generation,
// generation 0 included, on the loop goroutine.
func (e *Evolver) OnGeneration(fn func(GenStats)) *Evolver {
	e.onGen = fn
	return e
}

// Run evolves the population and returns the hall of fame. The context is
// checked between generations; a cancelled run returns ctx.Err().
func (e *Evolver) Run(ctx context.Context) (*Result, error) {
	if e.eval == nil || len(e.eval.Bars) < 2 {
		return nil, ErrTooFewBars
	}
	if err := e.opts.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(e.opts.Seed))
	hof := NewHallOfFame(e.opts.HallOfFame)
	res := &Result{}

	e.log.Info().
		Int("population", e.opts.Population).
		Int("generations", e.opts.Generations).
		Int("bars", len(e.eval.Bars)).
		Int("workers", e.opts.workers()).
		Int64("seed", e.opts.Seed).
		Msg("evolution started")

	start := time.Now()
	pop := newPopulation(rng, e.grammar, e.opts.Population)
	n, err := e.evaluate(ctx, pop)
	if err != nil {
		return nil, err
	}
	res.Evaluations += n
	e.record(res, hof, pop, 0, n, start)

	for gen := 1; gen <= e.opts.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		start = time.Now()

		off := selectTournament(rng, pop, len(pop), e.opts.Tournament)
		vary(rng, e.grammar, off, e.opts)

		n, err := e.evaluate(ctx, off)
		if err != nil {
			return nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		res.Evaluations += n
		pop = off
		e.record(res, hof, pop, gen, n, start)
	}

	res.Population = pop
	res.HallOfFame = hof.Items()
	res.Best, _ = hof.Best()

	e.log.Info().
		Float64("best", res.Best.Fitness).
		Str("rule", res.Best.Tree.String()).
		Int("evaluations", res.Evaluations).
		Msg("evolution finished")
	return res, nil
}

// evaluate scores the invalid individuals with a bounded worker pool. Each
// worker writes only its own slot.
func (e *Evolver) evaluate(ctx context.Context, pop Population) (int, error) {
	idx := pop.invalid()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.workers())

	for _, i := range idx {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pop[i].Fitness = e.eval.Fitness(pop[i].Tree)
			pop[i].Valid = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return len(idx), nil
}

func (e *Evolver) record(res *Result, hof *HallOfFame, pop Population, gen, evals int, start time.Time) {
	improved := hof.Update(pop)

	st := computeStats(gen, evals, pop)
	if best, ok := hof.Best(); ok {
		st.Best = best.Fitness
		st.BestRule = best.Tree.String()
	}
	st.Elapsed = time.Since(start)
	res.Stats = append(res.Stats, st)

	e.log.Info().
		Int("gen", st.Gen).
		Int("nevals", st.Evals).
		Float64("avg", st.Avg).
		Float64("std", st.Std).
		Float64("min", st.Min).
		Float64("max", st.Max).
		Int("invalid", st.Invalid).
		Msg("generation")
	if improved {
		e.log.Debug().
			Int("gen", st.Gen).
			Float64("fitness", st.Best).
			Str("rule", st.BestRule).
			Msg("new best")
	}

	if e.onGen != nil {
		e.onGen(st)
	}
}
