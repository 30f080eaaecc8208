package evolve

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/gptrader/gp"
)

// Defaults for a run.
const (
	DefaultPopulation  = 200
	DefaultGenerations = 40
	DefaultCxProb      = 0.5
	DefaultMutProb     = 0.2
	DefaultTournament  = 3
	DefaultHallOfFame  = 1
	DefaultSeed        = 42
)

var (
	ErrTooFewBars = errors.New("evolve: need at least 2 bars")
	ErrOptions    = errors.New("evolve: invalid options")
)

// Options are the knobs of the generational loop.
type Options struct {
	Population  int
	Generations int
	CxProb      float64
	MutProb     float64
	Tournament  int
	HallOfFame  int
	MaxNodes    int

	// Workers bounds concurrent fitness evaluations. Zero or less means one.
	Workers int
	Seed    int64
}

func DefaultOptions() Options {
	return Options{
		Population:  DefaultPopulation,
		Generations: DefaultGenerations,
		CxProb:      DefaultCxProb,
		MutProb:     DefaultMutProb,
		Tournament:  DefaultTournament,
		HallOfFame:  DefaultHallOfFame,
		MaxNodes:    gp.DefaultMaxNodes,
		Workers:     1,
		Seed:        DefaultSeed,
	}
}

func (o Options) Validate() error {
	switch {
	case o.Population < 1:
		return fmt.Errorf("%w: population %d", ErrOptions, o.Population)
	case o.Generations < 0:
		return fmt.Errorf("%w: generations %d", ErrOptions, o.Generations)
	case o.CxProb < 0 || o.CxProb > 1:
		return fmt.Errorf("%w: cxpb %v", ErrOptions, o.CxProb)
	case o.MutProb < 0 || o.MutProb > 1:
		return fmt.Errorf("%w: mutpb %v", ErrOptions, o.MutProb)
	case o.Tournament < 1:
		return fmt.Errorf("%w: tournament size %d", ErrOptions, o.Tournament)
	case o.HallOfFame < 1:
		return fmt.Errorf("%w: hall of fame size %d", ErrOptions, o.HallOfFame)
	case o.MaxNodes < 1:
		return fmt.Errorf("%w: max nodes %d", ErrOptions, o.MaxNodes)
	}
	return nil
}

func (o Options) workers() int {
	if o.Workers < 1 {
		return 1
	}
	return o.Workers
}
