package evolve

import (
	"math/rand"

	"github.com/rustyeddy/gptrader/gp"
)

// Individual is a tree and its cached fitness. Valid is false until the
// tree has been scored, and again after an operator changes it.
type Individual struct {
	Tree    *gp.Node
	Fitness float64
	Valid   bool
}

// Trees are never modified in place, so copying an Individual is a clone.
type Population []Individual

func newPopulation(rng *rand.Rand, g *gp.Grammar, n int) Population {
	pop := make(Population, n)
	for i := range pop {
		pop[i] = Individual{Tree: g.New(rng)}
	}
	return pop
}

// invalid lists the indexes that need scoring.
func (p Population) invalid() []int {
	var idx []int
	for i := range p {
		if !p[i].Valid {
			idx = append(idx, i)
		}
	}
	return idx
}

// selectTournament draws n winners, each the fittest of k individuals
// picked uniformly with replacement. Ties keep the first drawn.
func selectTournament(rng *rand.Rand, pop Population, n, k int) Population {
	out := make(Population, n)
	for i := range out {
		best := pop[rng.Intn(len(pop))]
		for j := 1; j < k; j++ {
			c := pop[rng.Intn(len(pop))]
			if c.Fitness > best.Fitness {
				best = c
			}
		}
		out[i] = best
	}
	return out
}

// vary applies crossover to consecutive pairs with probability cxpb, then
// mutation to each individual with probability mutpb. Only individuals an
// operator actually changed lose their fitness.
func vary(rng *rand.Rand, g *gp.Grammar, off Population, o Options) {
	for i := 1; i < len(off); i += 2 {
		if rng.Float64() < o.CxProb {
			c1, c2, changed := gp.Crossover(rng, off[i-1].Tree, off[i].Tree, o.MaxNodes)
			if changed {
				off[i-1] = Individual{Tree: c1}
				off[i] = Individual{Tree: c2}
			}
		}
	}
	for i := range off {
		if rng.Float64() < o.MutProb {
			t, changed := gp.Mutate(rng, g, off[i].Tree, o.MaxNodes)
			if changed {
				off[i] = Individual{Tree: t}
			}
		}
	}
}

// HallOfFame keeps the best distinct individuals ever scored, best first.
type HallOfFame struct {
	size  int
	items []Individual
}

func NewHallOfFame(size int) *HallOfFame {
	if size < 1 {
		size = 1
	}
	return &HallOfFame{size: size}
}

// Update offers every scored individual. An entry is displaced only by a
// strictly better one, and a tree already held is not added twice.
func (h *HallOfFame) Update(pop Population) bool {
	improved := false
	for _, ind := range pop {
		if !ind.Valid {
			continue
		}
		if len(h.items) == h.size && ind.Fitness <= h.items[len(h.items)-1].Fitness {
			continue
		}
		if h.contains(ind.Tree) {
			continue
		}
		h.insert(ind)
		improved = improved || h.items[0].Tree == ind.Tree
	}
	return improved
}

func (h *HallOfFame) contains(t *gp.Node) bool {
	for _, it := range h.items {
		if it.Tree.Equal(t) {
			return true
		}
	}
	return false
}

func (h *HallOfFame) insert(ind Individual) {
	pos := len(h.items)
	for i, it := range h.items {
		if ind.Fitness > it.Fitness {
			pos = i
			break
		}
	}
	h.items = append(h.items, Individual{})
	copy(h.items[pos+1:], h.items[pos:])
	h.items[pos] = ind
	if len(h.items) > h.size {
		h.items = h.items[:h.size]
	}
}

func (h *HallOfFame) Len() int { return len(h.items) }

// Best is the top entry; ok is false before anything was scored.
func (h *HallOfFame) Best() (Individual, bool) {
	if len(h.items) == 0 {
		return Individual{}, false
	}
	return h.items[0], true
}

func (h *HallOfFame) Items() []Individual {
	out := make([]Individual, len(h.items))
	copy(out, h.items)
	return out
}
