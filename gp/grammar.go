package gp

import "math/rand"

// Grammar is the set of primitives and terminals a tree may be grown from,
// together with the height range used for fresh trees. A single Grammar is
// built once and handed to every generation and mutation call.
type Grammar struct {
	Primitives []Op
	Terminals  []Terminal

	// Ephemeral adds a constant terminal drawn uniformly from
	// [ConstMin, ConstMax] when the node is created.
	Ephemeral bool
	ConstMin  float64
	ConstMax  float64

	// MinHeight and MaxHeight bound the height of trees produced by New.
	MinHeight int
	MaxHeight int
}

// DefaultGrammar is the arithmetic/comparison/conditional grammar over the
// four indicator inputs with constants in [-1, 1] and heights 1..2.
func DefaultGrammar() *Grammar {
	return &Grammar{
		Primitives: []Op{OpAdd, OpSub, OpMul, OpDiv, OpGT, OpLT, OpIf},
		Terminals:  []Terminal{EMA50, EMA200, RSI14, ATR14},
		Ephemeral:  true,
		ConstMin:   -1,
		ConstMax:   1,
		MinHeight:  1,
		MaxHeight:  2,
	}
}

func (g *Grammar) numTerminals() int {
	n := len(g.Terminals)
	if g.Ephemeral {
		n++
	}
	return n
}

// terminalRatio is the chance that Grow stops early at a given depth.
func (g *Grammar) terminalRatio() float64 {
	t := g.numTerminals()
	return float64(t) / float64(t+len(g.Primitives))
}

func (g *Grammar) terminal(rng *rand.Rand) *Node {
	i := rng.Intn(g.numTerminals())
	if i < len(g.Terminals) {
		return Ind(g.Terminals[i])
	}
	return Const(g.ConstMin + rng.Float64()*(g.ConstMax-g.ConstMin))
}

func (g *Grammar) primitive(rng *rand.Rand) Op {
	return g.Primitives[rng.Intn(len(g.Primitives))]
}

func height(rng *rand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}

// Full grows a tree whose leaves all sit at the drawn height.
func (g *Grammar) Full(rng *rand.Rand, min, max int) *Node {
	h := height(rng, min, max)
	return g.grow(rng, 0, h, func(depth int) bool { return depth == h })
}

// Grow grows a tree whose branches may stop anywhere from min to the drawn
// height.
func (g *Grammar) Grow(rng *rand.Rand, min, max int) *Node {
	h := height(rng, min, max)
	ratio := g.terminalRatio()
	return g.grow(rng, 0, h, func(depth int) bool {
		return depth == h || (depth >= min && rng.Float64() < ratio)
	})
}

// HalfAndHalf picks Full or Grow with equal probability.
func (g *Grammar) HalfAndHalf(rng *rand.Rand, min, max int) *Node {
	if rng.Intn(2) == 0 {
		return g.Grow(rng, min, max)
	}
	return g.Full(rng, min, max)
}

// New returns a fresh random tree within the grammar's height range.
func (g *Grammar) New(rng *rand.Rand) *Node {
	return g.HalfAndHalf(rng, g.MinHeight, g.MaxHeight)
}

func (g *Grammar) grow(rng *rand.Rand, depth, h int, stop func(int) bool) *Node {
	if len(g.Primitives) == 0 || stop(depth) {
		return g.terminal(rng)
	}
	op := g.primitive(rng)
	n := &Node{Op: op, Args: make([]*Node, op.Arity())}
	for i := range n.Args {
		n.Args[i] = g.grow(rng, depth+1, h, stop)
	}
	return n
}
