package gp

import "math/rand"

// DefaultMaxNodes caps the size of any tree produced by Crossover or Mutate.
const DefaultMaxNodes = 17

// Crossover swaps a randomly chosen non-root subtree of a with one of b.
// When either parent has fewer than two nodes, or when either child would
// exceed maxNodes, the parents come back unchanged and changed is false.
// The parents are never modified.
func Crossover(rng *rand.Rand, a, b *Node, maxNodes int) (c1, c2 *Node, changed bool) {
	sa, sb := a.Size(), b.Size()
	if sa < 2 || sb < 2 {
		return a, b, false
	}
	i := 1 + rng.Intn(sa-1)
	j := 1 + rng.Intn(sb-1)

	subA, subB := a.At(i), b.At(j)
	c1 = a.Replace(i, subB)
	c2 = b.Replace(j, subA)

	if c1.Size() > maxNodes || c2.Size() > maxNodes {
		return a, b, false
	}
	return c1, c2, true
}

// Mutate replaces a randomly chosen subtree of t, the root included, with a
// fresh tree from g. An oversize result returns t unchanged.
func Mutate(rng *rand.Rand, g *Grammar, t *Node, maxNodes int) (*Node, bool) {
	size := t.Size()
	if size == 0 {
		return t, false
	}
	i := rng.Intn(size)
	out := t.Replace(i, g.New(rng))
	if out.Size() > maxNodes {
		return t, false
	}
	return out, true
}
