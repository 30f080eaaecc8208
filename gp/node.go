// Package gp implements the expression trees evolved by gptrader: the node
// variants, the grammar used to grow random trees, the size-bounded genetic
// operators and a compiler that flattens a tree into a stack program.
package gp

import (
	"fmt"
	"strconv"
	"strings"
)

// Op identifies the kind of a Node.
type Op uint8

const (
	OpAdd Op = iota
	OpSub
	OpMul
	OpDiv // protected division
	OpGT
	OpLT
	OpIf
	OpVar
	OpConst
)

var opNames = [...]string{
	OpAdd:   "add",
	OpSub:   "sub",
	OpMul:   "mul",
	OpDiv:   "protected_div",
	OpGT:    "gt",
	OpLT:    "lt",
	OpIf:    "if_func",
	OpVar:   "var",
	OpConst: "const",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", o)
}

// Arity returns the number of children a node of this kind carries, or -1
// for an unknown op.
func (o Op) Arity() int {
	switch o {
	case OpAdd, OpSub, OpMul, OpDiv, OpGT, OpLT:
		return 2
	case OpIf:
		return 3
	case OpVar, OpConst:
		return 0
	}
	return -1
}

// Terminal is one of the indicator inputs a rule can read.
type Terminal uint8

const (
	EMA50 Terminal = iota
	EMA200
	RSI14
	ATR14

	NumTerminals = 4
)

var terminalNames = [NumTerminals]string{"EMA50", "EMA200", "RSI14", "ATR14"}

// Terminals lists every indicator input in input order.
var Terminals = []Terminal{EMA50, EMA200, RSI14, ATR14}

func (t Terminal) String() string {
	if int(t) < NumTerminals {
		return terminalNames[t]
	}
	return fmt.Sprintf("terminal(%d)", t)
}

// Node is a single expression tree node. Trees are treated as immutable:
// nothing in this package modifies a node after construction, and the
// operators build new paths instead of editing in place. Unchanged subtrees
// may be shared between trees.
type Node struct {
	Op    Op
	Var   Terminal // OpVar only
	Value float64  // OpConst only
	Args  []*Node
}

func binary(op Op, a, b *Node) *Node { return &Node{Op: op, Args: []*Node{a, b}} }

func Add(a, b *Node) *Node { return binary(OpAdd, a, b) }
func Sub(a, b *Node) *Node { return binary(OpSub, a, b) }
func Mul(a, b *Node) *Node { return binary(OpMul, a, b) }
func Div(a, b *Node) *Node { return binary(OpDiv, a, b) }
func GT(a, b *Node) *Node  { return binary(OpGT, a, b) }
func LT(a, b *Node) *Node  { return binary(OpLT, a, b) }

// If selects then when cond is non-zero and otherwise else.
func If(cond, then, els *Node) *Node {
	return &Node{Op: OpIf, Args: []*Node{cond, then, els}}
}

// Ind returns a terminal node reading indicator t.
func Ind(t Terminal) *Node { return &Node{Op: OpVar, Var: t} }

// Const returns a constant leaf.
func Const(v float64) *Node { return &Node{Op: OpConst, Value: v} }

// Size is the number of nodes in the tree.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	s := 1
	for _, a := range n.Args {
		s += a.Size()
	}
	return s
}

// Depth is the height of the tree; a lone leaf has depth 0.
func (n *Node) Depth() int {
	if n == nil {
		return 0
	}
	d := 0
	for _, a := range n.Args {
		if ad := a.Depth() + 1; ad > d {
			d = ad
		}
	}
	return d
}

// At returns the i-th node in preorder, or nil when i is out of range.
func (n *Node) At(i int) *Node {
	if n == nil || i < 0 {
		return nil
	}
	if i == 0 {
		return n
	}
	i--
	for _, a := range n.Args {
		s := a.Size()
		if i < s {
			return a.At(i)
		}
		i -= s
	}
	return nil
}

// Replace returns a copy of the tree with the i-th preorder subtree swapped
// for sub. Only the nodes on the path to i are copied. An out of range index
// returns the receiver.
func (n *Node) Replace(i int, sub *Node) *Node {
	if i == 0 {
		return sub
	}
	if n == nil || i < 0 {
		return n
	}
	i--
	for k, a := range n.Args {
		s := a.Size()
		if i < s {
			out := *n
			out.Args = make([]*Node, len(n.Args))
			copy(out.Args, n.Args)
			out.Args[k] = a.Replace(i, sub)
			return &out
		}
		i -= s
	}
	return n
}

// Equal reports whether two trees have the same structure and leaves.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Op != o.Op || len(n.Args) != len(o.Args) {
		return false
	}
	switch n.Op {
	case OpVar:
		if n.Var != o.Var {
			return false
		}
	case OpConst:
		if n.Value != o.Value {
			return false
		}
	}
	for i := range n.Args {
		if !n.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// String renders the tree in prefix notation, e.g.
// if_func(gt(EMA50, EMA200), 1, -1).
func (n *Node) String() string {
	var sb strings.Builder
	n.write(&sb)
	return sb.String()
}

func (n *Node) write(sb *strings.Builder) {
	if n == nil {
		sb.WriteString("<nil>")
		return
	}
	switch n.Op {
	case OpVar:
		sb.WriteString(n.Var.String())
		return
	case OpConst:
		sb.WriteString(FormatConst(n.Value))
		return
	}
	sb.WriteString(n.Op.String())
	sb.WriteByte('(')
	for i, a := range n.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		a.write(sb)
	}
	sb.WriteByte(')')
}

// FormatConst formats a constant with the shortest representation that
// round-trips.
func FormatConst(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
