package gp

import (
	"errors"
	"fmt"
	"math"
)

// DivEpsilon is the magnitude at or below which a divisor counts as zero.
const DivEpsilon = 1e-8

// ErrMalformed is returned by Compile for trees that cannot be evaluated.
var ErrMalformed = errors.New("gp: malformed tree")

// ProtectedDiv returns a/b, or 0 when |b| <= DivEpsilon.
func ProtectedDiv(a, b float64) float64 {
	if math.Abs(b) > DivEpsilon {
		return a / b
	}
	return 0.0
}

func truth(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// Inputs holds one value per Terminal, indexed by the Terminal.
type Inputs [NumTerminals]float64

type instr struct {
	op    Op
	term  Terminal
	value float64
}

// Program is a tree flattened into postfix order. It is read-only after
// Compile and safe for concurrent use.
type Program struct {
	code     []instr
	maxStack int
}

// Compile validates t and flattens it into a Program.
func Compile(t *Node) (*Program, error) {
	p := &Program{}
	depth := 0
	if err := p.emit(t, &depth); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Program) emit(n *Node, depth *int) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrMalformed)
	}
	ar := n.Op.Arity()
	if ar < 0 {
		return fmt.Errorf("%w: unknown op %d", ErrMalformed, n.Op)
	}
	if len(n.Args) != ar {
		return fmt.Errorf("%w: %s takes %d args, got %d", ErrMalformed, n.Op, ar, len(n.Args))
	}
	switch n.Op {
	case OpVar:
		if int(n.Var) >= NumTerminals {
			return fmt.Errorf("%w: unknown terminal %d", ErrMalformed, n.Var)
		}
	case OpConst:
		if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
			return fmt.Errorf("%w: non-finite constant", ErrMalformed)
		}
	}
	for _, a := range n.Args {
		if err := p.emit(a, depth); err != nil {
			return err
		}
	}
	p.code = append(p.code, instr{op: n.Op, term: n.Var, value: n.Value})

	// every instruction leaves exactly one value behind
	*depth += 1 - ar
	if ar == 0 && *depth > p.maxStack {
		p.maxStack = *depth
	}
	return nil
}

// Len is the number of instructions in the program.
func (p *Program) Len() int { return len(p.code) }

// Eval runs the program against one set of inputs.
func (p *Program) Eval(in Inputs) float64 {
	var buf [32]float64
	stack := buf[:0]
	if p.maxStack > len(buf) {
		stack = make([]float64, 0, p.maxStack)
	}

	for _, ins := range p.code {
		switch ins.op {
		case OpVar:
			stack = append(stack, in[ins.term])
		case OpConst:
			stack = append(stack, ins.value)
		case OpIf:
			n := len(stack)
			cond, a, b := stack[n-3], stack[n-2], stack[n-1]
			stack = stack[:n-3]
			if cond != 0 {
				stack = append(stack, a)
			} else {
				stack = append(stack, b)
			}
		default:
			n := len(stack)
			a, b := stack[n-2], stack[n-1]
			stack = stack[:n-2]
			stack = append(stack, apply(ins.op, a, b))
		}
	}
	return stack[0]
}

func apply(op Op, a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return ProtectedDiv(a, b)
	case OpGT:
		return truth(a > b)
	case OpLT:
		return truth(a < b)
	}
	panic(fmt.Sprintf("gp: op %s is not binary", op))
}
