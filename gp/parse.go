package gp

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Parse reads a tree written in the prefix notation produced by
// Node.String, e.g. "if_func(gt(EMA50, EMA200), 1, -1)".
func Parse(s string) (*Node, error) {
	p := &parser{src: s}
	n, err := p.expr()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("parse %q: unexpected %q at %d", s, p.src[p.pos:], p.pos)
	}
	return n, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) token() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := rune(p.src[p.pos])
		if c == '(' || c == ')' || c == ',' || unicode.IsSpace(c) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) expect(c byte) error {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != c {
		return fmt.Errorf("parse %q: expected %q at %d", p.src, c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) expr() (*Node, error) {
	tok := p.token()
	if tok == "" {
		return nil, fmt.Errorf("parse %q: expected expression at %d", p.src, p.pos)
	}

	for i, name := range terminalNames {
		if strings.EqualFold(tok, name) {
			return Ind(Terminal(i)), nil
		}
	}
	if v, err := strconv.ParseFloat(tok, 64); err == nil {
		return Const(v), nil
	}

	op, ok := opByName(tok)
	if !ok {
		return nil, fmt.Errorf("parse %q: unknown symbol %q", p.src, tok)
	}
	if err := p.expect('('); err != nil {
		return nil, err
	}
	n := &Node{Op: op, Args: make([]*Node, op.Arity())}
	for i := range n.Args {
		if i > 0 {
			if err := p.expect(','); err != nil {
				return nil, err
			}
		}
		arg, err := p.expr()
		if err != nil {
			return nil, err
		}
		n.Args[i] = arg
	}
	if err := p.expect(')'); err != nil {
		return nil, err
	}
	return n, nil
}

func opByName(name string) (Op, bool) {
	for op := OpAdd; op <= OpIf; op++ {
		if op.String() == name {
			return op, true
		}
	}
	return 0, false
}
