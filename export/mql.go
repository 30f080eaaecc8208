// Package export writes the two artifacts of a run: the rule in tree
// notation and an MQL5 include that recomputes the rule inside MetaTrader.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"text/template"

	"github.com/rustyeddy/gptrader/gp"
)

var ErrNotExportable = errors.New("export: tree cannot be rendered")

// Options shape the generated MQL5 function.
type Options struct {
	Function  string
	Symbol    string
	Timeframe string

	// DeadZone is the band around zero mapped to no signal. Zero gives a
	// plain sign test.
	DeadZone float64
}

func DefaultOptions() Options {
	return Options{
		Function:  "GenerateGPTradeSignal",
		Symbol:    "_Symbol",
		Timeframe: "PERIOD_M15",
		DeadZone:  0,
	}
}

// Expr renders t as a single MQL5 expression with the same semantics as the
// compiled program. Compound operands are always parenthesised.
func Expr(t *gp.Node) (string, error) {
	var sb strings.Builder
	if err := writeExpr(&sb, t); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeExpr(sb *strings.Builder, n *gp.Node) error {
	if n == nil {
		return fmt.Errorf("%w: nil node", ErrNotExportable)
	}
	if want := n.Op.Arity(); want < 0 || len(n.Args) != want {
		return fmt.Errorf("%w: %s with %d args", ErrNotExportable, n.Op, len(n.Args))
	}

	arg := func(i int) error { return writeExpr(sb, n.Args[i]) }
	seq := func(parts ...any) error {
		for _, p := range parts {
			switch v := p.(type) {
			case string:
				sb.WriteString(v)
			case int:
				if err := arg(v); err != nil {
					return err
				}
			}
		}
		return nil
	}

	switch n.Op {
	case gp.OpVar:
		if int(n.Var) >= gp.NumTerminals {
			return fmt.Errorf("%w: terminal %d", ErrNotExportable, n.Var)
		}
		sb.WriteString(n.Var.String())
		return nil
	case gp.OpConst:
		lit, err := Double(n.Value)
		if err != nil {
			return err
		}
		sb.WriteString(lit)
		return nil
	case gp.OpAdd:
		return seq("(", 0, " + ", 1, ")")
	case gp.OpSub:
		return seq("(", 0, " - ", 1, ")")
	case gp.OpMul:
		return seq("(", 0, " * ", 1, ")")
	case gp.OpDiv:
		return seq("(MathAbs(", 1, ") > ", divEpsilon, " ? ", 0, " / ", 1, " : 0.0)")
	case gp.OpGT:
		return seq("(", 0, " > ", 1, " ? 1.0 : 0.0)")
	case gp.OpLT:
		return seq("(", 0, " < ", 1, " ? 1.0 : 0.0)")
	case gp.OpIf:
		return seq("(", 0, " != 0.0 ? ", 1, " : ", 2, ")")
	}
	return fmt.Errorf("%w: op %d", ErrNotExportable, n.Op)
}

var divEpsilon = strconv.FormatFloat(gp.DivEpsilon, 'g', -1, 64)

// Double renders v as an MQL5 double literal. Negative values are wrapped
// so they can follow any binary operator.
func Double(v float64) (string, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "", fmt.Errorf("%w: constant %v", ErrNotExportable, v)
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	if v < 0 {
		s = "(" + s + ")"
	}
	return s, nil
}

type mqlData struct {
	Rule      string
	Expr      string
	Function  string
	Symbol    string
	Timeframe string
	DeadZone  string
}

// MQL renders a complete MQL5 include for t.
func MQL(t *gp.Node, o Options) ([]byte, error) {
	expr, err := Expr(t)
	if err != nil {
		return nil, err
	}
	dz, err := Double(math.Abs(o.DeadZone))
	if err != nil {
		return nil, err
	}

	tmpl, err := template.New("mql").Parse(mqlTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse mql template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, mqlData{
		Rule:      t.String(),
		Expr:      expr,
		Function:  o.Function,
		Symbol:    o.Symbol,
		Timeframe: o.Timeframe,
		DeadZone:  dz,
	})
	if err != nil {
		return nil, fmt.Errorf("render mql: %w", err)
	}
	return buf.Bytes(), nil
}

const mqlTemplate = `//+------------------------------------------------------------------+
//| Generated by gptrader                                            |
//| Rule: {{.Rule}}
//+------------------------------------------------------------------+
#ifndef GP_RULE_MQH
#define GP_RULE_MQH

int gpHandleEMA50  = INVALID_HANDLE;
int gpHandleEMA200 = INVALID_HANDLE;
int gpHandleRSI14  = INVALID_HANDLE;
int gpHandleATR14  = INVALID_HANDLE;

bool GPInitHandles()
{
   if(gpHandleEMA50 == INVALID_HANDLE)
      gpHandleEMA50 = iMA({{.Symbol}}, {{.Timeframe}}, 50, 0, MODE_EMA, PRICE_CLOSE);
   if(gpHandleEMA200 == INVALID_HANDLE)
      gpHandleEMA200 = iMA({{.Symbol}}, {{.Timeframe}}, 200, 0, MODE_EMA, PRICE_CLOSE);
   if(gpHandleRSI14 == INVALID_HANDLE)
      gpHandleRSI14 = iRSI({{.Symbol}}, {{.Timeframe}}, 14, PRICE_CLOSE);
   if(gpHandleATR14 == INVALID_HANDLE)
      gpHandleATR14 = iATR({{.Symbol}}, {{.Timeframe}}, 14);
   return gpHandleEMA50 != INVALID_HANDLE && gpHandleEMA200 != INVALID_HANDLE &&
          gpHandleRSI14 != INVALID_HANDLE && gpHandleATR14 != INVALID_HANDLE;
}

bool GPBufferValue(int handle, int shift, double &value)
{
   double buf[1];
   if(CopyBuffer(handle, 0, shift, 1, buf) != 1)
      return false;
   value = buf[0];
   return value != EMPTY_VALUE;
}

int {{.Function}}(int shift)
{
   if(!GPInitHandles())
      return 0;

   double EMA50, EMA200, RSI14, ATR14;
   if(!GPBufferValue(gpHandleEMA50, shift, EMA50))
      return 0;
   if(!GPBufferValue(gpHandleEMA200, shift, EMA200))
      return 0;
   if(!GPBufferValue(gpHandleRSI14, shift, RSI14))
      return 0;
   if(!GPBufferValue(gpHandleATR14, shift, ATR14))
      return 0;

   double result = {{.Expr}};
   if(!MathIsValidNumber(result))
      return 0;
   if(result > {{.DeadZone}})
      return 1;
   if(result < -{{.DeadZone}})
      return -1;
   return 0;
}

#endif
`
