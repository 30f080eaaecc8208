package journal

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"text/template"
	"time"
)

// Report is everything the Org run report shows.
type Report struct {
	Run         Run
	Generations []GenerationRecord
	Trades      []TradeRecord
	Notes       []string
}

// Observe derives the report notes from a run and its logbook.
func Observe(r Run, gens []GenerationRecord) []string {
	var notes []string
	if n := len(gens); n > 0 {
		final := gens[n-1].Best
		for _, g := range gens {
			if g.Best == final {
				notes = append(notes, fmt.Sprintf("best rule first reached in generation %d of %d", g.Gen, gens[n-1].Gen))
				break
			}
		}
		if inv := gens[n-1].Invalid; inv > 0 {
			notes = append(notes, fmt.Sprintf("%d invalid rules in the final generation", inv))
		}
	}
	switch {
	case r.Trades == 0:
		notes = append(notes, "best rule never traded")
	case r.ForcedCloses > 0:
		notes = append(notes, fmt.Sprintf("%d of %d trades force-closed on missing bar data", r.ForcedCloses, r.Trades))
	}
	return notes
}

var orgFuncs = template.FuncMap{
	"num": func(x float64) string {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "-"
		}
		return fmt.Sprintf("%.2f", x)
	},
	"price": formatPrice,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "(unknown)"
		}
		return t.UTC().Format("2006-01-02 15:04")
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"short": shortID,
}

var orgTemplate = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders the report as an Org-mode document.
func WriteOrg(w io.Writer, r Report) error {
	if err := orgTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render org report: %w", err)
	}
	return nil
}

// WriteOrgFile renders the report to path.
func WriteOrgFile(path string, r Report) error {
	var buf bytes.Buffer
	if err := WriteOrg(&buf, r); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// FormatTradeOrg renders one trade as an Org heading with its facts in a
// PROPERTIES drawer.
func FormatTradeOrg(t TradeRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s (%s)\n", t.Instrument, t.Side, shortID(t.TradeID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.TradeID)
	fmt.Fprintf(&b, ":RUN_ID: %s\n", t.RunID)
	fmt.Fprintf(&b, ":INSTRUMENT: %s\n", t.Instrument)
	fmt.Fprintf(&b, ":SIDE: %s\n", t.Side)
	fmt.Fprintf(&b, ":BARS: %d-%d\n", t.EntryIdx, t.ExitIdx)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %.5f\n", t.EntryPrice)
	fmt.Fprintf(&b, ":STOP_PRICE: %.5f\n", t.StopPrice)
	fmt.Fprintf(&b, ":TAKE_PRICE: %.5f\n", t.TakePrice)
	fmt.Fprintf(&b, ":EXIT_PRICE: %s\n", formatPrice(t.ExitPrice))
	if !t.OpenTime.IsZero() {
		fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.OpenTime.UTC().Format(time.RFC3339))
	}
	if !t.CloseTime.IsZero() {
		fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.CloseTime.UTC().Format(time.RFC3339))
	}
	fmt.Fprintf(&b, ":REALIZED_PL: %.2f\n", t.RealizedPL)
	fmt.Fprintf(&b, ":REASON: %s\n", t.Reason)
	b.WriteString(":END:\n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

func formatPrice(x float64) string {
	if math.IsNaN(x) {
		return "-"
	}
	return fmt.Sprintf("%.5f", x)
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}

const RunOrgTemplate = `* GP RUN: {{.Run.Instrument}} {{short .Run.RunID}}
:PROPERTIES:
:RUN_ID:      {{.Run.RunID}}
:INSTRUMENT:  {{.Run.Instrument}}
:DATASET:     {{if .Run.Dataset}}{{.Run.Dataset}}{{else}}(dataset?){{end}}
:BARS:        {{.Run.Bars}}
:START_DATE:  {{date .Run.Start}}
:END_DATE:    {{date .Run.End}}
:SEED:        {{.Run.Seed}}
:POPULATION:  {{.Run.Population}}
:GENERATIONS: {{.Run.Generations}}
:EVALUATIONS: {{.Run.Evaluations}}
:FITNESS:     {{num .Run.BestFitness}}
:START_BAL:   {{num .Run.StartBalance}}
:END_BAL:     {{num .Run.EndBalance}}
:RETURN_PCT:  {{num .Run.ReturnPct}}
:MAX_DD_PCT:  {{num .Run.MaxDDPct}}
:TRADES:      {{.Run.Trades}}
:WINS:        {{.Run.Wins}}
:LOSSES:      {{.Run.Losses}}
:WIN_RATE:    {{num .Run.WinRate}}
:CREATED:     [{{(orTime .Run.Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Artifacts
{{- if .Run.TreePath}}
- Rule: [[file:{{.Run.TreePath}}]]
{{- end}}
{{- if .Run.MQLPath}}
- MQL5: [[file:{{.Run.MQLPath}}]]
{{- end}}

** Performance Summary
- Net P/L:       *{{num .Run.NetPL}}*
- Return:        *{{num .Run.ReturnPct}}%*
- Max Drawdown:  *{{num .Run.MaxDDPct}}%*
- Win Rate:      *{{num .Run.WinRate}}%*
- Forced Closes: {{.Run.ForcedCloses}}
- Duration:      {{.Run.Duration}}
{{- if .Generations}}

** Logbook
| gen | nevals |     avg |     std |     min |     max |    best |
|-----+--------+---------+---------+---------+---------+---------|
{{- range .Generations}}
| {{.Gen}} | {{.Evals}} | {{num .Avg}} | {{num .Std}} | {{num .Min}} | {{num .Max}} | {{num .Best}} |
{{- end}}
{{- end}}
{{- if .Trades}}

** Trades
| # | side | open | close | entry | exit | P/L | reason |
|---+------+------+-------+-------+------+-----+--------|
{{- range $i, $t := .Trades}}
| {{$i}} | {{$t.Side}} | {{date $t.OpenTime}} | {{date $t.CloseTime}} | {{price $t.EntryPrice}} | {{price $t.ExitPrice}} | {{num $t.RealizedPL}} | {{$t.Reason}} |
{{- end}}
{{- end}}
{{- if .Notes}}

** Observations
{{- range .Notes}}
- {{.}}
{{- end}}
{{- end}}
`
