package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/gptrader/market"
)

// ATR is the Average True Range computed as a simple rolling mean of the
// last n true ranges. The first candle has no previous close, so its true
// range is just high - low.
type ATR struct {
	period int

	window  []float64
	next    int
	filled  int
	prev    market.Candle
	hasPrev bool
}

// NewATR creates a new Average True Range indicator with the given period
func NewATR(period int) *ATR {
	if period <= 0 {
		panic("ATR period must be > 0")
	}
	return &ATR{
		period: period,
		window: make([]float64, period),
	}
}

func (a *ATR) Name() string {
	return fmt.Sprintf("ATR(%d)", a.period)
}

func (a *ATR) Warmup() int {
	return a.period
}

func (a *ATR) Reset() {
	for i := range a.window {
		a.window[i] = 0
	}
	a.next = 0
	a.filled = 0
	a.hasPrev = false
}

func (a *ATR) Update(c market.Candle) {
	tr := c.High - c.Low
	if a.hasPrev {
		tr = trueRange(c, a.prev)
	}
	a.prev = c
	a.hasPrev = true

	a.window[a.next] = tr
	a.next = (a.next + 1) % a.period
	if a.filled < a.period {
		a.filled++
	}
}

func (a *ATR) Ready() bool {
	return a.filled >= a.period
}

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return math.NaN()
	}
	// summed fresh so a NaN range only poisons the windows it sits in
	sum := 0.0
	for _, tr := range a.window {
		sum += tr
	}
	return sum / float64(a.period)
}

// trueRange calculates the True Range for a candle given the previous
// candle. NaN components are skipped; it is NaN only when all three are.
func trueRange(current, previous market.Candle) float64 {
	tr := current.High - current.Low
	for _, v := range []float64{
		math.Abs(current.High - previous.Close),
		math.Abs(current.Low - previous.Close),
	} {
		if !math.IsNaN(v) && (math.IsNaN(tr) || v > tr) {
			tr = v
		}
	}
	return tr
}
