package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/gptrader/market"
)

// EMA is an exponential moving average over closes with alpha = 2/(n+1).
// It is seeded with the first close and is defined from the first update.
type EMA struct {
	n     int
	alpha float64

	seen  int
	value float64
}

func NewEMA(period int) *EMA {
	if period <= 0 {
		panic("EMA period must be > 0")
	}
	return &EMA{n: period, alpha: 2.0 / float64(period+1)}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.n) }
func (e *EMA) Warmup() int  { return 1 }
func (e *EMA) Ready() bool  { return e.seen > 0 }

func (e *EMA) Reset() {
	e.seen = 0
	e.value = 0
}

func (e *EMA) Update(c market.Candle) {
	if math.IsNaN(c.Close) {
		return
	}
	e.seen++
	if e.seen == 1 {
		e.value = c.Close
		return
	}
	e.value = e.alpha*c.Close + (1.0-e.alpha)*e.value
}

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return math.NaN()
	}
	return e.value
}
