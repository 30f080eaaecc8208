package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/gptrader/market"
)

// RSI is the Relative Strength Index with Wilder smoothing (alpha = 1/n)
// applied from the first price change. The first candle only seeds the
// previous close, so the value is NaN until a second candle arrives.
type RSI struct {
	n     int
	alpha float64

	prev    float64
	hasPrev bool
	count   int
	avgGain float64
	avgLoss float64
}

func NewRSI(period int) *RSI {
	if period <= 0 {
		panic("RSI period must be > 0")
	}
	return &RSI{n: period, alpha: 1.0 / float64(period)}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI(%d)", r.n) }
func (r *RSI) Warmup() int  { return 2 }
func (r *RSI) Ready() bool  { return r.count > 0 }

func (r *RSI) Reset() {
	*r = RSI{n: r.n, alpha: r.alpha}
}

func (r *RSI) Update(c market.Candle) {
	if math.IsNaN(c.Close) {
		return
	}
	if !r.hasPrev {
		r.prev = c.Close
		r.hasPrev = true
		return
	}

	change := c.Close - r.prev
	r.prev = c.Close

	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	// the first bar contributes a zero gain and loss to the average
	r.avgGain = r.alpha*gain + (1-r.alpha)*r.avgGain
	r.avgLoss = r.alpha*loss + (1-r.alpha)*r.avgLoss
	r.count++
}

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return math.NaN()
	}
	if r.avgLoss == 0 {
		if r.avgGain == 0 {
			return math.NaN()
		}
		return 100
	}
	rs := r.avgGain / r.avgLoss
	return 100 - 100/(1+rs)
}
