package indicators

import "github.com/rustyeddy/gptrader/market"

// Periods used by the rule terminals.
const (
	FastEMAPeriod = 50
	SlowEMAPeriod = 200
	RSIPeriod     = 14
	ATRPeriod     = 14
)

// Enrich recomputes EMA50, EMA200, RSI14 and ATR14 for every bar from its
// OHLC values. Bars whose indicators are not ready yet keep NaN there.
func Enrich(bars []market.Bar) []market.Bar {
	var (
		fast = NewEMA(FastEMAPeriod)
		slow = NewEMA(SlowEMAPeriod)
		rsi  = NewRSI(RSIPeriod)
		atr  = NewATR(ATRPeriod)
	)

	out := make([]market.Bar, len(bars))
	for i, b := range bars {
		for _, ind := range []Indicator{fast, slow, rsi, atr} {
			ind.Update(b.Candle)
		}
		b.EMA50 = fast.Value()
		b.EMA200 = slow.Value()
		b.RSI14 = rsi.Value()
		b.ATR14 = atr.Value()
		out[i] = b
	}
	return out
}

// DropIncomplete returns the bars that carry every indicator value, in
// order.
func DropIncomplete(bars []market.Bar) []market.Bar {
	out := make([]market.Bar, 0, len(bars))
	for _, b := range bars {
		if b.HasIndicators() {
			out = append(out, b)
		}
	}
	return out
}

// Prepare turns loaded bars into the sequence the rule engine consumes:
// indicators are computed unless the source already carried them, and
// incomplete rows are dropped.
func Prepare(bars []market.Bar, enriched bool) []market.Bar {
	if !enriched {
		bars = Enrich(bars)
	}
	return DropIncomplete(bars)
}
