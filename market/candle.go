package market

import (
	"math"
	"time"
)

// Candle represents raw OHLC (Open, High, Low, Close) data for one period.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Bar is a candle enriched with the indicator values the rule engine reads.
// A value that is not available is NaN.
type Bar struct {
	Candle

	EMA50  float64
	EMA200 float64
	RSI14  float64
	ATR14  float64
}

// HasIndicators reports whether every indicator value is present.
func (b Bar) HasIndicators() bool {
	return !math.IsNaN(b.EMA50) && !math.IsNaN(b.EMA200) &&
		!math.IsNaN(b.RSI14) && !math.IsNaN(b.ATR14)
}
