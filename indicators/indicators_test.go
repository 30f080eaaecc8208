package indicators

import (
	"math"
	"testing"

	"github.com/rustyeddy/gptrader/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closeCandle(c float64) market.Candle {
	return market.Candle{Open: c, High: c, Low: c, Close: c}
}

func TestEMAKnownSequence(t *testing.T) {
	t.Parallel()

	ema := NewEMA(3)
	assert.False(t, ema.Ready())
	assert.True(t, math.IsNaN(ema.Value()))

	// alpha = 0.5: 10, 10.5, 11.25, 12.125
	for _, v := range []float64{10, 11, 12, 13} {
		ema.Update(closeCandle(v))
	}
	require.True(t, ema.Ready())
	assert.InDelta(t, 12.125, ema.Value(), 1e-12)
	assert.Equal(t, "EMA(3)", ema.Name())

	ema.Reset()
	assert.False(t, ema.Ready())
}

func TestRSI(t *testing.T) {
	t.Parallel()

	rsi := NewRSI(2)
	rsi.Update(closeCandle(10))
	assert.False(t, rsi.Ready())
	assert.True(t, math.IsNaN(rsi.Value()))

	// only gains so far
	rsi.Update(closeCandle(11))
	require.True(t, rsi.Ready())
	assert.Equal(t, 100.0, rsi.Value())

	// alpha = 0.5
	// gain: 0.5*1 = 0.5 then 0.25; loss: 0 then 0.5*2 = 1
	rsi.Update(closeCandle(9))
	assert.InDelta(t, 100-100/(1+0.25/1.0), rsi.Value(), 1e-12)

	rsi.Reset()
	assert.False(t, rsi.Ready())
}

func TestRSIFlatIsUndefined(t *testing.T) {
	t.Parallel()

	rsi := NewRSI(14)
	for i := 0; i < 5; i++ {
		rsi.Update(closeCandle(1.1))
	}
	assert.True(t, rsi.Ready())
	assert.True(t, math.IsNaN(rsi.Value()))
}

func TestATRRollingMean(t *testing.T) {
	t.Parallel()

	atr := NewATR(3)
	candles := []market.Candle{
		{High: 10, Low: 8, Close: 9},   // tr 2 (no previous close)
		{High: 11, Low: 9, Close: 10},  // tr 2
		{High: 12, Low: 10, Close: 11}, // tr 2
		{High: 15, Low: 11, Close: 14}, // tr 4
	}

	atr.Update(candles[0])
	atr.Update(candles[1])
	assert.False(t, atr.Ready())
	assert.True(t, math.IsNaN(atr.Value()))

	atr.Update(candles[2])
	require.True(t, atr.Ready())
	assert.InDelta(t, 2.0, atr.Value(), 1e-12)

	atr.Update(candles[3])
	assert.InDelta(t, 8.0/3.0, atr.Value(), 1e-12)
	assert.Equal(t, 3, atr.Warmup())
}

func TestTrueRange(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	tests := []struct {
		name      string
		current   market.Candle
		prevClose float64
		want      float64
	}{
		{"gap up", market.Candle{High: 110, Low: 100}, 120, 20},
		{"inside range", market.Candle{High: 110, Low: 100}, 105, 10},
		{"missing previous close", market.Candle{High: 110, Low: 100}, nan, 10},
		{"missing low", market.Candle{High: 110, Low: nan}, 104, 6},
		{"missing high", market.Candle{High: nan, Low: 100}, 103, 3},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, trueRange(tt.current, market.Candle{Close: tt.prevClose}))
		})
	}

	assert.True(t, math.IsNaN(trueRange(market.Candle{High: nan, Low: nan}, market.Candle{Close: 1})))
}

func TestPrepareDropsWarmup(t *testing.T) {
	t.Parallel()

	bars := make([]market.Bar, 30)
	for i := range bars {
		c := 1.1 + 0.001*float64(i%5) - 0.0005*float64(i%3)
		bars[i] = market.Bar{Candle: market.Candle{Open: c, High: c + 0.001, Low: c - 0.001, Close: c}}
	}

	out := Prepare(bars, false)
	require.Len(t, out, 30-ATRPeriod+1)
	for _, b := range out {
		assert.True(t, b.HasIndicators())
	}
	// first complete row is the bar where ATR14 becomes ready
	assert.Equal(t, bars[ATRPeriod-1].Close, out[0].Close)
}

func TestPrepareKeepsProvidedIndicators(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	bars := []market.Bar{
		{EMA50: 1, EMA200: 1, RSI14: 50, ATR14: nan},
		{EMA50: 1.2, EMA200: 1.1, RSI14: 60, ATR14: 0.001},
	}
	out := Prepare(bars, true)
	require.Len(t, out, 1)
	assert.Equal(t, 60.0, out[0].RSI14)
}
