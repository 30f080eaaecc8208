package backtest

// Params controls the trade simulation and the fitness penalties.
type Params struct {
	InitialEquity float64
	RiskPct       float64 // fraction of equity risked per trade, 0.01 = 1%

	StopATR float64 // stop distance in ATR14 multiples
	TakeATR float64 // take-profit distance in ATR14 multiples

	// Slippage is added to long entries and subtracted from short entries,
	// in price units.
	Slippage float64

	// SignalThreshold is the dead-zone around zero: results above it go
	// long, below its negative go short.
	SignalThreshold float64

	// MinATR blocks signals when ATR14 is at or below it.
	MinATR float64

	Penalties Penalties
}

// Penalties are subtracted from the return percentage independently.
type Penalties struct {
	MinTrades    int
	TradePenalty float64

	MaxDrawdownPct  float64
	DrawdownPenalty float64

	MinReturnPct  float64
	ReturnPenalty float64
}

// DefaultParams risks 1% of a 10,000 account per trade with a 1.5 ATR stop,
// a 3.5 ATR target and 3 pips of EUR_USD slippage.
func DefaultParams() Params {
	return Params{
		InitialEquity:   10_000,
		RiskPct:         0.01,
		StopATR:         1.5,
		TakeATR:         3.5,
		Slippage:        3 * 0.0001,
		SignalThreshold: 0.5,
		MinATR:          1e-7,
		Penalties:       DefaultPenalties(),
	}
}

func DefaultPenalties() Penalties {
	return Penalties{
		MinTrades:       10,
		TradePenalty:    50,
		MaxDrawdownPct:  5,
		DrawdownPenalty: 50,
		MinReturnPct:    8,
		ReturnPenalty:   25,
	}
}
