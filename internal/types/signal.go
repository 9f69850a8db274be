package types

// Side is the direction of a signal.
type Side string

const (
	// SideBuy opens a long position.
	SideBuy Side = "buy"
	// SideSell closes the open long position.
	SideSell Side = "sell"
)

// Signal is a discrete buy/sell event attached to a bar index of a TimeSeries.
type Signal struct {
	// Index is the zero-based position into the series.
	Index int `json:"index" yaml:"index"`
	// Side is either buy or sell.
	Side Side `json:"side" yaml:"side"`
}

// Buy returns a buy signal at index i.
func Buy(i int) Signal {
	return Signal{Index: i, Side: SideBuy}
}

// Sell returns a sell signal at index i.
func Sell(i int) Signal {
	return Signal{Index: i, Side: SideSell}
}

// Metrics summarizes a backtest. All fields derive deterministically from
// (series, signals, invested amount).
type Metrics struct {
	// FinalEquity is cash plus the open position marked at the last close, rounded to 2dp.
	FinalEquity float64 `json:"final_equity" yaml:"final_equity"`
	// ReturnPct is FinalEquity / invested - 1, rounded to 6dp. Zero when nothing was invested.
	ReturnPct float64 `json:"return_pct" yaml:"return_pct"`
	// TradeCount counts completed buy to sell round trips.
	TradeCount int `json:"trade_count" yaml:"trade_count"`
	// Wins counts round trips whose exit price was strictly above the entry price.
	Wins int `json:"wins" yaml:"wins"`
	// WinRate is Wins / TradeCount rounded to 6dp, zero without trades.
	WinRate float64 `json:"win_rate" yaml:"win_rate"`
}
