package marketdata

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-eval/internal/types"
)

// PriceStore reads and writes OHLCV bars keyed by (symbol, timeframe, ts).
type PriceStore interface {
	// Fetch returns the bars within the inclusive [start, end] date range in ascending
	// order. An absent bound leaves that side open. No bars is an empty series, not an error.
	Fetch(ctx context.Context, symbol string, timeframe types.Timeframe, start, end types.DateBound) (types.TimeSeries, error)
	// Upsert writes bars, replacing existing bars with the same timestamp, and returns
	// the number of rows written.
	Upsert(ctx context.Context, symbol string, timeframe types.Timeframe, bars []types.PriceBar) (int, error)
	// LatestTimestamp returns the newest stored timestamp, or None when nothing is stored.
	LatestTimestamp(ctx context.Context, symbol string, timeframe types.Timeframe) (optional.Option[time.Time], error)
}
