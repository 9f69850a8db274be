package cache

import (
	"context"

	"github.com/moznion/go-optional"
)

// SignalCache stores signal computations.
// Get reports a miss as None with a nil error; an error means the lookup itself failed.
// Put overwrites any existing entry with the same key.
type SignalCache interface {
	GetSignals(ctx context.Context, key SignalKey) (optional.Option[SignalPayload], error)
	PutSignals(ctx context.Context, key SignalKey, payload SignalPayload) error
}

// BacktestCache stores backtest results with the same contract as SignalCache.
type BacktestCache interface {
	GetBacktest(ctx context.Context, key BacktestKey) (optional.Option[BacktestPayload], error)
	PutBacktest(ctx context.Context, key BacktestKey, payload BacktestPayload) error
}

// Store is a backend serving both caches.
type Store interface {
	SignalCache
	BacktestCache
	Close() error
}

// SchemaVersion is the layout version of persisted cache entries.
const SchemaVersion = "1.0.0"
