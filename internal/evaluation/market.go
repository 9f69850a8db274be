package evaluation

import (
	"context"

	"github.com/rxtech-lab/argo-eval/internal/ingestion"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/internal/marketdata"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"go.uber.org/zap"
)

const MessageHistory = "Stock data successfully retrieved"

var errNoProvider = errors.New(errors.ErrCodeInvalidProvider, "no market data provider configured")

// Ingester loads provider history into the price store.
type Ingester interface {
	AddFullHistory(ctx context.Context, symbol string, timeframe string) (ingestion.Result, error)
	UpdateSinceLatest(ctx context.Context, symbol string, timeframe string) (ingestion.Result, error)
}

// History is the data of a price history read.
type History struct {
	Symbol    string           `json:"symbol" yaml:"symbol"`
	Timeframe types.Timeframe  `json:"timeframe" yaml:"timeframe"`
	Count     int              `json:"count" yaml:"count"`
	Prices    []types.PriceBar `json:"prices" yaml:"prices"`
}

// MarketService exposes the price store and the ingestor through the result envelope.
type MarketService struct {
	prices   marketdata.PriceStore
	ingester Ingester
	logger   *logger.Logger
}

// NewMarketService creates a MarketService. ingester may be nil when no provider is
// configured; ingestion requests then fail with FETCH_ERROR.
func NewMarketService(prices marketdata.PriceStore, ingester Ingester, logger *logger.Logger) *MarketService {
	return &MarketService{prices: prices, ingester: ingester, logger: logger}
}

// History returns the stored bars of symbol within the inclusive date range.
func (m *MarketService) History(ctx context.Context, symbol, timeframe, start, end string) Response {
	sym := types.NormalizeSymbol(symbol)
	if sym == "" {
		return failWith(errors.New(errors.ErrCodeMissingParameter, "Please enter a valid symbol"))
	}

	tf, err := types.ParseTimeframe(timeframe)
	if err != nil {
		return failWith(err)
	}

	startBound, err := types.ParseDateBound(start)
	if err != nil {
		return failWith(err)
	}

	endBound, err := types.ParseDateBound(end)
	if err != nil {
		return failWith(err)
	}

	series, err := m.prices.Fetch(ctx, sym, tf, startBound, endBound)
	if err != nil {
		m.logger.Error("Failed to read prices", zap.String("symbol", sym), zap.Error(err))

		if errors.GetCode(err) == errors.ErrCodeUnknown {
			err = errors.FromContext(err, errors.ErrCodeFetchFailed, "failed to load prices")
		}

		return failWith(err)
	}

	return ok(MessageHistory, History{Symbol: sym, Timeframe: tf, Count: series.Len(), Prices: series.Bars()})
}

// AddFullHistory ingests every available bar of symbol.
func (m *MarketService) AddFullHistory(ctx context.Context, symbol, timeframe string) Response {
	if m.ingester == nil {
		return failWith(errNoProvider)
	}

	return m.ingest(symbol, func() (ingestion.Result, error) {
		return m.ingester.AddFullHistory(ctx, symbol, defaultTimeframe(timeframe))
	})
}

// UpdateSinceLatest ingests the bars after the newest stored one.
func (m *MarketService) UpdateSinceLatest(ctx context.Context, symbol, timeframe string) Response {
	if m.ingester == nil {
		return failWith(errNoProvider)
	}

	return m.ingest(symbol, func() (ingestion.Result, error) {
		return m.ingester.UpdateSinceLatest(ctx, symbol, defaultTimeframe(timeframe))
	})
}

//nolint:funcorder // helper method used by exported methods
func (m *MarketService) ingest(symbol string, call func() (ingestion.Result, error)) Response {
	result, err := call()
	if err != nil {
		m.logger.Error("Ingestion failed", zap.String("symbol", symbol), zap.Error(err))

		return failWith(err)
	}

	return ok(result.Message, result)
}

func defaultTimeframe(timeframe string) string {
	if timeframe == "" {
		return string(types.DefaultTimeframe)
	}

	return timeframe
}
