package ingestion

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/internal/marketdata"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"go.uber.org/zap"
)

const (
	MessageAdded    = "Stock data added"
	MessageUpdated  = "Updated"
	MessageUpToDate = "Up-to-date"
)

const defaultMaxRetries = 3

// Result summarizes one ingestion run.
type Result struct {
	Symbol    string          `json:"symbol" yaml:"symbol"`
	Timeframe types.Timeframe `json:"timeframe" yaml:"timeframe"`
	Rows      int             `json:"rows" yaml:"rows"`
	Affected  int             `json:"affected" yaml:"affected"`
	Message   string          `json:"-" yaml:"-"`
}

// Ingestor copies provider history into the price store.
type Ingestor struct {
	provider   Provider
	store      marketdata.PriceStore
	logger     *logger.Logger
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// Option configures an Ingestor.
type Option func(*Ingestor)

// WithBackOff replaces the retry policy for provider calls.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(i *Ingestor) {
		i.newBackOff = newBackOff
	}
}

// WithClock replaces the clock used to decide whether a symbol is up to date.
func WithClock(now func() time.Time) Option {
	return func(i *Ingestor) {
		i.now = now
	}
}

// NewIngestor creates an Ingestor.
func NewIngestor(provider Provider, store marketdata.PriceStore, logger *logger.Logger, opts ...Option) *Ingestor {
	i := &Ingestor{
		provider: provider,
		store:    store,
		logger:   logger,
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), defaultMaxRetries)
		},
		now: time.Now,
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// AddFullHistory downloads every available bar of symbol and upserts it.
// A provider returning nothing is reported as ErrCodeNoData.
func (i *Ingestor) AddFullHistory(ctx context.Context, symbol string, timeframe string) (Result, error) {
	sym, tf, err := validate(symbol, timeframe)
	if err != nil {
		return Result{}, err
	}

	bars, err := i.download(ctx, sym, types.NoBound())
	if err != nil {
		return Result{}, err
	}

	if len(bars) == 0 {
		return Result{}, errors.Newf(errors.ErrCodeNoData, "No data returned for %s", sym)
	}

	affected, err := i.store.Upsert(ctx, sym, tf, bars)
	if err != nil {
		return Result{}, err
	}

	return Result{Symbol: sym, Timeframe: tf, Rows: len(bars), Affected: affected, Message: MessageAdded}, nil
}

// UpdateSinceLatest downloads the bars after the newest stored one. With nothing stored
// it falls back to AddFullHistory.
func (i *Ingestor) UpdateSinceLatest(ctx context.Context, symbol string, timeframe string) (Result, error) {
	sym, tf, err := validate(symbol, timeframe)
	if err != nil {
		return Result{}, err
	}

	latest, err := i.store.LatestTimestamp(ctx, sym, tf)
	if err != nil {
		return Result{}, err
	}

	if latest.IsNone() {
		i.logger.Info("No stored prices, downloading full history", zap.String("symbol", sym))

		return i.AddFullHistory(ctx, sym, string(tf))
	}

	start := types.TruncateToDate(latest.Unwrap()).AddDate(0, 0, 1)
	upToDate := Result{Symbol: sym, Timeframe: tf, Rows: 0, Affected: 0, Message: MessageUpToDate}

	if start.After(types.TruncateToDate(i.now())) {
		return upToDate, nil
	}

	bars, err := i.download(ctx, sym, types.BoundAt(start))
	if err != nil {
		return Result{}, err
	}

	if len(bars) == 0 {
		return upToDate, nil
	}

	affected, err := i.store.Upsert(ctx, sym, tf, bars)
	if err != nil {
		return Result{}, err
	}

	return Result{Symbol: sym, Timeframe: tf, Rows: len(bars), Affected: affected, Message: MessageUpdated}, nil
}

//nolint:funcorder // helper method used by exported methods
func (i *Ingestor) download(ctx context.Context, symbol string, start types.DateBound) ([]types.PriceBar, error) {
	var bars []types.PriceBar

	attempt := 0

	operation := func() error {
		attempt++

		result, err := i.provider.History(ctx, symbol, start, types.NoBound())
		if err != nil {
			if ctx.Err() != nil || errors.HasCode(err, errors.ErrCodeProviderRejected) {
				return backoff.Permanent(err)
			}

			return err
		}

		bars = result

		return nil
	}

	notify := func(err error, wait time.Duration) {
		i.logger.Warn("Provider request failed, retrying",
			zap.String("provider", i.provider.Name()),
			zap.String("symbol", symbol),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(i.newBackOff(), ctx), notify); err != nil {
		if errors.GetCode(err) != errors.ErrCodeUnknown {
			return nil, err
		}

		return nil, errors.FromContext(err, errors.ErrCodeFetchFailed, "Fetch failed for "+symbol)
	}

	i.logger.Info("Downloaded prices",
		zap.String("provider", i.provider.Name()),
		zap.String("symbol", symbol),
		zap.Int("rows", len(bars)),
	)

	return bars, nil
}

func validate(symbol string, timeframe string) (string, types.Timeframe, error) {
	sym := types.NormalizeSymbol(symbol)
	if sym == "" {
		return "", "", errors.New(errors.ErrCodeMissingParameter, "Please enter a valid symbol")
	}

	tf, err := types.ParseTimeframe(timeframe)
	if err != nil {
		return "", "", err
	}

	return sym, tf, nil
}
