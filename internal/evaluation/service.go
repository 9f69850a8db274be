package evaluation

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-eval/internal/cache"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/internal/marketdata"
	"github.com/rxtech-lab/argo-eval/internal/strategy"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"go.uber.org/zap"
)

// Service runs strategy evaluations: it resolves the request, loads the series, consults
// the caches and computes what is missing. Every failure short-circuits and nothing is
// cached for a failed request.
type Service struct {
	registry        *strategy.Registry
	prices          marketdata.PriceStore
	signals         cache.SignalCache
	backtests       cache.BacktestCache
	logger          *logger.Logger
	validate        *validator.Validate
	metrics         *Metrics
	defaultInvested float64
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records request and cache metrics.
func WithMetrics(metrics *Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithDefaultInvested sets the starting cash used when a backtest request names none.
func WithDefaultInvested(invested float64) Option {
	return func(s *Service) {
		s.defaultInvested = invested
	}
}

// NewService wires an evaluation service.
func NewService(
	registry *strategy.Registry,
	prices marketdata.PriceStore,
	signals cache.SignalCache,
	backtests cache.BacktestCache,
	logger *logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		registry:        registry,
		prices:          prices,
		signals:         signals,
		backtests:       backtests,
		logger:          logger,
		validate:        newValidator(),
		metrics:         nil,
		defaultInvested: DefaultInvested,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ListStrategies describes every registered strategy.
func (s *Service) ListStrategies() Response {
	return ok(MessageListed, s.registry.List())
}

// GetStrategy describes one strategy.
func (s *Service) GetStrategy(key string) Response {
	info, found := s.registry.Describe(key)
	if !found {
		return fail(MessageStrategyAbsent, errors.ResponseNotFound, "no strategy registered under "+key)
	}

	return ok(MessageStrategyFound, info)
}

// ComputeSignals returns the normalized signals of a strategy, served from the signal
// cache when the same parameters and bounds were evaluated on the same data version.
func (s *Service) ComputeSignals(ctx context.Context, req Request) (resp Response) {
	started := time.Now()

	defer func() {
		s.metrics.observe(OperationSignals, started, resp.Error.Code)
	}()

	strat, found := s.registry.Lookup(req.StrategyKey)
	if !found {
		return fail(MessageUnknown, errors.ResponseNotFound, "no strategy registered under "+req.StrategyKey)
	}

	resolved, params, err := s.resolve(req, strat, false)
	if err != nil {
		return failWith(err)
	}

	series, err := s.load(ctx, resolved)
	if err != nil {
		return s.failure(OperationSignals, req, err)
	}

	if series.IsEmpty() {
		return fail(MessageNoData, errors.ResponseNoData, "no prices stored for "+resolved.symbol)
	}

	hash, err := cache.ParamsHash(params, resolved.start, resolved.end)
	if err != nil {
		return failWith(err)
	}

	key := cache.SignalKey{
		StrategyKey: strat.Key(),
		Symbol:      resolved.symbol,
		Timeframe:   resolved.timeframe,
		ParamsHash:  hash,
		Start:       resolved.start,
		End:         resolved.end,
		DataVersion: series.DataVersion(),
	}

	cached, err := s.signals.GetSignals(ctx, key)
	if err != nil && !errors.HasCode(err, errors.ErrCodeCacheCorrupt) {
		return s.failure(OperationSignals, req, err)
	}

	s.metrics.cacheLookup(cacheSignals, cached.IsSome())

	if cached.IsSome() {
		return ok(MessageCached, cached.Unwrap())
	}

	signals, err := strat.ComputeSignals(series, params)
	if err != nil {
		return s.failure(OperationSignals, req, err)
	}

	payload := cache.SignalPayload{Signals: signals, DataVersion: key.DataVersion}

	if err := s.signals.PutSignals(ctx, key, payload); err != nil {
		s.logger.Warn("Failed to cache signals", zap.String("strategy", strat.Key()), zap.Error(err))
	}

	return ok(MessageOK, payload)
}

// RunBacktest computes signals and replays them with the requested starting cash.
// Results are cached by strategy, symbol, timeframe, bounds and invested amount; the
// parameters are not part of that key.
func (s *Service) RunBacktest(ctx context.Context, req Request) (resp Response) {
	started := time.Now()

	defer func() {
		s.metrics.observe(OperationBacktest, started, resp.Error.Code)
	}()

	strat, found := s.registry.Lookup(req.StrategyKey)
	if !found {
		return fail(MessageUnknown, errors.ResponseNotFound, "no strategy registered under "+req.StrategyKey)
	}

	resolved, params, err := s.resolve(req, strat, true)
	if err != nil {
		return failWith(err)
	}

	series, err := s.load(ctx, resolved)
	if err != nil {
		return s.failure(OperationBacktest, req, err)
	}

	if series.IsEmpty() {
		return fail(MessageNoData, errors.ResponseNoData, "no prices stored for "+resolved.symbol)
	}

	key := cache.BacktestKey{
		StrategyKey: strat.Key(),
		Symbol:      resolved.symbol,
		Timeframe:   resolved.timeframe,
		Start:       resolved.start,
		End:         resolved.end,
		Invested:    resolved.invested,
	}

	cached, err := s.backtests.GetBacktest(ctx, key)
	if err != nil && !errors.HasCode(err, errors.ErrCodeCacheCorrupt) {
		return s.failure(OperationBacktest, req, err)
	}

	s.metrics.cacheLookup(cacheBacktests, cached.IsSome())

	if cached.IsSome() {
		payload := cached.Unwrap()

		return ok(MessageCached, BacktestResult{Metrics: payload.Metrics, Signals: payload.Signals})
	}

	signals, err := strat.ComputeSignals(series, params)
	if err != nil {
		return s.failure(OperationBacktest, req, err)
	}

	metrics, err := strat.Backtest(series, signals, resolved.invested)
	if err != nil {
		return s.failure(OperationBacktest, req, err)
	}

	if err := s.backtests.PutBacktest(ctx, key, cache.BacktestPayload{Metrics: metrics, Signals: signals}); err != nil {
		s.logger.Warn("Failed to cache backtest", zap.String("strategy", strat.Key()), zap.Error(err))
	}

	return ok(MessageOK, BacktestResult{Metrics: metrics, Signals: signals})
}

//nolint:funcorder // helper method used by exported methods
func (s *Service) resolve(req Request, strat strategy.Strategy, withInvested bool) (resolvedRequest, types.Params, error) {
	if err := s.validate.Struct(req); err != nil {
		return resolvedRequest{}, nil, validationError(err)
	}

	symbol := types.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		symbol = DefaultSymbol
	}

	timeframe, err := types.ParseTimeframe(req.Timeframe)
	if err != nil {
		return resolvedRequest{}, nil, err
	}

	start, err := types.ParseDateBound(req.Start)
	if err != nil {
		return resolvedRequest{}, nil, err
	}

	end, err := types.ParseDateBound(req.End)
	if err != nil {
		return resolvedRequest{}, nil, err
	}

	if start.IsSome() && end.IsSome() && start.Unwrap().After(end.Unwrap()) {
		return resolvedRequest{}, nil, errors.Newf(errors.ErrCodeInvalidDateRange,
			"start %s is after end %s", req.Start, req.End)
	}

	params, err := strategy.ResolveParams(strat.ParamSchema(), req.Params)
	if err != nil {
		return resolvedRequest{}, nil, err
	}

	invested := 0.0
	if withInvested {
		invested = s.defaultInvested
		if req.Invested != nil {
			invested = *req.Invested
		}
	}

	return resolvedRequest{
		symbol:    symbol,
		timeframe: timeframe,
		start:     start,
		end:       end,
		invested:  invested,
	}, params, nil
}

//nolint:funcorder // helper method used by exported methods
func (s *Service) load(ctx context.Context, resolved resolvedRequest) (types.TimeSeries, error) {
	series, err := s.prices.Fetch(ctx, resolved.symbol, resolved.timeframe, resolved.start, resolved.end)
	if err != nil {
		if errors.GetCode(err) == errors.ErrCodeUnknown {
			return types.TimeSeries{}, errors.FromContext(err, errors.ErrCodeFetchFailed, "failed to load prices")
		}

		return types.TimeSeries{}, err
	}

	return series, nil
}

//nolint:funcorder // helper method used by exported methods
func (s *Service) failure(operation string, req Request, err error) Response {
	s.logger.Error("Evaluation failed",
		zap.String("operation", operation),
		zap.String("strategy", req.StrategyKey),
		zap.String("symbol", req.Symbol),
		zap.Error(err),
	)

	return failWith(err)
}
