package evaluation_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxtech-lab/argo-eval/internal/cache"
	"github.com/rxtech-lab/argo-eval/internal/evaluation"
	"github.com/rxtech-lab/argo-eval/internal/logger"
	"github.com/rxtech-lab/argo-eval/internal/strategy"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/mocks"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ServiceTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	prices    *mocks.MockPriceStore
	signals   *mocks.MockSignalCache
	backtests *mocks.MockBacktestCache
	registry  *prometheus.Registry
	service   *evaluation.Service
	ctx       context.Context
	closes    []float64
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.prices = mocks.NewMockPriceStore(suite.ctrl)
	suite.signals = mocks.NewMockSignalCache(suite.ctrl)
	suite.backtests = mocks.NewMockBacktestCache(suite.ctrl)
	suite.registry = prometheus.NewRegistry()
	suite.ctx = context.Background()
	suite.closes = []float64{10, 10, 10, 10, 10, 9, 8, 12, 14, 16, 10, 8, 6, 9, 13}

	strategies, err := strategy.DefaultRegistry()
	suite.Require().NoError(err)

	suite.service = evaluation.NewService(
		strategies,
		suite.prices,
		suite.signals,
		suite.backtests,
		logger.NewNopLogger(),
		evaluation.WithMetrics(evaluation.NewMetrics(suite.registry)),
	)
}

func (suite *ServiceTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *ServiceTestSuite) series(symbol string) types.TimeSeries {
	bars := make([]types.PriceBar, len(suite.closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range suite.closes {
		bars[i] = types.PriceBar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 100}
	}

	series, err := types.NewTimeSeries(symbol, types.TimeframeDaily, bars)
	suite.Require().NoError(err)

	return series
}

func (suite *ServiceTestSuite) request() evaluation.Request {
	return evaluation.Request{
		StrategyKey: strategy.SMACrossoverKey,
		Symbol:      "aapl",
		Start:       "2024-01-01",
		End:         "2024-01-31",
		Params:      map[string]any{"fast": 2, "slow": 5},
	}
}

func (suite *ServiceTestSuite) expectedSignals() []types.Signal {
	signals, err := strategy.CrossoverSignals(suite.closes, 2, 5)
	suite.Require().NoError(err)

	return signals
}

func (suite *ServiceTestSuite) requests(operation, code string) float64 {
	counter, err := suite.registryCounter("argo_eval_requests_total", map[string]string{"operation": operation, "code": code})
	suite.Require().NoError(err)

	return counter
}

func (suite *ServiceTestSuite) registryCounter(name string, labels map[string]string) (float64, error) {
	families, err := suite.registry.Gather()
	if err != nil {
		return 0, err
	}

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}

			return metric.GetCounter().GetValue(), nil
		}
	}

	return 0, nil
}

func (suite *ServiceTestSuite) TestListStrategies() {
	resp := suite.service.ListStrategies()
	suite.True(resp.Success)
	suite.Equal(evaluation.MessageListed, resp.Message)

	infos, ok := resp.Data.([]strategy.Info)
	suite.Require().True(ok)
	suite.Require().Len(infos, 1)
	suite.Equal(strategy.SMACrossoverKey, infos[0].Key)
}

func (suite *ServiceTestSuite) TestGetStrategy() {
	resp := suite.service.GetStrategy(strategy.SMACrossoverKey)
	suite.True(resp.Success)
	suite.Equal(evaluation.MessageStrategyFound, resp.Message)

	resp = suite.service.GetStrategy("momentum")
	suite.False(resp.Success)
	suite.Equal(evaluation.MessageStrategyAbsent, resp.Message)
	suite.Equal(errors.ResponseNotFound, resp.Error.Code)
}

func (suite *ServiceTestSuite) TestUnknownStrategy() {
	req := suite.request()
	req.StrategyKey = "momentum"

	resp := suite.service.ComputeSignals(suite.ctx, req)
	suite.False(resp.Success)
	suite.Equal(evaluation.MessageUnknown, resp.Message)
	suite.Equal(errors.ResponseNotFound, resp.Error.Code)
	suite.Equal(map[string]any{}, resp.Data)

	resp = suite.service.RunBacktest(suite.ctx, req)
	suite.Equal(errors.ResponseNotFound, resp.Error.Code)
	suite.Equal(1.0, suite.requests(evaluation.OperationSignals, "NOT_FOUND"))
}

func (suite *ServiceTestSuite) TestBadRequests() {
	tests := []struct {
		name   string
		mutate func(*evaluation.Request)
	}{
		{name: "malformed start", mutate: func(r *evaluation.Request) { r.Start = "2024-13-01" }},
		{name: "start after end", mutate: func(r *evaluation.Request) { r.Start, r.End = "2024-02-01", "2024-01-01" }},
		{name: "unsupported timeframe", mutate: func(r *evaluation.Request) { r.Timeframe = "1h" }},
		{name: "parameter below minimum", mutate: func(r *evaluation.Request) { r.Params = map[string]any{"fast": 1} }},
		{name: "unknown parameter", mutate: func(r *evaluation.Request) { r.Params = map[string]any{"speed": 3} }},
		{name: "non numeric parameter", mutate: func(r *evaluation.Request) { r.Params = map[string]any{"fast": "ten"} }},
		{name: "invalid symbol", mutate: func(r *evaluation.Request) { r.Symbol = "AA PL" }},
		{name: "negative invested", mutate: func(r *evaluation.Request) {
			negative := -1.0
			r.Invested = &negative
		}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			req := suite.request()
			tt.mutate(&req)

			resp := suite.service.RunBacktest(suite.ctx, req)
			suite.False(resp.Success)
			suite.Equal(errors.ResponseBadRequest, resp.Error.Code)
			suite.NotEmpty(resp.Error.Detail)
		})
	}
}

func (suite *ServiceTestSuite) TestNoData() {
	empty, err := types.NewTimeSeries("ZZZZ", types.TimeframeDaily, nil)
	suite.Require().NoError(err)

	suite.prices.EXPECT().Fetch(gomock.Any(), "ZZZZ", types.TimeframeDaily, gomock.Any(), gomock.Any()).Return(empty, nil).Times(2)

	req := suite.request()
	req.Symbol = "ZZZZ"

	resp := suite.service.ComputeSignals(suite.ctx, req)
	suite.False(resp.Success)
	suite.Equal(evaluation.MessageNoData, resp.Message)
	suite.Equal(errors.ResponseNoData, resp.Error.Code)

	resp = suite.service.RunBacktest(suite.ctx, req)
	suite.Equal(errors.ResponseNoData, resp.Error.Code)
}

func (suite *ServiceTestSuite) TestFetchErrorIsNeverCached() {
	suite.prices.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(types.TimeSeries{}, stderrors.New("connection reset"))

	resp := suite.service.ComputeSignals(suite.ctx, suite.request())
	suite.False(resp.Success)
	suite.Equal(errors.ResponseFetchError, resp.Error.Code)
	suite.Equal(1.0, suite.requests(evaluation.OperationSignals, "FETCH_ERROR"))
}

func (suite *ServiceTestSuite) TestFetchTimeout() {
	suite.prices.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).
		Return(types.TimeSeries{}, errors.FromContext(context.DeadlineExceeded, errors.ErrCodeFetchFailed, "timed out"))

	resp := suite.service.RunBacktest(suite.ctx, suite.request())
	suite.Equal(errors.ResponseFetchError, resp.Error.Code)
}

func (suite *ServiceTestSuite) TestComputeSignalsMissThenStore() {
	series := suite.series("AAPL")
	start := types.BoundAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	end := types.BoundAt(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))

	hash, err := cache.ParamsHash(types.Params{"fast": 2, "slow": 5, "signal": 9}, start, end)
	suite.Require().NoError(err)

	key := cache.SignalKey{
		StrategyKey: strategy.SMACrossoverKey,
		Symbol:      "AAPL",
		Timeframe:   types.TimeframeDaily,
		ParamsHash:  hash,
		Start:       start,
		End:         end,
		DataVersion: series.DataVersion(),
	}
	payload := cache.SignalPayload{Signals: suite.expectedSignals(), DataVersion: series.DataVersion()}

	suite.prices.EXPECT().Fetch(gomock.Any(), "AAPL", types.TimeframeDaily, start, end).Return(series, nil)
	suite.signals.EXPECT().GetSignals(gomock.Any(), key).Return(optional.None[cache.SignalPayload](), nil)
	suite.signals.EXPECT().PutSignals(gomock.Any(), key, payload).Return(nil)

	resp := suite.service.ComputeSignals(suite.ctx, suite.request())
	suite.Require().True(resp.Success, resp.Error.Detail)
	suite.Equal(evaluation.MessageOK, resp.Message)
	suite.Equal(payload, resp.Data)
	suite.Equal(1.0, suite.requests(evaluation.OperationSignals, "OK"))

	misses, err := suite.registryCounter("argo_eval_cache_total", map[string]string{"cache": "signals", "result": "miss"})
	suite.Require().NoError(err)
	suite.Equal(1.0, misses)
}

func (suite *ServiceTestSuite) TestComputeSignalsHit() {
	series := suite.series("AAPL")
	payload := cache.SignalPayload{Signals: []types.Signal{types.Buy(7)}, DataVersion: series.DataVersion()}

	suite.prices.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).Return(series, nil)
	suite.signals.EXPECT().GetSignals(gomock.Any(), gomock.Any()).Return(optional.Some(payload), nil)

	resp := suite.service.ComputeSignals(suite.ctx, suite.request())
	suite.True(resp.Success)
	suite.Equal(evaluation.MessageCached, resp.Message)
	suite.Equal(payload, resp.Data)
}

func (suite *ServiceTestSuite) TestAbsentBoundsAndDefaults() {
	series := suite.series("SPY")

	hash, err := cache.ParamsHash(types.Params{"fast": 12, "slow": 26, "signal": 9}, types.NoBound(), types.NoBound())
	suite.Require().NoError(err)

	suite.prices.EXPECT().Fetch(gomock.Any(), "SPY", types.TimeframeDaily, types.NoBound(), types.NoBound()).Return(series, nil)
	suite.signals.EXPECT().GetSignals(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key cache.SignalKey) (optional.Option[cache.SignalPayload], error) {
			suite.Equal(hash, key.ParamsHash)
			suite.True(key.Start.IsNone())
			suite.True(key.End.IsNone())

			return optional.None[cache.SignalPayload](), nil
		})
	suite.signals.EXPECT().PutSignals(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	resp := suite.service.ComputeSignals(suite.ctx, evaluation.Request{StrategyKey: strategy.SMACrossoverKey})
	suite.True(resp.Success)

	payload, ok := resp.Data.(cache.SignalPayload)
	suite.Require().True(ok)
	suite.Empty(payload.Signals)
}

func (suite *ServiceTestSuite) TestCorruptCacheEntryIsRecomputed() {
	series := suite.series("AAPL")

	suite.prices.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).Return(series, nil)
	suite.signals.EXPECT().GetSignals(gomock.Any(), gomock.Any()).
		Return(optional.None[cache.SignalPayload](), errors.New(errors.ErrCodeCacheCorrupt, "bad json"))
	suite.signals.EXPECT().PutSignals(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	resp := suite.service.ComputeSignals(suite.ctx, suite.request())
	suite.True(resp.Success)
	suite.Equal(evaluation.MessageOK, resp.Message)
}

func (suite *ServiceTestSuite) TestCacheReadFailure() {
	suite.prices.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).Return(suite.series("AAPL"), nil)
	suite.signals.EXPECT().GetSignals(gomock.Any(), gomock.Any()).
		Return(optional.None[cache.SignalPayload](), errors.New(errors.ErrCodeFetchFailed, "cache down"))

	resp := suite.service.ComputeSignals(suite.ctx, suite.request())
	suite.False(resp.Success)
	suite.Equal(errors.ResponseFetchError, resp.Error.Code)
}

func (suite *ServiceTestSuite) TestCacheWriteFailureStillAnswers() {
	suite.prices.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).Return(suite.series("AAPL"), nil)
	suite.backtests.EXPECT().GetBacktest(gomock.Any(), gomock.Any()).Return(optional.None[cache.BacktestPayload](), nil)
	suite.backtests.EXPECT().PutBacktest(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New(errors.ErrCodeCacheWriteFailed, "disk full"))

	resp := suite.service.RunBacktest(suite.ctx, suite.request())
	suite.True(resp.Success)
	suite.Equal(evaluation.MessageOK, resp.Message)
}

func (suite *ServiceTestSuite) TestRunBacktestMissThenStore() {
	series := suite.series("AAPL")
	signals := suite.expectedSignals()

	expected, err := strategy.NewSMACrossover().Backtest(series, signals, 5000)
	suite.Require().NoError(err)

	invested := 5000.0
	req := suite.request()
	req.Invested = &invested

	key := cache.BacktestKey{
		StrategyKey: strategy.SMACrossoverKey,
		Symbol:      "AAPL",
		Timeframe:   types.TimeframeDaily,
		Start:       types.BoundAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		End:         types.BoundAt(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)),
		Invested:    5000,
	}

	suite.prices.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).Return(series, nil)
	suite.backtests.EXPECT().GetBacktest(gomock.Any(), key).Return(optional.None[cache.BacktestPayload](), nil)
	suite.backtests.EXPECT().PutBacktest(gomock.Any(), key, cache.BacktestPayload{Metrics: expected, Signals: signals}).Return(nil)

	resp := suite.service.RunBacktest(suite.ctx, req)
	suite.Require().True(resp.Success, resp.Error.Detail)
	suite.Equal(evaluation.BacktestResult{Metrics: expected, Signals: signals}, resp.Data)
	suite.Equal(1.0, suite.requests(evaluation.OperationBacktest, "OK"))
}

func (suite *ServiceTestSuite) TestRunBacktestDefaultInvestedAndHit() {
	payload := cache.BacktestPayload{
		Metrics: types.Metrics{FinalEquity: 10_500, ReturnPct: 0.05, TradeCount: 1, Wins: 1, WinRate: 1},
		Signals: []types.Signal{types.Buy(1), types.Sell(4)},
	}

	suite.prices.EXPECT().Fetch(gomock.Any(), "AAPL", gomock.Any(), gomock.Any(), gomock.Any()).Return(suite.series("AAPL"), nil)
	suite.backtests.EXPECT().GetBacktest(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key cache.BacktestKey) (optional.Option[cache.BacktestPayload], error) {
			suite.InDelta(evaluation.DefaultInvested, key.Invested, 1e-9)

			return optional.Some(payload), nil
		})

	resp := suite.service.RunBacktest(suite.ctx, suite.request())
	suite.True(resp.Success)
	suite.Equal(evaluation.MessageCached, resp.Message)
	suite.Equal(evaluation.BacktestResult{Metrics: payload.Metrics, Signals: payload.Signals}, resp.Data)

	hits, err := suite.registryCounter("argo_eval_cache_total", map[string]string{"cache": "backtests", "result": "hit"})
	suite.Require().NoError(err)
	suite.Equal(1.0, hits)

	series, err := testutil.GatherAndCount(suite.registry, "argo_eval_requests_total")
	suite.Require().NoError(err)
	suite.Equal(1, series)
}

func TestServiceWithoutMetrics(t *testing.T) {
	strategies, err := strategy.DefaultRegistry()
	require.NoError(t, err)

	service := evaluation.NewService(strategies, nil, nil, nil, logger.NewNopLogger(),
		evaluation.WithDefaultInvested(2500))

	resp := service.ComputeSignals(context.Background(), evaluation.Request{StrategyKey: "missing"})
	require.False(t, resp.Success)
	require.Equal(t, errors.ResponseNotFound, resp.Error.Code)
}
