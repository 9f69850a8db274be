package backtest

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/mocks"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SimulatorTestSuite struct {
	suite.Suite
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

func (suite *SimulatorTestSuite) series(closes ...float64) types.TimeSeries {
	bars := make([]types.PriceBar, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range closes {
		bars[i] = types.PriceBar{Time: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 1}
	}

	series, err := types.NewTimeSeries("TEST", types.TimeframeDaily, bars)
	suite.Require().NoError(err)

	return series
}

func (suite *SimulatorTestSuite) TestNoSignalsKeepsCash() {
	metrics, err := Simulate(suite.series(10, 11, 12), nil, 1000)
	suite.Require().NoError(err)

	suite.Equal(types.Metrics{FinalEquity: 1000, ReturnPct: 0, TradeCount: 0, Wins: 0, WinRate: 0}, metrics)
}

func (suite *SimulatorTestSuite) TestWinningRoundTrip() {
	metrics, err := Simulate(suite.series(10, 20, 15), []types.Signal{types.Buy(0), types.Sell(1)}, 1000)
	suite.Require().NoError(err)

	suite.Equal(2000.0, metrics.FinalEquity)
	suite.Equal(1.0, metrics.ReturnPct)
	suite.Equal(1, metrics.TradeCount)
	suite.Equal(1, metrics.Wins)
	suite.Equal(1.0, metrics.WinRate)
}

func (suite *SimulatorTestSuite) TestFlatExitIsNotAWin() {
	metrics, err := Simulate(suite.series(10, 10), []types.Signal{types.Buy(0), types.Sell(1)}, 1000)
	suite.Require().NoError(err)

	suite.Equal(1000.0, metrics.FinalEquity)
	suite.Equal(1, metrics.TradeCount)
	suite.Equal(0, metrics.Wins)
	suite.Equal(0.0, metrics.WinRate)
}

func (suite *SimulatorTestSuite) TestOpenPositionIsMarkedToMarket() {
	// buy at 10, still long at the end, last close 15
	metrics, err := Simulate(suite.series(10, 12, 15), []types.Signal{types.Buy(0)}, 1000)
	suite.Require().NoError(err)

	suite.Equal(1500.0, metrics.FinalEquity)
	suite.Equal(0.5, metrics.ReturnPct)
	suite.Equal(0, metrics.TradeCount)
	suite.Equal(0.0, metrics.WinRate)
}

func (suite *SimulatorTestSuite) TestMixedTrades() {
	// win 10 -> 12, loss 12 -> 6, then long from 6 to 9
	series := suite.series(10, 12, 12, 6, 6, 9)
	signals := []types.Signal{types.Buy(0), types.Sell(1), types.Buy(2), types.Sell(3), types.Buy(4)}

	metrics, err := Simulate(series, signals, 1000)
	suite.Require().NoError(err)

	suite.Equal(900.0, metrics.FinalEquity)
	suite.Equal(-0.1, metrics.ReturnPct)
	suite.Equal(2, metrics.TradeCount)
	suite.Equal(1, metrics.Wins)
	suite.Equal(0.5, metrics.WinRate)
}

func (suite *SimulatorTestSuite) TestRounding() {
	metrics, err := Simulate(suite.series(3, 7), []types.Signal{types.Buy(0), types.Sell(1)}, 1000)
	suite.Require().NoError(err)

	suite.Equal(2333.33, metrics.FinalEquity)
	suite.Equal(1.333333, metrics.ReturnPct)
}

func (suite *SimulatorTestSuite) TestZeroInvested() {
	metrics, err := Simulate(suite.series(10, 20), []types.Signal{types.Buy(0), types.Sell(1)}, 0)
	suite.Require().NoError(err)

	suite.Equal(0.0, metrics.FinalEquity)
	suite.Equal(0.0, metrics.ReturnPct)
	suite.Equal(1, metrics.TradeCount)
}

func (suite *SimulatorTestSuite) TestBuyAtZeroPriceIsNoOp() {
	var steps []Step
	sim := NewSimulator(WithStepObserver(func(step Step) { steps = append(steps, step) }))

	metrics, err := sim.Run(suite.series(0, 5, 10), []types.Signal{types.Buy(0), types.Sell(1)}, 1000)
	suite.Require().NoError(err)

	suite.Equal(1000.0, metrics.FinalEquity)
	suite.Equal(0, metrics.TradeCount)
	suite.Require().Len(steps, 2)
	suite.Equal(StateFlat, steps[0].State)
	suite.Equal(1000.0, steps[0].Cash)
	suite.Equal(0.0, steps[0].Shares)
}

func (suite *SimulatorTestSuite) TestRedundantSignalsIgnored() {
	series := suite.series(10, 20, 40, 20)
	signals := []types.Signal{types.Sell(0), types.Buy(0), types.Buy(1), types.Sell(2), types.Sell(3)}

	metrics, err := Simulate(series, signals, 100)
	suite.Require().NoError(err)

	suite.Equal(400.0, metrics.FinalEquity)
	suite.Equal(1, metrics.TradeCount)
}

func (suite *SimulatorTestSuite) TestEmptySeries() {
	empty, err := types.NewTimeSeries("TEST", types.TimeframeDaily, nil)
	suite.Require().NoError(err)

	_, err = Simulate(empty, nil, 1000)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptySeries))
	suite.Equal(errors.ResponseNoData, errors.ResponseCodeFor(err))
}

func (suite *SimulatorTestSuite) TestSignalOutOfRange() {
	_, err := Simulate(suite.series(10, 11), []types.Signal{types.Buy(5)}, 1000)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidSignal))
}

func (suite *SimulatorTestSuite) TestNegativeInvested() {
	_, err := Simulate(suite.series(10, 11), nil, -1)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *SimulatorTestSuite) TestConservationOnGeneratedSeries() {
	generator := mocks.NewDataGenerator(42)
	config := mocks.DefaultConfig()
	config.Count = 300

	series, err := types.NewTimeSeries(config.Symbol, types.TimeframeDaily, generator.Generate(config))
	suite.Require().NoError(err)

	var signals []types.Signal
	for i := 0; i < series.Len(); i += 7 {
		if len(signals)%2 == 0 {
			signals = append(signals, types.Buy(i))
		} else {
			signals = append(signals, types.Sell(i))
		}
	}

	sim := NewSimulator(WithStepObserver(func(step Step) {
		suite.GreaterOrEqual(step.Cash, 0.0)
		suite.GreaterOrEqual(step.Shares, 0.0)

		// fully invested or fully cash
		suite.True(step.Cash == 0 || step.Shares == 0)
	}))

	first, err := sim.Run(series, signals, 10000)
	suite.Require().NoError(err)

	second, err := sim.Run(series, signals, 10000)
	suite.Require().NoError(err)

	suite.Equal(first, second)
}
