// Package backtest replays a normalized signal sequence against a price series.
//
// The simulator is a long-only, single-position state machine that is either fully
// invested or fully in cash:
//
//	FLAT --buy--> LONG --sell--> FLAT
//
// A buy while LONG and a sell while FLAT are ignored. A position still open after the
// last signal is marked to market at the final close without counting as a trade.
package backtest

import (
	"math"

	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"github.com/shopspring/decimal"
)

// PositionState is the simulator's position.
type PositionState string

const (
	StateFlat PositionState = "FLAT"
	StateLong PositionState = "LONG"
)

const (
	equityDecimals = 2
	rateDecimals   = 6
)

// Step is the simulator state right after a signal has been applied.
type Step struct {
	Signal types.Signal
	State  PositionState
	Cash   float64
	Shares float64
}

// StepObserver receives every step of a simulation.
type StepObserver func(step Step)

// Option configures a Simulator.
type Option func(*Simulator)

// WithStepObserver registers an observer called after each signal.
func WithStepObserver(observer StepObserver) Option {
	return func(s *Simulator) {
		s.observer = observer
	}
}

// Simulator runs backtests. It holds no per-run state and is safe for concurrent use.
type Simulator struct {
	observer StepObserver
}

// NewSimulator creates a simulator.
func NewSimulator(opts ...Option) *Simulator {
	s := &Simulator{observer: nil}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Simulate runs a backtest with a default simulator.
func Simulate(series types.TimeSeries, signals []types.Signal, invested float64) (types.Metrics, error) {
	return NewSimulator().Run(series, signals, invested)
}

// Run replays signals against series starting with invested cash.
func (s *Simulator) Run(series types.TimeSeries, signals []types.Signal, invested float64) (types.Metrics, error) {
	if math.IsNaN(invested) || math.IsInf(invested, 0) || invested < 0 {
		return types.Metrics{}, errors.Newf(errors.ErrCodeInvalidParameter, "invested amount must be a non-negative number, got %v", invested)
	}

	lastClose := series.LastClose()
	if lastClose.IsNone() {
		return types.Metrics{}, errors.New(errors.ErrCodeEmptySeries, "cannot backtest an empty series")
	}

	finalPrice := lastClose.Unwrap()
	if math.IsNaN(finalPrice) || math.IsInf(finalPrice, 0) {
		return types.Metrics{}, errors.Newf(errors.ErrCodeUnpricedSeries, "final bar of %s cannot be priced", series.Symbol())
	}

	var (
		state  = StateFlat
		cash   = invested
		shares = 0.0
		entry  = 0.0
		trades = 0
		wins   = 0
	)

	for _, signal := range signals {
		if signal.Index < 0 || signal.Index >= series.Len() {
			return types.Metrics{}, errors.Newf(errors.ErrCodeInvalidSignal,
				"signal index %d is outside series of length %d", signal.Index, series.Len())
		}

		price := series.Bar(signal.Index).Close

		switch {
		case signal.Side == types.SideBuy && state == StateFlat:
			// A non-positive price cannot be bought into; the signal is a no-op.
			if price > 0 {
				shares = cash / price
				cash = 0
				entry = price
				state = StateLong
			}
		case signal.Side == types.SideSell && state == StateLong:
			cash = shares * price
			shares = 0
			trades++

			if price > entry {
				wins++
			}

			entry = 0
			state = StateFlat
		}

		if s.observer != nil {
			s.observer(Step{Signal: signal, State: state, Cash: cash, Shares: shares})
		}
	}

	finalEquity := cash + shares*finalPrice

	returnPct := 0.0
	if invested != 0 {
		returnPct = finalEquity/invested - 1
	}

	winRate := 0.0
	if trades > 0 {
		winRate = float64(wins) / float64(trades)
	}

	return types.Metrics{
		FinalEquity: round(finalEquity, equityDecimals),
		ReturnPct:   round(returnPct, rateDecimals),
		TradeCount:  trades,
		Wins:        wins,
		WinRate:     round(winRate, rateDecimals),
	}, nil
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()

	return f
}
