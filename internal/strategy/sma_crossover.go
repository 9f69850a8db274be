package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-eval/internal/indicator"
	"github.com/rxtech-lab/argo-eval/internal/types"
)

// SMACrossoverKey is the registry key of the SMA crossover strategy.
const SMACrossoverKey = "sma_crossover"

// SMACrossover buys when the fast simple moving average crosses above the slow one
// and sells when it crosses below.
type SMACrossover struct {
	Base
}

// NewSMACrossover creates the SMA crossover strategy.
func NewSMACrossover() *SMACrossover {
	schema := types.ParamSchema{
		"fast":   {Label: "Fast MA", Default: 12, Min: 2, Max: 100, Step: 1},
		"slow":   {Label: "Slow MA", Default: 26, Min: 5, Max: 200, Step: 1},
		"signal": {Label: "Signal Len", Default: 9, Min: 2, Max: 50, Step: 1},
	}

	space := types.ParamSpace{
		"fast": {Kind: types.ParamKindInt, Low: 15, High: 55},
		"slow": {Kind: types.ParamKindInt, Low: 80, High: 200},
	}

	return &SMACrossover{
		Base: NewBase(SMACrossoverKey, "SMA Crossover", CategoryTechnical, 1, schema, space),
	}
}

// ComputeSignals implements Strategy. Parameters are checked against the schema before
// any computation.
func (s *SMACrossover) ComputeSignals(series types.TimeSeries, params types.Params) ([]types.Signal, error) {
	resolved, err := ValidateParams(s.schema, params)
	if err != nil {
		return nil, err
	}

	return CrossoverSignals(series.Closes(), resolved.Int("fast"), resolved.Int("slow"))
}

// CrossoverSignals is the moving-average crossover signal engine.
//
// With diff = SMA(fast) - SMA(slow), a buy fires where the previous diff was <= 0 and the
// current one is > 0, and a sell where the previous diff was >= 0 and the current one
// is < 0. The first defined diff has no predecessor and never fires. Both windows must
// be positive; fast < slow is conventional but not required.
func CrossoverSignals(closes []float64, fastWindow, slowWindow int) ([]types.Signal, error) {
	fast, err := indicator.SMA(closes, fastWindow)
	if err != nil {
		return nil, err
	}

	slow, err := indicator.SMA(closes, slowWindow)
	if err != nil {
		return nil, err
	}

	var raw []types.Signal

	prev := optional.None[float64]()

	for i, d := range indicator.Diff(fast, slow) {
		if d.IsNone() {
			continue
		}

		diff := d.Unwrap()

		if prev.IsSome() {
			p := prev.Unwrap()
			if p <= 0 && diff > 0 {
				raw = append(raw, types.Buy(i))
			}

			if p >= 0 && diff < 0 {
				raw = append(raw, types.Sell(i))
			}
		}

		prev = optional.Some(diff)
	}

	return Normalize(raw), nil
}
