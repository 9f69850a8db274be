package strategy

import "github.com/rxtech-lab/argo-eval/internal/types"

// Normalize turns raw crossover events into a sequence that strictly alternates
// buy, sell, buy, ... Leading sells are dropped because there is no position to close,
// and in a run of same-side signals only the first one is kept.
//
// Every strategy must pass its output through Normalize; the backtest relies on it.
func Normalize(raw []types.Signal) []types.Signal {
	cleaned := make([]types.Signal, 0, len(raw))

	for _, signal := range raw {
		if len(cleaned) == 0 && signal.Side != types.SideBuy {
			continue
		}

		if len(cleaned) > 0 && cleaned[len(cleaned)-1].Side == signal.Side {
			continue
		}

		cleaned = append(cleaned, signal)
	}

	return cleaned
}
