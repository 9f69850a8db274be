package indicator

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

// SMA computes the simple moving average of values over the given window.
// The result has the same length as values; the first window-1 points are None
// because their window is not yet fully populated.
func SMA(values []float64, window int) ([]optional.Option[float64], error) {
	if window <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "window must be a positive integer, got %d", window)
	}

	out := make([]optional.Option[float64], len(values))

	for i := range values {
		if i < window-1 {
			out[i] = optional.None[float64]()

			continue
		}

		out[i] = optional.Some(calculateSimpleMovingAverage(values[i-window+1 : i+1]))
	}

	return out, nil
}

// Diff returns fast - slow at every index where both averages are defined, None elsewhere.
// The result is as long as the shorter input.
func Diff(fast, slow []optional.Option[float64]) []optional.Option[float64] {
	n := min(len(fast), len(slow))
	out := make([]optional.Option[float64], n)

	for i := 0; i < n; i++ {
		if fast[i].IsNone() || slow[i].IsNone() {
			out[i] = optional.None[float64]()

			continue
		}

		out[i] = optional.Some(fast[i].Unwrap() - slow[i].Unwrap())
	}

	return out
}

// calculateSimpleMovingAverage averages a fully populated window.
func calculateSimpleMovingAverage(window []float64) float64 {
	sum := 0.0
	for _, v := range window {
		sum += v
	}

	return sum / float64(len(window))
}
