package types

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

// DateBound is an optional inclusive range boundary. None means unbounded.
type DateBound = optional.Option[time.Time]

// NoBound is the unbounded DateBound.
func NoBound() DateBound {
	return optional.None[time.Time]()
}

// BoundAt returns a DateBound on t's calendar date.
func BoundAt(t time.Time) DateBound {
	return optional.Some(TruncateToDate(t))
}

// ParseDateBound parses an ISO date. The empty string is an absent bound.
func ParseDateBound(raw string) (DateBound, error) {
	if raw == "" {
		return NoBound(), nil
	}

	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return NoBound(), errors.Wrapf(errors.ErrCodeInvalidDateRange, err, "invalid date %q, expected YYYY-MM-DD", raw)
	}

	return optional.Some(t), nil
}

// FormatDateBound renders a bound as an ISO date, or "" when absent.
func FormatDateBound(b DateBound) string {
	if b.IsNone() {
		return ""
	}

	return b.Unwrap().Format(DateLayout)
}

// TimeSeries is an ordered, immutable view of the bars of one symbol and timeframe.
// Timestamps are strictly increasing. An empty series is valid and distinct from a
// series that could not be resolved.
type TimeSeries struct {
	symbol    string
	timeframe Timeframe
	bars      []PriceBar
}

// NewTimeSeries sorts bars by time and rejects duplicate timestamps or invalid bars.
// The caller's slice is not retained.
func NewTimeSeries(symbol string, timeframe Timeframe, bars []PriceBar) (TimeSeries, error) {
	sorted := make([]PriceBar, len(bars))
	copy(sorted, bars)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time.Before(sorted[j].Time)
	})

	for i, bar := range sorted {
		if err := bar.Validate(); err != nil {
			return TimeSeries{}, err
		}

		if i > 0 && !sorted[i-1].Time.Before(bar.Time) {
			return TimeSeries{}, errors.Newf(errors.ErrCodeDuplicateBar,
				"duplicate bar for %s at %s", symbol, bar.Time.Format(DateLayout))
		}
	}

	return TimeSeries{
		symbol:    symbol,
		timeframe: timeframe,
		bars:      sorted,
	}, nil
}

// Symbol returns the series' symbol.
func (s TimeSeries) Symbol() string { return s.symbol }

// Timeframe returns the series' timeframe.
func (s TimeSeries) Timeframe() Timeframe { return s.timeframe }

// Len returns the number of bars.
func (s TimeSeries) Len() int { return len(s.bars) }

// IsEmpty reports whether the series has no bars.
func (s TimeSeries) IsEmpty() bool { return len(s.bars) == 0 }

// Bar returns the bar at index i. It panics if i is out of range, like a slice index.
func (s TimeSeries) Bar(i int) PriceBar { return s.bars[i] }

// Bars returns a copy of the bars.
func (s TimeSeries) Bars() []PriceBar {
	out := make([]PriceBar, len(s.bars))
	copy(out, s.bars)

	return out
}

// Closes returns the closing prices in order.
func (s TimeSeries) Closes() []float64 {
	closes := make([]float64, len(s.bars))
	for i, bar := range s.bars {
		closes[i] = bar.Close
	}

	return closes
}

// Last returns the latest bar, or None for an empty series.
func (s TimeSeries) Last() optional.Option[PriceBar] {
	if len(s.bars) == 0 {
		return optional.None[PriceBar]()
	}

	return optional.Some(s.bars[len(s.bars)-1])
}

// LastClose returns the final closing price, or None for an empty series.
func (s TimeSeries) LastClose() optional.Option[float64] {
	if len(s.bars) == 0 {
		return optional.None[float64]()
	}

	return optional.Some(s.bars[len(s.bars)-1].Close)
}

// DataVersion fingerprints the series by the ISO date of its latest bar.
// Appending bars changes it; an empty series has an empty version.
func (s TimeSeries) DataVersion() string {
	last := s.Last()
	if last.IsNone() {
		return ""
	}

	return last.Unwrap().Time.Format(DateLayout)
}
