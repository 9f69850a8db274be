package types

import (
	"math"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

// Timeframe identifies the bar granularity of a price series.
type Timeframe string

const (
	// TimeframeDaily is one bar per trading day.
	TimeframeDaily Timeframe = "1d"
)

// DefaultTimeframe is used when a request does not name one.
const DefaultTimeframe = TimeframeDaily

// SupportedTimeframes lists every timeframe the store and the strategies accept.
var SupportedTimeframes = []Timeframe{TimeframeDaily}

// ParseTimeframe validates a timeframe string. An empty string yields DefaultTimeframe.
func ParseTimeframe(raw string) (Timeframe, error) {
	if raw == "" {
		return DefaultTimeframe, nil
	}

	for _, tf := range SupportedTimeframes {
		if string(tf) == raw {
			return tf, nil
		}
	}

	return "", errors.Newf(errors.ErrCodeInvalidTimeframe, "Unsupported timeframe '%s'", raw)
}

// PriceBar is one OHLCV observation. Daily bars carry a midnight UTC timestamp.
type PriceBar struct {
	Time   time.Time `json:"ts" yaml:"ts"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// Validate rejects bars with a zero timestamp or negative / non-finite fields.
func (b PriceBar) Validate() error {
	if b.Time.IsZero() {
		return errors.New(errors.ErrCodeInvalidPriceBar, "price bar is missing its timestamp")
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
		{"volume", b.Volume},
	}

	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return errors.Newf(errors.ErrCodeInvalidPriceBar, "price bar %s has invalid %s %v",
				b.Time.Format(DateLayout), f.name, f.value)
		}
	}

	return nil
}

// DateLayout is the ISO date layout used for data versions and date bounds.
const DateLayout = "2006-01-02"

// TruncateToDate drops the clock part of t, keeping its calendar date in UTC.
func TruncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NormalizeSymbol trims and upper-cases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
