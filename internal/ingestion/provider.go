package ingestion

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"github.com/schollz/progressbar/v3"
)

// ProviderType names a market data vendor.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// Provider downloads daily bars from an external vendor.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string
	// History returns the daily bars of symbol within the inclusive date range.
	// An absent start means the earliest date the provider has; an absent end means today.
	History(ctx context.Context, symbol string, start, end types.DateBound) ([]types.PriceBar, error)
}

// providerConfig holds the settings shared by every provider.
type providerConfig struct {
	progress io.Writer
	now      func() time.Time
}

// ProviderOption configures a provider.
type ProviderOption func(*providerConfig)

// WithProgress renders a download progress bar to w.
func WithProgress(w io.Writer) ProviderOption {
	return func(c *providerConfig) {
		c.progress = w
	}
}

// WithToday replaces the clock that resolves an absent end date.
func WithToday(now func() time.Time) ProviderOption {
	return func(c *providerConfig) {
		c.now = now
	}
}

func newProviderConfig(opts []ProviderOption) providerConfig {
	config := providerConfig{progress: nil, now: time.Now}

	for _, opt := range opts {
		opt(&config)
	}

	return config
}

// dateRange resolves the bounds of a download. The range is empty when to is before from.
func (c providerConfig) dateRange(start, end types.DateBound, earliest time.Time) (time.Time, time.Time) {
	from := types.TruncateToDate(start.TakeOr(earliest))
	to := types.TruncateToDate(end.TakeOr(c.now()))

	return from, to
}

// progressBar returns nil when no progress writer is configured.
func (c providerConfig) progressBar(symbol string, from, to time.Time) *downloadProgress {
	if c.progress == nil {
		return nil
	}

	return &downloadProgress{
		from: from,
		bar: progressbar.NewOptions(int(to.Sub(from).Hours()/24)+1,
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", symbol)),
			progressbar.OptionShowCount(),
		),
	}
}

// downloadProgress tracks a download by the number of days covered so far.
type downloadProgress struct {
	from time.Time
	bar  *progressbar.ProgressBar
}

func (p *downloadProgress) reached(ts time.Time) {
	if p == nil {
		return
	}

	_ = p.bar.Set(int(ts.Sub(p.from).Hours() / 24))
}

func (p *downloadProgress) finish() {
	if p == nil {
		return
	}

	_ = p.bar.Finish()
}

// rejected marks a request the vendor refused for good, such as an unknown ticker.
// Rejected requests are not retried.
func rejected(provider ProviderType, symbol string, err error) error {
	return errors.Wrapf(errors.ErrCodeProviderRejected, err, "%s rejected the request for %s", provider, symbol)
}

// NewProvider creates a provider of the given type. apiKey is ignored by providers
// serving public data.
func NewProvider(providerType ProviderType, apiKey string, opts ...ProviderOption) (Provider, error) {
	switch providerType {
	case ProviderPolygon:
		provider, err := NewPolygonProvider(apiKey, opts...)
		if err != nil {
			return nil, err
		}

		return provider, nil
	case ProviderBinance:
		return NewBinanceProvider(opts...), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
