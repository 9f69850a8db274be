package ingestion

import (
	"context"
	"fmt"
	"net/http"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

const polygonPageLimit = 50000

// polygonEarliest is where a full-history download starts.
var polygonEarliest = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// PolygonAggsIterator walks the aggregate bars of a ListAggs call.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the part of the polygon REST client the provider uses.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

// polygonAPI adapts the polygon REST client to PolygonAPIClient.
type polygonAPI struct {
	client *polygon.Client
}

func (a polygonAPI) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return a.client.ListAggs(ctx, params, options...)
}

// PolygonProvider downloads daily aggregates from polygon.io.
type PolygonProvider struct {
	api    PolygonAPIClient
	config providerConfig
}

// NewPolygonProvider creates a provider authenticated with apiKey.
func NewPolygonProvider(apiKey string, opts ...ProviderOption) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "polygon api key is required")
	}

	return NewPolygonProviderWithAPI(polygonAPI{client: polygon.New(apiKey)}, opts...), nil
}

// NewPolygonProviderWithAPI creates a provider over an existing API client.
func NewPolygonProviderWithAPI(api PolygonAPIClient, opts ...ProviderOption) *PolygonProvider {
	return &PolygonProvider{
		api:    api,
		config: newProviderConfig(opts),
	}
}

// Name implements Provider.
func (p *PolygonProvider) Name() string {
	return string(ProviderPolygon)
}

// History implements Provider.
func (p *PolygonProvider) History(ctx context.Context, symbol string, start, end types.DateBound) ([]types.PriceBar, error) {
	from, to := p.config.dateRange(start, end, polygonEarliest)
	if to.Before(from) {
		return nil, nil
	}

	progress := p.config.progressBar(symbol, from, to)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithAdjusted(false).WithOrder(models.Asc).WithLimit(polygonPageLimit)

	iter := p.api.ListAggs(ctx, params)

	var bars []types.PriceBar

	for iter.Next() {
		agg := iter.Item()
		ts := types.TruncateToDate(time.Time(agg.Timestamp))

		bars = append(bars, types.PriceBar{
			Time:   ts,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})

		progress.reached(ts)
	}

	if err := iter.Err(); err != nil {
		if polygonRejected(err) {
			return nil, rejected(ProviderPolygon, symbol, err)
		}

		return nil, errors.FromContext(err, errors.ErrCodeFetchFailed, fmt.Sprintf("failed to download %s from polygon", symbol))
	}

	progress.finish()

	return bars, nil
}

// polygonRejected reports client errors other than rate limiting.
func polygonRejected(err error) bool {
	var response *models.ErrorResponse
	if !errors.As(err, &response) {
		return false
	}

	return response.StatusCode >= http.StatusBadRequest &&
		response.StatusCode < http.StatusInternalServerError &&
		response.StatusCode != http.StatusTooManyRequests
}
