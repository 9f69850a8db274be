package ingestion

import (
	"bytes"
	"context"
	stderrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// fakePolygonAPI records the last request and serves a fixed iterator.
type fakePolygonAPI struct {
	iterator PolygonAggsIterator
	params   *models.ListAggsParams
	calls    int
}

func (f *fakePolygonAPI) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	f.params = params
	f.calls++

	return f.iterator
}

type fakeAggsIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (f *fakeAggsIterator) Next() bool {
	if f.index < len(f.aggs) {
		f.index++

		return true
	}

	return false
}

func (f *fakeAggsIterator) Item() models.Agg {
	return f.aggs[f.index-1]
}

func (f *fakeAggsIterator) Err() error {
	return f.err
}

type PolygonProviderTestSuite struct {
	suite.Suite
	today time.Time
	ctx   context.Context
}

func TestPolygonProviderSuite(t *testing.T) {
	suite.Run(t, new(PolygonProviderTestSuite))
}

func (suite *PolygonProviderTestSuite) SetupTest() {
	suite.today = time.Date(2024, 6, 28, 15, 30, 0, 0, time.UTC)
	suite.ctx = context.Background()
}

func (suite *PolygonProviderTestSuite) provider(api PolygonAPIClient, opts ...ProviderOption) *PolygonProvider {
	opts = append(opts, WithToday(func() time.Time { return suite.today }))

	return NewPolygonProviderWithAPI(api, opts...)
}

func (suite *PolygonProviderTestSuite) TestNewPolygonProviderRequiresKey() {
	_, err := NewPolygonProvider("")
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfig))

	provider, err := NewPolygonProvider("key")
	suite.Require().NoError(err)
	suite.Equal("polygon", provider.Name())
}

func (suite *PolygonProviderTestSuite) TestHistoryConvertsBars() {
	// polygon stamps daily bars at midnight New York time
	newYork := time.FixedZone("EDT", -4*60*60)
	api := &fakePolygonAPI{iterator: &fakeAggsIterator{aggs: []models.Agg{
		{Open: 10, High: 12, Low: 9, Close: 11, Volume: 1000, Timestamp: models.Millis(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC))},
		{Open: 11, High: 13, Low: 10, Close: 12.5, Volume: 1500, Timestamp: models.Millis(time.Date(2024, 6, 4, 0, 0, 0, 0, newYork))},
	}}}

	bars, err := suite.provider(api).History(suite.ctx, "SPY",
		types.BoundAt(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)),
		types.BoundAt(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)))
	suite.Require().NoError(err)
	suite.Equal([]types.PriceBar{
		{Time: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), Open: 10, High: 12, Low: 9, Close: 11, Volume: 1000},
		{Time: time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC), Open: 11, High: 13, Low: 10, Close: 12.5, Volume: 1500},
	}, bars)

	suite.Require().NotNil(api.params)
	suite.Equal("SPY", api.params.Ticker)
	suite.Equal(models.Day, api.params.Timespan)
	suite.Equal(1, api.params.Multiplier)
	suite.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), time.Time(api.params.From))
	suite.Equal(time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), time.Time(api.params.To))
	suite.Require().NotNil(api.params.Limit)
	suite.Equal(polygonPageLimit, *api.params.Limit)
}

func (suite *PolygonProviderTestSuite) TestHistoryDefaultsToFullRange() {
	api := &fakePolygonAPI{iterator: &fakeAggsIterator{}}

	bars, err := suite.provider(api).History(suite.ctx, "SPY", types.NoBound(), types.NoBound())
	suite.Require().NoError(err)
	suite.Empty(bars)
	suite.Equal(polygonEarliest, time.Time(api.params.From))
	suite.Equal(time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC), time.Time(api.params.To))
}

func (suite *PolygonProviderTestSuite) TestHistoryEmptyRangeSkipsRequest() {
	api := &fakePolygonAPI{iterator: &fakeAggsIterator{}}

	bars, err := suite.provider(api).History(suite.ctx, "SPY",
		types.BoundAt(time.Date(2024, 6, 29, 0, 0, 0, 0, time.UTC)), types.NoBound())
	suite.Require().NoError(err)
	suite.Nil(bars)
	suite.Equal(0, api.calls)
}

func (suite *PolygonProviderTestSuite) TestHistoryErrors() {
	tests := []struct {
		name string
		err  error
		code errors.ErrorCode
	}{
		{name: "server error", err: &models.ErrorResponse{StatusCode: http.StatusBadGateway}, code: errors.ErrCodeFetchFailed},
		{name: "rate limited", err: &models.ErrorResponse{StatusCode: http.StatusTooManyRequests}, code: errors.ErrCodeFetchFailed},
		{name: "unknown ticker", err: &models.ErrorResponse{StatusCode: http.StatusNotFound}, code: errors.ErrCodeProviderRejected},
		{name: "connection reset", err: stderrors.New("connection reset by peer"), code: errors.ErrCodeFetchFailed},
		{name: "deadline", err: context.DeadlineExceeded, code: errors.ErrCodeStoreTimeout},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			api := &fakePolygonAPI{iterator: &fakeAggsIterator{err: tt.err}}

			_, err := suite.provider(api).History(suite.ctx, "SPY", types.NoBound(), types.NoBound())
			suite.Require().Error(err)
			suite.True(errors.HasCode(err, tt.code), "got %v", err)
			suite.Equal(errors.ResponseFetchError, errors.ResponseCodeFor(err))
		})
	}
}

func (suite *PolygonProviderTestSuite) TestHistoryRendersProgress() {
	var out bytes.Buffer

	api := &fakePolygonAPI{iterator: &fakeAggsIterator{aggs: []models.Agg{
		{Open: 1, High: 1, Low: 1, Close: 1, Volume: 1, Timestamp: models.Millis(time.Date(2024, 6, 27, 0, 0, 0, 0, time.UTC))},
	}}}

	_, err := suite.provider(api, WithProgress(&out)).History(suite.ctx, "SPY",
		types.BoundAt(time.Date(2024, 6, 26, 0, 0, 0, 0, time.UTC)), types.NoBound())
	suite.Require().NoError(err)
	suite.Contains(out.String(), "Downloading SPY")
}
