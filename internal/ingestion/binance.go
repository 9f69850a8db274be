package ingestion

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

const (
	binanceDailyInterval = "1d"
	binancePageLimit     = 1000
)

// binanceEarliest is where a full-history download starts.
var binanceEarliest = time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

// BinanceKlinesService is the kline request builder of the binance client.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the part of the binance client the provider uses.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

// binanceAPI adapts the binance client to BinanceAPIClient.
type binanceAPI struct {
	client *binance.Client
}

func (a binanceAPI) NewKlinesService() BinanceKlinesService {
	return &binanceKlines{service: a.client.NewKlinesService()}
}

type binanceKlines struct {
	service *binance.KlinesService
}

func (k *binanceKlines) Symbol(symbol string) BinanceKlinesService {
	k.service.Symbol(symbol)

	return k
}

func (k *binanceKlines) Interval(interval string) BinanceKlinesService {
	k.service.Interval(interval)

	return k
}

func (k *binanceKlines) StartTime(startTime int64) BinanceKlinesService {
	k.service.StartTime(startTime)

	return k
}

func (k *binanceKlines) EndTime(endTime int64) BinanceKlinesService {
	k.service.EndTime(endTime)

	return k
}

func (k *binanceKlines) Limit(limit int) BinanceKlinesService {
	k.service.Limit(limit)

	return k
}

func (k *binanceKlines) Do(ctx context.Context) ([]*binance.Kline, error) {
	return k.service.Do(ctx)
}

// BinanceProvider downloads daily klines from the public binance market data API.
type BinanceProvider struct {
	api    BinanceAPIClient
	config providerConfig
}

// NewBinanceProvider creates a provider on the public endpoints; no key is needed.
func NewBinanceProvider(opts ...ProviderOption) *BinanceProvider {
	return NewBinanceProviderWithAPI(binanceAPI{client: binance.NewClient("", "")}, opts...)
}

// NewBinanceProviderWithAPI creates a provider over an existing API client.
func NewBinanceProviderWithAPI(api BinanceAPIClient, opts ...ProviderOption) *BinanceProvider {
	return &BinanceProvider{
		api:    api,
		config: newProviderConfig(opts),
	}
}

// Name implements Provider.
func (p *BinanceProvider) Name() string {
	return string(ProviderBinance)
}

// History implements Provider. Klines are requested page by page, each page starting
// after the close of the previous one.
func (p *BinanceProvider) History(ctx context.Context, symbol string, start, end types.DateBound) ([]types.PriceBar, error) {
	from, to := p.config.dateRange(start, end, binanceEarliest)
	if to.Before(from) {
		return nil, nil
	}

	progress := p.config.progressBar(symbol, from, to)

	cursor := from.UnixMilli()
	// the end date is inclusive
	last := to.AddDate(0, 0, 1).UnixMilli() - 1

	var bars []types.PriceBar

	for cursor <= last {
		klines, err := p.api.NewKlinesService().
			Symbol(symbol).
			Interval(binanceDailyInterval).
			StartTime(cursor).
			EndTime(last).
			Limit(binancePageLimit).
			Do(ctx)
		if err != nil {
			if binanceRejected(err) {
				return nil, rejected(ProviderBinance, symbol, err)
			}

			return nil, errors.FromContext(err, errors.ErrCodeFetchFailed, fmt.Sprintf("failed to download %s from binance", symbol))
		}

		for _, k := range klines {
			bar, err := klineBar(k)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err, "binance returned an unreadable kline for %s", symbol)
			}

			bars = append(bars, bar)
			progress.reached(bar.Time)
		}

		if len(klines) < binancePageLimit {
			break
		}

		cursor = klines[len(klines)-1].CloseTime + 1
	}

	progress.finish()

	return bars, nil
}

// klineBar converts a kline, stamped at its open time.
func klineBar(k *binance.Kline) (types.PriceBar, error) {
	fields := []string{k.Open, k.High, k.Low, k.Close, k.Volume}
	values := make([]float64, len(fields))

	for i, field := range fields {
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return types.PriceBar{}, err
		}

		values[i] = value
	}

	return types.PriceBar{
		Time:   types.TruncateToDate(time.UnixMilli(k.OpenTime)),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

// binanceRejected reports request errors such as an unknown symbol (codes -1100 to -1199).
func binanceRejected(err error) bool {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	return apiErr.Code <= -1100 && apiErr.Code > -1200
}
