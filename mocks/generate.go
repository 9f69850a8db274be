package mocks

//go:generate mockgen -destination=./mock_price_store.go -package=mocks github.com/rxtech-lab/argo-eval/internal/marketdata PriceStore
//go:generate mockgen -destination=./mock_cache.go -package=mocks github.com/rxtech-lab/argo-eval/internal/cache SignalCache,BacktestCache
//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-eval/internal/ingestion Provider
