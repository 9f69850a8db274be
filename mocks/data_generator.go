package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/argo-eval/internal/types"
)

// DataGenerator generates deterministic daily price bars for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// Symbol is the trading symbol (e.g., "AAPL", "SPY")
	Symbol string
	// StartDate is the date of the first bar
	StartDate time.Time
	// Count is the number of bars to generate
	Count int
	// InitialPrice is the starting price
	InitialPrice float64
	// Volatility controls price movement (0.01 = 1% typical daily volatility)
	Volatility float64
	// Trend is the drift factor spread across the whole series
	Trend float64
	// VolumeBase is the average volume per bar
	VolumeBase float64
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "TEST",
		StartDate:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		Count:        500,
		InitialPrice: 100.0,
		Volatility:   0.02,
		Trend:        0.0,
		VolumeBase:   1_000_000,
	}
}

// Generate creates one bar per calendar day following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.PriceBar {
	bars := make([]types.PriceBar, config.Count)
	price := config.InitialPrice
	date := types.TruncateToDate(config.StartDate)

	for i := 0; i < config.Count; i++ {
		open := price

		// Box-Muller transform for a normally distributed move
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := 0.0
		if config.Count > 0 {
			drift = config.Trend / float64(config.Count)
		}

		closePrice := open * (1 + config.Volatility*z + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		high := math.Max(open, closePrice) * (1 + g.rng.Float64()*config.Volatility*0.5)
		low := math.Min(open, closePrice) * (1 - g.rng.Float64()*config.Volatility*0.5)

		bars[i] = types.PriceBar{
			Time:   date,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(closePrice, 4),
			Volume: roundToDecimals(config.VolumeBase*(0.5+g.rng.Float64()), 0),
		}

		price = closePrice
		date = date.AddDate(0, 0, 1)
	}

	return bars
}

// GenerateSeries wraps Generate into a TimeSeries.
func (g *DataGenerator) GenerateSeries(config GeneratorConfig) (types.TimeSeries, error) {
	return types.NewTimeSeries(config.Symbol, types.TimeframeDaily, g.Generate(config))
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
