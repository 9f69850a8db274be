package strategy

import (
	"github.com/rxtech-lab/argo-eval/internal/backtest"
	"github.com/rxtech-lab/argo-eval/internal/types"
)

// Category groups strategies for presentation.
type Category string

const (
	CategoryTechnical       Category = "technical"
	CategoryFundamental     Category = "fundamental"
	CategoryMachineLearning Category = "machine learning"
)

// Strategy is a pluggable signal generator with its own backtest.
// Implementations must be pure: the same inputs always give the same outputs.
type Strategy interface {
	// Key is the unique, stable identifier used for lookups and cache keys.
	Key() string
	// Name is the human-readable name.
	Name() string
	// Category is the strategy family.
	Category() Category
	// Version is bumped on any behavior change.
	Version() int
	// ParamSchema describes every tunable parameter. It never changes.
	ParamSchema() types.ParamSchema
	// ParamSpace holds optimization search bounds. Not used during evaluation.
	ParamSpace() types.ParamSpace
	// ComputeSignals returns a normalized buy/sell sequence for series.
	// Missing params take their defaults; out-of-range params fail with ErrCodeInvalidParameter.
	ComputeSignals(series types.TimeSeries, params types.Params) ([]types.Signal, error)
	// Backtest replays signals against series starting with invested cash.
	Backtest(series types.TimeSeries, signals []types.Signal, invested float64) (types.Metrics, error)
}

// Base carries a strategy's metadata and the default long-only backtest.
// Concrete strategies embed it and implement ComputeSignals.
type Base struct {
	key       string
	name      string
	category  Category
	version   int
	schema    types.ParamSchema
	space     types.ParamSpace
	simulator *backtest.Simulator
}

// NewBase builds the metadata part of a strategy.
func NewBase(key, name string, category Category, version int, schema types.ParamSchema, space types.ParamSpace) Base {
	return Base{
		key:       key,
		name:      name,
		category:  category,
		version:   version,
		schema:    schema,
		space:     space,
		simulator: backtest.NewSimulator(),
	}
}

func (b Base) Key() string { return b.key }

func (b Base) Name() string { return b.name }

func (b Base) Category() Category { return b.category }

func (b Base) Version() int { return b.version }

func (b Base) ParamSpace() types.ParamSpace { return b.space }

// ParamSchema returns a copy so callers cannot mutate the strategy's schema.
func (b Base) ParamSchema() types.ParamSchema {
	out := make(types.ParamSchema, len(b.schema))
	for name, def := range b.schema {
		out[name] = def
	}

	return out
}

// Backtest runs the long-only simulator.
func (b Base) Backtest(series types.TimeSeries, signals []types.Signal, invested float64) (types.Metrics, error) {
	return b.simulator.Run(series, signals, invested)
}
