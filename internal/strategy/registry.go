package strategy

import (
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

// Info is the outward description of a registered strategy, used to render
// configuration forms.
type Info struct {
	Key       string             `json:"key" yaml:"key"`
	Name      string             `json:"name" yaml:"name"`
	Category  Category           `json:"category" yaml:"category"`
	Version   int                `json:"version" yaml:"version"`
	ParamDefs types.ParamSchema  `json:"param_defs" yaml:"param_defs"`
	Schema    *jsonschema.Schema `json:"schema" yaml:"-"`
}

// Registry is an immutable key to strategy mapping. It is built once at startup and
// is safe for any number of concurrent readers.
type Registry struct {
	strategies map[string]Strategy
	infos      []Info
}

// NewRegistry validates and registers the given strategies.
// Registration fails on an empty key or name, an unknown category, a version below 1,
// an inconsistent parameter schema, or a duplicate key.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	r := &Registry{
		strategies: make(map[string]Strategy, len(strategies)),
		infos:      make([]Info, 0, len(strategies)),
	}

	for _, s := range strategies {
		if err := checkStrategy(s); err != nil {
			return nil, err
		}

		if _, exists := r.strategies[s.Key()]; exists {
			return nil, errors.Newf(errors.ErrCodeStrategyAlreadyExists, "strategy with key %s already registered", s.Key())
		}

		r.strategies[s.Key()] = s
		r.infos = append(r.infos, describe(s))
	}

	sort.Slice(r.infos, func(i, j int) bool {
		return r.infos[i].Key < r.infos[j].Key
	})

	return r, nil
}

// DefaultRegistry registers every built-in strategy.
func DefaultRegistry() (*Registry, error) {
	return NewRegistry(
		NewSMACrossover(),
	)
}

// Lookup returns the strategy registered under key. An unknown key is an expected
// condition, reported through the boolean.
func (r *Registry) Lookup(key string) (Strategy, bool) {
	s, ok := r.strategies[key]

	return s, ok
}

// Keys returns the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.infos))
	for _, info := range r.infos {
		keys = append(keys, info.Key)
	}

	return keys
}

// List describes every registered strategy.
func (r *Registry) List() []Info {
	out := make([]Info, len(r.infos))
	copy(out, r.infos)

	return out
}

// Describe returns the Info of one strategy.
func (r *Registry) Describe(key string) (Info, bool) {
	for _, info := range r.infos {
		if info.Key == key {
			return info, true
		}
	}

	return Info{}, false
}

func checkStrategy(s Strategy) error {
	if s == nil {
		return errors.New(errors.ErrCodeStrategyConfigError, "cannot register a nil strategy")
	}

	if s.Key() == "" || s.Name() == "" {
		return errors.New(errors.ErrCodeStrategyConfigError, "strategy key and name are required")
	}

	switch s.Category() {
	case CategoryTechnical, CategoryFundamental, CategoryMachineLearning:
	default:
		return errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %s has unknown category %q", s.Key(), s.Category())
	}

	if s.Version() < 1 {
		return errors.Newf(errors.ErrCodeStrategyConfigError, "strategy %s must have a version >= 1", s.Key())
	}

	for name, def := range s.ParamSchema() {
		if def.Min > def.Max {
			return errors.Newf(errors.ErrCodeInvalidParamSchema, "strategy %s parameter %s has min %v > max %v",
				s.Key(), name, def.Min, def.Max)
		}

		if def.Default < def.Min || def.Default > def.Max {
			return errors.Newf(errors.ErrCodeInvalidParamSchema, "strategy %s parameter %s default %v is outside [%v, %v]",
				s.Key(), name, def.Default, def.Min, def.Max)
		}

		if def.Step < 0 {
			return errors.Newf(errors.ErrCodeInvalidParamSchema, "strategy %s parameter %s has negative step", s.Key(), name)
		}
	}

	return nil
}

func describe(s Strategy) Info {
	return Info{
		Key:       s.Key(),
		Name:      s.Name(),
		Category:  s.Category(),
		Version:   s.Version(),
		ParamDefs: s.ParamSchema(),
		Schema:    ParamsJSONSchema(s),
	}
}
