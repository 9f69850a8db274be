package types

import "sort"

// ParamDef describes one tunable numeric strategy parameter.
type ParamDef struct {
	Label   string  `json:"label" yaml:"label"`
	Default float64 `json:"default" yaml:"default"`
	Min     float64 `json:"min" yaml:"min"`
	Max     float64 `json:"max" yaml:"max"`
	Step    float64 `json:"step" yaml:"step"`
}

// Integral reports whether the parameter only takes whole values.
func (d ParamDef) Integral() bool {
	return d.Step > 0 && d.Step == float64(int64(d.Step))
}

// ParamSchema maps parameter names to their definitions.
type ParamSchema map[string]ParamDef

// Names returns the parameter names in sorted order.
func (s ParamSchema) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Defaults returns every parameter set to its default value.
func (s ParamSchema) Defaults() Params {
	params := make(Params, len(s))
	for name, def := range s {
		params[name] = def.Default
	}

	return params
}

// Params is a resolved parameter set.
type Params map[string]float64

// Int returns the named parameter truncated to an int.
func (p Params) Int(name string) int {
	return int(p[name])
}

// ParamKind is the value domain of a search dimension.
type ParamKind string

const (
	ParamKindInt   ParamKind = "int"
	ParamKindFloat ParamKind = "float"
)

// ParamRange bounds one dimension of a strategy's optimization search space.
type ParamRange struct {
	Kind ParamKind `json:"kind" yaml:"kind"`
	Low  float64   `json:"low" yaml:"low"`
	High float64   `json:"high" yaml:"high"`
}

// ParamSpace holds optimization search bounds. It is descriptive only and never used
// during evaluation.
type ParamSpace map[string]ParamRange
