package strategy

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

// ResolveParams converts caller-supplied raw values into a validated parameter set,
// filling unspecified parameters with their defaults. Unknown names, non-numeric values
// and values outside [min, max] are rejected rather than clamped.
func ResolveParams(schema types.ParamSchema, supplied map[string]any) (types.Params, error) {
	params := make(types.Params, len(supplied))

	for name, raw := range supplied {
		if _, ok := schema[name]; !ok {
			return nil, errors.Newf(errors.ErrCodeUnknownParameter,
				"unknown parameter %q, expected one of [%s]", name, strings.Join(schema.Names(), ", "))
		}

		value, err := toFloat(raw)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "parameter %q must be a number", name)
		}

		params[name] = value
	}

	return ValidateParams(schema, params)
}

// ValidateParams merges params over the schema defaults and checks every value.
func ValidateParams(schema types.ParamSchema, params types.Params) (types.Params, error) {
	merged := schema.Defaults()

	for name, value := range params {
		def, ok := schema[name]
		if !ok {
			return nil, errors.Newf(errors.ErrCodeUnknownParameter, "unknown parameter %q", name)
		}

		if math.IsNaN(value) || math.IsInf(value, 0) {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be finite, got %v", name, value)
		}

		if value < def.Min || value > def.Max {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter,
				"parameter %q must be within [%v, %v], got %v", name, def.Min, def.Max, value)
		}

		if def.Integral() && value != math.Trunc(value) {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must be an integer, got %v", name, value)
		}

		merged[name] = value
	}

	return merged, nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported value type %T", raw)
	}
}
