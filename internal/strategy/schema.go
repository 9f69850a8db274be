package strategy

import (
	"encoding/json"
	"strconv"

	"github.com/invopop/jsonschema"
)

// ParamsJSONSchema renders a strategy's parameters as a draft-07 JSON schema object.
func ParamsJSONSchema(s Strategy) *jsonschema.Schema {
	schema := s.ParamSchema()

	//nolint:exhaustruct // third-party struct with many optional fields
	out := &jsonschema.Schema{
		Version:              "http://json-schema.org/draft-07/schema#",
		Title:                s.Key(),
		Description:          s.Name(),
		Type:                 "object",
		Properties:           jsonschema.NewProperties(),
		AdditionalProperties: jsonschema.FalseSchema,
	}

	for _, name := range schema.Names() {
		def := schema[name]

		kind := "number"
		if def.Integral() {
			kind = "integer"
		}

		//nolint:exhaustruct // third-party struct with many optional fields
		prop := &jsonschema.Schema{
			Type:    kind,
			Title:   def.Label,
			Default: def.Default,
			Minimum: number(def.Min),
			Maximum: number(def.Max),
		}

		if def.Step > 0 {
			prop.MultipleOf = number(def.Step)
		}

		out.Properties.Set(name, prop)
	}

	return out
}

func number(v float64) json.Number {
	return json.Number(strconv.FormatFloat(v, 'f', -1, 64))
}
