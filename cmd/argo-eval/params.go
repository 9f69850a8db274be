package main

import (
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

// parseParams turns repeated name=value flags into strategy parameters.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		name, raw, found := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)

		if !found || name == "" {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q must look like name=value", pair)
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "parameter %q must be a number", name)
		}

		params[name] = value
	}

	return params, nil
}
