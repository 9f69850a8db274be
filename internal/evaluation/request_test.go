package evaluation_test

import (
	"encoding/json"
	"testing"

	"github.com/rxtech-lab/argo-eval/internal/evaluation"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestBacktestResultEncodingIsFlat(t *testing.T) {
	result := evaluation.BacktestResult{
		Metrics: types.Metrics{FinalEquity: 1100, ReturnPct: 0.1, TradeCount: 1, Wins: 1, WinRate: 1},
		Signals: []types.Signal{types.Buy(2), types.Sell(4)},
	}

	var fromYAML map[string]any

	data, err := yaml.Marshal(result)
	require.NoError(t, err)
	require.NoError(t, yaml.Unmarshal(data, &fromYAML))

	var fromJSON map[string]any

	data, err = json.Marshal(result)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &fromJSON))

	for _, key := range []string{"final_equity", "return_pct", "trade_count", "wins", "win_rate", "signals"} {
		assert.Contains(t, fromYAML, key)
		assert.Contains(t, fromJSON, key)
	}

	assert.NotContains(t, fromYAML, "metrics")
	assert.Len(t, fromYAML, len(fromJSON))
}

func TestResponseYAMLOmitsEmptyError(t *testing.T) {
	data, err := yaml.Marshal(evaluation.Response{Success: true, Message: evaluation.MessageOK, Data: nil, Error: evaluation.ErrorBody{}})
	require.NoError(t, err)
	assert.Contains(t, string(data), "success: true")
	assert.NotContains(t, string(data), "code")

	data, err = yaml.Marshal(evaluation.Response{
		Success: false,
		Message: evaluation.MessageNoData,
		Data:    nil,
		Error:   evaluation.ErrorBody{Code: errors.ResponseNoData, Detail: ""},
	})
	require.NoError(t, err)
	assert.Contains(t, string(data), "code: NO_DATA")
	assert.NotContains(t, string(data), "detail")
}
