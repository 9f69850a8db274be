package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

// absentBound is how a missing start or end date is rendered into a params hash.
const absentBound = "None"

// SignalKey identifies one cached signal computation. Start and End are part of the
// identity: an absent bound is a distinct value, not a wildcard.
type SignalKey struct {
	StrategyKey string
	Symbol      string
	Timeframe   types.Timeframe
	ParamsHash  string
	Start       types.DateBound
	End         types.DateBound
	DataVersion string
}

// BacktestKey identifies one cached backtest.
//
// It does not include the strategy parameters, so two parameter sets evaluated over the
// same symbol, range and invested amount share an entry.
type BacktestKey struct {
	StrategyKey string
	Symbol      string
	Timeframe   types.Timeframe
	Start       types.DateBound
	End         types.DateBound
	Invested    float64
}

// SignalPayload is the cached result of a signal computation.
type SignalPayload struct {
	Signals     []types.Signal `json:"signals"`
	DataVersion string         `json:"data_version"`
}

// BacktestPayload is the cached result of a backtest.
type BacktestPayload struct {
	Metrics types.Metrics  `json:"metrics"`
	Signals []types.Signal `json:"signals"`
}

type paramsDigest struct {
	End    string       `json:"end"`
	Params types.Params `json:"params"`
	Start  string       `json:"start"`
}

// ParamsHash digests resolved parameters together with the requested date bounds.
// The JSON encoding is canonical (fields and map keys sorted), so equal inputs always
// give the same hex-encoded sha256.
func ParamsHash(params types.Params, start, end types.DateBound) (string, error) {
	if params == nil {
		params = types.Params{}
	}

	payload, err := json.Marshal(paramsDigest{
		End:    boundString(end),
		Params: params,
		Start:  boundString(start),
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "failed to encode parameters", err)
	}

	sum := sha256.Sum256(payload)

	return hex.EncodeToString(sum[:]), nil
}

func boundString(b types.DateBound) string {
	if b.IsNone() {
		return absentBound
	}

	return types.FormatDateBound(b)
}
