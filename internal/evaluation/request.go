package evaluation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-eval/internal/types"
	"github.com/rxtech-lab/argo-eval/pkg/errors"
)

const (
	DefaultSymbol   = "SPY"
	DefaultInvested = 10_000.0
)

const (
	MessageOK             = "OK"
	MessageCached         = "OK (cached)"
	MessageUnknown        = "Unknown strategy"
	MessageNoData         = "No data"
	MessageListed         = "All Strategies Retrieved"
	MessageStrategyFound  = "Strategy was successfully returned"
	MessageStrategyAbsent = "This strategy does not exist"
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9.\-^=]+$`)

// Request asks for signals or a backtest of one strategy over one symbol.
// Zero values take the service defaults.
type Request struct {
	StrategyKey string         `yaml:"strategy" json:"-" validate:"required"`
	Symbol      string         `yaml:"symbol" json:"symbol" validate:"omitempty,max=16,symbol"`
	Timeframe   string         `yaml:"timeframe" json:"timeframe"`
	Start       string         `yaml:"start" json:"start" validate:"omitempty,datetime=2006-01-02"`
	End         string         `yaml:"end" json:"end" validate:"omitempty,datetime=2006-01-02"`
	Params      map[string]any `yaml:"params" json:"params"`
	Invested    *float64       `yaml:"invested" json:"invested" validate:"omitempty,gte=0"`
}

// ErrorBody carries the machine-readable failure code. It is empty on success.
type ErrorBody struct {
	Code   errors.ResponseCode `json:"code,omitempty" yaml:"code,omitempty"`
	Detail string              `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Response is the uniform result envelope of every operation.
type Response struct {
	Success bool      `json:"success" yaml:"success"`
	Message string    `json:"message" yaml:"message"`
	Data    any       `json:"data" yaml:"data"`
	Error   ErrorBody `json:"error" yaml:"error"`
}

// BacktestResult is the data of a successful backtest.
type BacktestResult struct {
	types.Metrics `yaml:",inline"`
	Signals       []types.Signal `json:"signals" yaml:"signals"`
}

// resolvedRequest is a Request after validation and defaulting.
type resolvedRequest struct {
	symbol    string
	timeframe types.Timeframe
	start     types.DateBound
	end       types.DateBound
	invested  float64
}

func ok(message string, data any) Response {
	return Response{Success: true, Message: message, Data: data, Error: ErrorBody{}}
}

func fail(message string, code errors.ResponseCode, detail string) Response {
	return Response{Success: false, Message: message, Data: map[string]any{}, Error: ErrorBody{Code: code, Detail: detail}}
}

// failWith builds the failure envelope for err. The message is the error's own message.
func failWith(err error) Response {
	message := err.Error()

	var e *errors.Error
	if errors.As(err, &e) {
		message = e.Message
	}

	return fail(message, errors.ResponseCodeFor(err), err.Error())
}

func newValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(fl.Field().String())
	})

	return validate
}

func validationError(err error) error {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return errors.Wrap(errors.ErrCodeBadRequest, "invalid request", err)
	}

	problems := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		problems = append(problems, fmt.Sprintf("%s failed on '%s'", strings.ToLower(fe.Field()), fe.Tag()))
	}

	return errors.Wrap(errors.ErrCodeBadRequest, "invalid request: "+strings.Join(problems, ", "), err)
}
