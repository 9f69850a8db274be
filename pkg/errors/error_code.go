package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter   ErrorCode = 100
	ErrCodeBadRequest         ErrorCode = 101
	ErrCodeInvalidTimeframe   ErrorCode = 102
	ErrCodeInvalidDateRange   ErrorCode = 103
	ErrCodeMissingParameter   ErrorCode = 104
	ErrCodeInvalidSignal      ErrorCode = 105
	ErrCodeInvalidConfig      ErrorCode = 106
	ErrCodeInvalidPriceBar    ErrorCode = 107
	ErrCodeUnknownParameter   ErrorCode = 108
	ErrCodeInvalidParamSchema ErrorCode = 109

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound   ErrorCode = 200
	ErrCodeNoData         ErrorCode = 201
	ErrCodeEmptySeries    ErrorCode = 202
	ErrCodeDuplicateBar   ErrorCode = 203
	ErrCodeQueryFailed    ErrorCode = 204
	ErrCodeCacheCorrupt   ErrorCode = 205
	ErrCodeUnpricedSeries ErrorCode = 206

	// Strategy errors (400-499)
	ErrCodeStrategyNotFound      ErrorCode = 400
	ErrCodeStrategyConfigError   ErrorCode = 401
	ErrCodeStrategyAlreadyExists ErrorCode = 402

	// Store and market data errors (700-799)
	ErrCodeFetchFailed           ErrorCode = 700
	ErrCodeStoreTimeout          ErrorCode = 701
	ErrCodeStoreUnavailable      ErrorCode = 702
	ErrCodeCacheWriteFailed      ErrorCode = 703
	ErrCodeSchemaIncompatible    ErrorCode = 704
	ErrCodeMarketDataWriteFailed ErrorCode = 705
	ErrCodeInvalidProvider       ErrorCode = 706
	ErrCodeProviderRejected      ErrorCode = 707
)

// ResponseCode is the outward-facing error code carried by a result envelope.
type ResponseCode string

const (
	ResponseBadRequest ResponseCode = "BAD_REQUEST"
	ResponseNotFound   ResponseCode = "NOT_FOUND"
	ResponseNoData     ResponseCode = "NO_DATA"
	ResponseFetchError ResponseCode = "FETCH_ERROR"
)

// ResponseCodeOf maps an internal error code onto the envelope taxonomy.
// Unclassified codes are treated as infrastructure failures.
func ResponseCodeOf(code ErrorCode) ResponseCode {
	switch {
	case code >= 100 && code < 200:
		return ResponseBadRequest
	case code == ErrCodeStrategyNotFound:
		return ResponseNotFound
	case code == ErrCodeNoData, code == ErrCodeEmptySeries, code == ErrCodeDataNotFound, code == ErrCodeUnpricedSeries:
		return ResponseNoData
	default:
		return ResponseFetchError
	}
}
