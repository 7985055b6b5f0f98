// Package errors provides structured error types with user-facing suggestions
// for hrflow. Every failure that reaches an approver (CLI, approval link) is an
// HRFlowError carrying a stable code, the guidance to show next to it and
// whether the same action may be retried by hand.
package errors

import "errors"

// HRFlowError provides additional context for error handling.
// It wraps underlying errors with error codes and actionable suggestions.
type HRFlowError interface {
	error
	Unwrap() error              // Original error
	Code() string               // Error code (e.g., "UNAUTHORIZED")
	Suggestion() string         // Actionable fix suggestion
	Context() map[string]string // Additional context (request id, stage, table, etc.)
}

// Workflow error codes
const (
	ErrCodeRequestNotFound   = "REQUEST_NOT_FOUND"
	ErrCodePrincipalNotFound = "PRINCIPAL_NOT_FOUND"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeStoreError        = "STORE_ERROR"
	ErrCodeRateLimited       = "RATE_LIMITED"
	ErrCodeInvalidInput      = "INVALID_INPUT"
)

// DynamoDB error codes
const (
	ErrCodeDynamoDBAccessDenied    = "DYNAMODB_ACCESS_DENIED"
	ErrCodeDynamoDBTableNotFound   = "DYNAMODB_TABLE_NOT_FOUND"
	ErrCodeDynamoDBThrottled       = "DYNAMODB_THROTTLED"
	ErrCodeDynamoDBConditionFailed = "DYNAMODB_CONDITION_FAILED"
)

// SSM error codes
const (
	ErrCodeSSMAccessDenied      = "SSM_ACCESS_DENIED"
	ErrCodeSSMParameterNotFound = "SSM_PARAMETER_NOT_FOUND"
	ErrCodeSSMThrottled         = "SSM_THROTTLED"
)

// retryableCodes lists codes where the user may re-click the same action.
// Nothing is retried automatically.
var retryableCodes = map[string]bool{
	ErrCodeStoreError:        true,
	ErrCodeConflict:          true,
	ErrCodeRateLimited:       true,
	ErrCodeDynamoDBThrottled: true,
}

type hrflowError struct {
	code       string
	message    string
	suggestion string
	context    map[string]string
	cause      error
}

// Error implements the error interface.
func (e *hrflowError) Error() string {
	return e.message
}

// Unwrap returns the underlying cause error.
func (e *hrflowError) Unwrap() error {
	return e.cause
}

// Code returns the error code.
func (e *hrflowError) Code() string {
	return e.code
}

// Suggestion returns the actionable fix suggestion.
func (e *hrflowError) Suggestion() string {
	return e.suggestion
}

// Context returns additional context about the error.
func (e *hrflowError) Context() map[string]string {
	return e.context
}

// New creates a new HRFlowError with the given code, message, suggestion, and cause.
// An empty suggestion is replaced by the default suggestion for code.
func New(code, message, suggestion string, cause error) HRFlowError {
	if suggestion == "" {
		suggestion = Suggestions[code]
	}
	return &hrflowError{
		code:       code,
		message:    message,
		suggestion: suggestion,
		context:    make(map[string]string),
		cause:      cause,
	}
}

// WithContext adds context to an error and returns a new HRFlowError.
// The original error is not modified.
func WithContext(err HRFlowError, key, value string) HRFlowError {
	existing := err.Context()
	ctx := make(map[string]string, len(existing)+1)
	for k, v := range existing {
		ctx[k] = v
	}
	ctx[key] = value

	return &hrflowError{
		code:       err.Code(),
		message:    err.Error(),
		suggestion: err.Suggestion(),
		context:    ctx,
		cause:      err.Unwrap(),
	}
}

// IsHRFlowError returns the first HRFlowError in err's chain.
func IsHRFlowError(err error) (HRFlowError, bool) {
	if err == nil {
		return nil, false
	}
	var he HRFlowError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// GetCode extracts the error code from an error.
// Returns empty string if err is not an HRFlowError.
func GetCode(err error) string {
	if he, ok := IsHRFlowError(err); ok {
		return he.Code()
	}
	return ""
}

// IsRetryable reports whether the user may retry the same action.
func IsRetryable(err error) bool {
	return retryableCodes[GetCode(err)]
}
