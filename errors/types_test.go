package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestHRFlowErrorInterface(t *testing.T) {
	var _ HRFlowError = &hrflowError{}
}

func TestHRFlowError_Accessors(t *testing.T) {
	cause := errors.New("underlying error")
	err := &hrflowError{
		code:       ErrCodeUnauthorized,
		message:    "approver lacks HR role",
		suggestion: "wait for HR",
		context:    map[string]string{"stage": "HR"},
		cause:      cause,
	}

	if got := err.Error(); got != "approver lacks HR role" {
		t.Errorf("Error() = %q, want %q", got, "approver lacks HR role")
	}
	if got := err.Code(); got != ErrCodeUnauthorized {
		t.Errorf("Code() = %q, want %q", got, ErrCodeUnauthorized)
	}
	if got := err.Suggestion(); got != "wait for HR" {
		t.Errorf("Suggestion() = %q, want %q", got, "wait for HR")
	}
	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
	if got := err.Context()["stage"]; got != "HR" {
		t.Errorf("Context()[stage] = %q, want %q", got, "HR")
	}
}

func TestNew_DefaultSuggestion(t *testing.T) {
	err := New(ErrCodeInvalidState, "request already approved", "", nil)

	if err.Suggestion() != Suggestions[ErrCodeInvalidState] {
		t.Errorf("Suggestion() = %q, want default for %s", err.Suggestion(), ErrCodeInvalidState)
	}
	if err.Context() == nil {
		t.Error("Context() should be initialized")
	}
}

func TestWithContext_DoesNotModifyOriginal(t *testing.T) {
	original := New(ErrCodeRequestNotFound, "not found", "", nil)
	original = WithContext(original, "request_id", "abc")

	extended := WithContext(original, "request_type", "Leave")

	if len(original.Context()) != 1 {
		t.Errorf("original context len = %d, want 1", len(original.Context()))
	}
	if extended.Context()["request_id"] != "abc" || extended.Context()["request_type"] != "Leave" {
		t.Errorf("extended context = %v", extended.Context())
	}
	if extended.Code() != ErrCodeRequestNotFound {
		t.Errorf("extended Code() = %q, want %q", extended.Code(), ErrCodeRequestNotFound)
	}
}

func TestGetCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"plain error", errors.New("boom"), ""},
		{"hrflow error", New(ErrCodeConflict, "conflict", "", nil), ErrCodeConflict},
		{"wrapped hrflow error", fmt.Errorf("ctx: %w", New(ErrCodeConflict, "conflict", "", nil)), ErrCodeConflict},
		{"doubly wrapped hrflow error", fmt.Errorf("lookup by name: %w", fmt.Errorf("ctx: %w", New(ErrCodeDynamoDBThrottled, "slow down", "", nil))), ErrCodeDynamoDBThrottled},
		{"formatted without wrapping", fmt.Errorf("ctx: %v", New(ErrCodeConflict, "conflict", "", nil)), ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := GetCode(tc.err); got != tc.want {
				t.Errorf("GetCode() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	testCases := []struct {
		code string
		want bool
	}{
		{ErrCodeStoreError, true},
		{ErrCodeConflict, true},
		{ErrCodeRateLimited, true},
		{ErrCodeDynamoDBThrottled, true},
		{ErrCodeRequestNotFound, false},
		{ErrCodePrincipalNotFound, false},
		{ErrCodeUnauthorized, false},
		{ErrCodeInvalidState, false},
		{ErrCodeInvalidInput, false},
	}

	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			if got := IsRetryable(New(tc.code, "msg", "", nil)); got != tc.want {
				t.Errorf("IsRetryable(%s) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}
