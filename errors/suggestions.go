package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/smithy-go"
)

// Suggestions contains default fix suggestions for each error code.
var Suggestions = map[string]string{
	ErrCodeRequestNotFound: "The request does not exist. " +
		"Ask the requester for a new approval link.",
	ErrCodePrincipalNotFound: "The approver in this link is not in the employee directory. " +
		"Ask HR to add you to the directory or request a new approval link.",
	ErrCodeUnauthorized: "You do not hold the role required for this approval stage. " +
		"The request will wait for an authorized approver.",
	ErrCodeInvalidState: "Action already taken or invalid status. No further action is possible on this request.",
	ErrCodeConflict:     "Someone else acted on this request at the same time. Reload the request and try again.",
	ErrCodeStoreError:   "The request could not be saved. Try the same action again in a moment.",
	ErrCodeRateLimited:  "Too many actions in a short time. Wait a moment and try again.",
	ErrCodeInvalidInput: "Check the request type, request id and approver values and try again.",
	ErrCodeDynamoDBAccessDenied: "Ensure the IAM policy includes dynamodb:GetItem, dynamodb:UpdateItem " +
		"and dynamodb:Query on the hrflow tables.",
	ErrCodeDynamoDBTableNotFound: "The DynamoDB table does not exist. " +
		"Check the table names in the hrflow configuration.",
	ErrCodeDynamoDBThrottled:       "DynamoDB throughput exceeded. Wait a moment and retry, or increase table capacity.",
	ErrCodeDynamoDBConditionFailed: "The DynamoDB conditional check failed. The item may have been modified by another process.",
	ErrCodeSSMAccessDenied:         "Ensure the IAM policy includes ssm:GetParameter on the hrflow configuration parameter.",
	ErrCodeSSMParameterNotFound:    "The SSM parameter does not exist. Check HRFLOW_CONFIG_PARAMETER.",
	ErrCodeSSMThrottled:            "SSM API rate limit exceeded. Wait a moment and retry.",
}

// GetSuggestion returns the default suggestion for an error code.
// Returns empty string if no suggestion is defined.
func GetSuggestion(code string) string {
	return Suggestions[code]
}

// awsFailure is the coarse kind of an AWS API failure.
type awsFailure int

const (
	failureOther awsFailure = iota
	failureParameterNotFound
	failureNotFound
	failureAccessDenied
	failureThrottled
	failureConditionFailed
)

// failureMarkers are matched in order against the lowercased smithy error
// code and message. The first hit wins.
var failureMarkers = []struct {
	kind    awsFailure
	markers []string
}{
	{failureParameterNotFound, []string{"parameternotfound", "parameter not found"}},
	{failureNotFound, []string{"resourcenotfound", "resource not found", "table not found", "non-existent table"}},
	{failureAccessDenied, []string{"accessdenied", "access denied", "not authorized", "403"}},
	{failureThrottled, []string{"throttl", "rate exceeded", "too many requests", "provisionedthroughputexceeded"}},
	{failureConditionFailed, []string{"conditionalcheckfailed", "conditional request failed"}},
}

func classifyAWSFailure(err error) awsFailure {
	text := strings.ToLower(apiErrorCode(err) + " " + err.Error())
	for _, f := range failureMarkers {
		for _, m := range f.markers {
			if strings.Contains(text, m) {
				return f.kind
			}
		}
	}
	return failureOther
}

// WrapDynamoDBError classifies a DynamoDB failure on table into an
// HRFlowError carrying table and operation as context.
func WrapDynamoDBError(err error, table, operation string) HRFlowError {
	if err == nil {
		return nil
	}

	code, message := ErrCodeStoreError, fmt.Sprintf("DynamoDB error for table %s during %s: %v", table, operation, err)
	switch classifyAWSFailure(err) {
	case failureNotFound:
		code, message = ErrCodeDynamoDBTableNotFound, "DynamoDB table not found: "+table
	case failureAccessDenied:
		code, message = ErrCodeDynamoDBAccessDenied, "Access denied to DynamoDB table: "+table
	case failureThrottled:
		code, message = ErrCodeDynamoDBThrottled, "DynamoDB throughput exceeded for table: "+table
	case failureConditionFailed:
		code, message = ErrCodeDynamoDBConditionFailed, "DynamoDB conditional check failed for table: "+table
	}

	he := WithContext(New(code, message, "", err), "table", table)
	return WithContext(he, "operation", operation)
}

// WrapSSMError classifies a Parameter Store failure on parameter. Anything
// unrecognised is reported as access denied.
func WrapSSMError(err error, parameter string) HRFlowError {
	if err == nil {
		return nil
	}

	code, message := ErrCodeSSMAccessDenied, fmt.Sprintf("SSM error for parameter %s: %v", parameter, err)
	switch classifyAWSFailure(err) {
	case failureParameterNotFound:
		code, message = ErrCodeSSMParameterNotFound, "SSM parameter not found: "+parameter
	case failureAccessDenied:
		message = "Access denied to SSM parameter: " + parameter
	case failureThrottled:
		code, message = ErrCodeSSMThrottled, "SSM API throttled while accessing: "+parameter
	}

	return WithContext(New(code, message, "", err), "parameter", parameter)
}

// apiErrorCode returns the smithy error code of err, or "" for non-API errors.
func apiErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}
