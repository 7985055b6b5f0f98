// Package lambda serves approval links from API Gateway v2 HTTP APIs.
package lambda

import (
	"errors"
	"time"

	"github.com/byteness/hrflow/directory"
	"github.com/byteness/hrflow/request"
)

// MaxBodyBytes is the largest accepted POST body.
const MaxBodyBytes = 8 * 1024

// ActRequest is the body of an approve or reject POST.
type ActRequest struct {
	Approver string `json:"approver"`
	Remarks  string `json:"remarks,omitempty"`
}

// ViewResponse is returned by GET /requests/{type}/{id}.
type ViewResponse struct {
	Request    *request.WorkflowRequest `json:"request"`
	Approver   *directory.Principal     `json:"approver,omitempty"`
	Actionable bool                     `json:"actionable"`
	Reason     string                   `json:"reason,omitempty"`
	Policy     string                   `json:"policy"`
	HRContact  *directory.Principal     `json:"hr_contact,omitempty"`
}

// ActResponse is returned by a successful approve or reject.
type ActResponse struct {
	Request    *request.WorkflowRequest `json:"request"`
	Previous   request.Status           `json:"previous_status"`
	Summary    string                   `json:"summary"`
	FastPath   bool                     `json:"fast_path,omitempty"`
	LogUpdated bool                     `json:"log_updated"`
	ActedAt    time.Time                `json:"acted_at"`
}

// ErrorResponseBody is the JSON body of every non-2xx response.
type ErrorResponseBody struct {
	Message    string `json:"Message"`
	Code       string `json:"Code,omitempty"`
	Suggestion string `json:"Suggestion,omitempty"`
	Retryable  bool   `json:"Retryable,omitempty"`
}

// ErrBodyTooLarge is returned when a POST body exceeds MaxBodyBytes.
var ErrBodyTooLarge = errors.New("request body too large")
