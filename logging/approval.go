package logging

import (
	"time"

	"github.com/byteness/hrflow/approval"
	"github.com/byteness/hrflow/iso8601"
	"github.com/byteness/hrflow/request"
)

// Event names written to the "event" field.
const (
	EventForwarded    = "request.forwarded" // HOD approved, now pending HR
	EventApproved     = "request.approved"
	EventRejected     = "request.rejected"
	EventActionFailed = "request.action_failed"
)

// ApprovalLogEntry captures one applied transition.
type ApprovalLogEntry struct {
	Timestamp   string `json:"timestamp"` // ISO8601 format
	Event       string `json:"event"`     // request.forwarded, request.approved, request.rejected
	RequestID   string `json:"request_id"`
	RequestType string `json:"request_type"`
	Requester   string `json:"requester"`
	FromStatus  string `json:"from_status"`
	Status      string `json:"status"`
	Stage       string `json:"stage"`

	// Approver is the principal ID of the actor.
	Approver     string `json:"approver"`
	ApproverName string `json:"approver_name,omitempty"`
	Remarks      string `json:"remarks,omitempty"`

	// FastPath is set when both stages were decided at once.
	FastPath bool `json:"fast_path,omitempty"`

	// Policy names the authorizer that allowed the action.
	Policy string `json:"policy,omitempty"`

	// LogRowUpdated is false when the audit row write was skipped or failed.
	LogRowUpdated bool `json:"log_row_updated"`
}

// NewApprovalLogEntry creates an ApprovalLogEntry for an applied transition.
func NewApprovalLogEntry(req *request.WorkflowRequest, t *approval.Transition, policy string, logRowUpdated bool) ApprovalLogEntry {
	entry := ApprovalLogEntry{
		Timestamp:     iso8601.Format(time.Now()),
		RequestID:     req.ID,
		RequestType:   string(req.Type),
		Requester:     req.RequesterName,
		FromStatus:    string(t.From),
		Status:        string(t.To),
		Stage:         string(t.Stage),
		FastPath:      t.FastPath,
		Policy:        policy,
		LogRowUpdated: logRowUpdated,
	}

	switch t.To {
	case request.StatusPendingHR:
		entry.Event = EventForwarded
	case request.StatusApproved:
		entry.Event = EventApproved
	default:
		entry.Event = EventRejected
	}

	d := t.Request.HOD
	if t.Stage == approval.StageHR {
		d = t.Request.HR
	}
	if d != nil {
		entry.Approver = d.ApproverID
		entry.ApproverName = d.ApproverName
		entry.Remarks = d.Remarks
	}
	return entry
}

// FailureLogEntry captures an action that did not produce a transition.
type FailureLogEntry struct {
	Timestamp   string `json:"timestamp"`
	Event       string `json:"event"` // always request.action_failed
	RequestID   string `json:"request_id"`
	RequestType string `json:"request_type"`
	Approver    string `json:"approver"` // Identifier as received, possibly unresolved
	Action      string `json:"action"`
	ErrorCode   string `json:"error_code"`
	Message     string `json:"message"`
}

// NewFailureLogEntry creates a FailureLogEntry.
func NewFailureLogEntry(reqType request.RequestType, requestID, approver string, action approval.Action, code, message string) FailureLogEntry {
	return FailureLogEntry{
		Timestamp:   iso8601.Format(time.Now()),
		Event:       EventActionFailed,
		RequestID:   requestID,
		RequestType: string(reqType),
		Approver:    approver,
		Action:      string(action),
		ErrorCode:   code,
		Message:     message,
	}
}
