// Package request defines hrflow's workflow request schema.
// Requests are HR submissions (leave, gate pass) that flow through two
// sequential approval stages before reaching a terminal state. Joining
// records share the store but carry no approval state.
//
// # Request State Machine
//
// Valid state transitions:
//   - Pending HOD -> Pending HR (approved by a head of department)
//   - Pending HOD -> Approved (approved by an HOD who is also in HR)
//   - Pending HOD -> Rejected
//   - Pending HR -> Approved
//   - Pending HR -> Rejected
//
// Approved and Rejected are terminal. No transition returns to a prior
// pending state.
package request

import (
	"fmt"
	"math"
	"time"
)

const (
	// MaxRemarksLength is the maximum length for approver remarks.
	MaxRemarksLength = 1000

	// MaxIDLength bounds request ids accepted from approval links.
	MaxIDLength = 128
)

// RequestType identifies which workflow a request belongs to. The string
// values are the ones stored in the log table's request_type column.
type RequestType string

const (
	// TypeLeave is a leave request.
	TypeLeave RequestType = "Leave"
	// TypeGatePass is a gate pass (leave the premises during work hours).
	TypeGatePass RequestType = "Gate Pass"
	// TypeJoining is an employee joining record. It has no approval flow.
	TypeJoining RequestType = "Joining"
)

// IsValid returns true if the RequestType is a known value.
func (t RequestType) IsValid() bool {
	switch t {
	case TypeLeave, TypeGatePass, TypeJoining:
		return true
	}
	return false
}

// HasApproval reports whether requests of this type carry approval state.
func (t RequestType) HasApproval() bool {
	return t == TypeLeave || t == TypeGatePass
}

// String returns the string representation of the RequestType.
func (t RequestType) String() string {
	return string(t)
}

// ParseRequestType accepts the stored value as well as the slugs used in
// approval links ("leave", "gate-pass", "gatepass", "joining").
func ParseRequestType(s string) (RequestType, error) {
	switch s {
	case string(TypeLeave), "leave":
		return TypeLeave, nil
	case string(TypeGatePass), "gate-pass", "gatepass", "gate_pass":
		return TypeGatePass, nil
	case string(TypeJoining), "joining":
		return TypeJoining, nil
	}
	return "", fmt.Errorf("unknown request type %q", s)
}

// Slug returns the URL form of the request type.
func (t RequestType) Slug() string {
	switch t {
	case TypeLeave:
		return "leave"
	case TypeGatePass:
		return "gate-pass"
	case TypeJoining:
		return "joining"
	}
	return string(t)
}

// Status represents the current state of a workflow request.
type Status string

const (
	// StatusPendingHOD indicates the request awaits the head of department.
	StatusPendingHOD Status = "Pending HOD"
	// StatusPendingHR indicates the request awaits HR.
	StatusPendingHR Status = "Pending HR"
	// StatusApproved indicates both stages approved the request.
	StatusApproved Status = "Approved"
	// StatusRejected indicates an approver rejected the request.
	StatusRejected Status = "Rejected"

	// statusLegacyPending is written by older submission flows and means Pending HOD.
	statusLegacyPending Status = "Pending"
)

// ParseStatus converts a stored status into a Status, normalizing the
// legacy "Pending" value to StatusPendingHOD.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if st == statusLegacyPending {
		return StatusPendingHOD, nil
	}
	if !st.IsValid() {
		return "", fmt.Errorf("invalid status: %q", s)
	}
	return st, nil
}

// IsValid returns true if the Status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingHOD, StatusPendingHR, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsPending returns true for the two stages that accept an action.
func (s Status) IsPending() bool {
	return s == StatusPendingHOD || s == StatusPendingHR
}

// IsTerminal returns true if the status is a terminal state that cannot transition.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// String returns the string representation of the Status.
func (s Status) String() string {
	return string(s)
}

// Decision records one approver's action on one stage.
type Decision struct {
	Remarks      string    `yaml:"remarks" json:"remarks"`
	ApproverID   string    `yaml:"approver_id" json:"approver_id"`
	ApproverName string    `yaml:"approver_name" json:"approver_name"`
	DecidedAt    time.Time `yaml:"decided_at" json:"decided_at"`
}

// Payload holds the submission fields. The state machine never changes them.
type Payload struct {
	// LeaveType is the kind of leave (leave requests only).
	LeaveType string `yaml:"leave_type,omitempty" json:"leave_type,omitempty"`

	// StartDate and EndDate bound a leave, as YYYY-MM-DD.
	StartDate string `yaml:"start_date,omitempty" json:"start_date,omitempty"`
	EndDate   string `yaml:"end_date,omitempty" json:"end_date,omitempty"`

	// Departure and Arrival bound a gate pass.
	Departure string `yaml:"departure,omitempty" json:"departure,omitempty"`
	Arrival   string `yaml:"arrival,omitempty" json:"arrival,omitempty"`

	// Reason is the requester's free text (reason for leave, place to visit).
	Reason string `yaml:"reason,omitempty" json:"reason,omitempty"`

	// AttachmentRef points at an uploaded file in blob storage.
	AttachmentRef string `yaml:"attachment_ref,omitempty" json:"attachment_ref,omitempty"`

	// ContactNumber is the requester's phone while away.
	ContactNumber string `yaml:"contact_number,omitempty" json:"contact_number,omitempty"`
}

// Days returns the inclusive number of days between StartDate and EndDate,
// or 0 when either date is missing or unparseable.
func (p Payload) Days() int {
	if p.StartDate == "" || p.EndDate == "" {
		return 0
	}
	start, err := time.Parse(time.DateOnly, p.StartDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse(time.DateOnly, p.EndDate)
	if err != nil {
		return 0
	}
	days := math.Abs(end.Sub(start).Hours() / 24)
	return int(math.Ceil(days)) + 1
}

// WorkflowRequest is a leave or gate pass request moving through approval.
type WorkflowRequest struct {
	// ID is the unique request identifier. Immutable once created.
	ID string `yaml:"id" json:"id"`

	// Type selects the workflow (and therefore the table and policy).
	Type RequestType `yaml:"type" json:"type"`

	// Status is the current stage or terminal outcome.
	Status Status `yaml:"status" json:"status"`

	// RequesterName is the display name of the employee who submitted.
	RequesterName string `yaml:"requester_name" json:"requester_name"`

	// Department is the requester's department.
	Department string `yaml:"department,omitempty" json:"department,omitempty"`

	Payload Payload `yaml:"payload" json:"payload"`

	// HOD is set exactly once, when the request leaves Pending HOD.
	HOD *Decision `yaml:"hod,omitempty" json:"hod,omitempty"`

	// HR is set exactly once, when the request leaves Pending HR, or together
	// with HOD on the fast path.
	HR *Decision `yaml:"hr,omitempty" json:"hr,omitempty"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt time.Time `yaml:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy of the request.
func (r *WorkflowRequest) Clone() *WorkflowRequest {
	if r == nil {
		return nil
	}
	c := *r
	if r.HOD != nil {
		hod := *r.HOD
		c.HOD = &hod
	}
	if r.HR != nil {
		hr := *r.HR
		c.HR = &hr
	}
	return &c
}

// JoiningRecord is an employee joining form. It is inserted by the
// submission flow and read back for HR; it never changes state.
type JoiningRecord struct {
	ID                   string    `yaml:"id" json:"id"`
	FullName             string    `yaml:"full_name" json:"full_name"`
	FatherName           string    `yaml:"father_name,omitempty" json:"father_name,omitempty"`
	DateOfBirth          string    `yaml:"date_of_birth,omitempty" json:"date_of_birth,omitempty"`
	Gender               string    `yaml:"gender,omitempty" json:"gender,omitempty"`
	Department           string    `yaml:"department" json:"department"`
	Designation          string    `yaml:"designation,omitempty" json:"designation,omitempty"`
	MobileNo             string    `yaml:"mobile_no,omitempty" json:"mobile_no,omitempty"`
	PersonalEmail        string    `yaml:"personal_email,omitempty" json:"personal_email,omitempty"`
	DateOfJoining        string    `yaml:"date_of_joining,omitempty" json:"date_of_joining,omitempty"`
	HighestQualification string    `yaml:"highest_qualification,omitempty" json:"highest_qualification,omitempty"`
	CurrentAddress       string    `yaml:"current_address,omitempty" json:"current_address,omitempty"`
	PassportPhotoRef     string    `yaml:"passport_photo_ref,omitempty" json:"passport_photo_ref,omitempty"`
	IdentityDocumentRef  string    `yaml:"identity_document_ref,omitempty" json:"identity_document_ref,omitempty"`
	BankPassbookRef      string    `yaml:"bank_passbook_ref,omitempty" json:"bank_passbook_ref,omitempty"`
	CreatedAt            time.Time `yaml:"created_at" json:"created_at"`
}
