// Package approval implements the two-stage approval state machine.
//
// Decide is pure: given a request, the acting principal and an action it
// either fails or returns a Transition carrying the exact mutations for the
// primary record and its audit log row. Callers persist them.
package approval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/byteness/hrflow/request"
)

// Action is the verb an approver applies to a request.
type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// ParseAction accepts "approve"/"reject" in any case.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionApprove:
		return ActionApprove, nil
	case ActionReject:
		return ActionReject, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidInput, s)
}

// IsValid returns true if the Action is a known value.
func (a Action) IsValid() bool {
	return a == ActionApprove || a == ActionReject
}

// logLabel is the action label written to the log table.
func (a Action) logLabel() string {
	if a == ActionApprove {
		return request.LogActionApproved
	}
	return request.LogActionRejected
}

func (a Action) pastTense() string {
	if a == ActionApprove {
		return "approved"
	}
	return "rejected"
}

// Stage is the pending phase a request is in.
type Stage string

const (
	StageHOD Stage = "HOD"
	StageHR  Stage = "HR"
)

// StageFor maps a pending status to its stage.
func StageFor(s request.Status) (Stage, bool) {
	switch s {
	case request.StatusPendingHOD:
		return StageHOD, true
	case request.StatusPendingHR:
		return StageHR, true
	}
	return "", false
}

var (
	// ErrInvalidState is returned when the request is not in a pending state.
	ErrInvalidState = errors.New("action already taken or invalid status")

	// ErrUnauthorized is matched by every *UnauthorizedError.
	ErrUnauthorized = errors.New("not authorized to act at this stage")

	// ErrInvalidInput is returned for nil arguments, unknown actions and
	// oversized remarks.
	ErrInvalidInput = errors.New("invalid input")
)

// UnauthorizedError reports which stage the principal could not act on.
type UnauthorizedError struct {
	Stage       Stage
	PrincipalID string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("principal %q is not authorized to act at the %s stage", e.PrincipalID, e.Stage)
}

// Is makes errors.Is(err, ErrUnauthorized) match.
func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}

// Transition is the outcome of a legal action. Build it with Decide.
type Transition struct {
	From   request.Status
	To     request.Status
	Stage  Stage
	Action Action

	// FastPath is set when an HR principal approved at the HOD stage and
	// both decisions were recorded at once.
	FastPath bool

	// Request is applied to the primary record.
	Request request.Mutation

	// Log mirrors Request onto the audit log row.
	Log request.LogMutation
}

// Summary returns display text such as "approved by HOD: Jane Doe".
func (t *Transition) Summary() string {
	stages := string(t.Stage)
	if t.FastPath {
		stages = string(StageHOD) + " and " + string(StageHR)
	}
	return fmt.Sprintf("%s by %s: %s", t.Action.pastTense(), stages, t.approverName())
}

func (t *Transition) approverName() string {
	d := t.Request.HOD
	if t.Stage == StageHR {
		d = t.Request.HR
	}
	if d == nil {
		return ""
	}
	if d.ApproverName != "" {
		return d.ApproverName
	}
	return d.ApproverID
}
