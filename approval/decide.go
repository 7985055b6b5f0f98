package approval

import (
	"fmt"
	"time"

	"github.com/byteness/hrflow/directory"
	"github.com/byteness/hrflow/request"
)

// Decide validates action against req and principal and computes the
// resulting transition. It performs no I/O; now stamps every decision.
// A nil authorizer means RoleAuthorizer.
//
// Checks run in this order: arguments, pending status, authorization.
// On error req is left untouched.
func Decide(req *request.WorkflowRequest, principal *directory.Principal, action Action, remarks string, now time.Time, authorizer Authorizer) (*Transition, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: request is nil", ErrInvalidInput)
	}
	if principal == nil {
		return nil, fmt.Errorf("%w: principal is nil", ErrInvalidInput)
	}
	if !action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
	if len(remarks) > request.MaxRemarksLength {
		return nil, fmt.Errorf("%w: remarks exceed %d characters", ErrInvalidInput, request.MaxRemarksLength)
	}

	stage, ok := StageFor(req.Status)
	if !ok {
		return nil, fmt.Errorf("%s is %q: %w", req.ID, req.Status, ErrInvalidState)
	}

	if authorizer == nil {
		authorizer = RoleAuthorizer{}
	}
	if !authorizer.Authorize(stage, principal) {
		return nil, &UnauthorizedError{Stage: stage, PrincipalID: principal.ID}
	}

	decision := &request.Decision{
		Remarks:      remarks,
		ApproverID:   principal.RecordID(),
		ApproverName: principal.Name(),
		DecidedAt:    now,
	}
	logDecision := &request.LogDecision{
		Action:       action.logLabel(),
		ActedAt:      now,
		Remarks:      remarks,
		ApproverID:   principal.RecordID(),
		ApproverName: principal.Name(),
	}

	t := &Transition{
		From:   req.Status,
		Stage:  stage,
		Action: action,
	}

	switch {
	case action == ActionReject:
		t.To = request.StatusRejected
		t.setStage(stage, decision, logDecision)

	case stage == StageHOD && principal.InHR():
		t.To = request.StatusApproved
		t.FastPath = true
		t.setStage(StageHOD, decision, logDecision)
		t.setStage(StageHR, decision, logDecision)

	case stage == StageHOD:
		t.To = request.StatusPendingHR
		t.setStage(StageHOD, decision, logDecision)

	default:
		t.To = request.StatusApproved
		t.setStage(StageHR, decision, logDecision)
	}

	t.Request.Status = t.To
	t.Request.UpdatedAt = now
	t.Log.Status = t.To
	t.Log.UpdatedAt = now
	return t, nil
}

// setStage records the decision under one stage. Each field gets its own
// copy so callers can mutate one half without touching the other.
func (t *Transition) setStage(stage Stage, d *request.Decision, ld *request.LogDecision) {
	dc, lc := *d, *ld
	if stage == StageHOD {
		t.Request.HOD, t.Log.HOD = &dc, &lc
		return
	}
	t.Request.HR, t.Log.HR = &dc, &lc
}

// Actionable reports whether principal may currently act on req and, if
// not, a short reason for display. It never fails.
func Actionable(req *request.WorkflowRequest, principal *directory.Principal, authorizer Authorizer) (bool, string) {
	if req == nil {
		return false, "Request not found"
	}
	stage, ok := StageFor(req.Status)
	if !ok {
		return false, "This request has already been " + string(req.Status) + "."
	}
	if principal == nil {
		return false, "Approver not recognized. Please use the link you received."
	}
	if authorizer == nil {
		authorizer = RoleAuthorizer{}
	}
	if !authorizer.Authorize(stage, principal) {
		return false, "You are not authorized to approve this request at this stage."
	}
	return true, ""
}
