package workflow

import (
	"context"
	"errors"
	"log"

	"github.com/byteness/hrflow/approval"
	"github.com/byteness/hrflow/directory"
	hrerrors "github.com/byteness/hrflow/errors"
	"github.com/byteness/hrflow/request"
)

// View is what an approval page shows before any button is pressed.
type View struct {
	Request *request.WorkflowRequest

	// Principal is the resolved approver, or nil if the identifier did not
	// match anyone.
	Principal *directory.Principal

	// Actionable reports whether the approve and reject buttons are enabled.
	Actionable bool

	// Reason explains why the request is not actionable.
	Reason string

	// Policy names the authorizer in force for the request type.
	Policy string

	// HRContact is who to call about the request. May be nil.
	HRContact *directory.Principal
}

// View loads a request for display to approverID. An unknown approver is not
// an error; it makes the view non-actionable.
func (s *Service) View(ctx context.Context, reqType request.RequestType, id, approverID string) (*View, error) {
	if err := validateTarget(reqType, id); err != nil {
		return nil, err
	}

	req, err := s.fetch(ctx, reqType, id)
	if err != nil {
		return nil, err
	}

	principal, err := s.resolver.Resolve(ctx, approverID)
	if err != nil {
		if !errors.Is(err, directory.ErrPrincipalNotFound) {
			return nil, storeError(err, "resolve approver", approverID)
		}
		principal = nil
	}

	authorizer := s.policies.For(reqType)
	actionable, reason := approval.Actionable(req, principal, authorizer)

	v := &View{
		Request:    req,
		Principal:  principal,
		Actionable: actionable,
		Reason:     reason,
		Policy:     authorizer.Name(),
	}

	contact, err := s.resolver.HRContact(ctx)
	if err != nil {
		if !errors.Is(err, directory.ErrPrincipalNotFound) {
			log.Printf("WARNING: failed to look up HR contact: %v", err)
		}
	} else {
		v.HRContact = contact
	}

	return v, nil
}

// Pending lists requests of reqType waiting at status, newest first.
func (s *Service) Pending(ctx context.Context, reqType request.RequestType, status request.Status, limit int) ([]*request.WorkflowRequest, error) {
	if !reqType.HasApproval() {
		return nil, invalidInput("request type "+string(reqType)+" has no approval workflow", nil)
	}
	if !status.IsPending() {
		return nil, invalidInput("status "+string(status)+" is not a pending status", nil)
	}
	reqs, err := s.store.ListByStatus(ctx, reqType, status, limit)
	if err != nil {
		return nil, storeError(err, "list requests", string(reqType))
	}
	return reqs, nil
}

// Joining returns a joining form. Joining forms never enter the approval
// workflow, so there is no approver or stage to report.
func (s *Service) Joining(ctx context.Context, id string) (*request.JoiningRecord, error) {
	if s.joining == nil {
		return nil, invalidInput("joining table is not configured", nil)
	}
	if err := request.ValidateRequestID(id); err != nil {
		return nil, invalidInput(err.Error(), err)
	}
	rec, err := s.joining.GetJoining(ctx, id)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, request.ErrRequestNotFound) {
		he := hrerrors.New(hrerrors.ErrCodeRequestNotFound, "joining form "+id+" not found", "", err)
		return nil, hrerrors.WithContext(he, "request_id", id)
	}
	return nil, storeError(err, "fetch joining form", id)
}

// Resolve exposes the principal resolution chain.
func (s *Service) Resolve(ctx context.Context, identifier string) (*directory.Principal, error) {
	return s.resolve(ctx, identifier)
}
