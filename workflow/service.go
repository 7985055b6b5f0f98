// Package workflow drives one approval action end to end: it loads the
// request, resolves the approver, asks the approval state machine for a
// transition and writes the result to the request store and the audit log.
//
// The primary write is authoritative and guarded by the status the decision
// was computed against. The audit log write is best effort.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/byteness/hrflow/approval"
	"github.com/byteness/hrflow/directory"
	hrerrors "github.com/byteness/hrflow/errors"
	"github.com/byteness/hrflow/logging"
	"github.com/byteness/hrflow/ratelimit"
	"github.com/byteness/hrflow/request"
)

// Config wires a Service. Store and Resolver are required.
type Config struct {
	// Store holds the primary request records.
	Store request.Store

	// LogStore holds the secondary audit rows.
	// If nil, audit rows are not updated.
	LogStore request.LogStore

	// Joining reads joining forms. If nil, Joining reports the table as
	// not configured.
	Joining request.JoiningStore

	// Resolver maps approver identifiers to principals.
	Resolver *directory.Resolver

	// Policies selects the authorizer per request type.
	// If nil, approval.DefaultPolicies is used.
	Policies approval.Policies

	// Logger receives structured approval and failure events.
	// If nil, events are discarded.
	Logger logging.Logger

	// RateLimiter throttles actions per approver identifier.
	// If nil, actions are not throttled.
	RateLimiter ratelimit.RateLimiter

	// Clock returns the current time. If nil, time.Now is used.
	Clock func() time.Time
}

// Service executes approval actions.
type Service struct {
	store    request.Store
	logs     request.LogStore
	joining  request.JoiningStore
	resolver *directory.Resolver
	policies approval.Policies
	logger   logging.Logger
	limiter  ratelimit.RateLimiter
	now      func() time.Time
}

// NewService creates a Service from cfg.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("workflow: request store is required")
	}
	if cfg.Resolver == nil {
		return nil, errors.New("workflow: principal resolver is required")
	}

	s := &Service{
		store:    cfg.Store,
		logs:     cfg.LogStore,
		joining:  cfg.Joining,
		resolver: cfg.Resolver,
		policies: cfg.Policies,
		logger:   cfg.Logger,
		limiter:  cfg.RateLimiter,
		now:      cfg.Clock,
	}
	if s.policies == nil {
		s.policies = approval.DefaultPolicies()
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

// ActInput is one approve or reject click.
type ActInput struct {
	Type      request.RequestType
	RequestID string

	// ApproverID is the identifier embedded in the approval link: a display
	// name, an employee code or an internal id.
	ApproverID string

	Action  approval.Action
	Remarks string
}

// Outcome is the result of a successful action.
type Outcome struct {
	// Request is the request as it is after the transition.
	Request *request.WorkflowRequest

	Transition *approval.Transition

	// Summary is display text such as "approved by HOD: Jane Doe".
	Summary string

	// LogUpdated is false when the audit row could not be updated.
	LogUpdated bool
}

// Act applies one approval action. Every error is an hrerrors.HRFlowError.
//
// Steps, in order:
//  1. validate input
//  2. rate limit per approver
//  3. fetch request
//  4. resolve approver
//  5. decide
//  6. write primary record, conditioned on the decided-from status
//  7. update audit row (best effort)
//  8. emit approval event
func (s *Service) Act(ctx context.Context, in ActInput) (*Outcome, error) {
	out, err := s.act(ctx, in)
	if err != nil {
		s.logger.LogFailure(logging.NewFailureLogEntry(in.Type, in.RequestID, in.ApproverID, in.Action, hrerrors.GetCode(err), err.Error()))
		return nil, err
	}
	return out, nil
}

func (s *Service) act(ctx context.Context, in ActInput) (*Outcome, error) {
	// 1. Validate input
	if err := validateTarget(in.Type, in.RequestID); err != nil {
		return nil, err
	}
	if !in.Action.IsValid() {
		return nil, invalidInput(fmt.Sprintf("unknown action %q", in.Action), nil)
	}

	// 2. Rate limit
	if err := s.checkRateLimit(ctx, in.ApproverID); err != nil {
		return nil, err
	}

	// 3. Fetch request
	req, err := s.fetch(ctx, in.Type, in.RequestID)
	if err != nil {
		return nil, err
	}

	// 4. Resolve approver. An unresolved approver can never be authorized.
	principal, err := s.resolve(ctx, in.ApproverID)
	if err != nil {
		return nil, err
	}

	// 5. Decide
	authorizer := s.policies.For(in.Type)
	t, err := approval.Decide(req, principal, in.Action, in.Remarks, s.now(), authorizer)
	if err != nil {
		return nil, decideError(err, req)
	}

	// 6. Primary write. Failure aborts the action.
	if err := s.store.ApplyTransition(ctx, req.Type, req.ID, t.From, t.Request); err != nil {
		return nil, transitionError(err, req)
	}
	t.Request.Apply(req)

	// 7. Audit row. Failure is reported to operators only.
	logUpdated := s.appendLog(ctx, req, t)

	// 8. Event
	s.logger.LogApproval(logging.NewApprovalLogEntry(req, t, authorizer.Name(), logUpdated))

	return &Outcome{
		Request:    req,
		Transition: t,
		Summary:    t.Summary(),
		LogUpdated: logUpdated,
	}, nil
}

func (s *Service) checkRateLimit(ctx context.Context, approverID string) error {
	if s.limiter == nil {
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(approverID))
	allowed, retryAfter, err := s.limiter.Allow(ctx, key)
	if err != nil {
		// Fail open.
		log.Printf("WARNING: rate limiter check failed for %q: %v", key, err)
		return nil
	}
	if !allowed {
		he := hrerrors.New(hrerrors.ErrCodeRateLimited,
			fmt.Sprintf("too many actions, retry after %s", retryAfter.Round(time.Second)), "", nil)
		return hrerrors.WithContext(he, "retry_after", retryAfter.String())
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, reqType request.RequestType, id string) (*request.WorkflowRequest, error) {
	req, err := s.store.Get(ctx, reqType, id)
	if err == nil {
		return req, nil
	}
	if errors.Is(err, request.ErrRequestNotFound) {
		he := hrerrors.New(hrerrors.ErrCodeRequestNotFound,
			fmt.Sprintf("%s request %s not found", reqType, id), "", err)
		return nil, hrerrors.WithContext(he, "request_id", id)
	}
	return nil, storeError(err, "fetch request", id)
}

func (s *Service) resolve(ctx context.Context, identifier string) (*directory.Principal, error) {
	p, err := s.resolver.Resolve(ctx, identifier)
	if err == nil {
		return p, nil
	}
	if errors.Is(err, directory.ErrPrincipalNotFound) {
		he := hrerrors.New(hrerrors.ErrCodePrincipalNotFound,
			fmt.Sprintf("approver %q not recognized, cannot authorize", identifier), "", err)
		return nil, hrerrors.WithContext(he, "approver", identifier)
	}
	return nil, storeError(err, "resolve approver", identifier)
}

// appendLog updates the audit row and reports whether it succeeded.
func (s *Service) appendLog(ctx context.Context, req *request.WorkflowRequest, t *approval.Transition) bool {
	if s.logs == nil {
		return false
	}
	err := s.logs.AppendLog(ctx, req.ID, req.Type, t.Log)
	switch {
	case err == nil:
		return true
	case errors.Is(err, request.ErrLogEntryNotFound):
		log.Printf("WARNING: no audit row for %s %s, transition to %s not logged", req.Type, req.ID, t.To)
	default:
		log.Printf("WARNING: failed to update audit row for %s %s: %v", req.Type, req.ID, err)
	}
	return false
}

// validateTarget checks that reqType has an approval workflow and id is well formed.
func validateTarget(reqType request.RequestType, id string) error {
	if !reqType.HasApproval() {
		return invalidInput(fmt.Sprintf("request type %q has no approval workflow", reqType), nil)
	}
	if err := request.ValidateRequestID(id); err != nil {
		return invalidInput(err.Error(), err)
	}
	return nil
}

func invalidInput(msg string, cause error) hrerrors.HRFlowError {
	return hrerrors.New(hrerrors.ErrCodeInvalidInput, msg, "", cause)
}

// decideError maps approval.Decide errors to HRFlowErrors.
func decideError(err error, req *request.WorkflowRequest) error {
	var he hrerrors.HRFlowError
	var unauthorized *approval.UnauthorizedError
	switch {
	case errors.As(err, &unauthorized):
		he = hrerrors.New(hrerrors.ErrCodeUnauthorized,
			fmt.Sprintf("not authorized to act at the %s stage", unauthorized.Stage), "", err)
		he = hrerrors.WithContext(he, "stage", string(unauthorized.Stage))
	case errors.Is(err, approval.ErrInvalidState):
		he = hrerrors.New(hrerrors.ErrCodeInvalidState,
			fmt.Sprintf("action already taken or invalid status (%s)", req.Status), "", err)
		he = hrerrors.WithContext(he, "status", string(req.Status))
	case errors.Is(err, approval.ErrInvalidInput):
		he = invalidInput(err.Error(), err)
	default:
		he = hrerrors.New(hrerrors.ErrCodeStoreError, err.Error(), "", err)
	}
	return hrerrors.WithContext(he, "request_id", req.ID)
}

// transitionError maps ApplyTransition errors to HRFlowErrors.
func transitionError(err error, req *request.WorkflowRequest) error {
	switch {
	case errors.Is(err, request.ErrConcurrentModification):
		he := hrerrors.New(hrerrors.ErrCodeConflict,
			fmt.Sprintf("%s request %s was changed by another approver", req.Type, req.ID), "", err)
		return hrerrors.WithContext(he, "request_id", req.ID)
	case errors.Is(err, request.ErrRequestNotFound):
		he := hrerrors.New(hrerrors.ErrCodeRequestNotFound,
			fmt.Sprintf("%s request %s no longer exists", req.Type, req.ID), "", err)
		return hrerrors.WithContext(he, "request_id", req.ID)
	}
	return storeError(err, "apply transition", req.ID)
}

// storeError wraps an infrastructure failure as a retryable STORE_ERROR,
// keeping the underlying classification in context.
func storeError(err error, op, subject string) error {
	he := hrerrors.New(hrerrors.ErrCodeStoreError, fmt.Sprintf("%s %s: %v", op, subject, err), "", err)
	var inner hrerrors.HRFlowError
	if errors.As(err, &inner) {
		he = hrerrors.WithContext(he, "cause_code", inner.Code())
	}
	return hrerrors.WithContext(he, "operation", op)
}
