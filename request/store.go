package request

import (
	"context"
	"errors"
)

// Query limit constants for List operations.
const (
	// DefaultQueryLimit is the default number of results for List operations.
	DefaultQueryLimit = 100
	// MaxQueryLimit is the maximum number of results for List operations.
	MaxQueryLimit = 1000
)

// Errors returned by Store implementations.
// These errors support errors.Is() checking for robust error handling.
var (
	// ErrRequestNotFound is returned when the requested request does not exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrRequestExists is returned when creating a request whose ID is taken.
	ErrRequestExists = errors.New("request already exists")

	// ErrConcurrentModification is returned when the stored status no longer
	// matches the status a transition was computed against.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrLogEntryNotFound is returned when no log row exists for (request id, type).
	ErrLogEntryNotFound = errors.New("log entry not found")

	// ErrUnsupportedType is returned for request types the store has no table for.
	ErrUnsupportedType = errors.New("unsupported request type")
)

// Store defines the interface for workflow request persistence.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get retrieves a request by type and ID. Returns ErrRequestNotFound if not exists.
	Get(ctx context.Context, reqType RequestType, id string) (*WorkflowRequest, error)

	// Create stores a new request. Returns ErrRequestExists if ID already exists.
	// New requests must be valid and in Pending HOD.
	Create(ctx context.Context, req *WorkflowRequest) error

	// ApplyTransition writes status and decision fields of m to the request,
	// provided its stored status still equals expected.
	// Returns ErrRequestNotFound if the request is gone and
	// ErrConcurrentModification if the status changed underneath.
	ApplyTransition(ctx context.Context, reqType RequestType, id string, expected Status, m Mutation) error

	// ListByStatus returns requests of a type in a status, newest first.
	// If limit is 0, DefaultQueryLimit is used. Limit is capped at MaxQueryLimit.
	ListByStatus(ctx context.Context, reqType RequestType, status Status, limit int) ([]*WorkflowRequest, error)
}

// LogStore defines the interface for the secondary audit log table.
// Exactly one row exists per (request id, request type); it is created by the
// submission flow and only updated afterwards.
type LogStore interface {
	// CreateLog inserts the initial row for a request.
	CreateLog(ctx context.Context, entry *LogEntry) error

	// GetLog returns the row for (requestID, reqType) or ErrLogEntryNotFound.
	GetLog(ctx context.Context, requestID string, reqType RequestType) (*LogEntry, error)

	// AppendLog updates (never inserts) the row for (requestID, reqType).
	// Returns ErrLogEntryNotFound when the row does not exist.
	AppendLog(ctx context.Context, requestID string, reqType RequestType, m LogMutation) error
}

// JoiningStore persists joining records.
type JoiningStore interface {
	// PutJoining inserts a joining record. Returns ErrRequestExists on duplicate ID.
	PutJoining(ctx context.Context, rec *JoiningRecord) error

	// GetJoining returns a joining record or ErrRequestNotFound.
	GetJoining(ctx context.Context, id string) (*JoiningRecord, error)
}

// EffectiveLimit applies the default and cap to a caller-provided limit.
func EffectiveLimit(limit int) int {
	if limit <= 0 {
		return DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		return MaxQueryLimit
	}
	return limit
}
