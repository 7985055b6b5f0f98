package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/byteness/hrflow/directory"
	"github.com/byteness/hrflow/logging"
	"github.com/byteness/hrflow/request"
)

// ============================================================================
// MockRequestStore - implements request.Store interface
// ============================================================================

// MockRequestStore implements request.Store for testing.
// Supports configurable responses and in-memory storage for stateful tests.
// Stored requests are copied on the way in and out so tests observe only
// what was persisted.
type MockRequestStore struct {
	mu sync.Mutex

	// Configurable behavior functions
	GetFunc             func(ctx context.Context, reqType request.RequestType, id string) (*request.WorkflowRequest, error)
	CreateFunc          func(ctx context.Context, req *request.WorkflowRequest) error
	ApplyTransitionFunc func(ctx context.Context, reqType request.RequestType, id string, expected request.Status, m request.Mutation) error
	ListByStatusFunc    func(ctx context.Context, reqType request.RequestType, status request.Status, limit int) ([]*request.WorkflowRequest, error)

	// Error injection (used if behavior function is nil)
	GetErr             error
	CreateErr          error
	ApplyTransitionErr error
	ListByStatusErr    error

	// In-memory storage for stateful tests, keyed by StoreKey.
	Requests map[string]*request.WorkflowRequest

	// Call tracking
	GetCalls             []string
	CreateCalls          []*request.WorkflowRequest
	ApplyTransitionCalls []ApplyTransitionCall
	ListByStatusCalls    []ListByStatusCall
}

// ApplyTransitionCall tracks parameters for ApplyTransition calls.
type ApplyTransitionCall struct {
	Type     request.RequestType
	ID       string
	Expected request.Status
	Mutation request.Mutation
}

// ListByStatusCall tracks parameters for ListByStatus calls.
type ListByStatusCall struct {
	Type   request.RequestType
	Status request.Status
	Limit  int
}

// StoreKey is the map key used by MockRequestStore.
func StoreKey(reqType request.RequestType, id string) string {
	return string(reqType) + "/" + id
}

// NewMockRequestStore creates a new MockRequestStore seeded with reqs.
func NewMockRequestStore(reqs ...*request.WorkflowRequest) *MockRequestStore {
	m := &MockRequestStore{Requests: make(map[string]*request.WorkflowRequest)}
	for _, r := range reqs {
		m.Requests[StoreKey(r.Type, r.ID)] = r.Clone()
	}
	return m
}

// Get retrieves a request by type and ID.
func (m *MockRequestStore) Get(ctx context.Context, reqType request.RequestType, id string) (*request.WorkflowRequest, error) {
	m.mu.Lock()
	m.GetCalls = append(m.GetCalls, StoreKey(reqType, id))
	m.mu.Unlock()

	if m.GetFunc != nil {
		return m.GetFunc(ctx, reqType, id)
	}
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if req, ok := m.Requests[StoreKey(reqType, id)]; ok {
		return req.Clone(), nil
	}
	return nil, fmt.Errorf("%s: %w", id, request.ErrRequestNotFound)
}

// Create stores a new request.
func (m *MockRequestStore) Create(ctx context.Context, req *request.WorkflowRequest) error {
	m.mu.Lock()
	m.CreateCalls = append(m.CreateCalls, req)
	m.mu.Unlock()

	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, req)
	}
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Requests == nil {
		m.Requests = make(map[string]*request.WorkflowRequest)
	}
	key := StoreKey(req.Type, req.ID)
	if _, ok := m.Requests[key]; ok {
		return fmt.Errorf("%s: %w", req.ID, request.ErrRequestExists)
	}
	m.Requests[key] = req.Clone()
	return nil
}

// ApplyTransition applies m to the stored request if its status is expected.
func (m *MockRequestStore) ApplyTransition(ctx context.Context, reqType request.RequestType, id string, expected request.Status, mut request.Mutation) error {
	m.mu.Lock()
	m.ApplyTransitionCalls = append(m.ApplyTransitionCalls, ApplyTransitionCall{Type: reqType, ID: id, Expected: expected, Mutation: mut})
	m.mu.Unlock()

	if m.ApplyTransitionFunc != nil {
		return m.ApplyTransitionFunc(ctx, reqType, id, expected, mut)
	}
	if m.ApplyTransitionErr != nil {
		return m.ApplyTransitionErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.Requests[StoreKey(reqType, id)]
	if !ok {
		return fmt.Errorf("%s: %w", id, request.ErrRequestNotFound)
	}
	if stored.Status != expected {
		return fmt.Errorf("%s: %w", id, request.ErrConcurrentModification)
	}
	mut.Apply(stored)
	return nil
}

// ListByStatus returns stored requests of a type and status, newest first.
func (m *MockRequestStore) ListByStatus(ctx context.Context, reqType request.RequestType, status request.Status, limit int) ([]*request.WorkflowRequest, error) {
	m.mu.Lock()
	m.ListByStatusCalls = append(m.ListByStatusCalls, ListByStatusCall{Type: reqType, Status: status, Limit: limit})
	m.mu.Unlock()

	if m.ListByStatusFunc != nil {
		return m.ListByStatusFunc(ctx, reqType, status, limit)
	}
	if m.ListByStatusErr != nil {
		return nil, m.ListByStatusErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*request.WorkflowRequest
	for _, r := range m.Requests {
		if r.Type == reqType && r.Status == status {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n := request.EffectiveLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

// Stored returns a copy of the persisted request, or nil.
func (m *MockRequestStore) Stored(reqType request.RequestType, id string) *request.WorkflowRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Requests[StoreKey(reqType, id)].Clone()
}

// Reset clears all call tracking and stored data.
func (m *MockRequestStore) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls = nil
	m.CreateCalls = nil
	m.ApplyTransitionCalls = nil
	m.ListByStatusCalls = nil
	m.Requests = make(map[string]*request.WorkflowRequest)
}

// ============================================================================
// MockJoiningStore - implements request.JoiningStore interface
// ============================================================================

// MockJoiningStore implements request.JoiningStore for testing.
type MockJoiningStore struct {
	mu sync.Mutex

	GetJoiningErr error

	Records map[string]*request.JoiningRecord
}

// NewMockJoiningStore creates a MockJoiningStore holding recs.
func NewMockJoiningStore(recs ...*request.JoiningRecord) *MockJoiningStore {
	m := &MockJoiningStore{Records: make(map[string]*request.JoiningRecord)}
	for _, r := range recs {
		c := *r
		m.Records[r.ID] = &c
	}
	return m
}

// PutJoining inserts a record, refusing duplicate IDs.
func (m *MockJoiningStore) PutJoining(ctx context.Context, rec *request.JoiningRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Records[rec.ID]; ok {
		return fmt.Errorf("%s: %w", rec.ID, request.ErrRequestExists)
	}
	c := *rec
	m.Records[rec.ID] = &c
	return nil
}

// GetJoining returns a copy of the record.
func (m *MockJoiningStore) GetJoining(ctx context.Context, id string) (*request.JoiningRecord, error) {
	if m.GetJoiningErr != nil {
		return nil, m.GetJoiningErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Records[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, request.ErrRequestNotFound)
	}
	c := *rec
	return &c, nil
}

// ============================================================================
// MockLogStore - implements request.LogStore interface
// ============================================================================

// MockLogStore implements request.LogStore for testing.
type MockLogStore struct {
	mu sync.Mutex

	AppendLogFunc func(ctx context.Context, requestID string, reqType request.RequestType, m request.LogMutation) error

	CreateLogErr error
	GetLogErr    error
	AppendLogErr error

	// Entries keyed by StoreKey(type, request id).
	Entries map[string]*request.LogEntry

	AppendLogCalls []AppendLogCall
}

// AppendLogCall tracks parameters for AppendLog calls.
type AppendLogCall struct {
	RequestID string
	Type      request.RequestType
	Mutation  request.LogMutation
}

// NewMockLogStore creates a MockLogStore with a Pending HOD row for each request.
func NewMockLogStore(reqs ...*request.WorkflowRequest) *MockLogStore {
	m := &MockLogStore{Entries: make(map[string]*request.LogEntry)}
	for _, r := range reqs {
		m.Entries[StoreKey(r.Type, r.ID)] = &request.LogEntry{
			RequestID:   r.ID,
			RequestType: r.Type,
			Status:      r.Status,
			UpdatedAt:   r.CreatedAt,
		}
	}
	return m
}

// CreateLog inserts a log row.
func (m *MockLogStore) CreateLog(ctx context.Context, entry *request.LogEntry) error {
	if m.CreateLogErr != nil {
		return m.CreateLogErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Entries == nil {
		m.Entries = make(map[string]*request.LogEntry)
	}
	key := StoreKey(entry.RequestType, entry.RequestID)
	if _, ok := m.Entries[key]; ok {
		return fmt.Errorf("%s: %w", key, request.ErrRequestExists)
	}
	cp := *entry
	m.Entries[key] = &cp
	return nil
}

// GetLog returns the log row for (requestID, reqType).
func (m *MockLogStore) GetLog(ctx context.Context, requestID string, reqType request.RequestType) (*request.LogEntry, error) {
	if m.GetLogErr != nil {
		return nil, m.GetLogErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entries[StoreKey(reqType, requestID)]
	if !ok {
		return nil, fmt.Errorf("%s: %w", requestID, request.ErrLogEntryNotFound)
	}
	cp := *e
	return &cp, nil
}

// AppendLog updates an existing row; it never inserts.
func (m *MockLogStore) AppendLog(ctx context.Context, requestID string, reqType request.RequestType, mut request.LogMutation) error {
	m.mu.Lock()
	m.AppendLogCalls = append(m.AppendLogCalls, AppendLogCall{RequestID: requestID, Type: reqType, Mutation: mut})
	m.mu.Unlock()

	if m.AppendLogFunc != nil {
		return m.AppendLogFunc(ctx, requestID, reqType, mut)
	}
	if m.AppendLogErr != nil {
		return m.AppendLogErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.Entries[StoreKey(reqType, requestID)]
	if !ok {
		return fmt.Errorf("%s: %w", requestID, request.ErrLogEntryNotFound)
	}
	mut.Apply(e)
	return nil
}

// ============================================================================
// MockDirectory - implements directory.Directory interface
// ============================================================================

// MockDirectory wraps an in-memory roster and adds error injection.
type MockDirectory struct {
	*directory.FileDirectory

	// FindErr is returned by every Find* method when set.
	FindErr error
	// ListErr is returned by ListByDepartment when set.
	ListErr error
}

// NewMockDirectory creates a MockDirectory from principals.
func NewMockDirectory(principals ...directory.Principal) *MockDirectory {
	return &MockDirectory{FileDirectory: directory.NewFileDirectory(principals)}
}

// FindByName implements directory.Directory.
func (m *MockDirectory) FindByName(ctx context.Context, name string) (*directory.Principal, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	return m.FileDirectory.FindByName(ctx, name)
}

// FindByEmployeeCode implements directory.Directory.
func (m *MockDirectory) FindByEmployeeCode(ctx context.Context, code string) (*directory.Principal, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	return m.FileDirectory.FindByEmployeeCode(ctx, code)
}

// FindByID implements directory.Directory.
func (m *MockDirectory) FindByID(ctx context.Context, id string) (*directory.Principal, error) {
	if m.FindErr != nil {
		return nil, m.FindErr
	}
	return m.FileDirectory.FindByID(ctx, id)
}

// ListByDepartment implements directory.Directory.
func (m *MockDirectory) ListByDepartment(ctx context.Context, department string) ([]*directory.Principal, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.FileDirectory.ListByDepartment(ctx, department)
}

// ============================================================================
// MockLogger - logging.Logger interface
// ============================================================================

// MockLogger implements logging.Logger for testing.
// Captures all log entries for assertions.
type MockLogger struct {
	mu sync.Mutex

	ApprovalEntries []logging.ApprovalLogEntry
	FailureEntries  []logging.FailureLogEntry
}

// NewMockLogger creates a new MockLogger.
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// LogApproval captures an approval entry.
func (m *MockLogger) LogApproval(entry logging.ApprovalLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApprovalEntries = append(m.ApprovalEntries, entry)
}

// LogFailure captures a failure entry.
func (m *MockLogger) LogFailure(entry logging.FailureLogEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FailureEntries = append(m.FailureEntries, entry)
}

// ApprovalCount returns the number of approval log entries.
func (m *MockLogger) ApprovalCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ApprovalEntries)
}

// FailureCount returns the number of failure log entries.
func (m *MockLogger) FailureCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.FailureEntries)
}

// ============================================================================
// MockRateLimiter - ratelimit.RateLimiter interface
// ============================================================================

// MockRateLimiter allows the first Limit calls per key and denies the rest.
// A zero Limit allows everything.
type MockRateLimiter struct {
	mu     sync.Mutex
	Limit  int
	Retry  time.Duration
	Err    error
	counts map[string]int
}

// Allow implements ratelimit.RateLimiter.
func (m *MockRateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	if m.Err != nil {
		return false, 0, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[key]++
	if m.Limit > 0 && m.counts[key] > m.Limit {
		return false, m.Retry, nil
	}
	return true, 0, nil
}
