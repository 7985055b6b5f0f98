package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/byteness/hrflow/directory"
	"github.com/byteness/hrflow/request"
	"github.com/google/go-cmp/cmp"
)

// FixedClock returns a clock stuck at t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// ============================================================================
// Request helpers
// ============================================================================

// TestNow is the fixed instant used by request builders.
var TestNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

// MakeLeaveRequest creates a leave request in Pending HOD.
//
// Example:
//
//	req := MakeLeaveRequest("lv-1", "Asha Verma")
func MakeLeaveRequest(id, requester string) *request.WorkflowRequest {
	return &request.WorkflowRequest{
		ID:            id,
		Type:          request.TypeLeave,
		Status:        request.StatusPendingHOD,
		RequesterName: requester,
		Department:    "Engineering",
		Payload: request.Payload{
			LeaveType: "Casual",
			StartDate: "2026-03-10",
			EndDate:   "2026-03-12",
			Reason:    "family function",
		},
		CreatedAt: TestNow,
		UpdatedAt: TestNow,
	}
}

// MakeGatePassRequest creates a gate pass request in Pending HOD.
func MakeGatePassRequest(id, requester string) *request.WorkflowRequest {
	return &request.WorkflowRequest{
		ID:            id,
		Type:          request.TypeGatePass,
		Status:        request.StatusPendingHOD,
		RequesterName: requester,
		Department:    "Engineering",
		Payload: request.Payload{
			Departure: "14:00",
			Arrival:   "16:30",
			Reason:    "bank visit",
		},
		CreatedAt: TestNow,
		UpdatedAt: TestNow,
	}
}

// MakePendingHRRequest creates a leave request already forwarded by its HOD.
func MakePendingHRRequest(id, requester string) *request.WorkflowRequest {
	req := MakeLeaveRequest(id, requester)
	req.Status = request.StatusPendingHR
	req.HOD = &request.Decision{
		Remarks:      "ok",
		ApproverID:   "E100",
		ApproverName: "Ravi Kumar",
		DecidedAt:    TestNow.Add(time.Hour),
	}
	req.UpdatedAt = req.HOD.DecidedAt
	return req
}

// WithStatus returns a copy of req with the status replaced.
func WithStatus(req *request.WorkflowRequest, status request.Status) *request.WorkflowRequest {
	c := req.Clone()
	c.Status = status
	return c
}

// ============================================================================
// Principal helpers
// ============================================================================

// Principals used throughout the workflow tests.
var (
	// HODPrincipal heads Engineering.
	HODPrincipal = directory.Principal{ID: "u-hod", EmployeeCode: "E100", DisplayName: "Ravi Kumar", Department: "Engineering", IsHeadOfDepartment: true}

	// StaffPrincipal is an Engineering employee with no approval role.
	StaffPrincipal = directory.Principal{ID: "u-staff", EmployeeCode: "E200", DisplayName: "Neha Singh", Department: "Engineering"}

	// HRPrincipal is a member of HR.
	HRPrincipal = directory.Principal{ID: "u-hr", EmployeeCode: "E300", DisplayName: "Priya Nair", Department: directory.DepartmentHR, Phone: "+910000000300"}

	// HRHeadPrincipal heads HR.
	HRHeadPrincipal = directory.Principal{ID: "u-hr-head", EmployeeCode: "E301", DisplayName: "Anil Mehta", Department: directory.DepartmentHR, IsHeadOfDepartment: true, Phone: "+910000000301"}

	// AdminPrincipal has the admin role.
	AdminPrincipal = directory.Principal{ID: "u-admin", EmployeeCode: "E900", DisplayName: "Root Admin", Department: "IT", Role: directory.RoleAdmin}
)

// DefaultPrincipals returns every test principal.
func DefaultPrincipals() []directory.Principal {
	return []directory.Principal{HODPrincipal, StaffPrincipal, HRPrincipal, HRHeadPrincipal, AdminPrincipal}
}

// ============================================================================
// Assertions
// ============================================================================

// AssertErrorIs fails unless errors.Is(got, want).
func AssertErrorIs(t *testing.T, got, want error) {
	t.Helper()
	if !errors.Is(got, want) {
		t.Errorf("got error %v, want %v", got, want)
	}
}

// AssertNoError stops the test on a non-nil error.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError stops the test when err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
}

func AssertEqual[T comparable](t *testing.T, got, want T) {
	t.Helper()
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

// AssertDiff compares with cmp.Diff and reports the (-want +got) diff.
func AssertDiff(t *testing.T, want, got any, opts ...cmp.Option) {
	t.Helper()
	if diff := cmp.Diff(want, got, opts...); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func AssertTrue(t *testing.T, cond bool, msg ...string) {
	t.Helper()
	if !cond {
		t.Errorf("condition false %v", msg)
	}
}

func AssertFalse(t *testing.T, cond bool, msg ...string) {
	t.Helper()
	if cond {
		t.Errorf("condition true %v", msg)
	}
}
