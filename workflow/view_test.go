package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/byteness/hrflow/directory"
	hrerrors "github.com/byteness/hrflow/errors"
	"github.com/byteness/hrflow/request"
	"github.com/byteness/hrflow/testutil"
)

func TestView(t *testing.T) {
	tests := []struct {
		name           string
		req            *request.WorkflowRequest
		approver       string
		wantActionable bool
		wantReason     string
	}{
		{
			name:           "HOD on pending leave",
			req:            testutil.MakeLeaveRequest("lv-1", "A"),
			approver:       productionHOD.DisplayName,
			wantActionable: true,
		},
		{
			name:       "staff on pending leave",
			req:        testutil.MakeLeaveRequest("lv-1", "A"),
			approver:   testutil.StaffPrincipal.ID,
			wantReason: "You are not authorized to approve this request at this stage.",
		},
		{
			name:       "unknown approver",
			req:        testutil.MakeLeaveRequest("lv-1", "A"),
			approver:   "stranger",
			wantReason: "Approver not recognized. Please use the link you received.",
		},
		{
			name:       "already approved",
			req:        testutil.WithStatus(testutil.MakeLeaveRequest("lv-1", "A"), request.StatusApproved),
			approver:   testutil.HRPrincipal.ID,
			wantReason: "This request has already been Approved.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.req)

			v, err := f.svc.View(context.Background(), request.TypeLeave, "lv-1", tt.approver)
			if err != nil {
				t.Fatalf("View failed: %v", err)
			}
			if v.Actionable != tt.wantActionable {
				t.Errorf("Actionable = %v, want %v", v.Actionable, tt.wantActionable)
			}
			if v.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", v.Reason, tt.wantReason)
			}
			if v.HRContact == nil || v.HRContact.ID != testutil.HRHeadPrincipal.ID {
				t.Errorf("HRContact = %+v, want the HR head", v.HRContact)
			}
			if v.Policy != "roles" {
				t.Errorf("Policy = %q", v.Policy)
			}
		})
	}
}

func TestView_Errors(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	_, err := f.svc.View(ctx, request.TypeLeave, "lv-404", "u-hr")
	assertCode(t, err, hrerrors.ErrCodeRequestNotFound)

	_, err = f.svc.View(ctx, request.TypeJoining, "j-1", "u-hr")
	assertCode(t, err, hrerrors.ErrCodeInvalidInput)

	f = newFixture(t, testutil.MakeLeaveRequest("lv-1", "A"))
	f.dir.FindErr = errors.New("directory unavailable")
	_, err = f.svc.View(ctx, request.TypeLeave, "lv-1", "u-hr")
	assertCode(t, err, hrerrors.ErrCodeStoreError)
}

func TestView_HRContactFailureIsIgnored(t *testing.T) {
	f := newFixture(t, testutil.MakeLeaveRequest("lv-1", "A"))
	f.dir.ListErr = errors.New("scan failed")

	v, err := f.svc.View(context.Background(), request.TypeLeave, "lv-1", productionHOD.ID)
	if err != nil {
		t.Fatalf("View failed: %v", err)
	}
	if v.HRContact != nil {
		t.Errorf("HRContact = %+v, want nil", v.HRContact)
	}
	if !v.Actionable {
		t.Error("view should still be actionable")
	}
}

func TestPending(t *testing.T) {
	older := testutil.MakeLeaveRequest("lv-1", "A")
	newer := testutil.MakeLeaveRequest("lv-2", "B")
	newer.CreatedAt = older.CreatedAt.Add(1)
	done := testutil.WithStatus(testutil.MakeLeaveRequest("lv-3", "C"), request.StatusApproved)

	f := newFixture(t, older, newer, done)

	got, err := f.svc.Pending(context.Background(), request.TypeLeave, request.StatusPendingHOD, 0)
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "lv-2" || got[1].ID != "lv-1" {
		t.Errorf("Pending = %v, want [lv-2 lv-1]", ids(got))
	}

	_, err = f.svc.Pending(context.Background(), request.TypeLeave, request.StatusApproved, 0)
	assertCode(t, err, hrerrors.ErrCodeInvalidInput)

	f.store.ListByStatusErr = errors.New("query failed")
	_, err = f.svc.Pending(context.Background(), request.TypeLeave, request.StatusPendingHOD, 0)
	assertCode(t, err, hrerrors.ErrCodeStoreError)
}

func TestResolve(t *testing.T) {
	f := newFixture(t)

	for _, id := range []string{productionHOD.DisplayName, productionHOD.EmployeeCode, productionHOD.ID} {
		p, err := f.svc.Resolve(context.Background(), id)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", id, err)
		}
		if p.ID != productionHOD.ID {
			t.Errorf("Resolve(%q) = %s", id, p.ID)
		}
	}

	_, err := f.svc.Resolve(context.Background(), "nobody")
	assertCode(t, err, hrerrors.ErrCodePrincipalNotFound)
}

func ids(reqs []*request.WorkflowRequest) []string {
	out := make([]string, len(reqs))
	for i, r := range reqs {
		out[i] = r.ID
	}
	return out
}

func TestJoining(t *testing.T) {
	rec := &request.JoiningRecord{ID: "jn-1", FullName: "Kavya Rao", Department: "Production", CreatedAt: testutil.TestNow}
	ctx := context.Background()

	withStore := func(store request.JoiningStore) *Service {
		svc, err := NewService(Config{
			Store:    testutil.NewMockRequestStore(),
			Joining:  store,
			Resolver: directory.NewResolver(testutil.NewMockDirectory()),
		})
		if err != nil {
			t.Fatalf("NewService failed: %v", err)
		}
		return svc
	}

	got, err := withStore(testutil.NewMockJoiningStore(rec)).Joining(ctx, "jn-1")
	if err != nil {
		t.Fatalf("Joining() error = %v", err)
	}
	if got.FullName != "Kavya Rao" {
		t.Errorf("FullName = %q", got.FullName)
	}

	tests := []struct {
		name     string
		store    request.JoiningStore
		id       string
		wantCode string
	}{
		{name: "not found", store: testutil.NewMockJoiningStore(rec), id: "jn-2", wantCode: hrerrors.ErrCodeRequestNotFound},
		{name: "bad id", store: testutil.NewMockJoiningStore(rec), id: "a/b", wantCode: hrerrors.ErrCodeInvalidInput},
		{name: "no table", store: nil, id: "jn-1", wantCode: hrerrors.ErrCodeInvalidInput},
		{name: "store failure", store: &testutil.MockJoiningStore{GetJoiningErr: errors.New("timeout")}, id: "jn-1", wantCode: hrerrors.ErrCodeStoreError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := withStore(tt.store).Joining(ctx, tt.id)
			assertCode(t, err, tt.wantCode)
		})
	}
}
