package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Lookup is one step of the resolution chain.
type Lookup struct {
	Name string
	Find func(ctx context.Context, d Directory, identifier string) (*Principal, error)
}

// Standard lookups.
var (
	ByName = Lookup{Name: "name", Find: func(ctx context.Context, d Directory, s string) (*Principal, error) {
		return d.FindByName(ctx, s)
	}}
	ByEmployeeCode = Lookup{Name: "employee_code", Find: func(ctx context.Context, d Directory, s string) (*Principal, error) {
		return d.FindByEmployeeCode(ctx, s)
	}}
	ByID = Lookup{Name: "id", Find: func(ctx context.Context, d Directory, s string) (*Principal, error) {
		return d.FindByID(ctx, s)
	}}
)

// DefaultLookups is the resolution order used by approval links:
// display name, then employee code, then internal id.
var DefaultLookups = []Lookup{ByName, ByEmployeeCode, ByID}

// Resolver maps an opaque approver identifier to a Principal.
type Resolver struct {
	dir     Directory
	lookups []Lookup
}

// NewResolver creates a Resolver. With no lookups, DefaultLookups is used.
func NewResolver(dir Directory, lookups ...Lookup) *Resolver {
	if len(lookups) == 0 {
		lookups = DefaultLookups
	}
	return &Resolver{dir: dir, lookups: lookups}
}

// Resolve tries each lookup in order and returns the first match.
// Returns ErrPrincipalNotFound for an empty identifier or when every lookup
// misses. Any other lookup error aborts the chain.
func (r *Resolver) Resolve(ctx context.Context, identifier string) (*Principal, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("empty identifier: %w", ErrPrincipalNotFound)
	}

	for _, l := range r.lookups {
		p, err := l.Find(ctx, r.dir, identifier)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrPrincipalNotFound) {
			return nil, fmt.Errorf("lookup by %s: %w", l.Name, err)
		}
	}
	return nil, fmt.Errorf("%s: %w", identifier, ErrPrincipalNotFound)
}

// HRContact returns the HR department's contact principal, preferring the
// head of department. Returns ErrPrincipalNotFound if HR has no members.
func (r *Resolver) HRContact(ctx context.Context) (*Principal, error) {
	members, err := r.dir.ListByDepartment(ctx, DepartmentHR)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("department %s: %w", DepartmentHR, ErrPrincipalNotFound)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].IsHeadOfDepartment && !members[j].IsHeadOfDepartment
	})
	return members[0], nil
}
