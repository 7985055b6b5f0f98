// Package directory resolves the approver identifier carried by an approval
// link into a Principal with department and role attributes.
package directory

import (
	"context"
	"errors"
	"strings"
)

// DepartmentHR is the department whose members act at the HR stage.
const DepartmentHR = "HR"

// RoleAdmin may act at the HOD stage regardless of department.
const RoleAdmin = "admin"

// ErrPrincipalNotFound is returned when no principal matches an identifier.
var ErrPrincipalNotFound = errors.New("principal not found")

// Principal is an identified user eligible to act on requests.
type Principal struct {
	ID                 string `yaml:"id" json:"id"`
	EmployeeCode       string `yaml:"employee_code" json:"employee_code"`
	DisplayName        string `yaml:"name" json:"name"`
	Department         string `yaml:"department" json:"department"`
	IsHeadOfDepartment bool   `yaml:"hod" json:"is_hod"`
	Role               string `yaml:"role,omitempty" json:"role,omitempty"`
	Phone              string `yaml:"phone,omitempty" json:"phone,omitempty"`
}

// InHR reports whether the principal belongs to the HR department.
func (p *Principal) InHR() bool {
	return p != nil && p.Department == DepartmentHR
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p != nil && strings.EqualFold(p.Role, RoleAdmin)
}

// Name returns the display name, falling back to the ID.
func (p *Principal) Name() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

// RecordID is the identifier stored against a decision: the employee
// code, or the internal ID when no code is on file.
func (p *Principal) RecordID() string {
	if p.EmployeeCode != "" {
		return p.EmployeeCode
	}
	return p.ID
}

// Directory looks principals up by a single attribute.
// Each method returns ErrPrincipalNotFound when nothing matches.
type Directory interface {
	FindByName(ctx context.Context, name string) (*Principal, error)
	FindByEmployeeCode(ctx context.Context, code string) (*Principal, error)
	FindByID(ctx context.Context, id string) (*Principal, error)

	// ListByDepartment returns every principal in a department.
	ListByDepartment(ctx context.Context, department string) ([]*Principal, error)
}
