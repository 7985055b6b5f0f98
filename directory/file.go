package directory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Roster is the on-disk format read by FileDirectory.
//
//	users:
//	  - id: u-101
//	    employee_code: E1001
//	    name: Jane Doe
//	    department: Accounts
//	    hod: true
type Roster struct {
	Users []Principal `yaml:"users"`
}

// FileDirectory is an in-memory Directory loaded from a YAML roster.
// It is read-only after construction and safe for concurrent use.
type FileDirectory struct {
	users []Principal
}

// LoadFileDirectory reads and parses a YAML roster from path.
func LoadFileDirectory(path string) (*FileDirectory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return ParseRoster(data)
}

// ParseRoster parses YAML roster data.
func ParseRoster(data []byte) (*FileDirectory, error) {
	var roster Roster
	if err := yaml.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	seen := make(map[string]bool, len(roster.Users))
	for i, u := range roster.Users {
		if u.ID == "" {
			return nil, fmt.Errorf("roster entry %d: id is required", i)
		}
		if seen[u.ID] {
			return nil, fmt.Errorf("roster entry %d: duplicate id %q", i, u.ID)
		}
		seen[u.ID] = true
	}
	return NewFileDirectory(roster.Users), nil
}

// NewFileDirectory builds a directory from principals already in memory.
func NewFileDirectory(users []Principal) *FileDirectory {
	cp := make([]Principal, len(users))
	copy(cp, users)
	return &FileDirectory{users: cp}
}

func (d *FileDirectory) find(match func(*Principal) bool, what string) (*Principal, error) {
	for i := range d.users {
		if match(&d.users[i]) {
			p := d.users[i]
			return &p, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", what, ErrPrincipalNotFound)
}

// FindByName returns the first principal with the exact display name.
func (d *FileDirectory) FindByName(_ context.Context, name string) (*Principal, error) {
	return d.find(func(p *Principal) bool { return p.DisplayName == name }, "name "+name)
}

// FindByEmployeeCode returns the principal with the given employee code.
func (d *FileDirectory) FindByEmployeeCode(_ context.Context, code string) (*Principal, error) {
	return d.find(func(p *Principal) bool { return p.EmployeeCode != "" && p.EmployeeCode == code }, "employee code "+code)
}

// FindByID returns the principal with the given internal id.
func (d *FileDirectory) FindByID(_ context.Context, id string) (*Principal, error) {
	return d.find(func(p *Principal) bool { return p.ID == id }, "id "+id)
}

// ListByDepartment returns the department's principals in roster order.
func (d *FileDirectory) ListByDepartment(_ context.Context, department string) ([]*Principal, error) {
	var out []*Principal
	for i := range d.users {
		if d.users[i].Department == department {
			p := d.users[i]
			out = append(out, &p)
		}
	}
	return out, nil
}
