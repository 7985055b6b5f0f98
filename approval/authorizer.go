package approval

import (
	"fmt"

	"github.com/byteness/hrflow/directory"
	"github.com/byteness/hrflow/request"
)

// Authorizer decides whether a principal may act on a stage.
type Authorizer interface {
	// Name identifies the policy in configuration and logs.
	Name() string

	// Authorize reports whether p may approve or reject at stage.
	Authorize(stage Stage, p *directory.Principal) bool
}

// Authorizer names accepted in configuration.
const (
	PolicyRoles      = "roles"
	PolicyLinkHolder = "link_holder"
)

// RoleAuthorizer requires a head of department, an HR member or an admin at
// the HOD stage, and an HR member at the HR stage.
type RoleAuthorizer struct{}

// Name implements Authorizer.
func (RoleAuthorizer) Name() string { return PolicyRoles }

// Authorize implements Authorizer.
func (RoleAuthorizer) Authorize(stage Stage, p *directory.Principal) bool {
	if p == nil {
		return false
	}
	switch stage {
	case StageHOD:
		return p.IsHeadOfDepartment || p.InHR() || p.IsAdmin()
	case StageHR:
		return p.InHR()
	}
	return false
}

// LinkHolderAuthorizer lets any resolved principal act at any stage.
// Gate pass links have always been honoured this way; whether that is the
// intended product behaviour is still undecided.
type LinkHolderAuthorizer struct{}

// Name implements Authorizer.
func (LinkHolderAuthorizer) Name() string { return PolicyLinkHolder }

// Authorize implements Authorizer.
func (LinkHolderAuthorizer) Authorize(_ Stage, p *directory.Principal) bool {
	return p != nil
}

// ParseAuthorizer returns the authorizer registered under name.
func ParseAuthorizer(name string) (Authorizer, error) {
	switch name {
	case PolicyRoles, "":
		return RoleAuthorizer{}, nil
	case PolicyLinkHolder:
		return LinkHolderAuthorizer{}, nil
	}
	return nil, fmt.Errorf("unknown authorization policy %q", name)
}

// Policies selects an Authorizer per request type.
type Policies map[request.RequestType]Authorizer

// DefaultPolicies enforces roles for leave and honours gate pass links.
func DefaultPolicies() Policies {
	return Policies{
		request.TypeLeave:    RoleAuthorizer{},
		request.TypeGatePass: LinkHolderAuthorizer{},
	}
}

// PoliciesFromNames builds Policies from type -> policy name pairs,
// starting from DefaultPolicies.
func PoliciesFromNames(names map[request.RequestType]string) (Policies, error) {
	p := DefaultPolicies()
	for t, name := range names {
		a, err := ParseAuthorizer(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t, err)
		}
		p[t] = a
	}
	return p, nil
}

// For returns the authorizer for t, or RoleAuthorizer when none is registered.
func (p Policies) For(t request.RequestType) Authorizer {
	if a, ok := p[t]; ok && a != nil {
		return a
	}
	return RoleAuthorizer{}
}
