package domain

import (
	"strings"
	"time"
)

// Role enumerates the closed set of identity variants.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleAgent    Role = "AGENT"
	RoleAdmin    Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role acts on behalf of the helpdesk.
func (r Role) IsStaff() bool {
	return r == RoleAgent || r == RoleAdmin
}

// IdentityBase holds the fields shared by every identity variant.
type IdentityBase struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Active       bool
	LastLoginAt  *time.Time
	Audit
}

// CustomerProfile is the payload of a Customer identity.
type CustomerProfile struct {
	Department string
}

// AgentProfile is the payload of an Agent identity.
type AgentProfile struct {
	DepartmentID      string
	Specialization    string
	SeniorityLevel    int
	Available         bool
	CanCreateOnBehalf bool
	// AssignedTicketIDs is derived from the ticket store on load.
	AssignedTicketIDs []string
}

// AdminProfile is the payload of an Admin identity.
type AdminProfile struct {
	ManageUsers       bool
	ManageSystem      bool
	ViewReports       bool
	ManageDepartments bool
}

// Identity is a tagged union over Customer, Agent and Admin. Exactly one of
// the profile pointers matching Role is non-nil.
type Identity struct {
	IdentityBase
	Role     Role
	Customer *CustomerProfile
	Agent    *AgentProfile
	Admin    *AdminProfile
}

// NewCustomer builds a customer identity.
func NewCustomer(base IdentityBase, profile CustomerProfile) *Identity {
	return &Identity{IdentityBase: base, Role: RoleCustomer, Customer: &profile}
}

// NewAgent builds an agent identity.
func NewAgent(base IdentityBase, profile AgentProfile) *Identity {
	if profile.SeniorityLevel < 1 {
		profile.SeniorityLevel = 1
	}
	return &Identity{IdentityBase: base, Role: RoleAgent, Agent: &profile}
}

// NewAdmin builds an admin identity.
func NewAdmin(base IdentityBase, profile AdminProfile) *Identity {
	return &Identity{IdentityBase: base, Role: RoleAdmin, Admin: &profile}
}

// Validate checks that the variant tag matches its payload.
func (i *Identity) Validate() error {
	if i == nil {
		return ErrInvalidIdentity
	}
	if strings.TrimSpace(i.Email) == "" {
		return ErrInvalidIdentity
	}
	switch i.Role {
	case RoleCustomer:
		if i.Customer == nil || i.Agent != nil || i.Admin != nil {
			return ErrInvalidIdentity
		}
	case RoleAgent:
		if i.Agent == nil || i.Customer != nil || i.Admin != nil {
			return ErrInvalidIdentity
		}
		if i.Agent.SeniorityLevel < 1 {
			return ErrInvalidIdentity
		}
	case RoleAdmin:
		if i.Admin == nil || i.Customer != nil || i.Agent != nil {
			return ErrInvalidIdentity
		}
	default:
		return ErrInvalidIdentity
	}
	return nil
}

// CanAuthenticate reports whether the identity may obtain sessions.
func (i *Identity) CanAuthenticate() bool {
	return i != nil && i.Active && !i.Deleted
}

// DepartmentID returns the department an agent belongs to, or "".
func (i *Identity) DepartmentID() string {
	if i == nil || i.Agent == nil {
		return ""
	}
	return i.Agent.DepartmentID
}

// NormalizeEmail lower-cases and trims an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
