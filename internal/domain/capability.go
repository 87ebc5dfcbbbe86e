package domain

import "sort"

// Capability is a named permission derived from an identity's variant.
type Capability string

const (
	CapReadOwnTickets    Capability = "tickets:read_own"
	CapCreateOwnTickets  Capability = "tickets:create_own"
	CapReplyTickets      Capability = "tickets:reply"
	CapReadDeptTickets   Capability = "tickets:read_department"
	CapWorkTickets       Capability = "tickets:work"
	CapPostInternalNotes Capability = "tickets:internal_notes"
	CapAssignTickets     Capability = "tickets:assign"
	CapCancelTickets     Capability = "tickets:cancel"
	CapCreateOnBehalf    Capability = "tickets:create_on_behalf"
	CapReadAllTickets    Capability = "tickets:read_all"
	CapManageUsers       Capability = "admin:manage_users"
	CapManageSystem      Capability = "admin:manage_system"
	CapViewReports       Capability = "admin:view_reports"
	CapManageDepartments Capability = "admin:manage_departments"
	CapSuggestions       Capability = "tickets:suggestions"
)

// CapabilitySet is an unordered set of capabilities.
type CapabilitySet map[Capability]struct{}

// Has reports whether c is present.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities in a stable order.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func newCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Capabilities derives the capability set of an identity. It is computed on
// every read and never persisted.
func Capabilities(identity *Identity) CapabilitySet {
	if identity == nil {
		return CapabilitySet{}
	}
	switch identity.Role {
	case RoleCustomer:
		return newCapabilitySet(CapReadOwnTickets, CapCreateOwnTickets, CapReplyTickets)
	case RoleAgent:
		set := newCapabilitySet(
			CapReadDeptTickets,
			CapWorkTickets,
			CapReplyTickets,
			CapPostInternalNotes,
			CapAssignTickets,
			CapCancelTickets,
			CapSuggestions,
		)
		if identity.Agent != nil && identity.Agent.CanCreateOnBehalf {
			set[CapCreateOnBehalf] = struct{}{}
		}
		return set
	case RoleAdmin:
		set := newCapabilitySet(
			CapReadAllTickets,
			CapWorkTickets,
			CapReplyTickets,
			CapPostInternalNotes,
			CapAssignTickets,
			CapCancelTickets,
			CapCreateOnBehalf,
			CapSuggestions,
		)
		if identity.Admin != nil {
			if identity.Admin.ManageUsers {
				set[CapManageUsers] = struct{}{}
			}
			if identity.Admin.ManageSystem {
				set[CapManageSystem] = struct{}{}
			}
			if identity.Admin.ViewReports {
				set[CapViewReports] = struct{}{}
			}
			if identity.Admin.ManageDepartments {
				set[CapManageDepartments] = struct{}{}
			}
		}
		return set
	}
	return CapabilitySet{}
}
