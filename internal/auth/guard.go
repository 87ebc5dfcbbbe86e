package auth

import "github.com/spec-kit/helpdesk/internal/domain"

// Action is an operation the guard decides on.
type Action string

const (
	ActionReadTicket           Action = "read_ticket"
	ActionCreateTicket         Action = "create_ticket"
	ActionCreateTicketOnBehalf Action = "create_ticket_on_behalf"
	ActionChangeCustomer       Action = "change_customer"
	ActionAssignTicket         Action = "assign_ticket"
	ActionTransitionStatus     Action = "transition_status"
	ActionCloseTicket          Action = "close_ticket"
	ActionCancelTicket         Action = "cancel_ticket"
	ActionPostMessage          Action = "post_message"
	ActionPostInternalNote     Action = "post_internal_note"
	ActionSuggestTriage        Action = "suggest_triage"
	ActionManageUsers          Action = "manage_users"
	ActionManageSystem         Action = "manage_system"
	ActionViewReports          Action = "view_reports"
	ActionManageDepartments    Action = "manage_departments"
)

// DenyReason is a machine-readable explanation of a denial.
type DenyReason string

const (
	ReasonNotAuthenticated DenyReason = "not_authenticated"
	ReasonInsufficientRole DenyReason = "insufficient_role"
	ReasonNotOwner         DenyReason = "not_owner"
	ReasonNotAssigned      DenyReason = "not_assigned"
)

// Decision is the outcome of Can.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Actor is an authenticated caller as seen by the guard.
type Actor struct {
	ID           string
	Role         domain.Role
	DepartmentID string
	SessionID    string
	Capabilities domain.CapabilitySet
}

// NewActor derives an actor from a live identity.
func NewActor(identity *domain.Identity, sessionID string) *Actor {
	return &Actor{
		ID:           identity.ID,
		Role:         identity.Role,
		DepartmentID: identity.DepartmentID(),
		SessionID:    sessionID,
		Capabilities: domain.Capabilities(identity),
	}
}

var adminActions = map[Action]domain.Capability{
	ActionManageUsers:       domain.CapManageUsers,
	ActionManageSystem:      domain.CapManageSystem,
	ActionViewReports:       domain.CapViewReports,
	ActionManageDepartments: domain.CapManageDepartments,
	// Reassigning a ticket to a different customer is a user-management act.
	ActionChangeCustomer: domain.CapManageUsers,
}

var staffActions = map[Action]domain.Capability{
	ActionReadTicket:           domain.CapReadDeptTickets,
	ActionTransitionStatus:     domain.CapWorkTickets,
	ActionCloseTicket:          domain.CapWorkTickets,
	ActionPostMessage:          domain.CapReplyTickets,
	ActionPostInternalNote:     domain.CapPostInternalNotes,
	ActionAssignTicket:         domain.CapAssignTickets,
	ActionCancelTicket:         domain.CapCancelTickets,
	ActionCreateTicketOnBehalf: domain.CapCreateOnBehalf,
	ActionSuggestTriage:        domain.CapSuggestions,
}

var customerActions = map[Action]domain.Capability{
	ActionReadTicket:   domain.CapReadOwnTickets,
	ActionCreateTicket: domain.CapCreateOwnTickets,
	ActionCloseTicket:  domain.CapReplyTickets,
	ActionPostMessage:  domain.CapReplyTickets,
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// Can decides whether actor may perform action. ticket is the target, or the
// draft for ActionCreateTicket; when nil only role and capabilities are
// checked. Can never performs I/O.
func Can(actor *Actor, action Action, ticket *domain.Ticket) Decision {
	if actor == nil || actor.ID == "" || !actor.Role.Valid() {
		return deny(ReasonNotAuthenticated)
	}

	if required, ok := adminActions[action]; ok {
		if actor.Capabilities.Has(required) {
			return allow()
		}
		return deny(ReasonInsufficientRole)
	}

	switch actor.Role {
	case domain.RoleAdmin:
		return canAdmin(actor, action)
	case domain.RoleAgent:
		return canAgent(actor, action, ticket)
	case domain.RoleCustomer:
		return canCustomer(actor, action, ticket)
	}
	return deny(ReasonInsufficientRole)
}

func canAdmin(actor *Actor, action Action) Decision {
	switch action {
	case ActionCreateTicket:
		return allow()
	case ActionReadTicket:
		if actor.Capabilities.Has(domain.CapReadAllTickets) {
			return allow()
		}
		return deny(ReasonInsufficientRole)
	}
	required, ok := staffActions[action]
	if !ok || !actor.Capabilities.Has(required) {
		return deny(ReasonInsufficientRole)
	}
	return allow()
}

func canAgent(actor *Actor, action Action, ticket *domain.Ticket) Decision {
	if action == ActionCreateTicket {
		if ticket != nil && ticket.CustomerID != actor.ID {
			return canAgent(actor, ActionCreateTicketOnBehalf, ticket)
		}
		return allow()
	}
	required, ok := staffActions[action]
	if !ok || !actor.Capabilities.Has(required) {
		return deny(ReasonInsufficientRole)
	}
	if ticket == nil {
		return allow()
	}
	if ticket.DepartmentID == actor.DepartmentID || ticket.IsAssignedTo(actor.ID) {
		return allow()
	}
	return deny(ReasonNotAssigned)
}

func canCustomer(actor *Actor, action Action, ticket *domain.Ticket) Decision {
	required, ok := customerActions[action]
	if !ok || !actor.Capabilities.Has(required) {
		return deny(ReasonInsufficientRole)
	}
	if ticket == nil {
		return allow()
	}
	if ticket.CustomerID != actor.ID {
		return deny(ReasonNotOwner)
	}
	return allow()
}
