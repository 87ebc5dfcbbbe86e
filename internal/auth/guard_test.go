package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/helpdesk/internal/domain"
)

func customerActor(id string) *Actor {
	return NewActor(domain.NewCustomer(domain.IdentityBase{ID: id, Email: id + "@example.com", Active: true}, domain.CustomerProfile{}), "fam")
}

func agentActor(id, dept string, onBehalf bool) *Actor {
	return NewActor(domain.NewAgent(
		domain.IdentityBase{ID: id, Email: id + "@example.com", Active: true},
		domain.AgentProfile{DepartmentID: dept, SeniorityLevel: 1, CanCreateOnBehalf: onBehalf},
	), "fam")
}

func adminActor(id string, profile domain.AdminProfile) *Actor {
	return NewActor(domain.NewAdmin(domain.IdentityBase{ID: id, Email: id + "@example.com", Active: true}, profile), "fam")
}

func ticketFor(customerID, deptID string, assignee *string) *domain.Ticket {
	return &domain.Ticket{ID: "t-1", CustomerID: customerID, DepartmentID: deptID, AssigneeID: assignee}
}

func TestCanDeniesUnauthenticatedFirst(t *testing.T) {
	for _, action := range []Action{ActionReadTicket, ActionManageUsers, ActionPostMessage} {
		d := Can(nil, action, ticketFor("c-1", "d-1", nil))
		assert.False(t, d.Allowed)
		assert.Equal(t, ReasonNotAuthenticated, d.Reason)
	}
	d := Can(&Actor{}, ActionReadTicket, nil)
	assert.Equal(t, ReasonNotAuthenticated, d.Reason)
}

func TestCanAdminFlags(t *testing.T) {
	plain := adminActor("a-1", domain.AdminProfile{})
	manager := adminActor("a-2", domain.AdminProfile{ManageUsers: true, ViewReports: true})

	assert.Equal(t, ReasonInsufficientRole, Can(plain, ActionManageUsers, nil).Reason)
	assert.Equal(t, ReasonInsufficientRole, Can(plain, ActionViewReports, nil).Reason)
	assert.True(t, Can(manager, ActionManageUsers, nil).Allowed)
	assert.True(t, Can(manager, ActionViewReports, nil).Allowed)
	assert.False(t, Can(manager, ActionManageSystem, nil).Allowed)

	ticket := ticketFor("c-1", "d-9", nil)
	assert.True(t, Can(plain, ActionReadTicket, ticket).Allowed)
	assert.True(t, Can(plain, ActionAssignTicket, ticket).Allowed)
	assert.True(t, Can(plain, ActionCancelTicket, ticket).Allowed)
	assert.False(t, Can(plain, ActionChangeCustomer, ticket).Allowed)
	assert.True(t, Can(manager, ActionChangeCustomer, ticket).Allowed)
}

func TestCanAgentScope(t *testing.T) {
	agent := agentActor("ag-1", "d-1", false)
	assigned := "ag-1"

	cases := []struct {
		name   string
		action Action
		ticket *domain.Ticket
		want   Decision
	}{
		{"read in department", ActionReadTicket, ticketFor("c-1", "d-1", nil), allow()},
		{"read assigned elsewhere", ActionReadTicket, ticketFor("c-1", "d-2", &assigned), allow()},
		{"read other department", ActionReadTicket, ticketFor("c-1", "d-2", nil), deny(ReasonNotAssigned)},
		{"internal note", ActionPostInternalNote, ticketFor("c-1", "d-1", nil), allow()},
		{"cancel", ActionCancelTicket, ticketFor("c-1", "d-1", nil), allow()},
		{"change customer", ActionChangeCustomer, ticketFor("c-1", "d-1", nil), deny(ReasonInsufficientRole)},
		{"create on behalf without flag", ActionCreateTicket, ticketFor("c-1", "d-1", nil), deny(ReasonInsufficientRole)},
		{"manage users", ActionManageUsers, nil, deny(ReasonInsufficientRole)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Can(agent, tc.action, tc.ticket))
		})
	}

	delegate := agentActor("ag-2", "d-1", true)
	assert.True(t, Can(delegate, ActionCreateTicket, ticketFor("c-1", "d-1", nil)).Allowed)
}

func TestCanCustomerOwnership(t *testing.T) {
	customer := customerActor("c-1")
	own := ticketFor("c-1", "d-1", nil)
	other := ticketFor("c-2", "d-1", nil)

	assert.True(t, Can(customer, ActionReadTicket, own).Allowed)
	assert.True(t, Can(customer, ActionPostMessage, own).Allowed)
	assert.True(t, Can(customer, ActionCloseTicket, own).Allowed)
	assert.True(t, Can(customer, ActionCreateTicket, own).Allowed)

	assert.Equal(t, deny(ReasonNotOwner), Can(customer, ActionReadTicket, other))
	assert.Equal(t, deny(ReasonNotOwner), Can(customer, ActionCreateTicket, other))

	for _, action := range []Action{
		ActionPostInternalNote,
		ActionAssignTicket,
		ActionCancelTicket,
		ActionTransitionStatus,
		ActionChangeCustomer,
		ActionSuggestTriage,
		ActionCreateTicketOnBehalf,
	} {
		t.Run(string(action), func(t *testing.T) {
			assert.Equal(t, deny(ReasonInsufficientRole), Can(customer, action, own))
		})
	}
}
