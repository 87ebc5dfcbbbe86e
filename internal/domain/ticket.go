package domain

import (
	"math"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen            TicketStatus = "OPEN"
	TicketStatusInProgress      TicketStatus = "IN_PROGRESS"
	TicketStatusWaitingCustomer TicketStatus = "WAITING_CUSTOMER"
	TicketStatusWaitingAgent    TicketStatus = "WAITING_AGENT"
	TicketStatusResolved        TicketStatus = "RESOLVED"
	TicketStatusClosed          TicketStatus = "CLOSED"
	TicketStatusCancelled       TicketStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// Terminal reports whether no further transition is permitted from s.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusClosed || s == TicketStatusCancelled
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityNormal TicketPriority = "NORMAL"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityNormal, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	Number       string
	Subject      string
	Description  string
	Priority     TicketPriority
	Status       TicketStatus
	DepartmentID string
	CustomerID   string
	AssigneeID   *string

	FirstResponseAt        *time.Time
	ResolvedAt             *time.Time
	ClosedAt               *time.Time
	FirstResponseTimeHours *float64
	ResolutionTimeHours    *float64
	// SLAHours is the overdue threshold resolved from the department policy
	// when the ticket was created.
	SLAHours int

	// Version is bumped on every committed write and used for compare-and-set.
	Version int64
	Audit
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	c := *t
	c.AssigneeID = cloneString(t.AssigneeID)
	c.FirstResponseAt = cloneTime(t.FirstResponseAt)
	c.ResolvedAt = cloneTime(t.ResolvedAt)
	c.ClosedAt = cloneTime(t.ClosedAt)
	c.FirstResponseTimeHours = cloneFloat(t.FirstResponseTimeHours)
	c.ResolutionTimeHours = cloneFloat(t.ResolutionTimeHours)
	return &c
}

// IsAssignedTo reports whether the ticket's assignee is agentID.
func (t *Ticket) IsAssignedTo(agentID string) bool {
	return t.AssigneeID != nil && *t.AssigneeID == agentID
}

// IsOverdue is evaluated against the current time and never stored.
func (t *Ticket) IsOverdue(now time.Time) bool {
	if t.Status.Terminal() || t.SLAHours <= 0 {
		return false
	}
	return hoursBetween(t.CreatedAt, now) > float64(t.SLAHours)
}

// RecordFirstResponse sets first-response-at once; later calls are no-ops.
func (t *Ticket) RecordFirstResponse(at time.Time) bool {
	if t.FirstResponseAt != nil {
		return false
	}
	at = at.UTC()
	t.FirstResponseAt = &at
	hours := roundHours(hoursBetween(t.CreatedAt, at))
	t.FirstResponseTimeHours = &hours
	return true
}

func (t *Ticket) markResolved(at time.Time) {
	if t.ResolvedAt != nil {
		return
	}
	at = at.UTC()
	t.ResolvedAt = &at
	hours := roundHours(hoursBetween(t.CreatedAt, at))
	t.ResolutionTimeHours = &hours
}

func (t *Ticket) clearResolution() {
	t.ResolvedAt = nil
	t.ResolutionTimeHours = nil
	t.ClosedAt = nil
}

func hoursBetween(from, to time.Time) float64 {
	if to.Before(from) {
		return 0
	}
	return to.Sub(from).Hours()
}

func roundHours(h float64) float64 {
	return math.Round(h*100) / 100
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}
