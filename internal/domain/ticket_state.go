package domain

import (
	"fmt"
	"time"
)

var allowedTransitions = map[TicketStatus][]TicketStatus{
	TicketStatusOpen:            {TicketStatusInProgress, TicketStatusCancelled},
	TicketStatusInProgress:      {TicketStatusWaitingCustomer, TicketStatusWaitingAgent, TicketStatusResolved, TicketStatusCancelled},
	TicketStatusWaitingCustomer: {TicketStatusInProgress, TicketStatusWaitingAgent, TicketStatusResolved, TicketStatusCancelled},
	TicketStatusWaitingAgent:    {TicketStatusInProgress, TicketStatusWaitingCustomer, TicketStatusResolved, TicketStatusCancelled},
	TicketStatusResolved:        {TicketStatusClosed, TicketStatusInProgress, TicketStatusWaitingAgent, TicketStatusCancelled},
	TicketStatusClosed:          {},
	TicketStatusCancelled:       {},
}

// CanTransition reports whether the table allows current -> next.
func CanTransition(current, next TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Transition moves the ticket to next and maintains the SLA timestamps that
// depend on status. The ticket is left untouched when an error is returned.
func (t *Ticket) Transition(next TicketStatus, at time.Time) error {
	if !next.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, next)
	}
	if t.Status.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrTerminalStatus, t.Status)
	}
	if !CanTransition(t.Status, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, next)
	}
	if (next == TicketStatusInProgress || next == TicketStatusResolved) && t.AssigneeID == nil {
		return fmt.Errorf("%w: %s -> %s", ErrAssigneeRequired, t.Status, next)
	}

	previous := t.Status
	switch next {
	case TicketStatusResolved:
		t.markResolved(at)
	case TicketStatusClosed:
		closed := at.UTC()
		t.ClosedAt = &closed
	case TicketStatusInProgress, TicketStatusWaitingAgent, TicketStatusWaitingCustomer:
		if previous == TicketStatusResolved {
			t.clearResolution()
		}
	}
	t.Status = next
	return nil
}

// ReplyTransition returns the status a new message moves the ticket to, and
// false when the message has no effect on status.
func ReplyTransition(current TicketStatus, author Role, internal bool) (TicketStatus, bool) {
	if internal || current.Terminal() {
		return "", false
	}
	switch author {
	case RoleCustomer:
		if current == TicketStatusResolved || current == TicketStatusWaitingCustomer {
			return TicketStatusWaitingAgent, true
		}
	case RoleAgent, RoleAdmin:
		if current == TicketStatusWaitingAgent {
			return TicketStatusWaitingCustomer, true
		}
	}
	return "", false
}
