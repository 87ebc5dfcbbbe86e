package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// CreateTicketRequest payload. CustomerID is only honoured for staff filing
// on a customer's behalf.
type CreateTicketRequest struct {
	CustomerID   string                `json:"customer_id" validate:"omitempty,uuid"`
	DepartmentID string                `json:"department_id" validate:"required,uuid"`
	Subject      string                `json:"subject" validate:"required,max=200"`
	Description  string                `json:"description" validate:"required"`
	Priority     domain.TicketPriority `json:"priority" validate:"omitempty,ticket_priority"`
}

// TransitionRequest moves a ticket to a new status.
type TransitionRequest struct {
	Status domain.TicketStatus `json:"status" validate:"required"`
}

// AssignRequest assigns a ticket to an agent.
type AssignRequest struct {
	AgentID string `json:"agent_id" validate:"required,uuid"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Content    string             `json:"content" validate:"required"`
	Type       domain.MessageType `json:"type" validate:"omitempty,oneof=CUSTOMER AGENT INTERNAL_NOTE"`
	IsInternal bool               `json:"is_internal"`
}

// TicketResponse is the ticket as clients see it.
type TicketResponse struct {
	ID                     string                `json:"id"`
	Number                 string                `json:"number"`
	Subject                string                `json:"subject"`
	Description            string                `json:"description"`
	Priority               domain.TicketPriority `json:"priority"`
	Status                 domain.TicketStatus   `json:"status"`
	DepartmentID           string                `json:"department_id"`
	CustomerID             string                `json:"customer_id"`
	AssigneeID             *string               `json:"assignee_id"`
	FirstResponseAt        *time.Time            `json:"first_response_at"`
	ResolvedAt             *time.Time            `json:"resolved_at"`
	ClosedAt               *time.Time            `json:"closed_at"`
	FirstResponseTimeHours *float64              `json:"first_response_time_hours"`
	ResolutionTimeHours    *float64              `json:"resolution_time_hours"`
	IsOverdue              bool                  `json:"is_overdue"`
	Version                int64                 `json:"version"`
	CreatedAt              time.Time             `json:"created_at"`
	UpdatedAt              time.Time             `json:"updated_at"`
}

// TicketMessageResponse represents a thread message.
type TicketMessageResponse struct {
	ID         string             `json:"id"`
	AuthorID   *string            `json:"author_id"`
	AuthorRole domain.Role        `json:"author_role,omitempty"`
	Content    string             `json:"content"`
	Type       domain.MessageType `json:"type"`
	IsInternal bool               `json:"is_internal"`
	CreatedAt  time.Time          `json:"created_at"`
}

// TicketHistoryResponse is one audit trail entry.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	ChangedByID *string                 `json:"changed_by_id"`
	ChangedBy   domain.Role             `json:"changed_by,omitempty"`
	OldValue    map[string]any          `json:"old_value,omitempty"`
	NewValue    map[string]any          `json:"new_value,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
}
