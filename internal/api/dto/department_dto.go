package dto

import (
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// DepartmentRequest creates or replaces a department.
type DepartmentRequest struct {
	Name        string                        `json:"name" validate:"required,max=120"`
	Description string                        `json:"description" validate:"max=2000"`
	IsActive    *bool                         `json:"is_active"`
	SLAHours    map[domain.TicketPriority]int `json:"sla_hours" validate:"omitempty,dive,keys,ticket_priority,endkeys,gt=0"`
}

// DepartmentResponse describes a department.
type DepartmentResponse struct {
	ID          string                        `json:"id"`
	Name        string                        `json:"name"`
	Description string                        `json:"description"`
	IsActive    bool                          `json:"is_active"`
	SLAHours    map[domain.TicketPriority]int `json:"sla_hours,omitempty"`
	CreatedAt   time.Time                     `json:"created_at"`
	UpdatedAt   time.Time                     `json:"updated_at"`
}
