package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestValidatorReportsFieldsByJSONName(t *testing.T) {
	v := NewValidator()

	err := v.Struct(&CreateTicketRequest{
		DepartmentID: "not-a-uuid",
		Priority:     "SOMEDAY",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))

	details := apperrors.ToDomainError(err).Details
	assert.Equal(t, "uuid", details["department_id"])
	assert.Equal(t, "required", details["subject"])
	assert.Equal(t, "required", details["description"])
	assert.Equal(t, "ticket_priority", details["priority"])
}

func TestValidatorAcceptsValidPayloads(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(&CreateTicketRequest{
		DepartmentID: "1b4e28ba-2fa1-4d3b-a3f5-ef19b5a7633b",
		Subject:      "Printer on fire",
		Description:  "Third floor.",
	}))
	assert.NoError(t, v.Struct(&LoginRequest{Email: "casey@example.com", Password: "x"}))
	assert.NoError(t, v.Struct(&DepartmentRequest{
		Name:     "Billing",
		SLAHours: map[domain.TicketPriority]int{domain.TicketPriorityUrgent: 4},
	}))
}

func TestValidatorRejectsBadSLAHours(t *testing.T) {
	v := NewValidator()
	cases := map[string]map[domain.TicketPriority]int{
		"unknown priority": {"SOMEDAY": 4},
		"zero hours":       {domain.TicketPriorityHigh: 0},
	}
	for name, hours := range cases {
		t.Run(name, func(t *testing.T) {
			err := v.Struct(&DepartmentRequest{Name: "Billing", SLAHours: hours})
			assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))
		})
	}
}

func TestValidatorMessageType(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Struct(&CreateMessageRequest{Content: "hi", Type: domain.MessageTypeInternalNote}))
	assert.Error(t, v.Struct(&CreateMessageRequest{Content: "hi", Type: domain.MessageTypeSystem}))
	assert.Error(t, v.Struct(&CreateMessageRequest{}))
}
