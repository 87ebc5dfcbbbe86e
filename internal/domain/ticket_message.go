package domain

import "time"

// MessageType differentiates replies, notes and system entries.
type MessageType string

const (
	MessageTypeCustomer     MessageType = "CUSTOMER"
	MessageTypeAgent        MessageType = "AGENT"
	MessageTypeInternalNote MessageType = "INTERNAL_NOTE"
	MessageTypeSystem       MessageType = "SYSTEM"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeCustomer, MessageTypeAgent, MessageTypeInternalNote, MessageTypeSystem:
		return true
	}
	return false
}

// Message captures communications in a ticket thread.
type Message struct {
	ID         string
	TicketID   string
	AuthorID   *string
	AuthorRole Role
	Content    string
	Type       MessageType
	IsInternal bool
	Edited     bool
	EditedAt   *time.Time
	Audit
}

// VisibleTo reports whether a viewer with the given role may see the message.
// Internal messages are never shown to customers.
func (m *Message) VisibleTo(role Role) bool {
	if m.IsInternal || m.Type == MessageTypeInternalNote {
		return role.IsStaff()
	}
	return true
}

// CountsAsResponse reports whether the message is a helpdesk response for SLA purposes.
func (m *Message) CountsAsResponse() bool {
	return m.AuthorID != nil && m.AuthorRole.IsStaff()
}
