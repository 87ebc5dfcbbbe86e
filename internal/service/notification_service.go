package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// Notification is a message addressed to one recipient. Recipient is an
// identity id, or "department:<id>" for a department queue.
type Notification struct {
	Recipient string
	Kind      events.EventType
	TicketID  string
	Summary   string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l LogNotifier) Notify(_ context.Context, n Notification) error {
	l.Logger.Info("notification",
		zap.String("recipient", n.Recipient),
		zap.String("kind", string(n.Kind)),
		zap.String("ticket_id", n.TicketID),
		zap.String("summary", n.Summary),
	)
	return nil
}

// NotificationService routes domain events to the people who should hear
// about them.
type NotificationService struct {
	dispatcher events.Dispatcher
	store      repository.Store
	notifier   Notifier
	logger     *zap.Logger
}

// NewNotificationService creates the service. A nil notifier logs.
func NewNotificationService(dispatcher events.Dispatcher, store repository.Store, notifier Notifier, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &NotificationService{
		dispatcher: dispatcher,
		store:      store,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	n.dispatcher.Subscribe(events.EventTicketMessagePosted, n.handleTicketMessagePosted)
	n.dispatcher.Subscribe(events.EventSessionReuseDetected, n.handleSessionReuse)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.notifier.Notify(ctx, Notification{
		Recipient: "department:" + payload.DepartmentID,
		Kind:      event.Type,
		TicketID:  event.TicketID,
		Summary:   fmt.Sprintf("%s %s", payload.Number, payload.Subject),
	})
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	switch payload.NewStatus {
	case domain.TicketStatusWaitingCustomer, domain.TicketStatusResolved, domain.TicketStatusCancelled:
	default:
		return nil
	}
	ticket, err := n.store.Tickets().GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}
	if event.Actor.ID == ticket.CustomerID {
		return nil
	}
	return n.notifier.Notify(ctx, Notification{
		Recipient: ticket.CustomerID,
		Kind:      event.Type,
		TicketID:  ticket.ID,
		Summary:   fmt.Sprintf("%s is now %s", ticket.Number, payload.NewStatus),
	})
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	if payload.AssigneeID == event.Actor.ID {
		return nil
	}
	return n.notifier.Notify(ctx, Notification{
		Recipient: payload.AssigneeID,
		Kind:      event.Type,
		TicketID:  event.TicketID,
		Summary:   "ticket assigned to you",
	})
}

func (n *NotificationService) handleTicketMessagePosted(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketMessagePostedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	if payload.IsInternal {
		return nil
	}
	ticket, err := n.store.Tickets().GetByID(ctx, event.TicketID)
	if err != nil {
		return err
	}

	recipient := ticket.CustomerID
	if event.Actor.Role == domain.RoleCustomer {
		if ticket.AssigneeID == nil {
			recipient = "department:" + ticket.DepartmentID
		} else {
			recipient = *ticket.AssigneeID
		}
	}
	return n.notifier.Notify(ctx, Notification{
		Recipient: recipient,
		Kind:      event.Type,
		TicketID:  ticket.ID,
		Summary:   payload.BodyPreview,
	})
}

func (n *NotificationService) handleSessionReuse(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.SessionReuseDetectedPayload)
	if !ok {
		return unexpectedPayload(event)
	}
	return n.notifier.Notify(ctx, Notification{
		Recipient: payload.IdentityID,
		Kind:      event.Type,
		Summary:   fmt.Sprintf("a reused sign-in token ended %d session(s)", payload.Revoked),
	})
}

func unexpectedPayload(event events.Event) error {
	return fmt.Errorf("event %s: unexpected payload %T", event.Type, event.Payload)
}
