package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// messageAttempts bounds how often PostMessage recomputes after losing a
// compare-and-set race.
const messageAttempts = 3

var errDepartmentClosed = errors.New("department is not accepting tickets")

// Suggester is the triage suggestion collaborator.
type Suggester interface {
	Suggest(ctx context.Context, title, description string) (*domain.TriageSuggestion, error)
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	store       repository.Store
	policy      *SLAPolicy
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	suggester   Suggester
	logger      *zap.Logger
	now         func() time.Time
	readRetries int
}

// TicketDependencies bundles what TicketService needs.
type TicketDependencies struct {
	Store       repository.Store
	Policy      *SLAPolicy
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Suggester   Suggester
	Logger      *zap.Logger
	Now         func() time.Time
	ReadRetries int
}

// TicketCreateInput describes ticket creation payload. CustomerID may be
// empty when a customer files for themselves.
type TicketCreateInput struct {
	CustomerID   string
	DepartmentID string
	Subject      string
	Description  string
	Priority     domain.TicketPriority
}

// MessageInput describes a message to append. Type may be empty, in which
// case it is derived from the author and IsInternal.
type MessageInput struct {
	Content    string
	Type       domain.MessageType
	IsInternal bool
}

// TicketView is a ticket together with values computed at read time.
type TicketView struct {
	domain.Ticket
	Overdue bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Policy == nil {
		deps.Policy = NewSLAPolicy(deps.Store.Departments(), nil, 0, 0, deps.ReadRetries)
	}
	return &TicketService{
		store:       deps.Store,
		policy:      deps.Policy,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		suggester:   deps.Suggester,
		logger:      deps.Logger,
		now:         deps.Now,
		readRetries: deps.ReadRetries,
	}
}

// CreateTicket files a ticket in OPEN with the SLA threshold of its
// department.
func (s *TicketService) CreateTicket(ctx context.Context, actor *auth.Actor, input TicketCreateInput) (*TicketView, error) {
	if actor != nil && input.CustomerID == "" && actor.Role == domain.RoleCustomer {
		input.CustomerID = actor.ID
	}
	if input.Priority == "" {
		input.Priority = domain.TicketPriorityNormal
	}
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)

	draft := &domain.Ticket{CustomerID: input.CustomerID, DepartmentID: input.DepartmentID}
	if err := decisionError(auth.Can(actor, auth.ActionCreateTicket, draft)); err != nil {
		return nil, err
	}

	switch {
	case input.CustomerID == "":
		return nil, apperrors.NewValidationError("customer is required", nil)
	case input.Subject == "":
		return nil, apperrors.NewValidationError("subject is required", nil)
	case input.Description == "":
		return nil, apperrors.NewValidationError("description is required", nil)
	case !input.Priority.Valid():
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": input.Priority})
	}

	dept, err := s.policy.Department(ctx, input.DepartmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NewValidationError("department does not exist", map[string]any{"department_id": input.DepartmentID})
	}
	if err != nil {
		return nil, storeError(err, "department")
	}
	if !dept.IsActive {
		return nil, apperrors.NewValidationError("department is not accepting tickets", map[string]any{"department_id": dept.ID})
	}

	customer, err := s.identity(ctx, input.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil || customer.Role != domain.RoleCustomer || !customer.Active {
		return nil, apperrors.NewValidationError("customer does not exist", map[string]any{"customer_id": input.CustomerID})
	}

	now := s.now().UTC()
	ticket := &domain.Ticket{
		Subject:      input.Subject,
		Description:  input.Description,
		Priority:     input.Priority,
		Status:       domain.TicketStatusOpen,
		DepartmentID: dept.ID,
		CustomerID:   customer.ID,
		SLAHours:     s.policy.Threshold(dept, input.Priority),
	}
	ticket.CreatedAt = now

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		// The policy cache may lag a delete or deactivation made elsewhere.
		live, err := tx.Departments().GetByID(ctx, dept.ID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !live.IsActive) {
			return errDepartmentClosed
		}
		if err != nil {
			return err
		}
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return tx.History().Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: actorID(actor),
			ChangedBy:   actor.Role,
			ChangeType:  domain.ChangeTypeCreated,
			NewValue: map[string]any{
				"status":   string(ticket.Status),
				"priority": string(ticket.Priority),
			},
			CreatedAt: now,
		})
	})
	if errors.Is(err, errDepartmentClosed) {
		s.policy.Invalidate(dept.ID)
		return nil, apperrors.NewValidationError("department is not accepting tickets", map[string]any{"department_id": dept.ID})
	}
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("number", ticket.Number),
		zap.String("actor_id", actor.ID),
	)
	s.publish(ctx, events.EventTicketCreated, ticket.ID, actor, now, events.TicketCreatedPayload{
		Number:       ticket.Number,
		DepartmentID: ticket.DepartmentID,
		CustomerID:   ticket.CustomerID,
		Priority:     ticket.Priority,
		Subject:      ticket.Subject,
	})
	return s.view(ticket), nil
}

// GetTicket returns a ticket the actor may read.
func (s *TicketService) GetTicket(ctx context.Context, actor *auth.Actor, ticketID string) (*TicketView, error) {
	ticket, err := s.loadTicket(ctx, actor, auth.ActionReadTicket, ticketID)
	if err != nil {
		return nil, err
	}
	return s.view(ticket), nil
}

// TransitionStatus moves a ticket through the lifecycle. Customers may only
// close their own resolved tickets.
func (s *TicketService) TransitionStatus(ctx context.Context, actor *auth.Actor, ticketID string, next domain.TicketStatus) (*TicketView, error) {
	customer := actor != nil && actor.Role == domain.RoleCustomer

	action := auth.ActionTransitionStatus
	switch {
	case next == domain.TicketStatusCancelled:
		action = auth.ActionCancelTicket
	case customer:
		action = auth.ActionCloseTicket
	}

	ticket, err := s.loadTicket(ctx, actor, action, ticketID)
	if err != nil {
		return nil, err
	}
	if customer && next.Valid() {
		if next != domain.TicketStatusClosed {
			return nil, forbidden(auth.ReasonInsufficientRole)
		}
		if ticket.Status != domain.TicketStatusResolved {
			return nil, apperrors.NewInvalidTransition("only resolved tickets can be closed", domain.ErrInvalidTransition)
		}
	}
	if ticket.Status == domain.TicketStatusResolved && next == domain.TicketStatusWaitingAgent {
		return nil, apperrors.NewInvalidTransition("resolved tickets reopen to waiting agent only on a customer reply", domain.ErrInvalidTransition)
	}

	now := s.now().UTC()
	previous := ticket.Status
	if err := ticket.Transition(next, now); err != nil {
		return nil, transitionError(err)
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		return tx.History().Create(ctx, statusEntry(actor, ticket.ID, previous, next, now))
	})
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	s.metrics.RecordTransition(string(previous), string(next))
	s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, actor, now, events.TicketStatusChangedPayload{
		OldStatus: previous,
		NewStatus: next,
	})
	return s.view(ticket), nil
}

// Assign sets the ticket's agent. Assigning an OPEN ticket starts work on
// it; reassigning the current agent is a no-op.
func (s *TicketService) Assign(ctx context.Context, actor *auth.Actor, ticketID, agentID string) (*TicketView, error) {
	ticket, err := s.loadTicket(ctx, actor, auth.ActionAssignTicket, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.Terminal() {
		return nil, apperrors.NewInvalidTransition("ticket is "+strings.ToLower(string(ticket.Status)), domain.ErrTerminalStatus)
	}

	assignee, err := s.identity(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if err := eligibleAssignee(assignee, ticket); err != nil {
		return nil, err
	}
	if ticket.IsAssignedTo(agentID) && ticket.Status != domain.TicketStatusOpen {
		return s.view(ticket), nil
	}

	now := s.now().UTC()
	var previousAssignee *string
	if ticket.AssigneeID != nil {
		prev := *ticket.AssigneeID
		previousAssignee = &prev
	}
	ticket.AssigneeID = &assignee.ID

	previousStatus := ticket.Status
	started := previousStatus == domain.TicketStatusOpen
	if started {
		if err := ticket.Transition(domain.TicketStatusInProgress, now); err != nil {
			return nil, transitionError(err)
		}
	}

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if err := tx.History().Create(ctx, &domain.TicketHistory{
			TicketID:    ticket.ID,
			ChangedByID: actorID(actor),
			ChangedBy:   actor.Role,
			ChangeType:  domain.ChangeTypeAssignee,
			OldValue:    map[string]any{"assignee_id": previousAssignee},
			NewValue:    map[string]any{"assignee_id": assignee.ID},
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		if started {
			return tx.History().Create(ctx, statusEntry(actor, ticket.ID, previousStatus, ticket.Status, now))
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "ticket")
	}

	s.publish(ctx, events.EventTicketAssigned, ticket.ID, actor, now, events.TicketAssignedPayload{
		PreviousAssigneeID: previousAssignee,
		AssigneeID:         assignee.ID,
	})
	if started {
		s.metrics.RecordTransition(string(previousStatus), string(ticket.Status))
		s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, actor, now, events.TicketStatusChangedPayload{
			OldStatus: previousStatus,
			NewStatus: ticket.Status,
			Automatic: true,
		})
	}
	return s.view(ticket), nil
}

func eligibleAssignee(assignee *domain.Identity, ticket *domain.Ticket) error {
	if assignee == nil || !assignee.CanAuthenticate() {
		return apperrors.NewValidationError("assignee is not an active agent", nil)
	}
	switch assignee.Role {
	case domain.RoleAdmin:
		return nil
	case domain.RoleAgent:
		if assignee.DepartmentID() != ticket.DepartmentID {
			return apperrors.NewValidationError("assignee belongs to another department", map[string]any{
				"department_id": ticket.DepartmentID,
			})
		}
		return nil
	}
	return apperrors.NewValidationError("assignee is not an active agent", nil)
}

// PostMessage appends to the ticket thread. It is the only operation whose
// status effects are implicit: a customer reply hands the ticket back to the
// agent and an agent reply hands it to the customer.
func (s *TicketService) PostMessage(ctx context.Context, actor *auth.Actor, ticketID string, input MessageInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	internal := input.IsInternal || input.Type == domain.MessageTypeInternalNote

	action := auth.ActionPostMessage
	if internal {
		action = auth.ActionPostInternalNote
	}
	if err := decisionError(auth.Can(actor, action, nil)); err != nil {
		if actor != nil && actor.Role == domain.RoleCustomer && internal {
			return nil, apperrors.NewForbidden("customers cannot post internal messages")
		}
		return nil, err
	}
	if content == "" {
		return nil, apperrors.NewValidationError("content is required", nil)
	}
	msgType, err := messageType(actor.Role, input.Type, internal)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		msg, err := s.appendMessage(ctx, actor, action, ticketID, content, msgType, internal)
		if errors.Is(err, repository.ErrVersionConflict) && attempt < messageAttempts {
			s.logger.Debug("message post lost a race, retrying",
				zap.String("ticket_id", ticketID),
				zap.Int("attempt", attempt),
			)
			continue
		}
		if err != nil {
			return nil, storeError(err, "ticket")
		}
		return msg, nil
	}
}

func messageType(role domain.Role, requested domain.MessageType, internal bool) (domain.MessageType, error) {
	if requested == "" {
		switch {
		case internal:
			return domain.MessageTypeInternalNote, nil
		case role == domain.RoleCustomer:
			return domain.MessageTypeCustomer, nil
		}
		return domain.MessageTypeAgent, nil
	}
	invalid := apperrors.NewValidationError("message type not allowed", map[string]any{"type": requested})
	switch requested {
	case domain.MessageTypeCustomer:
		if role != domain.RoleCustomer {
			return "", invalid
		}
	case domain.MessageTypeAgent, domain.MessageTypeInternalNote:
		if !role.IsStaff() {
			return "", invalid
		}
	default:
		return "", invalid
	}
	return requested, nil
}

func (s *TicketService) appendMessage(ctx context.Context, actor *auth.Actor, action auth.Action, ticketID, content string, msgType domain.MessageType, internal bool) (*domain.Message, error) {
	ticket, err := s.loadTicket(ctx, actor, action, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status.Terminal() && actor.Role == domain.RoleCustomer {
		return nil, apperrors.NewInvalidTransition("ticket is "+strings.ToLower(string(ticket.Status))+"; open a new ticket", domain.ErrTerminalStatus)
	}

	now := s.now().UTC()
	previous := ticket.Status
	next, statusChanged := domain.ReplyTransition(previous, actor.Role, internal)
	if statusChanged {
		if err := ticket.Transition(next, now); err != nil {
			return nil, transitionError(err)
		}
	}
	msg := &domain.Message{
		TicketID:   ticket.ID,
		AuthorID:   actorID(actor),
		AuthorRole: actor.Role,
		Content:    content,
		Type:       msgType,
		IsInternal: internal,
	}
	msg.CreatedAt = now
	firstResponse := msg.CountsAsResponse() && ticket.RecordFirstResponse(now)

	err = s.store.InTx(ctx, func(tx repository.Store) error {
		if statusChanged || firstResponse {
			if err := tx.Tickets().Update(ctx, ticket); err != nil {
				return err
			}
		}
		if err := tx.Messages().Create(ctx, msg); err != nil {
			return err
		}
		if statusChanged {
			return tx.History().Create(ctx, statusEntry(actor, ticket.ID, previous, next, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.EventTicketMessagePosted, ticket.ID, actor, now, events.TicketMessagePostedPayload{
		MessageID:   msg.ID,
		MessageType: msg.Type,
		IsInternal:  msg.IsInternal,
		BodyPreview: preview(msg.Content, 120),
	})
	if statusChanged {
		s.metrics.RecordTransition(string(previous), string(next))
		s.publish(ctx, events.EventTicketStatusChanged, ticket.ID, actor, now, events.TicketStatusChangedPayload{
			OldStatus: previous,
			NewStatus: next,
			Automatic: true,
		})
	}
	return msg, nil
}

// ListMessages returns the thread as the actor may see it. Customers never
// see internal messages.
func (s *TicketService) ListMessages(ctx context.Context, actor *auth.Actor, ticketID string) ([]domain.Message, error) {
	ticket, err := s.loadTicket(ctx, actor, auth.ActionReadTicket, ticketID)
	if err != nil {
		return nil, err
	}
	msgs, err := readWithRetry(ctx, s.readRetries, func(ctx context.Context) ([]domain.Message, error) {
		return s.store.Messages().ListByTicket(ctx, ticket.ID)
	})
	if err != nil {
		return nil, storeError(err, "message")
	}
	visible := msgs[:0]
	for i := range msgs {
		if msgs[i].VisibleTo(actor.Role) {
			visible = append(visible, msgs[i])
		}
	}
	return visible, nil
}

// ListHistory returns the audit trail of a ticket to staff.
func (s *TicketService) ListHistory(ctx context.Context, actor *auth.Actor, ticketID string) ([]domain.TicketHistory, error) {
	ticket, err := s.loadTicket(ctx, actor, auth.ActionReadTicket, ticketID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() {
		return nil, forbidden(auth.ReasonInsufficientRole)
	}
	entries, err := readWithRetry(ctx, s.readRetries, func(ctx context.Context) ([]domain.TicketHistory, error) {
		return s.store.History().ListByTicket(ctx, ticket.ID)
	})
	if err != nil {
		return nil, storeError(err, "ticket history")
	}
	return entries, nil
}

// SuggestTriage asks the suggestion collaborator for a department and
// priority guess.
func (s *TicketService) SuggestTriage(ctx context.Context, actor *auth.Actor, ticketID string) (*domain.TriageSuggestion, error) {
	ticket, err := s.loadTicket(ctx, actor, auth.ActionSuggestTriage, ticketID)
	if err != nil {
		return nil, err
	}
	if s.suggester == nil {
		return nil, apperrors.NewUpstream("suggestion service", errors.New("not configured"))
	}
	suggestion, err := s.suggester.Suggest(ctx, ticket.Subject, ticket.Description)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeout(err)
		}
		s.logger.Warn("triage suggestion failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		return nil, apperrors.NewUpstream("suggestion service", err)
	}
	return suggestion, nil
}

// loadTicket checks the actor's role before touching storage, then checks
// the loaded ticket. A customer probing someone else's ticket sees NOT_FOUND.
func (s *TicketService) loadTicket(ctx context.Context, actor *auth.Actor, action auth.Action, ticketID string) (*domain.Ticket, error) {
	if err := decisionError(auth.Can(actor, action, nil)); err != nil {
		return nil, err
	}
	ticket, err := readWithRetry(ctx, s.readRetries, func(ctx context.Context) (*domain.Ticket, error) {
		return s.store.Tickets().GetByID(ctx, ticketID)
	})
	if err != nil {
		return nil, storeError(err, "ticket")
	}
	decision := auth.Can(actor, action, ticket)
	if decision.Reason == auth.ReasonNotOwner {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	if err := decisionError(decision); err != nil {
		return nil, err
	}
	return ticket, nil
}

// identity loads a live identity; a missing one is returned as nil.
func (s *TicketService) identity(ctx context.Context, id string) (*domain.Identity, error) {
	identity, err := readWithRetry(ctx, s.readRetries, func(ctx context.Context) (*domain.Identity, error) {
		return s.store.Identities().GetByID(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, "identity")
	}
	return identity, nil
}

func (s *TicketService) view(ticket *domain.Ticket) *TicketView {
	return &TicketView{Ticket: *ticket.Clone(), Overdue: ticket.IsOverdue(s.now())}
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, ticketID string, actor *auth.Actor, at time.Time, payload interface{}) {
	if s.dispatcher == nil {
		return
	}
	event := events.New(eventType, ticketID, events.Actor{ID: actor.ID, Role: actor.Role}, at, payload)
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(eventType)), zap.Error(err))
	}
}

func statusEntry(actor *auth.Actor, ticketID string, from, to domain.TicketStatus, at time.Time) *domain.TicketHistory {
	return &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: actorID(actor),
		ChangedBy:   actor.Role,
		ChangeType:  domain.ChangeTypeStatus,
		OldValue:    map[string]any{"status": string(from)},
		NewValue:    map[string]any{"status": string(to)},
		CreatedAt:   at,
	}
}

func transitionError(err error) error {
	switch {
	case errors.Is(err, domain.ErrUnknownStatus):
		return apperrors.NewValidationError("unknown status", nil)
	case errors.Is(err, domain.ErrAssigneeRequired):
		return apperrors.NewInvalidTransition("ticket must be assigned first", err)
	}
	return apperrors.NewInvalidTransition("status transition not allowed", err)
}

func actorID(actor *auth.Actor) *string {
	id := actor.ID
	return &id
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
