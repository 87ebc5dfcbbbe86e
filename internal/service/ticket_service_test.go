package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func TestTicketLifecycleScenario(t *testing.T) {
	f := newFixture(t)
	customer, agent := actorFor(f.customer), actorFor(f.agent)

	created := f.newTicket(t, "")
	assert.Equal(t, domain.TicketStatusOpen, created.Status)
	assert.Equal(t, domain.TicketPriorityNormal, created.Priority)
	assert.Equal(t, "TCK-000001", created.Number)
	assert.Equal(t, 48, created.SLAHours)
	assert.Equal(t, int64(1), created.Version)

	assigned, err := f.tickets.Assign(f.ctx, agent, created.ID, f.agent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, assigned.Status)
	require.NotNil(t, assigned.AssigneeID)
	assert.Equal(t, f.agent.ID, *assigned.AssigneeID)

	f.clock.Advance(90 * time.Minute)
	_, err = f.tickets.PostMessage(f.ctx, agent, created.ID, MessageInput{Content: "Looking into it."})
	require.NoError(t, err)

	afterReply, err := f.tickets.GetTicket(f.ctx, agent, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, afterReply.Status)
	require.NotNil(t, afterReply.FirstResponseTimeHours)
	assert.Equal(t, 1.5, *afterReply.FirstResponseTimeHours)

	f.clock.Advance(2 * time.Hour)
	resolved, err := f.tickets.TransitionStatus(f.ctx, agent, created.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, f.clock.Now(), *resolved.ResolvedAt)
	assert.Equal(t, 3.5, *resolved.ResolutionTimeHours)

	_, err = f.tickets.PostMessage(f.ctx, customer, created.ID, MessageInput{Content: "Still charged twice."})
	require.NoError(t, err)

	reopened, err := f.tickets.GetTicket(f.ctx, customer, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitingAgent, reopened.Status)
	assert.Nil(t, reopened.ResolvedAt)
	assert.Nil(t, reopened.ResolutionTimeHours)

	history, err := f.tickets.ListHistory(f.ctx, agent, created.ID)
	require.NoError(t, err)
	var changes []domain.TicketChangeType
	for _, h := range history {
		changes = append(changes, h.ChangeType)
	}
	assert.Equal(t, []domain.TicketChangeType{
		domain.ChangeTypeCreated,
		domain.ChangeTypeAssignee,
		domain.ChangeTypeStatus,
		domain.ChangeTypeStatus,
		domain.ChangeTypeStatus,
	}, changes)

	assert.Contains(t, f.notifier.kinds(), events.EventTicketCreated)
	assert.Contains(t, f.notifier.kinds(), events.EventTicketStatusChanged)
}

func TestCustomerClosesResolvedTicket(t *testing.T) {
	f := newFixture(t)
	customer, agent := actorFor(f.customer), actorFor(f.agent)
	ticket := f.newTicket(t, domain.TicketPriorityHigh)

	_, err := f.tickets.TransitionStatus(f.ctx, customer, ticket.ID, domain.TicketStatusClosed)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.KindOf(err))

	_, err = f.tickets.TransitionStatus(f.ctx, customer, ticket.ID, domain.TicketStatusCancelled)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.KindOf(err))

	_, err = f.tickets.Assign(f.ctx, agent, ticket.ID, f.agent.ID)
	require.NoError(t, err)
	_, err = f.tickets.TransitionStatus(f.ctx, agent, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	closed, err := f.tickets.TransitionStatus(f.ctx, customer, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)

	_, err = f.tickets.PostMessage(f.ctx, customer, ticket.ID, MessageInput{Content: "One more thing"})
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.KindOf(err))

	msg, err := f.tickets.PostMessage(f.ctx, agent, ticket.ID, MessageInput{Content: "Closing note for the record"})
	require.NoError(t, err)
	assert.Equal(t, domain.MessageTypeAgent, msg.Type)

	after, err := f.tickets.GetTicket(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, after.Status)

	for _, next := range []domain.TicketStatus{domain.TicketStatusInProgress, domain.TicketStatusCancelled, domain.TicketStatusResolved} {
		_, err = f.tickets.TransitionStatus(f.ctx, agent, ticket.ID, next)
		assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.KindOf(err), next)
	}
}

func TestTransitionRequiresAssignee(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, "")

	_, err := f.tickets.TransitionStatus(f.ctx, actorFor(f.agent), ticket.ID, domain.TicketStatusInProgress)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.KindOf(err))

	_, err = f.tickets.TransitionStatus(f.ctx, actorFor(f.agent), ticket.ID, "ESCALATED")
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))

	cancelled, err := f.tickets.TransitionStatus(f.ctx, actorFor(f.agent), ticket.ID, domain.TicketStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, cancelled.Status)
}

func TestCustomerCannotPostInternal(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, "")
	customer := actorFor(f.customer)

	_, err := f.tickets.PostMessage(f.ctx, customer, ticket.ID, MessageInput{Content: "psst", IsInternal: true})
	assert.Equal(t, apperrors.CodeForbidden, apperrors.KindOf(err))

	_, err = f.tickets.PostMessage(f.ctx, customer, ticket.ID, MessageInput{Content: "psst", Type: domain.MessageTypeInternalNote})
	assert.Equal(t, apperrors.CodeForbidden, apperrors.KindOf(err))

	_, err = f.tickets.PostMessage(f.ctx, customer, ticket.ID, MessageInput{Content: "hi", Type: domain.MessageTypeAgent})
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))

	_, err = f.tickets.PostMessage(f.ctx, actorFor(f.agent), ticket.ID, MessageInput{Content: "auto", Type: domain.MessageTypeSystem})
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))
}

func TestInternalNotesHiddenFromCustomer(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, "")
	agent := actorFor(f.agent)

	_, err := f.tickets.PostMessage(f.ctx, agent, ticket.ID, MessageInput{Content: "customer is a VIP", IsInternal: true})
	require.NoError(t, err)
	_, err = f.tickets.PostMessage(f.ctx, agent, ticket.ID, MessageInput{Content: "We are on it"})
	require.NoError(t, err)

	staffView, err := f.tickets.ListMessages(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, staffView, 2)
	assert.Equal(t, domain.MessageTypeInternalNote, staffView[0].Type)

	customerView, err := f.tickets.ListMessages(f.ctx, actorFor(f.customer), ticket.ID)
	require.NoError(t, err)
	require.Len(t, customerView, 1)
	assert.Equal(t, "We are on it", customerView[0].Content)

	_, err = f.tickets.ListHistory(f.ctx, actorFor(f.customer), ticket.ID)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.KindOf(err))
}

func TestFirstResponseSetOnce(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, "")
	agent := actorFor(f.agent)

	_, err := f.tickets.PostMessage(f.ctx, actorFor(f.customer), ticket.ID, MessageInput{Content: "hello?"})
	require.NoError(t, err)
	view, err := f.tickets.GetTicket(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, view.FirstResponseAt)

	f.clock.Advance(time.Hour)
	_, err = f.tickets.PostMessage(f.ctx, agent, ticket.ID, MessageInput{Content: "note", IsInternal: true})
	require.NoError(t, err)
	first := f.clock.Now()

	f.clock.Advance(time.Hour)
	_, err = f.tickets.PostMessage(f.ctx, actorFor(f.admin), ticket.ID, MessageInput{Content: "admin here"})
	require.NoError(t, err)

	view, err = f.tickets.GetTicket(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	require.NotNil(t, view.FirstResponseAt)
	assert.Equal(t, first, *view.FirstResponseAt)
	assert.Equal(t, 1.0, *view.FirstResponseTimeHours)
}

func TestIsOverdueAtReadTime(t *testing.T) {
	f := newFixture(t)
	agent := actorFor(f.agent)

	late := f.newTicket(t, domain.TicketPriorityNormal)
	_, err := f.tickets.Assign(f.ctx, agent, late.ID, f.agent.ID)
	require.NoError(t, err)

	early := f.newTicket(t, domain.TicketPriorityNormal)
	_, err = f.tickets.Assign(f.ctx, agent, early.ID, f.agent.ID)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Hour)
	_, err = f.tickets.TransitionStatus(f.ctx, agent, early.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	_, err = f.tickets.TransitionStatus(f.ctx, agent, early.ID, domain.TicketStatusClosed)
	require.NoError(t, err)

	view, err := f.tickets.GetTicket(f.ctx, agent, late.ID)
	require.NoError(t, err)
	assert.False(t, view.Overdue)

	f.clock.Advance(90 * time.Hour)

	view, err = f.tickets.GetTicket(f.ctx, agent, late.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, view.Status)
	assert.True(t, view.Overdue)

	view, err = f.tickets.GetTicket(f.ctx, agent, early.ID)
	require.NoError(t, err)
	assert.False(t, view.Overdue)
}

func TestDepartmentSLAOverridesFallback(t *testing.T) {
	f := newFixture(t)
	urgent := f.newTicket(t, domain.TicketPriorityUrgent)
	assert.Equal(t, 4, urgent.SLAHours)

	low := f.newTicket(t, domain.TicketPriorityLow)
	assert.Equal(t, 72, low.SLAHours)
}

func TestCreateTicketValidation(t *testing.T) {
	f := newFixture(t)
	customer := actorFor(f.customer)
	valid := TicketCreateInput{DepartmentID: f.dept.ID, Subject: "s", Description: "d"}

	t.Run("deleted department", func(t *testing.T) {
		require.NoError(t, f.departments.Delete(f.ctx, actorFor(f.admin), f.otherDept.ID))
		in := valid
		in.DepartmentID = f.otherDept.ID
		_, err := f.tickets.CreateTicket(f.ctx, customer, in)
		assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))
	})

	t.Run("unknown department", func(t *testing.T) {
		in := valid
		in.DepartmentID = "nope"
		_, err := f.tickets.CreateTicket(f.ctx, customer, in)
		assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))
	})

	t.Run("bad priority", func(t *testing.T) {
		in := valid
		in.Priority = "CRITICAL"
		_, err := f.tickets.CreateTicket(f.ctx, customer, in)
		assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))
	})

	t.Run("customer filing for someone else", func(t *testing.T) {
		in := valid
		in.CustomerID = f.stranger.ID
		_, err := f.tickets.CreateTicket(f.ctx, customer, in)
		assert.Equal(t, apperrors.CodeForbidden, apperrors.KindOf(err))
	})

	t.Run("agent without on-behalf capability", func(t *testing.T) {
		in := valid
		in.CustomerID = f.customer.ID
		_, err := f.tickets.CreateTicket(f.ctx, actorFor(f.agent), in)
		assert.Equal(t, apperrors.CodeForbidden, apperrors.KindOf(err))
	})

	t.Run("admin on behalf", func(t *testing.T) {
		in := valid
		in.CustomerID = f.customer.ID
		view, err := f.tickets.CreateTicket(f.ctx, actorFor(f.admin), in)
		require.NoError(t, err)
		assert.Equal(t, f.customer.ID, view.CustomerID)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, err := f.tickets.CreateTicket(f.ctx, nil, valid)
		assert.Equal(t, apperrors.CodeUnauthenticated, apperrors.KindOf(err))
	})
}

func TestTicketVisibility(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, "")

	_, err := f.tickets.GetTicket(f.ctx, actorFor(f.stranger), ticket.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.KindOf(err))

	_, err = f.tickets.GetTicket(f.ctx, actorFor(f.outsider), ticket.ID)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.KindOf(err))

	_, err = f.tickets.GetTicket(f.ctx, actorFor(f.admin), ticket.ID)
	assert.NoError(t, err)

	require.NoError(t, f.store.Tickets().SoftDelete(f.ctx, ticket.ID))
	_, err = f.tickets.GetTicket(f.ctx, actorFor(f.admin), ticket.ID)
	assert.Equal(t, apperrors.CodeNotFound, apperrors.KindOf(err))
}

func TestAssignRules(t *testing.T) {
	f := newFixture(t)
	agent := actorFor(f.agent)
	ticket := f.newTicket(t, "")

	_, err := f.tickets.Assign(f.ctx, agent, ticket.ID, f.outsider.ID)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))

	_, err = f.tickets.Assign(f.ctx, agent, ticket.ID, f.customer.ID)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))

	_, err = f.tickets.Assign(f.ctx, actorFor(f.customer), ticket.ID, f.agent.ID)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.KindOf(err))

	first, err := f.tickets.Assign(f.ctx, agent, ticket.ID, f.agent.ID)
	require.NoError(t, err)

	again, err := f.tickets.Assign(f.ctx, agent, ticket.ID, f.agent.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Version, again.Version)

	toAdmin, err := f.tickets.Assign(f.ctx, agent, ticket.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Equal(t, f.admin.ID, *toAdmin.AssigneeID)
	assert.Equal(t, domain.TicketStatusInProgress, toAdmin.Status)

	assigned, err := f.store.Identities().GetByID(f.ctx, f.agent.ID)
	require.NoError(t, err)
	assert.Empty(t, assigned.Agent.AssignedTicketIDs)

	_, err = f.tickets.TransitionStatus(f.ctx, agent, ticket.ID, domain.TicketStatusCancelled)
	require.NoError(t, err)
	_, err = f.tickets.Assign(f.ctx, agent, ticket.ID, f.agent.ID)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.KindOf(err))
}

// barrierStore holds every ticket read until two have happened, so two
// writers start from the same version.
// readBarrier holds the first n ticket reads until all n have happened so the
// callers load the same version. Later reads pass straight through.
type readBarrier struct {
	remaining atomic.Int32
	reads     sync.WaitGroup
}

func newReadBarrier(n int) *readBarrier {
	b := &readBarrier{}
	b.remaining.Store(int32(n))
	b.reads.Add(n)
	return b
}

func (b *readBarrier) pass() {
	if b.remaining.Add(-1) < 0 {
		return
	}
	b.reads.Done()
	b.reads.Wait()
}

type barrierStore struct {
	repository.Store
	barrier *readBarrier
}

func (b barrierStore) Tickets() repository.TicketRepository {
	return barrierTickets{TicketRepository: b.Store.Tickets(), barrier: b.barrier}
}

type barrierTickets struct {
	repository.TicketRepository
	barrier *readBarrier
}

func (b barrierTickets) GetByID(ctx context.Context, id string, opts ...repository.ReadOption) (*domain.Ticket, error) {
	ticket, err := b.TicketRepository.GetByID(ctx, id, opts...)
	b.barrier.pass()
	return ticket, err
}

func TestConcurrentAssignExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	second := f.register(t, domain.NewAgent(domain.IdentityBase{Email: "bo@example.com", Active: true}, domain.AgentProfile{DepartmentID: f.dept.ID}))
	ticket := f.newTicket(t, "")

	racing := NewTicketService(TicketDependencies{
		Store: barrierStore{Store: f.store, barrier: newReadBarrier(2)},
		Now:   f.clock.Now,
	})

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, agentID := range []string{f.agent.ID, second.ID} {
		wg.Add(1)
		go func(i int, agentID string) {
			defer wg.Done()
			_, errs[i] = racing.Assign(f.ctx, actorFor(f.admin), ticket.ID, agentID)
		}(i, agentID)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.KindOf(err) == apperrors.CodeConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
}

func TestConcurrentStaffMessagesBothLand(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, "")

	racing := NewTicketService(TicketDependencies{
		Store: barrierStore{Store: f.store, barrier: newReadBarrier(2)},
		Now:   f.clock.Now,
	})

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, author := range []*domain.Identity{f.agent, f.admin} {
		wg.Add(1)
		go func(i int, author *domain.Identity) {
			defer wg.Done()
			_, errs[i] = racing.PostMessage(f.ctx, actorFor(author), ticket.ID, MessageInput{Content: "on it"})
		}(i, author)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	require.NotNil(t, stored.FirstResponseAt)
	assert.Equal(t, f.clock.Now(), *stored.FirstResponseAt)

	msgs, err := f.store.Messages().ListByTicket(f.ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestStaffCannotReopenResolvedToWaitingAgent(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, "")
	agent := actorFor(f.agent)

	_, err := f.tickets.Assign(f.ctx, actorFor(f.admin), ticket.ID, f.agent.ID)
	require.NoError(t, err)
	_, err = f.tickets.TransitionStatus(f.ctx, agent, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)

	_, err = f.tickets.TransitionStatus(f.ctx, agent, ticket.ID, domain.TicketStatusWaitingAgent)
	assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.KindOf(err))

	view, err := f.tickets.GetTicket(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, view.Status)
	assert.NotNil(t, view.ResolvedAt)

	// A customer reply is still the way back.
	_, err = f.tickets.PostMessage(f.ctx, actorFor(f.customer), ticket.ID, MessageInput{Content: "still broken"})
	require.NoError(t, err)
	view, err = f.tickets.GetTicket(f.ctx, agent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusWaitingAgent, view.Status)
}

func TestDepartmentWithLiveTicketsCannotBeDeleted(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, "")

	err := f.departments.Delete(f.ctx, actorFor(f.admin), f.dept.ID)
	assert.Equal(t, apperrors.CodeConflict, apperrors.KindOf(err))

	view, err := f.tickets.GetTicket(f.ctx, actorFor(f.customer), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, view.Status)
	_, err = f.store.Departments().GetByID(f.ctx, f.dept.ID)
	require.NoError(t, err)
}

func TestCreateTicketRechecksCachedDepartment(t *testing.T) {
	f := newFixture(t)
	customer := actorFor(f.customer)
	in := TicketCreateInput{DepartmentID: f.otherDept.ID, Subject: "s", Description: "d"}

	_, err := f.tickets.policy.Department(f.ctx, f.otherDept.ID)
	require.NoError(t, err)

	t.Run("deactivated elsewhere", func(t *testing.T) {
		closed := *f.otherDept
		closed.IsActive = false
		require.NoError(t, f.store.Departments().Update(f.ctx, &closed))

		_, err := f.tickets.CreateTicket(f.ctx, customer, in)
		assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))
	})

	t.Run("deleted elsewhere", func(t *testing.T) {
		_, err := f.tickets.policy.Department(f.ctx, f.dept.ID)
		require.NoError(t, err)
		require.NoError(t, f.store.Departments().SoftDelete(f.ctx, f.dept.ID))

		in := in
		in.DepartmentID = f.dept.ID
		_, err = f.tickets.CreateTicket(f.ctx, customer, in)
		assert.Equal(t, apperrors.CodeValidationFailed, apperrors.KindOf(err))
	})
}

type stubSuggester struct {
	out *domain.TriageSuggestion
	err error
}

func (s stubSuggester) Suggest(context.Context, string, string) (*domain.TriageSuggestion, error) {
	return s.out, s.err
}

func TestSuggestTriage(t *testing.T) {
	f := newFixture(t)
	ticket := f.newTicket(t, "")

	_, err := f.tickets.SuggestTriage(f.ctx, actorFor(f.agent), ticket.ID)
	assert.Equal(t, apperrors.CodeUpstream, apperrors.KindOf(err))

	f.tickets.suggester = stubSuggester{out: &domain.TriageSuggestion{DepartmentGuess: "Billing", PriorityHint: domain.TicketPriorityHigh}}
	got, err := f.tickets.SuggestTriage(f.ctx, actorFor(f.agent), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Billing", got.DepartmentGuess)

	_, err = f.tickets.SuggestTriage(f.ctx, actorFor(f.customer), ticket.ID)
	assert.Equal(t, apperrors.CodeForbidden, apperrors.KindOf(err))

	f.tickets.suggester = stubSuggester{err: errors.New("model overloaded")}
	_, err = f.tickets.SuggestTriage(f.ctx, actorFor(f.agent), ticket.ID)
	assert.Equal(t, apperrors.CodeUpstream, apperrors.KindOf(err))

	f.tickets.suggester = stubSuggester{err: context.DeadlineExceeded}
	_, err = f.tickets.SuggestTriage(f.ctx, actorFor(f.agent), ticket.ID)
	assert.Equal(t, apperrors.CodeTimeout, apperrors.KindOf(err))
}
