package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
)

const testPassword = "correct horse battery"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) kinds() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.sent))
	for _, n := range r.sent {
		out = append(out, n.Kind)
	}
	return out
}

type fixture struct {
	ctx   context.Context
	clock *testClock
	store *memory.Store

	metrics     *observability.Metrics
	notifier    *recordingNotifier
	identities  *IdentityService
	sessions    *SessionService
	tickets     *TicketService
	departments *DepartmentService
	helpdesk    *Helpdesk

	dept      *domain.Department
	otherDept *domain.Department
	customer  *domain.Identity
	stranger  *domain.Identity
	agent     *domain.Identity
	outsider  *domain.Identity
	admin     *domain.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore(clock.Now)
	dispatcher := events.NewInMemoryDispatcher(nil)
	metrics := observability.NewMetrics()

	f := &fixture{
		ctx:      context.Background(),
		clock:    clock,
		store:    store,
		metrics:  metrics,
		notifier: &recordingNotifier{},
	}

	f.identities = NewIdentityService(IdentityDependencies{Store: store, BcryptCost: bcrypt.MinCost})
	f.sessions = NewSessionService(SessionDependencies{
		Store: store,
		Tokens: auth.NewTokenManager(auth.TokenOptions{
			Secret:   "test-secret",
			Issuer:   "helpdesk",
			Audience: "helpdesk-api",
			TTL:      time.Hour,
			Now:      clock.Now,
		}),
		RefreshTTL: 14 * 24 * time.Hour,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Now:        clock.Now,
	})
	policy := NewSLAPolicy(store.Departments(), nil, 16, time.Minute, 1)
	f.tickets = NewTicketService(TicketDependencies{
		Store:      store,
		Policy:     policy,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Now:        clock.Now,
	})
	f.departments = NewDepartmentService(store, policy, nil)
	f.helpdesk = NewHelpdesk(HelpdeskDependencies{
		Identities: f.identities,
		Sessions:   f.sessions,
		Tickets:    f.tickets,
		Store:      store,
		Limiter:    auth.NewMemoryLoginLimiter(3, 15*time.Minute, clock.Now),
		Metrics:    metrics,
	})
	NewNotificationService(dispatcher, store, f.notifier, nil).RegisterHandlers()

	f.dept = &domain.Department{Name: "Billing", IsActive: true, SLAHours: map[domain.TicketPriority]int{
		domain.TicketPriorityUrgent: 4,
	}}
	require.NoError(t, store.Departments().Create(f.ctx, f.dept))
	f.otherDept = &domain.Department{Name: "Hardware", IsActive: true}
	require.NoError(t, store.Departments().Create(f.ctx, f.otherDept))

	f.customer = f.register(t, domain.NewCustomer(domain.IdentityBase{Email: "casey@example.com", Active: true}, domain.CustomerProfile{}))
	f.stranger = f.register(t, domain.NewCustomer(domain.IdentityBase{Email: "sam@example.com", Active: true}, domain.CustomerProfile{}))
	f.agent = f.register(t, domain.NewAgent(domain.IdentityBase{Email: "alex@example.com", Active: true}, domain.AgentProfile{DepartmentID: f.dept.ID}))
	f.outsider = f.register(t, domain.NewAgent(domain.IdentityBase{Email: "olu@example.com", Active: true}, domain.AgentProfile{DepartmentID: f.otherDept.ID}))
	f.admin = f.register(t, domain.NewAdmin(domain.IdentityBase{Email: "root@example.com", Active: true}, domain.AdminProfile{
		ManageUsers:       true,
		ManageDepartments: true,
	}))
	return f
}

func (f *fixture) register(t *testing.T, identity *domain.Identity) *domain.Identity {
	t.Helper()
	require.NoError(t, f.identities.Register(f.ctx, identity, testPassword))
	return identity
}

func actorFor(identity *domain.Identity) *auth.Actor {
	return auth.NewActor(identity, "")
}

func (f *fixture) newTicket(t *testing.T, priority domain.TicketPriority) *TicketView {
	t.Helper()
	view, err := f.tickets.CreateTicket(f.ctx, actorFor(f.customer), TicketCreateInput{
		DepartmentID: f.dept.ID,
		Subject:      "Invoice is wrong",
		Description:  "I was charged twice in May.",
		Priority:     priority,
	})
	require.NoError(t, err)
	return view
}
