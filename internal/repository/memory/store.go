// Package memory is a map-backed repository.Store used when no database is
// configured and in tests. It honours the same soft-delete, uniqueness,
// referential and compare-and-set rules as the Postgres store.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store is an in-memory repository.Store.
type Store struct {
	mu    sync.RWMutex
	clock func() time.Time

	identities  map[string]*domain.Identity
	emails      map[string]string
	sessions    map[string]*domain.Session
	departments map[string]*domain.Department
	tickets     map[string]*domain.Ticket
	messages    map[string][]domain.Message
	history     map[string][]domain.TicketHistory
	ticketSeq   int64
}

// NewStore builds an empty store. A nil clock uses time.Now.
func NewStore(clock func() time.Time) *Store {
	if clock == nil {
		clock = time.Now
	}
	return &Store{
		clock:       clock,
		identities:  make(map[string]*domain.Identity),
		emails:      make(map[string]string),
		sessions:    make(map[string]*domain.Session),
		departments: make(map[string]*domain.Department),
		tickets:     make(map[string]*domain.Ticket),
		messages:    make(map[string][]domain.Message),
		history:     make(map[string][]domain.TicketHistory),
	}
}

func (s *Store) Identities() repository.IdentityRepository    { return identityRepo{s} }
func (s *Store) Sessions() repository.SessionRepository       { return sessionRepo{s} }
func (s *Store) Departments() repository.DepartmentRepository { return departmentRepo{s} }
func (s *Store) Tickets() repository.TicketRepository         { return ticketRepo{s} }
func (s *Store) Messages() repository.TicketMessageRepository { return messageRepo{s} }
func (s *Store) History() repository.TicketHistoryRepository  { return historyRepo{s} }

// InTx runs fn against the same store. Writes made before a failing step are
// not rolled back, so callers order the compare-and-set write first.
func (s *Store) InTx(ctx context.Context, fn func(repository.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(s)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) now() time.Time {
	return s.clock()
}

func cloneIdentity(in *domain.Identity) *domain.Identity {
	out := *in
	if in.LastLoginAt != nil {
		t := *in.LastLoginAt
		out.LastLoginAt = &t
	}
	if in.Customer != nil {
		p := *in.Customer
		out.Customer = &p
	}
	if in.Agent != nil {
		p := *in.Agent
		p.AssignedTicketIDs = append([]string(nil), in.Agent.AssignedTicketIDs...)
		out.Agent = &p
	}
	if in.Admin != nil {
		p := *in.Admin
		out.Admin = &p
	}
	return &out
}

func cloneDepartment(in *domain.Department) *domain.Department {
	out := *in
	out.SLAHours = make(map[domain.TicketPriority]int, len(in.SLAHours))
	for k, v := range in.SLAHours {
		out.SLAHours[k] = v
	}
	return &out
}

func cloneSession(in *domain.Session) *domain.Session {
	out := *in
	if in.RotatedAt != nil {
		t := *in.RotatedAt
		out.RotatedAt = &t
	}
	if in.RevokedAt != nil {
		t := *in.RevokedAt
		out.RevokedAt = &t
	}
	if in.ReplacedBy != nil {
		id := *in.ReplacedBy
		out.ReplacedBy = &id
	}
	return &out
}
