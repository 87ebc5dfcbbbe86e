package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/helpdesk/internal/domain"
)

var (
	// ErrNotFound is returned when a row is absent or soft-deleted.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when a compare-and-set write loses.
	ErrVersionConflict = errors.New("record was modified concurrently")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("record already exists")
	// ErrReferenced is returned when a restrict-delete rule blocks removal.
	ErrReferenced = errors.New("record is still referenced")

	ErrSessionReused  = errors.New("refresh token already rotated")
	ErrSessionExpired = errors.New("refresh token expired or revoked")
)

// IdentityRepository persists identities of every variant.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) error
	Update(ctx context.Context, identity *domain.Identity) error
	GetByID(ctx context.Context, id string, opts ...ReadOption) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string, opts ...ReadOption) (*domain.Identity, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
	SoftDelete(ctx context.Context, id string) error
	// Delete removes the row. Customers with tickets cannot be removed;
	// tickets assigned to a removed agent become unassigned.
	Delete(ctx context.Context, id string) error
}

// SessionRepository persists refresh credentials keyed by token hash.
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error)
	// Rotate atomically consumes the session identified by oldHash and
	// stores next in its place. On ErrSessionReused or ErrSessionExpired the
	// consumed session is returned alongside the error.
	Rotate(ctx context.Context, oldHash string, next *domain.Session, now time.Time) (*domain.Session, error)
	RevokeFamily(ctx context.Context, familyID string, at time.Time) (int64, error)
	IsFamilyRevoked(ctx context.Context, familyID string) (bool, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	Update(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id string, opts ...ReadOption) (*domain.Department, error)
	ListActive(ctx context.Context) ([]domain.Department, error)
	SoftDelete(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	// Create assigns the ticket number and version.
	Create(ctx context.Context, ticket *domain.Ticket) error
	// Update writes ticket only if the stored version equals ticket.Version,
	// then bumps the version. A lost race yields ErrVersionConflict.
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string, opts ...ReadOption) (*domain.Ticket, error)
	SoftDelete(ctx context.Context, id string) error
	// Delete removes the ticket and its messages.
	Delete(ctx context.Context, id string) error
}

// TicketMessageRepository manages ticket thread messages.
type TicketMessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID string, opts ...ReadOption) ([]domain.Message, error)
}

// TicketHistoryRepository stores audit entries.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

// Store groups the repositories and runs units of work.
type Store interface {
	Identities() IdentityRepository
	Sessions() SessionRepository
	Departments() DepartmentRepository
	Tickets() TicketRepository
	Messages() TicketMessageRepository
	History() TicketHistoryRepository
	// InTx runs fn with repositories bound to a single transaction.
	InTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
}

// FormatTicketNumber renders the human-readable ticket number.
func FormatTicketNumber(seq int64) string {
	return fmt.Sprintf("TCK-%06d", seq)
}
