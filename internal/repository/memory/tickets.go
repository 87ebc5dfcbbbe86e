package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type ticketRepo struct{ s *Store }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departments[ticket.DepartmentID]; !ok {
		return repository.ErrReferenced
	}
	if _, ok := r.s.identities[ticket.CustomerID]; !ok {
		return repository.ErrReferenced
	}
	if ticket.AssigneeID != nil {
		if _, ok := r.s.identities[*ticket.AssigneeID]; !ok {
			return repository.ErrReferenced
		}
	}
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	r.s.ticketSeq++
	ticket.Number = repository.FormatTicketNumber(r.s.ticketSeq)
	ticket.Version = 1
	ticket.Stamp(r.s.now())
	r.s.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.tickets[ticket.ID]
	if !ok || current.Deleted || current.Version != ticket.Version {
		return repository.ErrVersionConflict
	}
	if ticket.AssigneeID != nil {
		if _, ok := r.s.identities[*ticket.AssigneeID]; !ok {
			return repository.ErrReferenced
		}
	}
	next := ticket.Clone()
	next.Number = current.Number
	next.CustomerID = current.CustomerID
	next.CreatedAt = current.CreatedAt
	next.Stamp(r.s.now())
	next.Version = current.Version + 1
	r.s.tickets[ticket.ID] = next

	ticket.UpdatedAt = next.UpdatedAt
	ticket.Version = next.Version
	return nil
}

func (r ticketRepo) GetByID(ctx context.Context, id string, opts ...repository.ReadOption) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ticket, ok := r.s.tickets[id]
	if !ok || !repository.Visible(ticket.Audit, opts...) {
		return nil, repository.ErrNotFound
	}
	return ticket.Clone(), nil
}

func (r ticketRepo) SoftDelete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ticket, ok := r.s.tickets[id]
	if !ok || ticket.Deleted {
		return repository.ErrNotFound
	}
	ticket.Deleted = true
	ticket.Version++
	ticket.Stamp(r.s.now())
	return nil
}

func (r ticketRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.tickets, id)
	delete(r.s.messages, id)
	delete(r.s.history, id)
	return nil
}
