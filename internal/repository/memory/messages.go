package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type messageRepo struct{ s *Store }

func (r messageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[msg.TicketID]; !ok {
		return repository.ErrReferenced
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Stamp(r.s.now())
	stored := *msg
	if msg.AuthorID != nil {
		id := *msg.AuthorID
		stored.AuthorID = &id
	}
	r.s.messages[msg.TicketID] = append(r.s.messages[msg.TicketID], stored)
	return nil
}

func (r messageRepo) ListByTicket(ctx context.Context, ticketID string, opts ...repository.ReadOption) ([]domain.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Message
	for _, msg := range r.s.messages[ticketID] {
		if repository.Visible(msg.Audit, opts...) {
			out = append(out, msg)
		}
	}
	return out, nil
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(ctx context.Context, entry *domain.TicketHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.tickets[entry.TicketID]; !ok {
		return repository.ErrReferenced
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.CreatedAt = r.s.now().UTC()
	r.s.history[entry.TicketID] = append(r.s.history[entry.TicketID], *entry)
	return nil
}

func (r historyRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return append([]domain.TicketHistory(nil), r.s.history[ticketID]...), nil
}
