package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type identityRepo struct{ s *Store }

func (r identityRepo) Create(ctx context.Context, identity *domain.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := domain.NormalizeEmail(identity.Email)
	if _, taken := r.s.emails[email]; taken {
		return repository.ErrDuplicate
	}
	if identity.Role == domain.RoleAgent {
		if _, ok := r.s.departments[identity.Agent.DepartmentID]; !ok {
			return repository.ErrReferenced
		}
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	identity.Email = email
	identity.Stamp(r.s.now())
	r.s.identities[identity.ID] = cloneIdentity(identity)
	r.s.emails[email] = identity.ID
	return nil
}

func (r identityRepo) Update(ctx context.Context, identity *domain.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.identities[identity.ID]
	if !ok || current.Deleted {
		return repository.ErrNotFound
	}
	if identity.Role != current.Role {
		return domain.ErrInvalidIdentity
	}
	email := domain.NormalizeEmail(identity.Email)
	if owner, taken := r.s.emails[email]; taken && owner != identity.ID {
		return repository.ErrDuplicate
	}
	delete(r.s.emails, current.Email)
	identity.Email = email
	identity.Deleted = current.Deleted
	identity.CreatedAt = current.CreatedAt
	identity.Stamp(r.s.now())
	r.s.identities[identity.ID] = cloneIdentity(identity)
	r.s.emails[email] = identity.ID
	return nil
}

func (r identityRepo) GetByID(ctx context.Context, id string, opts ...repository.ReadOption) (*domain.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	identity, ok := r.s.identities[id]
	if !ok || !repository.Visible(identity.Audit, opts...) {
		return nil, repository.ErrNotFound
	}
	return r.withAssignments(identity), nil
}

func (r identityRepo) GetByEmail(ctx context.Context, email string, opts ...repository.ReadOption) (*domain.Identity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.emails[domain.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	identity := r.s.identities[id]
	if !repository.Visible(identity.Audit, opts...) {
		return nil, repository.ErrNotFound
	}
	return r.withAssignments(identity), nil
}

// withAssignments must be called with the read lock held.
func (r identityRepo) withAssignments(identity *domain.Identity) *domain.Identity {
	out := cloneIdentity(identity)
	if out.Agent == nil {
		return out
	}
	out.Agent.AssignedTicketIDs = assignedTo(r.s, out.ID)
	return out
}

func assignedTo(s *Store, agentID string) []string {
	var live []*domain.Ticket
	for _, t := range s.tickets {
		if !t.Deleted && t.IsAssignedTo(agentID) {
			live = append(live, t)
		}
	}
	sort.Slice(live, func(i, j int) bool { return live[i].CreatedAt.Before(live[j].CreatedAt) })
	ids := make([]string, 0, len(live))
	for _, t := range live {
		ids = append(ids, t.ID)
	}
	return ids
}

func (r identityRepo) RecordLogin(ctx context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[id]
	if !ok || identity.Deleted {
		return repository.ErrNotFound
	}
	at = at.UTC()
	identity.LastLoginAt = &at
	return nil
}

func (r identityRepo) SoftDelete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[id]
	if !ok || identity.Deleted {
		return repository.ErrNotFound
	}
	identity.Deleted = true
	identity.Stamp(r.s.now())
	return nil
}

func (r identityRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	identity, ok := r.s.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	for _, t := range r.s.tickets {
		if t.CustomerID == id {
			return repository.ErrReferenced
		}
	}
	for _, t := range r.s.tickets {
		if t.IsAssignedTo(id) {
			t.AssigneeID = nil
			t.Version++
		}
	}
	for _, msgs := range r.s.messages {
		for i := range msgs {
			if msgs[i].AuthorID != nil && *msgs[i].AuthorID == id {
				msgs[i].AuthorID = nil
			}
		}
	}
	for hash, sess := range r.s.sessions {
		if sess.IdentityID == id {
			delete(r.s.sessions, hash)
		}
	}
	delete(r.s.emails, identity.Email)
	delete(r.s.identities, id)
	return nil
}
