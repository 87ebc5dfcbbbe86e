package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type sessionRepo struct{ s *Store }

func (r sessionRepo) Create(ctx context.Context, session *domain.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.insert(session)
}

// insert must be called with the write lock held.
func (r sessionRepo) insert(session *domain.Session) error {
	if _, exists := r.s.sessions[session.TokenHash]; exists {
		return repository.ErrDuplicate
	}
	if _, ok := r.s.identities[session.IdentityID]; !ok {
		return repository.ErrReferenced
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	r.s.sessions[session.TokenHash] = cloneSession(session)
	return nil
}

func (r sessionRepo) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	session, ok := r.s.sessions[hash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneSession(session), nil
}

func (r sessionRepo) Rotate(ctx context.Context, oldHash string, next *domain.Session, now time.Time) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	previous, ok := r.s.sessions[oldHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	switch {
	case previous.RotatedAt != nil:
		return cloneSession(previous), repository.ErrSessionReused
	case !previous.Usable(now):
		return cloneSession(previous), repository.ErrSessionExpired
	}

	next.FamilyID = previous.FamilyID
	if next.ID == "" {
		next.ID = uuid.NewString()
	}
	if err := r.insert(next); err != nil {
		return nil, err
	}
	rotatedAt := now.UTC()
	replacedBy := next.ID
	previous.RotatedAt = &rotatedAt
	previous.ReplacedBy = &replacedBy
	return cloneSession(previous), nil
}

func (r sessionRepo) RevokeFamily(ctx context.Context, familyID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	at = at.UTC()
	for _, session := range r.s.sessions {
		if session.FamilyID == familyID && session.RevokedAt == nil {
			revokedAt := at
			session.RevokedAt = &revokedAt
			n++
		}
	}
	return n, nil
}

func (r sessionRepo) IsFamilyRevoked(ctx context.Context, familyID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, session := range r.s.sessions {
		if session.FamilyID == familyID && session.RevokedAt != nil {
			return true, nil
		}
	}
	return false, nil
}

func (r sessionRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for hash, session := range r.s.sessions {
		if session.ExpiresAt.Before(before) {
			delete(r.s.sessions, hash)
			n++
		}
	}
	return n, nil
}
