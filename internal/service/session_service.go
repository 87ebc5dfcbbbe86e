package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Session outcomes reported to metrics.
const (
	sessionIssued    = "issued"
	sessionRefreshed = "refreshed"
	sessionRejected  = "rejected"
	sessionReused    = "reuse_detected"
	sessionRevoked   = "revoked"
)

// SessionService issues, validates, rotates and revokes sessions.
type SessionService struct {
	store      repository.Store
	tokens     *auth.TokenManager
	refreshTTL time.Duration
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// SessionDependencies bundles what SessionService needs.
type SessionDependencies struct {
	Store      repository.Store
	Tokens     *auth.TokenManager
	RefreshTTL time.Duration
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewSessionService builds the service.
func NewSessionService(deps SessionDependencies) *SessionService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.RefreshTTL <= 0 {
		deps.RefreshTTL = 14 * 24 * time.Hour
	}
	return &SessionService{
		store:      deps.Store,
		tokens:     deps.Tokens,
		refreshTTL: deps.RefreshTTL,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
}

// Issue starts a new session family for identity.
func (s *SessionService) Issue(ctx context.Context, identity *domain.Identity) (*domain.TokenPair, error) {
	familyID := uuid.NewString()
	pair, err := s.mint(ctx, identity.ID, identity.Role, familyID, func(session *domain.Session) error {
		return s.store.Sessions().Create(ctx, session)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.RecordSession(sessionIssued)
	return pair, nil
}

// mint builds a session in familyID, persists it through save and signs the
// matching access token.
func (s *SessionService) mint(ctx context.Context, identityID string, role domain.Role, familyID string, save func(*domain.Session) error) (*domain.TokenPair, error) {
	refresh, hash, err := auth.NewRefreshToken()
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	now := s.now().UTC()
	session := &domain.Session{
		ID:         uuid.NewString(),
		FamilyID:   familyID,
		IdentityID: identityID,
		Role:       role,
		TokenHash:  hash,
		ExpiresAt:  now.Add(s.refreshTTL),
		CreatedAt:  now,
	}
	if err := save(session); err != nil {
		return nil, err
	}
	access, exp, err := s.tokens.GenerateToken(identityID, role, session.FamilyID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &domain.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresAt:        exp,
		RefreshExpiresAt: session.ExpiresAt,
		FamilyID:         session.FamilyID,
	}, nil
}

// Validate checks an access token's signature, expiry, issuer and audience.
// Every failure is reported as the same UNAUTHENTICATED error.
func (s *SessionService) Validate(accessToken string) (*auth.Claims, error) {
	claims, err := s.tokens.ParseToken(accessToken)
	if err != nil {
		return nil, apperrors.NewUnauthenticated("invalid or expired access token")
	}
	return claims, nil
}

// IsRevoked reports whether the session family behind an access token has
// been revoked.
func (s *SessionService) IsRevoked(ctx context.Context, familyID string) (bool, error) {
	revoked, err := s.store.Sessions().IsFamilyRevoked(ctx, familyID)
	if err != nil {
		return false, storeError(err, "session")
	}
	return revoked, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed; presenting it again revokes every session in its family.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	hash := auth.HashRefreshToken(refreshToken)

	current, err := s.store.Sessions().GetByTokenHash(ctx, hash)
	if err != nil {
		s.metrics.RecordSession(sessionRejected)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewInvalidOrExpiredToken()
		}
		return nil, storeError(err, "session")
	}

	identity, err := s.store.Identities().GetByID(ctx, current.IdentityID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "identity")
	}
	if identity == nil || !identity.CanAuthenticate() {
		if _, err := s.store.Sessions().RevokeFamily(ctx, current.FamilyID, s.now()); err != nil {
			return nil, storeError(err, "session")
		}
		s.metrics.RecordSession(sessionRejected)
		return nil, apperrors.NewInvalidOrExpiredToken()
	}

	pair, err := s.mint(ctx, identity.ID, identity.Role, current.FamilyID, func(next *domain.Session) error {
		_, err := s.store.Sessions().Rotate(ctx, hash, next, s.now())
		return err
	})
	switch {
	case err == nil:
		s.metrics.RecordSession(sessionRefreshed)
		return pair, nil
	case errors.Is(err, repository.ErrSessionReused):
		return nil, s.handleReuse(ctx, current)
	case errors.Is(err, repository.ErrSessionExpired), errors.Is(err, repository.ErrNotFound):
		s.metrics.RecordSession(sessionRejected)
		return nil, apperrors.NewInvalidOrExpiredToken()
	}
	return nil, storeError(err, "session")
}

func (s *SessionService) handleReuse(ctx context.Context, session *domain.Session) error {
	now := s.now()
	revoked, err := s.store.Sessions().RevokeFamily(ctx, session.FamilyID, now)
	if err != nil {
		return storeError(err, "session")
	}
	s.metrics.RecordSession(sessionReused)
	s.logger.Warn("refresh token reuse detected",
		zap.String("identity_id", session.IdentityID),
		zap.String("family_id", session.FamilyID),
		zap.Int64("revoked", revoked),
	)
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.New(events.EventSessionReuseDetected, "",
			events.Actor{ID: session.IdentityID, Role: session.Role}, now,
			events.SessionReuseDetectedPayload{
				IdentityID: session.IdentityID,
				FamilyID:   session.FamilyID,
				Revoked:    revoked,
			}))
	}
	return apperrors.NewInvalidOrExpiredToken()
}

// Revoke ends the session family of refreshToken. It returns false when the
// token is unknown; revoking twice is not an error.
func (s *SessionService) Revoke(ctx context.Context, refreshToken string) (bool, error) {
	session, err := s.store.Sessions().GetByTokenHash(ctx, auth.HashRefreshToken(refreshToken))
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storeError(err, "session")
	}
	if _, err := s.store.Sessions().RevokeFamily(ctx, session.FamilyID, s.now()); err != nil {
		return false, storeError(err, "session")
	}
	s.metrics.RecordSession(sessionRevoked)
	return true, nil
}

// PurgeExpired deletes sessions that expired before now minus grace.
func (s *SessionService) PurgeExpired(ctx context.Context, grace time.Duration) (int64, error) {
	n, err := s.store.Sessions().PurgeExpired(ctx, s.now().Add(-grace))
	if err != nil {
		return 0, storeError(err, "session")
	}
	return n, nil
}
