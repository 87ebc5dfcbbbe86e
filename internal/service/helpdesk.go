package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// Login outcomes reported to metrics.
const (
	loginSucceeded = "success"
	loginFailed    = "failure"
	loginLocked    = "locked"
)

// Helpdesk is the authentication and authorization surface exposed to
// transports.
type Helpdesk struct {
	identities *IdentityService
	sessions   *SessionService
	tickets    *TicketService
	store      repository.Store
	limiter    auth.LoginLimiter
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// HelpdeskDependencies bundles what Helpdesk needs.
type HelpdeskDependencies struct {
	Identities *IdentityService
	Sessions   *SessionService
	Tickets    *TicketService
	Store      repository.Store
	Limiter    auth.LoginLimiter
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewHelpdesk wires the facade.
func NewHelpdesk(deps HelpdeskDependencies) *Helpdesk {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Helpdesk{
		identities: deps.Identities,
		sessions:   deps.Sessions,
		tickets:    deps.Tickets,
		store:      deps.Store,
		limiter:    deps.Limiter,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
}

// Authenticate exchanges credentials for a token pair. Every failure is the
// same INVALID_CREDENTIALS, whether the email is unknown, the secret wrong,
// the identity inactive or the email locked out.
func (h *Helpdesk) Authenticate(ctx context.Context, email, secret string) (*domain.TokenPair, error) {
	email = domain.NormalizeEmail(email)
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeout(err)
	}

	if h.locked(ctx, email) {
		h.identities.VerifyCredential(nil, secret)
		h.metrics.RecordLogin(loginLocked)
		return nil, apperrors.NewInvalidCredentials()
	}

	identity, err := h.identities.FindByEmail(ctx, email)
	if err != nil && apperrors.KindOf(err) != apperrors.CodeNotFound {
		return nil, err
	}
	if !h.identities.VerifyCredential(identity, secret) || !identity.CanAuthenticate() {
		h.recordFailure(ctx, email)
		h.metrics.RecordLogin(loginFailed)
		return nil, apperrors.NewInvalidCredentials()
	}

	if h.limiter != nil {
		if err := h.limiter.Reset(ctx, email); err != nil {
			h.logger.Warn("reset login failures", zap.Error(err))
		}
	}
	if err := h.store.Identities().RecordLogin(ctx, identity.ID, h.sessions.now()); err != nil {
		h.logger.Warn("record login", zap.String("identity_id", identity.ID), zap.Error(err))
	}

	pair, err := h.sessions.Issue(ctx, identity)
	if err != nil {
		return nil, err
	}
	h.metrics.RecordLogin(loginSucceeded)
	h.logger.Info("identity authenticated",
		zap.String("identity_id", identity.ID),
		zap.String("role", string(identity.Role)),
	)
	return pair, nil
}

// locked fails open: a limiter outage must not block every login.
func (h *Helpdesk) locked(ctx context.Context, email string) bool {
	if h.limiter == nil {
		return false
	}
	locked, err := h.limiter.Locked(ctx, email)
	if err != nil {
		h.logger.Warn("check login lockout", zap.Error(err))
		return false
	}
	return locked
}

func (h *Helpdesk) recordFailure(ctx context.Context, email string) {
	if h.limiter == nil {
		return
	}
	if err := h.limiter.RecordFailure(ctx, email); err != nil {
		h.logger.Warn("record login failure", zap.Error(err))
	}
}

// RefreshSession rotates a refresh token.
func (h *Helpdesk) RefreshSession(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	return h.sessions.Refresh(ctx, refreshToken)
}

// RevokeSession ends the session family of refreshToken. It reports false
// for an unknown token.
func (h *Helpdesk) RevokeSession(ctx context.Context, refreshToken string) (bool, error) {
	return h.sessions.Revoke(ctx, refreshToken)
}

// ResolveActor validates an access token and builds the actor from the live
// identity. Tokens of revoked sessions, deleted or deactivated identities,
// and identities whose role changed are all rejected the same way.
func (h *Helpdesk) ResolveActor(ctx context.Context, accessToken string) (*auth.Actor, error) {
	unauthenticated := apperrors.NewUnauthenticated("invalid or expired access token")

	claims, err := h.sessions.Validate(accessToken)
	if err != nil {
		return nil, err
	}
	revoked, err := h.sessions.IsRevoked(ctx, claims.SessionID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, unauthenticated
	}
	identity, err := h.identities.FindByID(ctx, claims.IdentityID())
	if err != nil {
		if apperrors.KindOf(err) == apperrors.CodeNotFound {
			return nil, unauthenticated
		}
		return nil, err
	}
	if !identity.CanAuthenticate() || identity.Role != claims.Role {
		return nil, unauthenticated
	}
	return auth.NewActor(identity, claims.SessionID), nil
}

// Authorize resolves the actor behind accessToken and checks action against
// the ticket when ticketID is given.
func (h *Helpdesk) Authorize(ctx context.Context, accessToken string, action auth.Action, ticketID *string) (*auth.Actor, error) {
	actor, err := h.ResolveActor(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if ticketID == nil {
		err = decisionError(auth.Can(actor, action, nil))
	} else {
		_, err = h.tickets.loadTicket(ctx, actor, action, *ticketID)
	}
	if err != nil {
		return nil, err
	}
	return actor, nil
}
