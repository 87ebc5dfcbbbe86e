package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// IdentityService looks identities up and checks their credentials.
type IdentityService struct {
	store       repository.Store
	bcryptCost  int
	readRetries int
	logger      *zap.Logger
}

// IdentityDependencies bundles what IdentityService needs.
type IdentityDependencies struct {
	Store       repository.Store
	BcryptCost  int
	ReadRetries int
	Logger      *zap.Logger
}

// NewIdentityService builds the service.
func NewIdentityService(deps IdentityDependencies) *IdentityService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &IdentityService{
		store:       deps.Store,
		bcryptCost:  deps.BcryptCost,
		readRetries: deps.ReadRetries,
		logger:      deps.Logger,
	}
}

// FindByEmail returns the live identity registered under email.
func (s *IdentityService) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	identity, err := readWithRetry(ctx, s.readRetries, func(ctx context.Context) (*domain.Identity, error) {
		return s.store.Identities().GetByEmail(ctx, email)
	})
	if err != nil {
		return nil, storeError(err, "identity")
	}
	return identity, nil
}

// FindByID returns the live identity with id.
func (s *IdentityService) FindByID(ctx context.Context, id string) (*domain.Identity, error) {
	identity, err := readWithRetry(ctx, s.readRetries, func(ctx context.Context) (*domain.Identity, error) {
		return s.store.Identities().GetByID(ctx, id)
	})
	if err != nil {
		return nil, storeError(err, "identity")
	}
	return identity, nil
}

// VerifyCredential reports whether secret matches the identity's stored hash.
func (s *IdentityService) VerifyCredential(identity *domain.Identity, secret string) bool {
	if identity == nil || identity.PasswordHash == "" {
		auth.CompareDummy(secret, s.bcryptCost)
		return false
	}
	return auth.ComparePassword(identity.PasswordHash, secret) == nil
}

// Capabilities derives the identity's capability set.
func (s *IdentityService) Capabilities(identity *domain.Identity) domain.CapabilitySet {
	return domain.Capabilities(identity)
}

// Register hashes password and persists identity. Used for seeding and by
// administrative tooling.
func (s *IdentityService) Register(ctx context.Context, identity *domain.Identity, password string) error {
	if err := identity.Validate(); err != nil {
		return apperrors.NewValidationError("invalid identity", map[string]any{"role": identity.Role})
	}
	if len(strings.TrimSpace(password)) < 8 {
		return apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	identity.PasswordHash = hash
	if err := s.store.Identities().Create(ctx, identity); err != nil {
		return storeError(err, "identity")
	}
	s.logger.Info("identity registered",
		zap.String("identity_id", identity.ID),
		zap.String("role", string(identity.Role)),
	)
	return nil
}
