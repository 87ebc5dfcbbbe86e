package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

// DepartmentService manages departments and their SLA policies.
type DepartmentService struct {
	store  repository.Store
	policy *SLAPolicy
	logger *zap.Logger
}

// DepartmentInput describes a department create or update.
type DepartmentInput struct {
	Name        string
	Description string
	IsActive    bool
	SLAHours    map[domain.TicketPriority]int
}

// NewDepartmentService builds the service.
func NewDepartmentService(store repository.Store, policy *SLAPolicy, logger *zap.Logger) *DepartmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DepartmentService{store: store, policy: policy, logger: logger}
}

func (s *DepartmentService) authorize(actor *auth.Actor) error {
	return decisionError(auth.Can(actor, auth.ActionManageDepartments, nil))
}

func validateDepartment(input DepartmentInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("department name is required", nil)
	}
	for priority, hours := range input.SLAHours {
		if !priority.Valid() || hours <= 0 {
			return apperrors.NewValidationError("invalid SLA hours", map[string]any{"priority": priority, "hours": hours})
		}
	}
	return nil
}

// Create adds a department.
func (s *DepartmentService) Create(ctx context.Context, actor *auth.Actor, input DepartmentInput) (*domain.Department, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if err := validateDepartment(input); err != nil {
		return nil, err
	}
	dept := &domain.Department{
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		IsActive:    input.IsActive,
		SLAHours:    input.SLAHours,
	}
	if err := s.store.Departments().Create(ctx, dept); err != nil {
		return nil, storeError(err, "department")
	}
	s.logger.Info("department created", zap.String("department_id", dept.ID))
	return dept, nil
}

// Update replaces a department's name, activity and SLA policy.
func (s *DepartmentService) Update(ctx context.Context, actor *auth.Actor, id string, input DepartmentInput) (*domain.Department, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if err := validateDepartment(input); err != nil {
		return nil, err
	}
	dept := &domain.Department{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		IsActive:    input.IsActive,
		SLAHours:    input.SLAHours,
	}
	if err := s.store.Departments().Update(ctx, dept); err != nil {
		return nil, storeError(err, "department")
	}
	s.policy.Invalidate(id)
	return dept, nil
}

// Delete soft-deletes a department. A department that still owns live
// tickets cannot be removed.
func (s *DepartmentService) Delete(ctx context.Context, actor *auth.Actor, id string) error {
	if err := s.authorize(actor); err != nil {
		return err
	}
	err := s.store.Departments().SoftDelete(ctx, id)
	if errors.Is(err, repository.ErrReferenced) {
		return apperrors.NewConflict("department still has live tickets", map[string]any{"department_id": id})
	}
	if err != nil {
		return storeError(err, "department")
	}
	s.policy.Invalidate(id)
	s.logger.Info("department deleted", zap.String("department_id", id))
	return nil
}

// ListActive returns active departments. Any authenticated caller may list.
func (s *DepartmentService) ListActive(ctx context.Context, actor *auth.Actor) ([]domain.Department, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	depts, err := s.store.Departments().ListActive(ctx)
	if err != nil {
		return nil, storeError(err, "department")
	}
	return depts, nil
}
