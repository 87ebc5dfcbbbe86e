package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

type departmentRepo struct{ s *Store }

func (r departmentRepo) Create(ctx context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	if _, exists := r.s.departments[dept.ID]; exists {
		return repository.ErrDuplicate
	}
	dept.Stamp(r.s.now())
	r.s.departments[dept.ID] = cloneDepartment(dept)
	return nil
}

func (r departmentRepo) Update(ctx context.Context, dept *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.departments[dept.ID]
	if !ok || current.Deleted {
		return repository.ErrNotFound
	}
	dept.CreatedAt = current.CreatedAt
	dept.Deleted = false
	dept.Stamp(r.s.now())
	r.s.departments[dept.ID] = cloneDepartment(dept)
	return nil
}

func (r departmentRepo) GetByID(ctx context.Context, id string, opts ...repository.ReadOption) (*domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	dept, ok := r.s.departments[id]
	if !ok || !repository.Visible(dept.Audit, opts...) {
		return nil, repository.ErrNotFound
	}
	return cloneDepartment(dept), nil
}

func (r departmentRepo) ListActive(ctx context.Context) ([]domain.Department, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.Department
	for _, dept := range r.s.departments {
		if repository.Visible(dept.Audit) && dept.IsActive {
			out = append(out, *cloneDepartment(dept))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r departmentRepo) SoftDelete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	dept, ok := r.s.departments[id]
	if !ok || dept.Deleted {
		return repository.ErrNotFound
	}
	for _, t := range r.s.tickets {
		if t.DepartmentID == id && !t.Deleted {
			return repository.ErrReferenced
		}
	}
	dept.Deleted = true
	dept.Stamp(r.s.now())
	return nil
}

func (r departmentRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.departments[id]; !ok {
		return repository.ErrNotFound
	}
	for _, t := range r.s.tickets {
		if t.DepartmentID == id {
			return repository.ErrReferenced
		}
	}
	for _, identity := range r.s.identities {
		if identity.DepartmentID() == id {
			return repository.ErrReferenced
		}
	}
	delete(r.s.departments, id)
	return nil
}
