package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
)

// SLAPolicy resolves departments and their overdue thresholds. Departments are
// cached for a short TTL; writes through DepartmentService invalidate them.
type SLAPolicy struct {
	departments repository.DepartmentRepository
	fallback    map[domain.TicketPriority]int
	cache       *expirable.LRU[string, *domain.Department]
	readRetries int
}

// NewSLAPolicy builds a policy. size <= 0 disables caching.
func NewSLAPolicy(departments repository.DepartmentRepository, fallback map[domain.TicketPriority]int, size int, ttl time.Duration, readRetries int) *SLAPolicy {
	p := &SLAPolicy{
		departments: departments,
		fallback:    fallback,
		readRetries: readRetries,
	}
	if size > 0 {
		p.cache = expirable.NewLRU[string, *domain.Department](size, nil, ttl)
	}
	return p
}

// Department returns the live department with id.
func (p *SLAPolicy) Department(ctx context.Context, id string) (*domain.Department, error) {
	if p.cache != nil {
		if dept, ok := p.cache.Get(id); ok {
			return dept, nil
		}
	}
	dept, err := readWithRetry(ctx, p.readRetries, func(ctx context.Context) (*domain.Department, error) {
		return p.departments.GetByID(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if p.cache != nil {
		p.cache.Add(id, dept)
	}
	return dept, nil
}

// Threshold returns the overdue threshold in hours for priority in dept.
func (p *SLAPolicy) Threshold(dept *domain.Department, priority domain.TicketPriority) int {
	return domain.SLAThreshold(dept, priority, p.fallback)
}

// Invalidate drops a cached department.
func (p *SLAPolicy) Invalidate(id string) {
	if p.cache != nil {
		p.cache.Remove(id)
	}
}
