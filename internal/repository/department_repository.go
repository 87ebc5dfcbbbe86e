package repository

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const departmentTable = "departments"

var departmentColumns = []string{
	"id", "name", "description", "is_active",
	"sla_low_hours", "sla_normal_hours", "sla_high_hours", "sla_urgent_hours",
	"deleted", "created_at", "updated_at",
}

type departmentRepository struct {
	db    DBTX
	clock func() time.Time
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(db DBTX) DepartmentRepository {
	return &departmentRepository{db: db, clock: time.Now}
}

func slaColumn(dept *domain.Department, p domain.TicketPriority) *int {
	if hours, ok := dept.SLAHours[p]; ok {
		return &hours
	}
	return nil
}

func scanDepartment(row pgx.Row) (*domain.Department, error) {
	var (
		dept                      domain.Department
		low, normal, high, urgent *int
	)
	if err := row.Scan(
		&dept.ID,
		&dept.Name,
		&dept.Description,
		&dept.IsActive,
		&low,
		&normal,
		&high,
		&urgent,
		&dept.Deleted,
		&dept.CreatedAt,
		&dept.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	dept.SLAHours = map[domain.TicketPriority]int{}
	for p, v := range map[domain.TicketPriority]*int{
		domain.TicketPriorityLow:    low,
		domain.TicketPriorityNormal: normal,
		domain.TicketPriorityHigh:   high,
		domain.TicketPriorityUrgent: urgent,
	} {
		if v != nil {
			dept.SLAHours[p] = *v
		}
	}
	return &dept, nil
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	if dept.ID == "" {
		dept.ID = uuid.NewString()
	}
	dept.Stamp(r.clock())
	q := psql.Insert(departmentTable).
		Columns(departmentColumns...).
		Values(dept.ID, dept.Name, dept.Description, dept.IsActive,
			slaColumn(dept, domain.TicketPriorityLow), slaColumn(dept, domain.TicketPriorityNormal),
			slaColumn(dept, domain.TicketPriorityHigh), slaColumn(dept, domain.TicketPriorityUrgent),
			dept.Deleted, dept.CreatedAt, dept.UpdatedAt)
	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}

func (r *departmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	dept.Stamp(r.clock())
	q := psql.Update(departmentTable).SetMap(map[string]any{
		"name":             dept.Name,
		"description":      dept.Description,
		"is_active":        dept.IsActive,
		"sla_low_hours":    slaColumn(dept, domain.TicketPriorityLow),
		"sla_normal_hours": slaColumn(dept, domain.TicketPriorityNormal),
		"sla_high_hours":   slaColumn(dept, domain.TicketPriorityHigh),
		"sla_urgent_hours": slaColumn(dept, domain.TicketPriorityUrgent),
		"updated_at":       dept.UpdatedAt,
	}).Where(sq.Eq{"id": dept.ID, "deleted": false})
	return execExpectOne(ctx, r.db, q)
}

func (r *departmentRepository) GetByID(ctx context.Context, id string, opts ...ReadOption) (*domain.Department, error) {
	row, err := queryRowBuilder(ctx, r.db, selectLive(departmentTable, departmentColumns, opts...).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return scanDepartment(row)
}

func (r *departmentRepository) ListActive(ctx context.Context) ([]domain.Department, error) {
	rows, err := queryBuilder(ctx, r.db, selectLive(departmentTable, departmentColumns).
		Where(sq.Eq{"is_active": true}).OrderBy("name"))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *dept)
	}
	return result, rows.Err()
}

// SoftDelete refuses departments that still own live tickets.
func (r *departmentRepository) SoftDelete(ctx context.Context, id string) error {
	liveTickets := sq.Select("1").From(ticketTable).Where(sq.Eq{"department_id": id, "deleted": false})
	q := psql.Update(departmentTable).
		Set("deleted", true).
		Set("updated_at", r.clock().UTC()).
		Where(sq.Eq{"id": id, "deleted": false}).
		Where(sq.Expr("NOT EXISTS (?)", liveTickets))
	err := execExpectOne(ctx, r.db, q)
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	row, err := queryRowBuilder(ctx, r.db, psql.Select().Column(sq.Expr("EXISTS (?)", liveTickets)))
	if err != nil {
		return err
	}
	var referenced bool
	if err := row.Scan(&referenced); err != nil {
		return mapError(err)
	}
	if referenced {
		return ErrReferenced
	}
	return ErrNotFound
}

func (r *departmentRepository) Delete(ctx context.Context, id string) error {
	return execExpectOne(ctx, r.db, psql.Delete(departmentTable).Where(sq.Eq{"id": id}))
}
