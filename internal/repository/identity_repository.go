package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const identityTable = "identities"

var identityColumns = []string{
	"identities.id", "identities.role", "identities.email", "identities.password_hash",
	"identities.display_name", "identities.active", "identities.last_login_at",
	"identities.customer_department", "identities.agent_department_id", "identities.specialization",
	"identities.seniority_level", "identities.available", "identities.can_create_on_behalf",
	"identities.manage_users", "identities.manage_system", "identities.view_reports",
	"identities.manage_departments", "identities.deleted", "identities.created_at", "identities.updated_at",
	"ARRAY(SELECT t.id::text FROM tickets t WHERE t.assignee_id = identities.id AND t.deleted = FALSE ORDER BY t.created_at)",
}

type identityRepository struct {
	db    DBTX
	clock func() time.Time
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(db DBTX) IdentityRepository {
	return &identityRepository{db: db, clock: time.Now}
}

// identityRow is the single-table layout shared by all variants.
type identityRow struct {
	customerDepartment *string
	agentDepartmentID  *string
	specialization     *string
	seniorityLevel     *int
	available          *bool
	canCreateOnBehalf  *bool
	manageUsers        *bool
	manageSystem       *bool
	viewReports        *bool
	manageDepartments  *bool
}

func flattenIdentity(identity *domain.Identity) identityRow {
	var row identityRow
	switch identity.Role {
	case domain.RoleCustomer:
		row.customerDepartment = &identity.Customer.Department
	case domain.RoleAgent:
		a := identity.Agent
		dept := a.DepartmentID
		row.agentDepartmentID = &dept
		row.specialization = &a.Specialization
		row.seniorityLevel = &a.SeniorityLevel
		row.available = &a.Available
		row.canCreateOnBehalf = &a.CanCreateOnBehalf
	case domain.RoleAdmin:
		a := identity.Admin
		row.manageUsers = &a.ManageUsers
		row.manageSystem = &a.ManageSystem
		row.viewReports = &a.ViewReports
		row.manageDepartments = &a.ManageDepartments
	}
	return row
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		base     domain.IdentityBase
		role     domain.Role
		flat     identityRow
		assigned []string
	)
	if err := row.Scan(
		&base.ID,
		&role,
		&base.Email,
		&base.PasswordHash,
		&base.DisplayName,
		&base.Active,
		&base.LastLoginAt,
		&flat.customerDepartment,
		&flat.agentDepartmentID,
		&flat.specialization,
		&flat.seniorityLevel,
		&flat.available,
		&flat.canCreateOnBehalf,
		&flat.manageUsers,
		&flat.manageSystem,
		&flat.viewReports,
		&flat.manageDepartments,
		&base.Deleted,
		&base.CreatedAt,
		&base.UpdatedAt,
		&assigned,
	); err != nil {
		return nil, mapError(err)
	}

	switch role {
	case domain.RoleCustomer:
		return domain.NewCustomer(base, domain.CustomerProfile{Department: deref(flat.customerDepartment)}), nil
	case domain.RoleAgent:
		return domain.NewAgent(base, domain.AgentProfile{
			DepartmentID:      deref(flat.agentDepartmentID),
			Specialization:    deref(flat.specialization),
			SeniorityLevel:    deref(flat.seniorityLevel),
			Available:         deref(flat.available),
			CanCreateOnBehalf: deref(flat.canCreateOnBehalf),
			AssignedTicketIDs: assigned,
		}), nil
	case domain.RoleAdmin:
		return domain.NewAdmin(base, domain.AdminProfile{
			ManageUsers:       deref(flat.manageUsers),
			ManageSystem:      deref(flat.manageSystem),
			ViewReports:       deref(flat.viewReports),
			ManageDepartments: deref(flat.manageDepartments),
		}), nil
	}
	return nil, domain.ErrInvalidIdentity
}

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	if identity.ID == "" {
		identity.ID = uuid.NewString()
	}
	identity.Email = domain.NormalizeEmail(identity.Email)
	identity.Stamp(r.clock())
	flat := flattenIdentity(identity)

	q := psql.Insert(identityTable).
		Columns("id", "role", "email", "password_hash", "display_name", "active", "last_login_at",
			"customer_department", "agent_department_id", "specialization", "seniority_level", "available",
			"can_create_on_behalf", "manage_users", "manage_system", "view_reports", "manage_departments",
			"deleted", "created_at", "updated_at").
		Values(identity.ID, identity.Role, identity.Email, identity.PasswordHash, identity.DisplayName,
			identity.Active, identity.LastLoginAt, flat.customerDepartment, flat.agentDepartmentID,
			flat.specialization, flat.seniorityLevel, flat.available, flat.canCreateOnBehalf,
			flat.manageUsers, flat.manageSystem, flat.viewReports, flat.manageDepartments,
			identity.Deleted, identity.CreatedAt, identity.UpdatedAt)
	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}

func (r *identityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}
	identity.Email = domain.NormalizeEmail(identity.Email)
	identity.Stamp(r.clock())
	flat := flattenIdentity(identity)

	q := psql.Update(identityTable).SetMap(map[string]any{
		"email":                identity.Email,
		"password_hash":        identity.PasswordHash,
		"display_name":         identity.DisplayName,
		"active":               identity.Active,
		"customer_department":  flat.customerDepartment,
		"agent_department_id":  flat.agentDepartmentID,
		"specialization":       flat.specialization,
		"seniority_level":      flat.seniorityLevel,
		"available":            flat.available,
		"can_create_on_behalf": flat.canCreateOnBehalf,
		"manage_users":         flat.manageUsers,
		"manage_system":        flat.manageSystem,
		"view_reports":         flat.viewReports,
		"manage_departments":   flat.manageDepartments,
		"updated_at":           identity.UpdatedAt,
	}).Where(sq.Eq{"id": identity.ID, "role": identity.Role, "deleted": false})
	return execExpectOne(ctx, r.db, q)
}

func (r *identityRepository) GetByID(ctx context.Context, id string, opts ...ReadOption) (*domain.Identity, error) {
	row, err := queryRowBuilder(ctx, r.db, selectLive(identityTable, identityColumns, opts...).
		Where(sq.Eq{"identities.id": id}))
	if err != nil {
		return nil, err
	}
	return scanIdentity(row)
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string, opts ...ReadOption) (*domain.Identity, error) {
	row, err := queryRowBuilder(ctx, r.db, selectLive(identityTable, identityColumns, opts...).
		Where(sq.Expr("lower(identities.email) = ?", domain.NormalizeEmail(email))))
	if err != nil {
		return nil, err
	}
	return scanIdentity(row)
}

func (r *identityRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	q := psql.Update(identityTable).
		Set("last_login_at", at.UTC()).
		Where(sq.Eq{"id": id, "deleted": false})
	return execExpectOne(ctx, r.db, q)
}

func (r *identityRepository) SoftDelete(ctx context.Context, id string) error {
	q := psql.Update(identityTable).
		Set("deleted", true).
		Set("updated_at", r.clock().UTC()).
		Where(sq.Eq{"id": id, "deleted": false})
	return execExpectOne(ctx, r.db, q)
}

func (r *identityRepository) Delete(ctx context.Context, id string) error {
	return execExpectOne(ctx, r.db, psql.Delete(identityTable).Where(sq.Eq{"id": id}))
}

func execExpectOne(ctx context.Context, db DBTX, b sq.Sqlizer) error {
	sql, args, err := b.ToSql()
	if err != nil {
		return err
	}
	cmd, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
