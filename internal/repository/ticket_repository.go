package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const ticketTable = "tickets"

var ticketColumns = []string{
	"id", "number", "subject", "description", "priority", "status",
	"department_id", "customer_id", "assignee_id",
	"first_response_at", "resolved_at", "closed_at",
	"first_response_time_hours", "resolution_time_hours", "sla_hours",
	"version", "deleted", "created_at", "updated_at",
}

type ticketRepository struct {
	db    DBTX
	clock func() time.Time
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db, clock: time.Now}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	var seq int64
	if err := r.db.QueryRow(ctx, `SELECT nextval('ticket_number_seq')`).Scan(&seq); err != nil {
		return mapError(err)
	}
	ticket.Number = FormatTicketNumber(seq)
	ticket.Version = 1
	ticket.Stamp(r.clock())

	q := psql.Insert(ticketTable).
		Columns(ticketColumns...).
		Values(ticket.ID, ticket.Number, ticket.Subject, ticket.Description, ticket.Priority, ticket.Status,
			ticket.DepartmentID, ticket.CustomerID, ticket.AssigneeID,
			ticket.FirstResponseAt, ticket.ResolvedAt, ticket.ClosedAt,
			ticket.FirstResponseTimeHours, ticket.ResolutionTimeHours, ticket.SLAHours,
			ticket.Version, ticket.Deleted, ticket.CreatedAt, ticket.UpdatedAt)
	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}

// Update never touches number or customer_id; both are immutable.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	previous := ticket.UpdatedAt
	ticket.Stamp(r.clock())
	q := psql.Update(ticketTable).SetMap(map[string]any{
		"subject":                   ticket.Subject,
		"description":               ticket.Description,
		"priority":                  ticket.Priority,
		"status":                    ticket.Status,
		"department_id":             ticket.DepartmentID,
		"assignee_id":               ticket.AssigneeID,
		"first_response_at":         ticket.FirstResponseAt,
		"resolved_at":               ticket.ResolvedAt,
		"closed_at":                 ticket.ClosedAt,
		"first_response_time_hours": ticket.FirstResponseTimeHours,
		"resolution_time_hours":     ticket.ResolutionTimeHours,
		"sla_hours":                 ticket.SLAHours,
		"version":                   sq.Expr("version + 1"),
		"updated_at":                ticket.UpdatedAt,
	}).Where(sq.Eq{"id": ticket.ID, "version": ticket.Version, "deleted": false})

	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		ticket.UpdatedAt = previous
		return mapError(err)
	}
	if cmd.RowsAffected() == 0 {
		ticket.UpdatedAt = previous
		return ErrVersionConflict
	}
	ticket.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string, opts ...ReadOption) (*domain.Ticket, error) {
	row, err := queryRowBuilder(ctx, r.db, selectLive(ticketTable, ticketColumns, opts...).
		Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	return scanTicket(row)
}

func (r *ticketRepository) SoftDelete(ctx context.Context, id string) error {
	q := psql.Update(ticketTable).
		Set("deleted", true).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", r.clock().UTC()).
		Where(sq.Eq{"id": id, "deleted": false})
	return execExpectOne(ctx, r.db, q)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	return execExpectOne(ctx, r.db, psql.Delete(ticketTable).Where(sq.Eq{"id": id}))
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := row.Scan(
		&ticket.ID,
		&ticket.Number,
		&ticket.Subject,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.DepartmentID,
		&ticket.CustomerID,
		&ticket.AssigneeID,
		&ticket.FirstResponseAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
		&ticket.FirstResponseTimeHours,
		&ticket.ResolutionTimeHours,
		&ticket.SLAHours,
		&ticket.Version,
		&ticket.Deleted,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &ticket, nil
}
