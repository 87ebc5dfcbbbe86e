package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const messageTable = "ticket_messages"

var messageColumns = []string{
	"id", "ticket_id", "author_id", "author_role", "content", "message_type",
	"is_internal", "edited", "edited_at", "deleted", "created_at", "updated_at",
}

type ticketMessageRepository struct {
	db    DBTX
	clock func() time.Time
}

// NewTicketMessageRepository builds repository.
func NewTicketMessageRepository(db DBTX) TicketMessageRepository {
	return &ticketMessageRepository{db: db, clock: time.Now}
}

func (r *ticketMessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.Stamp(r.clock())
	q := psql.Insert(messageTable).
		Columns(messageColumns...).
		Values(msg.ID, msg.TicketID, msg.AuthorID, msg.AuthorRole, msg.Content, msg.Type,
			msg.IsInternal, msg.Edited, msg.EditedAt, msg.Deleted, msg.CreatedAt, msg.UpdatedAt)
	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string, opts ...ReadOption) ([]domain.Message, error) {
	rows, err := queryBuilder(ctx, r.db, selectLive(messageTable, messageColumns, opts...).
		Where(sq.Eq{"ticket_id": ticketID}).OrderBy("created_at ASC", "id ASC"))
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.AuthorID,
			&msg.AuthorRole,
			&msg.Content,
			&msg.Type,
			&msg.IsInternal,
			&msg.Edited,
			&msg.EditedAt,
			&msg.Deleted,
			&msg.CreatedAt,
			&msg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}
