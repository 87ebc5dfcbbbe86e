package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type postgresStore struct {
	pool  *pgxpool.Pool
	db    DBTX
	clock func() time.Time
}

// NewPostgresStore returns a Store backed by the pool.
func NewPostgresStore(pool *pgxpool.Pool, clock func() time.Time) Store {
	if clock == nil {
		clock = time.Now
	}
	return &postgresStore{pool: pool, db: pool, clock: clock}
}

func (s *postgresStore) Identities() IdentityRepository {
	return &identityRepository{db: s.db, clock: s.clock}
}

func (s *postgresStore) Sessions() SessionRepository {
	return &sessionRepository{db: s.db}
}

func (s *postgresStore) Departments() DepartmentRepository {
	return &departmentRepository{db: s.db, clock: s.clock}
}

func (s *postgresStore) Tickets() TicketRepository {
	return &ticketRepository{db: s.db, clock: s.clock}
}

func (s *postgresStore) Messages() TicketMessageRepository {
	return &ticketMessageRepository{db: s.db, clock: s.clock}
}

func (s *postgresStore) History() TicketHistoryRepository {
	return &ticketHistoryRepository{db: s.db, clock: s.clock}
}

func (s *postgresStore) InTx(ctx context.Context, fn func(Store) error) error {
	if _, nested := s.db.(pgx.Tx); nested {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&postgresStore{pool: s.pool, db: tx, clock: s.clock})
	})
}

func (s *postgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", ErrReferenced, pgErr.ConstraintName)
		}
	}
	return err
}

func queryRowBuilder(ctx context.Context, db DBTX, b sq.Sqlizer) (pgx.Row, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return db.QueryRow(ctx, q, args...), nil
}

func queryBuilder(ctx context.Context, db DBTX, b sq.Sqlizer) (pgx.Rows, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	return db.Query(ctx, q, args...)
}
