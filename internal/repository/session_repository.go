package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/domain"
)

const sessionTable = "sessions"

var sessionColumns = []string{
	"id", "family_id", "identity_id", "role", "token_hash", "expires_at",
	"rotated_at", "replaced_by", "revoked_at", "created_at",
}

type sessionRepository struct {
	db DBTX
}

// NewSessionRepository builds repository.
func NewSessionRepository(db DBTX) SessionRepository {
	return &sessionRepository{db: db}
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	if err := row.Scan(
		&s.ID,
		&s.FamilyID,
		&s.IdentityID,
		&s.Role,
		&s.TokenHash,
		&s.ExpiresAt,
		&s.RotatedAt,
		&s.ReplacedBy,
		&s.RevokedAt,
		&s.CreatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &s, nil
}

func insertSession(ctx context.Context, db DBTX, s *domain.Session) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	q := psql.Insert(sessionTable).
		Columns("id", "family_id", "identity_id", "role", "token_hash", "expires_at", "created_at").
		Values(s.ID, s.FamilyID, s.IdentityID, s.Role, s.TokenHash, s.ExpiresAt.UTC(), s.CreatedAt.UTC())
	sql, args, err := q.ToSql()
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, sql, args...)
	return mapError(err)
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	return insertSession(ctx, r.db, session)
}

func (r *sessionRepository) GetByTokenHash(ctx context.Context, hash string) (*domain.Session, error) {
	row, err := queryRowBuilder(ctx, r.db, psql.Select(sessionColumns...).From(sessionTable).
		Where(sq.Eq{"token_hash": hash}))
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepository) Rotate(ctx context.Context, oldHash string, next *domain.Session, now time.Time) (*domain.Session, error) {
	var (
		previous *domain.Session
		outcome  error
	)
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		row, err := queryRowBuilder(ctx, tx, psql.Select(sessionColumns...).From(sessionTable).
			Where(sq.Eq{"token_hash": oldHash}).Suffix("FOR UPDATE"))
		if err != nil {
			return err
		}
		previous, err = scanSession(row)
		if err != nil {
			return err
		}
		switch {
		case previous.RotatedAt != nil:
			outcome = ErrSessionReused
			return nil
		case !previous.Usable(now):
			outcome = ErrSessionExpired
			return nil
		}

		next.FamilyID = previous.FamilyID
		if next.ID == "" {
			next.ID = uuid.NewString()
		}
		rotatedAt := now.UTC()
		if err := execExpectOne(ctx, tx, psql.Update(sessionTable).
			Set("rotated_at", rotatedAt).
			Set("replaced_by", next.ID).
			Where(sq.Eq{"id": previous.ID, "rotated_at": nil})); err != nil {
			return err
		}
		previous.RotatedAt = &rotatedAt
		previous.ReplacedBy = &next.ID
		return insertSession(ctx, tx, next)
	})
	if err != nil {
		return nil, err
	}
	return previous, outcome
}

func (r *sessionRepository) RevokeFamily(ctx context.Context, familyID string, at time.Time) (int64, error) {
	q := psql.Update(sessionTable).
		Set("revoked_at", at.UTC()).
		Where(sq.Eq{"family_id": familyID, "revoked_at": nil})
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, err
	}
	cmd, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return cmd.RowsAffected(), nil
}

func (r *sessionRepository) IsFamilyRevoked(ctx context.Context, familyID string) (bool, error) {
	const query = `
        SELECT EXISTS (SELECT 1 FROM sessions WHERE family_id=$1 AND revoked_at IS NOT NULL)`
	var revoked bool
	if err := r.db.QueryRow(ctx, query, familyID).Scan(&revoked); err != nil {
		return false, mapError(err)
	}
	return revoked, nil
}

func (r *sessionRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	cmd, err := r.db.Exec(ctx, query, before.UTC())
	if err != nil {
		return 0, mapError(err)
	}
	return cmd.RowsAffected(), nil
}
