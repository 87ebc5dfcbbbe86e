package repository

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// ReadOption adjusts a read query.
type ReadOption func(*readOptions)

type readOptions struct {
	includeDeleted bool
}

// IncludeDeleted makes a read return soft-deleted rows. It is the only way to
// see them; callers should be few and deliberate.
func IncludeDeleted() ReadOption {
	return func(o *readOptions) { o.includeDeleted = true }
}

func collect(opts []ReadOption) readOptions {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// selectLive starts every SELECT against a soft-deletable table. Rows flagged
// deleted are filtered unless IncludeDeleted was passed.
func selectLive(table string, columns []string, opts ...ReadOption) sq.SelectBuilder {
	b := psql.Select(columns...).From(table)
	if !collect(opts).includeDeleted {
		b = b.Where(sq.Eq{table + ".deleted": false})
	}
	return b
}

// Visible applies the same rule to an in-memory record.
func Visible(audit domain.Audit, opts ...ReadOption) bool {
	return !audit.Deleted || collect(opts).includeDeleted
}
