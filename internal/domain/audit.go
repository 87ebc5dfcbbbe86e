package domain

import "time"

// Audit carries the bookkeeping columns shared by persisted entities.
type Audit struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	Deleted   bool
}

// Stamp is the pre-commit hook run by storage adapters before a row is written.
// CreatedAt is only set on first write.
func (a *Audit) Stamp(now time.Time) {
	now = now.UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
}
