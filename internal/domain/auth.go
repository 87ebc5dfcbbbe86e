package domain

import "time"

// Session is the persisted half of a token pair: the refresh credential.
// Sessions that descend from one login share a FamilyID.
type Session struct {
	ID         string
	FamilyID   string
	IdentityID string
	Role       Role
	TokenHash  string
	ExpiresAt  time.Time
	RotatedAt  *time.Time
	ReplacedBy *string
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// Usable reports whether the refresh credential may still be exchanged.
func (s *Session) Usable(now time.Time) bool {
	return s.RevokedAt == nil && s.RotatedAt == nil && now.Before(s.ExpiresAt)
}

// TokenPair is the result of issuing or refreshing a session.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	RefreshExpiresAt time.Time
	FamilyID         string
}
