package models

import (
	"time"
)

// User represents a user account in the database
type User struct {
	ID           int64     `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"` // Never sent to clients
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// TokenRecord is the durable record of an issued SSO token. Only the JTI is
// shared with the signed token; the token string itself is never stored.
type TokenRecord struct {
	ID        int64      `json:"id" db:"id"`
	JTI       string     `json:"jti" db:"jti"`
	UserID    int64      `json:"user_id" db:"user_id"`
	IssuedAt  time.Time  `json:"issued_at" db:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	Revoked   bool       `json:"revoked" db:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// ExpiredAt reports whether the record's expiry has passed at the given instant.
func (t TokenRecord) ExpiredAt(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Session binds a browser to a signed-in user on the server side.
type Session struct {
	ID        string    `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Email     string    `json:"email" db:"email"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// Expired reports whether the session is no longer usable at the given instant.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
