// Package store defines the persistence capability shared by every storage
// engine: users, issued token records and server-side sessions.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/MediSynth-io/medisynth-sso/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateJTI   = errors.New("token identifier already exists")
	ErrDuplicateEmail = errors.New("email already taken")
)

// Users is the account side of the store.
type Users interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	CreateUser(ctx context.Context, email, passwordHash string, active bool) (models.User, error)
	SetUserActive(ctx context.Context, id int64, active bool) error
}

// Tokens holds one record per issued SSO token.
//
// Records are append-only apart from the revoked flag, which only ever moves
// from false to true. RevokeToken on an already revoked record succeeds and
// keeps the original revoked_at.
type Tokens interface {
	CreateToken(ctx context.Context, rec models.TokenRecord) (models.TokenRecord, error)
	FindTokenByJTI(ctx context.Context, jti string) (models.TokenRecord, error)
	RevokeToken(ctx context.Context, jti string, at time.Time) error
	// ListTokens returns the records of one user, or of all users when userID is 0.
	ListTokens(ctx context.Context, userID int64) ([]models.TokenRecord, error)
}

// Sessions stores the server-side half of the browser session binding.
type Sessions interface {
	CreateSession(ctx context.Context, s models.Session) error
	GetSession(ctx context.Context, id string) (models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// Store is the full capability implemented by each engine.
type Store interface {
	Users
	Tokens
	Sessions
	Close() error
}
