package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MediSynth-io/medisynth-sso/internal/models"
	"github.com/MediSynth-io/medisynth-sso/internal/store"
)

func (db *DB) CreateSession(ctx context.Context, s models.Session) error {
	query := db.rebind(`INSERT INTO sessions (id, user_id, email, created_at, expires_at) VALUES (?, ?, ?, ?, ?)`)
	if _, err := db.conn.ExecContext(ctx, query, s.ID, s.UserID, s.Email, s.CreatedAt.UTC(), s.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (db *DB) GetSession(ctx context.Context, id string) (models.Session, error) {
	query := db.rebind(`SELECT id, user_id, email, created_at, expires_at FROM sessions WHERE id = ?`)

	var s models.Session
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&s.ID, &s.UserID, &s.Email, &s.CreatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Session{}, store.ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.ExpiresAt = s.ExpiresAt.UTC()
	return s, nil
}

// DeleteSession is a no-op for unknown ids.
func (db *DB) DeleteSession(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM sessions WHERE id = ?`), id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (db *DB) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, db.rebind(`DELETE FROM sessions WHERE expires_at <= ?`), before.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
