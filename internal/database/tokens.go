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

const tokenColumns = `id, jti, user_id, issued_at, expires_at, revoked, revoked_at`

func scanToken(row rowScanner) (models.TokenRecord, error) {
	var (
		rec       models.TokenRecord
		revokedAt sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.JTI, &rec.UserID, &rec.IssuedAt, &rec.ExpiresAt, &rec.Revoked, &revokedAt); err != nil {
		return models.TokenRecord{}, err
	}
	rec.IssuedAt = rec.IssuedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	if revokedAt.Valid {
		t := revokedAt.Time.UTC()
		rec.RevokedAt = &t
	}
	return rec, nil
}

func (db *DB) CreateToken(ctx context.Context, rec models.TokenRecord) (models.TokenRecord, error) {
	rec.IssuedAt = rec.IssuedAt.UTC()
	rec.ExpiresAt = rec.ExpiresAt.UTC()
	rec.Revoked = false
	rec.RevokedAt = nil

	query := db.rebind(`INSERT INTO tokens (jti, user_id, issued_at, expires_at, revoked)
		VALUES (?, ?, ?, ?, FALSE) RETURNING id`)
	err := db.conn.QueryRowContext(ctx, query, rec.JTI, rec.UserID, rec.IssuedAt, rec.ExpiresAt).Scan(&rec.ID)
	if isUniqueViolation(err) {
		return models.TokenRecord{}, store.ErrDuplicateJTI
	}
	if err != nil {
		return models.TokenRecord{}, fmt.Errorf("create token record: %w", err)
	}
	return rec, nil
}

func (db *DB) FindTokenByJTI(ctx context.Context, jti string) (models.TokenRecord, error) {
	query := db.rebind(`SELECT ` + tokenColumns + ` FROM tokens WHERE jti = ?`)
	rec, err := scanToken(db.conn.QueryRowContext(ctx, query, jti))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TokenRecord{}, store.ErrNotFound
	}
	if err != nil {
		return models.TokenRecord{}, fmt.Errorf("find token %s: %w", jti, err)
	}
	return rec, nil
}

// RevokeToken flips the revoked flag in a single statement. revoked_at keeps
// the first revocation time when the record is revoked again.
func (db *DB) RevokeToken(ctx context.Context, jti string, at time.Time) error {
	query := db.rebind(`UPDATE tokens SET revoked = TRUE, revoked_at = COALESCE(revoked_at, ?) WHERE jti = ?`)
	res, err := db.conn.ExecContext(ctx, query, at.UTC(), jti)
	if err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke token %s: %w", jti, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (db *DB) ListTokens(ctx context.Context, userID int64) ([]models.TokenRecord, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens`
	var args []any
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, db.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	defer rows.Close()

	var out []models.TokenRecord
	for rows.Next() {
		rec, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("list tokens: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return out, nil
}
