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

const userColumns = `id, email, password_hash, is_active, created_at, updated_at`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return models.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (db *DB) GetUser(ctx context.Context, id int64) (models.User, error) {
	query := db.rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	u, err := scanUser(db.conn.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, store.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	query := db.rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	u, err := scanUser(db.conn.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, store.ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (db *DB) CreateUser(ctx context.Context, email, passwordHash string, active bool) (models.User, error) {
	now := time.Now().UTC()
	u := models.User{
		Email:        email,
		PasswordHash: passwordHash,
		IsActive:     active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := db.rebind(`INSERT INTO users (email, password_hash, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?) RETURNING id`)
	err := db.conn.QueryRowContext(ctx, query, u.Email, u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt).Scan(&u.ID)
	if isUniqueViolation(err) {
		return models.User{}, store.ErrDuplicateEmail
	}
	if err != nil {
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (db *DB) SetUserActive(ctx context.Context, id int64, active bool) error {
	query := db.rebind(`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`)
	res, err := db.conn.ExecContext(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set user %d active: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set user %d active: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
