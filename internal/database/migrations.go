package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

func (db *DB) migrationDir() (goose.Dialect, string) {
	if db.dbType == TypePostgres {
		return goose.DialectPostgres, "migrations/postgres"
	}
	return goose.DialectSQLite3, "migrations/sqlite"
}

// provider scopes dialect and migration source to this connection; goose's
// package-level setters would be shared by every open DB.
func (db *DB) provider() (*goose.Provider, error) {
	dialect, dir := db.migrationDir()
	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, err
	}
	p, err := goose.NewProvider(dialect, db.conn, sub)
	if err != nil {
		return nil, fmt.Errorf("goose provider %s: %w", dialect, err)
	}
	return p, nil
}

// Migrate applies every pending embedded migration for the active dialect.
func (db *DB) Migrate(ctx context.Context) error {
	p, err := db.provider()
	if err != nil {
		return err
	}
	if _, err := p.Up(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// SchemaVersion returns the latest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	p, err := db.provider()
	if err != nil {
		return 0, err
	}
	return p.GetDBVersion(ctx)
}
