// Package database is the SQL engine behind store.Store. It speaks to
// SQLite (default) or PostgreSQL with the same queries, rebinding
// placeholders for the latter.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/MediSynth-io/medisynth-sso/internal/config"
	"github.com/MediSynth-io/medisynth-sso/internal/logging"
	"github.com/MediSynth-io/medisynth-sso/internal/store"
)

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// Options selects and tunes the SQL backend.
type Options struct {
	Type            string
	Path            string // sqlite file
	URL             string // postgres DSN
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OptionsFromConfig maps the database section of the configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Type:            cfg.Database.Type,
		Path:            cfg.Database.Path,
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime(),
	}
}

// DB implements store.Store on top of database/sql.
type DB struct {
	conn   *sql.DB
	dbType string
	log    logging.Logger
}

var _ store.Store = (*DB)(nil)

// Open connects to the configured backend, verifies the connection and
// applies pending migrations.
func Open(ctx context.Context, opts Options, log logging.Logger) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch opts.Type {
	case TypePostgres:
		conn, err = initPostgreSQL(opts)
	case TypeSQLite, "":
		opts.Type = TypeSQLite
		conn, err = initSQLite(opts)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", opts.Type)
	}
	if err != nil {
		return nil, err
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dbType: opts.Type, log: log}
	if err := db.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	log.Info(ctx, "database ready", "type", opts.Type)
	return db, nil
}

func initPostgreSQL(opts Options) (*sql.DB, error) {
	if opts.URL == "" {
		return nil, errors.New("postgres requires a connection URL")
	}

	db, err := sql.Open("postgres", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open PostgreSQL connection: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}
	return db, nil
}

func initSQLite(opts Options) (*sql.DB, error) {
	if opts.Path == "" {
		return nil, errors.New("sqlite requires a database path")
	}

	dataDir := filepath.Dir(opts.Path)
	if err := createDataDir(dataDir); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := checkWritePermissions(dataDir); err != nil {
		return nil, fmt.Errorf("insufficient permissions for data directory %s: %w", dataDir, err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000", opts.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// One writer at a time; WAL still lets readers proceed.
	db.SetMaxOpenConns(1)
	return db, nil
}

func createDataDir(dir string) error {
	if stat, err := os.Stat(dir); err == nil {
		if !stat.IsDir() {
			return fmt.Errorf("path %s exists but is not a directory", dir)
		}
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat directory %s: %w", dir, err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

func checkWritePermissions(dir string) error {
	f, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		return fmt.Errorf("cannot create test file: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// Type reports the backend in use.
func (db *DB) Type() string {
	return db.dbType
}

// Conn returns the underlying pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// rebind rewrites ? placeholders to $1..$n for PostgreSQL.
func (db *DB) rebind(query string) string {
	if db.dbType != TypePostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}
