// Package database stores cards, decks and learner progress in SQLite or
// PostgreSQL through sqlx.
package database

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

// MaxBatchSize bounds how many rows one batch write touches
const MaxBatchSize = 500

// Config selects the store
type Config struct {
	Type string `yaml:"type"` // sqlite3 or postgres
	Path string `yaml:"path"` // sqlite3 file, ":memory:" for tests
	URL  string `yaml:"url"`  // postgres connection string
}

// Connect opens the database and applies pending migrations
func Connect(cfg Config) (*sqlx.DB, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch cfg.Type {
	case "postgres":
		db, err = sqlx.Connect("postgres", cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	case "sqlite3", "sqlite", "":
		db, err = connectSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("driver", db.DriverName()).Msg("database ready")
	return db, nil
}

func connectSQLite(path string) (*sqlx.DB, error) {
	if path == "" {
		path = filepath.Join("data", "luxcards.db")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// Migrate brings the schema up to date
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}

	var driver migratedb.Driver
	switch db.DriverName() {
	case "postgres":
		driver, err = postgres.WithInstance(db.DB, &postgres.Config{})
	default:
		driver, err = sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to init migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, db.DriverName(), driver)
	if err != nil {
		return fmt.Errorf("failed to init migrations: %w", err)
	}
	// m.Close would close db as well, so only the source is released
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
