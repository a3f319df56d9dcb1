// Package repo implements the data persistence layer for ingested messages,
// backed by GORM. This file contains database bootstrapping helpers: URL
// parsing, SQLite (pure Go driver) and Postgres openers, and schema creation.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-webhook-ingest/internal/domain"
)

// MemoryPath is the SQLite path for a private in-memory database.
const MemoryPath = ":memory:"

// ErrUnsupportedURL is returned by ParseDatabaseURL for unknown schemes.
var ErrUnsupportedURL = errors.New("unsupported DATABASE_URL scheme")

// Driver identifies the storage engine selected by DATABASE_URL.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Target is a parsed DATABASE_URL.
type Target struct {
	Driver Driver
	// DSN is a filesystem path (or MemoryPath) for SQLite and the
	// original URL for Postgres.
	DSN string
}

// ParseDatabaseURL understands the SQLAlchemy-style SQLite forms
// (sqlite:///relative.db, sqlite:////abs/path.db, sqlite://:memory:) and
// postgres:// / postgresql:// URLs.
func ParseDatabaseURL(raw string) (Target, error) {
	u := strings.TrimSpace(raw)
	switch {
	case u == "sqlite://" || u == "sqlite://:memory:" || u == "sqlite:///:memory:":
		return Target{Driver: DriverSQLite, DSN: MemoryPath}, nil
	case strings.HasPrefix(u, "sqlite:///"):
		p := strings.TrimPrefix(u, "sqlite:///")
		if p == "" {
			return Target{}, fmt.Errorf("%w: empty sqlite path", ErrUnsupportedURL)
		}
		return Target{Driver: DriverSQLite, DSN: p}, nil
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return Target{Driver: DriverPostgres, DSN: u}, nil
	}
	return Target{}, fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
}

// OpenOptions tunes Open.
type OpenOptions struct {
	// Tracing installs the GORM OpenTelemetry plugin.
	Tracing bool
	// Debug enables GORM's SQL logger.
	Debug bool
}

// Open parses databaseURL, opens the matching engine, and creates the
// schema. For file-backed SQLite the parent directory is created first.
func Open(databaseURL string, opts OpenOptions) (*gorm.DB, error) {
	target, err := ParseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	switch target.Driver {
	case DriverSQLite:
		if target.DSN != MemoryPath {
			if dir := filepath.Dir(target.DSN); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, err
				}
			}
		}
		db, err = OpenSQLite(target.DSN)
	case DriverPostgres:
		db, err = OpenPostgres(target.DSN)
	}
	if err != nil {
		return nil, err
	}

	if opts.Debug {
		db.Logger = db.Logger.LogMode(logger.Info)
	}
	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, err
		}
	}
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
// PRAGMAs travel in the DSN so every pooled connection gets them.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		if path == MemoryPath {
			// One connection that never expires: each new connection
			// would otherwise see its own empty database.
			sqlDB.SetMaxOpenConns(1)
		} else {
			sqlDB.SetMaxOpenConns(10)
			sqlDB.SetMaxIdleConns(10)
			sqlDB.SetConnMaxIdleTime(5 * time.Minute)
			sqlDB.SetConnMaxLifetime(30 * time.Minute)
		}
	}

	return db, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	pragmas := []string{"busy_timeout(5000)", "foreign_keys(1)", "synchronous(NORMAL)"}
	if path != MemoryPath {
		pragmas = append(pragmas, "journal_mode(WAL)")
	}
	return path + "?_pragma=" + strings.Join(pragmas, "&_pragma=")
}

// OpenPostgres opens a Postgres database through the pgx-backed GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	}
	return db, nil
}

// AutoMigrate creates the messages table and its indexes when missing.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&domain.Message{})
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
