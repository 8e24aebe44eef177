package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	_ "github.com/mattn/go-sqlite3"    // registers the "sqlite3" database/sql driver

	"github.com/AntonVanke/xuexinwang/internal/config"
	"github.com/AntonVanke/xuexinwang/internal/pkg/helpers"
	"github.com/AntonVanke/xuexinwang/internal/pkg/logger"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Database wraps the connection pool together with the dialect it speaks
type Database struct {
	DB     *sql.DB
	Driver string
}

// Open creates a connection pool for the configured driver and verifies it
func Open(cfg *config.Config) (*Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var (
		driverName string
		dsn        string
	)

	switch cfg.Database.Driver {
	case DriverSQLite:
		if dir := filepath.Dir(cfg.Database.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
		driverName = "sqlite3"
		dsn = SQLiteDSN(cfg.Database.Path)
	case DriverPostgres:
		driverName = "pgx"
		dsn = cfg.GetPostgresConnectionString()
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.Database.Driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY under concurrent submissions
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		conn.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	}
	conn.SetConnMaxLifetime(helpers.ParseDuration(cfg.Database.ConnMaxLifetime, time.Hour))

	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	logger.Info().Str("driver", cfg.Database.Driver).Msg("Database connection established")
	return &Database{DB: conn, Driver: cfg.Database.Driver}, nil
}

// SQLiteDSN builds a go-sqlite3 DSN with WAL journaling, a busy timeout and foreign keys
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
}

// Builder returns a statement builder using the placeholder format of the driver
func (d *Database) Builder() sq.StatementBuilderType {
	return StatementBuilder(d.Driver)
}

// StatementBuilder returns a squirrel builder for the given driver
func StatementBuilder(driver string) sq.StatementBuilderType {
	if driver == DriverPostgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// Close closes the pool
func (d *Database) Close() {
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close database")
		}
	}
}

// TransactionFn is a function that executes within a transaction
type TransactionFn func(ctx context.Context, tx *sql.Tx) error

// WithTransaction runs a function within a transaction
func WithTransaction(ctx context.Context, conn *sql.DB, fn TransactionFn) error {
	// Add timeout to context if not already present
	_, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Rollback on panic
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
