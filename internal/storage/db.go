// Package storage persists conversations, user profiles and finished
// transcripts in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver for database/sql
)

// DB wraps a SQLite database with a single writer connection and a reader pool.
// An in-memory database uses one connection for both.
type DB struct {
	writer *sql.DB
	reader *sql.DB
	path   string
	now    func() time.Time
}

// pragmas are applied to every pooled connection through the DSN.
var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(30000)",
	"foreign_keys(ON)",
	"synchronous(NORMAL)",
}

func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	return "file:" + dbPath + "?" + q.Encode()
}

// New opens (or creates) the database at dbPath and initializes the schema.
// Use ":memory:" for tests.
func New(ctx context.Context, dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	writer, err := open(ctx, dbPath, 1)
	if err != nil {
		return nil, err
	}

	reader := writer
	if dbPath != ":memory:" {
		if reader, err = open(ctx, dbPath, 8); err != nil {
			_ = writer.Close()
			return nil, err
		}
	}

	db := &DB{writer: writer, reader: reader, path: dbPath, now: time.Now}
	if err := InitSchema(ctx, writer); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return db, nil
}

func open(ctx context.Context, dbPath string, maxConns int) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(maxConns)
	conn.SetMaxIdleConns(maxConns)
	// An in-memory database lives only as long as its single connection.
	if dbPath != ":memory:" {
		conn.SetConnMaxLifetime(time.Hour)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return conn, nil
}

// Close closes both connection pools.
func (db *DB) Close() error {
	var err error
	if db.reader != nil && db.reader != db.writer {
		err = db.reader.Close()
	}
	if db.writer != nil {
		if werr := db.writer.Close(); werr != nil {
			err = werr
		}
	}
	return err
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.reader.PingContext(ctx)
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// ExecBatchContext runs fn with a prepared statement inside one transaction.
// The transaction is rolled back when fn fails.
func (db *DB) ExecBatchContext(ctx context.Context, query string, fn func(stmt *sql.Stmt) error) error {
	tx, err := db.writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	if err := fn(stmt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// warnSlow logs operations slower than 100ms.
func warnSlow(ctx context.Context, op string, start time.Time, args ...any) {
	if d := time.Since(start); d > 100*time.Millisecond {
		slog.WarnContext(ctx, "slow database operation",
			append([]any{"operation", op, "duration_ms", d.Milliseconds()}, args...)...)
	}
}
