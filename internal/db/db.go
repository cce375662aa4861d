// Package db manages the durable ledger database.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// DB wraps the SQL database connection with application-specific methods.
type DB struct {
	*sql.DB
	path string
}

// New creates a new database connection and initializes the schema.
func New(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Open database connection
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:   sqlDB,
		path: path,
	}

	// Configure database
	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	// Create schema
	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Repair legacy reset dates
	if err := db.FixLegacyResetDates(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to fix legacy reset dates: %w", err)
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// configure sets up database pragmas for optimal performance.
func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}

	return nil
}

func (db *DB) createSchema() error {
	if err := db.createLedgerTable(); err != nil {
		return err
	}
	if err := db.createDailyHistoryTable(); err != nil {
		return err
	}
	return db.createAppStateTable()
}

func (db *DB) createLedgerTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS usage_ledger (
		logical_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT 'learning',
		points_per_minute INTEGER NOT NULL DEFAULT 0,
		total_seconds INTEGER NOT NULL DEFAULT 0,
		total_points INTEGER NOT NULL DEFAULT 0,
		today_seconds INTEGER NOT NULL DEFAULT 0,
		today_points INTEGER NOT NULL DEFAULT 0,
		last_reset_date TEXT NOT NULL DEFAULT '',
		hourly_seconds TEXT NOT NULL DEFAULT '[]',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createDailyHistoryTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS daily_history (
		logical_id TEXT NOT NULL,
		date TEXT NOT NULL,
		seconds INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (logical_id, date),
		FOREIGN KEY (logical_id) REFERENCES usage_ledger(logical_id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_daily_history_date ON daily_history(date);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

func (db *DB) createAppStateTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := db.ExecContext(context.Background(), query)
	return err
}

// Close closes the database connection gracefully.
func (db *DB) Close() error {
	// Checkpoint WAL before closing
	_, _ = db.ExecContext(context.Background(), "PRAGMA wal_checkpoint(TRUNCATE)")
	return db.DB.Close()
}
