package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/rewardgate/internal/logger"
	"github.com/j-veylop/rewardgate/internal/models"
)

// LoadLedger returns every persisted ledger entry keyed by logical ID.
func (db *DB) LoadLedger() (map[string]*models.LedgerEntry, error) {
	query := `
		SELECT logical_id, display_name, category, points_per_minute,
			   total_seconds, total_points, today_seconds, today_points,
			   last_reset_date, hourly_seconds
		FROM usage_ledger
	`

	rows, err := db.QueryContext(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	entries := make(map[string]*models.LedgerEntry)
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		entries[e.LogicalID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ledger: %w", err)
	}

	history, err := db.loadAllHistory()
	if err != nil {
		return nil, err
	}
	for id, days := range history {
		if e, ok := entries[id]; ok {
			e.DailyHistory = days
		}
	}

	return entries, nil
}

// GetLedgerEntry returns a single ledger entry or nil if it does not exist.
func (db *DB) GetLedgerEntry(logicalID string) (*models.LedgerEntry, error) {
	query := `
		SELECT logical_id, display_name, category, points_per_minute,
			   total_seconds, total_points, today_seconds, today_points,
			   last_reset_date, hourly_seconds
		FROM usage_ledger
		WHERE logical_id = ?
	`

	e, err := scanLedgerEntry(db.QueryRowContext(context.Background(), query, logicalID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	e.DailyHistory, err = db.GetDailyHistory(logicalID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// SaveLedgerEntry upserts one entry and appends any history rows not yet
// stored. History is append-only: existing (entity, date) rows are kept.
func (db *DB) SaveLedgerEntry(e *models.LedgerEntry) error {
	hourly, err := json.Marshal(e.HourlySeconds)
	if err != nil {
		return fmt.Errorf("failed to encode hourly buckets: %w", err)
	}

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(context.Background(), `
		INSERT INTO usage_ledger (
			logical_id, display_name, category, points_per_minute,
			total_seconds, total_points, today_seconds, today_points,
			last_reset_date, hourly_seconds, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(logical_id) DO UPDATE SET
			display_name = excluded.display_name,
			category = excluded.category,
			points_per_minute = excluded.points_per_minute,
			total_seconds = excluded.total_seconds,
			total_points = excluded.total_points,
			today_seconds = excluded.today_seconds,
			today_points = excluded.today_points,
			last_reset_date = excluded.last_reset_date,
			hourly_seconds = excluded.hourly_seconds,
			updated_at = excluded.updated_at
	`,
		e.LogicalID,
		e.DisplayName,
		string(e.Category),
		e.PointsPerMinute,
		e.TotalSeconds,
		e.TotalPoints,
		e.TodaySeconds,
		e.TodayPoints,
		e.LastResetDate,
		string(hourly),
		time.Now().UTC().Format("2006-01-02 15:04:05"),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert ledger entry %s: %w", e.LogicalID, err)
	}

	for _, day := range e.DailyHistory {
		_, err := tx.ExecContext(context.Background(),
			`INSERT OR IGNORE INTO daily_history (logical_id, date, seconds) VALUES (?, ?, ?)`,
			e.LogicalID, day.Date, day.Seconds,
		)
		if err != nil {
			return fmt.Errorf("failed to append history for %s: %w", e.LogicalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger entry %s: %w", e.LogicalID, err)
	}
	return nil
}

// GetDailyHistory returns the closed days of one entity, oldest first.
func (db *DB) GetDailyHistory(logicalID string) ([]models.DailyUsage, error) {
	rows, err := db.QueryContext(context.Background(),
		`SELECT date, seconds FROM daily_history WHERE logical_id = ? ORDER BY date ASC`, logicalID)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var days []models.DailyUsage
	for rows.Next() {
		var d models.DailyUsage
		if err := rows.Scan(&d.Date, &d.Seconds); err != nil {
			return nil, fmt.Errorf("failed to scan daily history: %w", err)
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

func (db *DB) loadAllHistory() (map[string][]models.DailyUsage, error) {
	rows, err := db.QueryContext(context.Background(),
		`SELECT logical_id, date, seconds FROM daily_history ORDER BY logical_id, date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := make(map[string][]models.DailyUsage)
	for rows.Next() {
		var id string
		var d models.DailyUsage
		if err := rows.Scan(&id, &d.Date, &d.Seconds); err != nil {
			return nil, fmt.Errorf("failed to scan daily history: %w", err)
		}
		history[id] = append(history[id], d)
	}
	return history, rows.Err()
}

// GetState reads a value from the app_state table.
func (db *DB) GetState(key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(context.Background(),
		`SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state %s: %w", key, err)
	}
	return value, true, nil
}

// SetState writes a value to the app_state table.
func (db *DB) SetState(key, value string) error {
	_, err := db.ExecContext(context.Background(), `
		INSERT INTO app_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to write state %s: %w", key, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerEntry(row rowScanner) (*models.LedgerEntry, error) {
	var e models.LedgerEntry
	var category, hourly string

	err := row.Scan(
		&e.LogicalID,
		&e.DisplayName,
		&category,
		&e.PointsPerMinute,
		&e.TotalSeconds,
		&e.TotalPoints,
		&e.TodaySeconds,
		&e.TodayPoints,
		&e.LastResetDate,
		&hourly,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
	}

	e.Category = models.Category(category)
	if hourly != "" {
		var buckets []int64
		if err := json.Unmarshal([]byte(hourly), &buckets); err != nil {
			logger.Warn("discarding malformed hourly buckets", "logical_id", e.LogicalID, "error", err)
		} else {
			copy(e.HourlySeconds[:], buckets)
		}
	}

	return &e, nil
}
