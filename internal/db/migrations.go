package db

import (
	"context"
	"fmt"
	"strings"
)

// FixLegacyResetDates clears last_reset_date values written by earlier builds
// as placeholder defaults. An empty date is treated as "needs reset" by the
// ledger, whereas the placeholders made every day comparison wrong forever.
func (db *DB) FixLegacyResetDates() error {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(legacyResetDates)), ",")
	query := `UPDATE usage_ledger SET last_reset_date = '' WHERE last_reset_date IN (` + placeholders + `)`

	args := make([]any, len(legacyResetDates))
	for i, d := range legacyResetDates {
		args[i] = d
	}

	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		return fmt.Errorf("failed to fix legacy reset dates: %w", err)
	}

	// Timestamps with a " +0000 UTC" suffix break SQLite date functions.
	if _, err := db.ExecContext(context.Background(),
		`UPDATE usage_ledger
		 SET updated_at = SUBSTR(updated_at, 1, 19)
		 WHERE length(updated_at) > 19 AND updated_at LIKE '% UTC'`); err != nil {
		return fmt.Errorf("failed to fix legacy time formats: %w", err)
	}

	return nil
}
