package sharedstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	// Import modernc.org/sqlite as a blank import to register the driver
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a SQLite file that both processes open.
type SQLite struct {
	db     *sql.DB
	path   string
	closed atomic.Bool
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// OpenSQLite opens (creating if needed) the shared store at path.
func OpenSQLite(path string) (*SQLite, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create shared store directory: %w", err)
		}
	}

	// Pragmas go in the DSN so every pooled connection gets them; the busy
	// timeout matters because the other process holds locks too.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open shared store: %w", err)
	}

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to shared store: %w", err)
	}

	_, err = db.ExecContext(context.Background(), `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at REAL NOT NULL
	);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create shared store schema: %w", err)
	}

	return &SQLite{db: db, path: path}, nil
}

// Path returns the store file path.
func (s *SQLite) Path() string {
	return s.path
}

func (s *SQLite) access() (sqlAccess, error) {
	if s.closed.Load() {
		return sqlAccess{}, ErrClosed
	}
	return sqlAccess{q: s.db}, nil
}

// GetString implements Reader.
func (s *SQLite) GetString(key string) (string, bool, error) {
	a, err := s.access()
	if err != nil {
		return "", false, err
	}
	return a.GetString(key)
}

// GetInt implements Reader.
func (s *SQLite) GetInt(key string) (int64, bool, error) {
	a, err := s.access()
	if err != nil {
		return 0, false, err
	}
	return a.GetInt(key)
}

// GetFloat implements Reader.
func (s *SQLite) GetFloat(key string) (float64, bool, error) {
	a, err := s.access()
	if err != nil {
		return 0, false, err
	}
	return a.GetFloat(key)
}

// GetBool implements Reader.
func (s *SQLite) GetBool(key string) (bool, bool, error) {
	a, err := s.access()
	if err != nil {
		return false, false, err
	}
	return a.GetBool(key)
}

// Keys implements Reader.
func (s *SQLite) Keys(prefix string) ([]string, error) {
	a, err := s.access()
	if err != nil {
		return nil, err
	}
	return a.Keys(prefix)
}

// SetString implements Writer.
func (s *SQLite) SetString(key, value string) error { return s.set(key, value) }

// SetInt implements Writer.
func (s *SQLite) SetInt(key string, value int64) error { return s.set(key, value) }

// SetFloat implements Writer.
func (s *SQLite) SetFloat(key string, value float64) error { return s.set(key, value) }

// SetBool implements Writer.
func (s *SQLite) SetBool(key string, value bool) error { return s.set(key, value) }

func (s *SQLite) set(key string, value any) error {
	a, err := s.access()
	if err != nil {
		return err
	}
	return a.set(key, value)
}

// Delete implements Writer.
func (s *SQLite) Delete(key string) error {
	a, err := s.access()
	if err != nil {
		return err
	}
	return a.Delete(key)
}

// Update runs fn inside an IMMEDIATE transaction so the write lock is taken
// up front and concurrent read-modify-write cycles from the other process
// cannot interleave.
func (s *SQLite) Update(fn func(tx Tx) error) (err error) {
	if s.closed.Load() {
		return ErrClosed
	}

	ctx := context.Background()
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire shared store connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("failed to begin shared store transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_, _ = conn.ExecContext(ctx, "ROLLBACK")
		}
	}()

	if err = fn(sqlAccess{q: conn}); err != nil {
		return err
	}

	if _, err = conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("failed to commit shared store transaction: %w", err)
	}
	return nil
}

// View runs fn inside a read transaction. Writes committed by the other
// process while fn runs are not visible to it.
func (s *SQLite) View(fn func(r Reader) error) error {
	if s.closed.Load() {
		return ErrClosed
	}

	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin shared store read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	return fn(sqlAccess{q: tx})
}

// Close closes the store.
func (s *SQLite) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

// sqlAccess implements Tx over either the pool or a single connection.
type sqlAccess struct {
	q querier
}

func (a sqlAccess) get(key string) (Kind, string, bool, error) {
	var kind, raw string
	err := a.q.QueryRowContext(context.Background(),
		`SELECT kind, value FROM kv WHERE key = ?`, key).Scan(&kind, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return Kind(kind), raw, true, nil
}

func (a sqlAccess) GetString(key string) (string, bool, error) {
	return getTyped[string](a.get, key, KindString)
}

func (a sqlAccess) GetInt(key string) (int64, bool, error) {
	return getTyped[int64](a.get, key, KindInt)
}

func (a sqlAccess) GetFloat(key string) (float64, bool, error) {
	return getTyped[float64](a.get, key, KindFloat)
}

func (a sqlAccess) GetBool(key string) (bool, bool, error) {
	return getTyped[bool](a.get, key, KindBool)
}

func (a sqlAccess) Keys(prefix string) ([]string, error) {
	rows, err := a.q.QueryContext(context.Background(),
		`SELECT key FROM kv WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (a sqlAccess) SetString(key, value string) error        { return a.set(key, value) }
func (a sqlAccess) SetInt(key string, value int64) error     { return a.set(key, value) }
func (a sqlAccess) SetFloat(key string, value float64) error { return a.set(key, value) }
func (a sqlAccess) SetBool(key string, value bool) error     { return a.set(key, value) }

func (a sqlAccess) set(key string, value any) error {
	kind, raw, err := encode(value)
	if err != nil {
		return err
	}
	_, err = a.q.ExecContext(context.Background(), `
		INSERT INTO kv (key, kind, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET kind = excluded.kind, value = excluded.value, updated_at = excluded.updated_at
	`, key, string(kind), raw, float64(time.Now().UnixNano())/1e9)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (a sqlAccess) Delete(key string) error {
	if _, err := a.q.ExecContext(context.Background(), `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
