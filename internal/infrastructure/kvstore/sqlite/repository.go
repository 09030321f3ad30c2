// Package sqlite provides a SQLite implementation of the KVStore and
// AuditLog ports.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/influence-tracker/internal/domain/entities"
	"github.com/ersonp/influence-tracker/internal/domain/ports"
	"github.com/ersonp/influence-tracker/internal/infrastructure/config"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// busyTimeoutMs is how long a connection waits for another writer's lock.
const busyTimeoutMs = 5000

// Repository implements ports.VersionedKVStore and ports.AuditLog using SQLite.
type Repository struct {
	db   *sql.DB
	path string
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.StoreConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// :memory: databases are per-connection
	if cfg.Path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{
		db:   db,
		path: cfg.Path,
	}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Path returns the database file path.
func (r *Repository) Path() string {
	return r.path
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Key-value records (one JSON document per key)
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		version INTEGER NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Store-wide write counter; kv.version takes the next value on every write
	CREATE TABLE IF NOT EXISTS kv_clock (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		version INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO kv_clock (id, version) VALUES (1, 0);

	-- Audit log (moderation decisions)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		subject_id TEXT,
		details TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_subject ON audit_log(subject_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
	`

	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return r.addColumnIfMissing(ctx, "kv", "version", "INTEGER NOT NULL DEFAULT 0")
}

// addColumnIfMissing upgrades tables created before a column existed.
func (r *Repository) addColumnIfMissing(ctx context.Context, table, column, definition string) error {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&count)
	if err != nil {
		return fmt.Errorf("inspecting table %s: %w", table, err)
	}
	if count > 0 {
		return nil
	}

	query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition)
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("adding column %s.%s: %w", table, column, err)
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Conn.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get returns the value stored under key.
func (r *Repository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return getKey(ctx, r.db, key)
}

// Version returns the clock value of the last write to key. Versions never
// repeat, even across a delete and re-insert.
func (r *Repository) Version(ctx context.Context, key string) (int64, bool, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM kv WHERE key = ?`, key).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading version of %s: %w", key, err)
	}
	return version, true, nil
}

// Set stores value under key, replacing any previous value.
func (r *Repository) Set(ctx context.Context, key string, value []byte) error {
	return r.Update(ctx, func(tx ports.KVTx) error {
		return tx.Set(ctx, key, value)
	})
}

// Delete removes key.
func (r *Repository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

// Update runs fn inside a BEGIN IMMEDIATE transaction on a dedicated
// connection. The write lock is taken before fn reads, so read-modify-write
// cycles from other connections and processes cannot interleave.
func (r *Repository) Update(ctx context.Context, fn func(tx ports.KVTx) error) error {
	conn, err := r.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMs)); err != nil {
		return fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(&kvTx{conn: conn}); err != nil {
		if _, rbErr := conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rolling back: %w", rbErr))
		}
		return err
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		_, _ = conn.ExecContext(context.WithoutCancel(ctx), "ROLLBACK")
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// kvTx reads and writes through the connection holding the transaction.
type kvTx struct {
	conn *sql.Conn
}

func (tx *kvTx) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return getKey(ctx, tx.conn, key)
}

func (tx *kvTx) Set(ctx context.Context, key string, value []byte) error {
	return setKey(ctx, tx.conn, key, value)
}

func getKey(ctx context.Context, q querier, key string) ([]byte, bool, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading key %s: %w", key, err)
	}
	return value, true, nil
}

// setKey must run inside a transaction so the clock bump and the write
// commit together.
func setKey(ctx context.Context, q querier, key string, value []byte) error {
	var version int64
	err := q.QueryRowContext(ctx, `UPDATE kv_clock SET version = version + 1 WHERE id = 1 RETURNING version`).Scan(&version)
	if err != nil {
		return fmt.Errorf("advancing version for %s: %w", key, err)
	}

	query := `
		INSERT INTO kv (key, value, version, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = excluded.version,
			updated_at = excluded.updated_at
	`
	if _, err := q.ExecContext(ctx, query, key, value, version, timeNow().UTC()); err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, action string, subjectID string, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var subject sql.NullString
	if subjectID != "" {
		subject = sql.NullString{String: subjectID, Valid: true}
	}

	query := `INSERT INTO audit_log (action, subject_id, details, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query, action, subject, detailsJSON, timeNow().UTC())
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLog finds audit log entries for a specific subject.
func (r *Repository) FindAuditLog(ctx context.Context, subjectID string) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, subject_id, details, created_at
		FROM audit_log
		WHERE subject_id = ?
		ORDER BY id DESC
	`
	return r.queryAuditLog(ctx, query, subjectID)
}

// FindAuditLogByAction finds audit log entries by action type.
// An empty action matches every entry.
func (r *Repository) FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, subject_id, details, created_at
		FROM audit_log
		WHERE (? = '' OR action = ?)
		ORDER BY id DESC
		LIMIT ?
	`
	return r.queryAuditLog(ctx, query, action, action, limit)
}

// queryAuditLog is a helper to execute audit log queries.
func (r *Repository) queryAuditLog(ctx context.Context, query string, args ...any) ([]entities.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	// Use limit parameter as capacity hint if available
	entries := []entities.AuditEntry{}
	if len(args) > 0 {
		if limit, ok := args[len(args)-1].(int); ok && limit > 0 {
			entries = make([]entities.AuditEntry, 0, limit)
		}
	}

	for rows.Next() {
		var entry entities.AuditEntry
		var subjectID, details sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&subjectID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		entry.SubjectID = subjectID.String

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
