package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/swarm/internal/resonance"
	"github.com/ShayCichocki/swarm/internal/signature"
	"github.com/ShayCichocki/swarm/internal/stigmergy"
)

// DB wraps an SQLite database holding specialists and signals.
type DB struct {
	conn   *sql.DB
	path   string
	driver string
	mu     sync.RWMutex
}

// DefaultDBPath returns the default database location under XDG_DATA_HOME.
func DefaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "swarm", "swarm.db")
}

// Open opens an SQLite database at the given path using driver
// ("sqlite" or "sqlite3", empty means "sqlite").
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path, driver string) (*DB, error) {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverSQLite3 {
		return nil, fmt.Errorf("open database with %q: %w", driver, ErrUnknownDriver)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite serializes writers anyway; one connection keeps upserts ordered.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	return &DB{conn: conn, path: path, driver: driver}, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Driver returns the database/sql driver name in use.
func (db *DB) Driver() string {
	return db.driver
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Specialists},
		{2, migrationV2Signals},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Specialists = `
CREATE TABLE IF NOT EXISTS specialists (
	id TEXT PRIMARY KEY,
	history TEXT NOT NULL DEFAULT '[]',
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	average_quality REAL NOT NULL DEFAULT 0.0,
	specialization_strength REAL NOT NULL DEFAULT 1.0,
	revision INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

const migrationV2Signals = `
CREATE TABLE IF NOT EXISTS signals (
	task_id TEXT NOT NULL,
	approach TEXT NOT NULL,
	strength REAL NOT NULL,
	deposited_at TEXT NOT NULL,
	deposited_by TEXT NOT NULL DEFAULT '',
	success_metric REAL NOT NULL DEFAULT 0.0,
	deposits INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (task_id, approach)
);

CREATE INDEX IF NOT EXISTS idx_signals_task_id ON signals(task_id);
`

// SaveProfile upserts p unless the stored row has the same or a newer revision.
func (db *DB) SaveProfile(ctx context.Context, p resonance.Profile) error {
	history, err := json.Marshal(p.History)
	if err != nil {
		return fmt.Errorf("encode history for %s: %w", p.ID, err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO specialists (
			id, history, success_count, failure_count, average_quality,
			specialization_strength, revision, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			history = excluded.history,
			success_count = excluded.success_count,
			failure_count = excluded.failure_count,
			average_quality = excluded.average_quality,
			specialization_strength = excluded.specialization_strength,
			revision = excluded.revision,
			updated_at = excluded.updated_at
		WHERE excluded.revision > specialists.revision
	`, p.ID, string(history), p.SuccessCount, p.FailureCount, p.AverageQuality,
		p.SpecializationStrength, int64(p.Revision), formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save specialist %s: %w", p.ID, err)
	}
	return nil
}

// DeleteProfiles removes the given specialists. Unknown ids are ignored.
func (db *DB) DeleteProfiles(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return db.transaction(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, "DELETE FROM specialists WHERE id = ?", id); err != nil {
				return fmt.Errorf("delete specialist %s: %w", id, err)
			}
		}
		return nil
	})
}

// LoadProfiles returns every stored specialist ordered by id.
func (db *DB) LoadProfiles(ctx context.Context) ([]resonance.Profile, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, history, success_count, failure_count, average_quality,
			specialization_strength, revision, created_at, updated_at
		FROM specialists ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query specialists: %w", err)
	}
	defer rows.Close()

	var profiles []resonance.Profile
	for rows.Next() {
		var p resonance.Profile
		var history, createdAt, updatedAt string
		var revision int64
		if err := rows.Scan(&p.ID, &history, &p.SuccessCount, &p.FailureCount, &p.AverageQuality,
			&p.SpecializationStrength, &revision, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan specialist: %w", err)
		}
		if err := json.Unmarshal([]byte(history), &p.History); err != nil {
			return nil, fmt.Errorf("decode history for %s: %w", p.ID, err)
		}
		if p.History == nil {
			p.History = []signature.Signature{}
		}
		p.Revision = uint64(revision)
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at for %s: %w", p.ID, err)
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at for %s: %w", p.ID, err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// SaveSignal upserts one signal.
func (db *DB) SaveSignal(ctx context.Context, s stigmergy.Signal) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return upsertSignal(ctx, db.conn, s)
}

// ReplaceSignals swaps the whole signal table in one transaction.
func (db *DB) ReplaceSignals(ctx context.Context, signals []stigmergy.Signal) error {
	return db.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM signals"); err != nil {
			return fmt.Errorf("clear signals: %w", err)
		}
		for _, s := range signals {
			if err := upsertSignal(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadSignals returns every stored signal ordered by task and approach.
func (db *DB) LoadSignals(ctx context.Context) ([]stigmergy.Signal, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT task_id, approach, strength, deposited_at, deposited_by, success_metric, deposits
		FROM signals ORDER BY task_id, approach
	`)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	var signals []stigmergy.Signal
	for rows.Next() {
		var s stigmergy.Signal
		var depositedAt string
		if err := rows.Scan(&s.TaskID, &s.Approach, &s.Strength, &depositedAt,
			&s.DepositedBy, &s.SuccessMetric, &s.Deposits); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if s.DepositedAt, err = parseTime(depositedAt); err != nil {
			return nil, fmt.Errorf("parse deposited_at for %s/%s: %w", s.TaskID, s.Approach, err)
		}
		signals = append(signals, s)
	}
	return signals, rows.Err()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertSignal(ctx context.Context, e execer, s stigmergy.Signal) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO signals (
			task_id, approach, strength, deposited_at, deposited_by, success_metric, deposits
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(task_id, approach) DO UPDATE SET
			strength = excluded.strength,
			deposited_at = excluded.deposited_at,
			deposited_by = excluded.deposited_by,
			success_metric = excluded.success_metric,
			deposits = excluded.deposits
	`, s.TaskID, s.Approach, s.Strength, formatTime(s.DepositedAt), s.DepositedBy, s.SuccessMetric, s.Deposits)
	if err != nil {
		return fmt.Errorf("save signal %s/%s: %w", s.TaskID, s.Approach, err)
	}
	return nil
}

// transaction runs fn within a transaction.
func (db *DB) transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
