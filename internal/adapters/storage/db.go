package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// migration is one forward-only schema step. Migrations run inside a transaction.
type migration struct {
	name string
	up   func(tx *sql.Tx) error
}

// migrations is the ordered schema history. Append only; never edit an applied step.
var migrations = []migration{
	{name: "baseline", up: migrateBaseline},
	{name: "report_lookup_indexes", up: migrateReportIndexes},
}

// LatestSchemaVersion returns the version the database reaches after MigrateDB.
func LatestSchemaVersion() int {
	return len(migrations)
}

// MigrateDB brings the schema up to LatestSchemaVersion.
// PRE: db is a valid database connection
// POST: every pending migration applied and recorded in schema_version
func MigrateDB(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("failed to create schema_version: %w", err)
	}

	current, err := SchemaVersion(db)
	if err != nil {
		return err
	}

	for i := current; i < len(migrations); i++ {
		m := migrations[i]
		version := i + 1
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("migration %d (%s): begin: %w", version, m.name, err)
		}
		if err := m.up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", version, m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version, name, applied_at) VALUES (?, ?, ?)`,
			version, m.name, time.Now().UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): record version: %w", version, m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d (%s): commit: %w", version, m.name, err)
		}
		slog.Info("schema_migrated", "version", version, "name", m.name)
	}
	return nil
}

// SchemaVersion returns the highest applied migration, or 0 on a fresh database.
func SchemaVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func migrateBaseline(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE TABLE IF NOT EXISTS session (
		id TEXT PRIMARY KEY,
		group_name TEXT NOT NULL,
		total_teams INTEGER NOT NULL,
		report_enabled INTEGER NOT NULL DEFAULT 0,
		timer_running INTEGER NOT NULL DEFAULT 0,
		timer_end_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS participant (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		team_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		progress TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '[]',
		joined_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (session_id, team_id, name),
		FOREIGN KEY (session_id) REFERENCES session(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS report (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		team_id INTEGER NOT NULL,
		user_name TEXT NOT NULL,
		title TEXT NOT NULL,
		members TEXT NOT NULL,
		contents TEXT NOT NULL DEFAULT '',
		situation TEXT NOT NULL DEFAULT '',
		definition TEXT NOT NULL DEFAULT '',
		cause TEXT NOT NULL DEFAULT '',
		solution TEXT NOT NULL DEFAULT '',
		prevention TEXT NOT NULL DEFAULT '',
		schedule TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		submitted_at TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (session_id, team_id, user_name),
		FOREIGN KEY (session_id) REFERENCES session(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		action_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL DEFAULT 5,
		last_attempted_at TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS audit_event (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL,
		actor TEXT NOT NULL,
		resource_type TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		ip_address TEXT NOT NULL DEFAULT ''
	);
	`)
	return err
}

func migrateReportIndexes(tx *sql.Tx) error {
	_, err := tx.Exec(`
	CREATE INDEX IF NOT EXISTS idx_report_session_team ON report(session_id, team_id);
	CREATE INDEX IF NOT EXISTS idx_participant_session ON participant(session_id);
	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_event(timestamp);
	`)
	return err
}
