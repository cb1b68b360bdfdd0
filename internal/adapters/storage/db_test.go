package storage

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func memDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// :memory: is per connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func schemaObjects(t *testing.T, db *sql.DB, kind string) []string {
	t.Helper()
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = ? AND name NOT LIKE 'sqlite_%' ORDER BY name`, kind)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestMigrateDB_Fresh(t *testing.T) {
	db := memDB(t)
	require.NoError(t, MigrateDB(db))

	version, err := SchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, LatestSchemaVersion(), version)

	assert.Equal(t,
		[]string{"audit_event", "outbox", "participant", "report", "schema_version", "session"},
		schemaObjects(t, db, "table"))
	assert.Subset(t, schemaObjects(t, db, "index"),
		[]string{"idx_report_session_team", "idx_participant_session", "idx_outbox_status", "idx_audit_timestamp"})
}

func TestMigrateDB_RerunIsNoop(t *testing.T) {
	db := memDB(t)
	require.NoError(t, MigrateDB(db))
	require.NoError(t, MigrateDB(db))

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&applied))
	assert.Equal(t, LatestSchemaVersion(), applied)
}

// Deleting a session removes its participants and reports with it.
func TestMigrateDB_SessionDeleteCascades(t *testing.T) {
	db := memDB(t)
	require.NoError(t, MigrateDB(db))

	for _, q := range []string{
		`INSERT INTO session (id, group_name, total_teams, created_at) VALUES ('s1', '소방1반', 6, '2026-01-01T00:00:00Z')`,
		`INSERT INTO participant (id, session_id, team_id, name, progress, joined_at, updated_at) VALUES ('p1', 's1', 1, '김소방', '{}', 'x', 'x')`,
		`INSERT INTO report (id, session_id, team_id, user_name, title, members, submitted_at, created_at, updated_at) VALUES ('r1', 's1', 1, '김소방', '화재 보고', '김소방', 'x', 'x', 'x')`,
		`DELETE FROM session WHERE id = 's1'`,
	} {
		_, err := db.Exec(q)
		require.NoError(t, err, q)
	}

	for _, table := range []string{"participant", "report"} {
		var n int
		require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
		assert.Zero(t, n, table)
	}
}

// A report row must point at an existing session.
func TestMigrateDB_ForeignKeysEnforced(t *testing.T) {
	db := memDB(t)
	require.NoError(t, MigrateDB(db))

	_, err := db.Exec(`INSERT INTO report (id, session_id, team_id, user_name, title, members, submitted_at, created_at, updated_at) VALUES ('r1', 'missing', 1, 'a', 't', 'm', 'x', 'x', 'x')`)
	assert.Error(t, err)
}
