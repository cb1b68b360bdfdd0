package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"firesim/internal/adapters/storage"
	domain "firesim/internal/domain/session"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const selectColumns = `SELECT id, group_name, total_teams, report_enabled, timer_running, timer_end_at, created_at FROM session`

// SQLiteStore implements the session Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new session store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a session by its ID.
// PRE: id is non-empty
// POST: Returns the session or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Session, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id)
	sess, err := scanSession(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, err
}

// Save persists a session.
// PRE: session has been validated
// POST: Session is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, sess domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (id, group_name, total_teams, report_enabled, timer_running, timer_end_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   group_name=excluded.group_name, total_teams=excluded.total_teams,
		   report_enabled=excluded.report_enabled, timer_running=excluded.timer_running,
		   timer_end_at=excluded.timer_end_at`,
		sess.ID, sess.GroupName, sess.TotalTeams, sess.ReportEnabled, sess.TimerRunning,
		formatOptional(sess.TimerEndAt), sess.CreatedAt.UTC().Format(dateLayout))
	return err
}

// Delete removes the session, its participants and its reports in one transaction.
// PRE: id is non-empty
// POST: no rows reference the session
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM report WHERE session_id = ?`,
		`DELETE FROM participant WHERE session_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("cascade delete: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM session WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit()
}

// List returns all sessions, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SetReportEnabled updates the report gate of a session.
// POST: domain.ErrNotFound if the session does not exist
func (s *SQLiteStore) SetReportEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE session SET report_enabled = ? WHERE id = ?`, enabled, id)
	return checkAffected(res, err)
}

// SetTimer updates the timer of a session.
// POST: domain.ErrNotFound if the session does not exist
func (s *SQLiteStore) SetTimer(ctx context.Context, id string, running bool, endAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE session SET timer_running = ?, timer_end_at = ? WHERE id = ?`,
		running, formatOptional(endAt), id)
	return checkAffected(res, err)
}

func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func formatOptional(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(dateLayout), Valid: true}
}

// scanSession scans one row using the Scan method of a *sql.Row or *sql.Rows.
func scanSession(scan func(dest ...any) error) (domain.Session, error) {
	var sess domain.Session
	var endAt sql.NullString
	var createdAt string
	if err := scan(&sess.ID, &sess.GroupName, &sess.TotalTeams, &sess.ReportEnabled,
		&sess.TimerRunning, &endAt, &createdAt); err != nil {
		return domain.Session{}, err
	}
	sess.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	if endAt.Valid && endAt.String != "" {
		sess.TimerEndAt, _ = time.Parse(dateLayout, endAt.String)
	}
	return sess, nil
}
