package report

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"firesim/internal/adapters/storage"
	domain "firesim/internal/domain/report"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const selectColumns = `SELECT id, session_id, team_id, user_name, title, members, contents, situation, definition,
	cause, solution, prevention, schedule, image_url, submitted_at, created_at, updated_at FROM report`

// SQLiteStore implements the report Store interface using SQLite.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new report store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a report by ID.
// PRE: id is non-empty
// POST: Returns the report or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Report, error) {
	return s.getOne(ctx, selectColumns+` WHERE id = ?`, id)
}

// GetByIdentity finds a report by session, team and author.
// POST: Returns the report or domain.ErrNotFound
func (s *SQLiteStore) GetByIdentity(ctx context.Context, sessionID string, teamID int, userName string) (domain.Report, error) {
	return s.getOne(ctx, selectColumns+` WHERE session_id = ? AND team_id = ? AND user_name = ?`, sessionID, teamID, userName)
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, args ...any) (domain.Report, error) {
	r, err := scanReport(s.db.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Report{}, domain.ErrNotFound
	}
	return r, err
}

// Save persists a report. A second submission from the same author overwrites
// the content but keeps the row's ID, image and created_at.
// PRE: report has been validated
// POST: exactly one row for (session_id, team_id, user_name)
func (s *SQLiteStore) Save(ctx context.Context, r domain.Report) error {
	c := r.Content
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report (id, session_id, team_id, user_name, title, members, contents, situation, definition,
		   cause, solution, prevention, schedule, image_url, submitted_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, team_id, user_name) DO UPDATE SET
		   title=excluded.title, members=excluded.members, contents=excluded.contents,
		   situation=excluded.situation, definition=excluded.definition, cause=excluded.cause,
		   solution=excluded.solution, prevention=excluded.prevention, schedule=excluded.schedule,
		   image_url=CASE WHEN excluded.image_url != '' THEN excluded.image_url ELSE report.image_url END,
		   submitted_at=excluded.submitted_at, updated_at=excluded.updated_at`,
		r.ID, r.SessionID, r.TeamID, r.UserName, c.Title, c.Members, c.Contents, c.Situation, c.Definition,
		c.Cause, c.Solution, c.Prevention, c.Schedule, r.ImageURL,
		r.SubmittedAt.UTC().Format(dateLayout), r.CreatedAt.UTC().Format(dateLayout), r.UpdatedAt.UTC().Format(dateLayout))
	return err
}

// ListBySession returns a session's reports ordered by team then author.
func (s *SQLiteStore) ListBySession(ctx context.Context, sessionID string) ([]domain.Report, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE session_id = ? ORDER BY team_id ASC, user_name ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.Report
	for rows.Next() {
		r, err := scanReport(rows.Scan)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// UpdateImageURL attaches an infographic URL to a report.
// POST: domain.ErrNotFound if the report does not exist
func (s *SQLiteStore) UpdateImageURL(ctx context.Context, id, url string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE report SET image_url = ? WHERE id = ?`, url, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanReport(scan func(dest ...any) error) (domain.Report, error) {
	var r domain.Report
	c := &r.Content
	var submittedAt, createdAt, updatedAt string
	if err := scan(&r.ID, &r.SessionID, &r.TeamID, &r.UserName, &c.Title, &c.Members, &c.Contents,
		&c.Situation, &c.Definition, &c.Cause, &c.Solution, &c.Prevention, &c.Schedule, &r.ImageURL,
		&submittedAt, &createdAt, &updatedAt); err != nil {
		return domain.Report{}, err
	}
	r.SubmittedAt, _ = time.Parse(dateLayout, submittedAt)
	r.CreatedAt, _ = time.Parse(dateLayout, createdAt)
	r.UpdatedAt, _ = time.Parse(dateLayout, updatedAt)
	return r, nil
}
