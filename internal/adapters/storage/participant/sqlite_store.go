package participant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"firesim/internal/adapters/storage"
	domain "firesim/internal/domain/participant"
)

const dateLayout = "2006-01-02T15:04:05.999999999Z07:00"

const selectColumns = `SELECT id, session_id, team_id, name, progress, notes, joined_at, updated_at FROM participant`

// SQLiteStore implements the participant Store interface using SQLite.
// Wizard progress and notes are stored as JSON documents.
type SQLiteStore struct {
	db storage.SQLDB
}

// NewSQLiteStore creates a new participant store.
func NewSQLiteStore(db storage.SQLDB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a participant by ID.
// PRE: id is non-empty
// POST: Returns the participant or domain.ErrNotFound
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Participant, error) {
	return s.getOne(ctx, selectColumns+` WHERE id = ?`, id)
}

// GetByIdentity finds a participant by session, team and name.
// PRE: sessionID and name are non-empty
// POST: Returns the participant or domain.ErrNotFound
func (s *SQLiteStore) GetByIdentity(ctx context.Context, sessionID string, teamID int, name string) (domain.Participant, error) {
	return s.getOne(ctx, selectColumns+` WHERE session_id = ? AND team_id = ? AND name = ?`, sessionID, teamID, name)
}

func (s *SQLiteStore) getOne(ctx context.Context, query string, args ...any) (domain.Participant, error) {
	p, err := scanParticipant(s.db.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Participant{}, domain.ErrNotFound
	}
	return p, err
}

// Save persists a participant.
// PRE: participant has been validated
// POST: Participant is persisted (insert or update); JoinedAt is never overwritten
func (s *SQLiteStore) Save(ctx context.Context, p domain.Participant) error {
	progress, err := json.Marshal(p.Progress)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	notes := p.Notes
	if notes == nil {
		notes = []string{}
	}
	notesJSON, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO participant (id, session_id, team_id, name, progress, notes, joined_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   progress=excluded.progress, notes=excluded.notes, updated_at=excluded.updated_at`,
		p.ID, p.SessionID, p.TeamID, p.Name, string(progress), string(notesJSON),
		p.JoinedAt.UTC().Format(dateLayout), p.UpdatedAt.UTC().Format(dateLayout))
	return err
}

// ListBySession returns a session's participants ordered by team then name.
func (s *SQLiteStore) ListBySession(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+` WHERE session_id = ? ORDER BY team_id ASC, name ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows.Scan)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func scanParticipant(scan func(dest ...any) error) (domain.Participant, error) {
	var p domain.Participant
	var progress, notes, joinedAt, updatedAt string
	if err := scan(&p.ID, &p.SessionID, &p.TeamID, &p.Name, &progress, &notes, &joinedAt, &updatedAt); err != nil {
		return domain.Participant{}, err
	}
	if err := json.Unmarshal([]byte(progress), &p.Progress); err != nil {
		return domain.Participant{}, fmt.Errorf("decode progress of %s: %w", p.ID, err)
	}
	if err := json.Unmarshal([]byte(notes), &p.Notes); err != nil {
		return domain.Participant{}, fmt.Errorf("decode notes of %s: %w", p.ID, err)
	}
	p.JoinedAt, _ = time.Parse(dateLayout, joinedAt)
	p.UpdatedAt, _ = time.Parse(dateLayout, updatedAt)
	return p, nil
}
