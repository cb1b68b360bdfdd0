package session

import (
	"context"
	"time"

	domain "firesim/internal/domain/session"
)

// Store defines the interface for training session persistence.
type Store interface {
	// GetByID retrieves a session by its ID.
	// PRE: id is non-empty
	// POST: Returns the session or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Session, error)

	// Save persists a session (insert or update).
	// PRE: session has been validated
	// POST: Session is persisted
	Save(ctx context.Context, s domain.Session) error

	// Delete removes a session together with its participants and reports.
	// PRE: id is non-empty
	// POST: no rows reference the session; domain.ErrNotFound if it did not exist
	Delete(ctx context.Context, id string) error

	// List returns all sessions, newest first.
	List(ctx context.Context) ([]domain.Session, error)

	// SetReportEnabled updates only the report gate.
	SetReportEnabled(ctx context.Context, id string, enabled bool) error

	// SetTimer updates only the timer fields. A zero endAt clears the end time.
	SetTimer(ctx context.Context, id string, running bool, endAt time.Time) error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
