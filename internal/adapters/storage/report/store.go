package report

import (
	"context"

	domain "firesim/internal/domain/report"
)

// Store defines the interface for final report persistence.
type Store interface {
	// GetByID retrieves a report by ID.
	// POST: Returns the report or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Report, error)

	// GetByIdentity finds the report written by userName for team in sessionID.
	// POST: Returns the report or domain.ErrNotFound
	GetByIdentity(ctx context.Context, sessionID string, teamID int, userName string) (domain.Report, error)

	// Save persists a report, replacing the existing one for the same author.
	// PRE: report has been validated
	// INVARIANT: one row per (session, team, author)
	Save(ctx context.Context, r domain.Report) error

	// ListBySession returns the session's reports ordered by team then author.
	ListBySession(ctx context.Context, sessionID string) ([]domain.Report, error)

	// UpdateImageURL attaches an infographic to a report.
	// POST: domain.ErrNotFound if the report does not exist
	UpdateImageURL(ctx context.Context, id, url string) error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
