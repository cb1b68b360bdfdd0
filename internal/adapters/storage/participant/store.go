package participant

import (
	"context"

	domain "firesim/internal/domain/participant"
)

// Store defines the interface for participant persistence.
type Store interface {
	// GetByID retrieves a participant by ID.
	// POST: Returns the participant or domain.ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Participant, error)

	// GetByIdentity finds the participant that joined sessionID as name in team.
	// POST: Returns the participant or domain.ErrNotFound
	GetByIdentity(ctx context.Context, sessionID string, teamID int, name string) (domain.Participant, error)

	// Save persists a participant, progress and notes included.
	// PRE: participant has been validated
	Save(ctx context.Context, p domain.Participant) error

	// ListBySession returns the session's participants ordered by team then name.
	ListBySession(ctx context.Context, sessionID string) ([]domain.Participant, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
