// Package outbox persists queued notifications.
package outbox

import (
	"context"
	"errors"
	"time"

	domain "firesim/internal/domain/outbox"
)

// ErrNotFound is returned when an entry does not exist.
var ErrNotFound = errors.New("outbox entry not found")

// Store defines the interface for outbox entry persistence.
type Store interface {
	// POST: Returns the entry or ErrNotFound
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save inserts e or updates its delivery state. Payload and action type
	// never change after the first insert.
	// PRE: entry has been validated
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns entries still eligible for delivery, oldest first.
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListByStatus returns entries in one status, most recently attempted first.
	ListByStatus(ctx context.Context, status string, limit int) ([]domain.Entry, error)

	CountByStatus(ctx context.Context) (map[string]int, error)

	// PurgeDone deletes delivered entries created before the cutoff.
	PurgeDone(ctx context.Context, before time.Time) (int64, error)
}

var _ Store = (*SQLiteStore)(nil)
