// Package audit persists the facilitator audit trail.
package audit

import (
	"context"
	"time"

	domain "firesim/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
type Store interface {
	// PRE: event passes Validate
	Save(ctx context.Context, event domain.Event) error

	// List returns matching events, newest first.
	// PRE: limit > 0
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)

	// Prune deletes events older than before and reports how many went.
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Filter narrows an audit listing. Zero fields match everything.
type Filter struct {
	Category   domain.Category
	Action     domain.Action
	ResourceID string
	Since      time.Time
}

var _ Store = (*SQLiteStore)(nil)
