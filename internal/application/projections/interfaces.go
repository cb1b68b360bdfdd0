package projections

import (
	"context"

	domainParticipant "firesim/internal/domain/participant"
	domainReport "firesim/internal/domain/report"
	domainSession "firesim/internal/domain/session"
)

// SessionStore interface for session queries.
type SessionStore interface {
	GetByID(ctx context.Context, id string) (domainSession.Session, error)
	List(ctx context.Context) ([]domainSession.Session, error)
}

// ParticipantStore interface for participant queries.
type ParticipantStore interface {
	GetByID(ctx context.Context, id string) (domainParticipant.Participant, error)
	ListBySession(ctx context.Context, sessionID string) ([]domainParticipant.Participant, error)
}

// ReportStore interface for report queries.
type ReportStore interface {
	GetByID(ctx context.Context, id string) (domainReport.Report, error)
	GetByIdentity(ctx context.Context, sessionID string, teamID int, userName string) (domainReport.Report, error)
	ListBySession(ctx context.Context, sessionID string) ([]domainReport.Report, error)
}
