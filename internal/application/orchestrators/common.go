package orchestrators

import (
	"context"
	"log/slog"

	"firesim/internal/domain/audit"
	"firesim/internal/domain/session"
)

// Notifier publishes fresh snapshots to connected clients after a command commits.
type Notifier interface {
	SessionsChanged(ctx context.Context)
	SessionChanged(ctx context.Context, sessionID string)
}

// AuditRecorder persists facilitator audit events.
type AuditRecorder interface {
	Save(ctx context.Context, e audit.Event) error
}

// SessionReader loads a session.
type SessionReader interface {
	GetByID(ctx context.Context, id string) (session.Session, error)
}

// Actor identifies who issued an admin command.
type Actor struct {
	Name string
	IP   string
}

// recordAudit saves e. Audit failures are logged and never fail the command.
func recordAudit(ctx context.Context, rec AuditRecorder, e audit.Event) {
	if rec == nil {
		return
	}
	if err := rec.Save(ctx, e); err != nil {
		slog.Error("audit_event", "event", "save_failed", "action", e.Action, "error", err)
	}
}

func notifySessions(ctx context.Context, n Notifier) {
	if n != nil {
		n.SessionsChanged(ctx)
	}
}

func notifySession(ctx context.Context, n Notifier, sessionID string) {
	if n != nil {
		n.SessionChanged(ctx, sessionID)
	}
}
