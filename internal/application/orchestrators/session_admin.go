package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"firesim/internal/domain/audit"
	"firesim/internal/domain/session"
)

// SessionStoreForOrchestrator defines the store interface needed by session admin commands.
type SessionStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (session.Session, error)
	Save(ctx context.Context, s session.Session) error
	Delete(ctx context.Context, id string) error
	SetReportEnabled(ctx context.Context, id string, enabled bool) error
	SetTimer(ctx context.Context, id string, running bool, endAt time.Time) error
}

// SessionAdminDeps holds dependencies shared by the session admin commands.
type SessionAdminDeps struct {
	SessionStore SessionStoreForOrchestrator
	Audit        AuditRecorder
	Notifier     Notifier
	GenerateID   func() string
	Now          func() time.Time
}

// --- Create Session ---

// CreateSessionInput carries input for the create session orchestrator.
type CreateSessionInput struct {
	GroupName  string
	TotalTeams int // 0 means session.DefaultTeams
	Actor      Actor
}

// ExecuteCreateSession creates a new training session.
// PRE: GroupName non-blank; TotalTeams within session bounds or zero
// POST: session persisted with report gate closed and timer stopped
func ExecuteCreateSession(ctx context.Context, input CreateSessionInput, deps SessionAdminDeps) (session.Session, error) {
	teams := input.TotalTeams
	if teams == 0 {
		teams = session.DefaultTeams
	}
	s := session.Session{
		ID:         deps.GenerateID(),
		GroupName:  strings.TrimSpace(input.GroupName),
		TotalTeams: teams,
		CreatedAt:  deps.Now(),
	}
	if err := s.Validate(); err != nil {
		return session.Session{}, err
	}
	if err := deps.SessionStore.Save(ctx, s); err != nil {
		return session.Session{}, fmt.Errorf("save session: %w", err)
	}

	slog.Info("session_event", "event", "session_created", "session_id", s.ID, "group", s.GroupName, "teams", s.TotalTeams)
	recordAudit(ctx, deps.Audit, audit.SessionEvent(s.CreatedAt, input.Actor.Name, audit.ActionCreate, s.ID).
		WithDescription(fmt.Sprintf("%s (%d teams)", s.GroupName, s.TotalTeams)).
		WithIP(input.Actor.IP))
	notifySessions(ctx, deps.Notifier)
	return s, nil
}

// --- Delete Session ---

// DeleteSessionInput carries input for the delete session orchestrator.
type DeleteSessionInput struct {
	SessionID string
	Actor     Actor
}

// ExecuteDeleteSession removes a session with its reports and participants.
// PRE: SessionID exists
// POST: nothing references the session; session.ErrNotFound if it was already gone
func ExecuteDeleteSession(ctx context.Context, input DeleteSessionInput, deps SessionAdminDeps) error {
	s, err := deps.SessionStore.GetByID(ctx, input.SessionID)
	if err != nil {
		return err
	}
	if err := deps.SessionStore.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	slog.Info("session_event", "event", "session_deleted", "session_id", s.ID, "group", s.GroupName)
	recordAudit(ctx, deps.Audit, audit.SessionEvent(deps.Now(), input.Actor.Name, audit.ActionDelete, s.ID).
		WithSeverity(audit.SeverityWarning).
		WithDescription(s.GroupName).
		WithIP(input.Actor.IP))
	notifySessions(ctx, deps.Notifier)
	notifySession(ctx, deps.Notifier, s.ID)
	return nil
}

// --- Report Gate ---

// SetReportGateInput carries input for opening or closing report submission.
type SetReportGateInput struct {
	SessionID string
	Enabled   bool
	Actor     Actor
}

// ExecuteSetReportGate opens or closes the report step for every student of a session.
// POST: returned session has ReportEnabled == input.Enabled
func ExecuteSetReportGate(ctx context.Context, input SetReportGateInput, deps SessionAdminDeps) (session.Session, error) {
	s, err := deps.SessionStore.GetByID(ctx, input.SessionID)
	if err != nil {
		return session.Session{}, err
	}
	s.SetReportEnabled(input.Enabled)
	if err := deps.SessionStore.SetReportEnabled(ctx, s.ID, s.ReportEnabled); err != nil {
		return session.Session{}, fmt.Errorf("update report gate: %w", err)
	}

	slog.Info("session_event", "event", "report_gate_changed", "session_id", s.ID, "enabled", s.ReportEnabled)
	recordAudit(ctx, deps.Audit, audit.SessionEvent(deps.Now(), input.Actor.Name, audit.ActionToggle, s.ID).
		WithDescription(fmt.Sprintf("report_enabled=%t", s.ReportEnabled)).
		WithIP(input.Actor.IP))
	notifySessions(ctx, deps.Notifier)
	notifySession(ctx, deps.Notifier, s.ID)
	return s, nil
}

// --- Timer ---

// StartTimerInput carries input for starting the countdown.
type StartTimerInput struct {
	SessionID string
	Duration  time.Duration // 0 means session.DefaultTimerDuration
	Actor     Actor
}

// ExecuteStartTimer starts or restarts the session countdown.
// POST: TimerEndAt == Now() + Duration and every client is notified
func ExecuteStartTimer(ctx context.Context, input StartTimerInput, deps SessionAdminDeps) (session.Session, error) {
	s, err := deps.SessionStore.GetByID(ctx, input.SessionID)
	if err != nil {
		return session.Session{}, err
	}
	d := input.Duration
	if d == 0 {
		d = session.DefaultTimerDuration
	}
	now := deps.Now()
	if err := s.StartTimer(now, d); err != nil {
		return session.Session{}, err
	}
	if err := deps.SessionStore.SetTimer(ctx, s.ID, true, s.TimerEndAt); err != nil {
		return session.Session{}, fmt.Errorf("start timer: %w", err)
	}

	slog.Info("session_event", "event", "timer_started", "session_id", s.ID, "duration", d.String(), "end_at", s.TimerEndAt)
	recordAudit(ctx, deps.Audit, audit.SessionEvent(now, input.Actor.Name, audit.ActionTimerStart, s.ID).
		WithDescription(d.String()).
		WithIP(input.Actor.IP))
	notifySession(ctx, deps.Notifier, s.ID)
	return s, nil
}

// StopTimerInput carries input for stopping the countdown.
type StopTimerInput struct {
	SessionID string
	Actor     Actor
}

// ExecuteStopTimer stops the session countdown.
// POST: TimerRunning is false
func ExecuteStopTimer(ctx context.Context, input StopTimerInput, deps SessionAdminDeps) (session.Session, error) {
	s, err := deps.SessionStore.GetByID(ctx, input.SessionID)
	if err != nil {
		return session.Session{}, err
	}
	s.StopTimer()
	if err := deps.SessionStore.SetTimer(ctx, s.ID, false, time.Time{}); err != nil {
		return session.Session{}, fmt.Errorf("stop timer: %w", err)
	}

	slog.Info("session_event", "event", "timer_stopped", "session_id", s.ID)
	recordAudit(ctx, deps.Audit, audit.SessionEvent(deps.Now(), input.Actor.Name, audit.ActionTimerStop, s.ID).
		WithIP(input.Actor.IP))
	notifySession(ctx, deps.Notifier, s.ID)
	return s, nil
}

// --- Demo Session ---

// Demo session identity, created on first start outside production.
const (
	DemoSessionID    = "default"
	DemoSessionGroup = "데모 교육 세션"
)

// ExecuteSeedDemoSession creates the demo session if it does not exist yet.
// POST: a session with DemoSessionID exists; existing data is never touched
func ExecuteSeedDemoSession(ctx context.Context, deps SessionAdminDeps) (bool, error) {
	if _, err := deps.SessionStore.GetByID(ctx, DemoSessionID); err == nil {
		return false, nil
	} else if !errors.Is(err, session.ErrNotFound) {
		return false, fmt.Errorf("check demo session: %w", err)
	}
	s := session.Session{
		ID:         DemoSessionID,
		GroupName:  DemoSessionGroup,
		TotalTeams: session.DefaultTeams,
		CreatedAt:  deps.Now(),
	}
	if err := deps.SessionStore.Save(ctx, s); err != nil {
		return false, fmt.Errorf("seed demo session: %w", err)
	}
	slog.Info("session_event", "event", "demo_session_seeded", "session_id", s.ID)
	return true, nil
}
