package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"firesim/internal/domain/participant"
	"firesim/internal/domain/wizard"
)

// ParticipantStoreForOrchestrator defines the store interface needed by student commands.
type ParticipantStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (participant.Participant, error)
	GetByIdentity(ctx context.Context, sessionID string, teamID int, name string) (participant.Participant, error)
	Save(ctx context.Context, p participant.Participant) error
}

// --- Join Session ---

// JoinSessionInput carries input for the join session orchestrator.
type JoinSessionInput struct {
	SessionID string
	TeamID    int
	Name      string
}

// JoinSessionDeps holds dependencies for JoinSession.
type JoinSessionDeps struct {
	SessionStore     SessionReader
	ParticipantStore ParticipantStoreForOrchestrator
	Notifier         Notifier
	GenerateID       func() string
	Now              func() time.Time
}

// ExecuteJoinSession enters a student into a session, resuming earlier progress
// when the same name already joined the same team.
// PRE: session exists; TeamID within the session's teams; Name non-blank
// POST: returns the participant and whether it was resumed
func ExecuteJoinSession(ctx context.Context, input JoinSessionInput, deps JoinSessionDeps) (participant.Participant, bool, error) {
	s, err := deps.SessionStore.GetByID(ctx, input.SessionID)
	if err != nil {
		return participant.Participant{}, false, err
	}
	name := strings.TrimSpace(input.Name)

	existing, err := deps.ParticipantStore.GetByIdentity(ctx, s.ID, input.TeamID, name)
	if err == nil {
		slog.Info("participant_event", "event", "participant_resumed", "session_id", s.ID, "team", input.TeamID, "participant_id", existing.ID)
		return existing, true, nil
	}
	if !errors.Is(err, participant.ErrNotFound) {
		return participant.Participant{}, false, fmt.Errorf("lookup participant: %w", err)
	}

	now := deps.Now()
	p := participant.Participant{
		ID:        deps.GenerateID(),
		SessionID: s.ID,
		TeamID:    input.TeamID,
		Name:      name,
		Progress:  wizard.NewProgress(),
		JoinedAt:  now,
		UpdatedAt: now,
	}
	if err := p.Validate(s); err != nil {
		return participant.Participant{}, false, err
	}
	if err := deps.ParticipantStore.Save(ctx, p); err != nil {
		return participant.Participant{}, false, fmt.Errorf("save participant: %w", err)
	}

	slog.Info("participant_event", "event", "participant_joined", "session_id", s.ID, "team", p.TeamID, "participant_id", p.ID)
	notifySession(ctx, deps.Notifier, s.ID)
	return p, false, nil
}

// --- Wizard ---

// WizardAction names a step transition.
type WizardAction string

// Wizard actions accepted by ExecuteWizardAction.
const (
	ActionStart           WizardAction = "start"
	ActionSkipToReport    WizardAction = "skip_to_report"
	ActionBackToIntro     WizardAction = "back_to_intro"
	ActionSubmitFacts     WizardAction = "submit_facts"
	ActionSubmitGap       WizardAction = "submit_gap"
	ActionSetMachines     WizardAction = "set_machines"
	ActionSubmitAnalysis  WizardAction = "submit_analysis"
	ActionSubmitSolutions WizardAction = "submit_solutions"
)

// ErrUnknownAction is returned for an action name the wizard does not know.
var ErrUnknownAction = errors.New("unknown wizard action")

// ParticipantDeps holds dependencies for commands on an existing participant.
type ParticipantDeps struct {
	ParticipantStore ParticipantStoreForOrchestrator
	Notifier         Notifier
	Now              func() time.Time
}

// WizardActionInput carries one wizard transition and the data it needs.
// Only the field matching Action is read.
type WizardActionInput struct {
	ParticipantID string
	Action        WizardAction
	Facts         []string
	Gap           wizard.Gap
	Machines      []bool
	Whys          wizard.Whys
	Solutions     wizard.Solutions
}

// ExecuteWizardAction applies a transition to a participant's progress.
// PRE: participant exists
// POST: progress persisted only when the transition succeeded
// INVARIANT: invalid transitions leave the stored progress unchanged
func ExecuteWizardAction(ctx context.Context, input WizardActionInput, deps ParticipantDeps) (participant.Participant, error) {
	p, err := deps.ParticipantStore.GetByID(ctx, input.ParticipantID)
	if err != nil {
		return participant.Participant{}, err
	}
	from := p.Progress.Step

	switch input.Action {
	case ActionStart:
		err = p.Progress.Start()
	case ActionSkipToReport:
		err = p.Progress.SkipToReport()
	case ActionBackToIntro:
		p.Progress.BackToIntro()
	case ActionSubmitFacts:
		err = p.Progress.SubmitFacts(input.Facts)
	case ActionSubmitGap:
		err = p.Progress.SubmitGap(input.Gap)
	case ActionSetMachines:
		err = p.Progress.SetMachines(input.Machines)
	case ActionSubmitAnalysis:
		err = p.Progress.SubmitAnalysis(input.Whys)
	case ActionSubmitSolutions:
		err = p.Progress.SubmitSolutions(input.Solutions)
	default:
		err = ErrUnknownAction
	}
	if err != nil {
		return participant.Participant{}, err
	}

	p.UpdatedAt = deps.Now()
	if err := deps.ParticipantStore.Save(ctx, p); err != nil {
		return participant.Participant{}, fmt.Errorf("save progress: %w", err)
	}

	if from != p.Progress.Step {
		slog.Info("participant_event", "event", "step_changed", "participant_id", p.ID,
			"from", from, "to", p.Progress.Step, "action", input.Action)
		notifySession(ctx, deps.Notifier, p.SessionID)
	}
	return p, nil
}

// --- Notes ---

// AddNoteInput carries input for adding a private note.
type AddNoteInput struct {
	ParticipantID string
	Text          string
}

// ExecuteAddNote appends a note to the participant's notepad.
// POST: note persisted at the end of the list
func ExecuteAddNote(ctx context.Context, input AddNoteInput, deps ParticipantDeps) (participant.Participant, error) {
	p, err := deps.ParticipantStore.GetByID(ctx, input.ParticipantID)
	if err != nil {
		return participant.Participant{}, err
	}
	if err := p.AddNote(input.Text); err != nil {
		return participant.Participant{}, err
	}
	p.UpdatedAt = deps.Now()
	if err := deps.ParticipantStore.Save(ctx, p); err != nil {
		return participant.Participant{}, fmt.Errorf("save note: %w", err)
	}
	return p, nil
}

// DeleteNoteInput carries input for removing a private note.
type DeleteNoteInput struct {
	ParticipantID string
	Index         int
}

// ExecuteDeleteNote removes a note by position.
// PRE: 0 <= Index < number of notes
func ExecuteDeleteNote(ctx context.Context, input DeleteNoteInput, deps ParticipantDeps) (participant.Participant, error) {
	p, err := deps.ParticipantStore.GetByID(ctx, input.ParticipantID)
	if err != nil {
		return participant.Participant{}, err
	}
	if err := p.DeleteNote(input.Index); err != nil {
		return participant.Participant{}, err
	}
	p.UpdatedAt = deps.Now()
	if err := deps.ParticipantStore.Save(ctx, p); err != nil {
		return participant.Participant{}, fmt.Errorf("delete note: %w", err)
	}
	return p, nil
}
