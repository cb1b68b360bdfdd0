package participant

import (
	"errors"
	"strings"
	"time"

	"firesim/internal/domain/session"
	"firesim/internal/domain/wizard"
)

// MaxNotes caps the number of private notes a participant can keep.
const MaxNotes = 50

// Domain errors
var (
	ErrEmptySessionID = errors.New("session is required")
	ErrEmptyName      = errors.New("name is required")
	ErrInvalidTeam    = errors.New("team is not part of this session")
	ErrEmptyNote      = errors.New("note cannot be empty")
	ErrNoteIndex      = errors.New("note does not exist")
	ErrTooManyNotes   = errors.New("note limit reached")
	ErrNotFound       = errors.New("participant not found")
)

// Participant is a student who joined a session as a member of a team.
// A participant is identified by (SessionID, TeamID, Name); joining again with
// the same triple resumes the stored progress.
type Participant struct {
	ID        string
	SessionID string
	TeamID    int
	Name      string
	Progress  wizard.Progress
	Notes     []string
	JoinedAt  time.Time
	UpdatedAt time.Time
}

// Validate checks the participant against the session it belongs to.
// PRE: Participant struct is populated; s is the session SessionID refers to
// POST: Returns nil if valid, error otherwise
func (p *Participant) Validate(s session.Session) error {
	if p.SessionID == "" {
		return ErrEmptySessionID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if !s.HasTeam(p.TeamID) {
		return ErrInvalidTeam
	}
	return nil
}

// TeamName returns the display name of the participant's team.
func (p *Participant) TeamName() string {
	return session.TeamName(p.TeamID)
}

// AddNote appends a trimmed private note.
// PRE: text is non-blank
// POST: note appended at the end of Notes
func (p *Participant) AddNote(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyNote
	}
	if len(p.Notes) >= MaxNotes {
		return ErrTooManyNotes
	}
	p.Notes = append(p.Notes, text)
	return nil
}

// DeleteNote removes the note at index.
// PRE: 0 <= index < len(Notes)
// POST: note removed, order of the rest preserved
func (p *Participant) DeleteNote(index int) error {
	if index < 0 || index >= len(p.Notes) {
		return ErrNoteIndex
	}
	p.Notes = append(p.Notes[:index:index], p.Notes[index+1:]...)
	return nil
}
