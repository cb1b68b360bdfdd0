package projections

import (
	"context"
	"errors"
	"time"

	domainParticipant "firesim/internal/domain/participant"
	domainReport "firesim/internal/domain/report"
	"firesim/internal/domain/scenario"
	"firesim/internal/domain/wizard"
)

// GetStudentViewQuery carries input for the student view projection.
type GetStudentViewQuery struct {
	ParticipantID string
	Now           time.Time
}

// GetStudentViewDeps holds dependencies for the student view projection.
type GetStudentViewDeps struct {
	SessionStore     SessionStore
	ParticipantStore ParticipantStore
	ReportStore      ReportStore
	InfoCards        []string // nil means scenario.DefaultInfoCards
}

// StudentView is everything the wizard page needs to render the current step.
type StudentView struct {
	Session     SessionSummary                `json:"session"`
	Participant domainParticipant.Participant `json:"-"`
	TeamName    string                        `json:"teamName"`
	Step        wizard.Step                   `json:"step"`
	Percent     int                           `json:"percent"`
	Guide       *scenario.Guide               `json:"guide,omitempty"`
	Cards       []string                      `json:"cards"`
	Notes       []string                      `json:"notes"`
	Countdown   string                        `json:"countdown"`
	Urgent      bool                          `json:"urgent"`

	// Analysis step
	TotalWatts int  `json:"totalWatts"`
	MaxWatts   int  `json:"maxWatts"`
	Overloaded bool `json:"overloaded"`

	// Report step
	ReportLocked bool                 `json:"reportLocked"`
	Draft        domainReport.Content `json:"draft"`
	Submitted    *domainReport.Report `json:"submitted,omitempty"`
}

// QueryGetStudentView assembles the wizard page for a participant.
// PRE: participant and its session exist
// POST: Draft is the author's submitted content when a report exists, else the prefill from progress
// INVARIANT: ReportLocked mirrors the session's report gate
func QueryGetStudentView(ctx context.Context, query GetStudentViewQuery, deps GetStudentViewDeps) (StudentView, error) {
	p, err := deps.ParticipantStore.GetByID(ctx, query.ParticipantID)
	if err != nil {
		return StudentView{}, err
	}
	s, err := deps.SessionStore.GetByID(ctx, p.SessionID)
	if err != nil {
		return StudentView{}, err
	}

	cards := deps.InfoCards
	if cards == nil {
		cards = scenario.DefaultInfoCards()
	}
	notes := p.Notes
	if notes == nil {
		notes = []string{}
	}

	view := StudentView{
		Session:      summarize(s),
		Participant:  p,
		TeamName:     p.TeamName(),
		Step:         p.Progress.Step,
		Percent:      p.Progress.Percent(),
		Cards:        scenario.CardsForTeam(cards, p.TeamID, s.TotalTeams),
		Notes:        notes,
		Countdown:    s.CountdownLabel(query.Now),
		Urgent:       s.IsUrgent(query.Now),
		TotalWatts:   p.Progress.TotalWatts(),
		MaxWatts:     scenario.MaxPowerWatts,
		Overloaded:   scenario.IsOverloaded(p.Progress.Machines),
		ReportLocked: !s.ReportEnabled,
		Draft:        domainReport.DraftFrom(p),
	}
	if g, ok := scenario.GuideFor(string(p.Progress.Step)); ok {
		view.Guide = &g
	}

	submitted, err := deps.ReportStore.GetByIdentity(ctx, s.ID, p.TeamID, p.Name)
	switch {
	case err == nil:
		view.Submitted = &submitted
		view.Draft = submitted.Content
	case !errors.Is(err, domainReport.ErrNotFound):
		return StudentView{}, err
	}
	return view, nil
}

// SessionForJoin returns the session summary with its team numbers for the join form.
func SessionForJoin(ctx context.Context, sessionID string, store SessionStore) (SessionSummary, []int, error) {
	s, err := store.GetByID(ctx, sessionID)
	if err != nil {
		return SessionSummary{}, nil, err
	}
	return summarize(s), s.TeamNumbers(), nil
}
