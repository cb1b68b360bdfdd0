package projections

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	domainParticipant "firesim/internal/domain/participant"
	domainReport "firesim/internal/domain/report"
	domainSession "firesim/internal/domain/session"
	"firesim/internal/domain/wizard"
)

// GetSessionDashboardQuery carries input for the dashboard projection.
type GetSessionDashboardQuery struct {
	SessionID string
	Now       time.Time
}

// GetSessionDashboardDeps holds dependencies for the dashboard projection.
type GetSessionDashboardDeps struct {
	SessionStore     SessionStore
	ParticipantStore ParticipantStore
	ReportStore      ReportStore
}

// ParticipantStatus is a student's position in the wizard.
type ParticipantStatus struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Step      wizard.Step `json:"step"`
	Percent   int         `json:"percent"`
	Notes     int         `json:"notes"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// TeamStatus groups a team's participants and submitted reports.
type TeamStatus struct {
	TeamID       int                 `json:"teamId"`
	TeamName     string              `json:"teamName"`
	Participants []ParticipantStatus `json:"participants"`
	Reports      int                 `json:"reports"`
}

// DashboardResult carries the output of the dashboard projection.
type DashboardResult struct {
	Session          SessionSummary        `json:"session"`
	Reports          []domainReport.Report `json:"reports"`
	Teams            []TeamStatus          `json:"teams"`
	SubmittedCount   int                   `json:"submittedCount"`
	SubmittedPercent int                   `json:"submittedPercent"`
	Countdown        string                `json:"countdown"`
	Urgent           bool                  `json:"urgent"`
}

// QueryGetSessionDashboard builds the facilitator view of one session.
// PRE: session exists
// POST: Reports sorted by team ascending then author; Teams holds one entry per team 1..TotalTeams
// INVARIANT: SubmittedPercent is capped at 100
func QueryGetSessionDashboard(ctx context.Context, query GetSessionDashboardQuery, deps GetSessionDashboardDeps) (DashboardResult, error) {
	s, err := deps.SessionStore.GetByID(ctx, query.SessionID)
	if err != nil {
		return DashboardResult{}, err
	}

	var (
		reports      []domainReport.Report
		participants []domainParticipant.Participant
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		reports, err = deps.ReportStore.ListBySession(gctx, s.ID)
		return err
	})
	g.Go(func() (err error) {
		participants, err = deps.ParticipantStore.ListBySession(gctx, s.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return DashboardResult{}, err
	}
	return buildDashboard(s, reports, participants, query.Now), nil
}

func buildDashboard(s domainSession.Session, reports []domainReport.Report, participants []domainParticipant.Participant, now time.Time) DashboardResult {
	sort.SliceStable(reports, func(i, j int) bool {
		if reports[i].TeamID != reports[j].TeamID {
			return reports[i].TeamID < reports[j].TeamID
		}
		return reports[i].UserName < reports[j].UserName
	})

	teams := make([]TeamStatus, 0, s.TotalTeams)
	index := make(map[int]int, s.TotalTeams)
	for _, n := range s.TeamNumbers() {
		index[n] = len(teams)
		teams = append(teams, TeamStatus{TeamID: n, TeamName: domainSession.TeamName(n), Participants: []ParticipantStatus{}})
	}
	for _, p := range participants {
		i, ok := index[p.TeamID]
		if !ok {
			continue
		}
		teams[i].Participants = append(teams[i].Participants, ParticipantStatus{
			ID:        p.ID,
			Name:      p.Name,
			Step:      p.Progress.Step,
			Percent:   p.Progress.Percent(),
			Notes:     len(p.Notes),
			UpdatedAt: p.UpdatedAt,
		})
	}
	for _, r := range reports {
		if i, ok := index[r.TeamID]; ok {
			teams[i].Reports++
		}
	}

	percent := 0
	if s.TotalTeams > 0 {
		percent = min(100, len(reports)*100/s.TotalTeams)
	}
	if reports == nil {
		reports = []domainReport.Report{}
	}
	return DashboardResult{
		Session:          summarize(s),
		Reports:          reports,
		Teams:            teams,
		SubmittedCount:   len(reports),
		SubmittedPercent: percent,
		Countdown:        s.CountdownLabel(now),
		Urgent:           s.IsUrgent(now),
	}
}
