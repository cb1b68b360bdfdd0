package projections

import (
	"context"
	"time"

	domainParticipant "firesim/internal/domain/participant"
	domainReport "firesim/internal/domain/report"
	domainSession "firesim/internal/domain/session"
	"firesim/internal/domain/wizard"
)

var fixedTime = time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

type mockSessionStore struct {
	sessions []domainSession.Session
}

func (m *mockSessionStore) GetByID(_ context.Context, id string) (domainSession.Session, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			return s, nil
		}
	}
	return domainSession.Session{}, domainSession.ErrNotFound
}

func (m *mockSessionStore) List(context.Context) ([]domainSession.Session, error) {
	return append([]domainSession.Session(nil), m.sessions...), nil
}

type mockParticipantStore struct {
	participants []domainParticipant.Participant
}

func (m *mockParticipantStore) GetByID(_ context.Context, id string) (domainParticipant.Participant, error) {
	for _, p := range m.participants {
		if p.ID == id {
			return p, nil
		}
	}
	return domainParticipant.Participant{}, domainParticipant.ErrNotFound
}

func (m *mockParticipantStore) ListBySession(_ context.Context, sessionID string) ([]domainParticipant.Participant, error) {
	var out []domainParticipant.Participant
	for _, p := range m.participants {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockReportStore struct {
	reports []domainReport.Report
}

func (m *mockReportStore) GetByID(_ context.Context, id string) (domainReport.Report, error) {
	for _, r := range m.reports {
		if r.ID == id {
			return r, nil
		}
	}
	return domainReport.Report{}, domainReport.ErrNotFound
}

func (m *mockReportStore) GetByIdentity(_ context.Context, sessionID string, teamID int, userName string) (domainReport.Report, error) {
	for _, r := range m.reports {
		if r.SessionID == sessionID && r.TeamID == teamID && r.UserName == userName {
			return r, nil
		}
	}
	return domainReport.Report{}, domainReport.ErrNotFound
}

func (m *mockReportStore) ListBySession(_ context.Context, sessionID string) ([]domainReport.Report, error) {
	var out []domainReport.Report
	for _, r := range m.reports {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func testParticipant(id string, team int, name string, step wizard.Step) domainParticipant.Participant {
	p := domainParticipant.Participant{ID: id, SessionID: "s1", TeamID: team, Name: name, Progress: wizard.NewProgress(), JoinedAt: fixedTime, UpdatedAt: fixedTime}
	p.Progress.Step = step
	return p
}

func testReport(id string, team int, user string) domainReport.Report {
	return domainReport.Report{
		ID: id, SessionID: "s1", TeamID: team, UserName: user,
		Content:     domainReport.Content{Title: domainReport.DefaultTitle(team), Members: user, Cause: "과부하"},
		SubmittedAt: fixedTime, CreatedAt: fixedTime, UpdatedAt: fixedTime,
	}
}
