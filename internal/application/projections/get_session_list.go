package projections

import (
	"context"
	"sort"
	"time"

	domainSession "firesim/internal/domain/session"
)

// SessionSummary is one row of the session picker and the admin session list.
type SessionSummary struct {
	ID            string    `json:"id"`
	GroupName     string    `json:"groupName"`
	TotalTeams    int       `json:"totalTeams"`
	ReportEnabled bool      `json:"isReportEnabled"`
	TimerRunning  bool      `json:"isTimerRunning"`
	TimerEndAt    time.Time `json:"timerEndTime,omitzero"`
	CreatedAt     time.Time `json:"createdAt"`
}

// GetSessionListResult carries the query result.
type GetSessionListResult struct {
	Sessions []SessionSummary `json:"sessions"`
}

// GetSessionListDeps holds dependencies for GetSessionList.
type GetSessionListDeps struct {
	SessionStore SessionStore
}

// QueryGetSessionList lists every session.
// POST: sessions ordered by CreatedAt, newest first
func QueryGetSessionList(ctx context.Context, deps GetSessionListDeps) (GetSessionListResult, error) {
	sessions, err := deps.SessionStore.List(ctx)
	if err != nil {
		return GetSessionListResult{}, err
	}
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})

	result := GetSessionListResult{Sessions: make([]SessionSummary, 0, len(sessions))}
	for _, s := range sessions {
		result.Sessions = append(result.Sessions, summarize(s))
	}
	return result, nil
}

func summarize(s domainSession.Session) SessionSummary {
	return SessionSummary{
		ID:            s.ID,
		GroupName:     s.GroupName,
		TotalTeams:    s.TotalTeams,
		ReportEnabled: s.ReportEnabled,
		TimerRunning:  s.TimerRunning,
		TimerEndAt:    s.TimerEndAt,
		CreatedAt:     s.CreatedAt,
	}
}
