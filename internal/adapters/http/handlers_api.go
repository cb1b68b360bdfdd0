package web

import (
	"net/http"
	"strconv"
	"time"

	"firesim/internal/adapters/imagegen"
	"firesim/internal/application/orchestrators"
	"firesim/internal/application/projections"
	domainReport "firesim/internal/domain/report"
	"firesim/internal/domain/session"
	"firesim/internal/domain/wizard"
)

// --- Sessions ---

// handleAPIListSessions returns every session, newest first (GET /api/sessions).
func handleAPIListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := projections.QueryGetSessionList(r.Context(), projections.GetSessionListDeps{SessionStore: stores.SessionStore})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// CreateSessionRequest is the body of POST /api/sessions.
type CreateSessionRequest struct {
	GroupName  string `json:"groupName"`
	TotalTeams int    `json:"totalTeams"`
}

// handleAPICreateSession creates a session (POST /api/sessions).
// PRE: admin session
// POST: 201 with the session summary
func handleAPICreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := strictDecode(r, &req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s, err := orchestrators.ExecuteCreateSession(r.Context(), orchestrators.CreateSessionInput{
		GroupName:  req.GroupName,
		TotalTeams: req.TotalTeams,
		Actor:      actorFrom(r),
	}, sessionAdminDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	summary, _, err := projections.SessionForJoin(r.Context(), s.ID, stores.SessionStore)
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

// handleAPIGetSession returns the session and its team numbers for the join form (GET /api/sessions/{id}).
func handleAPIGetSession(w http.ResponseWriter, r *http.Request) {
	summary, teams, err := projections.SessionForJoin(r.Context(), r.PathValue("id"), stores.SessionStore)
	if err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session": summary, "teams": teams})
}

// handleAPIDeleteSession deletes a session with its reports and participants (DELETE /api/sessions/{id}).
func handleAPIDeleteSession(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteDeleteSession(r.Context(), orchestrators.DeleteSessionInput{
		SessionID: r.PathValue("id"),
		Actor:     actorFrom(r),
	}, sessionAdminDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAPIDashboard returns the facilitator view of a session (GET /api/sessions/{id}/dashboard).
func handleAPIDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := projections.QueryGetSessionDashboard(r.Context(), projections.GetSessionDashboardQuery{
		SessionID: r.PathValue("id"),
		Now:       timeNow(),
	}, dashboardDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// handleAPIReportGate opens or closes report submission (PUT /api/sessions/{id}/report-gate).
func handleAPIReportGate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := strictDecode(r, &req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	s, err := orchestrators.ExecuteSetReportGate(r.Context(), orchestrators.SetReportGateInput{
		SessionID: r.PathValue("id"),
		Enabled:   req.Enabled,
		Actor:     actorFrom(r),
	}, sessionAdminDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isReportEnabled": s.ReportEnabled})
}

// TimerRequest is the body of POST /api/sessions/{id}/timer.
// Minutes zero starts the default duration.
type TimerRequest struct {
	Action  string `json:"action"` // "start" or "stop"
	Minutes int    `json:"minutes"`
}

// handleAPITimer starts or stops the countdown (POST /api/sessions/{id}/timer).
func handleAPITimer(w http.ResponseWriter, r *http.Request) {
	var req TimerRequest
	if err := strictDecode(r, &req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Action != "start" && req.Action != "stop" {
		sendJSONError(w, "action must be start or stop", http.StatusBadRequest)
		return
	}
	if req.Minutes < 0 {
		sendJSONError(w, session.ErrInvalidDuration.Error(), http.StatusBadRequest)
		return
	}
	minutes := ""
	if req.Minutes > 0 {
		minutes = strconv.Itoa(req.Minutes)
	}
	if err := applyTimer(r, r.PathValue("id"), req.Action, minutes); err != nil {
		apiError(w, err)
		return
	}
	s, err := stores.SessionStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		apiError(w, err)
		return
	}
	now := timeNow()
	writeJSON(w, http.StatusOK, map[string]any{
		"isTimerRunning": s.TimerRunning,
		"timerEndTime":   s.TimerEndAt,
		"countdown":      s.CountdownLabel(now),
		"remaining":      int(s.Remaining(now) / time.Second),
	})
}

// --- Participants ---

// JoinRequest is the body of POST /api/participants.
type JoinRequest struct {
	SessionID string `json:"sessionId"`
	TeamID    int    `json:"teamId"`
	Name      string `json:"name"`
}

// handleAPIJoin enters a student into a session (POST /api/participants).
// POST: 201 for a new participant, 200 when earlier progress was resumed
func handleAPIJoin(w http.ResponseWriter, r *http.Request) {
	var req JoinRequest
	if err := strictDecode(r, &req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, resumed, err := orchestrators.ExecuteJoinSession(r.Context(), orchestrators.JoinSessionInput{
		SessionID: req.SessionID,
		TeamID:    req.TeamID,
		Name:      req.Name,
	}, joinDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"participantId": p.ID,
		"resumed":       resumed,
		"playUrl":       playURL(p.ID),
	})
}

// writeStudentView responds with the participant's current wizard state.
func writeStudentView(w http.ResponseWriter, r *http.Request, pid string) {
	view, err := projections.QueryGetStudentView(r.Context(), projections.GetStudentViewQuery{
		ParticipantID: pid,
		Now:           timeNow(),
	}, studentViewDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleAPIStudentView returns the wizard state (GET /api/participants/{pid}).
func handleAPIStudentView(w http.ResponseWriter, r *http.Request) {
	writeStudentView(w, r, r.PathValue("pid"))
}

// WizardActionRequest is the body of POST /api/participants/{pid}/actions.
// Only the field matching Action is read.
type WizardActionRequest struct {
	Action    string           `json:"action"`
	Facts     []string         `json:"facts,omitempty"`
	Gap       wizard.Gap       `json:"gap"`
	Machines  []bool           `json:"machines,omitempty"`
	Whys      wizard.Whys      `json:"whys"`
	Solutions wizard.Solutions `json:"solutions"`
}

// handleAPIWizardAction applies one wizard transition (POST /api/participants/{pid}/actions).
func handleAPIWizardAction(w http.ResponseWriter, r *http.Request) {
	var req WizardActionRequest
	if err := strictDecode(r, &req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	pid := r.PathValue("pid")
	_, err := orchestrators.ExecuteWizardAction(r.Context(), orchestrators.WizardActionInput{
		ParticipantID: pid,
		Action:        orchestrators.WizardAction(req.Action),
		Facts:         req.Facts,
		Gap:           req.Gap,
		Machines:      req.Machines,
		Whys:          req.Whys,
		Solutions:     req.Solutions,
	}, participantDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	writeStudentView(w, r, pid)
}

// handleAPIAddNote appends a private note (POST /api/participants/{pid}/notes).
func handleAPIAddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := strictDecode(r, &req); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := orchestrators.ExecuteAddNote(r.Context(), orchestrators.AddNoteInput{
		ParticipantID: r.PathValue("pid"),
		Text:          req.Text,
	}, participantDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"notes": p.Notes})
}

// handleAPIDeleteNote removes a private note (DELETE /api/participants/{pid}/notes/{index}).
func handleAPIDeleteNote(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		sendJSONError(w, "invalid note index", http.StatusBadRequest)
		return
	}
	p, err := orchestrators.ExecuteDeleteNote(r.Context(), orchestrators.DeleteNoteInput{
		ParticipantID: r.PathValue("pid"),
		Index:         index,
	}, participantDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	notes := p.Notes
	if notes == nil {
		notes = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes})
}

// handleAPISubmitReport stores the participant's final report (POST /api/participants/{pid}/report).
// POST: 200 with the stored report; 403 while the report gate is closed
func handleAPISubmitReport(w http.ResponseWriter, r *http.Request) {
	var content domainReport.Content
	if err := strictDecode(r, &content); err != nil {
		sendJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	rep, err := submitForParticipant(r, r.PathValue("pid"), content)
	if err != nil {
		apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleAPIInfographic renders a submitted report as an image and attaches it
// (POST /api/reports/{id}/infographic). Generator failures use the proxy's status mapping.
func handleAPIInfographic(w http.ResponseWriter, r *http.Request) {
	rep, img, err := orchestrators.ExecuteGenerateInfographic(r.Context(), orchestrators.GenerateInfographicInput{
		ReportID: r.PathValue("id"),
	}, reportImageDeps())
	if err != nil {
		if isGeneratorError(err) {
			sendJSONError(w, generatorMessage(err), imagegen.StatusCode(err))
			return
		}
		apiError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"imageBase64":    img.Base64,
		"mimeType":       img.MIMEType,
		"reportImageUrl": rep.ImageURL,
	})
}
