package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"firesim/internal/application/orchestrators"
	"firesim/internal/application/projections"
	domainParticipant "firesim/internal/domain/participant"
	domainReport "firesim/internal/domain/report"
	"firesim/internal/domain/scenario"
	"firesim/internal/domain/wizard"
)

// handleJoinPage renders the session picker and the join form (GET /join?session=<id>).
func handleJoinPage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data := map[string]any{"Error": r.URL.Query().Get("error")}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		list, err := projections.QueryGetSessionList(ctx, projections.GetSessionListDeps{SessionStore: stores.SessionStore})
		if err != nil {
			internalError(w, err)
			return
		}
		data["Sessions"] = list.Sessions
		renderTemplate(w, r, "join.html", data)
		return
	}

	summary, teams, err := projections.SessionForJoin(ctx, sessionID, stores.SessionStore)
	if err != nil {
		pageError(w, err)
		return
	}
	data["Session"] = summary
	data["Teams"] = teams
	renderTemplate(w, r, "join.html", data)
}

// handleJoinForm enters the student and redirects to the wizard (POST /join).
func handleJoinForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	sessionID := r.FormValue("session_id")
	team, _ := strconv.Atoi(r.FormValue("team"))
	p, _, err := orchestrators.ExecuteJoinSession(r.Context(), orchestrators.JoinSessionInput{
		SessionID: sessionID,
		TeamID:    team,
		Name:      r.FormValue("name"),
	}, joinDeps())
	if err != nil {
		if errorStatus(err) == http.StatusBadRequest {
			q := url.Values{"session": {sessionID}, "error": {err.Error()}}
			http.Redirect(w, r, "/join?"+q.Encode(), http.StatusSeeOther)
			return
		}
		pageError(w, err)
		return
	}
	http.Redirect(w, r, playURL(p.ID), http.StatusSeeOther)
}

func joinDeps() orchestrators.JoinSessionDeps {
	return orchestrators.JoinSessionDeps{
		SessionStore:     stores.SessionStore,
		ParticipantStore: stores.ParticipantStore,
		Notifier:         services.Notifier,
		GenerateID:       generateID,
		Now:              timeNow,
	}
}

// handlePlayPage renders the participant's current wizard step (GET /play/{pid}).
func handlePlayPage(w http.ResponseWriter, r *http.Request) {
	view, err := projections.QueryGetStudentView(r.Context(), projections.GetStudentViewQuery{
		ParticipantID: r.PathValue("pid"),
		Now:           timeNow(),
	}, studentViewDeps())
	if err != nil {
		pageError(w, err)
		return
	}
	renderTemplate(w, r, "play.html", map[string]any{
		"View":        view,
		"Progress":    view.Participant.Progress,
		"FactPool":    scenario.FactPool,
		"MinFacts":    scenario.MinFacts,
		"Whys":        scenario.Whys,
		"Incident":    incidentBrief(),
		"Error":       r.URL.Query().Get("error"),
		"Editing":     r.URL.Query().Get("edit") == "1",
		"MaxUploadMB": orchestrators.MaxUploadBytes >> 20,
	})
}

func incidentBrief() map[string]string {
	return map[string]string{
		"Date":     scenario.IncidentDate,
		"Location": scenario.IncidentLocation,
		"Damage":   scenario.IncidentDamage,
		"Order":    scenario.CEOOrder,
	}
}

// redirectPlay sends the student back to the wizard, carrying a validation error if any.
func redirectPlay(w http.ResponseWriter, r *http.Request, pid string, err error) {
	target := playURL(pid)
	if err != nil {
		target += "?error=" + url.QueryEscape(err.Error())
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// handleFormResult redirects on success and on client errors, and fails otherwise.
func handleFormResult(w http.ResponseWriter, r *http.Request, pid string, err error) {
	if err != nil {
		switch errorStatus(err) {
		case http.StatusBadRequest, http.StatusConflict, http.StatusForbidden, http.StatusRequestEntityTooLarge:
			redirectPlay(w, r, pid, err)
		default:
			pageError(w, err)
		}
		return
	}
	redirectPlay(w, r, pid, nil)
}

// wizardInputFromForm reads the fields of the action being submitted.
// Machines arrive as the indices of the checked switches.
func wizardInputFromForm(r *http.Request, pid string) orchestrators.WizardActionInput {
	input := orchestrators.WizardActionInput{
		ParticipantID: pid,
		Action:        orchestrators.WizardAction(r.FormValue("action")),
	}
	switch input.Action {
	case orchestrators.ActionSubmitFacts:
		input.Facts = r.Form["facts"]
	case orchestrators.ActionSubmitGap:
		input.Gap = wizard.Gap{Current: r.FormValue("gap_current"), Ideal: r.FormValue("gap_ideal")}
	case orchestrators.ActionSetMachines:
		input.Machines = make([]bool, len(scenario.InitialMachines()))
		for _, v := range r.Form["machines"] {
			if i, err := strconv.Atoi(v); err == nil && i >= 0 && i < len(input.Machines) {
				input.Machines[i] = true
			}
		}
	case orchestrators.ActionSubmitAnalysis:
		input.Whys = wizard.Whys{First: r.FormValue("why_first"), Second: r.FormValue("why_second")}
	case orchestrators.ActionSubmitSolutions:
		input.Solutions = wizard.Solutions{ShortTerm: r.FormValue("short_term"), Prevention: r.FormValue("prevention")}
	}
	return input
}

// handlePlayActionForm applies one wizard transition (POST /play/{pid}/action).
func handlePlayActionForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	pid := r.PathValue("pid")
	_, err := orchestrators.ExecuteWizardAction(r.Context(), wizardInputFromForm(r, pid), participantDeps())
	handleFormResult(w, r, pid, err)
}

// handlePlayAddNoteForm appends a private note (POST /play/{pid}/notes).
func handlePlayAddNoteForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	pid := r.PathValue("pid")
	_, err := orchestrators.ExecuteAddNote(r.Context(), orchestrators.AddNoteInput{
		ParticipantID: pid,
		Text:          r.FormValue("text"),
	}, participantDeps())
	handleFormResult(w, r, pid, err)
}

// handlePlayDeleteNoteForm removes a private note (POST /play/{pid}/notes/{index}/delete).
func handlePlayDeleteNoteForm(w http.ResponseWriter, r *http.Request) {
	pid := r.PathValue("pid")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		redirectPlay(w, r, pid, domainParticipant.ErrNoteIndex)
		return
	}
	_, err = orchestrators.ExecuteDeleteNote(r.Context(), orchestrators.DeleteNoteInput{
		ParticipantID: pid,
		Index:         index,
	}, participantDeps())
	handleFormResult(w, r, pid, err)
}

func contentFromForm(r *http.Request) domainReport.Content {
	return domainReport.Content{
		Title:      r.FormValue("title"),
		Members:    r.FormValue("members"),
		Contents:   r.FormValue("contents"),
		Situation:  r.FormValue("situation"),
		Definition: r.FormValue("definition"),
		Cause:      r.FormValue("cause"),
		Solution:   r.FormValue("solution"),
		Prevention: r.FormValue("prevention"),
		Schedule:   r.FormValue("schedule"),
	}
}

// submitForParticipant stores content as the participant's report.
func submitForParticipant(r *http.Request, pid string, content domainReport.Content) (domainReport.Report, error) {
	p, err := stores.ParticipantStore.GetByID(r.Context(), pid)
	if err != nil {
		return domainReport.Report{}, err
	}
	return orchestrators.ExecuteSubmitReport(r.Context(), orchestrators.SubmitReportInput{
		SessionID: p.SessionID,
		TeamID:    p.TeamID,
		UserName:  p.Name,
		Content:   content,
	}, submitReportDeps())
}

// participantReport loads the report the participant submitted.
func participantReport(r *http.Request, pid string) (domainReport.Report, error) {
	p, err := stores.ParticipantStore.GetByID(r.Context(), pid)
	if err != nil {
		return domainReport.Report{}, err
	}
	return stores.ReportStore.GetByIdentity(r.Context(), p.SessionID, p.TeamID, p.Name)
}

// handlePlaySubmitReportForm submits or edits the final report (POST /play/{pid}/report).
func handlePlaySubmitReportForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	pid := r.PathValue("pid")
	_, err := submitForParticipant(r, pid, contentFromForm(r))
	handleFormResult(w, r, pid, err)
}

// handlePlayInfographicForm renders the submitted report as an image (POST /play/{pid}/report/infographic).
func handlePlayInfographicForm(w http.ResponseWriter, r *http.Request) {
	pid := r.PathValue("pid")
	rep, err := participantReport(r, pid)
	if err != nil {
		handleFormResult(w, r, pid, err)
		return
	}
	_, _, err = orchestrators.ExecuteGenerateInfographic(r.Context(), orchestrators.GenerateInfographicInput{ReportID: rep.ID}, reportImageDeps())
	if isGeneratorError(err) {
		// Shown to the student, who can retry or upload an image instead.
		redirectPlay(w, r, pid, err)
		return
	}
	handleFormResult(w, r, pid, err)
}

// handlePlayUploadImageForm attaches an image chosen by the student (POST /play/{pid}/report/image).
func handlePlayUploadImageForm(w http.ResponseWriter, r *http.Request) {
	pid := r.PathValue("pid")
	data, err := readUpload(w, r)
	if err != nil {
		handleFormResult(w, r, pid, err)
		return
	}
	rep, err := participantReport(r, pid)
	if err != nil {
		handleFormResult(w, r, pid, err)
		return
	}
	_, err = orchestrators.ExecuteUploadReportImage(r.Context(), orchestrators.UploadReportImageInput{
		ReportID: rep.ID,
		Data:     data,
	}, reportImageDeps())
	handleFormResult(w, r, pid, err)
}

// readUpload reads the "image" part of a multipart form, capped at MaxUploadBytes.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, orchestrators.MaxUploadBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, orchestrators.ErrImageTooLarge
		}
		return nil, orchestrators.ErrUnsupportedImage
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		return nil, orchestrators.ErrUnsupportedImage
	}
	defer file.Close()
	return io.ReadAll(io.LimitReader(file, orchestrators.MaxUploadBytes+1))
}
