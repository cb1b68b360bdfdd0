package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"firesim/internal/adapters/http/middleware"
	"firesim/internal/application/orchestrators"
	"firesim/internal/application/projections"
	auditDomain "firesim/internal/domain/audit"
	"firesim/internal/domain/session"
)

// handleIndex renders the role picker.
func handleIndex(w http.ResponseWriter, r *http.Request) {
	list, err := projections.QueryGetSessionList(r.Context(), projections.GetSessionListDeps{SessionStore: stores.SessionStore})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "index.html", map[string]any{
		"Sessions": list.Sessions,
	})
}

// handleAdminLoginPage renders the password form (GET /admin/login).
func handleAdminLoginPage(w http.ResponseWriter, r *http.Request) {
	if middleware.IsAdmin(r.Context()) {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	renderTemplate(w, r, "admin_login.html", map[string]any{})
}

// handleAdminLogin checks the password and opens an admin session (POST /admin/login).
// PRE: form or JSON body with password
// POST: admin cookie set on success; 401 otherwise
func handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var password string
	jsonBody := isJSONRequest(r)
	if jsonBody {
		var body struct {
			Password string `json:"password"`
		}
		if err := strictDecode(r, &body); err != nil {
			sendJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}
		password = body.Password
	} else {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form submission", http.StatusBadRequest)
			return
		}
		password = r.FormValue("password")
	}

	ip := middleware.ClientIP(r)
	err := orchestrators.ExecuteAdminLogin(r.Context(), orchestrators.AdminLoginInput{Password: password, IP: ip}, loginDeps())
	if err != nil {
		if jsonBody {
			sendJSONError(w, err.Error(), http.StatusUnauthorized)
			return
		}
		renderTemplateStatus(w, r, http.StatusUnauthorized, "admin_login.html", map[string]any{"Error": err.Error()})
		return
	}

	token, err := sessions.Create(middleware.RoleAdmin, ip)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	if jsonBody {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleAdminLogout ends the admin session (POST /admin/logout).
func handleAdminLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		if middleware.IsAdmin(r.Context()) {
			orchestrators.ExecuteAdminLogout(r.Context(), actorFrom(r), loginDeps())
		}
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func loginDeps() orchestrators.AdminLoginDeps {
	return orchestrators.AdminLoginDeps{
		PasswordHash: services.PasswordHash,
		Audit:        stores.AuditStore,
		Now:          timeNow,
	}
}

// handleAdminSessionsPage lists sessions with the create form (GET /admin).
func handleAdminSessionsPage(w http.ResponseWriter, r *http.Request) {
	list, err := projections.QueryGetSessionList(r.Context(), projections.GetSessionListDeps{SessionStore: stores.SessionStore})
	if err != nil {
		internalError(w, err)
		return
	}
	renderTemplate(w, r, "admin_sessions.html", map[string]any{
		"Sessions":     list.Sessions,
		"DefaultTeams": session.DefaultTeams,
		"MinTeams":     session.MinTeams,
		"MaxTeams":     session.MaxTeams,
		"Error":        r.URL.Query().Get("error"),
	})
}

// handleAdminCreateSessionForm creates a session from the admin form (POST /admin/sessions).
func handleAdminCreateSessionForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	teams, _ := strconv.Atoi(r.FormValue("total_teams"))
	s, err := orchestrators.ExecuteCreateSession(r.Context(), orchestrators.CreateSessionInput{
		GroupName:  r.FormValue("group_name"),
		TotalTeams: teams,
		Actor:      actorFrom(r),
	}, sessionAdminDeps())
	if err != nil {
		if errorStatus(err) == http.StatusBadRequest {
			http.Redirect(w, r, "/admin?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
			return
		}
		pageError(w, err)
		return
	}
	http.Redirect(w, r, "/admin/sessions/"+s.ID, http.StatusSeeOther)
}

// handleAdminDeleteSessionForm deletes a session (POST /admin/sessions/{id}/delete).
// The confirmation dialog lives in the page.
func handleAdminDeleteSessionForm(w http.ResponseWriter, r *http.Request) {
	err := orchestrators.ExecuteDeleteSession(r.Context(), orchestrators.DeleteSessionInput{
		SessionID: r.PathValue("id"),
		Actor:     actorFrom(r),
	}, sessionAdminDeps())
	if err != nil {
		pageError(w, err)
		return
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// handleAdminDashboardPage renders the facilitator dashboard (GET /admin/sessions/{id}).
func handleAdminDashboardPage(w http.ResponseWriter, r *http.Request) {
	dash, err := projections.QueryGetSessionDashboard(r.Context(), projections.GetSessionDashboardQuery{
		SessionID: r.PathValue("id"),
		Now:       timeNow(),
	}, dashboardDeps())
	if err != nil {
		pageError(w, err)
		return
	}
	renderTemplate(w, r, "admin_dashboard.html", map[string]any{
		"Dashboard":      dash,
		"DefaultMinutes": int(session.DefaultTimerDuration / time.Minute),
	})
}

// handleAdminReportGateForm opens or closes report submission (POST /admin/sessions/{id}/report-gate).
func handleAdminReportGateForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	_, err := orchestrators.ExecuteSetReportGate(r.Context(), orchestrators.SetReportGateInput{
		SessionID: id,
		Enabled:   r.FormValue("enabled") == "true",
		Actor:     actorFrom(r),
	}, sessionAdminDeps())
	if err != nil {
		pageError(w, err)
		return
	}
	http.Redirect(w, r, "/admin/sessions/"+id, http.StatusSeeOther)
}

// handleAdminTimerForm starts or stops the countdown (POST /admin/sessions/{id}/timer).
func handleAdminTimerForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form submission", http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	if err := applyTimer(r, id, r.FormValue("action"), r.FormValue("minutes")); err != nil {
		pageError(w, err)
		return
	}
	http.Redirect(w, r, "/admin/sessions/"+id, http.StatusSeeOther)
}

// applyTimer runs the start or stop command. Blank minutes use the default duration.
func applyTimer(r *http.Request, sessionID, action, minutes string) error {
	if action == "stop" {
		_, err := orchestrators.ExecuteStopTimer(r.Context(), orchestrators.StopTimerInput{
			SessionID: sessionID,
			Actor:     actorFrom(r),
		}, sessionAdminDeps())
		return err
	}
	var d time.Duration
	if m := strings.TrimSpace(minutes); m != "" {
		n, err := strconv.Atoi(m)
		if err != nil || n <= 0 {
			return session.ErrInvalidDuration
		}
		d = time.Duration(n) * time.Minute
	}
	_, err := orchestrators.ExecuteStartTimer(r.Context(), orchestrators.StartTimerInput{
		SessionID: sessionID,
		Duration:  d,
		Actor:     actorFrom(r),
	}, sessionAdminDeps())
	return err
}

// handleAdminReportPage renders one submitted report (GET /admin/reports/{id}).
func handleAdminReportPage(w http.ResponseWriter, r *http.Request) {
	rep, err := stores.ReportStore.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		pageError(w, err)
		return
	}
	s, err := stores.SessionStore.GetByID(r.Context(), rep.SessionID)
	if err != nil {
		pageError(w, err)
		return
	}
	renderTemplate(w, r, "admin_report.html", map[string]any{
		"Report":  rep,
		"Session": s,
	})
}

// handleExportSessionCSV downloads every report of a session (GET /admin/sessions/{id}/export.csv).
func handleExportSessionCSV(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	file, err := projections.QueryExportSessionCSV(r.Context(), id, exportDeps())
	if err != nil {
		pageError(w, err)
		return
	}
	recordExport(r, auditDomain.ResourceSession, id, file.Filename)
	serveDownload(w, file.Filename, file.ContentType, file.Data)
}

// handleExportReportJSON downloads one report (GET /admin/reports/{id}/export.json).
func handleExportReportJSON(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	file, err := projections.QueryExportReportJSON(r.Context(), id, exportDeps())
	if err != nil {
		pageError(w, err)
		return
	}
	recordExport(r, "report", id, file.Filename)
	serveDownload(w, file.Filename, file.ContentType, file.Data)
}

func recordExport(r *http.Request, resourceType, id, filename string) {
	orchestrators.ExecuteRecordExport(r.Context(), orchestrators.RecordExportInput{
		ResourceType: resourceType,
		ResourceID:   id,
		Filename:     filename,
		Actor:        actorFrom(r),
	}, orchestrators.RecordExportDeps{Audit: stores.AuditStore, Now: timeNow})
}
