package web

import (
	"net/http"

	"firesim/internal/adapters/http/middleware"
)

const adminLoginPath = "/admin/login"

// registerRoutes maps every page and API endpoint.
func registerRoutes(mux *http.ServeMux) {
	admin := func(h http.HandlerFunc) http.Handler {
		return middleware.RequireAdmin(adminLoginPath)(h)
	}

	// Pages
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /admin/login", handleAdminLoginPage)
	mux.HandleFunc("POST /admin/login", handleAdminLogin)
	mux.HandleFunc("POST /admin/logout", handleAdminLogout)
	mux.Handle("GET /admin", admin(handleAdminSessionsPage))
	mux.Handle("POST /admin/sessions", admin(handleAdminCreateSessionForm))
	mux.Handle("POST /admin/sessions/{id}/delete", admin(handleAdminDeleteSessionForm))
	mux.Handle("GET /admin/sessions/{id}", admin(handleAdminDashboardPage))
	mux.Handle("POST /admin/sessions/{id}/report-gate", admin(handleAdminReportGateForm))
	mux.Handle("POST /admin/sessions/{id}/timer", admin(handleAdminTimerForm))
	mux.Handle("GET /admin/sessions/{id}/export.csv", admin(handleExportSessionCSV))
	mux.Handle("GET /admin/reports/{id}", admin(handleAdminReportPage))
	mux.Handle("GET /admin/reports/{id}/export.json", admin(handleExportReportJSON))
	mux.Handle("GET /admin/audit-trail", admin(handleAdminAuditTrail))
	mux.Handle("GET /admin/outbox", admin(handleAdminOutboxList))
	mux.Handle("POST /admin/outbox/{id}/{action}", admin(handleAdminOutboxAction))
	mux.Handle("GET /admin/perf", admin(handleAdminPerf))

	mux.HandleFunc("GET /join", handleJoinPage)
	mux.HandleFunc("POST /join", handleJoinForm)
	mux.HandleFunc("GET /play/{pid}", handlePlayPage)
	mux.HandleFunc("POST /play/{pid}/action", handlePlayActionForm)
	mux.HandleFunc("POST /play/{pid}/notes", handlePlayAddNoteForm)
	mux.HandleFunc("POST /play/{pid}/notes/{index}/delete", handlePlayDeleteNoteForm)
	mux.HandleFunc("POST /play/{pid}/report", handlePlaySubmitReportForm)
	mux.HandleFunc("POST /play/{pid}/report/infographic", handlePlayInfographicForm)
	mux.HandleFunc("POST /play/{pid}/report/image", handlePlayUploadImageForm)

	// JSON API
	mux.HandleFunc("GET /api/sessions", handleAPIListSessions)
	mux.Handle("POST /api/sessions", admin(handleAPICreateSession))
	mux.HandleFunc("GET /api/sessions/{id}", handleAPIGetSession)
	mux.Handle("DELETE /api/sessions/{id}", admin(handleAPIDeleteSession))
	mux.Handle("GET /api/sessions/{id}/dashboard", admin(handleAPIDashboard))
	mux.Handle("PUT /api/sessions/{id}/report-gate", admin(handleAPIReportGate))
	mux.Handle("POST /api/sessions/{id}/timer", admin(handleAPITimer))
	mux.HandleFunc("GET /api/sessions/{id}/events", handleSessionEvents)
	mux.HandleFunc("GET /api/events/sessions", handleSessionListEvents)

	mux.HandleFunc("POST /api/participants", handleAPIJoin)
	mux.HandleFunc("GET /api/participants/{pid}", handleAPIStudentView)
	mux.HandleFunc("POST /api/participants/{pid}/actions", handleAPIWizardAction)
	mux.HandleFunc("POST /api/participants/{pid}/notes", handleAPIAddNote)
	mux.HandleFunc("DELETE /api/participants/{pid}/notes/{index}", handleAPIDeleteNote)
	mux.HandleFunc("POST /api/participants/{pid}/report", handleAPISubmitReport)
	mux.HandleFunc("POST /api/reports/{id}/infographic", handleAPIInfographic)

	// The proxy answers every method itself so it can return the JSON 405 body.
	mux.HandleFunc("/api/generate-image", handleGenerateImage)
}
