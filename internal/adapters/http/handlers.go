package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"firesim/internal/adapters/http/middleware"
	"firesim/internal/adapters/imagegen"
	"firesim/internal/application/orchestrators"
	"firesim/internal/application/projections"
	"firesim/internal/domain/export"
	domainParticipant "firesim/internal/domain/participant"
	domainReport "firesim/internal/domain/report"
	"firesim/internal/domain/scenario"
	domainSession "firesim/internal/domain/session"
	"firesim/internal/domain/wizard"
)

//go:embed templates/*.html
var templateFS embed.FS

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func isHTMLRequest(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") || strings.Contains(accept, "application/xhtml+xml")
}

func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("internal_error", "error", err.Error())
	}
}

// sendJSONError writes {"error": msg}.
func sendJSONError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorStatus maps domain errors onto HTTP statuses. Zero means unexpected.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, domainSession.ErrNotFound),
		errors.Is(err, domainParticipant.ErrNotFound),
		errors.Is(err, domainReport.ErrNotFound),
		errors.Is(err, export.ErrNoReports):
		return http.StatusNotFound
	case errors.Is(err, domainReport.ErrReportLocked):
		return http.StatusForbidden
	case errors.Is(err, wizard.ErrWrongStep):
		return http.StatusConflict
	case errors.Is(err, orchestrators.ErrImageTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, orchestrators.ErrNoFileStore):
		return http.StatusServiceUnavailable
	case errors.Is(err, domainSession.ErrEmptyGroupName),
		errors.Is(err, domainSession.ErrInvalidTeamCount),
		errors.Is(err, domainSession.ErrInvalidDuration),
		errors.Is(err, domainParticipant.ErrEmptySessionID),
		errors.Is(err, domainParticipant.ErrEmptyName),
		errors.Is(err, domainParticipant.ErrInvalidTeam),
		errors.Is(err, domainParticipant.ErrEmptyNote),
		errors.Is(err, domainParticipant.ErrNoteIndex),
		errors.Is(err, domainParticipant.ErrTooManyNotes),
		errors.Is(err, domainReport.ErrEmptyTitle),
		errors.Is(err, domainReport.ErrEmptyMembers),
		errors.Is(err, domainReport.ErrEmptyUserName),
		errors.Is(err, domainReport.ErrInvalidTeam),
		errors.Is(err, wizard.ErrTooFewFacts),
		errors.Is(err, wizard.ErrUnknownFact),
		errors.Is(err, wizard.ErrIncompleteGap),
		errors.Is(err, wizard.ErrNotOverloaded),
		errors.Is(err, wizard.ErrWhyUnanswered),
		errors.Is(err, wizard.ErrInvalidMachine),
		errors.Is(err, orchestrators.ErrUnknownAction),
		errors.Is(err, orchestrators.ErrUnsupportedImage):
		return http.StatusBadRequest
	}
	return 0
}

// apiError writes a known domain error as JSON, or logs and hides anything else.
func apiError(w http.ResponseWriter, err error) {
	if status := errorStatus(err); status != 0 {
		sendJSONError(w, err.Error(), status)
		return
	}
	internalError(w, err)
}

// pageError is apiError for HTML pages.
func pageError(w http.ResponseWriter, err error) {
	if status := errorStatus(err); status != 0 {
		http.Error(w, err.Error(), status)
		return
	}
	internalError(w, err)
}

// serveDownload writes an attachment with an RFC 6266 filename.
func serveDownload(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Write(data)
}

// actorFrom identifies the admin issuing a command.
func actorFrom(r *http.Request) orchestrators.Actor {
	return orchestrators.Actor{Name: orchestrators.AdminActorName, IP: middleware.ClientIP(r)}
}

func renderTemplate(w http.ResponseWriter, r *http.Request, templateName string, data any) {
	renderTemplateStatus(w, r, http.StatusOK, templateName, data)
}

// renderTemplateStatus renders layout.html plus the page into a buffer and
// writes it with status, so template errors still produce a clean 500.
func renderTemplateStatus(w http.ResponseWriter, r *http.Request, status int, templateName string, data any) {
	isAdmin := middleware.IsAdmin(r.Context())

	funcMap := template.FuncMap{
		"isAdmin":   func() bool { return isAdmin },
		"csrfToken": func() string { return csrf.Token(r) },
		"renderMarkdown": func(md string) template.HTML {
			var buf bytes.Buffer
			if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
				return template.HTML(template.HTMLEscapeString(md))
			}
			return template.HTML(buf.String())
		},
		"teamName":  domainSession.TeamName,
		"cardLabel": scenario.CardLabel,
		"formatTime": func(t time.Time) string {
			if t.IsZero() {
				return "-"
			}
			return t.Local().Format("2006-01-02 15:04")
		},
		"timerEnd": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(time.RFC3339)
		},
		"contains": func(list []string, s string) bool {
			for _, v := range list {
				if v == s {
					return true
				}
			}
			return false
		},
		"add": func(a, b int) int { return a + b },
	}

	tpl, err := template.New("layout.html").Funcs(funcMap).ParseFS(templateFS, "templates/layout.html", "templates/"+templateName)
	if err != nil {
		http.Error(w, "Template error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		http.Error(w, "Render error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// --- Dependency builders ---

func sessionAdminDeps() orchestrators.SessionAdminDeps {
	return orchestrators.SessionAdminDeps{
		SessionStore: stores.SessionStore,
		Audit:        stores.AuditStore,
		Notifier:     services.Notifier,
		GenerateID:   generateID,
		Now:          timeNow,
	}
}

func participantDeps() orchestrators.ParticipantDeps {
	return orchestrators.ParticipantDeps{
		ParticipantStore: stores.ParticipantStore,
		Notifier:         services.Notifier,
		Now:              timeNow,
	}
}

func submitReportDeps() orchestrators.SubmitReportDeps {
	deps := orchestrators.SubmitReportDeps{
		SessionStore: stores.SessionStore,
		ReportStore:  stores.ReportStore,
		NotifyTo:     services.NotifyTo,
		Notifier:     services.Notifier,
		GenerateID:   generateID,
		Now:          timeNow,
	}
	if stores.OutboxStore != nil {
		deps.Outbox = stores.OutboxStore
	}
	return deps
}

func reportImageDeps() orchestrators.ReportImageDeps {
	gen := services.Generator
	if gen == nil {
		gen = imagegen.Disabled{}
	}
	return orchestrators.ReportImageDeps{
		ReportStore: stores.ReportStore,
		Generator:   gen,
		Files:       services.Files,
		Notifier:    services.Notifier,
		Now:         timeNow,
	}
}

func dashboardDeps() projections.GetSessionDashboardDeps {
	return projections.GetSessionDashboardDeps{
		SessionStore:     stores.SessionStore,
		ParticipantStore: stores.ParticipantStore,
		ReportStore:      stores.ReportStore,
	}
}

func studentViewDeps() projections.GetStudentViewDeps {
	return projections.GetStudentViewDeps{
		SessionStore:     stores.SessionStore,
		ParticipantStore: stores.ParticipantStore,
		ReportStore:      stores.ReportStore,
		InfoCards:        services.InfoCards,
	}
}

func exportDeps() projections.ExportDeps {
	return projections.ExportDeps{SessionStore: stores.SessionStore, ReportStore: stores.ReportStore}
}

// playURL is the wizard page of a participant.
func playURL(participantID string) string {
	return fmt.Sprintf("/play/%s", participantID)
}
