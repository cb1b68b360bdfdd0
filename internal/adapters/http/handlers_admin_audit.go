package web

import (
	"net/http"
	"strconv"
	"time"

	auditStore "firesim/internal/adapters/storage/audit"
	auditDomain "firesim/internal/domain/audit"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// auditWindows are the look-back choices offered on the audit page, in hours.
var auditWindows = []int{1, 8, 24, 168}

// parseAuditQuery reads the audit filter from the query string. Unparseable
// numbers fall back to no restriction.
func parseAuditQuery(r *http.Request) (auditStore.Filter, int, int) {
	q := r.URL.Query()
	filter := auditStore.Filter{
		Category:   auditDomain.Category(q.Get("category")),
		Action:     auditDomain.Action(q.Get("action")),
		ResourceID: q.Get("resource_id"),
	}
	hours, err := strconv.Atoi(q.Get("hours"))
	if err != nil || hours <= 0 {
		hours = 0
	} else {
		filter.Since = timeNow().Add(-time.Duration(hours) * time.Hour)
	}
	limit, err := strconv.Atoi(q.Get("limit"))
	if err != nil || limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	return filter, hours, limit
}

// handleAdminAuditTrail lists facilitator actions (GET /admin/audit-trail).
// JSON clients get the event list instead of the page.
// PRE: admin session
func handleAdminAuditTrail(w http.ResponseWriter, r *http.Request) {
	filter, hours, limit := parseAuditQuery(r)
	events, err := stores.AuditStore.List(r.Context(), filter, limit)
	if err != nil {
		internalError(w, err)
		return
	}

	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, events)
		return
	}
	renderTemplate(w, r, "admin_audit.html", map[string]any{
		"Events":     events,
		"Filter":     filter,
		"Hours":      hours,
		"Windows":    auditWindows,
		"Limit":      limit,
		"Categories": auditDomain.Categories,
	})
}
