package web

import (
	"errors"
	"net/http"
	"strconv"

	outboxStore "firesim/internal/adapters/storage/outbox"
	"firesim/internal/application/orchestrators"
	"firesim/internal/domain/outbox"
)

// statusQueued is the outbox page filter for entries still awaiting delivery.
const statusQueued = "queued"

// outboxTabs are the filters offered on the admin outbox page, in display order.
var outboxTabs = []string{outbox.StatusFailed, statusQueued, outbox.StatusDone, outbox.StatusAbandoned}

func validOutboxTab(s string) bool {
	for _, t := range outboxTabs {
		if t == s {
			return true
		}
	}
	return false
}

// handleAdminOutboxList lists report notifications (GET /admin/outbox).
// ?status= picks a tab; failed is the default since those need attention.
func handleAdminOutboxList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}
	status := r.URL.Query().Get("status")
	if status == "" {
		status = outbox.StatusFailed
	}
	if !validOutboxTab(status) {
		sendJSONError(w, "unknown status", http.StatusBadRequest)
		return
	}

	var entries []outbox.Entry
	if status == statusQueued {
		entries, err = stores.OutboxStore.ListPending(ctx, limit)
	} else {
		entries, err = stores.OutboxStore.ListByStatus(ctx, status, limit)
	}
	if err != nil {
		internalError(w, err)
		return
	}
	counts, err := stores.OutboxStore.CountByStatus(ctx)
	if err != nil {
		internalError(w, err)
		return
	}

	if !isHTMLRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "counts": counts, "status": status})
		return
	}
	renderTemplate(w, r, "admin_outbox.html", map[string]any{
		"Entries": entries,
		"Counts":  counts,
		"Status":  status,
		"Tabs":    outboxTabs,
	})
}

// handleAdminOutboxAction retries or abandons one entry (POST /admin/outbox/{id}/{action}).
func handleAdminOutboxAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entryID := r.PathValue("id")

	processor := services.Outbox
	if processor == nil {
		processor = orchestrators.NewOutboxProcessor(stores.OutboxStore, nil, timeNow)
	}

	var err error
	var result string
	switch r.PathValue("action") {
	case "retry":
		err = processor.ProcessSingle(ctx, entryID)
		result = "retry triggered"
	case "abandon":
		err = processor.AbandonEntry(ctx, entryID)
		result = "abandoned"
	default:
		sendJSONError(w, "unknown action", http.StatusBadRequest)
		return
	}
	switch {
	case errors.Is(err, outboxStore.ErrNotFound):
		sendJSONError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, outbox.ErrTerminal):
		sendJSONError(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		internalError(w, err)
		return
	}

	if r.Header.Get("Content-Type") == "application/x-www-form-urlencoded" {
		http.Redirect(w, r, "/admin/outbox?status="+statusQueued, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": result})
}
