package web

import (
	"net/http"
	"strconv"
	"time"
)

// handleAdminPerf returns request and query timings (GET /admin/perf?minutes=60).
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if perfCollector == nil {
		sendJSONError(w, "performance collection disabled", http.StatusNotFound)
		return
	}
	window := time.Hour
	if m, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && m > 0 && m <= 24*60 {
		window = time.Duration(m) * time.Minute
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-window), 10))
}
