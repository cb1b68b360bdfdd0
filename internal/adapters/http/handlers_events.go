package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"firesim/internal/adapters/http/middleware"
	"firesim/internal/adapters/realtime"
	"firesim/internal/application/projections"
)

// sseHeartbeat keeps idle streams alive through proxies.
var sseHeartbeat = 30 * time.Second

// writeSSEEvent writes one server-sent event and flushes it.
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

// startSSE sets the stream headers. It fails when the writer cannot flush.
func startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering
	return flusher, true
}

// studentSnapshot is the part of a session snapshot students may see:
// settings and the countdown, never other teams' reports.
type studentSnapshot struct {
	Session   json.RawMessage `json:"session"`
	Countdown string          `json:"countdown"`
	Urgent    bool            `json:"urgent"`
}

// redactForStudent strips a dashboard snapshot down to studentSnapshot.
func redactForStudent(data []byte) []byte {
	var snap studentSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return []byte("{}")
	}
	out, err := json.Marshal(snap)
	if err != nil {
		return []byte("{}")
	}
	return out
}

// streamTopic forwards broadcaster events until the client goes away.
// transform may rewrite each payload before it is sent.
func streamTopic(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, topic string, transform func([]byte) []byte) {
	if services.Broadcaster == nil {
		return
	}
	events, subID := services.Broadcaster.Subscribe(ctx, topic)
	defer services.Broadcaster.Unsubscribe(topic, subID)

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case ev, ok := <-events:
			if !ok {
				return
			}
			data := ev.Data
			if transform != nil && ev.Type != projections.EventDeleted {
				data = transform(data)
			}
			writeSSEEvent(w, flusher, ev.Type, data)
			if ev.Type == projections.EventDeleted {
				return
			}
		}
	}
}

// handleSessionListEvents streams the session list (GET /api/events/sessions).
// The first event is the current list.
func handleSessionListEvents(w http.ResponseWriter, r *http.Request) {
	list, err := projections.QueryGetSessionList(r.Context(), projections.GetSessionListDeps{SessionStore: stores.SessionStore})
	if err != nil {
		internalError(w, err)
		return
	}
	initial, err := json.Marshal(list)
	if err != nil {
		internalError(w, err)
		return
	}
	flusher, ok := startSSE(w)
	if !ok {
		return
	}
	slog.Debug("realtime_event", "event", "stream_opened", "topic", realtime.TopicSessions)
	writeSSEEvent(w, flusher, projections.EventSessions, initial)
	streamTopic(r.Context(), w, flusher, realtime.TopicSessions, nil)
}

// handleSessionEvents streams one session (GET /api/sessions/{id}/events).
// Admins receive full dashboard snapshots; everyone else receives settings and countdown only.
// The first event is the current snapshot; a "deleted" event ends the stream.
func handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	dash, err := projections.QueryGetSessionDashboard(r.Context(), projections.GetSessionDashboardQuery{
		SessionID: id,
		Now:       timeNow(),
	}, dashboardDeps())
	if err != nil {
		apiError(w, err)
		return
	}
	initial, err := json.Marshal(dash)
	if err != nil {
		internalError(w, err)
		return
	}

	var transform func([]byte) []byte
	if !middleware.IsAdmin(r.Context()) {
		transform = redactForStudent
		initial = redactForStudent(initial)
	}

	flusher, ok := startSSE(w)
	if !ok {
		return
	}
	topic := realtime.SessionTopic(id)
	slog.Debug("realtime_event", "event", "stream_opened", "topic", topic)
	writeSSEEvent(w, flusher, projections.EventSession, initial)
	streamTopic(r.Context(), w, flusher, topic, transform)
}
