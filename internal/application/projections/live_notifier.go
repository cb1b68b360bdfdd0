package projections

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"firesim/internal/adapters/realtime"
	domainSession "firesim/internal/domain/session"
)

// Event types carried on the realtime topics.
const (
	EventSessions = "sessions"
	EventSession  = "session"
	EventDeleted  = "deleted"
)

// Publisher delivers an event to the subscribers of its topic.
type Publisher interface {
	Publish(e realtime.Event) int
}

// LiveNotifier publishes full snapshots after every committed change, so
// clients replace their state instead of merging diffs.
type LiveNotifier struct {
	Publisher    Publisher
	Sessions     SessionStore
	Participants ParticipantStore
	Reports      ReportStore
	Now          func() time.Time
}

// SessionsChanged publishes the session list on the sessions topic.
func (n *LiveNotifier) SessionsChanged(ctx context.Context) {
	list, err := QueryGetSessionList(ctx, GetSessionListDeps{SessionStore: n.Sessions})
	if err != nil {
		slog.Error("realtime_event", "event", "snapshot_failed", "topic", realtime.TopicSessions, "error", err)
		return
	}
	n.publish(realtime.TopicSessions, EventSessions, list)
}

// SessionChanged publishes the dashboard snapshot of one session on its topic.
// A session that no longer exists publishes a deleted event instead. Any other
// failure publishes nothing, so open streams keep their last snapshot.
func (n *LiveNotifier) SessionChanged(ctx context.Context, sessionID string) {
	topic := realtime.SessionTopic(sessionID)
	dash, err := QueryGetSessionDashboard(ctx, GetSessionDashboardQuery{SessionID: sessionID, Now: n.Now()},
		GetSessionDashboardDeps{SessionStore: n.Sessions, ParticipantStore: n.Participants, ReportStore: n.Reports})
	if errors.Is(err, domainSession.ErrNotFound) {
		n.publish(topic, EventDeleted, map[string]string{"id": sessionID})
		return
	}
	if err != nil {
		slog.Error("realtime_event", "event", "snapshot_failed", "topic", topic, "error", err)
		return
	}
	n.publish(topic, EventSession, dash)
}

func (n *LiveNotifier) publish(topic, eventType string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("realtime_event", "event", "marshal_failed", "topic", topic, "error", err)
		return
	}
	delivered := n.Publisher.Publish(realtime.Event{Topic: topic, Type: eventType, Data: data})
	slog.Debug("realtime_event", "event", "published", "topic", topic, "type", eventType, "subscribers", delivered)
}
