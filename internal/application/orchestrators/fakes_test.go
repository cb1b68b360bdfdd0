package orchestrators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"firesim/internal/domain/audit"
	"firesim/internal/domain/outbox"
	"firesim/internal/domain/participant"
	"firesim/internal/domain/report"
	"firesim/internal/domain/session"
)

var fixedTime = time.Date(2026, 10, 19, 10, 30, 0, 0, time.UTC)

func fixedNow() time.Time { return fixedTime }

func fixedID() string { return "test-id-001" }

// sequentialIDs returns a generator producing id-1, id-2, ...
func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

// --- sessions ---

type fakeSessionStore struct {
	sessions map[string]session.Session
	saveErr  error
}

func newFakeSessionStore(sessions ...session.Session) *fakeSessionStore {
	f := &fakeSessionStore{sessions: map[string]session.Session{}}
	for _, s := range sessions {
		f.sessions[s.ID] = s
	}
	return f
}

func (f *fakeSessionStore) GetByID(_ context.Context, id string) (session.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return s, nil
}

func (f *fakeSessionStore) Save(_ context.Context, s session.Session) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessionStore) Delete(_ context.Context, id string) error {
	if _, ok := f.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(f.sessions, id)
	return nil
}

func (f *fakeSessionStore) SetReportEnabled(_ context.Context, id string, enabled bool) error {
	s, ok := f.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	s.ReportEnabled = enabled
	f.sessions[id] = s
	return nil
}

func (f *fakeSessionStore) SetTimer(_ context.Context, id string, running bool, endAt time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return session.ErrNotFound
	}
	s.TimerRunning = running
	s.TimerEndAt = endAt
	f.sessions[id] = s
	return nil
}

// --- participants ---

type fakeParticipantStore struct {
	byID map[string]participant.Participant
}

func newFakeParticipantStore() *fakeParticipantStore {
	return &fakeParticipantStore{byID: map[string]participant.Participant{}}
}

func (f *fakeParticipantStore) GetByID(_ context.Context, id string) (participant.Participant, error) {
	p, ok := f.byID[id]
	if !ok {
		return participant.Participant{}, participant.ErrNotFound
	}
	return p, nil
}

func (f *fakeParticipantStore) GetByIdentity(_ context.Context, sessionID string, teamID int, name string) (participant.Participant, error) {
	for _, p := range f.byID {
		if p.SessionID == sessionID && p.TeamID == teamID && p.Name == name {
			return p, nil
		}
	}
	return participant.Participant{}, participant.ErrNotFound
}

func (f *fakeParticipantStore) Save(_ context.Context, p participant.Participant) error {
	p.Notes = append([]string(nil), p.Notes...)
	f.byID[p.ID] = p
	return nil
}

// --- reports ---

type fakeReportStore struct {
	byID map[string]report.Report
}

func newFakeReportStore() *fakeReportStore {
	return &fakeReportStore{byID: map[string]report.Report{}}
}

func (f *fakeReportStore) GetByID(_ context.Context, id string) (report.Report, error) {
	r, ok := f.byID[id]
	if !ok {
		return report.Report{}, report.ErrNotFound
	}
	return r, nil
}

func (f *fakeReportStore) GetByIdentity(_ context.Context, sessionID string, teamID int, userName string) (report.Report, error) {
	for _, r := range f.byID {
		if r.SessionID == sessionID && r.TeamID == teamID && r.UserName == userName {
			return r, nil
		}
	}
	return report.Report{}, report.ErrNotFound
}

func (f *fakeReportStore) Save(_ context.Context, r report.Report) error {
	f.byID[r.ID] = r
	return nil
}

func (f *fakeReportStore) UpdateImageURL(_ context.Context, id, url string) error {
	r, ok := f.byID[id]
	if !ok {
		return report.ErrNotFound
	}
	r.ImageURL = url
	f.byID[id] = r
	return nil
}

// --- outbox ---

type fakeOutboxStore struct {
	entries map[string]outbox.Entry
	order   []string
}

func newFakeOutboxStore() *fakeOutboxStore {
	return &fakeOutboxStore{entries: map[string]outbox.Entry{}}
}

func (f *fakeOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	e, ok := f.entries[id]
	if !ok {
		return outbox.Entry{}, fmt.Errorf("outbox entry %s not found", id)
	}
	return e, nil
}

func (f *fakeOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	if _, ok := f.entries[e.ID]; !ok {
		f.order = append(f.order, e.ID)
	}
	f.entries[e.ID] = e
	return nil
}

func (f *fakeOutboxStore) ListPending(_ context.Context, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, id := range f.order {
		e := f.entries[id]
		if e.Status == outbox.StatusPending || e.Status == outbox.StatusRetrying {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeOutboxStore) PurgeDone(_ context.Context, before time.Time) (int64, error) {
	var n int64
	kept := f.order[:0]
	for _, id := range f.order {
		e := f.entries[id]
		if e.Status == outbox.StatusDone && e.CreatedAt.Before(before) {
			delete(f.entries, id)
			n++
			continue
		}
		kept = append(kept, id)
	}
	f.order = kept
	return n, nil
}

// --- audit, notifier, files ---

type fakeAudit struct {
	events []audit.Event
}

func (f *fakeAudit) Save(_ context.Context, e audit.Event) error {
	f.events = append(f.events, e)
	return nil
}

func (f *fakeAudit) actions() []audit.Action {
	var out []audit.Action
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	list     int
	sessions []string
}

func (f *fakeNotifier) SessionsChanged(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.list++
}

func (f *fakeNotifier) SessionChanged(_ context.Context, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, id)
}

type fakeFiles struct {
	puts map[string][]byte
	err  error
}

func (f *fakeFiles) Put(_ context.Context, key string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if f.puts == nil {
		f.puts = map[string][]byte{}
	}
	f.puts[key] = data
	return "/files/" + key, nil
}
