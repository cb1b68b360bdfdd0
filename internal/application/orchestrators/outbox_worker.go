package orchestrators

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"firesim/internal/adapters/email"
	"firesim/internal/domain/outbox"
	"firesim/internal/domain/report"
)

// OutboxStoreForProcessor defines the store interface needed by the outbox worker.
type OutboxStoreForProcessor interface {
	GetByID(ctx context.Context, id string) (outbox.Entry, error)
	Save(ctx context.Context, e outbox.Entry) error
	ListPending(ctx context.Context, limit int) ([]outbox.Entry, error)
	PurgeDone(ctx context.Context, before time.Time) (int64, error)
}

// deliveredRetention is how long delivered entries stay visible on the admin outbox page.
const deliveredRetention = 7 * 24 * time.Hour

// ActionExecutor executes one type of outbox action.
type ActionExecutor interface {
	// Execute runs the action and returns the provider's reference for it.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxProcessor delivers outbox entries with exponential backoff.
type OutboxProcessor struct {
	store     OutboxStoreForProcessor
	executors map[string]ActionExecutor
	now       func() time.Time
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
}

// NewOutboxProcessor creates a processor with 30s base backoff capped at one hour.
func NewOutboxProcessor(store OutboxStoreForProcessor, executors map[string]ActionExecutor, now func() time.Time) *OutboxProcessor {
	return &OutboxProcessor{
		store:     store,
		executors: executors,
		now:       now,
		baseDelay: 30 * time.Second,
		maxDelay:  time.Hour,
		batchSize: 10,
	}
}

// ProcessPending attempts every due entry of the next batch.
// POST: attempted entries saved with their new status; entries still in backoff untouched
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox entries: %w", err)
	}
	attempted := 0
	for _, entry := range entries {
		if !entry.DueAt(p.now(), p.baseDelay, p.maxDelay) {
			continue
		}
		attempted++
		if err := p.attempt(ctx, entry); err != nil {
			slog.Error("outbox_event", "event", "save_failed", "entry_id", entry.ID, "error", err)
		}
	}
	return attempted, nil
}

// ProcessSingle attempts one entry immediately, ignoring backoff.
// Failed entries are requeued for one more attempt.
// PRE: entry is not done or abandoned
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	entry.Requeue()
	if entry.IsTerminal() {
		return outbox.ErrTerminal
	}
	return p.attempt(ctx, entry)
}

// AbandonEntry stops further attempts on an entry.
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	entry.MarkAbandoned()
	slog.Info("outbox_event", "event", "abandoned", "entry_id", entry.ID)
	return p.store.Save(ctx, entry)
}

func (p *OutboxProcessor) attempt(ctx context.Context, entry outbox.Entry) error {
	entry.MarkAttempt(p.now())
	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkFailed(outbox.Permanent(fmt.Errorf("no executor registered for action type: %s", entry.ActionType)))
		slog.Warn("outbox_event", "event", "no_executor", "entry_id", entry.ID, "action_type", entry.ActionType)
		return p.store.Save(ctx, entry)
	}

	externalID, err := executor.Execute(ctx, entry.Payload)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_event", "event", "attempt_failed", "entry_id", entry.ID,
			"attempt", entry.Attempts, "status", entry.Status, "error", err)
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_event", "event", "delivered", "entry_id", entry.ID,
			"action_type", entry.ActionType, "external_id", externalID)
	}
	return p.store.Save(ctx, entry)
}

// PurgeDelivered drops delivered entries older than deliveredRetention.
func (p *OutboxProcessor) PurgeDelivered(ctx context.Context) (int64, error) {
	n, err := p.store.PurgeDone(ctx, p.now().Add(-deliveredRetention))
	if err == nil && n > 0 {
		slog.Info("outbox_event", "event", "purged", "deleted", n)
	}
	return n, err
}

// StartBackgroundWorker processes pending entries every interval until ctx is done.
func StartBackgroundWorker(ctx context.Context, processor *OutboxProcessor, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := processor.ProcessPending(ctx); err != nil {
					slog.Error("outbox_event", "event", "worker_error", "error", err)
				}
				if _, err := processor.PurgeDelivered(ctx); err != nil {
					slog.Error("outbox_event", "event", "purge_failed", "error", err)
				}
			}
		}
	}()
}

// --- Report Email Executor ---

// ReportReader loads a report by ID.
type ReportReader interface {
	GetByID(ctx context.Context, id string) (report.Report, error)
}

// ReportEmailExecutor sends the report-submitted notification.
type ReportEmailExecutor struct {
	Reports  ReportReader
	Sessions SessionReader
	Sender   email.Sender
	Markdown goldmark.Markdown
}

// Execute renders the report to HTML and sends it to the payload's recipients.
// A report deleted with its session is a permanent failure.
// POST: returns the provider message ID
func (e *ReportEmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	p, err := outbox.DecodeReportEmail(payload)
	if err != nil {
		return "", err
	}
	r, err := e.Reports.GetByID(ctx, p.ReportID)
	if errors.Is(err, report.ErrNotFound) {
		return "", outbox.Permanent(fmt.Errorf("load report %s: %w", p.ReportID, err))
	}
	if err != nil {
		return "", fmt.Errorf("load report %s: %w", p.ReportID, err)
	}
	group := r.SessionID
	if s, err := e.Sessions.GetByID(ctx, r.SessionID); err == nil {
		group = s.GroupName
	}

	md := e.Markdown
	if md == nil {
		md = goldmark.New()
	}
	source := ReportEmailMarkdown(r, group)
	var body bytes.Buffer
	if err := md.Convert([]byte(source), &body); err != nil {
		return "", fmt.Errorf("render report email: %w", err)
	}

	res, err := e.Sender.Send(ctx, email.SendRequest{
		To:      p.To,
		Subject: fmt.Sprintf("[%s] %s %s 보고서 제출", group, r.TeamName(), r.UserName),
		HTML:    body.String(),
		Text:    source,
		Tags:    map[string]string{"kind": "report_submitted", "session": r.SessionID},
	})
	if err != nil {
		return "", err
	}
	return res.MessageID, nil
}

// ReportEmailMarkdown lays out a report as a markdown document.
func ReportEmailMarkdown(r report.Report, group string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Content.Title)
	fmt.Fprintf(&b, "- 교육: %s\n- 팀: %s\n- 작성자: %s\n- 팀원: %s\n- 제출: %s\n\n",
		group, r.TeamName(), r.UserName, r.Content.Members, r.SubmittedAt.Format("2006-01-02 15:04"))
	sections := []struct{ title, body string }{
		{"현상 파악", r.Content.Situation},
		{"문제 정의", r.Content.Definition},
		{"원인 분석", r.Content.Cause},
		{"해결 방안", r.Content.Solution},
		{"재발 방지", r.Content.Prevention},
		{"일정", r.Content.Schedule},
	}
	for _, s := range sections {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", s.title, s.body)
	}
	if r.ImageURL != "" {
		fmt.Fprintf(&b, "[인포그래픽 보기](%s)\n", r.ImageURL)
	}
	return b.String()
}
