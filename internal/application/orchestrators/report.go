package orchestrators

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"firesim/internal/adapters/imagegen"
	"firesim/internal/domain/outbox"
	"firesim/internal/domain/report"
)

// ReportStoreForOrchestrator defines the store interface needed by report commands.
type ReportStoreForOrchestrator interface {
	GetByID(ctx context.Context, id string) (report.Report, error)
	GetByIdentity(ctx context.Context, sessionID string, teamID int, userName string) (report.Report, error)
	Save(ctx context.Context, r report.Report) error
	UpdateImageURL(ctx context.Context, id, url string) error
}

// OutboxWriter enqueues side effects for the outbox worker.
type OutboxWriter interface {
	Save(ctx context.Context, e outbox.Entry) error
}

// --- Submit Report ---

// SubmitReportInput carries input for the submit report orchestrator.
type SubmitReportInput struct {
	SessionID string
	TeamID    int
	UserName  string
	Content   report.Content
}

// SubmitReportDeps holds dependencies for SubmitReport.
type SubmitReportDeps struct {
	SessionStore SessionReader
	ReportStore  ReportStoreForOrchestrator
	Outbox       OutboxWriter // nil disables notifications
	NotifyTo     []string
	Notifier     Notifier
	GenerateID   func() string
	Now          func() time.Time
}

// ExecuteSubmitReport stores a final report, replacing the author's earlier submission.
// PRE: session exists and its report gate is open; content has title and members
// POST: one report per (session, team, author); a notification is queued when recipients are configured
func ExecuteSubmitReport(ctx context.Context, input SubmitReportInput, deps SubmitReportDeps) (report.Report, error) {
	s, err := deps.SessionStore.GetByID(ctx, input.SessionID)
	if err != nil {
		return report.Report{}, err
	}
	if !s.ReportEnabled {
		return report.Report{}, report.ErrReportLocked
	}
	if !s.HasTeam(input.TeamID) {
		return report.Report{}, report.ErrInvalidTeam
	}
	if err := input.Content.Validate(); err != nil {
		return report.Report{}, err
	}
	userName := strings.TrimSpace(input.UserName)

	var existing *report.Report
	prev, err := deps.ReportStore.GetByIdentity(ctx, s.ID, input.TeamID, userName)
	switch {
	case err == nil:
		existing = &prev
	case !errors.Is(err, report.ErrNotFound):
		return report.Report{}, fmt.Errorf("lookup report: %w", err)
	}

	now := deps.Now()
	r := report.Upsert(existing, deps.GenerateID(), s.ID, input.TeamID, userName, input.Content, now)
	if err := r.Validate(); err != nil {
		return report.Report{}, err
	}
	if err := deps.ReportStore.Save(ctx, r); err != nil {
		return report.Report{}, fmt.Errorf("save report: %w", err)
	}

	slog.Info("report_event", "event", "report_submitted", "report_id", r.ID, "session_id", s.ID,
		"team", r.TeamID, "resubmission", existing != nil)

	if deps.Outbox != nil && len(deps.NotifyTo) > 0 {
		if err := enqueueReportEmail(ctx, deps.Outbox, deps.GenerateID(), outbox.ReportEmail{ReportID: r.ID, To: deps.NotifyTo}, now); err != nil {
			slog.Error("report_event", "event", "notification_enqueue_failed", "report_id", r.ID, "error", err)
		}
	}
	notifySession(ctx, deps.Notifier, s.ID)
	return r, nil
}

func enqueueReportEmail(ctx context.Context, w OutboxWriter, id string, msg outbox.ReportEmail, now time.Time) error {
	e, err := outbox.NewReportEmail(id, msg, now)
	if err != nil {
		return err
	}
	return w.Save(ctx, e)
}

// --- Infographic ---

// ImageGenerator turns a prompt into an image.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (imagegen.Image, error)
}

// FileStore stores a blob and returns its public URL.
type FileStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
}

// ReportImageDeps holds dependencies for attaching images to reports.
type ReportImageDeps struct {
	ReportStore ReportStoreForOrchestrator
	Generator   ImageGenerator
	Files       FileStore
	Notifier    Notifier
	Now         func() time.Time
}

// GenerateInfographicInput carries input for the infographic orchestrator.
type GenerateInfographicInput struct {
	ReportID string
}

// ExecuteGenerateInfographic renders a report as an infographic and attaches it.
// PRE: report exists
// POST: image stored and report.ImageURL points at it; generator errors are returned unwrapped
// POST: without a file store the generator is never called
func ExecuteGenerateInfographic(ctx context.Context, input GenerateInfographicInput, deps ReportImageDeps) (report.Report, imagegen.Image, error) {
	if deps.Files == nil {
		return report.Report{}, imagegen.Image{}, ErrNoFileStore
	}
	r, err := deps.ReportStore.GetByID(ctx, input.ReportID)
	if err != nil {
		return report.Report{}, imagegen.Image{}, err
	}

	img, err := deps.Generator.Generate(ctx, report.InfographicPrompt(r.Content, r.TeamName()))
	if err != nil {
		slog.Warn("report_event", "event", "infographic_failed", "report_id", r.ID, "error", err)
		return report.Report{}, imagegen.Image{}, err
	}
	data, err := base64.StdEncoding.DecodeString(img.Base64)
	if err != nil {
		return report.Report{}, imagegen.Image{}, fmt.Errorf("decode generated image: %w", err)
	}

	r, err = attachImage(ctx, r, data, report.ImageKey(r, deps.Now()), deps)
	if err != nil {
		return report.Report{}, imagegen.Image{}, err
	}
	slog.Info("report_event", "event", "infographic_attached", "report_id", r.ID, "url", r.ImageURL)
	return r, img, nil
}

// MaxUploadBytes caps a manually uploaded report image.
const MaxUploadBytes = 10 << 20

// Upload errors.
var (
	ErrNoFileStore      = errors.New("image storage is not configured")
	ErrUnsupportedImage = errors.New("only PNG, JPEG and WebP images are accepted")
	ErrImageTooLarge    = fmt.Errorf("image exceeds %d MB", MaxUploadBytes>>20)
)

var uploadExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// UploadReportImageInput carries input for attaching an uploaded image.
type UploadReportImageInput struct {
	ReportID string
	Data     []byte
}

// ExecuteUploadReportImage attaches an image supplied by the student.
// PRE: Data is a PNG, JPEG or WebP image no larger than MaxUploadBytes
// POST: report.ImageURL points at the stored copy
func ExecuteUploadReportImage(ctx context.Context, input UploadReportImageInput, deps ReportImageDeps) (report.Report, error) {
	if len(input.Data) > MaxUploadBytes {
		return report.Report{}, ErrImageTooLarge
	}
	ext, ok := uploadExtensions[http.DetectContentType(input.Data)]
	if !ok {
		return report.Report{}, ErrUnsupportedImage
	}
	r, err := deps.ReportStore.GetByID(ctx, input.ReportID)
	if err != nil {
		return report.Report{}, err
	}
	key := strings.TrimSuffix(report.ImageKey(r, deps.Now()), ".png") + ext
	r, err = attachImage(ctx, r, input.Data, key, deps)
	if err != nil {
		return report.Report{}, err
	}
	slog.Info("report_event", "event", "image_uploaded", "report_id", r.ID, "bytes", len(input.Data))
	return r, nil
}

func attachImage(ctx context.Context, r report.Report, data []byte, key string, deps ReportImageDeps) (report.Report, error) {
	if deps.Files == nil {
		return report.Report{}, ErrNoFileStore
	}
	url, err := deps.Files.Put(ctx, key, data)
	if err != nil {
		return report.Report{}, fmt.Errorf("store image: %w", err)
	}
	if err := deps.ReportStore.UpdateImageURL(ctx, r.ID, url); err != nil {
		return report.Report{}, fmt.Errorf("update image url: %w", err)
	}
	r.ImageURL = url
	notifySession(ctx, deps.Notifier, r.SessionID)
	return r, nil
}
