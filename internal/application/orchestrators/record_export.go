package orchestrators

import (
	"context"
	"time"

	"firesim/internal/domain/audit"
)

// RecordExportInput describes one download of participant reports.
type RecordExportInput struct {
	ResourceType string // audit.ResourceSession for a CSV, "report" for a single JSON
	ResourceID   string
	Filename     string
	Actor        Actor
}

// RecordExportDeps holds dependencies for RecordExport.
type RecordExportDeps struct {
	Audit AuditRecorder
	Now   func() time.Time
}

// ExecuteRecordExport adds an export entry to the audit trail. Report content
// leaves the server through exports, so each one is kept.
// POST: audit failures are logged, never returned
func ExecuteRecordExport(ctx context.Context, input RecordExportInput, deps RecordExportDeps) {
	recordAudit(ctx, deps.Audit, audit.NewEvent(deps.Now(), input.Actor.Name, audit.CategoryReport, audit.ActionExport).
		WithResource(input.ResourceType, input.ResourceID).
		WithDescription(input.Filename).
		WithIP(input.Actor.IP))
}
