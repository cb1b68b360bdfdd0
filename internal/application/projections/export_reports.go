package projections

import (
	"context"

	"firesim/internal/domain/export"
)

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportDeps holds dependencies for the export projections.
type ExportDeps struct {
	SessionStore SessionStore
	ReportStore  ReportStore
}

// QueryExportSessionCSV renders every report of a session as one CSV file.
// POST: export.ErrNoReports when the session has no reports
func QueryExportSessionCSV(ctx context.Context, sessionID string, deps ExportDeps) (ExportFile, error) {
	s, err := deps.SessionStore.GetByID(ctx, sessionID)
	if err != nil {
		return ExportFile{}, err
	}
	reports, err := deps.ReportStore.ListBySession(ctx, s.ID)
	if err != nil {
		return ExportFile{}, err
	}
	data, err := export.CSV(reports)
	if err != nil {
		return ExportFile{}, err
	}
	return ExportFile{Filename: export.CSVFilename(s.GroupName), ContentType: export.ContentTypeCSV, Data: data}, nil
}

// QueryExportReportJSON renders a single report as indented JSON.
func QueryExportReportJSON(ctx context.Context, reportID string, deps ExportDeps) (ExportFile, error) {
	r, err := deps.ReportStore.GetByID(ctx, reportID)
	if err != nil {
		return ExportFile{}, err
	}
	data, err := export.JSON(r)
	if err != nil {
		return ExportFile{}, err
	}
	return ExportFile{Filename: export.JSONFilename(r), ContentType: export.ContentTypeJSON, Data: data}, nil
}
