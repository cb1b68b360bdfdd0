package orchestrators

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"firesim/internal/adapters/imagegen"
	"firesim/internal/domain/outbox"
	"firesim/internal/domain/report"
	"firesim/internal/domain/session"
)

var validContent = report.Content{
	Title:      "1조 화재사고 분석 보고서",
	Members:    "김철수, 이영희",
	Situation:  "오전 10:30 화재",
	Definition: "무사고 사업장",
	Cause:      "전력 과부하",
}

func newSubmitDeps(gateOpen bool) (SubmitReportDeps, *fakeReportStore, *fakeOutboxStore, *fakeNotifier) {
	s := testSession
	s.ReportEnabled = gateOpen
	rs := newFakeReportStore()
	ob := newFakeOutboxStore()
	n := &fakeNotifier{}
	return SubmitReportDeps{
		SessionStore: newFakeSessionStore(s),
		ReportStore:  rs,
		Outbox:       ob,
		NotifyTo:     []string{"trainer@example.com"},
		Notifier:     n,
		GenerateID:   sequentialIDs(),
		Now:          fixedNow,
	}, rs, ob, n
}

func TestExecuteSubmitReport(t *testing.T) {
	deps, rs, ob, n := newSubmitDeps(true)
	ctx := context.Background()

	r, err := ExecuteSubmitReport(ctx, SubmitReportInput{SessionID: "s1", TeamID: 1, UserName: "김철수", Content: validContent}, deps)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if r.SessionID != "s1" || r.TeamID != 1 || r.UserName != "김철수" || !r.SubmittedAt.Equal(fixedTime) {
		t.Errorf("report = %+v", r)
	}
	if len(rs.byID) != 1 {
		t.Errorf("reports stored = %d", len(rs.byID))
	}
	if len(n.sessions) != 1 || n.sessions[0] != "s1" {
		t.Errorf("notifications = %v", n.sessions)
	}

	if len(ob.order) != 1 {
		t.Fatalf("outbox entries = %d, want 1", len(ob.order))
	}
	entry := ob.entries[ob.order[0]]
	if entry.ActionType != outbox.ActionTypeReportEmail || entry.Status != outbox.StatusPending {
		t.Errorf("outbox entry = %+v", entry)
	}
	payload, err := outbox.DecodeReportEmail(entry.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if payload.ReportID != r.ID || len(payload.To) != 1 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestExecuteSubmitReport_ResubmitReplaces(t *testing.T) {
	deps, rs, _, _ := newSubmitDeps(true)
	ctx := context.Background()
	in := SubmitReportInput{SessionID: "s1", TeamID: 1, UserName: "김철수", Content: validContent}

	first, err := ExecuteSubmitReport(ctx, in, deps)
	if err != nil {
		t.Fatal(err)
	}
	if err := rs.UpdateImageURL(ctx, first.ID, "/files/a.png"); err != nil {
		t.Fatal(err)
	}

	in.Content.Title = "수정된 보고서"
	second, err := ExecuteSubmitReport(ctx, in, deps)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID {
		t.Errorf("resubmission id = %s, want %s", second.ID, first.ID)
	}
	if len(rs.byID) != 1 {
		t.Fatalf("reports stored = %d, want 1", len(rs.byID))
	}
	stored := rs.byID[first.ID]
	if stored.Content.Title != "수정된 보고서" || stored.ImageURL != "/files/a.png" {
		t.Errorf("stored = %+v", stored)
	}
}

func TestExecuteSubmitReport_Rejected(t *testing.T) {
	tests := []struct {
		name     string
		gateOpen bool
		input    SubmitReportInput
		wantErr  error
	}{
		{"gate closed", false, SubmitReportInput{SessionID: "s1", TeamID: 1, UserName: "a", Content: validContent}, report.ErrReportLocked},
		{"unknown session", true, SubmitReportInput{SessionID: "x", TeamID: 1, UserName: "a", Content: validContent}, session.ErrNotFound},
		{"team outside session", true, SubmitReportInput{SessionID: "s1", TeamID: 9, UserName: "a", Content: validContent}, report.ErrInvalidTeam},
		{"missing title", true, SubmitReportInput{SessionID: "s1", TeamID: 1, UserName: "a", Content: report.Content{Members: "a"}}, report.ErrEmptyTitle},
		{"missing members", true, SubmitReportInput{SessionID: "s1", TeamID: 1, UserName: "a", Content: report.Content{Title: "t"}}, report.ErrEmptyMembers},
		{"blank author", true, SubmitReportInput{SessionID: "s1", TeamID: 1, UserName: "  ", Content: validContent}, report.ErrEmptyUserName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps, rs, ob, _ := newSubmitDeps(tt.gateOpen)
			_, err := ExecuteSubmitReport(context.Background(), tt.input, deps)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if len(rs.byID) != 0 || len(ob.order) != 0 {
				t.Error("rejected submission must not store anything")
			}
		})
	}
}

func TestExecuteSubmitReport_NoRecipients(t *testing.T) {
	deps, _, ob, _ := newSubmitDeps(true)
	deps.NotifyTo = nil
	if _, err := ExecuteSubmitReport(context.Background(), SubmitReportInput{SessionID: "s1", TeamID: 2, UserName: "a", Content: validContent}, deps); err != nil {
		t.Fatal(err)
	}
	if len(ob.order) != 0 {
		t.Error("no notification is queued without recipients")
	}
}

func storedReport(rs *fakeReportStore) report.Report {
	r := report.Report{ID: "r1", SessionID: "s1", TeamID: 2, UserName: "김철수", Content: validContent, SubmittedAt: fixedTime, CreatedAt: fixedTime, UpdatedAt: fixedTime}
	rs.byID[r.ID] = r
	return r
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestExecuteGenerateInfographic(t *testing.T) {
	rs := newFakeReportStore()
	storedReport(rs)
	gen := &imagegen.Static{Image: imagegen.Image{Base64: base64.StdEncoding.EncodeToString(pngBytes), MIMEType: "image/png"}}
	files := &fakeFiles{}
	n := &fakeNotifier{}
	deps := ReportImageDeps{ReportStore: rs, Generator: gen, Files: files, Notifier: n, Now: fixedNow}

	r, img, err := ExecuteGenerateInfographic(context.Background(), GenerateInfographicInput{ReportID: "r1"}, deps)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gen.Calls != 1 || img.MIMEType != "image/png" {
		t.Errorf("calls=%d image=%+v", gen.Calls, img)
	}
	if !strings.HasPrefix(r.ImageURL, "/files/reports/s1/") || rs.byID["r1"].ImageURL != r.ImageURL {
		t.Errorf("image url = %q, stored %q", r.ImageURL, rs.byID["r1"].ImageURL)
	}
	if len(files.puts) != 1 {
		t.Fatalf("files stored = %d", len(files.puts))
	}
	for _, data := range files.puts {
		if !bytes.Equal(data, pngBytes) {
			t.Error("stored bytes differ from generated image")
		}
	}
	if len(n.sessions) != 1 {
		t.Errorf("notifications = %v", n.sessions)
	}
}

func TestExecuteGenerateInfographic_GeneratorError(t *testing.T) {
	rs := newFakeReportStore()
	storedReport(rs)
	deps := ReportImageDeps{ReportStore: rs, Generator: &imagegen.Static{Err: imagegen.ErrTimeout}, Files: &fakeFiles{}, Now: fixedNow}

	_, _, err := ExecuteGenerateInfographic(context.Background(), GenerateInfographicInput{ReportID: "r1"}, deps)
	if !errors.Is(err, imagegen.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if imagegen.StatusCode(err) != 504 {
		t.Errorf("status = %d", imagegen.StatusCode(err))
	}
	if rs.byID["r1"].ImageURL != "" {
		t.Error("failed generation must not attach an image")
	}
}

// Nothing is generated when there is nowhere to keep the result.
func TestExecuteGenerateInfographic_NoFileStore(t *testing.T) {
	rs := newFakeReportStore()
	storedReport(rs)
	gen := &imagegen.Static{Image: imagegen.Image{Base64: base64.StdEncoding.EncodeToString(pngBytes)}}
	deps := ReportImageDeps{ReportStore: rs, Generator: gen, Now: fixedNow}

	_, _, err := ExecuteGenerateInfographic(context.Background(), GenerateInfographicInput{ReportID: "r1"}, deps)
	if !errors.Is(err, ErrNoFileStore) {
		t.Fatalf("err = %v, want ErrNoFileStore", err)
	}
	if gen.Calls != 0 {
		t.Errorf("generator calls = %d, want 0", gen.Calls)
	}

	_, err = ExecuteUploadReportImage(context.Background(), UploadReportImageInput{ReportID: "r1", Data: pngBytes}, deps)
	if !errors.Is(err, ErrNoFileStore) {
		t.Errorf("upload err = %v, want ErrNoFileStore", err)
	}
}

func TestExecuteUploadReportImage(t *testing.T) {
	rs := newFakeReportStore()
	storedReport(rs)
	files := &fakeFiles{}
	deps := ReportImageDeps{ReportStore: rs, Files: files, Now: fixedNow}
	ctx := context.Background()

	r, err := ExecuteUploadReportImage(ctx, UploadReportImageInput{ReportID: "r1", Data: pngBytes}, deps)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasSuffix(r.ImageURL, ".png") {
		t.Errorf("url = %q", r.ImageURL)
	}

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"text file", []byte("hello, not an image"), ErrUnsupportedImage},
		{"too large", make([]byte, MaxUploadBytes+1), ErrImageTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExecuteUploadReportImage(ctx, UploadReportImageInput{ReportID: "r1", Data: tt.data}, deps); err != tt.wantErr {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := ExecuteUploadReportImage(ctx, UploadReportImageInput{ReportID: "missing", Data: pngBytes}, deps); !errors.Is(err, report.ErrNotFound) {
		t.Errorf("missing report err = %v", err)
	}
}
