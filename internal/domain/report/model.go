package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"firesim/internal/domain/participant"
	"firesim/internal/domain/session"
)

// Default report sections used to prefill the form.
const (
	DefaultContents = "1. 개요\n2. 현상 파악\n3. 원인 분석\n4. 해결 방안"
	DefaultCause    = "전력 과부하, 소화기 미작동, 관리 소홀"
	DefaultSchedule = "즉시: 소화기 교체\n1주 내: 안전 교육\n1달 내: 설비 증설"
)

// Domain errors
var (
	ErrEmptyTitle     = errors.New("report title is required")
	ErrEmptyMembers   = errors.New("report members are required")
	ErrEmptySessionID = errors.New("session is required")
	ErrEmptyUserName  = errors.New("author name is required")
	ErrInvalidTeam    = errors.New("team must be positive")
	ErrReportLocked   = errors.New("report submission is not open yet")
	ErrNotFound       = errors.New("report not found")
)

// Content is the body of a final report.
type Content struct {
	Title      string `json:"title"`
	Members    string `json:"members"`
	Contents   string `json:"contents"`
	Situation  string `json:"situation"`
	Definition string `json:"definition"`
	Cause      string `json:"cause"`
	Solution   string `json:"solution"`
	Prevention string `json:"prevention"`
	Schedule   string `json:"schedule"`
}

// Report is a submitted final report.
// INVARIANT: at most one report exists per (SessionID, TeamID, UserName)
type Report struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	TeamID      int       `json:"teamId"`
	UserName    string    `json:"userName"`
	Content     Content   `json:"report"`
	ImageURL    string    `json:"reportImageUrl,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Validate checks the report content.
// PRE: Content is populated
// POST: Returns nil if title and members are present
func (c *Content) Validate() error {
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	if strings.TrimSpace(c.Members) == "" {
		return ErrEmptyMembers
	}
	return nil
}

// Validate checks the report identity and content.
// PRE: Report struct is populated
// POST: Returns nil if valid, error otherwise
func (r *Report) Validate() error {
	if r.SessionID == "" {
		return ErrEmptySessionID
	}
	if r.TeamID < 1 {
		return ErrInvalidTeam
	}
	if strings.TrimSpace(r.UserName) == "" {
		return ErrEmptyUserName
	}
	return r.Content.Validate()
}

// TeamName returns the display name of the report's team.
func (r *Report) TeamName() string {
	return session.TeamName(r.TeamID)
}

// DefaultTitle returns the prefilled title for a team.
func DefaultTitle(teamID int) string {
	return fmt.Sprintf("%s 화재사고 분석 보고서", session.TeamName(teamID))
}

// DraftFrom builds the prefilled report form from a participant's progress.
// POST: situation/definition come from the gap, solution/prevention from the plans
func DraftFrom(p participant.Participant) Content {
	return Content{
		Title:      DefaultTitle(p.TeamID),
		Members:    p.Name,
		Contents:   DefaultContents,
		Situation:  p.Progress.Gap.Current,
		Definition: p.Progress.Gap.Ideal,
		Cause:      DefaultCause,
		Solution:   p.Progress.Solutions.ShortTerm,
		Prevention: p.Progress.Solutions.Prevention,
		Schedule:   DefaultSchedule,
	}
}

// Upsert applies a submission to an existing report, or creates a new one when existing is nil.
// The existing report keeps its ID, CreatedAt and ImageURL.
// PRE: content has been validated
// POST: returned report has SubmittedAt == UpdatedAt == now
func Upsert(existing *Report, id, sessionID string, teamID int, userName string, content Content, now time.Time) Report {
	if existing != nil {
		r := *existing
		r.Content = content
		r.SubmittedAt = now
		r.UpdatedAt = now
		return r
	}
	return Report{
		ID:          id,
		SessionID:   sessionID,
		TeamID:      teamID,
		UserName:    strings.TrimSpace(userName),
		Content:     content,
		SubmittedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// InfographicPrompt builds the image-generation prompt for a report.
func InfographicPrompt(c Content, teamName string) string {
	var b strings.Builder
	b.WriteString("Create a professional business infographic image based on this report data.\n\n")
	b.WriteString("REPORT INFORMATION:\n")
	fmt.Fprintf(&b, "- Title: %s\n- Team: %s\n- Members: %s\n\n", c.Title, teamName, c.Members)
	b.WriteString("CONTENT SECTIONS:\n")
	fmt.Fprintf(&b, "1. SITUATION (Facts): %s\n", c.Situation)
	fmt.Fprintf(&b, "2. PROBLEM (Gap Analysis): %s\n", c.Definition)
	fmt.Fprintf(&b, "3. ROOT CAUSE: %s\n", c.Cause)
	fmt.Fprintf(&b, "4. SOLUTIONS: %s\n", c.Solution)
	fmt.Fprintf(&b, "5. PREVENTION: %s\n", c.Prevention)
	fmt.Fprintf(&b, "6. SCHEDULE: %s\n\n", c.Schedule)
	b.WriteString("DESIGN REQUIREMENTS:\n")
	b.WriteString("- Professional business infographic style\n")
	b.WriteString("- 3:4 portrait layout\n")
	b.WriteString("- Bento grid layout with distinct colored sections\n")
	b.WriteString("- Color scheme: Yellow (#fbbf24), Indigo (#4f46e5), White, Black\n")
	b.WriteString("- Bold neo-brutalist style with thick borders\n")
	b.WriteString("- Icons for each section\n")
	b.WriteString("- Clean typography hierarchy\n")
	b.WriteString("- Executive presentation quality\n\n")
	b.WriteString("Generate ONLY the infographic image. No text explanation needed.")
	return b.String()
}

// keySegment flattens a free-text value into one path segment.
var keySegment = strings.NewReplacer("/", "_", `\`, "_")

// ImageKey returns the storage key for a report's infographic.
// INVARIANT: the key has exactly three segments whatever the author typed
func ImageKey(r Report, now time.Time) string {
	return fmt.Sprintf("reports/%s/%s_%s_%d.png",
		keySegment.Replace(r.SessionID), r.TeamName(), keySegment.Replace(strings.TrimSpace(r.UserName)), now.UnixMilli())
}
