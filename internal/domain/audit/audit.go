// Package audit records facilitator actions: session lifecycle, report gate
// and timer changes, exports, and admin logins.
package audit

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Category groups audit events by the area of the system they touch.
type Category string

const (
	CategorySession  Category = "session"
	CategoryReport   Category = "report"
	CategorySecurity Category = "security"
)

// Categories lists every category in display order.
var Categories = []Category{CategorySession, CategoryReport, CategorySecurity}

// Action is what the facilitator did.
type Action string

const (
	ActionCreate     Action = "create"
	ActionDelete     Action = "delete"
	ActionToggle     Action = "toggle_report"
	ActionTimerStart Action = "timer_start"
	ActionTimerStop  Action = "timer_stop"
	ActionExport     Action = "export"
	ActionLogin      Action = "login"
	ActionLoginFail  Action = "login_failed"
	ActionLogout     Action = "logout"
)

var actionLabels = map[Action]string{
	ActionCreate:     "세션 생성",
	ActionDelete:     "세션 삭제",
	ActionToggle:     "보고서 제출 허용 변경",
	ActionTimerStart: "타이머 시작",
	ActionTimerStop:  "타이머 정지",
	ActionExport:     "보고서 내보내기",
	ActionLogin:      "관리자 로그인",
	ActionLoginFail:  "로그인 실패",
	ActionLogout:     "로그아웃",
}

// Label is the Korean caption shown on the admin audit page.
func (a Action) Label() string {
	if l, ok := actionLabels[a]; ok {
		return l
	}
	return string(a)
}

// Severity represents the severity level of an audit event.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// ResourceSession is the ResourceType of events about a training session.
const ResourceSession = "session"

// ErrIncomplete is returned by Validate for events missing an identity field.
var ErrIncomplete = errors.New("audit event needs id, timestamp, actor and action")

// Event is one entry of the facilitator audit trail.
type Event struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Category     Category  `json:"category"`
	Action       Action    `json:"action"`
	Severity     Severity  `json:"severity"`
	Actor        string    `json:"actor"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Description  string    `json:"description"`
	IPAddress    string    `json:"ip_address"`
}

// NewEvent starts an info-level event stamped with now and a fresh ID.
func NewEvent(now time.Time, actor string, category Category, action Action) Event {
	return Event{
		ID:        uuid.NewString(),
		Timestamp: now,
		Category:  category,
		Action:    action,
		Severity:  SeverityInfo,
		Actor:     actor,
	}
}

// SessionEvent starts an event about one training session.
func SessionEvent(now time.Time, actor string, action Action, sessionID string) Event {
	return NewEvent(now, actor, CategorySession, action).WithResource(ResourceSession, sessionID)
}

// Validate reports whether e can be stored.
func (e Event) Validate() error {
	if e.ID == "" || e.Timestamp.IsZero() || e.Actor == "" || e.Action == "" {
		return ErrIncomplete
	}
	return nil
}

func (e Event) WithSeverity(s Severity) Event {
	e.Severity = s
	return e
}

func (e Event) WithResource(resourceType, resourceID string) Event {
	e.ResourceType = resourceType
	e.ResourceID = resourceID
	return e
}

func (e Event) WithDescription(desc string) Event {
	e.Description = desc
	return e
}

func (e Event) WithIP(ip string) Event {
	e.IPAddress = ip
	return e
}
