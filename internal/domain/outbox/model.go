// Package outbox models side effects that must eventually reach an external
// service. A report submission commits its notification here first so the
// student never waits on the mail provider.
package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status values. Done, failed and abandoned are terminal.
const (
	StatusPending   = "pending"
	StatusRetrying  = "retrying"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusAbandoned = "abandoned"
)

// ActionTypeReportEmail notifies the facilitator that a report was submitted.
const ActionTypeReportEmail = "report_email"

// DefaultMaxAttempts is applied when an entry does not set MaxAttempts.
const DefaultMaxAttempts = 5

var (
	ErrEmptyActionType = errors.New("action type is required")
	ErrEmptyPayload    = errors.New("payload is required")
	ErrMissingCreated  = errors.New("created_at must be set")
	ErrTerminal        = errors.New("entry is in a terminal state")
	ErrWrongAction     = errors.New("entry has a different action type")
)

// permanentError marks a failure that no retry can fix.
type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent wraps err so MarkFailed gives up at once, e.g. when the report a
// notification refers to has been deleted with its session.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, came from Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Entry is one queued side effect.
type Entry struct {
	ID              string
	ActionType      string
	Payload         string // JSON, decoded by the executor for ActionType
	Status          string
	Attempts        int
	MaxAttempts     int
	LastAttemptedAt time.Time
	CreatedAt       time.Time
	ExternalID      string // provider reference once delivered
	ErrorMessage    string
}

// ReportEmail is the payload of a report-submitted notification.
type ReportEmail struct {
	ReportID string   `json:"report_id"`
	To       []string `json:"to"`
}

// NewReportEmail queues a notification for one submitted report.
// POST: returned entry is valid and pending
func NewReportEmail(id string, msg ReportEmail, now time.Time) (Entry, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return Entry{}, err
	}
	e := Entry{ID: id, ActionType: ActionTypeReportEmail, Payload: string(payload), CreatedAt: now}
	return e, e.Validate()
}

// DecodeReportEmail reads a report email payload. Malformed payloads are
// permanent failures.
func DecodeReportEmail(payload string) (ReportEmail, error) {
	var msg ReportEmail
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return ReportEmail{}, Permanent(fmt.Errorf("decode report email: %w", err))
	}
	if msg.ReportID == "" {
		return ReportEmail{}, Permanent(errors.New("report email without report id"))
	}
	return msg, nil
}

// Validate checks the entry and fills in Status and MaxAttempts defaults.
func (e *Entry) Validate() error {
	switch {
	case e.ActionType == "":
		return ErrEmptyActionType
	case e.Payload == "":
		return ErrEmptyPayload
	case e.CreatedAt.IsZero():
		return ErrMissingCreated
	}
	if e.MaxAttempts <= 0 {
		e.MaxAttempts = DefaultMaxAttempts
	}
	if e.Status == "" {
		e.Status = StatusPending
	}
	return nil
}

// CanRetry reports whether another attempt is allowed.
func (e *Entry) CanRetry() bool {
	return !e.IsTerminal() && e.Attempts < e.MaxAttempts
}

// IsTerminal reports whether the entry will never be attempted again.
func (e *Entry) IsTerminal() bool {
	switch e.Status {
	case StatusDone, StatusFailed, StatusAbandoned:
		return true
	}
	return false
}

// MarkAttempt counts an attempt started at now.
func (e *Entry) MarkAttempt(now time.Time) {
	e.Attempts++
	e.LastAttemptedAt = now
	e.Status = StatusRetrying
}

// MarkSuccess records delivery.
// POST: Status done, ErrorMessage cleared
func (e *Entry) MarkSuccess(externalID string) {
	e.Status = StatusDone
	e.ExternalID = externalID
	e.ErrorMessage = ""
}

// MarkFailed records err. The entry becomes failed once attempts are
// exhausted or err is permanent.
func (e *Entry) MarkFailed(err error) {
	e.ErrorMessage = err.Error()
	if IsPermanent(err) || e.Attempts >= e.MaxAttempts {
		e.Status = StatusFailed
	}
}

// Requeue grants a failed entry one more attempt. Other states are left alone.
// POST: a failed entry is retrying and CanRetry is true
func (e *Entry) Requeue() {
	if e.Status == StatusFailed {
		e.Status = StatusRetrying
		e.MaxAttempts = e.Attempts + 1
	}
}

// MarkAbandoned stops further attempts.
func (e *Entry) MarkAbandoned() {
	e.Status = StatusAbandoned
}

// NextRetryDelay doubles base for every attempt so far, capped at maxDelay.
func (e *Entry) NextRetryDelay(base, maxDelay time.Duration) time.Duration {
	if e.Attempts >= 32 {
		return maxDelay
	}
	delay := base << e.Attempts
	if delay <= 0 || delay > maxDelay {
		return maxDelay
	}
	return delay
}

// DueAt reports whether the backoff since the last attempt has elapsed.
func (e *Entry) DueAt(now time.Time, base, maxDelay time.Duration) bool {
	return e.LastAttemptedAt.IsZero() || !now.Before(e.LastAttemptedAt.Add(e.NextRetryDelay(base, maxDelay)))
}
