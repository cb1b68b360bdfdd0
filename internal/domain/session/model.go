package session

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Team count bounds for a session.
const (
	MinTeams     = 1
	MaxTeams     = 12
	DefaultTeams = 6
)

// UrgentThreshold is the remaining time below which the countdown is shown as urgent.
const UrgentThreshold = 5 * time.Minute

// DefaultTimerDuration is the timer length used when an admin starts the timer without one.
const DefaultTimerDuration = 60 * time.Minute

// Countdown labels shown when the timer is stopped or has run out.
const (
	LabelStopped = "--:--"
	LabelElapsed = "00:00"
)

// Domain errors
var (
	ErrEmptyGroupName   = errors.New("group name is required")
	ErrInvalidTeamCount = fmt.Errorf("team count must be between %d and %d", MinTeams, MaxTeams)
	ErrInvalidDuration  = errors.New("timer duration must be positive")
	ErrNotFound         = errors.New("session not found")
)

// Session is one training run: a named group of students split into numbered teams.
// The countdown timer is advisory. Clients derive the remaining time from TimerEndAt.
type Session struct {
	ID            string
	GroupName     string
	TotalTeams    int
	ReportEnabled bool
	TimerRunning  bool
	TimerEndAt    time.Time // zero when the timer is not running
	CreatedAt     time.Time
}

// Validate checks if the Session has valid data.
// PRE: Session struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Session) Validate() error {
	if strings.TrimSpace(s.GroupName) == "" {
		return ErrEmptyGroupName
	}
	if s.TotalTeams < MinTeams || s.TotalTeams > MaxTeams {
		return ErrInvalidTeamCount
	}
	return nil
}

// SetReportEnabled opens or closes the report gate for students.
// POST: ReportEnabled == enabled
func (s *Session) SetReportEnabled(enabled bool) {
	s.ReportEnabled = enabled
}

// StartTimer starts (or restarts) the countdown so it ends duration after now.
// PRE: duration > 0
// POST: TimerRunning is true, TimerEndAt == now + duration
func (s *Session) StartTimer(now time.Time, duration time.Duration) error {
	if duration <= 0 {
		return ErrInvalidDuration
	}
	s.TimerRunning = true
	s.TimerEndAt = now.Add(duration)
	return nil
}

// StopTimer stops the countdown.
// POST: TimerRunning is false, TimerEndAt is zero
func (s *Session) StopTimer() {
	s.TimerRunning = false
	s.TimerEndAt = time.Time{}
}

// Remaining returns the time left on the countdown, never negative.
func (s *Session) Remaining(now time.Time) time.Duration {
	if !s.TimerRunning || s.TimerEndAt.IsZero() {
		return 0
	}
	left := s.TimerEndAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// CountdownLabel renders the countdown as MM:SS.
// Minutes are not wrapped at 60, so a 90 minute timer shows "90:00".
// Partial seconds are dropped, matching the browser's own tick.
// INVARIANT: returns LabelStopped when the timer is off and LabelElapsed once it has run out
func (s *Session) CountdownLabel(now time.Time) string {
	if !s.TimerRunning || s.TimerEndAt.IsZero() {
		return LabelStopped
	}
	left := s.Remaining(now)
	if left <= 0 {
		return LabelElapsed
	}
	secs := int(left / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// IsUrgent reports whether the running timer has less than UrgentThreshold left.
func (s *Session) IsUrgent(now time.Time) bool {
	return s.TimerRunning && s.Remaining(now) < UrgentThreshold
}

// TeamNumbers returns 1..TotalTeams.
func (s *Session) TeamNumbers() []int {
	teams := make([]int, 0, s.TotalTeams)
	for i := 1; i <= s.TotalTeams; i++ {
		teams = append(teams, i)
	}
	return teams
}

// HasTeam reports whether team is a valid team number for this session.
func (s *Session) HasTeam(team int) bool {
	return team >= 1 && team <= s.TotalTeams
}

// TeamName returns the display name of a team number, e.g. "3조".
func TeamName(team int) string {
	return fmt.Sprintf("%d조", team)
}
