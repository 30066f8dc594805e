package alarm

import (
	"time"

	"github.com/oshokin/redalert/internal/domain/alert"
)

// Status is the alarm condition.
type Status int

const (
	// Inactive means no relevant alert is currently active.
	Inactive Status = iota
	// Active means a relevant alert was dispatched and the feed still carries one.
	Active
)

// String implements fmt.Stringer.
func (s Status) String() string {
	if s == Active {
		return "active"
	}

	return "inactive"
}

// State represents the alarm at a specific point in time.
type State struct {
	// Status is the current alarm condition.
	Status Status
	// Timestamp is when Status last changed.
	Timestamp time.Time
	// LastAlertID is the id of the most recently dispatched alert.
	LastAlertID int64
	// LastAlertTitle is the title of the most recently dispatched alert.
	LastAlertTitle string
}

// IsActive reports whether the alarm is active.
func (s *State) IsActive() bool {
	return s != nil && s.Status == Active
}

// Clone returns a copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// Transition describes the effect of one decision on the machine.
type Transition struct {
	From    Status
	To      Status
	Verdict alert.Verdict
}

// Changed reports whether the status moved.
func (t Transition) Changed() bool {
	return t.From != t.To
}
