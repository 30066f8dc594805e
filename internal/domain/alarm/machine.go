package alarm

import (
	"sync"
	"time"

	"github.com/oshokin/redalert/internal/domain/alert"
)

// Machine tracks the alarm status across cycles.
type Machine struct {
	mu    sync.RWMutex
	state State
	now   func() time.Time
}

// NewMachine creates a machine starting from initial, or Inactive when nil.
func NewMachine(initial *State) *Machine {
	m := &Machine{now: time.Now}

	if initial != nil {
		m.state = *initial
	} else {
		m.state = State{Status: Inactive, Timestamp: m.now()}
	}

	return m
}

// Apply moves the machine according to the decision:
// Dispatch activates, Empty deactivates, Suppressed keeps the status.
func (m *Machine) Apply(d alert.Decision) Transition {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := Transition{
		From:    m.state.Status,
		To:      m.state.Status,
		Verdict: d.Verdict,
	}

	switch d.Verdict {
	case alert.Dispatch:
		t.To = Active
		if d.Alert != nil {
			m.state.LastAlertID = d.Alert.ID
			m.state.LastAlertTitle = d.Alert.Title
		}
	case alert.Empty:
		t.To = Inactive
	case alert.Suppressed:
	}

	if t.Changed() || d.Verdict == alert.Dispatch {
		m.state.Status = t.To
		m.state.Timestamp = m.now()
	}

	return t
}

// Status returns the current status.
func (m *Machine) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Status
}

// State returns a copy of the current state.
func (m *Machine) State() *State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.state.Clone()
}
