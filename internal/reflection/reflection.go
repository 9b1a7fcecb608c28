// Package reflection implements the weekly reflection checkpoint: after a
// focus cycle has run for a week the user is prompted once, and only once,
// to continue the cycle or pivot to a new intention.
package reflection

import (
	"time"

	"github.com/becoming/becoming/internal/core"
	"github.com/becoming/becoming/internal/state"
)

// CycleLength is how long a focus cycle runs before reflection is due.
const CycleLength = 7 * 24 * time.Hour

// Status is the reflection state for the current cycle.
type Status string

const (
	StatusNoActiveCycle Status = "no_active_cycle"
	StatusCycleActive   Status = "cycle_active"
	StatusReflectionDue Status = "reflection_due"
)

// Evaluate returns the reflection status for a state snapshot at the given
// time. Reflection is due when the cycle is at least a week old and its
// start date has not already been reflected on.
func Evaluate(s *core.UserState, now time.Time) Status {
	cycle := s.CurrentFocusCycle
	if cycle == nil {
		return StatusNoActiveCycle
	}
	if now.Sub(cycle.WeekStartDate) < CycleLength {
		return StatusCycleActive
	}
	if s.LastReflectionDate != nil && s.LastReflectionDate.Equal(cycle.WeekStartDate) {
		return StatusCycleActive
	}
	return StatusReflectionDue
}

// Manager drives the reflection transitions against the state store.
type Manager struct {
	store *state.Store
}

// NewManager creates a reflection manager. A nil store is a wiring bug.
func NewManager(store *state.Store) *Manager {
	if store == nil {
		panic("reflection: NewManager called with nil store")
	}
	return &Manager{store: store}
}

// Status evaluates the current store state.
func (m *Manager) Status(now time.Time) Status {
	return Evaluate(m.store.State(), now)
}

// Continue resolves a due reflection by carrying the cycle forward: the old
// week start is recorded as reflected on and the clock resets to now.
// Returns ErrNoActiveCycle when no reflection is applicable.
func (m *Manager) Continue(now time.Time) error {
	if m.store.State().CurrentFocusCycle == nil {
		return core.ErrNoActiveCycle
	}
	m.store.RefreshCycle(now)
	return nil
}

// Pivot resolves a due reflection by ending the cycle. The store records the
// reflection and drops the cycle; selecting the next intention is a separate
// flow.
func (m *Manager) Pivot() error {
	if m.store.State().CurrentFocusCycle == nil {
		return core.ErrNoActiveCycle
	}
	m.store.PivotCycle()
	return nil
}
