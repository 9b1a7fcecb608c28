// Package state implements the in-memory user state store and its mutation
// operations. The store is the single source of truth: every mutation updates
// memory first, then mirrors the result to durable storage write-through.
// A failed write never rolls memory back.
package state

import (
	"sync"
	"time"

	"github.com/becoming/becoming/internal/core"
)

// Persister is the durable-storage boundary the store writes through.
// storage.StateStore satisfies it; tests substitute their own.
type Persister interface {
	Load() *core.UserState
	Save(state *core.UserState)
	Clear()
}

// Subscriber is notified with a snapshot after every mutation.
type Subscriber func(state *core.UserState)

// Store holds the authoritative in-memory user state. There is exactly one
// writer (the API/CLI boundary), but reads can come from anywhere, so access
// goes through a mutex.
type Store struct {
	mu        sync.RWMutex
	current   *core.UserState
	persister Persister
	subs      []Subscriber
}

// NewStore creates the store and performs the one startup load. A nil
// persister is a wiring bug, not a runtime condition, and fails fast.
func NewStore(p Persister) *Store {
	if p == nil {
		panic("state: NewStore called with nil persister")
	}
	return &Store{
		current:   p.Load(),
		persister: p,
	}
}

// State returns a snapshot of the current state. The snapshot is a deep copy;
// callers can hold it across mutations without seeing changes.
func (s *Store) State() *core.UserState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// Subscribe registers a callback invoked with a snapshot after each mutation.
// Subscribers run synchronously on the mutating goroutine.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// mutate clones the current state, applies fn, swaps the clone in, persists
// it, and notifies subscribers. Every named operation goes through here.
// The Save runs under the lock: mutations can race in from concurrent HTTP
// handlers, and releasing the lock first would let two durable writes land
// in inverted order, leaving storage on a stale snapshot until the next
// mutation. Readers stall for the duration of one small blob write.
func (s *Store) mutate(fn func(next *core.UserState)) {
	s.mu.Lock()
	next := s.current.Clone()
	fn(next)
	s.current = next
	subs := s.subs
	s.persister.Save(next)
	s.mu.Unlock()

	for _, sub := range subs {
		sub(next.Clone())
	}
}

// Partial is the shallow-merge escape hatch for simple field changes. Only
// non-nil fields are applied. ClearFocusCycle exists because a nil
// CurrentFocusCycle means "leave unchanged", not "remove".
type Partial struct {
	HasCompletedOnboarding *bool
	ActiveIntentions       *[]string
	CurrentFocusCycle      *core.FocusCycle
	ClearFocusCycle        bool
	LastReflectionDate     *time.Time
	IsPremium              *bool
	ActivePersonality      *core.Personality
}

// UpdateState shallow-merges the partial into the current state.
func (s *Store) UpdateState(p Partial) {
	s.mutate(func(next *core.UserState) {
		if p.HasCompletedOnboarding != nil {
			next.HasCompletedOnboarding = *p.HasCompletedOnboarding
		}
		if p.ActiveIntentions != nil {
			next.ActiveIntentions = append([]string(nil), (*p.ActiveIntentions)...)
		}
		if p.CurrentFocusCycle != nil {
			cycle := *p.CurrentFocusCycle
			next.CurrentFocusCycle = &cycle
		}
		if p.ClearFocusCycle {
			next.CurrentFocusCycle = nil
		}
		if p.LastReflectionDate != nil {
			t := *p.LastReflectionDate
			next.LastReflectionDate = &t
		}
		if p.IsPremium != nil {
			next.IsPremium = *p.IsPremium
		}
		if p.ActivePersonality != nil {
			next.ActivePersonality = *p.ActivePersonality
		}
	})
}

// AddWin prepends a fully-formed win. The caller generates ID and timestamp.
func (s *Store) AddWin(win core.Win) {
	s.mutate(func(next *core.UserState) {
		next.Wins = append([]core.Win{win}, next.Wins...)
	})
}

// LogPractice prepends a fully-formed practice log. One entry per mark;
// duplicates within a day are allowed.
func (s *Store) LogPractice(log core.PracticeLog) {
	s.mutate(func(next *core.UserState) {
		next.PracticeLogs = append([]core.PracticeLog{log}, next.PracticeLogs...)
	})
}

// SetFocusCycle replaces the current focus cycle wholesale.
func (s *Store) SetFocusCycle(cycle core.FocusCycle) {
	s.mutate(func(next *core.UserState) {
		c := cycle
		c.Practices = append([]string(nil), cycle.Practices...)
		next.CurrentFocusCycle = &c
	})
}

// ClearFocusCycle abandons the current focus cycle mid-week without
// recording a reflection. The reflection pivot is PivotCycle, which stamps
// LastReflectionDate before clearing.
func (s *Store) ClearFocusCycle() {
	s.mutate(func(next *core.UserState) {
		next.CurrentFocusCycle = nil
	})
}

// AddCustomIdentity appends a user-authored identity. No uniqueness check on
// the intention text; duplicate labels are possible.
func (s *Store) AddCustomIdentity(identity core.IdentityDefinition) {
	s.mutate(func(next *core.UserState) {
		identity.Practices = append([]string(nil), identity.Practices...)
		next.CustomIdentities = append(next.CustomIdentities, identity)
	})
}

// RemoveCustomIdentity removes the identity with the given ID. If its
// intention label is currently active it is removed from ActiveIntentions
// too, keeping the two collections consistent.
func (s *Store) RemoveCustomIdentity(id string) {
	s.mutate(func(next *core.UserState) {
		var removed []string
		kept := next.CustomIdentities[:0]
		for _, ident := range next.CustomIdentities {
			if ident.ID == id {
				removed = append(removed, ident.Intention)
				continue
			}
			kept = append(kept, ident)
		}
		next.CustomIdentities = kept

		if len(removed) == 0 {
			return
		}
		intentions := next.ActiveIntentions[:0]
		for _, label := range next.ActiveIntentions {
			drop := false
			for _, r := range removed {
				if label == r {
					drop = true
					break
				}
			}
			if !drop {
				intentions = append(intentions, label)
			}
		}
		next.ActiveIntentions = intentions
	})
}

// ToggleIntention adds the label to the active intentions if absent, removes
// it if present. Uniqueness is preserved; the tier limit is the caller's
// policy, not the store's.
func (s *Store) ToggleIntention(label string) {
	s.mutate(func(next *core.UserState) {
		for i, in := range next.ActiveIntentions {
			if in == label {
				next.ActiveIntentions = append(next.ActiveIntentions[:i], next.ActiveIntentions[i+1:]...)
				return
			}
		}
		next.ActiveIntentions = append(next.ActiveIntentions, label)
	})
}

// SetPremium sets the entitlement flag. No payment verification here.
func (s *Store) SetPremium(premium bool) {
	s.mutate(func(next *core.UserState) {
		next.IsPremium = premium
	})
}

// SetActivePersonality selects the insight tone profile.
func (s *Store) SetActivePersonality(p core.Personality) {
	s.mutate(func(next *core.UserState) {
		next.ActivePersonality = p
	})
}

// SetOnboardingComplete marks initial onboarding as done.
func (s *Store) SetOnboardingComplete() {
	s.mutate(func(next *core.UserState) {
		next.HasCompletedOnboarding = true
	})
}

// RefreshCycle implements the reflection "continue" transition: the old
// week start is stamped as reflected on, then the cycle clock resets to now
// with the same intention and practices carried forward. No-op without an
// active cycle.
func (s *Store) RefreshCycle(now time.Time) {
	s.mutate(func(next *core.UserState) {
		if next.CurrentFocusCycle == nil {
			return
		}
		old := next.CurrentFocusCycle.WeekStartDate
		next.LastReflectionDate = &old
		next.CurrentFocusCycle.WeekStartDate = now
	})
}

// PivotCycle implements the reflection "pivot" transition: the old week
// start is stamped as reflected on and the cycle is cleared. Choosing the
// replacement intention is the caller's flow, not the store's.
func (s *Store) PivotCycle() {
	s.mutate(func(next *core.UserState) {
		if next.CurrentFocusCycle == nil {
			return
		}
		old := next.CurrentFocusCycle.WeekStartDate
		next.LastReflectionDate = &old
		next.CurrentFocusCycle = nil
	})
}

// ResetState clears durable storage and reinstates defaults. Irreversible.
// Storage reads as absent afterward; the defaults are not re-persisted until
// the next mutation.
func (s *Store) ResetState() {
	s.mu.Lock()
	s.current = core.DefaultState()
	snapshot := s.current
	subs := s.subs
	s.persister.Clear()
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot.Clone())
	}
}
