// Package core defines the fundamental types for Becoming.
// Everything else in the system operates on these.
package core

import (
	"time"
)

// -----------------------------------------------------------------------------
// IDENTITY - An aspirational self-description the user is practicing into
// -----------------------------------------------------------------------------

// IdentityDefinition is a user-authored identity: an intention label plus the
// small recurring practices that express it.
type IdentityDefinition struct {
	ID        string   `json:"id"`        // UUID, caller-generated
	Intention string   `json:"intention"` // Display label, e.g. "a woman who leads with vision"
	Practices []string `json:"practices"` // At most MaxPracticesPerIdentity
}

// Identity limits. Enforced at the API boundary, not by the store.
const (
	FreeIdentityLimit       = 2
	PremiumIdentityLimit    = 7
	MaxPracticesPerIdentity = 4
)

// -----------------------------------------------------------------------------
// FOCUS CYCLE - This week's commitment
// -----------------------------------------------------------------------------

// FocusCycle is the current week's chosen intention plus the practices the
// user committed to for that week. At most one is active at a time.
type FocusCycle struct {
	Intention     string    `json:"intention"`
	Practices     []string  `json:"practices"`
	WeekStartDate time.Time `json:"week_start_date"`
}

// -----------------------------------------------------------------------------
// PRACTICE LOG - A timestamped completion mark
// -----------------------------------------------------------------------------

// CompletionLevel is the three-level scale for a practice mark.
type CompletionLevel string

const (
	CompletionYes      CompletionLevel = "yes"
	CompletionLittle   CompletionLevel = "little"
	CompletionNotToday CompletionLevel = "not_today"
)

// Valid reports whether the level is one of the three known values.
func (l CompletionLevel) Valid() bool {
	switch l {
	case CompletionYes, CompletionLittle, CompletionNotToday:
		return true
	}
	return false
}

// Practiced reports whether the mark counts as the practice having been done.
func (l CompletionLevel) Practiced() bool {
	return l == CompletionYes || l == CompletionLittle
}

// PracticeLog records one completion mark for a practice. Logs are append-only;
// the same practice may be marked any number of times in a day ("already done
// today" is a derived view, not a constraint).
type PracticeLog struct {
	ID        string          `json:"id"`
	Practice  string          `json:"practice"`
	Level     CompletionLevel `json:"level"`
	Timestamp time.Time       `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// WIN - A free-text proof of progress
// -----------------------------------------------------------------------------

// WinType categorizes where a win came from.
type WinType string

const (
	WinTypeText     WinType = "text"     // Free-text entry
	WinTypeState    WinType = "state"    // A felt state the user noticed
	WinTypePractice WinType = "practice" // Generated from a practice completion
)

// Win is one recorded moment of perceived progress. Append-only.
type Win struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Type      WinType   `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// PERSONALITY - Tone profile for generated insight text
// -----------------------------------------------------------------------------

// Personality selects the tone of the insight collaborator.
type Personality string

const (
	PersonalityWiseFriend Personality = "wise-friend"
	PersonalityMuse       Personality = "muse"
	PersonalityAnchor     Personality = "anchor"
	PersonalityPioneer    Personality = "pioneer"
)

// Valid reports whether the personality is one of the four known profiles.
func (p Personality) Valid() bool {
	switch p {
	case PersonalityWiseFriend, PersonalityMuse, PersonalityAnchor, PersonalityPioneer:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// USER STATE - The single persisted aggregate
// -----------------------------------------------------------------------------

// UserState is the whole of the user's profile and progress. Exactly one
// exists per installation. It is held in memory as the source of truth and
// mirrored to durable storage after every mutation.
//
// PracticeLogs and Wins are newest-first: new entries are prepended.
type UserState struct {
	HasCompletedOnboarding bool                 `json:"has_completed_onboarding"`
	ActiveIntentions       []string             `json:"active_intentions"` // Unique, selection order
	CustomIdentities       []IdentityDefinition `json:"custom_identities"`
	CurrentFocusCycle      *FocusCycle          `json:"current_focus_cycle,omitempty"`
	PracticeLogs           []PracticeLog        `json:"practice_logs"`
	Wins                   []Win                `json:"wins"`
	LastReflectionDate     *time.Time           `json:"last_reflection_date,omitempty"`
	IsPremium              bool                 `json:"is_premium"`
	ActivePersonality      Personality          `json:"active_personality"`
}

// DefaultState returns the all-default aggregate used on first launch and as
// the merge base when loading blobs written by older schema versions.
func DefaultState() *UserState {
	return &UserState{
		ActiveIntentions:  []string{},
		CustomIdentities:  []IdentityDefinition{},
		PracticeLogs:      []PracticeLog{},
		Wins:              []Win{},
		ActivePersonality: PersonalityWiseFriend,
	}
}

// IdentityLimit returns how many intentions may be active for the current tier.
func (s *UserState) IdentityLimit() int {
	if s.IsPremium {
		return PremiumIdentityLimit
	}
	return FreeIdentityLimit
}

// HasIntention reports whether label is among the active intentions.
func (s *UserState) HasIntention(label string) bool {
	for _, in := range s.ActiveIntentions {
		if in == label {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state. Mutations operate on a clone so
// consumers holding the previous snapshot never observe in-place changes.
func (s *UserState) Clone() *UserState {
	out := *s

	out.ActiveIntentions = append([]string(nil), s.ActiveIntentions...)

	out.CustomIdentities = make([]IdentityDefinition, len(s.CustomIdentities))
	for i, ident := range s.CustomIdentities {
		ident.Practices = append([]string(nil), ident.Practices...)
		out.CustomIdentities[i] = ident
	}

	if s.CurrentFocusCycle != nil {
		cycle := *s.CurrentFocusCycle
		cycle.Practices = append([]string(nil), s.CurrentFocusCycle.Practices...)
		out.CurrentFocusCycle = &cycle
	}

	out.PracticeLogs = append([]PracticeLog(nil), s.PracticeLogs...)
	out.Wins = append([]Win(nil), s.Wins...)

	if s.LastReflectionDate != nil {
		t := *s.LastReflectionDate
		out.LastReflectionDate = &t
	}

	return &out
}
