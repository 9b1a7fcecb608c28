// Package storage provides persistence for Becoming.
package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/becoming/becoming/internal/core"
	"github.com/becoming/becoming/internal/logging"
)

// stateKey is the single fixed key the user aggregate is stored under.
const stateKey = "user_state"

// StateStore persists the user aggregate as one JSON blob. It fails soft:
// a read that cannot be parsed yields defaults, a write that cannot land is
// logged and swallowed. The in-memory copy stays authoritative either way.
type StateStore struct {
	db *DB
}

// NewStateStore creates a new state store
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// Load reads the persisted aggregate. If the blob is absent or unparsable it
// returns the default state; it never returns an error to the caller.
func (s *StateStore) Load() *core.UserState {
	var value string
	err := s.db.conn.QueryRow(
		"SELECT value FROM snapshots WHERE key = ?", stateKey,
	).Scan(&value)

	if err == sql.ErrNoRows {
		return core.DefaultState()
	}
	if err != nil {
		logging.Error("state load failed, using defaults: %v", err)
		return core.DefaultState()
	}

	state, err := MergeDefaults([]byte(value))
	if err != nil {
		logging.Error("state blob unparsable, using defaults: %v", err)
		return core.DefaultState()
	}

	return state
}

// MergeDefaults unmarshals a persisted blob over the current-schema defaults.
// Fields the blob was written without keep their default values, so a blob
// written by an older schema version loads cleanly. This is the whole of the
// migration policy for the aggregate.
func MergeDefaults(blob []byte) (*core.UserState, error) {
	state := core.DefaultState()
	if err := json.Unmarshal(blob, state); err != nil {
		return nil, err
	}

	// json.Unmarshal leaves absent slices nil; normalize back to empty so
	// callers can range without nil checks and round-trips stay stable.
	if state.ActiveIntentions == nil {
		state.ActiveIntentions = []string{}
	}
	if state.CustomIdentities == nil {
		state.CustomIdentities = []core.IdentityDefinition{}
	}
	if state.PracticeLogs == nil {
		state.PracticeLogs = []core.PracticeLog{}
	}
	if state.Wins == nil {
		state.Wins = []core.Win{}
	}
	if state.ActivePersonality == "" {
		state.ActivePersonality = core.PersonalityWiseFriend
	}

	return state, nil
}

// Save serializes the full aggregate and overwrites the blob. Failures are
// logged and swallowed; the caller's in-memory state is not rolled back.
func (s *StateStore) Save(state *core.UserState) {
	data, err := json.Marshal(state)
	if err != nil {
		logging.Error("state marshal failed, write skipped: %v", err)
		return
	}

	_, err = s.db.conn.Exec(`
		INSERT INTO snapshots (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, stateKey, string(data), time.Now().UTC())
	if err != nil {
		logging.Error("state write failed: %v", err)
	}
}

// Clear deletes the durable blob entirely. Used only by the full reset.
func (s *StateStore) Clear() {
	if _, err := s.db.conn.Exec("DELETE FROM snapshots WHERE key = ?", stateKey); err != nil {
		logging.Error("state clear failed: %v", err)
	}
}

// Exists reports whether a durable blob is present. Mostly useful in tests
// and for the CLI status display.
func (s *StateStore) Exists() bool {
	var count int
	if err := s.db.conn.QueryRow(
		"SELECT COUNT(*) FROM snapshots WHERE key = ?", stateKey,
	).Scan(&count); err != nil {
		return false
	}
	return count > 0
}
