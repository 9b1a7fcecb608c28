// Package core defines the fundamental types and errors for Becoming.
package core

import "errors"

// Core errors that can occur across the system
var (
	// Storage errors
	ErrDatabaseNotFound = errors.New("database not found")
	ErrMigrationFailed  = errors.New("migration failed")
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// Identity errors
	ErrIdentityNotFound = errors.New("identity not found")
	ErrIdentityLimit    = errors.New("active identity limit reached")
	ErrTooManyPractices = errors.New("too many practices for identity")

	// Cycle errors
	ErrNoActiveCycle = errors.New("no active focus cycle")

	// Insight errors
	ErrInsightUnavailable = errors.New("insight service unavailable")

	// Validation errors
	ErrInvalidInput    = errors.New("invalid input")
	ErrMissingRequired = errors.New("missing required field")
)
