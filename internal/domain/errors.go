package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a session token is unknown.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPuzzleNotFound indicates a puzzle ID is not in the catalog.
	ErrPuzzleNotFound = errors.New("puzzle not found")
	// ErrOutOfOrder is returned when an answer targets a puzzle other than
	// the session's current one.
	ErrOutOfOrder = errors.New("answer out of order")
	// ErrSessionClosed is returned when a mutating call hits a session that
	// is already Completed or Expired.
	ErrSessionClosed = errors.New("session is closed")
	// ErrInvalidChoice indicates a submitted choice index is out of range.
	ErrInvalidChoice = errors.New("choice index out of range")
	// ErrAlreadyTerminal is returned by redundant expire calls.
	ErrAlreadyTerminal = errors.New("session already terminal")
	// ErrSessionComplete is returned when asking for the current puzzle of
	// a session that has none left.
	ErrSessionComplete = errors.New("no puzzles remaining in session")
)

// ValidationError reports a malformed puzzle record during catalog load.
// The whole load fails; no partial catalog is built.
type ValidationError struct {
	PuzzleID string
	Reason   string
}

func (e *ValidationError) Error() string {
	if e.PuzzleID == "" {
		return "invalid puzzle record: " + e.Reason
	}
	return fmt.Sprintf("invalid puzzle record %q: %s", e.PuzzleID, e.Reason)
}
