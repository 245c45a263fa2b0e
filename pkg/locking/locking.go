// Package locking provides advisory shared/exclusive locks on logical paths.
//
// The upload pipeline takes a shared lock on the target path for the length
// of a request, escalates it to exclusive only for the commit window
// (existence check, move, metadata update), then downgrades back to shared
// before notifying observers. Lock acquisition is non-blocking: a conflicting
// holder surfaces ErrLocked, which callers translate into a retryable
// "resource locked" condition.
package locking

import "errors"

// Mode is the lock mode held on a path.
type Mode int

const (
	// ModeShared allows any number of concurrent shared holders.
	ModeShared Mode = iota

	// ModeExclusive excludes all other holders, shared or exclusive.
	ModeExclusive
)

func (m Mode) String() string {
	switch m {
	case ModeShared:
		return "shared"
	case ModeExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

var (
	// ErrLocked indicates another holder currently has the path locked
	// incompatibly. This is a retryable condition.
	ErrLocked = errors.New("path is locked")

	// ErrNotLocked indicates a release or transition was requested for a
	// lock the caller does not hold. This is always a caller bug.
	ErrNotLocked = errors.New("path is not locked in the requested mode")
)

// Manager grants and transitions advisory locks on logical paths.
//
// Implementations must be safe for concurrent use. All operations are
// non-blocking: conflicts return ErrLocked immediately rather than waiting.
type Manager interface {
	// Acquire takes a lock on path in the given mode.
	Acquire(path string, mode Mode) error

	// Escalate transitions a held lock from one mode to another.
	//
	// Escalating shared -> exclusive fails with ErrLocked while other shared
	// holders remain. Downgrading exclusive -> shared always succeeds.
	Escalate(path string, from, to Mode) error

	// Release drops a held lock in the given mode.
	Release(path string, mode Mode) error
}
