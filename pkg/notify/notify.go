// Package notify defines the fire-and-forget observer hook emitted after a
// successful commit.
package notify

import "github.com/mcav91/partfs/internal/logger"

// Event names emitted by the upload pipeline.
const (
	// EventFileCreated is emitted when a commit publishes a path that did
	// not previously exist.
	EventFileCreated = "file.created"

	// EventFileUpdated is emitted when a commit replaces existing content.
	EventFileUpdated = "file.updated"
)

// Notifier receives post-commit events.
//
// Emit must not block the commit path meaningfully and its failures are
// ignored by the core; downstream listeners are strictly observers.
type Notifier interface {
	Emit(event string, path string)
}

// NopNotifier discards all events. It is the default when no listener is
// configured.
type NopNotifier struct{}

func (NopNotifier) Emit(event string, path string) {}

// LogNotifier writes each event to the log at debug level.
type LogNotifier struct{}

func (LogNotifier) Emit(event string, path string) {
	logger.Debug("event %s: %s", event, path)
}
