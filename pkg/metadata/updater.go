// Package metadata defines the metadata-updater collaborator invoked after a
// successful commit.
//
// The upload pipeline does not own directory metadata; it only reports each
// committed file so an updater can propagate size and mtime rollups to the
// parent chain. The badger subpackage provides a persistent implementation.
package metadata

import (
	"context"
	"time"
)

// Entry is the persisted metadata for one path.
type Entry struct {
	// Size is the byte length of the file, or the cumulative size of all
	// files below a directory.
	Size int64 `json:"size"`

	// MTime is the last modification time. For directories it is the mtime
	// of the most recently committed descendant.
	MTime time.Time `json:"mtime"`

	// ETag is the entity tag returned to the client at commit time.
	// Empty for directories.
	ETag string `json:"etag,omitempty"`
}

// Updater receives commit results and propagates them to directory metadata.
//
// Update is called exactly once per successful commit, inside the exclusive
// lock window, so implementations never observe two concurrent updates for
// the same path.
type Updater interface {
	// Update records the committed file and rolls size/mtime up through its
	// parent directories. mtime is the client-declared override when present,
	// otherwise the backend-observed time.
	Update(ctx context.Context, path string, entry Entry) error
}

// NopUpdater is an Updater that discards all updates. It is the default when
// no metadata store is configured.
type NopUpdater struct{}

func (NopUpdater) Update(ctx context.Context, path string, entry Entry) error {
	return nil
}
