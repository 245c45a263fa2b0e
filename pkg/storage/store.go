package storage

import (
	"context"
	"io"
	"time"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store provides path-addressable byte storage for file content.
//
// This interface abstracts the underlying storage mechanism (local
// filesystem, S3, memory) and provides a consistent API for the upload
// pipeline. The upload committer and chunk assembler interact only with this
// interface; they never reach for a concrete backend type.
//
// Separation of Concerns:
//
// The store manages only raw bytes at paths. It does NOT manage:
//   - Directory metadata and size rollups -> handled by metadata.Updater
//   - Locking between concurrent writers -> handled by locking.Manager
//   - Upload staging decisions -> handled by upload.StagingArea
//
// Capability Probe:
// Instead of type-switching over concrete backends, callers query
// IsPassThrough() to learn whether the backend already provides its own
// durable, remote write path. Pass-through backends (S3 and other object
// stores) make an intermediate staging write wasted I/O, so the upload
// pipeline writes them directly. New backend implementations only need to
// answer the probe correctly; no dispatch site changes.
//
// Path Semantics:
// Paths are slash-separated relative keys ("docs/report.pdf"). They are
// opaque to the store beyond the separator; the filesystem backend maps
// them to directories, the S3 backend to object keys.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same path are last-write-wins; callers serialize
// same-path commits through the lock manager.
type Store interface {
	// Write stores data at the given path, replacing any existing content.
	//
	// Parent "directories" are created implicitly where the backend has such
	// a concept. For large payloads implementations should periodically check
	// the context for responsive cancellation.
	//
	// Returns:
	//   - error: ErrStorageFull, ErrQuotaExceeded, ErrReadOnly, ErrUnavailable,
	//     or context/IO errors
	Write(ctx context.Context, path string, data []byte) error

	// Read returns a reader for the content at path.
	//
	// The caller is responsible for closing the reader.
	//
	// Returns:
	//   - io.ReadCloser: Reader for the content (must be closed by caller)
	//   - error: ErrNotFound if the path doesn't exist, or context/IO errors
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the content at path.
	//
	// The operation is idempotent: deleting a non-existent path returns nil.
	// Idempotent deletion keeps cleanup paths retry-safe.
	Delete(ctx context.Context, path string) error

	// Exists reports whether content is present at path.
	//
	// Returns (false, nil) for a missing path; errors are reserved for
	// context cancellation and storage access failures.
	Exists(ctx context.Context, path string) (bool, error)

	// Size returns the byte length of the content at path.
	//
	// Returns:
	//   - error: ErrNotFound if the path doesn't exist
	Size(ctx context.Context, path string) (int64, error)

	// Touch sets the modification time of the content at path.
	//
	// Used to apply a client-declared mtime after a commit. Backends without
	// mutable timestamps (object stores) may record it out of band or report
	// ErrNotSupported; the caller treats Touch as best effort.
	Touch(ctx context.Context, path string, mtime time.Time) error

	// Metadata returns descriptive information about the content at path,
	// including any checksums the backend can produce.
	//
	// Returns:
	//   - error: ErrNotFound if the path doesn't exist
	Metadata(ctx context.Context, path string) (*ObjectInfo, error)

	// IsPassThrough reports whether this backend is a pass-through kind
	// (external mount, remote object store) for which staged part files are
	// skipped and writes go directly to the final path.
	IsPassThrough() bool
}

// ============================================================================
// Supporting Types
// ============================================================================

// ObjectInfo describes stored content.
type ObjectInfo struct {
	// Path is the key the info was read from.
	Path string

	// Size is the content length in bytes.
	Size int64

	// MTime is the last modification time known to the backend.
	MTime time.Time

	// Checksums holds space-separated "ALGO:hex" tokens, uppercase algorithm
	// names (e.g. "SHA1:da39a3... MD5:d41d8c..."). Empty when the backend
	// cannot produce checksums for this object.
	Checksums string
}

// ============================================================================
// Cross-Store Move
// ============================================================================

// Mover is an optional interface for backends with a native same-backend
// rename/move primitive. The primitive must be atomic from a reader's
// perspective: a reader of the destination path never observes a
// half-written object.
type Mover interface {
	// MoveObject moves content from one path to another within this backend.
	MoveObject(ctx context.Context, fromPath, toPath string) error
}

// Move relocates content between paths, using the backend's native move when
// source and destination share a backend, and copy-then-delete otherwise.
//
// The copy-then-delete fallback is not atomic across backends; callers that
// need commit atomicity must ensure source and destination share a backend
// or guard the window with an exclusive lock (the upload committer does the
// latter).
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - from: Source backend
//   - fromPath: Source path
//   - to: Destination backend
//   - toPath: Destination path
func Move(ctx context.Context, from Store, fromPath string, to Store, toPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if from == to {
		if mover, ok := from.(Mover); ok {
			return mover.MoveObject(ctx, fromPath, toPath)
		}
	}

	reader, err := from.Read(ctx, fromPath)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	if err := to.Write(ctx, toPath, data); err != nil {
		return err
	}

	return from.Delete(ctx, fromPath)
}
