package storage

import "errors"

// ============================================================================
// Standard Store Errors
// ============================================================================

// These errors provide a consistent way to indicate common failure conditions
// across all store implementations. The upload error classifier checks for
// them with errors.Is and maps them to outward error kinds.
//
// Implementations should wrap these errors with additional context:
//
//	if !exists {
//	    return fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
//	}

var (
	// ErrNotFound indicates the requested path does not exist.
	//
	// Returned by Read, Size, Metadata and Touch when called with a path
	// that holds no content.
	ErrNotFound = errors.New("object not found")

	// ErrExists indicates content at this path already exists.
	//
	// Only returned by explicit "create new" operations. Normal writes
	// overwrite existing content and do NOT return this error.
	ErrExists = errors.New("object already exists")

	// ErrInvalidPath indicates the path is malformed or rejected by policy
	// (empty, escaping the store root, forbidden characters).
	ErrInvalidPath = errors.New("invalid object path")

	// ErrStorageFull indicates the backend has no available space.
	//
	// This is a transient condition; it may succeed after cleanup.
	ErrStorageFull = errors.New("storage full")

	// ErrQuotaExceeded indicates a storage quota has been exceeded.
	//
	// Similar to ErrStorageFull but specifically for quota enforcement.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTooLarge indicates the payload exceeds the backend's object limit.
	ErrTooLarge = errors.New("object too large")

	// ErrReadOnly indicates the store does not accept writes.
	ErrReadOnly = errors.New("store is read-only")

	// ErrNotSupported indicates the operation is not supported by this
	// backend (e.g. Touch on an object store without mutable timestamps).
	ErrNotSupported = errors.New("operation not supported")

	// ErrUnavailable indicates the backend is temporarily unreachable.
	//
	// This is a transient condition; retrying may succeed.
	ErrUnavailable = errors.New("storage unavailable")
)
