package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mcav91/partfs/pkg/locking"
	"github.com/mcav91/partfs/pkg/storage"
)

// ============================================================================
// Outward Error Taxonomy
// ============================================================================

// Kind is the outward-facing classification of an upload failure.
//
// Internal backend errors never cross the transport boundary raw: the
// committer wraps every failure in an *Error carrying a Kind, and the HTTP
// layer maps the Kind to a status. Only KindLocked and KindUnavailable are
// retryable; all other kinds require the client to change its request.
type Kind int

const (
	// KindInternal is an unexpected internal fault (generic server error).
	KindInternal Kind = iota

	// KindPermission indicates the target is not writable or deletable.
	KindPermission

	// KindForbidden indicates the path was rejected by policy.
	KindForbidden

	// KindBadRequest indicates a client integrity failure: declared
	// byte-length or checksum disagrees with what was received.
	KindBadRequest

	// KindUnsupported indicates disallowed content.
	KindUnsupported

	// KindTooLarge indicates the payload exceeds a backend or quota limit.
	KindTooLarge

	// KindLocked indicates another writer holds the path. Retryable.
	KindLocked

	// KindUnavailable indicates the backend is unreachable or a transient
	// I/O failure occurred. Retryable.
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindPermission:
		return "permission denied"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad request"
	case KindUnsupported:
		return "unsupported content"
	case KindTooLarge:
		return "entity too large"
	case KindLocked:
		return "locked"
	case KindUnavailable:
		return "service unavailable"
	default:
		return "internal error"
	}
}

// Retryable reports whether a well-behaved client may retry the same
// request unchanged.
func (k Kind) Retryable() bool {
	return k == KindLocked || k == KindUnavailable
}

// HTTPStatus maps a Kind to its HTTP status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindPermission, KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnsupported:
		return http.StatusUnsupportedMediaType
	case KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindLocked:
		return http.StatusLocked
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrEncryptionNotReady is raised while the encryption subsystem is still
// initializing. It classifies as KindUnavailable but keeps its own message
// so clients can tell it apart from backend outages.
var ErrEncryptionNotReady = errors.New("encryption subsystem not ready, retry later")

// Error is an upload failure annotated with its outward Kind and the
// operation that produced it.
type Error struct {
	// Op names the failing operation ("commit", "chunk", "assemble").
	Op string

	// Kind is the outward classification.
	Kind Kind

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// newError wraps err with op and kind, preserving an explicit Kind if err
// was already classified.
func newError(op string, kind Kind, err error) *Error {
	var classified *Error
	if errors.As(err, &classified) {
		kind = classified.Kind
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the outward Kind from an error, classifying unwrapped
// internal errors on the fly. Nil errors have no kind; callers must check
// for nil first.
func KindOf(err error) Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return Classify(err)
}

// Classify maps an internal failure cause to its outward Kind.
//
// The mapping follows a fixed table:
//
//	target not writable / read-only store        -> KindPermission
//	path rejected by policy                      -> KindForbidden
//	byte-length or checksum mismatch             -> KindBadRequest (set by caller)
//	payload exceeds backend/quota limit          -> KindTooLarge
//	lock held by another writer                  -> KindLocked
//	backend unreachable / transient I/O failure  -> KindUnavailable
//	encryption subsystem not ready               -> KindUnavailable (distinct message)
//	anything else                                -> KindInternal
func Classify(err error) Kind {
	switch {
	case errors.Is(err, storage.ErrReadOnly):
		return KindPermission
	case errors.Is(err, storage.ErrInvalidPath):
		return KindForbidden
	case errors.Is(err, storage.ErrTooLarge),
		errors.Is(err, storage.ErrStorageFull),
		errors.Is(err, storage.ErrQuotaExceeded):
		return KindTooLarge
	case errors.Is(err, locking.ErrLocked):
		return KindLocked
	case errors.Is(err, storage.ErrUnavailable),
		errors.Is(err, ErrEncryptionNotReady),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindUnavailable
	default:
		return KindInternal
	}
}
