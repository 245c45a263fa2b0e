// Package upload implements the chunked-upload ingestion and atomic-commit
// pipeline.
//
// A whole-file PUT enters the Committer directly; a chunked PUT flows through
// the Assembler until its final chunk arrives, then the assembled payload
// takes the same commit path. The commit sequence stages the bytes in a part
// file (unless the backend is pass-through), validates length and checksum,
// escalates the path lock to exclusive for the minimal move-and-update
// window, publishes the artifact with an atomic move, and downgrades before
// observers are notified. Every failure after the first byte is written
// unwinds the staging artifact before propagating.
package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mcav91/partfs/internal/logger"
	"github.com/mcav91/partfs/pkg/locking"
	"github.com/mcav91/partfs/pkg/metadata"
	"github.com/mcav91/partfs/pkg/notify"
	"github.com/mcav91/partfs/pkg/storage"
)

// Source records whether a commit went through a staged part file or wrote
// the final path directly.
type Source string

const (
	SourceStaged Source = "staged"
	SourceDirect Source = "direct"
)

// Request carries one upload attempt into the committer. All values come
// from explicit request parsing; the committer reads no ambient state.
type Request struct {
	// Path is the final published path.
	Path string

	// Data is the full payload (whole-file body or assembled chunks).
	Data []byte

	// DeclaredLength is the client's declared content length, or -1 when
	// none was declared.
	DeclaredLength int64

	// DeclaredChecksum is the client's "ALGO:hex" checksum declaration, or
	// empty when none was declared.
	DeclaredChecksum string

	// MTime is the client-declared modification time override, or nil to
	// keep the backend-observed time.
	MTime *time.Time
}

// CommitResult is the outcome of a successful upload.
type CommitResult struct {
	// ETag is the quoted entity tag of the committed file.
	ETag string

	// Path is the committed path.
	Path string

	// Source reports whether a staged part file was used.
	Source Source

	// Created reports whether the commit created the path (as opposed to
	// replacing existing content).
	Created bool
}

// CommitterConfig assembles a Committer from its collaborators.
type CommitterConfig struct {
	// Target is the published-namespace backend. Required.
	Target storage.Store

	// Staging is the backend holding part files. Defaults to Target.
	Staging storage.Store

	// StagingArea decides part file placement. Required.
	StagingArea *StagingArea

	// Locks serializes concurrent writers per path. Required.
	Locks locking.Manager

	// Metadata receives post-commit size/mtime propagation. Defaults to
	// metadata.NopUpdater.
	Metadata metadata.Updater

	// Notifier receives fire-and-forget post-commit events. Defaults to
	// notify.NopNotifier.
	Notifier notify.Notifier

	// IsWritable answers the preflight "may this path be written" check
	// (covering parent-accepts-creates for new files). Nil allows all.
	IsWritable func(path string) bool

	// MaxUploadBytes rejects payloads above this size before any I/O.
	// Zero means no limit.
	MaxUploadBytes int64
}

// Committer orchestrates single upload attempts end to end. It owns the
// staging artifact and the lock token for the duration of one Commit call;
// neither outlives the call.
type Committer struct {
	target   storage.Store
	staging  storage.Store
	area     *StagingArea
	locks    *lockCoordinator
	meta     metadata.Updater
	notifier notify.Notifier
	writable func(path string) bool
	maxBytes int64
}

// NewCommitter creates a committer from its collaborators.
func NewCommitter(cfg CommitterConfig) (*Committer, error) {
	if cfg.Target == nil {
		return nil, fmt.Errorf("target store is required")
	}
	if cfg.StagingArea == nil {
		return nil, fmt.Errorf("staging area is required")
	}
	if cfg.Locks == nil {
		return nil, fmt.Errorf("lock manager is required")
	}

	staging := cfg.Staging
	if staging == nil {
		staging = cfg.Target
	}
	meta := cfg.Metadata
	if meta == nil {
		meta = metadata.NopUpdater{}
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.NopNotifier{}
	}

	return &Committer{
		target:   cfg.Target,
		staging:  staging,
		area:     cfg.StagingArea,
		locks:    &lockCoordinator{locks: cfg.Locks},
		meta:     meta,
		notifier: notifier,
		writable: cfg.IsWritable,
		maxBytes: cfg.MaxUploadBytes,
	}, nil
}

// Commit runs one upload attempt.
//
// The sequence is linear with early return on failure; each failure case
// unwinds exactly the partial state it created. No step is retried
// internally: a failed attempt is idempotent-from-scratch only by the client
// resubmitting.
func (c *Committer) Commit(ctx context.Context, req *Request) (*CommitResult, error) {
	// ========================================================================
	// Step 1: Preflight: path policy and writability, before any I/O
	// ========================================================================

	if err := validatePath(req.Path); err != nil {
		return nil, newError("commit", KindForbidden, err)
	}

	if c.writable != nil && !c.writable(req.Path) {
		return nil, newError("commit", KindPermission,
			fmt.Errorf("path %s is not writable", req.Path))
	}

	if c.maxBytes > 0 && int64(len(req.Data)) > c.maxBytes {
		return nil, newError("commit", KindTooLarge,
			fmt.Errorf("payload of %d bytes exceeds limit of %d", len(req.Data), c.maxBytes))
	}

	// Request-scoped shared lock. A conflicting exclusive holder means
	// another writer is mid-commit on this path.
	if err := c.locks.acquireShared(req.Path); err != nil {
		return nil, newError("commit", Classify(err), err)
	}
	defer c.locks.releaseShared(req.Path)

	// ========================================================================
	// Step 2: Staging decision
	// ========================================================================

	staged := c.area.NeedsStaging(c.target)

	writeStore := c.target
	writePath := req.Path
	if staged {
		writeStore = c.staging
		writePath = c.area.StagingPath(req.Path, NewNonce())
	}

	// Direct writes land on the final path in step 3, so the created vs
	// replaced distinction must be captured now. Staged uploads defer the
	// check to the exclusive window, where it is race-free.
	existedBefore := false
	if !staged {
		var err error
		existedBefore, err = c.target.Exists(ctx, req.Path)
		if err != nil {
			return nil, newError("commit", Classify(err), fmt.Errorf("checking final path: %w", err))
		}
	}

	// ========================================================================
	// Step 3: Stream the payload. No lock is held exclusively here; this is
	// the network/CPU-bound part of the request.
	// ========================================================================

	if err := writeStore.Write(ctx, writePath, req.Data); err != nil {
		if staged {
			c.cleanupStaging(ctx, writePath)
		}
		return nil, newError("commit", Classify(err), fmt.Errorf("writing payload: %w", err))
	}

	// ========================================================================
	// Step 4: Declared content length vs. bytes written
	// ========================================================================

	if req.DeclaredLength >= 0 {
		written, err := writeStore.Size(ctx, writePath)
		if err != nil {
			c.unwind(ctx, staged, writePath)
			return nil, newError("commit", Classify(err), fmt.Errorf("sizing payload: %w", err))
		}
		if written != req.DeclaredLength {
			c.unwind(ctx, staged, writePath)
			return nil, newError("commit", KindBadRequest,
				fmt.Errorf("declared content length %d does not match %d bytes written", req.DeclaredLength, written))
		}
	}

	// ========================================================================
	// Step 5: Checksum validation
	// ========================================================================

	if req.DeclaredChecksum != "" {
		info, err := writeStore.Metadata(ctx, writePath)
		if err != nil {
			c.unwind(ctx, staged, writePath)
			return nil, newError("commit", Classify(err), fmt.Errorf("reading payload metadata: %w", err))
		}
		if !ChecksumMatches(req.DeclaredChecksum, info.Checksums) {
			c.unwind(ctx, staged, writePath)
			return nil, newError("commit", KindBadRequest,
				fmt.Errorf("declared checksum %q does not match computed %q", req.DeclaredChecksum, info.Checksums))
		}
	}

	// ========================================================================
	// Step 6: Escalate to the exclusive commit window
	// ========================================================================

	if err := c.locks.escalate(req.Path); err != nil {
		c.unwind(ctx, staged, writePath)
		return nil, newError("commit", Classify(err), err)
	}
	exclusive := true
	defer func() {
		// Failure paths that return while the window is still open must not
		// leave the path exclusively locked; the shared release in the outer
		// defer expects a shared hold.
		if exclusive {
			c.locks.downgrade(req.Path)
		}
	}()

	if staged {
		var err error
		existedBefore, err = c.target.Exists(ctx, req.Path)
		if err != nil {
			c.unwind(ctx, staged, writePath)
			return nil, newError("commit", Classify(err), fmt.Errorf("checking final path: %w", err))
		}
	}

	// ========================================================================
	// Step 7: Atomic publish. For direct writes the payload write already
	// was the commit.
	// ========================================================================

	if staged {
		if err := c.publish(ctx, writePath, req.Path, existedBefore); err != nil {
			return nil, err
		}
	}

	// ========================================================================
	// Step 8: Metadata propagation inside the exclusive window
	// ========================================================================

	result, err := c.finalizeMetadata(ctx, req)
	if err != nil {
		return nil, err
	}
	result.Created = !existedBefore
	if staged {
		result.Source = SourceStaged
	} else {
		result.Source = SourceDirect
	}

	// ========================================================================
	// Step 9-10: Downgrade, then notify observers
	// ========================================================================

	c.locks.downgrade(req.Path)
	exclusive = false

	if existedBefore {
		c.notifier.Emit(notify.EventFileUpdated, req.Path)
	} else {
		c.notifier.Emit(notify.EventFileCreated, req.Path)
	}

	return result, nil
}

// publish moves the staged artifact onto the final path, all-or-nothing from
// the caller's observable perspective.
func (c *Committer) publish(ctx context.Context, stagingPath, finalPath string, existedBefore bool) error {
	moveErr := storage.Move(ctx, c.staging, stagingPath, c.target, finalPath)

	exists, existsErr := c.target.Exists(ctx, finalPath)
	if existsErr != nil {
		exists = existedBefore
	}

	if moveErr != nil {
		// A reported failure with the final path present is ambiguous
		// partial state: the file cannot be trusted, so resolve by deleting
		// the final path and failing rather than publishing possible
		// corruption.
		if exists {
			if err := c.target.Delete(ctx, finalPath); err != nil {
				logger.Warn("failed to remove ambiguous final path %s: %v", finalPath, err)
			}
		}
		c.cleanupStaging(ctx, stagingPath)
		return newError("commit", Classify(moveErr), fmt.Errorf("moving staged artifact: %w", moveErr))
	}

	if !exists && existsErr == nil {
		c.cleanupStaging(ctx, stagingPath)
		return newError("commit", KindInternal,
			fmt.Errorf("final path %s missing after move", finalPath))
	}

	return nil
}

// ETagFor derives the quoted entity tag of a committed file from its size
// and modification time. Any observer deriving a tag for the same state gets
// the same value.
func ETagFor(size int64, mtime time.Time) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%x-%x", size, mtime.UnixNano()))
}

// finalizeMetadata applies the mtime override, invokes the metadata updater
// and derives the entity tag from the committed file's current state.
func (c *Committer) finalizeMetadata(ctx context.Context, req *Request) (*CommitResult, error) {
	if req.MTime != nil {
		if err := c.target.Touch(ctx, req.Path, *req.MTime); err != nil {
			// Object stores cannot rewrite timestamps; the metadata store
			// still records the client value below.
			logger.Debug("touch on %s not applied: %v", req.Path, err)
		}
	}

	info, err := c.target.Metadata(ctx, req.Path)
	if err != nil {
		return nil, newError("commit", Classify(err), fmt.Errorf("reading committed metadata: %w", err))
	}

	mtime := info.MTime
	if req.MTime != nil {
		mtime = *req.MTime
	}

	etag := ETagFor(info.Size, mtime)

	if err := c.meta.Update(ctx, req.Path, metadata.Entry{Size: info.Size, MTime: mtime, ETag: etag}); err != nil {
		return nil, newError("commit", Classify(err), fmt.Errorf("updating metadata: %w", err))
	}

	return &CommitResult{ETag: etag, Path: req.Path}, nil
}

// unwind discards a staging artifact on a failure path. Direct writes have
// nothing to unwind; the final path already carries the new bytes and the
// client is told to resend.
func (c *Committer) unwind(ctx context.Context, staged bool, writePath string) {
	if staged {
		c.cleanupStaging(ctx, writePath)
	}
}

// cleanupStaging deletes a staging artifact, best effort. Cleanup failure is
// logged and swallowed: surfacing it would mask the primary cause.
func (c *Committer) cleanupStaging(ctx context.Context, stagingPath string) {
	if err := c.staging.Delete(ctx, stagingPath); err != nil {
		logger.Warn("failed to clean up staging artifact %s: %v", stagingPath, err)
	}
}

// validatePath applies path policy: non-empty, no NUL bytes, no parent
// traversal.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path: %w", storage.ErrInvalidPath)
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains NUL byte: %w", storage.ErrInvalidPath)
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == ".." {
			return fmt.Errorf("path %q contains parent traversal: %w", path, storage.ErrInvalidPath)
		}
	}
	if IsReservedPath(path) {
		return fmt.Errorf("path %q addresses the reserved staging namespace: %w", path, storage.ErrInvalidPath)
	}
	return nil
}
