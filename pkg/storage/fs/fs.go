// Package fs implements filesystem-based storage for PartFS.
package fs

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcav91/partfs/pkg/storage"
)

// FSStore implements storage.Store using the local filesystem.
//
// Object paths map directly to files under the base directory, so the bucket
// contents stay human-readable and inspectable. Parent directories are
// created on demand.
//
// FSStore is not a pass-through backend: uploads to it are staged in a part
// file first and published with an atomic rename.
//
// Thread Safety:
// The underlying filesystem operations are thread-safe at the OS level, but
// concurrent writes to the same path may interleave. The upload pipeline
// serializes same-path commits through the lock manager.
type FSStore struct {
	basePath string
}

// NewFSStore creates a new filesystem-based store rooted at basePath.
//
// The base directory is created with permissions 0755 if it doesn't exist.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - basePath: Root directory for stored objects
//
// Returns:
//   - *FSStore: Initialized store
//   - error: Returns error if directory creation fails or context is cancelled
func NewFSStore(ctx context.Context, basePath string) (*FSStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{basePath: basePath}, nil
}

// IsPassThrough reports false: local filesystems want staged part files so a
// dropped client connection never leaves a half-written final path.
func (r *FSStore) IsPassThrough() bool {
	return false
}

// resolve maps an object path to a filesystem path under the base directory.
//
// Paths that are empty or escape the base directory are rejected with
// storage.ErrInvalidPath.
func (r *FSStore) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path: %w", storage.ErrInvalidPath)
	}

	cleaned := filepath.Clean(filepath.FromSlash(path))
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("path %q escapes store root: %w", path, storage.ErrInvalidPath)
	}

	return filepath.Join(r.basePath, cleaned), nil
}

// Write stores data at the given path, replacing any existing content.
//
// Parent directories are created as needed. For large payloads (>10MB) the
// write is chunked with periodic context checks for responsive cancellation.
func (r *FSStore) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := r.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// For small files, write directly
	if len(data) < 10*1024*1024 {
		if err := os.WriteFile(filePath, data, 0644); err != nil {
			return fmt.Errorf("failed to write object: %w", err)
		}
		return nil
	}

	// For large files, use chunked writes with context checks
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open object for writing: %w", err)
	}
	defer func() { _ = file.Close() }()

	const chunkSize = 1 * 1024 * 1024
	for offset := 0; offset < len(data); offset += chunkSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(offset+chunkSize, len(data))

		if _, err := file.Write(data[offset:end]); err != nil {
			return fmt.Errorf("failed to write object chunk: %w", err)
		}
	}

	return nil
}

// Read returns a reader for the content at path.
//
// The caller is responsible for closing the returned ReadCloser.
func (r *FSStore) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := r.resolve(path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open object: %w", err)
	}

	return file, nil
}

// Delete removes the content at path. Deleting a non-existent path is not an
// error (idempotent).
func (r *FSStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := r.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}

	return nil
}

// Exists reports whether content is present at path.
func (r *FSStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	filePath, err := r.resolve(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}

	return !info.IsDir(), nil
}

// Size returns the byte length of the content at path.
func (r *FSStore) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	filePath, err := r.resolve(path)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to stat object: %w", err)
	}

	return info.Size(), nil
}

// Touch sets the modification time of the content at path.
func (r *FSStore) Touch(ctx context.Context, path string, mtime time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	filePath, err := r.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Chtimes(filePath, mtime, mtime); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to set mtime: %w", err)
	}

	return nil
}

// Metadata returns size, mtime and checksums for the content at path.
//
// Checksums are computed on demand with a single streaming pass and reported
// as "SHA1:hex MD5:hex" tokens.
func (r *FSStore) Metadata(ctx context.Context, path string) (*storage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	filePath, err := r.resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object: %w", err)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open object for checksum: %w", err)
	}
	defer func() { _ = file.Close() }()

	sha := sha1.New()
	md := md5.New()
	if _, err := io.Copy(io.MultiWriter(sha, md), file); err != nil {
		return nil, fmt.Errorf("failed to checksum object: %w", err)
	}

	return &storage.ObjectInfo{
		Path:      path,
		Size:      info.Size(),
		MTime:     info.ModTime(),
		Checksums: fmt.Sprintf("SHA1:%x MD5:%x", sha.Sum(nil), md.Sum(nil)),
	}, nil
}

// MoveObject atomically renames content from one path to another.
//
// This implements the storage.Mover interface. os.Rename is atomic on POSIX
// filesystems as long as source and destination live on the same mount, which
// holds for any two paths under the store root.
func (r *FSStore) MoveObject(ctx context.Context, fromPath, toPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from, err := r.resolve(fromPath)
	if err != nil {
		return err
	}

	to, err := r.resolve(toPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(to), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	if err := os.Rename(from, to); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("object %s: %w", fromPath, storage.ErrNotFound)
		}
		return fmt.Errorf("failed to move object: %w", err)
	}

	return nil
}
