// Package memory implements in-memory storage for PartFS.
//
// The memory store is primarily used by tests and embedded setups. It shares
// the staging behavior of the filesystem store (not pass-through) so the full
// part-file commit path can be exercised without touching disk.
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mcav91/partfs/pkg/storage"
)

// MemoryStore implements storage.Store using an in-process map.
//
// Thread Safety:
// All operations are guarded by a single RWMutex. Writes copy their input so
// callers cannot mutate stored content afterwards.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*memObject
}

type memObject struct {
	data  []byte
	mtime time.Time
}

// NewMemoryStore creates a new empty in-memory store.
func NewMemoryStore(ctx context.Context) (*MemoryStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &MemoryStore{objects: make(map[string]*memObject)}, nil
}

// IsPassThrough reports false so uploads to the memory store go through the
// normal staging path.
func (r *MemoryStore) IsPassThrough() bool {
	return false
}

// Write stores data at path, replacing any existing content.
func (r *MemoryStore) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if path == "" {
		return fmt.Errorf("empty path: %w", storage.ErrInvalidPath)
	}

	stored := make([]byte, len(data))
	copy(stored, data)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[path] = &memObject{data: stored, mtime: time.Now()}

	return nil
}

// Read returns a reader for the content at path.
func (r *MemoryStore) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	obj, ok := r.objects[path]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
	}

	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Delete removes the content at path (idempotent).
func (r *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.objects, path)

	return nil
}

// Exists reports whether content is present at path.
func (r *MemoryStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.objects[path]

	return ok, nil
}

// Size returns the byte length of the content at path.
func (r *MemoryStore) Size(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	obj, ok := r.objects[path]
	if !ok {
		return 0, fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
	}

	return int64(len(obj.data)), nil
}

// Touch sets the modification time of the content at path.
func (r *MemoryStore) Touch(ctx context.Context, path string, mtime time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.objects[path]
	if !ok {
		return fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
	}
	obj.mtime = mtime

	return nil
}

// Metadata returns size, mtime and checksums for the content at path.
func (r *MemoryStore) Metadata(ctx context.Context, path string) (*storage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	obj, ok := r.objects[path]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("object %s: %w", path, storage.ErrNotFound)
	}

	return &storage.ObjectInfo{
		Path:      path,
		Size:      int64(len(obj.data)),
		MTime:     obj.mtime,
		Checksums: fmt.Sprintf("SHA1:%x MD5:%x", sha1.Sum(obj.data), md5.Sum(obj.data)),
	}, nil
}

// MoveObject moves content between paths within the store.
//
// This implements the storage.Mover interface. The map swap happens under
// the write lock, so readers observe either the old state or the new one,
// never both.
func (r *MemoryStore) MoveObject(ctx context.Context, fromPath, toPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	obj, ok := r.objects[fromPath]
	if !ok {
		return fmt.Errorf("object %s: %w", fromPath, storage.ErrNotFound)
	}

	r.objects[toPath] = obj
	delete(r.objects, fromPath)

	return nil
}
