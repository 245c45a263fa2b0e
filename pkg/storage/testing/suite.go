// Package testing provides a reusable conformance test suite for
// storage.Store implementations.
//
// Each backend's test file instantiates the suite with a factory for a fresh
// store and calls Run. This keeps read/write/delete semantics consistent
// across the filesystem, memory and S3 implementations.
package testing

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcav91/partfs/pkg/storage"
)

// StoreTestSuite runs conformance tests against a storage.Store.
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store for each test.
	NewStore func(t *testing.T) storage.Store
}

func testContext() context.Context {
	return context.Background()
}

// mustWrite writes data and fails the test if it errors.
func mustWrite(t *testing.T, store storage.Store, path string, data []byte) {
	t.Helper()
	err := store.Write(testContext(), path, data)
	require.NoError(t, err, "Write should succeed")
}

// mustRead reads content and fails the test if it errors.
func mustRead(t *testing.T, store storage.Store, path string) []byte {
	t.Helper()
	reader, err := store.Read(testContext(), path)
	require.NoError(t, err, "Read should succeed")
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err, "Reading content should succeed")
	return data
}

// Run executes the complete suite.
func (s *StoreTestSuite) Run(t *testing.T) {
	t.Run("WriteReadRoundTrip", s.testWriteReadRoundTrip)
	t.Run("OverwriteReplacesContent", s.testOverwrite)
	t.Run("ReadMissing", s.testReadMissing)
	t.Run("DeleteIsIdempotent", s.testDeleteIdempotent)
	t.Run("Exists", s.testExists)
	t.Run("Size", s.testSize)
	t.Run("Metadata", s.testMetadata)
	t.Run("Touch", s.testTouch)
	t.Run("Move", s.testMove)
}

func (s *StoreTestSuite) testWriteReadRoundTrip(t *testing.T) {
	store := s.NewStore(t)
	data := []byte("hello, part file world")

	mustWrite(t, store, "docs/greeting.txt", data)
	assert.Equal(t, data, mustRead(t, store, "docs/greeting.txt"))
}

func (s *StoreTestSuite) testOverwrite(t *testing.T) {
	store := s.NewStore(t)

	mustWrite(t, store, "a.txt", []byte("first"))
	mustWrite(t, store, "a.txt", []byte("second, longer content"))

	assert.Equal(t, []byte("second, longer content"), mustRead(t, store, "a.txt"))
}

func (s *StoreTestSuite) testReadMissing(t *testing.T) {
	store := s.NewStore(t)

	_, err := store.Read(testContext(), "missing.bin")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "expected ErrNotFound, got %v", err)
}

func (s *StoreTestSuite) testDeleteIdempotent(t *testing.T) {
	store := s.NewStore(t)

	mustWrite(t, store, "doomed.txt", []byte("bytes"))
	require.NoError(t, store.Delete(testContext(), "doomed.txt"))
	require.NoError(t, store.Delete(testContext(), "doomed.txt"), "second delete should succeed")

	exists, err := store.Exists(testContext(), "doomed.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func (s *StoreTestSuite) testExists(t *testing.T) {
	store := s.NewStore(t)

	exists, err := store.Exists(testContext(), "nope")
	require.NoError(t, err)
	assert.False(t, exists)

	mustWrite(t, store, "yep", []byte("x"))
	exists, err = store.Exists(testContext(), "yep")
	require.NoError(t, err)
	assert.True(t, exists)
}

func (s *StoreTestSuite) testSize(t *testing.T) {
	store := s.NewStore(t)

	mustWrite(t, store, "sized.bin", make([]byte, 4096))

	size, err := store.Size(testContext(), "sized.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), size)

	_, err = store.Size(testContext(), "unsized.bin")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func (s *StoreTestSuite) testMetadata(t *testing.T) {
	store := s.NewStore(t)

	// SHA1("abc") is well known; checks the backend reports real checksums.
	mustWrite(t, store, "meta.txt", []byte("abc"))

	info, err := store.Metadata(testContext(), "meta.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)
	assert.False(t, info.MTime.IsZero())

	if info.Checksums != "" {
		assert.Contains(t, info.Checksums, "SHA1:a9993e364706816aba3e25717850c26c9cd0d89d")
	}
}

func (s *StoreTestSuite) testTouch(t *testing.T) {
	store := s.NewStore(t)

	mustWrite(t, store, "touched.txt", []byte("x"))

	want := time.Date(2022, 6, 15, 12, 0, 0, 0, time.UTC)
	err := store.Touch(testContext(), "touched.txt", want)
	if errors.Is(err, storage.ErrNotSupported) {
		t.Skip("backend does not support Touch")
	}
	require.NoError(t, err)

	info, err := store.Metadata(testContext(), "touched.txt")
	require.NoError(t, err)
	assert.True(t, info.MTime.Equal(want), "expected mtime %v, got %v", want, info.MTime)
}

func (s *StoreTestSuite) testMove(t *testing.T) {
	store := s.NewStore(t)
	data := []byte(strings.Repeat("payload ", 128))

	mustWrite(t, store, ".partfs/parts/abc123.part", data)

	err := storage.Move(testContext(), store, ".partfs/parts/abc123.part", store, "docs/final.bin")
	require.NoError(t, err)

	assert.Equal(t, data, mustRead(t, store, "docs/final.bin"))

	exists, err := store.Exists(testContext(), ".partfs/parts/abc123.part")
	require.NoError(t, err)
	assert.False(t, exists, "source should be gone after move")
}
