package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcav91/partfs/pkg/metadata"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(context.Background(), "")
	require.NoError(t, err, "in-memory badger store should open")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestUpdate_StoresFileEntry(t *testing.T) {
	store := newTestStore(t)
	mtime := time.Date(2023, 4, 1, 10, 30, 0, 0, time.UTC)

	err := store.Update(context.Background(), "docs/report.pdf", metadata.Entry{
		Size:  1024,
		MTime: mtime,
		ETag:  `"etag123"`,
	})
	require.NoError(t, err)

	entry, err := store.LookupFile(context.Background(), "docs/report.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(1024), entry.Size)
	assert.True(t, entry.MTime.Equal(mtime))
	assert.Equal(t, `"etag123"`, entry.ETag)
}

func TestUpdate_RollsUpParentDirectories(t *testing.T) {
	store := newTestStore(t)
	mtime := time.Date(2023, 4, 1, 10, 30, 0, 0, time.UTC)

	err := store.Update(context.Background(), "docs/reports/q1.pdf", metadata.Entry{Size: 500, MTime: mtime})
	require.NoError(t, err)
	err = store.Update(context.Background(), "docs/notes.txt", metadata.Entry{Size: 100, MTime: mtime.Add(time.Hour)})
	require.NoError(t, err)

	reports, err := store.LookupDir(context.Background(), "docs/reports")
	require.NoError(t, err)
	assert.Equal(t, int64(500), reports.Size)

	docs, err := store.LookupDir(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(600), docs.Size)
	assert.True(t, docs.MTime.Equal(mtime.Add(time.Hour)), "directory mtime should track the newest child")

	root, err := store.LookupDir(context.Background(), ".")
	require.NoError(t, err)
	assert.Equal(t, int64(600), root.Size)
}

func TestUpdate_OverwriteAppliesSizeDelta(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	require.NoError(t, store.Update(context.Background(), "a/file.bin", metadata.Entry{Size: 1000, MTime: now}))
	require.NoError(t, store.Update(context.Background(), "a/file.bin", metadata.Entry{Size: 250, MTime: now.Add(time.Minute)}))

	dir, err := store.LookupDir(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, int64(250), dir.Size, "overwrite should apply the delta, not accumulate")
}

func TestLookupFile_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.LookupFile(context.Background(), "missing.txt")
	assert.True(t, errors.Is(err, ErrNotFound))
}
