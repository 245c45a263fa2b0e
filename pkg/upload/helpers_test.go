package upload

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mcav91/partfs/pkg/metadata"
	"github.com/mcav91/partfs/pkg/storage"
	"github.com/mcav91/partfs/pkg/storage/memory"
)

// passThrough wraps a store and reports it as pass-through, standing in for
// an object-store backend in tests.
type passThrough struct {
	storage.Store
}

func (passThrough) IsPassThrough() bool { return true }

// brokenMover wraps a memory store and fails MoveObject. When copyFirst is
// set, the destination is written before the failure is reported, simulating
// "move reported failure but target exists".
type brokenMover struct {
	*memory.MemoryStore
	copyFirst bool
}

func (b *brokenMover) MoveObject(ctx context.Context, fromPath, toPath string) error {
	if b.copyFirst {
		reader, err := b.MemoryStore.Read(ctx, fromPath)
		if err != nil {
			return err
		}
		defer reader.Close()

		data := make([]byte, 0)
		buf := make([]byte, 4096)
		for {
			n, readErr := reader.Read(buf)
			data = append(data, buf[:n]...)
			if readErr != nil {
				break
			}
		}
		if err := b.MemoryStore.Write(ctx, toPath, data); err != nil {
			return err
		}
	}
	return storage.ErrUnavailable
}

// recordingNotifier captures emitted events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Emit(event string, path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event+" "+path)
}

// recordingUpdater captures metadata updates for assertions.
type recordingUpdater struct {
	mu      sync.Mutex
	paths   []string
	entries []metadata.Entry
}

func (u *recordingUpdater) Update(ctx context.Context, path string, entry metadata.Entry) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, path)
	u.entries = append(u.entries, entry)
	return nil
}

func newMemoryStore(t *testing.T) *memory.MemoryStore {
	t.Helper()
	store, err := memory.NewMemoryStore(context.Background())
	require.NoError(t, err)
	return store
}

func mustReadAll(t *testing.T, store storage.Store, path string) []byte {
	t.Helper()
	reader, err := store.Read(context.Background(), path)
	require.NoError(t, err)
	defer reader.Close()

	var data []byte
	buf := make([]byte, 4096)
	for {
		n, readErr := reader.Read(buf)
		data = append(data, buf[:n]...)
		if readErr != nil {
			break
		}
	}
	return data
}
