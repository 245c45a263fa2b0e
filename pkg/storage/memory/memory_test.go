package memory

import (
	"context"
	"testing"

	"github.com/mcav91/partfs/pkg/storage"
	storagetesting "github.com/mcav91/partfs/pkg/storage/testing"
)

// TestMemoryStore runs the complete Store conformance suite against the
// in-memory implementation.
func TestMemoryStore(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewStore: func(t *testing.T) storage.Store {
			store, err := NewMemoryStore(context.Background())
			if err != nil {
				t.Fatalf("Failed to create MemoryStore: %v", err)
			}
			return store
		},
	}

	suite.Run(t)
}

func TestMemoryStore_WriteCopiesInput(t *testing.T) {
	store, err := NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("Failed to create MemoryStore: %v", err)
	}

	data := []byte("original")
	if err := store.Write(context.Background(), "f.txt", data); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data[0] = 'X'

	reader, err := store.Read(context.Background(), "f.txt")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	defer reader.Close()

	buf := make([]byte, 1)
	if _, err := reader.Read(buf); err != nil {
		t.Fatalf("read byte: %v", err)
	}
	if buf[0] != 'o' {
		t.Errorf("stored content aliased caller buffer: got %q", buf[0])
	}
}
