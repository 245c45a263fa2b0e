package fs

import (
	"context"
	"errors"
	"testing"

	"github.com/mcav91/partfs/pkg/storage"
	storagetesting "github.com/mcav91/partfs/pkg/storage/testing"
)

// TestFSStore runs the complete Store conformance suite against the
// filesystem implementation.
func TestFSStore(t *testing.T) {
	suite := &storagetesting.StoreTestSuite{
		NewStore: func(t *testing.T) storage.Store {
			store, err := NewFSStore(context.Background(), t.TempDir())
			if err != nil {
				t.Fatalf("Failed to create FSStore: %v", err)
			}
			return store
		},
	}

	suite.Run(t)
}

func TestFSStore_IsNotPassThrough(t *testing.T) {
	store, err := NewFSStore(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create FSStore: %v", err)
	}

	if store.IsPassThrough() {
		t.Error("filesystem store must not be pass-through")
	}
}

func TestFSStore_RejectsEscapingPaths(t *testing.T) {
	store, err := NewFSStore(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create FSStore: %v", err)
	}

	cases := []string{"", "../outside.txt", "../../etc/passwd", "/abs/path"}
	for _, path := range cases {
		err := store.Write(context.Background(), path, []byte("x"))
		if !errors.Is(err, storage.ErrInvalidPath) {
			t.Errorf("Write(%q): expected ErrInvalidPath, got %v", path, err)
		}
	}
}
