package config

import (
	"context"
	"testing"

	"github.com/mcav91/partfs/pkg/metadata"
	"github.com/mcav91/partfs/pkg/notify"
)

func TestCreateStore_Memory(t *testing.T) {
	store, err := CreateStore(context.Background(), StorageConfig{Type: "memory"})
	if err != nil {
		t.Fatalf("Failed to create memory store: %v", err)
	}
	if store.IsPassThrough() {
		t.Error("Memory store should not be pass-through")
	}
}

func TestCreateStore_Filesystem(t *testing.T) {
	cfg := StorageConfig{
		Type:       "filesystem",
		Filesystem: map[string]any{"path": t.TempDir()},
	}

	store, err := CreateStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Failed to create filesystem store: %v", err)
	}

	if err := store.Write(context.Background(), "probe.txt", []byte("x")); err != nil {
		t.Fatalf("Store should be usable after creation: %v", err)
	}
}

func TestCreateStore_FilesystemRequiresPath(t *testing.T) {
	cfg := StorageConfig{Type: "filesystem", Filesystem: map[string]any{}}

	if _, err := CreateStore(context.Background(), cfg); err == nil {
		t.Fatal("Expected error for missing filesystem path, got nil")
	}
}

func TestCreateStore_UnknownType(t *testing.T) {
	if _, err := CreateStore(context.Background(), StorageConfig{Type: "tape"}); err == nil {
		t.Fatal("Expected error for unknown storage type, got nil")
	}
}

func TestCreateMetadataUpdater_None(t *testing.T) {
	updater, err := CreateMetadataUpdater(context.Background(), MetadataConfig{Type: "none"})
	if err != nil {
		t.Fatalf("Failed to create nop updater: %v", err)
	}
	if _, ok := updater.(metadata.NopUpdater); !ok {
		t.Errorf("Expected NopUpdater, got %T", updater)
	}
}

func TestCreateMetadataUpdater_BadgerInMemory(t *testing.T) {
	// An empty path opens badger in memory, which is what tests want
	updater, err := CreateMetadataUpdater(context.Background(), MetadataConfig{
		Type:   "badger",
		Badger: map[string]any{},
	})
	if err != nil {
		t.Fatalf("Failed to create badger updater: %v", err)
	}

	entry := metadata.Entry{Size: 42}
	if err := updater.Update(context.Background(), "docs/a.txt", entry); err != nil {
		t.Fatalf("Updater should accept entries: %v", err)
	}
}

func TestCreateNotifier(t *testing.T) {
	notifier, err := CreateNotifier(NotifyConfig{Type: "none"})
	if err != nil {
		t.Fatalf("Failed to create nop notifier: %v", err)
	}
	if _, ok := notifier.(notify.NopNotifier); !ok {
		t.Errorf("Expected NopNotifier, got %T", notifier)
	}

	notifier, err = CreateNotifier(NotifyConfig{Type: "log"})
	if err != nil {
		t.Fatalf("Failed to create log notifier: %v", err)
	}
	if _, ok := notifier.(notify.LogNotifier); !ok {
		t.Errorf("Expected LogNotifier, got %T", notifier)
	}

	if _, err := CreateNotifier(NotifyConfig{Type: "smoke"}); err == nil {
		t.Fatal("Expected error for unknown notify type, got nil")
	}
}
