package upload

import (
	"context"
	"strings"
	"testing"

	"github.com/mcav91/partfs/pkg/storage/memory"
)

func TestNeedsStaging(t *testing.T) {
	area := NewStagingArea(StagingAreaConfig{})

	local, err := memory.NewMemoryStore(context.Background())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if !area.NeedsStaging(local) {
		t.Error("non-pass-through backend should require staging")
	}

	if area.NeedsStaging(passThrough{local}) {
		t.Error("pass-through backend should skip staging")
	}
}

func TestStagingPath_Colocated(t *testing.T) {
	area := NewStagingArea(StagingAreaConfig{PartFileColocated: true})

	path := area.StagingPath("docs/report.pdf", "nonce1")

	if path == "docs/report.pdf" {
		t.Fatal("staging path must differ from target")
	}
	if !strings.HasPrefix(path, "docs/") {
		t.Errorf("colocated staging path should live beside the target, got %q", path)
	}
	if !strings.HasSuffix(path, ".part") {
		t.Errorf("expected .part suffix, got %q", path)
	}
}

func TestStagingPath_Flat(t *testing.T) {
	area := NewStagingArea(StagingAreaConfig{PartFileColocated: false})

	path := area.StagingPath("docs/deeply/nested/report.pdf", "nonce1")

	if !strings.HasPrefix(path, ".partfs/parts/") {
		t.Errorf("flat staging path should use the parts prefix, got %q", path)
	}
	if strings.Contains(strings.TrimPrefix(path, ".partfs/parts/"), "/") {
		t.Errorf("flat staging path should not mirror the target tree, got %q", path)
	}
}

func TestStagingPath_AlwaysReserved(t *testing.T) {
	// Whatever the placement policy or configured prefix, a staging path
	// must never be addressable as a published path.
	areas := map[string]*StagingArea{
		"colocated":     NewStagingArea(StagingAreaConfig{PartFileColocated: true}),
		"flat":          NewStagingArea(StagingAreaConfig{}),
		"custom prefix": NewStagingArea(StagingAreaConfig{PartsPrefix: "custom/parts"}),
	}

	for name, area := range areas {
		path := area.StagingPath("docs/report.pdf", "nonce1")
		if !IsReservedPath(path) {
			t.Errorf("%s: staging path %q escapes the reserved namespace", name, path)
		}
	}
}

func TestIsReservedPath(t *testing.T) {
	reserved := []string{
		".partfs",
		".partfs/parts/ab12cd34-nonce.part",
		".partfs/chunks/tx1/00000",
		"docs/.report.pdf.nonce1.part",
	}
	for _, path := range reserved {
		if !IsReservedPath(path) {
			t.Errorf("expected %q to be reserved", path)
		}
	}

	published := []string{
		"docs/report.pdf",
		"partfs/readme.txt",
		"docs/partial.md",
	}
	for _, path := range published {
		if IsReservedPath(path) {
			t.Errorf("expected %q to be publishable", path)
		}
	}
}

func TestStagingPath_NoncesDoNotCollide(t *testing.T) {
	area := NewStagingArea(StagingAreaConfig{PartFileColocated: true})

	first := area.StagingPath("docs/report.pdf", NewNonce())
	second := area.StagingPath("docs/report.pdf", NewNonce())

	if first == second {
		t.Error("concurrent uploads to one target must get distinct staging paths")
	}
}

func TestStagingPath_Deterministic(t *testing.T) {
	area := NewStagingArea(StagingAreaConfig{})

	first := area.StagingPath("docs/report.pdf", "fixed")
	second := area.StagingPath("docs/report.pdf", "fixed")

	if first != second {
		t.Errorf("staging path should be deterministic for a fixed nonce: %q != %q", first, second)
	}
}
