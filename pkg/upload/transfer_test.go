package upload

import "testing"

func TestParseChunkPath(t *testing.T) {
	info, err := ParseChunkPath("docs/report.pdf-chunking-9f3ab2-12-4")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if info.TargetPath != "docs/report.pdf" {
		t.Errorf("target = %q, want docs/report.pdf", info.TargetPath)
	}
	if info.TransferID != "9f3ab2" {
		t.Errorf("transfer id = %q, want 9f3ab2", info.TransferID)
	}
	if info.Total != 12 {
		t.Errorf("total = %d, want 12", info.Total)
	}
	if info.Index != 4 {
		t.Errorf("index = %d, want 4", info.Index)
	}
}

func TestParseChunkPath_Invalid(t *testing.T) {
	cases := []string{
		"docs/report.pdf",                     // no suffix
		"docs/report.pdf-chunking-abc-3",      // missing index
		"docs/report.pdf-chunking-abc-0-0",    // zero chunks
		"docs/report.pdf-chunking-abc-3-3",    // index == total
		"docs/report.pdf-chunking-abc-3-9",    // index beyond total
		"docs/report.pdf-chunking--3-1",       // empty transfer id
		"docs/report.pdf-chunking-abc-three-1",
	}

	for _, path := range cases {
		if _, err := ParseChunkPath(path); err == nil {
			t.Errorf("ParseChunkPath(%q) should fail", path)
		}
	}
}

func TestIsChunkPath(t *testing.T) {
	if !IsChunkPath("a.txt-chunking-tid1-3-0") {
		t.Error("expected chunk path to be recognized")
	}
	if IsChunkPath("a.txt") {
		t.Error("plain path must not parse as chunk path")
	}
	if IsChunkPath("a-chunking-in-name.txt") {
		t.Error("suffix-less path containing the separator must not parse")
	}
}
