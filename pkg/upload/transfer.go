package upload

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Chunked uploads address the final target with a transfer suffix:
//
//	docs/report.pdf-chunking-9f3ab2-12-0
//	└── target ──┘          └tid┘ │  └ chunk index (0-based)
//	                              └ declared chunk count
//
// The suffix carries everything the assembler needs (transfer id, declared
// total, zero-based index) so chunk requests need no side-channel state.
var chunkPathPattern = regexp.MustCompile(`^(.+)-chunking-([A-Za-z0-9_]+)-(\d+)-(\d+)$`)

// ChunkInfo identifies one chunk of a chunked-upload transfer.
type ChunkInfo struct {
	// TransferID is the opaque client-supplied transfer token.
	TransferID string

	// TargetPath is the final published path the transfer assembles into.
	TargetPath string

	// Index is the zero-based chunk index.
	Index int

	// Total is the declared number of chunks in the transfer.
	Total int
}

// IsChunkPath reports whether a request path carries a chunk-transfer suffix.
func IsChunkPath(path string) bool {
	return strings.Contains(path, "-chunking-") && chunkPathPattern.MatchString(path)
}

// ParseChunkPath splits a chunk-bearing request path into its transfer id,
// target name, declared total and chunk index.
func ParseChunkPath(path string) (*ChunkInfo, error) {
	match := chunkPathPattern.FindStringSubmatch(path)
	if match == nil {
		return nil, fmt.Errorf("path %q is not a chunk upload path", path)
	}

	total, err := strconv.Atoi(match[3])
	if err != nil || total <= 0 {
		return nil, fmt.Errorf("invalid chunk count %q in %q", match[3], path)
	}

	index, err := strconv.Atoi(match[4])
	if err != nil || index < 0 || index >= total {
		return nil, fmt.Errorf("chunk index %q out of range for %d chunks in %q", match[4], total, path)
	}

	return &ChunkInfo{
		TransferID: match[2],
		TargetPath: match[1],
		Index:      index,
		Total:      total,
	}, nil
}
