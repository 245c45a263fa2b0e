package upload

import (
	"crypto/sha1"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/mcav91/partfs/pkg/storage"
)

// StagingArea decides whether an upload needs a temporary part file and
// computes where that part file lives.
//
// Part files keep half-written bytes out of the published namespace: the
// upload is streamed to the staging path first and published with a single
// atomic move. Pass-through backends (object stores) skip staging entirely
// because their write primitive is already atomic and an intermediate copy
// would be wasted I/O.
type StagingArea struct {
	// colocated places part files alongside the target (same directory,
	// ".<name>.<nonce>.part" siblings), enabling same-directory atomic
	// renames. When false, part files collect in a flat hashed location
	// under partsPrefix and the commit move crosses directories.
	colocated bool

	// partsPrefix is the flat staging location used when not colocated.
	partsPrefix string
}

// StagingAreaConfig configures part file placement.
type StagingAreaConfig struct {
	// PartFileColocated places part files in the target's directory.
	PartFileColocated bool

	// PartsPrefix is the flat staging prefix for non-colocated part files
	// (default ".partfs/parts"; forced under ReservedRoot either way).
	PartsPrefix string
}

// ReservedRoot is the hidden namespace holding part files and chunk
// staging. Published paths never enter it: the committer rejects it on
// write and the HTTP surface reports it as absent on read, so staged
// bytes stay invisible until their atomic publish.
const ReservedRoot = ".partfs"

// IsReservedPath reports whether path addresses staging state rather than
// the published namespace: anything under ReservedRoot, or a part file by
// its suffix (colocated part files live next to their targets).
func IsReservedPath(path string) bool {
	return path == ReservedRoot ||
		strings.HasPrefix(path, ReservedRoot+"/") ||
		strings.HasSuffix(path, ".part")
}

// NewStagingArea creates a staging area with the given placement policy.
// The flat parts prefix is forced under ReservedRoot so no configuration
// can point staging at an addressable published path.
func NewStagingArea(cfg StagingAreaConfig) *StagingArea {
	prefix := cfg.PartsPrefix
	if prefix == "" {
		prefix = "parts"
	}
	if !IsReservedPath(prefix) {
		prefix = path.Join(ReservedRoot, prefix)
	}

	return &StagingArea{
		colocated:   cfg.PartFileColocated,
		partsPrefix: prefix,
	}
}

// NeedsStaging reports whether uploads targeting the given backend require a
// part file. Pass-through backends do not.
func (a *StagingArea) NeedsStaging(target storage.Store) bool {
	return !target.IsPassThrough()
}

// NewNonce returns an opaque per-attempt token namespacing one staging path.
func NewNonce() string {
	return uuid.NewString()
}

// StagingPath computes the part file path for one upload attempt.
//
// The path is deterministic for a given (target, nonce) pair and always
// distinct from the target. The nonce keeps concurrent uploads to the same
// target from colliding on a staging path.
func (a *StagingArea) StagingPath(targetPath, nonce string) string {
	if a.colocated {
		dir, name := path.Split(targetPath)
		return path.Join(dir, fmt.Sprintf(".%s.%s.part", name, nonce))
	}

	// Flat layout: hash the target so deep trees don't reappear under the
	// staging prefix.
	hashed := sha1.Sum([]byte(targetPath))
	return path.Join(a.partsPrefix, fmt.Sprintf("%x-%s.part", hashed[:8], nonce))
}
