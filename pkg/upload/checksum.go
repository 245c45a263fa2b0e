package upload

import "strings"

// ChecksumMatches compares a client-declared checksum against the checksum
// tokens computed by the storage backend.
//
// declared is a single "ALGO:hex" pair (the algorithm name is normalized to
// uppercase before matching); computed is the backend's space-separated token
// list, e.g. "SHA1:da39a3... MD5:d41d8c...".
//
// Absence of proof is not proof of absence: when the client declared no
// checksum, or the backend reports none, validation passes trivially. This
// is an integrity aid, not a security check. A declared checksum that the
// backend can verify must match one of the computed tokens exactly.
func ChecksumMatches(declared, computed string) bool {
	if declared == "" || computed == "" {
		return true
	}

	algo, value, found := strings.Cut(declared, ":")
	if !found {
		return false
	}
	normalized := strings.ToUpper(strings.TrimSpace(algo)) + ":" + strings.TrimSpace(value)

	return strings.Contains(computed, normalized)
}
