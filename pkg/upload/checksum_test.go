package upload

import "testing"

func TestChecksumMatches(t *testing.T) {
	computed := "SHA1:a9993e364706816aba3e25717850c26c9cd0d89d MD5:900150983cd24fb0d6963f7d28e17f72"

	cases := []struct {
		name     string
		declared string
		computed string
		want     bool
	}{
		{"no declared checksum passes", "", computed, true},
		{"no computed checksums passes", "SHA1:a9993e364706816aba3e25717850c26c9cd0d89d", "", true},
		{"matching sha1", "SHA1:a9993e364706816aba3e25717850c26c9cd0d89d", computed, true},
		{"matching md5", "MD5:900150983cd24fb0d6963f7d28e17f72", computed, true},
		{"lowercase algorithm name matches", "sha1:a9993e364706816aba3e25717850c26c9cd0d89d", computed, true},
		{"wrong digest fails", "SHA1:ffffffffffffffffffffffffffffffffffffffff", computed, false},
		{"wrong algorithm fails", "SHA256:a9993e364706816aba3e25717850c26c9cd0d89d", computed, false},
		{"malformed declaration fails", "notachecksum", computed, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ChecksumMatches(tc.declared, tc.computed)
			if got != tc.want {
				t.Errorf("ChecksumMatches(%q, %q) = %v, want %v", tc.declared, tc.computed, got, tc.want)
			}
		})
	}
}
