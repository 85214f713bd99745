/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migrate

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ContentChecksum returns the hex-encoded SHA-256 of migration file contents,
// the same value Scan puts into Entry.Checksum.
func ContentChecksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// AggregateChecksum reduces the entries of one version to a single fingerprint.
//
// A single entry keeps its own content checksum. For several entries the result is the SHA-256
// of their names joined by "\n" in the given order: it changes when files of the version are
// renamed, added, removed or reordered, while content changes are tracked by per-entry checksums.
func AggregateChecksum(entries []Entry) string {
	if len(entries) == 1 {
		return entries[0].Checksum
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	sum := sha256.Sum256([]byte(strings.Join(names, "\n")))
	return hex.EncodeToString(sum[:])
}
