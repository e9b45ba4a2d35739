package notedb

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// NestNotFound is returned by DecodePath when no file exists for the
// key at any probed depth. It is distinct from depth 0, which means
// the file sits directly under the root.
const NestNotFound = -1

// maxNest bounds the depth probe. Gerrit never nested identity files
// more than two levels deep; 4 leaves headroom for unknown layouts.
const maxNest = 4

// sha1Hex hashes the content-address key of an identity record.
func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// EncodePath places key under root at the given nesting depth: nest
// two-character directory components, then the remainder as the
// filename. EncodePath("r", "abcdef", 2) is "r/ab/cd/ef".
func EncodePath(root, key string, nest int) string {
	elems := []string{root}
	for i := 0; i < nest && len(key) > 2; i++ {
		elems = append(elems, key[:2])
		key = key[2:]
	}
	elems = append(elems, key)
	return filepath.Join(elems...)
}

// DecodePath discovers the nesting depth at which key exists under
// root, probing depth 0 upward. Two generations of the tool wrote
// files at different depths into the same store, so the depth cannot
// be assumed; writers must match whatever depth readers will find.
func DecodePath(root, key string) int {
	for nest := 0; nest <= maxNest; nest++ {
		info, err := os.Stat(EncodePath(root, key, nest))
		if err == nil && info.Mode().IsRegular() {
			return nest
		}
	}
	return NestNotFound
}

// nestOf derives the nesting depth a relative store path was written
// at, counting its directory components.
func nestOf(rel string) int {
	return strings.Count(filepath.ToSlash(rel), "/")
}
