package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key derives a stable cache key from its parts. Parts are trimmed and
// lower-cased, so "http://LOCALHOST:8080/" and "http://localhost:8080" match.
func Key(kind string, parts ...string) string {
	h := sha256.New()
	for _, p := range append([]string{kind}, parts...) {
		p = strings.ToLower(strings.TrimRight(strings.TrimSpace(p), "/"))
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return strings.ToLower(strings.TrimSpace(kind)) + "-" + hex.EncodeToString(h.Sum(nil))[:32]
}
