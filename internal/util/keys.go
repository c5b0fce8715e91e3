package util

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// maxKeyLen keeps storage keys well under provider limits (BigCache shards by
// key hash, Redis is fine with long keys but they waste memory).
const maxKeyLen = 200

// StorageKey joins prefix and key. Keys longer than maxKeyLen are replaced by
// a short sha256 prefix so the result stays bounded and deterministic.
func StorageKey(prefix, key string) string {
	k := prefix + ":" + key
	if len(k) <= maxKeyLen {
		return k
	}
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:#%x", prefix, sum[:16])
}

// NormalizeTags returns a sorted copy of tags without duplicates.
// It reports false if any tag is empty.
func NormalizeTags(tags []string) ([]string, bool) {
	if len(tags) == 0 {
		return nil, true
	}
	s := make([]string, len(tags))
	copy(s, tags)
	sort.Strings(s)

	out := s[:0]
	for i, t := range s {
		if t == "" {
			return nil, false
		}
		if i > 0 && t == s[i-1] {
			continue
		}
		out = append(out, t)
	}
	return out, true
}
