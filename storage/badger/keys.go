package badger

import (
	"encoding/binary"
	"strings"
)

// Key prefixes for different data types
const (
	cachePrefix = "cache:"
	eventPrefix = "srchevt:"
)

// makeCacheKey namespaces a cache key.
func makeCacheKey(key string) []byte {
	return []byte(cachePrefix + key)
}

// cacheKeyName strips the namespace from a stored cache key.
func cacheKeyName(stored []byte) string {
	return strings.TrimPrefix(string(stored), cachePrefix)
}

// makeEventKey generates the key of the event at position pos in the log.
// Format: prefix:position
func makeEventKey(pos int) []byte {
	buf := make([]byte, len(eventPrefix)+8)
	offset := copy(buf, eventPrefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(pos))
	return buf
}

// eventKeyPosition extracts the position from an event key.
func eventKeyPosition(key []byte) (int, bool) {
	if len(key) != len(eventPrefix)+8 {
		return 0, false
	}
	return int(binary.BigEndian.Uint64(key[len(eventPrefix):])), true
}
