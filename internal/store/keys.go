package store

import "sync"

// keyPool recycles buffers for blob and slot lookup keys.
var keyPool = sync.Pool{
	New: func() any {
		// "blob:data:" plus a prefixed id.
		return make([]byte, 0, 64)
	},
}

// buildKey joins prefix and suffix into a pooled buffer. Pair every call
// with releaseKey. Use it for lookups only: a write keeps referencing its key
// until the transaction commits.
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// releaseKey returns key to the pool. Oversized buffers are dropped.
func releaseKey(key []byte) {
	if cap(key) <= 256 {
		keyPool.Put(key[:0])
	}
}
