package weightproof

import (
	"encoding/binary"

	"github.com/VictoriaMetrics/fastcache"
)

// BlockRecordCache caches height-to-hash lookups against a
// BlockchainInterface in a fastcache instance keyed by height. It does not
// implement BlockchainInterface itself, and the builders in this package
// call the chain directly rather than through it. It never owns canonical
// state; a miss always falls through to the wrapped BlockchainInterface.
type BlockRecordCache struct {
	chain BlockchainInterface
	cache *fastcache.Cache
}

// NewBlockRecordCache wraps chain with an in-memory cache sized maxBytes.
func NewBlockRecordCache(chain BlockchainInterface, maxBytes int) *BlockRecordCache {
	return &BlockRecordCache{chain: chain, cache: fastcache.New(maxBytes)}
}

func heightKey(height uint32) []byte {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], height)
	return buf[:]
}

// HeightToHash checks the cache before falling through to the wrapped
// chain, caching the result when that lookup succeeds.
func (c *BlockRecordCache) HeightToHash(height uint32) (Hash, bool) {
	key := heightKey(height)
	if buf, ok := c.cache.HasGet(nil, key); ok {
		var h Hash
		copy(h[:], buf)
		return h, true
	}
	hash, ok := c.chain.HeightToHash(height)
	if ok {
		c.cache.Set(key, hash[:])
	}
	return hash, ok
}

// Invalidate drops the cached entry at height, used when a reorg replaces
// the canonical hash at that height.
func (c *BlockRecordCache) Invalidate(height uint32) {
	c.cache.Del(heightKey(height))
}

// Reset clears the entire cache.
func (c *BlockRecordCache) Reset() {
	c.cache.Reset()
}
