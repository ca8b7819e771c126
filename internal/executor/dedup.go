package executor

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultDuplicateCacheSize bounds the in-memory seen-id cache (spec.md
// §4.4 "a small in-memory cache of recently-seen ids (LRU, ~10 000 entries)").
const defaultDuplicateCacheSize = 10000

// duplicateCache tracks opportunity ids this instance has already produced
// a terminal result for. It is process-local and not persisted; a crash
// loses it, which only widens the window for a legitimate (and harmless)
// re-execution after lock expiry.
type duplicateCache struct {
	mu    sync.Mutex
	cache *lru.Cache[string, struct{}]
}

func newDuplicateCache(size int) *duplicateCache {
	if size <= 0 {
		size = defaultDuplicateCacheSize
	}

	c, _ := lru.New[string, struct{}](size)

	return &duplicateCache{cache: c}
}

func (d *duplicateCache) seen(opportunityID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.cache.Get(opportunityID)

	return ok
}

func (d *duplicateCache) mark(opportunityID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.cache.Add(opportunityID, struct{}{})
}
