package world

// NetStateCache memoizes serialised entity slices per (net_rules, entity_id,
// entity_version) for one tick, so identical entity state is not
// reserialised once per viewing client (spec.md §4.E step 12). It is
// cleared once per tick, at the start of step 12, matching the teacher's scratch-buffer
// reuse discipline instead of allocating a fresh map each step.
type NetStateCache struct {
	entries map[uint64][]byte
}

// NewNetStateCache returns an empty cache.
func NewNetStateCache() *NetStateCache {
	return &NetStateCache{entries: map[uint64][]byte{}}
}

// Get returns the cached serialisation for the given key, if present.
func (c *NetStateCache) Get(netRules uint32, entityID EntityID, version uint64) ([]byte, bool) {
	v, ok := c.entries[netCacheKey(netRules, uint64(entityID), version)]
	return v, ok
}

// Put stores a serialisation under the given key.
func (c *NetStateCache) Put(netRules uint32, entityID EntityID, version uint64, data []byte) {
	c.entries[netCacheKey(netRules, uint64(entityID), version)] = data
}

// Reset clears the cache; called once per tick before step 12 runs so
// reused map storage doesn't leak entity state across simulated ticks.
func (c *NetStateCache) Reset() {
	clear(c.entries)
}
