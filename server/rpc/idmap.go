// Package rpc implements cross-thread result passing (Promise/Keeper) and
// the cycling id allocator (IdMap) used for client connection ids and
// entity handles.
package rpc

import (
	"errors"
	"fmt"

	"github.com/brentp/intintmap"
)

// ErrIdMapFull is returned by IdMap.Next when every id in [Min, Max] is live.
var ErrIdMapFull = errors.New("rpc: idmap has no free ids")

// IdMap allocates ids from [min, max], cycling forward so a freed id is not
// handed out again until a full pass through the range has intervened
// (spec.md §4.H, §8 invariant 6; grounded on
// original_source/source/core/StarIdMap.hpp's IdMapWrapper).
type IdMap struct {
	min, max int64
	next     int64
	live     *intintmap.Map
}

// NewIdMap constructs an IdMap over the inclusive range [min, max].
func NewIdMap(min, max int64) *IdMap {
	if max < min {
		panic(fmt.Sprintf("rpc: invalid idmap range [%d, %d]", min, max))
	}
	return &IdMap{min: min, max: max, next: min, live: intintmap.New(64, 0.6)}
}

// Size returns the number of currently live ids.
func (m *IdMap) Size() int64 { return int64(m.live.Size()) }

// capacity is the number of distinct ids the range can hold.
func (m *IdMap) capacity() int64 { return m.max - m.min + 1 }

// Next allocates and returns a fresh id, or ErrIdMapFull if the map is at
// capacity. It scans forward from its internal cursor, skipping live ids and
// cycling back to min after max, and leaves the cursor just past the id it
// returns, so a freed id is reissued only once the cursor reaches it again.
// A call that returns ErrIdMapFull leaves the cursor where it was.
func (m *IdMap) Next() (int64, error) {
	if m.Size() >= m.capacity() {
		return 0, ErrIdMapFull
	}
	for {
		id := m.next
		m.next++
		if m.next > m.max {
			m.next = m.min
		}
		if _, ok := m.live.Get(id); !ok {
			m.live.Put(id, 1)
			return id, nil
		}
	}
}

// Add inserts an explicit id (e.g. one restored from persistence), failing
// if it is already live or out of range.
func (m *IdMap) Add(id int64) error {
	if id < m.min || id > m.max {
		return fmt.Errorf("rpc: id %d out of range [%d, %d]", id, m.min, m.max)
	}
	if _, ok := m.live.Get(id); ok {
		return fmt.Errorf("rpc: id %d already live", id)
	}
	m.live.Put(id, 1)
	return nil
}

// Remove frees id, making it eligible for reuse only after Next has cycled
// through the rest of the range.
func (m *IdMap) Remove(id int64) {
	m.live.Del(id)
}

// Contains reports whether id is currently live.
func (m *IdMap) Contains(id int64) bool {
	_, ok := m.live.Get(id)
	return ok
}
