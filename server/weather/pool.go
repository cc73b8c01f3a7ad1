// Package weather implements the weighted weather selection pool and the
// per-world weather state machine (spec.md §4.H), grounded on
// _examples/original_source/source/core/StarWeightedPool.hpp.
package weather

import "math/rand"

type entry[T any] struct {
	weight float64
	item   T
}

// Pool is a weighted random-selection table: each entry contributes a
// probability proportional to its weight over the total. Zero and negative
// weights are rejected at Add time, matching the original's silent-skip
// behavior (a non-positive weight simply never gets added).
type Pool[T any] struct {
	items       []entry[T]
	totalWeight float64
}

// Add registers item with the given weight. Weights <= 0 are ignored.
func (p *Pool[T]) Add(weight float64, item T) {
	if weight <= 0 {
		return
	}
	p.items = append(p.items, entry[T]{weight: weight, item: item})
	p.totalWeight += weight
}

// Clear empties the pool.
func (p *Pool[T]) Clear() {
	p.items = p.items[:0]
	p.totalWeight = 0
}

// Size returns the number of entries in the pool.
func (p *Pool[T]) Size() int { return len(p.items) }

// Empty reports whether the pool has no entries.
func (p *Pool[T]) Empty() bool { return len(p.items) == 0 }

// Select draws one item using r, weighted by each entry's share of the
// total. It returns the zero value if the pool is empty.
func (p *Pool[T]) Select(r *rand.Rand) T {
	idx := p.selectIndex(r.Float64())
	if idx < 0 {
		var zero T
		return zero
	}
	return p.items[idx].item
}

// selectIndex walks the cumulative weight table against target in [0, 1),
// scaled by totalWeight: a random draw is compared against each entry's
// weight in turn, subtracting as it goes, until the running total crosses
// the target — O(n), matching the original (a tree-based O(log n) variant
// was never needed there either).
func (p *Pool[T]) selectIndex(target float64) int {
	if len(p.items) == 0 {
		return -1
	}
	remaining := target * p.totalWeight
	for i, e := range p.items {
		if remaining < e.weight {
			return i
		}
		remaining -= e.weight
	}
	return len(p.items) - 1
}
