// Package allocation distributes exercise test cases over participant
// enrollments. It holds no persistence concerns; the allocator service feeds
// it ids read inside a transaction and writes back the returned plan.
package allocation

import "math/rand/v2"

// ShuffledCyclicPool hands out items in random order, one full cycle at a
// time. Once every item of the current cycle has been popped, the pool is
// reshuffled (together with any merged items) and a new cycle begins.
type ShuffledCyclicPool[T any] struct {
	items   []T
	pending []T
	next    int
	rng     *rand.Rand
}

// NewShuffledCyclicPool copies items into a new pool and shuffles them.
// A nil rng falls back to the runtime-seeded global source.
func NewShuffledCyclicPool[T any](items []T, rng *rand.Rand) *ShuffledCyclicPool[T] {
	p := &ShuffledCyclicPool[T]{
		items: append([]T(nil), items...),
		rng:   rng,
	}
	p.shuffle()
	return p
}

// Len returns the number of distinct slots in the pool, merged items included.
func (p *ShuffledCyclicPool[T]) Len() int {
	return len(p.items) + len(p.pending)
}

// Exhausted reports whether the current cycle has been fully consumed.
// The next Pop starts a new cycle.
func (p *ShuffledCyclicPool[T]) Exhausted() bool {
	return p.next >= len(p.items)
}

// Merge queues items that join the pool at the next reshuffle, so the
// current cycle is never disturbed.
func (p *ShuffledCyclicPool[T]) Merge(items ...T) {
	p.pending = append(p.pending, items...)
}

// Pop returns the next item, reshuffling first when the cycle is exhausted.
// It returns false only when the pool is empty.
func (p *ShuffledCyclicPool[T]) Pop() (T, bool) {
	if p.Exhausted() {
		if p.Len() == 0 {
			var zero T
			return zero, false
		}
		p.items = append(p.items, p.pending...)
		p.pending = nil
		p.next = 0
		p.shuffle()
	}

	item := p.items[p.next]
	p.next++
	return item, true
}

func (p *ShuffledCyclicPool[T]) shuffle() {
	swap := func(i, j int) { p.items[i], p.items[j] = p.items[j], p.items[i] }
	if p.rng == nil {
		rand.Shuffle(len(p.items), swap)
		return
	}
	p.rng.Shuffle(len(p.items), swap)
}
