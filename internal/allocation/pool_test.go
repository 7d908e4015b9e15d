package allocation

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func TestShuffledCyclicPoolEmpty(t *testing.T) {
	p := NewShuffledCyclicPool[int](nil, seeded(1))

	_, ok := p.Pop()
	require.False(t, ok)
	require.True(t, p.Exhausted())
	require.Zero(t, p.Len())
}

func TestShuffledCyclicPoolYieldsEveryItemOncePerCycle(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	p := NewShuffledCyclicPool(items, seeded(7))

	for cycle := 0; cycle < 4; cycle++ {
		got := make([]int, 0, len(items))
		for range items {
			v, ok := p.Pop()
			require.True(t, ok)
			got = append(got, v)
		}
		slices.Sort(got)
		require.Equal(t, items, got, "cycle %d", cycle)
		require.True(t, p.Exhausted())
	}
}

func TestShuffledCyclicPoolDoesNotAliasInput(t *testing.T) {
	items := []int{1, 2, 3}
	p := NewShuffledCyclicPool(items, seeded(3))
	items[0] = 99

	seen := map[int]bool{}
	for range 3 {
		v, _ := p.Pop()
		seen[v] = true
	}
	require.False(t, seen[99])
}

func TestShuffledCyclicPoolMergeWaitsForNextCycle(t *testing.T) {
	p := NewShuffledCyclicPool([]string{"a", "b"}, seeded(11))

	first, _ := p.Pop()
	p.Merge("c")
	second, _ := p.Pop()
	require.ElementsMatch(t, []string{"a", "b"}, []string{first, second})
	require.Equal(t, 3, p.Len())

	var next []string
	for range 3 {
		v, ok := p.Pop()
		require.True(t, ok)
		next = append(next, v)
	}
	require.ElementsMatch(t, []string{"a", "b", "c"}, next)
}

func TestShuffledCyclicPoolNilRNG(t *testing.T) {
	p := NewShuffledCyclicPool([]int{4, 5, 6}, nil)

	var got []int
	for range 6 {
		v, ok := p.Pop()
		require.True(t, ok)
		got = append(got, v)
	}
	require.ElementsMatch(t, []int{4, 4, 5, 5, 6, 6}, got)
}
