package allocation

import (
	"testing"

	"github.com/stemsi/olympiad-backend/internal/model"
	"github.com/stretchr/testify/require"
)

func ids(from, n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(from + i)
	}
	return out
}

func usageOf(pool []int64, plans ...[]model.TestCaseAssignment) map[int64]int {
	usage := make(map[int64]int, len(pool))
	for _, id := range pool {
		usage[id] = 0
	}
	for _, plan := range plans {
		for _, a := range plan {
			usage[a.TestCaseID]++
		}
	}
	return usage
}

func spread(usage map[int64]int) int {
	first := true
	var lo, hi int
	for _, n := range usage {
		if first {
			lo, hi, first = n, n, false
			continue
		}
		lo, hi = min(lo, n), max(hi, n)
	}
	return hi - lo
}

func testCaseIDs(plan []model.TestCaseAssignment) []int64 {
	out := make([]int64, len(plan))
	for i, a := range plan {
		out[i] = a.TestCaseID
	}
	return out
}

func TestPlanIncrementalBalancesFromScratch(t *testing.T) {
	for k := 1; k <= 6; k++ {
		for p := 1; p <= 20; p++ {
			pool := ids(100, k)
			enrollments := ids(1, p)

			plan := PlanIncremental(pool, nil, enrollments, seeded(uint64(k*31+p)))

			require.Len(t, plan, p)
			got := make([]int64, 0, p)
			for _, a := range plan {
				require.Contains(t, pool, a.TestCaseID)
				got = append(got, a.EnrollmentID)
			}
			require.ElementsMatch(t, enrollments, got)
			require.LessOrEqual(t, spread(usageOf(pool, plan)), 1, "k=%d p=%d", k, p)
		}
	}
}

func TestPlanIncrementalNoOps(t *testing.T) {
	require.Empty(t, PlanIncremental(nil, nil, ids(1, 3), seeded(1)))
	require.Empty(t, PlanIncremental(ids(100, 2), []int64{100, 101}, nil, seeded(1)))
}

func TestPlanIncrementalPrefersLeastUsed(t *testing.T) {
	// Algo1 scenario: 2 test cases, 5 participants, then one more.
	pool := []int64{100, 101}
	first := PlanIncremental(pool, nil, ids(1, 5), seeded(42))
	usage := usageOf(pool, first)
	require.ElementsMatch(t, []int{2, 3}, []int{usage[100], usage[101]})

	leastUsed := int64(100)
	if usage[101] < usage[100] {
		leastUsed = 101
	}

	second := PlanIncremental(pool, testCaseIDs(first), []int64{6}, seeded(43))
	require.Len(t, second, 1)
	require.Equal(t, int64(6), second[0].EnrollmentID)
	require.Equal(t, leastUsed, second[0].TestCaseID)

	final := usageOf(pool, first, second)
	require.Equal(t, 3, final[100])
	require.Equal(t, 3, final[101])
}

func TestPlanIncrementalKeepsFairnessAcrossWaves(t *testing.T) {
	pool := ids(100, 7)
	var assigned []int64
	var plans [][]model.TestCaseAssignment
	next := 1
	for wave, size := range []int{3, 1, 9, 4, 1, 1, 13} {
		plan := PlanIncremental(pool, assigned, ids(next, size), seeded(uint64(wave)))
		require.Len(t, plan, size)
		plans = append(plans, plan)
		assigned = append(assigned, testCaseIDs(plan)...)
		next += size

		require.LessOrEqual(t, spread(usageOf(pool, plans...)), 1, "wave %d", wave)
	}
}

func TestPlanIncrementalLevelsSkewedPoolFirst(t *testing.T) {
	// Test case 102 was added after 100 and 101 had been handed out.
	pool := []int64{100, 101, 102}
	assigned := []int64{100, 100, 101, 101}

	plan := PlanIncremental(pool, assigned, ids(1, 2), seeded(5))
	require.Equal(t, []int64{102, 102}, testCaseIDs(plan))

	plan = PlanIncremental(pool, assigned, ids(1, 5), seeded(5))
	usage := usageOf(pool, plan)
	require.Equal(t, 3, usage[102])
	final := map[int64]int{100: 2 + usage[100], 101: 2 + usage[101], 102: usage[102]}
	require.Equal(t, map[int64]int{100: 3, 101: 3, 102: 3}, final)
}

func TestPlanIncrementalIgnoresStaleAssignments(t *testing.T) {
	pool := []int64{100, 101}
	// 999 was deleted from the pool; it must not count toward usage nor be handed out.
	plan := PlanIncremental(pool, []int64{999, 999, 100}, ids(1, 1), seeded(9))
	require.Equal(t, []int64{101}, testCaseIDs(plan))
}

func TestPlanIncrementalOrderDependsOnRNG(t *testing.T) {
	pool := ids(100, 10)
	enrollments := ids(1, 10)

	a := PlanIncremental(pool, nil, enrollments, seeded(1))
	b := PlanIncremental(pool, nil, enrollments, seeded(2))
	require.NotEqual(t, a, b)

	again := PlanIncremental(pool, nil, enrollments, seeded(1))
	require.Equal(t, a, again)
}

func TestPlanRedistributionBalancesEveryEnrollment(t *testing.T) {
	for k := 1; k <= 5; k++ {
		for p := 1; p <= 17; p++ {
			pool := ids(100, k)
			enrollments := ids(1, p)

			plan := PlanRedistribution(pool, enrollments, seeded(uint64(k*97+p)))
			require.Len(t, plan, p)
			require.LessOrEqual(t, spread(usageOf(pool, plan)), 1, "k=%d p=%d", k, p)
		}
	}
}

func TestPlanRedistributionCollapsesDuplicatePoolIDs(t *testing.T) {
	plan := PlanRedistribution([]int64{100, 100, 101}, ids(1, 4), seeded(3))
	usage := usageOf([]int64{100, 101}, plan)
	require.Equal(t, 2, usage[100])
	require.Equal(t, 2, usage[101])
}

func TestPlanRedistributionNoOps(t *testing.T) {
	require.Empty(t, PlanRedistribution(nil, ids(1, 2), seeded(1)))
	require.Empty(t, PlanRedistribution(ids(100, 2), nil, seeded(1)))
}

func TestPartition(t *testing.T) {
	fresh, used := Partition([]int64{1, 2, 3}, []int64{2, 2, 9})
	require.ElementsMatch(t, []int64{1, 3}, fresh.ToSlice())
	require.ElementsMatch(t, []int64{2}, used.ToSlice())
}
