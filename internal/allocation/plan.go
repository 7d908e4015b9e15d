package allocation

import (
	"math/rand/v2"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stemsi/olympiad-backend/internal/model"
)

// tier is a set of test cases sharing the same usage count.
type tier struct {
	count int
	ids   []int64
}

// PlanIncremental assigns one test case from pool to every enrollment in
// unassigned, leaving existing assignments untouched.
//
// assigned lists the test case id of every enrollment that already has one;
// ids no longer in pool are ignored. Test cases are consumed least-used
// first: the pool starts with the least-used tier and, each time a cycle is
// exhausted, the tier that has become level with it is merged in before the
// reshuffle. Once every tier is merged the whole pool keeps cycling.
// Enrollments are visited in random order.
func PlanIncremental(pool, assigned, unassigned []int64, rng *rand.Rand) []model.TestCaseAssignment {
	if len(pool) == 0 || len(unassigned) == 0 {
		return nil
	}

	tiers := usageTiers(pool, assigned)
	cp := NewShuffledCyclicPool(tiers[0].ids, rng)
	level := tiers[0].count
	nextTier := 1

	order := shuffled(unassigned, rng)
	plan := make([]model.TestCaseAssignment, 0, len(order))
	for _, enrollmentID := range order {
		if cp.Exhausted() {
			level++
			for nextTier < len(tiers) && tiers[nextTier].count <= level {
				cp.Merge(tiers[nextTier].ids...)
				nextTier++
			}
		}
		tc, _ := cp.Pop()
		plan = append(plan, model.TestCaseAssignment{EnrollmentID: enrollmentID, TestCaseID: tc})
	}
	return plan
}

// PlanRedistribution assigns the whole pool over every enrollment,
// disregarding previous assignments. The pool is reshuffled on every cycle.
func PlanRedistribution(pool, enrollments []int64, rng *rand.Rand) []model.TestCaseAssignment {
	if len(pool) == 0 || len(enrollments) == 0 {
		return nil
	}

	ids := mapset.NewThreadUnsafeSet(pool...).ToSlice()
	slices.Sort(ids)
	cp := NewShuffledCyclicPool(ids, rng)

	order := shuffled(enrollments, rng)
	plan := make([]model.TestCaseAssignment, 0, len(order))
	for _, enrollmentID := range order {
		tc, _ := cp.Pop()
		plan = append(plan, model.TestCaseAssignment{EnrollmentID: enrollmentID, TestCaseID: tc})
	}
	return plan
}

// Partition splits pool into test cases already referenced by an enrollment
// and fresh ones nobody holds yet.
func Partition(pool, assigned []int64) (fresh, used mapset.Set[int64]) {
	full := mapset.NewThreadUnsafeSet(pool...)
	used = mapset.NewThreadUnsafeSet(assigned...).Intersect(full)
	return full.Difference(used), used
}

// usageTiers groups the pool by how many enrollments hold each test case,
// least used first. Ids are sorted inside a tier so a seeded rng yields a
// reproducible plan.
func usageTiers(pool, assigned []int64) []tier {
	full := mapset.NewThreadUnsafeSet(pool...)
	usage := make(map[int64]int, full.Cardinality())
	for _, id := range full.ToSlice() {
		usage[id] = 0
	}
	for _, id := range assigned {
		if full.Contains(id) {
			usage[id]++
		}
	}

	byCount := make(map[int][]int64)
	for id, n := range usage {
		byCount[n] = append(byCount[n], id)
	}

	tiers := make([]tier, 0, len(byCount))
	for n, ids := range byCount {
		slices.Sort(ids)
		tiers = append(tiers, tier{count: n, ids: ids})
	}
	slices.SortFunc(tiers, func(a, b tier) int { return a.count - b.count })
	return tiers
}

func shuffled(ids []int64, rng *rand.Rand) []int64 {
	out := slices.Clone(ids)
	swap := func(i, j int) { out[i], out[j] = out[j], out[i] }
	if rng == nil {
		rand.Shuffle(len(out), swap)
	} else {
		rng.Shuffle(len(out), swap)
	}
	return out
}
