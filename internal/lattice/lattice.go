// Package lattice builds the merge lattice for one loop level: given
// the set of iterators participating in a statement below a forall's
// IndexVar, it yields the ordered disjunction of co-iteration cases
// needed to cover the expression's semiring (spec §3, "MergeLattice").
package lattice

import (
	"math/bits"
	"slices"

	"github.com/samber/lo"

	"github.com/tensorcomp/lowerer/internal/iterator"
)

// MergePoint is one case of a merge lattice: the iterators active in
// this case, the subset whose coordinates jointly resolve the merged
// coordinate (Mergers), the subset whose exhaustion bounds the while
// loop (Rangers), random-access operands (Locators), and write
// iterators (Results).
type MergePoint struct {
	Iterators []*iterator.Iterator
	Mergers   []*iterator.Iterator
	Rangers   []*iterator.Iterator
	Locators  []*iterator.Iterator
	Results   []*iterator.Iterator
}

// MergeLattice is an ordered sequence of MergePoints, most-constrained
// first, whose disjunction covers the full case set a statement needs
// (spec §3).
type MergeLattice struct {
	Points []MergePoint
	// Exact is true when the points' disjunction exactly covers every
	// combination the expression can produce a nonzero for (no default/
	// catch-all arm is needed in the emitted case tree, spec §4.3 item 6).
	Exact bool
}

// split partitions operand iterators into locate-capable/full
// ("locators", merged via random access rather than co-iteration) and
// everything else ("mergeable": pos- or coord-iterating operands that
// must be merged to resolve a coordinate).
func split(operands []*iterator.Iterator) (mergeable, locators []*iterator.Iterator) {
	mergeable = lo.Filter(operands, func(it *iterator.Iterator, _ int) bool {
		return !(it.HasLocate() && it.IsFull())
	})
	locators = lo.Filter(operands, func(it *iterator.Iterator, _ int) bool {
		return it.HasLocate() && it.IsFull()
	})
	return
}

// Intersection builds the single-point lattice for a multiplicative
// expression (every sparse operand must co-occur, e.g. A(i,j)*x(j),
// spec §8 scenarios 1-2): the one point's mergers/rangers are every
// non-full operand, and every full/dense operand is a locator.
func Intersection(operands []*iterator.Iterator, results []*iterator.Iterator) *MergeLattice {
	mergers, locators := split(operands)
	return &MergeLattice{
		Points: []MergePoint{{
			Iterators: operands,
			Mergers:   mergers,
			Rangers:   mergers,
			Locators:  locators,
			Results:   results,
		}},
		Exact: true,
	}
}

// Union builds the 2^n-1-point lattice for an additive expression
// (any subset of the sparse operands may be present, e.g.
// z(i)=a(i)+b(i), spec §8 scenario 3): one point per non-empty subset
// of the mergeable operands, ordered by subset size descending (most-
// constrained first) and then by subset bitmask ascending for a
// deterministic tie-break.
func Union(operands []*iterator.Iterator, results []*iterator.Iterator) *MergeLattice {
	mergeable, locators := split(operands)
	n := len(mergeable)
	if n == 0 {
		return Intersection(operands, results)
	}
	masks := make([]int, 0, (1<<n)-1)
	for m := 1; m < (1 << n); m++ {
		masks = append(masks, m)
	}
	slices.SortStableFunc(masks, func(a, b int) int {
		pa, pb := bits.OnesCount(uint(a)), bits.OnesCount(uint(b))
		if pa != pb {
			return pb - pa // larger subsets first
		}
		return a - b
	})

	points := lo.Map(masks, func(mask int, _ int) MergePoint {
		subset := lo.Filter(mergeable, func(_ *iterator.Iterator, i int) bool {
			return mask&(1<<i) != 0
		})
		pointIterators := append(append([]*iterator.Iterator{}, subset...), locators...)
		return MergePoint{
			Iterators: pointIterators,
			Mergers:   subset,
			Rangers:   subset,
			Locators:  locators,
			Results:   results,
		}
	})

	return &MergeLattice{Points: points, Exact: true}
}

// LoopLattice reduces lat to the case splits a pure co-iteration loop
// actually needs: only the first, most-constrained point determines
// the rangers bounding the while loop, so the loop lattice keeps just
// that point, for every lattice regardless of operand uniqueness or
// ordering, while the full lat.Points still drives the case tree body
// (spec §4.2, "loop lattice... omits case-splits unnecessary for pure
// iteration").
func (lat *MergeLattice) LoopLattice() *MergeLattice {
	if len(lat.Points) == 0 {
		return lat
	}
	return &MergeLattice{Points: lat.Points[:1], Exact: lat.Exact}
}

// AllMergers returns every iterator appearing as a merger in any point,
// de-duplicated, in first-appearance order.
func (lat *MergeLattice) AllMergers() []*iterator.Iterator {
	var out []*iterator.Iterator
	seen := map[*iterator.Iterator]bool{}
	for _, p := range lat.Points {
		for _, it := range p.Mergers {
			if !seen[it] {
				seen[it] = true
				out = append(out, it)
			}
		}
	}
	return out
}
