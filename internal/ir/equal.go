package ir

import (
	"github.com/google/go-cmp/cmp"
)

// Equal reports whether a and b are the same program up to the names
// given to their declared variables — the §8 determinism invariant
// ("the same input produces IR equal up to variable renaming"). Two
// functions are Equal if, walking both trees in lockstep, every *Var
// encountered at corresponding positions has the same Type/IsPtr and
// every Literal the same Type/Val. Names are ignored outright: whether
// the renaming between the two trees is consistent (the same variable
// on one side always paired with the same variable on the other) is
// not checked.
func Equal(a, b *Function) bool {
	return cmp.Equal(a, b, cmp.Comparer(func(x, y *Var) bool {
		if x == nil || y == nil {
			return x == y
		}
		return x.Typ == y.Typ && x.IsPtr == y.IsPtr
	}), cmp.Comparer(func(x, y *Literal) bool {
		if x == nil || y == nil {
			return x == y
		}
		return x.Typ == y.Typ && x.Val == y.Val
	}))
}

// canonicalIndex assigns every distinct *Var pointer reachable from fn
// a position number in first-appearance order during a depth-first
// walk. It is exposed for tests that want to assert on a function's
// variable *count* (e.g. "exactly one append position variable")
// without caring about generated names.
func canonicalIndex(fn *Function) map[*Var]int {
	idx := map[*Var]int{}
	see := func(v *Var) {
		if v == nil {
			return
		}
		if _, ok := idx[v]; !ok {
			idx[v] = len(idx)
		}
	}
	for _, p := range fn.Results {
		see(p.Var)
	}
	for _, p := range fn.Arguments {
		see(p.Var)
	}
	visit := func(node any) bool {
		switch n := node.(type) {
		case *Var:
			see(n)
		case *VarDecl:
			see(n.Var)
		case *For:
			see(n.Var)
		case *Allocate:
			see(n.Var)
		case *Free:
			see(n.Var)
		case *Assign:
			see(n.Lhs)
		}
		return true
	}
	Inspect(fn.Body, visit)
	return idx
}

// VarCount returns the number of distinct declared/referenced
// variables in fn, per canonicalIndex.
func VarCount(fn *Function) int {
	return len(canonicalIndex(fn))
}
