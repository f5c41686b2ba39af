package lower_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tensorcomp/lowerer/internal/format"
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/lower"
	"github.com/tensorcomp/lowerer/internal/notation"
)

func zeroLit() notation.Expr { return &notation.Literal{Typ: ir.Float64, Val: float64(0)} }

func dimVar(name string) ir.Expr { return &ir.Var{Name: name, Typ: ir.Int64} }

func arrVar(name string) *ir.Var { return &ir.Var{Name: name, Typ: ir.Int64, IsPtr: true} }

func access(tv *notation.TensorVar, vars ...*notation.IndexVar) notation.Access {
	return notation.Access{Tensor: tv, Vars: vars}
}

func acc(tv *notation.TensorVar, vars ...*notation.IndexVar) notation.Expr {
	return &notation.AccessExpr{Access: access(tv, vars...)}
}

func denseVec(name string, dim ir.Expr) *notation.TensorVar {
	return &notation.TensorVar{
		Name: name, Order: 1,
		Modes:     []notation.ModeSpec{{Format: format.Dense{Dim: dim}}},
		FillValue: zeroLit(),
	}
}

func compressedVec(name string) *notation.TensorVar {
	return &notation.TensorVar{
		Name: name, Order: 1,
		Modes: []notation.ModeSpec{{Format: format.Compressed{
			Pos: arrVar(name + "1_pos"), Idx: arrVar(name + "1_idx"), Unique: true,
		}}},
		FillValue: zeroLit(),
	}
}

// TestSpMV exercises a CSR-times-dense-vector reduction: the i loop is
// a plain dense dimension loop, the k loop is the "Position (single)"
// shape since only A's inner mode is mergeable — both bounded for
// loops, with no merge-lattice while loop anywhere in the lowered body.
func TestSpMV(t *testing.T) {
	i, k := notation.NewIndexVar("i"), notation.NewIndexVar("k")
	A := &notation.TensorVar{
		Name: "A", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("A2_pos"), Idx: arrVar("A2_idx"), Unique: true}},
		},
		FillValue: zeroLit(),
	}
	x := denseVec("x", dimVar("N"))
	y := denseVec("y", dimVar("M"))

	stmt := &notation.Forall{Var: i, Body: &notation.Forall{
		Var: k,
		Body: &notation.Assignment{
			Lhs: access(y, i),
			Op:  &notation.Operator{Name: "+"},
			Rhs: &notation.Mul{X: acc(A, i, k), Y: acc(x, k)},
		},
	}}

	fn, err := lower.Lower(stmt, "spmv", lower.Options{Compute: true})
	require.Nil(t, err)
	require.NotNil(t, fn)
	assert.Equal(t, "spmv", fn.Name)

	forLoops, whileLoops := 0, 0
	ir.Inspect(fn.Body, func(n any) bool {
		switch n.(type) {
		case *ir.For:
			forLoops++
		case *ir.While:
			whileLoops++
		}
		return true
	})
	assert.Equal(t, 2, forLoops, "i is a dense dimension loop, k is A's bounded position-single loop")
	assert.Equal(t, 0, whileLoops, "a single unique merger never needs the merge-lattice while loop")
}

// TestAnnihilatorReduction builds b = prod(i, a(i)) over a compressed
// vector with a multiplicative annihilator, and checks the lowered
// function contains a Break (the early-exit once the running product
// hits the annihilator value).
func TestAnnihilatorReduction(t *testing.T) {
	i := notation.NewIndexVar("i")
	a := compressedVec("a")
	a.FillValue = &notation.Literal{Typ: ir.Float64, Val: float64(1)}
	b := &notation.TensorVar{Name: "b", Order: 0, FillValue: &notation.Literal{Typ: ir.Float64, Val: float64(1)}}

	mul := &notation.Operator{
		Name: "*", HasAnnihilator: true,
		Annihilator: &ir.Literal{Typ: ir.Float64, Val: float64(0)},
	}
	stmt := &notation.Forall{Var: i, Body: &notation.Assignment{
		Lhs: notation.Access{Tensor: b},
		Op:  mul,
		Rhs: acc(a, i),
	}}

	fn, err := lower.Lower(stmt, "annihilator", lower.Options{Compute: true})
	require.Nil(t, err)

	found := false
	ir.Inspect(fn.Body, func(n any) bool {
		if _, ok := n.(*ir.Break); ok {
			found = true
		}
		return true
	})
	assert.True(t, found, "annihilator reduction should lower to an early-exit break")
}

// TestElementwiseAddSparseResult builds c(i) = a(i) + b(i) over three
// compressed vectors (the union-lattice case), and checks the result
// tensor's position variable is incremented exactly once per written
// value rather than left unbound (the append-position-counter fix).
func TestElementwiseAddSparseResult(t *testing.T) {
	i := notation.NewIndexVar("i")
	a, b, c := compressedVec("a"), compressedVec("b"), compressedVec("c")

	stmt := &notation.Assemble{Stmt: &notation.Forall{Var: i, Body: &notation.Assignment{
		Lhs: access(c, i),
		Rhs: &notation.Add{X: acc(a, i), Y: acc(b, i)},
	}}}

	fn, err := lower.Lower(stmt, "add", lower.Options{Assemble: true, Compute: true})
	require.Nil(t, err)
	require.NotNil(t, fn)

	assigns := 0
	ir.Inspect(fn.Body, func(n any) bool {
		if asn, ok := n.(*ir.Assign); ok {
			if add, ok := asn.Rhs.(*ir.Add); ok {
				if lit, ok := add.Y.(*ir.Literal); ok && lit.Val == int64(1) {
					assigns++
				}
			}
		}
		return true
	})
	assert.Greater(t, assigns, 0, "expected at least one position-counter increment (var = var + 1) in the lowered body")
}

// TestSpMSpV is spmv with x itself stored compressed: A's row segment
// and x's single compressed level must now intersect before a value
// exists to multiply, forcing k into a two-operand Intersection
// lattice (the "General merge" shape) instead of the single-merger
// bounded for loop TestSpMV exercises.
func TestSpMSpV(t *testing.T) {
	i, k := notation.NewIndexVar("i"), notation.NewIndexVar("k")
	A := &notation.TensorVar{
		Name: "A", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("A2_pos"), Idx: arrVar("A2_idx"), Unique: true}},
		},
		FillValue: zeroLit(),
	}
	x := compressedVec("x")
	y := denseVec("y", dimVar("M"))

	stmt := &notation.Forall{Var: i, Body: &notation.Forall{
		Var: k,
		Body: &notation.Assignment{
			Lhs: access(y, i),
			Op:  &notation.Operator{Name: "+"},
			Rhs: &notation.Mul{X: acc(A, i, k), Y: acc(x, k)},
		},
	}}

	fn, err := lower.Lower(stmt, "spmspv", lower.Options{Compute: true})
	require.Nil(t, err)
	require.NotNil(t, fn)

	forLoops, whileLoops := 0, 0
	ir.Inspect(fn.Body, func(n any) bool {
		switch n.(type) {
		case *ir.For:
			forLoops++
		case *ir.While:
			whileLoops++
		}
		return true
	})
	assert.Equal(t, 1, forLoops, "i is still a dense dimension loop")
	assert.Equal(t, 1, whileLoops, "A and x co-iterating at k needs the merge-lattice while loop")
}

// TestWorkspaceMatMul builds c(i,j) = sum(k, a(i,k)*b(k,j)) through a
// dense row workspace w(j): the producer reads two operands (a and b),
// so the Where's dense-acceleratable condition ("one RHS access") does
// not hold and the lowered body takes the plain path — a zero-init
// loop over w followed by the ordinary consumer forall, with w itself
// backed by a paired Allocate/Free rather than a bit-guard index list.
func TestWorkspaceMatMul(t *testing.T) {
	i, j, k := notation.NewIndexVar("i"), notation.NewIndexVar("j"), notation.NewIndexVar("k")
	a := &notation.TensorVar{
		Name: "a", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("a2_pos"), Idx: arrVar("a2_idx"), Unique: true}},
		},
		FillValue: zeroLit(),
	}
	b := &notation.TensorVar{
		Name: "b", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("K")}},
			{Format: format.Compressed{Pos: arrVar("b2_pos"), Idx: arrVar("b2_idx"), Unique: true}},
		},
		FillValue: zeroLit(),
	}
	w := denseVec("w", dimVar("N"))
	c := &notation.TensorVar{
		Name: "c", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("c2_pos"), Idx: arrVar("c2_idx"), Unique: true}},
		},
		FillValue: zeroLit(),
	}

	producer := &notation.Forall{Var: k, Body: &notation.Forall{
		Var: j,
		Body: &notation.Assignment{
			Lhs: access(w, j),
			Op:  &notation.Operator{Name: "+"},
			Rhs: &notation.Mul{X: acc(a, i, k), Y: acc(b, k, j)},
		},
	}}
	consumer := &notation.Forall{Var: j, Body: &notation.Assignment{
		Lhs: access(c, i, j),
		Rhs: acc(w, j),
	}}

	stmt := &notation.Assemble{Stmt: &notation.Forall{
		Var:  i,
		Body: &notation.Where{Producer: producer, Consumer: consumer, Temp: w},
	}}

	fn, err := lower.Lower(stmt, "workspace", lower.Options{Assemble: true, Compute: true})
	require.Nil(t, err)
	require.NotNil(t, fn)

	allocs, frees := 0, 0
	ir.Inspect(fn.Body, func(n any) bool {
		switch a := n.(type) {
		case *ir.Allocate:
			// A grow-in-place realloc resizes an existing buffer.
			if !a.IsRealloc {
				allocs++
			}
		case *ir.Free:
			frees++
		}
		return true
	})
	assert.Greater(t, allocs, 0, "w's workspace buffer should be allocated")
	assert.Equal(t, allocs, frees, "every allocated workspace buffer should be freed")
}

// TestWindowedSpMV restricts spmv's k axis to Window{Lo:2, Hi:50,
// Stride:2}: since A's compressed mode is still the only merger, k
// stays a bounded for loop, but its starting position must be found
// by binary search rather than the segment's raw lower bound, and its
// body must guard every loaded coordinate against the window's upper
// bound and stride.
func TestWindowedSpMV(t *testing.T) {
	i, k := notation.NewIndexVar("i"), notation.NewIndexVar("k")
	A := &notation.TensorVar{
		Name: "A", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("A2_pos"), Idx: arrVar("A2_idx"), Unique: true}},
		},
		FillValue: zeroLit(),
	}
	x := denseVec("x", dimVar("N"))
	y := denseVec("y", dimVar("M"))

	window := &notation.Window{Lo: 2, Hi: 50, Stride: 2}
	aAccess := notation.Access{Tensor: A, Vars: []*notation.IndexVar{i, k}, Windows: []*notation.Window{nil, window}}
	xAccess := notation.Access{Tensor: x, Vars: []*notation.IndexVar{k}, Windows: []*notation.Window{window}}

	stmt := &notation.Forall{Var: i, Body: &notation.Forall{
		Var: k,
		Body: &notation.Assignment{
			Lhs: access(y, i),
			Op:  &notation.Operator{Name: "+"},
			Rhs: &notation.Mul{
				X: &notation.AccessExpr{Access: aAccess},
				Y: &notation.AccessExpr{Access: xAccess},
			},
		},
	}}

	fn, err := lower.Lower(stmt, "windowed", lower.Options{Compute: true})
	require.Nil(t, err)
	require.NotNil(t, fn)

	forLoops, whileLoops, breaks, continues := 0, 0, 0, 0
	ir.Inspect(fn.Body, func(n any) bool {
		switch n.(type) {
		case *ir.For:
			forLoops++
		case *ir.While:
			whileLoops++
		case *ir.Break:
			breaks++
		case *ir.Continue:
			continues++
		}
		return true
	})
	assert.Equal(t, 2, forLoops, "i is dense, k stays a single-merger bounded for loop even though windowed")
	assert.Equal(t, 1, whileLoops, "k's windowed starting position is found by one binary search")
	assert.Greater(t, breaks, 0, "the loop must break once a loaded coordinate steps past the window's upper bound")
	assert.Greater(t, continues, 0, "the loop must skip loaded coordinates that don't land on the window's stride")
}

// TestRunLengthReduction builds s = sum(i, a(i)) over a run-length-
// encoded vector: a's single mode declares IsMultiPosition, so the
// lowered body must collapse each stored run into one
// runLength*fillValue update rather than emitting any inner loop that
// revisits the run one coordinate at a time.
func TestRunLengthReduction(t *testing.T) {
	i := notation.NewIndexVar("i")
	a := &notation.TensorVar{
		Name: "a", Order: 1,
		Modes: []notation.ModeSpec{{Format: format.RunLength{
			Compressed: format.Compressed{Pos: arrVar("a1_pos"), Idx: arrVar("a1_idx"), Unique: true},
			Runs:       arrVar("a1_runs"),
		}}},
		FillValue: zeroLit(),
	}
	s := &notation.TensorVar{Name: "s", Order: 0, FillValue: zeroLit()}

	stmt := &notation.Forall{Var: i, Body: &notation.Assignment{
		Lhs: notation.Access{Tensor: s},
		Op:  &notation.Operator{Name: "+"},
		Rhs: acc(a, i),
	}}

	fn, err := lower.Lower(stmt, "rle_reduction", lower.Options{Compute: true})
	require.Nil(t, err)
	require.NotNil(t, fn)

	forLoops, whileLoops := 0, 0
	ir.Inspect(fn.Body, func(n any) bool {
		switch n.(type) {
		case *ir.For:
			forLoops++
		case *ir.While:
			whileLoops++
		}
		return true
	})
	assert.Equal(t, 1, forLoops, "a single outer loop over a's stored runs, no inner per-coordinate loop")
	assert.Equal(t, 0, whileLoops, "a pure reduction over one run-length-encoded operand needs no merge-lattice while loop")
}

// TestUnsupportedAttributeQuery checks that populating Assemble.Queries
// returns a structured Unsupported error rather than lowering
// incorrectly or panicking across the public API.
func TestUnsupportedAttributeQuery(t *testing.T) {
	i := notation.NewIndexVar("i")
	a := compressedVec("a")
	stmt := &notation.Assemble{
		Stmt:    &notation.Forall{Var: i, Body: &notation.Assignment{Lhs: access(a, i), Rhs: acc(a, i)}},
		Queries: []notation.Access{access(a, i)},
	}

	fn, err := lower.Lower(stmt, "query", lower.Options{Assemble: true})
	require.Nil(t, fn)
	require.NotNil(t, err)
	assert.Equal(t, lower.Unsupported, err.Kind)
}
