package main

import (
	"fmt"

	"github.com/tensorcomp/lowerer/internal/format"
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// scenario pairs a named index-notation program with the lowering
// options it should run under. Each mirrors one of the worked
// examples used to validate the lowering core's behavior.
type scenario struct {
	name string
	desc string
	stmt notation.Stmt
	opts func() (assemble, compute bool)
}

var scenarios = map[string]scenario{
	"spmv":        {"spmv", "y(i) = sum(k, A(i,k) * x(k)), A CSR, x and y dense", spmv(), computeOnly},
	"spmspv":      {"spmspv", "y(i) = sum(k, A(i,k) * x(k)), A CSR, x compressed, y dense", spmspv(), computeOnly},
	"add":         {"add", "c(i) = a(i) + b(i), a, b, and c all compressed", elementwiseAdd(), computeAndAssemble},
	"workspace":   {"workspace", "c(i,j) = a(i,k) * b(k,j) through a dense row workspace", workspaceMatMul(), computeAndAssemble},
	"windowed":    {"windowed", "y(i) = sum(k, A(i,k) * x(k)) over a windowed, strided slice of k", windowedSpMV(), computeOnly},
	"annihilator": {"annihilator", "b = prod(i, a(i)), stops early once the running product hits 0", annihilatorReduction(), computeOnly},
	"accelerated": {"accelerated", "z(i) = a(i) through a dense workspace walked via its bit-guard index list", acceleratedCopy(), computeAndAssemble},
	"rle":         {"rle", "s = sum(i, a(i)), a stored as a run-length-encoded vector", rleReduction(), computeOnly},
}

func computeOnly() (assemble, compute bool)    { return false, true }
func computeAndAssemble() (assemble, compute bool) { return true, true }

func zero() notation.Expr { return &notation.Literal{Typ: ir.Float64, Val: float64(0)} }

func dimVar(name string) ir.Expr { return &ir.Var{Name: name, Typ: ir.Int64} }

func arrVar(name string) *ir.Var { return &ir.Var{Name: name, Typ: ir.Int64, IsPtr: true} }

func access(tv *notation.TensorVar, vars ...*notation.IndexVar) notation.Access {
	return notation.Access{Tensor: tv, Vars: vars}
}

func acc(tv *notation.TensorVar, vars ...*notation.IndexVar) notation.Expr {
	return &notation.AccessExpr{Access: access(tv, vars...)}
}

func denseVector(name string, dim ir.Expr) *notation.TensorVar {
	return &notation.TensorVar{
		Name: name, Order: 1,
		Modes:     []notation.ModeSpec{{Format: format.Dense{Dim: dim}}},
		FillValue: zero(),
	}
}

// spmv builds y(i) = sum(k, A(i,k)*x(k)) over a CSR matrix and dense
// vectors, the "Position (single)" loop shape at the k level (spec §4.2
// item 5): A's inner mode is the only mergeable operand, x is located
// in O(1) at whatever coordinate the compressed level visits, and y at
// the row i.
func spmv() notation.Stmt {
	i, k := notation.NewIndexVar("i"), notation.NewIndexVar("k")
	A := &notation.TensorVar{
		Name: "A", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("A2_pos"), Idx: arrVar("A2_idx"), Unique: true}},
		},
		FillValue: zero(),
	}
	x := denseVector("x", dimVar("N"))
	y := denseVector("y", dimVar("M"))

	return &notation.Forall{Var: i, Body: &notation.Forall{
		Var: k,
		Body: &notation.Assignment{
			Lhs: access(y, i),
			Op:  &notation.Operator{Name: "+"},
			Rhs: &notation.Mul{X: acc(A, i, k), Y: acc(x, k)},
		},
	}}
}

// spmspv is spmv with x itself stored compressed, forcing k into the
// "General merge" shape (spec §4.2 item 6): both A's row segment and
// x's single compressed level must intersect before a value exists to
// multiply, so the lowerer builds a two-operand Intersection lattice.
func spmspv() notation.Stmt {
	i, k := notation.NewIndexVar("i"), notation.NewIndexVar("k")
	A := &notation.TensorVar{
		Name: "A", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("A2_pos"), Idx: arrVar("A2_idx"), Unique: true}},
		},
		FillValue: zero(),
	}
	x := &notation.TensorVar{
		Name: "x", Order: 1,
		Modes:     []notation.ModeSpec{{Format: format.Compressed{Pos: arrVar("x1_pos"), Idx: arrVar("x1_idx"), Unique: true}}},
		FillValue: zero(),
	}
	y := denseVector("y", dimVar("M"))

	return &notation.Forall{Var: i, Body: &notation.Forall{
		Var: k,
		Body: &notation.Assignment{
			Lhs: access(y, i),
			Op:  &notation.Operator{Name: "+"},
			Rhs: &notation.Mul{X: acc(A, i, k), Y: acc(x, k)},
		},
	}}
}

// elementwiseAdd builds c(i) = a(i) + b(i) over two compressed vectors
// and a compressed result, the Union-lattice case spec §8 scenario 3
// names: three lattice points (both present, only a, only b), each
// substituting the other operand's fill value when it is absent from
// that point's sub-case, and each appending a coordinate to c's result
// mode since c is itself sparse.
func elementwiseAdd() notation.Stmt {
	i := notation.NewIndexVar("i")
	a := &notation.TensorVar{
		Name: "a", Order: 1,
		Modes:     []notation.ModeSpec{{Format: format.Compressed{Pos: arrVar("a1_pos"), Idx: arrVar("a1_idx"), Unique: true}}},
		FillValue: zero(),
	}
	b := &notation.TensorVar{
		Name: "b", Order: 1,
		Modes:     []notation.ModeSpec{{Format: format.Compressed{Pos: arrVar("b1_pos"), Idx: arrVar("b1_idx"), Unique: true}}},
		FillValue: zero(),
	}
	c := &notation.TensorVar{
		Name: "c", Order: 1,
		Modes:     []notation.ModeSpec{{Format: format.Compressed{Pos: arrVar("c1_pos"), Idx: arrVar("c1_idx"), Unique: true}}},
		FillValue: zero(),
	}

	return &notation.Assemble{Stmt: &notation.Forall{Var: i, Body: &notation.Assignment{
		Lhs: access(c, i),
		Rhs: &notation.Add{X: acc(a, i), Y: acc(b, i)},
	}}}
}

// workspaceMatMul builds c(i,j) = sum(k, a(i,k)*b(k,j)) by way of a
// dense row workspace w(j): the producer forall accumulates one row of
// the product into w, the consumer forall walks every entry of w and
// appends it to the CSR result c (spec §4.5, §8 scenario 4). The
// producer reads two operands, so w gets no bit-guard index list.
func workspaceMatMul() notation.Stmt {
	i, j, k := notation.NewIndexVar("i"), notation.NewIndexVar("j"), notation.NewIndexVar("k")
	a := &notation.TensorVar{
		Name: "a", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("a2_pos"), Idx: arrVar("a2_idx"), Unique: true}},
		},
		FillValue: zero(),
	}
	b := &notation.TensorVar{
		Name: "b", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("K")}},
			{Format: format.Compressed{Pos: arrVar("b2_pos"), Idx: arrVar("b2_idx"), Unique: true}},
		},
		FillValue: zero(),
	}
	w := denseVector("w", dimVar("N"))
	c := &notation.TensorVar{
		Name: "c", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("c2_pos"), Idx: arrVar("c2_idx"), Unique: true}},
		},
		FillValue: zero(),
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

	return &notation.Assemble{Stmt: &notation.Forall{
		Var:  i,
		Body: &notation.Where{Producer: producer, Consumer: consumer, Temp: w},
	}}
}

// windowedSpMV restricts spmv's k axis to a [Lo, Hi) slice stepped by
// Stride, exercising the windowed/strided guard code path (spec §4.2
// item 5, §8 scenario 5): a binary search starts the loop at the first
// stored coordinate at or past Lo, coordinates off the stride are
// skipped with a continue, and the loop breaks once it reaches Hi.
func windowedSpMV() notation.Stmt {
	i, k := notation.NewIndexVar("i"), notation.NewIndexVar("k")
	A := &notation.TensorVar{
		Name: "A", Order: 2,
		Modes: []notation.ModeSpec{
			{Format: format.Dense{Dim: dimVar("M")}},
			{Format: format.Compressed{Pos: arrVar("A2_pos"), Idx: arrVar("A2_idx"), Unique: true}},
		},
		FillValue: zero(),
	}
	x := denseVector("x", dimVar("N"))
	y := denseVector("y", dimVar("M"))

	window := &notation.Window{Lo: 2, Hi: 50, Stride: 2}
	aAccess := notation.Access{Tensor: A, Vars: []*notation.IndexVar{i, k}, Windows: []*notation.Window{nil, window}}
	xAccess := notation.Access{Tensor: x, Vars: []*notation.IndexVar{k}, Windows: []*notation.Window{window}}

	return &notation.Forall{Var: i, Body: &notation.Forall{
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
}

// annihilatorReduction builds b = prod(i, a(i)), a multiplicative
// reduction over a single compressed vector whose operator declares 0
// as its annihilator (spec §8 scenario 6): once the running product
// hits exactly 0, lowerScalarAssignment's early-exit check (spec §4.3
// scenario 6) breaks out of the i loop rather than multiplying by
// every remaining stored entry.
func annihilatorReduction() notation.Stmt {
	i := notation.NewIndexVar("i")
	a := &notation.TensorVar{
		Name: "a", Order: 1,
		Modes:     []notation.ModeSpec{{Format: format.Compressed{Pos: arrVar("a1_pos"), Idx: arrVar("a1_idx"), Unique: true}}},
		FillValue: &notation.Literal{Typ: ir.Float64, Val: float64(1)},
	}
	mul := notation.Operator{
		Name: "*", HasAnnihilator: true,
		Annihilator: &ir.Literal{Typ: ir.Float64, Val: float64(0)},
	}

	return &notation.Forall{Var: i, Body: &notation.Assignment{
		Lhs: notation.Access{Tensor: scalarB()},
		Op:  &mul,
		Rhs: acc(a, i),
	}}
}

var bTensor *notation.TensorVar

func scalarB() *notation.TensorVar {
	if bTensor == nil {
		bTensor = &notation.TensorVar{Name: "b", Order: 0, FillValue: &notation.Literal{Typ: ir.Float64, Val: float64(1)}}
	}
	return bTensor
}

// acceleratedCopy builds z(i) = a(i) by way of a dense vector
// workspace w(i): the producer writes w directly from a single RHS
// access, so lowerWhere's dense-acceleratable condition holds and the
// consumer walks only the bit-guard's recorded coordinates instead of
// scanning all of w (spec §4.5 "dense-acceleratable dense vector
// temporary (vector, one RHS access, sparse result...)").
func acceleratedCopy() notation.Stmt {
	i := notation.NewIndexVar("i")
	a := &notation.TensorVar{
		Name: "a", Order: 1,
		Modes:     []notation.ModeSpec{{Format: format.Compressed{Pos: arrVar("a1_pos"), Idx: arrVar("a1_idx"), Unique: true}}},
		FillValue: zero(),
	}
	w := denseVector("w", dimVar("N"))
	z := &notation.TensorVar{
		Name: "z", Order: 1,
		Modes:     []notation.ModeSpec{{Format: format.Compressed{Pos: arrVar("z1_pos"), Idx: arrVar("z1_idx"), Unique: true}}},
		FillValue: zero(),
	}

	producer := &notation.Forall{Var: i, Body: &notation.Assignment{Lhs: access(w, i), Rhs: acc(a, i)}}
	consumer := &notation.Forall{Var: i, Body: &notation.Assignment{Lhs: access(z, i), Rhs: acc(w, i)}}
	return &notation.Assemble{Stmt: &notation.Where{Producer: producer, Consumer: consumer, Temp: w}}
}

// rleReduction builds s = sum(i, a(i)) over a run-length-encoded
// vector (spec §4.3 "Multi-position iterators"): a's single level
// declares IsMultiPosition, so the lowerer collapses each stored run
// into one `s += runLength * fillValue` update instead of visiting
// every repeated coordinate the run covers as its own position.
func rleReduction() notation.Stmt {
	i := notation.NewIndexVar("i")
	a := &notation.TensorVar{
		Name: "a", Order: 1,
		Modes: []notation.ModeSpec{{Format: format.RunLength{
			Compressed: format.Compressed{Pos: arrVar("a1_pos"), Idx: arrVar("a1_idx"), Unique: true},
			Runs:       arrVar("a1_runs"),
		}}},
		FillValue: zero(),
	}

	sum := &notation.TensorVar{Name: "s", Order: 0, FillValue: zero()}
	return &notation.Forall{Var: i, Body: &notation.Assignment{
		Lhs: notation.Access{Tensor: sum},
		Op:  &notation.Operator{Name: "+"},
		Rhs: acc(a, i),
	}}
}

func sortedScenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	for i := 1; i < len(names); i++ {
		for j := i; j > 0 && names[j-1] > names[j]; j-- {
			names[j-1], names[j] = names[j], names[j-1]
		}
	}
	return names
}

func scenarioHelp() string {
	s := "available scenarios:\n"
	for _, n := range sortedScenarioNames() {
		s += fmt.Sprintf("  %-12s %s\n", n, scenarios[n].desc)
	}
	return s
}
