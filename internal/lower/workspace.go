package lower

import (
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// Workspace is the IR handle set for one Where's temporary (spec
// §4.5, "Temporary/workspace manager"). Values backs a scalar or a
// dense vector; IndexList/IndexSize/BitGuard are only populated on the
// dense-acceleratable path, where a sparse-result consumer only needs
// to revisit the coordinates the producer actually touched rather
// than scanning the whole dense vector.
type Workspace struct {
	Values    *ir.Var
	Scalar    bool
	IndexList *ir.Var
	IndexSize *ir.Var
	BitGuard  *ir.Var
	// ThreadStride is non-nil when the temporary was sized for one
	// strip per worker under a CPUThread forall (spec §5, "Shared-
	// resource policy"); a worker's base offset into the shared buffer
	// is taco_get_thread_num() * ThreadStride.
	ThreadStride ir.Expr
}

// allocateWorkspace emits the temporary's header Allocate (paired with
// a footer Free) and, when accelerate is set, its side index-list/bit-
// guard structures (spec §4.5, "dense-acceleratable dense vector
// temporary").
func (l *Lowerer) allocateWorkspace(temp *notation.TensorVar, accelerate bool) (*Workspace, []ir.Stmt) {
	vt := l.tensorValueType(temp)
	valuesVar := l.ctx.TensorIR(temp)
	ws := &Workspace{Values: valuesVar}

	if temp.Order == 0 {
		ws.Scalar = true
		return ws, []ir.Stmt{&ir.VarDecl{Var: valuesVar, Init: &ir.Literal{Typ: vt, Val: zeroValue(vt)}}}
	}

	dim := &ir.GetProperty{Tensor: valuesVar, Kind: ir.Dimension, Mode: 0}
	var setup []ir.Stmt
	if l.ctx.InParallel() {
		ws.ThreadStride = dim
		total := &ir.Mul{X: dim, Y: &ir.Call{Func: "taco_get_num_threads", Typ: ir.Int64}}
		setup = append(setup, &ir.Allocate{Var: valuesVar, Size: total})
	} else {
		setup = append(setup, &ir.Allocate{Var: valuesVar, Size: dim})
	}
	l.ctx.AddFooter(&ir.Free{Var: valuesVar})

	if accelerate {
		ws.IndexList = &ir.Var{Name: temp.Name + "_idx_list", Typ: ir.Int64, IsPtr: true}
		ws.IndexSize = &ir.Var{Name: temp.Name + "_idx_size", Typ: ir.Int64}
		ws.BitGuard = &ir.Var{Name: temp.Name + "_guard", Typ: ir.Bool, IsPtr: true}
		setup = append(setup,
			&ir.Allocate{Var: ws.IndexList, Size: dim},
			&ir.Allocate{Var: ws.BitGuard, Size: dim},
			&ir.VarDecl{Var: ws.IndexSize, Init: &ir.Literal{Typ: ir.Int64, Val: int64(0)}},
		)
		l.ctx.AddFooter(&ir.Free{Var: ws.IndexList})
		l.ctx.AddFooter(&ir.Free{Var: ws.BitGuard})
	}
	return ws, setup
}

func zeroValue(t ir.Type) any {
	switch t {
	case ir.Bool:
		return false
	case ir.Float32, ir.Float64:
		return 0.0
	case ir.Complex64, ir.Complex128:
		return complex(0, 0)
	default:
		return int64(0)
	}
}

// zeroInitLoop emits the loop resetting a dense vector workspace
// before a producer that may not overwrite every entry this time
// through the enclosing loop (spec §4.5, "conditional zero-init
// loop"; spec §8 scenario 4).
func (l *Lowerer) zeroInitLoop(ws *Workspace, temp *notation.TensorVar) ir.Stmt {
	if ws.Scalar {
		return &ir.Assign{Lhs: ws.Values, Rhs: &ir.Literal{Typ: l.tensorValueType(temp), Val: zeroValue(l.tensorValueType(temp))}}
	}
	dim := &ir.GetProperty{Tensor: ws.Values, Kind: ir.Dimension, Mode: 0}
	idx := &ir.Var{Name: l.ctx.freshName(temp.Name + "_zi"), Typ: ir.Int64}
	store := &ir.Store{Arr: ws.Values, Index: idx, Value: &ir.Literal{Typ: l.tensorValueType(temp), Val: zeroValue(l.tensorValueType(temp))}}
	return &ir.For{Var: idx, Start: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Bound: dim, Increment: &ir.Literal{Typ: ir.Int64, Val: int64(1)}, Body: store}
}
