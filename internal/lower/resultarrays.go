package lower

import (
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// initialCapacity is the starting allocation for an append-capable
// result's values array; atLeastDoubleSizeIfFull grows it from here.
const initialCapacity = 16

// initResultArrays allocates each top-level append-capable result's
// values array at a small starting capacity, paired with a Free in
// the footer (spec §4.1 step 6, §5 "Resource discipline"). Dense
// results are sized exactly by their declared dimension and are the
// caller's allocation, not this package's (spec §1 non-goals: "does
// not allocate user tensors").
func (l *Lowerer) initResultArrays(results []*notation.TensorVar) []ir.Stmt {
	var out []ir.Stmt
	for _, tv := range results {
		if tv.Order == 0 || !l.resultIsAppendCapable(tv) {
			continue
		}
		if _, done := l.ctx.capacity[tv]; done {
			continue
		}
		valuesVar := l.ctx.TensorIR(tv)
		capVar := l.ctx.CapacityVar(tv)
		out = append(out,
			&ir.VarDecl{Var: capVar, Init: &ir.Literal{Typ: ir.Int64, Val: int64(initialCapacity)}},
			&ir.Allocate{Var: valuesVar, Size: capVar},
		)
		l.ctx.AddFooter(&ir.Free{Var: valuesVar})
	}
	return out
}

func (l *Lowerer) resultIsAppendCapable(tv *notation.TensorVar) bool {
	if len(tv.Modes) == 0 {
		return false
	}
	return tv.Modes[len(tv.Modes)-1].Format.Capabilities().HasAppend
}

// finalizeResultArrays is a deliberate no-op: every append-capable
// result's position edges are already finalized level-by-level as
// each enclosing forall completes (forall.go's generateAppendPositions),
// so nothing remains to do once the whole body has lowered. It stays
// a named step so Lower's six-step structure (spec §4.1) is visible
// at the call site.
func (l *Lowerer) finalizeResultArrays(results []*notation.TensorVar) []ir.Stmt {
	return nil
}

// atLeastDoubleSizeIfFull emits the capacity-growth guard spec §5
// requires before every append into a values array: when pos would
// reach or exceed the tracked capacity, the capacity at least doubles
// (or grows to pos+1 directly, for the rare single append that would
// overflow even a doubled buffer) and the array is reallocated in
// place.
func (l *Lowerer) atLeastDoubleSizeIfFull(tv *notation.TensorVar, pos ir.Expr) ir.Stmt {
	capVar := l.ctx.CapacityVar(tv)
	valuesVar := l.ctx.TensorIR(tv)
	needed := &ir.Add{X: pos, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}
	doubled := &ir.Mul{X: capVar, Y: &ir.Literal{Typ: ir.Int64, Val: int64(2)}}
	grow := ir.Blanks(
		&ir.Assign{Lhs: capVar, Rhs: &ir.Max{Args: []ir.Expr{doubled, needed}}},
		&ir.Allocate{Var: valuesVar, Size: capVar, IsRealloc: true},
	)
	return &ir.IfThenElse{Cond: &ir.Gte{X: needed, Y: capVar}, Then: grow}
}
