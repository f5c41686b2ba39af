package iterator

import "github.com/tensorcomp/lowerer/internal/ir"

// IndexSetMembership returns the expression comparing a loaded
// coordinate against the projected axis's backing index-set tensor at
// the current position, and the IR variable it was loaded into. No
// lowering path calls it: the merge-point coordinate-load step
// (mergepoint.go's loadCoordinate) does not compare coordinates
// against an index set.
func (it *Iterator) IndexSetMembership(setPos ir.Expr) (setVar *ir.Var, loadSet ir.Stmt) {
	setTensor := &ir.Var{Name: it.IndexSet.Set.Name + "_vals", IsPtr: true}
	setVar = &ir.Var{Name: it.IndexVar.Name + "_set_coord", Typ: ir.Int64}
	loadSet = &ir.VarDecl{Var: setVar, Init: &ir.Load{Arr: setTensor, Index: setPos}}
	return setVar, loadSet
}
