package iterator

import "github.com/tensorcomp/lowerer/internal/ir"

// DimExpr returns the iteration-count expression for a windowed axis:
// (hi - lo) / stride, the dimension a `forall` over a windowed
// IndexVar iterates (spec §4.1 step 4).
func (it *Iterator) DimExpr() ir.Expr {
	w := it.Window
	span := &ir.Sub{
		X: &ir.Literal{Typ: ir.Int64, Val: w.Hi},
		Y: &ir.Literal{Typ: ir.Int64, Val: w.Lo},
	}
	if w.Stride == 1 {
		return span
	}
	return &ir.Div{X: span, Y: &ir.Literal{Typ: ir.Int64, Val: w.Stride}}
}

// ProjectWindowedPositionToCanonicalSpace maps a position expressed in
// the windowed subspace back to the underlying tensor's coordinate
// space: lo + pos*stride.
func (it *Iterator) ProjectWindowedPositionToCanonicalSpace(pos ir.Expr) ir.Expr {
	w := it.Window
	scaled := pos
	if w.Stride != 1 {
		scaled = &ir.Mul{X: pos, Y: &ir.Literal{Typ: ir.Int64, Val: w.Stride}}
	}
	return &ir.Add{X: &ir.Literal{Typ: ir.Int64, Val: w.Lo}, Y: scaled}
}

// ProjectCanonicalSpaceToWindowedPosition is the inverse of
// ProjectWindowedPositionToCanonicalSpace: (coord - lo) / stride.
func (it *Iterator) ProjectCanonicalSpaceToWindowedPosition(coord ir.Expr) ir.Expr {
	w := it.Window
	diff := &ir.Sub{X: coord, Y: &ir.Literal{Typ: ir.Int64, Val: w.Lo}}
	if w.Stride == 1 {
		return diff
	}
	return &ir.Div{X: diff, Y: &ir.Literal{Typ: ir.Int64, Val: w.Stride}}
}

// StrideGuard returns the `(coord - lo) % stride != 0` condition used
// to skip canonical-space positions that do not land on the window's
// stride (spec §4.2 item 4, §8 "Windowed axis").
func (it *Iterator) StrideGuard(coord ir.Expr) ir.Expr {
	w := it.Window
	diff := &ir.Sub{X: coord, Y: &ir.Literal{Typ: ir.Int64, Val: w.Lo}}
	rem := &ir.Rem{X: diff, Y: &ir.Literal{Typ: ir.Int64, Val: w.Stride}}
	return &ir.Neq{X: rem, Y: &ir.Literal{Typ: ir.Int64, Val: int64(0)}}
}

// UpperBoundGuard returns the `coord >= hi` condition used to break
// out of an unparallelized windowed loop once it runs past the
// window's upper bound (spec §4.2 item 4).
func (it *Iterator) UpperBoundGuard(coord ir.Expr) ir.Expr {
	return &ir.Gte{X: coord, Y: &ir.Literal{Typ: ir.Int64, Val: it.Window.Hi}}
}

// SearchForStartOfWindowPosition binary-searches an ordered merger's
// full, unwindowed position segment [segLower, segUpper) for the first
// position whose stored coordinate is not less than the window's lower
// bound (original_source's searchForStartOfWindowPosition, spec §8
// "Windowed axis"). Without this, a merge loop that simply starts at
// segLower would co-iterate through every stored coordinate strictly
// before the window — wrongly treating any of them that happen to
// satisfy the stride congruence as in-window.
func (it *Iterator) SearchForStartOfWindowPosition(segLower, segUpper ir.Expr, valueType ir.Type) (ir.Stmt, ir.Expr) {
	base := it.Tensor.Name + "_" + it.IndexVar.Name
	lo := &ir.Var{Name: base + "_winsearch_lo", Typ: ir.Int64}
	hi := &ir.Var{Name: base + "_winsearch_hi", Typ: ir.Int64}
	mid := &ir.Var{Name: base + "_winsearch_mid", Typ: ir.Int64}

	midCoord := it.PosAccess(mid, valueType)
	step := ir.Blanks(
		&ir.Assign{Lhs: mid, Rhs: &ir.Div{
			X: &ir.Add{X: lo, Y: hi},
			Y: &ir.Literal{Typ: ir.Int64, Val: int64(2)},
		}},
		midCoord.Setup,
		&ir.IfThenElse{
			Cond: &ir.Lt{X: midCoord.Result, Y: &ir.Literal{Typ: ir.Int64, Val: it.Window.Lo}},
			Then: &ir.Assign{Lhs: lo, Rhs: &ir.Add{X: mid, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}},
			Else: &ir.Assign{Lhs: hi, Rhs: mid},
		},
	)
	setup := ir.Blanks(
		&ir.VarDecl{Var: lo, Init: segLower},
		&ir.VarDecl{Var: hi, Init: segUpper},
		&ir.VarDecl{Var: mid, Init: &ir.Literal{Typ: ir.Int64, Val: int64(0)}},
		&ir.While{Cond: &ir.Lt{X: lo, Y: hi}, Body: step},
	)
	return setup, lo
}
