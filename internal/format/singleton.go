package format

import "github.com/tensorcomp/lowerer/internal/ir"

// Singleton stores exactly one coordinate per parent position — the
// tail level of a COO-style format (original_source's
// mode_format_singleton.cpp). It has the same posBounds shape as
// Compressed restricted to a single-element segment, so posBounds
// yields [parentPos, parentPos+1).
type Singleton struct {
	Idx *ir.Var
}

func (Singleton) Name() string { return "singleton" }

func (Singleton) Capabilities() Capabilities {
	return Capabilities{HasPosIter: true, HasInsert: true, IsUnique: true, IsOrdered: true}
}

func (Singleton) PosBounds(ctx Context) Bounds {
	return Bounds{
		Lower: ctx.ParentPos,
		Upper: &ir.Add{X: ctx.ParentPos, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}},
	}
}

func (s Singleton) PosAccess(ctx Context, pos ir.Expr) Access {
	return Access{Result: &ir.Load{Arr: s.Idx, Index: pos}}
}

func (Singleton) CoordBounds(ctx Context) Bounds       { return Bounds{} }
func (Singleton) CoordAccess(ctx Context, c ir.Expr) Access { return Access{} }
func (Singleton) Locate(ctx Context, coord ir.Expr) LocateResult {
	return LocateResult{Found: &ir.Literal{Typ: ir.Bool, Val: false}}
}

func (s Singleton) GetAppendCoord(ctx Context, pos, coord ir.Expr) ir.Stmt {
	return &ir.Store{Arr: s.Idx, Index: pos, Value: coord}
}

func (Singleton) GetAppendEdges(ctx Context, parentPos, childPosEnd ir.Expr) ir.Stmt { return nil }
func (Singleton) GetInitEdges(ctx Context, parentPos ir.Expr) ir.Stmt                { return nil }
func (Singleton) GetInitCoords(ctx Context) ir.Stmt                                  { return nil }

func (Singleton) GetSize(ctx Context, parentSize ir.Expr) ir.Expr { return parentSize }
