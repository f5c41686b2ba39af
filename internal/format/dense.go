package format

import "github.com/tensorcomp/lowerer/internal/ir"

// Dense is a mode stored with storage proportional to its declared
// dimension, addressable by locate in O(1) (original_source's
// mode_format_dense.cpp: ModeFormat::properties has Full|Ordered|
// Unique|Locate set, no Compact).
type Dense struct {
	// Dim is the declared dimension expression for this level.
	Dim ir.Expr
}

func (Dense) Name() string { return "dense" }

func (Dense) Capabilities() Capabilities {
	return Capabilities{
		HasLocate: true,
		IsUnique:  true,
		IsOrdered: true,
		IsFull:    true,
	}
}

func (d Dense) PosBounds(ctx Context) Bounds {
	return Bounds{Lower: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Upper: d.Dim}
}

func (Dense) PosAccess(ctx Context, pos ir.Expr) Access {
	return Access{Result: pos}
}

func (d Dense) CoordBounds(ctx Context) Bounds {
	return Bounds{Lower: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Upper: d.Dim}
}

func (Dense) CoordAccess(ctx Context, c ir.Expr) Access {
	return Access{Result: c}
}

func (d Dense) Locate(ctx Context, coord ir.Expr) LocateResult {
	pos := &ir.Add{X: &ir.Mul{X: ctx.ParentPos, Y: d.Dim}, Y: coord}
	return LocateResult{Pos: pos, Found: &ir.Literal{Typ: ir.Bool, Val: true}}
}

func (Dense) GetAppendCoord(ctx Context, pos, coord ir.Expr) ir.Stmt { return nil }

func (Dense) GetAppendEdges(ctx Context, parentPos, childPosEnd ir.Expr) ir.Stmt { return nil }

func (Dense) GetInitEdges(ctx Context, parentPos ir.Expr) ir.Stmt { return nil }

func (Dense) GetInitCoords(ctx Context) ir.Stmt { return nil }

func (d Dense) GetSize(ctx Context, parentSize ir.Expr) ir.Expr {
	return &ir.Mul{X: parentSize, Y: d.Dim}
}
