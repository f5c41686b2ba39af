package format

import "github.com/tensorcomp/lowerer/internal/ir"

// Compressed is a level stored as a segment of coordinate values per
// parent position, delimited by a pos array — the CSR/CSF "sparse"
// level (original_source's mode_format_compressed.cpp). Unique
// controls whether repeated coordinates within one segment are
// possible, exercising the §4.3 deduplication loop when false.
type Compressed struct {
	Pos   *ir.Var // pos array, element type Int64
	Idx   *ir.Var // coordinate/idx array, element type Int64
	Unique bool
}

func (c Compressed) Name() string {
	if c.Unique {
		return "compressed"
	}
	return "compressed(nu)"
}

func (c Compressed) Capabilities() Capabilities {
	return Capabilities{
		HasPosIter: true,
		HasAppend:  true,
		IsUnique:   c.Unique,
		IsOrdered:  true,
	}
}

func (c Compressed) PosBounds(ctx Context) Bounds {
	return Bounds{
		Lower: &ir.Load{Arr: c.Pos, Index: ctx.ParentPos},
		Upper: &ir.Load{Arr: c.Pos, Index: &ir.Add{X: ctx.ParentPos, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}},
	}
}

func (c Compressed) PosAccess(ctx Context, pos ir.Expr) Access {
	return Access{Result: &ir.Load{Arr: c.Idx, Index: pos}}
}

func (c Compressed) CoordBounds(ctx Context) Bounds { return Bounds{} }

func (c Compressed) CoordAccess(ctx Context, coordinate ir.Expr) Access { return Access{} }

func (c Compressed) Locate(ctx Context, coord ir.Expr) LocateResult {
	// Compressed levels do not support O(1) locate; a caller reaching
	// this path has misclassified the iterator (structural assertion,
	// spec §7). Concrete implementations that need "binary search
	// locate" formats can compose Compressed differently; this module
	// never requires it for the seed scenarios.
	return LocateResult{Found: &ir.Literal{Typ: ir.Bool, Val: false}}
}

func (c Compressed) GetAppendCoord(ctx Context, pos, coord ir.Expr) ir.Stmt {
	return &ir.Store{Arr: c.Idx, Index: pos, Value: coord}
}

func (c Compressed) GetAppendEdges(ctx Context, parentPos, childPosEnd ir.Expr) ir.Stmt {
	return &ir.Store{Arr: c.Pos, Index: &ir.Add{X: parentPos, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}, Value: childPosEnd}
}

func (c Compressed) GetInitEdges(ctx Context, parentPos ir.Expr) ir.Stmt {
	return &ir.Store{Arr: c.Pos, Index: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Value: &ir.Literal{Typ: ir.Int64, Val: int64(0)}}
}

func (c Compressed) GetInitCoords(ctx Context) ir.Stmt { return nil }

func (c Compressed) GetSize(ctx Context, parentSize ir.Expr) ir.Expr {
	return &ir.Load{Arr: c.Pos, Index: parentSize}
}
