// Package iterator implements the per-tensor-mode capability facade
// (spec §3, "Iterator"): a handle joining one tensor mode with an
// IndexVar, exposing the mode format's capability bits plus any
// access-level windowing/index-set projection, and the code-emitting
// hooks the lowerer calls against it.
package iterator

import (
	"github.com/tensorcomp/lowerer/internal/format"
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// Iterator joins one level of one tensor access with the IndexVar that
// walks it. Iterators for one Access form a parent chain from root
// (outermost mode) to leaf (spec §3).
type Iterator struct {
	IndexVar *notation.IndexVar
	Tensor   *notation.TensorVar
	Access   notation.Access
	Mode     int
	Format   format.ModeFormat
	Parent   *Iterator

	PosVar   *ir.Var
	CoordVar *ir.Var

	Window   *notation.Window
	IndexSet *notation.IndexSet

	// Result marks a write-path (append/insert) iterator rather than a
	// read-path one.
	Result bool
}

// New builds the leaf-to-root chain of Iterators for one Access, one
// per mode, reusing a.Tensor's declared format per level.
func New(a notation.Access, posVars, coordVars []*ir.Var, result bool) []*Iterator {
	its := make([]*Iterator, len(a.Tensor.Modes))
	var parent *Iterator
	for m, mode := range a.Tensor.Modes {
		it := &Iterator{
			IndexVar: a.Vars[m],
			Tensor:   a.Tensor,
			Access:   a,
			Mode:     m,
			Format:   mode.Format,
			Parent:   parent,
			PosVar:   posVars[m],
			CoordVar: coordVars[m],
			Window:   a.WindowOf(m),
			IndexSet: a.IndexSetOf(m),
			Result:   result,
		}
		its[m] = it
		parent = it
	}
	return its
}

func (it *Iterator) caps() format.Capabilities { return it.Format.Capabilities() }

func (it *Iterator) HasPosIter() bool        { return it.caps().HasPosIter }
func (it *Iterator) HasCoordIter() bool      { return it.caps().HasCoordIter }
func (it *Iterator) HasLocate() bool         { return it.caps().HasLocate }
func (it *Iterator) HasInsert() bool         { return it.caps().HasInsert }
func (it *Iterator) HasAppend() bool         { return it.caps().HasAppend }
func (it *Iterator) IsUnique() bool          { return it.caps().IsUnique }
func (it *Iterator) IsOrdered() bool         { return it.caps().IsOrdered }
func (it *Iterator) IsBranchless() bool      { return it.caps().IsBranchless }
func (it *Iterator) IsFull() bool            { return it.caps().IsFull }
func (it *Iterator) UpdatesFillRegion() bool { return it.caps().UpdatesFillRegion }
func (it *Iterator) IsMultiPosition() bool   { return it.caps().IsMultiPosition }

// IsWindowed reports whether this access axis was restricted to a
// sub-range (spec §3).
func (it *Iterator) IsWindowed() bool { return it.Window != nil }

// IsStrided reports whether this access axis steps by more than 1.
func (it *Iterator) IsStrided() bool { return it.Window != nil && it.Window.Stride != 1 }

// HasIndexSet reports whether this axis is routed through another
// tensor's coordinate list.
func (it *Iterator) HasIndexSet() bool { return it.IndexSet != nil }

// IsDimensionIterator reports whether this iterator walks a dense,
// full, locate-capable mode directly by counting 0..dim rather than
// through a position array — the "Dense acceleration"/"Dimension"
// loop shapes require this (spec §4.2 items 2-3).
func (it *Iterator) IsDimensionIterator() bool {
	c := it.caps()
	return c.IsFull && c.HasLocate && !c.HasPosIter
}

// ParentPosExpr returns the IR expression for this iterator's parent
// position (0 at the root).
func (it *Iterator) ParentPosExpr() ir.Expr {
	if it.Parent == nil {
		return &ir.Literal{Typ: ir.Int64, Val: int64(0)}
	}
	return it.Parent.PosVar
}

func (it *Iterator) ctx(valueType ir.Type) format.Context {
	return format.Context{
		Tensor:    it.tensorHandle(),
		Mode:      it.Mode,
		ValueType: valueType,
		ParentPos: it.ParentPosExpr(),
		Pos:       it.PosVar,
		Coord:     it.CoordVar,
	}
}

func (it *Iterator) tensorHandle() ir.Expr {
	return &ir.Var{Name: it.Tensor.Name, IsPtr: true}
}

// PosBounds, PosAccess, CoordBounds, CoordAccess, Locate, AppendCoord,
// AppendEdges, InitEdges, InitCoords, and Size delegate to the
// underlying format.ModeFormat with this iterator's context, per
// spec §6 ("Collaborator contracts consumed").
func (it *Iterator) PosBounds(valueType ir.Type) format.Bounds {
	return it.Format.PosBounds(it.ctx(valueType))
}

func (it *Iterator) PosAccess(pos ir.Expr, valueType ir.Type) format.Access {
	return it.Format.PosAccess(it.ctx(valueType), pos)
}

func (it *Iterator) CoordBounds(valueType ir.Type) format.Bounds {
	return it.Format.CoordBounds(it.ctx(valueType))
}

func (it *Iterator) CoordAccess(c ir.Expr, valueType ir.Type) format.Access {
	return it.Format.CoordAccess(it.ctx(valueType), c)
}

func (it *Iterator) Locate(coord ir.Expr, valueType ir.Type) format.LocateResult {
	return it.Format.Locate(it.ctx(valueType), coord)
}

func (it *Iterator) AppendCoord(pos, coord ir.Expr, valueType ir.Type) ir.Stmt {
	return it.Format.GetAppendCoord(it.ctx(valueType), pos, coord)
}

func (it *Iterator) AppendEdges(parentPos, childEnd ir.Expr, valueType ir.Type) ir.Stmt {
	return it.Format.GetAppendEdges(it.ctx(valueType), parentPos, childEnd)
}

func (it *Iterator) InitEdges(parentPos ir.Expr, valueType ir.Type) ir.Stmt {
	return it.Format.GetInitEdges(it.ctx(valueType), parentPos)
}

func (it *Iterator) InitCoords(valueType ir.Type) ir.Stmt {
	return it.Format.GetInitCoords(it.ctx(valueType))
}

func (it *Iterator) Size(parentSize ir.Expr, valueType ir.Type) ir.Expr {
	return it.Format.GetSize(it.ctx(valueType), parentSize)
}
