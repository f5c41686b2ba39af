// Package format implements the mode-format contract spec.md treats as
// an externally supplied collaborator: per-mode storage strategies
// (dense, compressed, singleton, byte-oriented) and the "mode
// functions" (posBounds, posAccess, locate, coordAccess,
// getAppendCoord, ...) that the lowerer calls to iterate and write
// them. This module ships concrete implementations so the lowering
// core can be built and tested end-to-end without a separate caller-
// supplied format library.
package format

import "github.com/tensorcomp/lowerer/internal/ir"

// Capabilities is the bitset of iteration/write strategies a mode
// format supports at one level, queried by the iterator facade
// (spec §3, "Iterator").
type Capabilities struct {
	HasPosIter        bool
	HasCoordIter      bool
	HasLocate         bool
	HasInsert         bool
	HasAppend         bool
	IsUnique          bool
	IsOrdered         bool
	IsBranchless      bool
	IsFull            bool
	UpdatesFillRegion bool
	// IsMultiPosition marks a mode whose posAccess can return a run of
	// coordinates longer than one per position (spec §4.3,
	// "Multi-position iterators").
	IsMultiPosition bool
}

// Context carries the per-access, per-level state a mode function
// needs to emit code: the tensor's runtime handle, this level's pos/
// coordinate variables, and the parent position this level is nested
// under.
type Context struct {
	Tensor     ir.Expr
	Mode       int
	ValueType  ir.Type
	ParentPos  ir.Expr
	Pos        *ir.Var
	Coord      *ir.Var
}

// Bounds is the (setup, lower, upper) triple a bounds query returns:
// setup computes any helper values the bounds expressions reference,
// lower/upper are then usable directly as a For/While's bounds.
type Bounds struct {
	Setup ir.Stmt
	Lower ir.Expr
	Upper ir.Expr
}

// Access is the (setup, result) pair an access-style query returns.
type Access struct {
	Setup  ir.Stmt
	Result ir.Expr
}

// LocateResult is what Locate() returns: the setup code, the found position,
// and a boolean expression reporting whether coord was present.
type LocateResult struct {
	Setup ir.Stmt
	Pos   ir.Expr
	Found ir.Expr
}

// ModeFormat is the strategy object for one tensor level. Pos/Coord
// methods are only meaningful when the corresponding Capabilities bit
// is set; the lowerer never calls a method its capability query did
// not already authorize.
type ModeFormat interface {
	Name() string
	Capabilities() Capabilities

	// PosBounds returns the [lower, upper) position range for the
	// segment of this level under ctx.ParentPos (compressed formats:
	// pos[ctx.ParentPos] and pos[ctx.ParentPos+1]).
	PosBounds(ctx Context) Bounds

	// PosAccess returns the coordinate stored at position pos.
	PosAccess(ctx Context, pos ir.Expr) Access

	// CoordBounds returns the [lower, upper) logical coordinate range
	// for dense/coordinate-iterable levels.
	CoordBounds(ctx Context) Bounds

	// CoordAccess returns the position corresponding to coordinate c
	// for formats that iterate coordinates directly rather than
	// positions (dense: identity).
	CoordAccess(ctx Context, c ir.Expr) Access

	// Locate performs random-access lookup of coord under ctx.ParentPos.
	Locate(ctx Context, coord ir.Expr) LocateResult

	// GetAppendCoord appends coord as the next stored coordinate at
	// this level (append-capable formats only).
	GetAppendCoord(ctx Context, pos, coord ir.Expr) ir.Stmt

	// GetAppendEdges finalizes the segment for ctx.ParentPos once all
	// of its children have been appended (writes pos[ctx.ParentPos+1]).
	GetAppendEdges(ctx Context, parentPos, childPosEnd ir.Expr) ir.Stmt

	// GetInitEdges emits the initialize-phase loop header for this
	// level during Assemble (spec §4.6).
	GetInitEdges(ctx Context, parentPos ir.Expr) ir.Stmt

	// GetInitCoords emits the initialize-phase coordinate setup.
	GetInitCoords(ctx Context) ir.Stmt

	// GetSize returns the number of stored entries at this level given
	// the parent's size, used to presize child arrays.
	GetSize(ctx Context, parentSize ir.Expr) ir.Expr
}
