// Package fillregion tracks, per tensor, the background "fill value"
// substituted for coordinates that are not explicitly stored and the
// optional periodic "fill region" array some formats use to represent
// runs of repeated values compactly (spec §3, "Fill region").
package fillregion

import (
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/iterator"
)

// State holds the IR variables tracking one tensor's fill value/region
// during lowering.
type State struct {
	FillVar   *ir.Var // scalar: current fill value
	RegionVar *ir.Var // nil when RegionLen == 1
	RegionLen int
	IndexVar  *ir.Var // current offset into the periodic region
}

// NewState declares the fill bookkeeping variables for tensor t's
// values of type typ.
func NewState(tensorName string, typ ir.Type, regionLen int) *State {
	s := &State{
		FillVar:   &ir.Var{Name: tensorName + "_fill", Typ: typ},
		RegionLen: regionLen,
	}
	if regionLen > 1 {
		s.RegionVar = &ir.Var{Name: tensorName + "_fill_region", Typ: typ, IsPtr: true}
		s.IndexVar = &ir.Var{Name: tensorName + "_fill_idx", Typ: ir.Int64}
	}
	return s
}

// UpdateFillVars emits the per-iteration fill update for an iterator
// that declares UpdatesFillRegion (spec §4.3 item 3). For a
// length-one region it is a single scalar store of the next fill
// value; otherwise it stores nextRegion into slot 0 of the tensor's
// fill-region array and resets the running index. Only that one slot
// is written; the rest of the region array is not copied.
func UpdateFillVars(it *iterator.Iterator, s *State, nextFill ir.Expr, nextRegion ir.Expr) ir.Stmt {
	if !it.UpdatesFillRegion() {
		return nil
	}
	if s.RegionLen <= 1 {
		return &ir.Assign{Lhs: s.FillVar, Rhs: nextFill}
	}
	return &ir.Block{Stmts: []ir.Stmt{
		&ir.Store{Arr: s.RegionVar, Index: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Value: nextRegion},
		&ir.Assign{Lhs: s.IndexVar, Rhs: &ir.Literal{Typ: ir.Int64, Val: int64(0)}},
	}}
}

// CollapseMultiplyAccumulate builds the RLE fast-path reduction for a
// multi-position iterator's run: when the loop body is a pure
// `acc += alpha * load[coord]` reduction, a run of runLength identical
// steps collapses to one multiplication instead of an inner loop
// (spec §4.3, "Multi-position iterators").
func CollapseMultiplyAccumulate(acc *ir.Var, alpha, runLength, load ir.Expr) ir.Stmt {
	term := &ir.Mul{X: alpha, Y: &ir.Mul{X: &ir.Cast{Value: runLength, To: acc.Typ}, Y: load}}
	return &ir.Assign{Lhs: acc, Rhs: &ir.Add{X: acc, Y: term}}
}

// ConstantRunAccumulate is the further RLE specialisation used when
// every operand's fill region has length 1 (the run is a literal
// constant, so the inner load can be skipped entirely and replaced by
// the tracked fill value itself, spec §4.3).
func ConstantRunAccumulate(acc *ir.Var, alpha, runLength ir.Expr, fillValue ir.Expr) ir.Stmt {
	term := &ir.Mul{X: alpha, Y: &ir.Mul{X: &ir.Cast{Value: runLength, To: acc.Typ}, Y: fillValue}}
	return &ir.Assign{Lhs: acc, Rhs: &ir.Add{X: acc, Y: term}}
}
