package lower

import (
	"github.com/tensorcomp/lowerer/internal/format"
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// lowerAssignment lowers one Assignment in the scope established by
// whatever forall/merge-point body it appears in; el.ActiveLeaf must
// already bind every tensor the assignment reads or writes to its
// resolved iterator (spec §4.4). The store is wrapped in the assemble
// guard unless that guard simplifies to true.
func (l *Lowerer) lowerAssignment(a *notation.Assignment, el *ExprLowerer) ir.Stmt {
	rhs := el.LowerExpr(a.Rhs)

	var store ir.Stmt
	if a.Lhs.Tensor.Order == 0 {
		store = l.lowerScalarAssignment(a, rhs)
	} else {
		store = l.lowerTensorAssignment(a, el, rhs)
	}

	guard := l.assembleGuard(a, el)
	if guard == nil {
		return store
	}
	return &ir.IfThenElse{Cond: guard, Then: store}
}

// assembleGuard conjoins the "Found" result of every locate-capable
// operand the assignment's RHS reads (spec §4.4, "wrap the whole store
// in the assemble guard ... unless that simplifies to true"): a
// random-access lookup can land on a coordinate the lookup itself
// determines wasn't actually present, and a store under that lookup
// must not run unless every such lookup actually found something. A
// literal-true Found contributes nothing and is dropped; the guard is
// nil, so no IfThenElse is emitted, once every access simplifies that
// way — which is always true for the concrete mode formats this module
// ships, since none of them returns a conditional Found today.
func (l *Lowerer) assembleGuard(a *notation.Assignment, el *ExprLowerer) ir.Expr {
	var guard ir.Expr
	for _, acc := range notation.Accesses(a.Rhs) {
		leaf, ok := el.ActiveLeaf[acc.Tensor]
		if !ok || !leaf.HasLocate() {
			continue
		}
		valueType := l.tensorValueType(acc.Tensor)
		resolved := l.ctx.CoordVar(leaf.IndexVar, ir.Int64)
		found := leaf.Locate(resolved, valueType).Found
		if lit, ok := found.(*ir.Literal); ok && lit.Val == true {
			continue
		}
		guard = andExpr(guard, found)
	}
	return guard
}

func (l *Lowerer) lowerScalarAssignment(a *notation.Assignment, rhs ir.Expr) ir.Stmt {
	lhsVar := l.ctx.TensorIR(a.Lhs.Tensor)
	if a.Op == nil {
		return &ir.Assign{Lhs: lhsVar, Rhs: rhs}
	}
	if a.Op.Name == "+" {
		return &ir.Assign{Lhs: lhsVar, Rhs: &ir.Add{X: lhsVar, Y: rhs}}
	}
	update := &ir.Assign{Lhs: lhsVar, Rhs: &ir.Call{Func: a.Op.Name, Args: []ir.Expr{lhsVar, rhs}, Typ: lhsVar.Typ}}
	if !a.Op.HasAnnihilator {
		return update
	}
	// Reduction-with-annihilator short circuit (spec §4.3 scenario 6,
	// §8): once the accumulator reaches the operator's annihilator, no
	// further input can change the result, so the loop can stop.
	return ir.Blanks(update, &ir.IfThenElse{
		Cond: &ir.Eq{X: lhsVar, Y: a.Op.Annihilator},
		Then: &ir.Break{},
	})
}

func (l *Lowerer) lowerTensorAssignment(a *notation.Assignment, el *ExprLowerer, rhs ir.Expr) ir.Stmt {
	if ws, ok := l.workspaces[a.Lhs.Tensor]; ok && ws.BitGuard != nil {
		return l.lowerGuardedTensorAssignment(a, el, rhs, ws)
	}

	leaf, ok := el.ActiveLeaf[a.Lhs.Tensor]
	assert(ok, a, "no active iterator bound for result tensor %q", a.Lhs.Tensor.Name)

	valuesVar := l.ctx.TensorIR(a.Lhs.Tensor)
	valuesArr := &ir.GetProperty{Tensor: valuesVar, Kind: ir.Values}
	valueType := l.tensorValueType(a.Lhs.Tensor)

	var pre []ir.Stmt
	if leaf.HasAppend() && a.Lhs.Tensor.Order > 0 {
		// Ungrouped-insertion results emit their yieldPos/insertCoord
		// before the value store (spec §4.4).
		pre = append(pre, l.atLeastDoubleSizeIfFull(a.Lhs.Tensor, leaf.PosVar))
		pre = append(pre, leaf.AppendCoord(leaf.PosVar, l.ctx.CoordVar(leaf.IndexVar, ir.Int64), valueType))
	}

	if byteFmt, ok := leaf.Format.(format.Byte); ok {
		// Byte-oriented levels address values by byte offset through a
		// cast pointer rather than plain element indexing on either side
		// of the assignment (spec §4.4).
		offset := byteFmt.ValueOffset(format.Context{ValueType: valueType}, leaf.PosVar)
		byteArr := &ir.Cast{Value: valuesArr, To: ir.UInt8}
		value := rhs
		if a.Op != nil && a.Op.Name == "+" {
			value = &ir.Add{X: &ir.Load{Arr: byteArr, Index: offset}, Y: rhs}
		}
		store := &ir.Store{Arr: byteArr, Index: offset, Value: value, Atomic: l.ctx.InAtomic()}
		return ir.Blanks(append(pre, store)...)
	}

	value := rhs
	if a.Op != nil && a.Op.Name == "+" {
		value = &ir.Add{X: &ir.Load{Arr: valuesArr, Index: leaf.PosVar}, Y: rhs}
	}

	store := &ir.Store{Arr: valuesArr, Index: leaf.PosVar, Value: value, Atomic: l.ctx.InAtomic()}
	return ir.Blanks(append(pre, store)...)
}

// lowerGuardedTensorAssignment implements the guarded-temporary store
// spec §4.4 describes for a dense-acceleratable workspace: the first
// write to a given coordinate is distinguished from later ones by the
// workspace's bit-guard array, since the workspace is never zeroed
// between the coordinates a producer actually touches. The first write
// records the coordinate in the index list, sets its guard bit, and
// stores the plain value; every subsequent write to that coordinate
// performs the assignment's ordinary compound update directly.
func (l *Lowerer) lowerGuardedTensorAssignment(a *notation.Assignment, el *ExprLowerer, rhs ir.Expr, ws *Workspace) ir.Stmt {
	leaf, ok := el.ActiveLeaf[a.Lhs.Tensor]
	assert(ok, a, "no active iterator bound for guarded workspace %q", a.Lhs.Tensor.Name)
	pos := leaf.PosVar

	valuesVar := l.ctx.TensorIR(a.Lhs.Tensor)
	valuesArr := &ir.GetProperty{Tensor: valuesVar, Kind: ir.Values}

	firstWrite := ir.Blanks(
		&ir.Store{Arr: ws.IndexList, Index: ws.IndexSize, Value: pos},
		&ir.Assign{Lhs: ws.IndexSize, Rhs: &ir.Add{X: ws.IndexSize, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}},
		&ir.Store{Arr: ws.BitGuard, Index: pos, Value: &ir.Literal{Typ: ir.Bool, Val: true}},
		&ir.Store{Arr: valuesArr, Index: pos, Value: rhs},
	)

	repeatValue := rhs
	if a.Op != nil && a.Op.Name == "+" {
		repeatValue = &ir.Add{X: &ir.Load{Arr: valuesArr, Index: pos}, Y: rhs}
	}
	repeatWrite := &ir.Store{Arr: valuesArr, Index: pos, Value: repeatValue}

	alreadyGuarded := &ir.Load{Arr: ws.BitGuard, Index: pos}
	return &ir.IfThenElse{Cond: alreadyGuarded, Then: repeatWrite, Else: firstWrite}
}

func (l *Lowerer) tensorValueType(tv *notation.TensorVar) ir.Type {
	return tensorValueType(l.ctx, tv)
}

// tensorValueType looks up tv's declared value type, defaulting to
// Float64 for a tensor the frontend never recorded a type for. Shared
// by the statement lowerer (*Lowerer) and the expression lowerer
// (*ExprLowerer), which only holds a *Context.
func tensorValueType(ctx *Context, tv *notation.TensorVar) ir.Type {
	if t, ok := ctx.tensorTyp[tv]; ok {
		return t
	}
	return ir.Float64
}
