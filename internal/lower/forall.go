package lower

import (
	"github.com/tensorcomp/lowerer/internal/fillregion"
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/iterator"
	"github.com/tensorcomp/lowerer/internal/lattice"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// lowerForall lowers one Forall, choosing among the loop shapes spec
// §4.2 describes. The six named shapes collapse to four code paths
// here: Fused position and Dimension get their own, since both iterate
// a single counted range with no coordinate merge; Position (single)
// and Coordinate (single) — exactly one mergeable (non-locate, non-
// full) operand, co-iterating against nothing — bound a plain counted
// loop directly over that operand's own posBounds/coordBounds rather
// than the general lattice machinery, matching spec §8 scenario 1's
// literal "for p in A.pos[i]..A.pos[i+1]" shape; General merge (two
// or more mergeable operands, or a non-unique single merger whose own
// dedup loop needs manual position advance) goes through mergepoint.go's
// lattice-driven while loop (spec §4.3 items 1-6). Dense acceleration
// is not chosen here: where.go's lowerAcceleratedConsumer emits it for
// a Where's consumer, as a for loop over the workspace's index list.
func (l *Lowerer) lowerForall(f *notation.Forall, el *ExprLowerer) ir.Stmt {
	operands, results := l.collectLevelIterators(f)

	parallel := f.Unit != ir.NotParallel
	if parallel {
		l.ctx.EnterParallel()
		if f.Race == ir.Atomics {
			l.ctx.EnterAtomic()
		}
	}

	merger, locators, singleMerger := trySingleMerger(operands)

	var loopBody ir.Stmt
	switch {
	case l.ctx.Graph.IsFused(f.Var):
		loopBody = l.lowerFusedPosition(f, operands, results, el)
	case mergeableCount(operands) == 0:
		loopBody = l.lowerDimension(f, operands, results, el)
	case singleMerger:
		loopBody = l.lowerSingleMerger(f, merger, locators, results, el, l.valueTypeFor(operands, results))
	default:
		lat := l.buildLattice(f, operands, results)
		loopBody = l.lowerGeneralMerge(f.Var, lat, f.Body, el, l.valueTypeFor(operands, results))
	}

	if parallel {
		if f.Race == ir.Atomics {
			l.ctx.ExitAtomic()
		}
		l.ctx.ExitParallel()
	}

	return ir.Blanks(loopBody, l.generateAppendPositions(results))
}

// collectLevelIterators finds every access (anywhere in f.Body,
// including beneath nested Foralls/Wheres) that indexes f.Var, and
// returns the leaf iterator at f.Var's level for each distinct
// operand tensor and each distinct result tensor.
func (l *Lowerer) collectLevelIterators(f *notation.Forall) (operands, results []*iterator.Iterator) {
	seenOperand := map[*notation.TensorVar]bool{}
	seenResult := map[*notation.TensorVar]bool{}
	for _, r := range collectRoleAccesses(f.Body) {
		if !accessUsesVar(r.access, f.Var) {
			continue
		}
		its := l.iteratorsFor(r.access, r.result)
		leaf := leafAt(its, f.Var)
		if leaf == nil {
			continue
		}
		if r.result {
			if !seenResult[r.access.Tensor] {
				seenResult[r.access.Tensor] = true
				results = append(results, leaf)
			}
			continue
		}
		if !seenOperand[r.access.Tensor] {
			seenOperand[r.access.Tensor] = true
			operands = append(operands, leaf)
		}
	}
	return operands, results
}

type accessRole struct {
	access notation.Access
	result bool
}

// collectRoleAccesses walks a whole statement subtree (crossing
// Forall/Where boundaries) collecting every tensor access tagged with
// whether it is a write (Assignment.Lhs) or a read.
func collectRoleAccesses(s notation.Stmt) []accessRole {
	var out []accessRole
	walkExpr := func(e notation.Expr) {
		for _, a := range notation.Accesses(e) {
			out = append(out, accessRole{a, false})
		}
	}
	var walk func(notation.Stmt)
	walk = func(st notation.Stmt) {
		switch n := st.(type) {
		case *notation.Assignment:
			out = append(out, accessRole{n.Lhs, true})
			walkExpr(n.Rhs)
		case *notation.Forall:
			walk(n.Body)
		case *notation.Where:
			walk(n.Producer)
			walk(n.Consumer)
		case *notation.Multi:
			for _, c := range n.Stmts {
				walk(c)
			}
		case *notation.Sequence:
			for _, c := range n.Stmts {
				walk(c)
			}
		case *notation.SuchThat:
			walk(n.Stmt)
		case *notation.Assemble:
			walk(n.Stmt)
		case *notation.Yield:
			walkExpr(n.Expr)
		}
	}
	walk(s)
	return out
}

func accessUsesVar(a notation.Access, v *notation.IndexVar) bool {
	for _, av := range a.Vars {
		if av == v {
			return true
		}
	}
	return false
}

func leafAt(its []*iterator.Iterator, v *notation.IndexVar) *iterator.Iterator {
	for _, it := range its {
		if it.IndexVar == v {
			return it
		}
	}
	return nil
}

// iteratorsFor returns (building once, on first access to this
// tensor) the full parent chain of Iterators for a's tensor. Caching
// by tensor identity — rather than rebuilding per forall level —
// keeps the same Iterator (and its Pos/CoordVar) shared across the
// nested foralls that walk its successive modes.
func (l *Lowerer) iteratorsFor(a notation.Access, result bool) []*iterator.Iterator {
	if its, ok := l.iterCache[a.Tensor]; ok {
		return its
	}
	posVars := make([]*ir.Var, len(a.Tensor.Modes))
	coordVars := make([]*ir.Var, len(a.Tensor.Modes))
	for m := range a.Tensor.Modes {
		v := a.Vars[m]
		posVars[m] = l.ctx.PosVar(a.Tensor, v)
		coordVars[m] = l.ctx.CoordVar(v, ir.Int64)
	}
	its := iterator.New(a, posVars, coordVars, result)
	for _, it := range its {
		if it.Result && it.HasAppend() {
			// An append-capable result's position is a running counter
			// over the whole lowered function, not a per-loop-iteration
			// value the way a locate-based result's is; it is declared
			// once here, in the header, and only ever incremented by
			// the loop shape that reaches it (forall.go's
			// advanceAppendResults, mergepoint.go's per-arm post step).
			l.ctx.AddHeader(&ir.VarDecl{Var: it.PosVar, Init: &ir.Literal{Typ: ir.Int64, Val: int64(0)}})
		}
	}
	l.iterCache[a.Tensor] = its
	return its
}

// advanceAppendResults emits the position-counter increment every
// append-capable result among results needs after one value has been
// written at the current loop iteration (spec §4.2, "generateAppendPositions
// runs at the end... "; the per-value counter itself mirrors
// mergepoint.go's lowerMergePointArms/lowerSingleArm post-step).
func (l *Lowerer) advanceAppendResults(results []*iterator.Iterator) ir.Stmt {
	var out []ir.Stmt
	for _, it := range results {
		if it.HasAppend() {
			out = append(out, &ir.Assign{Lhs: it.PosVar, Rhs: &ir.Add{X: it.PosVar, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}})
		}
	}
	return ir.Blanks(out...)
}

func mergeableCount(operands []*iterator.Iterator) int {
	n := 0
	for _, it := range operands {
		if !(it.HasLocate() && it.IsFull()) {
			n++
		}
	}
	return n
}

// trySingleMerger reports whether operands has exactly one non-full/
// non-locate iterator (every other operand is a locator) and that one
// merger is unique. A non-unique merger's duplicate-coordinate
// accumulation loop (mergepoint.go's dedupAccumulate) already advances
// its position past every repeat, so it still needs the lattice
// machinery's manual per-arm advance instead of a bounded for loop's
// unconditional per-iteration increment.
func trySingleMerger(operands []*iterator.Iterator) (merger *iterator.Iterator, locators []*iterator.Iterator, ok bool) {
	count := 0
	for _, it := range operands {
		if it.HasLocate() && it.IsFull() {
			locators = append(locators, it)
			continue
		}
		merger = it
		count++
	}
	return merger, locators, count == 1 && merger.IsUnique()
}

// lowerSingleMerger lowers the "Position (single)"/"Coordinate
// (single)" loop shapes (spec §4.2 items 4-5): a single sparse operand
// with no other merger to co-iterate against, bounding a plain counted
// loop directly instead of routing through the general merge lattice.
func (l *Lowerer) lowerSingleMerger(f *notation.Forall, merger *iterator.Iterator, locators, results []*iterator.Iterator, el *ExprLowerer, valueType ir.Type) ir.Stmt {
	if merger.HasPosIter() {
		return l.lowerSingleMergerPosition(f, merger, locators, results, el, valueType)
	}
	return l.lowerSingleMergerCoordinate(f, merger, locators, results, el, valueType)
}

// lowerSingleMergerPosition is "Position (single)": `for p in
// posBounds(parent)`, recovering the coordinate at each position via
// posAccess, projecting/guarding it when the axis is windowed (spec
// §4.2 item 4), then locating every other operand/result at the
// recovered coordinate.
func (l *Lowerer) lowerSingleMergerPosition(f *notation.Forall, merger *iterator.Iterator, locators, results []*iterator.Iterator, el *ExprLowerer, valueType ir.Type) ir.Stmt {
	b := merger.PosBounds(valueType)
	posVar := merger.PosVar
	lower := b.Lower

	var setup []ir.Stmt
	if b.Setup != nil {
		setup = append(setup, b.Setup)
	}
	if merger.IsWindowed() {
		searchSetup, start := merger.SearchForStartOfWindowPosition(b.Lower, b.Upper, valueType)
		setup = append(setup, searchSetup)
		lower = start
	}

	if merger.IsMultiPosition() {
		if rle, ok := merger.Format.(multiPositionFormat); ok {
			return l.lowerMultiPositionMerger(f, merger, rle, locators, results, el, valueType, setup, lower, b.Upper)
		}
	}

	saved := saveActiveLeaf(el)
	el.ActiveLeaf[merger.Tensor] = merger

	var body []ir.Stmt
	coordAcc := merger.PosAccess(posVar, valueType)
	if coordAcc.Setup != nil {
		body = append(body, coordAcc.Setup)
	}
	body = append(body, &ir.VarDecl{Var: merger.CoordVar, Init: coordAcc.Result})
	if merger.IsWindowed() {
		body = append(body,
			&ir.IfThenElse{Cond: merger.UpperBoundGuard(merger.CoordVar), Then: &ir.Break{}},
			&ir.IfThenElse{Cond: merger.StrideGuard(merger.CoordVar), Then: &ir.Continue{}},
			&ir.Assign{Lhs: merger.CoordVar, Rhs: merger.ProjectCanonicalSpaceToWindowedPosition(merger.CoordVar)},
		)
	}

	l.ctx.Define(f.Var)
	resolved := merger.CoordVar // l.ctx.CoordVar(f.Var, ...) is this same variable
	for _, it := range locators {
		body = append(body, l.locatorSetup(it, resolved, valueType))
		el.ActiveLeaf[it.Tensor] = it
	}
	body = append(body, l.locateResults(results, resolved, valueType))
	for _, it := range results {
		el.ActiveLeaf[it.Tensor] = it
	}

	inner := l.lower(f.Body)
	l.ctx.Undefine(f.Var)
	restoreActiveLeaf(el, saved)

	body = append(body, inner, l.advanceAppendResults(results))

	loop := &ir.For{
		Var: posVar, Start: lower, Bound: b.Upper,
		Increment: &ir.Literal{Typ: ir.Int64, Val: int64(1)},
		Body:      ir.Blanks(body...), Kind: vectorizeKind(f), Unit: f.Unit, Race: f.Race,
	}
	return ir.Blanks(append(setup, loop)...)
}

// multiPositionFormat is implemented by a mode format whose posAccess
// can return a run of coordinates longer than one per position
// (format.RunLength; spec §4.3 "Multi-position iterators").
type multiPositionFormat interface {
	RunLengthAt(pos ir.Expr) ir.Expr
}

// lowerMultiPositionMerger is the single-merger specialization of the
// "Multi-position iterators" loop shape (spec §4.3): the outer loop
// still steps one position at a time, but each position's run of
// repeated coordinates is handled inside the body rather than one at a
// time by the outer increment. A pure `acc += [alpha *] load` forall
// body collapses the whole run into one multiplication; anything else
// falls back to an inner loop that runs the body once per coordinate
// in the run.
func (l *Lowerer) lowerMultiPositionMerger(f *notation.Forall, merger *iterator.Iterator, rle multiPositionFormat, locators, results []*iterator.Iterator, el *ExprLowerer, valueType ir.Type, setup []ir.Stmt, lower, upper ir.Expr) ir.Stmt {
	posVar := merger.PosVar
	valuesArr := &ir.GetProperty{Tensor: l.ctx.TensorIR(merger.Tensor), Kind: ir.Values}
	runLen := rle.RunLengthAt(posVar)

	state := l.ctx.FillState(merger.Tensor, valueType, 1)
	setup = append(setup, &ir.VarDecl{Var: state.FillVar, Init: el.LowerExpr(merger.Tensor.FillValue)})

	saved := saveActiveLeaf(el)
	el.ActiveLeaf[merger.Tensor] = merger

	var body []ir.Stmt
	coordAcc := merger.PosAccess(posVar, valueType)
	if coordAcc.Setup != nil {
		body = append(body, coordAcc.Setup)
	}
	body = append(body, &ir.VarDecl{Var: merger.CoordVar, Init: coordAcc.Result})
	body = append(body, fillregion.UpdateFillVars(merger, state, &ir.Load{Arr: valuesArr, Index: posVar}, nil))

	l.ctx.Define(f.Var)
	accVar, alpha, collapses := l.reductionOverMerger(f.Body, f.Var, merger)
	if collapses {
		if alpha == nil {
			body = append(body, fillregion.ConstantRunAccumulate(accVar, &ir.Literal{Typ: valueType, Val: oneValue(valueType)}, runLen, state.FillVar))
		} else {
			body = append(body, fillregion.CollapseMultiplyAccumulate(accVar, el.LowerExpr(alpha), runLen, &ir.Load{Arr: valuesArr, Index: posVar}))
		}
	} else {
		// General path: no single pure-reduction shape to collapse, so
		// the run is unrolled one coordinate at a time (spec §4.3, "an
		// inner for-loop... that applies the body once per step, then
		// decrement[s] the counts").
		step := &ir.Var{Name: l.ctx.freshName(merger.Tensor.Name + "_run_i"), Typ: ir.Int64}
		runCoord := &ir.Add{X: merger.CoordVar, Y: step}
		var inner []ir.Stmt
		inner = append(inner, &ir.Assign{Lhs: merger.CoordVar, Rhs: runCoord})
		for _, it := range locators {
			inner = append(inner, l.locatorSetup(it, merger.CoordVar, valueType))
			el.ActiveLeaf[it.Tensor] = it
		}
		inner = append(inner, l.locateResults(results, merger.CoordVar, valueType))
		for _, it := range results {
			el.ActiveLeaf[it.Tensor] = it
		}
		inner = append(inner, l.lower(f.Body), l.advanceAppendResults(results))
		body = append(body, &ir.For{
			Var: step, Start: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Bound: runLen,
			Increment: &ir.Literal{Typ: ir.Int64, Val: int64(1)}, Body: ir.Blanks(inner...),
		})
	}
	l.ctx.Undefine(f.Var)
	restoreActiveLeaf(el, saved)

	loop := &ir.For{
		Var: posVar, Start: lower, Bound: upper,
		Increment: &ir.Literal{Typ: ir.Int64, Val: int64(1)},
		Body:      ir.Blanks(body...), Kind: vectorizeKind(f), Unit: f.Unit, Race: f.Race,
	}
	return ir.Blanks(append(setup, loop)...)
}

// reductionOverMerger reports whether forall's body is exactly a
// scalar accumulation fed by merger's own access, optionally scaled by
// a factor that does not itself vary with v — the shape spec §4.3
// collapses a whole multi-position run into a single update for
// ("When the body is a single pure reduction acc += alpha * load,
// collapse the inner loop into a single multiplication"). alpha is nil
// for a plain `acc += load` sum.
func (l *Lowerer) reductionOverMerger(body notation.Stmt, v *notation.IndexVar, merger *iterator.Iterator) (accVar *ir.Var, alpha notation.Expr, ok bool) {
	a, isAssign := body.(*notation.Assignment)
	if !isAssign || a.Lhs.Tensor.Order != 0 || a.Op == nil || a.Op.Name != "+" {
		return nil, nil, false
	}
	matchesMerger := func(e notation.Expr) bool {
		ae, isAccess := e.(*notation.AccessExpr)
		return isAccess && ae.Access.Tensor == merger.Tensor
	}
	switch rhs := a.Rhs.(type) {
	case *notation.AccessExpr:
		if !matchesMerger(rhs) {
			return nil, nil, false
		}
		return l.ctx.TensorIR(a.Lhs.Tensor), nil, true
	case *notation.Mul:
		switch {
		case matchesMerger(rhs.X) && !exprDependsOnVar(rhs.Y, v):
			return l.ctx.TensorIR(a.Lhs.Tensor), rhs.Y, true
		case matchesMerger(rhs.Y) && !exprDependsOnVar(rhs.X, v):
			return l.ctx.TensorIR(a.Lhs.Tensor), rhs.X, true
		}
	}
	return nil, nil, false
}

// exprDependsOnVar reports whether e reads v's coordinate, either
// through an access indexed by v or a bare IndexVarExpr{Var: v} —
// the condition reductionOverMerger uses to refuse collapsing a factor
// that actually varies across the run it would otherwise be hoisted
// out of.
func exprDependsOnVar(e notation.Expr, v *notation.IndexVar) bool {
	for _, a := range notation.Accesses(e) {
		for _, av := range a.Vars {
			if av == v {
				return true
			}
		}
	}
	return containsIndexVarExpr(e, v)
}

func containsIndexVarExpr(e notation.Expr, v *notation.IndexVar) bool {
	switch n := e.(type) {
	case *notation.IndexVarExpr:
		return n.Var == v
	case *notation.Neg:
		return containsIndexVarExpr(n.X, v)
	case *notation.Sqrt:
		return containsIndexVarExpr(n.X, v)
	case *notation.Cast:
		return containsIndexVarExpr(n.X, v)
	case *notation.Add:
		return containsIndexVarExpr(n.X, v) || containsIndexVarExpr(n.Y, v)
	case *notation.Sub:
		return containsIndexVarExpr(n.X, v) || containsIndexVarExpr(n.Y, v)
	case *notation.Mul:
		return containsIndexVarExpr(n.X, v) || containsIndexVarExpr(n.Y, v)
	case *notation.Div:
		return containsIndexVarExpr(n.X, v) || containsIndexVarExpr(n.Y, v)
	case *notation.CallIntrinsic:
		for _, arg := range n.Args {
			if containsIndexVarExpr(arg, v) {
				return true
			}
		}
	case *notation.Call:
		for _, arg := range n.Args {
			if containsIndexVarExpr(arg, v) {
				return true
			}
		}
	case *notation.Reduction:
		return containsIndexVarExpr(n.Arg, v)
	}
	return false
}

// oneValue returns typ's multiplicative identity as a literal value,
// used as reductionOverMerger's implicit alpha for a plain sum.
func oneValue(typ ir.Type) any {
	switch typ {
	case ir.Float32, ir.Float64:
		return 1.0
	case ir.Complex64, ir.Complex128:
		return complex(1, 0)
	default:
		return int64(1)
	}
}

// lowerSingleMergerCoordinate is "Coordinate (single)": `for c in
// coordBounds(parent)`, mapping each logical coordinate directly to a
// position via coordAccess. No concrete mode format in this module
// sets hasCoordIter without hasPosIter, so this path exists for
// completeness against a future coordinate-only format rather than
// any seed scenario.
func (l *Lowerer) lowerSingleMergerCoordinate(f *notation.Forall, merger *iterator.Iterator, locators, results []*iterator.Iterator, el *ExprLowerer, valueType ir.Type) ir.Stmt {
	b := merger.CoordBounds(valueType)
	coordVar := merger.CoordVar

	var setup []ir.Stmt
	if b.Setup != nil {
		setup = append(setup, b.Setup)
	}

	saved := saveActiveLeaf(el)
	el.ActiveLeaf[merger.Tensor] = merger

	var body []ir.Stmt
	posAcc := merger.CoordAccess(coordVar, valueType)
	if posAcc.Setup != nil {
		body = append(body, posAcc.Setup)
	}
	body = append(body, &ir.VarDecl{Var: merger.PosVar, Init: posAcc.Result})

	l.ctx.Define(f.Var)
	resolved := coordVar
	for _, it := range locators {
		body = append(body, l.locatorSetup(it, resolved, valueType))
		el.ActiveLeaf[it.Tensor] = it
	}
	body = append(body, l.locateResults(results, resolved, valueType))
	for _, it := range results {
		el.ActiveLeaf[it.Tensor] = it
	}

	inner := l.lower(f.Body)
	l.ctx.Undefine(f.Var)
	restoreActiveLeaf(el, saved)

	body = append(body, inner, l.advanceAppendResults(results))

	loop := &ir.For{
		Var: coordVar, Start: b.Lower, Bound: b.Upper,
		Increment: &ir.Literal{Typ: ir.Int64, Val: int64(1)},
		Body:      ir.Blanks(body...), Kind: vectorizeKind(f), Unit: f.Unit, Race: f.Race,
	}
	return ir.Blanks(append(setup, loop)...)
}

// unionSemiring reports whether the innermost assignment this forall
// eventually reaches combines operands additively (spec §8 scenario
// 3) rather than multiplicatively — the former needs a Union lattice
// so that any subset of the sparse operands may be present, the
// latter an Intersection lattice requiring all of them.
func unionSemiring(s notation.Stmt) bool {
	switch n := s.(type) {
	case *notation.Assignment:
		_, isAdd := n.Rhs.(*notation.Add)
		return isAdd
	case *notation.Forall:
		return unionSemiring(n.Body)
	case *notation.Where:
		return unionSemiring(n.Consumer)
	case *notation.Multi:
		for _, c := range n.Stmts {
			if unionSemiring(c) {
				return true
			}
		}
		return false
	case *notation.Sequence:
		if len(n.Stmts) == 0 {
			return false
		}
		return unionSemiring(n.Stmts[len(n.Stmts)-1])
	case *notation.SuchThat:
		return unionSemiring(n.Stmt)
	case *notation.Assemble:
		return unionSemiring(n.Stmt)
	default:
		return false
	}
}

func (l *Lowerer) buildLattice(f *notation.Forall, operands, results []*iterator.Iterator) *lattice.MergeLattice {
	if unionSemiring(f.Body) {
		return lattice.Union(operands, results)
	}
	return lattice.Intersection(operands, results)
}

func (l *Lowerer) valueTypeFor(operands, results []*iterator.Iterator) ir.Type {
	if len(results) > 0 {
		return l.tensorValueType(results[0].Tensor)
	}
	if len(operands) > 0 {
		return l.tensorValueType(operands[0].Tensor)
	}
	return ir.Float64
}

// lowerDimension lowers a forall over an IndexVar none of whose
// operands/results are sparse at this level (spec §4.2 item 3): a
// plain counted loop over the dimension, locating every operand by
// the loop coordinate (dense levels answer Locate in O(1)).
func (l *Lowerer) lowerDimension(f *notation.Forall, operands, results []*iterator.Iterator, el *ExprLowerer) ir.Stmt {
	all := append(append([]*iterator.Iterator{}, operands...), results...)
	dim := l.dimensionExpr(f.Var, all)
	loopVar := l.ctx.CoordVar(f.Var, ir.Int64)

	var setup []ir.Stmt
	saved := saveActiveLeaf(el)
	for _, it := range all {
		if it.Result && it.HasAppend() {
			// Append-capable results carry a persistent, header-
			// initialized position counter (see iteratorsFor) rather
			// than one Locate can resolve from the loop coordinate.
			el.ActiveLeaf[it.Tensor] = it
			continue
		}
		lr := it.Locate(loopVar, l.tensorValueType(it.Tensor))
		setup = append(setup, lr.Setup, &ir.VarDecl{Var: it.PosVar, Init: lr.Pos})
		el.ActiveLeaf[it.Tensor] = it
	}

	l.ctx.Define(f.Var)
	inner := l.lower(f.Body)
	l.ctx.Undefine(f.Var)
	restoreActiveLeaf(el, saved)

	body := ir.Blanks(append(setup, inner, l.advanceAppendResults(results))...)
	return &ir.For{
		Var: loopVar, Start: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Bound: dim,
		Increment: &ir.Literal{Typ: ir.Int64, Val: int64(1)},
		Body:      body, Kind: vectorizeKind(f), Unit: f.Unit, Race: f.Race,
	}
}

// lowerFusedPosition lowers a forall over a Fuse-derived IndexVar: the
// fused variable is itself a flat position counter shared by every
// fused ancestor's storage, so the loop walks 0..bound directly and
// recovers each ancestor as newly defined without the generic
// provenance.Recoverable path (spec §4.2 item 1).
func (l *Lowerer) lowerFusedPosition(f *notation.Forall, operands, results []*iterator.Iterator, el *ExprLowerer) ir.Stmt {
	deriv := l.ctx.Graph.DerivationOf(f.Var)
	all := append(append([]*iterator.Iterator{}, operands...), results...)
	bound := l.fusedBound(all)
	posVar := l.ctx.CoordVar(f.Var, ir.Int64)

	var setup []ir.Stmt
	saved := saveActiveLeaf(el)
	for _, it := range all {
		setup = append(setup, &ir.VarDecl{Var: it.PosVar, Init: posVar})
		el.ActiveLeaf[it.Tensor] = it
	}

	l.ctx.Define(f.Var)
	if deriv != nil {
		for _, anc := range deriv.Ancestors {
			l.ctx.DefineRecovered(anc)
		}
	}
	inner := l.lower(f.Body)
	l.ctx.Undefine(f.Var)
	restoreActiveLeaf(el, saved)

	body := ir.Blanks(append(setup, inner)...)
	return &ir.For{
		Var: posVar, Start: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Bound: bound,
		Increment: &ir.Literal{Typ: ir.Int64, Val: int64(1)},
		Body:      body, Kind: vectorizeKind(f), Unit: f.Unit, Race: f.Race,
	}
}

func (l *Lowerer) fusedBound(all []*iterator.Iterator) ir.Expr {
	for _, it := range all {
		b := it.PosBounds(l.tensorValueType(it.Tensor))
		if b.Upper != nil {
			return b.Upper
		}
	}
	panic(internalf(nil, "fused position loop has no iterator to supply a bound"))
}

func (l *Lowerer) dimensionExpr(v *notation.IndexVar, all []*iterator.Iterator) ir.Expr {
	if d := l.ctx.Dim(v); d != nil {
		return d
	}
	for _, it := range all {
		b := it.CoordBounds(l.tensorValueType(it.Tensor))
		if b.Upper != nil {
			l.ctx.SetDim(v, b.Upper)
			return b.Upper
		}
	}
	panic(internalf(v, "no operand or result iterator could supply a dimension for index var %q", v.Name))
}

// generateAppendPositions finalizes every append-capable result's
// segment once this level's loop has produced all of its children
// (spec §4.2, "generateAppendPositions runs at the end of all six
// loop shapes").
func (l *Lowerer) generateAppendPositions(results []*iterator.Iterator) ir.Stmt {
	var out []ir.Stmt
	for _, it := range results {
		if it.HasAppend() {
			out = append(out, it.AppendEdges(it.ParentPosExpr(), it.PosVar, l.tensorValueType(it.Tensor)))
		}
	}
	return ir.Blanks(out...)
}

// vectorizeKind tags a For loop Vectorized when the forall requested
// it. Real vectorization would additionally clone the body into a
// guarded remainder loop for non-multiple-of-width bounds; that
// transform has no bearing on any of the loop shapes' semantics and
// is left to the backend this package treats as external (spec §9).
func vectorizeKind(f *notation.Forall) ir.LoopKind {
	if f.Vectorize {
		return ir.Vectorized
	}
	return ir.Serial
}

func saveActiveLeaf(el *ExprLowerer) map[*notation.TensorVar]*iterator.Iterator {
	saved := make(map[*notation.TensorVar]*iterator.Iterator, len(el.ActiveLeaf))
	for t, it := range el.ActiveLeaf {
		saved[t] = it
	}
	return saved
}

func restoreActiveLeaf(el *ExprLowerer, saved map[*notation.TensorVar]*iterator.Iterator) {
	el.ActiveLeaf = saved
}
