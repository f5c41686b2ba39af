package lower

import (
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/iterator"
	"github.com/tensorcomp/lowerer/internal/lattice"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// lowerGeneralMerge lowers one forall level's body as a full merge
// lattice walk (the "General merge" loop shape, spec §4.2 item 6):
// one while loop per lattice point, most-constrained first, each
// point's own rangers bounding how long it runs. The first (fullest)
// point's body carries the complete case tree distinguishing every
// sub-point that can occur while every operand remains in range;
// later points only run once earlier operands have exhausted, so
// their body is a single unconditional arm (spec §4.3 items 1-6).
func (l *Lowerer) lowerGeneralMerge(v *notation.IndexVar, lat *lattice.MergeLattice, body notation.Stmt, el *ExprLowerer, valueType ir.Type) ir.Stmt {
	setup := l.setupMergers(lat, valueType)

	var loops []ir.Stmt
	for i, point := range lat.Points {
		cond := l.rangersInBoundsCond(point.Rangers)
		var loopBody ir.Stmt
		if i == 0 {
			loopBody = l.lowerMergePointArms(lat.Points, point, v, body, el, valueType)
		} else {
			loopBody = l.lowerSingleArm(point, v, body, el, valueType)
		}
		loops = append(loops, &ir.While{Cond: cond, Body: loopBody})
	}
	return ir.Blanks(append(setup, loops...)...)
}

// setupMergers declares and initializes the position/end-bound
// variables for every merger appearing anywhere in the lattice, once,
// before any of the lattice's while loops run. A windowed merger's
// PosBounds always returns the unwindowed segment's full edges, so its
// starting position is corrected by a binary search for the first
// stored coordinate at or past the window's lower bound (spec §8
// "Windowed axis"); without it, co-iteration would begin at the
// segment's true start and run through entries the window excludes.
func (l *Lowerer) setupMergers(lat *lattice.MergeLattice, valueType ir.Type) []ir.Stmt {
	var setup []ir.Stmt
	for _, it := range lat.AllMergers() {
		b := it.PosBounds(valueType)
		setup = append(setup, b.Setup)
		lower := b.Lower
		if it.IsWindowed() {
			searchSetup, start := it.SearchForStartOfWindowPosition(b.Lower, b.Upper, valueType)
			setup = append(setup, searchSetup)
			lower = start
		}
		setup = append(setup, &ir.VarDecl{Var: it.PosVar, Init: lower})
		setup = append(setup, &ir.VarDecl{Var: l.ctx.EndVar(it.Tensor, it.IndexVar), Init: b.Upper})
	}
	return setup
}

func (l *Lowerer) rangersInBoundsCond(rangers []*iterator.Iterator) ir.Expr {
	var cond ir.Expr
	for _, it := range rangers {
		c := ir.Expr(&ir.Lt{X: it.PosVar, Y: l.ctx.EndVar(it.Tensor, it.IndexVar)})
		cond = andExpr(cond, c)
	}
	if cond == nil {
		return &ir.Literal{Typ: ir.Bool, Val: false}
	}
	return cond
}

// loadCoordinate loads one merger's coordinate at its current
// position. A windowed merger additionally guards the raw (canonical-
// space) coordinate against the window's upper bound and stride before
// reprojecting it into windowed-position space, so the surrounding
// while loop naturally stops or skips stored coordinates the window
// excludes (spec §4.2 item 4, §8 "Windowed axis").
func (l *Lowerer) loadCoordinate(it *iterator.Iterator, valueType ir.Type) ir.Stmt {
	acc := it.PosAccess(it.PosVar, valueType)
	decl := &ir.VarDecl{Var: it.CoordVar, Init: acc.Result}
	if !it.IsWindowed() {
		return ir.Blanks(acc.Setup, decl)
	}
	guardBreak := &ir.IfThenElse{Cond: it.UpperBoundGuard(it.CoordVar), Then: &ir.Break{}}
	guardSkip := &ir.IfThenElse{Cond: it.StrideGuard(it.CoordVar), Then: &ir.Continue{}}
	project := &ir.Assign{Lhs: it.CoordVar, Rhs: it.ProjectCanonicalSpaceToWindowedPosition(it.CoordVar)}
	return ir.Blanks(acc.Setup, decl, guardBreak, guardSkip, project)
}

// dedupAccumulate emits the repeated-coordinate accumulation loop for
// a non-unique merger (spec §4.3 item 5): it sums every stored value
// at the current coordinate into a fresh scalar and registers that
// scalar as the access's reduced value, so the expression lowerer
// reads it instead of issuing its own Load.
func (l *Lowerer) dedupAccumulate(it *iterator.Iterator, el *ExprLowerer, valueType ir.Type) ir.Stmt {
	if it.IsUnique() {
		return nil
	}
	accVar := &ir.Var{Name: l.ctx.freshName(it.Tensor.Name + "_dup_acc"), Typ: valueType}
	valuesArr := &ir.GetProperty{Tensor: l.ctx.TensorIR(it.Tensor), Kind: ir.Values}
	init := &ir.VarDecl{Var: accVar, Init: &ir.Load{Arr: valuesArr, Index: it.PosVar}}

	advance := &ir.Assign{Lhs: it.PosVar, Rhs: &ir.Add{X: it.PosVar, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}}
	nextPos := &ir.Add{X: it.PosVar, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}
	nextCoord := it.PosAccess(nextPos, valueType).Result
	loopCond := andExpr(
		&ir.Lt{X: nextPos, Y: l.ctx.EndVar(it.Tensor, it.IndexVar)},
		&ir.Eq{X: nextCoord, Y: it.CoordVar},
	)
	accumulate := &ir.Assign{Lhs: accVar, Rhs: &ir.Add{X: accVar, Y: &ir.Load{Arr: valuesArr, Index: it.PosVar}}}
	loop := &ir.While{Cond: loopCond, Body: ir.Blanks(advance, accumulate)}

	el.SetReducedValueVar(it.Access, accVar)
	return ir.Blanks(init, loop, advance)
}

func (l *Lowerer) locatorSetup(it *iterator.Iterator, coord ir.Expr, valueType ir.Type) ir.Stmt {
	lr := it.Locate(coord, valueType)
	return ir.Blanks(lr.Setup, &ir.VarDecl{Var: it.PosVar, Init: lr.Pos})
}

// resolveCoordinate declares v's coordinate variable as the minimum
// of the current point's mergers' loaded coordinates (a single
// merger needs no comparison, spec §4.3 item 2).
func (l *Lowerer) resolveCoordinate(v *notation.IndexVar, mergers []*iterator.Iterator) ir.Stmt {
	cv := l.ctx.CoordVar(v, ir.Int64)
	if len(mergers) == 1 {
		return &ir.Assign{Lhs: cv, Rhs: mergers[0].CoordVar}
	}
	args := make([]ir.Expr, len(mergers))
	for i, it := range mergers {
		args[i] = it.CoordVar
	}
	return &ir.Assign{Lhs: cv, Rhs: &ir.Min{Args: args}}
}

// lowerMergePointArms builds the full case tree for the lattice's
// most-constrained point: one clause per lattice point (including
// itself), firing exactly when that point's mergers equal the
// resolved coordinate and every other merger omitted from it does
// not (spec §4.3 item 6).
func (l *Lowerer) lowerMergePointArms(allPoints []lattice.MergePoint, point0 lattice.MergePoint, v *notation.IndexVar, body notation.Stmt, el *ExprLowerer, valueType ir.Type) ir.Stmt {
	var pre []ir.Stmt
	for _, it := range point0.Mergers {
		pre = append(pre, l.loadCoordinate(it, valueType))
		pre = append(pre, l.dedupAccumulate(it, el, valueType))
	}
	pre = append(pre, l.resolveCoordinate(v, point0.Mergers))
	l.ctx.Define(v)
	resolved := l.ctx.CoordVar(v, ir.Int64)
	for _, it := range point0.Locators {
		pre = append(pre, l.locatorSetup(it, resolved, valueType))
	}
	pre = append(pre, l.locateResults(point0.Results, resolved, valueType))

	clauses := make([]ir.CaseClause, 0, len(allPoints))
	for _, p := range allPoints {
		var cond ir.Expr
		for _, it := range point0.Mergers {
			if containsIterator(p.Mergers, it) {
				cond = andExpr(cond, &ir.Eq{X: it.CoordVar, Y: resolved})
			} else {
				cond = andExpr(cond, &ir.Neq{X: it.CoordVar, Y: resolved})
			}
		}
		clauses = append(clauses, ir.CaseClause{Cond: cond, Body: ir.Blanks(l.runArm(p, body, el), l.advanceAppendResults(point0.Results))})
	}

	// When the lattice lacks a point for some subset of the mergers (an
	// Intersection has only the all-mergers point), the default arm
	// advances each unique merger sitting at the resolved coordinate.
	caseStmt := &ir.Case{Clauses: clauses, AlwaysMatch: len(allPoints) == (1<<len(point0.Mergers))-1}
	if !caseStmt.AlwaysMatch {
		var skip []ir.Stmt
		for _, it := range point0.Mergers {
			if it.IsUnique() {
				step := &ir.Assign{Lhs: it.PosVar, Rhs: &ir.Add{X: it.PosVar, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}}
				skip = append(skip, &ir.IfThenElse{Cond: &ir.Eq{X: it.CoordVar, Y: resolved}, Then: step})
			}
		}
		caseStmt.Default = ir.Blanks(skip...)
	}
	l.ctx.Undefine(v)

	return ir.Blanks(append(pre, caseStmt)...)
}

// lowerSingleArm lowers a lattice point reached only after every
// operand outside it has already exhausted: no coordinate comparison
// is needed, its mergers are unconditionally the surviving iterators.
func (l *Lowerer) lowerSingleArm(point lattice.MergePoint, v *notation.IndexVar, body notation.Stmt, el *ExprLowerer, valueType ir.Type) ir.Stmt {
	var pre []ir.Stmt
	for _, it := range point.Mergers {
		pre = append(pre, l.loadCoordinate(it, valueType))
		pre = append(pre, l.dedupAccumulate(it, el, valueType))
	}
	pre = append(pre, l.resolveCoordinate(v, point.Mergers))
	l.ctx.Define(v)
	resolved := l.ctx.CoordVar(v, ir.Int64)
	for _, it := range point.Locators {
		pre = append(pre, l.locatorSetup(it, resolved, valueType))
	}
	pre = append(pre, l.locateResults(point.Results, resolved, valueType))

	armBody := l.runArm(point, body, el)
	post := l.advanceAppendResults(point.Results)
	l.ctx.Undefine(v)

	return ir.Blanks(append(pre, armBody, post)...)
}

// locateResults sets up the position of every locate-capable result in
// results at the coordinate the current merge arm just resolved
// (dense results, e.g. a workspace or a dense result tensor reached
// through a sparse operand's merge). Append-capable results need no
// per-arm setup: their position is the header-initialized running
// counter advanceAppendResults increments once per value written.
func (l *Lowerer) locateResults(results []*iterator.Iterator, resolved ir.Expr, valueType ir.Type) ir.Stmt {
	var out []ir.Stmt
	for _, it := range results {
		if it.HasLocate() {
			out = append(out, l.locatorSetup(it, resolved, valueType))
		}
	}
	return ir.Blanks(out...)
}

// runArm binds ActiveLeaf for exactly the iterators a single lattice
// point makes available, lowers the forall body under that binding,
// then advances every unique merger's position by one (non-unique
// mergers already advanced inside their dedup loop).
func (l *Lowerer) runArm(p lattice.MergePoint, body notation.Stmt, el *ExprLowerer) ir.Stmt {
	saved := make(map[*notation.TensorVar]*iterator.Iterator, len(el.ActiveLeaf))
	for t, it := range el.ActiveLeaf {
		saved[t] = it
	}
	for _, it := range p.Iterators {
		el.ActiveLeaf[it.Tensor] = it
	}
	for _, it := range p.Results {
		el.ActiveLeaf[it.Tensor] = it
	}

	lowered := l.lower(body)

	var advance []ir.Stmt
	for _, it := range p.Mergers {
		if it.IsUnique() {
			advance = append(advance, &ir.Assign{Lhs: it.PosVar, Rhs: &ir.Add{X: it.PosVar, Y: &ir.Literal{Typ: ir.Int64, Val: int64(1)}}})
		}
	}

	el.ActiveLeaf = saved
	return ir.Blanks(lowered, ir.Blanks(advance...))
}

func containsIterator(set []*iterator.Iterator, it *iterator.Iterator) bool {
	for _, x := range set {
		if x == it {
			return true
		}
	}
	return false
}

func andExpr(a, b ir.Expr) ir.Expr {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return &ir.And{X: a, Y: b}
}
