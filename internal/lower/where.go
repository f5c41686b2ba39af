package lower

import (
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// lowerWhere lowers a Where: allocate the temporary, lower the
// producer writing into it, optionally sort its touched-coordinate
// list, then lower the consumer reading it (spec §4.5).
func (l *Lowerer) lowerWhere(w *notation.Where) ir.Stmt {
	accelerate := w.Temp.Order == 1 &&
		!l.ctx.InParallel() &&
		singleOperandCount(w.Producer, w.Temp) == 1 &&
		consumerResultIsSparse(w.Consumer)

	ws, setup := l.allocateWorkspace(w.Temp, accelerate)
	l.workspaces[w.Temp] = ws
	defer delete(l.workspaces, w.Temp)

	var pre []ir.Stmt
	if l.ctx.InParallel() || !accelerate {
		// A plain dense workspace does not track which entries were
		// touched, so a producer that may leave entries unwritten this
		// time through the enclosing loop needs a zeroing pass first
		// (spec §4.5, "conditional zero-init loop"; spec §8 scenario 4).
		pre = append(pre, l.zeroInitLoop(ws, w.Temp))
	}

	producer := l.lower(w.Producer)

	var sort ir.Stmt
	if accelerate && resultNeedsOrderedIndexList(w.Consumer) {
		// The consumer's result mode requires coordinates in order but
		// the index list was appended in whatever order the producer
		// visited them, so it must be sorted before the consumer walks
		// it (spec §4.5, "If the result must be ordered, insert a sort
		// call over the index list between producer and consumer").
		sort = &ir.Sort{Arrays: []ir.Expr{ws.IndexList}, Arity: 1}
	}

	var consumer ir.Stmt
	if accelerate {
		consumer = l.lowerAcceleratedConsumer(w, ws)
	} else {
		consumer = l.lower(w.Consumer)
	}

	return ir.Blanks(append(append(append(append(setup, pre...), producer), sort), consumer)...)
}

// lowerAcceleratedConsumer implements the "Dense acceleration" loop
// shape (spec §4.2 item 2) for a Where's consumer: rather than
// scanning the temporary's whole dense dimension, it walks exactly the
// coordinates the producer's bit-guard recorded, resetting each guard
// bit as it goes so the workspace is clean for the enclosing loop's
// next iteration.
func (l *Lowerer) lowerAcceleratedConsumer(w *notation.Where, ws *Workspace) ir.Stmt {
	fa, ok := w.Consumer.(*notation.Forall)
	assert(ok, w, "dense-acceleratable consumer must be a forall over the workspace's coordinate")

	k := &ir.Var{Name: l.ctx.freshName(w.Temp.Name + "_k"), Typ: ir.Int64}
	coordVar := l.ctx.CoordVar(fa.Var, ir.Int64)
	posVar := l.ctx.PosVar(w.Temp, fa.Var)

	_, results := l.collectLevelIterators(fa)

	saved := saveActiveLeaf(l.el)
	its := l.iteratorsFor(notation.Access{Tensor: w.Temp, Vars: []*notation.IndexVar{fa.Var}}, false)
	l.el.ActiveLeaf[w.Temp] = its[0]
	var resultSetup []ir.Stmt
	for _, rit := range results {
		if rit.HasLocate() {
			lr := rit.Locate(coordVar, l.tensorValueType(rit.Tensor))
			resultSetup = append(resultSetup, lr.Setup, &ir.VarDecl{Var: rit.PosVar, Init: lr.Pos})
		}
		l.el.ActiveLeaf[rit.Tensor] = rit
	}

	l.ctx.Define(fa.Var)
	body := l.lower(fa.Body)
	l.ctx.Undefine(fa.Var)
	restoreActiveLeaf(l.el, saved)

	loopBody := ir.Blanks(
		&ir.VarDecl{Var: coordVar, Init: &ir.Load{Arr: ws.IndexList, Index: k}},
		&ir.Assign{Lhs: posVar, Rhs: coordVar},
		ir.Blanks(resultSetup...),
		body,
		l.generateAppendPositions(results),
		&ir.Store{Arr: ws.BitGuard, Index: coordVar, Value: &ir.Literal{Typ: ir.Bool, Val: false}},
	)
	return &ir.For{
		Var: k, Start: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Bound: ws.IndexSize,
		Increment: &ir.Literal{Typ: ir.Int64, Val: int64(1)}, Body: loopBody,
	}
}

// singleOperandCount counts the distinct tensors (other than temp)
// read by stmt, used to recognise the "one RHS access" condition of
// the dense-acceleratable path.
func singleOperandCount(stmt notation.Stmt, temp *notation.TensorVar) int {
	seen := map[*notation.TensorVar]bool{}
	for _, r := range collectRoleAccesses(stmt) {
		if !r.result && r.access.Tensor != temp {
			seen[r.access.Tensor] = true
		}
	}
	return len(seen)
}

// consumerResultIsSparse reports whether the first assignment reached
// in stmt writes a tensor whose outermost mode can append — the
// condition under which collecting only touched coordinates (rather
// than scanning the whole dense range) pays off.
func consumerResultIsSparse(stmt notation.Stmt) bool {
	a := firstAssignment(stmt)
	if a == nil || len(a.Lhs.Tensor.Modes) == 0 {
		return false
	}
	return a.Lhs.Tensor.Modes[0].Format.Capabilities().HasAppend
}

// resultNeedsOrderedIndexList reports whether the first result tensor
// stmt writes declares its outermost mode ordered, the condition under
// which an accelerated Where's index list needs sorting before the
// consumer reads it.
func resultNeedsOrderedIndexList(stmt notation.Stmt) bool {
	a := firstAssignment(stmt)
	if a == nil || len(a.Lhs.Tensor.Modes) == 0 {
		return false
	}
	return a.Lhs.Tensor.Modes[0].Format.Capabilities().IsOrdered
}

func firstAssignment(s notation.Stmt) *notation.Assignment {
	switch n := s.(type) {
	case *notation.Assignment:
		return n
	case *notation.Forall:
		return firstAssignment(n.Body)
	case *notation.Where:
		return firstAssignment(n.Consumer)
	case *notation.Multi:
		for _, c := range n.Stmts {
			if a := firstAssignment(c); a != nil {
				return a
			}
		}
	case *notation.Sequence:
		for _, c := range n.Stmts {
			if a := firstAssignment(c); a != nil {
				return a
			}
		}
	case *notation.SuchThat:
		return firstAssignment(n.Stmt)
	case *notation.Assemble:
		return firstAssignment(n.Stmt)
	}
	return nil
}
