package notation

// StmtVisitor dispatches on an IndexStmt's concrete kind. Visit routes
// stmt to the matching method; callers that only care about a subset
// embed a no-op base and override what they need.
type StmtVisitor interface {
	VisitAssignment(*Assignment)
	VisitForall(*Forall)
	VisitWhere(*Where)
	VisitMulti(*Multi)
	VisitSequence(*Sequence)
	VisitSuchThat(*SuchThat)
	VisitAssemble(*Assemble)
	VisitYield(*Yield)
}

// VisitStmt dispatches stmt to the matching method of v.
func VisitStmt(v StmtVisitor, stmt Stmt) {
	switch s := stmt.(type) {
	case *Assignment:
		v.VisitAssignment(s)
	case *Forall:
		v.VisitForall(s)
	case *Where:
		v.VisitWhere(s)
	case *Multi:
		v.VisitMulti(s)
	case *Sequence:
		v.VisitSequence(s)
	case *SuchThat:
		v.VisitSuchThat(s)
	case *Assemble:
		v.VisitAssemble(s)
	case *Yield:
		v.VisitYield(s)
	default:
		panic("notation: unhandled Stmt kind")
	}
}

// ExprVisitor dispatches on an IndexExpr's concrete kind.
type ExprVisitor interface {
	VisitAccess(*AccessExpr) any
	VisitLiteral(*Literal) any
	VisitNeg(*Neg) any
	VisitAdd(*Add) any
	VisitSub(*Sub) any
	VisitMul(*Mul) any
	VisitDiv(*Div) any
	VisitSqrt(*Sqrt) any
	VisitCast(*Cast) any
	VisitCallIntrinsic(*CallIntrinsic) any
	VisitCall(*Call) any
	VisitReduction(*Reduction) any
	VisitIndexVarExpr(*IndexVarExpr) any
}

// VisitExpr dispatches expr to the matching method of v and returns
// its result.
func VisitExpr(v ExprVisitor, expr Expr) any {
	switch e := expr.(type) {
	case *AccessExpr:
		return v.VisitAccess(e)
	case *Literal:
		return v.VisitLiteral(e)
	case *Neg:
		return v.VisitNeg(e)
	case *Add:
		return v.VisitAdd(e)
	case *Sub:
		return v.VisitSub(e)
	case *Mul:
		return v.VisitMul(e)
	case *Div:
		return v.VisitDiv(e)
	case *Sqrt:
		return v.VisitSqrt(e)
	case *Cast:
		return v.VisitCast(e)
	case *CallIntrinsic:
		return v.VisitCallIntrinsic(e)
	case *Call:
		return v.VisitCall(e)
	case *Reduction:
		return v.VisitReduction(e)
	case *IndexVarExpr:
		return v.VisitIndexVarExpr(e)
	default:
		panic("notation: unhandled Expr kind")
	}
}

// Accesses collects every AccessExpr reachable from expr, in tree
// order, used to locate "an access that uses" an IndexVar when
// computing its dimension (spec §4.1 step 4).
func Accesses(expr Expr) []Access {
	var out []Access
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case *AccessExpr:
			out = append(out, n.Access)
		case *Neg:
			walk(n.X)
		case *Sqrt:
			walk(n.X)
		case *Cast:
			walk(n.X)
		case *Add:
			walk(n.X)
			walk(n.Y)
		case *Sub:
			walk(n.X)
			walk(n.Y)
		case *Mul:
			walk(n.X)
			walk(n.Y)
		case *Div:
			walk(n.X)
			walk(n.Y)
		case *CallIntrinsic:
			for _, a := range n.Args {
				walk(a)
			}
		case *Call:
			for _, a := range n.Args {
				walk(a)
			}
		case *Reduction:
			walk(n.Arg)
		}
	}
	walk(expr)
	return out
}

// StmtAccesses collects every AccessExpr reachable from a statement's
// expressions (the Rhs of Assignments beneath it), in tree order.
func StmtAccesses(stmt Stmt) []Access {
	var out []Access
	var walk func(Stmt)
	walk = func(s Stmt) {
		switch n := s.(type) {
		case *Assignment:
			out = append(out, n.Lhs)
			out = append(out, Accesses(n.Rhs)...)
		case *Forall:
			walk(n.Body)
		case *Where:
			walk(n.Producer)
			walk(n.Consumer)
		case *Multi:
			for _, c := range n.Stmts {
				walk(c)
			}
		case *Sequence:
			for _, c := range n.Stmts {
				walk(c)
			}
		case *SuchThat:
			walk(n.Stmt)
		case *Assemble:
			walk(n.Stmt)
		case *Yield:
			out = append(out, Accesses(n.Expr)...)
		}
	}
	walk(stmt)
	return out
}
