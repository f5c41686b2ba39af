package ir

// Inspect calls visit for stmt and recursively for every Stmt and Expr
// it contains, depth-first, stopping a branch early if visit returns
// false. It underlies the §8 structural invariants checked in tests
// (e.g. "every Allocate pairs with a Free").
func Inspect(stmt Stmt, visit func(any) bool) {
	if stmt == nil || !visit(stmt) {
		return
	}
	switch s := stmt.(type) {
	case *Block:
		for _, c := range s.Stmts {
			Inspect(c, visit)
		}
	case *VarDecl:
		if s.Init != nil {
			InspectExpr(s.Init, visit)
		}
	case *Assign:
		InspectExpr(s.Rhs, visit)
	case *Store:
		InspectExpr(s.Arr, visit)
		InspectExpr(s.Index, visit)
		InspectExpr(s.Value, visit)
	case *For:
		InspectExpr(s.Start, visit)
		InspectExpr(s.Bound, visit)
		if s.Increment != nil {
			InspectExpr(s.Increment, visit)
		}
		Inspect(s.Body, visit)
	case *While:
		InspectExpr(s.Cond, visit)
		Inspect(s.Body, visit)
	case *IfThenElse:
		InspectExpr(s.Cond, visit)
		Inspect(s.Then, visit)
		if s.Else != nil {
			Inspect(s.Else, visit)
		}
	case *Case:
		for _, c := range s.Clauses {
			InspectExpr(c.Cond, visit)
			Inspect(c.Body, visit)
		}
		if s.Default != nil {
			Inspect(s.Default, visit)
		}
	case *Allocate:
		InspectExpr(s.Size, visit)
	case *CallStmt:
		for _, a := range s.Args {
			InspectExpr(a, visit)
		}
	case *Yield:
		for _, v := range s.Values {
			InspectExpr(v, visit)
		}
	case *Sort:
		for _, a := range s.Arrays {
			InspectExpr(a, visit)
		}
	case *Function:
		Inspect(s.Body, visit)
	}
}

// InspectExpr is Inspect's counterpart for expression trees.
func InspectExpr(expr Expr, visit func(any) bool) {
	if expr == nil || !visit(expr) {
		return
	}
	switch e := expr.(type) {
	case *Load:
		InspectExpr(e.Arr, visit)
		InspectExpr(e.Index, visit)
	case *GetProperty:
		InspectExpr(e.Tensor, visit)
	case *Cast:
		InspectExpr(e.Value, visit)
	case *Call:
		for _, a := range e.Args {
			InspectExpr(a, visit)
		}
	case *Neg:
		InspectExpr(e.X, visit)
	case *Not:
		InspectExpr(e.X, visit)
	case *Add:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Sub:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Mul:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Div:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Rem:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Lcm:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Min:
		for _, a := range e.Args {
			InspectExpr(a, visit)
		}
	case *Max:
		for _, a := range e.Args {
			InspectExpr(a, visit)
		}
	case *Eq:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Neq:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Lt:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Lte:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Gt:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Gte:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *And:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	case *Or:
		InspectExpr(e.X, visit)
		InspectExpr(e.Y, visit)
	}
}
