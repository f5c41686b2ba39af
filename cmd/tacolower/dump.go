package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/tensorcomp/lowerer/internal/ir"
)

// dumpFunction writes a lightweight, indentation-based rendering of fn
// to w. This is a debug aid, not the pretty-printer/backend code
// generator the lowering core leaves to external collaborators; it
// exists only so this command has something to show for a lowered
// function.
func dumpFunction(w io.Writer, fn *ir.Function) {
	fmt.Fprintf(w, "func %s(", fn.Name)
	for i, p := range fn.Arguments {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprint(w, paramString(p))
	}
	fmt.Fprint(w, ") (")
	for i, p := range fn.Results {
		if i > 0 {
			fmt.Fprint(w, ", ")
		}
		fmt.Fprint(w, paramString(p))
	}
	fmt.Fprintln(w, ") {")
	dumpStmt(w, fn.Body, 1)
	fmt.Fprintln(w, "}")
}

func paramString(p ir.Param) string {
	s := varString(p.Var)
	if p.IsIndexSet {
		s += " /*index set*/"
	}
	return s
}

func varString(v *ir.Var) string {
	if v == nil {
		return "<nil>"
	}
	if v.IsPtr {
		return fmt.Sprintf("%s *%s", v.Name, v.Typ)
	}
	return fmt.Sprintf("%s %s", v.Name, v.Typ)
}

func indent(w io.Writer, depth int) {
	fmt.Fprint(w, strings.Repeat("    ", depth))
}

func dumpStmt(w io.Writer, s ir.Stmt, depth int) {
	if s == nil {
		return
	}
	switch n := s.(type) {
	case *ir.Block:
		for _, c := range n.Stmts {
			dumpStmt(w, c, depth)
		}
	case *ir.VarDecl:
		indent(w, depth)
		if n.Init == nil {
			fmt.Fprintf(w, "var %s\n", varString(n.Var))
		} else {
			fmt.Fprintf(w, "var %s = %s\n", varString(n.Var), exprString(n.Init))
		}
	case *ir.Assign:
		indent(w, depth)
		fmt.Fprintf(w, "%s = %s\n", n.Lhs.Name, exprString(n.Rhs))
	case *ir.Store:
		indent(w, depth)
		atomic := ""
		if n.Atomic {
			atomic = " /*atomic*/"
		}
		fmt.Fprintf(w, "%s[%s] = %s%s\n", exprString(n.Arr), exprString(n.Index), exprString(n.Value), atomic)
	case *ir.For:
		indent(w, depth)
		fmt.Fprintf(w, "for %s := %s; %s < %s; %s += %s { // kind=%v unit=%v race=%v\n",
			n.Var.Name, exprString(n.Start), n.Var.Name, exprString(n.Bound), n.Var.Name, exprString(n.Increment),
			n.Kind, n.Unit, n.Race)
		dumpStmt(w, n.Body, depth+1)
		indent(w, depth)
		fmt.Fprintln(w, "}")
	case *ir.While:
		indent(w, depth)
		fmt.Fprintf(w, "while %s {\n", exprString(n.Cond))
		dumpStmt(w, n.Body, depth+1)
		indent(w, depth)
		fmt.Fprintln(w, "}")
	case *ir.IfThenElse:
		indent(w, depth)
		fmt.Fprintf(w, "if %s {\n", exprString(n.Cond))
		dumpStmt(w, n.Then, depth+1)
		if n.Else != nil {
			indent(w, depth)
			fmt.Fprintln(w, "} else {")
			dumpStmt(w, n.Else, depth+1)
		}
		indent(w, depth)
		fmt.Fprintln(w, "}")
	case *ir.Case:
		for i, c := range n.Clauses {
			indent(w, depth)
			if i == 0 {
				fmt.Fprintf(w, "case %s {\n", exprString(c.Cond))
			} else {
				fmt.Fprintf(w, "orcase %s {\n", exprString(c.Cond))
			}
			dumpStmt(w, c.Body, depth+1)
			indent(w, depth)
			fmt.Fprintln(w, "}")
		}
		if n.Default != nil {
			indent(w, depth)
			fmt.Fprintln(w, "default {")
			dumpStmt(w, n.Default, depth+1)
			indent(w, depth)
			fmt.Fprintln(w, "}")
		}
	case *ir.Allocate:
		indent(w, depth)
		kind := "allocate"
		if n.IsRealloc {
			kind = "reallocate"
		}
		fmt.Fprintf(w, "%s %s[%s]\n", kind, n.Var.Name, exprString(n.Size))
	case *ir.Free:
		indent(w, depth)
		fmt.Fprintf(w, "free %s\n", n.Var.Name)
	case *ir.CallStmt:
		indent(w, depth)
		fmt.Fprintf(w, "%s(%s)\n", n.Func, exprListString(n.Args))
	case *ir.Break:
		indent(w, depth)
		fmt.Fprintln(w, "break")
	case *ir.Continue:
		indent(w, depth)
		fmt.Fprintln(w, "continue")
	case *ir.Yield:
		indent(w, depth)
		fmt.Fprintf(w, "yield %s\n", exprListString(n.Values))
	case *ir.Sort:
		indent(w, depth)
		fmt.Fprintf(w, "sort(%s, arity=%d)\n", exprListString(n.Arrays), n.Arity)
	default:
		indent(w, depth)
		fmt.Fprintf(w, "<unhandled stmt %T>\n", n)
	}
}

func exprListString(es []ir.Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = exprString(e)
	}
	return strings.Join(parts, ", ")
}

func exprString(e ir.Expr) string {
	switch n := e.(type) {
	case nil:
		return "<nil>"
	case *ir.Var:
		return n.Name
	case *ir.Literal:
		return fmt.Sprintf("%v", n.Val)
	case *ir.Load:
		return fmt.Sprintf("%s[%s]", exprString(n.Arr), exprString(n.Index))
	case *ir.GetProperty:
		return fmt.Sprintf("%s.%v(%d)", exprString(n.Tensor), n.Kind, n.Mode)
	case *ir.Sizeof:
		return fmt.Sprintf("sizeof(%s)", n.Of)
	case *ir.Cast:
		return fmt.Sprintf("%s(%s)", n.To, exprString(n.Value))
	case *ir.Call:
		return fmt.Sprintf("%s(%s)", n.Func, exprListString(n.Args))
	case *ir.Neg:
		return fmt.Sprintf("-%s", exprString(n.X))
	case *ir.Not:
		return fmt.Sprintf("!%s", exprString(n.X))
	case *ir.Add:
		return binString(n.X, "+", n.Y)
	case *ir.Sub:
		return binString(n.X, "-", n.Y)
	case *ir.Mul:
		return binString(n.X, "*", n.Y)
	case *ir.Div:
		return binString(n.X, "/", n.Y)
	case *ir.Rem:
		return binString(n.X, "%", n.Y)
	case *ir.Eq:
		return binString(n.X, "==", n.Y)
	case *ir.Neq:
		return binString(n.X, "!=", n.Y)
	case *ir.Lt:
		return binString(n.X, "<", n.Y)
	case *ir.Lte:
		return binString(n.X, "<=", n.Y)
	case *ir.Gt:
		return binString(n.X, ">", n.Y)
	case *ir.Gte:
		return binString(n.X, ">=", n.Y)
	case *ir.And:
		return binString(n.X, "&&", n.Y)
	case *ir.Or:
		return binString(n.X, "||", n.Y)
	case *ir.Min:
		return fmt.Sprintf("min(%s)", exprListString(n.Args))
	case *ir.Max:
		return fmt.Sprintf("max(%s)", exprListString(n.Args))
	case *ir.Lcm:
		return fmt.Sprintf("lcm(%s, %s)", exprString(n.X), exprString(n.Y))
	default:
		return fmt.Sprintf("<unhandled expr %T>", n)
	}
}

func binString(x ir.Expr, op string, y ir.Expr) string {
	return fmt.Sprintf("(%s %s %s)", exprString(x), op, exprString(y))
}
