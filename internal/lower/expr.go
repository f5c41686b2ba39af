package lower

import (
	"github.com/tensorcomp/lowerer/internal/format"
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/iterator"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// ExprLowerer maps notation.Expr trees to ir.Expr trees (spec §4.4,
// "Expression lowerer"). ActiveLeaf gives, for each tensor currently
// in scope, the innermost iterator whose position resolves that
// tensor's value for the access being lowered; it is populated by the
// merge-point/forall lowering that surrounds one assignment.
type ExprLowerer struct {
	ctx         *Context
	ActiveLeaf  map[*notation.TensorVar]*iterator.Iterator
	reducedVars map[notation.Access]*ir.Var
}

func NewExprLowerer(ctx *Context) *ExprLowerer {
	return &ExprLowerer{ctx: ctx, ActiveLeaf: map[*notation.TensorVar]*iterator.Iterator{}, reducedVars: map[notation.Access]*ir.Var{}}
}

// SetReducedValueVar registers the scalar variable a deduplication
// loop (spec §4.3 item 5) accumulated an access's repeated-coordinate
// values into, so LowerExpr substitutes it instead of re-loading.
func (el *ExprLowerer) SetReducedValueVar(a notation.Access, v *ir.Var) {
	el.reducedVars[a] = v
}

// LowerExpr translates one notation.Expr into an ir.Expr.
func (el *ExprLowerer) LowerExpr(e notation.Expr) ir.Expr {
	switch n := e.(type) {
	case *notation.AccessExpr:
		return el.lowerAccess(n.Access)
	case *notation.Literal:
		return el.lowerLiteral(n)
	case *notation.Neg:
		return &ir.Neg{X: el.LowerExpr(n.X)}
	case *notation.Add:
		return &ir.Add{X: el.LowerExpr(n.X), Y: el.LowerExpr(n.Y)}
	case *notation.Sub:
		return &ir.Sub{X: el.LowerExpr(n.X), Y: el.LowerExpr(n.Y)}
	case *notation.Mul:
		return &ir.Mul{X: el.LowerExpr(n.X), Y: el.LowerExpr(n.Y)}
	case *notation.Div:
		return &ir.Div{X: el.LowerExpr(n.X), Y: el.LowerExpr(n.Y)}
	case *notation.Sqrt:
		return &ir.Call{Func: "sqrt", Args: []ir.Expr{el.LowerExpr(n.X)}, Typ: ir.Float64}
	case *notation.Cast:
		return &ir.Cast{Value: el.LowerExpr(n.X), To: n.To}
	case *notation.CallIntrinsic:
		return &ir.Call{Func: n.Name, Args: el.lowerArgs(n.Args), Typ: ir.Float64}
	case *notation.Call:
		return el.lowerUserCall(n)
	case *notation.Reduction:
		// A Reduction reaching the expression lowerer directly (rather
		// than being consumed by lowerAssignment's accumulation logic)
		// means it appears nested inside concrete notation — one of the
		// paths spec §9 marks "not supported yet".
		panic(unsupportedf(n, "reduction node inside concrete notation"))
	case *notation.IndexVarExpr:
		return el.ctx.CoordVar(n.Var, ir.Int64)
	default:
		panic(internalf(e, "unhandled notation.Expr %T", e))
	}
}

func (el *ExprLowerer) lowerArgs(args []notation.Expr) []ir.Expr {
	out := make([]ir.Expr, len(args))
	for i, a := range args {
		out[i] = el.LowerExpr(a)
	}
	return out
}

func (el *ExprLowerer) lowerUserCall(n *notation.Call) ir.Expr {
	args := el.lowerArgs(n.Args)
	if len(args) == 2 {
		switch n.Op.Name {
		case "+":
			return &ir.Add{X: args[0], Y: args[1]}
		case "-":
			return &ir.Sub{X: args[0], Y: args[1]}
		case "*":
			return &ir.Mul{X: args[0], Y: args[1]}
		case "/":
			return &ir.Div{X: args[0], Y: args[1]}
		}
	}
	return &ir.Call{Func: n.Op.Name, Args: args, Typ: ir.Float64}
}

// lowerLiteral exhaustively handles the declared primitive set; an
// Undefined type or a 128-bit integer value signals "unsupported"
// (spec §7).
func (el *ExprLowerer) lowerLiteral(n *notation.Literal) ir.Expr {
	switch n.Typ {
	case ir.Bool, ir.Int8, ir.Int16, ir.Int32, ir.Int64,
		ir.UInt8, ir.UInt16, ir.UInt32, ir.UInt64,
		ir.Float32, ir.Float64, ir.Complex64, ir.Complex128:
		return &ir.Literal{Typ: n.Typ, Val: n.Val}
	default:
		panic(&Error{Kind: UnsupportedDatatype, Node: n, cause: errUnsupportedDatatype(n.Typ)})
	}
}

func errUnsupportedDatatype(t ir.Type) error {
	return unsupportedDatatypeErr{t}
}

type unsupportedDatatypeErr struct{ t ir.Type }

func (e unsupportedDatatypeErr) Error() string {
	return "literal of type " + e.t.String() + " has no lowering (undefined or 128-bit integer)"
}

// lowerAccess resolves a tensor read to a Load off the tensor's values
// array at the position its currently-active leaf iterator resolved,
// or to the deduplication loop's reduced-value variable when one was
// registered for this exact access (spec §4.3 item 5, §4.4 "byte-
// oriented mode" value addressing).
func (el *ExprLowerer) lowerAccess(a notation.Access) ir.Expr {
	if v, ok := el.reducedVars[a]; ok {
		return v
	}
	leaf, ok := el.ActiveLeaf[a.Tensor]
	if !ok {
		// This access's tensor has no iterator active in the current
		// merge-point arm (an operand omitted from a union sub-case, spec
		// §4.3 item 6) — its contribution is the tensor's declared fill
		// value rather than a load off any storage array.
		assert(a.Tensor.FillValue != nil, a, "tensor %q has no declared fill value to substitute for its omitted access", a.Tensor.Name)
		return el.LowerExpr(a.Tensor.FillValue)
	}

	valuesVar := el.ctx.TensorIR(a.Tensor)
	valuesArr := &ir.GetProperty{Tensor: valuesVar, Kind: ir.Values}
	if byteFmt, ok := leaf.Format.(format.Byte); ok {
		// Byte-oriented levels address values by byte offset through a
		// cast pointer rather than plain element indexing (spec §4.4).
		offset := byteFmt.ValueOffset(format.Context{ValueType: tensorValueType(el.ctx, a.Tensor)}, leaf.PosVar)
		return &ir.Load{Arr: &ir.Cast{Value: valuesArr, To: ir.UInt8}, Index: offset}
	}
	return &ir.Load{Arr: valuesArr, Index: leaf.PosVar}
}
