package notation

import "github.com/tensorcomp/lowerer/internal/ir"

// Expr is an index-notation expression node (spec §3). Variants are
// concrete structs implementing the marker method, dispatched by a
// Visitor (visitor.go), mirroring internal/ir's tagged-variant design.
type Expr interface {
	exprNode()
}

func (*AccessExpr) exprNode()      {}
func (*Literal) exprNode()         {}
func (*Neg) exprNode()             {}
func (*Add) exprNode()             {}
func (*Sub) exprNode()             {}
func (*Mul) exprNode()             {}
func (*Div) exprNode()             {}
func (*Sqrt) exprNode()            {}
func (*Cast) exprNode()            {}
func (*CallIntrinsic) exprNode()   {}
func (*Call) exprNode()            {}
func (*Reduction) exprNode()       {}
func (*IndexVarExpr) exprNode()    {}

// AccessExpr embeds an Access as an expression (reading a tensor's value).
type AccessExpr struct{ Access Access }

// Literal is a constant; Typ/Val follow ir.Type's primitive set.
// Undefined or 128-bit-integer literals are rejected by the lowerer's
// literal handling (spec §7), not by this constructor.
type Literal struct {
	Typ ir.Type
	Val any
}

// Neg, Add, Sub, Mul, Div, Sqrt, Cast mirror their ir counterparts one
// level up, operating on index-notation Exprs instead of ir.Exprs.
type (
	Neg  struct{ X Expr }
	Add  struct{ X, Y Expr }
	Sub  struct{ X, Y Expr }
	Mul  struct{ X, Y Expr }
	Div  struct{ X, Y Expr }
	Sqrt struct{ X Expr }
	Cast struct {
		X  Expr
		To ir.Type
	}
)

// CallIntrinsic invokes a builtin math function (exp, log, abs, ...).
type CallIntrinsic struct {
	Name string
	Args []Expr
}

// Operator describes a user-defined n-ary operator's algebraic
// properties: Identity is the value that can be omitted from a sparse
// merge without changing the result (e.g. 0 for +, 1 for *); if
// HasAnnihilator, encountering Annihilator during a fold lets the
// lowerer emit an early-exit break (spec §4.3, "Reduction with
// annihilator").
type Operator struct {
	Name           string
	Identity       ir.Expr
	HasAnnihilator bool
	Annihilator    ir.Expr
}

// Call applies a user-defined Op to Args.
type Call struct {
	Op   Operator
	Args []Expr
}

// Reduction folds Arg over Var using Op, e.g. sum_k A(i,k)*B(k,j).
type Reduction struct {
	Op  Operator
	Var *IndexVar
	Arg Expr
}

// IndexVarExpr uses an IndexVar's own value as a scalar expression
// (e.g. as an argument to a user Call, not as an Access axis).
type IndexVarExpr struct{ Var *IndexVar }
