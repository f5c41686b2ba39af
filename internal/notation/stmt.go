package notation

import "github.com/tensorcomp/lowerer/internal/ir"

// Stmt is an index-notation statement node (spec §3).
type Stmt interface {
	stmtNode()
}

func (*Assignment) stmtNode() {}
func (*Forall) stmtNode()     {}
func (*Where) stmtNode()      {}
func (*Multi) stmtNode()      {}
func (*Sequence) stmtNode()   {}
func (*SuchThat) stmtNode()   {}
func (*Assemble) stmtNode()   {}
func (*Yield) stmtNode()      {}

// Assignment writes Rhs into Lhs. Op is nil for a plain `=`; Op.Name
// == "+" lowers to a compound `+=`; any other operator lowers to
// `lhs = Op(lhs, rhs)` with an annihilator short-circuit when Op
// declares one (spec §4.4).
type Assignment struct {
	Lhs Access
	Rhs Expr
	Op  *Operator
}

// Forall iterates Var over its dimension, lowering Body once per
// value. Unit/Race annotate the loop the lowerer will choose among
// the six shapes for (spec §4.2). Vectorize makes the lowerer tag the
// emitted loop ir.Vectorized; Unroll is carried but not read by the
// lowerer. Neither flag makes the lowerer clone the body.
type Forall struct {
	Var       *IndexVar
	Body      Stmt
	Unit      ir.ParallelUnit
	Race      ir.RaceStrategy
	Vectorize bool
	Unroll    bool
}

// Where allocates Temp, lowers Producer writing into it, then lowers
// Consumer reading it (spec §4.5).
type Where struct {
	Producer Stmt
	Consumer Stmt
	Temp     *TensorVar
}

// Multi lowers each Stmt in turn, all writing into a shared result
// (e.g. a computation split across several Foralls sharing one
// result's assembly).
type Multi struct {
	Stmts []Stmt
}

// Sequence lowers each Stmt strictly in order, later statements free
// to depend on earlier ones' results (e.g. Assemble is immediately
// followed by a Forall that only makes sense once storage exists).
type Sequence struct {
	Stmts []Stmt
}

// SuchThat scopes Stmt to a scheduling constraint on the provenance
// graph. Constraints are opaque to the lowerer (provenance graph
// construction is out of scope, spec §1); they only need to be
// threaded through unchanged.
type SuchThat struct {
	Stmt        Stmt
	Constraints []string
}

// Assemble wraps Stmt with the result-array-building phases described
// in spec §4.6. Queries, when non-empty, names the attribute-query
// accesses to presize before Stmt computes values.
type Assemble struct {
	Stmt    Stmt
	Queries []Access
}

// Yield names the axes and value an innermost Forall body produces,
// used by Assemble's attribute-query phase to know what to count.
type Yield struct {
	Vars []*IndexVar
	Expr Expr
}
