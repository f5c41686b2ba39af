package ir

// Block sequences statements with no new scope semantics beyond Go's
// own lexical scoping of the Vars its children declare.
type Block struct {
	Stmts []Stmt
}

func (*Block) stmtNode() {}

// Blanks concatenates statement lists, dropping nils, and flattens
// nested Blocks one level — it is how header/init/body/finalize/footer
// are stitched into one function body (spec §5).
func Blanks(parts ...Stmt) *Block {
	b := &Block{}
	for _, p := range parts {
		if p == nil {
			continue
		}
		if inner, ok := p.(*Block); ok {
			b.Stmts = append(b.Stmts, inner.Stmts...)
			continue
		}
		b.Stmts = append(b.Stmts, p)
	}
	return b
}

// VarDecl introduces Name with an optional initializer.
type VarDecl struct {
	Var  *Var
	Init Expr // nil means zero-value declaration
}

func (*VarDecl) stmtNode() {}

// Assign stores Value into a scalar variable (not an array element;
// see Store for that).
type Assign struct {
	Lhs *Var
	Rhs Expr
}

func (*Assign) stmtNode() {}

// Store writes Value into Arr at Index. Atomic is set while lowering
// beneath a parallel loop using the Atomics race strategy
// (markAssignsAtomicDepth > 0, spec §5).
type Store struct {
	Arr    Expr
	Index  Expr
	Value  Expr
	Atomic bool
}

func (*Store) stmtNode() {}

// For is a counted loop `for Var := Start; Var < cmp Bound; Var += Increment`.
// Kind/Unit annotate the loop for a downstream parallelizer; the
// lowerer itself always lowers the body exactly once regardless of
// Kind (spec §5 — lowering is single-threaded).
type For struct {
	Var       *Var
	Start     Expr
	Bound     Expr
	Increment Expr
	Body      Stmt
	Kind      LoopKind
	Unit      ParallelUnit
	Race      RaceStrategy
}

func (*For) stmtNode() {}

// While repeats Body as long as Cond holds.
type While struct {
	Cond Expr
	Body Stmt
}

func (*While) stmtNode() {}

// IfThenElse is a two-arm conditional; Else may be nil.
type IfThenElse struct {
	Cond Expr
	Then Stmt
	Else Stmt
}

func (*IfThenElse) stmtNode() {}

// CaseClause is one arm of a Case statement.
type CaseClause struct {
	Cond Expr
	Body Stmt
}

// Case is an ordered disjoint-if-chain: the first clause whose Cond
// holds runs; if none match and AlwaysMatch is false, Default runs
// (may be nil). This is how lowerMergePointArms represents one lattice
// point's sub-point arms (spec §4.3 item 6).
type Case struct {
	Clauses     []CaseClause
	Default     Stmt
	AlwaysMatch bool
}

func (*Case) stmtNode() {}

// Allocate reserves Size elements of Var's pointee type; every
// Allocate in a function's header must pair with a Free in its footer
// (spec §5, §8).
type Allocate struct {
	Var *Var
	Size Expr
	// IsRealloc marks a grow-in-place call (capacity doubling) rather
	// than a fresh allocation.
	IsRealloc bool
}

func (*Allocate) stmtNode() {}

// Free releases a previously Allocated variable.
type Free struct {
	Var *Var
}

func (*Free) stmtNode() {}

// CallStmt invokes a function for side effects, discarding any result.
type CallStmt struct {
	Func string
	Args []Expr
}

func (*CallStmt) stmtNode() {}

// Break, Continue, and Yield are loop-escape / value-production
// signals in the IR; they do not correspond to any host-language
// concurrency construct (spec §9).
type (
	Break    struct{}
	Continue struct{}
	Yield    struct{ Values []Expr }
)

func (*Break) stmtNode()    {}
func (*Continue) stmtNode() {}
func (*Yield) stmtNode()    {}

// Sort orders the first Arity coordinate arrays of Arrays in lockstep
// (used to order a temporary's coordinate list after an unordered
// producer, spec §4.5).
type Sort struct {
	Arrays []Expr
	Arity  int
}

func (*Sort) stmtNode() {}

// Param is one entry of a Function's result or argument list.
type Param struct {
	Var       *Var
	IsIndexSet bool
}

// Function is the lowerer's final output: a name, an ordered result
// list, an ordered argument list (index-set tensors first, spec §6),
// and a body built from Blanks(header, init, body, finalize, footer).
type Function struct {
	Name      string
	Results   []Param
	Arguments []Param
	Body      Stmt
}

func (*Function) stmtNode() {}
