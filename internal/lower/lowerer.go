package lower

import (
	"os"

	"github.com/tensorcomp/lowerer/internal/diag"
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/iterator"
	"github.com/tensorcomp/lowerer/internal/notation"
	"github.com/tensorcomp/lowerer/internal/provenance"
)

// Lowerer carries the per-call state threaded through the recursive
// walk, beyond what Context holds: the active-leaf-tracking expression
// lowerer and the two identity caches (iterator chains, open
// workspaces) that let nested foralls and wheres share state without
// passing it down every call (spec §3, §9).
type Lowerer struct {
	ctx *Context
	el  *ExprLowerer

	iterCache  map[*notation.TensorVar][]*iterator.Iterator
	workspaces map[*notation.TensorVar]*Workspace
}

func newLowerer(ctx *Context) *Lowerer {
	l := &Lowerer{
		ctx:        ctx,
		iterCache:  map[*notation.TensorVar][]*iterator.Iterator{},
		workspaces: map[*notation.TensorVar]*Workspace{},
	}
	l.el = NewExprLowerer(ctx)
	return l
}

// lower dispatches one notation.Stmt to its lowering method (spec §3,
// "Statement visitor"). Multi and Sequence both lower their children
// in order and concatenate the results; the lowerer treats them
// identically because nothing downstream of this package schedules
// Multi's branches concurrently (spec §5, "lowering itself is
// single-threaded").
func (l *Lowerer) lower(stmt notation.Stmt) ir.Stmt {
	switch n := stmt.(type) {
	case *notation.Assignment:
		return l.lowerAssignment(n, l.el)
	case *notation.Forall:
		return l.lowerForall(n, l.el)
	case *notation.Where:
		return l.lowerWhere(n)
	case *notation.Multi:
		stmts := make([]ir.Stmt, len(n.Stmts))
		for i, c := range n.Stmts {
			stmts[i] = l.lower(c)
		}
		return ir.Blanks(stmts...)
	case *notation.Sequence:
		stmts := make([]ir.Stmt, len(n.Stmts))
		for i, c := range n.Stmts {
			stmts[i] = l.lower(c)
		}
		return ir.Blanks(stmts...)
	case *notation.SuchThat:
		// Constraints are opaque scheduling metadata the lowerer only
		// threads through unchanged (spec §4.1, data model "SuchThat").
		return l.lower(n.Stmt)
	case *notation.Assemble:
		return l.lowerAssemble(n)
	case *notation.Yield:
		panic(unsupportedf(n, "attribute-query counting pass (Yield reached outside an Assemble query)"))
	default:
		panic(internalf(stmt, "unhandled notation.Stmt %T", stmt))
	}
}

// Lower is the public entry point (spec §4.1). It walks stmt top-down,
// selecting a loop shape for each forall and allocating a temporary
// for each where, and returns an ir.Function whose body, executed,
// produces stmt's result tensors — or a structured *Error if stmt
// violates an invariant the iterator/provenance/lattice facades
// assert.
func Lower(stmt notation.Stmt, name string, opts Options) (fn *ir.Function, lowerErr *Error) {
	defer recoverLowerPanic(&lowerErr)

	graph := opts.Graph
	if graph == nil {
		graph = provenance.New()
	}
	out := opts.TraceOutput
	if out == nil {
		out = os.Stderr
	}
	log := diag.New(out, opts.Trace)

	ctx := NewContext(graph, opts, log)
	l := newLowerer(ctx)

	results, arguments := collectTensors(stmt)
	log.Tracef("lower %s: %d result(s), %d argument(s)", name, len(results), len(arguments))

	for _, tv := range results {
		l.emitScalarHeaderFooter(tv)
	}
	for _, tv := range arguments {
		l.emitScalarHeaderFooter(tv)
	}

	var body []ir.Stmt
	if opts.Compute {
		body = append(body, l.initResultArrays(results)...)
	}
	body = append(body, l.lower(stmt))
	if opts.Compute {
		body = append(body, l.finalizeResultArrays(results)...)
	}

	fn = &ir.Function{
		Name:      name,
		Results:   l.toParams(results),
		Arguments: l.toParams(arguments),
		Body:      ir.Blanks(ctx.Header(), ir.Blanks(body...), ctx.Footer()),
	}
	return fn, nil
}

// emitScalarHeaderFooter implements spec §4.1 step 5: a scalar (order
// 0) tensor's value lives in a stack variable for the duration of the
// call, loaded once from its values array in the header and stored
// back once in the footer.
func (l *Lowerer) emitScalarHeaderFooter(tv *notation.TensorVar) {
	if tv.Order != 0 {
		return
	}
	v := l.ctx.TensorIR(tv)
	valuesArr := &ir.GetProperty{Tensor: v, Kind: ir.Values}
	l.ctx.AddHeader(&ir.VarDecl{Var: v, Init: &ir.Load{Arr: valuesArr, Index: &ir.Literal{Typ: ir.Int64, Val: int64(0)}}})
	l.ctx.AddFooter(&ir.Store{Arr: valuesArr, Index: &ir.Literal{Typ: ir.Int64, Val: int64(0)}, Value: v})
}

func (l *Lowerer) toParams(tvs []*notation.TensorVar) []ir.Param {
	out := make([]ir.Param, len(tvs))
	for i, tv := range tvs {
		out[i] = ir.Param{Var: l.ctx.TensorIR(tv)}
	}
	return out
}

// collectTensors walks stmt once (spec §4.1 step 1) and splits every
// tensor it touches into an ordered, first-seen results list and
// arguments list; tensors introduced as a Where's own temporary are
// excluded from both since they are allocated and freed entirely
// within the lowered body, never part of the function signature.
func collectTensors(stmt notation.Stmt) (results, arguments []*notation.TensorVar) {
	temps := map[*notation.TensorVar]bool{}
	collectTemps(stmt, temps)

	seenResult := map[*notation.TensorVar]bool{}
	seenArg := map[*notation.TensorVar]bool{}
	for _, r := range collectRoleAccesses(stmt) {
		t := r.access.Tensor
		if temps[t] {
			continue
		}
		if r.result {
			if !seenResult[t] {
				seenResult[t] = true
				results = append(results, t)
			}
			continue
		}
		if !seenArg[t] && !seenResult[t] {
			seenArg[t] = true
			arguments = append(arguments, t)
		}
	}
	return results, arguments
}

func collectTemps(s notation.Stmt, out map[*notation.TensorVar]bool) {
	switch n := s.(type) {
	case *notation.Where:
		out[n.Temp] = true
		collectTemps(n.Producer, out)
		collectTemps(n.Consumer, out)
	case *notation.Forall:
		collectTemps(n.Body, out)
	case *notation.Multi:
		for _, c := range n.Stmts {
			collectTemps(c, out)
		}
	case *notation.Sequence:
		for _, c := range n.Stmts {
			collectTemps(c, out)
		}
	case *notation.SuchThat:
		collectTemps(n.Stmt, out)
	case *notation.Assemble:
		collectTemps(n.Stmt, out)
	}
}
