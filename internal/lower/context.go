// Package lower implements the lowering core: it walks a notation.Stmt
// top-down and emits an ir.Function whose body, when executed,
// produces the statement's result tensors (spec §4).
package lower

import (
	"fmt"
	"io"

	"github.com/tensorcomp/lowerer/internal/diag"
	"github.com/tensorcomp/lowerer/internal/fillregion"
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/notation"
	"github.com/tensorcomp/lowerer/internal/provenance"
)

// Options are the flags spec.md's top-level lower accepts (spec §4.1).
type Options struct {
	Assemble, Compute, Pack, Unpack bool
	// Trace, when set, makes Lower emit human-readable lowering
	// decisions to TraceOutput (internal/diag); TraceOutput defaults to
	// os.Stderr when nil.
	Trace       bool
	TraceOutput io.Writer
	// Graph is the provenance graph produced by earlier scheduling
	// transformations (spec §1, §3). A nil Graph is treated as empty:
	// every IndexVar is underived.
	Graph *provenance.Graph
}

// Context is the lowerer-wide mutable state threaded explicitly
// through the recursive walk (spec §3, "Lowerer state"; spec §9,
// "group them into one explicitly-passed context; resist making any
// of them global").
type Context struct {
	Graph *provenance.Graph
	Opts  Options
	Log   *diag.Logger

	tensorVar map[*notation.TensorVar]*ir.Var
	tensorTyp map[*notation.TensorVar]ir.Type
	capacity  map[*notation.TensorVar]*ir.Var
	fill      map[*notation.TensorVar]*fillregion.State

	indexVarIR map[*notation.IndexVar]*ir.Var // coordinate variable
	posVarIR   map[posKey]*ir.Var             // per (tensor,mode) position variable
	endVarIR   map[posKey]*ir.Var             // per (tensor,mode) position upper-bound variable
	dimExpr    map[*notation.IndexVar]ir.Expr

	defined      map[*notation.IndexVar]bool
	definedOrder []*notation.IndexVar

	header []ir.Stmt
	footer []ir.Stmt

	parallelDepth int
	atomicDepth   int

	fresh int
}

type posKey struct {
	t *notation.TensorVar
	v *notation.IndexVar
}

// NewContext creates the per-call lowerer state (spec §3, "created per
// lower call, discarded afterwards").
func NewContext(graph *provenance.Graph, opts Options, log *diag.Logger) *Context {
	return &Context{
		Graph:      graph,
		Opts:       opts,
		Log:        log,
		tensorVar:  map[*notation.TensorVar]*ir.Var{},
		tensorTyp:  map[*notation.TensorVar]ir.Type{},
		capacity:   map[*notation.TensorVar]*ir.Var{},
		fill:       map[*notation.TensorVar]*fillregion.State{},
		indexVarIR: map[*notation.IndexVar]*ir.Var{},
		posVarIR:   map[posKey]*ir.Var{},
		dimExpr:    map[*notation.IndexVar]ir.Expr{},
		defined:    map[*notation.IndexVar]bool{},
	}
}

// freshName returns a deterministic, session-unique name built from a
// monotonically increasing counter — never random, so that lowering
// the same input twice produces IR equal up to renaming (spec §8).
func (c *Context) freshName(prefix string) string {
	c.fresh++
	return fmt.Sprintf("%s%d", prefix, c.fresh)
}

// TensorIR returns (creating on first use) the IR variable handle for
// tv.
func (c *Context) TensorIR(tv *notation.TensorVar) *ir.Var {
	if v, ok := c.tensorVar[tv]; ok {
		return v
	}
	v := &ir.Var{Name: tv.Name, IsPtr: tv.Order > 0}
	c.tensorVar[tv] = v
	return v
}

// CapacityVar returns (creating on first use) the capacity tracking
// variable for an append-capable result tensor's values array (spec
// §3, "IR expression→capacity variable").
func (c *Context) CapacityVar(tv *notation.TensorVar) *ir.Var {
	if v, ok := c.capacity[tv]; ok {
		return v
	}
	v := &ir.Var{Name: tv.Name + "_capacity", Typ: ir.Int64}
	c.capacity[tv] = v
	return v
}

// FillState returns (creating on first use) tv's fill-tracking state.
func (c *Context) FillState(tv *notation.TensorVar, typ ir.Type, regionLen int) *fillregion.State {
	if s, ok := c.fill[tv]; ok {
		return s
	}
	s := fillregion.NewState(tv.Name, typ, regionLen)
	c.fill[tv] = s
	return s
}

// CoordVar returns (creating on first use) the IR variable holding
// v's current coordinate value.
func (c *Context) CoordVar(v *notation.IndexVar, typ ir.Type) *ir.Var {
	if iv, ok := c.indexVarIR[v]; ok {
		return iv
	}
	iv := &ir.Var{Name: v.Name, Typ: typ}
	c.indexVarIR[v] = iv
	return iv
}

// PosVar returns (creating on first use) the position variable for
// tensor tv at the level walked by v.
func (c *Context) PosVar(tv *notation.TensorVar, v *notation.IndexVar) *ir.Var {
	k := posKey{tv, v}
	if pv, ok := c.posVarIR[k]; ok {
		return pv
	}
	pv := &ir.Var{Name: fmt.Sprintf("%s_%s_pos", tv.Name, v.Name), Typ: ir.Int64}
	c.posVarIR[k] = pv
	return pv
}

// EndVar returns (creating on first use) the variable holding the
// exclusive upper bound of tv's position range at the level walked by
// v — the while-loop exhaustion check compares PosVar against it.
func (c *Context) EndVar(tv *notation.TensorVar, v *notation.IndexVar) *ir.Var {
	if c.endVarIR == nil {
		c.endVarIR = map[posKey]*ir.Var{}
	}
	k := posKey{tv, v}
	if ev, ok := c.endVarIR[k]; ok {
		return ev
	}
	ev := &ir.Var{Name: fmt.Sprintf("%s_%s_end", tv.Name, v.Name), Typ: ir.Int64}
	c.endVarIR[k] = ev
	return ev
}

// SetDim records the dimension expression computed for v (spec §4.1
// step 4); subsequent lookups via Dim reuse it.
func (c *Context) SetDim(v *notation.IndexVar, e ir.Expr) {
	if _, ok := c.dimExpr[v]; !ok {
		c.dimExpr[v] = e
	}
}

// Dim returns v's previously computed dimension expression, or nil.
func (c *Context) Dim(v *notation.IndexVar) ir.Expr { return c.dimExpr[v] }

// Define marks v as defined (its value is now in scope) and returns
// the ancestors that just became recoverable as a result (spec §3,
// §4.2).
func (c *Context) Define(v *notation.IndexVar) []*notation.IndexVar {
	c.defined[v] = true
	c.definedOrder = append(c.definedOrder, v)
	return c.Graph.NewlyRecoverable(v, c.defined)
}

// DefineRecovered marks a recovered ancestor as defined without
// querying for further recoverable ancestors beyond it (recovery
// itself never unlocks another ancestor transitively in one step).
func (c *Context) DefineRecovered(v *notation.IndexVar) {
	c.defined[v] = true
	c.definedOrder = append(c.definedOrder, v)
}

// IsDefined reports whether v's value is currently in scope.
func (c *Context) IsDefined(v *notation.IndexVar) bool { return c.defined[v] }

// Undefine removes v from the defined set, used when a forall's loop
// body finishes and v goes out of scope.
func (c *Context) Undefine(v *notation.IndexVar) {
	delete(c.defined, v)
	for i, d := range c.definedOrder {
		if d == v {
			c.definedOrder = append(c.definedOrder[:i], c.definedOrder[i+1:]...)
			break
		}
	}
}

// AddHeader/AddFooter append to the per-call header/footer statement
// lists; both are append-only and emitted in order (spec §9).
func (c *Context) AddHeader(s ir.Stmt) {
	if s != nil {
		c.header = append(c.header, s)
	}
}

func (c *Context) AddFooter(s ir.Stmt) {
	if s != nil {
		c.footer = append(c.footer, s)
	}
}

func (c *Context) Header() ir.Stmt { return ir.Blanks(c.header...) }
func (c *Context) Footer() ir.Stmt { return ir.Blanks(c.footer...) }

// EnterParallel/ExitParallel track nesting depth under a parallel-unit
// forall so temporary allocation can be duplicated per worker (spec
// §5, "inParallelLoopDepth").
func (c *Context) EnterParallel() { c.parallelDepth++ }
func (c *Context) ExitParallel()  { c.parallelDepth-- }
func (c *Context) InParallel() bool { return c.parallelDepth > 0 }

// EnterAtomic/ExitAtomic track markAssignsAtomicDepth: stores emitted
// while positive are tagged atomic (spec §5).
func (c *Context) EnterAtomic() { c.atomicDepth++ }
func (c *Context) ExitAtomic()  { c.atomicDepth-- }
func (c *Context) InAtomic() bool { return c.atomicDepth > 0 }
