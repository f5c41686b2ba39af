package lower

import (
	"github.com/tensorcomp/lowerer/internal/ir"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// lowerAssemble wraps Stmt with the initialize/compute/finalize phases
// spec §4.6 describes. The attribute-query phase (a.Queries) presizes
// result arrays via a counting pre-pass over a separate statement
// tree; this package's seed scenarios (spec §8) never populate
// Queries, so that pre-pass is left unsupported rather than
// half-built (spec §9).
func (l *Lowerer) lowerAssemble(a *notation.Assemble) ir.Stmt {
	if len(a.Queries) > 0 {
		panic(unsupportedf(a, "attribute-query presizing pass"))
	}
	if !l.ctx.Opts.Assemble {
		return l.lower(a.Stmt)
	}

	results := collectAssembleResults(a.Stmt)

	var init []ir.Stmt
	for _, ar := range results {
		init = append(init, l.initializeResultIndices(ar)...)
	}

	compute := l.lower(a.Stmt)

	var finalize []ir.Stmt
	for _, ar := range results {
		finalize = append(finalize, l.finalizeResultIndices(ar)...)
	}

	return ir.Blanks(append(append(init, compute), finalize...)...)
}

type assembleResult struct {
	tensor *notation.TensorVar
	access notation.Access
}

// collectAssembleResults returns, in first-seen order, every distinct
// tensor written anywhere in stmt together with the access that first
// writes it — the access whose IndexVar tuple iteratorsFor needs to
// build that tensor's mode chain.
func collectAssembleResults(stmt notation.Stmt) []assembleResult {
	seen := map[*notation.TensorVar]bool{}
	var out []assembleResult
	for _, r := range collectRoleAccesses(stmt) {
		if !r.result || seen[r.access.Tensor] {
			continue
		}
		seen[r.access.Tensor] = true
		out = append(out, assembleResult{r.access.Tensor, r.access})
	}
	return out
}

// initializeResultIndices walks one result's modes outside-in, each
// level's getInitEdges (sequential-insert levels only — append levels
// build their edges incrementally as they are appended to, not up
// front) followed by getInitCoords, then allocates the values array
// (spec §4.6 "Initialise phase").
func (l *Lowerer) initializeResultIndices(ar assembleResult) []ir.Stmt {
	vt := l.tensorValueType(ar.tensor)
	its := l.iteratorsFor(ar.access, true)

	var out []ir.Stmt
	var parentPos ir.Expr = &ir.Literal{Typ: ir.Int64, Val: int64(0)}
	for _, it := range its {
		caps := it.Format.Capabilities()
		if caps.HasInsert && !caps.HasAppend {
			out = append(out, it.InitEdges(parentPos, vt))
		}
		out = append(out, it.InitCoords(vt))
		parentPos = it.PosVar
	}
	out = append(out, l.initResultArrays([]*notation.TensorVar{ar.tensor})...)
	return out
}

// finalizeResultIndices is a deliberate no-op: the format interface
// this package lowers against (internal/format) exposes no
// getFinalizeYieldPos hook distinct from GetAppendEdges, and every
// append-capable level already finalizes its edges level-by-level via
// forall.go's generateAppendPositions as each enclosing loop
// completes.
func (l *Lowerer) finalizeResultIndices(ar assembleResult) []ir.Stmt {
	return nil
}
