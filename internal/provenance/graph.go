// Package provenance models the directed acyclic graph recording how
// scheduled IndexVars derive from underived (user-level) ones (spec
// §3, §6). Construction is an external collaborator's job (spec §1);
// this package only answers the read-only queries the lowerer needs:
// classification, bounds, recovery, and derivation paths.
package provenance

import "github.com/tensorcomp/lowerer/internal/notation"

// Kind names the scheduling transform that produced a derivation.
type Kind int

const (
	Split Kind = iota
	Divide
	Fuse
)

// Derivation records one scheduling transform. Split and Divide relate
// a single underived Ancestor to two derived Descendants (Outer,
// Inner); Fuse relates several underived Ancestors to one derived
// Descendant. Factor is the split/divide size; for Divide it need not
// evenly divide the ancestor's dimension, which is why forall
// recovery emits an extra intra-chunk upper-bound guard for it
// (spec §4.2).
type Derivation struct {
	Kind        Kind
	Ancestors   []*notation.IndexVar
	Descendants []*notation.IndexVar
	Factor      int64
}

// Graph stores forward adjacency (ancestor -> its derivations) and the
// reverse lookup (descendant -> its derivation); add fills both maps
// eagerly as each derivation is recorded, so the reverse lookup is
// not built lazily.
type Graph struct {
	underived    map[*notation.IndexVar]bool
	derivations  []*Derivation
	byDescendant map[*notation.IndexVar]*Derivation
	byAncestor   map[*notation.IndexVar][]*Derivation
}

// New creates an empty graph with the given underived (user-level)
// variables registered as roots.
func New(underived ...*notation.IndexVar) *Graph {
	g := &Graph{
		underived:    map[*notation.IndexVar]bool{},
		byDescendant: map[*notation.IndexVar]*Derivation{},
		byAncestor:   map[*notation.IndexVar][]*Derivation{},
	}
	for _, v := range underived {
		g.underived[v] = true
	}
	return g
}

// AddSplit records that parent was split into (outer, inner) with the
// given tile factor: parent == outer*factor + inner.
func (g *Graph) AddSplit(parent, outer, inner *notation.IndexVar, factor int64) {
	g.add(&Derivation{Kind: Split, Ancestors: []*notation.IndexVar{parent}, Descendants: []*notation.IndexVar{outer, inner}, Factor: factor})
}

// AddDivide records that parent was divided into (outer, inner) across
// a fixed chunk count: parent == outer*chunkSize + inner, where
// chunkSize may not evenly divide the parent's dimension.
func (g *Graph) AddDivide(parent, outer, inner *notation.IndexVar, factor int64) {
	g.add(&Derivation{Kind: Divide, Ancestors: []*notation.IndexVar{parent}, Descendants: []*notation.IndexVar{outer, inner}, Factor: factor})
}

// AddFuse records that parents were fused into a single descendant
// position-space variable.
func (g *Graph) AddFuse(parents []*notation.IndexVar, fused *notation.IndexVar) {
	g.add(&Derivation{Kind: Fuse, Ancestors: append([]*notation.IndexVar(nil), parents...), Descendants: []*notation.IndexVar{fused}})
}

func (g *Graph) add(d *Derivation) {
	g.derivations = append(g.derivations, d)
	for _, desc := range d.Descendants {
		g.byDescendant[desc] = d
	}
	for _, anc := range d.Ancestors {
		g.byAncestor[anc] = append(g.byAncestor[anc], d)
	}
}

// IsUnderived reports whether v is a leaf of the graph (user-level,
// not produced by any scheduling transform).
func (g *Graph) IsUnderived(v *notation.IndexVar) bool {
	if g.underived[v] {
		return true
	}
	_, derived := g.byDescendant[v]
	return !derived
}

// IsDerived is the complement of IsUnderived.
func (g *Graph) IsDerived(v *notation.IndexVar) bool {
	return !g.IsUnderived(v)
}

// DerivationOf returns the derivation that produced v as a descendant,
// or nil if v is underived.
func (g *Graph) DerivationOf(v *notation.IndexVar) *Derivation {
	return g.byDescendant[v]
}

// Descendants returns the vars directly derived from v.
func (g *Graph) Descendants(v *notation.IndexVar) []*notation.IndexVar {
	var out []*notation.IndexVar
	for _, d := range g.byAncestor[v] {
		out = append(out, d.Descendants...)
	}
	return out
}

// IsDivided reports whether v's derivation is a Divide (needing the
// extra intra-chunk guard, spec §4.2).
func (g *Graph) IsDivided(v *notation.IndexVar) bool {
	d := g.byDescendant[v]
	return d != nil && d.Kind == Divide
}

// IsFused reports whether v's derivation is a Fuse.
func (g *Graph) IsFused(v *notation.IndexVar) bool {
	d := g.byDescendant[v]
	return d != nil && d.Kind == Fuse
}

// Recoverable reports whether ancestor (an underived var with a
// Split/Divide derivation) can be recomputed given the vars currently
// in defined: true iff every one of its derivation's Descendants is
// defined. Fuse ancestors are never generically recoverable — the
// Fused-position loop shape recovers them itself via per-ancestor
// position counters (spec §4.2 item 1), not through this generic path.
func (g *Graph) Recoverable(ancestor *notation.IndexVar, defined map[*notation.IndexVar]bool) bool {
	if defined[ancestor] {
		return false
	}
	ds := g.byAncestor[ancestor]
	for _, d := range ds {
		if d.Kind == Fuse {
			continue
		}
		all := true
		for _, desc := range d.Descendants {
			if !defined[desc] {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

// NewlyRecoverable returns the ancestors that become Recoverable now
// that justDefined has been added to defined (defined must already
// include justDefined). Used by forall recovery (spec §4.2) to decide
// which ancestor declarations to emit after entering a new loop level.
func (g *Graph) NewlyRecoverable(justDefined *notation.IndexVar, defined map[*notation.IndexVar]bool) []*notation.IndexVar {
	d := g.byDescendant[justDefined]
	if d == nil {
		return nil
	}
	var out []*notation.IndexVar
	for _, anc := range d.Ancestors {
		if g.Recoverable(anc, defined) {
			out = append(out, anc)
		}
	}
	return out
}

// RecoveryFactor returns the Split/Divide factor relating ancestor to
// its descendants, and ok=false for Fuse or underived vars.
func (g *Graph) RecoveryFactor(ancestor *notation.IndexVar) (factor int64, ok bool) {
	for _, d := range g.byAncestor[ancestor] {
		if d.Kind == Split || d.Kind == Divide {
			return d.Factor, true
		}
	}
	return 0, false
}

// DerivationPath returns the chain of derivations from an underived
// root down to v (v itself included as the final descendant set),
// outermost first.
func (g *Graph) DerivationPath(v *notation.IndexVar) []*Derivation {
	var path []*Derivation
	cur := v
	for {
		d := g.byDescendant[cur]
		if d == nil {
			break
		}
		path = append([]*Derivation{d}, path...)
		if len(d.Ancestors) != 1 {
			break
		}
		cur = d.Ancestors[0]
	}
	return path
}
