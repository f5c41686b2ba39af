// Package notation is the index-notation data model the lowerer
// consumes: TensorVar, IndexVar, Access, and the IndexStmt/IndexExpr
// algebraic trees (spec §3). Building this tree (parsing, type
// checking, scheduling) is an external collaborator's job; this
// package only defines the shapes the lowerer walks.
package notation

import "github.com/tensorcomp/lowerer/internal/format"

// TensorVar is a named tensor: its element type, its per-mode storage
// format (one ModeSpec per dimension, outermost first), and its fill
// value (the background value substituted for coordinates that are
// not explicitly stored). TensorVars are compared by pointer identity;
// callers must not copy a *TensorVar.
type TensorVar struct {
	Name  string
	Order int
	Modes []ModeSpec
	// FillValue is a notation Expr (usually a Literal) giving the
	// per-tensor background value (spec §3, "Fill region").
	FillValue Expr
}

// ModeSpec pairs one tensor dimension with the format strategy that
// stores it.
type ModeSpec struct {
	Format format.ModeFormat
}

// IndexVar is a symbolic loop variable. Identity is by pointer;
// derivation relationships (split/fuse/divide) live in the separate
// provenance graph (spec §3), not on IndexVar itself, so the same
// IndexVar can be shared across many statements built from one
// schedule.
type IndexVar struct {
	Name string
}

func NewIndexVar(name string) *IndexVar { return &IndexVar{Name: name} }

// Window restricts an axis to [Lo, Hi) stepping by Stride (Stride == 1
// means "windowed but not strided"). A nil *Window on an Access means
// the axis is unrestricted.
type Window struct {
	Lo, Hi, Stride int64
}

// IndexSet redirects an axis through another tensor's coordinate list:
// iterating Set's declared dimension yields Set's contents as the
// coordinates visited along this axis (spec glossary, "Index set").
type IndexSet struct {
	Set *TensorVar
}

// Access is a use of Tensor indexed by an ordered tuple of IndexVars,
// each optionally windowed or index-set projected.
type Access struct {
	Tensor    *TensorVar
	Vars      []*IndexVar
	Windows   []*Window   // len(Windows) == len(Vars); entries may be nil
	IndexSets []*IndexSet // len(IndexSets) == len(Vars); entries may be nil
}

// WindowOf returns the Window for the v'th mode of the access, or nil.
func (a Access) WindowOf(i int) *Window {
	if i < len(a.Windows) {
		return a.Windows[i]
	}
	return nil
}

// IndexSetOf returns the IndexSet for the v'th mode of the access, or nil.
func (a Access) IndexSetOf(i int) *IndexSet {
	if i < len(a.IndexSets) {
		return a.IndexSets[i]
	}
	return nil
}
