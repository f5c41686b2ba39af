package format

import "github.com/tensorcomp/lowerer/internal/ir"

// RunLength is a compressed level that additionally records, per
// stored position, how many consecutive logical coordinates repeat
// the value found there (original_source's RLE-style compressed
// level, lower/lowerer_impl.cpp's getFillRegion/updatesFillRegion).
// PosAccess still returns only the run's first coordinate; the extra
// Runs array is what lets the lowerer either unroll or collapse the
// rest of the run instead of visiting every repeated coordinate as
// its own position (spec §4.3, "Multi-position iterators").
type RunLength struct {
	Compressed
	Runs *ir.Var // per-position run-length array, element type Int64
}

func (r RunLength) Name() string { return "rle" }

func (r RunLength) Capabilities() Capabilities {
	c := r.Compressed.Capabilities()
	c.UpdatesFillRegion = true
	c.IsMultiPosition = true
	return c
}

// RunLengthAt returns the number of consecutive coordinates, starting
// at the one PosAccess(pos) returns, that share the value stored at
// pos.
func (r RunLength) RunLengthAt(pos ir.Expr) ir.Expr {
	return &ir.Load{Arr: r.Runs, Index: pos}
}
