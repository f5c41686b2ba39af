package format

import "github.com/tensorcomp/lowerer/internal/ir"

// Byte is a compressed level whose values array is addressed by byte
// offset rather than element index (spec §9's "byte-oriented position
// iteration" note). It wraps Compressed for coordinate iteration and
// additionally exposes ValueOffset, used by the assignment lowerer to
// compute a value location through pointer-cast arithmetic instead of
// a plain Load/Store index (spec §4.4).
//
// Byte requires the caller to guarantee ctx.ValueType's size is a
// compile-time constant consistent with how the byte array was laid
// out; this module does not and cannot verify alignment at lowering
// time (spec §9, "an implementer should clarify alignment requirements
// with the caller").
type Byte struct {
	Compressed
}

func (b Byte) Name() string { return "byte" }

// ValueOffset returns the byte offset of the value at position pos,
// i.e. pos * sizeof(ctx.ValueType).
func (b Byte) ValueOffset(ctx Context, pos ir.Expr) ir.Expr {
	return &ir.Mul{X: pos, Y: &ir.Sizeof{Of: ctx.ValueType}}
}
