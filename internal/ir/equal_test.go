package ir_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tensorcomp/lowerer/internal/ir"
)

func twoVarFunc(xName, yName string) *ir.Function {
	x := &ir.Var{Name: xName, Typ: ir.Int64}
	y := &ir.Var{Name: yName, Typ: ir.Float64, IsPtr: true}
	return &ir.Function{
		Name: "f",
		Body: ir.Blanks(
			&ir.VarDecl{Var: x, Init: &ir.Literal{Typ: ir.Int64, Val: int64(0)}},
			&ir.Store{Arr: y, Index: x, Value: &ir.Literal{Typ: ir.Float64, Val: 1.0}},
		),
	}
}

func TestEqualIgnoresVariableNames(t *testing.T) {
	a := twoVarFunc("i0", "arr0")
	b := twoVarFunc("different_name", "also_different")
	require.True(t, ir.Equal(a, b), "functions differing only in variable names should compare equal")
}

func TestEqualDistinguishesStructure(t *testing.T) {
	a := twoVarFunc("i0", "arr0")

	x := &ir.Var{Name: "i0", Typ: ir.Int64}
	y := &ir.Var{Name: "arr0", Typ: ir.Float64, IsPtr: true}
	b := &ir.Function{
		Name: "f",
		Body: ir.Blanks(
			&ir.VarDecl{Var: x, Init: &ir.Literal{Typ: ir.Int64, Val: int64(0)}},
			// Stored literal differs from twoVarFunc's Store (2.0, not 1.0).
			&ir.Store{Arr: y, Index: x, Value: &ir.Literal{Typ: ir.Float64, Val: 2.0}},
		),
	}
	require.False(t, ir.Equal(a, b), "a differing literal value should make the functions unequal")
}

func TestVarCount(t *testing.T) {
	fn := twoVarFunc("i0", "arr0")
	require.Equal(t, 2, ir.VarCount(fn))
}

func TestBlanksFlattensAndDropsNils(t *testing.T) {
	inner := ir.Blanks(&ir.Break{}, nil, &ir.Continue{})
	outer := ir.Blanks(nil, inner, &ir.Sort{Arity: 1})
	require.Len(t, outer.Stmts, 3)
	_, isBreak := outer.Stmts[0].(*ir.Break)
	require.True(t, isBreak)
	_, isContinue := outer.Stmts[1].(*ir.Continue)
	require.True(t, isContinue)
	_, isSort := outer.Stmts[2].(*ir.Sort)
	require.True(t, isSort)
}
