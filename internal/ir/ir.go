// Package ir defines the imperative intermediate representation emitted
// by the lowerer: loops, conditionals, scalar variables, array
// loads/stores, and calls. Nodes are immutable values built once by the
// lowering passes and never mutated afterwards, so sharing a node
// between two parents (e.g. a literal or a variable reference reused
// across branches) is safe — the IR is a tree with shared leaves, never
// a cycle.
//
// Expr and Stmt are closed sum types. Each variant is its own struct
// implementing the marker method (exprNode/stmtNode); dispatch happens
// by type switch in Visit, mirroring the IndexStmt/IndexExpr visitor
// pattern one level up in internal/notation.
package ir

// Expr is any IR expression node.
type Expr interface {
	exprNode()
}

// Stmt is any IR statement node.
type Stmt interface {
	stmtNode()
}

// Type is the scalar/array element type carried by IR values. The set
// mirrors the primitives the lowerer must exhaustively handle when
// lowering literals (spec §7, "datatype coverage").
type Type int

const (
	Bool Type = iota
	Int8
	Int16
	Int32
	Int64
	UInt8
	UInt16
	UInt32
	UInt64
	Float32
	Float64
	Complex64
	Complex128
	Undefined
)

func (t Type) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case UInt8:
		return "uint8"
	case UInt16:
		return "uint16"
	case UInt32:
		return "uint32"
	case UInt64:
		return "uint64"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Complex64:
		return "complex64"
	case Complex128:
		return "complex128"
	default:
		return "undefined"
	}
}

// LoopKind distinguishes how a For loop should be treated by a
// downstream backend; the lowerer only chooses among these, it never
// executes them.
type LoopKind int

const (
	Serial LoopKind = iota
	Vectorized
	Runtime
	StaticChunked
)

// ParallelUnit tags the hardware unit a For loop is annotated for. Only
// NotParallel loops are guaranteed to run with no surrounding
// synchronization; all others are a hint consumed by a backend this
// package treats as external.
type ParallelUnit int

const (
	NotParallel ParallelUnit = iota
	CPUThread
	CPUVector
	CPUWarp
	GPUBlock
	GPUThread
)

// RaceStrategy tags how a parallel loop resolves concurrent writes to
// the same destination. Only Atomics changes lowering behavior (it
// raises markAssignsAtomicDepth around nested stores).
type RaceStrategy int

const (
	NoRace RaceStrategy = iota
	Atomics
	ParallelReduction
)

// GetPropertyKind selects which facet of a tensor's runtime
// representation a GetProperty expression reads.
type GetPropertyKind int

const (
	Values GetPropertyKind = iota
	FillValue
	FillRegion
	FillRegionLen
	Dimension
)
