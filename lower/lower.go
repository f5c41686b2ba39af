// Package lower is the module's public façade: it adapts the
// environment-variable configuration documented for this module onto
// internal/lower's engine and re-exports the types a caller needs to
// invoke it, without exposing internal/lower's package-private helpers
// (spec §2, "Public façade").
package lower

import (
	"github.com/tensorcomp/lowerer/internal/config"
	"github.com/tensorcomp/lowerer/internal/ir"
	ilower "github.com/tensorcomp/lowerer/internal/lower"
	"github.com/tensorcomp/lowerer/internal/notation"
)

// Options, Error, and ErrorKind are re-exported unchanged so that
// callers never need to import internal/lower directly.
type (
	Options   = ilower.Options
	Error     = ilower.Error
	ErrorKind = ilower.ErrorKind
)

const (
	Internal            = ilower.Internal
	Unsupported         = ilower.Unsupported
	UnsupportedDatatype = ilower.UnsupportedDatatype
)

// Lower translates stmt into an ir.Function named name (spec §4.1).
// Options.Trace set to true always enables tracing; when it is false
// (unset or set explicitly), TACO_LOWER_LOG decides (spec §6).
func Lower(stmt notation.Stmt, name string, opts Options) (*ir.Function, *Error) {
	if !opts.Trace {
		opts.Trace = config.TraceEnabled()
	}
	return ilower.Lower(stmt, name, opts)
}
