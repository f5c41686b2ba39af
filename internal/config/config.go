// Package config reads the lowerer's environment variables
// (TACO_VALUE_ALLOC_HACK and TACO_LOWER_LOG). It holds no CLI flags;
// cmd/tacolower's --trace flag is bound in that command's main.go.
package config

import "os"

// ValueAllocHack reports whether TACO_VALUE_ALLOC_HACK is set to
// anything other than "0" (spec §6). No lowering path calls it, so the
// emitted IR is the same whatever the variable's value.
func ValueAllocHack() bool {
	v, ok := os.LookupEnv("TACO_VALUE_ALLOC_HACK")
	if !ok {
		return false
	}
	return v != "0"
}

// TraceEnabled reports whether TACO_LOWER_LOG is set to anything other
// than "0" — the public façade's value for Options.Trace whenever a
// caller passes it as false.
func TraceEnabled() bool {
	v, ok := os.LookupEnv("TACO_LOWER_LOG")
	if !ok {
		return false
	}
	return v != "0"
}
