// Command tacolower lowers one of a handful of hand-built index-
// notation scenarios through the lowering core and dumps the
// resulting imperative IR. It exists to give the lowering core
// something runnable to exercise end to end; turning that IR into
// compilable source is left to a backend outside this module's scope.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tensorcomp/lowerer/lower"
)

var traceFlag bool

func main() {
	root := &cobra.Command{
		Use:   "tacolower <scenario>",
		Short: "Lower a worked index-notation scenario to imperative IR",
		Long:  "tacolower lowers one of this module's worked index-notation scenarios and prints the resulting function.\n\n" + scenarioHelp(),
		Args:  cobra.ExactArgs(1),
		RunE:  runLower,
	}
	root.Flags().BoolVar(&traceFlag, "trace", false, "emit lowering trace lines to stderr (TACO_LOWER_LOG also enables them)")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runLower(cmd *cobra.Command, args []string) error {
	name := args[0]
	sc, ok := scenarios[name]
	if !ok {
		return fmt.Errorf("unknown scenario %q\n\n%s", name, scenarioHelp())
	}

	assemble, compute := sc.opts()
	opts := lower.Options{
		Assemble: assemble,
		Compute:  compute,
		Trace:    traceFlag,
	}

	fn, lowerErr := lower.Lower(sc.stmt, sc.name, opts)
	if lowerErr != nil {
		return fmt.Errorf("lowering %q: %w", name, lowerErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "// %s\n", sc.desc)
	dumpFunction(cmd.OutOrStdout(), fn)
	return nil
}
