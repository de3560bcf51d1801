// Command agc is the command-line driver for the compiler: it wires
// lex→parse→stdlib-resolve→check→codegen→emit together behind `check`
// and `build` subcommands. The core packages never use a logger, and the
// only filesystem access outside this package is the stdlib resolver
// reading an override module from the directory passed in.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("warning: failed to load .env: %v", err)
	}

	root := &cobra.Command{
		Use:   "agc",
		Short: "agc: compiler for the AGC surface language",
		Long: `agc compiles AGC source files to ES2022+ JavaScript.

It type-checks a module, resolves std: imports against an embedded
standard library, and lowers the result to a JS AST before printing it.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.AddCommand(newCheckCmd())
	root.AddCommand(newBuildCmd())

	if err := root.Execute(); err != nil {
		if err != errExitSilently {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
