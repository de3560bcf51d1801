package main

import (
	"github.com/spf13/cobra"

	"github.com/agc-lang/agc/internal/compiler/config"
)

func newCheckCmd() *cobra.Command {
	var stdlibDir string

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Run lex, parse, and type-check without emitting JavaScript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			cfg := config.Options{StdlibDir: stdlibDir}
			if cfg.StdlibDir == "" {
				cfg.StdlibDir = envOrDefault("AGC_STDLIB_DIR", "")
			}

			_, bag, source, err := compile(path, cfg)
			if err != nil {
				return err
			}
			printDiagnostics(path, source, bag)
			if bag.HasErrors() {
				return errExitSilently
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&stdlibDir, "stdlib-dir", "", "override directory for std: module sources")
	return cmd
}
