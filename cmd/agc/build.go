package main

import (
	"fmt"
	"log"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/agc-lang/agc/internal/compiler/config"
	"github.com/agc-lang/agc/internal/compiler/jsprint"
)

func newBuildCmd() *cobra.Command {
	var (
		outputFile string
		stdlibDir  string
		outDir     string
		glob       string
	)

	cmd := &cobra.Command{
		Use:   "build [file]",
		Short: "Compile a source file (or a --glob batch) to JavaScript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// An explicit flag wins; the environment fills in only unset flags.
			cfg := config.Options{StdlibDir: stdlibDir, OutDir: outDir}
			if cfg.StdlibDir == "" {
				cfg.StdlibDir = envOrDefault("AGC_STDLIB_DIR", "")
			}
			if cfg.OutDir == "" {
				cfg.OutDir = envOrDefault("AGC_OUT_DIR", "")
			}

			if glob != "" {
				if len(args) > 0 {
					return fmt.Errorf("pass either a file argument or --glob, not both")
				}
				return buildGlob(glob, cfg)
			}
			if len(args) != 1 {
				return fmt.Errorf("build requires exactly one file, or --glob '<pattern>'")
			}
			return buildOne(args[0], outputFile, cfg)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file path (default: <input>.js)")
	cmd.Flags().StringVar(&stdlibDir, "stdlib-dir", "", "override directory for std: module sources")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory to rehome default output paths under")
	cmd.Flags().StringVar(&glob, "glob", "", "compile every file matching this doublestar pattern")
	return cmd
}

// buildOne compiles a single file and writes it, unless an error-severity
// diagnostic was recorded, in which case the write is suppressed and the
// command exits non-zero.
func buildOne(input, explicitOut string, cfg config.Options) error {
	log.Printf("starting build %s", input)

	prog, bag, source, err := compile(input, cfg)
	if err != nil {
		return err
	}
	printDiagnostics(input, source, bag)
	if bag.HasErrors() {
		return errExitSilently
	}

	code := jsprint.Print(prog)
	target := outputPath(input, explicitOut, cfg.OutDir)
	if err := os.WriteFile(target, []byte(code), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	log.Printf("wrote %s", target)
	return nil
}

// buildGlob compiles every file matching pattern independently: each
// compilation is its own lex→parse→check→codegen run with no shared
// state, so one failing file doesn't block the rest. Failures accumulate
// into a single non-zero exit status.
func buildGlob(pattern string, cfg config.Options) error {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return fmt.Errorf("invalid glob %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("glob %q matched no files", pattern)
	}

	failed := false
	for _, path := range matches {
		if err := buildOne(path, "", cfg); err != nil {
			if err != errExitSilently {
				fmt.Fprintln(os.Stderr, err)
			}
			failed = true
		}
	}
	if failed {
		return errExitSilently
	}
	return nil
}
