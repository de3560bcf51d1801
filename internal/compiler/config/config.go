// Package config holds the CLI-resolved options threaded into the stdlib
// resolver and the codegen entry point. It carries no defaults of its
// own opinion beyond the zero value; the driver resolves flags, then
// environment, then falls back to its own defaults before constructing
// one of these.
package config

// Options configures a single compilation run.
type Options struct {
	// StdlibDir, when non-empty, is consulted before the embedded stdlib
	// table: a file at StdlibDir/<path>.agc, if present, overrides the
	// built-in module for that `std:<path>` import. Empty means
	// embedded-only.
	StdlibDir string

	// OutDir, when non-empty, is joined with the input file's base name
	// (extension swapped to .js) to produce the default output path when
	// `-o` is not given explicitly.
	OutDir string
}
