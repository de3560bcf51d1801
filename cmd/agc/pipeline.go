package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/agc-lang/agc/internal/compiler/checker"
	"github.com/agc-lang/agc/internal/compiler/codegen"
	"github.com/agc-lang/agc/internal/compiler/config"
	"github.com/agc-lang/agc/internal/compiler/diag"
	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/dsl/agent"
	"github.com/agc-lang/agc/internal/compiler/dsl/component"
	"github.com/agc-lang/agc/internal/compiler/dsl/prompt"
	"github.com/agc-lang/agc/internal/compiler/dsl/server"
	"github.com/agc-lang/agc/internal/compiler/dsl/skill"
	"github.com/agc-lang/agc/internal/compiler/jsast"
	"github.com/agc-lang/agc/internal/compiler/parser"
	"github.com/agc-lang/agc/internal/compiler/stdlib"
)

// handlerRegistry returns the registry used by every compilation: the
// prompt and server handlers, the agent/skill handlers layered on top of
// the prompt grammar, and the component handler.
func handlerRegistry() *dsl.Registry {
	reg := dsl.NewRegistry()
	reg.Register("prompt", prompt.New())
	reg.Register("server", server.New())
	reg.Register("agent", agent.New())
	reg.Register("skill", skill.New())
	reg.Register("component", component.New())
	return reg
}

// compile runs lex→parse→stdlib-resolve→check→codegen for a single file,
// returning the emitted JS AST and every diagnostic collected along the
// way. A non-nil error means a host failure distinct from any diagnostic
// (file unreadable, embedded stdlib table corrupt).
func compile(path string, cfg config.Options) (*jsast.Program, *diag.Bag, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, "", fmt.Errorf("reading %s: %w", path, err)
	}
	source := string(data)

	bag := diag.NewBag()

	mod, parseDiags := parser.Parse(source)
	bag.Extend(parseDiags)

	resolved, stdlibDiags, err := stdlib.ResolveWithOverrideDir(mod, cfg.StdlibDir)
	if err != nil {
		return nil, nil, source, err
	}
	bag.Extend(stdlibDiags)

	res := checker.Check(resolved)
	bag.Extend(res.Diags)

	gen := codegen.New(handlerRegistry(), res.EnumFieldNames)
	prog, genDiags := gen.Generate(resolved)
	bag.Extend(genDiags)

	return prog, bag, source, nil
}

// printDiagnostics writes one `file:line:col: severity: message` line per
// diagnostic to stderr, sorted in source order.
func printDiagnostics(path, source string, bag *diag.Bag) {
	items := append([]diag.Diagnostic{}, bag.All()...)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Span.Start < items[j].Span.Start
	})
	for _, d := range items {
		line, col := lineCol(source, d.Span.Start)
		fmt.Fprintf(os.Stderr, "%s:%d:%d: %s: %s\n", path, line, col, d.Severity, d.Message)
	}
}

// lineCol converts a byte offset into a 1-based line and column by
// scanning the source; no line-index is precomputed.
func lineCol(source string, offset int) (line, col int) {
	if offset > len(source) {
		offset = len(source)
	}
	line, col = 1, 1
	for _, r := range source[:offset] {
		if r == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}

// outputPath computes the default `-o` target for a build when the flag
// is omitted: the input file with its extension swapped for `.js`,
// optionally rehomed under outDir.
func outputPath(input, explicit, outDir string) string {
	if explicit != "" {
		return explicit
	}
	base := input
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		base = base[:idx]
	}
	base += ".js"
	if outDir == "" {
		return base
	}
	name := base
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		name = base[idx+1:]
	}
	return strings.TrimRight(outDir, "/\\") + "/" + name
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
