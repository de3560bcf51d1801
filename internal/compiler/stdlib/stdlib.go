// Package stdlib resolves `std:<path>` imports to a small embedded table
// of source modules. Resolution happens before type checking: a std
// import is replaced in place by the extern declarations its target
// module exports, selectively if the import named specific symbols.
package stdlib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/agc-lang/agc/internal/compiler/ast"
	"github.com/agc-lang/agc/internal/compiler/diag"
	"github.com/agc-lang/agc/internal/compiler/parser"
	"github.com/agc-lang/agc/internal/compiler/span"
)

// table maps the path suffix following "std:" to embedded module source.
// A representative slice of a standard library, not a complete one.
var table = map[string]string{
	"io":          ioModule,
	"collections": collectionsModule,
	"math":        mathModule,
}

// Resolve scans mod for `std:` imports, splices in the extern
// declarations they reference, and returns the rewritten module. The
// returned diag.Bag carries resolution-category diagnostics (unknown
// module path, unknown named export); a non-nil error means an embedded
// module failed to parse, which indicates a corrupt table entry rather
// than anything about the input program.
func Resolve(mod *ast.Module) (*ast.Module, *diag.Bag, error) {
	return ResolveWithOverrideDir(mod, "")
}

// ResolveWithOverrideDir behaves like Resolve, except a file at
// <overrideDir>/<path>.agc, if present, is read and used in place of the
// corresponding embedded module for `std:<path>`. This lets a project
// shadow or extend the built-in table without recompiling the driver.
func ResolveWithOverrideDir(mod *ast.Module, overrideDir string) (*ast.Module, *diag.Bag, error) {
	bag := diag.NewBag()
	items := make([]ast.Item, 0, len(mod.Items))

	for _, item := range mod.Items {
		imp, ok := item.(ast.Import)
		if !ok || !strings.HasPrefix(imp.Path, "std:") {
			items = append(items, item)
			continue
		}

		modPath := strings.TrimPrefix(imp.Path, "std:")
		src, err := moduleSource(modPath, overrideDir)
		if err != nil {
			return nil, nil, err
		}
		if src == "" {
			bag.AddError(imp.Sp, "unknown std module %q", modPath)
			continue
		}

		spliced, err := splice(imp, src, modPath, bag)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, spliced...)
	}

	return &ast.Module{Items: items}, bag, nil
}

// moduleSource resolves a std module path to source text, preferring an
// override file over the embedded table. An empty result with a nil
// error means the path is genuinely unknown.
func moduleSource(modPath, overrideDir string) (string, error) {
	if overrideDir != "" {
		candidate := filepath.Join(overrideDir, modPath+".agc")
		data, err := os.ReadFile(candidate)
		if err == nil {
			return string(data), nil
		}
		if !os.IsNotExist(err) {
			return "", fmt.Errorf("reading stdlib override %q: %w", candidate, err)
		}
	}
	return table[modPath], nil
}

// splice parses an embedded module's source and returns the extern
// declarations the import requests, renamed per any aliases, with their
// span set to the importing statement's span for diagnostic purposes.
func splice(imp ast.Import, src, modPath string, bag *diag.Bag) ([]ast.Item, error) {
	subMod, subDiags := parser.Parse(src)
	if subDiags.HasErrors() {
		return nil, fmt.Errorf("embedded stdlib module %q failed to parse: %v", modPath, subDiags.All())
	}

	exports := map[string]ast.Item{}
	var order []string
	for _, item := range subMod.Items {
		name, ok := externName(item)
		if !ok {
			continue
		}
		exports[name] = item
		order = append(order, name)
	}

	if len(imp.Names) == 0 {
		out := make([]ast.Item, 0, len(order))
		for _, name := range order {
			out = append(out, withSpan(exports[name], imp.Sp))
		}
		return out, nil
	}

	out := make([]ast.Item, 0, len(imp.Names))
	for _, want := range imp.Names {
		item, ok := exports[want.Name]
		if !ok {
			bag.AddError(imp.Sp, "std module %q has no export %q", modPath, want.Name)
			continue
		}
		if want.Alias != "" {
			item = renamed(item, want.Alias)
		}
		out = append(out, withSpan(item, imp.Sp))
	}
	return out, nil
}

func externName(item ast.Item) (string, bool) {
	switch n := item.(type) {
	case ast.ExternFnDecl:
		return n.Name, true
	case ast.ExternStructDecl:
		return n.Name, true
	case ast.ExternTypeDecl:
		return n.Name, true
	default:
		return "", false
	}
}

func renamed(item ast.Item, alias string) ast.Item {
	switch n := item.(type) {
	case ast.ExternFnDecl:
		n.Name = alias
		return n
	case ast.ExternStructDecl:
		n.Name = alias
		return n
	case ast.ExternTypeDecl:
		n.Name = alias
		return n
	default:
		return item
	}
}

// withSpan rewrites an extern declaration's span to point at the
// importing statement, so diagnostics about a spliced-in declaration
// (e.g. a duplicate name) land on source the caller actually wrote.
func withSpan(item ast.Item, sp span.Span) ast.Item {
	switch n := item.(type) {
	case ast.ExternFnDecl:
		n.Sp = sp
		return n
	case ast.ExternStructDecl:
		n.Sp = sp
		return n
	case ast.ExternTypeDecl:
		n.Sp = sp
		return n
	default:
		return item
	}
}
