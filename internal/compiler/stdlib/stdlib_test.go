package stdlib_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/ast"
	"github.com/agc-lang/agc/internal/compiler/parser"
	"github.com/agc-lang/agc/internal/compiler/stdlib"
)

func TestResolveNamedImportKeepsOnlyNamedExterns(t *testing.T) {
	mod, diags := parser.Parse(`import { readFile, println } from "std:io";`)
	require.False(t, diags.HasErrors())

	resolved, bag, err := stdlib.Resolve(mod)
	require.NoError(t, err)
	require.False(t, bag.HasErrors())

	var names []string
	for _, item := range resolved.Items {
		if fn, ok := item.(ast.ExternFnDecl); ok {
			names = append(names, fn.Name)
		}
	}
	require.ElementsMatch(t, []string{"readFile", "println"}, names)
}

func TestResolveFullModuleImportWhenNoNamesGiven(t *testing.T) {
	mod, diags := parser.Parse(`import * as io from "std:io";`)
	require.False(t, diags.HasErrors())

	resolved, bag, err := stdlib.Resolve(mod)
	require.NoError(t, err)
	require.False(t, bag.HasErrors())
	require.Len(t, resolved.Items, 4)
}

func TestResolveAliasedImport(t *testing.T) {
	mod, diags := parser.Parse(`import { println as log } from "std:io";`)
	require.False(t, diags.HasErrors())

	resolved, bag, err := stdlib.Resolve(mod)
	require.NoError(t, err)
	require.False(t, bag.HasErrors())
	require.Len(t, resolved.Items, 1)
	fn := resolved.Items[0].(ast.ExternFnDecl)
	require.Equal(t, "log", fn.Name)
}

func TestResolveUnknownModuleIsError(t *testing.T) {
	mod, diags := parser.Parse(`import { whatever } from "std:nope";`)
	require.False(t, diags.HasErrors())

	_, bag, err := stdlib.Resolve(mod)
	require.NoError(t, err)
	require.True(t, bag.HasErrors())
}

func TestResolveUnknownExportIsError(t *testing.T) {
	mod, diags := parser.Parse(`import { notReal } from "std:io";`)
	require.False(t, diags.HasErrors())

	_, bag, err := stdlib.Resolve(mod)
	require.NoError(t, err)
	require.True(t, bag.HasErrors())
}

func TestResolveLeavesNonStdImportsAlone(t *testing.T) {
	mod, diags := parser.Parse(`import { Foo } from "./local";`)
	require.False(t, diags.HasErrors())

	resolved, bag, err := stdlib.Resolve(mod)
	require.NoError(t, err)
	require.False(t, bag.HasErrors())
	require.Len(t, resolved.Items, 1)
	_, ok := resolved.Items[0].(ast.Import)
	require.True(t, ok)
}
