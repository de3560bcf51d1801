package component_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/checker"
	"github.com/agc-lang/agc/internal/compiler/codegen"
	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/dsl/component"
	"github.com/agc-lang/agc/internal/compiler/jsprint"
	"github.com/agc-lang/agc/internal/compiler/parser"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	mod, diags := parser.Parse(src)
	require.False(t, diags.HasErrors(), "parse errors: %v", diags.All())
	res := checker.Check(mod)
	require.False(t, res.Diags.HasErrors(), "check errors: %v", res.Diags.All())
	reg := dsl.NewRegistry()
	reg.Register("component", component.New())
	gen := codegen.New(reg, res.EnumFieldNames)
	prog, gdiags := gen.Generate(mod)
	require.False(t, gdiags.HasErrors(), "codegen errors: %v", gdiags.All())
	return jsprint.Print(prog)
}

func generateErr(t *testing.T, src string) bool {
	t.Helper()
	mod, diags := parser.Parse(src)
	require.False(t, diags.HasErrors(), "parse errors: %v", diags.All())
	reg := dsl.NewRegistry()
	reg.Register("component", component.New())
	gen := codegen.New(reg, nil)
	_, gdiags := gen.Generate(mod)
	return gdiags.HasErrors()
}

func TestComponentWithJSDoc(t *testing.T) {
	out := generate(t, "@component Greeting ```\n"+
		"/**\n"+
		" * Greets a user by name.\n"+
		" * @param {string} name - the user's name\n"+
		" */\n"+
		"export default function Greeting({ name }) {\n"+
		"  return `<p>Hello, ${name}</p>`;\n"+
		"}\n"+
		"```\n")
	require.True(t, strings.Contains(out, `import { Component } from "agc/runtime/component";`))
	require.True(t, strings.Contains(out, "const Greeting = new Component("))
	require.True(t, strings.Contains(out, `name: "Greeting"`))
	require.True(t, strings.Contains(out, `description: "Greets a user by name."`))
	require.True(t, strings.Contains(out, `type: "string"`))
	require.True(t, strings.Contains(out, `description: "the user's name"`))
	require.True(t, strings.Contains(out, `default: false`))
	require.True(t, strings.Contains(out, "function Greeting({ name }) {"))
}

func TestComponentNoJSDoc(t *testing.T) {
	out := generate(t, "@component Plain ```\n"+
		"export default function Plain({ label }) {\n"+
		"  return `<span>${label}</span>`;\n"+
		"}\n"+
		"```\n")
	require.True(t, strings.Contains(out, `name: "Plain"`))
	require.False(t, strings.Contains(out, "description:"))
	require.True(t, strings.Contains(out, "props: {}"))
}

func TestComponentWithDefaultsAndJSDoc(t *testing.T) {
	out := generate(t, "@component Counter ```\n"+
		"/**\n"+
		" * @param {number} start - initial value\n"+
		" */\n"+
		"export default function Counter({ start = 0 }) {\n"+
		"  return `<div>${start}</div>`;\n"+
		"}\n"+
		"```\n")
	require.True(t, strings.Contains(out, `type: "float"`))
	require.True(t, strings.Contains(out, `default: true`))
}

func TestComponentWithDefaultsButNoJSDocEntryIsNotAProp(t *testing.T) {
	out := generate(t, "@component Toggle ```\n"+
		"/**\n"+
		" * A toggle.\n"+
		" */\n"+
		"export default function Toggle({ on = false, label }) {\n"+
		"  return `<div>${label}</div>`;\n"+
		"}\n"+
		"```\n")
	require.True(t, strings.Contains(out, "props: {}"))
}

func TestComponentArrowExport(t *testing.T) {
	out := generate(t, "@component Box ```\n"+
		"export default ({ children }) => `<div>${children}</div>`;\n"+
		"```\n")
	require.True(t, strings.Contains(out, `name: "Box"`))
	require.True(t, strings.Contains(out, "({ children }) => `<div>${children}</div>`;"))
}

func TestComponentMissingExportDefaultIsError(t *testing.T) {
	require.True(t, generateErr(t, "@component Bad ```\n"+
		"function Bad() { return null; }\n"+
		"```\n"))
}

func TestComponentCaptureIsError(t *testing.T) {
	require.True(t, generateErr(t, "fn helper() -> int { 1 }\n"+
		"@component Bad ```\n"+
		"export default function Bad() { return #{helper}; }\n"+
		"```\n"))
}

func TestComponentArrayPropType(t *testing.T) {
	out := generate(t, "@component List ```\n"+
		"/**\n"+
		" * @param {string[]} items - the items\n"+
		" */\n"+
		"export default function List({ items }) {\n"+
		"  return `<ul></ul>`;\n"+
		"}\n"+
		"```\n")
	require.True(t, strings.Contains(out, `type: "[string]"`))
}

func TestComponentMultiTextParts(t *testing.T) {
	out := generate(t, "@component Split ```\n"+
		"export default function Split() {\n"+
		"  return `<div>split</div>`;\n"+
		"}\n"+
		"```\n")
	require.True(t, strings.Contains(out, "function Split() {"))
}
