package server_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/checker"
	"github.com/agc-lang/agc/internal/compiler/codegen"
	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/dsl/server"
	"github.com/agc-lang/agc/internal/compiler/jsprint"
	"github.com/agc-lang/agc/internal/compiler/parser"
)

func generate(t *testing.T, src string) (string, *codegen.Generator) {
	t.Helper()
	mod, diags := parser.Parse(src)
	require.False(t, diags.HasErrors(), "parse errors: %v", diags.All())
	res := checker.Check(mod)
	require.False(t, res.Diags.HasErrors(), "check errors: %v", res.Diags.All())
	reg := dsl.NewRegistry()
	reg.Register("server", server.New())
	gen := codegen.New(reg, res.EnumFieldNames)
	prog, gdiags := gen.Generate(mod)
	require.False(t, gdiags.HasErrors(), "codegen errors: %v", gdiags.All())
	return jsprint.Print(prog), gen
}

func TestServerPortHostAndRoute(t *testing.T) {
	out, _ := generate(t, `
fn handler() -> int { 1 }
@server app `+"```"+`
@port 8080
@host "0.0.0.0"
@get /users #{handler}
`+"```"+`
`)
	require.True(t, strings.Contains(out, `import { createServer } from "agc/runtime/server";`))
	require.True(t, strings.Contains(out, `const app = createServer({ port: 8080, host: "0.0.0.0" });`))
	require.True(t, strings.Contains(out, `app.get("/users", handler);`))
}

func TestServerDuplicateRouteIsError(t *testing.T) {
	mod, diags := parser.Parse(`
fn a() -> int { 1 }
fn b() -> int { 2 }
@server app `+"```"+`
@get /users #{a}
@get /users #{b}
`+"```"+`
`)
	require.False(t, diags.HasErrors())
	reg := dsl.NewRegistry()
	reg.Register("server", server.New())
	gen := codegen.New(reg, nil)
	_, gdiags := gen.Generate(mod)
	require.True(t, gdiags.HasErrors())
	found := false
	for _, d := range gdiags.All() {
		if strings.Contains(d.Message, "duplicate route") && strings.Contains(d.Message, "GET /users") {
			found = true
		}
	}
	require.True(t, found)
}

func TestServerWildcardMustBeLast(t *testing.T) {
	mod, diags := parser.Parse(`
fn a() -> int { 1 }
@server app `+"```"+`
@get /files/*/edit #{a}
`+"```"+`
`)
	require.False(t, diags.HasErrors())
	reg := dsl.NewRegistry()
	reg.Register("server", server.New())
	gen := codegen.New(reg, nil)
	_, gdiags := gen.Generate(mod)
	require.True(t, gdiags.HasErrors())
}

func TestServerDefaultsPortWhenOmitted(t *testing.T) {
	out, _ := generate(t, `
fn a() -> int { 1 }
@server app `+"```"+`
@get /a #{a}
`+"```"+`
`)
	require.True(t, strings.Contains(out, "port: 3000"))
}
