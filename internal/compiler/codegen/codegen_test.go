package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/ast"
	"github.com/agc-lang/agc/internal/compiler/checker"
	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/jsast"
	"github.com/agc-lang/agc/internal/compiler/jsprint"
	"github.com/agc-lang/agc/internal/compiler/parser"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	mod, diags := parser.Parse(src)
	require.False(t, diags.HasErrors(), "parse errors: %v", diags.All())
	res := checker.Check(mod)
	require.False(t, res.Diags.HasErrors(), "check errors: %v", res.Diags.All())
	gen := New(dsl.NewRegistry(), res.EnumFieldNames)
	prog, gdiags := gen.Generate(mod)
	require.False(t, gdiags.HasErrors(), "codegen errors: %v", gdiags.All())
	return jsprint.Print(prog)
}

func TestVariableLowering(t *testing.T) {
	out := generate(t, "let x: int = 42;\nmut y: string = \"hello\";\nconst PI: float = 3.14;")
	requireOrder(t, out, "const x = 42", `let y = "hello"`, "const PI = 3.14")
}

func TestPipeWithPlaceholder(t *testing.T) {
	out := generate(t, `
fn double(x: int) -> int { x * 2 }
fn main() { let r = 5 |> double(_); }
`)
	require.True(t, strings.Contains(out, "double(5)"))
}

func TestPipeWithoutPlaceholder(t *testing.T) {
	out := generate(t, `
fn double(x: int) -> int { x * 2 }
fn main() { let r = 5 |> double; }
`)
	require.True(t, strings.Contains(out, "double(5)"))
}

func TestStructErasure(t *testing.T) {
	out := generate(t, `
struct Point { x: int, y: int }
fn make() -> Point { { x: 1, y: 2 } }
`)
	require.True(t, strings.Contains(out, "function make"))
	require.False(t, strings.Contains(out, "struct"))
}

func TestIfElseLowersToConditional(t *testing.T) {
	out := generate(t, `fn f(c: bool) -> int { if c { 1 } else { 2 } }`)
	require.True(t, strings.Contains(out, "c ? 1 : 2"))
}

func TestIfWithoutElseLowersToIIFE(t *testing.T) {
	out := generate(t, `
fn f(c: bool) {
  if c { 1; }
}
`)
	require.True(t, strings.Contains(out, "(() => {"))
	require.True(t, strings.Contains(out, "if (c)"))
}

func TestMatchLowersToChainedIfIIFE(t *testing.T) {
	out := generate(t, `
enum Shape { Circle(r: int), Square(side: int) }
fn area(s: Shape) -> int {
  match s {
    Shape::Circle(r) => r * r,
    Shape::Square(side) => side * side,
  }
}
`)
	require.True(t, strings.Contains(out, `_match.tag === "Circle"`))
	require.True(t, strings.Contains(out, `_match.tag === "Square"`))
	require.True(t, strings.Contains(out, "const r = _match.r;"))
}

func TestErrorPropagateLowersToIIFE(t *testing.T) {
	out := generate(t, `
fn risky() -> int { 1 }
fn f() -> int { risky()? }
`)
	require.True(t, strings.Contains(out, "instanceof Error"))
	require.True(t, strings.Contains(out, "const _tmp ="))
}

func TestExternImportSynthesisSkipsUnreferenced(t *testing.T) {
	out := generate(t, `
@js("node:fs/promises", "readFile")
extern fn readFile(path: string) -> Promise<string>
@js("node:path")
extern fn unused(a: string) -> string
async fn main() -> string { await readFile("x") }
`)
	require.True(t, strings.Contains(out, `import { readFile } from "node:fs/promises";`))
	require.False(t, strings.Contains(out, "node:path"))
}

func TestTemplateStringLowering(t *testing.T) {
	out := generate(t, "fn greet(name: string) -> string { `hi ${name}!` }")
	require.True(t, strings.Contains(out, "`hi ${name}!`"))
}

// stubPromptHandler is a minimal handler used to exercise DSL dispatch and
// capture translation without pulling in the full prompt package.
type stubPromptHandler struct{}

func (stubPromptHandler) Handle(block dsl.Block, c dsl.Context) ([]jsast.Stmt, error) {
	var call jsast.Expr = jsast.EString{Value: "unused"}
	for _, part := range block.Parts {
		if part.Kind == dsl.PartCapture {
			call = c.Translate(part.Capture)
		}
	}
	return []jsast.Stmt{jsast.SVarDecl{Kind: jsast.VarConst, Name: block.Name, Init: call}}, nil
}

func TestDslDispatchTranslatesCapture(t *testing.T) {
	mod, diags := parser.Parse("let role: string = \"admin\";\n@prompt sys ```\nYou are #{role}.\n```\n")
	require.False(t, diags.HasErrors(), "parse errors: %v", diags.All())
	reg := dsl.NewRegistry()
	reg.Register("prompt", stubPromptHandler{})
	gen := New(reg, nil)
	prog, gdiags := gen.Generate(mod)
	require.False(t, gdiags.HasErrors())
	out := jsprint.Print(prog)
	require.True(t, strings.Contains(out, "const sys = role;"))
}

func TestDslDispatchUnknownKindIsDiagnostic(t *testing.T) {
	mod, diags := parser.Parse("@widget thing ```\nhello\n```\n")
	require.False(t, diags.HasErrors())
	gen := New(dsl.NewRegistry(), nil)
	_, gdiags := gen.Generate(mod)
	require.True(t, gdiags.HasErrors())
}

func requireOrder(t *testing.T, haystack string, needles ...string) {
	t.Helper()
	last := -1
	for _, n := range needles {
		idx := strings.Index(haystack, n)
		require.True(t, idx >= 0, "expected %q in output:\n%s", n, haystack)
		require.True(t, idx > last, "expected %q to appear after previous needle in output:\n%s", n, haystack)
		last = idx
	}
}
