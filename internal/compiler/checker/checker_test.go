package checker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/parser"
	"github.com/agc-lang/agc/internal/compiler/types"
)

func check(t *testing.T, src string) *Result {
	t.Helper()
	mod, diags := parser.Parse(src)
	require.False(t, diags.HasErrors(), "parse errors: %v", diags.All())
	return Check(mod)
}

func TestCheckFnReturnTypeOK(t *testing.T) {
	res := check(t, `fn add(a: int, b: int) -> int { a + b }`)
	require.False(t, res.Diags.HasErrors())
}

func TestCheckFnReturnTypeMismatch(t *testing.T) {
	res := check(t, `fn add(a: int, b: int) -> string { a + b }`)
	require.True(t, res.Diags.HasErrors())
}

func TestCheckVarDeclMismatch(t *testing.T) {
	res := check(t, `let x: string = 1;`)
	require.True(t, res.Diags.HasErrors())
}

func TestCheckUndefinedName(t *testing.T) {
	res := check(t, `fn f() -> int { ret y }`)
	require.True(t, res.Diags.HasErrors())
}

func TestCheckAsyncWrapsPromise(t *testing.T) {
	res := check(t, `async fn f() -> int { ret 1 }`)
	require.False(t, res.Diags.HasErrors())
	require.Equal(t, types.Promise, res.Functions["f"].Ret.Kind)
	require.Equal(t, types.Int, res.Functions["f"].Ret.Elem.Kind)
}

func TestCheckAwaitUnwrapsPromise(t *testing.T) {
	res := check(t, `
async fn inner() -> int { ret 1 }
async fn outer() -> int { ret await inner() }
`)
	require.False(t, res.Diags.HasErrors())
}

func TestCheckAwaitNonPromiseErrors(t *testing.T) {
	res := check(t, `fn f() -> int { ret await 1 }`)
	require.True(t, res.Diags.HasErrors())
}

func TestCheckStructFieldAccess(t *testing.T) {
	res := check(t, `
struct Point { x: int, y: int }
fn sum(p: Point) -> int { p.x + p.y }
`)
	require.False(t, res.Diags.HasErrors())
}

func TestCheckEnumMatchBindings(t *testing.T) {
	res := check(t, `
enum Shape { Circle(r: int), Square(side: int) }
fn area(s: Shape) -> int {
  match s {
    Shape::Circle(r) => r * r,
    Shape::Square(side) => side * side,
  }
}
`)
	require.False(t, res.Diags.HasErrors())
}

func TestCheckIfElseJoinType(t *testing.T) {
	res := check(t, `fn f(c: bool) -> int { if c { 1 } else { 2 } }`)
	require.False(t, res.Diags.HasErrors())
}

func TestCheckIfWithoutElseIsNullable(t *testing.T) {
	res := check(t, `
fn f(c: bool) -> int? {
  if c { 1 }
}
`)
	require.False(t, res.Diags.HasErrors())
}

func TestCheckPipeTypesAsAnyRegardlessOfCalleeParam(t *testing.T) {
	res := check(t, `
fn f(s: string) -> int { 0 }
fn g() -> any { 1 |> f(_) }
`)
	require.False(t, res.Diags.HasErrors(), "pipe typing is intentionally loose; a mismatched piped value is not an error")
}

func TestCheckCallArgCountMismatch(t *testing.T) {
	res := check(t, `
fn f(a: int, b: int) -> int { a + b }
fn g() -> int { f(1) }
`)
	require.True(t, res.Diags.HasErrors())
}

func TestCheckArrowInference(t *testing.T) {
	res := check(t, `let double = (x: int) => x * 2;`)
	require.False(t, res.Diags.HasErrors())
}

func TestCheckObjectLiteralAssignableToStruct(t *testing.T) {
	res := check(t, `
struct Point { x: int, y: int }
fn make() -> Point { { x: 1, y: 2 } }
`)
	require.False(t, res.Diags.HasErrors())
}

func TestCheckConstRegistryForStructs(t *testing.T) {
	res := check(t, `struct Point { x: int, y: int }`)
	require.Contains(t, res.Structs, "Point")
	require.Equal(t, []string{"x", "y"}, res.Structs["Point"].FieldOrder)
}
