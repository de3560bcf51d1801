package jsprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/jsast"
)

func TestPrintExprPrecedence(t *testing.T) {
	// (1 + 2) * 3 needs parens around the addition; 1 + 2 * 3 does not.
	mul := jsast.EBinary{
		Op:   jsast.BinMul,
		Left: jsast.EBinary{Op: jsast.BinAdd, Left: jsast.ENumber{Value: 1}, Right: jsast.ENumber{Value: 2}},
		Right: jsast.ENumber{Value: 3},
	}
	require.Equal(t, "(1 + 2) * 3", PrintExpr(mul))

	add := jsast.EBinary{
		Op:   jsast.BinAdd,
		Left: jsast.ENumber{Value: 1},
		Right: jsast.EBinary{Op: jsast.BinMul, Left: jsast.ENumber{Value: 2}, Right: jsast.ENumber{Value: 3}},
	}
	require.Equal(t, "1 + 2 * 3", PrintExpr(add))
}

func TestPrintStringLiteral(t *testing.T) {
	require.Equal(t, `"it's ok"`, PrintExpr(jsast.EString{Value: "it's ok"}))
}

func TestPrintStringLiteralEscapesDoubleQuote(t *testing.T) {
	require.Equal(t, `"say \"hi\""`, PrintExpr(jsast.EString{Value: `say "hi"`}))
}

func TestPrintTemplate(t *testing.T) {
	tmpl := jsast.ETemplate{
		Quasis: []string{"hello ", "!"},
		Exprs:  []jsast.Expr{jsast.EIdentifier{Name: "name"}},
	}
	require.Equal(t, "`hello ${name}!`", PrintExpr(tmpl))
}

func TestPrintObjectLiteral(t *testing.T) {
	obj := jsast.EObject{Properties: []jsast.EObjectProperty{
		{Key: "id", Value: jsast.EIdentifier{Name: "id"}},
		{Key: "not-an-ident", Value: jsast.ENumber{Value: 1}},
	}}
	require.Equal(t, `{ id: id, "not-an-ident": 1 }`, PrintExpr(obj))
}

func TestPrintArrowConciseBody(t *testing.T) {
	arrow := jsast.EArrow{Params: []string{"x"}, Expr: jsast.EBinary{Op: jsast.BinMul, Left: jsast.EIdentifier{Name: "x"}, Right: jsast.ENumber{Value: 2}}}
	require.Equal(t, "(x) => x * 2", PrintExpr(arrow))
}

func TestPrintArrowReturningObjectLiteral(t *testing.T) {
	arrow := jsast.EArrow{Params: []string{}, Expr: jsast.EObject{Properties: []jsast.EObjectProperty{
		{Key: "ok", Value: jsast.EBool{Value: true}},
	}}}
	require.Equal(t, "() => ({ ok: true })", PrintExpr(arrow))
}

func TestPrintProgramWithImportAndFunction(t *testing.T) {
	prog := &jsast.Program{Stmts: []jsast.Stmt{
		jsast.SImport{Named: map[string]string{"readFile": "readFile"}, From: "node:fs/promises"},
		jsast.SFunctionDecl{
			Name:    "greet",
			Params:  []string{"name"},
			IsAsync: true,
			Body: []jsast.Stmt{
				jsast.SReturn{Value: jsast.ETemplate{Quasis: []string{"hi ", ""}, Exprs: []jsast.Expr{jsast.EIdentifier{Name: "name"}}}},
			},
		},
	}}
	out := Print(prog)
	require.True(t, strings.Contains(out, `import { readFile } from "node:fs/promises";`))
	require.True(t, strings.Contains(out, "async function greet(name) {"))
	require.True(t, strings.Contains(out, "return `hi ${name}`;"))
}

func TestPrintIIFEForExpressionValuedBlock(t *testing.T) {
	iife := jsast.EIIFE{Body: []jsast.Stmt{
		jsast.SIf{
			Test: jsast.EIdentifier{Name: "cond"},
			Yes:  []jsast.Stmt{jsast.SReturn{Value: jsast.ENumber{Value: 1}}},
			No:   []jsast.Stmt{jsast.SReturn{Value: jsast.ENumber{Value: 2}}},
		},
	}}
	out := PrintExpr(iife)
	require.True(t, strings.HasPrefix(out, "(() => {"))
	require.True(t, strings.HasSuffix(out, "})()"))
}

func TestPrintOptionalChainAndNullish(t *testing.T) {
	expr := jsast.EBinary{
		Op: jsast.BinNullishCoalescing,
		Left: jsast.EMember{
			Object:   jsast.EIdentifier{Name: "user"},
			Property: "name",
			Optional: true,
		},
		Right: jsast.EString{Value: "anon"},
	}
	require.Equal(t, `user?.name ?? "anon"`, PrintExpr(expr))
}
