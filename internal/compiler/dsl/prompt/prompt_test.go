package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/checker"
	"github.com/agc-lang/agc/internal/compiler/codegen"
	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/dsl/prompt"
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
	reg.Register("prompt", prompt.New())
	gen := codegen.New(reg, res.EnumFieldNames)
	prog, gdiags := gen.Generate(mod)
	require.False(t, gdiags.HasErrors(), "codegen errors: %v", gdiags.All())
	return jsprint.Print(prog)
}

func TestPromptWithRoleAndCapture(t *testing.T) {
	out := generate(t, "let role: string = \"admin\";\n@prompt sys ```\n@role system\nYou are #{role}.\n```\n")
	require.True(t, strings.Contains(out, `import { PromptTemplate } from "agc/runtime/prompt";`))
	require.True(t, strings.Contains(out, "const sys = new PromptTemplate("))
	require.True(t, strings.Contains(out, `role: "system"`))
	require.True(t, strings.Contains(out, "ctx.role"))
}

func TestPromptModelDirectiveSingle(t *testing.T) {
	out := generate(t, "@prompt sys ```\n@model gpt-4o\nHello.\n```\n")
	require.True(t, strings.Contains(out, `model: "gpt-4o"`))
}

func TestPromptModelDirectiveFallbackChain(t *testing.T) {
	out := generate(t, "@prompt sys ```\n@model gpt-4o | gpt-4o-mini\nHello.\n```\n")
	require.True(t, strings.Contains(out, `["gpt-4o", "gpt-4o-mini"]`))
}

func TestPromptDuplicateModelIsError(t *testing.T) {
	mod, diags := parser.Parse("@prompt sys ```\n@model a\n@model b\nHi.\n```\n")
	require.False(t, diags.HasErrors())
	reg := dsl.NewRegistry()
	reg.Register("prompt", prompt.New())
	gen := codegen.New(reg, nil)
	_, gdiags := gen.Generate(mod)
	require.True(t, gdiags.HasErrors())
}

func TestPromptNoExplicitRoleDefaultsToUser(t *testing.T) {
	out := generate(t, "@prompt sys ```\nJust body text.\n```\n")
	require.True(t, strings.Contains(out, `role: "user"`))
}

func TestPromptFileReference(t *testing.T) {
	mod, diags := parser.Parse(`@prompt sys from "./system.prompt";`)
	require.False(t, diags.HasErrors())
	reg := dsl.NewRegistry()
	reg.Register("prompt", prompt.New())
	gen := codegen.New(reg, nil)
	prog, gdiags := gen.Generate(mod)
	require.False(t, gdiags.HasErrors())
	out := jsprint.Print(prog)
	require.True(t, strings.Contains(out, `import { readFile } from "node:fs/promises";`))
	require.True(t, strings.Contains(out, `await readFile("./system.prompt", "utf-8")`))
}

func TestPromptConstraintsAndExamples(t *testing.T) {
	out := generate(t, `@prompt sys `+"```"+`
@constraints { maxTokens: 500, strict: true }
@examples { role: "user", content: "hi" }
Hello.
`+"```"+`
`)
	require.True(t, strings.Contains(out, "constraints: { maxTokens: 500, strict: true }"))
	require.True(t, strings.Contains(out, `examples: [{ role: "user", content: "hi" }]`))
}
