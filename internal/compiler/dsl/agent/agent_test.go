package agent_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/checker"
	"github.com/agc-lang/agc/internal/compiler/codegen"
	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/dsl/agent"
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
	reg.Register("agent", agent.New())
	gen := codegen.New(reg, res.EnumFieldNames)
	prog, gdiags := gen.Generate(mod)
	require.False(t, gdiags.HasErrors(), "codegen errors: %v", gdiags.All())
	return jsprint.Print(prog)
}

func TestAgentWithToolsAndPrompt(t *testing.T) {
	out := generate(t, `
extern fn webSearch() -> any
@agent researcher `+"```"+`
@role system
@tools #{webSearch}
You research things.
`+"```"+`
`)
	require.True(t, strings.Contains(out, `import { Agent } from "agc/runtime/agent";`))
	require.True(t, strings.Contains(out, "const researcherPrompt = new PromptTemplate("))
	require.True(t, strings.Contains(out, "const researcher = new Agent("))
	require.True(t, strings.Contains(out, "prompt: researcherPrompt"))
	require.True(t, strings.Contains(out, "tools: [webSearch]"))
}

func TestAgentOnEventHook(t *testing.T) {
	out := generate(t, `
fn onStart() -> int { 1 }
@agent bot `+"```"+`
@role system
@on start #{onStart}
Hello.
`+"```"+`
`)
	require.True(t, strings.Contains(out, "on: { start: onStart }"))
}

func TestAgentDuplicateOnEventIsError(t *testing.T) {
	mod, diags := parser.Parse(`
fn a() -> int { 1 }
fn b() -> int { 2 }
@agent bot ` + "```" + `
@on start #{a}
@on start #{b}
Hi.
` + "```" + `
`)
	require.False(t, diags.HasErrors())
	reg := dsl.NewRegistry()
	reg.Register("agent", agent.New())
	gen := codegen.New(reg, nil)
	_, gdiags := gen.Generate(mod)
	require.True(t, gdiags.HasErrors())
}
