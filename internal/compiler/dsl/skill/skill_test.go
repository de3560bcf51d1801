package skill_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agc-lang/agc/internal/compiler/checker"
	"github.com/agc-lang/agc/internal/compiler/codegen"
	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/dsl/skill"
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
	reg.Register("skill", skill.New())
	gen := codegen.New(reg, res.EnumFieldNames)
	prog, gdiags := gen.Generate(mod)
	require.False(t, gdiags.HasErrors(), "codegen errors: %v", gdiags.All())
	return jsprint.Print(prog)
}

func TestSkillWithDescriptionInputAndSteps(t *testing.T) {
	out := generate(t, `
extern fn summarize() -> any
@skill summarizer `+"```"+`
@description Summarizes a document.
@input { document: string }
@steps #{summarize}
@role system
Summarize the document.
`+"```"+`
`)
	require.True(t, strings.Contains(out, `import { Skill } from "agc/runtime/skill";`))
	require.True(t, strings.Contains(out, "const summarizerPrompt = new PromptTemplate("))
	require.True(t, strings.Contains(out, "const summarizer = new Skill("))
	require.True(t, strings.Contains(out, "prompt: summarizerPrompt"))
	require.True(t, strings.Contains(out, `description: "Summarizes a document."`))
	require.True(t, strings.Contains(out, `input: { document: "string" }`))
	require.True(t, strings.Contains(out, "steps: [summarize]"))
}

func TestSkillOutputAsCapture(t *testing.T) {
	out := generate(t, `
extern fn toSchema() -> any
@skill checker2 `+"```"+`
@output #{toSchema}
@role system
Check it.
`+"```"+`
`)
	require.True(t, strings.Contains(out, "output: toSchema"))
}

func TestSkillOutputAsTypedFields(t *testing.T) {
	out := generate(t, `
@skill checker3 `+"```"+`
@output { verdict: string, score: number }
@role system
Check it.
`+"```"+`
`)
	require.True(t, strings.Contains(out, `output: { verdict: "string", score: "number" }`))
}
