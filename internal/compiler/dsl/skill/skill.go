// Package skill is the supplemented skill DSL handler: it layers
// description/input/steps/output metadata on top of the prompt handler's
// directive grammar and `PromptTemplate` construction.
package skill

import (
	"fmt"
	"strings"

	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/dsl/prompt"
	"github.com/agc-lang/agc/internal/compiler/jsast"
)

// Handler handles `@skill name` blocks: it strips the skill-specific
// directive lines (`@description`, `@input`, `@steps`, `@output`) out of
// the block before handing the remainder to the prompt grammar, then
// wraps the resulting `PromptTemplate` construction in a `Skill` one.
//
// `@output` is ambiguous between this package's metadata directive and
// the prompt grammar's output-schema directive; skill blocks resolve it
// to the skill's own metadata field, and a skill that also wants an
// output schema declares it through a `@prompt` block it invokes via
// capture instead.
type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Handle(block dsl.Block, ctx dsl.Context) ([]jsast.Stmt, error) {
	if block.IsFileRef() {
		return nil, fmt.Errorf("@skill blocks do not support file references")
	}

	rest, extras, err := stripSkillDirectives(block, ctx)
	if err != nil {
		return nil, err
	}

	promptName := block.Name + "Prompt"
	promptStmts, err := prompt.New().Handle(dsl.Block{
		Kind: block.Kind, Name: promptName, Span: block.Span, Parts: rest,
	}, ctx)
	if err != nil {
		return nil, err
	}

	props := []jsast.EObjectProperty{
		{Key: "prompt", Value: jsast.EIdentifier{Name: promptName}},
	}
	if extras.description != "" {
		props = append(props, jsast.EObjectProperty{Key: "description", Value: jsast.EString{Value: extras.description}})
	}
	if len(extras.input) > 0 {
		props = append(props, jsast.EObjectProperty{Key: "input", Value: jsast.EObject{Properties: extras.input}})
	}
	if len(extras.steps) > 0 {
		props = append(props, jsast.EObjectProperty{Key: "steps", Value: jsast.EArray{Items: extras.steps}})
	}
	if extras.output != nil {
		props = append(props, jsast.EObjectProperty{Key: "output", Value: extras.output})
	}

	stmts := append([]jsast.Stmt{}, promptStmts...)
	stmts = append(stmts, jsast.SImport{Named: map[string]string{"Skill": "Skill"}, From: "agc/runtime/skill"})
	stmts = append(stmts, jsast.SVarDecl{
		Kind: jsast.VarConst,
		Name: block.Name,
		Init: jsast.ENew{Callee: jsast.EIdentifier{Name: "Skill"}, Args: []jsast.Expr{jsast.EObject{Properties: props}}},
	})
	return stmts, nil
}

type skillExtras struct {
	description string
	input       []jsast.EObjectProperty
	steps       []jsast.Expr
	output      jsast.Expr
}

func stripSkillDirectives(block dsl.Block, ctx dsl.Context) ([]dsl.Part, *skillExtras, error) {
	lines := splitIntoLines(block.Parts)
	extras := &skillExtras{}
	var keep []dsl.Part

	for i, ln := range lines {
		keyword, ok := lineKeyword(ln)
		if !ok || !isSkillKeyword(keyword) {
			keep = append(keep, ln...)
			if i < len(lines)-1 {
				keep = append(keep, dsl.Part{Kind: dsl.PartText, Text: "\n"})
			}
			continue
		}
		switch keyword {
		case "description":
			extras.description = strings.TrimSpace(lineRestText(ln))
		case "input":
			fields, err := parseTypedFields(lineRestText(ln))
			if err != nil {
				return nil, nil, fmt.Errorf("@input: %w", err)
			}
			extras.input = fields
		case "steps":
			caps := lineCaptures(ln, ctx)
			if len(caps) == 0 {
				return nil, nil, fmt.Errorf("@steps requires at least one capture")
			}
			extras.steps = append(extras.steps, caps...)
		case "output":
			caps := lineCaptures(ln, ctx)
			if len(caps) == 1 {
				extras.output = caps[0]
			} else {
				fields, err := parseTypedFields(lineRestText(ln))
				if err != nil {
					return nil, nil, fmt.Errorf("@output: %w", err)
				}
				extras.output = jsast.EObject{Properties: fields}
			}
		}
	}
	return keep, extras, nil
}

func isSkillKeyword(k string) bool {
	switch k {
	case "description", "input", "steps", "output":
		return true
	default:
		return false
	}
}

// parseTypedFields parses a `{ name: type, ... }` directive value into
// object properties whose values are the type names as plain strings
// (schema-shaped metadata, not coerced scalars).
func parseTypedFields(raw string) ([]jsast.EObjectProperty, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") || !strings.HasSuffix(raw, "}") {
		return nil, fmt.Errorf("expected a brace-delimited object, got %q", raw)
	}
	inner := raw[1 : len(raw)-1]
	var props []jsast.EObjectProperty
	for _, entry := range strings.Split(inner, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		key, val, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("malformed entry %q", entry)
		}
		props = append(props, jsast.EObjectProperty{
			Key:   strings.TrimSpace(key),
			Value: jsast.EString{Value: strings.TrimSpace(val)},
		})
	}
	return props, nil
}

// --- shared with the agent package's line-splitting helpers ---
//
// Duplicated rather than factored into a shared internal package: each
// copy is small, and the two handlers' directive sets differ enough that
// a shared abstraction would need more parameters than it saves lines.

func splitIntoLines(parts []dsl.Part) [][]dsl.Part {
	var lines [][]dsl.Part
	var cur []dsl.Part
	for _, part := range parts {
		if part.Kind == dsl.PartCapture {
			cur = append(cur, part)
			continue
		}
		chunks := strings.Split(part.Text, "\n")
		for i, c := range chunks {
			if i > 0 {
				lines = append(lines, cur)
				cur = nil
			}
			if c != "" {
				cur = append(cur, dsl.Part{Kind: dsl.PartText, Text: c})
			}
		}
	}
	lines = append(lines, cur)
	return lines
}

func lineKeyword(line []dsl.Part) (string, bool) {
	if len(line) == 0 || line[0].Kind != dsl.PartText || !strings.HasPrefix(line[0].Text, "@") {
		return "", false
	}
	body := strings.TrimPrefix(line[0].Text, "@")
	idx := strings.IndexAny(body, " \t")
	if idx < 0 {
		return body, true
	}
	return body[:idx], true
}

// lineRestText returns the text of a directive line after its keyword,
// ignoring any captures on the same line (the typed-field and
// description directives never embed captures).
func lineRestText(line []dsl.Part) string {
	if len(line) == 0 {
		return ""
	}
	_, rest, _ := strings.Cut(line[0].Text, " ")
	return rest
}

func lineCaptures(line []dsl.Part, ctx dsl.Context) []jsast.Expr {
	var out []jsast.Expr
	for _, part := range line {
		if part.Kind == dsl.PartCapture {
			out = append(out, ctx.Translate(part.Capture))
		}
	}
	return out
}
