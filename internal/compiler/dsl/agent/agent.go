// Package agent is the supplemented agent DSL handler: it layers tool,
// skill, sub-agent, and event-hook wiring on top of the prompt handler's
// directive grammar and `PromptTemplate` construction.
package agent

import (
	"fmt"
	"strings"

	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/dsl/prompt"
	"github.com/agc-lang/agc/internal/compiler/jsast"
)

var knownEvents = map[string]bool{
	"start": true, "message": true, "toolCall": true, "error": true, "finish": true,
}

// Handler handles `@agent name` blocks: it strips the agent-specific
// directive lines (`@tools`, `@skills`, `@agents`, `@on <event>`) out of
// the block before handing the remainder to the prompt grammar, then
// wraps the resulting `PromptTemplate` construction in an `Agent` one.
type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Handle(block dsl.Block, ctx dsl.Context) ([]jsast.Stmt, error) {
	if block.IsFileRef() {
		return nil, fmt.Errorf("@agent blocks do not support file references")
	}

	rest, extras, err := stripAgentDirectives(block, ctx)
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
	if len(extras.tools) > 0 {
		props = append(props, jsast.EObjectProperty{Key: "tools", Value: jsast.EArray{Items: extras.tools}})
	}
	if len(extras.skills) > 0 {
		props = append(props, jsast.EObjectProperty{Key: "skills", Value: jsast.EArray{Items: extras.skills}})
	}
	if len(extras.agents) > 0 {
		props = append(props, jsast.EObjectProperty{Key: "agents", Value: jsast.EArray{Items: extras.agents}})
	}
	if len(extras.on) > 0 {
		onProps := make([]jsast.EObjectProperty, 0, len(extras.on))
		for _, event := range extras.onOrder {
			onProps = append(onProps, jsast.EObjectProperty{Key: event, Value: extras.on[event]})
		}
		props = append(props, jsast.EObjectProperty{Key: "on", Value: jsast.EObject{Properties: onProps}})
	}

	stmts := append([]jsast.Stmt{}, promptStmts...)
	stmts = append(stmts, jsast.SImport{Named: map[string]string{"Agent": "Agent"}, From: "agc/runtime/agent"})
	stmts = append(stmts, jsast.SVarDecl{
		Kind: jsast.VarConst,
		Name: block.Name,
		Init: jsast.ENew{Callee: jsast.EIdentifier{Name: "Agent"}, Args: []jsast.Expr{jsast.EObject{Properties: props}}},
	})
	return stmts, nil
}

type agentExtras struct {
	tools   []jsast.Expr
	skills  []jsast.Expr
	agents  []jsast.Expr
	on      map[string]jsast.Expr
	onOrder []string
}

// stripAgentDirectives splits the block's parts into the prompt-grammar
// lines the prompt handler should see and the agent-only directive lines
// (`@tools`, `@skills`, `@agents`, `@on`) consumed here.
func stripAgentDirectives(block dsl.Block, ctx dsl.Context) ([]dsl.Part, *agentExtras, error) {
	lines := splitIntoLines(block.Parts)
	extras := &agentExtras{on: map[string]jsast.Expr{}}
	var keep []dsl.Part

	for i, ln := range lines {
		keyword, ok := lineKeyword(ln)
		if !ok || !isAgentKeyword(keyword) {
			keep = append(keep, ln...)
			if i < len(lines)-1 {
				keep = append(keep, dsl.Part{Kind: dsl.PartText, Text: "\n"})
			}
			continue
		}
		caps := lineCaptures(ln, ctx)
		switch keyword {
		case "tools":
			if len(caps) == 0 {
				return nil, nil, fmt.Errorf("@tools requires at least one capture")
			}
			extras.tools = append(extras.tools, caps...)
		case "skills":
			extras.skills = append(extras.skills, caps...)
		case "agents":
			extras.agents = append(extras.agents, caps...)
		case "on":
			event := strings.TrimSpace(lineFirstWordAfterKeyword(ln))
			if event == "" {
				return nil, nil, fmt.Errorf("@on requires an event name")
			}
			if !knownEvents[event] {
				// Accepted as a forward-compatible custom event rather than
				// rejected: the Handler interface has no channel for a
				// non-fatal warning, only (stmts, error).
				_ = event
			}
			if len(caps) != 1 {
				return nil, nil, fmt.Errorf("@on %s requires exactly one capture", event)
			}
			if _, dup := extras.on[event]; dup {
				return nil, nil, fmt.Errorf("duplicate @on %s directive", event)
			}
			extras.on[event] = caps[0]
			extras.onOrder = append(extras.onOrder, event)
		}
	}
	return keep, extras, nil
}

func isAgentKeyword(k string) bool {
	switch k {
	case "tools", "skills", "agents", "on":
		return true
	default:
		return false
	}
}

// splitIntoLines groups a block's parts into lines (each a []dsl.Part),
// split on literal "\n" inside text parts; a capture is atomic and never
// itself split across lines.
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

// lineKeyword reports the directive keyword a line opens with, if any.
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

// lineFirstWordAfterKeyword returns the first whitespace-delimited word
// following the directive keyword on a text-only line (used for `@on
// <event>`, which never itself carries a capture for the event name).
func lineFirstWordAfterKeyword(line []dsl.Part) string {
	if len(line) == 0 {
		return ""
	}
	_, rest, ok := strings.Cut(line[0].Text, " ")
	if !ok {
		return ""
	}
	word, _, _ := strings.Cut(strings.TrimSpace(rest), " ")
	return word
}

// lineCaptures translates every capture on a directive line, in order.
func lineCaptures(line []dsl.Part, ctx dsl.Context) []jsast.Expr {
	var out []jsast.Expr
	for _, part := range line {
		if part.Kind == dsl.PartCapture {
			out = append(out, ctx.Translate(part.Capture))
		}
	}
	return out
}
