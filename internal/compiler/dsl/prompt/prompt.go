// Package prompt is the reference prompt-template DSL handler: it turns an
// `@prompt name` block into a `PromptTemplate` construction.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cast"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/jsast"
)

const (
	runtimeModule = "agc/runtime/prompt"
	runtimeSymbol = "PromptTemplate"
	fsModule      = "node:fs/promises"
	fsSymbol      = "readFile"
)

// sentinel marks where a capture sat in the flattened block text; it can't
// collide with real source text so splitting on it is safe.
const sentinel = "\x00"

// Handler is the reference prompt-template handler. It carries no state of
// its own: every block is processed independently.
type Handler struct{}

// New returns a Handler ready to register under the "prompt" kind.
func New() Handler { return Handler{} }

func (Handler) Handle(block dsl.Block, ctx dsl.Context) ([]jsast.Stmt, error) {
	return build(block, ctx)
}

// build does Handle's work. The agent and skill handlers, which parse this
// same directive grammar plus their own extra directives, strip the
// directive lines they handle themselves and call Handle on the remainder.
func build(block dsl.Block, ctx dsl.Context) ([]jsast.Stmt, error) {
	if block.IsFileRef() {
		return buildFileRef(block), nil
	}

	p, err := parseDirectives(block, ctx)
	if err != nil {
		return nil, err
	}

	props := make([]jsast.EObjectProperty, 0, 6)
	if p.model != nil {
		props = append(props, jsast.EObjectProperty{Key: "model", Value: *p.model})
	}
	if p.messagesCapture != nil {
		props = append(props, jsast.EObjectProperty{Key: "messagesPlaceholder", Value: *p.messagesCapture})
	} else {
		props = append(props, jsast.EObjectProperty{Key: "messages", Value: p.messagesArray()})
	}
	if len(p.examples) > 0 {
		props = append(props, jsast.EObjectProperty{Key: "examples", Value: jsast.EArray{Items: p.examples}})
	}
	if p.outputSchema != nil {
		props = append(props, jsast.EObjectProperty{Key: "outputSchema", Value: p.outputSchema})
	}
	if len(p.constraints) > 0 {
		props = append(props, jsast.EObjectProperty{Key: "constraints", Value: jsast.EObject{Properties: p.constraints}})
	}

	return []jsast.Stmt{
		importStmt(),
		jsast.SVarDecl{
			Kind: jsast.VarConst,
			Name: block.Name,
			Init: jsast.ENew{Callee: jsast.EIdentifier{Name: runtimeSymbol}, Args: []jsast.Expr{jsast.EObject{Properties: props}}},
		},
	}, nil
}

func importStmt() jsast.Stmt {
	return jsast.SImport{Named: map[string]string{runtimeSymbol: runtimeSymbol}, From: runtimeModule}
}

// buildFileRef handles the `@prompt name from "path"` form: the system
// message's content reads the referenced file at render time.
func buildFileRef(block dsl.Block) []jsast.Stmt {
	content := jsast.EArrow{
		Params:  []string{"ctx"},
		IsAsync: true,
		Expr: jsast.EAwait{Arg: jsast.ECall{
			Callee: jsast.EIdentifier{Name: fsSymbol},
			Args:   []jsast.Expr{jsast.EString{Value: block.FileRef}, jsast.EString{Value: "utf-8"}},
		}},
	}
	message := jsast.EObject{Properties: []jsast.EObjectProperty{
		{Key: "role", Value: jsast.EString{Value: "system"}},
		{Key: "content", Value: content},
	}}
	return []jsast.Stmt{
		importStmt(),
		jsast.SImport{Named: map[string]string{fsSymbol: fsSymbol}, From: fsModule},
		jsast.SVarDecl{
			Kind: jsast.VarConst,
			Name: block.Name,
			Init: jsast.ENew{Callee: jsast.EIdentifier{Name: runtimeSymbol}, Args: []jsast.Expr{
				jsast.EObject{Properties: []jsast.EObjectProperty{
					{Key: "messages", Value: jsast.EArray{Items: []jsast.Expr{message}}},
				}},
			}},
		},
	}
}

// message is one parsed `@role ... / body...` section of a block.
type message struct {
	role string
	body []bodySegment
}

// bodySegment is one run of a message's content: either a literal text run
// or a capture already resolved to its `ctx.<name>` access.
type bodySegment struct {
	text      string
	isCapture bool
	ctxExpr   jsast.Expr
}

type parsed struct {
	model           *jsast.Expr
	messages        []message
	messagesCapture *jsast.Expr
	examples        []jsast.Expr
	outputSchema    jsast.Expr
	constraints     []jsast.EObjectProperty
}

func (p parsed) messagesArray() jsast.Expr {
	items := make([]jsast.Expr, 0, len(p.messages))
	for _, m := range p.messages {
		role := m.role
		if role == "" {
			role = "user"
		}
		items = append(items, jsast.EObject{Properties: []jsast.EObjectProperty{
			{Key: "role", Value: jsast.EString{Value: role}},
			{Key: "content", Value: jsast.EArrow{Params: []string{"ctx"}, Expr: contentExpr(m.body)}},
		}})
	}
	return jsast.EArray{Items: items}
}

func contentExpr(body []bodySegment) jsast.Expr {
	hasCapture := false
	for _, seg := range body {
		if seg.isCapture {
			hasCapture = true
			break
		}
	}
	if !hasCapture {
		var sb strings.Builder
		for _, seg := range body {
			sb.WriteString(seg.text)
		}
		return jsast.EString{Value: sb.String()}
	}
	quasis := []string{""}
	exprs := []jsast.Expr{}
	for _, seg := range body {
		if seg.isCapture {
			exprs = append(exprs, seg.ctxExpr)
			quasis = append(quasis, "")
			continue
		}
		quasis[len(quasis)-1] += seg.text
	}
	return jsast.ETemplate{Quasis: quasis, Exprs: exprs}
}

// parseDirectives sub-lexes the block's inline parts on directive lines
// (`@role`, `@model`, `@examples`, `@output`, `@constraints`, `@messages`)
// at column 0; every other line is body text belonging to the message
// opened by the most recent `@role` line (an implicit untitled message
// collects any body text that precedes the first `@role`).
func parseDirectives(block dsl.Block, ctx dsl.Context) (*parsed, error) {
	lines, captures := flattenLines(block)

	p := &parsed{}
	var cur *message
	sawModel := false
	capIdx := 0
	fallback := 0

	nextCapture := func() jsast.Expr {
		if capIdx >= len(captures) {
			return jsast.EUndefined{}
		}
		e := ctx.Translate(captures[capIdx])
		capIdx++
		return e
	}
	nextCtxExpr := func() jsast.Expr {
		return ctxMemberFor(nextCapture(), &fallback)
	}

	flush := func() {
		if cur != nil {
			p.messages = append(p.messages, *cur)
			cur = nil
		}
	}

	for _, raw := range lines {
		trimmed := strings.TrimRight(raw, "\r")
		if strings.HasPrefix(trimmed, "@") {
			keyword, rest := splitDirective(trimmed)
			switch keyword {
			case "role":
				flush()
				cur = &message{role: strings.TrimSpace(rest)}
			case "model":
				if sawModel {
					return nil, fmt.Errorf("duplicate @model directive")
				}
				sawModel = true
				p.model = modelExpr(rest)
			case "examples":
				obj, err := parseBraceObject(rest)
				if err != nil {
					return nil, fmt.Errorf("@examples: %w", err)
				}
				p.examples = append(p.examples, jsast.EObject{Properties: obj})
			case "constraints":
				obj, err := parseBraceObject(rest)
				if err != nil {
					return nil, fmt.Errorf("@constraints: %w", err)
				}
				p.constraints = append(p.constraints, obj...)
			case "output":
				restTrim := strings.TrimSpace(rest)
				switch {
				case strings.HasPrefix(restTrim, "{"):
					schema, err := buildOutputSchema(restTrim)
					if err != nil {
						return nil, fmt.Errorf("@output: %w", err)
					}
					p.outputSchema = schema
				case strings.Contains(rest, sentinel):
					p.outputSchema = nextCapture()
				default:
					return nil, fmt.Errorf("@output requires a brace object or a capture")
				}
			case "messages":
				if !strings.Contains(rest, sentinel) {
					return nil, fmt.Errorf("@messages requires a capture")
				}
				e := nextCapture()
				p.messagesCapture = &e
			default:
				return nil, fmt.Errorf("unknown prompt directive %q", keyword)
			}
			continue
		}
		if cur == nil {
			cur = &message{}
		}
		cur.body = append(cur.body, lineSegments(raw, nextCtxExpr)...)
		cur.body = append(cur.body, bodySegment{text: "\n"})
	}
	flush()
	return p, nil
}

func modelExpr(rest string) *jsast.Expr {
	ids := strings.Split(rest, "|")
	for i := range ids {
		ids[i] = strings.TrimSpace(ids[i])
	}
	var e jsast.Expr
	if len(ids) == 1 {
		e = jsast.EString{Value: ids[0]}
	} else {
		items := make([]jsast.Expr, len(ids))
		for i, id := range ids {
			items[i] = jsast.EString{Value: id}
		}
		e = jsast.EArray{Items: items}
	}
	return &e
}

// flattenLines splits a block's parts into raw lines, replacing every
// capture with a sentinel byte so directive-line detection and body-text
// splitting both work on plain text; captures are returned in source order.
func flattenLines(block dsl.Block) ([]string, []dsl.Capture) {
	var sb strings.Builder
	var captures []dsl.Capture
	for _, part := range block.Parts {
		if part.Kind == dsl.PartCapture {
			captures = append(captures, part.Capture)
			sb.WriteString(sentinel)
			continue
		}
		sb.WriteString(part.Text)
	}
	raw := sb.String()
	lines := strings.Split(raw, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, captures
}

// lineSegments turns one sentinel-bearing body line back into interleaved
// text/capture segments, resolving each sentinel (in order) via next.
func lineSegments(rawWithSentinels string, next func() jsast.Expr) []bodySegment {
	parts := strings.Split(rawWithSentinels, sentinel)
	segs := make([]bodySegment, 0, len(parts))
	for i, text := range parts {
		if i > 0 {
			segs = append(segs, bodySegment{isCapture: true, ctxExpr: next()})
		}
		if text != "" {
			segs = append(segs, bodySegment{text: text})
		}
	}
	return segs
}

// ctxMemberFor derives the `ctx.<name>` access used to reference a capture
// from inside a message's content closure: an identifier capture uses its
// own name, a member-access chain of identifiers joins them with
// underscores, and anything else falls back to a synthetic `capture<n>` key
// (so the runtime ctx object would need that value supplied under that
// key - a known limitation of captures that aren't simple references).
func ctxMemberFor(e jsast.Expr, fallback *int) jsast.Expr {
	name, ok := ctxKeyName(e)
	if !ok {
		name = fmt.Sprintf("capture%d", *fallback)
		*fallback++
	}
	return jsast.EMember{Object: jsast.EIdentifier{Name: "ctx"}, Property: name}
}

func ctxKeyName(e jsast.Expr) (string, bool) {
	switch n := e.(type) {
	case jsast.EIdentifier:
		return n.Name, true
	case jsast.EMember:
		if base, ok := ctxKeyName(n.Object); ok {
			return base + "_" + n.Property, true
		}
	}
	return "", false
}

// splitDirective splits "@keyword rest of line" into ("keyword", "rest of
// line").
func splitDirective(line string) (string, string) {
	body := strings.TrimPrefix(line, "@")
	idx := strings.IndexAny(body, " \t")
	if idx < 0 {
		return body, ""
	}
	return body[:idx], body[idx+1:]
}

// parseBraceObject parses a `{ key: value, key2: value2 }` literal into
// object properties, coercing each scalar value via cast the way a bare
// token's intended type (string/int/float/bool) is inferred from its text.
func parseBraceObject(s string) ([]jsast.EObjectProperty, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("expected a brace-delimited object, got %q", s)
	}
	inner := s[1 : len(s)-1]
	entries, err := splitTopLevel(inner)
	if err != nil {
		return nil, err
	}
	props := make([]jsast.EObjectProperty, 0, len(entries))
	for _, entry := range entries {
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
			Value: scalarExpr(strings.TrimSpace(val)),
		})
	}
	return props, nil
}

// splitTopLevel splits s on commas that are not inside a quoted string.
func splitTopLevel(s string) ([]string, error) {
	var out []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' && (i == 0 || s[i-1] != '\\'):
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ',' && !inQuote:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quoted value in %q", s)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out, nil
}

// scalarExpr turns one brace-object value's raw text into a JS literal,
// preferring a quoted string as-is and otherwise coercing via cast.
func scalarExpr(raw string) jsast.Expr {
	if strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			unquoted = strings.Trim(raw, `"`)
		}
		return jsast.EString{Value: unquoted}
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return jsast.EBool{Value: b}
	}
	if f, err := cast.ToFloat64E(raw); err == nil {
		return jsast.ENumber{Value: f}
	}
	return jsast.EString{Value: cast.ToString(raw)}
}

// buildOutputSchema parses an inline `{ field: type, ... }` form into a
// JSON-Schema object literal, built with invopop/jsonschema rather than by
// hand assembling the `{ type, properties, required }` shape.
func buildOutputSchema(braces string) (jsast.Expr, error) {
	fields, err := parseBraceObject(braces)
	if err != nil {
		return nil, err
	}
	props := orderedmap.New[string, *jsonschema.Schema]()
	required := make([]string, 0, len(fields))
	for _, f := range fields {
		typeName := ""
		if s, ok := f.Value.(jsast.EString); ok {
			typeName = s.Value
		}
		props.Set(f.Key, &jsonschema.Schema{Type: jsonSchemaType(typeName)})
		required = append(required, f.Key)
	}
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
	return schemaToExpr(schema)
}

func jsonSchemaType(name string) string {
	switch name {
	case "int", "float":
		return "number"
	case "bool":
		return "boolean"
	default:
		return "string"
	}
}

// schemaToExpr round-trips an *jsonschema.Schema through its own
// MarshalJSON into a verbatim JSON object literal, so the inline schema
// ends up as plain JS data with no runtime dependency on the jsonschema
// package itself.
func schemaToExpr(schema *jsonschema.Schema) (jsast.Expr, error) {
	raw, err := schema.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal output schema: %w", err)
	}
	return jsast.ERaw{Code: string(raw)}, nil
}
