// Package component is the supplemented component DSL handler: it parses an
// `@component name` block's body as a JSDoc-annotated JS/JSX component
// export and produces a `Component` wrapper around its verbatim render
// body, mirroring the way the agent and skill handlers layer metadata
// around the prompt handler's `PromptTemplate` construction.
//
// No full JS/JSX parser exists anywhere in the supporting code this package
// is grounded on, so the extraction here is pattern-based (leading JSDoc
// block, `export default` signature) rather than a real AST walk. See
// DESIGN.md for why that scope reduction was chosen over hand-rolling one.
package component

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/jsast"
)

// Handler handles `@component name` blocks: it extracts a leading JSDoc
// comment and an `export default` function/arrow signature from the block's
// raw body, cross-references JSDoc `@param` entries against the function's
// destructured parameter defaults, and emits a `Component` construction
// whose `render` field is the block's own body spliced in verbatim.
type Handler struct{}

func New() Handler { return Handler{} }

func (Handler) Handle(block dsl.Block, ctx dsl.Context) ([]jsast.Stmt, error) {
	if block.IsFileRef() {
		return nil, fmt.Errorf("@component blocks do not support file references")
	}
	for _, part := range block.Parts {
		if part.Kind == dsl.PartCapture {
			return nil, fmt.Errorf("captures are not supported in @component blocks")
		}
	}

	var body strings.Builder
	for _, part := range block.Parts {
		body.WriteString(part.Text)
	}
	src := body.String()

	doc, rest := extractJSDoc(src)
	name, paramsText, renderBody, err := extractDefaultExport(rest)
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = block.Name
	}

	defaults := parseDefaultedParams(paramsText)
	description, params := parseJSDoc(doc)

	props := make([]jsast.EObjectProperty, 0, len(params))
	for _, p := range params {
		propFields := []jsast.EObjectProperty{
			{Key: "type", Value: jsast.EString{Value: mapJSDocType(p.typ)}},
		}
		if p.description != "" {
			propFields = append(propFields, jsast.EObjectProperty{Key: "description", Value: jsast.EString{Value: p.description}})
		}
		propFields = append(propFields, jsast.EObjectProperty{Key: "default", Value: jsast.EBool{Value: defaults[p.name]}})
		props = append(props, jsast.EObjectProperty{Key: p.name, Value: jsast.EObject{Properties: propFields}})
	}

	metaFields := []jsast.EObjectProperty{
		{Key: "name", Value: jsast.EString{Value: name}},
	}
	if description != "" {
		metaFields = append(metaFields, jsast.EObjectProperty{Key: "description", Value: jsast.EString{Value: description}})
	}
	metaFields = append(metaFields, jsast.EObjectProperty{Key: "props", Value: jsast.EObject{Properties: props}})
	metaFields = append(metaFields, jsast.EObjectProperty{Key: "render", Value: jsast.ERaw{Code: strings.TrimSpace(renderBody)}})

	return []jsast.Stmt{
		jsast.SImport{Named: map[string]string{"Component": "Component"}, From: "agc/runtime/component"},
		jsast.SVarDecl{
			Kind: jsast.VarConst,
			Name: block.Name,
			Init: jsast.ENew{Callee: jsast.EIdentifier{Name: "Component"}, Args: []jsast.Expr{jsast.EObject{Properties: metaFields}}},
		},
	}, nil
}

var jsdocRe = regexp.MustCompile(`(?s)^\s*/\*\*(.*?)\*/\s*`)

// extractJSDoc splits a leading `/** ... */` block comment (if any) off the
// front of src, returning its inner text (each line's leading " * "
// stripped) and the remainder of src unchanged.
func extractJSDoc(src string) (doc string, rest string) {
	loc := jsdocRe.FindStringSubmatchIndex(src)
	if loc == nil {
		return "", src
	}
	inner := src[loc[2]:loc[3]]
	rest = src[loc[1]:]

	var lines []string
	for _, ln := range strings.Split(inner, "\n") {
		ln = strings.TrimSpace(ln)
		ln = strings.TrimPrefix(ln, "*")
		ln = strings.TrimSpace(ln)
		if ln != "" {
			lines = append(lines, ln)
		}
	}
	return strings.Join(lines, "\n"), rest
}

var (
	exportDefaultFnRe    = regexp.MustCompile(`(?s)^\s*export\s+default\s+function\s+([A-Za-z_$][\w$]*)?\s*\(([^)]*)\)`)
	exportDefaultArrowRe = regexp.MustCompile(`(?s)^\s*export\s+default\s+\(?([^)=]*)\)?\s*=>`)
)

// extractDefaultExport locates the `export default function NAME?(params)
// {...}` or `export default (params) => ...` signature at the front of src
// (after JSDoc removal) and returns the component name (empty if the
// function is anonymous), the raw parameter-list text, and the source with
// the leading "export default " keyword stripped (the render body).
func extractDefaultExport(src string) (name string, paramsText string, renderBody string, err error) {
	if loc := exportDefaultFnRe.FindStringSubmatchIndex(src); loc != nil {
		if loc[2] >= 0 {
			name = src[loc[2]:loc[3]]
		}
		paramsText = src[loc[4]:loc[5]]
		renderBody = strings.TrimPrefix(strings.TrimSpace(src), "export default ")
		return name, paramsText, renderBody, nil
	}
	if loc := exportDefaultArrowRe.FindStringSubmatchIndex(src); loc != nil {
		paramsText = src[loc[2]:loc[3]]
		renderBody = strings.TrimPrefix(strings.TrimSpace(src), "export default ")
		return "", paramsText, renderBody, nil
	}
	return "", "", "", fmt.Errorf("no `export default` function found in @component block")
}

// parseDefaultedParams reports, for each top-level destructured parameter
// name in a `{ a, b = 1, c }` (or plain `props`) parameter-list text,
// whether it carries a `= ...` default. Splitting is comma-aware only at
// bracket depth zero, since a default's own value may itself contain commas
// (e.g. `{ items = [1, 2] }`).
func parseDefaultedParams(paramsText string) map[string]bool {
	result := map[string]bool{}
	inner := strings.TrimSpace(paramsText)
	inner = strings.TrimPrefix(inner, "{")
	inner = strings.TrimSuffix(inner, "}")

	for _, entry := range splitTopLevel(inner) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		namePart, hasDefault, _ := strings.Cut(entry, "=")
		namePart = strings.TrimSpace(namePart)
		key, _, hasRename := strings.Cut(namePart, ":")
		if hasRename {
			key = strings.TrimSpace(key)
		}
		result[key] = hasDefault
	}
	return result
}

// splitTopLevel splits s on commas that are not nested inside (), [], or {}.
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

type jsdocParam struct {
	name        string
	typ         string
	description string
}

var paramLineRe = regexp.MustCompile(`^@param\s+(?:\{([^}]*)\}\s+)?([A-Za-z_$][\w$.]*)\s*(?:-\s*(.*))?$`)

// parseJSDoc splits a JSDoc block's stripped lines into the leading
// free-text description (everything before the first @param/@tag line) and
// the ordered list of `@param` entries it declares. A prop exists in the
// resulting metadata only if it is named via `@param` here - a destructured
// default with no matching @param line is silently not exposed as a prop,
// matching the behavior this package's JSDoc-metadata convention is
// grounded on.
func parseJSDoc(doc string) (description string, params []jsdocParam) {
	if doc == "" {
		return "", nil
	}
	var descLines []string
	inDesc := true
	for _, ln := range strings.Split(doc, "\n") {
		if strings.HasPrefix(ln, "@param") {
			inDesc = false
			m := paramLineRe.FindStringSubmatch(ln)
			if m == nil {
				continue
			}
			typ := strings.TrimSpace(m[1])
			if typ == "" {
				typ = "any"
			}
			params = append(params, jsdocParam{name: m[2], typ: typ, description: strings.TrimSpace(m[3])})
			continue
		}
		if strings.HasPrefix(ln, "@") {
			inDesc = false
			continue
		}
		if inDesc {
			descLines = append(descLines, ln)
		}
	}
	return strings.TrimSpace(strings.Join(descLines, " ")), params
}

// mapJSDocType remaps a JSDoc type annotation to the module's own type
// vocabulary (the primitive names resolveTypeExpr produces), not the
// original source language's ("str"/"num") - recursing through `T[]` and
// `Array<T>` array forms.
func mapJSDocType(t string) string {
	t = strings.TrimSpace(t)
	switch {
	case strings.HasSuffix(t, "[]"):
		return "[" + mapJSDocType(strings.TrimSuffix(t, "[]")) + "]"
	case strings.HasPrefix(t, "Array<") && strings.HasSuffix(t, ">"):
		return "[" + mapJSDocType(t[len("Array<"):len(t)-1]) + "]"
	}
	switch t {
	case "string":
		return "string"
	case "number":
		return "float"
	case "boolean":
		return "bool"
	case "object", "*", "":
		return "any"
	default:
		return "any"
	}
}
