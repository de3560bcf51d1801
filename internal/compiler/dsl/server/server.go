// Package server is the reference HTTP-server DSL handler: it turns an
// `@server name` block into route registrations against a runtime app
// object.
package server

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/jsast"
)

const (
	runtimeModule = "agc/runtime/server"
	runtimeSymbol = "createServer"
)

const sentinel = "\x00"

var methods = map[string]bool{
	"get": true, "post": true, "put": true, "delete": true, "patch": true,
}

type Handler struct{}

func New() Handler { return Handler{} }

type route struct {
	method   string
	segments []segment
	path     string
	handler  jsast.Expr
}

type segment struct {
	kind    segmentKind
	literal string
	name    string
}

type segmentKind int

const (
	segLiteral segmentKind = iota
	segParam
	segWildcard
)

func (Handler) Handle(block dsl.Block, ctx dsl.Context) ([]jsast.Stmt, error) {
	if block.IsFileRef() {
		return nil, fmt.Errorf("@server blocks do not support file references")
	}

	var port *int
	var host *string
	var middleware []jsast.Expr
	var routes []route
	seen := map[string]bool{} // "METHOD /seg/seg" -> true

	lines, captures := flattenLines(block)
	capIdx := 0
	nextCapture := func() (jsast.Expr, bool) {
		if capIdx >= len(captures) {
			return nil, false
		}
		e := ctx.Translate(captures[capIdx])
		capIdx++
		return e, true
	}

	for _, raw := range lines {
		trimmed := strings.TrimRight(raw, "\r")
		if !strings.HasPrefix(trimmed, "@") {
			if strings.TrimSpace(trimmed) == "" {
				continue
			}
			return nil, fmt.Errorf("unexpected content in @server block: %q", trimmed)
		}
		keyword, rest := splitDirective(trimmed)
		rest = strings.TrimSpace(rest)

		switch {
		case keyword == "port":
			p, err := cast.ToIntE(rest)
			if err != nil {
				return nil, fmt.Errorf("@port: %w", err)
			}
			if p == 0 {
				return nil, fmt.Errorf("@port must not be zero")
			}
			port = &p
		case keyword == "host":
			h, err := unquoteString(rest)
			if err != nil {
				return nil, fmt.Errorf("@host: %w", err)
			}
			host = &h
		case keyword == "middleware":
			e, ok := nextCapture()
			if !ok {
				return nil, fmt.Errorf("@middleware requires a capture")
			}
			middleware = append(middleware, e)
		case methods[keyword]:
			pathLit, handlerExpr, err := splitPathAndCapture(rest, nextCapture)
			if err != nil {
				return nil, fmt.Errorf("@%s: %w", keyword, err)
			}
			segs, err := parsePath(pathLit)
			if err != nil {
				return nil, fmt.Errorf("@%s %s: %w", keyword, pathLit, err)
			}
			key := routeKey(keyword, segs)
			if seen[key] {
				return nil, fmt.Errorf("duplicate route %s %s", strings.ToUpper(keyword), pathLit)
			}
			seen[key] = true
			routes = append(routes, route{method: keyword, segments: segs, path: pathLit, handler: handlerExpr})
		default:
			return nil, fmt.Errorf("unknown server directive %q", keyword)
		}
	}

	if port == nil {
		defaultPort := 3000
		port = &defaultPort
	}

	stmts := []jsast.Stmt{
		jsast.SImport{Named: map[string]string{runtimeSymbol: runtimeSymbol}, From: runtimeModule},
	}

	appProps := []jsast.EObjectProperty{
		{Key: "port", Value: jsast.ENumber{Value: float64(*port)}},
	}
	if host != nil {
		appProps = append(appProps, jsast.EObjectProperty{Key: "host", Value: jsast.EString{Value: *host}})
	}
	stmts = append(stmts, jsast.SVarDecl{
		Kind: jsast.VarConst,
		Name: block.Name,
		Init: jsast.ECall{Callee: jsast.EIdentifier{Name: runtimeSymbol}, Args: []jsast.Expr{jsast.EObject{Properties: appProps}}},
	})

	for _, mw := range middleware {
		stmts = append(stmts, jsast.SExpr{Expr: jsast.ECall{
			Callee: jsast.EMember{Object: jsast.EIdentifier{Name: block.Name}, Property: "use"},
			Args:   []jsast.Expr{mw},
		}})
	}

	for _, r := range routes {
		stmts = append(stmts, jsast.SExpr{Expr: jsast.ECall{
			Callee: jsast.EMember{Object: jsast.EIdentifier{Name: block.Name}, Property: r.method},
			Args:   []jsast.Expr{jsast.EString{Value: r.path}, r.handler},
		}})
	}

	return stmts, nil
}

// flattenLines mirrors the prompt handler's: captures become sentinel
// bytes so the rest of a line can be matched as plain text.
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

func splitDirective(line string) (string, string) {
	body := strings.TrimPrefix(line, "@")
	idx := strings.IndexAny(body, " \t")
	if idx < 0 {
		return body, ""
	}
	return body[:idx], body[idx+1:]
}

func unquoteString(s string) (string, error) {
	if !strings.HasPrefix(s, `"`) || !strings.HasSuffix(s, `"`) || len(s) < 2 {
		return "", fmt.Errorf("expected a quoted string, got %q", s)
	}
	return strconv.Unquote(s)
}

// splitPathAndCapture splits "<path> <sentinel>" into the literal path
// string and the handler capture expression that follows it.
func splitPathAndCapture(rest string, next func() (jsast.Expr, bool)) (string, jsast.Expr, error) {
	idx := strings.IndexByte(rest, sentinel[0])
	if idx < 0 {
		return "", nil, fmt.Errorf("missing handler capture")
	}
	pathLit := strings.TrimSpace(rest[:idx])
	if pathLit == "" {
		return "", nil, fmt.Errorf("missing route path")
	}
	e, ok := next()
	if !ok {
		return "", nil, fmt.Errorf("missing handler capture")
	}
	return pathLit, e, nil
}

// parsePath splits a route path into literal/param/wildcard segments and
// validates that a wildcard, if present, is the last one.
func parsePath(path string) ([]segment, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil, nil
	}
	parts := strings.Split(trimmed, "/")
	segs := make([]segment, 0, len(parts))
	for i, part := range parts {
		switch {
		case part == "*":
			if i != len(parts)-1 {
				return nil, fmt.Errorf("wildcard segment must be last")
			}
			segs = append(segs, segment{kind: segWildcard})
		case strings.HasPrefix(part, ":"):
			segs = append(segs, segment{kind: segParam, name: part[1:]})
		default:
			segs = append(segs, segment{kind: segLiteral, literal: part})
		}
	}
	return segs, nil
}

// routeKey builds the identity a duplicate-route check compares: method
// plus the exact segment-kind/literal list (a `:id` and a `:slug` in the
// same position collide; a literal and a param in the same position do
// not).
func routeKey(method string, segs []segment) string {
	var sb strings.Builder
	sb.WriteString(method)
	for _, s := range segs {
		sb.WriteByte('/')
		switch s.kind {
		case segLiteral:
			sb.WriteString("=" + s.literal)
		case segParam:
			sb.WriteString(":param")
		case segWildcard:
			sb.WriteString("*")
		}
	}
	return sb.String()
}
