// Package dsl is the pluggable DSL-handler framework: a neutral, host-AST-free
// form that a block is converted into before being handed to a registered
// handler, plus the registry handlers are looked up in at codegen time.
package dsl

import (
	"fmt"

	"github.com/agc-lang/agc/internal/compiler/jsast"
	"github.com/agc-lang/agc/internal/compiler/span"
)

// Capture is an opaque carrier for a host-language expression embedded in a
// DSL block via `#{ ... }`. Handlers never see the concrete expression type -
// only a Context can turn one into a JS expression, which keeps handler
// packages free of any dependency on the compiler's source AST.
type Capture struct{ raw any }

// NewCapture wraps a source-AST expression as an opaque carrier. Only the
// codegen package (which also implements Context) calls this.
func NewCapture(raw any) Capture { return Capture{raw: raw} }

// Raw returns the wrapped value. Exported so the codegen package's Context
// implementation can unwrap it; handler packages have no reason to call it
// since they hold no type that raw could assert to.
func (c Capture) Raw() any { return c.raw }

type PartKind int

const (
	PartText PartKind = iota
	PartCapture
)

// Part is one fragment of an inline DSL block's body: either a literal text
// run or an embedded capture, in source order.
type Part struct {
	Kind    PartKind
	Text    string
	Capture Capture
}

// Block is the neutral form of a parsed `@kind name` block.
type Block struct {
	Kind string
	Name string
	Span span.Span

	// Exactly one of Parts or FileRef is populated, matching the source
	// AST's DslInline / DslFileRef distinction.
	Parts   []Part
	FileRef string
}

// IsFileRef reports whether this block was written as `@kind name from "..."`.
func (b Block) IsFileRef() bool { return b.FileRef != "" }

// Context is the single capability a handler needs from the codegen: turning
// an opaque capture back into a JS expression node, using whatever lowering
// rules the rest of the module's expressions go through.
type Context interface {
	Translate(c Capture) jsast.Expr
}

// Handler converts one DSL block into the JS statements that should be
// spliced into the emitted module in its place.
type Handler interface {
	Handle(block Block, ctx Context) ([]jsast.Stmt, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(block Block, ctx Context) ([]jsast.Stmt, error)

func (f HandlerFunc) Handle(block Block, ctx Context) ([]jsast.Stmt, error) {
	return f(block, ctx)
}

// Registry maps a DSL kind (the word after `@`) to the handler that
// processes it. It is the one piece of process-long-lived state the
// compiler has - every other stage's state is scoped to a single
// compilation.
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}}
}

func (r *Registry) Register(kind string, h Handler) {
	r.handlers[kind] = h
}

func (r *Registry) Lookup(kind string) (Handler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}

// ErrUnknownKind is returned by codegen (wrapped with the block's kind and
// name) when no handler is registered for a block's kind.
func ErrUnknownKind(kind, name string) error {
	return fmt.Errorf("no DSL handler registered for kind %q (block %q)", kind, name)
}
