// Package diag holds the structured diagnostic records every compiler
// stage accumulates instead of failing fast. A diagnostic is data, not a
// Go error: stages keep going after recording one (see Bag.Add), and a
// bag is only inspected at a stage boundary by whatever orchestrates the
// pipeline (the CLI, or a test).
package diag

import (
	"fmt"

	"github.com/agc-lang/agc/internal/compiler/span"
)

type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	if s == Warning {
		return "warning"
	}
	return "error"
}

// Diagnostic is (message, span, severity): every stage produces these,
// never panics, never aborts the pipeline on its own.
type Diagnostic struct {
	Message  string
	Span     span.Span
	Severity Severity
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s (%s)", d.Severity, d.Message, d.Span)
}

// Bag accumulates diagnostics across a single compilation. Not safe for
// concurrent use: a single compilation runs on one goroutine start to finish.
type Bag struct {
	items []Diagnostic
}

func NewBag() *Bag {
	return &Bag{}
}

func (b *Bag) Add(sp span.Span, severity Severity, format string, args ...any) {
	b.items = append(b.items, Diagnostic{
		Message:  fmt.Sprintf(format, args...),
		Span:     sp,
		Severity: severity,
	})
}

func (b *Bag) AddError(sp span.Span, format string, args ...any) {
	b.Add(sp, Error, format, args...)
}

func (b *Bag) AddWarning(sp span.Span, format string, args ...any) {
	b.Add(sp, Warning, format, args...)
}

// Extend merges another bag's diagnostics in, used when a sub-parser or
// sub-lexer (DSL raw mode, capture parsing) needs its findings folded into
// the parent's accumulated result.
func (b *Bag) Extend(other *Bag) {
	if other == nil {
		return
	}
	b.items = append(b.items, other.items...)
}

func (b *Bag) All() []Diagnostic {
	return b.items
}

// HasErrors reports whether any diagnostic at Error severity was recorded.
// Warnings never suppress emission; this is the only gate a driver needs.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	return len(b.items)
}
