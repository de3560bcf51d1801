// Package jsprint serializes a jsast.Program to readable ES2022+ source
// text. It is a plain textual printer, not a minifier: output is indented
// and stable, suitable for committing or diffing generated output.
package jsprint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agc-lang/agc/internal/compiler/jsast"
)

type printer struct {
	sb     strings.Builder
	indent int
}

// Print renders a whole program to text, terminated with a trailing
// newline.
func Print(prog *jsast.Program) string {
	p := &printer{}
	for _, s := range prog.Stmts {
		p.stmt(s)
	}
	return p.sb.String()
}

// PrintExpr renders a single expression, used by tests and by DSL handlers
// that need to preview a fragment.
func PrintExpr(e jsast.Expr) string {
	p := &printer{}
	p.expr(e, jsast.LLowest)
	return p.sb.String()
}

func (p *printer) writeIndent() {
	p.sb.WriteString(strings.Repeat("  ", p.indent))
}

func (p *printer) line(format string, args ...any) {
	p.writeIndent()
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *printer) block(stmts []jsast.Stmt) {
	p.sb.WriteString("{\n")
	p.indent++
	for _, s := range stmts {
		p.stmt(s)
	}
	p.indent--
	p.writeIndent()
	p.sb.WriteString("}")
}

func (p *printer) stmt(s jsast.Stmt) {
	switch n := s.(type) {
	case jsast.SImport:
		p.printImport(n)
	case jsast.SVarDecl:
		kw := "const"
		if n.Kind == jsast.VarLet {
			kw = "let"
		}
		if n.Init == nil {
			p.line("%s %s;", kw, n.Name)
			return
		}
		p.writeIndent()
		fmt.Fprintf(&p.sb, "%s %s = ", kw, n.Name)
		p.expr(n.Init, jsast.LComma)
		p.sb.WriteString(";\n")
	case jsast.SExpr:
		p.writeIndent()
		p.expr(n.Expr, jsast.LLowest)
		p.sb.WriteString(";\n")
	case jsast.SReturn:
		if n.Value == nil {
			p.line("return;")
			return
		}
		p.writeIndent()
		p.sb.WriteString("return ")
		p.expr(n.Value, jsast.LComma)
		p.sb.WriteString(";\n")
	case jsast.SThrow:
		p.writeIndent()
		p.sb.WriteString("throw ")
		p.expr(n.Value, jsast.LComma)
		p.sb.WriteString(";\n")
	case jsast.SIf:
		p.writeIndent()
		p.sb.WriteString("if (")
		p.expr(n.Test, jsast.LLowest)
		p.sb.WriteString(") ")
		p.block(n.Yes)
		if n.No != nil {
			p.sb.WriteString(" else ")
			p.block(n.No)
		}
		p.sb.WriteString("\n")
	case jsast.SFor:
		p.writeIndent()
		fmt.Fprintf(&p.sb, "for (const %s of ", n.Binding)
		p.expr(n.Iter, jsast.LLowest)
		p.sb.WriteString(") ")
		p.block(n.Body)
		p.sb.WriteString("\n")
	case jsast.SWhile:
		p.writeIndent()
		p.sb.WriteString("while (")
		p.expr(n.Test, jsast.LLowest)
		p.sb.WriteString(") ")
		p.block(n.Body)
		p.sb.WriteString("\n")
	case jsast.STry:
		p.writeIndent()
		p.sb.WriteString("try ")
		p.block(n.Block)
		p.sb.WriteString(" catch ")
		if n.CatchBinding != "" {
			fmt.Fprintf(&p.sb, "(%s) ", n.CatchBinding)
		}
		p.block(n.CatchBlock)
		p.sb.WriteString("\n")
	case jsast.SFunctionDecl:
		p.writeIndent()
		if n.IsAsync {
			p.sb.WriteString("async ")
		}
		fmt.Fprintf(&p.sb, "function %s(%s) ", n.Name, strings.Join(n.Params, ", "))
		p.block(n.Body)
		p.sb.WriteString("\n")
	case jsast.SClassDecl:
		p.writeIndent()
		fmt.Fprintf(&p.sb, "class %s {\n", n.Name)
		p.indent++
		for _, f := range n.Fields {
			p.line("%s;", f.Name)
		}
		p.indent--
		p.writeIndent()
		p.sb.WriteString("}\n")
	case jsast.SExportDefault:
		p.writeIndent()
		p.sb.WriteString("export default ")
		p.expr(n.Value, jsast.LComma)
		p.sb.WriteString(";\n")
	case jsast.SRaw:
		p.writeIndent()
		p.sb.WriteString(n.Code)
		p.sb.WriteString("\n")
	default:
		p.line("/* unprintable statement %T */", s)
	}
}

func (p *printer) printImport(n jsast.SImport) {
	p.writeIndent()
	p.sb.WriteString("import ")
	parts := []string{}
	if n.Default != "" {
		parts = append(parts, n.Default)
	}
	if n.Star != "" {
		parts = append(parts, "* as "+n.Star)
	}
	if len(n.Named) > 0 {
		names := make([]string, 0, len(n.Named))
		for local, imported := range n.Named {
			if imported == "" || imported == local {
				names = append(names, local)
			} else {
				names = append(names, imported+" as "+local)
			}
		}
		sort.Strings(names)
		parts = append(parts, "{ "+strings.Join(names, ", ")+" }")
	}
	if len(parts) > 0 {
		p.sb.WriteString(strings.Join(parts, ", "))
		p.sb.WriteString(" from ")
	}
	fmt.Fprintf(&p.sb, "%s;\n", strconv.Quote(n.From))
}

// expr prints e, wrapping it in parens when its own precedence is lower
// than the minimum the caller requires.
func (p *printer) expr(e jsast.Expr, minLevel jsast.L) {
	level, wrap := p.exprLevel(e)
	if wrap && level < minLevel {
		p.sb.WriteByte('(')
		p.writeExpr(e)
		p.sb.WriteByte(')')
		return
	}
	p.writeExpr(e)
}

func (p *printer) exprLevel(e jsast.Expr) (jsast.L, bool) {
	switch n := e.(type) {
	case jsast.EBinary:
		return jsast.BinOpTable[n.Op].Level, true
	case jsast.EUnary:
		return jsast.LPrefix, true
	case jsast.EAssign:
		return jsast.LAssign, true
	case jsast.EConditional:
		return jsast.LConditional, true
	case jsast.EArrow:
		return jsast.LAssign, true
	case jsast.EAwait:
		return jsast.LPrefix, true
	default:
		return jsast.LMember, false
	}
}

func (p *printer) writeExpr(e jsast.Expr) {
	switch n := e.(type) {
	case jsast.EIdentifier:
		p.sb.WriteString(n.Name)
	case jsast.ENumber:
		p.sb.WriteString(formatNumber(n.Value))
	case jsast.EString:
		p.sb.WriteString(quoteJSString(n.Value))
	case jsast.EBool:
		if n.Value {
			p.sb.WriteString("true")
		} else {
			p.sb.WriteString("false")
		}
	case jsast.ENull:
		p.sb.WriteString("null")
	case jsast.EUndefined:
		p.sb.WriteString("undefined")
	case jsast.EArray:
		p.sb.WriteByte('[')
		for i, item := range n.Items {
			if i > 0 {
				p.sb.WriteString(", ")
			}
			p.expr(item, jsast.LComma)
		}
		p.sb.WriteByte(']')
	case jsast.EObject:
		p.writeObject(n)
	case jsast.ETemplate:
		p.writeTemplate(n)
	case jsast.EBinary:
		entry := jsast.BinOpTable[n.Op]
		p.expr(n.Left, entry.Level)
		fmt.Fprintf(&p.sb, " %s ", entry.Text)
		p.expr(n.Right, entry.Level+1)
	case jsast.EUnary:
		text := jsast.UnOpText[n.Op]
		p.sb.WriteString(text)
		if len(text) > 1 {
			p.sb.WriteByte(' ')
		}
		p.expr(n.Arg, jsast.LPrefix)
	case jsast.EAssign:
		p.expr(n.Target, jsast.LCall)
		fmt.Fprintf(&p.sb, " %s ", n.Op)
		p.expr(n.Value, jsast.LAssign)
	case jsast.EConditional:
		p.expr(n.Test, jsast.LNullishCoalescing)
		p.sb.WriteString(" ? ")
		p.expr(n.Yes, jsast.LAssign)
		p.sb.WriteString(" : ")
		p.expr(n.No, jsast.LAssign)
	case jsast.ECall:
		p.expr(n.Callee, jsast.LCall)
		if n.Optional {
			p.sb.WriteString("?.")
		}
		p.writeArgs(n.Args)
	case jsast.ENew:
		p.sb.WriteString("new ")
		p.expr(n.Callee, jsast.LMember)
		p.writeArgs(n.Args)
	case jsast.EMember:
		p.expr(n.Object, jsast.LMember)
		if n.Optional {
			p.sb.WriteString("?.")
		} else {
			p.sb.WriteByte('.')
		}
		p.sb.WriteString(n.Property)
	case jsast.EIndex:
		p.expr(n.Object, jsast.LMember)
		if n.Optional {
			p.sb.WriteString("?.")
		}
		p.sb.WriteByte('[')
		p.expr(n.Index, jsast.LLowest)
		p.sb.WriteByte(']')
	case jsast.EArrow:
		p.writeArrow(n)
	case jsast.EFunction:
		p.writeFunction(n)
	case jsast.EAwait:
		p.sb.WriteString("await ")
		p.expr(n.Arg, jsast.LPrefix)
	case jsast.ESpread:
		p.sb.WriteString("...")
		p.expr(n.Arg, jsast.LAssign)
	case jsast.EIIFE:
		if n.IsAsync {
			p.sb.WriteString("(async () => ")
		} else {
			p.sb.WriteString("(() => ")
		}
		p.block(n.Body)
		p.sb.WriteString(")()")
	case jsast.ERaw:
		p.sb.WriteString(n.Code)
	default:
		fmt.Fprintf(&p.sb, "/* unprintable expr %T */", e)
	}
}

func (p *printer) writeArgs(args []jsast.Expr) {
	p.sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		p.expr(a, jsast.LAssign)
	}
	p.sb.WriteByte(')')
}

func (p *printer) writeObject(n jsast.EObject) {
	if len(n.Properties) == 0 {
		p.sb.WriteString("{}")
		return
	}
	p.sb.WriteString("{ ")
	for i, prop := range n.Properties {
		if i > 0 {
			p.sb.WriteString(", ")
		}
		if prop.Spread {
			p.sb.WriteString("...")
			p.expr(prop.Value, jsast.LAssign)
			continue
		}
		if prop.Computed != nil {
			p.sb.WriteByte('[')
			p.expr(prop.Computed, jsast.LLowest)
			p.sb.WriteString("]: ")
		} else {
			fmt.Fprintf(&p.sb, "%s: ", propKey(prop.Key))
		}
		p.expr(prop.Value, jsast.LAssign)
	}
	p.sb.WriteString(" }")
}

func propKey(name string) string {
	if isValidIdent(name) {
		return name
	}
	return quoteJSString(name)
}

func (p *printer) writeTemplate(n jsast.ETemplate) {
	p.sb.WriteByte('`')
	for i, q := range n.Quasis {
		p.sb.WriteString(escapeTemplateText(q))
		if i < len(n.Exprs) {
			p.sb.WriteString("${")
			p.expr(n.Exprs[i], jsast.LLowest)
			p.sb.WriteByte('}')
		}
	}
	p.sb.WriteByte('`')
}

func (p *printer) writeArrow(n jsast.EArrow) {
	if n.IsAsync {
		p.sb.WriteString("async ")
	}
	fmt.Fprintf(&p.sb, "(%s) => ", strings.Join(n.Params, ", "))
	if n.Body != nil {
		p.block(n.Body)
		return
	}
	if isObjectLit(n.Expr) {
		p.sb.WriteByte('(')
		p.expr(n.Expr, jsast.LLowest)
		p.sb.WriteByte(')')
		return
	}
	p.expr(n.Expr, jsast.LAssign)
}

func isObjectLit(e jsast.Expr) bool {
	_, ok := e.(jsast.EObject)
	return ok
}

func (p *printer) writeFunction(n jsast.EFunction) {
	if n.IsAsync {
		p.sb.WriteString("async ")
	}
	fmt.Fprintf(&p.sb, "function %s(%s) ", n.Name, strings.Join(n.Params, ", "))
	p.block(n.Body)
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// quoteJSString renders a Go string as a double-quoted JS string literal.
// strconv.Quote already produces double-quoted Go syntax with the same
// backslash-escape rules ES2022 expects, so it's used as-is.
func quoteJSString(s string) string {
	return strconv.Quote(s)
}

func escapeTemplateText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

func isValidIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
