// Package parser implements the recursive-descent, Pratt-expression parser
// that turns a token stream into an ast.Module. Errors never panic: the
// parser records a diagnostic and synchronizes to the next item boundary.
package parser

import (
	"strconv"

	"github.com/agc-lang/agc/internal/compiler/ast"
	"github.com/agc-lang/agc/internal/compiler/diag"
	"github.com/agc-lang/agc/internal/compiler/lexer"
	"github.com/agc-lang/agc/internal/compiler/span"
	"github.com/agc-lang/agc/internal/compiler/token"
)

// Precedence table per the surface language's documented operator
// precedence, low to high.
const (
	_ int = iota
	LOWEST
	ASSIGNMENT  // =, +=, -=, *=, /=  (right-assoc)
	PIPE        // |>
	NULLISH     // ??
	LOGICAL_OR  // ||
	LOGICAL_AND // &&
	EQUALITY    // == !=
	RELATIONAL  // < > <= >=
	ADDITIVE    // + -
	MULTIPLICATIVE // * / %
	POWER       // ** (right-assoc)
	UNARY       // ! - await (prefix)
	POSTFIX     // . ?. () [] ? (postfix)
)

var precedences = map[token.Type]int{
	token.ASSIGN:      ASSIGNMENT,
	token.PLUS_ASSIGN:  ASSIGNMENT,
	token.SUB_ASSIGN:  ASSIGNMENT,
	token.MUL_ASSIGN:  ASSIGNMENT,
	token.DIV_ASSIGN:  ASSIGNMENT,
	token.PIPE:        PIPE,
	token.NULLISH:     NULLISH,
	token.OR:          LOGICAL_OR,
	token.AND:         LOGICAL_AND,
	token.EQ:          EQUALITY,
	token.NOT_EQ:      EQUALITY,
	token.LT:          RELATIONAL,
	token.GT:          RELATIONAL,
	token.LT_EQ:       RELATIONAL,
	token.GT_EQ:       RELATIONAL,
	token.PLUS:        ADDITIVE,
	token.MINUS:       ADDITIVE,
	token.ASTERISK:    MULTIPLICATIVE,
	token.SLASH:       MULTIPLICATIVE,
	token.PERCENT:     MULTIPLICATIVE,
	token.POW:         POWER,
	token.LPAREN:      POSTFIX,
	token.LBRACKET:    POSTFIX,
	token.DOT:         POSTFIX,
	token.OPTIONAL:    POSTFIX,
	token.QUESTION:    POSTFIX,
}

// itemStartTokens is the synchronization set: tokens that clearly begin a
// new item, used to recover after a parse error.
var itemStartTokens = map[token.Type]bool{
	token.FN: true, token.LET: true, token.MUT: true, token.CONST: true,
	token.STRUCT: true, token.ENUM: true, token.TYPE: true, token.IMPORT: true,
	token.PUB: true, token.FOR: true, token.WHILE: true, token.TRY: true,
	token.IF: true, token.MATCH: true, token.RET: true, token.AT: true,
	token.EXTERN: true,
}

type prefixParseFn func() ast.Expr
type infixParseFn func(ast.Expr) ast.Expr

type Parser struct {
	l    *lexer.Lexer
	cur  token.Token
	peek *token.Token // lazily filled; nil means "not yet lexed"

	diags *diag.Bag

	prefixFns map[token.Type]prefixParseFn
	infixFns  map[token.Type]infixParseFn
}

func New(source string) *Parser {
	p := &Parser{
		l:     lexer.New(source),
		diags: diag.NewBag(),
	}
	p.prefixFns = map[token.Type]prefixParseFn{}
	p.infixFns = map[token.Type]infixParseFn{}
	p.registerPrefix(token.IDENT, p.parseIdent)
	p.registerPrefix(token.WILDCARD, p.parsePlaceholderOrWildcardIdent)
	p.registerPrefix(token.INT, p.parseIntLit)
	p.registerPrefix(token.FLOAT, p.parseFloatLit)
	p.registerPrefix(token.STRING, p.parseStringLit)
	p.registerPrefix(token.TRUE, p.parseBoolLit)
	p.registerPrefix(token.FALSE, p.parseBoolLit)
	p.registerPrefix(token.NIL, p.parseNilLit)
	p.registerPrefix(token.BANG, p.parseUnary)
	p.registerPrefix(token.MINUS, p.parseUnary)
	p.registerPrefix(token.AWAIT, p.parseAwait)
	p.registerPrefix(token.LPAREN, p.parseGroupedOrArrow)
	p.registerPrefix(token.LBRACKET, p.parseArrayLit)
	p.registerPrefix(token.LBRACE, p.parseBlockAsExpr)
	p.registerPrefix(token.IF, p.parseIfExprPrefix)
	p.registerPrefix(token.MATCH, p.parseMatchExpr)
	p.registerPrefix(token.ASYNC, p.parseAsyncArrow)
	p.registerPrefix(token.TEMPLATE_NOSUB, p.parseTemplateNoSub)
	p.registerPrefix(token.TEMPLATE_HEAD, p.parseTemplateWithSub)

	p.registerInfix(token.PLUS, p.parseBinary)
	p.registerInfix(token.MINUS, p.parseBinary)
	p.registerInfix(token.ASTERISK, p.parseBinary)
	p.registerInfix(token.SLASH, p.parseBinary)
	p.registerInfix(token.PERCENT, p.parseBinary)
	p.registerInfix(token.POW, p.parseBinary)
	p.registerInfix(token.EQ, p.parseBinary)
	p.registerInfix(token.NOT_EQ, p.parseBinary)
	p.registerInfix(token.LT, p.parseBinary)
	p.registerInfix(token.GT, p.parseBinary)
	p.registerInfix(token.LT_EQ, p.parseBinary)
	p.registerInfix(token.GT_EQ, p.parseBinary)
	p.registerInfix(token.AND, p.parseBinary)
	p.registerInfix(token.OR, p.parseBinary)
	p.registerInfix(token.PIPE, p.parsePipe)
	p.registerInfix(token.NULLISH, p.parseNullish)
	p.registerInfix(token.OPTIONAL, p.parseOptionalChain)
	p.registerInfix(token.DOT, p.parseMember)
	p.registerInfix(token.LPAREN, p.parseCall)
	p.registerInfix(token.LBRACKET, p.parseIndex)
	p.registerInfix(token.QUESTION, p.parseErrorPropagate)
	p.registerInfix(token.ASSIGN, p.parseAssign)
	p.registerInfix(token.PLUS_ASSIGN, p.parseAssign)
	p.registerInfix(token.SUB_ASSIGN, p.parseAssign)
	p.registerInfix(token.MUL_ASSIGN, p.parseAssign)
	p.registerInfix(token.DIV_ASSIGN, p.parseAssign)

	p.advance()
	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixFns[t] = fn }

func (p *Parser) errorf(sp span.Span, format string, args ...any) {
	p.diags.Add(sp, diag.Error, format, args...)
}

// peekTok lazily lexes and caches the next token without disturbing the
// lexer's ability to enter DSL raw mode immediately after `cur` — callers
// that are about to switch lexer mode must avoid calling this and use
// p.l.PeekIdentAhead / p.l directly instead (see parseDslBlock).
func (p *Parser) peekTok() token.Token {
	if p.peek == nil {
		t := p.l.NextToken()
		p.peek = &t
	}
	return *p.peek
}

func (p *Parser) advance() {
	if p.peek != nil {
		p.cur = *p.peek
		p.peek = nil
		return
	}
	p.cur = p.l.NextToken()
}

func (p *Parser) curIs(t token.Type) bool  { return p.cur.Type == t }
func (p *Parser) peekIs(t token.Type) bool { return p.peekTok().Type == t }

func (p *Parser) expect(t token.Type) bool {
	if p.curIs(t) {
		return true
	}
	p.errorf(p.cur.Span, "expected %s, got %s", t, p.cur.Type)
	return false
}

func (p *Parser) expectAdvance(t token.Type) bool {
	if !p.expect(t) {
		return false
	}
	p.advance()
	return true
}

func peekPrecedence(p *Parser) int {
	if pr, ok := precedences[p.peekTok().Type]; ok {
		return pr
	}
	return LOWEST
}

func curPrecedence(p *Parser) int {
	if pr, ok := precedences[p.cur.Type]; ok {
		return pr
	}
	return LOWEST
}

// Parse drains the token stream into a Module, recovering from errors at
// item boundaries so a single bad item doesn't abort the whole file.
func Parse(source string) (*ast.Module, *diag.Bag) {
	p := New(source)
	mod := &ast.Module{}
	for !p.curIs(token.EOF) {
		item := p.parseItem()
		if item != nil {
			mod.Items = append(mod.Items, item)
		}
	}
	return mod, p.diags
}

func (p *Parser) synchronize() {
	for !p.curIs(token.EOF) {
		if p.curIs(token.SEMICOLON) {
			p.advance()
			return
		}
		if p.curIs(token.RBRACE) {
			return
		}
		if itemStartTokens[p.cur.Type] {
			return
		}
		p.advance()
	}
}

func (p *Parser) parseItem() ast.Item {
	switch p.cur.Type {
	case token.IMPORT:
		return p.parseImport()
	case token.LET, token.MUT, token.CONST:
		return p.parseVarDeclItem()
	case token.FN:
		return p.parseFnDeclItem(false, false)
	case token.ASYNC:
		if p.peekIs(token.FN) {
			p.advance()
			return p.parseFnDeclItem(false, true)
		}
		return p.parseExprStmtItem()
	case token.PUB:
		p.advance()
		isAsync := false
		if p.curIs(token.ASYNC) {
			isAsync = true
			p.advance()
		}
		if !p.expect(token.FN) {
			p.synchronize()
			return nil
		}
		return p.parseFnDeclItem(true, isAsync)
	case token.STRUCT:
		return p.parseStructDecl()
	case token.ENUM:
		return p.parseEnumDecl()
	case token.TYPE:
		return p.parseTypeAlias()
	case token.EXTERN:
		return p.parseExternDecl(nil)
	case token.AT:
		return p.parseAtItem()
	case token.FOR, token.WHILE, token.TRY, token.RET:
		return p.parseStmtAsItem()
	default:
		return p.parseExprStmtItem()
	}
}

// ---- Declarations ------------------------------------------------------

func (p *Parser) parseImport() ast.Item {
	start := p.cur.Span
	p.advance() // consume 'import'

	imp := ast.Import{Sp: start}

	if p.curIs(token.ASTERISK) {
		p.advance()
		if p.expectAdvance(token.AS) {
			imp.Namespace = p.cur.Literal
			p.advance()
		}
	} else if p.expectAdvance(token.LBRACE) {
		for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			name := ast.ImportName{Name: p.cur.Literal, Sp: p.cur.Span}
			p.advance()
			if p.curIs(token.AS) {
				p.advance()
				name.Alias = p.cur.Literal
				p.advance()
			}
			imp.Names = append(imp.Names, name)
			if p.curIs(token.COMMA) {
				p.advance()
			}
		}
		p.expectAdvance(token.RBRACE)
	}

	if p.expectAdvance(token.FROM) {
		imp.Path = p.cur.Literal
		imp.Sp = start.Cover(p.cur.Span)
		p.advance()
	}
	return imp
}

func (p *Parser) parseVarKind() ast.VarKind {
	switch p.cur.Type {
	case token.LET:
		return ast.KindLet
	case token.MUT:
		return ast.KindMut
	default:
		return ast.KindConst
	}
}

func (p *Parser) parseVarDeclItem() ast.Item {
	return ast.VarDecl(p.parseVarDeclCommon())
}

func (p *Parser) parseVarDeclCommon() ast.VarDecl {
	start := p.cur.Span
	kind := p.parseVarKind()
	p.advance()

	name := p.cur.Literal
	p.advance()

	var typ ast.TypeExpr
	if p.curIs(token.COLON) {
		p.advance()
		typ = p.parseTypeExpr()
	}

	var init ast.Expr
	if p.curIs(token.ASSIGN) {
		p.advance()
		init = p.parseExpression(ASSIGNMENT)
	}

	decl := ast.VarDecl{Kind: kind, Name: name, Type: typ, Init: init, Sp: start.Cover(p.cur.Span)}
	if p.curIs(token.SEMICOLON) {
		p.advance()
	}
	return decl
}

func (p *Parser) parseFnDeclItem(isPub, isAsync bool) ast.Item {
	start := p.cur.Span
	p.advance() // consume 'fn'

	name := p.cur.Literal
	p.advance()

	params := p.parseParamList()

	var ret ast.TypeExpr
	if p.curIs(token.THIN_ARROW) {
		p.advance()
		ret = p.parseTypeExpr()
	}

	body := p.parseBlock()

	return ast.FnDecl{
		Name: name, Params: params, ReturnType: ret, Body: body,
		IsPub: isPub, IsAsync: isAsync, Sp: start.Cover(body.Sp),
	}
}

func (p *Parser) parseParamList() []ast.Param {
	p.expectAdvance(token.LPAREN)
	var params []ast.Param
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		params = append(params, p.parseParam())
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	p.expectAdvance(token.RPAREN)
	return params
}

func (p *Parser) parseParam() ast.Param {
	start := p.cur.Span
	variadic := false
	if p.curIs(token.SPREAD) {
		variadic = true
		p.advance()
	}
	name := p.cur.Literal
	p.advance()

	var typ ast.TypeExpr
	if p.curIs(token.COLON) {
		p.advance()
		typ = p.parseTypeExpr()
	}

	var def ast.Expr
	if p.curIs(token.ASSIGN) {
		p.advance()
		def = p.parseExpression(ASSIGNMENT)
	}
	return ast.Param{Name: name, Type: typ, Default: def, IsVariadic: variadic, Sp: start.Cover(p.cur.Span)}
}

func (p *Parser) parseStructDecl() ast.Item {
	start := p.cur.Span
	p.advance()
	name := p.cur.Literal
	p.advance()
	p.expectAdvance(token.LBRACE)
	var fields []ast.Field
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		fields = append(fields, p.parseField())
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	end := p.cur.Span
	p.expectAdvance(token.RBRACE)
	return ast.StructDecl{Name: name, Fields: fields, Sp: start.Cover(end)}
}

func (p *Parser) parseField() ast.Field {
	start := p.cur.Span
	name := p.cur.Literal
	p.advance()
	var typ ast.TypeExpr
	if p.curIs(token.COLON) {
		p.advance()
		typ = p.parseTypeExpr()
	}
	var def ast.Expr
	if p.curIs(token.ASSIGN) {
		p.advance()
		def = p.parseExpression(ASSIGNMENT)
	}
	return ast.Field{Name: name, Type: typ, Default: def, Sp: start.Cover(p.cur.Span)}
}

func (p *Parser) parseEnumDecl() ast.Item {
	start := p.cur.Span
	p.advance()
	name := p.cur.Literal
	p.advance()
	p.expectAdvance(token.LBRACE)
	var variants []ast.Variant
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		vStart := p.cur.Span
		vName := p.cur.Literal
		p.advance()
		var fields []ast.Field
		if p.curIs(token.LPAREN) {
			p.advance()
			for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
				fields = append(fields, p.parseField())
				if p.curIs(token.COMMA) {
					p.advance()
				}
			}
			p.expectAdvance(token.RPAREN)
		}
		variants = append(variants, ast.Variant{Name: vName, Fields: fields, Sp: vStart.Cover(p.cur.Span)})
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	end := p.cur.Span
	p.expectAdvance(token.RBRACE)
	return ast.EnumDecl{Name: name, Variants: variants, Sp: start.Cover(end)}
}

func (p *Parser) parseTypeAlias() ast.Item {
	start := p.cur.Span
	p.advance()
	name := p.cur.Literal
	p.advance()
	p.expectAdvance(token.ASSIGN)
	typ := p.parseTypeExpr()
	if p.curIs(token.SEMICOLON) {
		p.advance()
	}
	return ast.TypeAlias{Name: name, Type: typ, Sp: start.Cover(p.cur.Span)}
}

// parseAtItem handles both `@js(...)` host-binding annotations (which must
// precede an extern declaration) and `@kind name` DSL blocks.
func (p *Parser) parseAtItem() ast.Item {
	start := p.cur.Span
	p.advance() // consume '@'

	if p.curIs(token.IDENT) && p.cur.Literal == "js" && p.peekIs(token.LPAREN) {
		ann := p.parseJsAnnotation(start)
		if !p.curIs(token.EXTERN) {
			p.errorf(ann.Sp, "@js annotation must precede an extern declaration")
			p.synchronize()
			return nil
		}
		return p.parseExternDecl(ann)
	}

	kind := p.cur.Literal
	p.advance()
	name := ast.Ident{Name: p.cur.Literal, Sp: p.cur.Span}
	// Deliberately no further advance here: parseDslBlock must inspect the
	// raw source right after `name` before the lexer commits to ordinary
	// token-stream lexing, since a `from` keyword is safe to lex normally
	// but a fenced inline body's opening backtick is not (it would be
	// mis-lexed as a template-string start).

	return p.parseDslBlock(start, kind, name)
}

func (p *Parser) parseJsAnnotation(start span.Span) *ast.JsAnnotation {
	p.advance() // consume 'js'
	p.expectAdvance(token.LPAREN)
	ann := &ast.JsAnnotation{Sp: start}
	if p.curIs(token.STRING) {
		ann.Module = p.cur.Literal
		p.advance()
	}
	if p.curIs(token.COMMA) {
		p.advance()
		if p.curIs(token.IDENT) && p.cur.Literal == "name" {
			p.advance()
			p.expectAdvance(token.ASSIGN)
		}
		if p.curIs(token.STRING) {
			ann.JsName = p.cur.Literal
			p.advance()
		}
	}
	ann.Sp = start.Cover(p.cur.Span)
	p.expectAdvance(token.RPAREN)
	return ann
}

func (p *Parser) parseExternDecl(ann *ast.JsAnnotation) ast.Item {
	start := p.cur.Span
	if ann != nil {
		start = ann.Sp
	}
	p.advance() // consume 'extern'

	switch p.cur.Type {
	case token.FN:
		p.advance()
		name := p.cur.Literal
		p.advance()
		variadic := false
		params := p.parseParamList()
		for _, prm := range params {
			if prm.IsVariadic {
				variadic = true
			}
		}
		var ret ast.TypeExpr
		if p.curIs(token.THIN_ARROW) {
			p.advance()
			ret = p.parseTypeExpr()
		}
		end := p.cur.Span
		if p.curIs(token.SEMICOLON) {
			p.advance()
		}
		return ast.ExternFnDecl{Name: name, Params: params, ReturnType: ret, Annotation: ann, Variadic: variadic, Sp: start.Cover(end)}
	case token.STRUCT:
		p.advance()
		name := p.cur.Literal
		p.advance()
		p.expectAdvance(token.LBRACE)
		var fields []ast.Field
		var methods []ast.MethodSignature
		for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			if p.curIs(token.FN) {
				mStart := p.cur.Span
				p.advance()
				mName := p.cur.Literal
				p.advance()
				mParams := p.parseParamList()
				var mRet ast.TypeExpr
				if p.curIs(token.THIN_ARROW) {
					p.advance()
					mRet = p.parseTypeExpr()
				}
				methods = append(methods, ast.MethodSignature{Name: mName, Params: mParams, ReturnType: mRet, Sp: mStart.Cover(p.cur.Span)})
			} else {
				fields = append(fields, p.parseField())
			}
			if p.curIs(token.COMMA) {
				p.advance()
			}
		}
		end := p.cur.Span
		p.expectAdvance(token.RBRACE)
		return ast.ExternStructDecl{Name: name, Fields: fields, Methods: methods, Annotation: ann, Sp: start.Cover(end)}
	case token.TYPE:
		p.advance()
		name := p.cur.Literal
		end := p.cur.Span
		p.advance()
		if p.curIs(token.SEMICOLON) {
			p.advance()
		}
		return ast.ExternTypeDecl{Name: name, Annotation: ann, Sp: start.Cover(end)}
	default:
		p.errorf(p.cur.Span, "expected fn, struct or type after extern")
		p.synchronize()
		return nil
	}
}

// parseDslBlock drains a DSL block's body directly off the shared lexer,
// switching it into raw mode and, for each capture, resuming ordinary
// token-at-a-time parsing bounded by DSL_CAPTURE_END treated as a
// synthetic end of input for that sub-expression. See DESIGN.md for why
// this reuses the single lexer/parser instance rather than constructing
// genuinely separate sub-lexer/sub-parser objects.
func (p *Parser) parseDslBlock(start span.Span, kind string, name ast.Ident) ast.Item {
	if word, ok := p.l.PeekIdentAhead(); ok && word == "from" {
		p.advance() // cur = FROM
		p.advance()
		path := p.cur.Literal
		sp := start.Cover(p.cur.Span)
		p.advance()
		if p.curIs(token.SEMICOLON) {
			p.advance()
		}
		return ast.DslBlock{Kind: kind, Name: name, Content: ast.DslFileRef{Path: path, Sp: sp}, Sp: sp}
	}

	first := p.l.EnterDSLRawMode()
	var parts []ast.DslPart
	tok := first
	for {
		switch tok.Type {
		case token.DSL_TEXT:
			parts = append(parts, ast.DslText{Text: tok.Literal, Sp: tok.Span})
			tok = p.l.NextToken()
		case token.DSL_CAPTURE_START:
			p.cur = p.l.NextToken()
			p.peek = nil
			expr := p.parseExpression(LOWEST)
			capSpan := expr.Span()
			if !p.curIs(token.DSL_CAPTURE_END) {
				p.errorf(p.cur.Span, "expected end of DSL capture")
			}
			parts = append(parts, ast.DslCapture{Expr: expr, Sp: capSpan})
			tok = p.l.NextToken()
		case token.DSL_BLOCK_END:
			sp := start.Cover(tok.Span)
			p.advance()
			return ast.DslBlock{Kind: kind, Name: name, Content: ast.DslInline{Parts: parts}, Sp: sp}
		case token.ILLEGAL:
			p.errorf(tok.Span, "%s", tok.Literal)
			sp := start.Cover(tok.Span)
			p.advance()
			return ast.DslBlock{Kind: kind, Name: name, Content: ast.DslInline{Parts: parts}, Sp: sp}
		default:
			tok = p.l.NextToken()
		}
	}
}

func (p *Parser) parseStmtAsItem() ast.Item {
	stmt := p.parseStatement()
	return ast.StmtItem{Stmt: stmt, Sp: stmt.Span()}
}

func (p *Parser) parseExprStmtItem() ast.Item {
	start := p.cur.Span
	expr := p.parseExpression(LOWEST)
	sp := start.Cover(expr.Span())
	if p.curIs(token.SEMICOLON) {
		p.advance()
	}
	return ast.ExprStmtItem{Expr: expr, Sp: sp}
}

// ---- Types --------------------------------------------------------------

func (p *Parser) parseTypeExpr() ast.TypeExpr {
	t := p.parseTypePrimary()
	for p.curIs(token.QUESTION) {
		sp := t.Span().Cover(p.cur.Span)
		p.advance()
		t = ast.NullableType{Inner: t, Sp: sp}
	}
	// A lone `|` has no token kind of its own and lexes as ILLEGAL, so the
	// union bar is matched by its literal text; `||` is accepted as well.
	if p.curIs(token.OR) || (p.curIs(token.ILLEGAL) && p.cur.Literal == "|") {
		p.advance()
		b := p.parseTypeExpr()
		t = ast.UnionType{A: t, B: b, Sp: t.Span().Cover(b.Span())}
	}
	return t
}

func (p *Parser) parseTypePrimary() ast.TypeExpr {
	start := p.cur.Span
	switch p.cur.Type {
	case token.LBRACKET:
		p.advance()
		elem := p.parseTypeExpr()
		end := p.cur.Span
		p.expectAdvance(token.RBRACKET)
		return ast.ArrayType{Elem: elem, Sp: start.Cover(end)}
	case token.LBRACE:
		p.advance()
		var fields []ast.TypeField
		for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			fStart := p.cur.Span
			fName := p.cur.Literal
			p.advance()
			p.expectAdvance(token.COLON)
			fType := p.parseTypeExpr()
			fields = append(fields, ast.TypeField{Name: fName, Type: fType, Sp: fStart.Cover(p.cur.Span)})
			if p.curIs(token.COMMA) {
				p.advance()
			}
		}
		end := p.cur.Span
		p.expectAdvance(token.RBRACE)
		return ast.ObjectType{Fields: fields, Sp: start.Cover(end)}
	case token.IDENT:
		name := p.cur.Literal
		p.advance()
		if name == "map" && p.curIs(token.LT) {
			p.advance()
			key := p.parseTypeExpr()
			p.expectAdvance(token.COMMA)
			val := p.parseTypeExpr()
			end := p.cur.Span
			p.expectAdvance(token.GT)
			return ast.MapType{Key: key, Value: val, Sp: start.Cover(end)}
		}
		if name == "Promise" && p.curIs(token.LT) {
			p.advance()
			inner := p.parseTypeExpr()
			end := p.cur.Span
			p.expectAdvance(token.GT)
			return ast.PromiseType{Inner: inner, Sp: start.Cover(end)}
		}
		return ast.NamedType{Name: name, Sp: start}
	default:
		name := p.cur.Literal
		p.advance()
		return ast.NamedType{Name: name, Sp: start}
	}
}

// ---- Statements / blocks --------------------------------------------------

// parseBlock parses `{ stmt* expr? }`. An expression that is not followed
// by a semicolon and is directly followed by the closing brace becomes the
// block's tail expression (its value); every other expression becomes an
// ordinary statement.
func (p *Parser) parseBlock() *ast.Block {
	start := p.cur.Span
	p.expectAdvance(token.LBRACE)
	b := &ast.Block{Sp: start}
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		switch p.cur.Type {
		case token.LET, token.MUT, token.CONST:
			b.Stmts = append(b.Stmts, ast.VarDeclStmt{Decl: p.parseVarDeclCommon()})
		case token.RET:
			b.Stmts = append(b.Stmts, p.parseReturnStmt())
		case token.FOR:
			b.Stmts = append(b.Stmts, p.parseForStmt())
		case token.WHILE:
			b.Stmts = append(b.Stmts, p.parseWhileStmt())
		case token.TRY:
			b.Stmts = append(b.Stmts, p.parseTryCatchStmt())
		default:
			startE := p.cur.Span
			expr := p.parseExpression(LOWEST)
			switch {
			case p.curIs(token.SEMICOLON):
				p.advance()
				b.Stmts = append(b.Stmts, ast.ExprStmt{Expr: expr, Sp: startE.Cover(expr.Span())})
			case p.curIs(token.RBRACE):
				b.TailExpr = expr
			default:
				b.Stmts = append(b.Stmts, ast.ExprStmt{Expr: expr, Sp: startE.Cover(expr.Span())})
			}
		}
	}
	b.Sp = start.Cover(p.cur.Span)
	p.expectAdvance(token.RBRACE)
	return b
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	start := p.cur.Span
	p.advance()
	var val ast.Expr
	if !p.curIs(token.SEMICOLON) && !p.curIs(token.RBRACE) {
		val = p.parseExpression(LOWEST)
	}
	sp := start.Cover(p.cur.Span)
	if p.curIs(token.SEMICOLON) {
		p.advance()
	}
	return ast.ReturnStmt{Value: val, Sp: sp}
}

// parseStatement is used only at module scope (for/while/try/ret appearing
// directly as top-level items); block-scoped statements go through
// parseBlock's own loop so tail-expression detection stays local to it.
func (p *Parser) parseStatement() ast.Stmt {
	switch p.cur.Type {
	case token.LET, token.MUT, token.CONST:
		return ast.VarDeclStmt{Decl: p.parseVarDeclCommon()}
	case token.RET:
		return p.parseReturnStmt()
	case token.FOR:
		return p.parseForStmt()
	case token.WHILE:
		return p.parseWhileStmt()
	case token.TRY:
		return p.parseTryCatchStmt()
	default:
		start := p.cur.Span
		expr := p.parseExpression(LOWEST)
		sp := start.Cover(expr.Span())
		if p.curIs(token.SEMICOLON) {
			p.advance()
		}
		return ast.ExprStmt{Expr: expr, Sp: sp}
	}
}

func (p *Parser) parseForStmt() ast.Stmt {
	start := p.cur.Span
	p.advance() // for
	binding := p.cur.Literal
	p.advance()
	p.expectAdvance(token.IN)
	iter := p.parseExpression(LOWEST)
	body := p.parseBlock()
	return ast.ForStmt{Binding: binding, Iter: iter, Body: body, Sp: start.Cover(body.Sp)}
}

func (p *Parser) parseWhileStmt() ast.Stmt {
	start := p.cur.Span
	p.advance()
	cond := p.parseExpression(LOWEST)
	body := p.parseBlock()
	return ast.WhileStmt{Condition: cond, Body: body, Sp: start.Cover(body.Sp)}
}

func (p *Parser) parseTryCatchStmt() ast.Stmt {
	start := p.cur.Span
	p.advance() // try
	tryBlock := p.parseBlock()
	var binding string
	var catchBlock *ast.Block
	if p.curIs(token.CATCH) {
		p.advance()
		if p.curIs(token.LPAREN) {
			p.advance()
			binding = p.cur.Literal
			p.advance()
			p.expectAdvance(token.RPAREN)
		}
		catchBlock = p.parseBlock()
	}
	sp := start.Cover(tryBlock.Sp)
	if catchBlock != nil {
		sp = sp.Cover(catchBlock.Sp)
	}
	return ast.TryCatchStmt{TryBlock: tryBlock, CatchBinding: binding, CatchBlock: catchBlock, Sp: sp}
}

// ---- Pratt expression parsing --------------------------------------------

func (p *Parser) parseExpression(precedence int) ast.Expr {
	prefix, ok := p.prefixFns[p.cur.Type]
	if !ok {
		p.errorf(p.cur.Span, "unexpected token %s in expression", p.cur.Type)
		expr := ast.NilLit{Sp: p.cur.Span}
		p.advance()
		return expr
	}
	left := prefix()

	for !p.curIs(token.SEMICOLON) && !p.curIs(token.EOF) && !p.curIs(token.DSL_CAPTURE_END) &&
		!p.curIs(token.RBRACE) && precedence < curPrecedence(p) {
		infix, ok := p.infixFns[p.cur.Type]
		if !ok {
			return left
		}
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdent() ast.Expr {
	id := ast.Ident{Name: p.cur.Literal, Sp: p.cur.Span}
	p.advance()
	return id
}

func (p *Parser) parsePlaceholderOrWildcardIdent() ast.Expr {
	ph := ast.Placeholder{Sp: p.cur.Span}
	p.advance()
	return ph
}

func (p *Parser) parseIntLit() ast.Expr {
	v, _ := strconv.ParseInt(p.cur.Literal, 10, 64)
	lit := ast.IntLit{Value: v, Sp: p.cur.Span}
	p.advance()
	return lit
}

func (p *Parser) parseFloatLit() ast.Expr {
	v, _ := strconv.ParseFloat(p.cur.Literal, 64)
	lit := ast.FloatLit{Value: v, Sp: p.cur.Span}
	p.advance()
	return lit
}

func (p *Parser) parseStringLit() ast.Expr {
	lit := ast.StringLit{Value: unescape(p.cur.Literal), Sp: p.cur.Span}
	p.advance()
	return lit
}

func (p *Parser) parseBoolLit() ast.Expr {
	lit := ast.BoolLit{Value: p.cur.Type == token.TRUE, Sp: p.cur.Span}
	p.advance()
	return lit
}

func (p *Parser) parseNilLit() ast.Expr {
	lit := ast.NilLit{Sp: p.cur.Span}
	p.advance()
	return lit
}

func (p *Parser) parseUnary() ast.Expr {
	start := p.cur.Span
	op := ast.OpNeg
	if p.curIs(token.BANG) {
		op = ast.OpNot
	}
	p.advance()
	operand := p.parseExpression(UNARY)
	return ast.UnaryExpr{Op: op, Operand: operand, Sp: start.Cover(operand.Span())}
}

func (p *Parser) parseAwait() ast.Expr {
	start := p.cur.Span
	p.advance()
	inner := p.parseExpression(UNARY)
	return ast.AwaitExpr{Expr: inner, Sp: start.Cover(inner.Span())}
}

func (p *Parser) parseBinary(left ast.Expr) ast.Expr {
	opTok := p.cur
	prec := curPrecedence(p)
	op := binOpFor(opTok.Type)
	p.advance()
	nextPrec := prec
	if opTok.Type == token.POW {
		nextPrec-- // right-associative
	}
	right := p.parseExpression(nextPrec)
	return ast.BinaryExpr{Op: op, Left: left, Right: right, Sp: left.Span().Cover(right.Span())}
}

func binOpFor(t token.Type) ast.BinaryOp {
	switch t {
	case token.PLUS:
		return ast.OpAdd
	case token.MINUS:
		return ast.OpSub
	case token.ASTERISK:
		return ast.OpMul
	case token.SLASH:
		return ast.OpDiv
	case token.PERCENT:
		return ast.OpMod
	case token.POW:
		return ast.OpPow
	case token.EQ:
		return ast.OpEq
	case token.NOT_EQ:
		return ast.OpNe
	case token.LT:
		return ast.OpLt
	case token.GT:
		return ast.OpGt
	case token.LT_EQ:
		return ast.OpLe
	case token.GT_EQ:
		return ast.OpGe
	case token.AND:
		return ast.OpAnd
	case token.OR:
		return ast.OpOr
	default:
		return ast.OpAdd
	}
}

func (p *Parser) parsePipe(left ast.Expr) ast.Expr {
	p.advance()
	right := p.parseExpression(PIPE)
	return ast.PipeExpr{Left: left, Right: right, Sp: left.Span().Cover(right.Span())}
}

func (p *Parser) parseNullish(left ast.Expr) ast.Expr {
	p.advance()
	right := p.parseExpression(NULLISH)
	return ast.NullishCoalesceExpr{Left: left, Right: right, Sp: left.Span().Cover(right.Span())}
}

func (p *Parser) parseOptionalChain(left ast.Expr) ast.Expr {
	p.advance()
	field := p.cur.Literal
	sp := left.Span().Cover(p.cur.Span)
	p.advance()
	return ast.OptionalChainExpr{Object: left, Field: field, Sp: sp}
}

func (p *Parser) parseMember(left ast.Expr) ast.Expr {
	p.advance()
	field := p.cur.Literal
	sp := left.Span().Cover(p.cur.Span)
	p.advance()
	return ast.MemberExpr{Object: left, Field: field, Sp: sp}
}

func (p *Parser) parseCall(left ast.Expr) ast.Expr {
	p.advance() // consume (
	var args []ast.Expr
	for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
		args = append(args, p.parseExpression(ASSIGNMENT))
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	sp := left.Span().Cover(p.cur.Span)
	p.expectAdvance(token.RPAREN)
	return ast.CallExpr{Callee: left, Args: args, Sp: sp}
}

func (p *Parser) parseIndex(left ast.Expr) ast.Expr {
	p.advance() // consume [
	idx := p.parseExpression(LOWEST)
	sp := left.Span().Cover(p.cur.Span)
	p.expectAdvance(token.RBRACKET)
	return ast.IndexExpr{Object: left, Index: idx, Sp: sp}
}

func (p *Parser) parseErrorPropagate(left ast.Expr) ast.Expr {
	sp := left.Span().Cover(p.cur.Span)
	p.advance()
	return ast.ErrorPropagateExpr{Expr: left, Sp: sp}
}

func (p *Parser) parseAssign(left ast.Expr) ast.Expr {
	opTok := p.cur.Type
	p.advance()
	value := p.parseExpression(ASSIGNMENT - 1)
	op := ast.AssignPlain
	switch opTok {
	case token.PLUS_ASSIGN:
		op = ast.AssignAdd
	case token.SUB_ASSIGN:
		op = ast.AssignSub
	case token.MUL_ASSIGN:
		op = ast.AssignMul
	case token.DIV_ASSIGN:
		op = ast.AssignDiv
	}
	return ast.AssignExpr{Target: left, Value: value, Op: op, Sp: left.Span().Cover(value.Span())}
}

func (p *Parser) parseArrayLit() ast.Expr {
	start := p.cur.Span
	p.advance()
	var elems []ast.Expr
	for !p.curIs(token.RBRACKET) && !p.curIs(token.EOF) {
		elems = append(elems, p.parseExpression(ASSIGNMENT))
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	sp := start.Cover(p.cur.Span)
	p.expectAdvance(token.RBRACKET)
	return ast.ArrayExpr{Elements: elems, Sp: sp}
}

func (p *Parser) parseBlockAsExpr() ast.Expr {
	// Disambiguate object literal `{ key: value, ... }` from a block.
	// Heuristic: `{` immediately followed by `}` is an empty object;
	// `{` followed by IDENT/STRING `:` is an object literal; otherwise a
	// block expression.
	if p.peekIs(token.RBRACE) {
		start := p.cur.Span
		p.advance()
		sp := start.Cover(p.cur.Span)
		p.advance()
		return ast.ObjectExpr{Sp: sp}
	}
	if (p.peekTok().Type == token.IDENT || p.peekTok().Type == token.STRING) && p.looksLikeObjectLiteral() {
		return p.parseObjectLit()
	}
	return p.parseBlock()
}

// looksLikeObjectLiteral performs a lightweight lookahead by saving and
// restoring parser state, the same tentative-parse-and-rewind trick used
// elsewhere in this parser for arrow-function detection.
func (p *Parser) looksLikeObjectLiteral() bool {
	savedLexer := *p.l
	savedCur := p.cur
	savedPeek := p.peek

	p.advance() // consume {
	isObj := p.curIs(token.IDENT) || p.curIs(token.STRING)
	if isObj {
		p.advance()
		isObj = p.curIs(token.COLON)
	}

	*p.l = savedLexer
	p.cur = savedCur
	p.peek = savedPeek
	return isObj
}

func (p *Parser) parseObjectLit() ast.Expr {
	start := p.cur.Span
	p.advance() // consume {
	var fields []ast.ObjectField
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		fStart := p.cur.Span
		key := p.cur.Literal
		p.advance()
		p.expectAdvance(token.COLON)
		val := p.parseExpression(ASSIGNMENT)
		fields = append(fields, ast.ObjectField{Key: key, Value: val, Sp: fStart.Cover(val.Span())})
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	sp := start.Cover(p.cur.Span)
	p.expectAdvance(token.RBRACE)
	return ast.ObjectExpr{Fields: fields, Sp: sp}
}

// parseGroupedOrArrow tentatively parses a parenthesized parameter list;
// if `=>` follows, it commits to an arrow function, otherwise it
// backtracks and parses a parenthesized expression.
func (p *Parser) parseGroupedOrArrow() ast.Expr {
	savedLexer := *p.l
	savedCur := p.cur
	savedPeek := p.peek

	if params, ok := p.tryParseArrowParams(); ok && p.curIs(token.ARROW) {
		start := savedCur.Span
		p.advance() // consume =>
		body := p.parseArrowBody()
		return ast.ArrowExpr{Params: params, Body: body, Sp: start.Cover(arrowBodySpan(body))}
	}

	*p.l = savedLexer
	p.cur = savedCur
	p.peek = savedPeek

	p.advance() // consume (
	expr := p.parseExpression(LOWEST)
	p.expectAdvance(token.RPAREN)
	return expr
}

func (p *Parser) tryParseArrowParams() ([]ast.Param, bool) {
	if !p.curIs(token.LPAREN) {
		return nil, false
	}
	p.advance()
	var params []ast.Param
	for !p.curIs(token.RPAREN) {
		if !p.curIs(token.IDENT) && !p.curIs(token.WILDCARD) {
			return nil, false
		}
		params = append(params, p.parseParam())
		if p.curIs(token.COMMA) {
			p.advance()
		} else if !p.curIs(token.RPAREN) {
			return nil, false
		}
	}
	p.advance() // consume )
	return params, true
}

func (p *Parser) parseAsyncArrow() ast.Expr {
	p.advance() // consume 'async'
	expr := p.parseGroupedOrArrow()
	if arrow, ok := expr.(ast.ArrowExpr); ok {
		arrow.IsAsync = true
		return arrow
	}
	return expr
}

func (p *Parser) parseArrowBody() ast.ArrowBody {
	if p.curIs(token.LBRACE) {
		return ast.ArrowBlockBody{Block: p.parseBlock()}
	}
	return ast.ArrowExprBody{Expr: p.parseExpression(ASSIGNMENT)}
}

func arrowBodySpan(b ast.ArrowBody) span.Span {
	switch v := b.(type) {
	case ast.ArrowExprBody:
		return v.Expr.Span()
	case ast.ArrowBlockBody:
		return v.Block.Sp
	default:
		return span.Dummy()
	}
}

func (p *Parser) parseIfExprPrefix() ast.Expr {
	return p.parseIfExpr()
}

func (p *Parser) parseIfExpr() *ast.IfExpr {
	start := p.cur.Span
	p.advance() // consume 'if'
	cond := p.parseExpression(LOWEST)
	then := p.parseBlock()
	ifx := &ast.IfExpr{Condition: cond, Then: then, Sp: start.Cover(then.Sp)}
	if p.curIs(token.ELSE) {
		p.advance()
		if p.curIs(token.IF) {
			nested := p.parseIfExpr()
			ifx.ElseBranch = ast.ElseIf{If: nested}
			ifx.Sp = ifx.Sp.Cover(nested.Sp)
		} else {
			blk := p.parseBlock()
			ifx.ElseBranch = ast.ElseBlock{Block: blk}
			ifx.Sp = ifx.Sp.Cover(blk.Sp)
		}
	}
	return ifx
}

func (p *Parser) parseMatchExpr() ast.Expr {
	return *p.parseMatchExprNode()
}

func (p *Parser) parseMatchExprNode() *ast.MatchExpr {
	start := p.cur.Span
	p.advance() // consume 'match'
	subject := p.parseExpression(LOWEST)
	p.expectAdvance(token.LBRACE)
	var arms []ast.MatchArm
	for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
		arms = append(arms, p.parseMatchArm())
		if p.curIs(token.COMMA) {
			p.advance()
		}
	}
	end := p.cur.Span
	p.expectAdvance(token.RBRACE)
	return &ast.MatchExpr{Subject: subject, Arms: arms, Sp: start.Cover(end)}
}

func (p *Parser) parseMatchArm() ast.MatchArm {
	start := p.cur.Span
	pattern := p.parsePattern()
	var guard ast.Expr
	if p.curIs(token.IF) {
		p.advance()
		guard = p.parseExpression(LOWEST)
	}
	p.expectAdvance(token.ARROW)
	body := p.parseExpression(ASSIGNMENT)
	return ast.MatchArm{Pattern: pattern, Guard: guard, Body: body, Sp: start.Cover(body.Span())}
}

func (p *Parser) parsePattern() ast.Pattern {
	start := p.cur.Span
	switch p.cur.Type {
	case token.WILDCARD:
		p.advance()
		return ast.WildcardPattern{Sp: start}
	case token.INT, token.FLOAT, token.STRING, token.TRUE, token.FALSE, token.NIL:
		lit := p.parseExpression(POSTFIX)
		if p.curIs(token.RANGE) {
			p.advance()
			to := p.parseExpression(POSTFIX)
			return ast.RangePattern{From: lit, To: to, Sp: start.Cover(to.Span())}
		}
		return ast.LiteralPattern{Value: lit, Sp: lit.Span()}
	case token.LBRACE:
		p.advance()
		var fields []string
		for !p.curIs(token.RBRACE) && !p.curIs(token.EOF) {
			fields = append(fields, p.cur.Literal)
			p.advance()
			if p.curIs(token.COMMA) {
				p.advance()
			}
		}
		end := p.cur.Span
		p.expectAdvance(token.RBRACE)
		return ast.StructPattern{Fields: fields, Sp: start.Cover(end)}
	case token.IDENT:
		name := p.cur.Literal
		p.advance()
		if p.curIs(token.DCOLON) {
			p.advance()
			variant := p.cur.Literal
			p.advance()
			var bindings []string
			if p.curIs(token.LPAREN) {
				p.advance()
				for !p.curIs(token.RPAREN) && !p.curIs(token.EOF) {
					bindings = append(bindings, p.cur.Literal)
					p.advance()
					if p.curIs(token.COMMA) {
						p.advance()
					}
				}
				end := p.cur.Span
				p.expectAdvance(token.RPAREN)
				return ast.EnumPattern{EnumName: name, Variant: variant, Bindings: bindings, Sp: start.Cover(end)}
			}
			return ast.EnumPattern{EnumName: name, Variant: variant, Bindings: bindings, Sp: start.Cover(p.cur.Span)}
		}
		return ast.IdentPattern{Name: name, Sp: start}
	default:
		p.errorf(p.cur.Span, "unexpected token %s in pattern", p.cur.Type)
		p.advance()
		return ast.WildcardPattern{Sp: start}
	}
}

func (p *Parser) parseTemplateNoSub() ast.Expr {
	sp := p.cur.Span
	parts := []ast.TemplatePart{ast.TemplateString{Str: p.cur.Literal}}
	p.advance()
	return ast.TemplateStringExpr{Parts: parts, Sp: sp}
}

func (p *Parser) parseTemplateWithSub() ast.Expr {
	start := p.cur.Span
	parts := []ast.TemplatePart{ast.TemplateString{Str: p.cur.Literal}}
	p.advance() // consume TEMPLATE_HEAD
	for {
		expr := p.parseExpression(LOWEST)
		parts = append(parts, ast.TemplateExprPart{Expr: expr})
		if p.curIs(token.TEMPLATE_MIDDLE) {
			parts = append(parts, ast.TemplateString{Str: p.cur.Literal})
			p.advance()
			continue
		}
		if p.curIs(token.TEMPLATE_TAIL) {
			parts = append(parts, ast.TemplateString{Str: p.cur.Literal})
			sp := start.Cover(p.cur.Span)
			p.advance()
			return ast.TemplateStringExpr{Parts: parts, Sp: sp}
		}
		p.errorf(p.cur.Span, "expected template continuation, got %s", p.cur.Type)
		return ast.TemplateStringExpr{Parts: parts, Sp: start.Cover(p.cur.Span)}
	}
}

func unescape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
			switch s[i] {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '\\':
				out = append(out, '\\')
			case '"':
				out = append(out, '"')
			case '\'':
				out = append(out, '\'')
			default:
				out = append(out, s[i])
			}
			continue
		}
		out = append(out, s[i])
	}
	return string(out)
}
