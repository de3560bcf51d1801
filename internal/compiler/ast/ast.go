// Package ast defines the abstract syntax tree produced by the parser and
// consumed by the type checker and code generator. Every node carries a
// Span. Nodes are built once by the parser and never mutated afterwards
// (checker and codegen only ever read them, plus their own side tables).
package ast

import "github.com/agc-lang/agc/internal/compiler/span"

// Module is an ordered sequence of top-level items.
type Module struct {
	Items []Item
}

// Item is any top-level declaration or statement.
type Item interface {
	itemNode()
	Span() span.Span
}

// ---- Items ----------------------------------------------------------

type VarKind int

const (
	KindLet VarKind = iota
	KindMut
	KindConst
)

type VarDecl struct {
	Kind VarKind
	Name string
	Type TypeExpr // nil if omitted
	Init Expr
	Sp   span.Span
}

type ExprStmtItem struct {
	Expr Expr
	Sp   span.Span
}

type Param struct {
	Name       string
	Type       TypeExpr // nil if omitted
	Default    Expr     // nil if none
	IsVariadic bool
	Sp         span.Span
}

type FnDecl struct {
	Name       string
	Params     []Param
	ReturnType TypeExpr // nil if omitted
	Body       *Block
	IsPub      bool
	IsAsync    bool
	Sp         span.Span
}

type Field struct {
	Name    string
	Type    TypeExpr
	Default Expr // nil if none
	Sp      span.Span
}

type StructDecl struct {
	Name   string
	Fields []Field
	Sp     span.Span
}

type Variant struct {
	Name   string
	Fields []Field
	Sp     span.Span
}

type EnumDecl struct {
	Name     string
	Variants []Variant
	Sp       span.Span
}

type TypeAlias struct {
	Name string
	Type TypeExpr
	Sp   span.Span
}

type ImportName struct {
	Name  string
	Alias string // "" if none
	Sp    span.Span
}

type Import struct {
	Names     []ImportName
	Path      string
	Namespace string // "" unless `import * as ns from "..."`
	Sp        span.Span
}

// JsAnnotation is the `@js("module", name?)` host-binding annotation.
type JsAnnotation struct {
	Module string // "" if omitted (annotation absent entirely is nil *JsAnnotation, not this)
	JsName string // "" if omitted
	Sp     span.Span
}

type ExternFnDecl struct {
	Name       string
	Params     []Param
	ReturnType TypeExpr
	Annotation *JsAnnotation
	Variadic   bool
	Sp         span.Span
}

type MethodSignature struct {
	Name       string
	Params     []Param
	ReturnType TypeExpr
	Sp         span.Span
}

type ExternStructDecl struct {
	Name       string
	Fields     []Field
	Methods    []MethodSignature
	Annotation *JsAnnotation
	Sp         span.Span
}

type ExternTypeDecl struct {
	Name       string
	Annotation *JsAnnotation
	Sp         span.Span
}

// DslContent is either a fenced inline body or a file reference.
type DslContent interface {
	dslContentNode()
}

type DslPart interface {
	dslPartNode()
	Span() span.Span
}

type DslText struct {
	Text string
	Sp   span.Span
}

type DslCapture struct {
	Expr Expr
	Sp   span.Span
}

func (DslText) dslPartNode()    {}
func (DslCapture) dslPartNode() {}
func (d DslText) Span() span.Span    { return d.Sp }
func (d DslCapture) Span() span.Span { return d.Sp }

type DslInline struct {
	Parts []DslPart
}

type DslFileRef struct {
	Path string
	Sp   span.Span
}

func (DslInline) dslContentNode()  {}
func (DslFileRef) dslContentNode() {}

type DslBlock struct {
	Kind    string
	Name    Ident
	Content DslContent
	Sp      span.Span
}

// StmtItem wraps a statement (for/while/try/ret) that appears directly at
// module scope rather than inside a function body.
type StmtItem struct {
	Stmt Stmt
	Sp   span.Span
}

func (StmtItem) itemNode()        {}
func (n StmtItem) Span() span.Span { return n.Sp }

func (VarDecl) itemNode()          {}
func (ExprStmtItem) itemNode()     {}
func (FnDecl) itemNode()           {}
func (StructDecl) itemNode()       {}
func (EnumDecl) itemNode()         {}
func (TypeAlias) itemNode()        {}
func (Import) itemNode()           {}
func (DslBlock) itemNode()         {}
func (ExternFnDecl) itemNode()     {}
func (ExternStructDecl) itemNode() {}
func (ExternTypeDecl) itemNode()   {}

func (n VarDecl) Span() span.Span          { return n.Sp }
func (n ExprStmtItem) Span() span.Span     { return n.Sp }
func (n FnDecl) Span() span.Span           { return n.Sp }
func (n StructDecl) Span() span.Span       { return n.Sp }
func (n EnumDecl) Span() span.Span         { return n.Sp }
func (n TypeAlias) Span() span.Span        { return n.Sp }
func (n Import) Span() span.Span           { return n.Sp }
func (n DslBlock) Span() span.Span         { return n.Sp }
func (n ExternFnDecl) Span() span.Span     { return n.Sp }
func (n ExternStructDecl) Span() span.Span { return n.Sp }
func (n ExternTypeDecl) Span() span.Span   { return n.Sp }

// ---- Statements -------------------------------------------------------

type Stmt interface {
	stmtNode()
	Span() span.Span
}

type VarDeclStmt struct {
	Decl VarDecl
}

type ExprStmt struct {
	Expr Expr
	Sp   span.Span
}

type ReturnStmt struct {
	Value Expr // nil for a bare `ret`
	Sp    span.Span
}

type IfStmt struct {
	Expr IfExpr
}

type ForStmt struct {
	Binding string
	Iter    Expr
	Body    *Block
	Sp      span.Span
}

type WhileStmt struct {
	Condition Expr
	Body      *Block
	Sp        span.Span
}

type MatchStmt struct {
	Expr MatchExpr
}

type TryCatchStmt struct {
	TryBlock     *Block
	CatchBinding string
	CatchBlock   *Block
	Sp           span.Span
}

func (VarDeclStmt) stmtNode()  {}
func (ExprStmt) stmtNode()     {}
func (ReturnStmt) stmtNode()   {}
func (IfStmt) stmtNode()       {}
func (ForStmt) stmtNode()      {}
func (WhileStmt) stmtNode()    {}
func (MatchStmt) stmtNode()    {}
func (TryCatchStmt) stmtNode() {}

func (n VarDeclStmt) Span() span.Span  { return n.Decl.Sp }
func (n ExprStmt) Span() span.Span     { return n.Sp }
func (n ReturnStmt) Span() span.Span   { return n.Sp }
func (n IfStmt) Span() span.Span       { return n.Expr.Sp }
func (n ForStmt) Span() span.Span      { return n.Sp }
func (n WhileStmt) Span() span.Span    { return n.Sp }
func (n MatchStmt) Span() span.Span    { return n.Expr.Sp }
func (n TryCatchStmt) Span() span.Span { return n.Sp }

// Block is an ordered list of statements plus an optional tail expression,
// the block's value (nil means the block's value is nil at runtime).
type Block struct {
	Stmts    []Stmt
	TailExpr Expr
	Sp       span.Span
}

// ---- Expressions --------------------------------------------------------

type Expr interface {
	exprNode()
	Span() span.Span
}

type Ident struct {
	Name string
	Sp   span.Span
}

type IntLit struct {
	Value int64
	Sp    span.Span
}

type FloatLit struct {
	Value float64
	Sp    span.Span
}

type StringLit struct {
	Value string
	Sp    span.Span
}

type BoolLit struct {
	Value bool
	Sp    span.Span
}

type NilLit struct {
	Sp span.Span
}

type BinaryOp int

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpAnd
	OpOr
)

type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Sp    span.Span
}

type UnaryOp int

const (
	OpNeg UnaryOp = iota
	OpNot
)

type UnaryExpr struct {
	Op      UnaryOp
	Operand Expr
	Sp      span.Span
}

type CallExpr struct {
	Callee Expr
	Args   []Expr
	Sp     span.Span
}

type MemberExpr struct {
	Object Expr
	Field  string
	Sp     span.Span
}

type IndexExpr struct {
	Object Expr
	Index  Expr
	Sp     span.Span
}

// ElseBranch is either a plain block or, for `else if`, a nested IfExpr.
type ElseBranch interface {
	elseBranchNode()
}

type ElseBlock struct {
	Block *Block
}

type ElseIf struct {
	If *IfExpr
}

func (ElseBlock) elseBranchNode() {}
func (ElseIf) elseBranchNode()    {}

type IfExpr struct {
	Condition  Expr
	Then       *Block
	ElseBranch ElseBranch // nil if no else
	Sp         span.Span
}

type MatchArm struct {
	Pattern Pattern
	Guard   Expr // nil if none
	Body    Expr
	Sp      span.Span
}

type MatchExpr struct {
	Subject Expr
	Arms    []MatchArm
	Sp      span.Span
}

type ArrayExpr struct {
	Elements []Expr
	Sp       span.Span
}

type ObjectField struct {
	Key   string
	Value Expr
	Sp    span.Span
}

type ObjectExpr struct {
	Fields []ObjectField
	Sp     span.Span
}

type ArrowBody interface {
	arrowBodyNode()
}

type ArrowExprBody struct {
	Expr Expr
}

type ArrowBlockBody struct {
	Block *Block
}

func (ArrowExprBody) arrowBodyNode()  {}
func (ArrowBlockBody) arrowBodyNode() {}

type ArrowExpr struct {
	Params  []Param
	Body    ArrowBody
	IsAsync bool
	Sp      span.Span
}

type PipeExpr struct {
	Left  Expr
	Right Expr
	Sp    span.Span
}

type OptionalChainExpr struct {
	Object Expr
	Field  string
	Sp     span.Span
}

type NullishCoalesceExpr struct {
	Left  Expr
	Right Expr
	Sp    span.Span
}

type AwaitExpr struct {
	Expr Expr
	Sp   span.Span
}

type ErrorPropagateExpr struct {
	Expr Expr
	Sp   span.Span
}

type AssignOp int

const (
	AssignPlain AssignOp = iota
	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
)

type AssignExpr struct {
	Target Expr
	Value  Expr
	Op     AssignOp
	Sp     span.Span
}

type TemplatePart interface {
	templatePartNode()
}

type TemplateString struct {
	Str string
}

type TemplateExprPart struct {
	Expr Expr
}

func (TemplateString) templatePartNode()   {}
func (TemplateExprPart) templatePartNode() {}

type TemplateStringExpr struct {
	Parts []TemplatePart
	Sp    span.Span
}

// Placeholder is the pipe wildcard `_` used as an argument slot.
type Placeholder struct {
	Sp span.Span
}

func (Ident) exprNode()               {}
func (IntLit) exprNode()              {}
func (FloatLit) exprNode()            {}
func (StringLit) exprNode()           {}
func (BoolLit) exprNode()             {}
func (NilLit) exprNode()              {}
func (BinaryExpr) exprNode()          {}
func (UnaryExpr) exprNode()           {}
func (CallExpr) exprNode()            {}
func (MemberExpr) exprNode()          {}
func (IndexExpr) exprNode()           {}
func (IfExpr) exprNode()              {}
func (MatchExpr) exprNode()           {}
func (Block) exprNode()               {}
func (ArrayExpr) exprNode()           {}
func (ObjectExpr) exprNode()          {}
func (ArrowExpr) exprNode()           {}
func (PipeExpr) exprNode()            {}
func (OptionalChainExpr) exprNode()   {}
func (NullishCoalesceExpr) exprNode() {}
func (AwaitExpr) exprNode()           {}
func (ErrorPropagateExpr) exprNode()  {}
func (AssignExpr) exprNode()          {}
func (TemplateStringExpr) exprNode()  {}
func (Placeholder) exprNode()         {}

func (n Ident) Span() span.Span               { return n.Sp }
func (n IntLit) Span() span.Span              { return n.Sp }
func (n FloatLit) Span() span.Span            { return n.Sp }
func (n StringLit) Span() span.Span           { return n.Sp }
func (n BoolLit) Span() span.Span             { return n.Sp }
func (n NilLit) Span() span.Span              { return n.Sp }
func (n BinaryExpr) Span() span.Span          { return n.Sp }
func (n UnaryExpr) Span() span.Span           { return n.Sp }
func (n CallExpr) Span() span.Span            { return n.Sp }
func (n MemberExpr) Span() span.Span          { return n.Sp }
func (n IndexExpr) Span() span.Span           { return n.Sp }
func (n IfExpr) Span() span.Span              { return n.Sp }
func (n MatchExpr) Span() span.Span           { return n.Sp }
func (n Block) Span() span.Span               { return n.Sp }
func (n ArrayExpr) Span() span.Span           { return n.Sp }
func (n ObjectExpr) Span() span.Span          { return n.Sp }
func (n ArrowExpr) Span() span.Span           { return n.Sp }
func (n PipeExpr) Span() span.Span            { return n.Sp }
func (n OptionalChainExpr) Span() span.Span   { return n.Sp }
func (n NullishCoalesceExpr) Span() span.Span { return n.Sp }
func (n AwaitExpr) Span() span.Span           { return n.Sp }
func (n ErrorPropagateExpr) Span() span.Span  { return n.Sp }
func (n AssignExpr) Span() span.Span          { return n.Sp }
func (n TemplateStringExpr) Span() span.Span  { return n.Sp }
func (n Placeholder) Span() span.Span         { return n.Sp }

// ---- Types --------------------------------------------------------------

type TypeExpr interface {
	typeExprNode()
	Span() span.Span
}

type NamedType struct {
	Name string
	Sp   span.Span
}

type ArrayType struct {
	Elem TypeExpr
	Sp   span.Span
}

type MapType struct {
	Key   TypeExpr
	Value TypeExpr
	Sp    span.Span
}

type NullableType struct {
	Inner TypeExpr
	Sp    span.Span
}

type UnionType struct {
	A  TypeExpr
	B  TypeExpr
	Sp span.Span
}

type FunctionType struct {
	Params []TypeExpr
	Ret    TypeExpr
	Sp     span.Span
}

type TypeField struct {
	Name string
	Type TypeExpr
	Sp   span.Span
}

type ObjectType struct {
	Fields []TypeField
	Sp     span.Span
}

type PromiseType struct {
	Inner TypeExpr
	Sp    span.Span
}

func (NamedType) typeExprNode()    {}
func (ArrayType) typeExprNode()    {}
func (MapType) typeExprNode()      {}
func (NullableType) typeExprNode() {}
func (UnionType) typeExprNode()    {}
func (FunctionType) typeExprNode() {}
func (ObjectType) typeExprNode()   {}
func (PromiseType) typeExprNode()  {}

func (n NamedType) Span() span.Span    { return n.Sp }
func (n ArrayType) Span() span.Span    { return n.Sp }
func (n MapType) Span() span.Span      { return n.Sp }
func (n NullableType) Span() span.Span { return n.Sp }
func (n UnionType) Span() span.Span    { return n.Sp }
func (n FunctionType) Span() span.Span { return n.Sp }
func (n ObjectType) Span() span.Span   { return n.Sp }
func (n PromiseType) Span() span.Span  { return n.Sp }

// ---- Patterns -----------------------------------------------------------

type Pattern interface {
	patternNode()
	Span() span.Span
}

type LiteralPattern struct {
	Value Expr // one of IntLit/FloatLit/StringLit/BoolLit/NilLit
	Sp    span.Span
}

type IdentPattern struct {
	Name string
	Sp   span.Span
}

type StructPattern struct {
	Fields []string
	Sp     span.Span
}

type EnumPattern struct {
	EnumName string
	Variant  string
	Bindings []string
	Sp       span.Span
}

type WildcardPattern struct {
	Sp span.Span
}

type RangePattern struct {
	From Expr
	To   Expr
	Sp   span.Span
}

func (LiteralPattern) patternNode() {}
func (IdentPattern) patternNode()   {}
func (StructPattern) patternNode()  {}
func (EnumPattern) patternNode()    {}
func (WildcardPattern) patternNode() {}
func (RangePattern) patternNode()   {}

func (n LiteralPattern) Span() span.Span  { return n.Sp }
func (n IdentPattern) Span() span.Span    { return n.Sp }
func (n StructPattern) Span() span.Span   { return n.Sp }
func (n EnumPattern) Span() span.Span     { return n.Sp }
func (n WildcardPattern) Span() span.Span { return n.Sp }
func (n RangePattern) Span() span.Span    { return n.Sp }
