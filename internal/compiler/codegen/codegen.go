// Package codegen lowers a checked source AST into a jsast.Program and
// prints it to JavaScript source text. It holds no state across
// compilations: a Generator is built fresh per module, matching the
// single-threaded, synchronous pipeline the rest of the compiler follows.
package codegen

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/agc-lang/agc/internal/compiler/ast"
	"github.com/agc-lang/agc/internal/compiler/diag"
	"github.com/agc-lang/agc/internal/compiler/dsl"
	"github.com/agc-lang/agc/internal/compiler/jsast"
)

// externBinding is what import synthesis needs for one annotated extern
// declaration: the source-language name it was declared under and where it
// resolves to in the host module graph.
type externBinding struct {
	modulePath string
	jsName     string // "" means "same name as the source identifier"
}

// Generator lowers one module. Build a fresh one per compilation.
type Generator struct {
	diags    *diag.Bag
	registry *dsl.Registry

	// EnumFieldNames lets match-arm codegen map an enum pattern's positional
	// bindings onto the variant's declared field names, the same table the
	// checker built during registration.
	EnumFieldNames map[string]map[string][]string

	externs map[string]externBinding

	// matchDepth / propagateDepth track nesting so only a *nested*
	// match/error-propagate needs a collision-resistant temp name; the
	// common unnested case keeps the plain, readable name.
	matchDepth     int
	propagateDepth int
}

// New builds a Generator. enumFieldNames is the checker's registration-time
// table (nil is fine - enum patterns then bind positional properties
// `field0`, `field1`, ... instead of the declared field names).
func New(registry *dsl.Registry, enumFieldNames map[string]map[string][]string) *Generator {
	return &Generator{
		diags:          diag.NewBag(),
		registry:       registry,
		EnumFieldNames: enumFieldNames,
		externs:        map[string]externBinding{},
	}
}

// Generate lowers mod to a jsast.Program. It may run over type-incorrect
// input and still produce a well-formed JS AST; the driver calls it
// regardless and suppresses emission afterwards when any stage reported
// errors.
func (g *Generator) Generate(mod *ast.Module) (*jsast.Program, *diag.Bag) {
	g.registerExterns(mod)
	referenced := g.referencedNames(mod)

	prog := &jsast.Program{}
	prog.Stmts = append(prog.Stmts, g.synthesizeImports(referenced)...)

	for _, item := range mod.Items {
		prog.Stmts = append(prog.Stmts, g.lowerItem(item)...)
	}
	return prog, g.diags
}

// --- import synthesis ---------------------------------------------------

func (g *Generator) registerExterns(mod *ast.Module) {
	for _, item := range mod.Items {
		switch n := item.(type) {
		case ast.ExternFnDecl:
			if n.Annotation != nil {
				g.externs[n.Name] = externBinding{modulePath: n.Annotation.Module, jsName: n.Annotation.JsName}
			}
		case ast.ExternStructDecl:
			if n.Annotation != nil {
				g.externs[n.Name] = externBinding{modulePath: n.Annotation.Module, jsName: n.Annotation.JsName}
			}
		case ast.ExternTypeDecl:
			if n.Annotation != nil {
				g.externs[n.Name] = externBinding{modulePath: n.Annotation.Module, jsName: n.Annotation.JsName}
			}
		}
	}
}

// referencedNames walks every item's expression/statement graph and
// collects every identifier mentioned, so import synthesis can skip
// annotated externs nothing in the module actually uses.
func (g *Generator) referencedNames(mod *ast.Module) map[string]bool {
	seen := map[string]bool{}
	var walkExpr func(e ast.Expr)
	var walkStmt func(s ast.Stmt)
	var walkBlock func(b *ast.Block)

	walkBlock = func(b *ast.Block) {
		if b == nil {
			return
		}
		for _, s := range b.Stmts {
			walkStmt(s)
		}
		if b.TailExpr != nil {
			walkExpr(b.TailExpr)
		}
	}

	walkStmt = func(s ast.Stmt) {
		switch n := s.(type) {
		case ast.VarDeclStmt:
			if n.Decl.Init != nil {
				walkExpr(n.Decl.Init)
			}
		case ast.ExprStmt:
			walkExpr(n.Expr)
		case ast.ReturnStmt:
			if n.Value != nil {
				walkExpr(n.Value)
			}
		case ast.ForStmt:
			walkExpr(n.Iter)
			walkBlock(n.Body)
		case ast.WhileStmt:
			walkExpr(n.Condition)
			walkBlock(n.Body)
		case ast.TryCatchStmt:
			walkBlock(n.TryBlock)
			walkBlock(n.CatchBlock)
		case ast.IfStmt:
			walkExpr(&n.Expr)
		case ast.MatchStmt:
			walkExpr(n.Expr)
		}
	}

	walkExpr = func(e ast.Expr) {
		if e == nil {
			return
		}
		switch n := e.(type) {
		case *ast.IfExpr:
			walkExpr(n.Condition)
			walkBlock(n.Then)
			switch eb := n.ElseBranch.(type) {
			case ast.ElseBlock:
				walkBlock(eb.Block)
			case ast.ElseIf:
				walkExpr(eb.If)
			}
		case ast.Ident:
			seen[n.Name] = true
		case ast.BinaryExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case ast.UnaryExpr:
			walkExpr(n.Operand)
		case ast.CallExpr:
			walkExpr(n.Callee)
			for _, a := range n.Args {
				walkExpr(a)
			}
		case ast.MemberExpr:
			walkExpr(n.Object)
		case ast.IndexExpr:
			walkExpr(n.Object)
			walkExpr(n.Index)
		case ast.IfExpr:
			walkExpr(n.Condition)
			walkBlock(n.Then)
			switch eb := n.ElseBranch.(type) {
			case ast.ElseBlock:
				walkBlock(eb.Block)
			case ast.ElseIf:
				walkExpr(eb.If)
			}
		case ast.MatchExpr:
			walkExpr(n.Subject)
			for _, arm := range n.Arms {
				if arm.Guard != nil {
					walkExpr(arm.Guard)
				}
				walkExpr(arm.Body)
			}
		case *ast.Block:
			walkBlock(n)
		case ast.Block:
			walkBlock(&n)
		case ast.ArrayExpr:
			for _, el := range n.Elements {
				walkExpr(el)
			}
		case ast.ObjectExpr:
			for _, f := range n.Fields {
				walkExpr(f.Value)
			}
		case ast.ArrowExpr:
			switch b := n.Body.(type) {
			case ast.ArrowExprBody:
				walkExpr(b.Expr)
			case ast.ArrowBlockBody:
				walkBlock(b.Block)
			}
		case ast.PipeExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case ast.OptionalChainExpr:
			walkExpr(n.Object)
		case ast.NullishCoalesceExpr:
			walkExpr(n.Left)
			walkExpr(n.Right)
		case ast.AwaitExpr:
			walkExpr(n.Expr)
		case ast.ErrorPropagateExpr:
			walkExpr(n.Expr)
		case ast.AssignExpr:
			walkExpr(n.Target)
			walkExpr(n.Value)
		case ast.TemplateStringExpr:
			for _, p := range n.Parts {
				if tp, ok := p.(ast.TemplateExprPart); ok {
					walkExpr(tp.Expr)
				}
			}
		}
	}

	for _, item := range mod.Items {
		switch n := item.(type) {
		case ast.VarDecl:
			if n.Init != nil {
				walkExpr(n.Init)
			}
		case ast.FnDecl:
			walkBlock(n.Body)
		case ast.ExprStmtItem:
			walkExpr(n.Expr)
		case ast.StmtItem:
			walkStmt(n.Stmt)
		case ast.DslBlock:
			if inline, ok := n.Content.(ast.DslInline); ok {
				for _, part := range inline.Parts {
					if cap, ok := part.(ast.DslCapture); ok {
						walkExpr(cap.Expr)
					}
				}
			}
		}
	}
	return seen
}

// synthesizeImports emits one merged named import per distinct module path
// among referenced, annotated externs - unreferenced or unannotated externs
// contribute nothing.
func (g *Generator) synthesizeImports(referenced map[string]bool) []jsast.Stmt {
	byModule := map[string]map[string]string{} // module -> local name -> imported name
	order := []string{}
	for name, binding := range g.externs {
		if !referenced[name] {
			continue
		}
		if _, ok := byModule[binding.modulePath]; !ok {
			byModule[binding.modulePath] = map[string]string{}
			order = append(order, binding.modulePath)
		}
		imported := binding.jsName
		if imported == "" {
			imported = name
		}
		byModule[binding.modulePath][name] = imported
	}
	order = lo.Uniq(order)
	stmts := make([]jsast.Stmt, 0, len(order))
	for _, modPath := range order {
		stmts = append(stmts, jsast.SImport{Named: byModule[modPath], From: modPath})
	}
	return stmts
}

// --- item lowering --------------------------------------------------------

func (g *Generator) lowerItem(item ast.Item) []jsast.Stmt {
	switch n := item.(type) {
	case ast.VarDecl:
		return []jsast.Stmt{g.lowerVarDecl(n)}
	case ast.FnDecl:
		return []jsast.Stmt{g.lowerFnDecl(n)}
	case ast.StructDecl, ast.EnumDecl, ast.TypeAlias:
		return nil // erased
	case ast.ExternFnDecl, ast.ExternStructDecl, ast.ExternTypeDecl:
		return nil // erased except via import synthesis, handled separately
	case ast.Import:
		return []jsast.Stmt{g.lowerImport(n)}
	case ast.ExprStmtItem:
		return []jsast.Stmt{jsast.SExpr{Expr: g.lowerExpr(n.Expr)}}
	case ast.StmtItem:
		return g.lowerStmt(n.Stmt)
	case ast.DslBlock:
		return g.lowerDslBlock(n)
	}
	return nil
}

func (g *Generator) lowerVarDecl(n ast.VarDecl) jsast.Stmt {
	kind := jsast.VarConst
	if n.Kind == ast.KindMut {
		kind = jsast.VarLet
	}
	var init jsast.Expr
	if n.Init != nil {
		init = g.lowerExpr(n.Init)
	}
	return jsast.SVarDecl{Kind: kind, Name: n.Name, Init: init}
}

func (g *Generator) lowerFnDecl(n ast.FnDecl) jsast.Stmt {
	return jsast.SFunctionDecl{
		Name:    n.Name,
		Params:  paramNames(n.Params),
		Body:    g.lowerBlockAsFnBody(n.Body),
		IsAsync: n.IsAsync,
	}
}

func paramNames(params []ast.Param) []string {
	return lo.Map(params, func(p ast.Param, _ int) string { return p.Name })
}

func (g *Generator) lowerImport(n ast.Import) jsast.Stmt {
	named := map[string]string{}
	for _, nm := range n.Names {
		local := nm.Name
		if nm.Alias != "" {
			local = nm.Alias
		}
		named[local] = nm.Name
	}
	return jsast.SImport{Named: named, Star: n.Namespace, From: n.Path}
}

// --- statement lowering ----------------------------------------------------

// lowerBlockAsFnBody lowers a function/arrow body: its statements translate
// one-for-one, and a tail expression becomes an implicit `return`.
func (g *Generator) lowerBlockAsFnBody(b *ast.Block) []jsast.Stmt {
	stmts := make([]jsast.Stmt, 0, len(b.Stmts)+1)
	for _, s := range b.Stmts {
		stmts = append(stmts, g.lowerStmt(s)...)
	}
	if b.TailExpr != nil {
		stmts = append(stmts, jsast.SReturn{Value: g.lowerExpr(b.TailExpr)})
	}
	return stmts
}

// lowerBlockDiscardingTail lowers a block used in a non-value-producing
// statement position (for/while bodies): a tail expression, if present, is
// just evaluated for its side effects rather than returned.
func (g *Generator) lowerBlockDiscardingTail(b *ast.Block) []jsast.Stmt {
	stmts := make([]jsast.Stmt, 0, len(b.Stmts)+1)
	for _, s := range b.Stmts {
		stmts = append(stmts, g.lowerStmt(s)...)
	}
	if b.TailExpr != nil {
		stmts = append(stmts, jsast.SExpr{Expr: g.lowerExpr(b.TailExpr)})
	}
	return stmts
}

func (g *Generator) lowerStmt(s ast.Stmt) []jsast.Stmt {
	switch n := s.(type) {
	case ast.VarDeclStmt:
		return []jsast.Stmt{g.lowerVarDecl(n.Decl)}
	case ast.ExprStmt:
		return []jsast.Stmt{jsast.SExpr{Expr: g.lowerExpr(n.Expr)}}
	case ast.ReturnStmt:
		if n.Value == nil {
			return []jsast.Stmt{jsast.SReturn{}}
		}
		return []jsast.Stmt{jsast.SReturn{Value: g.lowerExpr(n.Value)}}
	case ast.ForStmt:
		return []jsast.Stmt{jsast.SFor{
			Binding: n.Binding,
			Iter:    g.lowerExpr(n.Iter),
			Body:    g.lowerBlockDiscardingTail(n.Body),
		}}
	case ast.WhileStmt:
		return []jsast.Stmt{jsast.SWhile{
			Test: g.lowerExpr(n.Condition),
			Body: g.lowerBlockDiscardingTail(n.Body),
		}}
	case ast.TryCatchStmt:
		return []jsast.Stmt{jsast.STry{
			Block:        g.lowerBlockDiscardingTail(n.TryBlock),
			CatchBinding: n.CatchBinding,
			CatchBlock:   g.lowerBlockDiscardingTail(n.CatchBlock),
		}}
	case ast.IfStmt:
		return []jsast.Stmt{g.lowerIfAsStmt(&n.Expr)}
	case ast.MatchStmt:
		return []jsast.Stmt{jsast.SExpr{Expr: g.lowerMatch(n.Expr)}}
	}
	return nil
}

// lowerIfAsStmt lowers an `if` used in statement position (not as a value)
// to a plain JS if/else rather than the conditional-expression or IIFE
// forms used when the if is itself a value.
func (g *Generator) lowerIfAsStmt(n *ast.IfExpr) jsast.Stmt {
	yes := g.lowerBlockDiscardingTail(n.Then)
	var no []jsast.Stmt
	switch eb := n.ElseBranch.(type) {
	case ast.ElseBlock:
		no = g.lowerBlockDiscardingTail(eb.Block)
	case ast.ElseIf:
		no = []jsast.Stmt{g.lowerIfAsStmt(eb.If)}
	}
	return jsast.SIf{Test: g.lowerExpr(n.Condition), Yes: yes, No: no}
}

// --- expression lowering ----------------------------------------------------

var binOpMap = map[ast.BinaryOp]jsast.BinOp{
	ast.OpAdd: jsast.BinAdd,
	ast.OpSub: jsast.BinSub,
	ast.OpMul: jsast.BinMul,
	ast.OpDiv: jsast.BinDiv,
	ast.OpMod: jsast.BinRem,
	ast.OpPow: jsast.BinPow,
	ast.OpEq:  jsast.BinEqStrict,
	ast.OpNe:  jsast.BinNeStrict,
	ast.OpLt:  jsast.BinLt,
	ast.OpGt:  jsast.BinGt,
	ast.OpLe:  jsast.BinLe,
	ast.OpGe:  jsast.BinGe,
	ast.OpAnd: jsast.BinLogicalAnd,
	ast.OpOr:  jsast.BinLogicalOr,
}

func (g *Generator) lowerExpr(e ast.Expr) jsast.Expr {
	switch n := e.(type) {
	case ast.Ident:
		return jsast.EIdentifier{Name: n.Name}
	case ast.IntLit:
		return jsast.ENumber{Value: float64(n.Value)}
	case ast.FloatLit:
		return jsast.ENumber{Value: n.Value}
	case ast.StringLit:
		return jsast.EString{Value: n.Value}
	case ast.BoolLit:
		return jsast.EBool{Value: n.Value}
	case ast.NilLit:
		return jsast.ENull{}
	case ast.BinaryExpr:
		return jsast.EBinary{Op: binOpMap[n.Op], Left: g.lowerExpr(n.Left), Right: g.lowerExpr(n.Right)}
	case ast.UnaryExpr:
		op := jsast.UnNeg
		if n.Op == ast.OpNot {
			op = jsast.UnNot
		}
		return jsast.EUnary{Op: op, Arg: g.lowerExpr(n.Operand)}
	case ast.CallExpr:
		return jsast.ECall{Callee: g.lowerExpr(n.Callee), Args: lowerExprs(g, n.Args)}
	case ast.MemberExpr:
		return jsast.EMember{Object: g.lowerExpr(n.Object), Property: n.Field}
	case ast.IndexExpr:
		return jsast.EIndex{Object: g.lowerExpr(n.Object), Index: g.lowerExpr(n.Index)}
	case *ast.IfExpr:
		return g.lowerIfAsExpr(n)
	case ast.ArrayExpr:
		return jsast.EArray{Items: lowerExprs(g, n.Elements)}
	case ast.ObjectExpr:
		props := make([]jsast.EObjectProperty, 0, len(n.Fields))
		for _, f := range n.Fields {
			props = append(props, jsast.EObjectProperty{Key: f.Key, Value: g.lowerExpr(f.Value)})
		}
		return jsast.EObject{Properties: props}
	case ast.ArrowExpr:
		return g.lowerArrow(n)
	case ast.PipeExpr:
		return g.lowerPipe(n)
	case ast.OptionalChainExpr:
		return jsast.EMember{Object: g.lowerExpr(n.Object), Property: n.Field, Optional: true}
	case ast.NullishCoalesceExpr:
		return jsast.EBinary{Op: jsast.BinNullishCoalescing, Left: g.lowerExpr(n.Left), Right: g.lowerExpr(n.Right)}
	case ast.AwaitExpr:
		return jsast.EAwait{Arg: g.lowerExpr(n.Expr)}
	case ast.ErrorPropagateExpr:
		return g.lowerErrorPropagate(n)
	case ast.AssignExpr:
		return jsast.EAssign{Op: assignOpText(n.Op), Target: g.lowerExpr(n.Target), Value: g.lowerExpr(n.Value)}
	case ast.TemplateStringExpr:
		return g.lowerTemplate(n)
	case ast.MatchExpr:
		return g.lowerMatch(n)
	case *ast.Block:
		return g.lowerBlockAsExpr(n)
	case ast.Block:
		return g.lowerBlockAsExpr(&n)
	case ast.Placeholder:
		// Only ever reached when a placeholder survives outside a pipe's
		// argument list (a checker-caught error); emit a clearly-broken
		// marker rather than silently dropping it.
		return jsast.ERaw{Code: "/* unresolved pipe placeholder */ undefined"}
	}
	g.diags.AddError(e.Span(), "codegen: unhandled expression %T", e)
	return jsast.EUndefined{}
}

func lowerExprs(g *Generator, exprs []ast.Expr) []jsast.Expr {
	return lo.Map(exprs, func(e ast.Expr, _ int) jsast.Expr { return g.lowerExpr(e) })
}

func assignOpText(op ast.AssignOp) string {
	switch op {
	case ast.AssignAdd:
		return "+="
	case ast.AssignSub:
		return "-="
	case ast.AssignMul:
		return "*="
	case ast.AssignDiv:
		return "/="
	default:
		return "="
	}
}

func (g *Generator) lowerTemplate(n ast.TemplateStringExpr) jsast.Expr {
	quasis := []string{""}
	exprs := []jsast.Expr{}
	for _, part := range n.Parts {
		switch p := part.(type) {
		case ast.TemplateString:
			quasis[len(quasis)-1] += p.Str
		case ast.TemplateExprPart:
			exprs = append(exprs, g.lowerExpr(p.Expr))
			quasis = append(quasis, "")
		}
	}
	return jsast.ETemplate{Quasis: quasis, Exprs: exprs}
}

func (g *Generator) lowerArrow(n ast.ArrowExpr) jsast.Expr {
	arrow := jsast.EArrow{Params: paramNames(n.Params), IsAsync: n.IsAsync}
	switch body := n.Body.(type) {
	case ast.ArrowExprBody:
		arrow.Expr = g.lowerExpr(body.Expr)
	case ast.ArrowBlockBody:
		arrow.Body = g.lowerBlockAsFnBody(body.Block)
	}
	return arrow
}

// lowerPipe lowers `a |> f` to `f(a)` and `a |> f(x, _)` to `f(x, a)`: any
// placeholder argument receives the piped left-hand value; absent a
// placeholder the value is prepended as the sole/first argument.
func (g *Generator) lowerPipe(n ast.PipeExpr) jsast.Expr {
	left := g.lowerExpr(n.Left)
	call, ok := n.Right.(ast.CallExpr)
	if !ok {
		// `a |> f` with no call syntax at all: treat f as the callee directly.
		return jsast.ECall{Callee: g.lowerExpr(n.Right), Args: []jsast.Expr{left}}
	}
	args := make([]jsast.Expr, len(call.Args))
	placeholderSeen := false
	for i, a := range call.Args {
		if _, isPlaceholder := a.(ast.Placeholder); isPlaceholder {
			args[i] = left
			placeholderSeen = true
			continue
		}
		args[i] = g.lowerExpr(a)
	}
	if !placeholderSeen {
		args = append([]jsast.Expr{left}, args...)
	}
	return jsast.ECall{Callee: g.lowerExpr(call.Callee), Args: args}
}

// lowerIfAsExpr lowers an if-expression used as a value: both branches ->
// conditional expression; else-less -> IIFE wrapping an if-statement.
func (g *Generator) lowerIfAsExpr(n *ast.IfExpr) jsast.Expr {
	if n.ElseBranch == nil {
		body := []jsast.Stmt{jsast.SIf{
			Test: g.lowerExpr(n.Condition),
			Yes:  g.lowerBlockAsFnBody(n.Then),
		}}
		return jsast.EIIFE{Body: body}
	}
	yes := g.blockAsConditionalOperand(n.Then)
	var no jsast.Expr
	switch eb := n.ElseBranch.(type) {
	case ast.ElseBlock:
		no = g.blockAsConditionalOperand(eb.Block)
	case ast.ElseIf:
		no = g.lowerIfAsExpr(eb.If)
	}
	return jsast.EConditional{Test: g.lowerExpr(n.Condition), Yes: yes, No: no}
}

// blockAsConditionalOperand lowers a branch of a both-armed `if` used as a
// value: a block with no statements collapses to its tail expression
// directly, avoiding a needless IIFE for the common single-expression case.
func (g *Generator) blockAsConditionalOperand(b *ast.Block) jsast.Expr {
	if len(b.Stmts) == 0 && b.TailExpr != nil {
		return g.lowerExpr(b.TailExpr)
	}
	return jsast.EIIFE{Body: g.lowerBlockAsFnBody(b)}
}

// lowerBlockAsExpr lowers a bare block used as a value.
func (g *Generator) lowerBlockAsExpr(b *ast.Block) jsast.Expr {
	if len(b.Stmts) == 0 && b.TailExpr != nil {
		return g.lowerExpr(b.TailExpr)
	}
	return jsast.EIIFE{Body: g.lowerBlockAsFnBody(b)}
}

// lowerErrorPropagate lowers `e?`: evaluate e once, bind it to a temporary,
// return it from an `instanceof Error` branch, and otherwise return it
// after that branch. Both paths yield the same value from the IIFE; the
// Error-vs-not distinction is left to what the enclosing code does with
// the result.
func (g *Generator) lowerErrorPropagate(n ast.ErrorPropagateExpr) jsast.Expr {
	tmp := g.nextTempName("_tmp", &g.propagateDepth)
	g.propagateDepth++
	inner := g.lowerExpr(n.Expr)
	g.propagateDepth--
	body := []jsast.Stmt{
		jsast.SVarDecl{Kind: jsast.VarConst, Name: tmp, Init: inner},
		jsast.SIf{
			Test: jsast.EBinary{
				Op:   jsast.BinInstanceof,
				Left: jsast.EIdentifier{Name: tmp},
				Right: jsast.EIdentifier{Name: "Error"},
			},
			Yes: []jsast.Stmt{jsast.SReturn{Value: jsast.EIdentifier{Name: tmp}}},
		},
		jsast.SReturn{Value: jsast.EIdentifier{Name: tmp}},
	}
	return jsast.EIIFE{Body: body}
}

// nextTempName returns a stable, readable name for the common unnested
// case and a collision-resistant one (uuid-suffixed) once depth indicates
// this construct is nested inside another instance of itself.
func (g *Generator) nextTempName(base string, depth *int) string {
	if *depth == 0 {
		return base
	}
	return fmt.Sprintf("%s_%s", base, uuid.New().String()[:8])
}

// --- match lowering ----------------------------------------------------

// lowerMatch lowers a match expression to an IIFE: the subject is bound to
// a fresh constant, then each arm becomes a chained if/else testing the
// arm's pattern condition and binding the arm's pattern variables before
// returning the arm body.
func (g *Generator) lowerMatch(n ast.MatchExpr) jsast.Expr {
	subj := g.nextTempName("_match", &g.matchDepth)
	g.matchDepth++
	subject := g.lowerExpr(n.Subject)

	var chain []jsast.Stmt
	// Build from the last arm backward so each arm's else-branch is the
	// chain built so far.
	var tail []jsast.Stmt
	for i := len(n.Arms) - 1; i >= 0; i-- {
		arm := n.Arms[i]
		cond, bindings := g.lowerPattern(arm.Pattern, subj)
		armBody := append([]jsast.Stmt{}, bindings...)
		armBody = append(armBody, jsast.SReturn{Value: g.lowerExpr(arm.Body)})

		if arm.Guard != nil {
			guardCond := g.lowerExpr(arm.Guard)
			if cond == nil {
				cond = guardCond
			} else {
				cond = jsast.EBinary{Op: jsast.BinLogicalAnd, Left: cond, Right: guardCond}
			}
		}

		if cond == nil {
			// Irrefutable pattern (identifier/wildcard without a guard):
			// every later arm is unreachable past it, so it replaces the
			// chain built so far and terminates it outright.
			tail = armBody
			continue
		}
		tail = []jsast.Stmt{jsast.SIf{Test: cond, Yes: armBody, No: tail}}
	}
	chain = tail

	g.matchDepth--
	body := []jsast.Stmt{jsast.SVarDecl{Kind: jsast.VarConst, Name: subj, Init: subject}}
	body = append(body, chain...)
	return jsast.EIIFE{Body: body}
}

// lowerPattern returns the arm's test condition (nil for an irrefutable
// pattern) plus the statements that bind the pattern's names from subj.
func (g *Generator) lowerPattern(p ast.Pattern, subj string) (jsast.Expr, []jsast.Stmt) {
	subjIdent := jsast.EIdentifier{Name: subj}
	switch n := p.(type) {
	case ast.LiteralPattern:
		return jsast.EBinary{Op: jsast.BinEqStrict, Left: subjIdent, Right: g.lowerExpr(n.Value)}, nil
	case ast.WildcardPattern:
		return nil, nil
	case ast.IdentPattern:
		return nil, []jsast.Stmt{jsast.SVarDecl{Kind: jsast.VarConst, Name: n.Name, Init: subjIdent}}
	case ast.RangePattern:
		cond := jsast.EBinary{
			Op:   jsast.BinLogicalAnd,
			Left: jsast.EBinary{Op: jsast.BinGe, Left: subjIdent, Right: g.lowerExpr(n.From)},
			Right: jsast.EBinary{Op: jsast.BinLe, Left: subjIdent, Right: g.lowerExpr(n.To)},
		}
		return cond, nil
	case ast.StructPattern:
		binds := make([]jsast.Stmt, 0, len(n.Fields))
		for _, f := range n.Fields {
			binds = append(binds, jsast.SVarDecl{Kind: jsast.VarConst, Name: f, Init: jsast.EMember{Object: subjIdent, Property: f}})
		}
		return nil, binds
	case ast.EnumPattern:
		cond := jsast.EBinary{
			Op:   jsast.BinEqStrict,
			Left: jsast.EMember{Object: subjIdent, Property: "tag"},
			Right: jsast.EString{Value: n.Variant},
		}
		fieldNames := g.variantFieldNames(n.EnumName, n.Variant, len(n.Bindings))
		binds := make([]jsast.Stmt, 0, len(n.Bindings))
		for i, b := range n.Bindings {
			binds = append(binds, jsast.SVarDecl{Kind: jsast.VarConst, Name: b, Init: jsast.EMember{Object: subjIdent, Property: fieldNames[i]}})
		}
		return cond, binds
	}
	return nil, nil
}

// variantFieldNames maps an enum pattern's positional bindings onto the
// variant's declared field names (falling back to positional "field0",
// "field1", ... names when the checker's table has nothing for this
// enum/variant, e.g. when codegen runs on a module the checker rejected).
func (g *Generator) variantFieldNames(enumName, variant string, n int) []string {
	if g.EnumFieldNames != nil {
		if variants, ok := g.EnumFieldNames[enumName]; ok {
			if fields, ok := variants[variant]; ok && len(fields) >= n {
				return fields
			}
		}
	}
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("field%d", i)
	}
	return names
}

// --- DSL dispatch -----------------------------------------------------------

type ctx struct{ g *Generator }

func (c ctx) Translate(cap dsl.Capture) jsast.Expr {
	e, ok := cap.Raw().(ast.Expr)
	if !ok {
		return jsast.EUndefined{}
	}
	return c.g.lowerExpr(e)
}

func (g *Generator) lowerDslBlock(n ast.DslBlock) []jsast.Stmt {
	handler, ok := g.registry.Lookup(n.Kind)
	if !ok {
		g.diags.AddError(n.Sp, "%s", dsl.ErrUnknownKind(n.Kind, n.Name.Name).Error())
		return nil
	}
	block := g.toNeutralBlock(n)
	stmts, err := handler.Handle(block, ctx{g: g})
	if err != nil {
		g.diags.AddError(n.Sp, "DSL %q: %s", n.Kind, err.Error())
		return nil
	}
	return stmts
}

func (g *Generator) toNeutralBlock(n ast.DslBlock) dsl.Block {
	block := dsl.Block{Kind: n.Kind, Name: n.Name.Name, Span: n.Sp}
	switch content := n.Content.(type) {
	case ast.DslFileRef:
		block.FileRef = content.Path
	case ast.DslInline:
		for _, part := range content.Parts {
			switch p := part.(type) {
			case ast.DslText:
				block.Parts = append(block.Parts, dsl.Part{Kind: dsl.PartText, Text: p.Text})
			case ast.DslCapture:
				block.Parts = append(block.Parts, dsl.Part{Kind: dsl.PartCapture, Capture: dsl.NewCapture(p.Expr)})
			}
		}
	}
	return block
}
