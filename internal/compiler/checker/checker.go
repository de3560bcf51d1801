// Package checker implements the two-pass, scoped type checker: pass one
// registers every module-level declaration (so forward references and
// mutual recursion between functions work), pass two walks each
// declaration's body against the scope chain, producing diagnostics
// without ever aborting the walk early.
package checker

import (
	"fmt"

	"github.com/agc-lang/agc/internal/compiler/ast"
	"github.com/agc-lang/agc/internal/compiler/diag"
	"github.com/agc-lang/agc/internal/compiler/types"
)

type Checker struct {
	mod   *ast.Module
	diags *diag.Bag

	structs map[string]*types.Type
	enums   map[string]*types.Type
	aliases map[string]*types.Type
	fns     map[string]*types.Type
	externs map[string]*types.Type

	// EnumFieldNames remembers each enum variant's declared field names so
	// match-arm positional bindings can be mapped onto them by name, not
	// by binding position (codegen's variantFieldNames reads this table).
	EnumFieldNames map[string]map[string][]string

	// currentReturnType is the unwrapped (non-Promise) return type of the
	// function body currently being checked, consulted by `ret` statements.
	currentReturnType *types.Type
}

// Result is everything downstream (codegen) needs: the diagnostics plus the
// resolved registries, keyed by name.
type Result struct {
	Diags          *diag.Bag
	Structs        map[string]*types.Type
	Enums          map[string]*types.Type
	Aliases        map[string]*types.Type
	Functions      map[string]*types.Type
	Externs        map[string]*types.Type
	EnumFieldNames map[string]map[string][]string
}

func New(mod *ast.Module) *Checker {
	return &Checker{
		mod:            mod,
		diags:          diag.NewBag(),
		structs:        map[string]*types.Type{},
		enums:          map[string]*types.Type{},
		aliases:        map[string]*types.Type{},
		fns:            map[string]*types.Type{},
		externs:        map[string]*types.Type{},
		EnumFieldNames: map[string]map[string][]string{},
	}
}

func Check(mod *ast.Module) *Result {
	c := New(mod)
	c.registerPass()
	c.checkPass()
	return &Result{
		Diags:          c.diags,
		Structs:        c.structs,
		Enums:          c.enums,
		Aliases:        c.aliases,
		Functions:      c.fns,
		Externs:        c.externs,
		EnumFieldNames: c.EnumFieldNames,
	}
}

// ---- Pass 1: registration -------------------------------------------------

func (c *Checker) registerPass() {
	for _, item := range c.mod.Items {
		switch n := item.(type) {
		case ast.StructDecl:
			c.registerStruct(n)
		case ast.EnumDecl:
			c.registerEnum(n)
		case ast.TypeAlias:
			// Resolved lazily below once structs/enums exist.
		}
	}
	for _, item := range c.mod.Items {
		if alias, ok := item.(ast.TypeAlias); ok {
			c.aliases[alias.Name] = c.resolveTypeExpr(alias.Type)
		}
	}
	for _, item := range c.mod.Items {
		switch n := item.(type) {
		case ast.FnDecl:
			c.fns[n.Name] = c.fnSignature(n.Params, n.ReturnType, n.IsAsync)
		case ast.ExternFnDecl:
			c.externs[n.Name] = c.fnSignature(n.Params, n.ReturnType, false)
		case ast.ExternStructDecl:
			fields := map[string]*types.Type{}
			var order []string
			for _, f := range n.Fields {
				fields[f.Name] = c.resolveTypeExpr(f.Type)
				order = append(order, f.Name)
			}
			c.structs[n.Name] = types.NewStruct(n.Name, order, fields)
			for _, m := range n.Methods {
				c.externs[n.Name+"."+m.Name] = c.fnSignature(m.Params, m.ReturnType, false)
			}
		case ast.ExternTypeDecl:
			c.aliases[n.Name] = types.TAny
		case ast.Import:
			// Cross-module type information isn't resolved by this
			// checker; imported bindings check as `any` (see checkPass).
		}
	}
}

func (c *Checker) registerStruct(n ast.StructDecl) {
	fields := map[string]*types.Type{}
	var order []string
	for _, f := range n.Fields {
		fields[f.Name] = c.resolveTypeExpr(f.Type)
		order = append(order, f.Name)
	}
	c.structs[n.Name] = types.NewStruct(n.Name, order, fields)
}

func (c *Checker) registerEnum(n ast.EnumDecl) {
	variants := map[string][]*types.Type{}
	var vorder []string
	fieldNames := map[string][]string{}
	for _, v := range n.Variants {
		var fts []*types.Type
		var fnames []string
		for _, f := range v.Fields {
			fts = append(fts, c.resolveTypeExpr(f.Type))
			fnames = append(fnames, f.Name)
		}
		variants[v.Name] = fts
		fieldNames[v.Name] = fnames
		vorder = append(vorder, v.Name)
	}
	c.enums[n.Name] = types.NewEnum(n.Name, vorder, variants)
	c.EnumFieldNames[n.Name] = fieldNames
}

func (c *Checker) fnSignature(params []ast.Param, ret ast.TypeExpr, isAsync bool) *types.Type {
	ptypes := make([]*types.Type, 0, len(params))
	variadic := false
	for _, p := range params {
		ptypes = append(ptypes, c.resolveTypeExpr(p.Type))
		if p.IsVariadic {
			variadic = true
		}
	}
	rt := c.resolveTypeExpr(ret)
	if isAsync && rt.Kind != types.Promise {
		rt = types.NewPromise(rt)
	}
	return types.NewFunction(ptypes, rt, variadic)
}

// resolveTypeExpr converts surface type syntax into the checker's internal
// representation. A nil TypeExpr (omitted annotation) resolves to Any so
// the rest of the checker can always dereference the result.
func (c *Checker) resolveTypeExpr(t ast.TypeExpr) *types.Type {
	if t == nil {
		return types.TAny
	}
	switch n := t.(type) {
	case ast.NamedType:
		switch n.Name {
		case "int":
			return types.TInt
		case "float":
			return types.TFloat
		case "string":
			return types.TString
		case "bool":
			return types.TBool
		case "void":
			return types.TVoid
		case "any":
			return types.TAny
		}
		if s, ok := c.structs[n.Name]; ok {
			return s
		}
		if e, ok := c.enums[n.Name]; ok {
			return e
		}
		if a, ok := c.aliases[n.Name]; ok {
			return a
		}
		// Forward reference to a struct/enum registered later in pass 1,
		// or a type genuinely unknown to this module; resolved on demand.
		return &types.Type{Kind: types.Struct, Name: n.Name}
	case ast.ArrayType:
		return types.NewArray(c.resolveTypeExpr(n.Elem))
	case ast.MapType:
		return types.NewMap(c.resolveTypeExpr(n.Key), c.resolveTypeExpr(n.Value))
	case ast.NullableType:
		return types.NewNullable(c.resolveTypeExpr(n.Inner))
	case ast.UnionType:
		return &types.Type{Kind: types.Union, Members: []*types.Type{c.resolveTypeExpr(n.A), c.resolveTypeExpr(n.B)}}
	case ast.FunctionType:
		ps := make([]*types.Type, 0, len(n.Params))
		for _, p := range n.Params {
			ps = append(ps, c.resolveTypeExpr(p))
		}
		return types.NewFunction(ps, c.resolveTypeExpr(n.Ret), false)
	case ast.ObjectType:
		fields := map[string]*types.Type{}
		var order []string
		for _, f := range n.Fields {
			fields[f.Name] = c.resolveTypeExpr(f.Type)
			order = append(order, f.Name)
		}
		return types.NewObject(order, fields)
	case ast.PromiseType:
		return types.NewPromise(c.resolveTypeExpr(n.Inner))
	default:
		return types.TAny
	}
}

// ---- Pass 2: body checking ------------------------------------------------

func (c *Checker) checkPass() {
	root := newScope(nil)
	for name, sig := range c.fns {
		root.define(name, sig)
	}
	for name, sig := range c.externs {
		root.define(name, sig)
	}
	for _, item := range c.mod.Items {
		imp, ok := item.(ast.Import)
		if !ok {
			continue
		}
		if imp.Namespace != "" {
			root.define(imp.Namespace, types.TAny)
		}
		for _, nm := range imp.Names {
			local := nm.Name
			if nm.Alias != "" {
				local = nm.Alias
			}
			root.define(local, types.TAny)
		}
	}

	for _, item := range c.mod.Items {
		switch n := item.(type) {
		case ast.FnDecl:
			c.checkFn(n, root)
		case ast.VarDecl:
			c.checkVarDecl(n, root)
		case ast.ExprStmtItem:
			c.checkExpr(n.Expr, root)
		case ast.StmtItem:
			c.checkStmt(n.Stmt, root)
		case ast.DslBlock:
			c.checkDslBlock(n, root)
		}
	}
}

func (c *Checker) checkFn(n ast.FnDecl, parent *Scope) {
	scope := newScope(parent)
	for _, p := range n.Params {
		scope.define(p.Name, c.resolveTypeExpr(p.Type))
	}
	declared := c.resolveTypeExpr(n.ReturnType)
	expected := declared
	if n.IsAsync && expected.Kind != types.Promise {
		expected = types.NewPromise(expected)
	}

	// The body's tail-expression type is what a caller without an explicit
	// `ret` sees; an async function's body evaluates to T even though the
	// declared/expected type is Promise<T>. Explicit `ret` statements are
	// checked against the same unwrapped T as they execute.
	compareAgainst := expected
	if n.IsAsync {
		compareAgainst = expected.Elem
	}

	prevReturn := c.currentReturnType
	c.currentReturnType = compareAgainst
	bodyType := c.checkBlock(n.Body, scope)
	c.currentReturnType = prevReturn

	if n.Body.TailExpr != nil && compareAgainst.Kind != types.Void && compareAgainst.Kind != types.Any {
		if !types.AssignableTo(bodyType, compareAgainst) {
			c.diags.AddError(n.Body.TailExpr.Span(), "function %q returns %s, expected %s", n.Name, bodyType, compareAgainst)
		}
	}
}

func (c *Checker) checkVarDecl(n ast.VarDecl, scope *Scope) {
	declared := c.resolveTypeExpr(n.Type)
	var actual *types.Type = types.TAny
	if n.Init != nil {
		actual = c.checkExpr(n.Init, scope)
	}
	result := declared
	if n.Type == nil {
		result = actual
	} else if n.Init != nil && !types.AssignableTo(actual, declared) {
		c.diags.AddError(n.Init.Span(), "cannot assign %s to %s %q of type %s", actual, varKindWord(n.Kind), n.Name, declared)
	}
	scope.define(n.Name, result)
}

func varKindWord(k ast.VarKind) string {
	switch k {
	case ast.KindConst:
		return "const"
	case ast.KindMut:
		return "mut binding"
	default:
		return "binding"
	}
}

func (c *Checker) checkBlock(b *ast.Block, parent *Scope) *types.Type {
	scope := newScope(parent)
	for _, s := range b.Stmts {
		c.checkStmt(s, scope)
	}
	if b.TailExpr != nil {
		return c.checkExpr(b.TailExpr, scope)
	}
	return types.TVoid
}

func (c *Checker) checkStmt(s ast.Stmt, scope *Scope) {
	switch n := s.(type) {
	case ast.VarDeclStmt:
		c.checkVarDecl(n.Decl, scope)
	case ast.ExprStmt:
		c.checkExpr(n.Expr, scope)
	case ast.ReturnStmt:
		var valType *types.Type = types.TVoid
		if n.Value != nil {
			valType = c.checkExpr(n.Value, scope)
		}
		if c.currentReturnType != nil && c.currentReturnType.Kind != types.Void && c.currentReturnType.Kind != types.Any {
			if !types.AssignableTo(valType, c.currentReturnType) {
				c.diags.AddError(n.Span(), "ret returns %s, expected %s", valType, c.currentReturnType)
			}
		}
	case ast.ForStmt:
		iterType := c.checkExpr(n.Iter, scope)
		elemType := types.TAny
		if iterType.Kind == types.Array {
			elemType = iterType.Elem
		}
		loopScope := newScope(scope)
		loopScope.define(n.Binding, elemType)
		for _, st := range n.Body.Stmts {
			c.checkStmt(st, loopScope)
		}
		if n.Body.TailExpr != nil {
			c.checkExpr(n.Body.TailExpr, loopScope)
		}
	case ast.WhileStmt:
		c.checkExpr(n.Condition, scope)
		c.checkBlock(n.Body, scope)
	case ast.TryCatchStmt:
		c.checkBlock(n.TryBlock, scope)
		if n.CatchBlock != nil {
			catchScope := newScope(scope)
			if n.CatchBinding != "" {
				catchScope.define(n.CatchBinding, types.TAny)
			}
			for _, st := range n.CatchBlock.Stmts {
				c.checkStmt(st, catchScope)
			}
			if n.CatchBlock.TailExpr != nil {
				c.checkExpr(n.CatchBlock.TailExpr, catchScope)
			}
		}
	case ast.IfStmt:
		c.checkExpr(&n.Expr, scope)
	case ast.MatchStmt:
		c.checkExpr(n.Expr, scope)
	}
}

func (c *Checker) checkDslBlock(n ast.DslBlock, scope *Scope) {
	// DSL bodies are opaque to the core checker (their grammar is owned by
	// the handler registered for n.Kind); only capture expressions are
	// checked here. Handler-local bindings (e.g. a server route's path
	// params) aren't visible at this stage, so a capture that is a bare
	// identifier is not resolved at all. Any other capture expression is
	// checked as an ordinary expression, and an unresolved identifier
	// inside it is reported like anywhere else.
	inline, ok := n.Content.(ast.DslInline)
	if !ok {
		return
	}
	for _, part := range inline.Parts {
		if cap, ok := part.(ast.DslCapture); ok {
			c.checkExprLenient(cap.Expr, scope)
		}
	}
}

// checkExprLenient is used for DSL captures: a bare identifier types as
// `any` without a scope lookup; any other expression goes through
// checkExpr unchanged, unresolved-identifier diagnostics included.
func (c *Checker) checkExprLenient(e ast.Expr, scope *Scope) *types.Type {
	if _, ok := e.(ast.Ident); ok {
		return types.TAny
	}
	return c.checkExpr(e, scope)
}

func (c *Checker) checkExpr(e ast.Expr, scope *Scope) *types.Type {
	switch n := e.(type) {
	case ast.Ident:
		if t, ok := scope.lookup(n.Name); ok {
			return t
		}
		c.diags.AddError(n.Sp, "undefined name %q", n.Name)
		return types.TAny
	case ast.IntLit:
		return types.TInt
	case ast.FloatLit:
		return types.TFloat
	case ast.StringLit:
		return types.TString
	case ast.BoolLit:
		return types.TBool
	case ast.NilLit:
		return types.TNil
	case ast.Placeholder:
		return types.TAny
	case ast.BinaryExpr:
		return c.checkBinary(n, scope)
	case ast.UnaryExpr:
		operand := c.checkExpr(n.Operand, scope)
		if n.Op == ast.OpNot {
			return types.TBool
		}
		return operand
	case ast.CallExpr:
		return c.checkCall(n, scope)
	case ast.MemberExpr:
		obj := c.checkExpr(n.Object, scope)
		return c.fieldType(obj, n.Field)
	case ast.IndexExpr:
		obj := c.checkExpr(n.Object, scope)
		c.checkExpr(n.Index, scope)
		switch obj.Kind {
		case types.Array:
			return obj.Elem
		case types.Map:
			return obj.Value
		default:
			return types.TAny
		}
	case *ast.IfExpr:
		return c.checkIfExpr(n, scope)
	case ast.IfExpr:
		return c.checkIfExpr(&n, scope)
	case ast.MatchExpr:
		return c.checkMatch(n, scope)
	case *ast.Block:
		return c.checkBlock(n, scope)
	case ast.Block:
		return c.checkBlock(&n, scope)
	case ast.ArrayExpr:
		var elem *types.Type = types.TAny
		for i, el := range n.Elements {
			t := c.checkExpr(el, scope)
			if i == 0 {
				elem = t
			}
		}
		return types.NewArray(elem)
	case ast.ObjectExpr:
		fields := map[string]*types.Type{}
		var order []string
		for _, f := range n.Fields {
			fields[f.Key] = c.checkExpr(f.Value, scope)
			order = append(order, f.Key)
		}
		return types.NewObject(order, fields)
	case ast.ArrowExpr:
		return c.checkArrow(n, scope)
	case ast.PipeExpr:
		return c.checkPipe(n, scope)
	case ast.OptionalChainExpr:
		obj := c.checkExpr(n.Object, scope)
		inner := c.fieldType(obj.Unwrap(), n.Field)
		return types.NewNullable(inner)
	case ast.NullishCoalesceExpr:
		left := c.checkExpr(n.Left, scope)
		right := c.checkExpr(n.Right, scope)
		if left.IsNullable() {
			return left.Elem
		}
		_ = right
		return left
	case ast.AwaitExpr:
		inner := c.checkExpr(n.Expr, scope)
		if inner.Kind != types.Promise {
			c.diags.AddError(n.Sp, "cannot await non-Promise type %s", inner)
			return types.TAny
		}
		return inner.Elem
	case ast.ErrorPropagateExpr:
		inner := c.checkExpr(n.Expr, scope)
		if inner.IsNullable() {
			return inner.Elem
		}
		return inner
	case ast.AssignExpr:
		target := c.checkExpr(n.Target, scope)
		value := c.checkExpr(n.Value, scope)
		if ident, ok := n.Target.(ast.Ident); ok {
			if t, ok := scope.lookup(ident.Name); ok {
				target = t
			}
		}
		if !types.AssignableTo(value, target) {
			c.diags.AddError(n.Sp, "cannot assign %s to %s", value, target)
		}
		return target
	case ast.TemplateStringExpr:
		for _, part := range n.Parts {
			if expr, ok := part.(ast.TemplateExprPart); ok {
				c.checkExpr(expr.Expr, scope)
			}
		}
		return types.TString
	default:
		return types.TAny
	}
}

func (c *Checker) fieldType(obj *types.Type, field string) *types.Type {
	base := obj.Unwrap()
	if base.Fields != nil {
		if ft, ok := base.Fields[field]; ok {
			return ft
		}
	}
	return types.TAny
}

func (c *Checker) checkBinary(n ast.BinaryExpr, scope *Scope) *types.Type {
	left := c.checkExpr(n.Left, scope)
	right := c.checkExpr(n.Right, scope)
	switch n.Op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe, ast.OpAnd, ast.OpOr:
		return types.TBool
	case ast.OpAdd:
		if left.Kind == types.String || right.Kind == types.String {
			return types.TString
		}
		if left.Kind == types.Float || right.Kind == types.Float {
			return types.TFloat
		}
		return types.TInt
	default:
		if left.Kind == types.Float || right.Kind == types.Float {
			return types.TFloat
		}
		return types.TInt
	}
}

func (c *Checker) checkCall(n ast.CallExpr, scope *Scope) *types.Type {
	callee := c.checkExpr(n.Callee, scope)
	for _, a := range n.Args {
		c.checkExpr(a, scope)
	}
	if callee.Kind != types.Function {
		return types.TAny
	}
	if !callee.Variadic && len(n.Args) != len(callee.Params) {
		c.diags.AddError(n.Sp, "call to %s expects %d arguments, got %d", describeCallee(n.Callee), len(callee.Params), len(n.Args))
	}
	return callee.Ret
}

func describeCallee(e ast.Expr) string {
	if id, ok := e.(ast.Ident); ok {
		return fmt.Sprintf("%q", id.Name)
	}
	return "function"
}

func (c *Checker) checkIfExpr(n *ast.IfExpr, scope *Scope) *types.Type {
	c.checkExpr(n.Condition, scope)
	thenType := c.checkBlock(n.Then, scope)
	if n.ElseBranch == nil {
		return types.NewNullable(thenType)
	}
	switch eb := n.ElseBranch.(type) {
	case ast.ElseBlock:
		elseType := c.checkBlock(eb.Block, scope)
		return joinTypes(thenType, elseType)
	case ast.ElseIf:
		elseType := c.checkIfExpr(eb.If, scope)
		return joinTypes(thenType, elseType)
	}
	return thenType
}

func joinTypes(a, b *types.Type) *types.Type {
	if types.AssignableTo(b, a) {
		return a
	}
	if types.AssignableTo(a, b) {
		return b
	}
	return &types.Type{Kind: types.Union, Members: []*types.Type{a, b}}
}

func (c *Checker) checkMatch(n ast.MatchExpr, scope *Scope) *types.Type {
	subject := c.checkExpr(n.Subject, scope)
	var result *types.Type
	for _, arm := range n.Arms {
		armScope := newScope(scope)
		c.bindPattern(arm.Pattern, subject, armScope)
		if arm.Guard != nil {
			c.checkExpr(arm.Guard, armScope)
		}
		t := c.checkExpr(arm.Body, armScope)
		if result == nil {
			result = t
		} else {
			result = joinTypes(result, t)
		}
	}
	if result == nil {
		return types.TVoid
	}
	return result
}

func (c *Checker) bindPattern(p ast.Pattern, subject *types.Type, scope *Scope) {
	switch n := p.(type) {
	case ast.IdentPattern:
		scope.define(n.Name, subject)
	case ast.EnumPattern:
		fieldTypes := c.lookupEnumVariantTypes(n.EnumName, n.Variant)
		for i, b := range n.Bindings {
			if b == "_" {
				continue
			}
			t := types.TAny
			if i < len(fieldTypes) {
				t = fieldTypes[i]
			}
			scope.define(b, t)
		}
	case ast.StructPattern:
		for _, f := range n.Fields {
			scope.define(f, c.fieldType(subject, f))
		}
	}
}

func (c *Checker) lookupEnumVariantTypes(enumName, variant string) []*types.Type {
	if enumName == "" {
		// `_::Variant(x)` shorthand: search every known enum for this
		// variant name, matching spec's enum-variant shorthand pattern.
		for _, e := range c.enums {
			if fts, ok := e.Variants[variant]; ok {
				return fts
			}
		}
		return nil
	}
	e, ok := c.enums[enumName]
	if !ok {
		return nil
	}
	return e.Variants[variant]
}

func (c *Checker) checkArrow(n ast.ArrowExpr, scope *Scope) *types.Type {
	arrowScope := newScope(scope)
	ptypes := make([]*types.Type, 0, len(n.Params))
	for _, p := range n.Params {
		t := c.resolveTypeExpr(p.Type)
		arrowScope.define(p.Name, t)
		ptypes = append(ptypes, t)
	}
	var ret *types.Type
	switch body := n.Body.(type) {
	case ast.ArrowExprBody:
		ret = c.checkExpr(body.Expr, arrowScope)
	case ast.ArrowBlockBody:
		ret = c.checkBlock(body.Block, arrowScope)
	}
	if n.IsAsync && ret.Kind != types.Promise {
		ret = types.NewPromise(ret)
	}
	return types.NewFunction(ptypes, ret, false)
}

// checkPipe checks `left |> right`, where right is ordinarily a call whose
// first argument is implicitly `left` unless a `_` placeholder marks the
// slot explicitly. Pipe typing is intentionally loose: the piped value is
// never checked against the callee's parameter type, so `|>` always types
// as `any` regardless of what the callee expects.
func (c *Checker) checkPipe(n ast.PipeExpr, scope *Scope) *types.Type {
	c.checkExpr(n.Left, scope)
	call, ok := n.Right.(ast.CallExpr)
	if !ok {
		return c.checkExpr(n.Right, scope)
	}
	c.checkExpr(call.Callee, scope)
	for _, a := range call.Args {
		c.checkExpr(a, scope)
	}
	return types.TAny
}
