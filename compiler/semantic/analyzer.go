// Package semantic decorates the syntax tree with attributes, builds
// the scoped symbol table and reports semantic errors. It never aborts:
// every defect goes to the error log and analysis continues, so one run
// reports as much as possible.
package semantic

import (
	"context"

	"tlog.app/go/tlog"

	"github.com/tomic-lang/tomic/compiler/ast"
	"github.com/tomic-lang/tomic/compiler/diag"
	"github.com/tomic-lang/tomic/compiler/table"
	"github.com/tomic-lang/tomic/compiler/token"
)

type Analyzer struct {
	errs *diag.ErrorLog
	log  *diag.Logger

	table *table.Table
	cur   *table.Block

	// pass 2 state
	retType table.ValueType
}

func New(errs *diag.ErrorLog, log *diag.Logger) *Analyzer {
	return &Analyzer{
		errs: errs,
		log:  log,
	}
}

// Analyze runs both passes: table building with attribute synthesis,
// then control-flow and call-site checks.
func (a *Analyzer) Analyze(ctx context.Context, tree *ast.Tree) *table.Table {
	a.table = table.New()
	a.cur = a.table.Root()

	if root := tree.Root(); root != nil {
		a.build(root)
		a.check(root)
	}

	tlog.SpanFromContext(ctx).Printw("semantic analysis done", "errors", a.errs.Count())

	return a.table
}

func (a *Analyzer) Table() *table.Table { return a.table }

func (a *Analyzer) enterScope(n *ast.Node) {
	a.cur = a.table.NewBlock(a.cur)
	n.Attrs.BlockID = a.cur.ID()
}

func (a *Analyzer) leaveScope() {
	a.cur = a.cur.Parent()
}

/*
 * ==================== pass 1: table and attributes ====================
 */

func (a *Analyzer) build(n *ast.Node) {
	if !n.IsNonTerminal() {
		return
	}

	switch n.Kind() {
	case ast.CompUnit:
		n.Attrs.BlockID = a.cur.ID()
		a.buildChildren(n)

	case ast.FuncDef:
		a.buildFuncDef(n)

	case ast.Block, ast.ForStmt:
		a.enterScope(n)
		a.buildChildren(n)
		a.leaveScope()

	case ast.ConstDef:
		a.buildChildren(n)
		a.registerConstant(n)

	case ast.VarDef:
		a.buildChildren(n)
		a.registerVariable(n)

	default:
		a.buildChildren(n)
		a.synthesize(n)
	}
}

func (a *Analyzer) buildChildren(n *ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		a.build(c)
	}
}

func (a *Analyzer) buildFuncDef(n *ast.Node) {
	decl := n.DirectChild(ast.FuncDecl, 1)
	if decl == nil {
		a.buildChildren(n)
		return
	}

	retType := table.Int
	if ft := decl.DirectChild(ast.FuncType, 1); ft != nil && ft.FirstChild() != nil && ft.FirstChild().Token().Is(token.Void) {
		retType = table.Void
	}

	var ident token.Token
	for c := decl.FirstChild(); c != nil; c = c.NextSibling() {
		if c.IsTerminal() && c.Token().Is(token.Identifier) {
			ident = c.Token()
			break
		}
	}

	// Parameter dimensions need their ConstExps evaluated first.
	params := decl.DirectChild(ast.FuncFParams, 1)
	if params != nil {
		a.build(params)
	}

	fn := &table.Function{
		Ident:  ident.Lexeme,
		Return: retType,
	}
	if params != nil {
		for c := params.FirstChild(); c != nil; c = c.NextSibling() {
			if c.Is(ast.FuncFParam) {
				fn.Params = append(fn.Params, a.paramOf(c))
			}
		}
	}

	if ident.Lexeme != "" && !a.cur.Insert(fn) {
		a.errs.Logf(ident.Line, ident.Column, diag.ErrDuplicateIdentifier,
			"function %s redefined", ident.Lexeme)
	}

	a.enterScope(n)

	// Formal parameters live in the function scope.
	for i := range fn.Params {
		p := fn.Params[i]
		v := &table.Variable{Ident: p.Ident, Type: p.Type, Dim: p.Dim, Size: p.Size}

		if !a.cur.Insert(v) {
			a.errs.Logf(ident.Line, ident.Column, diag.ErrDuplicateIdentifier,
				"parameter %s redefined", p.Ident)
		}
	}

	if body := n.DirectChild(ast.Block, 1); body != nil {
		a.build(body)
	}

	a.leaveScope()
}

func (a *Analyzer) paramOf(n *ast.Node) table.Param {
	p := table.Param{Type: table.Int}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.IsTerminal() && c.Token().Is(token.Identifier) {
			p.Ident = c.Token().Lexeme
		}
	}

	p.Dim = n.CountDirectTerminal(token.LeftBracket)

	if p.Dim > table.MaxDim {
		p.Dim = table.MaxDim
	}
	if p.Dim == 2 {
		if ce := n.DirectChild(ast.ConstExp, 1); ce != nil {
			p.Size[1] = ce.Attrs.Value
		}
	}

	return p
}

// dimsOf evaluates the direct ConstExp dimension sizes of a def node.
func (a *Analyzer) dimsOf(n *ast.Node) (dim int, size [table.MaxDim]int) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if !c.Is(ast.ConstExp) {
			continue
		}

		if !c.Attrs.Det {
			tok := firstToken(c)
			a.errs.Logf(tok.Line, tok.Column, diag.ErrUnknown,
				"array size is not a compile time constant")
		}
		if dim < table.MaxDim {
			size[dim] = c.Attrs.Value
		}

		dim++
	}

	if dim > table.MaxDim {
		dim = table.MaxDim
	}

	return dim, size
}

func (a *Analyzer) registerVariable(n *ast.Node) {
	ident := n.FirstChild().Token()
	dim, size := a.dimsOf(n)

	v := &table.Variable{
		Ident: ident.Lexeme,
		Type:  table.Int,
		Dim:   dim,
		Size:  size,
	}

	if !a.cur.Insert(v) {
		a.errs.Logf(ident.Line, ident.Column, diag.ErrDuplicateIdentifier,
			"%s redefined", ident.Lexeme)
	}

	n.Attrs.Dim = dim
}

func (a *Analyzer) registerConstant(n *ast.Node) {
	ident := n.FirstChild().Token()
	dim, size := a.dimsOf(n)

	c := &table.Constant{
		Ident: ident.Lexeme,
		Type:  table.Int,
		Dim:   dim,
		Size:  size,
	}

	if init := n.DirectChild(ast.ConstInitVal, 1); init != nil {
		switch dim {
		case 0:
			c.Value = init.Attrs.Value
		case 1:
			c.Values = [][]int{initRow(init)}
		case 2:
			for r := init.FirstChild(); r != nil; r = r.NextSibling() {
				if r.Is(ast.ConstInitVal) {
					c.Values = append(c.Values, initRow(r))
				}
			}
		}
	}

	if !a.cur.Insert(c) {
		a.errs.Logf(ident.Line, ident.Column, diag.ErrDuplicateIdentifier,
			"%s redefined", ident.Lexeme)
	}

	n.Attrs.Dim = dim
}

// initRow flattens one brace level of a (const) init list into values.
func initRow(n *ast.Node) []int {
	var row []int

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Is(ast.ConstInitVal) || c.Is(ast.InitVal) {
			row = append(row, c.Attrs.Value)
		}
	}

	if len(row) == 0 && n.Attrs.Det {
		// Scalar leaf.
		row = append(row, n.Attrs.Value)
	}

	return row
}

/*
 * ==================== attribute synthesis ====================
 */

func (a *Analyzer) synthesize(n *ast.Node) {
	switch n.Kind() {
	case ast.Number:
		n.Attrs.Det = true
		n.Attrs.Value = atoi(n.FirstChild().Token().Lexeme)

	case ast.Exp, ast.ConstExp, ast.Cond:
		copyAttrs(n, n.FirstChild())

	case ast.LVal:
		a.synthesizeLVal(n)

	case ast.PrimaryExp:
		if n.HasManyChildren() {
			// ( Exp )
			copyAttrs(n, n.ChildAt(1))
		} else {
			copyAttrs(n, n.FirstChild())
		}

	case ast.UnaryExp:
		a.synthesizeUnary(n)

	case ast.FuncCall:
		n.Attrs.Det = false
		n.Attrs.Dim = 0

	case ast.AddExp, ast.MulExp:
		a.synthesizeBinary(n)

	case ast.OrExp, ast.AndExp, ast.EqExp, ast.RelExp:
		a.synthesizeBinary(n)

	case ast.InitVal, ast.ConstInitVal:
		a.synthesizeInitVal(n)
	}
}

func copyAttrs(dst, src *ast.Node) {
	if src == nil {
		return
	}

	dst.Attrs.Det = src.Attrs.Det
	dst.Attrs.Value = src.Attrs.Value
	dst.Attrs.Dim = src.Attrs.Dim
}

func (a *Analyzer) synthesizeLVal(n *ast.Node) {
	ident := n.FirstChild().Token()

	entry := a.cur.Find(ident.Lexeme)
	if entry == nil {
		a.errs.Logf(ident.Line, ident.Column, diag.ErrUndefinedIdentifier,
			"undefined identifier %s", ident.Lexeme)
		n.Attrs.Corrupted = true
		return
	}

	indices := n.CountDirect(ast.Exp)

	var dim int
	switch e := entry.(type) {
	case *table.Variable:
		dim = e.Dim
	case *table.Constant:
		dim = e.Dim
	case *table.Function:
		a.errs.Logf(ident.Line, ident.Column, diag.ErrUnknown,
			"%s is a function, not a value", ident.Lexeme)
		n.Attrs.Corrupted = true
		return
	}

	n.Attrs.Dim = dim - indices
	if n.Attrs.Dim < 0 {
		a.errs.Logf(ident.Line, ident.Column, diag.ErrUnknown,
			"too many indices for %s", ident.Lexeme)
		n.Attrs.Dim = 0
	}

	// A constant with a fully determined index chain folds to its value.
	c, ok := entry.(*table.Constant)
	if !ok || n.Attrs.Dim != 0 {
		return
	}

	idx := make([]int, 0, table.MaxDim)
	for e := n.FirstChild(); e != nil; e = e.NextSibling() {
		if !e.Is(ast.Exp) {
			continue
		}
		if !e.Attrs.Det {
			return
		}
		idx = append(idx, e.Attrs.Value)
	}

	n.Attrs.Det = true
	n.Attrs.Value = constantValue(c, idx)
}

func constantValue(c *table.Constant, idx []int) int {
	at := func(r, i int) int {
		if r < 0 || r >= len(c.Values) || i < 0 || i >= len(c.Values[r]) {
			return 0
		}
		return c.Values[r][i]
	}

	switch len(idx) {
	case 0:
		return c.Value
	case 1:
		return at(0, idx[0])
	default:
		return at(idx[0], idx[1])
	}
}

func (a *Analyzer) synthesizeUnary(n *ast.Node) {
	first := n.FirstChild()

	if !first.Is(ast.UnaryOp) {
		copyAttrs(n, first)
		return
	}

	operand := n.LastChild()
	op := first.Attrs.Op

	n.Attrs.Dim = operand.Attrs.Dim
	if !operand.Attrs.Det {
		return
	}

	n.Attrs.Det = true
	n.Attrs.Value = evalUnary(op, operand.Attrs.Value)
}

func (a *Analyzer) synthesizeBinary(n *ast.Node) {
	if !n.HasManyChildren() {
		copyAttrs(n, n.FirstChild())
		return
	}

	lhs := n.FirstChild()
	op := lhs.NextSibling().Token().Lexeme
	rhs := n.LastChild()

	n.Attrs.Dim = 0

	if op == "/" || op == "%" {
		if rhs.Attrs.Det && rhs.Attrs.Value == 0 {
			tok := firstToken(rhs)
			a.errs.Logf(tok.Line, tok.Column, diag.ErrDivideByZero, "division by zero")
			return
		}
	}

	if !lhs.Attrs.Det || !rhs.Attrs.Det {
		return
	}

	n.Attrs.Det = true
	n.Attrs.Value = evalBinary(op, lhs.Attrs.Value, rhs.Attrs.Value)
}

func (a *Analyzer) synthesizeInitVal(n *ast.Node) {
	first := n.FirstChild()
	if first == nil {
		n.Attrs.Det = true
		n.Attrs.Dim = 1
		return
	}

	// Single expression leaf.
	if first.Is(ast.Exp) || first.Is(ast.ConstExp) {
		copyAttrs(n, first)
		return
	}

	// Brace list: one dimension above the deepest element.
	det := true
	dim := 0

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if !c.Is(ast.InitVal) && !c.Is(ast.ConstInitVal) {
			continue
		}

		det = det && c.Attrs.Det
		if c.Attrs.Dim+1 > dim {
			dim = c.Attrs.Dim + 1
		}
	}

	if dim == 0 {
		dim = 1 // empty list
	}

	n.Attrs.Det = det
	n.Attrs.Dim = dim
}

/*
 * ==================== pass 2: flow and call sites ====================
 */

func (a *Analyzer) check(n *ast.Node) {
	if !n.IsNonTerminal() {
		return
	}

	switch n.Kind() {
	case ast.FuncDef:
		prev := a.retType
		a.retType = table.Int
		if decl := n.DirectChild(ast.FuncDecl, 1); decl != nil {
			if ft := decl.DirectChild(ast.FuncType, 1); ft != nil && ft.FirstChild() != nil && ft.FirstChild().Token().Is(token.Void) {
				a.retType = table.Void
			}
		}

		a.checkChildren(n)
		a.retType = prev
		return

	case ast.MainFuncDef:
		prev := a.retType
		a.retType = table.Int
		a.checkChildren(n)
		a.retType = prev
		return

	case ast.BreakStmt:
		if !n.HasAncestor(ast.ForStmt) {
			tok := firstToken(n)
			a.errs.Logf(tok.Line, tok.Column, diag.ErrIllegalBreak, "break outside of a loop")
		}

	case ast.ContinueStmt:
		if !n.HasAncestor(ast.ForStmt) {
			tok := firstToken(n)
			a.errs.Logf(tok.Line, tok.Column, diag.ErrIllegalContinue, "continue outside of a loop")
		}

	case ast.ReturnStmt:
		a.checkReturn(n)

	case ast.AssignmentStmt, ast.InStmt, ast.ForInitStmt, ast.ForStepStmt:
		a.checkAssignTarget(n)

	case ast.FuncCall:
		a.checkCall(n)

	case ast.OutStmt:
		a.checkOutput(n)
	}

	a.checkChildren(n)
}

func (a *Analyzer) checkChildren(n *ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		a.check(c)
	}
}

func (a *Analyzer) checkReturn(n *ast.Node) {
	tok := firstToken(n)
	hasExp := n.DirectChild(ast.Exp, 1) != nil

	switch {
	case a.retType == table.Void && hasExp:
		a.errs.Logf(tok.Line, tok.Column, diag.ErrIllegalReturn,
			"returning a value from a void function")
	case a.retType != table.Void && !hasExp:
		a.errs.Logf(tok.Line, tok.Column, diag.ErrIllegalReturn,
			"missing return value")
	}
}

func (a *Analyzer) checkAssignTarget(n *ast.Node) {
	lval := n.DirectChild(ast.LVal, 1)
	if lval == nil || lval.FirstChild() == nil {
		return
	}

	ident := lval.FirstChild().Token()

	entry := a.blockOf(lval).Find(ident.Lexeme)
	if _, ok := entry.(*table.Constant); ok {
		a.errs.Logf(ident.Line, ident.Column, diag.ErrAssignToConstant,
			"cannot assign to constant %s", ident.Lexeme)
	}
}

func (a *Analyzer) checkCall(n *ast.Node) {
	ident := n.FirstChild().Token()

	entry := a.table.Root().Find(ident.Lexeme)
	fn, ok := entry.(*table.Function)
	if !ok {
		a.errs.Logf(ident.Line, ident.Column, diag.ErrUndefinedIdentifier,
			"call of undefined function %s", ident.Lexeme)
		return
	}

	var args []*ast.Node
	if params := n.DirectChild(ast.FuncAParams, 1); params != nil {
		for c := params.FirstChild(); c != nil; c = c.NextSibling() {
			if c.Is(ast.FuncAParam) {
				args = append(args, c)
			}
		}
	}

	if len(args) != len(fn.Params) {
		a.errs.Logf(ident.Line, ident.Column, diag.ErrArgumentCountMismatch,
			"%s expects %d arguments, got %d", ident.Lexeme, len(fn.Params), len(args))
		return
	}

	for i, arg := range args {
		exp := arg.FirstChild()
		if exp == nil {
			continue
		}
		if exp.Attrs.Dim != fn.Params[i].Dim {
			a.errs.Logf(ident.Line, ident.Column, diag.ErrArgumentTypeMismatch,
				"argument %d of %s: dimension mismatch", i+1, ident.Lexeme)
		}
	}
}

func (a *Analyzer) checkOutput(n *ast.Node) {
	var format token.Token

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.IsTerminal() && (c.Token().Is(token.Format) || c.Token().Is(token.Unknown)) {
			format = c.Token()
			break
		}
	}

	if format.Kind == token.Unknown && format.Lexeme != "" {
		a.errs.Logf(format.Line, format.Column, diag.ErrIllegalCharacter,
			"illegal character in format string")
		return
	}

	want := formatArgCount(format.Lexeme)
	got := n.CountDirect(ast.Exp)

	if want != got {
		tok := firstToken(n)
		a.errs.Logf(tok.Line, tok.Column, diag.ErrFormatMismatch,
			"format expects %d arguments, got %d", want, got)
	}
}

// blockOf recovers the symbol table block covering a node through the
// block id attribute left on scope-introducing ancestors.
func (a *Analyzer) blockOf(n *ast.Node) *table.Block {
	if b := a.table.Block(n.InheritedBlockID()); b != nil {
		return b
	}

	return a.table.Root()
}

func firstToken(n *ast.Node) token.Token {
	if n.IsTerminal() {
		return n.Token()
	}

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t := firstToken(c); t.Line != 0 {
			return t
		}
	}

	return token.Token{Line: 1, Column: 1}
}
