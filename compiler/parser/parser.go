// Package parser builds a syntax tree from the token stream by
// resilient recursive descent. Each production attempts to build its
// node after setting a checkpoint; a structural failure rolls the
// stream back, deletes the partial node and propagates nil. Missing
// right delimiters and semicolons are recovered in place by logging a
// compile error and inserting a pseudo terminal.
package parser

import (
	"context"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/tomic-lang/tomic/compiler/ast"
	"github.com/tomic-lang/tomic/compiler/diag"
	"github.com/tomic-lang/tomic/compiler/lexer"
	"github.com/tomic-lang/tomic/compiler/token"
)

type Parser struct {
	lex  *lexer.Parser
	errs *diag.ErrorLog
	log  *diag.Logger

	tree *ast.Tree

	// While speculative parsing is in effect debug-log diagnostics are
	// suppressed. Compile errors from delimiter recovery are still
	// recorded; the error log keeps one record per position and kind.
	tryParse int
}

func New(lex *lexer.Parser, errs *diag.ErrorLog, log *diag.Logger) *Parser {
	return &Parser{
		lex:  lex,
		errs: errs,
		log:  log,
	}
}

// Parse consumes the whole token stream. A nil tree with an error means
// the failure was fatal: a top-level declaration, function definition or
// the main function could not be parsed.
func (p *Parser) Parse(ctx context.Context) (*ast.Tree, error) {
	p.tree = ast.NewTree()
	p.tryParse = 0

	compUnit := p.parseCompUnit()
	if compUnit == nil {
		p.log.Logf(diag.Fatal, "failed to parse the source code")
		return nil, errors.New("no compilation unit")
	}

	p.tree.SetRoot(compUnit)
	ast.TransformRightRecursion(p.tree)

	tlog.SpanFromContext(ctx).Printw("parsed compilation unit", "errors", p.errs.Count())

	return p.tree, nil
}

/*
 * ==================== stream helpers ====================
 */

func (p *Parser) next() token.Token {
	return p.lex.Next()
}

func (p *Parser) current() token.Token {
	t, ok := p.lex.Current()
	if !ok {
		// The very beginning: a compromise lookahead.
		return p.lookahead(1)
	}

	return t
}

func (p *Parser) lookahead(n int) token.Token {
	var t token.Token

	i := 0
	for ; i < n; i++ {
		t = p.lex.Next()
		if t.Is(token.Terminator) {
			i++
			break
		}
	}

	for ; i > 0; i-- {
		p.lex.Rewind()
	}

	return t
}

func matchAny(kinds []token.Kind, t token.Token) bool {
	for _, k := range kinds {
		if t.Is(k) {
			return true
		}
	}

	return false
}

// postError undoes a failed attempt: rolls the stream back and deletes
// the partial subtree.
func (p *Parser) postError(checkpoint int, n *ast.Node) {
	if checkpoint >= 0 {
		p.lex.Rollback(checkpoint)
	}
	if n != nil {
		p.tree.DeleteNode(n)
	}
}

func (p *Parser) setTryParse(on bool) {
	if on {
		p.tryParse++
	} else if p.tryParse > 0 {
		p.tryParse--
	}
}

func (p *Parser) inTryParse() bool { return p.tryParse > 0 }

/*
 * ==================== diagnostics ====================
 */

func (p *Parser) logAt(lv diag.Level, pos token.Token, format string, args ...interface{}) {
	if p.inTryParse() {
		return
	}

	line, col := pos.Line, pos.Column
	if line == 0 {
		line, col = 1, 1
	}

	p.log.Logf(lv, "(%d:%d) %s", line, col, errors.New(format, args...).Error())
}

func (p *Parser) logFailed(kind ast.SyntaxKind) {
	p.logAt(diag.Debug, p.current(), "failed to parse <%s>", kind.Description())
}

func (p *Parser) logExpect(expected token.Kind) {
	actual := p.lookahead(1)

	descr := expected.Lexeme()
	if descr == "" {
		descr = expected.Description()
	}

	if actual.Is(token.Terminator) {
		p.logAt(diag.Error, actual, "expect %s, but got EOF", descr)
	} else {
		p.logAt(diag.Error, actual, "expect %s, but got %s", descr, actual.Lexeme)
	}
}

func (p *Parser) logExpectAny(expected []token.Kind) {
	descr := ""
	for _, k := range expected {
		descr += " " + k.Lexeme()
	}

	p.logAt(diag.Error, p.current(), "expect one of%s, but got %s", descr, p.current().Lexeme)
}

func (p *Parser) logExpectAfter(expected token.Kind) {
	cur := p.current()
	p.logAt(diag.Error, cur, "expect %s after %s", expected.Lexeme(), cur.Lexeme)
}

// recoverMissing reports the missing delimiter and inserts a pseudo
// terminal so downstream passes see a well-formed tree. No input is
// consumed.
func (p *Parser) recoverMissing(n *ast.Node, expected token.Kind) {
	var kind diag.ErrorKind

	switch expected {
	case token.Semicolon:
		kind = diag.ErrMissingSemicolon
	case token.RightParen:
		kind = diag.ErrMissingRightParen
	case token.RightBracket:
		kind = diag.ErrMissingRightBracket
	case token.RightBrace:
		kind = diag.ErrMissingRightBrace
	default:
		kind = diag.ErrUnknown
	}

	cur := p.current()
	if cur.Line > 0 {
		p.errs.Logf(cur.Line, cur.Column, kind, "missing %s after %s", expected.Lexeme(), cur.Lexeme)
	} else {
		p.errs.Logf(1, 1, kind, "missing %s at the beginning of file", expected.Lexeme())
	}

	if tlog.Root().If("parser") {
		tlog.Root().Printw("inserted pseudo token", "kind", expected.Description(), "from", loc.Callers(1, 2))
	}

	n.InsertEndChild(p.tree.NewTerminal(token.New(expected)))
}

// terminal consumes the next token into a terminal child of n.
func (p *Parser) terminal(n *ast.Node) {
	n.InsertEndChild(p.tree.NewTerminal(p.next()))
}

// delimiter consumes the expected delimiter, or recovers by inserting a
// pseudo one.
func (p *Parser) delimiter(n *ast.Node, expected token.Kind) {
	if !p.lookahead(1).Is(expected) {
		p.logExpectAfter(expected)
		p.recoverMissing(n, expected)
		return
	}

	p.terminal(n)
}

/*
 * ==================== CompUnit ====================
 */

func (p *Parser) parseCompUnit() *ast.Node {
	root := p.tree.NewNonTerminal(ast.CompUnit)
	checkpoint := p.lex.SetCheckpoint()

	for p.matchDecl() {
		decl := p.parseDecl()
		if decl == nil {
			p.logFailed(ast.Decl)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(decl)
	}

	for p.matchFuncDef() {
		funcDef := p.parseFuncDef()
		if funcDef == nil {
			p.logFailed(ast.FuncDef)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(funcDef)
	}

	mainFuncDef := p.parseMainFuncDef()
	if mainFuncDef == nil {
		p.logAt(diag.Error, p.current(), "failed to parse <MainFuncDef>")
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(mainFuncDef)

	return root
}

func (p *Parser) matchDecl() bool {
	// const ...
	if p.lookahead(1).Is(token.Const) {
		return true
	}

	// int ident, and the third token is not '(', so not a function.
	if p.lookahead(1).Is(token.Int) && p.lookahead(2).Is(token.Identifier) {
		return !p.lookahead(3).Is(token.LeftParen)
	}

	return false
}

var funcTypeFirst = []token.Kind{token.Int, token.Void}

func (p *Parser) matchFuncDef() bool {
	if !matchAny(funcTypeFirst, p.lookahead(1)) {
		return false
	}

	return p.lookahead(2).Is(token.Identifier) && p.lookahead(3).Is(token.LeftParen)
}

/*
 * ==================== Decl ====================
 */

func (p *Parser) parseDecl() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.Decl)

	if p.lookahead(1).Is(token.Const) {
		constDecl := p.parseConstDecl()
		if constDecl == nil {
			p.logFailed(ast.ConstDecl)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(constDecl)
	} else {
		varDecl := p.parseVarDecl()
		if varDecl == nil {
			p.logFailed(ast.VarDecl)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(varDecl)
	}

	return root
}

func (p *Parser) parseBType() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.BType)

	if !p.lookahead(1).Is(token.Int) {
		p.logExpect(token.Int)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	return root
}

func (p *Parser) parseConstDecl() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.ConstDecl)

	if !p.lookahead(1).Is(token.Const) {
		p.logExpect(token.Const)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	btype := p.parseBType()
	if btype == nil {
		p.logFailed(ast.BType)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(btype)

	constDef := p.parseConstDef()
	if constDef == nil {
		p.logFailed(ast.ConstDef)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(constDef)

	for p.lookahead(1).Is(token.Comma) {
		p.terminal(root) // ','

		constDef = p.parseConstDef()
		if constDef == nil {
			p.logFailed(ast.ConstDef)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(constDef)
	}

	p.delimiter(root, token.Semicolon)

	return root
}

func (p *Parser) parseConstDef() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.ConstDef)

	if !p.lookahead(1).Is(token.Identifier) {
		p.logExpect(token.Identifier)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	for p.lookahead(1).Is(token.LeftBracket) {
		p.terminal(root) // '['

		constExp := p.parseConstExp()
		if constExp == nil {
			p.logFailed(ast.ConstExp)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(constExp)

		p.delimiter(root, token.RightBracket)
	}

	if !p.lookahead(1).Is(token.Assign) {
		p.logExpect(token.Assign)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	constInitVal := p.parseConstInitVal()
	if constInitVal == nil {
		p.logFailed(ast.ConstInitVal)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(constInitVal)

	return root
}

func (p *Parser) parseConstInitVal() *ast.Node {
	return p.parseInitValOf(ast.ConstInitVal, p.parseConstExp, ast.ConstExp)
}

func (p *Parser) parseInitVal() *ast.Node {
	return p.parseInitValOf(ast.InitVal, p.parseExp, ast.Exp)
}

// Init values share one shape: a single expression or a braced,
// possibly nested, possibly empty list.
func (p *Parser) parseInitValOf(kind ast.SyntaxKind, elem func() *ast.Node, elemKind ast.SyntaxKind) *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(kind)

	if !p.lookahead(1).Is(token.LeftBrace) {
		exp := elem()
		if exp == nil {
			p.logFailed(elemKind)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(exp)

		return root
	}

	p.terminal(root) // '{'

	if p.lookahead(1).Is(token.RightBrace) {
		p.logAt(diag.Warning, p.current(), "empty initialization list in <%s>", kind.Description())
		p.terminal(root) // '}'
		return root
	}

	inner := p.parseInitValOf(kind, elem, elemKind)
	if inner == nil {
		p.logFailed(kind)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(inner)

	for p.lookahead(1).Is(token.Comma) {
		p.terminal(root) // ','

		inner = p.parseInitValOf(kind, elem, elemKind)
		if inner == nil {
			p.logFailed(kind)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(inner)
	}

	p.delimiter(root, token.RightBrace)

	return root
}

func (p *Parser) parseVarDecl() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.VarDecl)

	btype := p.parseBType()
	if btype == nil {
		p.logFailed(ast.BType)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(btype)

	varDef := p.parseVarDef()
	if varDef == nil {
		p.logFailed(ast.VarDef)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(varDef)

	for p.lookahead(1).Is(token.Comma) {
		p.terminal(root) // ','

		varDef = p.parseVarDef()
		if varDef == nil {
			p.logFailed(ast.VarDef)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(varDef)
	}

	p.delimiter(root, token.Semicolon)

	return root
}

func (p *Parser) parseVarDef() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.VarDef)

	if !p.lookahead(1).Is(token.Identifier) {
		p.logExpect(token.Identifier)
		p.postError(checkpoint, root)
		return nil
	}
	ident := p.tree.NewTerminal(p.next())
	root.InsertEndChild(ident)

	for p.lookahead(1).Is(token.LeftBracket) {
		p.terminal(root) // '['

		constExp := p.parseConstExp()
		if constExp == nil {
			p.logFailed(ast.ConstExp)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(constExp)

		p.delimiter(root, token.RightBracket)
	}

	// No '=' means a plain declaration.
	if !p.lookahead(1).Is(token.Assign) {
		p.logAt(diag.Warning, p.current(), "no initial value for %s", ident.Token().Lexeme)
		return root
	}
	p.terminal(root)

	initVal := p.parseInitVal()
	if initVal == nil {
		p.logFailed(ast.InitVal)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(initVal)

	return root
}

/*
 * ==================== FuncDef ====================
 */

func (p *Parser) parseFuncDef() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.FuncDef)

	funcDecl := p.parseFuncDecl()
	if funcDecl == nil {
		p.logFailed(ast.FuncDecl)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(funcDecl)

	block := p.parseBlock()
	if block == nil {
		p.logFailed(ast.Block)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(block)

	return root
}

func (p *Parser) parseFuncDecl() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.FuncDecl)

	funcType := p.parseFuncType()
	if funcType == nil {
		p.logFailed(ast.FuncType)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(funcType)

	if !p.lookahead(1).Is(token.Identifier) {
		p.logExpect(token.Identifier)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.LeftParen) {
		p.logExpect(token.LeftParen)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.RightParen) {
		params := p.parseFuncFParams()
		if params != nil {
			root.InsertEndChild(params)
		} else {
			// Accepted, but reported.
			p.logFailed(ast.FuncFParams)
		}
	}

	p.delimiter(root, token.RightParen)

	return root
}

func (p *Parser) parseFuncType() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.FuncType)

	if !matchAny(funcTypeFirst, p.lookahead(1)) {
		p.logExpectAny(funcTypeFirst)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	return root
}

func (p *Parser) parseFuncFParams() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.FuncFParams)

	param := p.parseFuncFParam()
	if param == nil {
		p.logFailed(ast.FuncFParam)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(param)

	for p.lookahead(1).Is(token.Comma) {
		p.terminal(root) // ','

		param = p.parseFuncFParam()
		if param == nil {
			p.logFailed(ast.FuncFParam)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(param)
	}

	return root
}

func (p *Parser) parseFuncFParam() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.FuncFParam)

	btype := p.parseBType()
	if btype == nil {
		p.logFailed(ast.BType)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(btype)

	if !p.lookahead(1).Is(token.Identifier) {
		p.logExpect(token.Identifier)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	// First dimension: int a[]
	if p.lookahead(1).Is(token.LeftBracket) {
		p.terminal(root) // '['
		p.delimiter(root, token.RightBracket)

		// Second dimension: int a[][N]
		if p.lookahead(1).Is(token.LeftBracket) {
			p.terminal(root) // '['

			constExp := p.parseConstExp()
			if constExp == nil {
				p.logFailed(ast.ConstExp)
				p.postError(checkpoint, root)
				return nil
			}
			root.InsertEndChild(constExp)

			p.delimiter(root, token.RightBracket)
		}
	}

	return root
}

func (p *Parser) parseFuncAParams() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.FuncAParams)

	param := p.parseFuncAParam()
	if param == nil {
		p.logFailed(ast.FuncAParam)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(param)

	for p.lookahead(1).Is(token.Comma) {
		p.terminal(root) // ','

		param = p.parseFuncAParam()
		if param == nil {
			p.logFailed(ast.FuncAParam)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(param)
	}

	return root
}

func (p *Parser) parseFuncAParam() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.FuncAParam)

	exp := p.parseExp()
	if exp == nil {
		p.logFailed(ast.Exp)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(exp)

	return root
}

func (p *Parser) parseBlock() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.Block)

	if !p.lookahead(1).Is(token.LeftBrace) {
		p.logExpect(token.LeftBrace)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	for !p.lookahead(1).Is(token.RightBrace) {
		if p.lookahead(1).Is(token.Terminator) {
			break
		}

		blockItem := p.parseBlockItem()
		if blockItem == nil {
			p.logFailed(ast.BlockItem)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(blockItem)
	}

	p.delimiter(root, token.RightBrace)

	return root
}

func (p *Parser) parseBlockItem() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.BlockItem)

	var child *ast.Node

	switch la := p.lookahead(1); {
	case la.Is(token.Const):
		child = p.parseConstDecl()
		if child == nil {
			p.logFailed(ast.ConstDecl)
		}
	case la.Is(token.Int):
		child = p.parseVarDecl()
		if child == nil {
			p.logFailed(ast.VarDecl)
		}
	default:
		child = p.parseStmt()
		if child == nil {
			p.logFailed(ast.Stmt)
		}
	}

	if child == nil {
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(child)

	return root
}

func (p *Parser) parseMainFuncDef() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.MainFuncDef)

	if !p.lookahead(1).Is(token.Int) {
		p.logExpect(token.Int)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.Main) {
		p.logExpect(token.Main)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.LeftParen) {
		p.logExpect(token.LeftParen)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	p.delimiter(root, token.RightParen)

	block := p.parseBlock()
	if block == nil {
		p.logFailed(ast.Block)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(block)

	return root
}

/*
 * ==================== Stmt ====================
 */

// InStmt, AssignmentStmt and ExpStmt can all start with an identifier,
// so they are tried in that order with diagnostics suppressed; any
// other leading token picks the statement directly.
func (p *Parser) parseStmt() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.Stmt)

	la := p.lookahead(1)

	if la.Is(token.Identifier) {
		p.setTryParse(true)
		stmt := p.parseStmtAux()
		p.setTryParse(false)

		if stmt == nil {
			p.logFailed(ast.Stmt)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(stmt)

		return root
	}

	var child *ast.Node

	switch {
	case la.Is(token.If):
		child = p.parseIfStmt()
		if child == nil {
			p.logFailed(ast.IfStmt)
		}
	case la.Is(token.For):
		child = p.parseForStmt()
		if child == nil {
			p.logFailed(ast.ForStmt)
		}
	case la.Is(token.Break):
		child = p.parseBreakStmt()
		if child == nil {
			p.logFailed(ast.BreakStmt)
		}
	case la.Is(token.Continue):
		child = p.parseContinueStmt()
		if child == nil {
			p.logFailed(ast.ContinueStmt)
		}
	case la.Is(token.Return):
		child = p.parseReturnStmt()
		if child == nil {
			p.logFailed(ast.ReturnStmt)
		}
	case la.Is(token.Printf):
		child = p.parseOutStmt()
		if child == nil {
			p.logFailed(ast.OutStmt)
		}
	case la.Is(token.LeftBrace):
		child = p.parseBlock()
		if child == nil {
			p.logFailed(ast.Block)
		}
	default:
		child = p.parseExpStmt()
		if child == nil {
			p.logFailed(ast.ExpStmt)
		}
	}

	if child == nil {
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(child)

	return root
}

func (p *Parser) parseStmtAux() *ast.Node {
	if stmt := p.parseInStmt(); stmt != nil {
		return stmt
	}
	if stmt := p.parseAssignmentStmt(); stmt != nil {
		return stmt
	}
	if stmt := p.parseExpStmt(); stmt != nil {
		return stmt
	}

	p.logAt(diag.Debug, p.current(), "ambiguous statement didn't match any form")

	return nil
}

func (p *Parser) parseAssignmentStmt() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.AssignmentStmt)

	lval := p.parseLVal()
	if lval == nil {
		p.logFailed(ast.LVal)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(lval)

	if !p.lookahead(1).Is(token.Assign) {
		p.logExpect(token.Assign)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	exp := p.parseExp()
	if exp == nil {
		p.logFailed(ast.Exp)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(exp)

	p.delimiter(root, token.Semicolon)

	return root
}

func (p *Parser) parseLVal() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.LVal)

	if !p.lookahead(1).Is(token.Identifier) {
		p.logExpect(token.Identifier)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	for p.lookahead(1).Is(token.LeftBracket) {
		p.terminal(root) // '['

		exp := p.parseExp()
		if exp == nil {
			p.logFailed(ast.Exp)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(exp)

		p.delimiter(root, token.RightBracket)
	}

	return root
}

func (p *Parser) parseCond() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.Cond)

	orExp := p.parseOrExp()
	if orExp == nil {
		p.logFailed(ast.OrExp)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(orExp)

	return root
}

func (p *Parser) parseIfStmt() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.IfStmt)

	if !p.lookahead(1).Is(token.If) {
		p.logExpect(token.If)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.LeftParen) {
		p.logExpect(token.LeftParen)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	cond := p.parseCond()
	if cond == nil {
		p.logFailed(ast.Cond)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(cond)

	p.delimiter(root, token.RightParen)

	stmt := p.parseStmt()
	if stmt == nil {
		p.logFailed(ast.Stmt)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(stmt)

	if p.lookahead(1).Is(token.Else) {
		p.terminal(root)

		stmt = p.parseStmt()
		if stmt == nil {
			p.logFailed(ast.Stmt)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(stmt)
	}

	return root
}

func (p *Parser) parseForStmt() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.ForStmt)

	if !p.lookahead(1).Is(token.For) {
		p.logExpect(token.For)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.LeftParen) {
		p.logExpect(token.LeftParen)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.Semicolon) {
		forInit := p.parseForInitStmt()
		if forInit == nil {
			p.logFailed(ast.ForInitStmt)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(forInit)
	}

	p.delimiter(root, token.Semicolon)

	if !p.lookahead(1).Is(token.Semicolon) {
		cond := p.parseCond()
		if cond == nil {
			p.logFailed(ast.Cond)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(cond)
	}

	p.delimiter(root, token.Semicolon)

	if !p.lookahead(1).Is(token.RightParen) {
		forStep := p.parseForStepStmt()
		if forStep == nil {
			p.logFailed(ast.ForStepStmt)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(forStep)
	}

	p.delimiter(root, token.RightParen)

	stmt := p.parseStmt()
	if stmt == nil {
		p.logFailed(ast.Stmt)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(stmt)

	return root
}

func (p *Parser) parseForInitStmt() *ast.Node {
	return p.parseForAssignment(ast.ForInitStmt)
}

func (p *Parser) parseForStepStmt() *ast.Node {
	return p.parseForAssignment(ast.ForStepStmt)
}

// Both for clauses are an assignment without the trailing semicolon.
func (p *Parser) parseForAssignment(kind ast.SyntaxKind) *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(kind)

	lval := p.parseLVal()
	if lval == nil {
		p.logFailed(ast.LVal)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(lval)

	if !p.lookahead(1).Is(token.Assign) {
		p.logExpect(token.Assign)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	exp := p.parseExp()
	if exp == nil {
		p.logFailed(ast.Exp)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(exp)

	return root
}

func (p *Parser) parseExpStmt() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.ExpStmt)

	if !p.lookahead(1).Is(token.Semicolon) {
		exp := p.parseExp()
		if exp != nil {
			root.InsertEndChild(exp)
		} else {
			// Accepted without the expression, but a junk token has to
			// be consumed or an enclosing loop could spin forever. The
			// ';' check below then looks at the token after it and
			// reports a missing ';' only if that one is not ';'.
			p.lex.Rollback(checkpoint)
			p.next()
		}
	}

	p.delimiter(root, token.Semicolon)

	return root
}

// parseSimpleStmt handles break and continue: one keyword, one ';'.
func (p *Parser) parseSimpleStmt(kind ast.SyntaxKind, kw token.Kind) *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(kind)

	if !p.lookahead(1).Is(kw) {
		p.logExpect(kw)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	p.delimiter(root, token.Semicolon)

	return root
}

func (p *Parser) parseBreakStmt() *ast.Node {
	return p.parseSimpleStmt(ast.BreakStmt, token.Break)
}

func (p *Parser) parseContinueStmt() *ast.Node {
	return p.parseSimpleStmt(ast.ContinueStmt, token.Continue)
}

func (p *Parser) parseReturnStmt() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.ReturnStmt)

	if !p.lookahead(1).Is(token.Return) {
		p.logExpect(token.Return)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.Semicolon) {
		exp := p.parseExp()
		if exp != nil {
			root.InsertEndChild(exp)
		} else {
			// Accepted; continue with ';'.
			p.logFailed(ast.Exp)
		}
	}

	p.delimiter(root, token.Semicolon)

	return root
}

func (p *Parser) parseInStmt() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.InStmt)

	lval := p.parseLVal()
	if lval == nil {
		p.logFailed(ast.LVal)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(lval)

	if !p.lookahead(1).Is(token.Assign) {
		p.logExpect(token.Assign)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.Getint) {
		p.logExpect(token.Getint)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.LeftParen) {
		p.logExpect(token.LeftParen)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	p.delimiter(root, token.RightParen)
	p.delimiter(root, token.Semicolon)

	return root
}

func (p *Parser) parseOutStmt() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.OutStmt)

	if !p.lookahead(1).Is(token.Printf) {
		p.logExpect(token.Printf)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.LeftParen) {
		p.logExpect(token.LeftParen)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if p.lookahead(1).Is(token.Format) {
		p.terminal(root)
	} else {
		p.logExpect(token.Format)
	}

	for p.lookahead(1).Is(token.Comma) {
		p.terminal(root) // ','

		exp := p.parseExp()
		if exp == nil {
			p.logFailed(ast.Exp)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(exp)
	}

	p.delimiter(root, token.RightParen)
	p.delimiter(root, token.Semicolon)

	return root
}

/*
 * ==================== Exp ====================
 */

func (p *Parser) parseExp() *ast.Node {
	return p.parseWrappedAddExp(ast.Exp)
}

func (p *Parser) parseConstExp() *ast.Node {
	return p.parseWrappedAddExp(ast.ConstExp)
}

func (p *Parser) parseWrappedAddExp(kind ast.SyntaxKind) *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(kind)

	addExp := p.parseAddExp()
	if addExp == nil {
		p.logFailed(ast.AddExp)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(addExp)

	return root
}

// parseBinaryChain parses kind -> operand aux, aux -> op operand aux | ε,
// the common scheme of all binary expression levels. The aux node reuses
// the chain kind; the post-parse transformer reshapes it.
func (p *Parser) parseBinaryChain(kind ast.SyntaxKind, ops []token.Kind, operand func() *ast.Node, operandKind ast.SyntaxKind) *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(kind)

	first := operand()
	if first == nil {
		p.logFailed(operandKind)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(first)

	aux := p.parseBinaryChainAux(kind, ops, operand, operandKind)
	if aux == nil {
		p.logFailed(kind)
		p.postError(checkpoint, root)
		return nil
	}
	if !aux.IsEpsilon() {
		root.InsertEndChild(aux)
	}

	return root
}

func (p *Parser) parseBinaryChainAux(kind ast.SyntaxKind, ops []token.Kind, operand func() *ast.Node, operandKind ast.SyntaxKind) *ast.Node {
	if !matchAny(ops, p.lookahead(1)) {
		return p.tree.NewEpsilon()
	}

	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(kind)

	p.terminal(root) // the operator, just matched

	next := operand()
	if next == nil {
		p.logFailed(operandKind)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(next)

	aux := p.parseBinaryChainAux(kind, ops, operand, operandKind)
	if aux == nil {
		p.logFailed(kind)
		p.postError(checkpoint, root)
		return nil
	}
	if !aux.IsEpsilon() {
		root.InsertEndChild(aux)
	}

	return root
}

var (
	addOps = []token.Kind{token.Plus, token.Minus}
	mulOps = []token.Kind{token.Mult, token.Div, token.Mod}
	orOps  = []token.Kind{token.Or}
	andOps = []token.Kind{token.And}
	eqOps  = []token.Kind{token.Equal, token.NotEqual}
	relOps = []token.Kind{token.Less, token.LessEq, token.Greater, token.GreaterEq}
)

func (p *Parser) parseAddExp() *ast.Node {
	return p.parseBinaryChain(ast.AddExp, addOps, p.parseMulExp, ast.MulExp)
}

func (p *Parser) parseMulExp() *ast.Node {
	return p.parseBinaryChain(ast.MulExp, mulOps, p.parseUnaryExp, ast.UnaryExp)
}

func (p *Parser) parseOrExp() *ast.Node {
	return p.parseBinaryChain(ast.OrExp, orOps, p.parseAndExp, ast.AndExp)
}

func (p *Parser) parseAndExp() *ast.Node {
	return p.parseBinaryChain(ast.AndExp, andOps, p.parseEqExp, ast.EqExp)
}

func (p *Parser) parseEqExp() *ast.Node {
	return p.parseBinaryChain(ast.EqExp, eqOps, p.parseRelExp, ast.RelExp)
}

func (p *Parser) parseRelExp() *ast.Node {
	return p.parseBinaryChain(ast.RelExp, relOps, p.parseAddExp, ast.AddExp)
}

func (p *Parser) parseUnaryExp() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.UnaryExp)

	// UnaryExp -> UnaryOp UnaryExp
	if unaryOp := p.parseUnaryOp(); unaryOp != nil {
		root.InsertEndChild(unaryOp)

		unaryExp := p.parseUnaryExp()
		if unaryExp == nil {
			p.logFailed(ast.UnaryExp)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(unaryExp)

		return root
	}

	// UnaryExp -> Ident '(' FuncAParams? ')'
	if p.lookahead(1).Is(token.Identifier) && p.lookahead(2).Is(token.LeftParen) {
		call := p.parseFuncCall()
		if call == nil {
			p.logFailed(ast.FuncCall)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(call)

		return root
	}

	// UnaryExp -> PrimaryExp
	primary := p.parsePrimaryExp()
	if primary == nil {
		p.logFailed(ast.PrimaryExp)
		p.postError(checkpoint, root)
		return nil
	}
	root.InsertEndChild(primary)

	return root
}

func (p *Parser) parseUnaryOp() *ast.Node {
	la := p.lookahead(1)
	if !la.Is(token.Plus) && !la.Is(token.Minus) && !la.Is(token.Not) {
		// It is fine for UnaryOp not to match.
		return nil
	}

	root := p.tree.NewNonTerminal(ast.UnaryOp)
	op := p.next()
	root.InsertEndChild(p.tree.NewTerminal(op))
	root.Attrs.Op = op.Lexeme

	return root
}

func (p *Parser) parsePrimaryExp() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.PrimaryExp)

	// PrimaryExp -> Number
	if p.lookahead(1).Is(token.Integer) {
		number := p.parseNumber()
		if number == nil {
			p.logFailed(ast.Number)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(number)

		return root
	}

	// PrimaryExp -> '(' Exp ')'
	if p.lookahead(1).Is(token.LeftParen) {
		p.terminal(root) // '('

		exp := p.parseExp()
		if exp == nil {
			p.logFailed(ast.Exp)
			p.postError(checkpoint, root)
			return nil
		}
		root.InsertEndChild(exp)

		p.delimiter(root, token.RightParen)

		return root
	}

	// PrimaryExp -> LVal
	if lval := p.parseLVal(); lval != nil {
		root.InsertEndChild(lval)
		return root
	}

	p.logAt(diag.Error, p.current(), "no primary expression found")
	p.postError(checkpoint, root)

	return nil
}

func (p *Parser) parseFuncCall() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.FuncCall)

	if !p.lookahead(1).Is(token.Identifier) {
		p.logExpect(token.Identifier)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.LeftParen) {
		p.logExpect(token.LeftParen)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	if !p.lookahead(1).Is(token.RightParen) {
		params := p.parseFuncAParams()
		if params != nil {
			root.InsertEndChild(params)
		} else {
			// Keep the call node, remember it is broken.
			root.Attrs.Corrupted = true
			p.logFailed(ast.FuncAParams)
		}
	}

	p.delimiter(root, token.RightParen)

	return root
}

func (p *Parser) parseNumber() *ast.Node {
	checkpoint := p.lex.SetCheckpoint()
	root := p.tree.NewNonTerminal(ast.Number)

	if !p.lookahead(1).Is(token.Integer) {
		p.logExpect(token.Integer)
		p.postError(checkpoint, root)
		return nil
	}
	p.terminal(root)

	return root
}
