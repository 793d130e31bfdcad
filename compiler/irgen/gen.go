// Package irgen lowers the decorated syntax tree and its symbol table
// to an ir.Module. Expressions exploit the det/value attributes to emit
// literal constants wherever the analyzer folded them; control flow is
// lowered to basic blocks with short-circuit conditions.
package irgen

import (
	"context"
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/tomic-lang/tomic/compiler/ast"
	"github.com/tomic-lang/tomic/compiler/diag"
	"github.com/tomic-lang/tomic/compiler/ir"
	"github.com/tomic-lang/tomic/compiler/table"
	"github.com/tomic-lang/tomic/compiler/token"
)

type (
	loop struct {
		cont *ir.BasicBlock
		brk  *ir.BasicBlock
	}

	Generator struct {
		tbl *table.Table
		log *diag.Logger

		m *ir.Module
		c *ir.Context

		f   *ir.Function
		blk *ir.BasicBlock

		addr map[table.Entry]ir.Value
		fns  map[string]*ir.Function

		getint *ir.Function
		putint *ir.Function
		putstr *ir.Function

		loops []loop
		strs  int
	}
)

// Generate lowers the tree into a fresh module.
func Generate(ctx context.Context, tree *ast.Tree, tbl *table.Table, name string, log *diag.Logger) (m *ir.Module, err error) {
	g := &Generator{
		tbl:  tbl,
		log:  log,
		m:    ir.NewModule(name),
		addr: make(map[table.Entry]ir.Value),
		fns:  make(map[string]*ir.Function),
	}
	g.c = g.m.Context()

	g.declareBuiltins()

	root := tree.Root()
	if root == nil || !root.Is(ast.CompUnit) {
		return nil, errors.New("no compilation unit to lower")
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch n.Kind() {
		case ast.Decl:
			g.genGlobalDecl(n)
		case ast.FuncDef:
			g.genFuncDef(n)
		case ast.MainFuncDef:
			g.genMainFuncDef(n)
		}
	}

	tlog.SpanFromContext(ctx).Printw("lowered module",
		"globals", len(g.m.Globals()), "functions", len(g.m.Functions()))

	return g.m, nil
}

func (g *Generator) declareBuiltins() {
	i32 := g.c.Int32Ty()
	void := g.c.VoidTy()
	i8p := g.c.PointerTy(g.c.Int8Ty())

	g.getint = g.c.NewBuiltinFunction("getint", g.c.FunctionTy(i32, nil))
	g.putint = g.c.NewBuiltinFunction("putint", g.c.FunctionTy(void, []*ir.Type{i32}))
	g.putstr = g.c.NewBuiltinFunction("putstr", g.c.FunctionTy(void, []*ir.Type{i8p}))

	g.m.AddFunction(g.getint)
	g.m.AddFunction(g.putint)
	g.m.AddFunction(g.putstr)
}

func (g *Generator) insert(in ir.Instruction) ir.Instruction {
	return g.blk.Insert(in)
}

func (g *Generator) blockOf(n *ast.Node) *table.Block {
	if b := g.tbl.Block(n.InheritedBlockID()); b != nil {
		return b
	}

	return g.tbl.Root()
}

// elemType is the IR shape of a declared variable: i32, [N x i32] or
// [N x [M x i32]].
func (g *Generator) elemType(dim int, size [table.MaxDim]int) *ir.Type {
	t := g.c.Int32Ty()

	for i := dim - 1; i >= 0; i-- {
		t = g.c.ArrayTy(t, size[i])
	}

	return t
}

func entryShape(e table.Entry) (dim int, size [table.MaxDim]int) {
	switch e := e.(type) {
	case *table.Variable:
		return e.Dim, e.Size
	case *table.Constant:
		return e.Dim, e.Size
	}

	return 0, size
}

/*
 * ==================== globals ====================
 */

func (g *Generator) genGlobalDecl(n *ast.Node) {
	decl := n.FirstChild()
	if decl == nil {
		return
	}

	for def := decl.FirstChild(); def != nil; def = def.NextSibling() {
		switch def.Kind() {
		case ast.VarDef:
			g.genGlobalDef(def, false, ast.InitVal)
		case ast.ConstDef:
			g.genGlobalDef(def, true, ast.ConstInitVal)
		}
	}
}

func (g *Generator) genGlobalDef(def *ast.Node, constant bool, initKind ast.SyntaxKind) {
	name := def.FirstChild().Token().Lexeme

	entry := g.blockOf(def).Find(name)
	if entry == nil {
		return // analyzer already reported it
	}

	dim, size := entryShape(entry)
	elem := g.elemType(dim, size)

	var init *ir.ConstantData
	if iv := def.DirectChild(initKind, 1); iv != nil {
		init = g.genGlobalInit(iv, dim, size)
	}

	v := g.c.NewGlobalVariable(elem, constant, name, init)
	g.addr[entry] = v
	g.m.AddGlobal(v)
}

// genGlobalInit turns an init value subtree into constant data, padded
// to the declared shape. Global initializers are always det.
func (g *Generator) genGlobalInit(n *ast.Node, dim int, size [table.MaxDim]int) *ir.ConstantData {
	if dim == 0 {
		return g.c.NewConstantInt(g.c.Int32Ty(), n.Attrs.Value)
	}

	var elems []*ir.ConstantData

	sub := size
	copy(sub[:], size[1:])

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Is(ast.InitVal) || c.Is(ast.ConstInitVal) {
			elems = append(elems, g.genGlobalInit(c, dim-1, sub))
		}
	}

	for len(elems) < size[0] {
		elems = append(elems, g.zeroData(dim-1, sub))
	}

	return g.c.NewConstantArray(elems)
}

func (g *Generator) zeroData(dim int, size [table.MaxDim]int) *ir.ConstantData {
	if dim == 0 {
		return g.c.NewConstantInt(g.c.Int32Ty(), 0)
	}

	sub := size
	copy(sub[:], size[1:])

	elems := make([]*ir.ConstantData, 0, size[0])
	for i := 0; i < size[0]; i++ {
		elems = append(elems, g.zeroData(dim-1, sub))
	}

	return g.c.NewConstantArray(elems)
}

/*
 * ==================== functions ====================
 */

func (g *Generator) paramType(p table.Param) *ir.Type {
	switch p.Dim {
	case 1:
		return g.c.PointerTy(g.c.Int32Ty())
	case 2:
		return g.c.PointerTy(g.c.ArrayTy(g.c.Int32Ty(), p.Size[1]))
	}

	return g.c.Int32Ty()
}

func (g *Generator) genFuncDef(n *ast.Node) {
	decl := n.DirectChild(ast.FuncDecl, 1)
	if decl == nil {
		return
	}

	var name string
	for c := decl.FirstChild(); c != nil; c = c.NextSibling() {
		if c.IsTerminal() && c.Token().Is(token.Identifier) {
			name = c.Token().Lexeme
			break
		}
	}

	fe, ok := g.tbl.Root().Find(name).(*table.Function)
	if !ok {
		return
	}

	ret := g.c.Int32Ty()
	if fe.Return == table.Void {
		ret = g.c.VoidTy()
	}

	ptys := make([]*ir.Type, 0, len(fe.Params))
	for _, p := range fe.Params {
		ptys = append(ptys, g.paramType(p))
	}

	f := g.c.NewFunction(name, g.c.FunctionTy(ret, ptys))
	g.m.AddFunction(f)
	g.fns[name] = f

	g.f = f
	g.blk = g.c.NewBasicBlock(f)

	// Every parameter gets a stack slot holding the incoming value.
	scope := g.tbl.Block(n.Attrs.BlockID)
	for i, p := range fe.Params {
		slot := g.insert(g.c.NewAlloca(ptys[i]))
		g.insert(g.c.NewStore(f.Args()[i], slot))

		if scope != nil {
			if pe := scope.FindLocal(p.Ident); pe != nil {
				g.addr[pe] = slot
			}
		}
	}

	if body := n.DirectChild(ast.Block, 1); body != nil {
		g.genBlock(body)
	}

	g.finishFunction()
}

func (g *Generator) genMainFuncDef(n *ast.Node) {
	f := g.c.NewFunction("main", g.c.FunctionTy(g.c.Int32Ty(), nil))
	g.m.AddFunction(f)
	g.m.SetMain(f)
	g.fns["main"] = f

	g.f = f
	g.blk = g.c.NewBasicBlock(f)

	if body := n.DirectChild(ast.Block, 1); body != nil {
		g.genBlock(body)
	}

	g.finishFunction()
}

// finishFunction closes the open block so every block terminates.
func (g *Generator) finishFunction() {
	if g.blk == nil || g.blk.Terminated() {
		return
	}

	if g.f.ReturnType().IsVoid() {
		g.insert(g.c.NewReturn(nil))
	} else {
		g.insert(g.c.NewReturn(g.c.NewConstantInt(g.c.Int32Ty(), 0)))
	}
}

/*
 * ==================== statements ====================
 */

func (g *Generator) genBlock(n *ast.Node) {
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		if !item.Is(ast.BlockItem) {
			continue
		}

		child := item.FirstChild()
		if child == nil {
			continue
		}

		// Statements after a terminator are unreachable and dropped.
		if g.blk.Terminated() {
			break
		}

		switch child.Kind() {
		case ast.ConstDecl, ast.VarDecl:
			g.genLocalDecl(child)
		case ast.Stmt:
			g.genStmt(child)
		}
	}
}

func (g *Generator) genStmt(n *ast.Node) {
	if g.blk.Terminated() {
		return
	}

	stmt := n.FirstChild()
	if stmt == nil {
		return
	}

	switch stmt.Kind() {
	case ast.AssignmentStmt, ast.ForInitStmt, ast.ForStepStmt:
		g.genAssignment(stmt)

	case ast.InStmt:
		g.genInput(stmt)

	case ast.OutStmt:
		g.genOutput(stmt)

	case ast.ReturnStmt:
		g.genReturn(stmt)

	case ast.ExpStmt:
		if exp := stmt.DirectChild(ast.Exp, 1); exp != nil {
			g.genExp(exp)
		}

	case ast.Block:
		g.genBlock(stmt)

	case ast.IfStmt:
		g.genIf(stmt)

	case ast.ForStmt:
		g.genFor(stmt)

	case ast.BreakStmt:
		if len(g.loops) > 0 {
			g.insert(g.c.NewBranch(g.loops[len(g.loops)-1].brk))
		}

	case ast.ContinueStmt:
		if len(g.loops) > 0 {
			g.insert(g.c.NewBranch(g.loops[len(g.loops)-1].cont))
		}
	}
}

func (g *Generator) genLocalDecl(n *ast.Node) {
	for def := n.FirstChild(); def != nil; def = def.NextSibling() {
		switch def.Kind() {
		case ast.VarDef:
			g.genLocalDef(def, ast.InitVal)
		case ast.ConstDef:
			g.genLocalDef(def, ast.ConstInitVal)
		}
	}
}

func (g *Generator) genLocalDef(def *ast.Node, initKind ast.SyntaxKind) {
	name := def.FirstChild().Token().Lexeme

	entry := g.blockOf(def).Find(name)
	if entry == nil {
		return
	}

	dim, size := entryShape(entry)
	elem := g.elemType(dim, size)

	slot := g.insert(g.c.NewAlloca(elem))
	g.addr[entry] = slot

	iv := def.DirectChild(initKind, 1)
	if iv == nil {
		return
	}

	switch dim {
	case 0:
		v := g.genExp(iv.FirstChild())
		g.insert(g.c.NewStore(v, slot))

	case 1:
		i := 0
		for el := iv.FirstChild(); el != nil; el = el.NextSibling() {
			if !el.Is(initKind) {
				continue
			}

			addr := g.insert(g.c.NewGetElementPtr(slot, g.constInt(0), g.constInt(i)))
			g.insert(g.c.NewStore(g.genExp(el.FirstChild()), addr))
			i++
		}

	case 2:
		r := 0
		for row := iv.FirstChild(); row != nil; row = row.NextSibling() {
			if !row.Is(initKind) {
				continue
			}

			i := 0
			for el := row.FirstChild(); el != nil; el = el.NextSibling() {
				if !el.Is(initKind) {
					continue
				}

				addr := g.insert(g.c.NewGetElementPtr(slot, g.constInt(0), g.constInt(r), g.constInt(i)))
				g.insert(g.c.NewStore(g.genExp(el.FirstChild()), addr))
				i++
			}
			r++
		}
	}
}

func (g *Generator) genAssignment(n *ast.Node) {
	lval := n.DirectChild(ast.LVal, 1)
	exp := n.DirectChild(ast.Exp, 1)
	if lval == nil || exp == nil {
		return
	}

	addr := g.genLValAddr(lval)
	v := g.genExp(exp)

	if addr != nil && v != nil {
		g.insert(g.c.NewStore(v, addr))
	}
}

func (g *Generator) genInput(n *ast.Node) {
	lval := n.DirectChild(ast.LVal, 1)
	if lval == nil {
		return
	}

	v := g.insert(g.c.NewInput())

	if addr := g.genLValAddr(lval); addr != nil {
		g.insert(g.c.NewStore(v, addr))
	}
}

func (g *Generator) genReturn(n *ast.Node) {
	if exp := n.DirectChild(ast.Exp, 1); exp != nil {
		g.insert(g.c.NewReturn(g.genExp(exp)))
		return
	}

	g.insert(g.c.NewReturn(nil))
}

func (g *Generator) genOutput(n *ast.Node) {
	var format string

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.IsTerminal() && c.Token().Is(token.Format) {
			format = c.Token().Lexeme
			break
		}
	}

	split := newFormatSplitter(format)
	argNo := 0

	for {
		chunk, ok := split.next()
		if !ok {
			break
		}

		if chunk == "%d" {
			argNo++
			if exp := n.DirectChild(ast.Exp, argNo); exp != nil {
				g.insert(g.c.NewOutput(g.genExp(exp)))
			}
			continue
		}

		s := g.c.NewGlobalString(chunk, g.nextStringName())
		g.m.AddString(s)
		g.insert(g.c.NewOutput(s))
	}
}

func (g *Generator) nextStringName() string {
	name := ".str"
	if g.strs > 0 {
		name = fmt.Sprintf(".str.%d", g.strs)
	}
	g.strs++

	return name
}

/*
 * ==================== control flow ====================
 */

func (g *Generator) genIf(n *ast.Node) {
	cond := n.DirectChild(ast.Cond, 1)
	thenStmt := n.DirectChild(ast.Stmt, 1)
	elseStmt := n.DirectChild(ast.Stmt, 2)

	thenBlk := g.c.NewBasicBlock(g.f)

	var elseBlk *ir.BasicBlock
	if elseStmt != nil {
		elseBlk = g.c.NewBasicBlock(g.f)
	}

	endBlk := g.c.NewBasicBlock(g.f)

	falseBlk := endBlk
	if elseBlk != nil {
		falseBlk = elseBlk
	}

	if cond != nil {
		g.genCondBr(cond, thenBlk, falseBlk)
	} else {
		g.insert(g.c.NewBranch(thenBlk))
	}

	g.blk = thenBlk
	if thenStmt != nil {
		g.genStmt(thenStmt)
	}
	if !g.blk.Terminated() {
		g.insert(g.c.NewBranch(endBlk))
	}

	if elseBlk != nil {
		g.blk = elseBlk
		g.genStmt(elseStmt)
		if !g.blk.Terminated() {
			g.insert(g.c.NewBranch(endBlk))
		}
	}

	g.blk = endBlk
}

func (g *Generator) genFor(n *ast.Node) {
	init := n.DirectChild(ast.ForInitStmt, 1)
	cond := n.DirectChild(ast.Cond, 1)
	step := n.DirectChild(ast.ForStepStmt, 1)
	body := n.DirectChild(ast.Stmt, 1)

	if init != nil {
		g.genAssignment(init)
	}

	var condBlk *ir.BasicBlock
	if cond != nil {
		condBlk = g.c.NewBasicBlock(g.f)
	}

	bodyBlk := g.c.NewBasicBlock(g.f)

	var stepBlk *ir.BasicBlock
	if step != nil {
		stepBlk = g.c.NewBasicBlock(g.f)
	}

	endBlk := g.c.NewBasicBlock(g.f)

	head := bodyBlk
	if condBlk != nil {
		head = condBlk
	}

	cont := head
	if stepBlk != nil {
		cont = stepBlk
	}

	g.insert(g.c.NewBranch(head))

	if condBlk != nil {
		g.blk = condBlk
		g.genCondBr(cond, bodyBlk, endBlk)
	}

	g.blk = bodyBlk
	g.loops = append(g.loops, loop{cont: cont, brk: endBlk})
	if body != nil {
		g.genStmt(body)
	}
	g.loops = g.loops[:len(g.loops)-1]

	if !g.blk.Terminated() {
		g.insert(g.c.NewBranch(cont))
	}

	if stepBlk != nil {
		g.blk = stepBlk
		g.genAssignment(step)
		g.insert(g.c.NewBranch(head))
	}

	g.blk = endBlk
}

// genCondBr lowers a condition subtree into branches, short-circuiting
// || and &&.
func (g *Generator) genCondBr(n *ast.Node, ifTrue, ifFalse *ir.BasicBlock) {
	switch n.Kind() {
	case ast.Cond:
		g.genCondBr(n.FirstChild(), ifTrue, ifFalse)
		return

	case ast.OrExp:
		if n.HasManyChildren() {
			rhs := g.c.NewBasicBlock(g.f)
			g.genCondBr(n.FirstChild(), ifTrue, rhs)
			g.blk = rhs
			g.genCondBr(n.LastChild(), ifTrue, ifFalse)
			return
		}

		g.genCondBr(n.FirstChild(), ifTrue, ifFalse)
		return

	case ast.AndExp:
		if n.HasManyChildren() {
			rhs := g.c.NewBasicBlock(g.f)
			g.genCondBr(n.FirstChild(), rhs, ifFalse)
			g.blk = rhs
			g.genCondBr(n.LastChild(), ifTrue, ifFalse)
			return
		}

		g.genCondBr(n.FirstChild(), ifTrue, ifFalse)
		return

	case ast.EqExp, ast.RelExp:
		if n.HasManyChildren() {
			lhs := g.genExp(n.FirstChild())
			rhs := g.genExp(n.LastChild())
			op := n.ChildAt(1).Token().Lexeme

			cmp := g.insert(g.c.NewCompare(predicate(op), lhs, rhs))
			g.insert(g.c.NewCondBranch(cmp, ifTrue, ifFalse))
			return
		}

		g.genCondBr(n.FirstChild(), ifTrue, ifFalse)
		return
	}

	// Plain integer expression: true iff non-zero.
	v := g.genExp(n)
	cmp := g.insert(g.c.NewCompare(ir.Ne, v, g.constInt(0)))
	g.insert(g.c.NewCondBranch(cmp, ifTrue, ifFalse))
}

func predicate(op string) ir.Predicate {
	switch op {
	case "==":
		return ir.Eq
	case "!=":
		return ir.Ne
	case "<":
		return ir.Slt
	case "<=":
		return ir.Sle
	case ">":
		return ir.Sgt
	case ">=":
		return ir.Sge
	}

	return ir.Ne
}
