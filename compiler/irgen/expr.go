package irgen

import (
	"github.com/tomic-lang/tomic/compiler/ast"
	"github.com/tomic-lang/tomic/compiler/ir"
	"github.com/tomic-lang/tomic/compiler/table"
)

func (g *Generator) constInt(v int) *ir.ConstantData {
	return g.c.NewConstantInt(g.c.Int32Ty(), v)
}

// genExp lowers an expression subtree to a value. Nodes the analyzer
// determined fold straight to constants. The result is never nil; a
// corrupted subtree lowers to 0 so one semantic error does not cascade.
func (g *Generator) genExp(n *ast.Node) ir.Value {
	if n == nil {
		return g.constInt(0)
	}

	if n.Attrs.Det {
		return g.constInt(n.Attrs.Value)
	}

	switch n.Kind() {
	case ast.Exp, ast.ConstExp, ast.Cond:
		return g.genExp(n.FirstChild())

	case ast.AddExp:
		return g.genBinary(n, map[string]ir.BinaryOp{"+": ir.Add, "-": ir.Sub})

	case ast.MulExp:
		return g.genBinary(n, map[string]ir.BinaryOp{"*": ir.Mul, "/": ir.Div, "%": ir.Mod})

	case ast.UnaryExp:
		return g.genUnary(n)

	case ast.PrimaryExp:
		if n.HasManyChildren() {
			// ( Exp )
			return g.genExp(n.ChildAt(1))
		}
		return g.genExp(n.FirstChild())

	case ast.LVal:
		return g.genLValValue(n)

	case ast.Number:
		return g.constInt(n.Attrs.Value)

	case ast.FuncCall:
		return g.genCall(n)

	case ast.OrExp, ast.AndExp, ast.EqExp, ast.RelExp:
		// A logical value in integer context: 0 or 1.
		return g.genCondValue(n)
	}

	return g.constInt(0)
}

func (g *Generator) genBinary(n *ast.Node, ops map[string]ir.BinaryOp) ir.Value {
	if !n.HasManyChildren() {
		return g.genExp(n.FirstChild())
	}

	lhs := g.genExp(n.FirstChild())
	op := n.ChildAt(1).Token().Lexeme
	rhs := g.genExp(n.LastChild())

	bop, ok := ops[op]
	if !ok {
		return g.constInt(0)
	}

	return g.insert(g.c.NewBinary(bop, lhs, rhs))
}

func (g *Generator) genUnary(n *ast.Node) ir.Value {
	first := n.FirstChild()

	if !first.Is(ast.UnaryOp) {
		return g.genExp(first)
	}

	switch first.Attrs.Op {
	case "+":
		return g.genExp(n.LastChild())
	case "-":
		return g.insert(g.c.NewUnary(ir.Neg, g.genExp(n.LastChild())))
	case "!":
		v := g.genExp(n.LastChild())
		cmp := g.insert(g.c.NewCompare(ir.Eq, v, g.constInt(0)))
		return g.insert(g.c.NewZExt(cmp, g.c.Int32Ty()))
	}

	return g.genExp(n.LastChild())
}

// genCondValue materializes a comparison chain as an i32 0/1.
func (g *Generator) genCondValue(n *ast.Node) ir.Value {
	if !n.HasManyChildren() {
		return g.genExp(n.FirstChild())
	}

	switch n.Kind() {
	case ast.EqExp, ast.RelExp:
		lhs := g.genExp(n.FirstChild())
		rhs := g.genExp(n.LastChild())
		op := n.ChildAt(1).Token().Lexeme

		cmp := g.insert(g.c.NewCompare(predicate(op), lhs, rhs))
		return g.insert(g.c.NewZExt(cmp, g.c.Int32Ty()))
	}

	// || and && outside a branching context: compare both sides with
	// zero and branchlessly combine. They only occur inside Cond in
	// practice, where genCondBr handles them.
	lhs := g.genCondValue(n.FirstChild())
	rhs := g.genCondValue(n.LastChild())

	lhs = g.insert(g.c.NewZExt(g.insert(g.c.NewCompare(ir.Ne, lhs, g.constInt(0))), g.c.Int32Ty()))
	rhs = g.insert(g.c.NewZExt(g.insert(g.c.NewCompare(ir.Ne, rhs, g.constInt(0))), g.c.Int32Ty()))

	cmp := g.insert(g.c.NewCompare(ir.Ne, g.insert(g.c.NewBinary(combineOp(n.Kind()), lhs, rhs)), g.constInt(0)))

	return g.insert(g.c.NewZExt(cmp, g.c.Int32Ty()))
}

func combineOp(k ast.SyntaxKind) ir.BinaryOp {
	if k == ast.AndExp {
		return ir.Mul
	}

	return ir.Add
}

func (g *Generator) genCall(n *ast.Node) ir.Value {
	name := n.FirstChild().Token().Lexeme

	callee, ok := g.fns[name]
	if !ok {
		return g.constInt(0)
	}

	var args []ir.Value
	if params := n.DirectChild(ast.FuncAParams, 1); params != nil {
		for c := params.FirstChild(); c != nil; c = c.NextSibling() {
			if c.Is(ast.FuncAParam) {
				args = append(args, g.genExp(c.FirstChild()))
			}
		}
	}

	return g.insert(g.c.NewCall(callee, args))
}

/*
 * ==================== lvalues ====================
 */

func (g *Generator) lvalParts(n *ast.Node) (e table.Entry, base ir.Value, idx []ir.Value) {
	name := n.FirstChild().Token().Lexeme

	e = g.blockOf(n).Find(name)
	if e == nil {
		return nil, nil, nil
	}

	base = g.addr[e]

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if c.Is(ast.Exp) {
			idx = append(idx, g.genExp(c))
		}
	}

	return e, base, idx
}

// genLValAddr computes the address of a fully indexed lvalue.
func (g *Generator) genLValAddr(n *ast.Node) ir.Value {
	e, base, idx := g.lvalParts(n)
	if base == nil {
		return nil
	}

	return g.addrFrom(e, base, idx)
}

func (g *Generator) addrFrom(e table.Entry, base ir.Value, idx []ir.Value) ir.Value {
	dim, _ := entryShape(e)

	if dim == 0 || len(idx) == 0 {
		return base
	}

	if base.Type().Elem().IsPointer() {
		// Array parameter: the slot holds the decayed pointer.
		p := g.insert(g.c.NewLoad(base))
		return g.insert(g.c.NewGetElementPtr(p, idx...))
	}

	args := append([]ir.Value{g.constInt(0)}, idx...)

	return g.insert(g.c.NewGetElementPtr(base, args...))
}

// genLValValue is an lvalue in expression position: a scalar loads from
// its address, a partially indexed array decays to an element pointer
// for passing as an argument.
func (g *Generator) genLValValue(n *ast.Node) ir.Value {
	e, base, idx := g.lvalParts(n)
	if base == nil {
		return g.constInt(0)
	}

	dim, _ := entryShape(e)
	rest := dim - len(idx)

	if rest < 0 {
		rest = 0
	}

	if rest == 0 {
		return g.insert(g.c.NewLoad(g.addrFrom(e, base, idx)))
	}

	// Decay: the address of element 0 of what the indices selected.
	if base.Type().Elem().IsPointer() {
		p := g.insert(g.c.NewLoad(base))
		if len(idx) == 0 {
			return p
		}

		args := append(idx[:len(idx):len(idx)], g.constInt(0))
		return g.insert(g.c.NewGetElementPtr(p, args...))
	}

	args := append([]ir.Value{g.constInt(0)}, idx...)
	args = append(args, g.constInt(0))

	return g.insert(g.c.NewGetElementPtr(base, args...))
}

/*
 * ==================== format splitting ====================
 */

// formatSplitter yields the chunks of a printf format string in order:
// literal runs and "%d" specifiers. The surrounding quotes of the
// lexeme are dropped.
type formatSplitter struct {
	s string
	i int
}

func newFormatSplitter(lexeme string) *formatSplitter {
	s := lexeme
	if len(s) > 0 && s[0] == '"' {
		s = s[1:]
	}
	if len(s) > 0 && s[len(s)-1] == '"' {
		s = s[:len(s)-1]
	}

	return &formatSplitter{s: s}
}

func (f *formatSplitter) next() (chunk string, ok bool) {
	if f.i >= len(f.s) {
		return "", false
	}

	if f.s[f.i] == '%' && f.i+1 < len(f.s) && f.s[f.i+1] == 'd' {
		f.i += 2
		return "%d", true
	}

	st := f.i
	for f.i < len(f.s) {
		if f.s[f.i] == '%' && f.i+1 < len(f.s) && f.s[f.i+1] == 'd' {
			break
		}
		f.i++
	}

	return f.s[st:f.i], true
}
