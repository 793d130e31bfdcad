package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomic-lang/tomic/compiler/token"
)

func checkLinks(t *testing.T, n *Node) {
	t.Helper()

	if n.FirstChild() == nil {
		assert.Nil(t, n.LastChild())
		return
	}

	require.NotNil(t, n.LastChild())
	assert.Nil(t, n.FirstChild().PrevSibling())
	assert.Nil(t, n.LastChild().NextSibling())

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		assert.Same(t, n, c.Parent())

		if c.NextSibling() != nil {
			assert.Same(t, c, c.NextSibling().PrevSibling())
		}

		checkLinks(t, c)
	}
}

func TestTreeInsert(t *testing.T) {
	tr := NewTree()

	root := tr.NewNonTerminal(CompUnit)
	a := root.InsertEndChild(tr.NewNonTerminal(Decl))
	c := root.InsertEndChild(tr.NewNonTerminal(MainFuncDef))
	b := root.InsertAfterChild(tr.NewNonTerminal(FuncDef), a)
	first := root.InsertFirstChild(tr.NewTerminal(token.New(token.Const)))

	checkLinks(t, root)

	assert.Same(t, first, root.FirstChild())
	assert.Same(t, c, root.LastChild())
	assert.Same(t, b, a.NextSibling())
	assert.Equal(t, 4, root.ChildCount())
	assert.Same(t, b, root.ChildAt(2))
}

func TestTreeDeleteNode(t *testing.T) {
	tr := NewTree()

	root := tr.SetRoot(tr.NewNonTerminal(CompUnit))
	decl := root.InsertEndChild(tr.NewNonTerminal(Decl))
	decl.InsertEndChild(tr.NewNonTerminal(VarDecl))
	main := root.InsertEndChild(tr.NewNonTerminal(MainFuncDef))

	tr.DeleteNode(decl)

	checkLinks(t, root)
	assert.Same(t, main, root.FirstChild())
	assert.Equal(t, 1, root.ChildCount())
}

func TestTreeUnlinkKeepsSubtree(t *testing.T) {
	tr := NewTree()

	root := tr.NewNonTerminal(CompUnit)
	decl := root.InsertEndChild(tr.NewNonTerminal(Decl))
	inner := decl.InsertEndChild(tr.NewNonTerminal(VarDecl))

	decl.Unlink()

	assert.Nil(t, decl.Parent())
	assert.Same(t, inner, decl.FirstChild())
	assert.Nil(t, root.FirstChild())
}

func TestNodeQueries(t *testing.T) {
	tr := NewTree()

	root := tr.NewNonTerminal(ConstDef)
	root.InsertEndChild(tr.NewTerminal(token.Token{Kind: token.Identifier, Lexeme: "a"}))
	root.InsertEndChild(tr.NewTerminal(token.New(token.LeftBracket)))
	e1 := root.InsertEndChild(tr.NewNonTerminal(ConstExp))
	root.InsertEndChild(tr.NewTerminal(token.New(token.RightBracket)))
	root.InsertEndChild(tr.NewTerminal(token.New(token.LeftBracket)))
	e2 := root.InsertEndChild(tr.NewNonTerminal(ConstExp))
	root.InsertEndChild(tr.NewTerminal(token.New(token.RightBracket)))

	assert.Equal(t, 2, root.CountDirect(ConstExp))
	assert.Equal(t, 2, root.CountDirectTerminal(token.LeftBracket))
	assert.Same(t, e1, root.DirectChild(ConstExp, 1))
	assert.Same(t, e2, root.DirectChild(ConstExp, 2))
	assert.Nil(t, root.DirectChild(ConstExp, 3))

	sub := e2.InsertEndChild(tr.NewNonTerminal(AddExp))
	assert.Same(t, sub, root.FindChild(AddExp))
	assert.True(t, sub.HasAncestor(ConstDef))
	assert.False(t, sub.HasAncestor(ForStmt))
}

// Build AddExp(MulExp(x), AddExp('+', MulExp(y), AddExp('-', MulExp(z))))
// by hand, the way the parser's right-recursive chain comes out, and
// verify the transformer reshapes it into ((x+y)-z).
func TestTransformRightRecursion(t *testing.T) {
	tr := NewTree()

	operand := func(name string) *Node {
		m := tr.NewNonTerminal(MulExp)
		m.InsertEndChild(tr.NewTerminal(token.Token{Kind: token.Identifier, Lexeme: name}))
		return m
	}

	aux2 := tr.NewNonTerminal(AddExp)
	aux2.InsertEndChild(tr.NewTerminal(token.Token{Kind: token.Minus, Lexeme: "-"}))
	aux2.InsertEndChild(operand("z"))

	aux1 := tr.NewNonTerminal(AddExp)
	aux1.InsertEndChild(tr.NewTerminal(token.Token{Kind: token.Plus, Lexeme: "+"}))
	aux1.InsertEndChild(operand("y"))
	aux1.InsertEndChild(aux2)

	top := tr.NewNonTerminal(AddExp)
	top.InsertEndChild(operand("x"))
	top.InsertEndChild(aux1)

	tr.SetRoot(top)
	TransformRightRecursion(tr)

	root := tr.Root()
	checkLinks(t, root)

	// (x+y) - z
	require.Equal(t, 3, root.ChildCount())
	assert.Equal(t, "-", root.ChildAt(1).Token().Lexeme)
	assert.True(t, root.LastChild().Is(MulExp))
	assert.Equal(t, "z", root.LastChild().FirstChild().Token().Lexeme)

	left := root.FirstChild()
	require.True(t, left.Is(AddExp))
	require.Equal(t, 3, left.ChildCount())
	assert.Equal(t, "+", left.ChildAt(1).Token().Lexeme)
	assert.Equal(t, "y", left.LastChild().FirstChild().Token().Lexeme)

	inner := left.FirstChild()
	require.True(t, inner.Is(AddExp))
	require.Equal(t, 1, inner.ChildCount())
	assert.Equal(t, "x", inner.FirstChild().FirstChild().Token().Lexeme)
}

func TestTransformLeavesSingleOperand(t *testing.T) {
	tr := NewTree()

	m := tr.NewNonTerminal(MulExp)
	m.InsertEndChild(tr.NewTerminal(token.Token{Kind: token.Identifier, Lexeme: "x"}))

	top := tr.NewNonTerminal(AddExp)
	top.InsertEndChild(m)

	tr.SetRoot(top)
	TransformRightRecursion(tr)

	assert.Equal(t, 1, tr.Root().ChildCount())
	assert.Same(t, m, tr.Root().FirstChild())
}
