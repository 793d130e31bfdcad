package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockInsertAndFind(t *testing.T) {
	tbl := New()
	root := tbl.Root()

	ok := root.Insert(&Variable{Ident: "a", Type: Int})
	assert.True(t, ok)

	// Same block, same name: rejected.
	ok = root.Insert(&Constant{Ident: "a", Type: Int})
	assert.False(t, ok)

	e := root.FindLocal("a")
	require.NotNil(t, e)
	assert.IsType(t, &Variable{}, e)

	assert.Nil(t, root.FindLocal("b"))
}

func TestBlockLookupWalksToRoot(t *testing.T) {
	tbl := New()
	root := tbl.Root()

	root.Insert(&Variable{Ident: "g"})
	root.Insert(&Function{Ident: "f", Return: Int})

	inner := tbl.NewBlock(root)
	innermost := tbl.NewBlock(inner)

	inner.Insert(&Variable{Ident: "x"})

	assert.NotNil(t, innermost.Find("g"))
	assert.NotNil(t, innermost.Find("x"))
	assert.NotNil(t, innermost.Find("f"))
	assert.Nil(t, innermost.FindLocal("x"))
	assert.Nil(t, root.Find("x"))
}

func TestShadowing(t *testing.T) {
	tbl := New()
	root := tbl.Root()

	root.Insert(&Variable{Ident: "a", Dim: 0})

	inner := tbl.NewBlock(root)
	ok := inner.Insert(&Variable{Ident: "a", Dim: 1})
	assert.True(t, ok)

	v, ok := inner.Find("a").(*Variable)
	require.True(t, ok)
	assert.Equal(t, 1, v.Dim)

	v, ok = root.Find("a").(*Variable)
	require.True(t, ok)
	assert.Equal(t, 0, v.Dim)
}

func TestBlockByID(t *testing.T) {
	tbl := New()

	b2 := tbl.NewBlock(tbl.Root())
	b3 := tbl.NewBlock(b2)

	assert.Same(t, tbl.Root(), tbl.Block(tbl.Root().ID()))
	assert.Same(t, b2, tbl.Block(b2.ID()))
	assert.Same(t, b3, tbl.Block(b3.ID()))
	assert.Same(t, b2, b3.Parent())

	assert.Nil(t, tbl.Block(0))
	assert.Nil(t, tbl.Block(100))
}
