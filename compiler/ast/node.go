package ast

import (
	"github.com/tomic-lang/tomic/compiler/token"
)

type (
	nodeClass int

	// Attrs are the decorations the semantic analyzer leaves on a node.
	// The key set is closed, so plain fields instead of a map.
	Attrs struct {
		Det       bool
		Value     int
		Dim       int
		BlockID   int // 0 means no block attached
		Corrupted bool
		Op        string
	}

	// Node is one syntax tree node. Nodes are owned by their Tree and
	// linked both ways: parent/child and prev/next sibling.
	Node struct {
		tree *Tree

		parent *Node
		prev   *Node
		next   *Node
		first  *Node
		last   *Node

		class nodeClass
		kind  SyntaxKind
		tok   token.Token

		Attrs Attrs
	}
)

const (
	classNonTerminal nodeClass = iota
	classTerminal
	classEpsilon
)

func (n *Node) Kind() SyntaxKind   { return n.kind }
func (n *Node) Token() token.Token { return n.tok }

func (n *Node) IsNonTerminal() bool { return n.class == classNonTerminal }
func (n *Node) IsTerminal() bool    { return n.class == classTerminal }
func (n *Node) IsEpsilon() bool     { return n.class == classEpsilon }

func (n *Node) Is(k SyntaxKind) bool { return n.class == classNonTerminal && n.kind == k }

func (n *Node) Parent() *Node      { return n.parent }
func (n *Node) FirstChild() *Node  { return n.first }
func (n *Node) LastChild() *Node   { return n.last }
func (n *Node) NextSibling() *Node { return n.next }
func (n *Node) PrevSibling() *Node { return n.prev }

func (n *Node) HasChildren() bool     { return n.first != nil }
func (n *Node) HasManyChildren() bool { return n.first != nil && n.first != n.last }

// Root of the (sub)tree this node belongs to.
func (n *Node) Root() *Node {
	r := n
	for r.parent != nil {
		r = r.parent
	}

	return r
}

// ChildAt returns the i-th child, zero based, nil when out of range.
func (n *Node) ChildAt(i int) *Node {
	c := n.first
	for ; c != nil && i > 0; i-- {
		c = c.next
	}

	return c
}

func (n *Node) ChildCount() int {
	cnt := 0
	for c := n.first; c != nil; c = c.next {
		cnt++
	}

	return cnt
}

// DirectChild returns the index-th (1 based) direct child of the kind.
func (n *Node) DirectChild(k SyntaxKind, index int) *Node {
	for c := n.first; c != nil; c = c.next {
		if c.Is(k) {
			index--
			if index == 0 {
				return c
			}
		}
	}

	return nil
}

func (n *Node) CountDirect(k SyntaxKind) int {
	cnt := 0
	for c := n.first; c != nil; c = c.next {
		if c.Is(k) {
			cnt++
		}
	}

	return cnt
}

func (n *Node) CountDirectTerminal(k token.Kind) int {
	cnt := 0
	for c := n.first; c != nil; c = c.next {
		if c.IsTerminal() && c.tok.Kind == k {
			cnt++
		}
	}

	return cnt
}

// FindChild searches the subtree, depth first, for the first node of
// the kind. The node itself counts.
func (n *Node) FindChild(k SyntaxKind) *Node {
	if n.Is(k) {
		return n
	}

	for c := n.first; c != nil; c = c.next {
		if f := c.FindChild(k); f != nil {
			return f
		}
	}

	return nil
}

func (n *Node) HasAncestor(k SyntaxKind) bool {
	for p := n.parent; p != nil; p = p.parent {
		if p.Is(k) {
			return true
		}
	}

	return false
}

// InheritedBlockID walks up from the node (inclusive) to the nearest
// scope-introducing ancestor and returns its block id, 0 if none.
func (n *Node) InheritedBlockID() int {
	for p := n; p != nil; p = p.parent {
		if p.Attrs.BlockID != 0 {
			return p.Attrs.BlockID
		}
	}

	return 0
}

// InsertEndChild appends child to the children list and returns it.
// The child must belong to the same tree and be unlinked.
func (n *Node) InsertEndChild(child *Node) *Node {
	n.adopt(child)

	if n.last == nil {
		n.first = child
		n.last = child
		return child
	}

	child.prev = n.last
	n.last.next = child
	n.last = child

	return child
}

func (n *Node) InsertFirstChild(child *Node) *Node {
	n.adopt(child)

	if n.first == nil {
		n.first = child
		n.last = child
		return child
	}

	child.next = n.first
	n.first.prev = child
	n.first = child

	return child
}

// InsertAfterChild inserts child right after a node that already is a
// child of n.
func (n *Node) InsertAfterChild(child, after *Node) *Node {
	if after == nil || after.parent != n {
		return nil
	}
	if after == n.last {
		return n.InsertEndChild(child)
	}

	n.adopt(child)

	child.prev = after
	child.next = after.next
	after.next.prev = child
	after.next = child

	return child
}

func (n *Node) adopt(child *Node) {
	if child.parent != nil {
		child.parent.unlink(child)
	}

	child.parent = n
	child.prev = nil
	child.next = nil
}

// unlink detaches child from n, keeping the subtree alive.
func (n *Node) unlink(child *Node) {
	if child.prev != nil {
		child.prev.next = child.next
	}
	if child.next != nil {
		child.next.prev = child.prev
	}
	if n.first == child {
		n.first = child.next
	}
	if n.last == child {
		n.last = child.prev
	}

	child.parent = nil
	child.prev = nil
	child.next = nil
}

// Unlink detaches the node from its parent, keeping the subtree alive.
func (n *Node) Unlink() {
	if n.parent != nil {
		n.parent.unlink(n)
	}
}
