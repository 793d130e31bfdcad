package ast

import (
	"github.com/tomic-lang/tomic/compiler/token"
)

type (
	// Tree owns every node it ever created. Deleting a node only
	// detaches it; node identity is stable for the tree's lifetime.
	Tree struct {
		root  *Node
		nodes map[*Node]struct{}
	}

	// Visitor is the traversal interface used by the standard and XML
	// printers. VisitEnter/VisitExit wrap non-terminals, Visit
	// sees terminals and epsilons. Returning false prunes or stops.
	Visitor interface {
		VisitEnter(n *Node) bool
		Visit(n *Node) bool
		VisitExit(n *Node) bool
	}
)

func NewTree() *Tree {
	return &Tree{nodes: make(map[*Node]struct{})}
}

func (t *Tree) Root() *Node { return t.root }

func (t *Tree) SetRoot(root *Node) *Node {
	t.root = root
	return root
}

func (t *Tree) NewNonTerminal(kind SyntaxKind) *Node {
	n := &Node{tree: t, class: classNonTerminal, kind: kind}
	t.nodes[n] = struct{}{}

	return n
}

func (t *Tree) NewTerminal(tok token.Token) *Node {
	n := &Node{tree: t, class: classTerminal, tok: tok}
	t.nodes[n] = struct{}{}

	return n
}

func (t *Tree) NewEpsilon() *Node {
	n := &Node{tree: t, class: classEpsilon}
	t.nodes[n] = struct{}{}

	return n
}

// DeleteNode unlinks the node and forgets its whole subtree.
func (t *Tree) DeleteNode(n *Node) {
	if n == nil {
		return
	}

	n.Unlink()
	t.forget(n)

	if t.root == n {
		t.root = nil
	}
}

func (t *Tree) forget(n *Node) {
	delete(t.nodes, n)

	for c := n.first; c != nil; c = c.next {
		t.forget(c)
	}
}

// Accept traverses the whole tree with the visitor.
func (t *Tree) Accept(v Visitor) bool {
	if t.root == nil {
		return true
	}

	return accept(t.root, v)
}

func accept(n *Node, v Visitor) bool {
	if !n.IsNonTerminal() {
		return v.Visit(n)
	}

	if v.VisitEnter(n) {
		for c := n.first; c != nil; c = c.next {
			if !accept(c, v) {
				break
			}
		}
	}

	return v.VisitExit(n)
}
