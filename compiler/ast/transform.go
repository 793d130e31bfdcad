package ast

// The parser keeps the expression grammar LL(1) by parsing binary
// operator chains right-recursively: AddExp -> MulExp AddExpAux, with
// the aux node carrying the same kind. TransformRightRecursion reshapes
// those chains into left-associated binary trees, so AddExp becomes
// either a single operand or (AddExp op MulExp).

var binaryKinds = map[SyntaxKind]bool{
	AddExp: true,
	MulExp: true,
	OrExp:  true,
	AndExp: true,
	EqExp:  true,
	RelExp: true,
}

func TransformRightRecursion(t *Tree) {
	if t.root != nil {
		transform(t, t.root)
	}
}

func transform(t *Tree, n *Node) {
	// Children first, so nested chains are already in shape when the
	// outer one is rebuilt.
	for c := n.first; c != nil; {
		next := c.next
		transform(t, c)
		c = next
	}

	if !n.IsNonTerminal() || !binaryKinds[n.kind] {
		return
	}

	// A chain head has exactly [operand, aux] where aux repeats the
	// kind and starts with an operator terminal. An aux link itself
	// starts with the operator, which keeps it from matching here.
	if n.ChildCount() != 2 {
		return
	}

	aux := n.last
	if n.first.IsTerminal() || !aux.Is(n.kind) || aux.first == nil || !aux.first.IsTerminal() {
		return
	}

	first := n.first
	first.Unlink()

	var ops, operands []*Node

	for a := aux; a != nil; {
		op := a.first
		operand := op.next
		next := operand.next // nil or the nested aux

		op.Unlink()
		operand.Unlink()

		ops = append(ops, op)
		operands = append(operands, operand)

		a = next
	}

	left := t.NewNonTerminal(n.kind)
	left.InsertEndChild(first)

	for i := range ops {
		p := t.NewNonTerminal(n.kind)
		p.InsertEndChild(left)
		p.InsertEndChild(ops[i])
		p.InsertEndChild(operands[i])
		left = p
	}

	// Splice the rebuilt chain into n's place: n keeps its identity as
	// the top of the chain, adopting left's children.
	for c := n.first; c != nil; c = n.first {
		c.Unlink()
	}
	for c := left.first; c != nil; c = left.first {
		c.Unlink()
		n.InsertEndChild(c)
	}
}
