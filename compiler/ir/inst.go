package ir

type (
	BinaryOp  int
	UnaryOp   int
	Predicate int

	// Instruction is a value that lives in a basic block.
	Instruction interface {
		Value

		Parent() *BasicBlock
		setParent(b *BasicBlock)
	}

	inst struct {
		valueBase

		parent *BasicBlock
	}

	// AllocaInst reserves a stack slot; its value is the address, so
	// the instruction type is a pointer to the allocated type.
	AllocaInst struct {
		inst

		allocated *Type
	}

	LoadInst struct {
		inst
	}

	StoreInst struct {
		inst
	}

	BinaryOperator struct {
		inst

		op BinaryOp
	}

	UnaryOperator struct {
		inst

		op UnaryOp
	}

	// CompareInst yields i1.
	CompareInst struct {
		inst

		pred Predicate
	}

	// ZExtInst widens an integer, used for i1 results in int context.
	ZExtInst struct {
		inst
	}

	// GetElementPtrInst computes an element address. Operand 0 is the
	// base pointer, the rest are indices.
	GetElementPtrInst struct {
		inst
	}

	// BranchInst is either unconditional (one block operand) or
	// conditional (i1, true block, false block).
	BranchInst struct {
		inst
	}

	ReturnInst struct {
		inst
	}

	CallInst struct {
		inst

		callee *Function
	}

	// InputInst is the getint builtin call; it yields an int.
	InputInst struct {
		inst
	}

	// OutputInst is a putint or putstr builtin call, depending on the
	// operand being an integer or a global string.
	OutputInst struct {
		inst
	}
)

const (
	Add BinaryOp = iota
	Sub
	Mul
	Div
	Mod
)

const (
	Pos UnaryOp = iota
	Neg
	Not
)

const (
	Eq Predicate = iota
	Ne
	Slt
	Sle
	Sgt
	Sge
)

func (i *inst) Parent() *BasicBlock     { return i.parent }
func (i *inst) setParent(b *BasicBlock) { i.parent = b }

func (c *Context) NewAlloca(allocated *Type) *AllocaInst {
	v := &AllocaInst{
		inst:      inst{valueBase: valueBase{ctx: c, kind: AllocaVal, typ: c.PointerTy(allocated)}},
		allocated: allocated,
	}
	c.store(v)

	return v
}

func (v *AllocaInst) AllocatedType() *Type { return v.allocated }

func (c *Context) NewLoad(address Value) *LoadInst {
	v := &LoadInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: LoadVal, typ: address.Type().Elem()}},
	}
	c.store(v)
	c.addUse(v, address, 0)

	return v
}

func (v *LoadInst) Address() Value { return Operand(v, 0) }

func (c *Context) NewStore(value, address Value) *StoreInst {
	v := &StoreInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: StoreVal, typ: c.VoidTy()}},
	}
	c.store(v)
	c.addUse(v, value, 0)
	c.addUse(v, address, 1)

	return v
}

func (v *StoreInst) Value() Value   { return Operand(v, 0) }
func (v *StoreInst) Address() Value { return Operand(v, 1) }

func (c *Context) NewBinary(op BinaryOp, lhs, rhs Value) *BinaryOperator {
	v := &BinaryOperator{
		inst: inst{valueBase: valueBase{ctx: c, kind: BinaryOperatorVal, typ: c.Int32Ty()}},
		op:   op,
	}
	c.store(v)
	c.addUse(v, lhs, 0)
	c.addUse(v, rhs, 1)

	return v
}

func (v *BinaryOperator) Op() BinaryOp { return v.op }
func (v *BinaryOperator) LHS() Value   { return Operand(v, 0) }
func (v *BinaryOperator) RHS() Value   { return Operand(v, 1) }

func (c *Context) NewUnary(op UnaryOp, operand Value) *UnaryOperator {
	v := &UnaryOperator{
		inst: inst{valueBase: valueBase{ctx: c, kind: UnaryOperatorVal, typ: c.Int32Ty()}},
		op:   op,
	}
	c.store(v)
	c.addUse(v, operand, 0)

	return v
}

func (v *UnaryOperator) Op() UnaryOp    { return v.op }
func (v *UnaryOperator) Operand() Value { return Operand(v, 0) }

func (c *Context) NewCompare(pred Predicate, lhs, rhs Value) *CompareInst {
	v := &CompareInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: CompareVal, typ: c.Int1Ty()}},
		pred: pred,
	}
	c.store(v)
	c.addUse(v, lhs, 0)
	c.addUse(v, rhs, 1)

	return v
}

func (v *CompareInst) Pred() Predicate { return v.pred }
func (v *CompareInst) LHS() Value      { return Operand(v, 0) }
func (v *CompareInst) RHS() Value      { return Operand(v, 1) }

func (c *Context) NewZExt(operand Value, to *Type) *ZExtInst {
	v := &ZExtInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: ZExtVal, typ: to}},
	}
	c.store(v)
	c.addUse(v, operand, 0)

	return v
}

func (v *ZExtInst) Operand() Value { return Operand(v, 0) }

// NewGetElementPtr computes the address of an element. The first index
// steps through the base pointer, every further one peels an array
// dimension off the pointee.
func (c *Context) NewGetElementPtr(base Value, indices ...Value) *GetElementPtrInst {
	elem := base.Type().Elem()
	for i := 1; i < len(indices); i++ {
		elem = elem.Elem()
	}

	v := &GetElementPtrInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: GetElementPtrVal, typ: c.PointerTy(elem)}},
	}
	c.store(v)

	c.addUse(v, base, 0)
	for i, idx := range indices {
		c.addUse(v, idx, i+1)
	}

	return v
}

func (v *GetElementPtrInst) Base() Value { return Operand(v, 0) }

func (v *GetElementPtrInst) Indices() []Value {
	ops := v.Operands()
	idx := make([]Value, 0, len(ops)-1)

	for _, u := range ops[1:] {
		idx = append(idx, u.Usee)
	}

	return idx
}

func (c *Context) NewBranch(target *BasicBlock) *BranchInst {
	v := &BranchInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: BranchVal, typ: c.VoidTy()}},
	}
	c.store(v)
	c.addUse(v, target, 0)

	return v
}

func (c *Context) NewCondBranch(cond Value, ifTrue, ifFalse *BasicBlock) *BranchInst {
	v := &BranchInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: BranchVal, typ: c.VoidTy()}},
	}
	c.store(v)
	c.addUse(v, cond, 0)
	c.addUse(v, ifTrue, 1)
	c.addUse(v, ifFalse, 2)

	return v
}

func (v *BranchInst) IsConditional() bool { return len(v.Operands()) == 3 }

func (c *Context) NewReturn(value Value) *ReturnInst {
	v := &ReturnInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: ReturnVal, typ: c.VoidTy()}},
	}
	c.store(v)

	if value != nil {
		c.addUse(v, value, 0)
	}

	return v
}

func (v *ReturnInst) Value() Value { return Operand(v, 0) }

func (c *Context) NewCall(callee *Function, args []Value) *CallInst {
	v := &CallInst{
		inst:   inst{valueBase: valueBase{ctx: c, kind: CallVal, typ: callee.ReturnType()}},
		callee: callee,
	}
	c.store(v)

	for i, a := range args {
		c.addUse(v, a, i)
	}

	return v
}

func (v *CallInst) Callee() *Function { return v.callee }

func (v *CallInst) Args() []Value {
	ops := v.Operands()
	args := make([]Value, 0, len(ops))

	for _, u := range ops {
		args = append(args, u.Usee)
	}

	return args
}

func (c *Context) NewInput() *InputInst {
	v := &InputInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: InputVal, typ: c.Int32Ty(), name: "getint"}},
	}
	c.store(v)

	return v
}

func (c *Context) NewOutput(value Value) *OutputInst {
	name := "putint"
	if value.Kind() == GlobalStringVal {
		name = "putstr"
	}

	v := &OutputInst{
		inst: inst{valueBase: valueBase{ctx: c, kind: OutputVal, typ: c.VoidTy(), name: name}},
	}
	c.store(v)
	c.addUse(v, value, 0)

	return v
}

func (v *OutputInst) Value() Value { return Operand(v, 0) }

func (v *OutputInst) IsInteger() bool { return v.Name() == "putint" }
