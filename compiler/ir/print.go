package ir

import (
	"github.com/nikandfor/hacked/hfmt"
)

// The printer renders a module to LLVM-compatible text. Values print in
// three forms: asm (the defining line), use (type and name) and name
// alone; which one applies where is fixed by the instruction formats.

type printer struct {
	b []byte
}

// Asm renders the whole module.
func (m *Module) Asm() []byte {
	p := &printer{}

	for _, f := range m.funcs {
		if f.builtin {
			p.b = hfmt.Appendf(p.b, "declare dso_local %v @%s(", f.ReturnType(), f.Name())
			for i, pt := range f.Type().Params() {
				if i != 0 {
					p.b = append(p.b, ", "...)
				}
				p.b = pt.append(p.b)
			}
			p.b = append(p.b, ")\n"...)
		}
	}

	if len(m.globals) > 0 || len(m.strings) > 0 {
		p.b = append(p.b, '\n')
	}

	for _, g := range m.globals {
		p.globalAsm(g)
	}
	for _, s := range m.strings {
		p.stringAsm(s)
	}

	for _, f := range m.funcs {
		if !f.builtin {
			p.funcAsm(f)
		}
	}

	return p.b
}

func (p *printer) globalAsm(g *GlobalVariable) {
	p.b = append(p.b, '@')
	p.b = append(p.b, g.Name()...)
	p.b = append(p.b, " = dso_local "...)

	if g.constant {
		p.b = append(p.b, "constant "...)
	} else {
		p.b = append(p.b, "global "...)
	}

	if g.init != nil {
		p.constantAsm(g.init)
	} else {
		elem := g.Type().Elem()
		p.b = elem.append(p.b)
		if elem.IsArray() {
			p.b = append(p.b, " zeroinitializer"...)
		} else {
			p.b = append(p.b, " 0"...)
		}
	}

	p.b = append(p.b, '\n')
}

func (p *printer) constantAsm(c *ConstantData) {
	p.b = c.Type().append(p.b)
	p.b = append(p.b, ' ')
	p.constantName(c)
}

func (p *printer) constantName(c *ConstantData) {
	if !c.IsArray() {
		p.b = hfmt.Appendf(p.b, "%d", c.value)
		return
	}

	if c.allZero {
		p.b = append(p.b, "zeroinitializer"...)
		return
	}

	p.b = append(p.b, '[')
	for i, e := range c.elems {
		if i != 0 {
			p.b = append(p.b, ", "...)
		}
		p.constantAsm(e)
	}
	p.b = append(p.b, ']')
}

// @.str = private unnamed_addr constant [3 x i8] c"x=\00", align 1
func (p *printer) stringAsm(s *GlobalString) {
	p.b = hfmt.Appendf(p.b, "@%s = private unnamed_addr constant ", s.Name())
	p.b = s.Type().Elem().append(p.b)
	p.b = append(p.b, ` c"`...)

	for i := 0; i < len(s.value); i++ {
		if s.value[i] == '\n' {
			p.b = append(p.b, `\0A`...)
		} else {
			p.b = append(p.b, s.value[i])
		}
	}

	p.b = append(p.b, `\00", align 1`...)
	p.b = append(p.b, '\n')
}

func (p *printer) funcAsm(f *Function) {
	// A void function is allowed to fall off the end of its last
	// block; give it the implicit return before numbering.
	if f.ReturnType().IsVoid() {
		if last := f.LastBlock(); last != nil && !last.Terminated() {
			last.Insert(f.ctx.NewReturn(nil))
		}
	}

	f.slots.Trace(f)

	p.b = append(p.b, '\n')
	p.b = hfmt.Appendf(p.b, "; Function type: %v\n", f.Type())
	p.b = hfmt.Appendf(p.b, "define dso_local %v @%s(", f.ReturnType(), f.Name())

	for i, a := range f.args {
		if i != 0 {
			p.b = append(p.b, ", "...)
		}
		p.b = a.Type().append(p.b)
		p.b = hfmt.Appendf(p.b, " %%%d", f.slots.Slot(a))
	}

	p.b = append(p.b, ") {\n"...)

	for i, blk := range f.blocks {
		if i != 0 {
			p.b = hfmt.Appendf(p.b, "%d:\n", f.slots.Slot(blk))
		}

		for _, in := range blk.insts {
			p.b = append(p.b, "    "...)
			p.instAsm(in)
		}
	}

	p.b = append(p.b, "}\n"...)
}

/*
 * ==================== names and uses ====================
 */

func funcOf(v Value) *Function {
	switch v := v.(type) {
	case *Argument:
		return v.parent
	case *BasicBlock:
		return v.parent
	case Instruction:
		if b := v.Parent(); b != nil {
			return b.parent
		}
	}

	return nil
}

func (p *printer) name(v Value) {
	switch v := v.(type) {
	case *ConstantData:
		p.constantName(v)
	case *GlobalVariable, *GlobalString, *Function:
		p.b = append(p.b, '@')
		p.b = append(p.b, v.Name()...)
	default:
		f := funcOf(v)
		if f == nil {
			p.b = append(p.b, "%?"...)
			return
		}
		p.b = hfmt.Appendf(p.b, "%%%d", f.slots.Slot(v))
	}
}

func (p *printer) use(v Value) {
	if _, ok := v.(*BasicBlock); ok {
		p.b = append(p.b, "label "...)
		p.name(v)
		return
	}

	p.b = v.Type().append(p.b)
	p.b = append(p.b, ' ')
	p.name(v)
}

/*
 * ==================== instructions ====================
 */

func (p *printer) instAsm(in Instruction) {
	switch in := in.(type) {
	case *AllocaInst:
		p.name(in)
		p.b = hfmt.Appendf(p.b, " = alloca %v\n", in.allocated)

	case *StoreInst:
		p.b = append(p.b, "store "...)
		p.use(in.Value())
		p.b = append(p.b, ", "...)
		p.use(in.Address())
		p.b = append(p.b, '\n')

	case *LoadInst:
		p.name(in)
		p.b = hfmt.Appendf(p.b, " = load %v, ", in.Type())
		p.use(in.Address())
		p.b = append(p.b, '\n')

	case *BinaryOperator:
		p.name(in)
		p.b = hfmt.Appendf(p.b, " = %s %v ", binaryOpcode(in.op), in.Type())
		p.name(in.LHS())
		p.b = append(p.b, ", "...)
		p.name(in.RHS())
		p.b = append(p.b, '\n')

	case *UnaryOperator:
		p.name(in)
		p.b = hfmt.Appendf(p.b, " = %s %v 0, ", unaryOpcode(in.op), in.Type())
		p.name(in.Operand())
		p.b = append(p.b, '\n')

	case *CompareInst:
		p.name(in)
		p.b = hfmt.Appendf(p.b, " = icmp %s %v ", predicateName(in.pred), in.LHS().Type())
		p.name(in.LHS())
		p.b = append(p.b, ", "...)
		p.name(in.RHS())
		p.b = append(p.b, '\n')

	case *ZExtInst:
		p.name(in)
		p.b = append(p.b, " = zext "...)
		p.use(in.Operand())
		p.b = hfmt.Appendf(p.b, " to %v\n", in.Type())

	case *GetElementPtrInst:
		p.name(in)
		p.b = hfmt.Appendf(p.b, " = getelementptr inbounds %v, ", in.Base().Type().Elem())
		p.use(in.Base())
		for _, idx := range in.Indices() {
			p.b = append(p.b, ", "...)
			p.use(idx)
		}
		p.b = append(p.b, '\n')

	case *BranchInst:
		p.b = append(p.b, "br "...)
		if in.IsConditional() {
			p.use(Operand(in, 0))
			p.b = append(p.b, ", "...)
			p.use(Operand(in, 1))
			p.b = append(p.b, ", "...)
			p.use(Operand(in, 2))
		} else {
			p.use(Operand(in, 0))
		}
		p.b = append(p.b, '\n')

	case *ReturnInst:
		p.b = append(p.b, "ret"...)
		if v := in.Value(); v != nil && !v.Type().IsVoid() {
			p.b = append(p.b, ' ')
			p.use(v)
		} else {
			p.b = append(p.b, " void"...)
		}
		p.b = append(p.b, '\n')

	case *CallInst:
		if !in.Type().IsVoid() {
			p.name(in)
			p.b = append(p.b, " = "...)
		}
		p.b = hfmt.Appendf(p.b, "call %v @%s(", in.callee.ReturnType(), in.callee.Name())
		for i, a := range in.Args() {
			if i != 0 {
				p.b = append(p.b, ", "...)
			}
			p.use(a)
		}
		p.b = append(p.b, ")\n"...)

	case *InputInst:
		p.name(in)
		p.b = hfmt.Appendf(p.b, " = call %v @%s()\n", in.Type(), in.Name())

	case *OutputInst:
		p.b = hfmt.Appendf(p.b, "call %v @%s(", in.Type(), in.Name())
		if in.IsInteger() {
			p.use(in.Value())
		} else {
			str := in.Value()
			p.b = hfmt.Appendf(p.b, "i8* getelementptr inbounds (%v, ", str.Type().Elem())
			p.use(str)
			p.b = append(p.b, ", i64 0, i64 0)"...)
		}
		p.b = append(p.b, ")\n"...)
	}
}

func binaryOpcode(op BinaryOp) string {
	switch op {
	case Add:
		return "add nsw"
	case Sub:
		return "sub nsw"
	case Mul:
		return "mul nsw"
	case Div:
		return "sdiv"
	case Mod:
		return "srem"
	}

	return "?op"
}

func unaryOpcode(op UnaryOp) string {
	switch op {
	case Pos:
		return "add nsw"
	case Neg:
		return "sub nsw"
	}

	return "?op"
}

func predicateName(pred Predicate) string {
	switch pred {
	case Eq:
		return "eq"
	case Ne:
		return "ne"
	case Slt:
		return "slt"
	case Sle:
		return "sle"
	case Sgt:
		return "sgt"
	case Sge:
		return "sge"
	}

	return "?pred"
}
