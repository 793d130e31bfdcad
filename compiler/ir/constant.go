package ir

type (
	// ConstantData is a compile time constant: a scalar integer or an
	// ordered list of nested constants for an array initializer. An
	// all-zero aggregate collapses to zeroinitializer when printed.
	ConstantData struct {
		valueBase

		value   int
		elems   []*ConstantData
		allZero bool
	}

	// GlobalVariable is a named module-level slot. Its value type is a
	// pointer to the element type.
	GlobalVariable struct {
		valueBase

		constant bool
		init     *ConstantData
	}

	// GlobalString is an interned i8 array literal used by output
	// lowering. Its value type is a pointer to [len+1 x i8].
	GlobalString struct {
		valueBase

		value string
	}
)

// NewConstantInt makes a scalar constant of the type.
func (c *Context) NewConstantInt(typ *Type, value int) *ConstantData {
	v := &ConstantData{
		valueBase: valueBase{ctx: c, kind: ConstantDataVal, typ: typ},
		value:     value,
		allZero:   value == 0,
	}
	c.store(v)

	return v
}

// NewConstantArray wraps elements into an array constant.
func (c *Context) NewConstantArray(elems []*ConstantData) *ConstantData {
	allZero := true
	for _, e := range elems {
		if !e.allZero {
			allZero = false
			break
		}
	}

	var elemTy *Type
	if len(elems) > 0 {
		elemTy = elems[0].typ
	} else {
		elemTy = c.Int32Ty()
	}

	v := &ConstantData{
		valueBase: valueBase{ctx: c, kind: ConstantDataVal, typ: c.ArrayTy(elemTy, len(elems))},
		elems:     elems,
		allZero:   allZero,
	}
	c.store(v)

	return v
}

func (v *ConstantData) IsArray() bool   { return v.elems != nil }
func (v *ConstantData) IsAllZero() bool { return v.allZero }
func (v *ConstantData) IntValue() int   { return v.value }

func (v *ConstantData) Elems() []*ConstantData { return v.elems }

// NewGlobalVariable makes a global of the element type; its own type
// becomes the corresponding pointer. init may be nil, meaning zero.
func (c *Context) NewGlobalVariable(elem *Type, constant bool, name string, init *ConstantData) *GlobalVariable {
	v := &GlobalVariable{
		valueBase: valueBase{ctx: c, kind: GlobalVariableVal, typ: c.PointerTy(elem), name: name},
		constant:  constant,
		init:      init,
	}
	c.store(v)

	return v
}

func (v *GlobalVariable) IsConstant() bool           { return v.constant }
func (v *GlobalVariable) Initializer() *ConstantData { return v.init }

func (c *Context) NewGlobalString(value, name string) *GlobalString {
	elem := c.ArrayTy(c.Int8Ty(), len(value)+1) // trailing \00

	v := &GlobalString{
		valueBase: valueBase{ctx: c, kind: GlobalStringVal, typ: c.PointerTy(elem), name: name},
		value:     value,
	}
	c.store(v)

	return v
}

func (v *GlobalString) Value() string { return v.value }
