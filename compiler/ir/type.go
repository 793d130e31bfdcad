// Package ir is the intermediate representation: a Context that owns
// every type, value and use, a Module of globals and functions, and a
// textual printer producing LLVM-compatible assembly.
package ir

import (
	"github.com/nikandfor/hacked/hfmt"
)

type (
	TypeKind int

	// Type is an interned variant. Types are created only through the
	// Context, which guarantees that structurally equal types are the
	// same object, so identity compare is structural equality.
	Type struct {
		kind TypeKind

		bits int // integer

		elem  *Type // pointer, array
		count int   // array

		ret    *Type // function
		params []*Type
	}
)

const (
	VoidTyKind TypeKind = iota
	LabelTyKind
	IntegerTyKind
	PointerTyKind
	ArrayTyKind
	FunctionTyKind
)

func (t *Type) Kind() TypeKind { return t.kind }

func (t *Type) IsVoid() bool     { return t.kind == VoidTyKind }
func (t *Type) IsLabel() bool    { return t.kind == LabelTyKind }
func (t *Type) IsInteger() bool  { return t.kind == IntegerTyKind }
func (t *Type) IsPointer() bool  { return t.kind == PointerTyKind }
func (t *Type) IsArray() bool    { return t.kind == ArrayTyKind }
func (t *Type) IsFunction() bool { return t.kind == FunctionTyKind }

func (t *Type) Bits() int { return t.bits }

// Elem is the pointee of a pointer or the element of an array.
func (t *Type) Elem() *Type { return t.elem }

func (t *Type) Count() int { return t.count }

func (t *Type) Ret() *Type      { return t.ret }
func (t *Type) Params() []*Type { return t.params }

func (t *Type) String() string {
	return string(t.append(nil))
}

func (t *Type) append(b []byte) []byte {
	switch t.kind {
	case VoidTyKind:
		return append(b, "void"...)
	case LabelTyKind:
		return append(b, "label"...)
	case IntegerTyKind:
		return hfmt.Appendf(b, "i%d", t.bits)
	case PointerTyKind:
		b = t.elem.append(b)
		return append(b, '*')
	case ArrayTyKind:
		b = hfmt.Appendf(b, "[%d x ", t.count)
		b = t.elem.append(b)
		return append(b, ']')
	case FunctionTyKind:
		b = t.ret.append(b)
		b = append(b, " ("...)
		for i, p := range t.params {
			if i != 0 {
				b = append(b, ", "...)
			}
			b = p.append(b)
		}
		return append(b, ')')
	}

	return append(b, "?ty"...)
}
