// Package asm models an AT&T-syntax assembly listing: operands, program
// elements, and an Assembler that appends them in order and renders the
// result for the GNU assembler.
package asm

import (
	"errors"
	"fmt"
	"strconv"
)

// Operand is one instruction argument. The set of addressing modes is closed:
// Register, Immediate, DirectMemoryReference, IndirectMemoryReference and
// AbsoluteAddress are the only implementations.
type Operand interface {
	isOperand()
	String() string
}

type Register struct{ Name string }
type Immediate struct{ Value int64 }
type DirectMemoryReference struct {
	Symbol string
	Offset int64
}
type IndirectMemoryReference struct {
	Base   Register
	Offset int64
}
type AbsoluteAddress struct{ Reg Register }

func (Register) isOperand()                {}
func (Immediate) isOperand()               {}
func (DirectMemoryReference) isOperand()   {}
func (IndirectMemoryReference) isOperand() {}
func (AbsoluteAddress) isOperand()         {}

func (r Register) String() string  { return "%" + r.Name }
func (i Immediate) String() string { return "$" + strconv.FormatInt(i.Value, 10) }

func (m DirectMemoryReference) String() string {
	switch {
	case m.Offset > 0:
		return m.Symbol + "+" + strconv.FormatInt(m.Offset, 10)
	case m.Offset < 0:
		return m.Symbol + strconv.FormatInt(m.Offset, 10)
	default:
		return m.Symbol
	}
}

func (m IndirectMemoryReference) String() string {
	if m.Offset == 0 {
		return "(" + m.Base.String() + ")"
	}
	return strconv.FormatInt(m.Offset, 10) + "(" + m.Base.String() + ")"
}

func (a AbsoluteAddress) String() string { return "*" + a.Reg.String() }

// Mem returns a direct reference to sym.
func Mem(sym string) DirectMemoryReference { return DirectMemoryReference{Symbol: sym} }

// Imm returns an immediate integer operand.
func Imm(n int64) Immediate { return Immediate{Value: n} }

// Ind returns an indirect reference off(base).
func Ind(base Register, off int64) IndirectMemoryReference {
	return IndirectMemoryReference{Base: base, Offset: off}
}

// RegClass names an i386 general purpose register independently of the
// access width.
type RegClass int

const (
	AX RegClass = iota
	BX
	CX
	DX
	SI
	DI
	SP
	BP
)

var regBase = [...]string{"ax", "bx", "cx", "dx", "si", "di", "sp", "bp"}

var ErrInvalidRegister = errors.New("invalid register class")

// RegisterError reports a RegClass outside AX..BP.
type RegisterError struct {
	Class RegClass
}

func (e *RegisterError) Error() string { return fmt.Sprintf("%v: %d", ErrInvalidRegister, int(e.Class)) }
func (e *RegisterError) Unwrap() error { return ErrInvalidRegister }

// Reg returns the register of class c accessed with the given width.
// c must be one of AX..BP. Byte access only exists for AX..DX; asking for
// one elsewhere, or for a width outside {1,2,4}, is an internal error.
func Reg(c RegClass, width Sized) Register {
	if c < AX || c > BP {
		panic(&RegisterError{Class: c})
	}
	base := regBase[c]
	switch width.Size() {
	case 1:
		if c > DX {
			panic(&WidthError{Width: 1, Mnemonic: "%" + base})
		}
		return Register{Name: base[:1] + "l"}
	case 2:
		return Register{Name: base}
	case 4:
		return Register{Name: "e" + base}
	default:
		panic(&WidthError{Width: width.Size(), Mnemonic: "%" + base})
	}
}
