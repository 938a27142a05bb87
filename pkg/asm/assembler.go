package asm

import (
	"io"
)

// Assembler accumulates a listing. Every method appends exactly one element
// (or none, for the comment indent controls); nothing is ever reordered.
//
// Size-sensitive instructions resolve their suffix when they are appended.
// A width outside {1,2,4} is a bug in whoever chose the operand type, so the
// Assembler panics with a *WidthError instead of returning it.
type Assembler struct {
	elems         []Element
	natural       Sized
	commentIndent int
}

// NewAssembler returns an empty listing whose unannotated operations use
// natural as their operand width.
func NewAssembler(natural Sized) *Assembler {
	return &Assembler{natural: natural}
}

func (a *Assembler) NaturalType() Sized   { return a.natural }
func (a *Assembler) Elements() []Element { return append([]Element(nil), a.elems...) }
func (a *Assembler) Len() int            { return len(a.elems) }
func (a *Assembler) String() string      { return Render(a.elems) }

func (a *Assembler) WriteTo(w io.Writer) (int64, error) { return WriteListing(w, a.elems) }

// Append adds already-built elements, e.g. the output of another Assembler.
func (a *Assembler) Append(elems ...Element) { a.elems = append(a.elems, elems...) }

// Comment appends a comment tagged with the current indent level.
func (a *Assembler) Comment(text string) {
	a.elems = append(a.elems, Comment{Text: text, Indent: a.commentIndent})
}

func (a *Assembler) IndentComment() { a.commentIndent++ }

// UnindentComment never takes the level below zero.
func (a *Assembler) UnindentComment() {
	if a.commentIndent > 0 {
		a.commentIndent--
	}
}

func (a *Assembler) CommentIndent() int { return a.commentIndent }

func (a *Assembler) Label(name string)     { a.elems = append(a.elems, Label{Name: name}) }
func (a *Assembler) Directive(text string) { a.elems = append(a.elems, Directive{Text: text}) }

func (a *Assembler) insn(op, suffix string, operands ...Operand) {
	a.elems = append(a.elems, Instruction{Mnemonic: op, Suffix: suffix, Operands: operands})
}

func (a *Assembler) insnSized(t Sized, op string, operands ...Operand) {
	a.insn(op, mustSuffix(op, t.Size()), operands...)
}

func mustSuffix(op string, width int64) string {
	s, err := SuffixFor(width)
	if err != nil {
		panic(&WidthError{Width: width, Mnemonic: op})
	}
	return s
}

func mustDualSuffix(op string, from, to int64) string {
	return mustSuffix(op, from) + mustSuffix(op, to)
}

// Control transfer

func (a *Assembler) Jmp(label string) { a.insn("jmp", "", Mem(label)) }
func (a *Assembler) Jz(label string)  { a.insn("jz", "", Mem(label)) }
func (a *Assembler) Jnz(label string) { a.insn("jnz", "", Mem(label)) }
func (a *Assembler) Je(label string)  { a.insn("je", "", Mem(label)) }
func (a *Assembler) Jne(label string) { a.insn("jne", "", Mem(label)) }
func (a *Assembler) Jl(label string)  { a.insn("jl", "", Mem(label)) }
func (a *Assembler) Jg(label string)  { a.insn("jg", "", Mem(label)) }

// Call calls sym by relative address.
func (a *Assembler) Call(sym string) { a.insn("call", "", Mem(sym)) }

// CallAbsolute calls through the address held in reg.
func (a *Assembler) CallAbsolute(reg Register) { a.insn("call", "", AbsoluteAddress{Reg: reg}) }

func (a *Assembler) Ret() { a.insn("ret", "") }

// Data movement

func (a *Assembler) Mov(src, dest Operand)            { a.MovT(a.natural, src, dest) }
func (a *Assembler) MovT(t Sized, src, dest Operand) { a.insnSized(t, "mov", src, dest) }

// Movsx sign-extends a from-sized src into a to-sized dest.
func (a *Assembler) Movsx(from, to Sized, src, dest Operand) {
	a.insn("movs", mustDualSuffix("movs", from.Size(), to.Size()), src, dest)
}

// Movzx zero-extends a from-sized src into a to-sized dest.
func (a *Assembler) Movzx(from, to Sized, src, dest Operand) {
	a.insn("movz", mustDualSuffix("movz", from.Size(), to.Size()), src, dest)
}

func (a *Assembler) Movsbl(src, dest Operand) { a.insn("movs", "bl", src, dest) }
func (a *Assembler) Movswl(src, dest Operand) { a.insn("movs", "wl", src, dest) }

// Movzb zero-extends a byte into a t-sized dest.
func (a *Assembler) Movzb(t Sized, src, dest Operand) {
	a.insn("movz", "b"+mustSuffix("movz", t.Size()), src, dest)
}

func (a *Assembler) Movzbl(src, dest Operand) { a.insn("movz", "bl", src, dest) }
func (a *Assembler) Movzwl(src, dest Operand) { a.insn("movz", "wl", src, dest) }

func (a *Assembler) Lea(src, dest Operand)            { a.LeaT(a.natural, src, dest) }
func (a *Assembler) LeaT(t Sized, src, dest Operand) { a.insnSized(t, "lea", src, dest) }

// Arithmetic and bitwise operations

func (a *Assembler) Neg(t Sized, reg Register) { a.insnSized(t, "neg", reg) }
func (a *Assembler) Inc(t Sized, op Operand)   { a.insnSized(t, "inc", op) }
func (a *Assembler) Dec(t Sized, op Operand)   { a.insnSized(t, "dec", op) }

func (a *Assembler) Add(diff, base Operand)            { a.AddT(a.natural, diff, base) }
func (a *Assembler) AddT(t Sized, diff, base Operand) { a.insnSized(t, "add", diff, base) }
func (a *Assembler) Sub(diff, base Operand)            { a.SubT(a.natural, diff, base) }
func (a *Assembler) SubT(t Sized, diff, base Operand) { a.insnSized(t, "sub", diff, base) }

func (a *Assembler) Imul(m Operand, base Register) { a.ImulT(a.natural, m, base) }
func (a *Assembler) ImulT(t Sized, m Operand, base Register) {
	a.insnSized(t, "imul", m, base)
}

// Cltd sign-extends %eax into %edx:%eax ahead of Idiv.
func (a *Assembler) Cltd() { a.insn("cltd", "") }

// Div and Idiv divide %edx:%eax (at width t) by base; the caller sets up
// %edx first.
func (a *Assembler) Div(t Sized, base Register)  { a.insnSized(t, "div", base) }
func (a *Assembler) Idiv(t Sized, base Register) { a.insnSized(t, "idiv", base) }

func (a *Assembler) Not(t Sized, reg Register)                { a.insnSized(t, "not", reg) }
func (a *Assembler) And(t Sized, bits Operand, base Register) { a.insnSized(t, "and", bits, base) }
func (a *Assembler) Or(t Sized, bits Operand, base Register)  { a.insnSized(t, "or", bits, base) }
func (a *Assembler) Xor(t Sized, bits Operand, base Register) { a.insnSized(t, "xor", bits, base) }

// Shifts take the count in a register (normally %cl).
func (a *Assembler) Sar(t Sized, bits, base Register) { a.insnSized(t, "sar", bits, base) }
func (a *Assembler) Sal(t Sized, bits, base Register) { a.insnSized(t, "sal", bits, base) }
func (a *Assembler) Shr(t Sized, bits, base Register) { a.insnSized(t, "shr", bits, base) }

// Comparison and flags

func (a *Assembler) Cmp(t Sized, x Operand, y Register) { a.insnSized(t, "cmp", x, y) }
func (a *Assembler) Test(t Sized, x, y Register)        { a.insnSized(t, "test", x, y) }

func (a *Assembler) Sete(reg Register)  { a.insn("sete", "", reg) }
func (a *Assembler) Setne(reg Register) { a.insn("setne", "", reg) }
func (a *Assembler) Seta(reg Register)  { a.insn("seta", "", reg) }
func (a *Assembler) Setae(reg Register) { a.insn("setae", "", reg) }
func (a *Assembler) Setb(reg Register)  { a.insn("setb", "", reg) }
func (a *Assembler) Setbe(reg Register) { a.insn("setbe", "", reg) }
func (a *Assembler) Setg(reg Register)  { a.insn("setg", "", reg) }
func (a *Assembler) Setge(reg Register) { a.insn("setge", "", reg) }
func (a *Assembler) Setl(reg Register)  { a.insn("setl", "", reg) }
func (a *Assembler) Setle(reg Register) { a.insn("setle", "", reg) }

// Stack

func (a *Assembler) Push(reg Register) { a.insnSized(a.natural, "push", reg) }
func (a *Assembler) Pop(reg Register)  { a.insnSized(a.natural, "pop", reg) }
