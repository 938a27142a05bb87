package asm

import (
	"strconv"
)

func (a *Assembler) File(name string) { a.Directive(".file\t" + EscapeString(name)) }
func (a *Assembler) Text()            { a.Directive("\t.text") }
func (a *Assembler) Data()            { a.Directive("\t.data") }

func (a *Assembler) Section(name string) { a.Directive("\t.section\t" + name) }

// SectionGroup emits the five-field form used for COMDAT groups, e.g.
// `.section .text.x,"axG",@progbits,x,comdat`.
func (a *Assembler) SectionGroup(name, flags, typ, group, linkage string) {
	a.Directive("\t.section\t" + name + "," + flags + "," + typ + "," + group + "," + linkage)
}

func (a *Assembler) Globl(sym string)  { a.Directive(".globl " + sym) }
func (a *Assembler) Local(sym string)  { a.Directive(".local " + sym) }
func (a *Assembler) Hidden(sym string) { a.Directive("\t.hidden\t" + sym) }

func (a *Assembler) Comm(sym string, size, alignment int64) {
	a.Directive("\t.comm\t" + sym + "," + strconv.FormatInt(size, 10) + "," + strconv.FormatInt(alignment, 10))
}

func (a *Assembler) Align(n int64) { a.Directive("\t.align\t" + strconv.FormatInt(n, 10)) }

// SymType emits `.type sym,typ` where typ is e.g. @object or @function.
func (a *Assembler) SymType(sym, typ string) { a.Directive("\t.type\t" + sym + "," + typ) }

func (a *Assembler) Size(sym string, size int64) { a.SizeExpr(sym, strconv.FormatInt(size, 10)) }

// SizeExpr takes the size as an assembler expression such as `.-main`.
func (a *Assembler) SizeExpr(sym, expr string) { a.Directive("\t.size\t" + sym + "," + expr) }

func (a *Assembler) Byte(n int64)  { a.Directive(".byte\t" + strconv.FormatInt(n, 10)) }
func (a *Assembler) Value(n int64) { a.Directive(".value\t" + strconv.FormatInt(n, 10)) }
func (a *Assembler) Long(n int64)  { a.Directive(".long\t" + strconv.FormatInt(n, 10)) }
func (a *Assembler) Quad(n int64)  { a.Directive(".quad\t" + strconv.FormatInt(n, 10)) }

func (a *Assembler) LongSymbol(sym string) { a.Directive(".long\t" + sym) }
func (a *Assembler) QuadSymbol(sym string) { a.Directive(".quad\t" + sym) }

func (a *Assembler) StringLit(s string) { a.Directive("\t.string\t" + EscapeString(s)) }
