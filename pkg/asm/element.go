package asm

import (
	"fmt"
	"io"
	"strings"
)

// Element is one line of the listing. Comment, Label, Directive and
// Instruction are the only implementations.
type Element interface{ isElement() }

type Comment struct {
	Text   string
	Indent int
}
type Label struct{ Name string }
type Directive struct{ Text string }
type Instruction struct {
	Mnemonic string
	Suffix   string
	Operands []Operand
}

func (Comment) isElement()     {}
func (Label) isElement()       {}
func (Directive) isElement()   {}
func (Instruction) isElement() {}

// Render serializes elements, one line each, in order.
func Render(elems []Element) string {
	var b strings.Builder
	for _, e := range elems {
		writeElement(&b, e)
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteListing streams the same text Render returns.
func WriteListing(w io.Writer, elems []Element) (int64, error) {
	var total int64
	var b strings.Builder
	for _, e := range elems {
		b.Reset()
		writeElement(&b, e)
		b.WriteByte('\n')
		n, err := io.WriteString(w, b.String())
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func writeElement(b *strings.Builder, e Element) {
	switch e := e.(type) {
	case Comment:
		b.WriteByte('\t')
		if e.Indent > 0 {
			b.WriteString(strings.Repeat("  ", e.Indent))
		}
		b.WriteString("# ")
		b.WriteString(e.Text)
	case Label:
		b.WriteString(e.Name)
		b.WriteByte(':')
	case Directive:
		b.WriteString(e.Text)
	case Instruction:
		b.WriteByte('\t')
		b.WriteString(e.Mnemonic)
		b.WriteString(e.Suffix)
		for i, op := range e.Operands {
			if i == 0 {
				b.WriteByte('\t')
			} else {
				b.WriteString(", ")
			}
			b.WriteString(op.String())
		}
	default:
		panic(fmt.Sprintf("asm: unknown element %T", e))
	}
}
