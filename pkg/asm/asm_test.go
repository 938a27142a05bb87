package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

func TestSuffixFor(t *testing.T) {
	for width, want := range map[int64]string{1: "b", 2: "w", 4: "l"} {
		got, err := SuffixFor(width)
		if err != nil {
			t.Fatalf("SuffixFor(%d): unexpected error %v", width, err)
		}
		if got != want {
			t.Errorf("SuffixFor(%d) = %q, want %q", width, got, want)
		}
	}
	for _, width := range []int64{0, 3, 8, 16, -1} {
		_, err := SuffixFor(width)
		if !errors.Is(err, ErrUnsupportedWidth) {
			t.Errorf("SuffixFor(%d): expected ErrUnsupportedWidth, got %v", width, err)
		}
		var we *WidthError
		if !errors.As(err, &we) || we.Width != width {
			t.Errorf("SuffixFor(%d): expected *WidthError naming the width, got %v", width, err)
		}
	}
}

func TestDualSuffix(t *testing.T) {
	got, err := DualSuffix(1, 4)
	if err != nil || got != "bl" {
		t.Fatalf("DualSuffix(1, 4) = %q, %v", got, err)
	}
	got, err = DualSuffix(2, 4)
	if err != nil || got != "wl" {
		t.Fatalf("DualSuffix(2, 4) = %q, %v", got, err)
	}
	if _, err := DualSuffix(1, 8); !errors.Is(err, ErrUnsupportedWidth) {
		t.Fatalf("DualSuffix(1, 8): expected error, got %v", err)
	}
}

func TestRenderPreservesOrder(t *testing.T) {
	a := NewAssembler(Long)
	a.Label("start")
	a.Directive("\t.text")
	a.Comment("hello")
	a.Ret()
	a.Label("end")

	got := lines(a.String())
	want := []string{"start:", "\t.text", "\t# hello", "\tret", "end:"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}
	if a.Len() != 5 || len(a.Elements()) != 5 {
		t.Fatalf("expected 5 elements, got %d", a.Len())
	}
}

func TestElementsIsACopy(t *testing.T) {
	a := NewAssembler(Long)
	a.Label("first")
	a.Label("second")
	want := a.String()

	elems := a.Elements()
	elems[0], elems[1] = elems[1], elems[0]
	_ = append(elems[:1], Label{Name: "intruder"})

	if got := a.String(); got != want {
		t.Fatalf("listing changed through Elements():\n%s", got)
	}
}

func TestCommentIndentation(t *testing.T) {
	a := NewAssembler(Long)
	a.Comment("init")
	a.IndentComment()
	a.Comment("body")
	a.UnindentComment()
	a.Comment("done")

	want := []Element{
		Comment{Text: "init", Indent: 0},
		Comment{Text: "body", Indent: 1},
		Comment{Text: "done", Indent: 0},
	}
	if diff := cmp.Diff(want, a.Elements()); diff != "" {
		t.Fatalf("elements mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"\t# init", "\t  # body", "\t# done"}, lines(a.String())); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestUnindentCommentStopsAtZero(t *testing.T) {
	a := NewAssembler(Long)
	a.UnindentComment()
	a.UnindentComment()
	a.Comment("x")
	if a.CommentIndent() != 0 {
		t.Fatalf("indent went below zero: %d", a.CommentIndent())
	}
	if got := a.String(); got != "\t# x\n" {
		t.Fatalf("got %q", got)
	}
}

func TestNaturalTypeDefaulting(t *testing.T) {
	eax, ebx := Reg(AX, Long), Reg(BX, Long)

	a := NewAssembler(Long)
	a.Mov(eax, ebx)
	a.Add(Imm(1), eax)
	a.Push(ebx)
	a.MovT(Byte, Reg(AX, Byte), Mem("c"))

	want := []string{
		"\tmovl\t%eax, %ebx",
		"\taddl\t$1, %eax",
		"\tpushl\t%ebx",
		"\tmovb\t%al, c",
	}
	if diff := cmp.Diff(want, lines(a.String())); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}

	w := NewAssembler(Word)
	w.Mov(Reg(AX, Word), Reg(BX, Word))
	w.MovT(Byte, Reg(AX, Byte), Reg(BX, Byte))
	want = []string{"\tmovw\t%ax, %bx", "\tmovb\t%al, %bl"}
	if diff := cmp.Diff(want, lines(w.String())); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestInstructionFamilies(t *testing.T) {
	eax, ecx, edx := Reg(AX, Long), Reg(CX, Long), Reg(DX, Long)
	a := NewAssembler(Long)
	a.Jmp("L1")
	a.Jz("L2")
	a.Jnz("L3")
	a.Je("L4")
	a.Jne("L5")
	a.Call("printf")
	a.CallAbsolute(eax)
	a.Movsx(Byte, Long, Ind(Reg(BP, Long), -4), eax)
	a.Movzx(Word, Long, Mem("s"), eax)
	a.Movsbl(Reg(AX, Byte), eax)
	a.Movswl(Reg(AX, Word), eax)
	a.Movzb(Word, Reg(AX, Byte), Reg(AX, Word))
	a.Movzbl(Reg(AX, Byte), eax)
	a.Movzwl(Reg(AX, Word), eax)
	a.Lea(Ind(Reg(BP, Long), 8), eax)
	a.Neg(Long, eax)
	a.Inc(Byte, Mem("flag"))
	a.Dec(Long, ecx)
	a.Sub(Imm(16), Reg(SP, Long))
	a.Imul(ecx, eax)
	a.Cltd()
	a.Idiv(Long, ecx)
	a.Div(Long, ecx)
	a.Not(Long, eax)
	a.And(Long, Imm(255), eax)
	a.Or(Long, ecx, eax)
	a.Xor(Long, edx, edx)
	a.Sal(Long, Reg(CX, Byte), eax)
	a.Sar(Long, Reg(CX, Byte), eax)
	a.Shr(Long, Reg(CX, Byte), eax)
	a.Cmp(Long, Imm(0), eax)
	a.Test(Long, eax, eax)
	a.Sete(Reg(AX, Byte))
	a.Setle(Reg(AX, Byte))
	a.Pop(Reg(BP, Long))
	a.Ret()

	want := []string{
		"\tjmp\tL1",
		"\tjz\tL2",
		"\tjnz\tL3",
		"\tje\tL4",
		"\tjne\tL5",
		"\tcall\tprintf",
		"\tcall\t*%eax",
		"\tmovsbl\t-4(%ebp), %eax",
		"\tmovzwl\ts, %eax",
		"\tmovsbl\t%al, %eax",
		"\tmovswl\t%ax, %eax",
		"\tmovzbw\t%al, %ax",
		"\tmovzbl\t%al, %eax",
		"\tmovzwl\t%ax, %eax",
		"\tleal\t8(%ebp), %eax",
		"\tnegl\t%eax",
		"\tincb\tflag",
		"\tdecl\t%ecx",
		"\tsubl\t$16, %esp",
		"\timull\t%ecx, %eax",
		"\tcltd",
		"\tidivl\t%ecx",
		"\tdivl\t%ecx",
		"\tnotl\t%eax",
		"\tandl\t$255, %eax",
		"\torl\t%ecx, %eax",
		"\txorl\t%edx, %edx",
		"\tsall\t%cl, %eax",
		"\tsarl\t%cl, %eax",
		"\tshrl\t%cl, %eax",
		"\tcmpl\t$0, %eax",
		"\ttestl\t%eax, %eax",
		"\tsete\t%al",
		"\tsetle\t%al",
		"\tpopl\t%ebp",
		"\tret",
	}
	if diff := cmp.Diff(want, lines(a.String())); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestDirectives(t *testing.T) {
	a := NewAssembler(Long)
	a.File("t.cb")
	a.Text()
	a.Data()
	a.Section(".rodata")
	a.SectionGroup(".text.__x86.get_pc_thunk.bx", `"axG"`, "@progbits", "__x86.get_pc_thunk.bx", "comdat")
	a.Globl("main")
	a.Local("x.0")
	a.Hidden("thunk")
	a.Comm("buf", 64, 4)
	a.Align(4)
	a.SymType("main", "@function")
	a.Size("x", 4)
	a.SizeExpr("main", ".-main")
	a.Byte(1)
	a.Value(2)
	a.Long(-3)
	a.LongSymbol(".LC0")
	a.Quad(4)
	a.QuadSymbol("x")
	a.StringLit("hi\n")

	want := []string{
		".file\t\"t.cb\"",
		"\t.text",
		"\t.data",
		"\t.section\t.rodata",
		"\t.section\t.text.__x86.get_pc_thunk.bx,\"axG\",@progbits,__x86.get_pc_thunk.bx,comdat",
		".globl main",
		".local x.0",
		"\t.hidden\tthunk",
		"\t.comm\tbuf,64,4",
		"\t.align\t4",
		"\t.type\tmain,@function",
		"\t.size\tx,4",
		"\t.size\tmain,.-main",
		".byte\t1",
		".value\t2",
		".long\t-3",
		".long\t.LC0",
		".quad\t4",
		".quad\tx",
		"\t.string\t\"hi\\n\"",
	}
	if diff := cmp.Diff(want, lines(a.String())); diff != "" {
		t.Fatalf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestOperandSyntax(t *testing.T) {
	tests := []struct {
		op   Operand
		want string
	}{
		{Register{Name: "eax"}, "%eax"},
		{Imm(-7), "$-7"},
		{Mem("x"), "x"},
		{DirectMemoryReference{Symbol: "x", Offset: 4}, "x+4"},
		{DirectMemoryReference{Symbol: "x", Offset: -4}, "x-4"},
		{Ind(Reg(BP, Long), 0), "(%ebp)"},
		{Ind(Reg(BP, Long), -12), "-12(%ebp)"},
		{AbsoluteAddress{Reg: Reg(DX, Long)}, "*%edx"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("%#v: got %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestEscapeString(t *testing.T) {
	tests := map[string]string{
		"":             `""`,
		"plain":        `"plain"`,
		"a\"b":         `"a\"b"`,
		`back\slash`:   `"back\\slash"`,
		"tab\tnl\n":    `"tab\tnl\n"`,
		"\r\f\b":       `"\r\f\b"`,
		"\x01\x7f\xff": `"\001\177\377"`,
	}
	for in, want := range tests {
		if got := EscapeString(in); got != want {
			t.Errorf("EscapeString(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestUnsupportedWidthPanics(t *testing.T) {
	a := NewAssembler(Quad)
	defer func() {
		r := recover()
		we, ok := r.(*WidthError)
		if !ok {
			t.Fatalf("expected *WidthError panic, got %#v", r)
		}
		if we.Width != 8 || we.Mnemonic != "push" {
			t.Fatalf("unexpected error %v", we)
		}
		if a.Len() != 0 {
			t.Fatalf("nothing should be appended on failure, got %d elements", a.Len())
		}
	}()
	a.Push(Reg(BP, Long))
}

func TestInvalidRegisterClassPanics(t *testing.T) {
	for _, c := range []RegClass{-1, BP + 1} {
		func() {
			defer func() {
				r := recover()
				re, ok := r.(*RegisterError)
				if !ok {
					t.Fatalf("Reg(%d): expected *RegisterError panic, got %#v", c, r)
				}
				if re.Class != c || !errors.Is(re, ErrInvalidRegister) {
					t.Fatalf("Reg(%d): unexpected error %v", c, re)
				}
			}()
			Reg(c, Long)
		}()
	}
}

func TestWriteToMatchesString(t *testing.T) {
	a := NewAssembler(Long)
	a.Label("f")
	a.Push(Reg(BP, Long))
	a.Mov(Reg(SP, Long), Reg(BP, Long))
	var b strings.Builder
	n, err := a.WriteTo(&b)
	if err != nil {
		t.Fatal(err)
	}
	if b.String() != a.String() || int(n) != len(a.String()) {
		t.Fatalf("WriteTo wrote %q (%d), String is %q", b.String(), n, a.String())
	}
}

func TestAlign(t *testing.T) {
	if Align(5, 4) != 8 || Align(8, 4) != 8 || Align(0, 4) != 0 {
		t.Fatal("Align rounding is wrong")
	}
}
