// Package codegen lowers the classified globals of a unit into an i386
// assembly listing: the data section, read-only string literals, common
// symbols, and the optional position-independent code helper.
package codegen

import (
	"errors"
	"fmt"

	"github.com/xplshn/cbc/pkg/asm"
	"github.com/xplshn/cbc/pkg/config"
	"github.com/xplshn/cbc/pkg/entity"
	"github.com/xplshn/cbc/pkg/types"
	"github.com/xplshn/cbc/pkg/unit"
	"github.com/xplshn/cbc/pkg/util"
)

// PICThunk is the helper that loads the caller's return address into %ebx.
const PICThunk = "__x86.get_pc_thunk.bx"

// InitError reports an initializer that cannot be stored in its variable.
type InitError struct {
	Symbol string
	Type   *types.Type
	Reason string
}

func (e *InitError) Error() string {
	return fmt.Sprintf("cannot initialize '%s' of type %s: %s", e.Symbol, e.Type, e.Reason)
}

type generator struct {
	cfg     *config.Config
	unit    *unit.Unit
	asm     *asm.Assembler
	ptrSize int64
	verbose bool
	strings map[string]string
	literal []string
}

// Generate emits the listing for u. Listing-level invariant violations,
// such as an operand width the suffix resolver cannot encode, come back as
// a *asm.WidthError and no listing is returned.
func Generate(u *unit.Unit, cfg *config.Config) (a *asm.Assembler, err error) {
	g := &generator{
		cfg:     cfg,
		unit:    u,
		asm:     asm.NewAssembler(asm.Width(cfg.WordSize)),
		ptrSize: u.Types.PointerSize(),
		verbose: cfg.IsFeatureEnabled(config.FeatVerboseAsm),
		strings: make(map[string]string),
	}

	defer func() {
		if r := recover(); r != nil {
			we, ok := r.(*asm.WidthError)
			if !ok {
				panic(r)
			}
			a, err = nil, fmt.Errorf("%s: %w", u.File, we)
		}
	}()

	g.warnings()
	g.asm.File(u.File)
	if err := g.dataSection(); err != nil {
		return nil, err
	}
	g.rodataSection()
	g.commonSymbols()
	if cfg.IsFeatureEnabled(config.FeatPIC) {
		g.picThunk()
	}
	if cfg.IsFeatureEnabled(config.FeatGNUStack) {
		g.asm.Section(`.note.GNU-stack,"",@progbits`)
	}
	return g.asm, nil
}

// IsInternal reports whether err is a compiler bug rather than a problem
// with the input.
func IsInternal(err error) bool { return errors.Is(err, asm.ErrUnsupportedWidth) }

func (g *generator) warnings() {
	top := g.unit.Scope
	for _, v := range top.CommonSymbols() {
		util.Warn(g.cfg, config.WarnCommon, "'%s' is left to the linker as a common symbol", v.SymbolName())
	}
	for _, v := range top.ExternalVariables() {
		if !v.IsReferred() {
			util.Warn(g.cfg, config.WarnExternUnused, "extern variable '%s' is not referenced by any initializer", v.Name)
		}
	}
}

func (g *generator) comment(format string, args ...any) {
	if g.verbose {
		g.asm.Comment(fmt.Sprintf(format, args...))
	}
}

func (g *generator) dataSection() error {
	vars := g.unit.Scope.InitializedGlobals()
	if len(vars) == 0 {
		return nil
	}
	g.asm.Data()
	g.comment("initialized data")
	g.asm.IndentComment()
	defer g.asm.UnindentComment()
	for _, v := range vars {
		sym := v.SymbolName()
		g.comment("%s %s (%s)", v.Type, v.Name, v.Storage)
		if !v.IsPrivate() {
			g.asm.Globl(sym)
		}
		g.asm.Align(v.Alignment())
		g.asm.SymType(sym, "@object")
		g.asm.Size(sym, v.AllocSize())
		g.asm.Label(sym)
		if err := g.initializer(v); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) initializer(v *entity.Entity) error {
	in, t := v.Init, v.Type
	switch in.Kind {
	case entity.InitInt:
		if !t.IsScalar() {
			return &InitError{Symbol: v.SymbolName(), Type: t, Reason: "integer initializer for a non-scalar"}
		}
		if !fits(in.Int, t.Size()) {
			util.Warn(g.cfg, config.WarnExtra, "value %d does not fit in '%s' of type %s and is truncated", in.Int, v.SymbolName(), t)
		}
		g.immediate(t.Size(), in.Int)
	case entity.InitString:
		if !t.IsPointer() {
			return &InitError{Symbol: v.SymbolName(), Type: t, Reason: "string literal needs a pointer"}
		}
		g.address(g.literalLabel(in.Str))
	case entity.InitSymbol:
		if !t.IsPointer() && !(t.IsInteger() && t.Size() == g.ptrSize) {
			return &InitError{Symbol: v.SymbolName(), Type: t, Reason: "address does not fit"}
		}
		ref := asm.DirectMemoryReference{Symbol: in.Label(), Offset: in.Offset}
		g.address(ref.String())
	default:
		panic(fmt.Sprintf("unknown initializer kind %d", in.Kind))
	}
	return nil
}

func (g *generator) immediate(size, n int64) {
	switch size {
	case 1:
		g.asm.Byte(n)
	case 2:
		g.asm.Value(n)
	case 4:
		g.asm.Long(n)
	case 8:
		g.asm.Quad(n)
	default:
		panic(&asm.WidthError{Width: size})
	}
}

// fits reports whether n is representable in size bytes, as either a
// signed or an unsigned value.
func fits(n, size int64) bool {
	if size >= 8 {
		return true
	}
	bits := uint(8 * size)
	return n >= -(int64(1)<<(bits-1)) && n <= int64(1)<<bits-1
}

func (g *generator) address(expr string) {
	switch g.ptrSize {
	case 4:
		g.asm.LongSymbol(expr)
	case 8:
		g.asm.QuadSymbol(expr)
	default:
		panic(&asm.WidthError{Width: g.ptrSize})
	}
}

// literalLabel interns s; literals are numbered in first-use order.
func (g *generator) literalLabel(s string) string {
	if label, ok := g.strings[s]; ok {
		return label
	}
	label := fmt.Sprintf(".LC%d", len(g.literal))
	g.strings[s] = label
	g.literal = append(g.literal, s)
	return label
}

func (g *generator) rodataSection() {
	if len(g.literal) == 0 {
		return
	}
	g.asm.Section(".rodata")
	g.comment("string literals")
	for _, s := range g.literal {
		g.asm.Label(g.strings[s])
		g.asm.StringLit(s)
	}
}

func (g *generator) commonSymbols() {
	vars := g.unit.Scope.CommonSymbols()
	if len(vars) == 0 {
		return
	}
	g.comment("common symbols")
	for _, v := range vars {
		sym := v.SymbolName()
		if v.IsPrivate() {
			g.asm.Local(sym)
		}
		g.asm.Comm(sym, v.AllocSize(), v.Alignment())
	}
}

func (g *generator) picThunk() {
	g.asm.SectionGroup(".text."+PICThunk, `"axG"`, "@progbits", PICThunk, "comdat")
	g.asm.Globl(PICThunk)
	g.asm.Hidden(PICThunk)
	g.asm.SymType(PICThunk, "@function")
	g.asm.Label(PICThunk)
	g.asm.Mov(asm.Ind(asm.Reg(asm.SP, g.asm.NaturalType()), 0), asm.Reg(asm.BX, g.asm.NaturalType()))
	g.asm.Ret()
}
