// Package entity holds the resolved top-level program entities and the
// scope tree they live in, and classifies variables into the storage
// categories the assembler and linker need.
package entity

import (
	"fmt"

	"github.com/xplshn/cbc/pkg/types"
)

// Kind is the closed set of entity variants.
type Kind int

const (
	DefinedVariable Kind = iota
	UndefinedVariable
	DefinedFunction
	UndefinedFunction
	Constant
)

func (k Kind) String() string {
	switch k {
	case DefinedVariable:
		return "variable"
	case UndefinedVariable:
		return "extern variable"
	case DefinedFunction:
		return "function"
	case UndefinedFunction:
		return "extern function"
	case Constant:
		return "constant"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Storage is the storage duration of a variable.
type Storage int

const (
	Global Storage = iota
	StaticLocal
	Automatic
)

func (s Storage) String() string {
	switch s {
	case Global:
		return "global"
	case StaticLocal:
		return "static"
	case Automatic:
		return "auto"
	default:
		return fmt.Sprintf("Storage(%d)", int(s))
	}
}

type InitKind int

const (
	InitInt InitKind = iota
	InitString
	InitSymbol
)

// Initializer is the constant a defined variable starts with. Symbol
// initializers hold the address of another global plus Offset; Target is
// filled in once the name is resolved.
type Initializer struct {
	Kind   InitKind
	Int    int64
	Str    string
	Symbol string
	Offset int64
	Target *Entity
}

// Label is the assembler symbol a symbol initializer points at.
func (in *Initializer) Label() string {
	if in.Target != nil {
		return in.Target.SymbolName()
	}
	return in.Symbol
}

func IntInit(n int64) *Initializer     { return &Initializer{Kind: InitInt, Int: n} }
func StringInit(s string) *Initializer { return &Initializer{Kind: InitString, Str: s} }
func SymbolInit(sym string, off int64) *Initializer {
	return &Initializer{Kind: InitSymbol, Symbol: sym, Offset: off}
}

// Entity is a named program object. Which fields are meaningful depends on
// Kind; use the constructors rather than building one by hand.
type Entity struct {
	Kind    Kind
	Name    string
	Type    *types.Type
	Storage Storage
	Private bool
	Init    *Initializer
	Body    *LocalScope // DefinedFunction only

	seq      int
	hasSeq   bool
	referred int
}

// NewVariable returns a defined variable; init may be nil.
func NewVariable(name string, t *types.Type, storage Storage, private bool, init *Initializer) *Entity {
	return &Entity{Kind: DefinedVariable, Name: name, Type: t, Storage: storage, Private: private, Init: init}
}

func NewExternVariable(name string, t *types.Type) *Entity {
	return &Entity{Kind: UndefinedVariable, Name: name, Type: t, Storage: Global}
}

func NewFunction(name string, ret *types.Type, private bool) *Entity {
	return &Entity{Kind: DefinedFunction, Name: name, Type: ret, Private: private}
}

func NewExternFunction(name string, ret *types.Type) *Entity {
	return &Entity{Kind: UndefinedFunction, Name: name, Type: ret}
}

func NewConstant(name string, t *types.Type, value *Initializer) *Entity {
	return &Entity{Kind: Constant, Name: name, Type: t, Init: value}
}

func (e *Entity) IsVariable() bool     { return e.Kind == DefinedVariable || e.Kind == UndefinedVariable }
func (e *Entity) IsFunction() bool     { return e.Kind == DefinedFunction || e.Kind == UndefinedFunction }
func (e *Entity) IsDefined() bool      { return e.Kind == DefinedVariable || e.Kind == DefinedFunction }
func (e *Entity) HasInitializer() bool { return e.Init != nil }
func (e *Entity) IsStaticLocal() bool  { return e.Kind == DefinedVariable && e.Storage == StaticLocal }

// IsPrivate reports whether the symbol must stay local to the object file.
// Static locals always are.
func (e *Entity) IsPrivate() bool { return e.Private || e.IsStaticLocal() }

func (e *Entity) AllocSize() int64 { return e.Type.Size() }
func (e *Entity) Alignment() int64 { return e.Type.Alignment() }

// Sequence returns the ordinal given to a static local by classification.
func (e *Entity) Sequence() (int, bool) { return e.seq, e.hasSeq }

// SymbolName is the label the entity is emitted under. Static locals get
// their ordinal appended so same-named statics in different functions do
// not collide.
func (e *Entity) SymbolName() string {
	if e.hasSeq {
		return fmt.Sprintf("%s.%d", e.Name, e.seq)
	}
	return e.Name
}

func (e *Entity) Refer()           { e.referred++ }
func (e *Entity) IsReferred() bool { return e.referred > 0 }

func (e *Entity) String() string {
	if e.Type == nil {
		return e.Kind.String() + " " + e.Name
	}
	return e.Kind.String() + " " + e.Name + " " + e.Type.String()
}
