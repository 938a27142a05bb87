// Package types describes C-flat value types as far as the backend needs
// them: byte size, alignment, and how a type is spelled in a resolved unit.
package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

type Kind int

const (
	Void Kind = iota
	Integer
	Pointer
	Array
)

type Type struct {
	Kind   Kind
	Name   string
	Signed bool
	Base   *Type // element type for pointers and arrays
	Len    int64 // element count for arrays
	size   int64
}

func (t *Type) Size() int64 {
	if t.Kind == Array {
		return t.Base.Size() * t.Len
	}
	return t.size
}

// Alignment is the element alignment for arrays, the size otherwise.
func (t *Type) Alignment() int64 {
	switch t.Kind {
	case Array:
		return t.Base.Alignment()
	case Void:
		return 1
	default:
		return t.size
	}
}

func (t *Type) IsInteger() bool { return t.Kind == Integer }
func (t *Type) IsPointer() bool { return t.Kind == Pointer }
func (t *Type) IsArray() bool   { return t.Kind == Array }

// IsScalar reports whether a value of t fits in a single data directive.
func (t *Type) IsScalar() bool { return t.Kind == Integer || t.Kind == Pointer }

func (t *Type) String() string {
	switch t.Kind {
	case Pointer:
		return t.Base.String() + "*"
	case Array:
		dims := ""
		elem := t
		for ; elem.Kind == Array; elem = elem.Base {
			dims += "[" + strconv.FormatInt(elem.Len, 10) + "]"
		}
		return elem.String() + dims
	default:
		return t.Name
	}
}

// Table holds the integer types of one target and builds derived types.
type Table struct {
	pointerSize int64
	named       map[string]*Type
}

// NewTable builds the type table for a target whose pointers are
// pointerSize bytes wide. C-flat's long is pointer sized.
func NewTable(pointerSize int64) *Table {
	tbl := &Table{pointerSize: pointerSize, named: make(map[string]*Type)}
	ints := []struct {
		name   string
		size   int64
		signed bool
	}{
		{"char", 1, true},
		{"short", 2, true},
		{"int", 4, true},
		{"long", pointerSize, true},
		{"unsigned char", 1, false},
		{"unsigned short", 2, false},
		{"unsigned int", 4, false},
		{"unsigned long", pointerSize, false},
	}
	for _, it := range ints {
		tbl.named[it.name] = &Type{Kind: Integer, Name: it.name, Signed: it.signed, size: it.size}
	}
	tbl.named["void"] = &Type{Kind: Void, Name: "void", size: 1}
	return tbl
}

func (tbl *Table) PointerSize() int64 { return tbl.pointerSize }

// Lookup returns a named base type.
func (tbl *Table) Lookup(name string) (*Type, bool) {
	t, ok := tbl.named[name]
	return t, ok
}

func (tbl *Table) PointerTo(base *Type) *Type {
	return &Type{Kind: Pointer, Base: base, size: tbl.pointerSize}
}

func (tbl *Table) ArrayOf(base *Type, n int64) *Type {
	return &Type{Kind: Array, Base: base, Len: n}
}

// Parse reads a type spelled as a base name followed by any number of `*`
// and then any number of `[N]`, e.g. "unsigned char*[4]".
func (tbl *Table) Parse(spec string) (*Type, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return nil, fmt.Errorf("empty type")
	}

	var dims []int64
	for strings.HasSuffix(s, "]") {
		open := strings.LastIndexByte(s, '[')
		if open < 0 {
			return nil, fmt.Errorf("malformed array type '%s'", spec)
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s[open+1:len(s)-1]), 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid array length in '%s'", spec)
		}
		dims = append(dims, n)
		s = strings.TrimSpace(s[:open])
	}

	stars := 0
	for strings.HasSuffix(s, "*") {
		stars++
		s = strings.TrimSpace(s[:len(s)-1])
	}

	base, ok := tbl.named[strings.Join(strings.Fields(s), " ")]
	if !ok {
		return nil, fmt.Errorf("unknown type '%s'", s)
	}
	t := base
	for i := 0; i < stars; i++ {
		t = tbl.PointerTo(t)
	}
	if t.Kind == Void && len(dims) > 0 {
		return nil, fmt.Errorf("array of void in '%s'", spec)
	}
	// "int[2][3]" is an array of 2 arrays of 3; dims were collected right to left.
	for _, n := range dims {
		if elem := t.Size(); elem > 0 && n > math.MaxInt64/elem {
			return nil, fmt.Errorf("array too large in '%s'", spec)
		}
		t = tbl.ArrayOf(t, n)
	}
	return t, nil
}
