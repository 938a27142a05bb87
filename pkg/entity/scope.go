package entity

import (
	"errors"
	"fmt"
)

// ErrScopeFrozen is returned when a scope tree is modified after it was
// classified.
var ErrScopeFrozen = errors.New("scope tree already classified")

// SemanticError is a user-facing resolution error such as an unresolved
// or duplicated name.
type SemanticError struct{ Message string }

func (e *SemanticError) Error() string { return e.Message }

func semanticError(format string, args ...any) *SemanticError {
	return &SemanticError{Message: fmt.Sprintf(format, args...)}
}

// ToplevelScope is the root of the scope tree. It owns the declaration
// ordered entity table and one child scope per function body.
type ToplevelScope struct {
	entities []*Entity
	index    map[string]*Entity
	children []*LocalScope

	classified bool
	result     *Classification
}

func NewToplevelScope() *ToplevelScope {
	return &ToplevelScope{index: make(map[string]*Entity)}
}

// Declare adds a top-level entity. Variables declared here must have
// global storage duration.
func (t *ToplevelScope) Declare(e *Entity) error {
	if t.classified {
		return ErrScopeFrozen
	}
	if e.Kind == DefinedVariable && e.Storage != Global {
		return semanticError("%s variable '%s' at top level", e.Storage, e.Name)
	}
	if _, dup := t.index[e.Name]; dup {
		return semanticError("duplicated declaration: %s", e.Name)
	}
	t.index[e.Name] = e
	t.entities = append(t.entities, e)
	return nil
}

// Get looks name up in the entity table.
func (t *ToplevelScope) Get(name string) (*Entity, error) {
	if e, ok := t.index[name]; ok {
		return e, nil
	}
	return nil, semanticError("unresolved reference: %s", name)
}

// Entities returns every top-level entity in declaration order.
func (t *ToplevelScope) Entities() []*Entity { return append([]*Entity(nil), t.entities...) }

// Functions returns the function entities, defined or not, in declaration
// order.
func (t *ToplevelScope) Functions() []*Entity {
	var fns []*Entity
	for _, e := range t.entities {
		if e.IsFunction() {
			fns = append(fns, e)
		}
	}
	return fns
}

// NewFunctionScope opens the body scope of fn, which must be a defined
// function. Scopes are visited in the order they were opened.
func (t *ToplevelScope) NewFunctionScope(fn *Entity) (*LocalScope, error) {
	if t.classified {
		return nil, ErrScopeFrozen
	}
	if fn.Kind != DefinedFunction {
		return nil, semanticError("'%s' is not a function definition", fn.Name)
	}
	s := newLocalScope(t, nil)
	fn.Body = s
	t.children = append(t.children, s)
	return s, nil
}

// LocalScope is a block scope inside a function body.
type LocalScope struct {
	top      *ToplevelScope
	parent   *LocalScope
	vars     []*Entity
	index    map[string]*Entity
	children []*LocalScope
}

func newLocalScope(top *ToplevelScope, parent *LocalScope) *LocalScope {
	return &LocalScope{top: top, parent: parent, index: make(map[string]*Entity)}
}

// Declare adds a local variable, automatic or static.
func (s *LocalScope) Declare(v *Entity) error {
	if s.top.classified {
		return ErrScopeFrozen
	}
	if v.Kind != DefinedVariable || v.Storage == Global {
		return semanticError("'%s' cannot be declared in a local scope", v.Name)
	}
	if _, dup := s.index[v.Name]; dup {
		return semanticError("duplicated variable in scope: %s", v.Name)
	}
	s.index[v.Name] = v
	s.vars = append(s.vars, v)
	return nil
}

// NewChild opens a nested block.
func (s *LocalScope) NewChild() (*LocalScope, error) {
	if s.top.classified {
		return nil, ErrScopeFrozen
	}
	c := newLocalScope(s.top, s)
	s.children = append(s.children, c)
	return c, nil
}

func (s *LocalScope) Parent() *LocalScope { return s.parent }

// Variables returns the variables declared directly in this scope.
func (s *LocalScope) Variables() []*Entity { return append([]*Entity(nil), s.vars...) }

// Get resolves name through the enclosing blocks and then the top level.
func (s *LocalScope) Get(name string) (*Entity, error) {
	for sc := s; sc != nil; sc = sc.parent {
		if v, ok := sc.index[name]; ok {
			return v, nil
		}
	}
	return s.top.Get(name)
}

// staticLocals appends this scope's static variables, then its children's,
// depth first.
func (s *LocalScope) staticLocals(out []*Entity) []*Entity {
	for _, v := range s.vars {
		if v.IsStaticLocal() {
			out = append(out, v)
		}
	}
	for _, c := range s.children {
		out = c.staticLocals(out)
	}
	return out
}
