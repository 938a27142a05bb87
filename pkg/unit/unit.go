// Package unit decodes a resolved translation unit, the hand-off format
// between the front end and this backend, into an entity table.
package unit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/xplshn/cbc/pkg/entity"
	"github.com/xplshn/cbc/pkg/types"
)

// Unit is a loaded translation unit.
type Unit struct {
	File  string
	Scope *entity.ToplevelScope
	Types *types.Table
}

type fileJSON struct {
	File     string       `json:"file"`
	Entities []entityJSON `json:"entities"`
}

type entityJSON struct {
	Kind   string     `json:"kind"`
	Name   string     `json:"name"`
	Type   string     `json:"type"`
	Static bool       `json:"static,omitempty"`
	Init   *initJSON  `json:"init,omitempty"`
	Scope  *scopeJSON `json:"scope,omitempty"`
}

type initJSON struct {
	Int    *int64  `json:"int,omitempty"`
	String *string `json:"string,omitempty"`
	Symbol string  `json:"symbol,omitempty"`
	Offset int64   `json:"offset,omitempty"`
}

type scopeJSON struct {
	Vars   []varJSON   `json:"vars,omitempty"`
	Scopes []scopeJSON `json:"scopes,omitempty"`
}

type varJSON struct {
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Storage string    `json:"storage,omitempty"` // "auto" (default) or "static"
	Init    *initJSON `json:"init,omitempty"`
}

// LoadFile reads and loads the unit at path.
func LoadFile(path string, tbl *types.Table) (*Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	u, err := Load(f, tbl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if u.File == "" {
		u.File = path
	}
	return u, nil
}

// Load decodes a unit and builds its scope tree. Type errors, duplicate
// names and initializers naming undeclared symbols are reported as
// *entity.SemanticError.
func Load(r io.Reader, tbl *types.Table) (*Unit, error) {
	var doc fileJSON
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding unit: %w", err)
	}

	l := &loader{tbl: tbl, top: entity.NewToplevelScope()}
	bodies := make(map[*entity.Entity]*scopeJSON)
	for i := range doc.Entities {
		ej := &doc.Entities[i]
		e, err := l.entity(ej)
		if err != nil {
			return nil, err
		}
		if err := l.top.Declare(e); err != nil {
			return nil, err
		}
		if ej.Scope != nil {
			if e.Kind != entity.DefinedFunction {
				return nil, &entity.SemanticError{Message: fmt.Sprintf("%s '%s' cannot have a body", e.Kind, e.Name)}
			}
			bodies[e] = ej.Scope
		}
	}

	// Bodies are opened after every top-level name is declared, in
	// declaration order, so initializers may refer forward.
	for _, fn := range l.top.Functions() {
		if fn.Kind != entity.DefinedFunction {
			continue
		}
		body, err := l.top.NewFunctionScope(fn)
		if err != nil {
			return nil, err
		}
		if sj, ok := bodies[fn]; ok {
			if err := l.scope(body, sj); err != nil {
				return nil, fmt.Errorf("in function %s: %w", fn.Name, err)
			}
		}
	}

	if err := l.resolveInitializers(); err != nil {
		return nil, err
	}
	return &Unit{File: doc.File, Scope: l.top, Types: tbl}, nil
}

type loader struct {
	tbl   *types.Table
	top   *entity.ToplevelScope
	inits []pendingInit
}

type pendingInit struct {
	owner *entity.Entity
	scope interface {
		Get(string) (*entity.Entity, error)
	}
}

func (l *loader) typ(spec string) (*types.Type, error) {
	t, err := l.tbl.Parse(spec)
	if err != nil {
		return nil, &entity.SemanticError{Message: err.Error()}
	}
	return t, nil
}

func (l *loader) entity(ej *entityJSON) (*entity.Entity, error) {
	if ej.Name == "" {
		return nil, &entity.SemanticError{Message: "entity without a name"}
	}
	t, err := l.typ(ej.Type)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ej.Name, err)
	}
	init, err := l.initializer(ej.Init)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ej.Name, err)
	}

	if t.Kind == types.Void && ej.Kind != "func" && ej.Kind != "extern-func" {
		return nil, &entity.SemanticError{Message: fmt.Sprintf("'%s' declared with type void", ej.Name)}
	}

	var e *entity.Entity
	switch ej.Kind {
	case "var":
		e = entity.NewVariable(ej.Name, t, entity.Global, ej.Static, init)
	case "extern":
		e = entity.NewExternVariable(ej.Name, t)
	case "func":
		e = entity.NewFunction(ej.Name, t, ej.Static)
	case "extern-func":
		e = entity.NewExternFunction(ej.Name, t)
	case "const":
		if init == nil {
			return nil, &entity.SemanticError{Message: fmt.Sprintf("constant '%s' has no value", ej.Name)}
		}
		e = entity.NewConstant(ej.Name, t, init)
	default:
		return nil, &entity.SemanticError{Message: fmt.Sprintf("unknown entity kind '%s' for '%s'", ej.Kind, ej.Name)}
	}
	if init != nil && e.Kind != entity.DefinedVariable && e.Kind != entity.Constant {
		return nil, &entity.SemanticError{Message: fmt.Sprintf("%s '%s' cannot have an initializer", e.Kind, e.Name)}
	}
	if init != nil {
		l.inits = append(l.inits, pendingInit{owner: e, scope: l.top})
	}
	return e, nil
}

func (l *loader) initializer(ij *initJSON) (*entity.Initializer, error) {
	if ij == nil {
		return nil, nil
	}
	set := 0
	if ij.Int != nil {
		set++
	}
	if ij.String != nil {
		set++
	}
	if ij.Symbol != "" {
		set++
	}
	if set != 1 {
		return nil, &entity.SemanticError{Message: "initializer must have exactly one of int, string, symbol"}
	}
	switch {
	case ij.Int != nil:
		return entity.IntInit(*ij.Int), nil
	case ij.String != nil:
		return entity.StringInit(*ij.String), nil
	default:
		return entity.SymbolInit(ij.Symbol, ij.Offset), nil
	}
}

func (l *loader) scope(s *entity.LocalScope, sj *scopeJSON) error {
	for _, vj := range sj.Vars {
		t, err := l.typ(vj.Type)
		if err != nil {
			return fmt.Errorf("%s: %w", vj.Name, err)
		}
		if t.Kind == types.Void {
			return &entity.SemanticError{Message: fmt.Sprintf("'%s' declared with type void", vj.Name)}
		}
		init, err := l.initializer(vj.Init)
		if err != nil {
			return fmt.Errorf("%s: %w", vj.Name, err)
		}
		var storage entity.Storage
		switch vj.Storage {
		case "", "auto":
			storage = entity.Automatic
		case "static":
			storage = entity.StaticLocal
		default:
			return &entity.SemanticError{Message: fmt.Sprintf("unknown storage '%s' for '%s'", vj.Storage, vj.Name)}
		}
		v := entity.NewVariable(vj.Name, t, storage, false, init)
		if err := s.Declare(v); err != nil {
			return err
		}
		if init != nil && storage == entity.StaticLocal {
			l.inits = append(l.inits, pendingInit{owner: v, scope: s})
		}
	}
	for i := range sj.Scopes {
		child, err := s.NewChild()
		if err != nil {
			return err
		}
		if err := l.scope(child, &sj.Scopes[i]); err != nil {
			return err
		}
	}
	return nil
}

// resolveInitializers checks that every address-of initializer names a
// global symbol, and marks the symbol referenced.
func (l *loader) resolveInitializers() error {
	for _, p := range l.inits {
		in := p.owner.Init
		if in.Kind != entity.InitSymbol {
			continue
		}
		target, err := p.scope.Get(in.Symbol)
		if err != nil {
			return fmt.Errorf("initializer of %s: %w", p.owner.Name, err)
		}
		if target.Kind == entity.DefinedVariable && target.Storage == entity.Automatic {
			return &entity.SemanticError{Message: fmt.Sprintf("initializer of %s takes the address of automatic variable %s", p.owner.Name, in.Symbol)}
		}
		if target.Kind == entity.Constant {
			return &entity.SemanticError{Message: fmt.Sprintf("initializer of %s takes the address of constant %s", p.owner.Name, in.Symbol)}
		}
		in.Target = target
		target.Refer()
	}
	return nil
}
