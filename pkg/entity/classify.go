package entity

// Classification partitions the defined variables of a scope tree. It is
// built once per tree and never changes afterwards.
//
// Every defined variable with global or static-local storage is in All and
// in exactly one of Initialized and Common. Extern declarations are kept
// apart in Externals: they are neither allocated nor initialized here.
type Classification struct {
	All          []*Entity
	Initialized  []*Entity
	Common       []*Entity
	Externals    []*Entity
	StaticLocals []*Entity
}

// Classify computes the classification on first use and returns the same
// result on every later call. The tree is frozen from then on.
func (t *ToplevelScope) Classify() *Classification {
	if t.classified {
		return t.result
	}

	var statics []*Entity
	for _, s := range t.children {
		statics = s.staticLocals(statics)
	}
	next := make(map[string]int)
	for _, v := range statics {
		v.seq, v.hasSeq = next[v.Name], true
		next[v.Name]++
	}

	c := &Classification{StaticLocals: statics}
	src := append(append([]*Entity(nil), t.entities...), statics...)
	for _, e := range src {
		switch e.Kind {
		case DefinedVariable:
			c.All = append(c.All, e)
			if e.HasInitializer() {
				c.Initialized = append(c.Initialized, e)
			} else {
				c.Common = append(c.Common, e)
			}
		case UndefinedVariable:
			c.Externals = append(c.Externals, e)
		case DefinedFunction, UndefinedFunction, Constant:
		}
	}

	t.result = c
	t.classified = true
	return c
}

// AllVariables returns every defined global and static-local variable:
// top-level ones in declaration order, then static locals in scope order.
func (t *ToplevelScope) AllVariables() []*Entity { return clone(t.Classify().All) }

// InitializedGlobals returns the variables that go into the data section.
func (t *ToplevelScope) InitializedGlobals() []*Entity { return clone(t.Classify().Initialized) }

// CommonSymbols returns the variables left to the linker as common storage.
func (t *ToplevelScope) CommonSymbols() []*Entity { return clone(t.Classify().Common) }

// ExternalVariables returns the variables declared but defined elsewhere.
func (t *ToplevelScope) ExternalVariables() []*Entity { return clone(t.Classify().Externals) }

// StaticLocalVariables returns the static locals in ordinal-assignment order.
func (t *ToplevelScope) StaticLocalVariables() []*Entity { return clone(t.Classify().StaticLocals) }

func (t *ToplevelScope) IsClassified() bool { return t.classified }

func clone(es []*Entity) []*Entity { return append([]*Entity(nil), es...) }
