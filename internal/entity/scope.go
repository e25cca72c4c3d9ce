package entity

import (
	"fmt"

	"cminor/internal/source"
	"cminor/internal/types"
)

// Scope is one lexical block of a function. Scopes form a tree through
// Parent links; the lowering pass walks them as a stack. Temporaries are
// allocated from whichever scope is innermost when the need arises, but
// their lifetime is the whole function, so the sequence counter lives on
// the root scope.
type Scope struct {
	Parent   *Scope
	Vars     []*Entity
	children []*Scope

	tmpSeq int
}

// NewScope creates a function root scope.
func NewScope() *Scope {
	return &Scope{}
}

// NewChild creates a scope nested in s.
func (s *Scope) NewChild() *Scope {
	c := &Scope{Parent: s}
	s.children = append(s.children, c)
	return c
}

// Children returns the nested scopes in creation order.
func (s *Scope) Children() []*Scope {
	return s.children
}

// Declare registers a variable in this scope.
func (s *Scope) Declare(e *Entity) {
	s.Vars = append(s.Vars, e)
}

func (s *Scope) root() *Scope {
	r := s
	for r.Parent != nil {
		r = r.Parent
	}
	return r
}

// AllocateTmp mints a fresh function-lifetime temporary of the given type.
// Names follow the @tmpN sequence; the @ keeps them out of the source
// identifier namespace.
func (s *Scope) AllocateTmp(table *types.Table, typ types.TypeID) *Entity {
	r := s.root()
	e := &Entity{
		Name:    fmt.Sprintf("@tmp%d", r.tmpSeq),
		Type:    typ,
		Storage: StorageAuto,
		NoLoad:  !table.IsScalar(typ),
		Temp:    true,
		Span:    source.NoSpan,
	}
	r.tmpSeq++
	s.Vars = append(s.Vars, e)
	return e
}

// AllEntities collects the entities of this scope and every scope below
// it, in declaration order.
func (s *Scope) AllEntities() []*Entity {
	out := make([]*Entity, 0, len(s.Vars))
	var walk func(sc *Scope)
	walk = func(sc *Scope) {
		out = append(out, sc.Vars...)
		for _, c := range sc.children {
			walk(c)
		}
	}
	walk(s)
	return out
}
