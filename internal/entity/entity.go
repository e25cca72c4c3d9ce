// Package entity models the named objects the lowering pass manipulates:
// variables, parameters and compiler temporaries, the scopes they live in,
// and the constant pool for string literals.
package entity

import (
	"cminor/internal/source"
	"cminor/internal/types"
)

// Storage classifies where a variable lives.
type Storage uint8

const (
	// StorageAuto is a stack-allocated local.
	StorageAuto Storage = iota
	// StorageParam is a function parameter.
	StorageParam
	// StorageStatic is a module-scope or file-private variable with a
	// fixed address.
	StorageStatic
	// StorageExtern is a declaration resolved by the linker.
	StorageExtern
)

func (s Storage) String() string {
	switch s {
	case StorageAuto:
		return "auto"
	case StorageParam:
		return "param"
	case StorageStatic:
		return "static"
	case StorageExtern:
		return "extern"
	default:
		return "storage?"
	}
}

// Entity is a resolved variable, parameter or temporary. The semantic
// analyzer creates entities for source declarations; the lowering pass
// mints additional temporaries through Scope.AllocateTmp.
type Entity struct {
	Name    string
	Type    types.TypeID
	Storage Storage
	// NoLoad marks entities whose value cannot be read by a single load
	// (arrays, structs, unions). Such entities are referenced by address.
	NoLoad bool
	// Temp marks compiler-generated temporaries.
	Temp bool
	Span source.Span
}

// NewVar creates a named variable entity.
func NewVar(name string, typ types.TypeID, storage Storage, span source.Span) *Entity {
	return &Entity{Name: name, Type: typ, Storage: storage, Span: span}
}

// NewParam creates a parameter entity.
func NewParam(name string, typ types.TypeID, span source.Span) *Entity {
	return &Entity{Name: name, Type: typ, Storage: StorageParam, Span: span}
}

// CannotLoad reports whether the entity is referenced only by address.
func (e *Entity) CannotLoad() bool {
	return e != nil && e.NoLoad
}

// IsStatic reports whether the entity has a fixed address known before
// execution starts.
func (e *Entity) IsStatic() bool {
	return e != nil && (e.Storage == StorageStatic || e.Storage == StorageExtern)
}
