// Package ast defines the typed abstract syntax tree the lowering pass
// consumes. The tree arrives fully resolved: every expression carries a
// type, every variable reference carries its entity, array references
// carry element sizes and dimension lengths, member accesses carry byte
// offsets, and casts carry an effectiveness flag.
package ast

import (
	"cminor/internal/entity"
)

// Program is the root of a typed compilation unit.
type Program struct {
	// Vars are the module-scope defined variables, in declaration order.
	Vars []*Var
	// Funcs are the defined functions, in declaration order.
	Funcs []*Func
	// Pool holds the interned string literals of the unit.
	Pool *entity.ConstantPool
}

// Var pairs a module-scope variable with its optional initializer.
type Var struct {
	Ent  *entity.Entity
	Init *Expr
}

// Func is a defined function. Body is always a block statement whose
// scope is the function root scope.
type Func struct {
	Ent    *entity.Entity
	Params []*entity.Entity
	Scope  *entity.Scope
	Body   *Stmt
}

// Name returns the function's symbol name.
func (f *Func) Name() string {
	return f.Ent.Name
}
