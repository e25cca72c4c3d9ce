package ir

import (
	"cminor/internal/entity"
)

// VarDef pairs a statically allocated variable with its lowered
// initializer. Init is nil for zero-initialized variables.
type VarDef struct {
	Ent  *entity.Entity
	Init *Expr
}

// Func is one lowered function: its entity, parameters, root scope (for
// locals and temporaries) and the flat statement list.
type Func struct {
	Ent    *entity.Entity
	Params []*entity.Entity
	Scope  *entity.Scope
	Body   []*Stmt
	// NumLabels is the exclusive upper bound of labels minted for Body.
	NumLabels uint32
}

// Name returns the function's symbol name.
func (f *Func) Name() string {
	return f.Ent.Name
}

// Program is the output of the lowering pass for one compilation unit.
// Vars holds module-scope variables and static locals; Pool holds the
// interned string literals the expressions point into.
type Program struct {
	Vars  []*VarDef
	Funcs []*Func
	Pool  *entity.ConstantPool
}
