package ir

import (
	"cminor/internal/entity"
	"cminor/internal/types"
)

// ExprKind enumerates IR expression kinds. Every IR expression is pure;
// anything with side effects has been hoisted into statements before an
// expression tree is built.
type ExprKind uint8

const (
	// ExprIntValue represents an integer constant.
	ExprIntValue ExprKind = iota
	// ExprStrValue represents a pointer to a constant-pool string.
	ExprStrValue
	// ExprVar represents the value of a named variable.
	ExprVar
	// ExprBin represents a binary operation.
	ExprBin
	// ExprUni represents a unary operation.
	ExprUni
	// ExprMem represents a load from an address.
	ExprMem
	// ExprAddr represents the address of a location.
	ExprAddr
	// ExprCall represents a function call. The lowerer has already
	// sequenced its effects; the code generator still treats it as
	// effectful.
	ExprCall
)

// String returns a human-readable name for the expression kind.
func (k ExprKind) String() string {
	switch k {
	case ExprIntValue:
		return "IntValue"
	case ExprStrValue:
		return "StrValue"
	case ExprVar:
		return "Var"
	case ExprBin:
		return "Bin"
	case ExprUni:
		return "Uni"
	case ExprMem:
		return "Mem"
	case ExprAddr:
		return "Addr"
	case ExprCall:
		return "Call"
	default:
		return "Unknown"
	}
}

// Expr represents one node of a pure IR expression tree.
type Expr struct {
	Kind ExprKind
	Type types.TypeID

	Int  IntValueExpr
	Str  StrValueExpr
	Var  VarExpr
	Bin  BinExpr
	Uni  UniExpr
	Mem  MemExpr
	Addr AddrExpr
	Call CallExpr
}

// IntValueExpr represents an integer constant.
type IntValueExpr struct {
	Value int64
}

// StrValueExpr represents a constant-pool string reference.
type StrValueExpr struct {
	Entry *entity.StringEntry
}

// VarExpr represents a variable reference.
type VarExpr struct {
	Ent *entity.Entity
}

// BinExpr represents a binary operation.
type BinExpr struct {
	Op    Op
	Left  *Expr
	Right *Expr
}

// UniExpr represents a unary operation.
type UniExpr struct {
	Op      Op
	Operand *Expr
}

// MemExpr represents a load from the given address.
type MemExpr struct {
	Addr *Expr
}

// AddrExpr represents the address of the inner location.
type AddrExpr struct {
	Inner *Expr
}

// CallExpr represents a function call.
type CallExpr struct {
	Callee *Expr
	Args   []*Expr
}

// NewIntValue builds an integer constant expression.
func NewIntValue(typ types.TypeID, value int64) *Expr {
	return &Expr{Kind: ExprIntValue, Type: typ, Int: IntValueExpr{Value: value}}
}

// NewStrValue builds a constant-pool string expression.
func NewStrValue(typ types.TypeID, entry *entity.StringEntry) *Expr {
	return &Expr{Kind: ExprStrValue, Type: typ, Str: StrValueExpr{Entry: entry}}
}

// NewVar builds a variable reference.
func NewVar(ent *entity.Entity) *Expr {
	return &Expr{Kind: ExprVar, Type: ent.Type, Var: VarExpr{Ent: ent}}
}

// NewBin builds a binary operation.
func NewBin(typ types.TypeID, op Op, left, right *Expr) *Expr {
	return &Expr{Kind: ExprBin, Type: typ, Bin: BinExpr{Op: op, Left: left, Right: right}}
}

// NewUni builds a unary operation.
func NewUni(typ types.TypeID, op Op, operand *Expr) *Expr {
	return &Expr{Kind: ExprUni, Type: typ, Uni: UniExpr{Op: op, Operand: operand}}
}

// NewMem builds a load from addr; typ is the pointee type.
func NewMem(typ types.TypeID, addr *Expr) *Expr {
	return &Expr{Kind: ExprMem, Type: typ, Mem: MemExpr{Addr: addr}}
}

// NewAddr builds an address-of expression.
func NewAddr(typ types.TypeID, inner *Expr) *Expr {
	return &Expr{Kind: ExprAddr, Type: typ, Addr: AddrExpr{Inner: inner}}
}

// NewCall builds a function call expression.
func NewCall(typ types.TypeID, callee *Expr, args []*Expr) *Expr {
	return &Expr{Kind: ExprCall, Type: typ, Call: CallExpr{Callee: callee, Args: args}}
}

// IsConstantAddress reports whether the expression is a location whose
// address is known without evaluating anything at run time.
func (e *Expr) IsConstantAddress() bool {
	switch e.Kind {
	case ExprVar:
		return true
	case ExprAddr:
		return e.Addr.Inner.IsConstantAddress()
	}
	return false
}

// Clone deep-copies the expression tree so that emitted IR never shares
// sub-trees. Sharing would break passes that rewrite trees in place.
func (e *Expr) Clone() *Expr {
	if e == nil {
		return nil
	}
	c := *e
	switch e.Kind {
	case ExprBin:
		c.Bin.Left = e.Bin.Left.Clone()
		c.Bin.Right = e.Bin.Right.Clone()
	case ExprUni:
		c.Uni.Operand = e.Uni.Operand.Clone()
	case ExprMem:
		c.Mem.Addr = e.Mem.Addr.Clone()
	case ExprAddr:
		c.Addr.Inner = e.Addr.Inner.Clone()
	case ExprCall:
		c.Call.Callee = e.Call.Callee.Clone()
		args := make([]*Expr, len(e.Call.Args))
		for i, a := range e.Call.Args {
			args[i] = a.Clone()
		}
		c.Call.Args = args
	}
	return &c
}
