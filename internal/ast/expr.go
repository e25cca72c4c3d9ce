package ast

import (
	"cminor/internal/entity"
	"cminor/internal/source"
	"cminor/internal/types"
)

// ExprKind enumerates expression kinds.
type ExprKind uint8

const (
	// ExprIntLit represents an integer literal.
	ExprIntLit ExprKind = iota
	// ExprStrLit represents a string literal backed by the constant pool.
	ExprStrLit
	// ExprVarRef represents a reference to a resolved entity.
	ExprVarRef
	// ExprBin represents a binary operator.
	ExprBin
	// ExprUn represents a prefix unary operator (-, +, ~, !).
	ExprUn
	// ExprLogicalAnd represents short-circuit &&.
	ExprLogicalAnd
	// ExprLogicalOr represents short-circuit ||.
	ExprLogicalOr
	// ExprCond represents the ternary c ? a : b.
	ExprCond
	// ExprAssign represents plain assignment.
	ExprAssign
	// ExprOpAssign represents compound assignment (+=, <<=, ...).
	ExprOpAssign
	// ExprPrefixIncDec represents ++e and --e.
	ExprPrefixIncDec
	// ExprSuffixIncDec represents e++ and e--.
	ExprSuffixIncDec
	// ExprCall represents a function call.
	ExprCall
	// ExprAref represents array subscripting.
	ExprAref
	// ExprMember represents struct member access with dot.
	ExprMember
	// ExprPtrMember represents member access through a pointer.
	ExprPtrMember
	// ExprDeref represents unary *.
	ExprDeref
	// ExprAddr represents unary &.
	ExprAddr
	// ExprCast represents an explicit cast.
	ExprCast
	// ExprSizeof represents sizeof applied to an expression or a type.
	ExprSizeof
)

// String returns a human-readable name for the expression kind.
func (k ExprKind) String() string {
	switch k {
	case ExprIntLit:
		return "IntLit"
	case ExprStrLit:
		return "StrLit"
	case ExprVarRef:
		return "VarRef"
	case ExprBin:
		return "Bin"
	case ExprUn:
		return "Un"
	case ExprLogicalAnd:
		return "LogicalAnd"
	case ExprLogicalOr:
		return "LogicalOr"
	case ExprCond:
		return "Cond"
	case ExprAssign:
		return "Assign"
	case ExprOpAssign:
		return "OpAssign"
	case ExprPrefixIncDec:
		return "PrefixIncDec"
	case ExprSuffixIncDec:
		return "SuffixIncDec"
	case ExprCall:
		return "Call"
	case ExprAref:
		return "Aref"
	case ExprMember:
		return "Member"
	case ExprPtrMember:
		return "PtrMember"
	case ExprDeref:
		return "Deref"
	case ExprAddr:
		return "Addr"
	case ExprCast:
		return "Cast"
	case ExprSizeof:
		return "Sizeof"
	default:
		return "Unknown"
	}
}

// Expr represents a typed expression.
type Expr struct {
	Kind ExprKind
	Type types.TypeID // resolved by the semantic analyzer
	Span source.Span
	// WantsAddress is set by the semantic analyzer on lvalues that appear
	// in a context demanding a location rather than a value.
	WantsAddress bool
	Data         ExprData // Kind-specific payload
}

// ExprData is the interface for expression-specific data.
type ExprData interface {
	exprData()
}

// IntLitData holds data for ExprIntLit.
type IntLitData struct {
	Value int64
}

func (IntLitData) exprData() {}

// StrLitData holds data for ExprStrLit.
type StrLitData struct {
	Entry *entity.StringEntry
}

func (StrLitData) exprData() {}

// VarRefData holds data for ExprVarRef.
type VarRefData struct {
	Ent *entity.Entity
}

func (VarRefData) exprData() {}

// BinData holds data for ExprBin.
type BinData struct {
	Op    BinOp
	Left  *Expr
	Right *Expr
}

func (BinData) exprData() {}

// UnData holds data for ExprUn.
type UnData struct {
	Op      UnOp
	Operand *Expr
}

func (UnData) exprData() {}

// LogicalData holds data for ExprLogicalAnd and ExprLogicalOr.
type LogicalData struct {
	Left  *Expr
	Right *Expr
}

func (LogicalData) exprData() {}

// CondData holds data for ExprCond.
type CondData struct {
	Cond *Expr
	Then *Expr
	Else *Expr
}

func (CondData) exprData() {}

// AssignData holds data for ExprAssign.
type AssignData struct {
	LHS *Expr
	RHS *Expr
}

func (AssignData) exprData() {}

// OpAssignData holds data for ExprOpAssign. Op is the underlying binary
// operator of the compound form.
type OpAssignData struct {
	Op  BinOp
	LHS *Expr
	RHS *Expr
}

func (OpAssignData) exprData() {}

// IncDecData holds data for ExprPrefixIncDec and ExprSuffixIncDec.
type IncDecData struct {
	Decrement bool
	Operand   *Expr
}

func (IncDecData) exprData() {}

// CallData holds data for ExprCall.
type CallData struct {
	Callee *Expr
	Args   []*Expr
}

func (CallData) exprData() {}

// ArefData holds data for ExprAref. Base is the subscripted expression,
// which for a multi-dimensional access is itself an ExprAref. ElemSize
// is the byte size of this node's element type; Length is the extent of
// this node's dimension. When MultiDim is set, the lowering multiplies
// the flattened index of Base by Length before adding Index.
type ArefData struct {
	Base     *Expr
	Index    *Expr
	ElemSize int64
	Length   int64
	MultiDim bool
}

func (ArefData) exprData() {}

// BaseExpr descends through nested array references to the expression
// that yields the array base address.
func (d *ArefData) BaseExpr() *Expr {
	e := d.Base
	for e.Kind == ExprAref {
		e = e.Data.(*ArefData).Base
	}
	return e
}

// MemberData holds data for ExprMember and ExprPtrMember. Offset is the
// resolved byte offset of the member inside the record.
type MemberData struct {
	Base   *Expr
	Name   string
	Offset int64
}

func (MemberData) exprData() {}

// DerefData holds data for ExprDeref.
type DerefData struct {
	Operand *Expr
}

func (DerefData) exprData() {}

// AddrData holds data for ExprAddr.
type AddrData struct {
	Operand *Expr
}

func (AddrData) exprData() {}

// CastData holds data for ExprCast. Effective is false for casts that do
// not change the machine representation.
type CastData struct {
	Inner     *Expr
	Effective bool
}

func (CastData) exprData() {}

// SizeofData holds data for ExprSizeof. Operand is nil when sizeof was
// applied to a type name; AllocSize is resolved either way.
type SizeofData struct {
	Operand   *Expr
	AllocSize int64
}

func (SizeofData) exprData() {}
