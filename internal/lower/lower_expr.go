package lower

import (
	"fmt"

	"cminor/internal/ast"
	"cminor/internal/entity"
	"cminor/internal/ir"
	"cminor/internal/source"
	"cminor/internal/types"
)

func (l *funcLowerer) lowerExpr(node *ast.Expr) *ir.Expr {
	switch node.Kind {
	case ast.ExprIntLit:
		d := node.Data.(*ast.IntLitData)
		return ir.NewIntValue(node.Type, d.Value)
	case ast.ExprStrLit:
		d := node.Data.(*ast.StrLitData)
		return ir.NewStrValue(node.Type, d.Entry)
	case ast.ExprVarRef:
		return l.lowerVarRef(node)
	case ast.ExprBin:
		return l.lowerBin(node)
	case ast.ExprUn:
		return l.lowerUn(node)
	case ast.ExprLogicalAnd:
		return l.lowerLogicalAnd(node)
	case ast.ExprLogicalOr:
		return l.lowerLogicalOr(node)
	case ast.ExprCond:
		return l.lowerCond(node)
	case ast.ExprAssign:
		return l.lowerAssign(node)
	case ast.ExprOpAssign:
		return l.lowerOpAssign(node)
	case ast.ExprPrefixIncDec:
		return l.lowerPrefixIncDec(node)
	case ast.ExprSuffixIncDec:
		return l.lowerSuffixIncDec(node)
	case ast.ExprCall:
		return l.lowerCall(node)
	case ast.ExprAref:
		return l.lowerAref(node)
	case ast.ExprMember:
		return l.lowerMember(node, false)
	case ast.ExprPtrMember:
		return l.lowerMember(node, true)
	case ast.ExprDeref:
		d := node.Data.(*ast.DerefData)
		return ir.NewMem(node.Type, l.transformExpr(d.Operand))
	case ast.ExprAddr:
		return l.lowerAddr(node)
	case ast.ExprCast:
		return l.lowerCast(node)
	case ast.ExprSizeof:
		d := node.Data.(*ast.SizeofData)
		return l.intValue(d.AllocSize)
	default:
		panic(fmt.Sprintf("lower: unknown expression kind %s", node.Kind))
	}
}

// transformInitializer lowers a local initializer in expression context,
// so constructs that would vanish in statement context (assignments,
// increments) hoist through temporaries and still produce a value.
func (l *funcLowerer) transformInitializer(node *ast.Expr) *ir.Expr {
	l.exprNestLevel++
	e := l.transformExpr(node)
	l.exprNestLevel--
	return e
}

//
// Expressions with side effects
//

// lowerCond turns c ? a : b into a branch over a fresh temporary; either
// arm may emit statements of its own, so the value must flow through a
// variable.
func (l *funcLowerer) lowerCond(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.CondData)
	thenLabel := l.newLabel()
	elseLabel := l.newLabel()
	endLabel := l.newLabel()
	tmp := l.tmpVar(node.Type)

	cond := l.transformExpr(d.Cond)
	l.branch(node.Span, cond, thenLabel, elseLabel)
	l.label(thenLabel)
	l.assign(node.Span, l.ref(tmp), l.transformExpr(d.Then))
	l.jump(endLabel)
	l.label(elseLabel)
	l.assign(node.Span, l.ref(tmp), l.transformExpr(d.Else))
	l.jump(endLabel)
	l.label(endLabel)
	return l.ref(tmp)
}

// lowerLogicalAnd short-circuits through a temporary: the left value
// doubles as the test, so the whole expression reduces to the variable.
func (l *funcLowerer) lowerLogicalAnd(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.LogicalData)
	rightLabel := l.newLabel()
	endLabel := l.newLabel()
	tmp := l.tmpVar(node.Type)

	l.assign(node.Span, l.ref(tmp), l.transformExpr(d.Left))
	l.branch(node.Span, l.ref(tmp), rightLabel, endLabel)
	l.label(rightLabel)
	l.assign(node.Span, l.ref(tmp), l.transformExpr(d.Right))
	l.label(endLabel)
	return l.ref(tmp)
}

func (l *funcLowerer) lowerLogicalOr(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.LogicalData)
	rightLabel := l.newLabel()
	endLabel := l.newLabel()
	tmp := l.tmpVar(node.Type)

	l.assign(node.Span, l.ref(tmp), l.transformExpr(d.Left))
	l.branch(node.Span, l.ref(tmp), endLabel, rightLabel)
	l.label(rightLabel)
	l.assign(node.Span, l.ref(tmp), l.transformExpr(d.Right))
	l.label(endLabel)
	return l.ref(tmp)
}

// lowerAssign emits the store directly in statement context. Nested in a
// larger expression, the value is parked in a temporary first so the
// surrounding expression reads it back regardless of what the store
// overwrote.
func (l *funcLowerer) lowerAssign(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.AssignData)
	if l.isStatement() {
		rhs := l.transformExpr(d.RHS)
		lhs := l.transformLHS(d.LHS)
		l.assign(node.Span, lhs, rhs)
		return nil
	}
	tmp := l.tmpVar(d.RHS.Type)
	l.assignBeforeStmt(l.ref(tmp), l.transformExpr(d.RHS))
	l.assignBeforeStmt(l.transformLHS(d.LHS), l.ref(tmp))
	return l.ref(tmp)
}

func (l *funcLowerer) lowerOpAssign(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.OpAssignData)
	// rhs evaluates before lhs.
	rhs := l.transformExpr(d.RHS)
	lhs := l.transformLHS(d.LHS)
	op := l.binOp(d.Op, d.LHS.Type)
	return l.transformOpAssign(lhs, op, rhs)
}

// transformOpAssign rewrites lhs op= rhs. The address of lhs is computed
// exactly once: a subscript like a[f()] += 1 must call f a single time.
func (l *funcLowerer) transformOpAssign(lhs *ir.Expr, op ir.Op, rhs *ir.Expr) *ir.Expr {
	rhs = l.expandPointerArithmetic(rhs, op, lhs.Type)
	if l.isStatement() {
		if lhs.IsConstantAddress() {
			l.assign(source.NoSpan, lhs, ir.NewBin(lhs.Type, op, lhs.Clone(), rhs))
			return nil
		}
		addr := l.addressOf(lhs)
		a := l.tmpVar(addr.Type)
		l.assign(source.NoSpan, l.ref(a), addr)
		l.assign(source.NoSpan, l.derefVar(a), ir.NewBin(lhs.Type, op, l.derefVar(a), rhs))
		return nil
	}
	addr := l.addressOf(lhs)
	a := l.tmpVar(addr.Type)
	l.assignBeforeStmt(l.ref(a), addr)
	l.assignBeforeStmt(l.derefVar(a), ir.NewBin(lhs.Type, op, l.derefVar(a), rhs))
	return l.derefVar(a)
}

// expandPointerArithmetic scales the integer operand of pointer addition
// or subtraction by the pointee size.
func (l *funcLowerer) expandPointerArithmetic(rhs *ir.Expr, op ir.Op, lhsType types.TypeID) *ir.Expr {
	switch op {
	case ir.OpAdd, ir.OpSub:
		if l.table.IsDereferable(lhsType) {
			size := l.table.Size(l.table.BaseType(lhsType))
			return ir.NewBin(rhs.Type, ir.OpMul, rhs, l.ptrDiff(size))
		}
	}
	return rhs
}

// lowerPrefixIncDec rewrites ++e and --e as e += 1 and e -= 1.
func (l *funcLowerer) lowerPrefixIncDec(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.IncDecData)
	return l.transformOpAssign(l.transformLHS(d.Operand), incDecOp(d.Decrement), l.intValue(1))
}

func (l *funcLowerer) lowerSuffixIncDec(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.IncDecData)
	lhs := l.transformLHS(d.Operand)
	op := incDecOp(d.Decrement)
	switch {
	case l.isStatement():
		// e++; is e += 1;
		return l.transformOpAssign(lhs, op, l.intValue(1))
	case lhs.IsConstantAddress():
		// f(e++) is v = e; e = e + 1; f(v)
		v := l.tmpVar(lhs.Type)
		l.assignBeforeStmt(l.ref(v), lhs)
		rhs := l.expandPointerArithmetic(l.intValue(1), op, lhs.Type)
		l.assignBeforeStmt(lhs.Clone(), ir.NewBin(lhs.Type, op, lhs.Clone(), rhs))
		return l.ref(v)
	default:
		// f(e++) is a = &e; v = *a; *a = *a + 1; f(v)
		addr := l.addressOf(lhs)
		a := l.tmpVar(addr.Type)
		v := l.tmpVar(lhs.Type)
		l.assignBeforeStmt(l.ref(a), addr)
		l.assignBeforeStmt(l.ref(v), l.derefVar(a))
		l.assignBeforeStmt(l.derefVar(a),
			ir.NewBin(lhs.Type, op,
				l.derefVar(a),
				l.expandPointerArithmetic(l.intValue(1), op, lhs.Type)))
		return l.ref(v)
	}
}

// lowerCall lowers arguments right to left, matching the order the code
// generator pushes them.
func (l *funcLowerer) lowerCall(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.CallData)
	args := make([]*ir.Expr, len(d.Args))
	for i := len(d.Args) - 1; i >= 0; i-- {
		args[i] = l.transformExpr(d.Args[i])
	}
	return ir.NewCall(node.Type, l.transformExpr(d.Callee), args)
}

//
// Expressions without side effects
//

func (l *funcLowerer) lowerBin(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.BinData)
	left := l.transformExpr(d.Left)
	right := l.transformExpr(d.Right)
	if d.Op == ast.BinAdd || d.Op == ast.BinSub {
		if l.table.IsDereferable(d.Left.Type) {
			size := l.table.Size(l.table.BaseType(d.Left.Type))
			right = ir.NewBin(right.Type, ir.OpMul, right, l.ptrDiff(size))
		} else if l.table.IsDereferable(d.Right.Type) {
			size := l.table.Size(l.table.BaseType(d.Right.Type))
			left = ir.NewBin(left.Type, ir.OpMul, left, l.ptrDiff(size))
		}
	}
	return ir.NewBin(node.Type, l.binOp(d.Op, d.Left.Type), left, right)
}

func (l *funcLowerer) lowerUn(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.UnData)
	if d.Op == ast.UnPlus {
		// +e is e
		return l.transformExpr(d.Operand)
	}
	return ir.NewUni(node.Type, unOp(d.Op), l.transformExpr(d.Operand))
}

// lowerAref computes *(base + elementSize * index). Nested subscripts of
// a multi-dimensional array flatten into one linear index first.
func (l *funcLowerer) lowerAref(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.ArefData)
	offset := ir.NewBin(l.table.SignedInt(), ir.OpMul,
		l.intValue(d.ElemSize), l.transformArrayIndex(d))
	entry := ir.NewBin(l.table.PointerTo(node.Type), ir.OpAdd,
		l.transformExpr(d.BaseExpr()), offset)
	return l.deref(entry)
}

// transformArrayIndex folds the index chain of a multi-dimensional
// access by Horner's scheme: a[i][j] over extents (_, m) yields i*m + j.
func (l *funcLowerer) transformArrayIndex(d *ast.ArefData) *ir.Expr {
	if !d.MultiDim {
		return l.transformExpr(d.Index)
	}
	inner := d.Base.Data.(*ast.ArefData)
	return ir.NewBin(l.table.SignedInt(), ir.OpAdd,
		l.transformExpr(d.Index),
		ir.NewBin(l.table.SignedInt(), ir.OpMul,
			l.intValue(d.Length),
			l.transformArrayIndex(inner)))
}

// lowerMember computes base address plus member offset. Dot access takes
// the address of the lowered base; arrow access already has it.
func (l *funcLowerer) lowerMember(node *ast.Expr, viaPointer bool) *ir.Expr {
	d := node.Data.(*ast.MemberData)
	base := l.transformExpr(d.Base)
	if !viaPointer {
		base = l.addressOf(base)
	}
	addr := ir.NewBin(l.table.PointerTo(node.Type), ir.OpAdd, base, l.intValue(d.Offset))
	if node.WantsAddress {
		return addr
	}
	return l.deref(addr)
}

// lowerAddr cancels &* pairs: when the operand was already lowered to an
// address, it is returned unchanged.
func (l *funcLowerer) lowerAddr(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.AddrData)
	e := l.transformExpr(d.Operand)
	if d.Operand.WantsAddress && e.Kind == ir.ExprAddr {
		return e
	}
	return l.addressOf(e)
}

func (l *funcLowerer) lowerCast(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.CastData)
	if d.Effective {
		return ir.NewUni(node.Type, ir.OpCast, l.transformExpr(d.Inner))
	}
	return l.transformExpr(d.Inner)
}

func (l *funcLowerer) lowerVarRef(node *ast.Expr) *ir.Expr {
	d := node.Data.(*ast.VarRefData)
	v := ir.NewVar(d.Ent)
	if node.WantsAddress {
		return l.addressOf(v)
	}
	return v
}

//
// Address algebra and small builders
//

// addressOf wraps an expression in Addr, cancelling a direct Mem. Array
// values and non-loadable variables keep their own type under Addr; the
// code generator reads such carriers as addresses.
func (l *funcLowerer) addressOf(e *ir.Expr) *ir.Expr {
	if e.Kind == ir.ExprMem {
		return e.Mem.Addr
	}
	t := e.Type
	if !l.evaluatesToAddress(e) {
		t = l.table.PointerTo(e.Type)
	}
	return ir.NewAddr(t, e)
}

func (l *funcLowerer) evaluatesToAddress(e *ir.Expr) bool {
	return l.table.IsArray(e.Type) ||
		(e.Kind == ir.ExprVar && e.Var.Ent.CannotLoad())
}

func (l *funcLowerer) ref(ent *entity.Entity) *ir.Expr {
	return ir.NewVar(ent)
}

// deref loads through a pointer or array expression.
func (l *funcLowerer) deref(e *ir.Expr) *ir.Expr {
	return ir.NewMem(l.table.BaseType(e.Type), e)
}

// derefVar builds a fresh *v tree each call so emitted statements never
// share sub-trees.
func (l *funcLowerer) derefVar(ent *entity.Entity) *ir.Expr {
	return l.deref(l.ref(ent))
}

func (l *funcLowerer) intValue(n int64) *ir.Expr {
	return ir.NewIntValue(l.table.SignedInt(), n)
}

func (l *funcLowerer) ptrDiff(n int64) *ir.Expr {
	return ir.NewIntValue(l.table.PtrDiff(), n)
}

// binOp maps an AST operator to its IR counterpart. Right shift picks
// the arithmetic form when the shifted type is signed.
func (l *funcLowerer) binOp(op ast.BinOp, operandType types.TypeID) ir.Op {
	switch op {
	case ast.BinAdd:
		return ir.OpAdd
	case ast.BinSub:
		return ir.OpSub
	case ast.BinMul:
		return ir.OpMul
	case ast.BinDiv:
		return ir.OpDiv
	case ast.BinMod:
		return ir.OpMod
	case ast.BinBitAnd:
		return ir.OpAnd
	case ast.BinBitOr:
		return ir.OpOr
	case ast.BinBitXor:
		return ir.OpXor
	case ast.BinLShift:
		return ir.OpLShift
	case ast.BinRShift:
		if l.table.IsSigned(operandType) {
			return ir.OpARShift
		}
		return ir.OpRShift
	case ast.BinEq:
		return ir.OpEq
	case ast.BinNEq:
		return ir.OpNEq
	case ast.BinLt:
		return ir.OpLt
	case ast.BinLtEq:
		return ir.OpLtEq
	case ast.BinGt:
		return ir.OpGt
	case ast.BinGtEq:
		return ir.OpGtEq
	default:
		panic(fmt.Sprintf("lower: unknown binary operator %s", op))
	}
}

func unOp(op ast.UnOp) ir.Op {
	switch op {
	case ast.UnMinus:
		return ir.OpUMinus
	case ast.UnBitNot:
		return ir.OpBitNot
	case ast.UnNot:
		return ir.OpNot
	default:
		panic(fmt.Sprintf("lower: unknown unary operator %s", op))
	}
}

func incDecOp(decrement bool) ir.Op {
	if decrement {
		return ir.OpSub
	}
	return ir.OpAdd
}
