// Package lower flattens a typed AST into IR. Control flow becomes
// labels and jumps, side-effecting expressions become statements with
// fresh temporaries, and pointer, array and member accesses become
// explicit address arithmetic. The emitted expression trees are pure.
package lower

import (
	"errors"
	"fmt"
	"sort"

	"cminor/internal/ast"
	"cminor/internal/diag"
	"cminor/internal/entity"
	"cminor/internal/ir"
	"cminor/internal/source"
	"cminor/internal/types"
)

// Lower transforms prog into IR. Diagnostics go into bag; the returned
// error is non-nil when any of them is at error severity. The whole
// program is processed before failure is signalled so one run reports
// every problem.
func Lower(prog *ast.Program, table *types.Table, bag *diag.Bag) (*ir.Program, error) {
	out := &ir.Program{Pool: prog.Pool}

	for _, v := range prog.Vars {
		vd := &ir.VarDef{Ent: v.Ent}
		if v.Init != nil {
			vd.Init = lowerStaticInit(v.Ent, v.Init, table, bag)
		}
		out.Vars = append(out.Vars, vd)
	}
	for _, f := range prog.Funcs {
		out.Funcs = append(out.Funcs, lowerFunc(f, table, bag, out))
	}
	if bag.HasErrors() {
		return out, errors.New("lower: lowering failed")
	}
	return out, nil
}

// lowerStaticInit lowers an initializer that must fold to a single pure
// expression: module-scope variables and static locals are materialized
// before execution starts, so nothing can run for them.
func lowerStaticInit(ent *entity.Entity, init *ast.Expr, table *types.Table, bag *diag.Bag) *ir.Expr {
	l := &funcLowerer{
		table:      table,
		bag:        bag,
		scopeStack: []*entity.Scope{entity.NewScope()},
		jumpMap:    make(map[string]*jumpEntry),
	}
	e := l.transformExpr(init)
	if len(l.stmts) > 0 || e == nil || containsCall(e) {
		bag.Add(diag.NewError(diag.LowNonConstInit, init.Span,
			fmt.Sprintf("initializer of %s is not constant", ent.Name)))
		return nil
	}
	return e
}

// containsCall reports whether a call appears anywhere in e.
func containsCall(e *ir.Expr) bool {
	if e == nil || e.Kind == ir.ExprCall {
		return e != nil
	}
	return containsCall(e.Bin.Left) || containsCall(e.Bin.Right) ||
		containsCall(e.Uni.Operand) || containsCall(e.Mem.Addr) || containsCall(e.Addr.Inner)
}

func lowerFunc(f *ast.Func, table *types.Table, bag *diag.Bag, out *ir.Program) *ir.Func {
	l := &funcLowerer{
		fn:      f,
		table:   table,
		bag:     bag,
		prog:    out,
		jumpMap: make(map[string]*jumpEntry),
	}
	l.transformStmt(f.Body)
	l.checkJumpLinks()
	if len(l.breakStack) != 0 || len(l.continueStack) != 0 {
		panic(fmt.Sprintf("lower: unbalanced break/continue stacks in %s", f.Name()))
	}
	return &ir.Func{
		Ent:       f.Ent,
		Params:    f.Params,
		Scope:     f.Scope,
		Body:      l.stmts,
		NumLabels: uint32(l.nextLabel),
	}
}

// funcLowerer holds the per-function lowering state. Everything here is
// created at function entry and discarded at function exit.
type funcLowerer struct {
	fn    *ast.Func
	table *types.Table
	bag   *diag.Bag
	prog  *ir.Program

	stmts         []*ir.Stmt
	scopeStack    []*entity.Scope
	breakStack    []ir.Label
	continueStack []ir.Label
	jumpMap       map[string]*jumpEntry

	nextLabel uint32
	// beforeStmt is the index in stmts where the statement currently
	// being lowered started; hoisted assignments are inserted there.
	beforeStmt    int
	exprNestLevel int
}

func (l *funcLowerer) newLabel() ir.Label {
	id := l.nextLabel
	if id == uint32(ir.NoLabel) {
		panic(fmt.Errorf("lower: label overflow in %s", l.fn.Name()))
	}
	l.nextLabel++
	return ir.Label(id)
}

func (l *funcLowerer) transformStmt(node *ast.Stmt) {
	l.beforeStmt = len(l.stmts)
	l.lowerStmt(node)
}

func (l *funcLowerer) transformExpr(node *ast.Expr) *ir.Expr {
	l.exprNestLevel++
	e := l.lowerExpr(node)
	l.exprNestLevel--
	return e
}

// transformLHS lowers an assignment target. The generic lowering may
// have wrapped an lvalue in Addr; assignment wants the location itself,
// so one outer Addr is stripped.
func (l *funcLowerer) transformLHS(node *ast.Expr) *ir.Expr {
	e := l.transformExpr(node)
	if e != nil && e.Kind == ir.ExprAddr {
		return e.Addr.Inner
	}
	return e
}

// isStatement reports whether the expression currently being lowered sits
// directly under an expression statement rather than inside another
// expression.
func (l *funcLowerer) isStatement() bool {
	return l.exprNestLevel <= 1
}

// assignBeforeStmt hoists an assignment in front of the statement being
// lowered.
func (l *funcLowerer) assignBeforeStmt(lhs, rhs *ir.Expr) {
	s := ir.NewAssign(source.NoSpan, lhs, rhs)
	l.stmts = append(l.stmts, nil)
	copy(l.stmts[l.beforeStmt+1:], l.stmts[l.beforeStmt:])
	l.stmts[l.beforeStmt] = s
	l.beforeStmt++
}

func (l *funcLowerer) label(label ir.Label) {
	l.stmts = append(l.stmts, ir.NewLabelStmt(source.NoSpan, label))
}

func (l *funcLowerer) jump(target ir.Label) {
	l.stmts = append(l.stmts, ir.NewJump(source.NoSpan, target))
}

func (l *funcLowerer) branch(span source.Span, cond *ir.Expr, then, els ir.Label) {
	l.stmts = append(l.stmts, ir.NewBranchIf(span, cond, then, els))
}

func (l *funcLowerer) assign(span source.Span, lhs, rhs *ir.Expr) {
	l.stmts = append(l.stmts, ir.NewAssign(span, lhs, rhs))
}

func (l *funcLowerer) currentScope() *entity.Scope {
	if len(l.scopeStack) == 0 {
		panic("lower: no active scope")
	}
	return l.scopeStack[len(l.scopeStack)-1]
}

func (l *funcLowerer) tmpVar(typ types.TypeID) *entity.Entity {
	return l.currentScope().AllocateTmp(l.table, typ)
}

func (l *funcLowerer) pushBreak(label ir.Label) {
	l.breakStack = append(l.breakStack, label)
}

func (l *funcLowerer) popBreak() {
	if len(l.breakStack) == 0 {
		panic("lower: unmatched push/pop for break stack")
	}
	l.breakStack = l.breakStack[:len(l.breakStack)-1]
}

func (l *funcLowerer) pushContinue(label ir.Label) {
	l.continueStack = append(l.continueStack, label)
}

func (l *funcLowerer) popContinue() {
	if len(l.continueStack) == 0 {
		panic("lower: unmatched push/pop for continue stack")
	}
	l.continueStack = l.continueStack[:len(l.continueStack)-1]
}

// jumpEntry tracks one user-level label name within a function.
type jumpEntry struct {
	label   ir.Label
	defined bool
	numRefs int
	defSpan source.Span
	refSpan source.Span // first reference, for undefined-label reports
}

func (l *funcLowerer) jumpEntryFor(name string) *jumpEntry {
	ent, ok := l.jumpMap[name]
	if !ok {
		ent = &jumpEntry{label: l.newLabel(), defSpan: source.NoSpan, refSpan: source.NoSpan}
		l.jumpMap[name] = ent
	}
	return ent
}

func (l *funcLowerer) defineLabel(name string, span source.Span) (ir.Label, bool) {
	ent := l.jumpEntryFor(name)
	if ent.defined {
		l.bag.Add(diag.NewError(diag.LowDuplicatedLabel, span,
			fmt.Sprintf("duplicated jump labels in %s(): %s", l.fn.Name(), name)))
		return ir.NoLabel, false
	}
	ent.defined = true
	ent.defSpan = span
	return ent.label, true
}

func (l *funcLowerer) referLabel(name string, span source.Span) ir.Label {
	ent := l.jumpEntryFor(name)
	if ent.numRefs == 0 {
		ent.refSpan = span
	}
	ent.numRefs++
	return ent.label
}

// checkJumpLinks audits user labels after the body walk: goto to a name
// never defined is an error, a defined label nothing jumps to is a
// warning. Names are visited in sorted order so reports are stable.
func (l *funcLowerer) checkJumpLinks() {
	names := make([]string, 0, len(l.jumpMap))
	for name := range l.jumpMap {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ent := l.jumpMap[name]
		if !ent.defined {
			l.bag.Add(diag.NewError(diag.LowUndefinedLabel, ent.refSpan,
				"undefined label: "+name))
		}
		if ent.numRefs == 0 {
			l.bag.Add(diag.NewWarning(diag.LowUselessLabel, ent.defSpan,
				"useless label: "+name))
		}
	}
}
