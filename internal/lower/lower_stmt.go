package lower

import (
	"fmt"

	"cminor/internal/ast"
	"cminor/internal/diag"
	"cminor/internal/entity"
	"cminor/internal/ir"
	"cminor/internal/source"
)

func (l *funcLowerer) lowerStmt(node *ast.Stmt) {
	switch node.Kind {
	case ast.StmtBlock:
		l.lowerBlock(node.Data.(*ast.BlockData))
	case ast.StmtExpr:
		l.lowerExprStmt(node.Data.(*ast.ExprStmtData))
	case ast.StmtIf:
		l.lowerIf(node.Data.(*ast.IfData), node.Span)
	case ast.StmtWhile:
		l.lowerWhile(node.Data.(*ast.WhileData), node.Span)
	case ast.StmtDoWhile:
		l.lowerDoWhile(node.Data.(*ast.DoWhileData), node.Span)
	case ast.StmtFor:
		l.lowerFor(node.Data.(*ast.ForData), node.Span)
	case ast.StmtSwitch:
		l.lowerSwitch(node.Data.(*ast.SwitchData), node.Span)
	case ast.StmtBreak:
		l.lowerBreak(node)
	case ast.StmtContinue:
		l.lowerContinue(node)
	case ast.StmtLabel:
		l.lowerLabel(node.Data.(*ast.LabelData), node)
	case ast.StmtGoto:
		l.lowerGoto(node.Data.(*ast.GotoData), node)
	case ast.StmtReturn:
		l.lowerReturn(node.Data.(*ast.ReturnData), node)
	default:
		panic(fmt.Sprintf("lower: unknown statement kind %s", node.Kind))
	}
}

// lowerBlock pushes the block scope, lowers declarations with
// initializers, then the contained statements. The scope is active
// while initializers run so that an initializer needing a temporary can
// allocate one.
func (l *funcLowerer) lowerBlock(node *ast.BlockData) {
	l.scopeStack = append(l.scopeStack, node.Scope)
	for _, decl := range node.Decls {
		if decl.Ent.Storage == entity.StorageStatic {
			l.lowerStaticLocal(decl)
			continue
		}
		if decl.Init == nil {
			continue
		}
		l.beforeStmt = len(l.stmts)
		l.assign(decl.Ent.Span, l.ref(decl.Ent), l.transformInitializer(decl.Init))
	}
	for _, s := range node.Stmts {
		l.transformStmt(s)
	}
	l.scopeStack = l.scopeStack[:len(l.scopeStack)-1]
}

// lowerStaticLocal records a block-scoped static variable in the program's
// variable list together with its pure initializer, if it has one;
// nothing runs at the point of declaration.
func (l *funcLowerer) lowerStaticLocal(decl *ast.LocalDecl) {
	if decl.Init == nil {
		l.prog.Vars = append(l.prog.Vars, &ir.VarDef{Ent: decl.Ent})
		return
	}
	mark := len(l.stmts)
	e := l.transformExpr(decl.Init)
	if len(l.stmts) != mark || e == nil || containsCall(e) {
		l.stmts = l.stmts[:mark]
		l.bag.Add(diag.NewError(diag.LowNonConstInit, decl.Init.Span,
			fmt.Sprintf("initializer of %s is not constant", decl.Ent.Name)))
		return
	}
	l.prog.Vars = append(l.prog.Vars, &ir.VarDef{Ent: decl.Ent, Init: e})
}

func (l *funcLowerer) lowerExprStmt(node *ast.ExprStmtData) {
	e := l.transformExpr(node.Expr)
	if e != nil {
		l.stmts = append(l.stmts, ir.NewExprStmt(node.Expr.Span, e))
	}
}

func (l *funcLowerer) lowerIf(node *ast.IfData, span source.Span) {
	thenLabel := l.newLabel()
	elseLabel := l.newLabel()
	endLabel := l.newLabel()

	cond := l.transformExpr(node.Cond)
	if node.Else == nil {
		l.branch(span, cond, thenLabel, endLabel)
	} else {
		l.branch(span, cond, thenLabel, elseLabel)
	}
	l.label(thenLabel)
	l.transformStmt(node.Then)
	l.jump(endLabel)
	if node.Else != nil {
		l.label(elseLabel)
		l.transformStmt(node.Else)
		l.jump(endLabel)
	}
	l.label(endLabel)
}

func (l *funcLowerer) lowerWhile(node *ast.WhileData, span source.Span) {
	begLabel := l.newLabel()
	bodyLabel := l.newLabel()
	endLabel := l.newLabel()

	l.label(begLabel)
	l.branch(span, l.transformExpr(node.Cond), bodyLabel, endLabel)
	l.label(bodyLabel)
	l.pushContinue(begLabel)
	l.pushBreak(endLabel)
	l.transformStmt(node.Body)
	l.popBreak()
	l.popContinue()
	l.jump(begLabel)
	l.label(endLabel)
}

func (l *funcLowerer) lowerDoWhile(node *ast.DoWhileData, span source.Span) {
	begLabel := l.newLabel()
	contLabel := l.newLabel() // before cond, at the end of the body
	endLabel := l.newLabel()

	l.pushContinue(contLabel)
	l.pushBreak(endLabel)
	l.label(begLabel)
	l.transformStmt(node.Body)
	l.popBreak()
	l.popContinue()
	l.label(contLabel)
	l.branch(span, l.transformExpr(node.Cond), begLabel, endLabel)
	l.label(endLabel)
}

func (l *funcLowerer) lowerFor(node *ast.ForData, span source.Span) {
	begLabel := l.newLabel()
	bodyLabel := l.newLabel()
	contLabel := l.newLabel()
	endLabel := l.newLabel()

	if node.Init != nil {
		l.discardExpr(node.Init)
	}
	l.label(begLabel)
	if node.Cond == nil {
		l.branch(span, l.intValue(1), bodyLabel, endLabel)
	} else {
		l.branch(span, l.transformExpr(node.Cond), bodyLabel, endLabel)
	}
	l.label(bodyLabel)
	l.pushContinue(contLabel)
	l.pushBreak(endLabel)
	l.transformStmt(node.Body)
	l.popBreak()
	l.popContinue()
	l.label(contLabel)
	if node.Incr != nil {
		l.discardExpr(node.Incr)
	}
	l.jump(begLabel)
	l.label(endLabel)
}

// discardExpr lowers a head expression of a for loop for its effects
// only, as if it stood in its own expression statement.
func (l *funcLowerer) discardExpr(e *ast.Expr) {
	l.beforeStmt = len(l.stmts)
	if lowered := l.transformExpr(e); lowered != nil {
		l.stmts = append(l.stmts, ir.NewExprStmt(e.Span, lowered))
	}
}

func (l *funcLowerer) lowerSwitch(node *ast.SwitchData, span source.Span) {
	endLabel := l.newLabel()
	defaultLabel := endLabel

	armLabels := make([]ir.Label, len(node.Cases))
	for i, c := range node.Cases {
		armLabels[i] = l.newLabel()
		if c.IsDefault() {
			defaultLabel = armLabels[i]
		}
	}

	cond := l.transformExpr(node.Cond)
	var cases []ir.SwitchCase
	for i, c := range node.Cases {
		for _, val := range c.Values {
			v := l.transformExpr(val)
			if v == nil || v.Kind != ir.ExprIntValue {
				l.bag.Add(diag.NewError(diag.LowBadCaseValue, val.Span,
					"case value is not an integer constant"))
				continue
			}
			cases = append(cases, ir.SwitchCase{Value: v.Int.Value, Target: armLabels[i]})
		}
	}
	l.stmts = append(l.stmts, ir.NewSwitch(span, cond, cases, defaultLabel, endLabel))
	l.pushBreak(endLabel)
	for i, c := range node.Cases {
		l.label(armLabels[i])
		l.transformStmt(c.Body)
	}
	l.popBreak()
	l.label(endLabel)
}

func (l *funcLowerer) lowerBreak(node *ast.Stmt) {
	if len(l.breakStack) == 0 {
		l.bag.Add(diag.NewError(diag.LowBreakOutsideLoop, node.Span,
			"break from out of loop"))
		return
	}
	l.jump(l.breakStack[len(l.breakStack)-1])
}

func (l *funcLowerer) lowerContinue(node *ast.Stmt) {
	if len(l.continueStack) == 0 {
		l.bag.Add(diag.NewError(diag.LowContinueOutside, node.Span,
			"continue from out of loop"))
		return
	}
	l.jump(l.continueStack[len(l.continueStack)-1])
}

func (l *funcLowerer) lowerLabel(node *ast.LabelData, stmt *ast.Stmt) {
	label, ok := l.defineLabel(node.Name, stmt.Span)
	if !ok {
		return
	}
	l.stmts = append(l.stmts, ir.NewLabelStmt(stmt.Span, label))
	if node.Stmt != nil {
		l.transformStmt(node.Stmt)
	}
}

func (l *funcLowerer) lowerGoto(node *ast.GotoData, stmt *ast.Stmt) {
	l.stmts = append(l.stmts, ir.NewJump(stmt.Span, l.referLabel(node.Target, stmt.Span)))
}

func (l *funcLowerer) lowerReturn(node *ast.ReturnData, stmt *ast.Stmt) {
	var e *ir.Expr
	if node.Expr != nil {
		e = l.transformExpr(node.Expr)
	}
	l.stmts = append(l.stmts, ir.NewReturn(stmt.Span, e))
}
