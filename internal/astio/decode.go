package astio

import (
	"fmt"

	"cminor/internal/ast"
	"cminor/internal/entity"
	"cminor/internal/layout"
	"cminor/internal/source"
	"cminor/internal/types"
)

// decoder rebuilds the pointer graph table by table. The first index
// error sticks and aborts the walk; later lookups return nil.
type decoder struct {
	p *payload

	entries  []*entity.StringEntry
	entities []*entity.Entity
	scopes   []*entity.Scope
	exprs    []*ast.Expr
	stmts    []*ast.Stmt

	err error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("astio: "+format, args...)
	}
}

func (d *decoder) program(target layout.Target) (*ast.Program, *types.Table, error) {
	table, err := d.table(target)
	if err != nil {
		return nil, nil, err
	}

	pool := entity.NewConstantPool()
	for _, s := range d.p.Strings {
		d.entries = append(d.entries, pool.Intern(s))
	}

	d.decodeEntities()
	d.decodeScopes()
	d.decodeExprs()
	d.decodeStmts()

	prog := &ast.Program{Pool: pool}
	for _, v := range d.p.Vars {
		prog.Vars = append(prog.Vars, &ast.Var{Ent: d.entityAt(v.Ent), Init: d.exprOpt(v.Init)})
	}
	for _, f := range d.p.Funcs {
		fn := &ast.Func{Ent: d.entityAt(f.Ent), Scope: d.scopeAt(f.Scope), Body: d.stmtAt(f.Body)}
		for _, prm := range f.Params {
			fn.Params = append(fn.Params, d.entityAt(prm))
		}
		prog.Funcs = append(prog.Funcs, fn)
	}
	if d.err != nil {
		return nil, nil, d.err
	}
	return prog, table, nil
}

func (d *decoder) table(target layout.Target) (*types.Table, error) {
	tt := make([]types.Type, len(d.p.Types))
	for i, w := range d.p.Types {
		tt[i] = types.Type{
			Kind:    types.Kind(w.Kind),
			Elem:    types.TypeID(w.Elem),
			Count:   w.Count,
			Width:   types.CWidth(w.Width),
			Signed:  w.Signed,
			Payload: w.Payload,
		}
	}
	recs := make([]types.Record, len(d.p.Records))
	for i, w := range d.p.Records {
		r := types.Record{Name: w.Name, Size: w.Size, Align: w.Align}
		for _, m := range w.Members {
			r.Members = append(r.Members, types.Member{Name: m.Name, Type: types.TypeID(m.Type), Offset: m.Offset})
		}
		recs[i] = r
	}
	return types.FromSnapshot(target, tt, recs)
}

func (d *decoder) decodeEntities() {
	d.entities = make([]*entity.Entity, len(d.p.Entities))
	for i, w := range d.p.Entities {
		d.entities[i] = &entity.Entity{
			Name:    w.Name,
			Type:    types.TypeID(w.Type),
			Storage: entity.Storage(w.Storage),
			NoLoad:  w.NoLoad,
			Temp:    w.Temp,
			Span:    unspan(w.Span),
		}
	}
}

func (d *decoder) decodeScopes() {
	d.scopes = make([]*entity.Scope, len(d.p.Scopes))
	for i, w := range d.p.Scopes {
		var s *entity.Scope
		switch {
		case w.Parent == -1:
			s = entity.NewScope()
		case w.Parent >= 0 && int(w.Parent) < i:
			s = d.scopes[w.Parent].NewChild()
		default:
			d.fail("scope %d has parent %d", i, w.Parent)
			s = entity.NewScope()
		}
		for _, v := range w.Vars {
			s.Declare(d.entityAt(v))
		}
		d.scopes[i] = s
	}
}

func (d *decoder) decodeExprs() {
	d.exprs = make([]*ast.Expr, len(d.p.Exprs))
	for i, w := range d.p.Exprs {
		d.exprs[i] = d.decodeExpr(i, &w)
	}
}

// decodeExpr rebuilds one node. Children always sit at lower indices, so
// by the time a node is visited its children exist.
func (d *decoder) decodeExpr(i int, w *wireExpr) *ast.Expr {
	x := &ast.Expr{
		Kind:         ast.ExprKind(w.Kind),
		Type:         types.TypeID(w.Type),
		Span:         unspan(w.Span),
		WantsAddress: w.WantsAddr,
	}
	child := func(idx int32) *ast.Expr { return d.childExpr(idx, i) }
	opt := func(idx int32) *ast.Expr {
		if idx == -1 {
			return nil
		}
		return child(idx)
	}
	switch x.Kind {
	case ast.ExprIntLit:
		x.Data = &ast.IntLitData{Value: w.Int}
	case ast.ExprStrLit:
		if int(w.Str) >= len(d.entries) {
			d.fail("string entry %d out of range", w.Str)
			return x
		}
		x.Data = &ast.StrLitData{Entry: d.entries[w.Str]}
	case ast.ExprVarRef:
		x.Data = &ast.VarRefData{Ent: d.entityAt(w.Ent)}
	case ast.ExprBin:
		x.Data = &ast.BinData{Op: ast.BinOp(w.Op), Left: child(w.X), Right: child(w.Y)}
	case ast.ExprUn:
		x.Data = &ast.UnData{Op: ast.UnOp(w.Op), Operand: child(w.X)}
	case ast.ExprLogicalAnd, ast.ExprLogicalOr:
		x.Data = &ast.LogicalData{Left: child(w.X), Right: child(w.Y)}
	case ast.ExprCond:
		x.Data = &ast.CondData{Cond: child(w.X), Then: child(w.Y), Else: child(w.Z)}
	case ast.ExprAssign:
		x.Data = &ast.AssignData{LHS: child(w.X), RHS: child(w.Y)}
	case ast.ExprOpAssign:
		x.Data = &ast.OpAssignData{Op: ast.BinOp(w.Op), LHS: child(w.X), RHS: child(w.Y)}
	case ast.ExprPrefixIncDec, ast.ExprSuffixIncDec:
		x.Data = &ast.IncDecData{Decrement: w.Decrement, Operand: child(w.X)}
	case ast.ExprCall:
		cd := &ast.CallData{Callee: child(w.X)}
		for _, a := range w.Args {
			cd.Args = append(cd.Args, child(a))
		}
		x.Data = cd
	case ast.ExprAref:
		x.Data = &ast.ArefData{
			Base:     child(w.X),
			Index:    child(w.Y),
			ElemSize: w.ElemSize,
			Length:   w.Length,
			MultiDim: w.MultiDim,
		}
	case ast.ExprMember, ast.ExprPtrMember:
		x.Data = &ast.MemberData{Base: child(w.X), Name: w.Name, Offset: w.Offset}
	case ast.ExprDeref:
		x.Data = &ast.DerefData{Operand: child(w.X)}
	case ast.ExprAddr:
		x.Data = &ast.AddrData{Operand: child(w.X)}
	case ast.ExprCast:
		x.Data = &ast.CastData{Inner: child(w.X), Effective: w.Effective}
	case ast.ExprSizeof:
		x.Data = &ast.SizeofData{Operand: opt(w.X), AllocSize: w.AllocSize}
	default:
		d.fail("unknown expression kind %d", w.Kind)
	}
	return x
}

func (d *decoder) decodeStmts() {
	d.stmts = make([]*ast.Stmt, len(d.p.Stmts))
	for i, w := range d.p.Stmts {
		d.stmts[i] = d.decodeStmt(i, &w)
	}
}

func (d *decoder) decodeStmt(i int, w *wireStmt) *ast.Stmt {
	s := &ast.Stmt{Kind: ast.StmtKind(w.Kind), Span: unspan(w.Span)}
	child := func(idx int32) *ast.Stmt { return d.childStmt(idx, i) }
	opt := func(idx int32) *ast.Stmt {
		if idx == -1 {
			return nil
		}
		return child(idx)
	}
	switch s.Kind {
	case ast.StmtBlock:
		bd := &ast.BlockData{Scope: d.scopeAt(w.Scope)}
		for _, decl := range w.Decls {
			bd.Decls = append(bd.Decls, &ast.LocalDecl{Ent: d.entityAt(decl.Ent), Init: d.exprOpt(decl.Init)})
		}
		for _, inner := range w.Stmts {
			bd.Stmts = append(bd.Stmts, child(inner))
		}
		s.Data = bd
	case ast.StmtExpr:
		s.Data = &ast.ExprStmtData{Expr: d.exprAt(w.Expr)}
	case ast.StmtIf:
		s.Data = &ast.IfData{Cond: d.exprAt(w.Expr), Then: child(w.Then), Else: opt(w.Else)}
	case ast.StmtWhile:
		s.Data = &ast.WhileData{Cond: d.exprAt(w.Expr), Body: child(w.Then)}
	case ast.StmtDoWhile:
		s.Data = &ast.DoWhileData{Body: child(w.Then), Cond: d.exprAt(w.Expr)}
	case ast.StmtFor:
		s.Data = &ast.ForData{
			Init: d.exprOpt(w.Init),
			Cond: d.exprOpt(w.Expr),
			Incr: d.exprOpt(w.Incr),
			Body: child(w.Then),
		}
	case ast.StmtSwitch:
		sd := &ast.SwitchData{Cond: d.exprAt(w.Expr)}
		for _, c := range w.Cases {
			arm := &ast.Case{Body: child(c.Body), Span: unspan(c.Span)}
			for _, v := range c.Values {
				arm.Values = append(arm.Values, d.exprAt(v))
			}
			sd.Cases = append(sd.Cases, arm)
		}
		s.Data = sd
	case ast.StmtBreak, ast.StmtContinue:
		// no payload
	case ast.StmtLabel:
		s.Data = &ast.LabelData{Name: w.Name, Stmt: opt(w.Then)}
	case ast.StmtGoto:
		s.Data = &ast.GotoData{Target: w.Name}
	case ast.StmtReturn:
		s.Data = &ast.ReturnData{Expr: d.exprOpt(w.Expr)}
	default:
		d.fail("unknown statement kind %d", w.Kind)
	}
	return s
}

func (d *decoder) entityAt(idx int32) *entity.Entity {
	if idx < 0 || int(idx) >= len(d.entities) {
		d.fail("entity index %d out of range", idx)
		return nil
	}
	return d.entities[idx]
}

func (d *decoder) scopeAt(idx int32) *entity.Scope {
	if idx < 0 || int(idx) >= len(d.scopes) {
		d.fail("scope index %d out of range", idx)
		return nil
	}
	return d.scopes[idx]
}

func (d *decoder) childExpr(idx int32, before int) *ast.Expr {
	if idx < 0 || int(idx) >= before {
		d.fail("expression index %d not below %d", idx, before)
		return nil
	}
	return d.exprs[idx]
}

func (d *decoder) exprAt(idx int32) *ast.Expr {
	if idx < 0 || int(idx) >= len(d.exprs) {
		d.fail("expression index %d out of range", idx)
		return nil
	}
	return d.exprs[idx]
}

func (d *decoder) exprOpt(idx int32) *ast.Expr {
	if idx == -1 {
		return nil
	}
	return d.exprAt(idx)
}

func (d *decoder) childStmt(idx int32, before int) *ast.Stmt {
	if idx < 0 || int(idx) >= before {
		d.fail("statement index %d not below %d", idx, before)
		return nil
	}
	return d.stmts[idx]
}

func (d *decoder) stmtAt(idx int32) *ast.Stmt {
	if idx < 0 || int(idx) >= len(d.stmts) {
		d.fail("statement index %d out of range", idx)
		return nil
	}
	return d.stmts[idx]
}

func unspan(w wireSpan) source.Span {
	return source.Span{File: source.FileID(w.File), Start: w.Start, End: w.End}
}
