package astio

import (
	"fmt"

	"cminor/internal/ast"
	"cminor/internal/entity"
	"cminor/internal/source"
	"cminor/internal/types"
)

type encoder struct {
	p        payload
	entIdx   map[*entity.Entity]int32
	scopeIdx map[*entity.Scope]int32
}

func newEncoder(table *types.Table) *encoder {
	e := &encoder{
		p:        payload{Schema: schemaVersion},
		entIdx:   make(map[*entity.Entity]int32),
		scopeIdx: make(map[*entity.Scope]int32),
	}
	tt, recs := table.Snapshot()
	e.p.Types = make([]wireType, len(tt))
	for i, t := range tt {
		e.p.Types[i] = wireType{
			Kind:    uint8(t.Kind),
			Elem:    uint32(t.Elem),
			Count:   t.Count,
			Width:   uint8(t.Width),
			Signed:  t.Signed,
			Payload: t.Payload,
		}
	}
	e.p.Records = make([]wireRecord, len(recs))
	for i, r := range recs {
		wr := wireRecord{Name: r.Name, Size: r.Size, Align: r.Align}
		for _, m := range r.Members {
			wr.Members = append(wr.Members, wireMember{Name: m.Name, Type: uint32(m.Type), Offset: m.Offset})
		}
		e.p.Records[i] = wr
	}
	return e
}

func (e *encoder) program(prog *ast.Program) {
	if prog.Pool != nil {
		for _, s := range prog.Pool.Entries() {
			e.p.Strings = append(e.p.Strings, s.Value)
		}
	}
	for _, v := range prog.Vars {
		e.p.Vars = append(e.p.Vars, wireVar{Ent: e.entity(v.Ent), Init: e.expr(v.Init)})
	}
	for _, f := range prog.Funcs {
		wf := wireFunc{Ent: e.entity(f.Ent), Scope: e.scope(f.Scope)}
		for _, prm := range f.Params {
			wf.Params = append(wf.Params, e.entity(prm))
		}
		wf.Body = e.stmt(f.Body)
		e.p.Funcs = append(e.p.Funcs, wf)
	}
}

func (e *encoder) entity(ent *entity.Entity) int32 {
	if ent == nil {
		return -1
	}
	if i, ok := e.entIdx[ent]; ok {
		return i
	}
	i := int32(len(e.p.Entities))
	e.entIdx[ent] = i
	e.p.Entities = append(e.p.Entities, wireEntity{
		Name:    ent.Name,
		Type:    uint32(ent.Type),
		Storage: uint8(ent.Storage),
		NoLoad:  ent.NoLoad,
		Temp:    ent.Temp,
		Span:    span(ent.Span),
	})
	return i
}

func (e *encoder) scope(s *entity.Scope) int32 {
	if s == nil {
		return -1
	}
	if i, ok := e.scopeIdx[s]; ok {
		return i
	}
	parent := e.scope(s.Parent)
	i := int32(len(e.p.Scopes))
	e.scopeIdx[s] = i
	e.p.Scopes = append(e.p.Scopes, wireScope{Parent: parent})
	vars := make([]int32, len(s.Vars))
	for j, v := range s.Vars {
		vars[j] = e.entity(v)
	}
	e.p.Scopes[i].Vars = vars
	return i
}

// expr appends the flattened node after its children, so every child
// index is lower than its parent's.
func (e *encoder) expr(x *ast.Expr) int32 {
	if x == nil {
		return -1
	}
	w := wireExpr{
		Kind:      uint8(x.Kind),
		Type:      uint32(x.Type),
		Span:      span(x.Span),
		WantsAddr: x.WantsAddress,
		Ent:       -1,
		X:         -1,
		Y:         -1,
		Z:         -1,
	}
	switch d := x.Data.(type) {
	case *ast.IntLitData:
		w.Int = d.Value
	case *ast.StrLitData:
		w.Str = d.Entry.ID
	case *ast.VarRefData:
		w.Ent = e.entity(d.Ent)
	case *ast.BinData:
		w.Op = uint8(d.Op)
		w.X = e.expr(d.Left)
		w.Y = e.expr(d.Right)
	case *ast.UnData:
		w.Op = uint8(d.Op)
		w.X = e.expr(d.Operand)
	case *ast.LogicalData:
		w.X = e.expr(d.Left)
		w.Y = e.expr(d.Right)
	case *ast.CondData:
		w.X = e.expr(d.Cond)
		w.Y = e.expr(d.Then)
		w.Z = e.expr(d.Else)
	case *ast.AssignData:
		w.X = e.expr(d.LHS)
		w.Y = e.expr(d.RHS)
	case *ast.OpAssignData:
		w.Op = uint8(d.Op)
		w.X = e.expr(d.LHS)
		w.Y = e.expr(d.RHS)
	case *ast.IncDecData:
		w.Decrement = d.Decrement
		w.X = e.expr(d.Operand)
	case *ast.CallData:
		w.X = e.expr(d.Callee)
		for _, a := range d.Args {
			w.Args = append(w.Args, e.expr(a))
		}
	case *ast.ArefData:
		w.X = e.expr(d.Base)
		w.Y = e.expr(d.Index)
		w.ElemSize = d.ElemSize
		w.Length = d.Length
		w.MultiDim = d.MultiDim
	case *ast.MemberData:
		w.X = e.expr(d.Base)
		w.Name = d.Name
		w.Offset = d.Offset
	case *ast.DerefData:
		w.X = e.expr(d.Operand)
	case *ast.AddrData:
		w.X = e.expr(d.Operand)
	case *ast.CastData:
		w.X = e.expr(d.Inner)
		w.Effective = d.Effective
	case *ast.SizeofData:
		w.X = e.expr(d.Operand)
		w.AllocSize = d.AllocSize
	default:
		panic(fmt.Sprintf("astio: unknown expression payload %T", x.Data))
	}
	i := int32(len(e.p.Exprs))
	e.p.Exprs = append(e.p.Exprs, w)
	return i
}

func (e *encoder) stmt(s *ast.Stmt) int32 {
	if s == nil {
		return -1
	}
	w := wireStmt{
		Kind:  uint8(s.Kind),
		Span:  span(s.Span),
		Scope: -1,
		Expr:  -1,
		Init:  -1,
		Incr:  -1,
		Then:  -1,
		Else:  -1,
	}
	switch d := s.Data.(type) {
	case *ast.BlockData:
		w.Scope = e.scope(d.Scope)
		for _, decl := range d.Decls {
			w.Decls = append(w.Decls, wireDecl{Ent: e.entity(decl.Ent), Init: e.expr(decl.Init)})
		}
		for _, inner := range d.Stmts {
			w.Stmts = append(w.Stmts, e.stmt(inner))
		}
	case *ast.ExprStmtData:
		w.Expr = e.expr(d.Expr)
	case *ast.IfData:
		w.Expr = e.expr(d.Cond)
		w.Then = e.stmt(d.Then)
		w.Else = e.stmt(d.Else)
	case *ast.WhileData:
		w.Expr = e.expr(d.Cond)
		w.Then = e.stmt(d.Body)
	case *ast.DoWhileData:
		w.Then = e.stmt(d.Body)
		w.Expr = e.expr(d.Cond)
	case *ast.ForData:
		w.Init = e.expr(d.Init)
		w.Expr = e.expr(d.Cond)
		w.Incr = e.expr(d.Incr)
		w.Then = e.stmt(d.Body)
	case *ast.SwitchData:
		w.Expr = e.expr(d.Cond)
		for _, c := range d.Cases {
			wc := wireCase{Body: e.stmt(c.Body), Span: span(c.Span)}
			for _, v := range c.Values {
				wc.Values = append(wc.Values, e.expr(v))
			}
			w.Cases = append(w.Cases, wc)
		}
	case *ast.LabelData:
		w.Name = d.Name
		w.Then = e.stmt(d.Stmt)
	case *ast.GotoData:
		w.Name = d.Target
	case *ast.ReturnData:
		w.Expr = e.expr(d.Expr)
	case nil:
		// break and continue carry no payload
	default:
		panic(fmt.Sprintf("astio: unknown statement payload %T", s.Data))
	}
	i := int32(len(e.p.Stmts))
	e.p.Stmts = append(e.p.Stmts, w)
	return i
}

func span(s source.Span) wireSpan {
	return wireSpan{File: uint32(s.File), Start: s.Start, End: s.End}
}
