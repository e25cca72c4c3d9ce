package lower_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"cminor/internal/ast"
	"cminor/internal/diag"
	"cminor/internal/entity"
	"cminor/internal/ir"
	"cminor/internal/layout"
	"cminor/internal/lower"
	"cminor/internal/source"
	"cminor/internal/types"
)

// testUnit wraps a one-function program under construction. Tests
// declare variables, fill the function body and compare the formatted
// IR against literal lines.
type testUnit struct {
	table *types.Table
	prog  *ast.Program
	fn    *ast.Func
	body  *ast.BlockData
}

func newTestUnit() *testUnit {
	table := types.NewTable(layout.X86_64LinuxGNU())
	root := entity.NewScope()
	body := &ast.BlockData{Scope: root}
	fn := &ast.Func{
		Ent:   entity.NewVar("main", table.FuncOf(table.SignedInt()), entity.StorageStatic, source.NoSpan),
		Scope: root,
		Body:  &ast.Stmt{Kind: ast.StmtBlock, Data: body},
	}
	return &testUnit{
		table: table,
		prog:  &ast.Program{Funcs: []*ast.Func{fn}},
		fn:    fn,
		body:  body,
	}
}

func (u *testUnit) intType() types.TypeID {
	return u.table.SignedInt()
}

func (u *testUnit) local(name string, typ types.TypeID) *entity.Entity {
	e := entity.NewVar(name, typ, entity.StorageAuto, source.NoSpan)
	e.NoLoad = !u.table.IsScalar(typ)
	u.fn.Scope.Declare(e)
	return e
}

func (u *testUnit) intVar(name string) *entity.Entity {
	return u.local(name, u.intType())
}

func (u *testUnit) extFunc(name string, ret types.TypeID) *entity.Entity {
	return entity.NewVar(name, u.table.FuncOf(ret), entity.StorageExtern, source.NoSpan)
}

// block wraps statements in a child scope of the function root.
func (u *testUnit) block(stmts ...*ast.Stmt) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtBlock, Data: &ast.BlockData{
		Scope: u.fn.Scope.NewChild(),
		Stmts: stmts,
	}}
}

func (u *testUnit) lower(t *testing.T, stmts ...*ast.Stmt) []string {
	t.Helper()
	u.body.Stmts = stmts
	bag := diag.NewBag(64)
	prog, err := lower.Lower(u.prog, u.table, bag)
	if err != nil {
		t.Fatalf("Lower failed: %v, diagnostics: %v", err, bag.Items())
	}
	return formatBody(prog.Funcs[0])
}

func formatBody(f *ir.Func) []string {
	out := make([]string, len(f.Body))
	for i, s := range f.Body {
		out[i] = ir.FormatStmt(s)
	}
	return out
}

//
// Expression and statement builders
//

func intLit(typ types.TypeID, v int64) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprIntLit, Type: typ, Span: source.NoSpan, Data: &ast.IntLitData{Value: v}}
}

// val references an entity in value position.
func val(e *entity.Entity) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprVarRef, Type: e.Type, Span: source.NoSpan, Data: &ast.VarRefData{Ent: e}}
}

// loc references an entity in location position, the way the semantic
// analyzer marks assignment targets.
func loc(e *entity.Entity) *ast.Expr {
	x := val(e)
	x.WantsAddress = true
	return x
}

func binE(typ types.TypeID, op ast.BinOp, left, right *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprBin, Type: typ, Span: source.NoSpan, Data: &ast.BinData{Op: op, Left: left, Right: right}}
}

func assignE(lhs, rhs *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprAssign, Type: lhs.Type, Span: source.NoSpan, Data: &ast.AssignData{LHS: lhs, RHS: rhs}}
}

func opAssignE(op ast.BinOp, lhs, rhs *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprOpAssign, Type: lhs.Type, Span: source.NoSpan, Data: &ast.OpAssignData{Op: op, LHS: lhs, RHS: rhs}}
}

func callE(typ types.TypeID, callee *ast.Expr, args ...*ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprCall, Type: typ, Span: source.NoSpan, Data: &ast.CallData{Callee: callee, Args: args}}
}

func derefE(typ types.TypeID, operand *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprDeref, Type: typ, Span: source.NoSpan, Data: &ast.DerefData{Operand: operand}}
}

func addrE(typ types.TypeID, operand *ast.Expr) *ast.Expr {
	return &ast.Expr{Kind: ast.ExprAddr, Type: typ, Span: source.NoSpan, Data: &ast.AddrData{Operand: operand}}
}

func exprS(e *ast.Expr) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtExpr, Span: source.NoSpan, Data: &ast.ExprStmtData{Expr: e}}
}

func ifS(cond *ast.Expr, then, els *ast.Stmt) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtIf, Span: source.NoSpan, Data: &ast.IfData{Cond: cond, Then: then, Else: els}}
}

func whileS(cond *ast.Expr, body *ast.Stmt) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtWhile, Span: source.NoSpan, Data: &ast.WhileData{Cond: cond, Body: body}}
}

func doWhileS(body *ast.Stmt, cond *ast.Expr) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtDoWhile, Span: source.NoSpan, Data: &ast.DoWhileData{Body: body, Cond: cond}}
}

func forS(init, cond, incr *ast.Expr, body *ast.Stmt) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtFor, Span: source.NoSpan, Data: &ast.ForData{Init: init, Cond: cond, Incr: incr, Body: body}}
}

func switchS(cond *ast.Expr, cases ...*ast.Case) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtSwitch, Span: source.NoSpan, Data: &ast.SwitchData{Cond: cond, Cases: cases}}
}

func caseArm(body *ast.Stmt, values ...*ast.Expr) *ast.Case {
	return &ast.Case{Values: values, Body: body, Span: source.NoSpan}
}

func breakS() *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtBreak, Span: source.NoSpan}
}

func continueS() *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtContinue, Span: source.NoSpan}
}

func labelS(name string, stmt *ast.Stmt) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtLabel, Span: source.NoSpan, Data: &ast.LabelData{Name: name, Stmt: stmt}}
}

func gotoS(target string) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtGoto, Span: source.NoSpan, Data: &ast.GotoData{Target: target}}
}

func returnS(e *ast.Expr) *ast.Stmt {
	return &ast.Stmt{Kind: ast.StmtReturn, Span: source.NoSpan, Data: &ast.ReturnData{Expr: e}}
}

func TestLowerControlFlow(t *testing.T) {
	tests := []struct {
		name  string
		build func(u *testUnit) []*ast.Stmt
		want  []string
	}{
		{
			// if (x) y = 1; else y = 2;
			name: "if with else",
			build: func(u *testUnit) []*ast.Stmt {
				x, y := u.intVar("x"), u.intVar("y")
				return []*ast.Stmt{
					ifS(val(x),
						exprS(assignE(loc(y), intLit(u.intType(), 1))),
						exprS(assignE(loc(y), intLit(u.intType(), 2)))),
				}
			},
			want: []string{
				"BranchIf(x, L0, L1)",
				"Label L0",
				"Assign(y, 1)",
				"Jump L2",
				"Label L1",
				"Assign(y, 2)",
				"Jump L2",
				"Label L2",
			},
		},
		{
			// if (x) y = 1;
			name: "if without else",
			build: func(u *testUnit) []*ast.Stmt {
				x, y := u.intVar("x"), u.intVar("y")
				return []*ast.Stmt{
					ifS(val(x), exprS(assignE(loc(y), intLit(u.intType(), 1))), nil),
				}
			},
			want: []string{
				"BranchIf(x, L0, L2)",
				"Label L0",
				"Assign(y, 1)",
				"Jump L2",
				"Label L2",
			},
		},
		{
			// while (n > 0) { n = n - 1; }
			name: "while",
			build: func(u *testUnit) []*ast.Stmt {
				n := u.intVar("n")
				return []*ast.Stmt{
					whileS(binE(u.intType(), ast.BinGt, val(n), intLit(u.intType(), 0)),
						u.block(exprS(assignE(loc(n), binE(u.intType(), ast.BinSub, val(n), intLit(u.intType(), 1)))))),
				}
			},
			want: []string{
				"Label L0",
				"BranchIf(Bin(GT, n, 0), L1, L2)",
				"Label L1",
				"Assign(n, Bin(SUB, n, 1))",
				"Jump L0",
				"Label L2",
			},
		},
		{
			// do { n = n - 1; } while (n > 0);
			name: "do while",
			build: func(u *testUnit) []*ast.Stmt {
				n := u.intVar("n")
				return []*ast.Stmt{
					doWhileS(
						u.block(exprS(assignE(loc(n), binE(u.intType(), ast.BinSub, val(n), intLit(u.intType(), 1))))),
						binE(u.intType(), ast.BinGt, val(n), intLit(u.intType(), 0))),
				}
			},
			want: []string{
				"Label L0",
				"Assign(n, Bin(SUB, n, 1))",
				"Label L1",
				"BranchIf(Bin(GT, n, 0), L0, L2)",
				"Label L2",
			},
		},
		{
			// for (i = 0; i < n; i = i + 1) { s = s + i; }
			name: "for",
			build: func(u *testUnit) []*ast.Stmt {
				i, n, s := u.intVar("i"), u.intVar("n"), u.intVar("s")
				return []*ast.Stmt{
					forS(
						assignE(loc(i), intLit(u.intType(), 0)),
						binE(u.intType(), ast.BinLt, val(i), val(n)),
						assignE(loc(i), binE(u.intType(), ast.BinAdd, val(i), intLit(u.intType(), 1))),
						u.block(exprS(assignE(loc(s), binE(u.intType(), ast.BinAdd, val(s), val(i)))))),
				}
			},
			want: []string{
				"Assign(i, 0)",
				"Label L0",
				"BranchIf(Bin(LT, i, n), L1, L3)",
				"Label L1",
				"Assign(s, Bin(ADD, s, i))",
				"Label L2",
				"Assign(i, Bin(ADD, i, 1))",
				"Jump L0",
				"Label L3",
			},
		},
		{
			// for (;;) break;
			name: "for with empty heads",
			build: func(u *testUnit) []*ast.Stmt {
				return []*ast.Stmt{forS(nil, nil, nil, u.block(breakS()))}
			},
			want: []string{
				"Label L0",
				"BranchIf(1, L1, L3)",
				"Label L1",
				"Jump L3",
				"Label L2",
				"Jump L0",
				"Label L3",
			},
		},
		{
			// while (1) { if (x) continue; break; }
			name: "break and continue targets",
			build: func(u *testUnit) []*ast.Stmt {
				x := u.intVar("x")
				return []*ast.Stmt{
					whileS(intLit(u.intType(), 1),
						u.block(
							ifS(val(x), continueS(), nil),
							breakS())),
				}
			},
			want: []string{
				"Label L0",
				"BranchIf(1, L1, L2)",
				"Label L1",
				"BranchIf(x, L3, L5)",
				"Label L3",
				"Jump L0",
				"Jump L5",
				"Label L5",
				"Jump L2",
				"Jump L0",
				"Label L2",
			},
		},
		{
			// switch (x) { case 1: y = 1; break; case 2: y = 2; break; default: y = 0; }
			name: "switch",
			build: func(u *testUnit) []*ast.Stmt {
				x, y := u.intVar("x"), u.intVar("y")
				return []*ast.Stmt{
					switchS(val(x),
						caseArm(u.block(exprS(assignE(loc(y), intLit(u.intType(), 1))), breakS()), intLit(u.intType(), 1)),
						caseArm(u.block(exprS(assignE(loc(y), intLit(u.intType(), 2))), breakS()), intLit(u.intType(), 2)),
						caseArm(u.block(exprS(assignE(loc(y), intLit(u.intType(), 0)))))),
				}
			},
			want: []string{
				"Switch(x, [(1, L1), (2, L2)], default=L3, end=L0)",
				"Label L1",
				"Assign(y, 1)",
				"Jump L0",
				"Label L2",
				"Assign(y, 2)",
				"Jump L0",
				"Label L3",
				"Assign(y, 0)",
				"Label L0",
			},
		},
		{
			// switch without default falls through to the end label.
			name: "switch without default",
			build: func(u *testUnit) []*ast.Stmt {
				x, y := u.intVar("x"), u.intVar("y")
				return []*ast.Stmt{
					switchS(val(x),
						caseArm(u.block(exprS(assignE(loc(y), intLit(u.intType(), 1))), breakS()),
							intLit(u.intType(), 1), intLit(u.intType(), 2))),
				}
			},
			want: []string{
				"Switch(x, [(1, L1), (2, L1)], default=L0, end=L0)",
				"Label L1",
				"Assign(y, 1)",
				"Jump L0",
				"Label L0",
			},
		},
		{
			// goto done; x = 1; done: return x;
			name: "goto and label",
			build: func(u *testUnit) []*ast.Stmt {
				x := u.intVar("x")
				return []*ast.Stmt{
					gotoS("done"),
					exprS(assignE(loc(x), intLit(u.intType(), 1))),
					labelS("done", returnS(val(x))),
				}
			},
			want: []string{
				"Jump L0",
				"Assign(x, 1)",
				"Label L0",
				"Return(x)",
			},
		},
		{
			name: "bare return",
			build: func(u *testUnit) []*ast.Stmt {
				return []*ast.Stmt{returnS(nil)}
			},
			want: []string{"Return"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUnit()
			got := u.lower(t, tt.build(u)...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("lowered body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLowerExpressions(t *testing.T) {
	tests := []struct {
		name  string
		build func(u *testUnit) []*ast.Stmt
		want  []string
	}{
		{
			name: "plain assignment",
			build: func(u *testUnit) []*ast.Stmt {
				x := u.intVar("x")
				return []*ast.Stmt{exprS(assignE(loc(x), intLit(u.intType(), 42)))}
			},
			want: []string{"Assign(x, 42)"},
		},
		{
			// x = a[i] with a: int[10]
			name: "array load",
			build: func(u *testUnit) []*ast.Stmt {
				intT := u.intType()
				a := u.local("a", u.table.ArrayOf(intT, 10))
				i, x := u.intVar("i"), u.intVar("x")
				aref := &ast.Expr{Kind: ast.ExprAref, Type: intT, Span: source.NoSpan, Data: &ast.ArefData{
					Base: val(a), Index: val(i), ElemSize: 4, Length: 10,
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), aref))}
			},
			want: []string{"Assign(x, Mem(Bin(ADD, a, Bin(MUL, 4, i))))"},
		},
		{
			// a[i] = x
			name: "array store",
			build: func(u *testUnit) []*ast.Stmt {
				intT := u.intType()
				a := u.local("a", u.table.ArrayOf(intT, 10))
				i, x := u.intVar("i"), u.intVar("x")
				aref := &ast.Expr{Kind: ast.ExprAref, Type: intT, Span: source.NoSpan, Data: &ast.ArefData{
					Base: val(a), Index: val(i), ElemSize: 4, Length: 10,
				}}
				return []*ast.Stmt{exprS(assignE(aref, val(x)))}
			},
			want: []string{"Assign(Mem(Bin(ADD, a, Bin(MUL, 4, i))), x)"},
		},
		{
			// x = m[i][j] with m: int[3][4]; the index flattens to j + 4*i.
			name: "multidimensional array load",
			build: func(u *testUnit) []*ast.Stmt {
				intT := u.intType()
				rowT := u.table.ArrayOf(intT, 4)
				m := u.local("m", u.table.ArrayOf(rowT, 3))
				i, j, x := u.intVar("i"), u.intVar("j"), u.intVar("x")
				inner := &ast.Expr{Kind: ast.ExprAref, Type: rowT, Span: source.NoSpan, Data: &ast.ArefData{
					Base: val(m), Index: val(i), ElemSize: 16, Length: 3,
				}}
				outer := &ast.Expr{Kind: ast.ExprAref, Type: intT, Span: source.NoSpan, Data: &ast.ArefData{
					Base: inner, Index: val(j), ElemSize: 4, Length: 4, MultiDim: true,
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), outer))}
			},
			want: []string{"Assign(x, Mem(Bin(ADD, m, Bin(MUL, 4, Bin(ADD, j, Bin(MUL, 4, i))))))"},
		},
		{
			// p = p + 3 with p: int*; the addend scales by the pointee size.
			name: "pointer addition",
			build: func(u *testUnit) []*ast.Stmt {
				p := u.local("p", u.table.PointerTo(u.intType()))
				return []*ast.Stmt{
					exprS(assignE(loc(p), binE(p.Type, ast.BinAdd, val(p), intLit(u.intType(), 3)))),
				}
			},
			want: []string{"Assign(p, Bin(ADD, p, Bin(MUL, 3, 4)))"},
		},
		{
			// q = 3 + p mirrors the scaling onto the left operand.
			name: "integer plus pointer",
			build: func(u *testUnit) []*ast.Stmt {
				ptrT := u.table.PointerTo(u.intType())
				p := u.local("p", ptrT)
				q := u.local("q", ptrT)
				return []*ast.Stmt{
					exprS(assignE(loc(q), binE(ptrT, ast.BinAdd, intLit(u.intType(), 3), val(p)))),
				}
			},
			want: []string{"Assign(q, Bin(ADD, Bin(MUL, 3, 4), p))"},
		},
		{
			// x = *p
			name: "dereference",
			build: func(u *testUnit) []*ast.Stmt {
				p := u.local("p", u.table.PointerTo(u.intType()))
				x := u.intVar("x")
				return []*ast.Stmt{exprS(assignE(loc(x), derefE(u.intType(), val(p))))}
			},
			want: []string{"Assign(x, Mem(p))"},
		},
		{
			// p = &y
			name: "address of variable",
			build: func(u *testUnit) []*ast.Stmt {
				y := u.intVar("y")
				ptrT := u.table.PointerTo(u.intType())
				p := u.local("p", ptrT)
				return []*ast.Stmt{exprS(assignE(loc(p), addrE(ptrT, loc(y))))}
			},
			want: []string{"Assign(p, Addr(y))"},
		},
		{
			// x = *&y keeps the Mem over the address.
			name: "dereference of address",
			build: func(u *testUnit) []*ast.Stmt {
				y, x := u.intVar("y"), u.intVar("x")
				ptrT := u.table.PointerTo(u.intType())
				return []*ast.Stmt{
					exprS(assignE(loc(x), derefE(u.intType(), addrE(ptrT, loc(y))))),
				}
			},
			want: []string{"Assign(x, Mem(Addr(y)))"},
		},
		{
			// p = &*q cancels to the pointer itself.
			name: "address of dereference",
			build: func(u *testUnit) []*ast.Stmt {
				ptrT := u.table.PointerTo(u.intType())
				q := u.local("q", ptrT)
				p := u.local("p", ptrT)
				return []*ast.Stmt{
					exprS(assignE(loc(p), addrE(ptrT, derefE(u.intType(), val(q))))),
				}
			},
			want: []string{"Assign(p, q)"},
		},
		{
			// x = s.b with struct {int a; int b;}: base address plus offset 4.
			name: "member load",
			build: func(u *testUnit) []*ast.Stmt {
				intT := u.intType()
				recT := u.table.AddStruct("pair", []types.Member{{Name: "a", Type: intT}, {Name: "b", Type: intT}})
				s := u.local("s", recT)
				x := u.intVar("x")
				member := &ast.Expr{Kind: ast.ExprMember, Type: intT, Span: source.NoSpan, Data: &ast.MemberData{
					Base: val(s), Name: "b", Offset: 4,
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), member))}
			},
			want: []string{"Assign(x, Mem(Bin(ADD, Addr(s), 4)))"},
		},
		{
			// x = sp->b with sp: struct pair*
			name: "pointer member load",
			build: func(u *testUnit) []*ast.Stmt {
				intT := u.intType()
				recT := u.table.AddStruct("pair", []types.Member{{Name: "a", Type: intT}, {Name: "b", Type: intT}})
				sp := u.local("sp", u.table.PointerTo(recT))
				x := u.intVar("x")
				member := &ast.Expr{Kind: ast.ExprPtrMember, Type: intT, Span: source.NoSpan, Data: &ast.MemberData{
					Base: val(sp), Name: "b", Offset: 4,
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), member))}
			},
			want: []string{"Assign(x, Mem(Bin(ADD, sp, 4)))"},
		},
		{
			// s.b = 5 stores through the member address.
			name: "member store",
			build: func(u *testUnit) []*ast.Stmt {
				intT := u.intType()
				recT := u.table.AddStruct("pair", []types.Member{{Name: "a", Type: intT}, {Name: "b", Type: intT}})
				s := u.local("s", recT)
				member := &ast.Expr{Kind: ast.ExprMember, Type: intT, Span: source.NoSpan, Data: &ast.MemberData{
					Base: val(s), Name: "b", Offset: 4,
				}}
				return []*ast.Stmt{exprS(assignE(member, intLit(intT, 5)))}
			},
			want: []string{"Assign(Mem(Bin(ADD, Addr(s), 4)), 5)"},
		},
		{
			name: "effective cast",
			build: func(u *testUnit) []*ast.Stmt {
				longT := u.table.Builtins().SignedLong
				x := u.intVar("x")
				l := u.local("l", longT)
				cast := &ast.Expr{Kind: ast.ExprCast, Type: longT, Span: source.NoSpan, Data: &ast.CastData{
					Inner: val(x), Effective: true,
				}}
				return []*ast.Stmt{exprS(assignE(loc(l), cast))}
			},
			want: []string{"Assign(l, Uni(CAST, x))"},
		},
		{
			name: "ineffective cast vanishes",
			build: func(u *testUnit) []*ast.Stmt {
				x, y := u.intVar("x"), u.intVar("y")
				cast := &ast.Expr{Kind: ast.ExprCast, Type: u.intType(), Span: source.NoSpan, Data: &ast.CastData{
					Inner: val(y), Effective: false,
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), cast))}
			},
			want: []string{"Assign(x, y)"},
		},
		{
			name: "sizeof folds to a constant",
			build: func(u *testUnit) []*ast.Stmt {
				x := u.intVar("x")
				sz := &ast.Expr{Kind: ast.ExprSizeof, Type: u.intType(), Span: source.NoSpan, Data: &ast.SizeofData{
					AllocSize: 8,
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), sz))}
			},
			want: []string{"Assign(x, 8)"},
		},
		{
			name: "unary plus is identity",
			build: func(u *testUnit) []*ast.Stmt {
				x, y := u.intVar("x"), u.intVar("y")
				plus := &ast.Expr{Kind: ast.ExprUn, Type: u.intType(), Span: source.NoSpan, Data: &ast.UnData{
					Op: ast.UnPlus, Operand: val(y),
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), plus))}
			},
			want: []string{"Assign(x, y)"},
		},
		{
			name: "unary minus",
			build: func(u *testUnit) []*ast.Stmt {
				x, y := u.intVar("x"), u.intVar("y")
				neg := &ast.Expr{Kind: ast.ExprUn, Type: u.intType(), Span: source.NoSpan, Data: &ast.UnData{
					Op: ast.UnMinus, Operand: val(y),
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), neg))}
			},
			want: []string{"Assign(x, Uni(UMINUS, y))"},
		},
		{
			name: "signed right shift is arithmetic",
			build: func(u *testUnit) []*ast.Stmt {
				x := u.intVar("x")
				return []*ast.Stmt{
					exprS(assignE(loc(x), binE(u.intType(), ast.BinRShift, val(x), intLit(u.intType(), 1)))),
				}
			},
			want: []string{"Assign(x, Bin(ARSHIFT, x, 1))"},
		},
		{
			name: "unsigned right shift is logical",
			build: func(u *testUnit) []*ast.Stmt {
				uintT := u.table.Builtins().UnsignedInt
				x := u.local("x", uintT)
				return []*ast.Stmt{
					exprS(assignE(loc(x), binE(uintT, ast.BinRShift, val(x), intLit(uintT, 1)))),
				}
			},
			want: []string{"Assign(x, Bin(RSHIFT, x, 1))"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUnit()
			got := u.lower(t, tt.build(u)...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("lowered body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLowerSideEffects(t *testing.T) {
	tests := []struct {
		name  string
		build func(u *testUnit) []*ast.Stmt
		want  []string
	}{
		{
			// x = a && b flows through a temporary that doubles as the test.
			name: "logical and",
			build: func(u *testUnit) []*ast.Stmt {
				a, b, x := u.intVar("a"), u.intVar("b"), u.intVar("x")
				and := &ast.Expr{Kind: ast.ExprLogicalAnd, Type: u.intType(), Span: source.NoSpan, Data: &ast.LogicalData{
					Left: val(a), Right: val(b),
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), and))}
			},
			want: []string{
				"Assign(@tmp0, a)",
				"BranchIf(@tmp0, L0, L1)",
				"Label L0",
				"Assign(@tmp0, b)",
				"Label L1",
				"Assign(x, @tmp0)",
			},
		},
		{
			// x = a || b skips the right side when the left is true.
			name: "logical or",
			build: func(u *testUnit) []*ast.Stmt {
				a, b, x := u.intVar("a"), u.intVar("b"), u.intVar("x")
				or := &ast.Expr{Kind: ast.ExprLogicalOr, Type: u.intType(), Span: source.NoSpan, Data: &ast.LogicalData{
					Left: val(a), Right: val(b),
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), or))}
			},
			want: []string{
				"Assign(@tmp0, a)",
				"BranchIf(@tmp0, L1, L0)",
				"Label L0",
				"Assign(@tmp0, b)",
				"Label L1",
				"Assign(x, @tmp0)",
			},
		},
		{
			// x = c ? 1 : 2
			name: "conditional expression",
			build: func(u *testUnit) []*ast.Stmt {
				c, x := u.intVar("c"), u.intVar("x")
				cond := &ast.Expr{Kind: ast.ExprCond, Type: u.intType(), Span: source.NoSpan, Data: &ast.CondData{
					Cond: val(c), Then: intLit(u.intType(), 1), Else: intLit(u.intType(), 2),
				}}
				return []*ast.Stmt{exprS(assignE(loc(x), cond))}
			},
			want: []string{
				"BranchIf(c, L0, L1)",
				"Label L0",
				"Assign(@tmp0, 1)",
				"Jump L2",
				"Label L1",
				"Assign(@tmp0, 2)",
				"Jump L2",
				"Label L2",
				"Assign(x, @tmp0)",
			},
		},
		{
			// x = (y = 5): the nested store hoists and the value reads back
			// from the temporary.
			name: "assignment inside expression",
			build: func(u *testUnit) []*ast.Stmt {
				x, y := u.intVar("x"), u.intVar("y")
				inner := assignE(loc(y), intLit(u.intType(), 5))
				return []*ast.Stmt{exprS(assignE(loc(x), inner))}
			},
			want: []string{
				"Assign(@tmp0, 5)",
				"Assign(y, @tmp0)",
				"Assign(x, @tmp0)",
			},
		},
		{
			// x += 5 on a named variable needs no address temporary.
			name: "compound assignment to variable",
			build: func(u *testUnit) []*ast.Stmt {
				x := u.intVar("x")
				return []*ast.Stmt{exprS(opAssignE(ast.BinAdd, loc(x), intLit(u.intType(), 5)))}
			},
			want: []string{"Assign(x, Bin(ADD, x, 5))"},
		},
		{
			// a[i] += 2 computes the element address exactly once.
			name: "compound assignment to array element",
			build: func(u *testUnit) []*ast.Stmt {
				intT := u.intType()
				a := u.local("a", u.table.ArrayOf(intT, 10))
				i := u.intVar("i")
				aref := &ast.Expr{Kind: ast.ExprAref, Type: intT, Span: source.NoSpan, Data: &ast.ArefData{
					Base: val(a), Index: val(i), ElemSize: 4, Length: 10,
				}}
				return []*ast.Stmt{exprS(opAssignE(ast.BinAdd, aref, intLit(intT, 2)))}
			},
			want: []string{
				"Assign(@tmp0, Bin(ADD, a, Bin(MUL, 4, i)))",
				"Assign(Mem(@tmp0), Bin(ADD, Mem(@tmp0), 2))",
			},
		},
		{
			// p += 2 with p: int* scales the step.
			name: "compound assignment to pointer",
			build: func(u *testUnit) []*ast.Stmt {
				p := u.local("p", u.table.PointerTo(u.intType()))
				return []*ast.Stmt{exprS(opAssignE(ast.BinAdd, loc(p), intLit(u.intType(), 2)))}
			},
			want: []string{"Assign(p, Bin(ADD, p, Bin(MUL, 2, 4)))"},
		},
		{
			// ++x as a statement is x += 1.
			name: "prefix increment statement",
			build: func(u *testUnit) []*ast.Stmt {
				x := u.intVar("x")
				inc := &ast.Expr{Kind: ast.ExprPrefixIncDec, Type: u.intType(), Span: source.NoSpan, Data: &ast.IncDecData{
					Operand: loc(x),
				}}
				return []*ast.Stmt{exprS(inc)}
			},
			want: []string{"Assign(x, Bin(ADD, x, 1))"},
		},
		{
			// ++p steps by the pointee size.
			name: "prefix increment pointer",
			build: func(u *testUnit) []*ast.Stmt {
				p := u.local("p", u.table.PointerTo(u.intType()))
				inc := &ast.Expr{Kind: ast.ExprPrefixIncDec, Type: p.Type, Span: source.NoSpan, Data: &ast.IncDecData{
					Operand: loc(p),
				}}
				return []*ast.Stmt{exprS(inc)}
			},
			want: []string{"Assign(p, Bin(ADD, p, Bin(MUL, 1, 4)))"},
		},
		{
			// x-- as a statement is x -= 1.
			name: "suffix decrement statement",
			build: func(u *testUnit) []*ast.Stmt {
				x := u.intVar("x")
				dec := &ast.Expr{Kind: ast.ExprSuffixIncDec, Type: u.intType(), Span: source.NoSpan, Data: &ast.IncDecData{
					Decrement: true, Operand: loc(x),
				}}
				return []*ast.Stmt{exprS(dec)}
			},
			want: []string{"Assign(x, Bin(SUB, x, 1))"},
		},
		{
			// f(x++) reads the old value into a temporary before the bump.
			name: "suffix increment inside call",
			build: func(u *testUnit) []*ast.Stmt {
				f := u.extFunc("f", u.table.Builtins().Void)
				x := u.intVar("x")
				inc := &ast.Expr{Kind: ast.ExprSuffixIncDec, Type: u.intType(), Span: source.NoSpan, Data: &ast.IncDecData{
					Operand: loc(x),
				}}
				return []*ast.Stmt{exprS(callE(u.table.Builtins().Void, val(f), inc))}
			},
			want: []string{
				"Assign(@tmp0, x)",
				"Assign(x, Bin(ADD, x, 1))",
				"ExprStmt(Call(f, @tmp0))",
			},
		},
		{
			// f((*g())++) with g: int**() evaluates g exactly once: the
			// location is captured in an address temporary, the old value in
			// a second one, and the stored pointer steps by the pointee size.
			name: "suffix increment of call dereference",
			build: func(u *testUnit) []*ast.Stmt {
				intT := u.intType()
				ptrT := u.table.PointerTo(intT)
				ptrPtrT := u.table.PointerTo(ptrT)
				g := u.extFunc("g", ptrPtrT)
				f := u.extFunc("f", u.table.Builtins().Void)
				operand := derefE(ptrT, callE(ptrPtrT, val(g)))
				inc := &ast.Expr{Kind: ast.ExprSuffixIncDec, Type: ptrT, Span: source.NoSpan, Data: &ast.IncDecData{
					Operand: operand,
				}}
				return []*ast.Stmt{exprS(callE(u.table.Builtins().Void, val(f), inc))}
			},
			want: []string{
				"Assign(@tmp0, Call(g))",
				"Assign(@tmp1, Mem(@tmp0))",
				"Assign(Mem(@tmp0), Bin(ADD, Mem(@tmp0), Bin(MUL, 1, 4)))",
				"ExprStmt(Call(f, @tmp1))",
			},
		},
		{
			// h(a, b) lowers arguments right to left, so side effects in b
			// hoist before those in a.
			name: "call arguments lower right to left",
			build: func(u *testUnit) []*ast.Stmt {
				h := u.extFunc("h", u.table.Builtins().Void)
				a, b := u.intVar("a"), u.intVar("b")
				incA := &ast.Expr{Kind: ast.ExprSuffixIncDec, Type: u.intType(), Span: source.NoSpan, Data: &ast.IncDecData{
					Operand: loc(a),
				}}
				incB := &ast.Expr{Kind: ast.ExprSuffixIncDec, Type: u.intType(), Span: source.NoSpan, Data: &ast.IncDecData{
					Operand: loc(b),
				}}
				return []*ast.Stmt{exprS(callE(u.table.Builtins().Void, val(h), incA, incB))}
			},
			want: []string{
				"Assign(@tmp0, b)",
				"Assign(b, Bin(ADD, b, 1))",
				"Assign(@tmp1, a)",
				"Assign(a, Bin(ADD, a, 1))",
				"ExprStmt(Call(h, @tmp1, @tmp0))",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUnit()
			got := u.lower(t, tt.build(u)...)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("lowered body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// Local declarations with initializers lower as assignments at the head
// of their block; side effects of the initializer hoist in front.
func TestLowerLocalInitializer(t *testing.T) {
	u := newTestUnit()
	x, y := u.intVar("x"), u.intVar("y")
	inc := &ast.Expr{Kind: ast.ExprSuffixIncDec, Type: u.intType(), Span: source.NoSpan, Data: &ast.IncDecData{
		Operand: loc(y),
	}}
	u.body.Decls = []*ast.LocalDecl{{Ent: x, Init: inc}}

	got := u.lower(t)
	want := []string{
		"Assign(@tmp0, y)",
		"Assign(y, Bin(ADD, y, 1))",
		"Assign(x, @tmp0)",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lowered body mismatch (-want +got):\n%s", diff)
	}
}

// Static locals move to the module variable list; nothing runs at the
// point of declaration.
func TestLowerStaticLocal(t *testing.T) {
	u := newTestUnit()
	s := entity.NewVar("counter", u.intType(), entity.StorageStatic, source.NoSpan)
	u.fn.Scope.Declare(s)
	u.body.Decls = []*ast.LocalDecl{{Ent: s, Init: intLit(u.intType(), 42)}}

	bag := diag.NewBag(64)
	prog, err := lower.Lower(u.prog, u.table, bag)
	if err != nil {
		t.Fatalf("Lower failed: %v, diagnostics: %v", err, bag.Items())
	}
	if len(prog.Funcs[0].Body) != 0 {
		t.Errorf("function body not empty: %v", formatBody(prog.Funcs[0]))
	}
	if len(prog.Vars) != 1 {
		t.Fatalf("got %d module variables, want 1", len(prog.Vars))
	}
	if prog.Vars[0].Ent != s {
		t.Errorf("module variable entity is %q, want %q", prog.Vars[0].Ent.Name, s.Name)
	}
	if got := ir.FormatExpr(prog.Vars[0].Init); got != "42" {
		t.Errorf("initializer lowered to %s, want 42", got)
	}
}

func TestLowerModuleVars(t *testing.T) {
	t.Run("constant initializer", func(t *testing.T) {
		u := newTestUnit()
		g := entity.NewVar("limit", u.intType(), entity.StorageStatic, source.NoSpan)
		u.prog.Vars = []*ast.Var{{Ent: g, Init: intLit(u.intType(), 7)}}

		bag := diag.NewBag(64)
		prog, err := lower.Lower(u.prog, u.table, bag)
		if err != nil {
			t.Fatalf("Lower failed: %v", err)
		}
		if len(prog.Vars) != 1 || prog.Vars[0].Init == nil {
			t.Fatalf("module variable missing: %+v", prog.Vars)
		}
		if got := ir.FormatExpr(prog.Vars[0].Init); got != "7" {
			t.Errorf("initializer lowered to %s, want 7", got)
		}
	})

	t.Run("uninitialized", func(t *testing.T) {
		u := newTestUnit()
		g := entity.NewVar("buf", u.table.ArrayOf(u.intType(), 8), entity.StorageStatic, source.NoSpan)
		g.NoLoad = true
		u.prog.Vars = []*ast.Var{{Ent: g}}

		bag := diag.NewBag(64)
		prog, err := lower.Lower(u.prog, u.table, bag)
		if err != nil {
			t.Fatalf("Lower failed: %v", err)
		}
		if len(prog.Vars) != 1 || prog.Vars[0].Init != nil {
			t.Fatalf("unexpected module variables: %+v", prog.Vars)
		}
	})

	t.Run("initializer with side effects", func(t *testing.T) {
		u := newTestUnit()
		g := entity.NewVar("bad", u.intType(), entity.StorageStatic, source.NoSpan)
		other := entity.NewVar("other", u.intType(), entity.StorageStatic, source.NoSpan)
		u.prog.Vars = []*ast.Var{{Ent: g, Init: assignE(loc(other), intLit(u.intType(), 1))}}

		bag := diag.NewBag(64)
		_, err := lower.Lower(u.prog, u.table, bag)
		if err == nil {
			t.Fatal("Lower succeeded, want error")
		}
		wantDiag(t, bag, diag.LowNonConstInit, "initializer of bad is not constant")
	})
}

func TestLowerDiagnostics(t *testing.T) {
	tests := []struct {
		name    string
		build   func(u *testUnit) []*ast.Stmt
		code    diag.Code
		message string
		wantErr bool
	}{
		{
			name: "break outside loop",
			build: func(u *testUnit) []*ast.Stmt {
				return []*ast.Stmt{breakS()}
			},
			code:    diag.LowBreakOutsideLoop,
			message: "break from out of loop",
			wantErr: true,
		},
		{
			name: "continue outside loop",
			build: func(u *testUnit) []*ast.Stmt {
				return []*ast.Stmt{continueS()}
			},
			code:    diag.LowContinueOutside,
			message: "continue from out of loop",
			wantErr: true,
		},
		{
			name: "duplicated label",
			build: func(u *testUnit) []*ast.Stmt {
				return []*ast.Stmt{
					labelS("retry", returnS(nil)),
					labelS("retry", returnS(nil)),
					gotoS("retry"),
				}
			},
			code:    diag.LowDuplicatedLabel,
			message: "duplicated jump labels in main(): retry",
			wantErr: true,
		},
		{
			name: "undefined label",
			build: func(u *testUnit) []*ast.Stmt {
				return []*ast.Stmt{gotoS("nowhere")}
			},
			code:    diag.LowUndefinedLabel,
			message: "undefined label: nowhere",
			wantErr: true,
		},
		{
			name: "useless label",
			build: func(u *testUnit) []*ast.Stmt {
				return []*ast.Stmt{labelS("unused", returnS(nil))}
			},
			code:    diag.LowUselessLabel,
			message: "useless label: unused",
			wantErr: false,
		},
		{
			name: "non-constant case value",
			build: func(u *testUnit) []*ast.Stmt {
				x, y := u.intVar("x"), u.intVar("y")
				return []*ast.Stmt{
					switchS(val(x),
						caseArm(u.block(breakS()), val(y))),
				}
			},
			code:    diag.LowBadCaseValue,
			message: "case value is not an integer constant",
			wantErr: true,
		},
		{
			name: "non-constant static local initializer",
			build: func(u *testUnit) []*ast.Stmt {
				s := entity.NewVar("hits", u.intType(), entity.StorageStatic, source.NoSpan)
				f := u.extFunc("f", u.intType())
				u.fn.Scope.Declare(s)
				u.body.Decls = []*ast.LocalDecl{{Ent: s, Init: callE(u.intType(), val(f))}}
				return nil
			},
			code:    diag.LowNonConstInit,
			message: "initializer of hits is not constant",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newTestUnit()
			u.body.Stmts = tt.build(u)
			bag := diag.NewBag(64)
			_, err := lower.Lower(u.prog, u.table, bag)
			if tt.wantErr && err == nil {
				t.Fatal("Lower succeeded, want error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("Lower failed: %v", err)
			}
			wantDiag(t, bag, tt.code, tt.message)
		})
	}
}

func wantDiag(t *testing.T, bag *diag.Bag, code diag.Code, message string) {
	t.Helper()
	for _, d := range bag.Items() {
		if d.Code == code && d.Message == message {
			return
		}
	}
	t.Errorf("diagnostic %s %q not found in %v", code, message, bag.Items())
}

// NumLabels covers every minted label so later passes can size their
// tables from it.
func TestLowerNumLabels(t *testing.T) {
	u := newTestUnit()
	x, y := u.intVar("x"), u.intVar("y")
	u.body.Stmts = []*ast.Stmt{
		ifS(val(x),
			exprS(assignE(loc(y), intLit(u.intType(), 1))),
			exprS(assignE(loc(y), intLit(u.intType(), 2)))),
	}
	bag := diag.NewBag(64)
	prog, err := lower.Lower(u.prog, u.table, bag)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	if got := prog.Funcs[0].NumLabels; got != 3 {
		t.Errorf("NumLabels = %d, want 3", got)
	}
}

// Temporaries land in the innermost scope active when they are minted
// but draw names from the function-wide sequence.
func TestLowerTemporariesFunctionScoped(t *testing.T) {
	u := newTestUnit()
	a, b, x := u.intVar("a"), u.intVar("b"), u.intVar("x")
	and := func() *ast.Expr {
		return &ast.Expr{Kind: ast.ExprLogicalAnd, Type: u.intType(), Span: source.NoSpan, Data: &ast.LogicalData{
			Left: val(a), Right: val(b),
		}}
	}
	u.body.Stmts = []*ast.Stmt{
		exprS(assignE(loc(x), and())),
		u.block(exprS(assignE(loc(x), and()))),
	}
	bag := diag.NewBag(64)
	prog, err := lower.Lower(u.prog, u.table, bag)
	if err != nil {
		t.Fatalf("Lower failed: %v", err)
	}
	names := make(map[string]bool)
	for _, e := range prog.Funcs[0].Scope.AllEntities() {
		if e.Temp {
			names[e.Name] = true
		}
	}
	if !names["@tmp0"] || !names["@tmp1"] {
		t.Errorf("temporaries %v, want @tmp0 and @tmp1", names)
	}
}
