package ir

import (
	"fmt"
	"io"
	"strings"

	"cminor/internal/types"
)

// DumpOptions configures program dumping.
type DumpOptions struct {
	// OmitTypes leaves type annotations off variable definitions.
	OmitTypes bool
}

// DumpProgram writes a human-readable representation of a lowered
// program. The format is line-oriented and stable so tests can compare
// against literal text.
func DumpProgram(w io.Writer, p *Program, table *types.Table, opts DumpOptions) error {
	if w == nil || p == nil {
		return nil
	}
	if p.Pool != nil && p.Pool.Len() > 0 {
		fmt.Fprintf(w, "strings=%d\n", p.Pool.Len())
		for _, e := range p.Pool.Entries() {
			fmt.Fprintf(w, "  %s: %q\n", e.Symbol(), e.Value)
		}
	}
	for _, v := range p.Vars {
		name := v.Ent.Name
		if opts.OmitTypes || table == nil {
			if v.Init != nil {
				fmt.Fprintf(w, "var %s = %s\n", name, FormatExpr(v.Init))
			} else {
				fmt.Fprintf(w, "var %s\n", name)
			}
			continue
		}
		if v.Init != nil {
			fmt.Fprintf(w, "var %s: %s = %s\n", name, table.String(v.Ent.Type), FormatExpr(v.Init))
		} else {
			fmt.Fprintf(w, "var %s: %s\n", name, table.String(v.Ent.Type))
		}
	}
	for _, f := range p.Funcs {
		if err := DumpFunc(w, f); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunc writes one function body, one statement per line.
func DumpFunc(w io.Writer, f *Func) error {
	if w == nil || f == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "fn %s:\n", f.Name()); err != nil {
		return err
	}
	for _, s := range f.Body {
		if _, err := fmt.Fprintf(w, "  %s\n", FormatStmt(s)); err != nil {
			return err
		}
	}
	return nil
}

// FormatStmt renders one statement on a single line.
func FormatStmt(s *Stmt) string {
	switch s.Kind {
	case StmtAssign:
		return fmt.Sprintf("Assign(%s, %s)", FormatExpr(s.Assign.LHS), FormatExpr(s.Assign.RHS))
	case StmtExpr:
		return fmt.Sprintf("ExprStmt(%s)", FormatExpr(s.Expr.Expr))
	case StmtLabel:
		return fmt.Sprintf("Label %s", s.Label.Label)
	case StmtJump:
		return fmt.Sprintf("Jump %s", s.Jump.Target)
	case StmtBranchIf:
		return fmt.Sprintf("BranchIf(%s, %s, %s)",
			FormatExpr(s.Branch.Cond), s.Branch.Then, s.Branch.Else)
	case StmtSwitch:
		var b strings.Builder
		b.WriteString("Switch(")
		b.WriteString(FormatExpr(s.Switch.Cond))
		b.WriteString(", [")
		for i, c := range s.Switch.Cases {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "(%d, %s)", c.Value, c.Target)
		}
		fmt.Fprintf(&b, "], default=%s, end=%s)", s.Switch.Default, s.Switch.End)
		return b.String()
	case StmtReturn:
		if s.Return.Expr == nil {
			return "Return"
		}
		return fmt.Sprintf("Return(%s)", FormatExpr(s.Return.Expr))
	default:
		return "Stmt?"
	}
}

// FormatExpr renders an expression tree on a single line. Variables
// print as their names, integer constants as decimals.
func FormatExpr(e *Expr) string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ExprIntValue:
		return fmt.Sprintf("%d", e.Int.Value)
	case ExprStrValue:
		return e.Str.Entry.Symbol()
	case ExprVar:
		return e.Var.Ent.Name
	case ExprBin:
		return fmt.Sprintf("Bin(%s, %s, %s)",
			e.Bin.Op, FormatExpr(e.Bin.Left), FormatExpr(e.Bin.Right))
	case ExprUni:
		return fmt.Sprintf("Uni(%s, %s)", e.Uni.Op, FormatExpr(e.Uni.Operand))
	case ExprMem:
		return fmt.Sprintf("Mem(%s)", FormatExpr(e.Mem.Addr))
	case ExprAddr:
		return fmt.Sprintf("Addr(%s)", FormatExpr(e.Addr.Inner))
	case ExprCall:
		var b strings.Builder
		b.WriteString("Call(")
		b.WriteString(FormatExpr(e.Call.Callee))
		for _, a := range e.Call.Args {
			b.WriteString(", ")
			b.WriteString(FormatExpr(a))
		}
		b.WriteString(")")
		return b.String()
	default:
		return "Expr?"
	}
}
