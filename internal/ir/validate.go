package ir

import (
	"errors"
	"fmt"
)

// Validate checks program invariants after lowering.
// Returns an error joining every violation found.
func Validate(p *Program) error {
	if p == nil {
		return nil
	}
	var errs []error
	for _, v := range p.Vars {
		if v.Init != nil {
			if err := validateExpr(v.Init); err != nil {
				errs = append(errs, fmt.Errorf("var %s: %w", v.Ent.Name, err))
			}
		}
	}
	for _, f := range p.Funcs {
		if f == nil {
			continue
		}
		if err := validateFunc(f); err != nil {
			errs = append(errs, fmt.Errorf("function %s: %w", f.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func validateFunc(f *Func) error {
	var errs []error

	if err := validateLabels(f); err != nil {
		errs = append(errs, err)
	}
	for i, s := range f.Body {
		if err := validateStmt(s); err != nil {
			errs = append(errs, fmt.Errorf("stmt %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// validateLabels checks that every branch target is defined exactly once
// as a LabelStmt in the same body.
func validateLabels(f *Func) error {
	var errs []error

	defined := make(map[Label]int, len(f.Body))
	for _, s := range f.Body {
		if s.Kind == StmtLabel {
			defined[s.Label.Label]++
		}
	}
	for l, n := range defined {
		if n > 1 {
			errs = append(errs, fmt.Errorf("label %s defined %d times", l, n))
		}
	}
	check := func(l Label) {
		if defined[l] == 0 {
			errs = append(errs, fmt.Errorf("target %s has no label", l))
		}
	}
	for _, s := range f.Body {
		switch s.Kind {
		case StmtJump:
			check(s.Jump.Target)
		case StmtBranchIf:
			check(s.Branch.Then)
			check(s.Branch.Else)
		case StmtSwitch:
			for _, c := range s.Switch.Cases {
				check(c.Target)
			}
			check(s.Switch.Default)
			check(s.Switch.End)
		}
	}
	return errors.Join(errs...)
}

func validateStmt(s *Stmt) error {
	var errs []error
	switch s.Kind {
	case StmtAssign:
		if err := validateLocation(s.Assign.LHS); err != nil {
			errs = append(errs, err)
		}
		errs = append(errs, validateExpr(s.Assign.LHS), validateExpr(s.Assign.RHS))
	case StmtExpr:
		errs = append(errs, validateExpr(s.Expr.Expr))
	case StmtBranchIf:
		errs = append(errs, validateExpr(s.Branch.Cond))
	case StmtSwitch:
		errs = append(errs, validateExpr(s.Switch.Cond))
	case StmtReturn:
		if s.Return.Expr != nil {
			errs = append(errs, validateExpr(s.Return.Expr))
		}
	}
	return errors.Join(errs...)
}

// validateLocation checks that an assignment target is a loadable
// variable or a memory reference.
func validateLocation(lhs *Expr) error {
	if lhs == nil {
		return errors.New("assign: nil lhs")
	}
	switch lhs.Kind {
	case ExprVar:
		if lhs.Var.Ent.CannotLoad() {
			return fmt.Errorf("assign: variable %s is not loadable", lhs.Var.Ent.Name)
		}
		return nil
	case ExprMem:
		return nil
	}
	return fmt.Errorf("assign: lhs is %s, want Var or Mem", lhs.Kind)
}

// validateExpr checks tree-shape invariants: no nil children and no
// Addr directly wrapping Mem. Mem over Addr stays legal: dereferencing
// an address-of cancels only in the Addr direction.
func validateExpr(e *Expr) error {
	if e == nil {
		return errors.New("nil expression")
	}
	var errs []error
	switch e.Kind {
	case ExprBin:
		errs = append(errs, validateExpr(e.Bin.Left), validateExpr(e.Bin.Right))
	case ExprUni:
		errs = append(errs, validateExpr(e.Uni.Operand))
	case ExprMem:
		errs = append(errs, validateExpr(e.Mem.Addr))
	case ExprAddr:
		if e.Addr.Inner != nil && e.Addr.Inner.Kind == ExprMem {
			errs = append(errs, errors.New("Addr directly wraps Mem"))
		}
		errs = append(errs, validateExpr(e.Addr.Inner))
	case ExprCall:
		errs = append(errs, validateExpr(e.Call.Callee))
		for _, a := range e.Call.Args {
			errs = append(errs, validateExpr(a))
		}
	}
	return errors.Join(errs...)
}
