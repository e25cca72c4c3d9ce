package diag

import (
	"fmt"
)

// Code identifies a diagnostic kind with a stable number.
type Code uint16

const (
	// UnknownCode is the zero value for diagnostics without a code.
	UnknownCode Code = 0

	// Lowering diagnostics occupy the 4xxx range. Earlier compiler stages
	// (lexing, parsing, semantic analysis) live outside this module and own
	// the 1xxx-3xxx ranges.
	LowInfo             Code = 4000
	LowDuplicatedLabel  Code = 4001
	LowUndefinedLabel   Code = 4002
	LowUselessLabel     Code = 4003
	LowBreakOutsideLoop Code = 4004
	LowContinueOutside  Code = 4005
	LowBadCaseValue     Code = 4006
	LowNonConstInit     Code = 4007
)

func (c Code) String() string {
	return fmt.Sprintf("C%04d", uint16(c))
}
