package layout

import (
	"fmt"
)

// Target describes the data layout of a compilation target: the byte sizes
// and alignments of the primitive types the type table hands out.
type Target struct {
	Triple     string
	CharSize   int
	ShortSize  int
	IntSize    int
	LongSize   int
	PtrSize    int
	CharAlign  int
	ShortAlign int
	IntAlign   int
	LongAlign  int
	PtrAlign   int
}

// X86_64LinuxGNU is the default target.
func X86_64LinuxGNU() Target {
	return Target{
		Triple:     "x86_64-linux-gnu",
		CharSize:   1,
		ShortSize:  2,
		IntSize:    4,
		LongSize:   8,
		PtrSize:    8,
		CharAlign:  1,
		ShortAlign: 2,
		IntAlign:   4,
		LongAlign:  8,
		PtrAlign:   8,
	}
}

// I686LinuxGNU is a 32-bit target kept for pointer-width coverage in tests.
func I686LinuxGNU() Target {
	return Target{
		Triple:     "i686-linux-gnu",
		CharSize:   1,
		ShortSize:  2,
		IntSize:    4,
		LongSize:   4,
		PtrSize:    4,
		CharAlign:  1,
		ShortAlign: 2,
		IntAlign:   4,
		LongAlign:  4,
		PtrAlign:   4,
	}
}

// Builtin returns a named builtin target.
func Builtin(triple string) (Target, bool) {
	switch triple {
	case "", "x86_64-linux-gnu":
		return X86_64LinuxGNU(), true
	case "i686-linux-gnu":
		return I686LinuxGNU(), true
	}
	return Target{}, false
}

// Validate rejects targets with zero or negative sizes and alignments that
// exceed the corresponding size.
func (t Target) Validate() error {
	fields := []struct {
		name        string
		size, align int
	}{
		{"char", t.CharSize, t.CharAlign},
		{"short", t.ShortSize, t.ShortAlign},
		{"int", t.IntSize, t.IntAlign},
		{"long", t.LongSize, t.LongAlign},
		{"ptr", t.PtrSize, t.PtrAlign},
	}
	for _, f := range fields {
		if f.size <= 0 {
			return fmt.Errorf("layout: %s size must be positive, got %d", f.name, f.size)
		}
		if f.align <= 0 || f.align > f.size {
			return fmt.Errorf("layout: %s alignment %d out of range for size %d", f.name, f.align, f.size)
		}
	}
	return nil
}
