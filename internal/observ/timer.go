// Package observ times the phases of a cminor invocation so the CLI can
// report where a batch run spent its time.
package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one timed section of a run.
type Phase struct {
	Name string
	Dur  time.Duration
	Note string
}

// Timer accumulates named phases. Not safe for concurrent use; the CLI
// times whole stages, not per-file work.
type Timer struct {
	phases []Phase
}

func NewTimer() *Timer {
	return &Timer{phases: make([]Phase, 0, 4)}
}

// Start opens a phase and returns its stop function. The note is
// attached when the phase ends.
func (t *Timer) Start(name string) func(note string) {
	begin := time.Now()
	return func(note string) {
		t.phases = append(t.phases, Phase{
			Name: name,
			Dur:  time.Since(begin),
			Note: note,
		})
	}
}

// Phases returns the finished phases in completion order.
func (t *Timer) Phases() []Phase {
	return t.phases
}

// Summary renders the phases and their total as a small table.
func (t *Timer) Summary() string {
	var b strings.Builder
	b.WriteString("timings:\n")
	var total time.Duration
	for _, p := range t.phases {
		total += p.Dur
		fmt.Fprintf(&b, "  %-12s %8.2f ms", p.Name, millis(p.Dur))
		if p.Note != "" {
			b.WriteString("  " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-12s %8.2f ms\n", "total", millis(total))
	return b.String()
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
