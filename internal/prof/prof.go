// Package prof wires the runtime profilers to CLI flags.
package prof

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
)

// StartCPU begins CPU profiling into path and returns the stop function.
func StartCPU(path string) (func(), error) {
	f, err := os.Create(path) // #nosec G304 -- path comes from the user
	if err != nil {
		return nil, fmt.Errorf("prof: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("prof: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		_ = f.Close()
	}, nil
}

// StartTrace begins a runtime execution trace into path and returns the
// stop function.
func StartTrace(path string) (func(), error) {
	f, err := os.Create(path) // #nosec G304 -- path comes from the user
	if err != nil {
		return nil, fmt.Errorf("prof: %w", err)
	}
	if err := trace.Start(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("prof: %w", err)
	}
	return func() {
		trace.Stop()
		_ = f.Close()
	}, nil
}

// WriteHeap captures a heap profile after a forced collection.
func WriteHeap(path string) error {
	f, err := os.Create(path) // #nosec G304 -- path comes from the user
	if err != nil {
		return fmt.Errorf("prof: %w", err)
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("prof: %w", err)
	}
	return f.Close()
}
