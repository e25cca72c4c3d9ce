// Package driver orchestrates lowering over a batch of serialized typed
// ASTs. Files are processed in parallel; the lowering of one file is
// single-threaded and fully independent of the others.
package driver

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"cminor/internal/astio"
	"cminor/internal/diag"
	"cminor/internal/ir"
	"cminor/internal/layout"
	"cminor/internal/lower"
	"cminor/internal/types"
)

// DefaultMaxDiagnostics bounds the diagnostics kept per input file.
const DefaultMaxDiagnostics = 256

// Options configures a Run.
type Options struct {
	// Target is the data layout the inputs were type-checked for.
	Target layout.Target
	// MaxDiagnostics caps the Bag of each file; 0 means DefaultMaxDiagnostics.
	MaxDiagnostics int
	// Jobs is the number of files lowered concurrently; 0 means NumCPU.
	Jobs int
	// Validate runs the IR validator on every successfully lowered file.
	Validate bool
}

// Result is the outcome for one input file. Prog is non-nil even when
// lowering reported errors, so callers can inspect partial output.
type Result struct {
	Path  string
	Prog  *ir.Program
	Table *types.Table
	Bag   *diag.Bag
	Err   error
}

// Failed reports whether the file produced a hard error or error-severity
// diagnostics.
func (r *Result) Failed() bool {
	return r.Err != nil || (r.Bag != nil && r.Bag.HasErrors())
}

// Run lowers every input file. The returned slice matches paths by index.
// The error is non-nil only when the context was cancelled; per-file
// failures land in the corresponding Result.
func Run(ctx context.Context, paths []string, opts Options) ([]Result, error) {
	maxDiags := opts.MaxDiagnostics
	if maxDiags == 0 {
		maxDiags = DefaultMaxDiagnostics
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, max(len(paths), 1)))

	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = runOne(path, opts.Target, maxDiags, opts.Validate)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func runOne(path string, target layout.Target, maxDiags int, validate bool) Result {
	res := Result{Path: path, Bag: diag.NewBag(maxDiags)}

	data, err := os.ReadFile(path)
	if err != nil {
		res.Err = err
		return res
	}
	prog, table, err := astio.Decode(data, target)
	if err != nil {
		res.Err = fmt.Errorf("driver: %s: %w", path, err)
		return res
	}
	res.Table = table

	out, err := lower.Lower(prog, table, res.Bag)
	res.Prog = out
	if err != nil {
		return res
	}
	if validate {
		if err := ir.Validate(out); err != nil {
			res.Err = fmt.Errorf("driver: %s: %w", path, err)
		}
	}
	return res
}

// MergeDiagnostics collects every per-file Bag into one sorted sink, in
// input order so reruns print identically.
func MergeDiagnostics(results []Result) *diag.Bag {
	total := 0
	for i := range results {
		if results[i].Bag != nil {
			total += results[i].Bag.Len()
		}
	}
	merged := diag.NewBag(max(total, 1))
	for i := range results {
		merged.Merge(results[i].Bag)
	}
	merged.Sort()
	return merged
}
