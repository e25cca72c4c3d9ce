package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"cminor/internal/diagfmt"
	"cminor/internal/driver"
	"cminor/internal/ir"
	"cminor/internal/observ"
)

var lowerCmd = &cobra.Command{
	Use:   "lower [flags] <file.astpack>...",
	Short: "Lower typed syntax trees to IR and dump the result",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLower,
}

func init() {
	lowerCmd.Flags().StringP("output", "o", "", "write the IR dump to a file instead of stdout")
	lowerCmd.Flags().Bool("no-types", false, "omit variable types from the dump")
	lowerCmd.Flags().Bool("validate", false, "check IR invariants after lowering")
}

func runLower(cmd *cobra.Command, args []string) error {
	validate, err := cmd.Flags().GetBool("validate")
	if err != nil {
		return fmt.Errorf("failed to get validate flag: %w", err)
	}
	noTypes, err := cmd.Flags().GetBool("no-types")
	if err != nil {
		return fmt.Errorf("failed to get no-types flag: %w", err)
	}
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	opts, err := driverOptions(cmd, validate)
	if err != nil {
		return err
	}

	timer := observ.NewTimer()
	stopLower := timer.Start("lower")
	results, err := driver.Run(cmd.Context(), args, opts)
	stopLower(fmt.Sprintf("%d files", len(args)))
	if err != nil {
		return err
	}

	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath) // #nosec G304 -- path comes from the user
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := f.Close(); err == nil {
				err = closeErr
			}
		}()
		out = f
	}

	styled := outputPath == "" && colorEnabled(cmd, os.Stdout)
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))

	stopDump := timer.Start("dump")
	failed := 0
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			fmt.Fprintln(os.Stderr, res.Err)
			failed++
			continue
		}
		if res.Failed() {
			failed++
			continue
		}
		if len(results) > 1 || styled {
			title := "== " + res.Path + " =="
			if styled {
				title = headerStyle.Render(title)
			}
			fmt.Fprintln(out, title)
		}
		if err := ir.DumpProgram(out, res.Prog, res.Table, ir.DumpOptions{OmitTypes: noTypes}); err != nil {
			return err
		}
	}

	stopDump("")

	reportDiagnostics(cmd, results)
	reportTimings(cmd, timer.Summary())
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(results))
	}
	return nil
}

// reportDiagnostics prints every collected diagnostic to stderr. The
// astpack carries spans but not the source text, so locations degrade
// to <none> without a file set.
func reportDiagnostics(cmd *cobra.Command, results []driver.Result) {
	merged := driver.MergeDiagnostics(results)
	if merged.Len() == 0 {
		return
	}
	diagfmt.Pretty(os.Stderr, merged, nil, diagfmt.PrettyOpts{
		Color:     colorEnabled(cmd, os.Stderr),
		ShowNotes: true,
	})
}
