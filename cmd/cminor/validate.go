package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cminor/internal/driver"
	"cminor/internal/observ"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flags] <file.astpack>...",
	Short: "Lower inputs and check every IR invariant",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	opts, err := driverOptions(cmd, true)
	if err != nil {
		return err
	}
	timer := observ.NewTimer()
	stop := timer.Start("validate")
	results, err := driver.Run(cmd.Context(), args, opts)
	stop(fmt.Sprintf("%d files", len(args)))
	if err != nil {
		return err
	}

	failed := 0
	for i := range results {
		res := &results[i]
		if res.Err != nil {
			fmt.Fprintln(os.Stderr, res.Err)
		}
		if res.Failed() {
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", res.Path)
	}

	reportDiagnostics(cmd, results)
	reportTimings(cmd, timer.Summary())
	if failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", failed, len(results))
	}
	return nil
}
