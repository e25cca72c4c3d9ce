package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"cminor/internal/driver"
	"cminor/internal/prof"
	"cminor/internal/version"
)

var rootCmd = &cobra.Command{
	Use:               "cminor",
	Short:             "Cminor middle end: lower typed syntax trees to IR",
	Long:              `cminor lowers serialized typed syntax trees into the flat IR the code generator consumes`,
	PersistentPreRunE: startProfiling,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return stopProfiling(cmd)
	},
}

var stopCPU, stopTrace func()

func startProfiling(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	if path, err := flags.GetString("cpuprofile"); err == nil && path != "" {
		stop, err := prof.StartCPU(path)
		if err != nil {
			return err
		}
		stopCPU = stop
	}
	if path, err := flags.GetString("trace"); err == nil && path != "" {
		stop, err := prof.StartTrace(path)
		if err != nil {
			return err
		}
		stopTrace = stop
	}
	return nil
}

func stopProfiling(cmd *cobra.Command) error {
	if stopCPU != nil {
		stopCPU()
	}
	if stopTrace != nil {
		stopTrace()
	}
	path, err := cmd.Root().PersistentFlags().GetString("memprofile")
	if err != nil || path == "" {
		return nil
	}
	return prof.WriteHeap(path)
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(lowerCmd)
	rootCmd.AddCommand(validateCmd)

	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")
	rootCmd.PersistentFlags().String("target", "", "target triple or layout TOML file")
	rootCmd.PersistentFlags().Int("max-diagnostics", driver.DefaultMaxDiagnostics, "maximum number of diagnostics to keep per file")
	rootCmd.PersistentFlags().Int("jobs", 0, "max parallel workers (0=auto)")
	rootCmd.PersistentFlags().Bool("timings", false, "report phase timings on stderr")
	rootCmd.PersistentFlags().String("cpuprofile", "", "write a CPU profile to this file")
	rootCmd.PersistentFlags().String("memprofile", "", "write a heap profile to this file")
	rootCmd.PersistentFlags().String("trace", "", "write a runtime trace to this file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func reportTimings(cmd *cobra.Command, summary string) {
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil || !timings {
		return
	}
	fmt.Fprint(os.Stderr, summary)
}
