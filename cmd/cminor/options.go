package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cminor/internal/driver"
	"cminor/internal/layout"
)

// resolveTarget picks the data layout from the --target flag: a builtin
// triple, or a path to a TOML profile.
func resolveTarget(cmd *cobra.Command) (layout.Target, error) {
	spec, err := cmd.Root().PersistentFlags().GetString("target")
	if err != nil {
		return layout.Target{}, fmt.Errorf("failed to get target flag: %w", err)
	}
	if t, ok := layout.Builtin(spec); ok {
		return t, nil
	}
	if strings.HasSuffix(spec, ".toml") {
		return layout.Load(spec)
	}
	return layout.Target{}, fmt.Errorf("unknown target %q", spec)
}

// driverOptions assembles the shared driver settings from the persistent
// flags.
func driverOptions(cmd *cobra.Command, validate bool) (driver.Options, error) {
	target, err := resolveTarget(cmd)
	if err != nil {
		return driver.Options{}, err
	}
	maxDiags, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	jobs, err := cmd.Root().PersistentFlags().GetInt("jobs")
	if err != nil {
		return driver.Options{}, fmt.Errorf("failed to get jobs flag: %w", err)
	}
	return driver.Options{
		Target:         target,
		MaxDiagnostics: maxDiags,
		Jobs:           jobs,
		Validate:       validate,
	}, nil
}

func colorEnabled(cmd *cobra.Command, f *os.File) bool {
	noColor, err := cmd.Root().PersistentFlags().GetBool("no-color")
	if err != nil {
		return false
	}
	return !noColor && isTerminal(f)
}
