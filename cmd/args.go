package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/workd-cli/internal/portal"
)

const csvExt = ".csv"

// validateCSVPath accepts only paths ending in .csv, in any letter case.
func validateCSVPath(path string) error {
	if !strings.HasSuffix(strings.ToLower(path), csvExt) {
		return portal.ArgumentError("%q is not a .csv file", path)
	}
	return nil
}

// importOutputPath derives the result file from the input file by replacing
// its trailing .csv with suffix.
func importOutputPath(input, suffix string) string {
	return input[:len(input)-len(csvExt)] + suffix
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return portal.ArgumentError("expected %d argument, got %d", n, len(args))
		}
		return nil
	}
}

func maxArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) > n {
			return portal.ArgumentError("expected at most %d argument, got %d", n, len(args))
		}
		return nil
	}
}
