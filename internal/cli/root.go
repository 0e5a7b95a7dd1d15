// Package cli implements the cfgir command line: building, validating,
// running and replaying functions described in CUE, and running YAML
// conformance scenarios.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Jobs    int    // parallel function compilation; <1 means GOMAXPROCS
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cfgir CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cfgir",
		Short: "cfgir - control-flow graph IR toolkit",
		Long: `Lower structured functions to a control-flow graph IR of basic blocks,
check the graph's structural invariants, and interpret it.

Programs are CUE files declaring functions under "function: <name>".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().IntVar(&opts.Jobs, "jobs", 0, "functions compiled in parallel (0 = GOMAXPROCS)")

	cmd.AddCommand(NewBuildCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))

	return cmd
}
