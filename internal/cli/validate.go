package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Function string
}

// FunctionValidation is the validation outcome of one function.
type FunctionValidation struct {
	Function string    `json:"function"`
	Valid    bool      `json:"valid"`
	Findings []Finding `json:"findings,omitempty"`
}

// ValidationResult holds the outcome for every function.
type ValidationResult struct {
	Valid     bool                 `json:"valid"`
	Functions []FunctionValidation `json:"functions"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <programs-dir>",
		Short: "Check built graphs against the IR invariants",
		Long: `Build every function and run the validator over the resulting graph,
reporting builder diagnostics and every invariant violation found.

Warnings (such as unreachable blocks or dropped statements) are reported
but do not fail validation.

Exit codes:
  0 - All functions valid
  1 - One or more functions rejected
  2 - Command error (missing directory, CUE errors, unknown --func)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Function, "func", "", "validate only this function")

	return cmd
}

func runValidate(opts *ValidateOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	units, err := compilePrograms(cmd.Context(), f, opts.RootOptions, dir, opts.Function)
	if err != nil {
		return err
	}

	result := ValidationResult{Valid: true, Functions: make([]FunctionValidation, 0, len(units))}
	var (
		all     []Finding
		invalid int
	)
	for _, u := range units {
		fs := findings(u)
		fv := FunctionValidation{Function: u.Function, Valid: u.OK(), Findings: fs}
		if !fv.Valid {
			result.Valid = false
			invalid++
		}
		result.Functions = append(result.Functions, fv)
		all = append(all, fs...)
	}

	if f.JSON() {
		if result.Valid {
			return f.Success(result)
		}
		message := fmt.Sprintf("%d of %d function(s) invalid", invalid, len(units))
		if err := f.Failure(ErrCodeFailed, message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	if len(all) > 0 {
		f.Table(findingHeader, findingRows(all))
	}
	if !result.Valid {
		message := fmt.Sprintf("%d of %d function(s) invalid", invalid, len(units))
		_ = f.Failure(ErrCodeFailed, message, nil)
		return NewExitError(ExitFailure, message)
	}
	if len(all) > 0 {
		fmt.Fprintf(f.Writer, "✓ All %d function(s) valid (%d warning(s))\n", len(units), len(all))
		return nil
	}
	fmt.Fprintf(f.Writer, "✓ All %d function(s) valid\n", len(units))
	return nil
}
