package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/pipeline"
)

// BuildOptions holds flags for the build command.
type BuildOptions struct {
	*RootOptions
	Function string
	Output   string
}

// BuiltFunction is the JSON form of one lowered function.
type BuiltFunction struct {
	Name     string    `json:"name"`
	Hash     string    `json:"hash"`
	Blocks   int       `json:"blocks"`
	Warnings []Finding `json:"warnings,omitempty"`
	IR       string    `json:"ir"`
}

// BuildResult holds every lowered function in program order.
type BuildResult struct {
	Functions []BuiltFunction `json:"functions"`
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BuildOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "build <programs-dir>",
		Short: "Lower functions to the CFG IR and print it",
		Long: `Lower every function in the CUE programs directory to a control-flow
graph and print the graphs in the textual IR format.

Exit codes:
  0 - All functions lowered and validated
  1 - A function was rejected by the builder or validator
  2 - Command error (missing directory, CUE errors, unknown --func)

Examples:
  cfgir build ./programs
  cfgir build ./programs --func pick --out pick.ir`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Function, "func", "", "build only this function")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "", "write the IR to this file")

	return cmd
}

func runBuild(opts *BuildOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	units, err := compilePrograms(cmd.Context(), f, opts.RootOptions, dir, opts.Function)
	if err != nil {
		return err
	}

	var (
		failed []Finding
		result BuildResult
		graphs []*ir.Graph
	)
	for _, u := range units {
		fs := findings(u)
		if !u.OK() {
			failed = append(failed, fs...)
			continue
		}
		g := u.Graph()
		graphs = append(graphs, g)
		result.Functions = append(result.Functions, BuiltFunction{
			Name:     u.Function,
			Hash:     ir.MustGraphHash(g),
			Blocks:   g.Len(),
			Warnings: fs,
			IR:       ir.FormatGraph(g),
		})
	}

	if len(failed) > 0 {
		return outputRejected(f, units, failed)
	}

	module := ir.FormatModule(graphs)
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(module), 0o644); err != nil {
			_ = f.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, "writing output file", err)
		}
	}

	if f.JSON() {
		return f.Success(result)
	}
	for _, bf := range result.Functions {
		for _, w := range bf.Warnings {
			fmt.Fprintf(f.GetErrWriter(), "warning: %s: [%s] %s\n", w.Function, w.Code, w.Message)
		}
	}
	if opts.Output != "" {
		fmt.Fprintf(f.Writer, "✓ Built %d function(s)\nWrote IR to %s\n", len(graphs), opts.Output)
		return nil
	}
	_, err = fmt.Fprint(f.Writer, module)
	return err
}

// outputRejected reports functions the builder or validator refused.
func outputRejected(f *OutputFormatter, units []pipeline.Unit, failed []Finding) error {
	rejected := 0
	for _, u := range units {
		if !u.OK() {
			rejected++
		}
	}
	message := fmt.Sprintf("%d of %d function(s) rejected", rejected, len(units))
	if f.JSON() {
		if err := f.Failure(ErrCodeFailed, message, failed); err != nil {
			return err
		}
	} else {
		_ = f.Failure(ErrCodeFailed, message, nil)
		f.Table(findingHeader, findingRows(failed))
	}
	return NewExitError(ExitFailure, message)
}
