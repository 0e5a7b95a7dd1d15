package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgir/internal/interp"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/pipeline"
	"github.com/roach88/cfgir/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Function string
	Inputs   []string // name=value
	Database string
	MaxSteps int

	// IDs overrides the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs store.IDGenerator
}

// RunResult is the outcome of one interpreted run.
type RunResult struct {
	Function string            `json:"function"`
	RunID    string            `json:"run_id,omitempty"`
	Seq      int64             `json:"seq,omitempty"`
	Inputs   map[string]string `json:"inputs"`
	Value    string            `json:"value,omitempty"`
	Fault    string            `json:"fault,omitempty"`
	Steps    int               `json:"steps"`
	Path     []ir.BlockID      `json:"path,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <programs-dir>",
		Short: "Interpret one function",
		Long: `Build, validate and interpret one function with the given inputs.

Inputs are bound by parameter name ("b") or label ("b_1"). Values are
integers, optionally suffixed with the parameter type ("7:i32"), or
true/false. With --db the run is appended to the run log for replay.

Exit codes:
  0 - The function returned a value
  1 - The function was rejected or the interpreter faulted
  2 - Command error (bad inputs, unreadable database, ...)

Examples:
  cfgir run ./programs --func pick --input b=7
  cfgir run ./programs --func pick --input b=2 --db runs.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFunction(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Function, "func", "", "function to run (required)")
	_ = cmd.MarkFlagRequired("func")
	cmd.Flags().StringArrayVar(&opts.Inputs, "input", nil, "parameter binding name=value (repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run in this SQLite database")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, fmt.Sprintf("block entry budget (0 = %d)", interp.DefaultMaxSteps))

	return cmd
}

func runFunction(opts *RunOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()
	logger := f.Logger()

	units, err := compilePrograms(ctx, f, opts.RootOptions, dir, opts.Function)
	if err != nil {
		return err
	}
	u := units[0]
	if !u.OK() {
		return outputRejected(f, units, findings(u))
	}
	g := u.Graph()

	raw, err := parseInputFlags(opts.Inputs)
	if err != nil {
		_ = f.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid input", err)
	}
	inputs, err := pipeline.ParseInputs(g, raw)
	if err != nil {
		_ = f.Error(ErrCodeInvalidInput, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid input", err)
	}

	it := newInterpreter(opts.MaxSteps, f)
	result := RunResult{Function: g.Name, Inputs: make(map[string]string, len(inputs))}
	for label, c := range inputs {
		result.Inputs[label] = c.String()
	}

	var runErr error
	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = f.Error(ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()

		ids := opts.IDs
		if ids == nil {
			ids = store.UUIDv7Generator{}
		}
		var run store.Run
		run, runErr = pipeline.Record(ctx, st, ids, it, g, inputs)
		if runErr == nil || interp.IsFault(runErr) {
			result.RunID, result.Seq = run.ID, run.Seq
			logger.Info("run recorded", "run_id", run.ID, "seq", run.Seq, "db", opts.Database)
			if run.Value != nil {
				result.Value = run.Value.String()
			}
			result.Steps, result.Path = run.Steps, run.Path
		}
	} else {
		var out *interp.Outcome
		out, runErr = pipeline.Execute(ctx, it, g, inputs)
		if runErr == nil {
			result.Value = out.Value.String()
			result.Steps, result.Path = out.Steps, out.Path
		}
	}

	if runErr != nil {
		code, ok := interp.CodeOf(runErr)
		if !ok {
			_ = f.Error(ErrCodeGeneric, runErr.Error(), nil)
			return WrapExitError(ExitFailure, "run failed", runErr)
		}
		result.Fault = string(code)
		message := fmt.Sprintf("%s faulted: %s", g.Name, code)
		if f.JSON() {
			if err := f.Failure(string(code), message, result); err != nil {
				return err
			}
		} else {
			_ = f.Failure(string(code), message, nil)
			fmt.Fprintf(f.Writer, "  %v\n", runErr)
			if result.RunID != "" {
				fmt.Fprintf(f.Writer, "recorded: %s (seq %d)\n", result.RunID, result.Seq)
			}
		}
		return WrapExitError(ExitFailure, message, runErr)
	}

	if f.JSON() {
		return f.Success(result)
	}
	fmt.Fprintf(f.Writer, "%s%s = %s\n", g.Name, describeInputs(inputs), result.Value)
	fmt.Fprintf(f.Writer, "steps: %d\npath: %v\n", result.Steps, result.Path)
	if result.RunID != "" {
		fmt.Fprintf(f.Writer, "recorded: %s (seq %d)\n", result.RunID, result.Seq)
	}
	return nil
}

// parseInputFlags splits name=value bindings.
func parseInputFlags(values []string) (map[string]string, error) {
	raw := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("input %q: expected name=value", v)
		}
		if _, dup := raw[name]; dup {
			return nil, fmt.Errorf("input %s given more than once", name)
		}
		raw[name] = strings.TrimSpace(value)
	}
	return raw, nil
}

func newInterpreter(maxSteps int, f *OutputFormatter) *interp.Interpreter {
	return interp.New(interp.WithMaxSteps(maxSteps), interp.WithLogger(f.Logger()))
}

func describeInputs(inputs map[string]ir.Constant) string {
	parts := make([]string, 0, len(inputs))
	for _, label := range ir.SortedLabels(inputs) {
		parts = append(parts, label+"="+inputs[label].String())
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
