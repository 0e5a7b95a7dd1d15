package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgir/internal/interp"
	"github.com/roach88/cfgir/internal/pipeline"
	"github.com/roach88/cfgir/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Function string // optional - runs of this function only
	MaxSteps int
}

// ReplayedRun is the verdict for one recorded run.
type ReplayedRun struct {
	RunID    string `json:"run_id"`
	Seq      int64  `json:"seq"`
	Function string `json:"function"`
	Inputs   string `json:"inputs"`
	Recorded string `json:"recorded"`
	Verdict  string `json:"verdict"`
	Detail   string `json:"detail,omitempty"`
}

// ReplayReport holds the overall replay result.
type ReplayReport struct {
	Runs             []ReplayedRun `json:"runs"`
	Total            int           `json:"total"`
	Matched          int           `json:"matched"`
	AllDeterministic bool          `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <programs-dir>",
		Short: "Replay recorded runs and verify determinism",
		Long: `Rebuild the functions in <programs-dir> and re-execute every run in the
run log twice, in recording order.

A run matches when its function's graph hash is unchanged, both
executions agree, and they reproduce the recorded value or fault. Runs
recorded with --max-steps must be replayed with the same budget.

Exit codes:
  0 - Every run replayed identically
  1 - One or more runs did not match
  2 - Command error (database not found, CUE errors, etc.)

Examples:
  cfgir replay ./programs --db runs.db
  cfgir replay ./programs --db runs.db --func pick --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Function, "func", "", "replay runs of this function only")
	cmd.Flags().IntVar(&opts.MaxSteps, "max-steps", 0, fmt.Sprintf("block entry budget (0 = %d)", interp.DefaultMaxSteps))

	return cmd
}

func runReplay(opts *ReplayOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	// store.Open creates missing files.
	if _, err := os.Stat(opts.Database); err != nil {
		message := fmt.Sprintf("database not found: %s", opts.Database)
		_ = f.Error(ErrCodeDatabase, message, nil)
		return WrapExitError(ExitCommandError, message, err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = f.Error(ErrCodeDatabase, fmt.Sprintf("failed to open database: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	units, err := compilePrograms(ctx, f, opts.RootOptions, dir, "")
	if err != nil {
		return err
	}
	graphs := graphsOf(units)

	runs, err := st.ListRuns(ctx, opts.Function)
	if err != nil {
		_ = f.Error(ErrCodeDatabase, fmt.Sprintf("failed to list runs: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	f.VerboseLog("Replaying %d run(s) against %d function(s)", len(runs), len(graphs))

	verdicts, err := pipeline.Replay(ctx, newInterpreter(opts.MaxSteps, f), graphs, runs)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay interrupted", err)
	}

	report := ReplayReport{Runs: make([]ReplayedRun, 0, len(verdicts)), Total: len(verdicts), AllDeterministic: true}
	for _, v := range verdicts {
		if v.OK() {
			report.Matched++
		} else {
			report.AllDeterministic = false
		}
		report.Runs = append(report.Runs, ReplayedRun{
			RunID:    v.Run.ID,
			Seq:      v.Run.Seq,
			Function: v.Run.Function,
			Inputs:   describeInputs(v.Run.Inputs),
			Recorded: recordedOutcome(v.Run),
			Verdict:  v.Verdict,
			Detail:   v.Detail,
		})
	}

	return outputReplay(f, report)
}

func recordedOutcome(r store.Run) string {
	if r.Status == store.StatusFault {
		return "fault " + r.FaultCode
	}
	if r.Value == nil {
		return "-"
	}
	return r.Value.String()
}

func outputReplay(f *OutputFormatter, report ReplayReport) error {
	message := fmt.Sprintf("%d of %d run(s) did not replay", report.Total-report.Matched, report.Total)

	if f.JSON() {
		if report.AllDeterministic {
			return f.Success(report)
		}
		if err := f.Failure(ErrCodeFailed, message, report); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	if report.Total == 0 {
		fmt.Fprintln(f.Writer, "No runs found in database.")
		return nil
	}

	rows := make([][]string, len(report.Runs))
	for i, r := range report.Runs {
		rows[i] = []string{fmt.Sprint(r.Seq), r.RunID, r.Function + r.Inputs, r.Recorded, r.Verdict, r.Detail}
	}
	f.Table([]string{"Seq", "Run", "Call", "Recorded", "Verdict", "Detail"}, rows)

	if !report.AllDeterministic {
		_ = f.Failure(ErrCodeFailed, message, nil)
		return NewExitError(ExitFailure, message)
	}
	fmt.Fprintf(f.Writer, "✓ All %d run(s) replayed deterministically\n", report.Total)
	return nil
}
