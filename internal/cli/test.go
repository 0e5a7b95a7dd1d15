package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/cfgir/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario name filter (glob pattern)
	GoldenDir string // defaults to <scenarios-dir>/golden
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Cases  int      `json:"cases"`
	Golden string   `json:"golden"` // "match", "updated", "mismatch" or "none"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run YAML conformance scenarios: each builds a function from its CUE
programs, checks the graph's shape, interprets every case, and replays
the recorded runs.

When <golden-dir>/<scenario>.golden exists, the scenario's snapshot
(graph plus case outcomes) must match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenario files)

Examples:
  cfgir test ./scenarios
  cfgir test ./scenarios --filter "pick*"
  cfgir test ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "golden file directory (default <scenarios-dir>/golden)")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		message := fmt.Sprintf("scenarios directory not found: %s", dir)
		_ = f.Error(ErrCodeNotFound, message, nil)
		return NewExitError(ExitCommandError, message)
	}
	scenarios, err := harness.LoadScenarios(dir, opts.Filter)
	if err != nil {
		_ = f.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	goldenDir := opts.GoldenDir
	if goldenDir == "" {
		goldenDir = filepath.Join(dir, "golden")
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(scenarios)), Total: len(scenarios)}
	for _, s := range scenarios {
		f.VerboseLog("Running scenario: %s", s.Name)
		sr := runScenario(cmd, s, goldenDir, opts.Update)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	return outputTests(f, result)
}

func runScenario(cmd *cobra.Command, s *harness.Scenario, goldenDir string, update bool) ScenarioResult {
	sr := ScenarioResult{Name: s.Name, Golden: "none"}

	result, err := harness.RunContext(cmd.Context(), s)
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}
	sr.Cases = len(result.Cases)
	sr.Errors = result.Errors

	snapshot := harness.Snapshot(s.Name, result)
	goldenPath := filepath.Join(goldenDir, s.Name+".golden")
	switch {
	case update:
		if err := writeGolden(goldenPath, snapshot); err != nil {
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to update golden file: %v", err))
		} else {
			sr.Golden = "updated"
		}
	default:
		want, err := os.ReadFile(goldenPath)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			sr.Errors = append(sr.Errors, fmt.Sprintf("failed to read golden file: %v", err))
		case bytes.Equal(want, snapshot):
			sr.Golden = "match"
		default:
			sr.Golden = "mismatch"
			sr.Errors = append(sr.Errors, "snapshot does not match golden file (run with --update to regenerate)")
		}
	}

	sr.Pass = len(sr.Errors) == 0
	return sr
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func outputTests(f *OutputFormatter, result TestResult) error {
	message := fmt.Sprintf("%d of %d scenario(s) failed", result.Failed, result.Total)

	if f.JSON() {
		if result.Failed == 0 {
			return f.Success(result)
		}
		if err := f.Failure(ErrCodeFailed, message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}

	if result.Total == 0 {
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}

	rows := make([][]string, 0, len(result.Scenarios))
	for _, sr := range result.Scenarios {
		status, detail := "PASS", ""
		if !sr.Pass {
			status = "FAIL"
			detail = sr.Errors[0]
			if len(sr.Errors) > 1 {
				detail = fmt.Sprintf("%s (+%d more)", detail, len(sr.Errors)-1)
			}
		}
		rows = append(rows, []string{sr.Name, status, fmt.Sprint(sr.Cases), sr.Golden, detail})
	}
	f.Table([]string{"Scenario", "Result", "Cases", "Golden", "Detail"}, rows)

	if result.Failed > 0 {
		if f.Verbose {
			for _, sr := range result.Scenarios {
				for _, e := range sr.Errors {
					fmt.Fprintf(f.Writer, "  %s: %s\n", sr.Name, e)
				}
			}
		}
		_ = f.Failure(ErrCodeFailed, message, nil)
		return NewExitError(ExitFailure, message)
	}
	fmt.Fprintf(f.Writer, "✓ %d scenario(s) passed\n", result.Passed)
	return nil
}
