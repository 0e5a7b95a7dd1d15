package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/cfgir/internal/builder"
	"github.com/roach88/cfgir/internal/compiler"
	"github.com/roach88/cfgir/internal/interp"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/pipeline"
	"github.com/roach88/cfgir/internal/store"
	"github.com/roach88/cfgir/internal/testutil"
)

// Harness holds the per-scenario execution state.
type Harness struct {
	store  *store.Store
	ids    *testutil.SequentialIDs
	interp *interp.Interpreter
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store. The returned error is
// reserved for problems with the scenario itself (unreadable program,
// unknown function); expectation failures are reported in Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	interpOpts := []interp.Option{interp.WithLogger(logger)}
	if scenario.MaxSteps > 0 {
		interpOpts = append(interpOpts, interp.WithMaxSteps(scenario.MaxSteps))
	}
	h := &Harness{
		store:  st,
		ids:    testutil.NewSequentialIDs(),
		interp: interp.New(interpOpts...),
		logger: logger,
	}

	fns, err := compiler.LoadDir(scenario.Programs)
	if err != nil {
		return nil, fmt.Errorf("failed to load programs: %w", err)
	}
	if compiler.Find(fns, scenario.Function) == nil {
		return nil, fmt.Errorf("function %s not found in %s", scenario.Function, scenario.Programs)
	}

	units, err := pipeline.CompileAll(ctx, fns, pipeline.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to compile programs: %w", err)
	}
	graphs := make(map[string]*ir.Graph)
	var unit pipeline.Unit
	for _, u := range units {
		if u.OK() {
			graphs[u.Function] = u.Graph()
		}
		if u.Function == scenario.Function {
			unit = u
		}
	}

	result := NewResult()
	if !h.checkBuild(scenario, unit, result) {
		return result, nil
	}
	result.Graph = unit.Graph()

	for _, msg := range EvaluateAssertions(result.Graph, scenario.Assertions) {
		result.AddError(msg)
	}

	for i, c := range scenario.Cases {
		h.runCase(ctx, i, c, result)
	}

	if err := h.replay(ctx, scenario.Function, graphs, result); err != nil {
		return nil, err
	}
	return result, nil
}

// checkBuild compares the unit against the scenario's build expectations.
// It returns true when cases should run.
func (h *Harness) checkBuild(scenario *Scenario, unit pipeline.Unit, result *Result) bool {
	var want BuildExpect
	if scenario.ExpectBuild != nil {
		want = *scenario.ExpectBuild
	}

	if unit.Err != nil {
		var mp *builder.MalformedProgram
		if !errors.As(unit.Err, &mp) {
			result.AddError(fmt.Sprintf("build failed: %v", unit.Err))
			return false
		}
		for _, d := range mp.Diagnostics {
			result.Diagnostics = append(result.Diagnostics, d.Code)
		}
		if len(want.Fails) == 0 {
			result.AddError(fmt.Sprintf("build failed: %v", unit.Err))
			return false
		}
		got := slices.Clone(result.Diagnostics)
		slices.Sort(got)
		exp := slices.Clone(want.Fails)
		slices.Sort(exp)
		if !slices.Equal(got, exp) {
			result.AddError(fmt.Sprintf("build diagnostics: expected %v, got %v", exp, got))
		}
		return false
	}

	for _, d := range unit.Build.Warnings {
		result.Diagnostics = append(result.Diagnostics, d.Code)
	}
	for _, v := range unit.Report.Violations {
		result.Diagnostics = append(result.Diagnostics, v.Code)
	}

	if len(want.Fails) > 0 {
		result.AddError(fmt.Sprintf("build succeeded, expected failure with %v", want.Fails))
		return false
	}
	for _, v := range unit.Report.Fatal() {
		result.AddError(fmt.Sprintf("validation: %s", v))
	}
	for _, code := range want.Warnings {
		if !slices.Contains(result.Diagnostics, code) {
			result.AddError(fmt.Sprintf("expected warning %s, got %v", code, result.Diagnostics))
		}
	}
	return unit.Report.OK()
}

func (h *Harness) runCase(ctx context.Context, i int, c Case, result *Result) {
	g := result.Graph

	raw := make(map[string]string, len(c.Inputs))
	for k, v := range c.Inputs {
		raw[k] = fmt.Sprint(v)
	}
	inputs, err := pipeline.ParseInputs(g, raw)
	if err != nil {
		result.AddError(fmt.Sprintf("cases[%d]: %v", i, err))
		return
	}

	run, err := pipeline.Record(ctx, h.store, h.ids, h.interp, g, inputs)
	if err != nil && !interp.IsFault(err) {
		result.AddError(fmt.Sprintf("cases[%d]: %v", i, err))
		return
	}
	cr := CaseResult{
		Inputs: inputs,
		RunID:  run.ID,
		Value:  run.Value,
		Fault:  run.FaultCode,
		Steps:  run.Steps,
		Path:   run.Path,
	}
	result.Cases = append(result.Cases, cr)

	h.logger.Info("case executed", "case", i, "run_id", run.ID, "status", run.Status)

	want := c.Expect
	if want.Fault != "" {
		if cr.Fault != want.Fault {
			result.AddError(fmt.Sprintf("cases[%d] %s: expected fault %s, got %s", i, describe(inputs), want.Fault, outcome(cr)))
		}
		return
	}

	expected, err := ir.ParseConstant(g.Result, fmt.Sprint(want.Value))
	if err != nil {
		result.AddError(fmt.Sprintf("cases[%d].expect.value: %v", i, err))
		return
	}
	if cr.Value == nil || *cr.Value != expected {
		result.AddError(fmt.Sprintf("cases[%d] %s: expected %s, got %s", i, describe(inputs), expected, outcome(cr)))
		return
	}
	if len(want.Path) > 0 {
		path := make([]ir.BlockID, len(want.Path))
		for j, id := range want.Path {
			path[j] = ir.BlockID(id)
		}
		if !slices.Equal(path, cr.Path) {
			result.AddError(fmt.Sprintf("cases[%d] %s: expected path %v, got %v", i, describe(inputs), path, cr.Path))
		}
	}
}

// replay re-executes the recorded runs of function and fails the result on
// any verdict other than a match.
func (h *Harness) replay(ctx context.Context, function string, graphs map[string]*ir.Graph, result *Result) error {
	runs, err := h.store.ListRuns(ctx, function)
	if err != nil {
		return fmt.Errorf("failed to read runs: %w", err)
	}
	verdicts, err := pipeline.Replay(ctx, h.interp, graphs, runs)
	if err != nil {
		return fmt.Errorf("failed to replay runs: %w", err)
	}
	for _, v := range verdicts {
		if !v.OK() {
			result.AddError(fmt.Sprintf("replay %s: %s: %s", v.Run.ID, v.Verdict, v.Detail))
		}
	}
	return nil
}

func describe(inputs map[string]ir.Constant) string {
	var s string
	for i, label := range ir.SortedLabels(inputs) {
		if i > 0 {
			s += " "
		}
		s += label + "=" + inputs[label].String()
	}
	return "(" + s + ")"
}

func outcome(cr CaseResult) string {
	if cr.Fault != "" {
		return "fault " + cr.Fault
	}
	if cr.Value == nil {
		return "no value"
	}
	return cr.Value.String()
}
