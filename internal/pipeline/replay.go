package pipeline

import (
	"context"
	"fmt"
	"reflect"

	"github.com/roach88/cfgir/internal/interp"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/store"
)

// Record executes g through Execute and appends the outcome to st.
// Interpreter faults are recorded and returned; an invalid graph or a
// cancelled context is returned without recording anything.
func Record(ctx context.Context, st *store.Store, gen store.IDGenerator, it *interp.Interpreter, g *ir.Graph, inputs map[string]ir.Constant) (store.Run, error) {
	run, err := store.NewRun(gen, g, inputs)
	if err != nil {
		return store.Run{}, fmt.Errorf("record %s: %w", g.Name, err)
	}

	out, runErr := Execute(ctx, it, g, inputs)
	if runErr != nil {
		code, ok := interp.CodeOf(runErr)
		if !ok {
			return store.Run{}, runErr
		}
		run.Fail(string(code))
	} else {
		run.Succeed(out.Value, out.Steps, out.Path)
	}

	seq, _, err := st.WriteRun(ctx, run)
	if err != nil {
		return store.Run{}, fmt.Errorf("record %s: %w", g.Name, err)
	}
	run.Seq = seq
	return run, runErr
}

// Replay verdicts.
const (
	ReplayMatch            = "match"
	ReplayMissingFunction  = "missing_function"
	ReplayHashMismatch     = "hash_mismatch"
	ReplayDiverged         = "diverged"
	ReplayNondeterministic = "nondeterministic"
)

// ReplayResult is the verdict for one recorded run.
type ReplayResult struct {
	Run     store.Run
	Verdict string
	Detail  string
}

// OK reports whether the run replayed identically.
func (r ReplayResult) OK() bool {
	return r.Verdict == ReplayMatch
}

// Replay re-executes each recorded run twice against graphs, keyed by
// function name. A run matches when its graph hash is unchanged, both
// executions agree, and they reproduce the recorded outcome.
func Replay(ctx context.Context, it *interp.Interpreter, graphs map[string]*ir.Graph, runs []store.Run) ([]ReplayResult, error) {
	results := make([]ReplayResult, 0, len(runs))
	for _, run := range runs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, replayOne(ctx, it, graphs, run))
	}
	return results, nil
}

func replayOne(ctx context.Context, it *interp.Interpreter, graphs map[string]*ir.Graph, run store.Run) ReplayResult {
	res := ReplayResult{Run: run}

	g, ok := graphs[run.Function]
	if !ok {
		res.Verdict = ReplayMissingFunction
		res.Detail = fmt.Sprintf("function %s is not in the program", run.Function)
		return res
	}
	if h := ir.MustGraphHash(g); h != run.GraphHash {
		res.Verdict = ReplayHashMismatch
		res.Detail = fmt.Sprintf("graph hash %s, recorded %s", short(h), short(run.GraphHash))
		return res
	}

	first := replayOutcome(ctx, it, g, run.Inputs)
	second := replayOutcome(ctx, it, g, run.Inputs)
	if !reflect.DeepEqual(first, second) {
		res.Verdict = ReplayNondeterministic
		res.Detail = fmt.Sprintf("first %s, second %s", first, second)
		return res
	}

	recorded := outcomeOf(run)
	if !reflect.DeepEqual(first, recorded) {
		res.Verdict = ReplayDiverged
		res.Detail = fmt.Sprintf("got %s, recorded %s", first, recorded)
		return res
	}
	res.Verdict = ReplayMatch
	return res
}

// replayedOutcome is the comparable part of a run.
type replayedOutcome struct {
	Status    string
	Value     ir.Constant
	FaultCode string
	Steps     int
	Path      []ir.BlockID
}

func (o replayedOutcome) String() string {
	if o.Status == store.StatusFault {
		return o.FaultCode
	}
	return fmt.Sprintf("%s in %d steps", o.Value, o.Steps)
}

func replayOutcome(ctx context.Context, it *interp.Interpreter, g *ir.Graph, inputs map[string]ir.Constant) replayedOutcome {
	out, err := Execute(ctx, it, g, inputs)
	if err != nil {
		code, ok := interp.CodeOf(err)
		if !ok {
			return replayedOutcome{Status: store.StatusFault, FaultCode: err.Error()}
		}
		return replayedOutcome{Status: store.StatusFault, FaultCode: string(code)}
	}
	return replayedOutcome{Status: store.StatusOK, Value: out.Value, Steps: out.Steps, Path: out.Path}
}

func outcomeOf(run store.Run) replayedOutcome {
	if run.Status == store.StatusFault {
		return replayedOutcome{Status: store.StatusFault, FaultCode: run.FaultCode}
	}
	o := replayedOutcome{Status: store.StatusOK, Steps: run.Steps, Path: run.Path}
	if run.Value != nil {
		o.Value = *run.Value
	}
	return o
}

func short(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
