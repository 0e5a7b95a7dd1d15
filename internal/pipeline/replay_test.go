package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgir/internal/ast"
	"github.com/roach88/cfgir/internal/builder"
	"github.com/roach88/cfgir/internal/interp"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/store"
	"github.com/roach88/cfgir/internal/testutil"
	"github.com/roach88/cfgir/internal/validate"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func pick(t *testing.T) *ir.Graph {
	t.Helper()
	res, err := builder.Build(testutil.PickFunction(), builder.WithLogger(discard))
	require.NoError(t, err)
	return res.Graph
}

func b(v int64) map[string]ir.Constant {
	return map[string]ir.Constant{"b_1": ir.Const(ir.TypeI32, v)}
}

func TestRecordAndReplay_Match(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	gen := testutil.NewSequentialIDs()
	it := interp.New(interp.WithLogger(discard))
	g := pick(t)

	for _, in := range []int64{7, 2, 40, 60} {
		run, err := Record(ctx, st, gen, it, g, b(in))
		require.NoError(t, err)
		assert.Equal(t, store.StatusOK, run.Status)
		assert.Equal(t, testutil.PickExpectations[in], run.Value.Value)
	}

	runs, err := st.ListRuns(ctx, "pick")
	require.NoError(t, err)
	require.Len(t, runs, 4)

	results, err := Replay(ctx, it, map[string]*ir.Graph{"pick": pick(t)}, runs)
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.OK(), "%s: %s %s", r.Run.ID, r.Verdict, r.Detail)
	}
}

func TestRecord_Fault(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	tight := interp.New(interp.WithLogger(discard), interp.WithMaxSteps(3))

	run, err := Record(ctx, st, testutil.NewSequentialIDs(), tight, pick(t), b(2))
	require.Error(t, err)
	assert.True(t, interp.IsBudgetExceeded(err))
	assert.Equal(t, store.StatusFault, run.Status)
	assert.Equal(t, string(interp.FaultStepBudgetExceeded), run.FaultCode)

	runs, err := st.ListRuns(ctx, "")
	require.NoError(t, err)
	require.Len(t, runs, 1)

	graphs := map[string]*ir.Graph{"pick": pick(t)}

	same, err := Replay(ctx, tight, graphs, runs)
	require.NoError(t, err)
	assert.Equal(t, ReplayMatch, same[0].Verdict)

	roomy, err := Replay(ctx, interp.New(interp.WithLogger(discard)), graphs, runs)
	require.NoError(t, err)
	assert.Equal(t, ReplayDiverged, roomy[0].Verdict)
}

func TestRecord_InvalidGraphNotRecorded(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	g := pick(t)
	g.Block(1).Instrs[1] = &ir.Jump{Target: 99}

	_, err := Record(ctx, st, testutil.NewSequentialIDs(), interp.New(interp.WithLogger(discard)), g, b(7))
	require.Error(t, err)
	assert.True(t, validate.IsInvalidGraph(err))

	n, err := st.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReplay_HashMismatchAndMissing(t *testing.T) {
	ctx := context.Background()
	st := openStore(t)
	it := interp.New(interp.WithLogger(discard))

	_, err := Record(ctx, st, testutil.NewSequentialIDs(), it, pick(t), b(9))
	require.NoError(t, err)
	runs, err := st.ListRuns(ctx, "")
	require.NoError(t, err)

	changed := testutil.PickFunction()
	changed.Body.Stmts = changed.Body.Stmts[2:]
	changed.Body.Stmts = append([]ast.Stmt{&ast.Let{Var: testutil.I32("a", 1, true), Value: testutil.Lit(1)}}, changed.Body.Stmts...)
	res, err := builder.Build(changed, builder.WithLogger(discard))
	require.NoError(t, err)

	results, err := Replay(ctx, it, map[string]*ir.Graph{"pick": res.Graph}, runs)
	require.NoError(t, err)
	assert.Equal(t, ReplayHashMismatch, results[0].Verdict)

	results, err = Replay(ctx, it, map[string]*ir.Graph{}, runs)
	require.NoError(t, err)
	assert.Equal(t, ReplayMissingFunction, results[0].Verdict)
	assert.False(t, results[0].OK())
}

func TestReplay_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Replay(ctx, interp.New(), nil, []store.Run{{ID: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}
