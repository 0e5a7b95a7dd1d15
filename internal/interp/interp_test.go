package interp

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgir/internal/builder"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/testutil"
)

func quiet() Option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func pickGraph(t *testing.T) *ir.Graph {
	t.Helper()
	res, err := builder.Build(testutil.PickFunction())
	require.NoError(t, err)
	return res.Graph
}

func input(v int64) map[string]ir.Constant {
	return map[string]ir.Constant{"b_1": ir.Const(ir.TypeI32, v)}
}

func TestRun_PickTable(t *testing.T) {
	g := pickGraph(t)
	it := New(quiet())

	for in, want := range testutil.PickExpectations {
		out, err := it.Run(context.Background(), g, input(in))
		require.NoError(t, err, "b=%d", in)
		assert.Equal(t, ir.Const(ir.TypeI32, want), out.Value, "b=%d", in)
	}
}

func TestRun_Path(t *testing.T) {
	out, err := New(quiet()).Run(context.Background(), pickGraph(t), input(2))
	require.NoError(t, err)
	assert.Equal(t, []ir.BlockID{0, 2, 4, 6, 7, 8, 10, 14, 15}, out.Path)
	assert.Equal(t, 9, out.Steps)
}

func TestRun_Deterministic(t *testing.T) {
	g := pickGraph(t)
	it := New(quiet())
	first, err := it.Run(context.Background(), g, input(40))
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := it.Run(context.Background(), g, input(40))
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRun_InvalidTarget(t *testing.T) {
	g := pickGraph(t).Clone()
	g.Block(1).Instrs[1] = &ir.Jump{Target: 99}

	_, err := New(quiet()).Run(context.Background(), g, input(7))
	require.Error(t, err)
	assert.True(t, IsInvalidTarget(err))

	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, ir.BlockID(1), f.Block)
	assert.Equal(t, ir.BlockID(99), f.Target)
}

func TestRun_FallthroughPastEnd(t *testing.T) {
	x := ir.Place{Label: "x_1", Type: ir.TypeI32}
	g := &ir.Graph{
		Name:   "edge",
		Params: []ir.Place{x},
		Result: ir.TypeI32,
		Blocks: []*ir.BasicBlock{{ID: 0, Instrs: []ir.Instr{
			&ir.JumpIfCond{Cmp: ir.CmpEq, Lhs: ir.Ref(x), Rhs: ir.Const(ir.TypeI32, 0), Target: 0},
		}}},
	}

	_, err := New(quiet()).Run(context.Background(), g, map[string]ir.Constant{"x_1": ir.Const(ir.TypeI32, 1)})
	assert.True(t, IsInvalidTarget(err))
}

func TestRun_FallthroughOverflow(t *testing.T) {
	x := ir.Place{Label: "x_1", Type: ir.TypeI32}
	g := &ir.Graph{
		Name:   "overflow",
		Params: []ir.Place{x},
		Result: ir.TypeI32,
		Blocks: []*ir.BasicBlock{{ID: math.MaxUint32, Instrs: []ir.Instr{
			&ir.JumpIfCond{Cmp: ir.CmpEq, Lhs: ir.Ref(x), Rhs: ir.Const(ir.TypeI32, 0), Target: 0},
		}}},
	}

	_, err := New(quiet()).Run(context.Background(), g, map[string]ir.Constant{"x_1": ir.Const(ir.TypeI32, 1)})
	require.Error(t, err)
	assert.True(t, IsInvalidTarget(err))
}

func TestRun_EmptyGraph(t *testing.T) {
	_, err := New(quiet()).Run(context.Background(), &ir.Graph{Name: "empty"}, nil)
	assert.True(t, IsInvalidTarget(err))
}

func TestRun_UninitializedRead(t *testing.T) {
	g := pickGraph(t).Clone()
	// Remove both writes of a_1 on the b=60 path.
	g.Block(0).Instrs = g.Block(0).Instrs[1:]
	g.Block(13).Instrs = g.Block(13).Instrs[1:]

	_, err := New(quiet()).Run(context.Background(), g, input(60))
	require.Error(t, err)
	assert.True(t, IsUninitializedRead(err))

	var f *Fault
	require.ErrorAs(t, err, &f)
	assert.Equal(t, "a_1", f.Label)
	assert.Equal(t, ir.BlockID(16), f.Block)
}

func TestRun_MissingTerminator(t *testing.T) {
	g := pickGraph(t).Clone()
	g.Block(1).Instrs = g.Block(1).Instrs[:1]

	_, err := New(quiet()).Run(context.Background(), g, input(7))
	code, ok := CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, FaultMissingTerminator, code)
}

func TestRun_StepBudget(t *testing.T) {
	spin := &ir.Graph{
		Name:   "spin",
		Result: ir.TypeI32,
		Blocks: []*ir.BasicBlock{{ID: 0, Instrs: []ir.Instr{&ir.Jump{Target: 0}}}},
	}

	_, err := New(quiet(), WithMaxSteps(25)).Run(context.Background(), spin, nil)
	require.Error(t, err)
	assert.True(t, IsBudgetExceeded(err))

	var se *StepsExceededError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 26, se.Steps)
	assert.Equal(t, 25, se.Limit)
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(quiet()).Run(ctx, pickGraph(t), input(7))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsFault(err))
}

func TestRun_BadInput(t *testing.T) {
	g := pickGraph(t)
	it := New(quiet())

	tests := []struct {
		name   string
		inputs map[string]ir.Constant
	}{
		{"missing", map[string]ir.Constant{}},
		{"unknown", map[string]ir.Constant{"b_1": ir.Const(ir.TypeI32, 1), "z_1": ir.Const(ir.TypeI32, 1)}},
		{"wrong type", map[string]ir.Constant{"b_1": ir.Const(ir.TypeI64, 1)}},
		{"out of range", map[string]ir.Constant{"b_1": ir.Const(ir.TypeI32, 1 << 40)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := it.Run(context.Background(), g, tt.inputs)
			code, ok := CodeOf(err)
			require.True(t, ok)
			assert.Equal(t, FaultBadInput, code)
		})
	}
}

func TestRun_CyclicGraph(t *testing.T) {
	x := ir.Place{Label: "x_1", Kind: ir.Immutable, Type: ir.TypeI32}
	r := ir.Place{Label: "r_1", Kind: ir.Mutable, Type: ir.TypeI32}
	g := &ir.Graph{
		Name:   "countdown",
		Params: []ir.Place{x},
		Result: ir.TypeI32,
		Blocks: []*ir.BasicBlock{
			{ID: 0, Instrs: []ir.Instr{&ir.LoadData{Dest: r, Src: ir.Ref(x)}, &ir.Jump{Target: 1}}},
			{ID: 1, Instrs: []ir.Instr{&ir.JumpIfCond{Cmp: ir.CmpEq, Lhs: ir.Ref(r), Rhs: ir.Const(ir.TypeI32, 0), Target: 3}}},
			{ID: 2, Instrs: []ir.Instr{&ir.LoadData{Dest: r, Src: ir.Const(ir.TypeI32, 0)}, &ir.Jump{Target: 1}}},
			{ID: 3, Instrs: []ir.Instr{&ir.Ret{Value: ir.Ref(r)}}},
		},
	}

	out, err := New(quiet()).Run(context.Background(), g, map[string]ir.Constant{"x_1": ir.Const(ir.TypeI32, 4)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out.Value.Value)
	assert.Equal(t, []ir.BlockID{0, 1, 2, 1, 3}, out.Path)
}

func TestRun_UnsignedCompare(t *testing.T) {
	u := ir.Place{Label: "u_1", Type: ir.TypeU32}
	g := &ir.Graph{
		Name:   "big",
		Params: []ir.Place{u},
		Result: ir.TypeBool,
		Blocks: []*ir.BasicBlock{
			{ID: 0, Instrs: []ir.Instr{&ir.JumpIfCond{Cmp: ir.CmpLt, Lhs: ir.Ref(u), Rhs: ir.Const(ir.TypeU32, 1<<31), Target: 2}}},
			{ID: 1, Instrs: []ir.Instr{&ir.Ret{Value: ir.Bool(true)}}},
			{ID: 2, Instrs: []ir.Instr{&ir.Ret{Value: ir.Bool(false)}}},
		},
	}

	out, err := New(quiet()).Run(context.Background(), g, map[string]ir.Constant{"u_1": ir.Const(ir.TypeU32, 1<<32 - 1)})
	require.NoError(t, err)
	assert.Equal(t, ir.Bool(true), out.Value, "4294967295 >= 2147483648 as unsigned")
}
