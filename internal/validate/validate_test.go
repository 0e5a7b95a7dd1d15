package validate

import (
	"math"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgir/internal/builder"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/testutil"
)

var (
	x = ir.Place{Label: "x_1", Kind: ir.Immutable, Type: ir.TypeI32}
	r = ir.Place{Label: "r_1", Kind: ir.Mutable, Type: ir.TypeI32}
)

func buildPick(t *testing.T) *ir.Graph {
	t.Helper()
	res, err := builder.Build(testutil.PickFunction())
	require.NoError(t, err)
	return res.Graph
}

// countdown loops on r until it reaches zero:
//
//	b0: r = x; jump b1
//	b1: jump_if r == 0, b3
//	b2: r = 0; jump b1
//	b3: ret r
func countdown() *ir.Graph {
	g := &ir.Graph{
		Name:   "countdown",
		Params: []ir.Place{x},
		Result: ir.TypeI32,
		Blocks: []*ir.BasicBlock{
			{ID: 0, Instrs: []ir.Instr{
				&ir.LoadData{Dest: r, Src: ir.Ref(x)},
				&ir.Jump{Target: 1},
			}},
			{ID: 1, Instrs: []ir.Instr{
				&ir.JumpIfCond{Cmp: ir.CmpEq, Lhs: ir.Ref(r), Rhs: ir.Const(ir.TypeI32, 0), Target: 3},
			}},
			{ID: 2, Instrs: []ir.Instr{
				&ir.LoadData{Dest: r, Src: ir.Const(ir.TypeI32, 0)},
				&ir.Jump{Target: 1},
			}},
			{ID: 3, Instrs: []ir.Instr{
				&ir.Ret{Value: ir.Ref(r)},
			}},
		},
	}
	g.ComputePredecessors()
	return g
}

func codes(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Code
	}
	return out
}

func TestValidate_BuiltGraphIsClean(t *testing.T) {
	report := Validate(buildPick(t))
	assert.True(t, report.OK())
	assert.Empty(t, report.Violations)
	assert.NoError(t, report.Err())
}

func TestValidate_Idempotent(t *testing.T) {
	g := buildPick(t)
	g.Block(14).Preds = append(g.Block(14).Preds, 15)

	first := Validate(g)
	second := Validate(g)
	assert.Equal(t, first, second)
}

func TestValidate_DoesNotMutate(t *testing.T) {
	g := buildPick(t)
	before := ir.FormatGraph(g)
	Validate(g)
	assert.Equal(t, before, ir.FormatGraph(g))
}

func TestValidate_PredecessorDuality(t *testing.T) {
	g := buildPick(t)
	for _, i := range g.Blocks {
		for _, j := range g.Blocks {
			succ := slices.Contains(i.Successors(), j.ID)
			pred := slices.Contains(j.Preds, i.ID)
			assert.Equal(t, succ, pred, "b%d -> b%d", i.ID, j.ID)
		}
	}
}

func TestValidate_CyclicGraph(t *testing.T) {
	report := Validate(countdown())
	assert.True(t, report.OK(), "%v", report.Violations)
	assert.Equal(t, []ir.BlockID{0, 2}, countdown().Block(1).Preds)
}

func TestValidate_EmptyGraph(t *testing.T) {
	report := Validate(&ir.Graph{Name: "empty", Result: ir.TypeI32})
	assert.Equal(t, []string{ErrEmptyGraph}, codes(report.Violations))
	assert.False(t, report.OK())
}

func TestValidate_MissingTerminator(t *testing.T) {
	g := countdown()
	g.Block(3).Instrs = nil
	g.Block(2).Instrs = g.Block(2).Instrs[:1]

	report := Validate(g)
	fatal := report.Fatal()
	require.GreaterOrEqual(t, len(fatal), 2)
	assert.Equal(t, ErrMissingTerminator, fatal[0].Code)
	assert.Equal(t, ir.BlockID(2), fatal[0].Block)
	assert.Equal(t, ErrMissingTerminator, fatal[1].Code)
	assert.Equal(t, ir.BlockID(3), fatal[1].Block)
}

func TestValidate_MisplacedTerminator(t *testing.T) {
	g := countdown()
	blk := g.Block(0)
	blk.Instrs = []ir.Instr{&ir.Jump{Target: 1}, &ir.LoadData{Dest: r, Src: ir.Ref(x)}, &ir.Jump{Target: 1}}

	report := Validate(g)
	require.True(t, report.Has(ErrMisplacedTerminator))
	for _, v := range report.Fatal() {
		if v.Code == ErrMisplacedTerminator {
			assert.Equal(t, ir.BlockID(0), v.Block)
			assert.Equal(t, 0, v.Index)
		}
	}
}

func TestValidate_DanglingTarget(t *testing.T) {
	g := countdown()
	g.Block(2).Instrs[1] = &ir.Jump{Target: 42}

	report := Validate(g)
	require.True(t, report.Has(ErrDanglingTarget))
	v := report.Fatal()[0]
	assert.Equal(t, KindDanglingTarget, v.Kind)
	assert.Equal(t, ir.BlockID(2), v.From)
	assert.Equal(t, ir.BlockID(42), v.To)
}

func TestValidate_FallthroughPastEnd(t *testing.T) {
	g := countdown()
	g.Block(3).Instrs = []ir.Instr{
		&ir.JumpIfCond{Cmp: ir.CmpEq, Lhs: ir.Ref(r), Rhs: ir.Const(ir.TypeI32, 0), Target: 1},
	}

	report := Validate(g)
	assert.True(t, report.Has(ErrDanglingTarget))
}

func TestValidate_StalePredecessor(t *testing.T) {
	g := buildPick(t)
	// b15 returns, so it can never transfer control to b16.
	g.Block(16).Preds = []ir.BlockID{14, 15}

	report := Validate(g)
	fatal := report.Fatal()
	require.Len(t, fatal, 1)
	assert.Equal(t, ErrPredecessorMismatch, fatal[0].Code)
	assert.Equal(t, ir.BlockID(15), fatal[0].From)
	assert.Equal(t, ir.BlockID(16), fatal[0].To)
	assert.Contains(t, fatal[0].Message, "stale")
}

func TestValidate_MissingPredecessor(t *testing.T) {
	g := buildPick(t)
	g.Block(10).Preds = []ir.BlockID{8}

	report := Validate(g)
	fatal := report.Fatal()
	require.Len(t, fatal, 1)
	assert.Equal(t, ir.BlockID(9), fatal[0].From)
	assert.Contains(t, fatal[0].Message, "missing")
}

func TestValidate_UnreachableIsWarning(t *testing.T) {
	g := countdown()
	g.Blocks = append(g.Blocks, &ir.BasicBlock{ID: 4, Instrs: []ir.Instr{&ir.Ret{Value: ir.Const(ir.TypeI32, 9)}}})

	report := Validate(g)
	assert.True(t, report.OK())
	require.Len(t, report.Warnings(), 1)
	assert.Equal(t, KindUnreachableBlock, report.Warnings()[0].Kind)
	assert.Equal(t, ir.BlockID(4), report.Warnings()[0].Block)
}

func TestValidate_NonContiguousID(t *testing.T) {
	g := countdown()
	g.Block(3).ID = 7

	report := Validate(g)
	assert.True(t, report.Has(ErrNonContiguousID))
}

func TestValidate_NonContiguousMiddleBlock(t *testing.T) {
	g := &ir.Graph{
		Name:   "renumbered",
		Result: ir.TypeI32,
		Blocks: []*ir.BasicBlock{
			{ID: 0, Instrs: []ir.Instr{&ir.Jump{Target: 1}}},
			{ID: 5, Preds: []ir.BlockID{0}, Instrs: []ir.Instr{&ir.Jump{Target: 2}}},
			{ID: 2, Instrs: []ir.Instr{&ir.Ret{Value: ir.Const(ir.TypeI32, 1)}}},
		},
	}

	var report Report
	require.NotPanics(t, func() { report = Validate(g) })
	assert.True(t, report.Has(ErrNonContiguousID))
	assert.False(t, report.OK())
}

func TestValidate_FallthroughOverflow(t *testing.T) {
	g := &ir.Graph{
		Name:   "overflow",
		Params: []ir.Place{x},
		Result: ir.TypeI32,
		Blocks: []*ir.BasicBlock{{ID: math.MaxUint32, Instrs: []ir.Instr{
			&ir.JumpIfCond{Cmp: ir.CmpEq, Lhs: ir.Ref(x), Rhs: ir.Const(ir.TypeI32, 0), Target: 0},
		}}},
	}

	var report Report
	require.NotPanics(t, func() { report = Validate(g) })
	assert.True(t, report.Has(ErrNonContiguousID))
	assert.True(t, report.Has(ErrDanglingTarget))
}

func TestValidate_InconsistentPlace(t *testing.T) {
	g := countdown()
	wrong := ir.Place{Label: "r_1", Kind: ir.Immutable, Type: ir.TypeI32}
	g.Block(2).Instrs[0] = &ir.LoadData{Dest: wrong, Src: ir.Const(ir.TypeI32, 0)}

	report := Validate(g)
	assert.True(t, report.Has(ErrInconsistentPlace))
}

func TestValidate_TypeMismatch(t *testing.T) {
	g := countdown()
	g.Block(2).Instrs[0] = &ir.LoadData{Dest: r, Src: ir.Bool(true)}
	g.Block(3).Instrs[0] = &ir.Ret{Value: ir.Const(ir.TypeU8, 300)}

	report := Validate(g)
	assert.Equal(t, []string{ErrTypeMismatch, ErrTypeMismatch, ErrTypeMismatch}, codes(report.Fatal()))
}

func TestValidate_UninitializedRead(t *testing.T) {
	g := countdown()
	// Skip the initial store so r_1 is unassigned on the b0 -> b1 path.
	g.Block(0).Instrs = g.Block(0).Instrs[1:]

	report := Validate(g)
	require.True(t, report.Has(ErrUninitializedRead))
	v := report.Fatal()[0]
	assert.Equal(t, ir.BlockID(1), v.Block)
	assert.Equal(t, "r_1", v.Label)
}

func TestValidate_ImmutableWrittenInLoop(t *testing.T) {
	g := countdown()
	once := ir.Place{Label: "c_1", Kind: ir.Immutable, Type: ir.TypeI32}
	blk := g.Block(2)
	blk.Instrs = append([]ir.Instr{&ir.LoadData{Dest: once, Src: ir.Const(ir.TypeI32, 1)}}, blk.Instrs...)

	report := Validate(g)
	require.True(t, report.Has(ErrImmutableReassigned))
	assert.Equal(t, "c_1", report.Fatal()[0].Label)
}

func TestValidate_ErrWrapsFatal(t *testing.T) {
	g := countdown()
	g.Block(2).Instrs[1] = &ir.Jump{Target: 42}

	err := Validate(g).Err()
	require.Error(t, err)
	assert.True(t, IsInvalidGraph(err))
	assert.Contains(t, err.Error(), "DanglingTarget")
}
