package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgir/internal/builder"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/testutil"
)

func pickGraph(t *testing.T) *ir.Graph {
	t.Helper()
	res, err := builder.Build(testutil.PickFunction())
	require.NoError(t, err)
	return res.Graph
}

func TestEvaluateAssertions_Pass(t *testing.T) {
	errs := EvaluateAssertions(pickGraph(t), []Assertion{
		{Type: AssertBlockCount, Count: 17},
		{Type: AssertPreds, Block: 10, Blocks: []uint32{9, 8}},
		{Type: AssertSuccessors, Block: 6, Blocks: []uint32{7, 11}},
		{Type: AssertSuccessors, Block: 15},
		{Type: AssertExits, Blocks: []uint32{16, 15}},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertions_Failures(t *testing.T) {
	errs := EvaluateAssertions(pickGraph(t), []Assertion{
		{Type: AssertBlockCount, Count: 16},
		{Type: AssertPreds, Block: 14, Blocks: []uint32{1}},
		{Type: AssertPreds, Block: 99, Blocks: []uint32{1}},
		{Type: AssertExits, Blocks: []uint32{16}},
	})
	require.Len(t, errs, 4)
	assert.Contains(t, errs[0], "assertions[0]")
	assert.Contains(t, errs[0], "expected 16, got 17")
	assert.Contains(t, errs[1], "preds")
	assert.Contains(t, errs[2], "no such block")
	assert.Contains(t, errs[3], "[b15 b16]")
}
