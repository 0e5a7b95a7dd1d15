package harness

import (
	"fmt"
	"slices"

	"github.com/roach88/cfgir/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("Assertion failed: %s: expected %s, got %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against g and returns the
// failure messages in assertion order.
func EvaluateAssertions(g *ir.Graph, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(g, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(g *ir.Graph, a Assertion) error {
	switch a.Type {
	case AssertBlockCount:
		if g.Len() != a.Count {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprint(a.Count), Actual: fmt.Sprint(g.Len())}
		}
		return nil
	case AssertPreds:
		blk := g.Block(ir.BlockID(a.Block))
		if blk == nil {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("block b%d", a.Block), Actual: "no such block"}
		}
		return compareBlocks(a.Type, a.Blocks, blk.Preds)
	case AssertSuccessors:
		blk := g.Block(ir.BlockID(a.Block))
		if blk == nil {
			return &AssertionError{Type: a.Type, Expected: fmt.Sprintf("block b%d", a.Block), Actual: "no such block"}
		}
		return compareBlocks(a.Type, a.Blocks, blk.Successors())
	case AssertExits:
		return compareBlocks(a.Type, a.Blocks, g.Exits())
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// compareBlocks compares as sets.
func compareBlocks(typ string, want []uint32, got []ir.BlockID) error {
	w := make([]ir.BlockID, len(want))
	for i, id := range want {
		w[i] = ir.BlockID(id)
	}
	slices.Sort(w)
	g := slices.Clone(got)
	slices.Sort(g)
	if !slices.Equal(w, g) {
		return &AssertionError{Type: typ, Expected: fmt.Sprint(w), Actual: fmt.Sprint(g)}
	}
	return nil
}
