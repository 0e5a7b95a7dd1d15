// Package validate checks structural and dataflow invariants of an ir.Graph.
//
// Validate never mutates its input and never stops at the first problem:
// every violation is collected so a single run explains everything wrong
// with a graph.
package validate

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/cfgir/internal/ir"
)

// Validate checks g and returns every violation found.
//
// Checks, in report order:
//  1. Block ids are the contiguous range 0..N-1
//  2. Every block ends in exactly one terminator, placed last
//  3. Every successor (including fallthrough) is in range
//  4. Stored predecessors equal the transpose of derived successors
//  5. Every block is reachable from block 0 (warning only)
//  6. Each place label has one kind and one type throughout
//  7. Operand types agree with their destination, comparison or result
//  8. Reads are definitely assigned and immutable places are written at most
//     once on every path
//
// Validate is a pure function with no side effects.
func Validate(g *ir.Graph) Report {
	v := &validator{graph: g}
	v.run()
	return Report{Function: g.Name, Violations: v.violations}
}

// validator accumulates violations during traversal.
type validator struct {
	graph      *ir.Graph
	violations []Violation
}

func (v *validator) add(viol Violation, format string, args ...any) {
	if viol.Severity == "" {
		viol.Severity = SeverityError
	}
	viol.Message = fmt.Sprintf(format, args...)
	v.violations = append(v.violations, viol)
}

func (v *validator) run() {
	if v.graph.Len() == 0 {
		v.add(Violation{Code: ErrEmptyGraph, Kind: KindEmptyGraph, Index: -1},
			"graph %s has no blocks", v.graph.Name)
		return
	}

	dense := v.checkIDs()
	v.checkTerminators()
	v.checkTargets()
	v.checkPredecessors()
	// Reachability and dataflow address blocks by id, which only matches
	// slice position in a dense graph.
	if dense {
		v.checkReachability()
	}
	v.checkPlaces()
	v.checkTypes()
	if dense {
		v.checkAssignment()
	}
}

func (v *validator) checkIDs() bool {
	dense := true
	for i, blk := range v.graph.Blocks {
		if blk.ID != ir.BlockID(i) {
			v.add(Violation{Code: ErrNonContiguousID, Kind: KindNonContiguousID, Block: blk.ID, Index: -1},
				"block at position %d has id %d", i, blk.ID)
			dense = false
		}
	}
	return dense
}

func (v *validator) checkTerminators() {
	for _, blk := range v.graph.Blocks {
		if len(blk.Instrs) == 0 {
			v.add(Violation{Code: ErrMissingTerminator, Kind: KindMissingTerminator, Block: blk.ID, Index: -1},
				"block is empty")
			continue
		}
		last := len(blk.Instrs) - 1
		for i, in := range blk.Instrs {
			switch in.(type) {
			case *ir.LoadData:
				if i == last {
					v.add(Violation{Code: ErrMissingTerminator, Kind: KindMissingTerminator, Block: blk.ID, Index: i},
						"last instruction %q is not a terminator", in)
				}
			case *ir.Jump, *ir.JumpIfCond, *ir.Ret:
				if i != last {
					v.add(Violation{Code: ErrMisplacedTerminator, Kind: KindMisplacedTerminator, Block: blk.ID, Index: i},
						"terminator %q before end of block", in)
				}
			default:
				v.add(Violation{Code: ErrUnknownInstruction, Kind: KindUnknownInstruction, Block: blk.ID, Index: i},
					"unknown instruction %T", in)
			}
		}
	}
}

func (v *validator) checkTargets() {
	n := ir.BlockID(v.graph.Len())
	for _, blk := range v.graph.Blocks {
		if t, ok := blk.Terminator().(*ir.JumpIfCond); ok {
			if _, ok := blk.Fallthrough(); !ok {
				v.add(Violation{
					Code:  ErrDanglingTarget,
					Kind:  KindDanglingTarget,
					Block: blk.ID,
					Index: len(blk.Instrs) - 1,
					From:  blk.ID,
					To:    t.Target,
				}, "fallthrough from b%d has no block id", blk.ID)
			}
		}
		for _, s := range blk.Successors() {
			if s >= n {
				v.add(Violation{
					Code:  ErrDanglingTarget,
					Kind:  KindDanglingTarget,
					Block: blk.ID,
					Index: len(blk.Instrs) - 1,
					From:  blk.ID,
					To:    s,
				}, "b%d transfers to b%d, graph has %d blocks", blk.ID, s, n)
			}
		}
	}
}

func (v *validator) checkPredecessors() {
	expected := make([]mapset.Set[ir.BlockID], v.graph.Len())
	for i := range expected {
		expected[i] = mapset.NewThreadUnsafeSet[ir.BlockID]()
	}
	for _, blk := range v.graph.Blocks {
		for _, s := range blk.Successors() {
			if int(s) < len(expected) {
				expected[s].Add(blk.ID)
			}
		}
	}

	for i, blk := range v.graph.Blocks {
		stored := mapset.NewThreadUnsafeSet(blk.Preds...)
		for _, p := range sortedIDs(expected[i].Difference(stored)) {
			v.add(Violation{
				Code:  ErrPredecessorMismatch,
				Kind:  KindPredecessorMismatch,
				Block: blk.ID,
				Index: -1,
				From:  p,
				To:    blk.ID,
			}, "missing predecessor b%d (b%d jumps here)", p, p)
		}
		for _, p := range sortedIDs(stored.Difference(expected[i])) {
			v.add(Violation{
				Code:  ErrPredecessorMismatch,
				Kind:  KindPredecessorMismatch,
				Block: blk.ID,
				Index: -1,
				From:  p,
				To:    blk.ID,
			}, "stale predecessor b%d (b%d has no edge here)", p, p)
		}
	}
}

func (v *validator) checkReachability() {
	reach := v.graph.Reachable()
	for _, blk := range v.graph.Blocks {
		if !reach[blk.ID] {
			v.add(Violation{
				Code:     WarnUnreachableBlock,
				Kind:     KindUnreachableBlock,
				Severity: SeverityWarning,
				Block:    blk.ID,
				Index:    -1,
			}, "b%d is not reachable from b0", blk.ID)
		}
	}
}

func (v *validator) checkPlaces() {
	first := make(map[string]ir.Place)
	check := func(p ir.Place, blk ir.BlockID, idx int) {
		prev, ok := first[p.Label]
		if !ok {
			first[p.Label] = p
			return
		}
		if prev != p {
			v.add(Violation{Code: ErrInconsistentPlace, Kind: KindInconsistentPlace, Block: blk, Index: idx, Label: p.Label},
				"%s used as %s, first seen as %s", p.Label, p.Decl(), prev.Decl())
		}
	}
	for _, p := range v.graph.Params {
		check(p, 0, -1)
	}
	for _, blk := range v.graph.Blocks {
		for i, in := range blk.Instrs {
			if w, ok := ir.Writes(in); ok {
				check(w, blk.ID, i)
			}
			for _, r := range ir.Reads(in) {
				check(r, blk.ID, i)
			}
		}
	}
}

func (v *validator) checkTypes() {
	for _, blk := range v.graph.Blocks {
		for i, in := range blk.Instrs {
			mismatch := func(format string, args ...any) {
				v.add(Violation{Code: ErrTypeMismatch, Kind: KindTypeMismatch, Block: blk.ID, Index: i}, format, args...)
			}
			for _, c := range constants(in) {
				if !c.Type.Fits(c.Value) {
					mismatch("constant %d out of range for %s", c.Value, c.Type)
				}
			}
			switch t := in.(type) {
			case *ir.LoadData:
				if t.Src == nil {
					mismatch("load into %s has no source", t.Dest.Label)
				} else if t.Src.OperandType() != t.Dest.Type {
					mismatch("cannot load %s into %s %s", t.Src.OperandType(), t.Dest.Type, t.Dest.Label)
				}
			case *ir.JumpIfCond:
				if t.Lhs == nil || t.Rhs == nil {
					mismatch("comparison is missing an operand")
				} else if t.Lhs.OperandType() != t.Rhs.OperandType() {
					mismatch("cannot compare %s with %s", t.Lhs.OperandType(), t.Rhs.OperandType())
				}
			case *ir.Ret:
				if t.Value == nil {
					mismatch("ret has no value")
				} else if t.Value.OperandType() != v.graph.Result {
					mismatch("returns %s, function result is %s", t.Value.OperandType(), v.graph.Result)
				}
			}
		}
	}
}

func constants(in ir.Instr) []ir.Constant {
	var ops []ir.Operand
	switch t := in.(type) {
	case *ir.LoadData:
		ops = []ir.Operand{t.Src}
	case *ir.JumpIfCond:
		ops = []ir.Operand{t.Lhs, t.Rhs}
	case *ir.Ret:
		ops = []ir.Operand{t.Value}
	}
	var out []ir.Constant
	for _, op := range ops {
		if c, ok := op.(ir.Constant); ok {
			out = append(out, c)
		}
	}
	return out
}
