package validate

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/roach88/cfgir/internal/ir"
)

// flowFacts are the assignment facts at a program point.
type flowFacts struct {
	definite mapset.Set[string] // written on every path
	maybe    mapset.Set[string] // written on at least one path
}

// checkAssignment runs a forward dataflow analysis to a fixpoint over the
// reachable subgraph, so cycles are handled. Only derived successor edges
// are followed; stored predecessors are not trusted here.
func (v *validator) checkAssignment() {
	g := v.graph
	reach := g.Reachable()

	universe := mapset.NewThreadUnsafeSet[string]()
	for _, p := range g.Places() {
		universe.Add(p.Label)
	}
	kinds := make(map[string]ir.Kind)
	for _, p := range g.Places() {
		kinds[p.Label] = p.Kind
	}

	preds := make(map[ir.BlockID][]ir.BlockID)
	for _, blk := range g.Blocks {
		if !reach[blk.ID] {
			continue
		}
		for _, s := range blk.Successors() {
			if reach[s] {
				preds[s] = append(preds[s], blk.ID)
			}
		}
	}

	entry := flowFacts{
		definite: mapset.NewThreadUnsafeSet[string](),
		maybe:    mapset.NewThreadUnsafeSet[string](),
	}
	for _, p := range g.Params {
		entry.definite.Add(p.Label)
		entry.maybe.Add(p.Label)
	}

	// Definite starts at the universe (top) so the intersection converges on
	// the greatest fixpoint; maybe starts empty and only grows.
	out := make(map[ir.BlockID]flowFacts)
	for _, blk := range g.Blocks {
		if reach[blk.ID] {
			out[blk.ID] = flowFacts{definite: universe.Clone(), maybe: mapset.NewThreadUnsafeSet[string]()}
		}
	}

	in := func(id ir.BlockID) flowFacts {
		if id == 0 {
			// Entry may also be a loop header.
			f := flowFacts{definite: entry.definite.Clone(), maybe: entry.maybe.Clone()}
			for _, p := range preds[0] {
				f.definite = f.definite.Intersect(out[p].definite)
				f.maybe = f.maybe.Union(out[p].maybe)
			}
			return f
		}
		ps := preds[id]
		if len(ps) == 0 {
			return flowFacts{definite: entry.definite.Clone(), maybe: entry.maybe.Clone()}
		}
		f := flowFacts{definite: out[ps[0]].definite.Clone(), maybe: out[ps[0]].maybe.Clone()}
		for _, p := range ps[1:] {
			f.definite = f.definite.Intersect(out[p].definite)
			f.maybe = f.maybe.Union(out[p].maybe)
		}
		return f
	}

	transfer := func(blk *ir.BasicBlock, f flowFacts) {
		for _, instr := range blk.Instrs {
			if w, ok := ir.Writes(instr); ok {
				f.definite.Add(w.Label)
				f.maybe.Add(w.Label)
			}
		}
	}

	for changed := true; changed; {
		changed = false
		for _, blk := range g.Blocks {
			if !reach[blk.ID] {
				continue
			}
			f := in(blk.ID)
			transfer(blk, f)
			prev := out[blk.ID]
			if !prev.definite.Equal(f.definite) || !prev.maybe.Equal(f.maybe) {
				out[blk.ID] = f
				changed = true
			}
		}
	}

	for _, blk := range g.Blocks {
		if !reach[blk.ID] {
			continue
		}
		f := in(blk.ID)
		for i, instr := range blk.Instrs {
			for _, r := range ir.Reads(instr) {
				if !f.definite.Contains(r.Label) {
					v.add(Violation{Code: ErrUninitializedRead, Kind: KindUninitializedRead, Block: blk.ID, Index: i, Label: r.Label},
						"%s may be read before assignment", r.Label)
				}
			}
			w, ok := ir.Writes(instr)
			if !ok {
				continue
			}
			if kinds[w.Label] == ir.Immutable && f.maybe.Contains(w.Label) {
				v.add(Violation{Code: ErrImmutableReassigned, Kind: KindImmutableReassigned, Block: blk.ID, Index: i, Label: w.Label},
					"immutable %s may already be assigned on this path", w.Label)
			}
			f.definite.Add(w.Label)
			f.maybe.Add(w.Label)
		}
	}
}

func sortedIDs(s mapset.Set[ir.BlockID]) []ir.BlockID {
	ids := s.ToSlice()
	slices.Sort(ids)
	return ids
}
