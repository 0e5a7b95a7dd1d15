package builder

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// assignState tracks which place labels are written along the current path.
// definite holds labels written on every path reaching this point; maybe
// holds labels written on at least one.
type assignState struct {
	definite mapset.Set[string]
	maybe    mapset.Set[string]
}

func newAssignState() *assignState {
	return &assignState{
		definite: mapset.NewThreadUnsafeSet[string](),
		maybe:    mapset.NewThreadUnsafeSet[string](),
	}
}

func (s *assignState) clone() *assignState {
	return &assignState{
		definite: s.definite.Clone(),
		maybe:    s.maybe.Clone(),
	}
}

func (s *assignState) assign(label string) {
	s.definite.Add(label)
	s.maybe.Add(label)
}

// joinStates merges the states of paths meeting at a join point.
func joinStates(states []*assignState) *assignState {
	out := states[0].clone()
	for _, s := range states[1:] {
		out.definite = out.definite.Intersect(s.definite)
		out.maybe = out.maybe.Union(s.maybe)
	}
	return out
}
