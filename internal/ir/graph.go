package ir

import (
	"math"
	"slices"
	"strconv"
)

// BlockID addresses a block within its Graph. Ids are dense: 0..Len()-1.
type BlockID uint32

func (id BlockID) String() string {
	return "b" + strconv.FormatUint(uint64(id), 10)
}

// BasicBlock is a straight-line instruction sequence ending in a terminator.
type BasicBlock struct {
	ID     BlockID
	Preds  []BlockID
	Instrs []Instr
}

// Terminator returns the last instruction if it is a terminator, else nil.
func (b *BasicBlock) Terminator() Instr {
	if len(b.Instrs) == 0 {
		return nil
	}
	last := b.Instrs[len(b.Instrs)-1]
	if !IsTerminator(last) {
		return nil
	}
	return last
}

// Fallthrough returns ID+1, or false when ID is the largest BlockID and
// the next id does not exist.
func (b *BasicBlock) Fallthrough() (BlockID, bool) {
	if b.ID == math.MaxUint32 {
		return 0, false
	}
	return b.ID + 1, true
}

// Successors derives the successor set from the terminator.
// JumpIfCond yields its target followed by the fallthrough block ID+1;
// the pair collapses when both are the same block. A fallthrough past the
// largest BlockID is omitted.
func (b *BasicBlock) Successors() []BlockID {
	switch t := b.Terminator().(type) {
	case *Jump:
		return []BlockID{t.Target}
	case *JumpIfCond:
		next, ok := b.Fallthrough()
		if !ok {
			return []BlockID{t.Target}
		}
		if t.Target == next {
			return []BlockID{next}
		}
		return []BlockID{t.Target, next}
	default:
		return nil
	}
}

// Graph is the control flow graph for one function. Block 0 is the entry.
type Graph struct {
	Name   string
	Params []Place
	Result Type
	Blocks []*BasicBlock
}

// Len returns the number of blocks.
func (g *Graph) Len() int {
	return len(g.Blocks)
}

// Block returns the block with the given id, or nil when out of range.
func (g *Graph) Block(id BlockID) *BasicBlock {
	if int(id) >= len(g.Blocks) {
		return nil
	}
	return g.Blocks[id]
}

// Entry returns block 0, or nil for an empty graph.
func (g *Graph) Entry() *BasicBlock {
	return g.Block(0)
}

// Exits returns the ids of blocks that end in Ret, ascending.
func (g *Graph) Exits() []BlockID {
	var out []BlockID
	for _, b := range g.Blocks {
		if _, ok := b.Terminator().(*Ret); ok {
			out = append(out, b.ID)
		}
	}
	return out
}

// ComputePredecessors overwrites every block's Preds with the transpose of
// the derived successor relation. Preds are sorted ascending without
// duplicates. Edges to ids outside the graph are ignored.
func (g *Graph) ComputePredecessors() {
	preds := make([][]BlockID, len(g.Blocks))
	for _, b := range g.Blocks {
		for _, s := range b.Successors() {
			if int(s) >= len(g.Blocks) {
				continue
			}
			preds[s] = append(preds[s], b.ID)
		}
	}
	for i, b := range g.Blocks {
		p := preds[i]
		slices.Sort(p)
		b.Preds = slices.Compact(p)
	}
}

// Reachable returns the set of block ids reachable from the entry.
func (g *Graph) Reachable() map[BlockID]bool {
	seen := make(map[BlockID]bool, len(g.Blocks))
	if len(g.Blocks) == 0 {
		return seen
	}
	stack := []BlockID{0}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		b := g.Block(id)
		if b == nil {
			continue
		}
		seen[id] = true
		stack = append(stack, b.Successors()...)
	}
	return seen
}

// Places returns every place mentioned in the graph: params first, then
// the remaining places in order of first appearance. A label is listed once,
// with the qualifiers of its first occurrence.
func (g *Graph) Places() []Place {
	seen := make(map[string]bool)
	var out []Place
	add := func(p Place) {
		if seen[p.Label] {
			return
		}
		seen[p.Label] = true
		out = append(out, p)
	}
	for _, p := range g.Params {
		add(p)
	}
	for _, b := range g.Blocks {
		for _, in := range b.Instrs {
			if w, ok := Writes(in); ok {
				add(w)
			}
			for _, r := range Reads(in) {
				add(r)
			}
		}
	}
	return out
}

// Clone returns a deep copy. Operands and places are values, so only the
// block and instruction containers are duplicated.
func (g *Graph) Clone() *Graph {
	out := &Graph{
		Name:   g.Name,
		Params: slices.Clone(g.Params),
		Result: g.Result,
		Blocks: make([]*BasicBlock, len(g.Blocks)),
	}
	for i, b := range g.Blocks {
		nb := &BasicBlock{
			ID:     b.ID,
			Preds:  slices.Clone(b.Preds),
			Instrs: make([]Instr, len(b.Instrs)),
		}
		for j, in := range b.Instrs {
			nb.Instrs[j] = cloneInstr(in)
		}
		out.Blocks[i] = nb
	}
	return out
}

func cloneInstr(in Instr) Instr {
	switch v := in.(type) {
	case *LoadData:
		c := *v
		return &c
	case *Jump:
		c := *v
		return &c
	case *JumpIfCond:
		c := *v
		return &c
	case *Ret:
		c := *v
		return &c
	default:
		return in
	}
}
