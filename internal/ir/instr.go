package ir

import "fmt"

// Instr is one instruction in a BasicBlock.
// Sealed; LoadData is the only non-terminator.
type Instr interface {
	isInstr()
	String() string
}

// LoadData copies Src into Dest.
type LoadData struct {
	Dest Place
	Src  Operand
}

// Jump transfers control unconditionally to Target.
type Jump struct {
	Target BlockID
}

// JumpIfCond transfers control to Target when Lhs Cmp Rhs holds and
// otherwise falls through to the block with the next sequential id.
type JumpIfCond struct {
	Cmp    Comparator
	Lhs    Operand
	Rhs    Operand
	Target BlockID
}

// Ret returns Value from the function.
type Ret struct {
	Value Operand
}

func (*LoadData) isInstr()   {}
func (*Jump) isInstr()       {}
func (*JumpIfCond) isInstr() {}
func (*Ret) isInstr()        {}

func (i *LoadData) String() string {
	return fmt.Sprintf("%s = %s", i.Dest.Label, i.Src)
}

func (i *Jump) String() string {
	return fmt.Sprintf("jump b%d", i.Target)
}

func (i *JumpIfCond) String() string {
	return fmt.Sprintf("jump_if %s %s %s, b%d", i.Lhs, i.Cmp, i.Rhs, i.Target)
}

func (i *Ret) String() string {
	return fmt.Sprintf("ret %s", i.Value)
}

// IsTerminator reports whether in ends a block.
func IsTerminator(in Instr) bool {
	switch in.(type) {
	case *Jump, *JumpIfCond, *Ret:
		return true
	default:
		return false
	}
}

// Reads returns the places read by in, in operand order.
func Reads(in Instr) []Place {
	var ops []Operand
	switch v := in.(type) {
	case *LoadData:
		ops = []Operand{v.Src}
	case *JumpIfCond:
		ops = []Operand{v.Lhs, v.Rhs}
	case *Ret:
		ops = []Operand{v.Value}
	}
	var out []Place
	for _, op := range ops {
		if r, ok := op.(PlaceRef); ok {
			out = append(out, r.Place)
		}
	}
	return out
}

// Writes returns the place written by in, if any.
func Writes(in Instr) (Place, bool) {
	if ld, ok := in.(*LoadData); ok {
		return ld.Dest, true
	}
	return Place{}, false
}
