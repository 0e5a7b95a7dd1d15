package ir

import (
	"fmt"
	"math"
)

// Type is a primitive type tag.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeBool
	TypeI8
	TypeI16
	TypeI32
	TypeI64
	TypeU8
	TypeU16
	TypeU32
)

var typeNames = map[Type]string{
	TypeBool: "bool",
	TypeI8:   "i8",
	TypeI16:  "i16",
	TypeI32:  "i32",
	TypeI64:  "i64",
	TypeU8:   "u8",
	TypeU16:  "u16",
	TypeU32:  "u32",
}

// ParseType resolves a type name such as "i32".
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return TypeInvalid, fmt.Errorf("unknown type %q", name)
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "invalid"
}

// IsSigned reports whether values of t compare as signed integers.
func (t Type) IsSigned() bool {
	switch t {
	case TypeI8, TypeI16, TypeI32, TypeI64:
		return true
	}
	return false
}

// Fits reports whether v is representable in t.
func (t Type) Fits(v int64) bool {
	switch t {
	case TypeBool:
		return v == 0 || v == 1
	case TypeI8:
		return v >= math.MinInt8 && v <= math.MaxInt8
	case TypeI16:
		return v >= math.MinInt16 && v <= math.MaxInt16
	case TypeI32:
		return v >= math.MinInt32 && v <= math.MaxInt32
	case TypeI64:
		return true
	case TypeU8:
		return v >= 0 && v <= math.MaxUint8
	case TypeU16:
		return v >= 0 && v <= math.MaxUint16
	case TypeU32:
		return v >= 0 && v <= math.MaxUint32
	default:
		return false
	}
}

// Kind says whether a Place may be reassigned after its first definition.
type Kind uint8

const (
	Immutable Kind = iota
	Mutable
)

func (k Kind) String() string {
	if k == Mutable {
		return "mut"
	}
	return "imm"
}

// Place is a typed storage location owned by one function.
// All references to a given Label within a Graph must agree on Kind and Type.
type Place struct {
	Label string
	Kind  Kind
	Type  Type
}

func (p Place) String() string {
	return p.Label
}

// Decl renders the place with its qualifiers, e.g. "mut a_1: i32".
func (p Place) Decl() string {
	if p.Kind == Mutable {
		return fmt.Sprintf("mut %s: %s", p.Label, p.Type)
	}
	return fmt.Sprintf("%s: %s", p.Label, p.Type)
}

// Comparator is the relation tested by JumpIfCond.
type Comparator uint8

const (
	CmpEq Comparator = iota
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
)

var comparatorNames = [...]string{
	CmpEq: "==",
	CmpNe: "!=",
	CmpLt: "<",
	CmpLe: "<=",
	CmpGt: ">",
	CmpGe: ">=",
}

// ParseComparator resolves an operator spelling such as ">=".
func ParseComparator(op string) (Comparator, error) {
	for c, n := range comparatorNames {
		if n == op {
			return Comparator(c), nil
		}
	}
	return 0, fmt.Errorf("unknown comparator %q", op)
}

func (c Comparator) String() string {
	if int(c) < len(comparatorNames) {
		return comparatorNames[c]
	}
	return "?"
}

// Negate returns the comparator that holds exactly when c does not.
func (c Comparator) Negate() Comparator {
	switch c {
	case CmpEq:
		return CmpNe
	case CmpNe:
		return CmpEq
	case CmpLt:
		return CmpGe
	case CmpLe:
		return CmpGt
	case CmpGt:
		return CmpLe
	default:
		return CmpLt
	}
}

// Swap returns the comparator for the same relation with operands exchanged.
func (c Comparator) Swap() Comparator {
	switch c {
	case CmpLt:
		return CmpGt
	case CmpLe:
		return CmpGe
	case CmpGt:
		return CmpLt
	case CmpGe:
		return CmpLe
	default:
		return c
	}
}

// Eval applies c to two values of the same Type. Unsigned and bool values
// are stored non-negative, so int64 ordering is correct for every Type.
func (c Comparator) Eval(lhs, rhs int64) bool {
	switch c {
	case CmpEq:
		return lhs == rhs
	case CmpNe:
		return lhs != rhs
	case CmpLt:
		return lhs < rhs
	case CmpLe:
		return lhs <= rhs
	case CmpGt:
		return lhs > rhs
	case CmpGe:
		return lhs >= rhs
	default:
		return false
	}
}
