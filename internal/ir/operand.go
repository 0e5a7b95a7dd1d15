package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Operand is a value source: either a typed literal or a read of a Place.
// Sealed; only Constant and PlaceRef implement it.
type Operand interface {
	isOperand()
	// OperandType is the static type of the value the operand yields.
	OperandType() Type
	String() string
}

// Constant is a typed literal. Bool constants hold 0 or 1.
type Constant struct {
	Type  Type
	Value int64
}

// PlaceRef reads the current value of a Place.
type PlaceRef struct {
	Place Place
}

func (Constant) isOperand() {}
func (PlaceRef) isOperand() {}

func (c Constant) OperandType() Type { return c.Type }
func (r PlaceRef) OperandType() Type { return r.Place.Type }

func (c Constant) String() string {
	if c.Type == TypeBool {
		if c.Value != 0 {
			return "true"
		}
		return "false"
	}
	return fmt.Sprintf("%d:%s", c.Value, c.Type)
}

func (r PlaceRef) String() string { return r.Place.Label }

// Const builds a Constant operand.
func Const(t Type, v int64) Constant {
	return Constant{Type: t, Value: v}
}

// Bool builds a bool Constant.
func Bool(b bool) Constant {
	if b {
		return Constant{Type: TypeBool, Value: 1}
	}
	return Constant{Type: TypeBool, Value: 0}
}

// Ref builds a PlaceRef operand.
func Ref(p Place) PlaceRef {
	return PlaceRef{Place: p}
}

// ParseConstant parses s as a value of type t. Bools accept "true" and
// "false"; integers are decimal with an optional ":type" suffix that must
// match t, as printed by Constant.String.
func ParseConstant(t Type, s string) (Constant, error) {
	if t == TypeBool {
		switch s {
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return Constant{}, fmt.Errorf("%q is not a bool", s)
	}
	if num, suffix, ok := strings.Cut(s, ":"); ok {
		if suffix != t.String() {
			return Constant{}, fmt.Errorf("%q has type %s, want %s", s, suffix, t)
		}
		s = num
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Constant{}, fmt.Errorf("%q is not an integer", s)
	}
	if !t.Fits(v) {
		return Constant{}, fmt.Errorf("%d out of range for %s", v, t)
	}
	return Const(t, v), nil
}
