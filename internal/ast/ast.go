// Package ast defines the structured, fully resolved program tree consumed by
// the builder. Every variable reference already carries its declaration
// identity (name plus generation) and type; no name resolution happens past
// this point.
package ast

import (
	"fmt"

	"github.com/roach88/cfgir/internal/ir"
)

// VarID identifies one declaration of a source name within a function.
type VarID struct {
	Name string
	Gen  int
}

// Var is a resolved variable. Gen is 1 for the first declaration of Name in
// the function, 2 for the second, and so on.
type Var struct {
	Name    string
	Gen     int
	Mutable bool
	Type    ir.Type
}

// ID returns the declaration identity of v.
func (v Var) ID() VarID {
	return VarID{Name: v.Name, Gen: v.Gen}
}

// Label returns the place label for v, e.g. "a_2".
func (v Var) Label() string {
	return fmt.Sprintf("%s_%d", v.Name, v.Gen)
}

// Function is one function definition.
type Function struct {
	Name   string
	Params []Var
	Result ir.Type
	Body   Block
}

// Block is an ordered statement list.
type Block struct {
	Stmts []Stmt
}

// Stmt is a statement. Sealed.
type Stmt interface {
	isStmt()
}

// Let declares Var. A nil Value declares without initializing.
type Let struct {
	Var   Var
	Value Expr
}

// Assign writes Value to an existing variable.
type Assign struct {
	Var   Var
	Value Expr
}

// If is an if / else-if / else chain. Arms are tested in order; Else may be nil.
type If struct {
	Arms []Arm
	Else *Block
}

// Arm is one guarded body of an If chain.
type Arm struct {
	Cond Cond
	Body Block
}

// Return ends the function with Value.
type Return struct {
	Value Expr
}

func (*Let) isStmt()    {}
func (*Assign) isStmt() {}
func (*If) isStmt()     {}
func (*Return) isStmt() {}

// Cond is a binary comparison.
type Cond struct {
	Cmp ir.Comparator
	Lhs Expr
	Rhs Expr
}

// Expr is a value expression. Sealed.
type Expr interface {
	isExpr()
}

// Lit is a typed literal.
type Lit struct {
	Value ir.Constant
}

// Ref reads a variable.
type Ref struct {
	Var Var
}

func (Lit) isExpr() {}
func (Ref) isExpr() {}

// IntLit is shorthand for an i32 literal.
func IntLit(v int64) Lit {
	return Lit{Value: ir.Const(ir.TypeI32, v)}
}
