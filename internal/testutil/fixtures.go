// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"github.com/roach88/cfgir/internal/ast"
	"github.com/roach88/cfgir/internal/ir"
)

// I32 returns an i32 variable of the given declaration generation.
func I32(name string, gen int, mutable bool) ast.Var {
	return ast.Var{Name: name, Gen: gen, Mutable: mutable, Type: ir.TypeI32}
}

// Lit returns an i32 literal expression.
func Lit(v int64) ast.Expr {
	return ast.IntLit(v)
}

// Ref returns a read of v.
func Ref(v ast.Var) ast.Expr {
	return ast.Ref{Var: v}
}

// When builds one arm of an if chain.
func When(lhs ast.Expr, cmp ir.Comparator, rhs ast.Expr, body ...ast.Stmt) ast.Arm {
	return ast.Arm{
		Cond: ast.Cond{Cmp: cmp, Lhs: lhs, Rhs: rhs},
		Body: ast.Block{Stmts: body},
	}
}

// Else builds an else body.
func Else(body ...ast.Stmt) *ast.Block {
	return &ast.Block{Stmts: body}
}

// Assign builds an assignment statement.
func Assign(v ast.Var, e ast.Expr) ast.Stmt {
	return &ast.Assign{Var: v, Value: e}
}

// Return builds a return statement.
func Return(e ast.Expr) ast.Stmt {
	return &ast.Return{Value: e}
}

// PickFunction returns the bucketed-selection function used throughout the
// test suite:
//
//	fn pick(b: i32) -> i32 {
//	    let mut a = 0;
//	    if b == 7 { a = 0; }
//	    else if b >= 100 { a = 1; }
//	    else if b < 2 { a = 5; }
//	    else if b < 33 { if b < 10 { a = 8; } else { a = 9; } }
//	    else if b < 50 { a = -22; }
//	    else { a = 333; }
//	    if b == 2 { return b; }
//	    return a;
//	}
func PickFunction() *ast.Function {
	b := I32("b", 1, false)
	a := I32("a", 1, true)

	return &ast.Function{
		Name:   "pick",
		Params: []ast.Var{b},
		Result: ir.TypeI32,
		Body: ast.Block{Stmts: []ast.Stmt{
			&ast.Let{Var: a, Value: Lit(0)},
			&ast.If{
				Arms: []ast.Arm{
					When(Ref(b), ir.CmpEq, Lit(7), Assign(a, Lit(0))),
					When(Ref(b), ir.CmpGe, Lit(100), Assign(a, Lit(1))),
					When(Ref(b), ir.CmpLt, Lit(2), Assign(a, Lit(5))),
					When(Ref(b), ir.CmpLt, Lit(33), &ast.If{
						Arms: []ast.Arm{When(Ref(b), ir.CmpLt, Lit(10), Assign(a, Lit(8)))},
						Else: Else(Assign(a, Lit(9))),
					}),
					When(Ref(b), ir.CmpLt, Lit(50), Assign(a, Lit(-22))),
				},
				Else: Else(Assign(a, Lit(333))),
			},
			&ast.If{
				Arms: []ast.Arm{When(Ref(b), ir.CmpEq, Lit(2), Return(Ref(b)))},
			},
			Return(Ref(a)),
		}},
	}
}

// PickExpectations maps inputs of PickFunction to their results.
var PickExpectations = map[int64]int64{
	7:   0,
	9:   8,
	150: 1,
	40:  -22,
	2:   2,
	60:  333,
	1:   5,
	10:  9,
	33:  -22,
	100: 1,
	50:  333,
	-5:  5,
}
