package compiler

import (
	"errors"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cfgir/internal/ast"
	"github.com/roach88/cfgir/internal/ir"
	"github.com/roach88/cfgir/internal/testutil"
)

func compileOne(t *testing.T, src, path string) (*ast.Function, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return CompileFunction(v.LookupPath(cue.ParsePath(path)))
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var ce *CompileError
	require.True(t, errors.As(err, &ce), "expected CompileError, got %v", err)
	return ce.Code
}

func TestLoadDir_PickMatchesFixture(t *testing.T) {
	fns, err := LoadDir("testdata/programs")
	require.NoError(t, err)

	pick := Find(fns, "pick")
	require.NotNil(t, pick)
	assert.Equal(t, testutil.PickFunction(), pick)
}

func TestLoadDir_Shadowing(t *testing.T) {
	fns, err := LoadDir("testdata/programs")
	require.NoError(t, err)

	clamp := Find(fns, "clamp")
	require.NotNil(t, clamp)

	x1 := ast.Var{Name: "x", Gen: 1, Type: ir.TypeU8}
	x2 := ast.Var{Name: "x", Gen: 2, Type: ir.TypeU8}
	r := ast.Var{Name: "r", Gen: 1, Mutable: true, Type: ir.TypeU8}

	assert.Equal(t, []ast.Var{x1}, clamp.Params)
	assert.Equal(t, ir.TypeU8, clamp.Result)
	require.Len(t, clamp.Body.Stmts, 3)
	assert.Equal(t, &ast.Let{Var: r}, clamp.Body.Stmts[0])

	branch := clamp.Body.Stmts[1].(*ast.If)
	require.Len(t, branch.Arms, 1)
	assert.Equal(t, ast.Cond{Cmp: ir.CmpGt, Lhs: ast.Ref{Var: x1}, Rhs: ast.Lit{Value: ir.Const(ir.TypeU8, 200)}}, branch.Arms[0].Cond)
	assert.Equal(t, []ast.Stmt{
		&ast.Let{Var: x2, Value: ast.Lit{Value: ir.Const(ir.TypeU8, 200)}},
		&ast.Assign{Var: r, Value: ast.Ref{Var: x2}},
	}, branch.Arms[0].Body.Stmts)

	// The arm scope is closed, so the else body sees the parameter again.
	require.NotNil(t, branch.Else)
	assert.Equal(t, []ast.Stmt{&ast.Assign{Var: r, Value: ast.Ref{Var: x1}}}, branch.Else.Stmts)
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir("testdata/does-not-exist")
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestCompileFunction_LiteralTyping(t *testing.T) {
	fn, err := compileOne(t, `
		function: f: {
			params: [{name: "n", type: "i64"}]
			result: "i16"
			body: [
				{decl: "k", value: 3},
				{decl: "w", type: "u16", value: 4},
				{decl: "flag", value: true},
				{branch: [{when: {lhs: 9, op: "<", rhs: "n"}, then: [{ret: 1}]}]},
				{ret: 2},
			]
		}
	`, "function.f")
	require.NoError(t, err)

	stmts := fn.Body.Stmts
	assert.Equal(t, ir.TypeI32, stmts[0].(*ast.Let).Var.Type, "untyped literal defaults to i32")
	assert.Equal(t, ast.Lit{Value: ir.Const(ir.TypeU16, 4)}, stmts[1].(*ast.Let).Value)
	assert.Equal(t, ir.TypeBool, stmts[2].(*ast.Let).Var.Type)

	cond := stmts[3].(*ast.If).Arms[0].Cond
	assert.Equal(t, ast.Lit{Value: ir.Const(ir.TypeI64, 9)}, cond.Lhs, "literal takes the other operand's type")
	assert.Equal(t, ast.Lit{Value: ir.Const(ir.TypeI16, 2)}, stmts[4].(*ast.Return).Value, "return literal takes the result type")
}

func TestCompileFunction_InitializerSeesOuterName(t *testing.T) {
	fn, err := compileOne(t, `
		function: f: {
			params: [{name: "a", type: "i32"}]
			result: "i32"
			body: [
				{decl: "a", value: "a"},
				{ret: "a"},
			]
		}
	`, "function.f")
	require.NoError(t, err)

	let := fn.Body.Stmts[0].(*ast.Let)
	assert.Equal(t, 2, let.Var.Gen)
	assert.Equal(t, ast.Ref{Var: ast.Var{Name: "a", Gen: 1, Type: ir.TypeI32}}, let.Value)
	assert.Equal(t, ast.Ref{Var: let.Var}, fn.Body.Stmts[1].(*ast.Return).Value)
}

func TestCompileFunction_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"unknown type", `params: [{name: "a", type: "f32"}], result: "i32", body: []`, ErrUnknownType},
		{"missing result", `body: []`, ErrMissingField},
		{"missing body", `result: "i32"`, ErrMissingField},
		{"unknown statement", `result: "i32", body: [{loop: true}]`, ErrUnknownStmt},
		{"undefined ref", `result: "i32", body: [{ret: "nope"}]`, ErrUndefinedName},
		{"undefined assign", `result: "i32", body: [{assign: "nope", value: 1}]`, ErrUndefinedName},
		{"unknown compare", `params: [{name: "a", type: "i32"}], result: "i32", body: [{branch: [{when: {lhs: "a", op: "<>", rhs: 1}, then: []}]}]`, ErrUnknownCompare},
		{"float literal", `result: "i32", body: [{ret: 1.5}]`, ErrBadLiteral},
		{"int for bool", `result: "bool", body: [{ret: 1}]`, ErrBadLiteral},
		{"decl without type", `result: "i32", body: [{decl: "a"}]`, ErrMissingField},
		{"empty branch", `result: "i32", body: [{branch: []}]`, ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne(t, "function: f: {"+tt.body+"}", "function.f")
			require.Error(t, err)
			assert.Equal(t, tt.code, codeOf(t, err))
		})
	}
}

func TestCompileFunction_ErrorHasPosition(t *testing.T) {
	v := cuecontext.New().CompileString(`function: f: {
	result: "i32"
	body: [{ret: "nope"}]
}`, cue.Filename("bad.cue"))
	require.NoError(t, v.Err())

	_, err := CompileFunction(v.LookupPath(cue.ParsePath("function.f")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.cue:3")
	assert.Contains(t, err.Error(), "body[0].ret")
}

func TestCompileSource_CollectsAllFunctions(t *testing.T) {
	fns, err := CompileSource(`
		function: good: {result: "i32", body: [{ret: 0}]}
		function: bad: {result: "i32", body: [{ret: "x"}]}
		function: worse: {result: "nope", body: []}
	`, "mixed.cue")
	require.Error(t, err)
	require.Len(t, fns, 1)
	assert.Equal(t, "good", fns[0].Name)
	assert.Contains(t, err.Error(), "function bad")
	assert.Contains(t, err.Error(), "function worse")
}

func TestCompileSource_NoFunctions(t *testing.T) {
	_, err := CompileSource(`other: 1`, "empty.cue")
	require.Error(t, err)
	assert.Equal(t, ErrNoFunctions, codeOf(t, err))
}
