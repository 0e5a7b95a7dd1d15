// Package compiler turns CUE program descriptions into resolved ast trees.
//
// A program is a set of functions under the top-level "function" field:
//
//	function: pick: {
//		params: [{name: "b", type: "i32"}]
//		result: "i32"
//		body: [
//			{decl: "a", mut: true, value: 0},
//			{branch: [
//				{when: {lhs: "b", op: "==", rhs: 7}, then: [{assign: "a", value: 1}]},
//			], otherwise: [{assign: "a", value: 2}]},
//			{ret: "a"},
//		]
//	}
//
// Expressions are CUE values: an integer is a literal typed by context
// (i32 when nothing else applies), a bool is a bool literal, a string names
// a variable in scope, and {lit: 200, type: "u8"} is an explicitly typed
// literal. Each declaration of a name gets the next generation number within
// its function, parameters first, so shadowed names stay distinct.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/cfgir/internal/ast"
	"github.com/roach88/cfgir/internal/ir"
)

// CompileFunction parses one function value, e.g. the value at path
// "function.pick". The function name is the last path selector.
func CompileFunction(v cue.Value) (*ast.Function, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, "function")
	}

	fn := &ast.Function{}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		if last := sels[len(sels)-1]; last.LabelType() == cue.StringLabel {
			fn.Name = last.Unquoted()
		} else {
			fn.Name = last.String()
		}
	}

	c := &fnCompiler{fn: fn, gens: make(map[string]int)}
	c.push()

	resultVal := v.LookupPath(cue.ParsePath("result"))
	if !resultVal.Exists() {
		return nil, &CompileError{Code: ErrMissingField, Field: "result", Message: "result type is required", Pos: v.Pos()}
	}
	result, err := parseType(resultVal, "result")
	if err != nil {
		return nil, err
	}
	fn.Result = result

	if err := c.params(v.LookupPath(cue.ParsePath("params"))); err != nil {
		return nil, err
	}

	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return nil, &CompileError{Code: ErrMissingField, Field: "body", Message: "body is required", Pos: v.Pos()}
	}
	body, err := c.block(bodyVal, "body")
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

// fnCompiler resolves names for one function.
type fnCompiler struct {
	fn     *ast.Function
	gens   map[string]int
	scopes []map[string]ast.Var
}

func (c *fnCompiler) push() {
	c.scopes = append(c.scopes, make(map[string]ast.Var))
}

func (c *fnCompiler) pop() {
	c.scopes = c.scopes[:len(c.scopes)-1]
}

func (c *fnCompiler) declare(name string, mutable bool, t ir.Type) ast.Var {
	c.gens[name]++
	v := ast.Var{Name: name, Gen: c.gens[name], Mutable: mutable, Type: t}
	c.scopes[len(c.scopes)-1][name] = v
	return v
}

func (c *fnCompiler) resolve(name string) (ast.Var, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v, true
		}
	}
	return ast.Var{}, false
}

func (c *fnCompiler) params(v cue.Value) error {
	if !v.Exists() {
		return nil
	}
	iter, err := v.List()
	if err != nil {
		return formatCUEError(err, "params")
	}
	for i := 0; iter.Next(); i++ {
		pv := iter.Value()
		field := fmt.Sprintf("params[%d]", i)
		name, err := requiredString(pv, "name", field)
		if err != nil {
			return err
		}
		typeVal := pv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return &CompileError{Code: ErrMissingField, Field: field + ".type", Message: "parameter type is required", Pos: pv.Pos()}
		}
		t, err := parseType(typeVal, field+".type")
		if err != nil {
			return err
		}
		mutable, err := optionalBool(pv, "mut", field)
		if err != nil {
			return err
		}
		c.fn.Params = append(c.fn.Params, c.declare(name, mutable, t))
	}
	return nil
}

func (c *fnCompiler) block(v cue.Value, field string) (ast.Block, error) {
	iter, err := v.List()
	if err != nil {
		return ast.Block{}, formatCUEError(err, field)
	}
	var out ast.Block
	for i := 0; iter.Next(); i++ {
		stmt, err := c.stmt(iter.Value(), fmt.Sprintf("%s[%d]", field, i))
		if err != nil {
			return ast.Block{}, err
		}
		out.Stmts = append(out.Stmts, stmt)
	}
	return out, nil
}

// scopedBlock compiles v in a fresh scope.
func (c *fnCompiler) scopedBlock(v cue.Value, field string) (ast.Block, error) {
	c.push()
	defer c.pop()
	return c.block(v, field)
}

func (c *fnCompiler) stmt(v cue.Value, field string) (ast.Stmt, error) {
	switch {
	case v.LookupPath(cue.ParsePath("decl")).Exists():
		return c.decl(v, field)
	case v.LookupPath(cue.ParsePath("assign")).Exists():
		return c.assign(v, field)
	case v.LookupPath(cue.ParsePath("branch")).Exists():
		return c.branch(v, field)
	case v.LookupPath(cue.ParsePath("ret")).Exists():
		val, err := c.expr(v.LookupPath(cue.ParsePath("ret")), c.fn.Result, field+".ret")
		if err != nil {
			return nil, err
		}
		return &ast.Return{Value: val}, nil
	default:
		return nil, &CompileError{
			Code:    ErrUnknownStmt,
			Field:   field,
			Message: "statement must have one of decl, assign, branch, ret",
			Pos:     v.Pos(),
		}
	}
}

func (c *fnCompiler) decl(v cue.Value, field string) (ast.Stmt, error) {
	name, err := requiredString(v, "decl", field)
	if err != nil {
		return nil, err
	}
	mutable, err := optionalBool(v, "mut", field)
	if err != nil {
		return nil, err
	}

	t := ir.TypeInvalid
	if tv := v.LookupPath(cue.ParsePath("type")); tv.Exists() {
		if t, err = parseType(tv, field+".type"); err != nil {
			return nil, err
		}
	}

	// The initializer is resolved before the new name enters scope.
	var value ast.Expr
	valueVal := v.LookupPath(cue.ParsePath("value"))
	if valueVal.Exists() {
		if t == ir.TypeInvalid {
			t = c.typeHint(valueVal)
		}
		if value, err = c.expr(valueVal, t, field+".value"); err != nil {
			return nil, err
		}
	} else if t == ir.TypeInvalid {
		return nil, &CompileError{
			Code:    ErrMissingField,
			Field:   field + ".type",
			Message: fmt.Sprintf("%s needs a type or a value", name),
			Pos:     v.Pos(),
		}
	}

	return &ast.Let{Var: c.declare(name, mutable, t), Value: value}, nil
}

func (c *fnCompiler) assign(v cue.Value, field string) (ast.Stmt, error) {
	name, err := requiredString(v, "assign", field)
	if err != nil {
		return nil, err
	}
	target, ok := c.resolve(name)
	if !ok {
		return nil, &CompileError{Code: ErrUndefinedName, Field: field + ".assign", Message: fmt.Sprintf("%s is not in scope", name), Pos: v.Pos()}
	}
	valueVal := v.LookupPath(cue.ParsePath("value"))
	if !valueVal.Exists() {
		return nil, &CompileError{Code: ErrMissingField, Field: field + ".value", Message: "assignment needs a value", Pos: v.Pos()}
	}
	value, err := c.expr(valueVal, target.Type, field+".value")
	if err != nil {
		return nil, err
	}
	return &ast.Assign{Var: target, Value: value}, nil
}

func (c *fnCompiler) branch(v cue.Value, field string) (ast.Stmt, error) {
	iter, err := v.LookupPath(cue.ParsePath("branch")).List()
	if err != nil {
		return nil, formatCUEError(err, field+".branch")
	}

	out := &ast.If{}
	for i := 0; iter.Next(); i++ {
		av := iter.Value()
		armField := fmt.Sprintf("%s.branch[%d]", field, i)

		whenVal := av.LookupPath(cue.ParsePath("when"))
		if !whenVal.Exists() {
			return nil, &CompileError{Code: ErrMissingField, Field: armField + ".when", Message: "arm needs a condition", Pos: av.Pos()}
		}
		cond, err := c.cond(whenVal, armField+".when")
		if err != nil {
			return nil, err
		}

		thenVal := av.LookupPath(cue.ParsePath("then"))
		if !thenVal.Exists() {
			return nil, &CompileError{Code: ErrMissingField, Field: armField + ".then", Message: "arm needs a body", Pos: av.Pos()}
		}
		body, err := c.scopedBlock(thenVal, armField+".then")
		if err != nil {
			return nil, err
		}
		out.Arms = append(out.Arms, ast.Arm{Cond: cond, Body: body})
	}
	if len(out.Arms) == 0 {
		return nil, &CompileError{Code: ErrMissingField, Field: field + ".branch", Message: "branch needs at least one arm", Pos: v.Pos()}
	}

	if ov := v.LookupPath(cue.ParsePath("otherwise")); ov.Exists() {
		body, err := c.scopedBlock(ov, field+".otherwise")
		if err != nil {
			return nil, err
		}
		out.Else = &body
	}
	return out, nil
}

func (c *fnCompiler) cond(v cue.Value, field string) (ast.Cond, error) {
	opName, err := requiredString(v, "op", field)
	if err != nil {
		return ast.Cond{}, err
	}
	cmp, err := ir.ParseComparator(opName)
	if err != nil {
		return ast.Cond{}, &CompileError{Code: ErrUnknownCompare, Field: field + ".op", Message: err.Error(), Pos: v.Pos()}
	}

	lhsVal := v.LookupPath(cue.ParsePath("lhs"))
	rhsVal := v.LookupPath(cue.ParsePath("rhs"))
	if !lhsVal.Exists() || !rhsVal.Exists() {
		return ast.Cond{}, &CompileError{Code: ErrMissingField, Field: field, Message: "condition needs lhs and rhs", Pos: v.Pos()}
	}

	// An untyped literal takes the type of the other operand.
	t := c.typeHint(lhsVal)
	if t == ir.TypeInvalid {
		t = c.typeHint(rhsVal)
	}

	lhs, err := c.expr(lhsVal, t, field+".lhs")
	if err != nil {
		return ast.Cond{}, err
	}
	rhs, err := c.expr(rhsVal, t, field+".rhs")
	if err != nil {
		return ast.Cond{}, err
	}
	return ast.Cond{Cmp: cmp, Lhs: lhs, Rhs: rhs}, nil
}

// typeHint returns the type v has independent of context, or TypeInvalid
// for untyped integer literals and unresolvable names.
func (c *fnCompiler) typeHint(v cue.Value) ir.Type {
	switch v.Kind() {
	case cue.StringKind:
		name, _ := v.String()
		if ref, ok := c.resolve(name); ok {
			return ref.Type
		}
	case cue.BoolKind:
		return ir.TypeBool
	case cue.StructKind:
		if t, err := parseType(v.LookupPath(cue.ParsePath("type")), ""); err == nil {
			return t
		}
	}
	return ir.TypeInvalid
}

// expr compiles v. want types untyped integer literals; TypeInvalid means i32.
func (c *fnCompiler) expr(v cue.Value, want ir.Type, field string) (ast.Expr, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err, field)
	}
	switch v.Kind() {
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Code: ErrBadLiteral, Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		if want == ir.TypeInvalid {
			want = ir.TypeI32
		}
		if want == ir.TypeBool {
			return nil, &CompileError{Code: ErrBadLiteral, Field: field, Message: "integer literal where bool expected", Pos: v.Pos()}
		}
		return ast.Lit{Value: ir.Const(want, n)}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err, field)
		}
		return ast.Lit{Value: ir.Bool(b)}, nil
	case cue.StringKind:
		name, err := v.String()
		if err != nil {
			return nil, formatCUEError(err, field)
		}
		ref, ok := c.resolve(name)
		if !ok {
			return nil, &CompileError{Code: ErrUndefinedName, Field: field, Message: fmt.Sprintf("%s is not in scope", name), Pos: v.Pos()}
		}
		return ast.Ref{Var: ref}, nil
	case cue.StructKind:
		litVal := v.LookupPath(cue.ParsePath("lit"))
		typeVal := v.LookupPath(cue.ParsePath("type"))
		if !litVal.Exists() || !typeVal.Exists() {
			return nil, &CompileError{Code: ErrBadLiteral, Field: field, Message: "typed literal needs lit and type", Pos: v.Pos()}
		}
		t, err := parseType(typeVal, field+".type")
		if err != nil {
			return nil, err
		}
		if t == ir.TypeBool {
			b, err := litVal.Bool()
			if err != nil {
				return nil, &CompileError{Code: ErrBadLiteral, Field: field + ".lit", Message: "bool literal expected", Pos: litVal.Pos()}
			}
			return ast.Lit{Value: ir.Bool(b)}, nil
		}
		n, err := litVal.Int64()
		if err != nil {
			return nil, &CompileError{Code: ErrBadLiteral, Field: field + ".lit", Message: "integer literal expected", Pos: litVal.Pos()}
		}
		return ast.Lit{Value: ir.Const(t, n)}, nil
	default:
		return nil, &CompileError{
			Code:    ErrBadLiteral,
			Field:   field,
			Message: fmt.Sprintf("unsupported expression kind %s", v.Kind()),
			Pos:     v.Pos(),
		}
	}
}

func parseType(v cue.Value, field string) (ir.Type, error) {
	name, err := v.String()
	if err != nil {
		return ir.TypeInvalid, formatCUEError(err, field)
	}
	t, err := ir.ParseType(name)
	if err != nil {
		return ir.TypeInvalid, &CompileError{Code: ErrUnknownType, Field: field, Message: err.Error(), Pos: v.Pos()}
	}
	return t, nil
}

func requiredString(v cue.Value, key, field string) (string, error) {
	sv := v.LookupPath(cue.ParsePath(key))
	if !sv.Exists() {
		return "", &CompileError{Code: ErrMissingField, Field: field + "." + key, Message: key + " is required", Pos: v.Pos()}
	}
	s, err := sv.String()
	if err != nil {
		return "", formatCUEError(err, field+"."+key)
	}
	return s, nil
}

func optionalBool(v cue.Value, key, field string) (bool, error) {
	bv := v.LookupPath(cue.ParsePath(key))
	if !bv.Exists() {
		return false, nil
	}
	b, err := bv.Bool()
	if err != nil {
		return false, formatCUEError(err, field+"."+key)
	}
	return b, nil
}
