package builder

import (
	"fmt"
	"log/slog"

	"github.com/roach88/cfgir/internal/ast"
	"github.com/roach88/cfgir/internal/ir"
)

type functionBuilder struct {
	fn     *ast.Function
	graph  *ir.Graph
	logger *slog.Logger

	// current is nil once the path has ended in a Ret. While non-nil it is
	// always the most recently allocated block.
	current *ir.BasicBlock
	state   *assignState

	places   map[ast.VarID]ir.Place
	diags    []Diagnostic
	warnings []Diagnostic
}

func newFunctionBuilder(fn *ast.Function, logger *slog.Logger) *functionBuilder {
	return &functionBuilder{
		fn: fn,
		graph: &ir.Graph{
			Name:   fn.Name,
			Result: fn.Result,
		},
		logger: logger,
		state:  newAssignState(),
		places: make(map[ast.VarID]ir.Place),
	}
}

func (b *functionBuilder) buildBody() {
	b.current = b.newBlock()

	for _, p := range b.fn.Params {
		place, ok := b.declare(p)
		if !ok {
			continue
		}
		b.graph.Params = append(b.graph.Params, place)
		b.state.assign(place.Label)
	}

	b.lowerBlock(b.fn.Body.Stmts)

	if b.current != nil {
		b.errorf(ErrMissingReturn, "", "control reaches end of %s without return", b.fn.Name)
	}
}

func (b *functionBuilder) newBlock() *ir.BasicBlock {
	blk := &ir.BasicBlock{ID: ir.BlockID(len(b.graph.Blocks))}
	b.graph.Blocks = append(b.graph.Blocks, blk)
	return blk
}

func (b *functionBuilder) emit(in ir.Instr) {
	b.current.Instrs = append(b.current.Instrs, in)
}

func (b *functionBuilder) errorf(code, label, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Var:     label,
	})
}

func (b *functionBuilder) lowerBlock(stmts []ast.Stmt) {
	for i, stmt := range stmts {
		if b.current == nil {
			dropped := len(stmts) - i
			b.warnings = append(b.warnings, Diagnostic{
				Code:    WarnUnreachableCode,
				Message: fmt.Sprintf("%d unreachable statement(s) after return dropped", dropped),
			})
			b.logger.Debug("dropping unreachable statements",
				"function", b.fn.Name,
				"count", dropped)
			return
		}
		b.lowerStmt(stmt)
	}
}

func (b *functionBuilder) lowerStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.Let:
		b.lowerLet(s)
	case *ast.Assign:
		b.lowerAssign(s)
	case *ast.If:
		b.lowerIf(s)
	case *ast.Return:
		b.lowerReturn(s)
	default:
		panic(fmt.Sprintf("builder: unknown statement %T", stmt))
	}
}

func (b *functionBuilder) lowerLet(s *ast.Let) {
	place, ok := b.declare(s.Var)
	if !ok || s.Value == nil {
		return
	}
	b.store(place, s.Value)
}

func (b *functionBuilder) lowerAssign(s *ast.Assign) {
	place, ok := b.lookup(s.Var)
	if !ok {
		return
	}
	if place.Kind == ir.Immutable && b.state.maybe.Contains(place.Label) {
		b.errorf(ErrImmutableReassigned, place.Label,
			"immutable %s may already be assigned on this path", place.Label)
		return
	}
	b.store(place, s.Value)
}

func (b *functionBuilder) store(place ir.Place, value ast.Expr) {
	// The place counts as written even when the value is rejected, so one
	// bad store does not cascade into uninitialized-read diagnostics.
	defer b.state.assign(place.Label)

	src, ok := b.lowerExpr(value)
	if !ok {
		return
	}
	if src.OperandType() != place.Type {
		b.errorf(ErrTypeMismatch, place.Label,
			"cannot assign %s value %s to %s %s", src.OperandType(), src, place.Type, place.Label)
		return
	}
	b.emit(&ir.LoadData{Dest: place, Src: src})
}

func (b *functionBuilder) lowerReturn(s *ast.Return) {
	val, ok := b.lowerExpr(s.Value)
	if ok && val.OperandType() != b.fn.Result {
		b.errorf(ErrTypeMismatch, "",
			"%s returns %s, got %s value %s", b.fn.Name, b.fn.Result, val.OperandType(), val)
	}
	if val == nil {
		val = ir.Const(b.fn.Result, 0)
	}
	b.emit(&ir.Ret{Value: val})
	b.current = nil
}

// lowerIf emits one test block plus one handler block per arm, an optional
// else block, and a merge block when any path continues past the chain.
func (b *functionBuilder) lowerIf(s *ast.If) {
	if len(s.Arms) == 0 {
		if s.Else != nil {
			b.lowerBlock(s.Else.Stmts)
		}
		return
	}

	entry := b.state
	var (
		exits    []*assignState
		toMerge  []*ir.Jump
		lastTest *ir.JumpIfCond
	)

	closeArm := func() {
		if b.current == nil {
			return
		}
		j := &ir.Jump{}
		b.emit(j)
		toMerge = append(toMerge, j)
		exits = append(exits, b.state)
	}

	for i, arm := range s.Arms {
		if i > 0 {
			next := b.newBlock()
			lastTest.Target = next.ID
			b.current = next
		}
		b.state = entry.clone()
		lastTest = b.lowerCond(arm.Cond)

		b.current = b.newBlock()
		b.lowerBlock(arm.Body.Stmts)
		closeArm()
	}

	if s.Else != nil {
		elseBlk := b.newBlock()
		lastTest.Target = elseBlk.ID
		b.current = elseBlk
		b.state = entry.clone()
		b.lowerBlock(s.Else.Stmts)
		closeArm()
	} else {
		exits = append(exits, entry.clone())
	}

	if len(exits) == 0 {
		b.current = nil
		b.state = entry
		return
	}

	merge := b.newBlock()
	for _, j := range toMerge {
		j.Target = merge.ID
	}
	if s.Else == nil {
		lastTest.Target = merge.ID
	}
	b.current = merge
	b.state = joinStates(exits)
}

// lowerCond terminates the current block with a JumpIfCond that is taken
// when cond does NOT hold. Only ==, !=, < and >= are emitted: a negation
// yielding <= or > is rewritten with swapped operands. The target is left
// for the caller to patch.
func (b *functionBuilder) lowerCond(cond ast.Cond) *ir.JumpIfCond {
	lhs, lok := b.lowerExpr(cond.Lhs)
	rhs, rok := b.lowerExpr(cond.Rhs)
	if lok && rok && lhs.OperandType() != rhs.OperandType() {
		b.errorf(ErrTypeMismatch, "",
			"cannot compare %s with %s (%s %s %s)", lhs.OperandType(), rhs.OperandType(), lhs, cond.Cmp, rhs)
	}

	cmp := cond.Cmp.Negate()
	if cmp == ir.CmpLe || cmp == ir.CmpGt {
		cmp = cmp.Swap()
		lhs, rhs = rhs, lhs
	}

	jc := &ir.JumpIfCond{Cmp: cmp, Lhs: lhs, Rhs: rhs}
	b.emit(jc)
	return jc
}

// lowerExpr returns the operand for e. ok is false when a diagnostic was
// recorded; the returned operand may then be nil.
func (b *functionBuilder) lowerExpr(e ast.Expr) (ir.Operand, bool) {
	switch v := e.(type) {
	case ast.Lit:
		if !v.Value.Type.Fits(v.Value.Value) {
			b.errorf(ErrLiteralRange, "", "literal %d out of range for %s", v.Value.Value, v.Value.Type)
			return v.Value, false
		}
		return v.Value, true
	case ast.Ref:
		place, ok := b.lookup(v.Var)
		if !ok {
			return nil, false
		}
		if !b.state.definite.Contains(place.Label) {
			b.errorf(ErrUninitializedRead, place.Label, "%s may not have definition", place.Label)
			return ir.Ref(place), false
		}
		return ir.Ref(place), true
	default:
		b.errorf(ErrTypeMismatch, "", "unsupported expression %T", e)
		return nil, false
	}
}

func placeFor(v ast.Var) ir.Place {
	kind := ir.Immutable
	if v.Mutable {
		kind = ir.Mutable
	}
	return ir.Place{Label: v.Label(), Kind: kind, Type: v.Type}
}

func (b *functionBuilder) declare(v ast.Var) (ir.Place, bool) {
	if _, exists := b.places[v.ID()]; exists {
		b.errorf(ErrRedeclared, v.Label(), "%s declared more than once", v.Label())
		return ir.Place{}, false
	}
	if v.Type == ir.TypeInvalid {
		b.errorf(ErrTypeMismatch, v.Label(), "%s has no type", v.Label())
		return ir.Place{}, false
	}
	place := placeFor(v)
	b.places[v.ID()] = place
	return place, true
}

func (b *functionBuilder) lookup(v ast.Var) (ir.Place, bool) {
	place, ok := b.places[v.ID()]
	if !ok {
		b.errorf(ErrUndeclaredVar, v.Label(), "%s is not declared", v.Label())
		return ir.Place{}, false
	}
	if want := placeFor(v); want != place {
		b.errorf(ErrRedeclared, v.Label(),
			"%s used as %s but declared as %s", v.Label(), want.Decl(), place.Decl())
		return place, false
	}
	return place, true
}
