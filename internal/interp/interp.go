// Package interp is the reference interpreter for ir.Graph.
//
// The interpreter executes exactly what the graph says and does not
// validate it first: a corrupted graph produces a Fault, never a silent
// wraparound or out-of-bounds access. Callers that need the validated-only
// guarantee go through pipeline.Execute.
package interp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/cfgir/internal/ir"
)

// DefaultMaxSteps is the default maximum number of blocks entered per run.
const DefaultMaxSteps = 100_000

// Interpreter runs graphs. It holds only configuration, so one Interpreter
// may run many graphs concurrently.
type Interpreter struct {
	maxSteps int
	logger   *slog.Logger
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxSteps sets the step budget. Values below 1 restore the default.
func WithMaxSteps(n int) Option {
	return func(it *Interpreter) {
		if n < 1 {
			n = DefaultMaxSteps
		}
		it.maxSteps = n
	}
}

// WithLogger sets the logger for block transfers (Debug) and faults (Warn).
func WithLogger(l *slog.Logger) Option {
	return func(it *Interpreter) {
		it.logger = l
	}
}

// New creates an Interpreter.
func New(opts ...Option) *Interpreter {
	it := &Interpreter{
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(it)
	}
	return it
}

// Outcome is the result of a completed run.
type Outcome struct {
	Value ir.Constant
	Steps int
	Path  []ir.BlockID
}

// machine is the state of one run.
type machine struct {
	graph  *ir.Graph
	env    map[string]ir.Constant
	budget *stepBudget
	path   []ir.BlockID
}

// Run executes g with inputs keyed by parameter label (e.g. "b_1").
// Every parameter must be bound, with a value of its type.
func (it *Interpreter) Run(ctx context.Context, g *ir.Graph, inputs map[string]ir.Constant) (*Outcome, error) {
	m := &machine{
		graph:  g,
		env:    make(map[string]ir.Constant, len(inputs)),
		budget: newStepBudget(it.maxSteps),
	}
	if err := m.bind(inputs); err != nil {
		return nil, it.fail(err)
	}

	cur := ir.BlockID(0)
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run %s: %w", g.Name, err)
		}
		if err := m.budget.Check(g.Name); err != nil {
			return nil, it.fail(&Fault{
				Code:     FaultStepBudgetExceeded,
				Function: g.Name,
				Block:    cur,
				Index:    -1,
				Message:  err.Error(),
				Err:      err,
			})
		}

		blk := g.Block(cur)
		if blk == nil {
			from := ir.BlockID(0)
			if len(m.path) > 0 {
				from = m.path[len(m.path)-1]
			}
			return nil, it.fail(&Fault{
				Code:     FaultInvalidTarget,
				Function: g.Name,
				Block:    from,
				Index:    -1,
				Target:   cur,
				Message:  fmt.Sprintf("b%d is outside 0..%d", cur, g.Len()-1),
			})
		}
		m.path = append(m.path, cur)

		next, ret, done, err := m.step(blk)
		if err != nil {
			return nil, it.fail(err)
		}
		if done {
			return &Outcome{Value: ret, Steps: m.budget.Current(), Path: m.path}, nil
		}
		it.logger.Debug("transfer", "function", g.Name, "from", cur, "to", next)
		cur = next
	}
}

func (it *Interpreter) fail(err error) error {
	it.logger.Warn("interpreter fault", "error", err)
	return err
}

func (m *machine) bind(inputs map[string]ir.Constant) error {
	params := make(map[string]ir.Place, len(m.graph.Params))
	for _, p := range m.graph.Params {
		params[p.Label] = p
	}
	for _, label := range ir.SortedLabels(inputs) {
		if _, ok := params[label]; !ok {
			return m.badInput(label, "%s is not a parameter of %s", label, m.graph.Name)
		}
	}
	for _, p := range m.graph.Params {
		c, ok := inputs[p.Label]
		if !ok {
			return m.badInput(p.Label, "missing input for %s", p.Label)
		}
		if c.Type != p.Type {
			return m.badInput(p.Label, "%s expects %s, got %s", p.Label, p.Type, c.Type)
		}
		if !c.Type.Fits(c.Value) {
			return m.badInput(p.Label, "%d out of range for %s", c.Value, c.Type)
		}
		m.env[p.Label] = c
	}
	return nil
}

func (m *machine) badInput(label, format string, args ...any) error {
	return &Fault{
		Code:     FaultBadInput,
		Function: m.graph.Name,
		Index:    -1,
		Label:    label,
		Message:  fmt.Sprintf(format, args...),
	}
}

// step executes blk up to and including its first terminator.
func (m *machine) step(blk *ir.BasicBlock) (next ir.BlockID, ret ir.Constant, done bool, err error) {
	for i, in := range blk.Instrs {
		switch t := in.(type) {
		case *ir.LoadData:
			v, err := m.resolve(t.Src, blk.ID, i)
			if err != nil {
				return 0, ir.Constant{}, false, err
			}
			m.env[t.Dest.Label] = v
		case *ir.Jump:
			return t.Target, ir.Constant{}, false, nil
		case *ir.JumpIfCond:
			lhs, err := m.resolve(t.Lhs, blk.ID, i)
			if err != nil {
				return 0, ir.Constant{}, false, err
			}
			rhs, err := m.resolve(t.Rhs, blk.ID, i)
			if err != nil {
				return 0, ir.Constant{}, false, err
			}
			if t.Cmp.Eval(lhs.Value, rhs.Value) {
				return t.Target, ir.Constant{}, false, nil
			}
			next, ok := blk.Fallthrough()
			if !ok {
				return 0, ir.Constant{}, false, &Fault{
					Code:     FaultInvalidTarget,
					Function: m.graph.Name,
					Block:    blk.ID,
					Index:    i,
					Message:  fmt.Sprintf("fallthrough from b%d has no block id", blk.ID),
				}
			}
			return next, ir.Constant{}, false, nil
		case *ir.Ret:
			v, err := m.resolve(t.Value, blk.ID, i)
			if err != nil {
				return 0, ir.Constant{}, false, err
			}
			return 0, v, true, nil
		default:
			return 0, ir.Constant{}, false, &Fault{
				Code:     FaultUnknownInstruction,
				Function: m.graph.Name,
				Block:    blk.ID,
				Index:    i,
				Message:  fmt.Sprintf("unknown instruction %T", in),
			}
		}
	}
	return 0, ir.Constant{}, false, &Fault{
		Code:     FaultMissingTerminator,
		Function: m.graph.Name,
		Block:    blk.ID,
		Index:    -1,
		Message:  "block ended without a terminator",
	}
}

func (m *machine) resolve(op ir.Operand, blk ir.BlockID, idx int) (ir.Constant, error) {
	switch v := op.(type) {
	case ir.Constant:
		return v, nil
	case ir.PlaceRef:
		c, ok := m.env[v.Place.Label]
		if !ok {
			return ir.Constant{}, &Fault{
				Code:     FaultUninitializedRead,
				Function: m.graph.Name,
				Block:    blk,
				Index:    idx,
				Label:    v.Place.Label,
				Message:  fmt.Sprintf("%s read before assignment", v.Place.Label),
			}
		}
		return c, nil
	default:
		return ir.Constant{}, &Fault{
			Code:     FaultUnknownInstruction,
			Function: m.graph.Name,
			Block:    blk,
			Index:    idx,
			Message:  fmt.Sprintf("unknown operand %T", op),
		}
	}
}
