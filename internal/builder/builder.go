// Package builder lowers a resolved ast.Function into an ir.Graph.
//
// Conditional chains use the fallthrough convention: each test block ends in
// a JumpIfCond on the negated condition whose target is the next test (or the
// else body, or the merge block), and a match falls through to the handler
// block allocated immediately after the test. Handler bodies that do not
// return end in a Jump to a shared merge block. Block ids are allocated in
// emission order, so the graph is dense by construction.
package builder

import (
	"log/slog"

	"github.com/roach88/cfgir/internal/ast"
	"github.com/roach88/cfgir/internal/ir"
)

// Result is the output of a successful Build.
type Result struct {
	Graph *ir.Graph

	// Places maps each source variable identity to its place.
	Places map[ast.VarID]ir.Place

	// Warnings are non-fatal findings such as dropped unreachable statements.
	Warnings []Diagnostic
}

// Option configures Build.
type Option func(*config)

type config struct {
	logger *slog.Logger
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Build lowers fn. On any semantic defect it returns a *MalformedProgram
// listing every diagnostic, and no graph.
func Build(fn *ast.Function, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := newFunctionBuilder(fn, cfg.logger)
	b.buildBody()

	if len(b.diags) > 0 {
		return nil, &MalformedProgram{Function: fn.Name, Diagnostics: b.diags}
	}

	b.graph.ComputePredecessors()
	b.logger.Debug("built graph",
		"function", fn.Name,
		"blocks", b.graph.Len(),
		"warnings", len(b.warnings))

	return &Result{
		Graph:    b.graph,
		Places:   b.places,
		Warnings: b.warnings,
	}, nil
}
